package memory

import (
	"context"
	"sync"

	"classquiz-service/internal/domain"
)

// SubmissionLog is the in-memory append-only attempt log.
type SubmissionLog struct {
	mu          sync.RWMutex
	submissions []domain.Submission
}

func NewSubmissionLog() *SubmissionLog {
	return &SubmissionLog{}
}

func (l *SubmissionLog) Append(_ context.Context, sub domain.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.submissions = append(l.submissions, cloneSubmission(sub))
	return nil
}

func (l *SubmissionLog) ListByLearner(_ context.Context, userID string) ([]domain.Submission, error) {
	return l.filter(func(s domain.Submission) bool { return s.UserID == userID }), nil
}

func (l *SubmissionLog) ListByQuiz(_ context.Context, quizID string) ([]domain.Submission, error) {
	return l.filter(func(s domain.Submission) bool { return s.QuizID == quizID }), nil
}

func (l *SubmissionLog) filter(keep func(domain.Submission) bool) []domain.Submission {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.Submission, 0, len(l.submissions))
	for _, sub := range l.submissions {
		if keep(sub) {
			out = append(out, cloneSubmission(sub))
		}
	}
	return out
}

func cloneSubmission(sub domain.Submission) domain.Submission {
	answers := make(map[string]int, len(sub.Answers))
	for id, choice := range sub.Answers {
		answers[id] = choice
	}
	sub.Answers = answers
	return sub
}
