package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"classquiz-service/internal/domain"
)

// SubmissionService scores attempts and appends them to the log. Quizzes
// are read through a QuizReader so the scoring hot path can sit behind a
// cache. Every call to Record creates an independent record; the log has
// no update or delete.
type SubmissionService struct {
	quizzes QuizReader
	log     SubmissionLog
	clock   func() time.Time
	newID   func() string
}

func NewSubmissionService(quizzes QuizReader, log SubmissionLog) *SubmissionService {
	return &SubmissionService{
		quizzes: quizzes,
		log:     log,
		clock:   time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock is test-only for deterministic timestamps.
func (s *SubmissionService) WithClock(now func() time.Time) { s.clock = now }

// Record scores the answers against the quiz and appends the attempt.
func (s *SubmissionService) Record(ctx context.Context, quizID, userID string, answers map[string]int) (domain.Submission, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Submission{}, err
	}
	score, err := domain.Score(quiz, answers)
	if err != nil {
		return domain.Submission{}, err
	}
	sub := domain.Submission{
		ID:          s.newID(),
		QuizID:      quizID,
		UserID:      userID,
		Answers:     copyAnswers(answers),
		Score:       score,
		SubmittedAt: s.clock(),
	}
	if err := s.log.Append(ctx, sub); err != nil {
		return domain.Submission{}, err
	}
	return sub, nil
}

// ListByLearner returns the learner's attempts across all quizzes.
func (s *SubmissionService) ListByLearner(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.log.ListByLearner(ctx, userID)
}

// ListByQuiz returns every attempt recorded against the quiz.
func (s *SubmissionService) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.log.ListByQuiz(ctx, quizID)
}

func copyAnswers(answers map[string]int) map[string]int {
	out := make(map[string]int, len(answers))
	for id, choice := range answers {
		out[id] = choice
	}
	return out
}
