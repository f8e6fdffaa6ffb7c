package memory

import (
	"context"
	"testing"
	"time"

	"classquiz-service/internal/domain"
)

func TestSessionStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewSessionStore()

	if _, ok, err := store.Get(ctx); err != nil || ok {
		t.Fatalf("expected empty store, got ok=%v err=%v", ok, err)
	}

	if err := store.Set(ctx, "token-1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	token, ok, err := store.Get(ctx)
	if err != nil || !ok || token != "token-1" {
		t.Fatalf("expected token-1, got %q ok=%v err=%v", token, ok, err)
	}

	// Last write wins.
	if err := store.Set(ctx, "token-2"); err != nil {
		t.Fatalf("set again: %v", err)
	}
	token, _, _ = store.Get(ctx)
	if token != "token-2" {
		t.Fatalf("expected token-2, got %q", token)
	}

	if err := store.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok, _ := store.Get(ctx); ok {
		t.Fatalf("expected cleared store")
	}
}

func TestSubmissionLogFilters(t *testing.T) {
	ctx := context.Background()
	log := NewSubmissionLog()
	base := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

	subs := []domain.Submission{
		{ID: "sub-1", QuizID: "quiz-1", UserID: "s1", Score: 100, SubmittedAt: base},
		{ID: "sub-2", QuizID: "quiz-1", UserID: "s2", Score: 50, SubmittedAt: base.Add(time.Minute)},
		{ID: "sub-3", QuizID: "quiz-2", UserID: "s1", Score: 0, SubmittedAt: base.Add(2 * time.Minute)},
	}
	for _, sub := range subs {
		if err := log.Append(ctx, sub); err != nil {
			t.Fatalf("append %s: %v", sub.ID, err)
		}
	}

	byLearner, err := log.ListByLearner(ctx, "s1")
	if err != nil {
		t.Fatalf("list by learner: %v", err)
	}
	if len(byLearner) != 2 || byLearner[0].ID != "sub-1" || byLearner[1].ID != "sub-3" {
		t.Fatalf("expected [sub-1 sub-3], got %+v", byLearner)
	}

	byQuiz, err := log.ListByQuiz(ctx, "quiz-1")
	if err != nil {
		t.Fatalf("list by quiz: %v", err)
	}
	if len(byQuiz) != 2 {
		t.Fatalf("expected 2 submissions for quiz-1, got %d", len(byQuiz))
	}

	none, err := log.ListByQuiz(ctx, "quiz-404")
	if err != nil {
		t.Fatalf("list empty quiz: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no submissions, got %+v", none)
	}
}
