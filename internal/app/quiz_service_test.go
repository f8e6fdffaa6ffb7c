package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
	"classquiz-service/internal/infra/memory"
)

func newQuizFixture(t *testing.T, now time.Time) (*app.QuizService, *memory.QuizRepository) {
	t.Helper()
	ctx := context.Background()
	users := memory.NewUserRepository()
	seed := []domain.StoredCredential{
		{ID: "t1", Name: "Teacher Smith", Email: "smith@example.com", Role: domain.RoleTeacher, LastActive: now},
		{ID: "t2", Name: "Teacher Brown", Email: "brown@example.com", Role: domain.RoleTeacher, LastActive: now},
		{ID: "s1", Name: "Student Jones", Email: "jones@example.com", Role: domain.RoleStudent, LastActive: now},
	}
	for _, cred := range seed {
		if err := users.Put(ctx, cred); err != nil {
			t.Fatalf("seed %s: %v", cred.ID, err)
		}
	}
	quizzes := memory.NewQuizRepository()
	service := app.NewQuizService(quizzes, users)
	service.WithClock(func() time.Time { return now })
	return service, quizzes
}

func validQuestions() []app.QuestionInput {
	return []app.QuestionInput{
		{Text: "What is 2 + 2?", Type: domain.QuestionMultipleChoice, Options: []string{"3", "4"}, CorrectOption: 1},
		{Text: "The sky is green.", Type: domain.QuestionTrueFalse, Options: []string{"True", "False"}, CorrectOption: 1},
		{Text: "Capital of France?", Type: domain.QuestionFillInBlank, Options: []string{"Paris"}},
	}
}

func TestCreateDraftQuiz(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	service, _ := newQuizFixture(t, now)

	quiz, err := service.Create(ctx, "t1", app.CreateQuizInput{
		Title: "Basics", Description: "warm-up", Questions: validQuestions(),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if quiz.Published {
		t.Fatalf("expected new quiz to be a draft")
	}
	if !quiz.CreatedAt.Equal(now) {
		t.Fatalf("expected createdAt %v, got %v", now, quiz.CreatedAt)
	}
	if len(quiz.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(quiz.Questions))
	}
	for i, q := range quiz.Questions {
		if q.ID == "" {
			t.Fatalf("question %d missing id", i)
		}
	}

	got, err := service.GetByID(ctx, quiz.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != domain.StatusDraft {
		t.Fatalf("expected draft status, got %s", got.Status)
	}
}

func TestCreateRequiresTeacher(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizFixture(t, time.Now())

	if _, err := service.Create(ctx, "s1", app.CreateQuizInput{Title: "x", Questions: validQuestions()}); !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestCreateValidation(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizFixture(t, time.Now())

	cases := []struct {
		name  string
		input app.CreateQuizInput
	}{
		{"empty title", app.CreateQuizInput{Title: "  ", Questions: validQuestions()}},
		{"no questions", app.CreateQuizInput{Title: "x"}},
		{"empty question text", app.CreateQuizInput{Title: "x", Questions: []app.QuestionInput{
			{Text: " ", Type: domain.QuestionMultipleChoice, Options: []string{"a", "b"}},
		}}},
		{"empty option", app.CreateQuizInput{Title: "x", Questions: []app.QuestionInput{
			{Text: "q", Type: domain.QuestionMultipleChoice, Options: []string{"a", ""}},
		}}},
		{"single choice option", app.CreateQuizInput{Title: "x", Questions: []app.QuestionInput{
			{Text: "q", Type: domain.QuestionMultipleChoice, Options: []string{"a"}},
		}}},
		{"true-false needs two options", app.CreateQuizInput{Title: "x", Questions: []app.QuestionInput{
			{Text: "q", Type: domain.QuestionTrueFalse, Options: []string{"True", "False", "Maybe"}},
		}}},
		{"fill-in-blank needs one answer", app.CreateQuizInput{Title: "x", Questions: []app.QuestionInput{
			{Text: "q", Type: domain.QuestionFillInBlank, Options: []string{"a", "b"}},
		}}},
		{"fill-in-blank empty answer", app.CreateQuizInput{Title: "x", Questions: []app.QuestionInput{
			{Text: "q", Type: domain.QuestionFillInBlank, Options: []string{"  "}},
		}}},
		{"correct option out of range", app.CreateQuizInput{Title: "x", Questions: []app.QuestionInput{
			{Text: "q", Type: domain.QuestionMultipleChoice, Options: []string{"a", "b"}, CorrectOption: 5},
		}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Create(ctx, "t1", tc.input); !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUpdateIsAuthorOnly(t *testing.T) {
	ctx := context.Background()
	service, _ := newQuizFixture(t, time.Now())

	quiz, err := service.Create(ctx, "t1", app.CreateQuizInput{Title: "x", Questions: validQuestions()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err = service.Update(ctx, quiz.ID, "t2", app.UpdateQuizInput{Title: "hijacked", Questions: validQuestions()})
	if !errors.Is(err, domain.ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}

	if _, err := service.Update(ctx, "missing", "t1", app.UpdateQuizInput{Title: "x", Questions: validQuestions()}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateRejectsStartAfterEnd(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	service, _ := newQuizFixture(t, now)

	quiz, err := service.Create(ctx, "t1", app.CreateQuizInput{Title: "x", Questions: validQuestions()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	start := now.Add(48 * time.Hour)
	end := now.Add(24 * time.Hour)
	_, err = service.Update(ctx, quiz.ID, "t1", app.UpdateQuizInput{
		Title: "x", Questions: validQuestions(), Published: true, StartAt: &start, EndAt: &end,
	})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for start after end, got %v", err)
	}
}

func TestUpdatePublishAndKeepQuestionIDs(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	service, _ := newQuizFixture(t, now)

	quiz, err := service.Create(ctx, "t1", app.CreateQuizInput{Title: "x", Questions: validQuestions()})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	inputs := make([]app.QuestionInput, 0, len(quiz.Questions))
	for _, q := range quiz.Questions {
		inputs = append(inputs, app.QuestionInput{
			ID: q.ID, Text: q.Text, Type: q.Type, Options: q.Options, CorrectOption: q.CorrectOption,
		})
	}
	updated, err := service.Update(ctx, quiz.ID, "t1", app.UpdateQuizInput{
		Title: "x", Questions: inputs, Published: true,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !updated.Published {
		t.Fatalf("expected published quiz")
	}
	for i, q := range updated.Questions {
		if q.ID != quiz.Questions[i].ID {
			t.Fatalf("question %d id changed: %s vs %s", i, q.ID, quiz.Questions[i].ID)
		}
	}
}

func TestListsAndActiveFilter(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)
	service, _ := newQuizFixture(t, now)

	draft, err := service.Create(ctx, "t1", app.CreateQuizInput{Title: "draft", Questions: validQuestions()})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	publish := func(title string, start, end *time.Time) domain.Quiz {
		quiz, err := service.Create(ctx, "t1", app.CreateQuizInput{Title: title, Questions: validQuestions()})
		if err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
		updated, err := service.Update(ctx, quiz.ID, "t1", app.UpdateQuizInput{
			Title: title, Questions: validQuestions(), Published: true, StartAt: start, EndAt: end,
		})
		if err != nil {
			t.Fatalf("publish %s: %v", title, err)
		}
		return updated
	}

	past := now.Add(-24 * time.Hour)
	future := now.Add(24 * time.Hour)
	open := publish("open", nil, nil)
	publish("scheduled", &future, nil)
	publish("ended", &past, &past)

	byAuthor, err := service.ListByAuthor(ctx, "t1")
	if err != nil {
		t.Fatalf("list by author: %v", err)
	}
	if len(byAuthor) != 4 {
		t.Fatalf("expected 4 quizzes for author, got %d", len(byAuthor))
	}

	published, err := service.ListPublished(ctx)
	if err != nil {
		t.Fatalf("list published: %v", err)
	}
	if len(published) != 3 {
		t.Fatalf("expected 3 published, got %d", len(published))
	}
	for _, quiz := range published {
		if quiz.ID == draft.ID {
			t.Fatalf("draft leaked into published list")
		}
	}

	active, err := service.ListActive(ctx)
	if err != nil {
		t.Fatalf("list active: %v", err)
	}
	if len(active) != 1 || active[0].ID != open.ID {
		t.Fatalf("expected only %q active, got %+v", open.Title, active)
	}

	// Empty lookups return empty results, not errors.
	none, err := service.ListByAuthor(ctx, "t2")
	if err != nil {
		t.Fatalf("list for t2: %v", err)
	}
	if len(none) != 0 {
		t.Fatalf("expected no quizzes for t2, got %d", len(none))
	}
}
