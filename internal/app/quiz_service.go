package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"classquiz-service/internal/domain"
)

// QuizService owns quiz authoring and the derived lifecycle views.
type QuizService struct {
	quizzes    QuizRepository
	users      UserRepository
	invalidate QuizInvalidator
	clock      func() time.Time
	newID      func() string
}

func NewQuizService(quizzes QuizRepository, users UserRepository) *QuizService {
	return &QuizService{
		quizzes: quizzes,
		users:   users,
		clock:   time.Now,
		newID:   uuid.NewString,
	}
}

// WithClock is test-only for deterministic status derivation.
func (s *QuizService) WithClock(now func() time.Time) { s.clock = now }

// BindCache wires the quiz cache so edits evict the stale copy before
// any new attempt is scored against it.
func (s *QuizService) BindCache(inv QuizInvalidator) { s.invalidate = inv }

// QuestionInput carries authored question content. An empty ID gets a
// fresh one assigned; updates keep existing IDs so submissions stay
// linked to their questions.
type QuestionInput struct {
	ID            string              `json:"id"`
	Text          string              `json:"text"`
	Type          domain.QuestionType `json:"type"`
	Options       []string            `json:"options"`
	CorrectOption int                 `json:"correctOption"`
	ImageURL      string              `json:"imageUrl"`
}

type CreateQuizInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []QuestionInput `json:"questions"`
	ImageURL    string          `json:"imageUrl"`
}

// UpdateQuizInput replaces the editable fields wholesale, the way the
// editor submits them.
type UpdateQuizInput struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Questions   []QuestionInput `json:"questions"`
	Published   bool            `json:"published"`
	StartAt     *time.Time      `json:"startDate"`
	EndAt       *time.Time      `json:"endDate"`
	ImageURL    string          `json:"imageUrl"`
}

// QuizWithStatus annotates a quiz with its status at read time.
type QuizWithStatus struct {
	domain.Quiz
	Status domain.Status `json:"status"`
}

// Create stores a new draft quiz owned by the author.
func (s *QuizService) Create(ctx context.Context, authorID string, input CreateQuizInput) (domain.Quiz, error) {
	author, err := s.users.Get(ctx, authorID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if author.Role != domain.RoleTeacher {
		return domain.Quiz{}, domain.ErrPermissionDenied
	}

	questions, err := buildQuestions(input.Title, input.Questions, s.newID)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz := domain.Quiz{
		ID:          s.newID(),
		Title:       input.Title,
		Description: input.Description,
		AuthorID:    authorID,
		CreatedAt:   s.clock(),
		Questions:   questions,
		Published:   false,
		ImageURL:    input.ImageURL,
	}
	if err := s.quizzes.Put(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	return quiz, nil
}

// Update applies author-only edits, re-validating with the create rules
// plus the schedule check: a start after the end is rejected here so the
// malformed scheduled-and-ended state can never be written.
func (s *QuizService) Update(ctx context.Context, quizID, actorID string, input UpdateQuizInput) (domain.Quiz, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return domain.Quiz{}, err
	}
	if quiz.AuthorID != actorID {
		return domain.Quiz{}, domain.ErrPermissionDenied
	}
	if input.StartAt != nil && input.EndAt != nil && input.StartAt.After(*input.EndAt) {
		return domain.Quiz{}, fmt.Errorf("%w: end date must be after start date", domain.ErrValidation)
	}

	questions, err := buildQuestions(input.Title, input.Questions, s.newID)
	if err != nil {
		return domain.Quiz{}, err
	}

	quiz.Title = input.Title
	quiz.Description = input.Description
	quiz.Questions = questions
	quiz.Published = input.Published
	quiz.StartAt = input.StartAt
	quiz.EndAt = input.EndAt
	quiz.ImageURL = input.ImageURL
	if err := s.quizzes.Put(ctx, quiz); err != nil {
		return domain.Quiz{}, err
	}
	if s.invalidate != nil {
		s.invalidate.Invalidate(ctx, quiz.ID)
	}
	return quiz, nil
}

// GetByID returns the quiz annotated with its current status.
func (s *QuizService) GetByID(ctx context.Context, quizID string) (QuizWithStatus, error) {
	quiz, err := s.quizzes.Get(ctx, quizID)
	if err != nil {
		return QuizWithStatus{}, err
	}
	return s.withStatus(quiz), nil
}

// ListByAuthor returns the teacher's quizzes, drafts included.
func (s *QuizService) ListByAuthor(ctx context.Context, authorID string) ([]QuizWithStatus, error) {
	quizzes, err := s.quizzes.ListByAuthor(ctx, authorID)
	if err != nil {
		return nil, err
	}
	return s.annotate(quizzes), nil
}

// ListPublished returns every published quiz with its status.
func (s *QuizService) ListPublished(ctx context.Context) ([]QuizWithStatus, error) {
	quizzes, err := s.quizzes.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	return s.annotate(quizzes), nil
}

// ListActive filters published quizzes down to those currently open.
func (s *QuizService) ListActive(ctx context.Context) ([]QuizWithStatus, error) {
	published, err := s.ListPublished(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]QuizWithStatus, 0, len(published))
	for _, quiz := range published {
		if quiz.Status == domain.StatusActive {
			active = append(active, quiz)
		}
	}
	return active, nil
}

func (s *QuizService) withStatus(quiz domain.Quiz) QuizWithStatus {
	return QuizWithStatus{Quiz: quiz, Status: domain.StatusAt(quiz, s.clock())}
}

func (s *QuizService) annotate(quizzes []domain.Quiz) []QuizWithStatus {
	now := s.clock()
	out := make([]QuizWithStatus, 0, len(quizzes))
	for _, quiz := range quizzes {
		out = append(out, QuizWithStatus{Quiz: quiz, Status: domain.StatusAt(quiz, now)})
	}
	return out
}

func buildQuestions(title string, inputs []QuestionInput, newID func() string) ([]domain.Question, error) {
	if strings.TrimSpace(title) == "" {
		return nil, fmt.Errorf("%w: quiz title is required", domain.ErrValidation)
	}
	if len(inputs) == 0 {
		return nil, fmt.Errorf("%w: a quiz must have at least one question", domain.ErrValidation)
	}

	questions := make([]domain.Question, 0, len(inputs))
	for i, input := range inputs {
		if strings.TrimSpace(input.Text) == "" {
			return nil, fmt.Errorf("%w: question %d is empty", domain.ErrValidation, i+1)
		}
		qType := input.Type
		if qType == "" {
			qType = domain.QuestionMultipleChoice
		}
		if err := validateOptions(i, qType, input.Options, input.CorrectOption); err != nil {
			return nil, err
		}
		id := input.ID
		if id == "" {
			id = newID()
		}
		correct := input.CorrectOption
		if qType == domain.QuestionFillInBlank {
			correct = 0
		}
		questions = append(questions, domain.Question{
			ID:            id,
			Text:          input.Text,
			Type:          qType,
			Options:       append([]string(nil), input.Options...),
			CorrectOption: correct,
			ImageURL:      input.ImageURL,
		})
	}
	return questions, nil
}

func validateOptions(index int, qType domain.QuestionType, options []string, correct int) error {
	switch qType {
	case domain.QuestionFillInBlank:
		// The single option holds the accepted answer.
		if len(options) != 1 {
			return fmt.Errorf("%w: question %d must have exactly one answer", domain.ErrValidation, index+1)
		}
		if strings.TrimSpace(options[0]) == "" {
			return fmt.Errorf("%w: answer for question %d is empty", domain.ErrValidation, index+1)
		}
		return nil
	case domain.QuestionTrueFalse:
		if len(options) != 2 {
			return fmt.Errorf("%w: question %d must have exactly two options", domain.ErrValidation, index+1)
		}
	case domain.QuestionMultipleChoice:
		if len(options) < 2 {
			return fmt.Errorf("%w: question %d needs at least two options", domain.ErrValidation, index+1)
		}
	default:
		return fmt.Errorf("%w: question %d has unknown type %q", domain.ErrValidation, index+1, qType)
	}
	for j, option := range options {
		if strings.TrimSpace(option) == "" {
			return fmt.Errorf("%w: option %d in question %d is empty", domain.ErrValidation, j+1, index+1)
		}
	}
	if correct < 0 || correct >= len(options) {
		return fmt.Errorf("%w: correct option for question %d is out of range", domain.ErrValidation, index+1)
	}
	return nil
}
