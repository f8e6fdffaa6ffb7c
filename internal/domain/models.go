package domain

import "time"

// Role distinguishes quiz authors from quiz takers.
type Role string

const (
	RoleTeacher Role = "teacher"
	RoleStudent Role = "student"
)

// QuestionType selects the option rules a question is validated against.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple-choice"
	QuestionTrueFalse      QuestionType = "true-false"
	QuestionFillInBlank    QuestionType = "fill-in-blank"
)

// StoredCredential is the full user record including the password hash.
// It never crosses the app boundary; callers get a PublicProfile instead.
type StoredCredential struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	LastActive   time.Time `json:"lastActive"`
	StudentIDs   []string  `json:"studentIds,omitempty"`   // teachers: roster members
	ClassroomIDs []string  `json:"classroomIds,omitempty"` // students: enrolled classrooms
}

// PublicProfile is the secret-free view of a user.
type PublicProfile struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	Active       bool      `json:"active"`
	LastActive   time.Time `json:"lastActive"`
	StudentIDs   []string  `json:"studentIds,omitempty"`
	ClassroomIDs []string  `json:"classroomIds,omitempty"`
}

// Profile is the single projection from stored record to public view.
func (c StoredCredential) Profile() PublicProfile {
	return PublicProfile{
		ID:           c.ID,
		Name:         c.Name,
		Email:        c.Email,
		Role:         c.Role,
		Active:       c.Active,
		LastActive:   c.LastActive,
		StudentIDs:   append([]string(nil), c.StudentIDs...),
		ClassroomIDs: append([]string(nil), c.ClassroomIDs...),
	}
}

// Question belongs to exactly one quiz. For fill-in-blank questions the
// single option holds the accepted answer and CorrectOption is 0.
type Question struct {
	ID            string       `json:"id"`
	Text          string       `json:"text"`
	Type          QuestionType `json:"type"`
	Options       []string     `json:"options"`
	CorrectOption int          `json:"correctOption"`
	ImageURL      string       `json:"imageUrl,omitempty"`
}

// Quiz is an authored assessment owned by a teacher. StartAt/EndAt, when
// set, bound the window in which a published quiz counts as active.
type Quiz struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	AuthorID    string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	Questions   []Question `json:"questions"`
	Published   bool       `json:"published"`
	StartAt     *time.Time `json:"startDate,omitempty"`
	EndAt       *time.Time `json:"endDate,omitempty"`
	ImageURL    string     `json:"imageUrl,omitempty"`
}

// Submission is one learner's scored attempt; immutable once recorded.
type Submission struct {
	ID          string         `json:"id"`
	QuizID      string         `json:"quizId"`
	UserID      string         `json:"userId"`
	Answers     map[string]int `json:"answers"`
	Score       float64        `json:"score"`
	SubmittedAt time.Time      `json:"submittedAt"`
}
