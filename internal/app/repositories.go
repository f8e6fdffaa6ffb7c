package app

import (
	"context"
	"time"

	"classquiz-service/internal/domain"
)

// UserRepository abstracts how user records are stored (in-memory, Postgres).
// Mutations go through Update/UpdatePair so implementations can serialize
// writes; UpdatePair must apply both changes atomically or neither.
type UserRepository interface {
	Get(ctx context.Context, id string) (domain.StoredCredential, error)
	FindByEmail(ctx context.Context, email string) (domain.StoredCredential, error)
	List(ctx context.Context) ([]domain.StoredCredential, error)
	Put(ctx context.Context, cred domain.StoredCredential) error
	Update(ctx context.Context, id string, fn func(*domain.StoredCredential) error) error
	UpdatePair(ctx context.Context, firstID, secondID string, fn func(first, second *domain.StoredCredential) error) error
}

// QuizReader is the read side of quiz storage; caches implement it too.
type QuizReader interface {
	Get(ctx context.Context, id string) (domain.Quiz, error)
}

// QuizInvalidator drops a cached quiz after the authoritative copy
// changed. Both quiz caches implement it.
type QuizInvalidator interface {
	Invalidate(ctx context.Context, quizID string)
}

// QuizRepository is the authoritative quiz store.
type QuizRepository interface {
	QuizReader
	Put(ctx context.Context, quiz domain.Quiz) error
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Quiz, error)
	ListPublished(ctx context.Context) ([]domain.Quiz, error)
}

// SubmissionLog is an append-only store of scored attempts.
type SubmissionLog interface {
	Append(ctx context.Context, sub domain.Submission) error
	ListByLearner(ctx context.Context, userID string) ([]domain.Submission, error)
	ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error)
}

// SessionStore is a durable key->string mapping holding the persisted
// session token under a fixed key, so a session survives process restarts.
type SessionStore interface {
	Set(ctx context.Context, token string) error
	Get(ctx context.Context) (string, bool, error)
	Clear(ctx context.Context) error
}

// LivenessStore marks users as recently seen with a TTL. Optional; a nil
// store disables the markers.
type LivenessStore interface {
	Mark(ctx context.Context, userID string, ttl time.Duration) error
}

// ProviderIdentity is the role-bearing result of a delegated auth call.
type ProviderIdentity struct {
	ID    string
	Name  string
	Email string
	Role  domain.Role
}

// IdentityProvider is the optional external auth collaborator. Its errors
// are surfaced to callers unchanged, wrapped as *domain.ProviderError.
type IdentityProvider interface {
	SignIn(ctx context.Context, email, password string) (ProviderIdentity, error)
	SignUp(ctx context.Context, name, email, password string, role domain.Role) (ProviderIdentity, error)
	SignOut(ctx context.Context) error
}
