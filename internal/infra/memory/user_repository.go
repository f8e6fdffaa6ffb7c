package memory

import (
	"context"
	"strings"
	"sync"

	"classquiz-service/internal/domain"
)

// UserRepository keeps user records in a map behind one mutex, so paired
// roster updates are atomic by construction.
type UserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.StoredCredential
}

func NewUserRepository() *UserRepository {
	return &UserRepository{users: make(map[string]domain.StoredCredential)}
}

func (r *UserRepository) Get(_ context.Context, id string) (domain.StoredCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cred, ok := r.users[id]
	if !ok {
		return domain.StoredCredential{}, domain.ErrNotFound
	}
	return cloneCredential(cred), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (domain.StoredCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cred := range r.users {
		if strings.EqualFold(cred.Email, email) {
			return cloneCredential(cred), nil
		}
	}
	return domain.StoredCredential{}, domain.ErrNotFound
}

func (r *UserRepository) List(_ context.Context) ([]domain.StoredCredential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.StoredCredential, 0, len(r.users))
	for _, cred := range r.users {
		out = append(out, cloneCredential(cred))
	}
	return out, nil
}

func (r *UserRepository) Put(_ context.Context, cred domain.StoredCredential) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users[cred.ID] = cloneCredential(cred)
	return nil
}

func (r *UserRepository) Update(_ context.Context, id string, fn func(*domain.StoredCredential) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cred, ok := r.users[id]
	if !ok {
		return domain.ErrNotFound
	}
	updated := cloneCredential(cred)
	if err := fn(&updated); err != nil {
		return err
	}
	r.users[id] = updated
	return nil
}

// UpdatePair mutates two records under the same lock; if fn fails,
// neither record changes.
func (r *UserRepository) UpdatePair(_ context.Context, firstID, secondID string, fn func(first, second *domain.StoredCredential) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	first, ok := r.users[firstID]
	if !ok {
		return domain.ErrNotFound
	}
	second, ok := r.users[secondID]
	if !ok {
		return domain.ErrNotFound
	}
	updatedFirst := cloneCredential(first)
	updatedSecond := cloneCredential(second)
	if err := fn(&updatedFirst, &updatedSecond); err != nil {
		return err
	}
	r.users[firstID] = updatedFirst
	r.users[secondID] = updatedSecond
	return nil
}

func cloneCredential(cred domain.StoredCredential) domain.StoredCredential {
	cred.StudentIDs = append([]string(nil), cred.StudentIDs...)
	cred.ClassroomIDs = append([]string(nil), cred.ClassroomIDs...)
	return cred
}
