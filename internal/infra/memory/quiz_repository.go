package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"classquiz-service/internal/app"
	"classquiz-service/internal/domain"
)

// QuizRepository is the in-memory authoritative quiz store.
type QuizRepository struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewQuizRepository() *QuizRepository {
	return &QuizRepository{quizzes: make(map[string]domain.Quiz)}
}

func (r *QuizRepository) Get(_ context.Context, id string) (domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	quiz, ok := r.quizzes[id]
	if !ok {
		return domain.Quiz{}, domain.ErrNotFound
	}
	return cloneQuiz(quiz), nil
}

func (r *QuizRepository) Put(_ context.Context, quiz domain.Quiz) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.quizzes[quiz.ID] = cloneQuiz(quiz)
	return nil
}

func (r *QuizRepository) ListByAuthor(_ context.Context, authorID string) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(q domain.Quiz) bool { return q.AuthorID == authorID }), nil
}

func (r *QuizRepository) ListPublished(_ context.Context) ([]domain.Quiz, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.filterLocked(func(q domain.Quiz) bool { return q.Published }), nil
}

func (r *QuizRepository) filterLocked(keep func(domain.Quiz) bool) []domain.Quiz {
	out := make([]domain.Quiz, 0, len(r.quizzes))
	for _, quiz := range r.quizzes {
		if keep(quiz) {
			out = append(out, cloneQuiz(quiz))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func cloneQuiz(quiz domain.Quiz) domain.Quiz {
	quiz.Questions = append([]domain.Question(nil), quiz.Questions...)
	for i := range quiz.Questions {
		quiz.Questions[i].Options = append([]string(nil), quiz.Questions[i].Options...)
	}
	return quiz
}

// QuizCache caches quiz reads with TTL to keep the scoring path off the
// backing store. Concurrent misses for the same quiz collapse into one
// load via singleflight.
type QuizCache struct {
	loader app.QuizReader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedQuiz
}

type cachedQuiz struct {
	quiz      domain.Quiz
	expiresAt time.Time
}

func NewQuizCache(loader app.QuizReader, ttl time.Duration) *QuizCache {
	return &QuizCache{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		cache:  make(map[string]cachedQuiz),
	}
}

func (c *QuizCache) Get(ctx context.Context, quizID string) (domain.Quiz, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.quiz, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(quizID, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[quizID]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.quiz, nil
		}
		c.mu.RUnlock()

		quiz, err := c.loader.Get(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		c.mu.Lock()
		c.cache[quizID] = cachedQuiz{quiz: quiz, expiresAt: now.Add(c.ttlWithJitter())}
		c.mu.Unlock()
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate drops a cached quiz after an edit.
func (c *QuizCache) Invalidate(_ context.Context, quizID string) {
	c.mu.Lock()
	delete(c.cache, quizID)
	c.mu.Unlock()
}

func (c *QuizCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// up to 10% jitter to spread expirations
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
