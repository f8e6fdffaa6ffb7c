package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"classquiz-service/internal/domain"
)

// QuizStore persists quizzes as JSONB rows with the author and published
// flag broken out into columns for the two list queries.
type QuizStore struct {
	pool *pgxpool.Pool
}

func NewQuizStore(pool *pgxpool.Pool) *QuizStore {
	return &QuizStore{pool: pool}
}

func (s *QuizStore) Get(ctx context.Context, id string) (domain.Quiz, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, id).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Quiz{}, domain.ErrNotFound
		}
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal quiz: %w", err)
	}
	return quiz, nil
}

func (s *QuizStore) Put(ctx context.Context, quiz domain.Quiz) error {
	data, err := json.Marshal(quiz)
	if err != nil {
		return fmt.Errorf("marshal quiz: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO quizzes (id, author_id, published, data) VALUES ($1, $2, $3, $4::jsonb)
		 ON CONFLICT (id) DO UPDATE SET author_id=EXCLUDED.author_id, published=EXCLUDED.published, data=EXCLUDED.data`,
		quiz.ID, quiz.AuthorID, quiz.Published, data)
	if err != nil {
		return fmt.Errorf("put quiz: %w", err)
	}
	return nil
}

func (s *QuizStore) ListByAuthor(ctx context.Context, authorID string) ([]domain.Quiz, error) {
	return s.list(ctx, `SELECT data FROM quizzes WHERE author_id=$1 ORDER BY data->>'createdAt'`, authorID)
}

func (s *QuizStore) ListPublished(ctx context.Context) ([]domain.Quiz, error) {
	return s.list(ctx, `SELECT data FROM quizzes WHERE published ORDER BY data->>'createdAt'`)
}

func (s *QuizStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Quiz, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list quizzes: %w", err)
	}
	defer rows.Close()

	quizzes := make([]domain.Quiz, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan quiz: %w", err)
		}
		var quiz domain.Quiz
		if err := json.Unmarshal(raw, &quiz); err != nil {
			return nil, fmt.Errorf("unmarshal quiz: %w", err)
		}
		quizzes = append(quizzes, quiz)
	}
	return quizzes, rows.Err()
}
