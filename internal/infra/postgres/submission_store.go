package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"classquiz-service/internal/domain"
)

// SubmissionStore is the append-only attempt log on Postgres. Rows are
// only ever inserted; there is no update or delete path.
type SubmissionStore struct {
	pool *pgxpool.Pool
}

func NewSubmissionStore(pool *pgxpool.Pool) *SubmissionStore {
	return &SubmissionStore{pool: pool}
}

func (s *SubmissionStore) Append(ctx context.Context, sub domain.Submission) error {
	data, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("marshal submission: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO submissions (id, quiz_id, user_id, data) VALUES ($1, $2, $3, $4::jsonb)`,
		sub.ID, sub.QuizID, sub.UserID, data)
	if err != nil {
		return fmt.Errorf("append submission: %w", err)
	}
	return nil
}

func (s *SubmissionStore) ListByLearner(ctx context.Context, userID string) ([]domain.Submission, error) {
	return s.list(ctx, `SELECT data FROM submissions WHERE user_id=$1 ORDER BY data->>'submittedAt'`, userID)
}

func (s *SubmissionStore) ListByQuiz(ctx context.Context, quizID string) ([]domain.Submission, error) {
	return s.list(ctx, `SELECT data FROM submissions WHERE quiz_id=$1 ORDER BY data->>'submittedAt'`, quizID)
}

func (s *SubmissionStore) list(ctx context.Context, query string, args ...interface{}) ([]domain.Submission, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	defer rows.Close()

	subs := make([]domain.Submission, 0)
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		var sub domain.Submission
		if err := json.Unmarshal(raw, &sub); err != nil {
			return nil, fmt.Errorf("unmarshal submission: %w", err)
		}
		subs = append(subs, sub)
	}
	return subs, rows.Err()
}
