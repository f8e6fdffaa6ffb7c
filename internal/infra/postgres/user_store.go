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

// UserStore persists user records as JSONB rows. The email lives in its
// own unique column so duplicate registration is also enforced by the
// database. Paired roster updates run in one transaction with both rows
// locked, keeping the back-references consistent across instances.
type UserStore struct {
	pool *pgxpool.Pool
}

func NewUserStore(pool *pgxpool.Pool) *UserStore {
	return &UserStore{pool: pool}
}

func (s *UserStore) Get(ctx context.Context, id string) (domain.StoredCredential, error) {
	return scanCredential(s.pool.QueryRow(ctx, `SELECT data FROM users WHERE id=$1`, id))
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (domain.StoredCredential, error) {
	return scanCredential(s.pool.QueryRow(ctx, `SELECT data FROM users WHERE lower(email)=lower($1)`, email))
}

func (s *UserStore) List(ctx context.Context) ([]domain.StoredCredential, error) {
	rows, err := s.pool.Query(ctx, `SELECT data FROM users`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var creds []domain.StoredCredential
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		var cred domain.StoredCredential
		if err := json.Unmarshal(raw, &cred); err != nil {
			return nil, fmt.Errorf("unmarshal user: %w", err)
		}
		creds = append(creds, cred)
	}
	return creds, rows.Err()
}

func (s *UserStore) Put(ctx context.Context, cred domain.StoredCredential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO users (id, email, data) VALUES ($1, $2, $3::jsonb)
		 ON CONFLICT (id) DO UPDATE SET email=EXCLUDED.email, data=EXCLUDED.data`,
		cred.ID, cred.Email, data)
	if err != nil {
		return fmt.Errorf("put user: %w", err)
	}
	return nil
}

func (s *UserStore) Update(ctx context.Context, id string, fn func(*domain.StoredCredential) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	cred, err := lockCredential(ctx, tx, id)
	if err != nil {
		return err
	}
	if err := fn(&cred); err != nil {
		return err
	}
	if err := writeCredential(ctx, tx, cred); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *UserStore) UpdatePair(ctx context.Context, firstID, secondID string, fn func(first, second *domain.StoredCredential) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock in a fixed order to avoid deadlocks between concurrent pairs.
	lockFirst, lockSecond := firstID, secondID
	if lockSecond < lockFirst {
		lockFirst, lockSecond = lockSecond, lockFirst
	}
	locked := make(map[string]domain.StoredCredential, 2)
	for _, id := range []string{lockFirst, lockSecond} {
		cred, err := lockCredential(ctx, tx, id)
		if err != nil {
			return err
		}
		locked[id] = cred
	}

	first := locked[firstID]
	second := locked[secondID]
	if err := fn(&first, &second); err != nil {
		return err
	}
	if err := writeCredential(ctx, tx, first); err != nil {
		return err
	}
	if err := writeCredential(ctx, tx, second); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func lockCredential(ctx context.Context, tx pgx.Tx, id string) (domain.StoredCredential, error) {
	return scanCredential(tx.QueryRow(ctx, `SELECT data FROM users WHERE id=$1 FOR UPDATE`, id))
}

func writeCredential(ctx context.Context, tx pgx.Tx, cred domain.StoredCredential) error {
	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = tx.Exec(ctx, `UPDATE users SET email=$2, data=$3::jsonb WHERE id=$1`, cred.ID, cred.Email, data)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func scanCredential(row pgx.Row) (domain.StoredCredential, error) {
	var raw []byte
	if err := row.Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.StoredCredential{}, domain.ErrNotFound
		}
		return domain.StoredCredential{}, fmt.Errorf("load user: %w", err)
	}
	var cred domain.StoredCredential
	if err := json.Unmarshal(raw, &cred); err != nil {
		return domain.StoredCredential{}, fmt.Errorf("unmarshal user: %w", err)
	}
	return cred, nil
}
