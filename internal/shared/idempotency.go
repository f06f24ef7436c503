package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
)

// ErrIdempotencyConflict indicates a submission token was already consumed.
var ErrIdempotencyConflict = fmt.Errorf("%w: request already processed", httpx.ErrConflict)

// IdempotencyStore persists consumed submission tokens. Approval decisions are
// not idempotent by themselves, so callers supply a token per user action and
// the store guarantees at-most-once processing.
type IdempotencyStore struct {
	pool *pgxpool.Pool
}

// NewIdempotencyStore constructs the store.
func NewIdempotencyStore(pool *pgxpool.Pool) *IdempotencyStore {
	return &IdempotencyStore{pool: pool}
}

// CheckAndInsert ensures token uniqueness per module.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, token, module string) error {
	if s == nil {
		return errors.New("idempotency store not initialised")
	}
	if token == "" {
		return errors.New("idempotency token required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	_, err := s.pool.Exec(ctx, `INSERT INTO idempotency_keys (key, module, created_at) VALUES ($1, $2, $3)`, token, module, time.Now())
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrIdempotencyConflict
		}
		return err
	}
	return nil
}

// Delete removes a token, used to roll back when processing failed after the
// token was consumed.
func (s *IdempotencyStore) Delete(ctx context.Context, token string) error {
	if s == nil {
		return nil
	}
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE key = $1`, token)
	return err
}

// Cleanup removes tokens older than the retention window.
func (s *IdempotencyStore) Cleanup(ctx context.Context, olderThan time.Duration) error {
	if s == nil {
		return nil
	}
	cutoff := time.Now().Add(-olderThan)
	_, err := s.pool.Exec(ctx, `DELETE FROM idempotency_keys WHERE created_at < $1`, cutoff)
	return err
}
