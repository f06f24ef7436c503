package payments

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/platform/db"
)

// Repository defines payment data access.
type Repository interface {
	// InsertPaymentIn writes the payment through q, which is the invoice
	// decision transaction during Execute. A nil q targets the pool.
	InsertPaymentIn(ctx context.Context, q db.Execer, p Payment) error
	ListPayments(ctx context.Context, filter ListFilter) ([]Payment, error)
}

var _ Repository = (*pgRepository)(nil)

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository builds the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) InsertPaymentIn(ctx context.Context, q db.Execer, p Payment) error {
	if q == nil {
		q = r.pool
	}
	_, err := q.Exec(ctx, `INSERT INTO payments
(id, invoice_id, amount, method, reference, note, paid_at, created_by, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.InvoiceID, p.Amount, string(p.Method), p.Reference, p.Note, p.PaidAt, p.CreatedBy, p.CreatedAt)
	return err
}

func (r *pgRepository) ListPayments(ctx context.Context, filter ListFilter) ([]Payment, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, amount, method, reference, note, paid_at, created_by, created_at
FROM payments
WHERE ($1::uuid IS NULL OR invoice_id = $1)
  AND ($2::timestamptz IS NULL OR paid_at >= $2)
  AND ($3::timestamptz IS NULL OR paid_at <= $3)
ORDER BY paid_at DESC
LIMIT $4 OFFSET $5`,
		nullableUUID(filter.InvoiceID), nullableTime(filter.From), nullableTime(filter.To), limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Payment
	for rows.Next() {
		var p Payment
		var method string
		var amount decimal.Decimal
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &method, &p.Reference, &p.Note, &p.PaidAt, &p.CreatedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Amount = amount
		p.Method = Method(method)
		out = append(out, p)
	}
	return out, rows.Err()
}

func nullableUUID(id uuid.UUID) *uuid.UUID {
	if id == uuid.Nil {
		return nil
	}
	return &id
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
