package requests

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/platform/db"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

// Repository defines payment request data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetRequest(ctx context.Context, id uuid.UUID) (PaymentRequest, error)
	ListRequests(ctx context.Context, filter ListFilter) ([]PaymentRequest, error)
}

// TxRepository groups the mutations that commit atomically.
type TxRepository interface {
	InsertRequest(ctx context.Context, pr PaymentRequest) error
	UpdateWorkflowState(ctx context.Context, id uuid.UUID, expectedVersion int64, state workflow.State, updatedAt time.Time) error
	LinkInvoice(ctx context.Context, id uuid.UUID, invoiceID uuid.UUID) error
	InsertDecision(ctx context.Context, dec Decision) error
	RecordAudit(ctx context.Context, entry audit.Entry) error
}

var (
	_ Repository   = (*pgRepository)(nil)
	_ TxRepository = (*pgTxRepository)(nil)
)

type pgRepository struct {
	pool     *pgxpool.Pool
	recorder *audit.Recorder
}

// NewRepository builds the pgx-backed repository.
func NewRepository(pool *pgxpool.Pool, recorder *audit.Recorder) Repository {
	return &pgRepository{pool: pool, recorder: recorder}
}

type pgTxRepository struct {
	tx       pgx.Tx
	recorder *audit.Recorder
}

func (r *pgRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &pgTxRepository{tx: tx, recorder: r.recorder})
	})
}

const requestColumns = `id, supplier_id, category_id, description, amount, status, current_step,
invoice_id, created_by, version, created_at, updated_at`

func (r *pgRepository) GetRequest(ctx context.Context, id uuid.UUID) (PaymentRequest, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+requestColumns+` FROM payment_requests WHERE id = $1`, id)
	pr, err := scanRequest(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return PaymentRequest{}, ErrRequestNotFound
		}
		return PaymentRequest{}, err
	}
	history, err := r.listDecisions(ctx, id)
	if err != nil {
		return PaymentRequest{}, err
	}
	pr.History = history
	return pr, nil
}

func (r *pgRepository) ListRequests(ctx context.Context, filter ListFilter) ([]PaymentRequest, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+requestColumns+` FROM payment_requests
WHERE ($1::text = '' OR status = $1)
  AND ($2::bigint = 0 OR created_by = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`, string(filter.Status), filter.CreatedBy, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentRequest
	for rows.Next() {
		pr, err := scanRequest(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}

func (r *pgRepository) listDecisions(ctx context.Context, requestID uuid.UUID) ([]Decision, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, request_id, step, action, actor_id, comment, decided_at
FROM payment_request_decisions WHERE request_id = $1 ORDER BY decided_at ASC, id ASC`, requestID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []Decision
	for rows.Next() {
		var dec Decision
		var step, action string
		if err := rows.Scan(&dec.ID, &dec.RequestID, &step, &action, &dec.ActorID, &dec.Comment, &dec.DecidedAt); err != nil {
			return nil, err
		}
		dec.Step = workflow.Step(step)
		dec.Action = workflow.Action(action)
		history = append(history, dec)
	}
	return history, rows.Err()
}

func (t *pgTxRepository) InsertRequest(ctx context.Context, pr PaymentRequest) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO payment_requests
(`+requestColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		pr.ID, pr.SupplierID, pr.CategoryID, pr.Description, pr.Amount,
		string(pr.Status), string(pr.CurrentStep), pr.InvoiceID,
		pr.CreatedBy, pr.Version, pr.CreatedAt, pr.UpdatedAt)
	return err
}

func (t *pgTxRepository) UpdateWorkflowState(ctx context.Context, id uuid.UUID, expectedVersion int64, state workflow.State, updatedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE payment_requests
SET status = $1, current_step = $2, version = version + 1, updated_at = $3
WHERE id = $4 AND version = $5`,
		string(state.Status), string(state.Step), updatedAt, id, expectedVersion)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConcurrentModification
	}
	return nil
}

func (t *pgTxRepository) LinkInvoice(ctx context.Context, id uuid.UUID, invoiceID uuid.UUID) error {
	_, err := t.tx.Exec(ctx, `UPDATE payment_requests SET invoice_id = $1 WHERE id = $2`, invoiceID, id)
	return err
}

func (t *pgTxRepository) InsertDecision(ctx context.Context, dec Decision) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO payment_request_decisions
(id, request_id, step, action, actor_id, comment, decided_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		dec.ID, dec.RequestID, string(dec.Step), string(dec.Action), dec.ActorID, dec.Comment, dec.DecidedAt)
	return err
}

func (t *pgTxRepository) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.RecordIn(ctx, t.tx, entry)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (PaymentRequest, error) {
	var pr PaymentRequest
	var status, step string
	var amount decimal.Decimal
	if err := row.Scan(&pr.ID, &pr.SupplierID, &pr.CategoryID, &pr.Description, &amount,
		&status, &step, &pr.InvoiceID, &pr.CreatedBy, &pr.Version, &pr.CreatedAt, &pr.UpdatedAt); err != nil {
		return PaymentRequest{}, err
	}
	pr.Amount = amount
	pr.Status = workflow.Status(status)
	pr.CurrentStep = workflow.Step(step)
	return pr, nil
}
