package invoices

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/platform/db"
	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

// ErrDuplicateNumber indicates an invoice number collision on insert.
var ErrDuplicateNumber = fmt.Errorf("%w invoice number", httpx.ErrDuplicate)

// Repository defines invoice data access.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error

	GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error)
	ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error)
}

// TxRepository defines the mutations that must happen atomically: invoice
// state, approval record and audit entry commit or roll back together.
type TxRepository interface {
	InsertInvoice(ctx context.Context, inv Invoice) error
	NextInvoiceNumber(ctx context.Context) (string, error)
	// UpdateWorkflowState applies the computed state with an optimistic
	// version check. Returns ErrConcurrentModification when the stored
	// version no longer matches expectedVersion.
	UpdateWorkflowState(ctx context.Context, id uuid.UUID, expectedVersion int64, state workflow.State, updatedAt time.Time) error
	InsertApproval(ctx context.Context, rec ApprovalRecord) error
	RecordAudit(ctx context.Context, entry audit.Entry) error
	// Querier exposes the underlying transaction so other domains can
	// enlist their own writes in the same commit.
	Querier() db.Execer
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

const invoiceColumns = `id, number, supplier_id, category_id, description, amount,
issue_date, service_date, due_date, status, current_step, created_by, version, created_at, updated_at`

func (r *pgRepository) GetInvoice(ctx context.Context, id uuid.UUID) (Invoice, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+invoiceColumns+` FROM invoices WHERE id = $1`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Invoice{}, ErrInvoiceNotFound
		}
		return Invoice{}, err
	}
	history, err := r.listApprovals(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	inv.History = history
	return inv, nil
}

func (r *pgRepository) ListInvoices(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `SELECT `+invoiceColumns+` FROM invoices
WHERE ($1::text = '' OR status = $1)
  AND ($2::bigint = 0 OR supplier_id = $2)
ORDER BY created_at DESC
LIMIT $3 OFFSET $4`, string(filter.Status), filter.SupplierID, limit, filter.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (r *pgRepository) listApprovals(ctx context.Context, invoiceID uuid.UUID) ([]ApprovalRecord, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, invoice_id, step, action, actor_id, comment, decided_at
FROM invoice_approvals WHERE invoice_id = $1 ORDER BY decided_at ASC, id ASC`, invoiceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var history []ApprovalRecord
	for rows.Next() {
		var rec ApprovalRecord
		var step, action string
		if err := rows.Scan(&rec.ID, &rec.InvoiceID, &step, &action, &rec.ActorID, &rec.Comment, &rec.DecidedAt); err != nil {
			return nil, err
		}
		rec.Step = workflow.Step(step)
		rec.Action = workflow.Action(action)
		history = append(history, rec)
	}
	return history, rows.Err()
}

func (t *pgTxRepository) InsertInvoice(ctx context.Context, inv Invoice) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO invoices
(`+invoiceColumns+`)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		inv.ID, inv.Number, inv.SupplierID, inv.CategoryID, inv.Description, inv.Amount,
		inv.IssueDate, inv.ServiceDate, inv.DueDate, string(inv.Status), string(inv.CurrentStep),
		inv.CreatedBy, inv.Version, inv.CreatedAt, inv.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("%w: %s", ErrDuplicateNumber, inv.Number)
		}
		return err
	}
	return nil
}

func (t *pgTxRepository) NextInvoiceNumber(ctx context.Context) (string, error) {
	var seq int64
	if err := t.tx.QueryRow(ctx, `SELECT nextval('invoice_number_seq')`).Scan(&seq); err != nil {
		return "", fmt.Errorf("invoices: next number: %w", err)
	}
	return fmt.Sprintf("FAT-%d-%06d", time.Now().Year(), seq), nil
}

func (t *pgTxRepository) UpdateWorkflowState(ctx context.Context, id uuid.UUID, expectedVersion int64, state workflow.State, updatedAt time.Time) error {
	tag, err := t.tx.Exec(ctx, `UPDATE invoices
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

func (t *pgTxRepository) InsertApproval(ctx context.Context, rec ApprovalRecord) error {
	_, err := t.tx.Exec(ctx, `INSERT INTO invoice_approvals
(id, invoice_id, step, action, actor_id, comment, decided_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.InvoiceID, string(rec.Step), string(rec.Action), rec.ActorID, rec.Comment, rec.DecidedAt)
	return err
}

func (t *pgTxRepository) RecordAudit(ctx context.Context, entry audit.Entry) error {
	return t.recorder.RecordIn(ctx, t.tx, entry)
}

func (t *pgTxRepository) Querier() db.Execer {
	return t.tx
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvoice(row rowScanner) (Invoice, error) {
	var inv Invoice
	var status, step string
	var amount decimal.Decimal
	if err := row.Scan(&inv.ID, &inv.Number, &inv.SupplierID, &inv.CategoryID, &inv.Description, &amount,
		&inv.IssueDate, &inv.ServiceDate, &inv.DueDate, &status, &step,
		&inv.CreatedBy, &inv.Version, &inv.CreatedAt, &inv.UpdatedAt); err != nil {
		return Invoice{}, err
	}
	inv.Amount = amount
	inv.Status = workflow.Status(status)
	inv.CurrentStep = workflow.Step(step)
	return inv, nil
}
