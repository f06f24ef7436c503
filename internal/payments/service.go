package payments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/platform/db"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

const (
	auditPaymentExecuted = "payment.executed"
	auditEntityPayment   = "payment"
)

// InvoiceWorkflow is the slice of the invoices service a payment execution
// needs: load the invoice and drive its Finance approval step with the
// payment insert enlisted in the decision transaction.
type InvoiceWorkflow interface {
	Get(ctx context.Context, id uuid.UUID) (invoices.Invoice, error)
	SubmitDecisionWith(ctx context.Context, input invoices.DecisionInput, extra func(context.Context, db.Execer) error) (invoices.Invoice, error)
}

// Service records payment executions.
type Service struct {
	repo     Repository
	invoices InvoiceWorkflow
	recorder *audit.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the payment service.
func NewService(repo Repository, invoiceWorkflow InvoiceWorkflow, recorder *audit.Recorder, logger *slog.Logger) *Service {
	return &Service{repo: repo, invoices: invoiceWorkflow, recorder: recorder, logger: logger, now: time.Now}
}

// Execute pays an invoice sitting in the finance queue. The Finance approval
// transition runs first with its own atomicity and concurrency guarantees;
// the payment row records the execution with its bank reference. Only the
// Finance role (or Admin) passes the step gate.
func (s *Service) Execute(ctx context.Context, input ExecuteInput, role rbac.Role) (Payment, invoices.Invoice, error) {
	inv, err := s.invoices.Get(ctx, input.InvoiceID)
	if err != nil {
		return Payment{}, invoices.Invoice{}, err
	}
	if inv.Status != invoices.StatusPendingPayment {
		return Payment{}, invoices.Invoice{}, fmt.Errorf("%w: status %s", ErrNotPayable, inv.Status)
	}

	comment := "pagamento " + string(input.Method)
	if input.Reference != "" {
		comment += " ref " + input.Reference
	}

	now := s.now()
	p := Payment{
		ID:        uuid.New(),
		InvoiceID: inv.ID,
		Amount:    inv.Amount,
		Method:    input.Method,
		Reference: input.Reference,
		Note:      input.Note,
		PaidAt:    now,
		CreatedBy: input.ActorID,
		CreatedAt: now,
	}
	// The payment row rides the decision transaction: if it cannot be
	// written, the invoice never reaches Paid.
	updated, err := s.invoices.SubmitDecisionWith(ctx, invoices.DecisionInput{
		InvoiceID: input.InvoiceID,
		Action:    workflow.ActionApprove,
		RawAction: "aprovado",
		ActorID:   input.ActorID,
		ActorRole: role,
		Comment:   comment,
	}, func(ctx context.Context, q db.Execer) error {
		return s.repo.InsertPaymentIn(ctx, q, p)
	})
	if err != nil {
		return Payment{}, invoices.Invoice{}, err
	}

	if err := s.recorder.Record(ctx, audit.Entry{
		ActorID:  input.ActorID,
		Action:   auditPaymentExecuted,
		Entity:   auditEntityPayment,
		EntityID: p.ID.String(),
		Meta: map[string]any{
			"invoiceId": inv.ID.String(),
			"amount":    p.Amount.String(),
			"method":    string(p.Method),
			"reference": p.Reference,
		},
		At: now,
	}); err != nil && s.logger != nil {
		s.logger.Warn("audit payment execution", slog.Any("error", err))
	}

	return p, updated, nil
}

// List returns executed payments matching the filter, newest first.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Payment, error) {
	return s.repo.ListPayments(ctx, filter)
}
