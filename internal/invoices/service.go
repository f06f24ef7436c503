package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/platform/db"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

// Audit action names emitted by this service.
const (
	auditInvoiceCreated   = "invoice.created"
	auditInvoiceDecision  = "invoice.decision"
	auditInvoiceCancelled = "invoice.cancelled"
	auditEntityInvoice    = "invoice"
)

// Invalidator signals report consumers that the invoice set changed.
// Implemented by the reports service; called synchronously after every commit.
type Invalidator interface {
	Invalidate(ctx context.Context) error
}

// Service orchestrates invoice lifecycle operations.
type Service struct {
	repo        Repository
	invalidator Invalidator
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the invoice service.
func NewService(repo Repository, invalidator Invalidator, logger *slog.Logger) *Service {
	return &Service{repo: repo, invalidator: invalidator, logger: logger, now: time.Now}
}

// Create registers a new invoice at the start of the approval chain. The
// number is generated from a dedicated sequence inside the same transaction
// as the insert, so it is unique per creation.
func (s *Service) Create(ctx context.Context, input CreateInvoiceInput) (Invoice, error) {
	if err := validateCreate(input); err != nil {
		return Invoice{}, err
	}

	initial := Chain.Initial()
	now := s.now()
	inv := Invoice{
		ID:          uuid.New(),
		SupplierID:  input.SupplierID,
		CategoryID:  input.CategoryID,
		Description: input.Description,
		Amount:      input.Amount,
		IssueDate:   input.IssueDate,
		ServiceDate: input.ServiceDate,
		DueDate:     input.DueDate,
		Status:      initial.Status,
		CurrentStep: initial.Step,
		CreatedBy:   input.RegisteredBy,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextInvoiceNumber(ctx)
		if err != nil {
			return err
		}
		inv.Number = number
		if err := tx.InsertInvoice(ctx, inv); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:  input.RegisteredBy,
			Action:   auditInvoiceCreated,
			Entity:   auditEntityInvoice,
			EntityID: inv.ID.String(),
			Meta: map[string]any{
				"number": inv.Number,
				"amount": inv.Amount.String(),
				"status": string(inv.Status),
			},
			At: now,
		})
	})
	if err != nil {
		return Invoice{}, err
	}

	s.bump(ctx)
	return inv, nil
}

// SubmitDecision applies one approve/reject decision to the invoice. The
// role gate is evaluated before the transition is computed; on success
// exactly one approval record is appended and the audit entry commits with
// the state change. The call itself is not idempotent; callers dedupe via
// submission tokens.
func (s *Service) SubmitDecision(ctx context.Context, input DecisionInput) (Invoice, error) {
	return s.SubmitDecisionWith(ctx, input, nil)
}

// SubmitDecisionWith is SubmitDecision with an extra write enlisted in the
// same transaction. The payments service uses it so an invoice never reaches
// Paid without its payment row committing alongside.
func (s *Service) SubmitDecisionWith(ctx context.Context, input DecisionInput, extra func(context.Context, db.Execer) error) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, input.InvoiceID)
	if err != nil {
		return Invoice{}, err
	}

	next, err := Chain.Decide(inv.State(), input.Action, input.ActorRole)
	if err != nil {
		return Invoice{}, err
	}

	now := s.now()
	rec := ApprovalRecord{
		ID:        uuid.New(),
		InvoiceID: inv.ID,
		Step:      inv.CurrentStep,
		Action:    input.Action,
		ActorID:   input.ActorID,
		Comment:   input.Comment,
		DecidedAt: now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if extra != nil {
			if err := extra(ctx, tx.Querier()); err != nil {
				return err
			}
		}
		if err := tx.UpdateWorkflowState(ctx, inv.ID, inv.Version, next, now); err != nil {
			return err
		}
		if err := tx.InsertApproval(ctx, rec); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:  input.ActorID,
			Action:   auditInvoiceDecision,
			Entity:   auditEntityInvoice,
			EntityID: inv.ID.String(),
			Meta: map[string]any{
				"approvalId": rec.ID.String(),
				"action":     input.RawAction,
				"oldStatus":  string(inv.Status),
				"newStatus":  string(next.Status),
				"oldStep":    string(inv.CurrentStep),
				"newStep":    string(next.Step),
			},
			At: now,
		})
	})
	if err != nil {
		return Invoice{}, err
	}

	s.bump(ctx)

	inv.Status = next.Status
	inv.CurrentStep = next.Step
	inv.Version++
	inv.UpdatedAt = now
	inv.History = append(inv.History, rec)
	return inv, nil
}

// Cancel moves a non-terminal invoice to the cancelled side exit. Only the
// creator or an Admin may cancel; cancellation is a terminal status, never a
// row removal.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID int64, role rbac.Role) (Invoice, error) {
	inv, err := s.repo.GetInvoice(ctx, id)
	if err != nil {
		return Invoice{}, err
	}
	if !role.IsAdmin() && inv.CreatedBy != actorID {
		return Invoice{}, fmt.Errorf("%w: only the creator or an admin may cancel", workflow.ErrUnauthorized)
	}

	next, err := Chain.Cancel(inv.State())
	if err != nil {
		return Invoice{}, err
	}

	now := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateWorkflowState(ctx, inv.ID, inv.Version, next, now); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:  actorID,
			Action:   auditInvoiceCancelled,
			Entity:   auditEntityInvoice,
			EntityID: inv.ID.String(),
			Meta: map[string]any{
				"oldStatus": string(inv.Status),
				"newStatus": string(next.Status),
				"step":      string(inv.CurrentStep),
			},
			At: now,
		})
	})
	if err != nil {
		return Invoice{}, err
	}

	s.bump(ctx)

	inv.Status = next.Status
	inv.Version++
	inv.UpdatedAt = now
	return inv, nil
}

// Get loads one invoice with its approval history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Invoice, error) {
	return s.repo.GetInvoice(ctx, id)
}

// List returns invoices matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]Invoice, error) {
	return s.repo.ListInvoices(ctx, filter)
}

func (s *Service) bump(ctx context.Context) {
	if s.invalidator == nil {
		return
	}
	if err := s.invalidator.Invalidate(ctx); err != nil && s.logger != nil {
		s.logger.Warn("invalidate report cache", slog.Any("error", err))
	}
}

func validateCreate(input CreateInvoiceInput) error {
	switch {
	case input.SupplierID == 0:
		return errors.New("invoices: supplier required")
	case input.CategoryID == 0:
		return errors.New("invoices: category required")
	case input.Description == "":
		return errors.New("invoices: description required")
	case !input.Amount.IsPositive():
		return errors.New("invoices: amount must be positive")
	case input.IssueDate.IsZero() || input.ServiceDate.IsZero() || input.DueDate.IsZero():
		return errors.New("invoices: issue, service and due dates required")
	case input.RegisteredBy == 0:
		return errors.New("invoices: creator required")
	}
	return nil
}
