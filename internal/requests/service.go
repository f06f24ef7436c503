package requests

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

const (
	auditRequestCreated    = "payment_request.created"
	auditRequestDecision   = "payment_request.decision"
	auditRequestCancelled  = "payment_request.cancelled"
	auditRequestRegistered = "payment_request.invoice_registered"
	auditEntityRequest     = "payment_request"
)

// InvoiceCreator registers the invoice produced from an authorized request.
// Satisfied by the invoices service.
type InvoiceCreator interface {
	Create(ctx context.Context, input invoices.CreateInvoiceInput) (invoices.Invoice, error)
}

// Service orchestrates payment request lifecycle operations.
type Service struct {
	repo     Repository
	invoices InvoiceCreator
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the payment request service.
func NewService(repo Repository, invoiceCreator InvoiceCreator, logger *slog.Logger) *Service {
	return &Service{repo: repo, invoices: invoiceCreator, logger: logger, now: time.Now}
}

// Create opens a new request in Draft. Any authenticated user may create.
func (s *Service) Create(ctx context.Context, input CreateInput) (PaymentRequest, error) {
	if err := validateCreate(input); err != nil {
		return PaymentRequest{}, err
	}

	initial := Chain.Initial()
	now := s.now()
	pr := PaymentRequest{
		ID:          uuid.New(),
		SupplierID:  input.SupplierID,
		CategoryID:  input.CategoryID,
		Description: input.Description,
		Amount:      input.Amount,
		Status:      initial.Status,
		CurrentStep: initial.Step,
		CreatedBy:   input.CreatedBy,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.InsertRequest(ctx, pr); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:  input.CreatedBy,
			Action:   auditRequestCreated,
			Entity:   auditEntityRequest,
			EntityID: pr.ID.String(),
			Meta:     map[string]any{"amount": pr.Amount.String(), "status": string(pr.Status)},
			At:       now,
		})
	})
	if err != nil {
		return PaymentRequest{}, err
	}
	return pr, nil
}

// Submit moves a draft into validation. Only the creator (or an Admin) may
// submit, in addition to the role gate on the Draft step.
func (s *Service) Submit(ctx context.Context, id uuid.UUID, actorID int64, role rbac.Role) (PaymentRequest, error) {
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return PaymentRequest{}, err
	}
	if pr.CurrentStep == StepDraft && pr.CreatedBy != actorID && !role.IsAdmin() {
		return PaymentRequest{}, fmt.Errorf("%w: only the creator may submit a draft", workflow.ErrUnauthorized)
	}
	return s.decide(ctx, pr, DecisionInput{
		RequestID: id,
		Action:    workflow.ActionApprove,
		RawAction: "submit",
		ActorID:   actorID,
		ActorRole: role,
	})
}

// SubmitDecision applies one approve/reject decision to the request.
func (s *Service) SubmitDecision(ctx context.Context, input DecisionInput) (PaymentRequest, error) {
	pr, err := s.repo.GetRequest(ctx, input.RequestID)
	if err != nil {
		return PaymentRequest{}, err
	}
	// Drafts belong to their creator: the chain alone would let any
	// non-viewer role advance them, same gate as Submit.
	if pr.CurrentStep == StepDraft && pr.CreatedBy != input.ActorID && !input.ActorRole.IsAdmin() {
		return PaymentRequest{}, fmt.Errorf("%w: only the creator may submit a draft", workflow.ErrUnauthorized)
	}
	return s.decide(ctx, pr, input)
}

func (s *Service) decide(ctx context.Context, pr PaymentRequest, input DecisionInput) (PaymentRequest, error) {
	next, err := Chain.Decide(pr.State(), input.Action, input.ActorRole)
	if err != nil {
		return PaymentRequest{}, err
	}

	now := s.now()
	dec := Decision{
		ID:        uuid.New(),
		RequestID: pr.ID,
		Step:      pr.CurrentStep,
		Action:    input.Action,
		ActorID:   input.ActorID,
		Comment:   input.Comment,
		DecidedAt: now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateWorkflowState(ctx, pr.ID, pr.Version, next, now); err != nil {
			return err
		}
		if err := tx.InsertDecision(ctx, dec); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:  input.ActorID,
			Action:   auditRequestDecision,
			Entity:   auditEntityRequest,
			EntityID: pr.ID.String(),
			Meta: map[string]any{
				"decisionId": dec.ID.String(),
				"action":     input.RawAction,
				"oldStatus":  string(pr.Status),
				"newStatus":  string(next.Status),
				"oldStep":    string(pr.CurrentStep),
				"newStep":    string(next.Step),
			},
			At: now,
		})
	})
	if err != nil {
		return PaymentRequest{}, err
	}

	pr.Status = next.Status
	pr.CurrentStep = next.Step
	pr.Version++
	pr.UpdatedAt = now
	pr.History = append(pr.History, dec)
	return pr, nil
}

// RegisterInvoice converts an authorized request into an invoice and
// advances the request to InvoiceRegistered. The contracting office (or
// Admin) performs the registration.
func (s *Service) RegisterInvoice(ctx context.Context, id uuid.UUID, actorID int64, role rbac.Role, dates invoices.CreateInvoiceInput) (PaymentRequest, error) {
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return PaymentRequest{}, err
	}
	if pr.Status != StatusAuthorized {
		return PaymentRequest{}, fmt.Errorf("%w: status %s", ErrNotRegistrable, pr.Status)
	}
	if !role.IsAdmin() && role != rbac.RoleOfficeOfContracting {
		return PaymentRequest{}, fmt.Errorf("%w: role %q may not register invoices", workflow.ErrUnauthorized, role)
	}
	if s.invoices == nil {
		return PaymentRequest{}, errors.New("requests: invoice creator not configured")
	}

	inv, err := s.invoices.Create(ctx, invoices.CreateInvoiceInput{
		SupplierID:   pr.SupplierID,
		CategoryID:   pr.CategoryID,
		Description:  pr.Description,
		Amount:       pr.Amount,
		IssueDate:    dates.IssueDate,
		ServiceDate:  dates.ServiceDate,
		DueDate:      dates.DueDate,
		RegisteredBy: actorID,
	})
	if err != nil {
		return PaymentRequest{}, err
	}

	now := s.now()
	next, err := Chain.Decide(pr.State(), workflow.ActionApprove, role)
	if err != nil {
		return PaymentRequest{}, err
	}
	dec := Decision{
		ID:        uuid.New(),
		RequestID: pr.ID,
		Step:      pr.CurrentStep,
		Action:    workflow.ActionApprove,
		ActorID:   actorID,
		Comment:   "invoice " + inv.Number,
		DecidedAt: now,
	}

	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateWorkflowState(ctx, pr.ID, pr.Version, next, now); err != nil {
			return err
		}
		if err := tx.LinkInvoice(ctx, pr.ID, inv.ID); err != nil {
			return err
		}
		if err := tx.InsertDecision(ctx, dec); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:  actorID,
			Action:   auditRequestRegistered,
			Entity:   auditEntityRequest,
			EntityID: pr.ID.String(),
			Meta: map[string]any{
				"invoiceId":     inv.ID.String(),
				"invoiceNumber": inv.Number,
				"oldStatus":     string(pr.Status),
				"newStatus":     string(next.Status),
			},
			At: now,
		})
	})
	if err != nil {
		return PaymentRequest{}, err
	}

	invoiceID := inv.ID
	pr.Status = next.Status
	pr.CurrentStep = next.Step
	pr.InvoiceID = &invoiceID
	pr.Version++
	pr.UpdatedAt = now
	pr.History = append(pr.History, dec)
	return pr, nil
}

// Cancel moves a non-terminal request to the cancelled side exit.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actorID int64, role rbac.Role) (PaymentRequest, error) {
	pr, err := s.repo.GetRequest(ctx, id)
	if err != nil {
		return PaymentRequest{}, err
	}
	if !role.IsAdmin() && pr.CreatedBy != actorID {
		return PaymentRequest{}, fmt.Errorf("%w: only the creator or an admin may cancel", workflow.ErrUnauthorized)
	}

	next, err := Chain.Cancel(pr.State())
	if err != nil {
		return PaymentRequest{}, err
	}

	now := s.now()
	err = s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		if err := tx.UpdateWorkflowState(ctx, pr.ID, pr.Version, next, now); err != nil {
			return err
		}
		return tx.RecordAudit(ctx, audit.Entry{
			ActorID:  actorID,
			Action:   auditRequestCancelled,
			Entity:   auditEntityRequest,
			EntityID: pr.ID.String(),
			Meta: map[string]any{
				"oldStatus": string(pr.Status),
				"newStatus": string(next.Status),
				"step":      string(pr.CurrentStep),
			},
			At: now,
		})
	})
	if err != nil {
		return PaymentRequest{}, err
	}

	pr.Status = next.Status
	pr.Version++
	pr.UpdatedAt = now
	return pr, nil
}

// Get loads one request with its decision history.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (PaymentRequest, error) {
	return s.repo.GetRequest(ctx, id)
}

// List returns requests matching the filter.
func (s *Service) List(ctx context.Context, filter ListFilter) ([]PaymentRequest, error) {
	return s.repo.ListRequests(ctx, filter)
}

func validateCreate(input CreateInput) error {
	switch {
	case input.SupplierID == 0:
		return errors.New("requests: supplier required")
	case input.Description == "":
		return errors.New("requests: description required")
	case !input.Amount.IsPositive():
		return errors.New("requests: amount must be positive")
	case input.CreatedBy == 0:
		return errors.New("requests: creator required")
	}
	return nil
}
