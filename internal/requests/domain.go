// Package requests owns the payment request aggregate: the lighter-weight
// chain a spending request moves through before an invoice exists. Same
// engine as invoices, different table.
package requests

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

// Workflow steps for the payment request chain.
const (
	StepDraft      workflow.Step = "DRAFT"
	StepValidation workflow.Step = "VALIDATION"
	StepAnalysis   workflow.Step = "ANALYSIS"
	StepValidated  workflow.Step = "VALIDATED"
	StepAuthorized workflow.Step = "AUTHORIZED"
	StepRegistered workflow.Step = "REGISTERED"
	StepPayment    workflow.Step = "PAYMENT"
	StepDone       workflow.Step = "DONE"
)

// Payment request statuses.
const (
	StatusDraft             workflow.Status = "DRAFT"
	StatusPendingValidation workflow.Status = "PENDING_VALIDATION"
	StatusInAnalysis        workflow.Status = "IN_ANALYSIS"
	StatusValidated         workflow.Status = "VALIDATED"
	StatusAuthorized        workflow.Status = "AUTHORIZED"
	StatusInvoiceRegistered workflow.Status = "INVOICE_REGISTERED"
	StatusPendingPayment    workflow.Status = "PENDING_PAYMENT"
	StatusPaid              workflow.Status = "PAID"
	StatusRejected          workflow.Status = "REJECTED"
	StatusCancelled         workflow.Status = "CANCELLED"
)

// submitterRoles may move a draft into validation. Any authenticated role
// except the read-only Viewer.
var submitterRoles = []rbac.Role{
	rbac.RoleUser,
	rbac.RoleOfficeOfContracting,
	rbac.RoleOfficeOfSupport,
	rbac.RoleFinance,
	rbac.RolePresident,
}

var validatorRoles = []rbac.Role{rbac.RoleOfficeOfSupport, rbac.RoleOfficeOfContracting}

// Chain is the payment request definition. The support and contracting
// offices validate, the president authorizes, contracting registers the
// resulting invoice and finance pays.
var Chain = workflow.Definition{
	Name: "payment-request",
	Steps: []workflow.StepSpec{
		{Step: StepDraft, Status: StatusDraft, Roles: submitterRoles},
		{Step: StepValidation, Status: StatusPendingValidation, Roles: validatorRoles},
		{Step: StepAnalysis, Status: StatusInAnalysis, Roles: validatorRoles},
		{Step: StepValidated, Status: StatusValidated, Roles: []rbac.Role{rbac.RolePresident}},
		{Step: StepAuthorized, Status: StatusAuthorized, Roles: []rbac.Role{rbac.RoleOfficeOfContracting}},
		{Step: StepRegistered, Status: StatusInvoiceRegistered, Roles: []rbac.Role{rbac.RoleFinance}},
		{Step: StepPayment, Status: StatusPendingPayment, Roles: []rbac.Role{rbac.RoleFinance}},
		{Step: StepDone, Status: StatusPaid},
	},
	Rejected:  StatusRejected,
	Cancelled: StatusCancelled,
}

func init() {
	if err := Chain.Validate(); err != nil {
		panic(err)
	}
}

var (
	ErrRequestNotFound = fmt.Errorf("payment request %w", httpx.ErrNotFound)
	// ErrConcurrentModification indicates the request changed between load
	// and update. Retryable after reload.
	ErrConcurrentModification = fmt.Errorf("%w: payment request modified concurrently", httpx.ErrConflict)
	// ErrNotRegistrable indicates an invoice conversion attempted outside
	// the Authorized status.
	ErrNotRegistrable = fmt.Errorf("%w: payment request is not ready for invoice registration", httpx.ErrConflict)
)

// PaymentRequest is the aggregate root for pre-invoice spending requests.
type PaymentRequest struct {
	ID          uuid.UUID
	SupplierID  int64
	CategoryID  int64
	Description string
	Amount      decimal.Decimal
	Status      workflow.Status
	CurrentStep workflow.Step
	InvoiceID   *uuid.UUID
	History     []Decision
	CreatedBy   int64
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// State returns the workflow state pair.
func (pr PaymentRequest) State() workflow.State {
	return workflow.State{Step: pr.CurrentStep, Status: pr.Status}
}

// Terminal reports whether the request accepts no further decisions.
func (pr PaymentRequest) Terminal() bool {
	return Chain.IsTerminal(pr.Status)
}

// Decision is the immutable record of one action on a request.
type Decision struct {
	ID        uuid.UUID
	RequestID uuid.UUID
	Step      workflow.Step
	Action    workflow.Action
	ActorID   int64
	Comment   string
	DecidedAt time.Time
}

// CreateInput carries the fields for a new draft request.
type CreateInput struct {
	SupplierID  int64
	CategoryID  int64
	Description string
	Amount      decimal.Decimal
	CreatedBy   int64
}

// DecisionInput carries one decision on a request.
type DecisionInput struct {
	RequestID uuid.UUID
	Action    workflow.Action
	RawAction string
	ActorID   int64
	ActorRole rbac.Role
	Comment   string
}

// ListFilter narrows request listings.
type ListFilter struct {
	Status    workflow.Status
	CreatedBy int64
	Limit     int
	Offset    int
}
