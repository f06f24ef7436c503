// Package invoices owns the invoice aggregate and its approval lifecycle:
// intake at the contracting office, presidential authorization, support
// office registration, and payment by finance.
package invoices

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

// Workflow steps for the invoice chain.
const (
	StepOfficeOfContracting workflow.Step = "OFFICE_OF_CONTRACTING"
	StepPresident           workflow.Step = "PRESIDENT"
	StepOfficeOfSupport     workflow.Step = "OFFICE_OF_SUPPORT"
	StepFinance             workflow.Step = "FINANCE"
	StepDone                workflow.Step = "DONE"
)

// Invoice statuses. StatusRegistered is reachable only through manual
// registration by the support office, not through the approval chain.
const (
	StatusPendingContracting workflow.Status = "PENDING_CONTRACTING"
	StatusPendingPresident   workflow.Status = "PENDING_PRESIDENT"
	StatusAuthorized         workflow.Status = "AUTHORIZED"
	StatusRegistered         workflow.Status = "REGISTERED"
	StatusPendingPayment     workflow.Status = "PENDING_PAYMENT"
	StatusPaid               workflow.Status = "PAID"
	StatusRejected           workflow.Status = "REJECTED"
	StatusCancelled          workflow.Status = "CANCELLED"
)

// Chain is the invoice approval definition: a strictly linear pipeline with
// rejection as the only side exit. Each role decides exactly one step.
var Chain = workflow.Definition{
	Name: "invoice",
	Steps: []workflow.StepSpec{
		{Step: StepOfficeOfContracting, Status: StatusPendingContracting, Roles: []rbac.Role{rbac.RoleOfficeOfContracting}},
		{Step: StepPresident, Status: StatusPendingPresident, Roles: []rbac.Role{rbac.RolePresident}},
		{Step: StepOfficeOfSupport, Status: StatusAuthorized, Roles: []rbac.Role{rbac.RoleOfficeOfSupport}},
		{Step: StepFinance, Status: StatusPendingPayment, Roles: []rbac.Role{rbac.RoleFinance}},
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
	ErrInvoiceNotFound = fmt.Errorf("invoice %w", httpx.ErrNotFound)
	// ErrConcurrentModification indicates the invoice changed between load
	// and update. Retryable: reload and reassess before resubmitting.
	ErrConcurrentModification = fmt.Errorf("%w: invoice modified concurrently", httpx.ErrConflict)
)

// Invoice is the aggregate root. Status and CurrentStep are mutated only
// through the workflow chain so they can never disagree with the mapping in
// Chain. History is append-only.
type Invoice struct {
	ID          uuid.UUID
	Number      string
	SupplierID  int64
	CategoryID  int64
	Description string
	Amount      decimal.Decimal
	IssueDate   time.Time
	ServiceDate time.Time
	DueDate     time.Time
	Status      workflow.Status
	CurrentStep workflow.Step
	History     []ApprovalRecord
	CreatedBy   int64
	Version     int64
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// State returns the workflow state pair for the aggregate.
func (inv Invoice) State() workflow.State {
	return workflow.State{Step: inv.CurrentStep, Status: inv.Status}
}

// Terminal reports whether the invoice accepts no further decisions.
func (inv Invoice) Terminal() bool {
	return Chain.IsTerminal(inv.Status)
}

// ApprovalRecord is the immutable log of one decision. Step records the
// position being exited, not the destination. Never mutated or deleted.
type ApprovalRecord struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Step      workflow.Step
	Action    workflow.Action
	ActorID   int64
	Comment   string
	DecidedAt time.Time
}

// CreateInvoiceInput carries the fields required to register an invoice.
type CreateInvoiceInput struct {
	SupplierID   int64
	CategoryID   int64
	Description  string
	Amount       decimal.Decimal
	IssueDate    time.Time
	ServiceDate  time.Time
	DueDate      time.Time
	RegisteredBy int64
}

// DecisionInput carries one approval decision. RawAction keeps the literal
// boundary value (aprovado, aprovado_parcial, rejeitado) for the audit trail.
type DecisionInput struct {
	InvoiceID uuid.UUID
	Action    workflow.Action
	RawAction string
	ActorID   int64
	ActorRole rbac.Role
	Comment   string
}

// ListFilter narrows invoice listings.
type ListFilter struct {
	Status     workflow.Status
	SupplierID int64
	Limit      int
	Offset     int
}
