package requests

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol/fincontrol/internal/audit"
	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

type memoryRequestRepo struct {
	requests  map[uuid.UUID]PaymentRequest
	decisions map[uuid.UUID][]Decision
	audits    []audit.Entry
}

type memoryRequestTx struct {
	repo *memoryRequestRepo
}

func newMemoryRequestRepo() *memoryRequestRepo {
	return &memoryRequestRepo{
		requests:  make(map[uuid.UUID]PaymentRequest),
		decisions: make(map[uuid.UUID][]Decision),
	}
}

func (r *memoryRequestRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &memoryRequestTx{repo: r})
}

func (r *memoryRequestRepo) GetRequest(ctx context.Context, id uuid.UUID) (PaymentRequest, error) {
	pr, ok := r.requests[id]
	if !ok {
		return PaymentRequest{}, ErrRequestNotFound
	}
	pr.History = append([]Decision(nil), r.decisions[id]...)
	return pr, nil
}

func (r *memoryRequestRepo) ListRequests(ctx context.Context, filter ListFilter) ([]PaymentRequest, error) {
	var out []PaymentRequest
	for _, pr := range r.requests {
		if filter.Status != "" && pr.Status != filter.Status {
			continue
		}
		out = append(out, pr)
	}
	return out, nil
}

func (tx *memoryRequestTx) InsertRequest(ctx context.Context, pr PaymentRequest) error {
	tx.repo.requests[pr.ID] = pr
	return nil
}

func (tx *memoryRequestTx) UpdateWorkflowState(ctx context.Context, id uuid.UUID, expectedVersion int64, state workflow.State, updatedAt time.Time) error {
	pr, ok := tx.repo.requests[id]
	if !ok || pr.Version != expectedVersion {
		return ErrConcurrentModification
	}
	pr.Status = state.Status
	pr.CurrentStep = state.Step
	pr.Version++
	pr.UpdatedAt = updatedAt
	tx.repo.requests[id] = pr
	return nil
}

func (tx *memoryRequestTx) LinkInvoice(ctx context.Context, id uuid.UUID, invoiceID uuid.UUID) error {
	pr, ok := tx.repo.requests[id]
	if !ok {
		return ErrRequestNotFound
	}
	pr.InvoiceID = &invoiceID
	tx.repo.requests[id] = pr
	return nil
}

func (tx *memoryRequestTx) InsertDecision(ctx context.Context, dec Decision) error {
	tx.repo.decisions[dec.RequestID] = append(tx.repo.decisions[dec.RequestID], dec)
	return nil
}

func (tx *memoryRequestTx) RecordAudit(ctx context.Context, entry audit.Entry) error {
	tx.repo.audits = append(tx.repo.audits, entry)
	return nil
}

type fakeInvoiceCreator struct {
	created []invoices.CreateInvoiceInput
}

func (f *fakeInvoiceCreator) Create(ctx context.Context, input invoices.CreateInvoiceInput) (invoices.Invoice, error) {
	f.created = append(f.created, input)
	return invoices.Invoice{
		ID:     uuid.New(),
		Number: "FAT-2026-000042",
		Status: invoices.StatusPendingContracting,
	}, nil
}

func requestInput() CreateInput {
	return CreateInput{
		SupplierID:  3,
		CategoryID:  1,
		Description: "aquisicao de material",
		Amount:      decimal.RequireFromString("980.00"),
		CreatedBy:   21,
	}
}

func TestCreateStartsInDraft(t *testing.T) {
	repo := newMemoryRequestRepo()
	svc := NewService(repo, nil, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)
	require.Equal(t, StatusDraft, pr.Status)
	require.Equal(t, StepDraft, pr.CurrentStep)
	require.Equal(t, int64(1), pr.Version)
	require.Len(t, repo.audits, 1)
}

func TestSubmitOnlyByCreatorOrAdmin(t *testing.T) {
	repo := newMemoryRequestRepo()
	svc := NewService(repo, nil, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)

	_, err = svc.Submit(context.Background(), pr.ID, 99, rbac.RoleUser)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	pr, err = svc.Submit(context.Background(), pr.ID, 21, rbac.RoleUser)
	require.NoError(t, err)
	require.Equal(t, StatusPendingValidation, pr.Status)
	require.Equal(t, StepValidation, pr.CurrentStep)
}

func TestDecisionOnDraftOnlyByCreatorOrAdmin(t *testing.T) {
	repo := newMemoryRequestRepo()
	svc := NewService(repo, nil, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)

	// The generic decision endpoint must hold the same creator gate as
	// Submit while the request is still a draft.
	_, err = svc.SubmitDecision(context.Background(), DecisionInput{
		RequestID: pr.ID,
		Action:    workflow.ActionApprove,
		RawAction: "aprovado",
		ActorID:   99,
		ActorRole: rbac.RoleUser,
	})
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
	require.Equal(t, StatusDraft, repo.requests[pr.ID].Status)
	require.Empty(t, repo.decisions[pr.ID])

	// Admins bypass it, the creator passes it.
	pr, err = svc.SubmitDecision(context.Background(), DecisionInput{
		RequestID: pr.ID,
		Action:    workflow.ActionApprove,
		RawAction: "aprovado",
		ActorID:   1,
		ActorRole: rbac.RoleAdmin,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPendingValidation, pr.Status)
}

func TestSubmitViewerDenied(t *testing.T) {
	repo := newMemoryRequestRepo()
	svc := NewService(repo, nil, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)

	// Viewer is the creator but the draft step does not accept viewers.
	stored := repo.requests[pr.ID]
	stored.CreatedBy = 50
	repo.requests[pr.ID] = stored

	_, err = svc.Submit(context.Background(), pr.ID, 50, rbac.RoleViewer)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestFullChainToPaid(t *testing.T) {
	repo := newMemoryRequestRepo()
	creator := &fakeInvoiceCreator{}
	svc := NewService(repo, creator, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)

	pr, err = svc.Submit(context.Background(), pr.ID, 21, rbac.RoleUser)
	require.NoError(t, err)

	decisions := []struct {
		role       rbac.Role
		wantStatus workflow.Status
	}{
		{rbac.RoleOfficeOfSupport, StatusInAnalysis},
		{rbac.RoleOfficeOfContracting, StatusValidated},
		{rbac.RolePresident, StatusAuthorized},
	}
	for i, d := range decisions {
		pr, err = svc.SubmitDecision(context.Background(), DecisionInput{
			RequestID: pr.ID,
			Action:    workflow.ActionApprove,
			RawAction: "aprovado",
			ActorID:   int64(30 + i),
			ActorRole: d.role,
		})
		require.NoError(t, err, "decision %d", i)
		require.Equal(t, d.wantStatus, pr.Status, "decision %d", i)
	}

	// Contracting converts the authorized request into an invoice.
	pr, err = svc.RegisterInvoice(context.Background(), pr.ID, 33, rbac.RoleOfficeOfContracting, invoices.CreateInvoiceInput{
		IssueDate:   time.Now(),
		ServiceDate: time.Now(),
		DueDate:     time.Now().AddDate(0, 1, 0),
	})
	require.NoError(t, err)
	require.Equal(t, StatusInvoiceRegistered, pr.Status)
	require.NotNil(t, pr.InvoiceID)
	require.Len(t, creator.created, 1)
	require.Equal(t, requestInput().Amount, creator.created[0].Amount)

	// Finance walks the tail of the chain.
	pr, err = svc.SubmitDecision(context.Background(), DecisionInput{
		RequestID: pr.ID,
		Action:    workflow.ActionApprove,
		RawAction: "aprovado",
		ActorID:   40,
		ActorRole: rbac.RoleFinance,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPendingPayment, pr.Status)

	pr, err = svc.SubmitDecision(context.Background(), DecisionInput{
		RequestID: pr.ID,
		Action:    workflow.ActionApprove,
		RawAction: "aprovado",
		ActorID:   40,
		ActorRole: rbac.RoleFinance,
	})
	require.NoError(t, err)
	require.Equal(t, StatusPaid, pr.Status)
	require.True(t, pr.Terminal())
}

func TestRegisterInvoiceGuards(t *testing.T) {
	repo := newMemoryRequestRepo()
	creator := &fakeInvoiceCreator{}
	svc := NewService(repo, creator, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)

	// Not authorized yet.
	_, err = svc.RegisterInvoice(context.Background(), pr.ID, 33, rbac.RoleOfficeOfContracting, invoices.CreateInvoiceInput{})
	require.ErrorIs(t, err, ErrNotRegistrable)

	// Force the request to Authorized, then check the role gate.
	stored := repo.requests[pr.ID]
	stored.Status = StatusAuthorized
	stored.CurrentStep = StepAuthorized
	repo.requests[pr.ID] = stored

	_, err = svc.RegisterInvoice(context.Background(), pr.ID, 40, rbac.RoleFinance, invoices.CreateInvoiceInput{})
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
	require.Empty(t, creator.created)
}

func TestRejectStopsChain(t *testing.T) {
	repo := newMemoryRequestRepo()
	svc := NewService(repo, nil, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)
	pr, err = svc.Submit(context.Background(), pr.ID, 21, rbac.RoleUser)
	require.NoError(t, err)

	pr, err = svc.SubmitDecision(context.Background(), DecisionInput{
		RequestID: pr.ID,
		Action:    workflow.ActionReject,
		RawAction: "rejeitado",
		ActorID:   30,
		ActorRole: rbac.RoleOfficeOfSupport,
		Comment:   "sem dotacao",
	})
	require.NoError(t, err)
	require.Equal(t, StatusRejected, pr.Status)
	require.Equal(t, StepValidation, pr.CurrentStep)

	_, err = svc.SubmitDecision(context.Background(), DecisionInput{
		RequestID: pr.ID,
		Action:    workflow.ActionApprove,
		RawAction: "aprovado",
		ActorID:   1,
		ActorRole: rbac.RoleAdmin,
	})
	require.ErrorIs(t, err, workflow.ErrTerminal)
}

func TestCancelRequest(t *testing.T) {
	repo := newMemoryRequestRepo()
	svc := NewService(repo, nil, slog.Default())

	pr, err := svc.Create(context.Background(), requestInput())
	require.NoError(t, err)

	_, err = svc.Cancel(context.Background(), pr.ID, 99, rbac.RoleUser)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)

	pr, err = svc.Cancel(context.Background(), pr.ID, 21, rbac.RoleUser)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, pr.Status)
}
