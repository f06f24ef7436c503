package payments

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/platform/db"
	"github.com/fincontrol/fincontrol/internal/rbac"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

type memoryPaymentRepo struct {
	payments  []Payment
	insertErr error
}

func (r *memoryPaymentRepo) InsertPaymentIn(ctx context.Context, q db.Execer, p Payment) error {
	if r.insertErr != nil {
		return r.insertErr
	}
	r.payments = append(r.payments, p)
	return nil
}

func (r *memoryPaymentRepo) ListPayments(ctx context.Context, filter ListFilter) ([]Payment, error) {
	return append([]Payment(nil), r.payments...), nil
}

// fakeInvoiceWorkflow drives the Finance step of a single invoice.
type fakeInvoiceWorkflow struct {
	invoice   invoices.Invoice
	decisions []invoices.DecisionInput
}

func (f *fakeInvoiceWorkflow) Get(ctx context.Context, id uuid.UUID) (invoices.Invoice, error) {
	if id != f.invoice.ID {
		return invoices.Invoice{}, invoices.ErrInvoiceNotFound
	}
	return f.invoice, nil
}

func (f *fakeInvoiceWorkflow) SubmitDecisionWith(ctx context.Context, input invoices.DecisionInput, extra func(context.Context, db.Execer) error) (invoices.Invoice, error) {
	next, err := invoices.Chain.Decide(f.invoice.State(), input.Action, input.ActorRole)
	if err != nil {
		return invoices.Invoice{}, err
	}
	// A failing extra write rolls the whole decision back, so nothing is
	// applied unless it succeeds.
	if extra != nil {
		if err := extra(ctx, nil); err != nil {
			return invoices.Invoice{}, err
		}
	}
	f.decisions = append(f.decisions, input)
	f.invoice.Status = next.Status
	f.invoice.CurrentStep = next.Step
	f.invoice.Version++
	return f.invoice, nil
}

func pendingPaymentInvoice() invoices.Invoice {
	return invoices.Invoice{
		ID:          uuid.New(),
		Number:      "FAT-2026-000007",
		Amount:      decimal.RequireFromString("310.00"),
		Status:      invoices.StatusPendingPayment,
		CurrentStep: invoices.StepFinance,
		Version:     4,
	}
}

func TestExecuteAdvancesInvoiceAndRecordsPayment(t *testing.T) {
	wf := &fakeInvoiceWorkflow{invoice: pendingPaymentInvoice()}
	repo := &memoryPaymentRepo{}
	svc := NewService(repo, wf, nil, slog.Default())

	p, inv, err := svc.Execute(context.Background(), ExecuteInput{
		InvoiceID: wf.invoice.ID,
		Method:    MethodPix,
		Reference: "E2E-12345",
		ActorID:   40,
	}, rbac.RoleFinance)
	require.NoError(t, err)

	require.Equal(t, invoices.StatusPaid, inv.Status)
	require.Equal(t, invoices.StepDone, inv.CurrentStep)

	require.Len(t, repo.payments, 1)
	require.Equal(t, wf.invoice.ID, p.InvoiceID)
	require.True(t, p.Amount.Equal(decimal.RequireFromString("310.00")))
	require.Equal(t, MethodPix, p.Method)
	require.Equal(t, "E2E-12345", p.Reference)

	require.Len(t, wf.decisions, 1)
	require.Equal(t, "aprovado", wf.decisions[0].RawAction)
	require.Contains(t, wf.decisions[0].Comment, "PIX")
	require.Contains(t, wf.decisions[0].Comment, "E2E-12345")
}

func TestExecuteFailedInsertLeavesInvoicePending(t *testing.T) {
	wf := &fakeInvoiceWorkflow{invoice: pendingPaymentInvoice()}
	repo := &memoryPaymentRepo{insertErr: errors.New("payments table unavailable")}
	svc := NewService(repo, wf, nil, slog.Default())

	_, _, err := svc.Execute(context.Background(), ExecuteInput{
		InvoiceID: wf.invoice.ID,
		Method:    MethodPix,
		ActorID:   40,
	}, rbac.RoleFinance)
	require.Error(t, err)

	// The decision and the payment row commit together, so a failed
	// insert must not leave the invoice marked as paid.
	require.Equal(t, invoices.StatusPendingPayment, wf.invoice.Status)
	require.Empty(t, wf.decisions)
	require.Empty(t, repo.payments)
}

func TestExecuteRejectsWrongStatus(t *testing.T) {
	wf := &fakeInvoiceWorkflow{invoice: pendingPaymentInvoice()}
	wf.invoice.Status = invoices.StatusAuthorized
	wf.invoice.CurrentStep = invoices.StepOfficeOfSupport
	svc := NewService(&memoryPaymentRepo{}, wf, nil, slog.Default())

	_, _, err := svc.Execute(context.Background(), ExecuteInput{
		InvoiceID: wf.invoice.ID,
		Method:    MethodTransfer,
		ActorID:   40,
	}, rbac.RoleFinance)
	require.ErrorIs(t, err, ErrNotPayable)
	require.Empty(t, wf.decisions)
}

func TestExecuteRequiresFinanceRole(t *testing.T) {
	wf := &fakeInvoiceWorkflow{invoice: pendingPaymentInvoice()}
	repo := &memoryPaymentRepo{}
	svc := NewService(repo, wf, nil, slog.Default())

	_, _, err := svc.Execute(context.Background(), ExecuteInput{
		InvoiceID: wf.invoice.ID,
		Method:    MethodBoleto,
		ActorID:   9,
	}, rbac.RoleOfficeOfSupport)
	require.ErrorIs(t, err, workflow.ErrUnauthorized)
	require.Empty(t, repo.payments)
}

func TestExecuteUnknownInvoice(t *testing.T) {
	wf := &fakeInvoiceWorkflow{invoice: pendingPaymentInvoice()}
	svc := NewService(&memoryPaymentRepo{}, wf, nil, slog.Default())

	_, _, err := svc.Execute(context.Background(), ExecuteInput{
		InvoiceID: uuid.New(),
		Method:    MethodPix,
		ActorID:   40,
	}, rbac.RoleFinance)
	require.ErrorIs(t, err, invoices.ErrInvoiceNotFound)
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod("pix")
	require.NoError(t, err)
	require.Equal(t, MethodPix, m)

	m, err = ParseMethod(" Transfer ")
	require.NoError(t, err)
	require.Equal(t, MethodTransfer, m)

	_, err = ParseMethod("cash")
	require.Error(t, err)
}
