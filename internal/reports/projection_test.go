package reports

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

func inv(status workflow.Status, amount string) invoices.Invoice {
	return invoices.Invoice{Status: status, Amount: decimal.RequireFromString(amount)}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.Zero(t, s.PendingCount)
	require.Zero(t, s.ApprovedCount)
	require.Zero(t, s.PaidCount)
	require.True(t, s.PendingAmount.IsZero())
	require.True(t, s.ApprovedAmount.IsZero())
	require.True(t, s.PaidAmount.IsZero())
}

func TestSummarizeBuckets(t *testing.T) {
	s := Summarize([]invoices.Invoice{
		inv(invoices.StatusPendingContracting, "100.00"),
		inv(invoices.StatusPendingPresident, "50.50"),
		inv(invoices.StatusAuthorized, "200.00"),
		inv(invoices.StatusRegistered, "10.00"),
		inv(invoices.StatusPendingPayment, "40.00"),
		inv(invoices.StatusPaid, "999.99"),
		inv(invoices.StatusRejected, "1000.00"),
		inv(invoices.StatusCancelled, "2000.00"),
	})

	require.Equal(t, 2, s.PendingCount)
	require.Equal(t, 3, s.ApprovedCount)
	require.Equal(t, 1, s.PaidCount)
	require.True(t, s.PendingAmount.Equal(decimal.RequireFromString("150.50")), s.PendingAmount.String())
	require.True(t, s.ApprovedAmount.Equal(decimal.RequireFromString("250.00")), s.ApprovedAmount.String())
	require.True(t, s.PaidAmount.Equal(decimal.RequireFromString("999.99")), s.PaidAmount.String())
}

func TestSummarizeEveryStatusLandsInAtMostOneBucket(t *testing.T) {
	statuses := []workflow.Status{
		invoices.StatusPendingContracting,
		invoices.StatusPendingPresident,
		invoices.StatusAuthorized,
		invoices.StatusRegistered,
		invoices.StatusPendingPayment,
		invoices.StatusPaid,
		invoices.StatusRejected,
		invoices.StatusCancelled,
	}
	for _, st := range statuses {
		s := Summarize([]invoices.Invoice{inv(st, "1.00")})
		total := s.PendingCount + s.ApprovedCount + s.PaidCount
		require.LessOrEqual(t, total, 1, "status %s", st)
		if st == invoices.StatusRejected || st == invoices.StatusCancelled {
			require.Zero(t, total, "status %s", st)
		}
	}
}
