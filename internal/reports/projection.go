// Package reports derives read-only summaries from the invoice set. The
// projection is a pure fold; freshness is handled by a versioned cache that
// the mutating services bump synchronously after every write.
package reports

import (
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/invoices"
	"github.com/fincontrol/fincontrol/internal/workflow"
)

// Summary is the three-bucket projection over the invoice collection.
type Summary struct {
	PendingCount   int             `json:"pendingCount"`
	ApprovedCount  int             `json:"approvedCount"`
	PaidCount      int             `json:"paidCount"`
	PendingAmount  decimal.Decimal `json:"pendingAmount"`
	ApprovedAmount decimal.Decimal `json:"approvedAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
}

// Bucket classification: pending covers the pre-authorization statuses,
// approved covers authorization through payment queue, paid is paid.
// Rejected and cancelled invoices belong to no bucket.
var (
	pendingStatuses  = statusSet(invoices.StatusPendingContracting, invoices.StatusPendingPresident)
	approvedStatuses = statusSet(invoices.StatusAuthorized, invoices.StatusRegistered, invoices.StatusPendingPayment)
)

// Summarize folds the invoice collection into the three buckets. Pure; an
// empty input yields zero-valued buckets.
func Summarize(invs []invoices.Invoice) Summary {
	s := Summary{
		PendingAmount:  decimal.Zero,
		ApprovedAmount: decimal.Zero,
		PaidAmount:     decimal.Zero,
	}
	for _, inv := range invs {
		switch {
		case pendingStatuses[inv.Status]:
			s.PendingCount++
			s.PendingAmount = s.PendingAmount.Add(inv.Amount)
		case approvedStatuses[inv.Status]:
			s.ApprovedCount++
			s.ApprovedAmount = s.ApprovedAmount.Add(inv.Amount)
		case inv.Status == invoices.StatusPaid:
			s.PaidCount++
			s.PaidAmount = s.PaidAmount.Add(inv.Amount)
		}
	}
	return s
}

func statusSet(statuses ...workflow.Status) map[workflow.Status]bool {
	set := make(map[workflow.Status]bool, len(statuses))
	for _, st := range statuses {
		set[st] = true
	}
	return set
}
