// Package payments records payment executions against invoices that reached
// the finance queue, and backs the transaction listing. Executing a payment
// drives the Finance approval step of the invoice chain; the banking side is
// out of scope beyond keeping the reference.
package payments

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/fincontrol/fincontrol/internal/platform/httpx"
)

// Method is the closed set of payment methods.
type Method string

const (
	MethodTransfer Method = "TRANSFER"
	MethodPix      Method = "PIX"
	MethodBoleto   Method = "BOLETO"
)

// ParseMethod converts a submitted value into a Method.
func ParseMethod(raw string) (Method, error) {
	switch Method(strings.ToUpper(strings.TrimSpace(raw))) {
	case MethodTransfer:
		return MethodTransfer, nil
	case MethodPix:
		return MethodPix, nil
	case MethodBoleto:
		return MethodBoleto, nil
	default:
		return "", fmt.Errorf("%w: unknown payment method %q", httpx.ErrValidation, raw)
	}
}

// ErrNotPayable indicates the invoice is not waiting in the finance queue.
var ErrNotPayable = fmt.Errorf("%w: invoice is not pending payment", httpx.ErrConflict)

// Payment records one executed payment. Write-once.
type Payment struct {
	ID        uuid.UUID
	InvoiceID uuid.UUID
	Amount    decimal.Decimal
	Method    Method
	Reference string
	Note      string
	PaidAt    time.Time
	CreatedBy int64
	CreatedAt time.Time
}

// ExecuteInput carries one payment execution.
type ExecuteInput struct {
	InvoiceID uuid.UUID
	Method    Method
	Reference string
	Note      string
	ActorID   int64
}

// ListFilter narrows the transaction listing.
type ListFilter struct {
	InvoiceID uuid.UUID
	From      time.Time
	To        time.Time
	Limit     int
	Offset    int
}
