package reports

import (
	"context"

	"golang.org/x/sync/singleflight"

	"github.com/fincontrol/fincontrol/internal/invoices"
)

// InvoiceSource provides the invoice collection the projection folds over.
// Satisfied by the invoices repository.
type InvoiceSource interface {
	ListInvoices(ctx context.Context, filter invoices.ListFilter) ([]invoices.Invoice, error)
}

// Service coordinates projection computation with the cache layer.
type Service struct {
	source InvoiceSource
	cache  *Cache
	group  singleflight.Group
}

// NewService wires an InvoiceSource with a Cache helper.
func NewService(source InvoiceSource, cache *Cache) *Service {
	return &Service{source: source, cache: cache}
}

const summaryPageSize = 500

// Summary returns the current three-bucket projection, computed through the
// versioned cache. Concurrent cold reads of the same key compute once.
func (s *Service) Summary(ctx context.Context) (Summary, error) {
	key, err := s.cache.BuildKey(ctx, "reports", "summary")
	if err != nil {
		return Summary{}, err
	}

	var out Summary
	err = s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		v, err, _ := s.group.Do(key, func() (any, error) {
			return s.compute(ctx)
		})
		if err != nil {
			return nil, err
		}
		return v, nil
	})
	return out, err
}

func (s *Service) compute(ctx context.Context) (Summary, error) {
	var all []invoices.Invoice
	for offset := 0; ; offset += summaryPageSize {
		page, err := s.source.ListInvoices(ctx, invoices.ListFilter{Limit: summaryPageSize, Offset: offset})
		if err != nil {
			return Summary{}, err
		}
		all = append(all, page...)
		if len(page) < summaryPageSize {
			break
		}
	}
	return Summarize(all), nil
}

// Invalidate bumps the cache version. Exposed for the warmup job and for
// mutating services via the invoices.Invalidator interface.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

// Warm computes the summary through the cache so the next reader hits a
// fresh entry. Used by the background warmup job.
func (s *Service) Warm(ctx context.Context) error {
	_, err := s.Summary(ctx)
	return err
}
