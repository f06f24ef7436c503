package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/fincontrol/fincontrol/internal/invoices"
)

type countingSource struct {
	invoices []invoices.Invoice
	loads    int
}

func (s *countingSource) ListInvoices(ctx context.Context, filter invoices.ListFilter) ([]invoices.Invoice, error) {
	if filter.Offset == 0 {
		s.loads++
	}
	if filter.Offset >= len(s.invoices) {
		return nil, nil
	}
	end := filter.Offset + filter.Limit
	if end > len(s.invoices) {
		end = len(s.invoices)
	}
	return s.invoices[filter.Offset:end], nil
}

func newCacheForTest(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute), mr
}

func TestSummaryCachesUntilInvalidated(t *testing.T) {
	cache, _ := newCacheForTest(t)
	source := &countingSource{invoices: []invoices.Invoice{
		{Status: invoices.StatusPaid, Amount: decimal.RequireFromString("10.00")},
		{Status: invoices.StatusPendingContracting, Amount: decimal.RequireFromString("5.00")},
	}}
	svc := NewService(source, cache)
	ctx := context.Background()

	first, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, first.PaidCount)
	require.Equal(t, 1, first.PendingCount)
	require.Equal(t, 1, source.loads)

	// Cached: the source is not consulted again.
	second, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, first.PaidCount, second.PaidCount)
	require.Equal(t, 1, source.loads)

	// A write happened; the bump makes the next read recompute.
	source.invoices = append(source.invoices, invoices.Invoice{
		Status: invoices.StatusPaid, Amount: decimal.RequireFromString("7.50"),
	})
	require.NoError(t, svc.Invalidate(ctx))

	third, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, third.PaidCount)
	require.Equal(t, 2, source.loads)
	require.True(t, third.PaidAmount.Equal(decimal.RequireFromString("17.50")), third.PaidAmount.String())
}

func TestSummaryWithoutRedisLoadsThrough(t *testing.T) {
	source := &countingSource{invoices: []invoices.Invoice{
		{Status: invoices.StatusAuthorized, Amount: decimal.RequireFromString("3.00")},
	}}
	svc := NewService(source, NewCache(nil, time.Minute))
	ctx := context.Background()

	s, err := svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, s.ApprovedCount)

	_, err = svc.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, source.loads)
}

func TestCacheVersioning(t *testing.T) {
	cache, _ := newCacheForTest(t)
	ctx := context.Background()

	v1, err := cache.Version(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), v1)

	key1, err := cache.BuildKey(ctx, "reports", "summary")
	require.NoError(t, err)

	require.NoError(t, cache.Bump(ctx))

	key2, err := cache.BuildKey(ctx, "reports", "summary")
	require.NoError(t, err)
	require.NotEqual(t, key1, key2)
}
