package analytics

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type mockRepo struct {
	statusRows  []StatusRow
	revenueRows []RevenueRow
	statusCalls atomic.Int32
	from        time.Time
	gate        chan struct{}
}

func (m *mockRepo) StatusTotals(ctx context.Context, owner string, asOf time.Time) ([]StatusRow, error) {
	m.statusCalls.Add(1)
	if m.gate != nil {
		<-m.gate
	}
	return m.statusRows, nil
}

func (m *mockRepo) MonthlyRevenue(ctx context.Context, owner string, from time.Time) ([]RevenueRow, error) {
	m.from = from
	return m.revenueRows, nil
}

func newTestService(t *testing.T, repo Repository) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewService(repo, NewCache(client, time.Minute))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

var asOf = time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)

func sampleRepo() *mockRepo {
	return &mockRepo{
		statusRows: []StatusRow{
			{Currency: "EUR", Status: "issued", Count: 2, Total: dec("300.00"), PastDue: dec("100.00")},
			{Currency: "EUR", Status: "overdue", Count: 1, Total: dec("50.00"), PastDue: dec("50.00")},
			{Currency: "EUR", Status: "paid", Count: 3, Total: dec("619.50")},
			{Currency: "USD", Status: "cancelled", Count: 1, Total: dec("10.00")},
		},
		revenueRows: []RevenueRow{
			{Currency: "EUR", Month: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), Total: dec("206.50")},
			{Currency: "EUR", Month: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), Total: dec("413.00")},
		},
	}
}

func TestSummaryAggregatesPerCurrency(t *testing.T) {
	repo := sampleRepo()
	svc := newTestService(t, repo)

	summary, err := svc.Summary(context.Background(), SummaryFilter{OwnerID: "owner-1", Months: 3, AsOf: asOf})
	require.NoError(t, err)
	require.Equal(t, "2026-03-15", summary.AsOf)
	require.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), repo.from)
	require.Len(t, summary.Currencies, 2)

	eur := summary.Currencies[0]
	require.Equal(t, "EUR", eur.Currency)
	require.Equal(t, 6, eur.Invoices)
	require.True(t, eur.Outstanding.Equal(dec("350")))
	require.True(t, eur.Overdue.Equal(dec("150")))
	require.True(t, eur.Paid.Equal(dec("619.50")))
	require.Len(t, eur.Revenue, 3)
	require.Equal(t, "2026-01", eur.Revenue[0].Month)
	require.True(t, eur.Revenue[0].Amount.Equal(dec("206.50")))
	require.True(t, eur.Revenue[1].Amount.IsZero())
	require.True(t, eur.Revenue[2].Amount.Equal(dec("413")))

	usd := summary.Currencies[1]
	require.True(t, usd.Outstanding.IsZero())
	require.Len(t, usd.Revenue, 3)
}

func TestSummaryCachesUntilBump(t *testing.T) {
	repo := sampleRepo()
	svc := newTestService(t, repo)
	ctx := context.Background()
	filter := SummaryFilter{OwnerID: "owner-1", Months: 3, AsOf: asOf}

	_, err := svc.Summary(ctx, filter)
	require.NoError(t, err)
	cached, err := svc.Summary(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, int32(1), repo.statusCalls.Load())
	require.True(t, cached.Currencies[0].Paid.Equal(dec("619.50")))

	require.NoError(t, svc.Invalidate(ctx, "owner-2"))
	_, err = svc.Summary(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, int32(1), repo.statusCalls.Load(), "other owners do not invalidate")

	require.NoError(t, svc.Invalidate(ctx, "owner-1"))
	_, err = svc.Summary(ctx, filter)
	require.NoError(t, err)
	require.Equal(t, int32(2), repo.statusCalls.Load())
}

func TestSummaryCoalescesConcurrentMisses(t *testing.T) {
	repo := sampleRepo()
	repo.gate = make(chan struct{})
	svc := newTestService(t, repo)
	filter := SummaryFilter{OwnerID: "owner-1", Months: 3, AsOf: asOf}

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Summary(context.Background(), filter)
			errs <- err
		}()
	}
	require.Eventually(t, func() bool { return repo.statusCalls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	close(repo.gate)
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.Equal(t, int32(1), repo.statusCalls.Load())
}

func TestSummaryNormalizesMonths(t *testing.T) {
	repo := sampleRepo()
	svc := NewService(repo, nil)
	svc.now = func() time.Time { return asOf }

	summary, err := svc.Summary(context.Background(), SummaryFilter{OwnerID: "owner-1"})
	require.NoError(t, err)
	require.Equal(t, DefaultMonths, summary.Months)
	require.Len(t, summary.Currencies[0].Revenue, DefaultMonths)

	summary, err = svc.Summary(context.Background(), SummaryFilter{OwnerID: "owner-1", Months: 100})
	require.NoError(t, err)
	require.Equal(t, MaxMonths, summary.Months)
}

func TestCacheVersionIsPerOwner(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	cache := NewCache(client, time.Minute)
	ctx := context.Background()

	key, err := cache.BuildKey(ctx, "owner-1", "summary")
	require.NoError(t, err)
	require.Equal(t, "dashboard:owner-1:summary:v1", key)

	require.NoError(t, cache.Bump(ctx, "owner-1"))
	key, err = cache.BuildKey(ctx, "owner-1", "summary")
	require.NoError(t, err)
	require.Equal(t, "dashboard:owner-1:summary:v2", key)

	ver, err := cache.Version(ctx, "owner-2")
	require.NoError(t, err)
	require.Equal(t, int64(1), ver)
}
