// Package analytics builds the per-owner dashboard summary and caches it in
// Redis until the owner's invoices change.
package analytics

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultMonths = 6
	MaxMonths     = 24
)

// SummaryFilter scopes a dashboard summary.
type SummaryFilter struct {
	OwnerID string
	Months  int
	AsOf    time.Time
}

// StatusTotal is the count and value of invoices in one status.
type StatusTotal struct {
	Status string          `json:"status"`
	Count  int             `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// MonthRevenue is the paid value of one month, formatted YYYY-MM.
type MonthRevenue struct {
	Month  string          `json:"month"`
	Amount decimal.Decimal `json:"amount"`
}

// CurrencySummary groups figures of one currency; amounts of different
// currencies are never added together.
type CurrencySummary struct {
	Currency    string          `json:"currency"`
	Invoices    int             `json:"invoices"`
	Statuses    []StatusTotal   `json:"statuses"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Overdue     decimal.Decimal `json:"overdue"`
	Paid        decimal.Decimal `json:"paid"`
	Revenue     []MonthRevenue  `json:"revenue"`
}

// Summary is the dashboard payload.
type Summary struct {
	AsOf       string            `json:"as_of"`
	Months     int               `json:"months"`
	Currencies []CurrencySummary `json:"currencies"`
}

// Service coordinates summary queries with the cache layer.
type Service struct {
	repo  Repository
	cache *Cache
	group singleflight.Group
	now   func() time.Time
}

// NewService wires a Repository with a Cache helper. A nil cache disables caching.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{repo: repo, cache: cache, now: time.Now}
}

// Invalidate bumps the owner's cache version.
func (s *Service) Invalidate(ctx context.Context, owner string) error {
	return s.cache.Bump(ctx, owner)
}

// Summary resolves the dashboard summary. Concurrent misses for the same key
// share one database round trip.
func (s *Service) Summary(ctx context.Context, filter SummaryFilter) (Summary, error) {
	filter = s.normalize(filter)
	asOf := filter.AsOf.Format("2006-01-02")
	key, err := s.cache.BuildKey(ctx, filter.OwnerID, "summary", strconv.Itoa(filter.Months), asOf)
	if err != nil {
		return Summary{}, err
	}

	ch := s.group.DoChan(key, func() (any, error) {
		var out Summary
		err := s.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
			return s.build(ctx, filter)
		})
		return out, err
	})
	select {
	case <-ctx.Done():
		return Summary{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return Summary{}, res.Err
		}
		return res.Val.(Summary), nil
	}
}

func (s *Service) normalize(filter SummaryFilter) SummaryFilter {
	if filter.Months <= 0 {
		filter.Months = DefaultMonths
	}
	if filter.Months > MaxMonths {
		filter.Months = MaxMonths
	}
	if filter.AsOf.IsZero() {
		filter.AsOf = s.now()
	}
	filter.AsOf = time.Date(filter.AsOf.Year(), filter.AsOf.Month(), filter.AsOf.Day(), 0, 0, 0, 0, time.UTC)
	return filter
}

func (s *Service) build(ctx context.Context, filter SummaryFilter) (Summary, error) {
	firstMonth := time.Date(filter.AsOf.Year(), filter.AsOf.Month()-time.Month(filter.Months-1), 1, 0, 0, 0, 0, time.UTC)

	statusRows, err := s.repo.StatusTotals(ctx, filter.OwnerID, filter.AsOf)
	if err != nil {
		return Summary{}, err
	}
	revenueRows, err := s.repo.MonthlyRevenue(ctx, filter.OwnerID, firstMonth)
	if err != nil {
		return Summary{}, err
	}

	byCurrency := map[string]*CurrencySummary{}
	get := func(code string) *CurrencySummary {
		cs, ok := byCurrency[code]
		if !ok {
			cs = &CurrencySummary{Currency: code, Statuses: []StatusTotal{}, Revenue: monthSeries(firstMonth, filter.Months)}
			byCurrency[code] = cs
		}
		return cs
	}

	for _, row := range statusRows {
		cs := get(row.Currency)
		cs.Invoices += row.Count
		cs.Statuses = append(cs.Statuses, StatusTotal{Status: row.Status, Count: row.Count, Amount: row.Total})
		switch row.Status {
		case "issued", "overdue":
			cs.Outstanding = cs.Outstanding.Add(row.Total)
			cs.Overdue = cs.Overdue.Add(row.PastDue)
		case "paid":
			cs.Paid = cs.Paid.Add(row.Total)
		}
	}
	for _, row := range revenueRows {
		cs := get(row.Currency)
		month := row.Month.Format("2006-01")
		for i := range cs.Revenue {
			if cs.Revenue[i].Month == month {
				cs.Revenue[i].Amount = cs.Revenue[i].Amount.Add(row.Total)
			}
		}
	}

	out := Summary{AsOf: filter.AsOf.Format("2006-01-02"), Months: filter.Months, Currencies: []CurrencySummary{}}
	for _, cs := range byCurrency {
		out.Currencies = append(out.Currencies, *cs)
	}
	sort.Slice(out.Currencies, func(i, j int) bool { return out.Currencies[i].Currency < out.Currencies[j].Currency })
	return out, nil
}

func monthSeries(first time.Time, months int) []MonthRevenue {
	out := make([]MonthRevenue, months)
	for i := range out {
		out[i] = MonthRevenue{Month: first.AddDate(0, i, 0).Format("2006-01"), Amount: decimal.Zero}
	}
	return out
}
