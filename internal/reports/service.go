package reports

import (
	"context"
	"fmt"
	"sort"
	"time"

	pkgerrors "github.com/abex/clubes-abex/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	defaultWindow   = 30 * 24 * time.Hour
	maxWindow       = 366 * 24 * time.Hour
	topContentLimit = 5
)

// Service builds the admin dashboard from SQL aggregates.
type Service interface {
	Query(ctx context.Context, req Request) (*Response, error)
}

type service struct {
	repo Repository
	now  func() time.Time
}

// NewService builds the reports service.
func NewService(repo Repository, clock func() time.Time) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("reports repository required")
	}
	if clock == nil {
		clock = time.Now
	}
	return &service{repo: repo, now: clock}, nil
}

// Query runs the independent aggregates concurrently; the first failure
// cancels the rest.
func (s *service) Query(ctx context.Context, req Request) (*Response, error) {
	start, end, err := s.window(req)
	if err != nil {
		return nil, err
	}

	resp := &Response{Start: start, End: end}
	var paid []PaidAmount

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		resp.TotalUsers, err = s.repo.CountUsers(gctx, nil)
		return wrap(err, "count users")
	})
	g.Go(func() error {
		var err error
		resp.NewUsers, err = s.repo.CountUsers(gctx, &start)
		return wrap(err, "count new users")
	})
	g.Go(func() error {
		var err error
		resp.ActiveByPlan, err = s.repo.ActiveByPlan(gctx)
		return wrap(err, "active by plan")
	})
	g.Go(func() error {
		var err error
		resp.ActiveByBilling, err = s.repo.ActiveByBilling(gctx)
		return wrap(err, "active by billing")
	})
	g.Go(func() error {
		var err error
		resp.PaymentsByStatus, err = s.repo.PaymentsByStatus(gctx, start, end)
		return wrap(err, "payments by status")
	})
	g.Go(func() error {
		var err error
		paid, err = s.repo.ApprovedPayments(gctx, start, end)
		return wrap(err, "approved payments")
	})
	g.Go(func() error {
		var err error
		resp.TopContent, err = s.repo.TopContent(gctx, topContentLimit)
		return wrap(err, "top content")
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, row := range resp.ActiveByBilling {
		resp.ActiveSubscriptions += row.Count
	}
	resp.Revenue, resp.RevenueSeries = summarizeRevenue(paid)
	return resp, nil
}

func (s *service) window(req Request) (time.Time, time.Time, error) {
	end := req.End.UTC()
	if req.End.IsZero() {
		end = s.now().UTC()
	}
	start := req.Start.UTC()
	if req.Start.IsZero() {
		start = end.Add(-defaultWindow)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "start must be before end")
	}
	if end.Sub(start) > maxWindow {
		return time.Time{}, time.Time{}, pkgerrors.New(pkgerrors.CodeValidation, "report window cannot exceed 366 days")
	}
	return start, end, nil
}

// summarizeRevenue totals approved payments per currency and per UTC day.
func summarizeRevenue(paid []PaidAmount) ([]CurrencyTotal, []RevenuePoint) {
	type dayKey struct{ date, currency string }
	totals := map[string]*CurrencyTotal{}
	totalAmounts := map[string]decimal.Decimal{}
	days := map[dayKey]decimal.Decimal{}

	for _, row := range paid {
		if _, ok := totals[row.Currency]; !ok {
			totals[row.Currency] = &CurrencyTotal{Currency: row.Currency}
		}
		totals[row.Currency].Payments++
		totalAmounts[row.Currency] = totalAmounts[row.Currency].Add(row.Amount)
		key := dayKey{date: row.PaidAt.Format(time.DateOnly), currency: row.Currency}
		days[key] = days[key].Add(row.Amount)
	}

	revenue := make([]CurrencyTotal, 0, len(totals))
	for currency, total := range totals {
		total.Amount = totalAmounts[currency].StringFixed(2)
		revenue = append(revenue, *total)
	}
	sort.Slice(revenue, func(i, j int) bool { return revenue[i].Currency < revenue[j].Currency })

	series := make([]RevenuePoint, 0, len(days))
	for key, amount := range days {
		series = append(series, RevenuePoint{Date: key.date, Currency: key.currency, Amount: amount.StringFixed(2)})
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].Date != series[j].Date {
			return series[i].Date < series[j].Date
		}
		return series[i].Currency < series[j].Currency
	})
	return revenue, series
}

func wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, msg)
}
