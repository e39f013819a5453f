package services

import (
	"context"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/common"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/records"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/repomanager"
	"github.com/shopspring/decimal"
)

const topLimit = 5

// Totals sums expenses and credits over a filtered set of records.
type Totals struct {
	Expense decimal.Decimal
	Credit  decimal.Decimal
	Balance decimal.Decimal
}

// TopRecords holds the largest expenses and credits.
type TopRecords struct {
	Expenses []*models.Record
	Credits  []*models.Record
}

// Summary describes the records matching a filter.
type Summary struct {
	Records    []*models.Record
	Total      decimal.Decimal
	Count      int
	Average    decimal.Decimal
	ByCategory map[string]decimal.Decimal
}

// MonthlyReport lists one calendar month.
type MonthlyReport struct {
	Year         int
	Month        time.Month
	Expenses     []*models.Record
	Credits      []*models.Record
	TotalExpense decimal.Decimal
	TotalCredit  decimal.Decimal
}

// Balance is computed over completed records only.
type Balance struct {
	Credits  decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
}

// ReportService answers read-only questions about the caller's records.
type ReportService struct {
	repomanager repomanager.RepositoryManager
}

func NewReportService(m repomanager.RepositoryManager) *ReportService {
	return &ReportService{repomanager: m}
}

// List returns all records of the caller, newest first.
func (s *ReportService) List(ctx context.Context, p *Principal) ([]*models.Record, error) {
	return s.repomanager.Records(p.Conn).List(ctx, p.User.ID, records.Filter{})
}

// Between returns records whose date falls in [from, to].
func (s *ReportService) Between(ctx context.Context, p *Principal, from, to time.Time) ([]*models.Record, error) {
	if to.Before(from) {
		return nil, common.Validationf("start_date must not be after end_date")
	}
	return s.repomanager.Records(p.Conn).List(ctx, p.User.ID, records.Filter{From: &from, To: &to})
}

// Totals needs at least one of the date bounds or a category.
func (s *ReportService) Totals(ctx context.Context, p *Principal, f records.Filter) (*Totals, error) {
	if f.From == nil && f.To == nil && f.Category == nil {
		return nil, common.Validationf("get_totals needs at least one filter; use get_balance for the overall balance")
	}

	expenses, credits, err := s.split(ctx, p, f)
	if err != nil {
		return nil, err
	}

	t := &Totals{Expense: sum(expenses), Credit: sum(credits)}
	t.Balance = t.Credit.Sub(t.Expense)
	return t, nil
}

func (s *ReportService) Top(ctx context.Context, p *Principal) (*TopRecords, error) {
	repo := s.repomanager.Records(p.Conn)

	expenses, err := repo.Top(ctx, p.User.ID, models.KindExpense, topLimit)
	if err != nil {
		return nil, err
	}
	credits, err := repo.Top(ctx, p.User.ID, models.KindCredit, topLimit)
	if err != nil {
		return nil, err
	}

	return &TopRecords{Expenses: expenses, Credits: credits}, nil
}

// Summary lists matching records with their total, average and per-category
// breakdown. An empty filter matches everything.
func (s *ReportService) Summary(ctx context.Context, p *Principal, f records.Filter) (*Summary, error) {
	rs, err := s.repomanager.Records(p.Conn).List(ctx, p.User.ID, f)
	if err != nil {
		return nil, err
	}

	out := &Summary{
		Records:    rs,
		Total:      sum(rs),
		Count:      len(rs),
		Average:    decimal.Zero,
		ByCategory: make(map[string]decimal.Decimal),
	}
	for _, r := range rs {
		out.ByCategory[r.Category] = out.ByCategory[r.Category].Add(r.Amount)
	}
	if out.Count > 0 {
		out.Average = out.Total.Div(decimal.NewFromInt(int64(out.Count))).Round(2)
	}
	return out, nil
}

func (s *ReportService) Monthly(ctx context.Context, p *Principal, year int, month time.Month) (*MonthlyReport, error) {
	if month < time.January || month > time.December {
		return nil, common.Validationf("month must be between 1 and 12")
	}
	if year < 1 || year > 9999 {
		return nil, common.Validationf("invalid year %d", year)
	}

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	expenses, credits, err := s.split(ctx, p, records.Filter{From: &first, To: &last})
	if err != nil {
		return nil, err
	}

	return &MonthlyReport{
		Year:         year,
		Month:        month,
		Expenses:     expenses,
		Credits:      credits,
		TotalExpense: sum(expenses),
		TotalCredit:  sum(credits),
	}, nil
}

func (s *ReportService) Balance(ctx context.Context, p *Principal) (*Balance, error) {
	repo := s.repomanager.Records(p.Conn)

	credits, err := repo.SumCompleted(ctx, p.User.ID, models.KindCredit)
	if err != nil {
		return nil, err
	}
	expenses, err := repo.SumCompleted(ctx, p.User.ID, models.KindExpense)
	if err != nil {
		return nil, err
	}

	return &Balance{Credits: credits, Expenses: expenses, Net: credits.Sub(expenses)}, nil
}

// split runs f once per kind.
func (s *ReportService) split(ctx context.Context, p *Principal, f records.Filter) (expenses, credits []*models.Record, err error) {
	repo := s.repomanager.Records(p.Conn)

	expense, credit := models.KindExpense, models.KindCredit

	f.Kind = &expense
	if expenses, err = repo.List(ctx, p.User.ID, f); err != nil {
		return nil, nil, err
	}
	f.Kind = &credit
	if credits, err = repo.List(ctx, p.User.ID, f); err != nil {
		return nil, nil, err
	}
	return expenses, credits, nil
}

func sum(rs []*models.Record) decimal.Decimal {
	total := decimal.Zero
	for _, r := range rs {
		total = total.Add(r.Amount)
	}
	return total
}
