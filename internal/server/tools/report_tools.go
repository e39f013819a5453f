package tools

import (
	"context"
	"fmt"
	"time"

	"github.com/dmitrijs2005/ledgerd/internal/server/envelope"
	"github.com/dmitrijs2005/ledgerd/internal/server/models"
	"github.com/dmitrijs2005/ledgerd/internal/server/repositories/records"
	"github.com/dmitrijs2005/ledgerd/internal/server/services"
)

func (r *Registry) registerReportTools() {
	r.Register("list_records", r.listRecords)
	r.Register("list_records_between", r.listRecordsBetween)
	r.Register("get_totals", r.getTotals)
	r.Register("get_top_records", r.getTopRecords)
	r.Register("get_summary", r.getSummary)
	r.Register("get_monthly_report", r.getMonthlyReport)
	r.Register("get_balance", r.getBalance)
	r.Register("export_records", r.exportRecords)
}

type tokenArgs struct {
	Token string `json:"token"`
}

func (r *Registry) listRecords(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a tokenArgs
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	var rs []*models.Record
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		rs, err = r.svc.Reports.List(ctx, p)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success(fmt.Sprintf("Found %d records", len(rs)), envelope.Fields{
		"records": viewRecords(rs),
	}), nil
}

func (r *Registry) listRecordsBetween(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		tokenArgs
		StartDate string `json:"start_date"`
		EndDate   string `json:"end_date"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	if err := required("start_date", a.StartDate, "end_date", a.EndDate); err != nil {
		return envelope.Envelope{}, err
	}
	from, err := records.ParseDate(a.StartDate)
	if err != nil {
		return envelope.Envelope{}, err
	}
	to, err := records.ParseDate(a.EndDate)
	if err != nil {
		return envelope.Envelope{}, err
	}

	var rs []*models.Record
	err = r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		rs, err = r.svc.Reports.Between(ctx, p, from, to)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	if len(rs) == 0 {
		return envelope.Success("No records in given dates", envelope.Fields{"records": viewRecords(nil)}), nil
	}
	return envelope.Success(fmt.Sprintf("Found %d records", len(rs)), envelope.Fields{
		"records": viewRecords(rs),
	}), nil
}

func (r *Registry) getTotals(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		tokenArgs
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
		Category  *string `json:"category"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	f, err := filterArgs{StartDate: a.StartDate, EndDate: a.EndDate, Category: a.Category}.filter()
	if err != nil {
		return envelope.Envelope{}, err
	}

	var t *services.Totals
	err = r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		t, err = r.svc.Reports.Totals(ctx, p, f)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}

	msg := "Totals computed successfully"
	if t.Expense.IsZero() && t.Credit.IsZero() {
		msg = "No records to total"
	}
	return envelope.Success(msg, envelope.Fields{
		"expense": money(t.Expense),
		"credit":  money(t.Credit),
		"balance": money(t.Balance),
	}), nil
}

func (r *Registry) getTopRecords(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a tokenArgs
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	var top *services.TopRecords
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		top, err = r.svc.Reports.Top(ctx, p)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Top records tracked", envelope.Fields{
		"expenses": viewRecords(top.Expenses),
		"credits":  viewRecords(top.Credits),
	}), nil
}

func (r *Registry) getSummary(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		tokenArgs
		filterArgs
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	f, err := a.filter()
	if err != nil {
		return envelope.Envelope{}, err
	}

	var sum *services.Summary
	err = r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		sum, err = r.svc.Reports.Summary(ctx, p, f)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}

	breakdown := make(map[string]any, len(sum.ByCategory))
	for cat, amt := range sum.ByCategory {
		breakdown[cat] = money(amt)
	}

	msg := fmt.Sprintf("Found %d records with total amount %s", sum.Count, sum.Total.StringFixed(2))
	if sum.Count == 0 {
		msg = "No records match the given criteria"
	}
	return envelope.Success(msg, envelope.Fields{
		"records": viewRecords(sum.Records),
		"summary": map[string]any{
			"total_amount":       money(sum.Total),
			"count":              sum.Count,
			"average":            money(sum.Average),
			"category_breakdown": breakdown,
		},
	}), nil
}

func (r *Registry) getMonthlyReport(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		tokenArgs
		Year  *number `json:"year"`
		Month *number `json:"month"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	var missing []string
	if a.Year == nil {
		missing = append(missing, "year", "")
	}
	if a.Month == nil {
		missing = append(missing, "month", "")
	}
	if err := required(missing...); err != nil {
		return envelope.Envelope{}, err
	}

	var rep *services.MonthlyReport
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		rep, err = r.svc.Reports.Monthly(ctx, p, int(*a.Year), time.Month(*a.Month))
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}

	fields := envelope.Fields{
		"month":    rep.Month.String(),
		"year":     rep.Year,
		"expenses": viewRecords(rep.Expenses),
		"credits":  viewRecords(rep.Credits),
		"summary": map[string]any{
			"total_expense":  money(rep.TotalExpense),
			"total_credited": money(rep.TotalCredit),
		},
	}

	if len(rep.Expenses) == 0 && len(rep.Credits) == 0 {
		return envelope.Success(fmt.Sprintf("No records found for %s %d", rep.Month, rep.Year), fields), nil
	}
	msg := fmt.Sprintf("Monthly report for %s %d: %d expenses totaling %s and %d credits totaling %s",
		rep.Month, rep.Year,
		len(rep.Expenses), rep.TotalExpense.StringFixed(2),
		len(rep.Credits), rep.TotalCredit.StringFixed(2))
	return envelope.Success(msg, fields), nil
}

func (r *Registry) getBalance(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a tokenArgs
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}

	var b *services.Balance
	err := r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		b, err = r.svc.Reports.Balance(ctx, p)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success("Balance: "+b.Net.StringFixed(2), envelope.Fields{
		"summary": map[string]any{
			"total_credits":  money(b.Credits),
			"total_expenses": money(b.Expenses),
			"net_balance":    money(b.Net),
		},
	}), nil
}

func (r *Registry) exportRecords(ctx context.Context, args Args) (envelope.Envelope, error) {
	var a struct {
		tokenArgs
		StartDate *string `json:"start_date"`
		EndDate   *string `json:"end_date"`
	}
	if err := args.Decode(&a); err != nil {
		return envelope.Envelope{}, err
	}
	f, err := filterArgs{StartDate: a.StartDate, EndDate: a.EndDate}.filter()
	if err != nil {
		return envelope.Envelope{}, err
	}

	var out *services.Export
	err = r.verified(ctx, a.Token, func(ctx context.Context, p *services.Principal) error {
		var err error
		out, err = r.svc.Exports.Export(ctx, p, f)
		return err
	})
	if err != nil {
		return envelope.Envelope{}, err
	}
	return envelope.Success(fmt.Sprintf("Exported %d records", out.Count), envelope.Fields{
		"url":             out.URL,
		"key":             out.Key,
		"count":           out.Count,
		"expires_in_secs": int(services.PresignTTL / time.Second),
	}), nil
}
