/*
reports.go - Read-side queries for dashboards

PURPOSE:
  Pure reads over the ledger: the per-payee year series, the per-payee
  month drill-down, and the admin cross-payee payout listing. Nothing
  here mutates state; everything is re-derived on demand from the rows
  the pipeline materialized.
*/
package commission

import (
	"context"

	"github.com/shopspring/decimal"
)

// YearRow is one month of a payee's year series. Months with no
// activity appear with zero totals so a year always has twelve rows.
type YearRow struct {
	Month            Month
	TotalInvoiced    decimal.Decimal
	TotalCollections decimal.Decimal
	TotalPayout      decimal.Decimal
}

// CollectionDetail is a collection row enriched with its deal's invoice
// metadata, when an invoice exists.
type CollectionDetail struct {
	Collection Collection
	DealName   string
	DealLink   string
}

// MonthDetails is the full drill-down for one (payee, month).
type MonthDetails struct {
	Month       Month
	Summary     MonthlySummary
	Invoices    []Invoice
	Collections []CollectionDetail
	Payouts     []PayoutDetail
	TotalPayout decimal.Decimal
}

// AdminPayoutRow is one payout in the cross-payee disbursement listing.
type AdminPayoutRow struct {
	PayeeName string
	Detail    PayoutDetail
}

// Reporter answers read-side queries.
type Reporter struct {
	Store RecordStore
}

// YearSeries returns twelve rows for the payee's year, zero-filled for
// months with no data. TotalPayout sums payouts disbursed in the month,
// so a deferred bonus lands in the month it is paid, not earned.
func (r *Reporter) YearSeries(ctx context.Context, email string, year int) ([]YearRow, error) {
	if _, err := r.requirePayee(ctx, email); err != nil {
		return nil, err
	}

	rows := make([]YearRow, 0, 12)
	for _, month := range MonthsOfYear(year) {
		row := YearRow{
			Month:            month,
			TotalInvoiced:    decimal.Zero,
			TotalCollections: decimal.Zero,
			TotalPayout:      decimal.Zero,
		}
		summary, err := r.Store.GetSummary(ctx, email, month)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			row.TotalInvoiced = summary.TotalInvoiced
			row.TotalCollections = summary.TotalCollections
		}
		payouts, err := r.Store.PayoutsForPayee(ctx, email, month)
		if err != nil {
			return nil, err
		}
		for _, p := range payouts {
			row.TotalPayout = row.TotalPayout.Add(p.Amount)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// MonthDetails returns the payee's invoices, collections, and enriched
// payouts for one month.
func (r *Reporter) MonthDetails(ctx context.Context, email string, month Month) (*MonthDetails, error) {
	if _, err := r.requirePayee(ctx, email); err != nil {
		return nil, err
	}

	details := &MonthDetails{Month: month, TotalPayout: decimal.Zero}

	summary, err := r.Store.GetSummary(ctx, email, month)
	if err != nil {
		return nil, err
	}
	if summary != nil {
		details.Summary = *summary
	} else {
		details.Summary = MonthlySummary{
			PayeeEmail:       email,
			Month:            month,
			TotalInvoiced:    decimal.Zero,
			TotalCollections: decimal.Zero,
		}
	}

	details.Invoices, err = r.Store.InvoicesFor(ctx, email, month)
	if err != nil {
		return nil, err
	}

	collections, err := r.Store.CollectionsFor(ctx, email, month)
	if err != nil {
		return nil, err
	}
	dealIDs := make([]string, 0, len(collections))
	for _, c := range collections {
		dealIDs = append(dealIDs, c.DealID)
	}
	invoicesByDeal, err := r.Store.InvoicesByDeals(ctx, email, dealIDs)
	if err != nil {
		return nil, err
	}
	details.Collections = make([]CollectionDetail, 0, len(collections))
	for _, c := range collections {
		cd := CollectionDetail{Collection: c}
		if inv, ok := invoicesByDeal[c.DealID]; ok {
			cd.DealName = inv.DealName
			cd.DealLink = inv.DealLink
		}
		details.Collections = append(details.Collections, cd)
	}

	reconciler := &Reconciler{Store: r.Store}
	details.Payouts, err = reconciler.PayoutDetails(ctx, email, month)
	if err != nil {
		return nil, err
	}
	for _, p := range details.Payouts {
		details.TotalPayout = details.TotalPayout.Add(p.Payout.Amount)
	}
	return details, nil
}

// PayoutsByMonth lists every payee's payouts disbursed in the month,
// largest first, enriched with payee names and funding collections.
func (r *Reporter) PayoutsByMonth(ctx context.Context, month Month) ([]AdminPayoutRow, error) {
	payouts, err := r.Store.PayoutsByMonth(ctx, month)
	if err != nil {
		return nil, err
	}

	names := make(map[string]string)
	reconcilers := make(map[string][]PayoutDetail)

	rows := make([]AdminPayoutRow, 0, len(payouts))
	for _, p := range payouts {
		name, ok := names[p.PayeeEmail]
		if !ok {
			cfg, err := r.Store.GetPayee(ctx, p.PayeeEmail)
			if err != nil {
				return nil, err
			}
			if cfg != nil {
				name = cfg.Name
			}
			names[p.PayeeEmail] = name
		}

		details, ok := reconcilers[p.PayeeEmail]
		if !ok {
			reconciler := &Reconciler{Store: r.Store}
			details, err = reconciler.PayoutDetails(ctx, p.PayeeEmail, month)
			if err != nil {
				return nil, err
			}
			reconcilers[p.PayeeEmail] = details
		}

		detail := PayoutDetail{Payout: p}
		for _, d := range details {
			if samePayout(d.Payout, p) {
				detail = d
				break
			}
		}
		rows = append(rows, AdminPayoutRow{PayeeName: name, Detail: detail})
	}
	return rows, nil
}

func samePayout(a, b Payout) bool {
	return a.PayeeEmail == b.PayeeEmail &&
		a.SourceMonth == b.SourceMonth &&
		a.Kind == b.Kind &&
		a.CommissionRate.Equal(b.CommissionRate) &&
		a.Amount.Equal(b.Amount)
}

func (r *Reporter) requirePayee(ctx context.Context, email string) (*PayeeConfig, error) {
	cfg, err := r.Store.GetPayee(ctx, email)
	if err != nil {
		return nil, err
	}
	if cfg == nil {
		return nil, ErrPayeeNotFound
	}
	return cfg, nil
}
