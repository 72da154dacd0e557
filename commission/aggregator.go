/*
aggregator.go - Monthly summary aggregation

PURPOSE:
  Re-derives the MonthlySummary row for one (payee, month) from the raw
  invoice and collection rows. Signed invoice amounts are summed as-is,
  so adjustment decrements net out naturally.

IDEMPOTENCE:
  The summary is a pure function of the raw rows; calling Recompute
  twice in a row yields identical results. A month with no rows still
  produces a summary row with zero totals, never an absent row.
*/
package commission

import (
	"context"

	"github.com/shopspring/decimal"
)

// Aggregator materializes MonthlySummary rows.
type Aggregator struct {
	Store RecordStore
}

// Recompute sums the payee's invoice and collection rows for month and
// upserts the summary. Its only side effect is that one row.
func (a *Aggregator) Recompute(ctx context.Context, email string, month Month) (MonthlySummary, error) {
	invoices, err := a.Store.InvoicesFor(ctx, email, month)
	if err != nil {
		return MonthlySummary{}, err
	}
	collections, err := a.Store.CollectionsFor(ctx, email, month)
	if err != nil {
		return MonthlySummary{}, err
	}

	totalInvoiced := decimal.Zero
	for _, inv := range invoices {
		totalInvoiced = totalInvoiced.Add(inv.AmountInvoiced)
	}
	totalCollections := decimal.Zero
	for _, c := range collections {
		totalCollections = totalCollections.Add(c.AmountPaid)
	}

	summary := MonthlySummary{
		PayeeEmail:       email,
		Month:            month,
		TotalInvoiced:    totalInvoiced,
		TotalCollections: totalCollections,
	}
	if err := a.Store.UpsertSummary(ctx, summary); err != nil {
		return MonthlySummary{}, err
	}
	return summary, nil
}
