/*
synthesizer.go - Payout row generation

PURPOSE:
  Joins a (payee, month) worth of collections with their deal context,
  runs the rate resolver, and writes the resulting payout rows. Payouts
  for the (payee, sourceMonth) key are deleted and recreated as one
  atomic set: recomputation never patches the ledger incrementally, so
  rerunning a month can never leave duplicate or stale rows.
*/
package commission

import (
	"context"

	"github.com/shopspring/decimal"
)

// Synthesizer turns resolver output into payout ledger rows.
type Synthesizer struct {
	Store RecordStore
}

// Synthesize recomputes the payout set funded by (email, month).
// cfg may be nil (no config: stale rows are cleared, nothing is written).
// Aggregation for every month a policy may read must be complete before
// this is called; see Orchestrator.
func (s *Synthesizer) Synthesize(ctx context.Context, cfg *PayeeConfig, email string, month Month) error {
	in, err := s.loadInput(ctx, cfg, email, month)
	if err != nil {
		return err
	}

	var payouts []Payout
	for _, comp := range Resolve(in) {
		if !comp.Rate.IsPositive() || !comp.Basis.IsPositive() {
			continue
		}
		payoutMonth := month
		if comp.Deferred {
			payoutMonth = month.Next()
		}
		payouts = append(payouts, Payout{
			PayeeEmail:     email,
			SourceMonth:    month,
			PayoutMonth:    payoutMonth,
			Kind:           comp.Kind,
			CommissionRate: comp.Rate,
			Amount:         comp.Basis.Mul(comp.Rate),
			Description:    comp.Description,
		})
	}

	return s.Store.ReplacePayouts(ctx, email, month, payouts)
}

func (s *Synthesizer) loadInput(ctx context.Context, cfg *PayeeConfig, email string, month Month) (ResolveInput, error) {
	in := ResolveInput{Config: cfg, Month: month}

	summary, err := s.Store.GetSummary(ctx, email, month)
	if err != nil {
		return in, err
	}
	if summary != nil {
		in.Summary = *summary
	} else {
		in.Summary = MonthlySummary{PayeeEmail: email, Month: month,
			TotalInvoiced: decimal.Zero, TotalCollections: decimal.Zero}
	}

	in.History, err = s.Store.SummariesFor(ctx, email)
	if err != nil {
		return in, err
	}

	in.Collections, err = s.Store.CollectionsFor(ctx, email, month)
	if err != nil {
		return in, err
	}

	dealIDs := make([]string, 0, len(in.Collections))
	seen := make(map[string]bool, len(in.Collections))
	for _, c := range in.Collections {
		if !seen[c.DealID] {
			seen[c.DealID] = true
			dealIDs = append(dealIDs, c.DealID)
		}
	}
	in.Invoices, err = s.Store.InvoicesByDeals(ctx, email, dealIDs)
	if err != nil {
		return in, err
	}

	// Invoiced totals of the months the deals were invoiced in, taken
	// from those months' summaries. Phase ordering guarantees they are
	// current even when the invoice month is later in the dirty range.
	in.InvoiceMonthTotals = make(map[Month]decimal.Decimal)
	for _, inv := range in.Invoices {
		if _, ok := in.InvoiceMonthTotals[inv.Month]; ok {
			continue
		}
		ms, err := s.Store.GetSummary(ctx, email, inv.Month)
		if err != nil {
			return in, err
		}
		if ms != nil {
			in.InvoiceMonthTotals[inv.Month] = ms.TotalInvoiced
		}
	}

	return in, nil
}
