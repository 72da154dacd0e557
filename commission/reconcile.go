/*
reconcile.go - Best-effort payout-to-collection matching

PURPOSE:
  The ledger does not store a foreign key from a payout to the
  collection rows that funded it. For display, this reconciler
  reconstructs the link: for each payout it searches the source month's
  collections for one whose amount times the payout's rate equals the
  payout amount, consuming matches so two equal payouts never claim the
  same collection, and falling back to the closest candidate when
  nothing matches exactly.

  This is a fallible read-side enrichment only. Nothing in the ledger
  or the recomputation pipeline depends on it.
*/
package commission

import (
	"context"
)

// PayoutDetail is a payout enriched with its probable funding collection.
type PayoutDetail struct {
	Payout     Payout
	Collection *Collection // nil when no candidate existed
	DealName   string
	DealLink   string
	Exact      bool // false when the match is the closest-delta fallback
}

// Reconciler matches payouts back to collections for display.
type Reconciler struct {
	Store RecordStore
}

// PayoutDetails returns the payee's payouts disbursed in payoutMonth,
// each annotated with its probable funding collection.
func (r *Reconciler) PayoutDetails(ctx context.Context, email string, payoutMonth Month) ([]PayoutDetail, error) {
	payouts, err := r.Store.PayoutsForPayee(ctx, email, payoutMonth)
	if err != nil {
		return nil, err
	}

	// Collections already claimed by an earlier payout, per source month.
	used := make(map[Month]map[string]bool)

	details := make([]PayoutDetail, 0, len(payouts))
	for _, p := range payouts {
		detail, err := r.matchPayout(ctx, p, used)
		if err != nil {
			return nil, err
		}
		details = append(details, detail)
	}
	return details, nil
}

func (r *Reconciler) matchPayout(ctx context.Context, p Payout, used map[Month]map[string]bool) (PayoutDetail, error) {
	detail := PayoutDetail{Payout: p}

	candidates, err := r.Store.CollectionsFor(ctx, p.PayeeEmail, p.SourceMonth)
	if err != nil {
		return detail, err
	}
	usedSet := used[p.SourceMonth]
	if usedSet == nil {
		usedSet = make(map[string]bool)
		used[p.SourceMonth] = usedSet
	}

	available := candidates[:0:0]
	for _, c := range candidates {
		if !usedSet[c.ID] {
			available = append(available, c)
		}
	}
	if len(available) == 0 {
		return detail, nil
	}

	dealIDs := make([]string, 0, len(available))
	for _, c := range available {
		dealIDs = append(dealIDs, c.DealID)
	}
	invoices, err := r.Store.InvoicesByDeals(ctx, p.PayeeEmail, dealIDs)
	if err != nil {
		return detail, err
	}

	// Exact pass: amountPaid * rate == payout amount. Prefer a match
	// whose deal has an invoice, for a richer display row.
	var exact *Collection
	for i := range available {
		c := available[i]
		if c.AmountPaid.Mul(p.CommissionRate).Equal(p.Amount) {
			if _, hasInvoice := invoices[c.DealID]; hasInvoice {
				exact = &c
				break
			}
			if exact == nil {
				exact = &c
			}
		}
	}

	matched := exact
	detail.Exact = exact != nil
	if matched == nil {
		// Fallback: closest delta, invoice-backed candidates win ties.
		best := available[0]
		bestDelta := p.Amount.Sub(best.AmountPaid.Mul(p.CommissionRate)).Abs()
		for _, c := range available[1:] {
			delta := p.Amount.Sub(c.AmountPaid.Mul(p.CommissionRate)).Abs()
			_, cHasInvoice := invoices[c.DealID]
			_, bestHasInvoice := invoices[best.DealID]
			if delta.LessThan(bestDelta) || (delta.Equal(bestDelta) && cHasInvoice && !bestHasInvoice) {
				best, bestDelta = c, delta
			}
		}
		matched = &best
	}

	usedSet[matched.ID] = true
	detail.Collection = matched
	if inv, ok := invoices[matched.DealID]; ok {
		detail.DealName = inv.DealName
		detail.DealLink = inv.DealLink
	}
	return detail, nil
}
