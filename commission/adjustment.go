/*
adjustment.go - Retroactive invoice corrections

PURPOSE:
  A negative-amount invoice row in an upload is not a new invoice: it is
  a correction against the previously recorded deal with the same deal
  ID. The handler decrements the original row in place and reports the
  earliest original month touched, which becomes the lower bound of the
  orchestrator's dirty range.

FAILURE:
  A correction whose deal ID matches nothing is a dangling adjustment
  and fails the whole batch. Silently dropping a correction would leave
  the ledger overstating the payee's invoiced totals forever.
*/
package commission

import (
	"context"
)

// AdjustmentHandler applies negative invoice corrections.
type AdjustmentHandler struct {
	Store RecordStore
}

// Apply decrements each correction's original invoice by the absolute
// correction amount. Returns the earliest month an original invoice was
// recorded in, or nil when there were no corrections.
func (h *AdjustmentHandler) Apply(ctx context.Context, corrections []Invoice) (*Month, error) {
	var earliest *Month
	for _, adj := range corrections {
		original, err := h.Store.InvoiceByDeal(ctx, adj.PayeeEmail, adj.DealID)
		if err != nil {
			return nil, err
		}
		if original == nil {
			return nil, &DanglingAdjustmentError{PayeeEmail: adj.PayeeEmail, DealID: adj.DealID}
		}

		decrement := adj.AmountInvoiced.Abs()
		if err := h.Store.AdjustInvoice(ctx, adj.PayeeEmail, adj.DealID, decrement); err != nil {
			return nil, err
		}

		if earliest == nil || original.Month.Before(*earliest) {
			m := original.Month
			earliest = &m
		}
	}
	return earliest, nil
}
