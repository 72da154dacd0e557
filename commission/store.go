/*
store.go - Persistence interface for the five commission tables

PURPOSE:
  Defines the interface between the engine and the record store. The
  engine owns MonthlySummary and Payout rows outright (create, overwrite,
  delete); Invoice and Collection rows are written only by the upload
  path (full-month replacement plus in-place adjustment decrements);
  PayeeConfig rows are written by the admin surface and read by the
  engine.

WRITE DISCIPLINE:
  - Invoices/Collections: ReplaceInvoices/ReplaceCollections wipe one
    month for one payee class and insert the new rows. AdjustInvoice is
    the single in-place mutation, used only for corrections.
  - Summaries: upsert per (payee, month). Never deleted except by purge.
  - Payouts: ReplacePayouts deletes and recreates the full set for a
    (payee, sourceMonth) atomically. Partial payout sets must never
    persist; this is the engine's idempotence mechanism.

IMPLEMENTATIONS:
  - store/sqlite: production SQLite (same patterns apply to PostgreSQL)
  - commission/store: in-memory, for tests and dev

SEE ALSO:
  - orchestrator.go: drives the recomputation over this interface
  - store/sqlite/sqlite.go: concrete implementation
*/
package commission

import (
	"context"

	"github.com/shopspring/decimal"
)

// RecordStore is the engine's view of the durable tables, keyed by
// (payeeEmail, month) and (payeeEmail, dealId).
//
// Lookups returning a single record return (nil, nil) when the record
// is absent; absence is a domain condition, not an error.
type RecordStore interface {
	// --- Payee configs ---

	// SavePayee creates or replaces a payee config.
	SavePayee(ctx context.Context, cfg PayeeConfig) error

	// GetPayee returns the config for email, or nil when absent.
	GetPayee(ctx context.Context, email string) (*PayeeConfig, error)

	// ListPayees returns all configs for a class, ordered by email.
	// An empty class returns every payee.
	ListPayees(ctx context.Context, class PayeeClass) ([]PayeeConfig, error)

	// --- Invoices ---

	// ReplaceInvoices deletes all invoice rows for month belonging to
	// payees of class, then inserts rows. Full-month re-upload semantics.
	ReplaceInvoices(ctx context.Context, month Month, class PayeeClass, rows []Invoice) error

	// InvoicesFor returns a payee's invoice rows for one month.
	InvoicesFor(ctx context.Context, email string, month Month) ([]Invoice, error)

	// InvoiceByDeal returns the invoice with the given deal ID for a
	// payee, or nil when absent. Deal IDs are unique per payee.
	InvoiceByDeal(ctx context.Context, email, dealID string) (*Invoice, error)

	// InvoicesByDeals returns the invoices for the given deal IDs,
	// keyed by deal ID. Missing deals are simply absent from the map.
	InvoicesByDeals(ctx context.Context, email string, dealIDs []string) (map[string]Invoice, error)

	// AdjustInvoice decrements the invoice's amount in place. The only
	// permitted mutation of a stored invoice row.
	AdjustInvoice(ctx context.Context, email, dealID string, decrement decimal.Decimal) error

	// --- Collections ---

	// ReplaceCollections mirrors ReplaceInvoices for collection rows.
	ReplaceCollections(ctx context.Context, month Month, class PayeeClass, rows []Collection) error

	// CollectionsFor returns a payee's collection rows for one month.
	CollectionsFor(ctx context.Context, email string, month Month) ([]Collection, error)

	// --- Monthly summaries ---

	// UpsertSummary creates or replaces the summary for its (payee, month).
	UpsertSummary(ctx context.Context, s MonthlySummary) error

	// GetSummary returns the summary for (email, month), or nil.
	GetSummary(ctx context.Context, email string, month Month) (*MonthlySummary, error)

	// SummariesFor returns all summaries for a payee, month-ascending.
	SummariesFor(ctx context.Context, email string) ([]MonthlySummary, error)

	// LatestSummaryMonth returns the latest month with any summary row,
	// or nil when no summaries exist. Bounds forward recomputation.
	LatestSummaryMonth(ctx context.Context) (*Month, error)

	// --- Payouts ---

	// ReplacePayouts atomically deletes every payout for
	// (email, sourceMonth) and inserts rows in their place.
	ReplacePayouts(ctx context.Context, email string, sourceMonth Month, rows []Payout) error

	// PayoutsBySource returns the payouts funded by (email, sourceMonth).
	PayoutsBySource(ctx context.Context, email string, sourceMonth Month) ([]Payout, error)

	// PayoutsByMonth returns all payouts disbursed in payoutMonth across
	// every payee, amount-descending.
	PayoutsByMonth(ctx context.Context, payoutMonth Month) ([]Payout, error)

	// PayoutsForPayee returns one payee's payouts disbursed in
	// payoutMonth, amount-descending.
	PayoutsForPayee(ctx context.Context, email string, payoutMonth Month) ([]Payout, error)

	// --- Administrative reset ---

	// PurgeFrom deletes invoice, collection, and summary rows with
	// month >= from, and payout rows with sourceMonth >= from. Payouts
	// funded by months before the cut survive, including deferred ones
	// disbursed at or after it.
	PurgeFrom(ctx context.Context, from Month) error
}

// TxRecordStore wraps RecordStore with transaction support. Upload
// processing uses it so a failed batch leaves no partial writes.
type TxRecordStore interface {
	RecordStore

	// WithTx executes fn within a transaction. If fn returns an error the
	// transaction is rolled back, otherwise committed.
	WithTx(ctx context.Context, fn func(RecordStore) error) error
}
