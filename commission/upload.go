/*
upload.go - Monthly batch ingestion

PURPOSE:
  Entry point for a validated monthly upload. The ingestion normalizer
  (outside this module) has already parsed files and validated columns;
  what arrives here is a batch of invoice and collection rows for one
  payee class. Processing:

    1. Reject batches spanning more than one month.
    2. Split invoices into new rows (amount >= 0) and corrections (< 0).
    3. In one store transaction: reconcile the roster, replace the
       month's raw rows, and apply corrections.
    4. Recompute the dirty range (see orchestrator.go).

  Any failure aborts the whole batch; the caller fixes the input and
  retries. Replacement and payout regeneration are idempotent, so a
  retry after a failure between steps 3 and 4 converges.

ROSTER:
  Recruiter and recruitment-manager payees are provisioned from the
  upload itself (the file is the roster of record). Account executives
  and account managers carry admin-configured rate schedules; an upload
  referencing an unknown payee of those classes is rejected.
*/
package commission

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log/slog"

	"github.com/shopspring/decimal"
)

// =============================================================================
// BATCH TYPES - What the ingestion normalizer hands the engine
// =============================================================================

// InvoiceUpload is one normalized invoice row. A negative amount marks a
// correction against the previously recorded deal with the same deal ID.
type InvoiceUpload struct {
	DealID         string
	DealName       string
	DealLink       string
	PayeeEmail     string
	PayeeName      string
	AmountInvoiced decimal.Decimal
	Month          Month
	DealOwner      bool
}

// CollectionUpload is one normalized cash-collection row.
type CollectionUpload struct {
	DealID     string
	PayeeEmail string
	PayeeName  string
	AmountPaid decimal.Decimal
	Month      Month
}

// UploadBatch is one month of data for one payee class.
type UploadBatch struct {
	Class       PayeeClass
	Invoices    []InvoiceUpload
	Collections []CollectionUpload
}

// UploadResult is the single success/failure outcome reported per upload.
type UploadResult struct {
	Success bool
	Message string
}

// =============================================================================
// ENGINE - Upload processing facade
// =============================================================================

// Engine wires the upload path to the recalculation pipeline.
type Engine struct {
	Store       TxRecordStore
	Logger      *slog.Logger
	Concurrency int
}

// NewEngine returns an Engine over the given store.
func NewEngine(store TxRecordStore, logger *slog.Logger) *Engine {
	return &Engine{Store: store, Logger: logger}
}

// ProcessUpload ingests one monthly batch and recomputes every affected
// month. On failure the returned result carries the reason and no
// partial data is committed (recomputation, if already started, is
// safely re-runnable).
func (e *Engine) ProcessUpload(ctx context.Context, batch UploadBatch) (UploadResult, error) {
	fail := func(err error) (UploadResult, error) {
		return UploadResult{Success: false, Message: err.Error()}, err
	}

	if !batch.Class.Valid() {
		return fail(&unknownClassError{batch.Class})
	}

	month, ok, err := batch.singleMonth()
	if err != nil {
		return fail(err)
	}
	if !ok {
		return UploadResult{Success: true, Message: "no data to process"}, nil
	}

	var newInvoices, corrections []InvoiceUpload
	for _, inv := range batch.Invoices {
		if inv.AmountInvoiced.IsNegative() {
			corrections = append(corrections, inv)
		} else {
			newInvoices = append(newInvoices, inv)
		}
	}

	var earliestDirty *Month
	err = e.Store.WithTx(ctx, func(tx RecordStore) error {
		if err := e.reconcileRoster(ctx, tx, batch); err != nil {
			return err
		}

		invoiceRows := make([]Invoice, len(newInvoices))
		for i, u := range newInvoices {
			invoiceRows[i] = Invoice{
				DealID:         u.DealID,
				PayeeEmail:     u.PayeeEmail,
				DealName:       u.DealName,
				DealLink:       u.DealLink,
				AmountInvoiced: u.AmountInvoiced,
				Month:          u.Month,
				DealOwner:      u.DealOwner,
			}
		}
		if err := tx.ReplaceInvoices(ctx, month, batch.Class, invoiceRows); err != nil {
			return err
		}

		collectionRows := make([]Collection, len(batch.Collections))
		for i, u := range batch.Collections {
			collectionRows[i] = Collection{
				ID:         newRecordID(),
				DealID:     u.DealID,
				PayeeEmail: u.PayeeEmail,
				AmountPaid: u.AmountPaid,
				Month:      u.Month,
			}
		}
		if err := tx.ReplaceCollections(ctx, month, batch.Class, collectionRows); err != nil {
			return err
		}

		correctionRows := make([]Invoice, len(corrections))
		for i, u := range corrections {
			correctionRows[i] = Invoice{
				DealID:         u.DealID,
				PayeeEmail:     u.PayeeEmail,
				AmountInvoiced: u.AmountInvoiced,
				Month:          u.Month,
			}
		}
		handler := &AdjustmentHandler{Store: tx}
		earliestDirty, err = handler.Apply(ctx, correctionRows)
		return err
	})
	if err != nil {
		return fail(err)
	}

	payees, err := e.Store.ListPayees(ctx, batch.Class)
	if err != nil {
		return fail(err)
	}

	req := RecalcRequest{UploadMonth: month, Payees: payees}
	if earliestDirty != nil {
		req.EarliestDirty = *earliestDirty
	}
	orchestrator := &Orchestrator{Store: e.Store, Logger: e.Logger, Concurrency: e.Concurrency}
	if err := orchestrator.Run(ctx, req); err != nil {
		return fail(err)
	}

	return UploadResult{Success: true, Message: "monthly data processed successfully"}, nil
}

// PurgeFrom deletes all uploaded and derived rows with month >= from.
// Recovery hatch for bad uploads. Threshold state needs no reset: it is
// derived from the surviving summaries.
func (e *Engine) PurgeFrom(ctx context.Context, from Month) error {
	return e.Store.PurgeFrom(ctx, from)
}

// singleMonth returns the batch's one month. ok is false for an empty
// batch; a batch mixing months is an error.
func (b UploadBatch) singleMonth() (Month, bool, error) {
	var month Month
	var found bool
	check := func(m Month) error {
		if !found {
			month, found = m, true
			return nil
		}
		if m != month {
			return ErrMultiMonthUpload
		}
		return nil
	}
	for _, inv := range b.Invoices {
		if err := check(inv.Month); err != nil {
			return Month{}, false, err
		}
	}
	for _, c := range b.Collections {
		if err := check(c.Month); err != nil {
			return Month{}, false, err
		}
	}
	return month, found, nil
}

// reconcileRoster provisions or validates every payee the batch touches.
func (e *Engine) reconcileRoster(ctx context.Context, tx RecordStore, batch UploadBatch) error {
	names := make(map[string]string)
	var order []string
	note := func(email, name string) {
		if _, ok := names[email]; !ok {
			order = append(order, email)
		}
		names[email] = name
	}
	for _, inv := range batch.Invoices {
		note(inv.PayeeEmail, inv.PayeeName)
	}
	for _, c := range batch.Collections {
		note(c.PayeeEmail, c.PayeeName)
	}

	var missing []string
	for _, email := range order {
		existing, err := tx.GetPayee(ctx, email)
		if err != nil {
			return err
		}
		switch {
		case existing != nil:
			if names[email] != "" && existing.Name != names[email] {
				existing.Name = names[email]
				if err := tx.SavePayee(ctx, *existing); err != nil {
					return err
				}
			}
		case batch.Class.AutoProvision():
			if err := tx.SavePayee(ctx, DefaultConfig(batch.Class, email, names[email])); err != nil {
				return err
			}
		default:
			missing = append(missing, email)
		}
	}
	if len(missing) > 0 {
		return &UnknownPayeeError{Class: batch.Class, Emails: missing}
	}
	return nil
}

// newRecordID returns a random surrogate ID for a collection row.
func newRecordID() string {
	var b [8]byte
	rand.Read(b[:])
	return hex.EncodeToString(b[:])
}

type unknownClassError struct{ class PayeeClass }

func (e *unknownClassError) Error() string {
	return "unknown payee class: " + string(e.class)
}
func (e *unknownClassError) Unwrap() error { return ErrUnknownPayeeClass }
