/*
Package sqlite provides a SQLite-backed implementation of the record store.

PURPOSE:
  Implements commission.RecordStore and commission.TxRecordStore using
  SQLite. In production, the same patterns apply to PostgreSQL - only
  minor SQL dialect differences.

KEY TABLES:
  payees:            Rate schedules, keyed by email
  invoices:          Raw billed rows, one per (payee, deal)
  collections:       Raw cash rows, many per (payee, deal)
  monthly_summaries: Derived per-(payee, month) totals
  payouts:           Derived commission rows, regenerated per
                     (payee, source_month)

WRITE DISCIPLINE:
  Summaries and payouts are derived state: the engine overwrites them
  wholesale and the store never edits them. The only in-place mutation
  of a raw row is AdjustInvoice, used for retroactive corrections.

MONTH ENCODING:
  Months are stored as 'YYYY-MM' text. Lexicographic order equals
  chronological order, so range predicates use plain string comparison.

DECIMAL ENCODING:
  Money and rates are stored as decimal strings, never floats. Rounding
  happens only at display time.

WAL MODE:
  SQLite is opened with WAL (Write-Ahead Logging) for better concurrency:
  - Multiple readers don't block
  - Single writer at a time
  - Better crash recovery

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - commission/store.go: Interface definitions
  - commission/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/commission"
)

// Store implements commission.TxRecordStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a new SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Payee rate schedules
	CREATE TABLE IF NOT EXISTS payees (
		email TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		class TEXT NOT NULL,
		base_rate TEXT NOT NULL,
		tiers_json TEXT NOT NULL,
		tiers_enabled BOOLEAN NOT NULL DEFAULT FALSE,
		domestic BOOLEAN NOT NULL DEFAULT FALSE,
		domestic_rate TEXT NOT NULL,
		owner_bonus_rate TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payees_class ON payees(class);

	-- Raw invoice rows. One row per (payee, deal); re-uploads replace the
	-- whole month, corrections decrement amount_invoiced in place.
	CREATE TABLE IF NOT EXISTS invoices (
		payee_email TEXT NOT NULL,
		deal_id TEXT NOT NULL,
		deal_name TEXT NOT NULL DEFAULT '',
		deal_link TEXT NOT NULL DEFAULT '',
		amount_invoiced TEXT NOT NULL,
		month TEXT NOT NULL,
		deal_owner BOOLEAN NOT NULL DEFAULT FALSE,
		PRIMARY KEY (payee_email, deal_id)
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_payee_month
		ON invoices(payee_email, month);
	CREATE INDEX IF NOT EXISTS idx_invoices_month
		ON invoices(month);

	-- Raw collection rows. Several collections may repay one deal.
	CREATE TABLE IF NOT EXISTS collections (
		id TEXT PRIMARY KEY,
		payee_email TEXT NOT NULL,
		deal_id TEXT NOT NULL,
		amount_paid TEXT NOT NULL,
		month TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_collections_payee_month
		ON collections(payee_email, month);
	CREATE INDEX IF NOT EXISTS idx_collections_month
		ON collections(month);

	-- Derived totals, overwritten by the aggregator.
	CREATE TABLE IF NOT EXISTS monthly_summaries (
		payee_email TEXT NOT NULL,
		month TEXT NOT NULL,
		total_invoiced TEXT NOT NULL,
		total_collections TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (payee_email, month)
	);

	CREATE INDEX IF NOT EXISTS idx_summaries_month
		ON monthly_summaries(month);

	-- Derived payouts, regenerated per (payee, source_month).
	CREATE TABLE IF NOT EXISTS payouts (
		payee_email TEXT NOT NULL,
		source_month TEXT NOT NULL,
		payout_month TEXT NOT NULL,
		kind TEXT NOT NULL,
		rate TEXT NOT NULL,
		amount TEXT NOT NULL,
		description TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_payouts_payee_source
		ON payouts(payee_email, source_month);
	CREATE INDEX IF NOT EXISTS idx_payouts_payout_month
		ON payouts(payout_month);
	`

	_, err := s.db.Exec(schema)
	return err
}

// dbtx abstracts over *sql.DB and *sql.Tx so every query helper runs
// both standalone and inside WithTx.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// PAYEE CONFIGS
// =============================================================================

// SavePayee creates or replaces a payee config.
func (s *Store) SavePayee(ctx context.Context, cfg commission.PayeeConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return savePayee(ctx, s.db, cfg)
}

func savePayee(ctx context.Context, db dbtx, cfg commission.PayeeConfig) error {
	tiersJSON, err := marshalTiers(cfg.Tiers)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO payees (email, name, class, base_rate, tiers_json, tiers_enabled,
			domestic, domestic_rate, owner_bonus_rate, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			name = excluded.name,
			class = excluded.class,
			base_rate = excluded.base_rate,
			tiers_json = excluded.tiers_json,
			tiers_enabled = excluded.tiers_enabled,
			domestic = excluded.domestic,
			domestic_rate = excluded.domestic_rate,
			owner_bonus_rate = excluded.owner_bonus_rate,
			updated_at = excluded.updated_at
	`

	now := time.Now().UTC().Format(time.RFC3339)
	_, err = db.ExecContext(ctx, query,
		cfg.Email, cfg.Name, string(cfg.Class),
		cfg.BaseRate.String(), tiersJSON, cfg.TiersEnabled,
		cfg.Domestic, cfg.DomesticRate.String(), cfg.OwnerBonusRate.String(),
		now, now,
	)
	return err
}

// GetPayee returns the config for email, or nil when absent.
func (s *Store) GetPayee(ctx context.Context, email string) (*commission.PayeeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getPayee(ctx, s.db, email)
}

func getPayee(ctx context.Context, db dbtx, email string) (*commission.PayeeConfig, error) {
	row := db.QueryRowContext(ctx, `
		SELECT email, name, class, base_rate, tiers_json, tiers_enabled,
			domestic, domestic_rate, owner_bonus_rate
		FROM payees WHERE email = ?`, email)

	cfg, err := scanPayee(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// ListPayees returns configs for a class, ordered by email. An empty
// class returns every payee.
func (s *Store) ListPayees(ctx context.Context, class commission.PayeeClass) ([]commission.PayeeConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listPayees(ctx, s.db, class)
}

func listPayees(ctx context.Context, db dbtx, class commission.PayeeClass) ([]commission.PayeeConfig, error) {
	query := `
		SELECT email, name, class, base_rate, tiers_json, tiers_enabled,
			domestic, domestic_rate, owner_bonus_rate
		FROM payees`
	args := []any{}
	if class != "" {
		query += ` WHERE class = ?`
		args = append(args, string(class))
	}
	query += ` ORDER BY email ASC`

	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var configs []commission.PayeeConfig
	for rows.Next() {
		cfg, err := scanPayee(rows)
		if err != nil {
			return nil, err
		}
		configs = append(configs, *cfg)
	}
	return configs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPayee(row rowScanner) (*commission.PayeeConfig, error) {
	var cfg commission.PayeeConfig
	var class, baseRate, tiersJSON, domesticRate, ownerBonusRate string

	err := row.Scan(&cfg.Email, &cfg.Name, &class, &baseRate, &tiersJSON,
		&cfg.TiersEnabled, &cfg.Domestic, &domesticRate, &ownerBonusRate)
	if err != nil {
		return nil, err
	}

	cfg.Class = commission.PayeeClass(class)
	if cfg.BaseRate, err = decimal.NewFromString(baseRate); err != nil {
		return nil, fmt.Errorf("bad base_rate for %s: %w", cfg.Email, err)
	}
	if cfg.Tiers, err = unmarshalTiers(tiersJSON); err != nil {
		return nil, fmt.Errorf("bad tiers_json for %s: %w", cfg.Email, err)
	}
	if cfg.DomesticRate, err = decimal.NewFromString(domesticRate); err != nil {
		return nil, fmt.Errorf("bad domestic_rate for %s: %w", cfg.Email, err)
	}
	if cfg.OwnerBonusRate, err = decimal.NewFromString(ownerBonusRate); err != nil {
		return nil, fmt.Errorf("bad owner_bonus_rate for %s: %w", cfg.Email, err)
	}
	return &cfg, nil
}

type tierRecord struct {
	Rate      string `json:"rate"`
	Threshold string `json:"threshold"`
}

func marshalTiers(tiers []commission.RateTier) (string, error) {
	records := make([]tierRecord, len(tiers))
	for i, t := range tiers {
		records[i] = tierRecord{Rate: t.Rate.String(), Threshold: t.Threshold.String()}
	}
	b, err := json.Marshal(records)
	return string(b), err
}

func unmarshalTiers(data string) ([]commission.RateTier, error) {
	var records []tierRecord
	if err := json.Unmarshal([]byte(data), &records); err != nil {
		return nil, err
	}
	tiers := make([]commission.RateTier, 0, len(records))
	for _, r := range records {
		rate, err := decimal.NewFromString(r.Rate)
		if err != nil {
			return nil, err
		}
		threshold, err := decimal.NewFromString(r.Threshold)
		if err != nil {
			return nil, err
		}
		tiers = append(tiers, commission.RateTier{Rate: rate, Threshold: threshold})
	}
	return tiers, nil
}

// =============================================================================
// INVOICES
// =============================================================================

// ReplaceInvoices wipes the month's invoice rows for payees of class and
// inserts rows in their place.
func (s *Store) ReplaceInvoices(ctx context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replaceInvoices(ctx, s.db, month, class, rows)
}

func replaceInvoices(ctx context.Context, db dbtx, month commission.Month, class commission.PayeeClass, rows []commission.Invoice) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM invoices
		WHERE month = ?
		  AND payee_email IN (SELECT email FROM payees WHERE class = ?)`,
		month.String(), string(class))
	if err != nil {
		return err
	}

	for _, inv := range rows {
		_, err := db.ExecContext(ctx, `
			INSERT INTO invoices (payee_email, deal_id, deal_name, deal_link,
				amount_invoiced, month, deal_owner)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			inv.PayeeEmail, inv.DealID, inv.DealName, inv.DealLink,
			inv.AmountInvoiced.String(), inv.Month.String(), inv.DealOwner)
		if err != nil {
			return err
		}
	}
	return nil
}

// InvoicesFor returns a payee's invoice rows for one month.
func (s *Store) InvoicesFor(ctx context.Context, email string, month commission.Month) ([]commission.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryInvoices(ctx, s.db, `
		SELECT payee_email, deal_id, deal_name, deal_link, amount_invoiced, month, deal_owner
		FROM invoices
		WHERE payee_email = ? AND month = ?
		ORDER BY deal_id ASC`, email, month.String())
}

// InvoiceByDeal returns the invoice with the given deal ID, or nil.
func (s *Store) InvoiceByDeal(ctx context.Context, email, dealID string) (*commission.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return invoiceByDeal(ctx, s.db, email, dealID)
}

func invoiceByDeal(ctx context.Context, db dbtx, email, dealID string) (*commission.Invoice, error) {
	invoices, err := queryInvoices(ctx, db, `
		SELECT payee_email, deal_id, deal_name, deal_link, amount_invoiced, month, deal_owner
		FROM invoices
		WHERE payee_email = ? AND deal_id = ?`, email, dealID)
	if err != nil {
		return nil, err
	}
	if len(invoices) == 0 {
		return nil, nil
	}
	return &invoices[0], nil
}

// InvoicesByDeals returns invoices for the deal IDs, keyed by deal ID.
func (s *Store) InvoicesByDeals(ctx context.Context, email string, dealIDs []string) (map[string]commission.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return invoicesByDeals(ctx, s.db, email, dealIDs)
}

func invoicesByDeals(ctx context.Context, db dbtx, email string, dealIDs []string) (map[string]commission.Invoice, error) {
	result := make(map[string]commission.Invoice, len(dealIDs))
	for _, id := range dealIDs {
		inv, err := invoiceByDeal(ctx, db, email, id)
		if err != nil {
			return nil, err
		}
		if inv != nil {
			result[id] = *inv
		}
	}
	return result, nil
}

// AdjustInvoice decrements the invoice's amount in place.
func (s *Store) AdjustInvoice(ctx context.Context, email, dealID string, decrement decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return adjustInvoice(ctx, s.db, email, dealID, decrement)
}

func adjustInvoice(ctx context.Context, db dbtx, email, dealID string, decrement decimal.Decimal) error {
	inv, err := invoiceByDeal(ctx, db, email, dealID)
	if err != nil {
		return err
	}
	if inv == nil {
		return &commission.DanglingAdjustmentError{PayeeEmail: email, DealID: dealID}
	}

	adjusted := inv.AmountInvoiced.Sub(decrement)
	_, err = db.ExecContext(ctx, `
		UPDATE invoices SET amount_invoiced = ?
		WHERE payee_email = ? AND deal_id = ?`,
		adjusted.String(), email, dealID)
	return err
}

func queryInvoices(ctx context.Context, db dbtx, query string, args ...any) ([]commission.Invoice, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var invoices []commission.Invoice
	for rows.Next() {
		var inv commission.Invoice
		var amount, month string
		if err := rows.Scan(&inv.PayeeEmail, &inv.DealID, &inv.DealName, &inv.DealLink,
			&amount, &month, &inv.DealOwner); err != nil {
			return nil, err
		}
		if inv.AmountInvoiced, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount_invoiced for deal %s: %w", inv.DealID, err)
		}
		if inv.Month, err = commission.ParseMonth(month); err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

// =============================================================================
// COLLECTIONS
// =============================================================================

// ReplaceCollections mirrors ReplaceInvoices for collection rows.
func (s *Store) ReplaceCollections(ctx context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Collection) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replaceCollections(ctx, s.db, month, class, rows)
}

func replaceCollections(ctx context.Context, db dbtx, month commission.Month, class commission.PayeeClass, rows []commission.Collection) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM collections
		WHERE month = ?
		  AND payee_email IN (SELECT email FROM payees WHERE class = ?)`,
		month.String(), string(class))
	if err != nil {
		return err
	}

	for _, c := range rows {
		_, err := db.ExecContext(ctx, `
			INSERT INTO collections (id, payee_email, deal_id, amount_paid, month)
			VALUES (?, ?, ?, ?, ?)`,
			c.ID, c.PayeeEmail, c.DealID, c.AmountPaid.String(), c.Month.String())
		if err != nil {
			return err
		}
	}
	return nil
}

// CollectionsFor returns a payee's collection rows for one month.
func (s *Store) CollectionsFor(ctx context.Context, email string, month commission.Month) ([]commission.Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return collectionsFor(ctx, s.db, email, month)
}

func collectionsFor(ctx context.Context, db dbtx, email string, month commission.Month) ([]commission.Collection, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT id, payee_email, deal_id, amount_paid, month
		FROM collections
		WHERE payee_email = ? AND month = ?
		ORDER BY rowid ASC`, email, month.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var collections []commission.Collection
	for rows.Next() {
		var c commission.Collection
		var amount, monthStr string
		if err := rows.Scan(&c.ID, &c.PayeeEmail, &c.DealID, &amount, &monthStr); err != nil {
			return nil, err
		}
		if c.AmountPaid, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad amount_paid for collection %s: %w", c.ID, err)
		}
		if c.Month, err = commission.ParseMonth(monthStr); err != nil {
			return nil, err
		}
		collections = append(collections, c)
	}
	return collections, rows.Err()
}

// =============================================================================
// MONTHLY SUMMARIES
// =============================================================================

// UpsertSummary creates or replaces the summary for its (payee, month).
func (s *Store) UpsertSummary(ctx context.Context, summary commission.MonthlySummary) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return upsertSummary(ctx, s.db, summary)
}

func upsertSummary(ctx context.Context, db dbtx, summary commission.MonthlySummary) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO monthly_summaries (payee_email, month, total_invoiced, total_collections, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(payee_email, month) DO UPDATE SET
			total_invoiced = excluded.total_invoiced,
			total_collections = excluded.total_collections,
			updated_at = excluded.updated_at`,
		summary.PayeeEmail, summary.Month.String(),
		summary.TotalInvoiced.String(), summary.TotalCollections.String(),
		time.Now().UTC().Format(time.RFC3339))
	return err
}

// GetSummary returns the summary for (email, month), or nil.
func (s *Store) GetSummary(ctx context.Context, email string, month commission.Month) (*commission.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getSummary(ctx, s.db, email, month)
}

func getSummary(ctx context.Context, db dbtx, email string, month commission.Month) (*commission.MonthlySummary, error) {
	summaries, err := querySummaries(ctx, db, `
		SELECT payee_email, month, total_invoiced, total_collections
		FROM monthly_summaries
		WHERE payee_email = ? AND month = ?`, email, month.String())
	if err != nil {
		return nil, err
	}
	if len(summaries) == 0 {
		return nil, nil
	}
	return &summaries[0], nil
}

// SummariesFor returns all summaries for a payee, month-ascending.
func (s *Store) SummariesFor(ctx context.Context, email string) ([]commission.MonthlySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return querySummaries(ctx, s.db, `
		SELECT payee_email, month, total_invoiced, total_collections
		FROM monthly_summaries
		WHERE payee_email = ?
		ORDER BY month ASC`, email)
}

// LatestSummaryMonth returns the latest month with any summary, or nil.
func (s *Store) LatestSummaryMonth(ctx context.Context) (*commission.Month, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return latestSummaryMonth(ctx, s.db)
}

func latestSummaryMonth(ctx context.Context, db dbtx) (*commission.Month, error) {
	var monthStr sql.NullString
	err := db.QueryRowContext(ctx,
		`SELECT MAX(month) FROM monthly_summaries`).Scan(&monthStr)
	if err != nil {
		return nil, err
	}
	if !monthStr.Valid {
		return nil, nil
	}
	month, err := commission.ParseMonth(monthStr.String)
	if err != nil {
		return nil, err
	}
	return &month, nil
}

func querySummaries(ctx context.Context, db dbtx, query string, args ...any) ([]commission.MonthlySummary, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var summaries []commission.MonthlySummary
	for rows.Next() {
		var s commission.MonthlySummary
		var month, invoiced, collected string
		if err := rows.Scan(&s.PayeeEmail, &month, &invoiced, &collected); err != nil {
			return nil, err
		}
		if s.Month, err = commission.ParseMonth(month); err != nil {
			return nil, err
		}
		if s.TotalInvoiced, err = decimal.NewFromString(invoiced); err != nil {
			return nil, fmt.Errorf("bad total_invoiced for %s %s: %w", s.PayeeEmail, month, err)
		}
		if s.TotalCollections, err = decimal.NewFromString(collected); err != nil {
			return nil, fmt.Errorf("bad total_collections for %s %s: %w", s.PayeeEmail, month, err)
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

// =============================================================================
// PAYOUTS
// =============================================================================

// ReplacePayouts deletes every payout for (email, sourceMonth) and
// inserts rows in their place.
func (s *Store) ReplacePayouts(ctx context.Context, email string, sourceMonth commission.Month, rows []commission.Payout) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return replacePayouts(ctx, s.db, email, sourceMonth, rows)
}

func replacePayouts(ctx context.Context, db dbtx, email string, sourceMonth commission.Month, rows []commission.Payout) error {
	_, err := db.ExecContext(ctx, `
		DELETE FROM payouts WHERE payee_email = ? AND source_month = ?`,
		email, sourceMonth.String())
	if err != nil {
		return err
	}

	for _, p := range rows {
		_, err := db.ExecContext(ctx, `
			INSERT INTO payouts (payee_email, source_month, payout_month, kind, rate, amount, description)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.PayeeEmail, p.SourceMonth.String(), p.PayoutMonth.String(),
			string(p.Kind), p.CommissionRate.String(), p.Amount.String(), p.Description)
		if err != nil {
			return err
		}
	}
	return nil
}

// PayoutsBySource returns the payouts funded by (email, sourceMonth).
func (s *Store) PayoutsBySource(ctx context.Context, email string, sourceMonth commission.Month) ([]commission.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayouts(ctx, s.db, `
		SELECT payee_email, source_month, payout_month, kind, rate, amount, description
		FROM payouts
		WHERE payee_email = ? AND source_month = ?
		ORDER BY rowid ASC`, email, sourceMonth.String())
}

// PayoutsByMonth returns all payouts disbursed in payoutMonth across
// every payee, amount-descending.
func (s *Store) PayoutsByMonth(ctx context.Context, payoutMonth commission.Month) ([]commission.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayouts(ctx, s.db, `
		SELECT payee_email, source_month, payout_month, kind, rate, amount, description
		FROM payouts
		WHERE payout_month = ?
		ORDER BY CAST(amount AS REAL) DESC`, payoutMonth.String())
}

// PayoutsForPayee returns one payee's payouts disbursed in payoutMonth.
func (s *Store) PayoutsForPayee(ctx context.Context, email string, payoutMonth commission.Month) ([]commission.Payout, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return queryPayouts(ctx, s.db, `
		SELECT payee_email, source_month, payout_month, kind, rate, amount, description
		FROM payouts
		WHERE payee_email = ? AND payout_month = ?
		ORDER BY CAST(amount AS REAL) DESC`, email, payoutMonth.String())
}

func queryPayouts(ctx context.Context, db dbtx, query string, args ...any) ([]commission.Payout, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var payouts []commission.Payout
	for rows.Next() {
		var p commission.Payout
		var sourceMonth, payoutMonth, kind, rate, amount string
		if err := rows.Scan(&p.PayeeEmail, &sourceMonth, &payoutMonth, &kind,
			&rate, &amount, &p.Description); err != nil {
			return nil, err
		}
		p.Kind = commission.PayoutKind(kind)
		if p.SourceMonth, err = commission.ParseMonth(sourceMonth); err != nil {
			return nil, err
		}
		if p.PayoutMonth, err = commission.ParseMonth(payoutMonth); err != nil {
			return nil, err
		}
		if p.CommissionRate, err = decimal.NewFromString(rate); err != nil {
			return nil, fmt.Errorf("bad payout rate for %s: %w", p.PayeeEmail, err)
		}
		if p.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("bad payout amount for %s: %w", p.PayeeEmail, err)
		}
		payouts = append(payouts, p)
	}
	return payouts, rows.Err()
}

// =============================================================================
// ADMINISTRATIVE RESET
// =============================================================================

// PurgeFrom deletes raw and derived rows with month >= from. Payouts go
// by source_month so rows funded by surviving months are kept.
func (s *Store) PurgeFrom(ctx context.Context, from commission.Month) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return purgeFrom(ctx, s.db, from)
}

func purgeFrom(ctx context.Context, db dbtx, from commission.Month) error {
	cut := from.String()
	statements := []string{
		`DELETE FROM invoices WHERE month >= ?`,
		`DELETE FROM collections WHERE month >= ?`,
		`DELETE FROM monthly_summaries WHERE month >= ?`,
		`DELETE FROM payouts WHERE source_month >= ?`,
	}
	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt, cut); err != nil {
			return err
		}
	}
	return nil
}

// =============================================================================
// TRANSACTIONAL STORE (commission.TxRecordStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(commission.RecordStore) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}
	return sqlTx.Commit()
}

// txStore routes every RecordStore call through the open transaction.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) SavePayee(ctx context.Context, cfg commission.PayeeConfig) error {
	return savePayee(ctx, ts.tx, cfg)
}

func (ts *txStore) GetPayee(ctx context.Context, email string) (*commission.PayeeConfig, error) {
	return getPayee(ctx, ts.tx, email)
}

func (ts *txStore) ListPayees(ctx context.Context, class commission.PayeeClass) ([]commission.PayeeConfig, error) {
	return listPayees(ctx, ts.tx, class)
}

func (ts *txStore) ReplaceInvoices(ctx context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Invoice) error {
	return replaceInvoices(ctx, ts.tx, month, class, rows)
}

func (ts *txStore) InvoicesFor(ctx context.Context, email string, month commission.Month) ([]commission.Invoice, error) {
	return queryInvoices(ctx, ts.tx, `
		SELECT payee_email, deal_id, deal_name, deal_link, amount_invoiced, month, deal_owner
		FROM invoices
		WHERE payee_email = ? AND month = ?
		ORDER BY deal_id ASC`, email, month.String())
}

func (ts *txStore) InvoiceByDeal(ctx context.Context, email, dealID string) (*commission.Invoice, error) {
	return invoiceByDeal(ctx, ts.tx, email, dealID)
}

func (ts *txStore) InvoicesByDeals(ctx context.Context, email string, dealIDs []string) (map[string]commission.Invoice, error) {
	return invoicesByDeals(ctx, ts.tx, email, dealIDs)
}

func (ts *txStore) AdjustInvoice(ctx context.Context, email, dealID string, decrement decimal.Decimal) error {
	return adjustInvoice(ctx, ts.tx, email, dealID, decrement)
}

func (ts *txStore) ReplaceCollections(ctx context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Collection) error {
	return replaceCollections(ctx, ts.tx, month, class, rows)
}

func (ts *txStore) CollectionsFor(ctx context.Context, email string, month commission.Month) ([]commission.Collection, error) {
	return collectionsFor(ctx, ts.tx, email, month)
}

func (ts *txStore) UpsertSummary(ctx context.Context, summary commission.MonthlySummary) error {
	return upsertSummary(ctx, ts.tx, summary)
}

func (ts *txStore) GetSummary(ctx context.Context, email string, month commission.Month) (*commission.MonthlySummary, error) {
	return getSummary(ctx, ts.tx, email, month)
}

func (ts *txStore) SummariesFor(ctx context.Context, email string) ([]commission.MonthlySummary, error) {
	return querySummaries(ctx, ts.tx, `
		SELECT payee_email, month, total_invoiced, total_collections
		FROM monthly_summaries
		WHERE payee_email = ?
		ORDER BY month ASC`, email)
}

func (ts *txStore) LatestSummaryMonth(ctx context.Context) (*commission.Month, error) {
	return latestSummaryMonth(ctx, ts.tx)
}

func (ts *txStore) ReplacePayouts(ctx context.Context, email string, sourceMonth commission.Month, rows []commission.Payout) error {
	return replacePayouts(ctx, ts.tx, email, sourceMonth, rows)
}

func (ts *txStore) PayoutsBySource(ctx context.Context, email string, sourceMonth commission.Month) ([]commission.Payout, error) {
	return queryPayouts(ctx, ts.tx, `
		SELECT payee_email, source_month, payout_month, kind, rate, amount, description
		FROM payouts
		WHERE payee_email = ? AND source_month = ?
		ORDER BY rowid ASC`, email, sourceMonth.String())
}

func (ts *txStore) PayoutsByMonth(ctx context.Context, payoutMonth commission.Month) ([]commission.Payout, error) {
	return queryPayouts(ctx, ts.tx, `
		SELECT payee_email, source_month, payout_month, kind, rate, amount, description
		FROM payouts
		WHERE payout_month = ?
		ORDER BY CAST(amount AS REAL) DESC`, payoutMonth.String())
}

func (ts *txStore) PayoutsForPayee(ctx context.Context, email string, payoutMonth commission.Month) ([]commission.Payout, error) {
	return queryPayouts(ctx, ts.tx, `
		SELECT payee_email, source_month, payout_month, kind, rate, amount, description
		FROM payouts
		WHERE payee_email = ? AND payout_month = ?
		ORDER BY CAST(amount AS REAL) DESC`, email, payoutMonth.String())
}

func (ts *txStore) PurgeFrom(ctx context.Context, from commission.Month) error {
	return purgeFrom(ctx, ts.tx, from)
}
