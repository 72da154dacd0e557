// Package store provides RecordStore implementations.
package store

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/warp/commission-engine/commission"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu          sync.RWMutex
	payees      map[string]commission.PayeeConfig
	invoices    map[dealKey]commission.Invoice
	collections []commission.Collection
	summaries   map[summaryKey]commission.MonthlySummary
	payouts     []commission.Payout
}

type dealKey struct {
	Email  string
	DealID string
}

type summaryKey struct {
	Email string
	Month commission.Month
}

func NewMemory() *Memory {
	return &Memory{
		payees:    make(map[string]commission.PayeeConfig),
		invoices:  make(map[dealKey]commission.Invoice),
		summaries: make(map[summaryKey]commission.MonthlySummary),
	}
}

// --- Payee configs ---

func (m *Memory) SavePayee(_ context.Context, cfg commission.PayeeConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.savePayeeLocked(cfg)
}

func (m *Memory) savePayeeLocked(cfg commission.PayeeConfig) error {
	m.payees[cfg.Email] = cfg
	return nil
}

func (m *Memory) GetPayee(_ context.Context, email string) (*commission.PayeeConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getPayeeLocked(email)
}

func (m *Memory) getPayeeLocked(email string) (*commission.PayeeConfig, error) {
	cfg, ok := m.payees[email]
	if !ok {
		return nil, nil
	}
	return &cfg, nil
}

func (m *Memory) ListPayees(_ context.Context, class commission.PayeeClass) ([]commission.PayeeConfig, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listPayeesLocked(class)
}

func (m *Memory) listPayeesLocked(class commission.PayeeClass) ([]commission.PayeeConfig, error) {
	var result []commission.PayeeConfig
	for _, cfg := range m.payees {
		if class == "" || cfg.Class == class {
			result = append(result, cfg)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return strings.Compare(result[i].Email, result[j].Email) < 0
	})
	return result, nil
}

// --- Invoices ---

func (m *Memory) ReplaceInvoices(_ context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceInvoicesLocked(month, class, rows)
}

func (m *Memory) replaceInvoicesLocked(month commission.Month, class commission.PayeeClass, rows []commission.Invoice) error {
	for k, inv := range m.invoices {
		if inv.Month == month && m.classOfLocked(inv.PayeeEmail) == class {
			delete(m.invoices, k)
		}
	}
	for _, inv := range rows {
		m.invoices[dealKey{Email: inv.PayeeEmail, DealID: inv.DealID}] = inv
	}
	return nil
}

func (m *Memory) InvoicesFor(_ context.Context, email string, month commission.Month) ([]commission.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invoicesForLocked(email, month)
}

func (m *Memory) invoicesForLocked(email string, month commission.Month) ([]commission.Invoice, error) {
	var result []commission.Invoice
	for _, inv := range m.invoices {
		if inv.PayeeEmail == email && inv.Month == month {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].DealID < result[j].DealID
	})
	return result, nil
}

func (m *Memory) InvoiceByDeal(_ context.Context, email, dealID string) (*commission.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invoiceByDealLocked(email, dealID)
}

func (m *Memory) invoiceByDealLocked(email, dealID string) (*commission.Invoice, error) {
	inv, ok := m.invoices[dealKey{Email: email, DealID: dealID}]
	if !ok {
		return nil, nil
	}
	return &inv, nil
}

func (m *Memory) InvoicesByDeals(_ context.Context, email string, dealIDs []string) (map[string]commission.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.invoicesByDealsLocked(email, dealIDs)
}

func (m *Memory) invoicesByDealsLocked(email string, dealIDs []string) (map[string]commission.Invoice, error) {
	result := make(map[string]commission.Invoice, len(dealIDs))
	for _, id := range dealIDs {
		if inv, ok := m.invoices[dealKey{Email: email, DealID: id}]; ok {
			result[id] = inv
		}
	}
	return result, nil
}

func (m *Memory) AdjustInvoice(_ context.Context, email, dealID string, decrement decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.adjustInvoiceLocked(email, dealID, decrement)
}

func (m *Memory) adjustInvoiceLocked(email, dealID string, decrement decimal.Decimal) error {
	k := dealKey{Email: email, DealID: dealID}
	inv, ok := m.invoices[k]
	if !ok {
		return &commission.DanglingAdjustmentError{PayeeEmail: email, DealID: dealID}
	}
	inv.AmountInvoiced = inv.AmountInvoiced.Sub(decrement)
	m.invoices[k] = inv
	return nil
}

// --- Collections ---

func (m *Memory) ReplaceCollections(_ context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replaceCollectionsLocked(month, class, rows)
}

func (m *Memory) replaceCollectionsLocked(month commission.Month, class commission.PayeeClass, rows []commission.Collection) error {
	kept := m.collections[:0]
	for _, c := range m.collections {
		if c.Month == month && m.classOfLocked(c.PayeeEmail) == class {
			continue
		}
		kept = append(kept, c)
	}
	m.collections = append(kept, rows...)
	return nil
}

func (m *Memory) CollectionsFor(_ context.Context, email string, month commission.Month) ([]commission.Collection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectionsForLocked(email, month)
}

func (m *Memory) collectionsForLocked(email string, month commission.Month) ([]commission.Collection, error) {
	var result []commission.Collection
	for _, c := range m.collections {
		if c.PayeeEmail == email && c.Month == month {
			result = append(result, c)
		}
	}
	return result, nil
}

// --- Monthly summaries ---

func (m *Memory) UpsertSummary(_ context.Context, s commission.MonthlySummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.upsertSummaryLocked(s)
}

func (m *Memory) upsertSummaryLocked(s commission.MonthlySummary) error {
	m.summaries[summaryKey{Email: s.PayeeEmail, Month: s.Month}] = s
	return nil
}

func (m *Memory) GetSummary(_ context.Context, email string, month commission.Month) (*commission.MonthlySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getSummaryLocked(email, month)
}

func (m *Memory) getSummaryLocked(email string, month commission.Month) (*commission.MonthlySummary, error) {
	s, ok := m.summaries[summaryKey{Email: email, Month: month}]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (m *Memory) SummariesFor(_ context.Context, email string) ([]commission.MonthlySummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.summariesForLocked(email)
}

func (m *Memory) summariesForLocked(email string) ([]commission.MonthlySummary, error) {
	var result []commission.MonthlySummary
	for _, s := range m.summaries {
		if s.PayeeEmail == email {
			result = append(result, s)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Month.Before(result[j].Month)
	})
	return result, nil
}

func (m *Memory) LatestSummaryMonth(_ context.Context) (*commission.Month, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.latestSummaryMonthLocked()
}

func (m *Memory) latestSummaryMonthLocked() (*commission.Month, error) {
	var latest *commission.Month
	for k := range m.summaries {
		if latest == nil || k.Month.After(*latest) {
			month := k.Month
			latest = &month
		}
	}
	return latest, nil
}

// --- Payouts ---

func (m *Memory) ReplacePayouts(_ context.Context, email string, sourceMonth commission.Month, rows []commission.Payout) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.replacePayoutsLocked(email, sourceMonth, rows)
}

func (m *Memory) replacePayoutsLocked(email string, sourceMonth commission.Month, rows []commission.Payout) error {
	kept := m.payouts[:0]
	for _, p := range m.payouts {
		if p.PayeeEmail == email && p.SourceMonth == sourceMonth {
			continue
		}
		kept = append(kept, p)
	}
	m.payouts = append(kept, rows...)
	return nil
}

func (m *Memory) PayoutsBySource(_ context.Context, email string, sourceMonth commission.Month) ([]commission.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payoutsBySourceLocked(email, sourceMonth)
}

func (m *Memory) payoutsBySourceLocked(email string, sourceMonth commission.Month) ([]commission.Payout, error) {
	var result []commission.Payout
	for _, p := range m.payouts {
		if p.PayeeEmail == email && p.SourceMonth == sourceMonth {
			result = append(result, p)
		}
	}
	return result, nil
}

func (m *Memory) PayoutsByMonth(_ context.Context, payoutMonth commission.Month) ([]commission.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payoutsByMonthLocked(payoutMonth)
}

func (m *Memory) payoutsByMonthLocked(payoutMonth commission.Month) ([]commission.Payout, error) {
	var result []commission.Payout
	for _, p := range m.payouts {
		if p.PayoutMonth == payoutMonth {
			result = append(result, p)
		}
	}
	sortPayoutsByAmountDesc(result)
	return result, nil
}

func (m *Memory) PayoutsForPayee(_ context.Context, email string, payoutMonth commission.Month) ([]commission.Payout, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.payoutsForPayeeLocked(email, payoutMonth)
}

func (m *Memory) payoutsForPayeeLocked(email string, payoutMonth commission.Month) ([]commission.Payout, error) {
	var result []commission.Payout
	for _, p := range m.payouts {
		if p.PayeeEmail == email && p.PayoutMonth == payoutMonth {
			result = append(result, p)
		}
	}
	sortPayoutsByAmountDesc(result)
	return result, nil
}

// --- Administrative reset ---

func (m *Memory) PurgeFrom(_ context.Context, from commission.Month) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeFromLocked(from)
}

func (m *Memory) purgeFromLocked(from commission.Month) error {
	for k, inv := range m.invoices {
		if inv.Month.AfterOrEqual(from) {
			delete(m.invoices, k)
		}
	}
	keptCollections := m.collections[:0]
	for _, c := range m.collections {
		if !c.Month.AfterOrEqual(from) {
			keptCollections = append(keptCollections, c)
		}
	}
	m.collections = keptCollections

	for k := range m.summaries {
		if k.Month.AfterOrEqual(from) {
			delete(m.summaries, k)
		}
	}

	keptPayouts := m.payouts[:0]
	for _, p := range m.payouts {
		if !p.SourceMonth.AfterOrEqual(from) {
			keptPayouts = append(keptPayouts, p)
		}
	}
	m.payouts = keptPayouts
	return nil
}

// classOfLocked returns the class of a payee, or "" when the payee is
// unknown. Class-scoped replacement ignores rows of unknown payees;
// roster reconciliation runs before replacement, so every row in a
// valid batch has a known payee.
func (m *Memory) classOfLocked(email string) commission.PayeeClass {
	cfg, ok := m.payees[email]
	if !ok {
		return ""
	}
	return cfg.Class
}

func sortPayoutsByAmountDesc(payouts []commission.Payout) {
	sort.SliceStable(payouts, func(i, j int) bool {
		return payouts[i].Amount.GreaterThan(payouts[j].Amount)
	})
}

// =============================================================================
// TRANSACTIONAL MEMORY STORE
// =============================================================================

// TxMemory wraps Memory with transaction support.
type TxMemory struct {
	*Memory
}

func NewTxMemory() *TxMemory {
	return &TxMemory{Memory: NewMemory()}
}

// WithTx executes fn within a transaction, simulated with a snapshot
// taken up front and restored on error.
func (tm *TxMemory) WithTx(ctx context.Context, fn func(commission.RecordStore) error) error {
	tm.mu.Lock()
	defer tm.mu.Unlock()

	snapshot := tm.snapshot()

	if err := fn(&txMemoryView{parent: tm.Memory}); err != nil {
		tm.restore(snapshot)
		return err
	}
	return nil
}

func (tm *TxMemory) snapshot() memorySnapshot {
	s := memorySnapshot{
		payees:      make(map[string]commission.PayeeConfig, len(tm.payees)),
		invoices:    make(map[dealKey]commission.Invoice, len(tm.invoices)),
		collections: append([]commission.Collection{}, tm.collections...),
		summaries:   make(map[summaryKey]commission.MonthlySummary, len(tm.summaries)),
		payouts:     append([]commission.Payout{}, tm.payouts...),
	}
	for k, v := range tm.payees {
		s.payees[k] = v
	}
	for k, v := range tm.invoices {
		s.invoices[k] = v
	}
	for k, v := range tm.summaries {
		s.summaries[k] = v
	}
	return s
}

func (tm *TxMemory) restore(s memorySnapshot) {
	tm.payees = s.payees
	tm.invoices = s.invoices
	tm.collections = s.collections
	tm.summaries = s.summaries
	tm.payouts = s.payouts
}

type memorySnapshot struct {
	payees      map[string]commission.PayeeConfig
	invoices    map[dealKey]commission.Invoice
	collections []commission.Collection
	summaries   map[summaryKey]commission.MonthlySummary
	payouts     []commission.Payout
}

// txMemoryView routes calls to the locked helpers while the outer
// WithTx holds the write lock.
type txMemoryView struct {
	parent *Memory
}

func (tv *txMemoryView) SavePayee(_ context.Context, cfg commission.PayeeConfig) error {
	return tv.parent.savePayeeLocked(cfg)
}

func (tv *txMemoryView) GetPayee(_ context.Context, email string) (*commission.PayeeConfig, error) {
	return tv.parent.getPayeeLocked(email)
}

func (tv *txMemoryView) ListPayees(_ context.Context, class commission.PayeeClass) ([]commission.PayeeConfig, error) {
	return tv.parent.listPayeesLocked(class)
}

func (tv *txMemoryView) ReplaceInvoices(_ context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Invoice) error {
	return tv.parent.replaceInvoicesLocked(month, class, rows)
}

func (tv *txMemoryView) InvoicesFor(_ context.Context, email string, month commission.Month) ([]commission.Invoice, error) {
	return tv.parent.invoicesForLocked(email, month)
}

func (tv *txMemoryView) InvoiceByDeal(_ context.Context, email, dealID string) (*commission.Invoice, error) {
	return tv.parent.invoiceByDealLocked(email, dealID)
}

func (tv *txMemoryView) InvoicesByDeals(_ context.Context, email string, dealIDs []string) (map[string]commission.Invoice, error) {
	return tv.parent.invoicesByDealsLocked(email, dealIDs)
}

func (tv *txMemoryView) AdjustInvoice(_ context.Context, email, dealID string, decrement decimal.Decimal) error {
	return tv.parent.adjustInvoiceLocked(email, dealID, decrement)
}

func (tv *txMemoryView) ReplaceCollections(_ context.Context, month commission.Month, class commission.PayeeClass, rows []commission.Collection) error {
	return tv.parent.replaceCollectionsLocked(month, class, rows)
}

func (tv *txMemoryView) CollectionsFor(_ context.Context, email string, month commission.Month) ([]commission.Collection, error) {
	return tv.parent.collectionsForLocked(email, month)
}

func (tv *txMemoryView) UpsertSummary(_ context.Context, s commission.MonthlySummary) error {
	return tv.parent.upsertSummaryLocked(s)
}

func (tv *txMemoryView) GetSummary(_ context.Context, email string, month commission.Month) (*commission.MonthlySummary, error) {
	return tv.parent.getSummaryLocked(email, month)
}

func (tv *txMemoryView) SummariesFor(_ context.Context, email string) ([]commission.MonthlySummary, error) {
	return tv.parent.summariesForLocked(email)
}

func (tv *txMemoryView) LatestSummaryMonth(_ context.Context) (*commission.Month, error) {
	return tv.parent.latestSummaryMonthLocked()
}

func (tv *txMemoryView) ReplacePayouts(_ context.Context, email string, sourceMonth commission.Month, rows []commission.Payout) error {
	return tv.parent.replacePayoutsLocked(email, sourceMonth, rows)
}

func (tv *txMemoryView) PayoutsBySource(_ context.Context, email string, sourceMonth commission.Month) ([]commission.Payout, error) {
	return tv.parent.payoutsBySourceLocked(email, sourceMonth)
}

func (tv *txMemoryView) PayoutsByMonth(_ context.Context, payoutMonth commission.Month) ([]commission.Payout, error) {
	return tv.parent.payoutsByMonthLocked(payoutMonth)
}

func (tv *txMemoryView) PayoutsForPayee(_ context.Context, email string, payoutMonth commission.Month) ([]commission.Payout, error) {
	return tv.parent.payoutsForPayeeLocked(email, payoutMonth)
}

func (tv *txMemoryView) PurgeFrom(_ context.Context, from commission.Month) error {
	return tv.parent.purgeFromLocked(from)
}
