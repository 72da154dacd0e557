package sqlite_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/commission"
	"github.com/warp/commission-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	t.Helper()
	s, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func money(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestSQLite_PayeeRoundTrip(t *testing.T) {
	// GIVEN: A payee with a full tier ladder
	// WHEN: Saving and reloading it
	// THEN: Every field survives, including the tier decimals

	ctx := context.Background()
	s := newTestStore(t)

	cfg := commission.PayeeConfig{
		Email:    "m@example.com",
		Name:     "Mo",
		Class:    commission.ClassRecruitmentManager,
		BaseRate: decimal.NewFromFloat(0.01),
		Tiers: []commission.RateTier{
			{Rate: decimal.NewFromFloat(0.0025), Threshold: money(100000)},
			{Rate: decimal.NewFromFloat(0.005), Threshold: money(150000)},
		},
		TiersEnabled: true,
	}
	require.NoError(t, s.SavePayee(ctx, cfg))

	loaded, err := s.GetPayee(ctx, "m@example.com")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, cfg.Name, loaded.Name)
	assert.Equal(t, cfg.Class, loaded.Class)
	assert.True(t, loaded.BaseRate.Equal(cfg.BaseRate))
	require.Len(t, loaded.Tiers, 2)
	assert.True(t, loaded.Tiers[1].Rate.Equal(decimal.NewFromFloat(0.005)))
	assert.True(t, loaded.Tiers[1].Threshold.Equal(money(150000)))
	assert.True(t, loaded.TiersEnabled)

	missing, err := s.GetPayee(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestSQLite_SavePayeeUpserts(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	cfg := commission.RecruiterConfig("r@example.com", "Rae")
	require.NoError(t, s.SavePayee(ctx, cfg))
	cfg.Name = "Rae Updated"
	require.NoError(t, s.SavePayee(ctx, cfg))

	loaded, err := s.GetPayee(ctx, "r@example.com")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, "Rae Updated", loaded.Name)

	all, err := s.ListPayees(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_ListPayeesFiltersByClass(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	require.NoError(t, s.SavePayee(ctx, commission.RecruiterConfig("r@example.com", "Rae")))
	require.NoError(t, s.SavePayee(ctx, commission.RecruitmentManagerConfig("m@example.com", "Mo")))

	recruiters, err := s.ListPayees(ctx, commission.ClassRecruiter)
	require.NoError(t, err)
	require.Len(t, recruiters, 1)
	assert.Equal(t, "r@example.com", recruiters[0].Email)

	all, err := s.ListPayees(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestSQLite_ReplaceInvoicesIsClassScoped(t *testing.T) {
	// Replacing one class's rows for a month must not touch another
	// class's rows in the shared table.

	ctx := context.Background()
	s := newTestStore(t)
	jan := commission.MustMonth("2025-01")

	require.NoError(t, s.SavePayee(ctx, commission.RecruiterConfig("r@example.com", "Rae")))
	require.NoError(t, s.SavePayee(ctx, commission.RecruitmentManagerConfig("m@example.com", "Mo")))

	require.NoError(t, s.ReplaceInvoices(ctx, jan, commission.ClassRecruiter, []commission.Invoice{
		{DealID: "d1", PayeeEmail: "r@example.com", AmountInvoiced: money(1000), Month: jan},
	}))
	require.NoError(t, s.ReplaceInvoices(ctx, jan, commission.ClassRecruitmentManager, []commission.Invoice{
		{DealID: "d2", PayeeEmail: "m@example.com", AmountInvoiced: money(2000), Month: jan},
	}))

	require.NoError(t, s.ReplaceInvoices(ctx, jan, commission.ClassRecruiter, nil))

	recruiterRows, err := s.InvoicesFor(ctx, "r@example.com", jan)
	require.NoError(t, err)
	assert.Empty(t, recruiterRows)

	managerRows, err := s.InvoicesFor(ctx, "m@example.com", jan)
	require.NoError(t, err)
	assert.Len(t, managerRows, 1)
}

func TestSQLite_AdjustInvoice(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	jan := commission.MustMonth("2025-01")

	require.NoError(t, s.SavePayee(ctx, commission.RecruiterConfig("r@example.com", "Rae")))
	require.NoError(t, s.ReplaceInvoices(ctx, jan, commission.ClassRecruiter, []commission.Invoice{
		{DealID: "d1", PayeeEmail: "r@example.com", DealName: "Acme", AmountInvoiced: money(10000), Month: jan},
	}))

	require.NoError(t, s.AdjustInvoice(ctx, "r@example.com", "d1", decimal.NewFromFloat(2500.50)))

	inv, err := s.InvoiceByDeal(ctx, "r@example.com", "d1")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.AmountInvoiced.Equal(decimal.NewFromFloat(7499.50)))
	assert.Equal(t, jan, inv.Month)
}

func TestSQLite_ReplacePayoutsReplaces(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	jan := commission.MustMonth("2025-01")

	first := []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: decimal.NewFromFloat(0.02), Amount: money(200)},
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan.Next(),
			Kind: commission.PayoutTierBonus, CommissionRate: decimal.NewFromFloat(0.02), Amount: money(300)},
	}
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, first))

	second := []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: decimal.NewFromFloat(0.02), Amount: money(150)},
	}
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, second))

	payouts, err := s.PayoutsBySource(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.True(t, payouts[0].Amount.Equal(money(150)))

	// Clearing with nil removes the remaining row.
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, nil))
	payouts, err = s.PayoutsBySource(ctx, "r@example.com", jan)
	require.NoError(t, err)
	assert.Empty(t, payouts)
}

func TestSQLite_PayoutsByMonthOrdersByAmount(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	jan := commission.MustMonth("2025-01")

	require.NoError(t, s.ReplacePayouts(ctx, "a@example.com", jan, []commission.Payout{
		{PayeeEmail: "a@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: decimal.NewFromFloat(0.02), Amount: money(75)},
	}))
	require.NoError(t, s.ReplacePayouts(ctx, "b@example.com", jan, []commission.Payout{
		{PayeeEmail: "b@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: decimal.NewFromFloat(0.02), Amount: money(1200)},
	}))

	payouts, err := s.PayoutsByMonth(ctx, jan)
	require.NoError(t, err)
	require.Len(t, payouts, 2)
	assert.Equal(t, "b@example.com", payouts[0].PayeeEmail)
	assert.Equal(t, "a@example.com", payouts[1].PayeeEmail)
}

func TestSQLite_LatestSummaryMonth(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	latest, err := s.LatestSummaryMonth(ctx)
	require.NoError(t, err)
	assert.Nil(t, latest)

	for _, m := range []string{"2024-12", "2025-02", "2025-01"} {
		require.NoError(t, s.UpsertSummary(ctx, commission.MonthlySummary{
			PayeeEmail: "r@example.com", Month: commission.MustMonth(m),
			TotalInvoiced: money(0), TotalCollections: money(0),
		}))
	}

	latest, err = s.LatestSummaryMonth(ctx)
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, commission.MustMonth("2025-02"), *latest)
}

func TestSQLite_PurgeFromKeepsDeferredPayoutsOfEarlierMonths(t *testing.T) {
	// GIVEN: A January-sourced bonus paid in February, plus February rows
	// WHEN: Purging from February
	// THEN: The bonus survives; February rows are gone across all tables

	ctx := context.Background()
	s := newTestStore(t)
	jan := commission.MustMonth("2025-01")
	feb := commission.MustMonth("2025-02")

	require.NoError(t, s.SavePayee(ctx, commission.RecruiterConfig("r@example.com", "Rae")))
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: feb,
			Kind: commission.PayoutTierBonus, CommissionRate: decimal.NewFromFloat(0.02), Amount: money(300)},
	}))
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", feb, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: feb, PayoutMonth: feb,
			Kind: commission.PayoutBase, CommissionRate: decimal.NewFromFloat(0.02), Amount: money(100)},
	}))
	require.NoError(t, s.ReplaceCollections(ctx, feb, commission.ClassRecruiter, []commission.Collection{
		{ID: "c1", DealID: "d1", PayeeEmail: "r@example.com", AmountPaid: money(5000), Month: feb},
	}))
	require.NoError(t, s.UpsertSummary(ctx, commission.MonthlySummary{
		PayeeEmail: "r@example.com", Month: feb,
		TotalInvoiced: money(0), TotalCollections: money(5000),
	}))

	require.NoError(t, s.PurgeFrom(ctx, feb))

	janPayouts, err := s.PayoutsBySource(ctx, "r@example.com", jan)
	require.NoError(t, err)
	assert.Len(t, janPayouts, 1)

	febPayouts, err := s.PayoutsBySource(ctx, "r@example.com", feb)
	require.NoError(t, err)
	assert.Empty(t, febPayouts)

	febCollections, err := s.CollectionsFor(ctx, "r@example.com", feb)
	require.NoError(t, err)
	assert.Empty(t, febCollections)

	febSummary, err := s.GetSummary(ctx, "r@example.com", feb)
	require.NoError(t, err)
	assert.Nil(t, febSummary)
}

func TestSQLite_WithTxRollsBackOnError(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	jan := commission.MustMonth("2025-01")

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx commission.RecordStore) error {
		if err := tx.SavePayee(ctx, commission.RecruiterConfig("r@example.com", "Rae")); err != nil {
			return err
		}
		if err := tx.ReplaceInvoices(ctx, jan, commission.ClassRecruiter, []commission.Invoice{
			{DealID: "d1", PayeeEmail: "r@example.com", AmountInvoiced: money(5000), Month: jan},
		}); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	cfg, err := s.GetPayee(ctx, "r@example.com")
	require.NoError(t, err)
	assert.Nil(t, cfg)

	invoices, err := s.InvoicesFor(ctx, "r@example.com", jan)
	require.NoError(t, err)
	assert.Empty(t, invoices)
}

func TestSQLite_WithTxCommits(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	err := s.WithTx(ctx, func(tx commission.RecordStore) error {
		return tx.SavePayee(ctx, commission.RecruiterConfig("r@example.com", "Rae"))
	})
	require.NoError(t, err)

	cfg, err := s.GetPayee(ctx, "r@example.com")
	require.NoError(t, err)
	assert.NotNil(t, cfg)
}
