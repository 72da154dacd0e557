package commission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/commission"
	memstore "github.com/warp/commission-engine/commission/store"
)

func TestReporter_YearSeriesZeroFillsQuietMonths(t *testing.T) {
	// GIVEN: A payee with activity in March only
	// WHEN: Requesting the 2025 series
	// THEN: Twelve rows come back; eleven are zero

	ctx := context.Background()
	s := memstore.NewTxMemory()
	seedRecruiter(t, s, "r@example.com")
	mar := commission.MustMonth("2025-03")

	require.NoError(t, s.UpsertSummary(ctx, summaryRow("r@example.com", "2025-03", 10000, 8000)))
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", mar, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: mar, PayoutMonth: mar,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(160)},
	}))

	reporter := &commission.Reporter{Store: s}
	rows, err := reporter.YearSeries(ctx, "r@example.com", 2025)
	require.NoError(t, err)
	require.Len(t, rows, 12)

	assert.True(t, rows[0].TotalInvoiced.IsZero())
	assert.True(t, rows[0].TotalPayout.IsZero())

	assert.Equal(t, mar, rows[2].Month)
	assert.True(t, rows[2].TotalInvoiced.Equal(money(10000)))
	assert.True(t, rows[2].TotalCollections.Equal(money(8000)))
	assert.True(t, rows[2].TotalPayout.Equal(money(160)))
}

func TestReporter_YearSeriesCountsPayoutsByDisbursement(t *testing.T) {
	// A deferred bonus earned in January but paid in February shows up in
	// the February row.

	ctx := context.Background()
	s := memstore.NewTxMemory()
	seedRecruiter(t, s, "r@example.com")
	jan := commission.MustMonth("2025-01")
	feb := commission.MustMonth("2025-02")

	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.03), Amount: money(1350)},
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: feb,
			Kind: commission.PayoutTierBonus, CommissionRate: rate(0.02), Amount: money(300)},
	}))

	reporter := &commission.Reporter{Store: s}
	rows, err := reporter.YearSeries(ctx, "r@example.com", 2025)
	require.NoError(t, err)

	assert.True(t, rows[0].TotalPayout.Equal(money(1350)))
	assert.True(t, rows[1].TotalPayout.Equal(money(300)))
}

func TestReporter_UnknownPayeeIsNotFound(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewTxMemory()
	reporter := &commission.Reporter{Store: s}

	_, err := reporter.YearSeries(ctx, "ghost@example.com", 2025)
	assert.ErrorIs(t, err, commission.ErrPayeeNotFound)
	assert.True(t, commission.IsNotFound(err))

	_, err = reporter.MonthDetails(ctx, "ghost@example.com", commission.MustMonth("2025-01"))
	assert.ErrorIs(t, err, commission.ErrPayeeNotFound)
}

func TestReporter_MonthDetails(t *testing.T) {
	// GIVEN: A month with an invoice, a collection, and a payout
	// WHEN: Drilling into it
	// THEN: Collections carry the invoice's deal metadata and TotalPayout
	//       sums the disbursed rows

	ctx := context.Background()
	s := memstore.NewTxMemory()
	seedRecruiter(t, s, "r@example.com")
	jan := commission.MustMonth("2025-01")

	require.NoError(t, s.ReplaceInvoices(ctx, jan, commission.ClassRecruiter, []commission.Invoice{
		{DealID: "d1", PayeeEmail: "r@example.com", DealName: "Acme Retainer", DealLink: "https://crm/d1",
			AmountInvoiced: money(10000), Month: jan},
	}))
	require.NoError(t, s.ReplaceCollections(ctx, jan, commission.ClassRecruiter, []commission.Collection{
		{ID: "c1", DealID: "d1", PayeeEmail: "r@example.com", AmountPaid: money(10000), Month: jan},
	}))
	require.NoError(t, s.UpsertSummary(ctx, summaryRow("r@example.com", "2025-01", 10000, 10000)))
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(200)},
	}))

	reporter := &commission.Reporter{Store: s}
	details, err := reporter.MonthDetails(ctx, "r@example.com", jan)
	require.NoError(t, err)

	assert.True(t, details.Summary.TotalInvoiced.Equal(money(10000)))
	require.Len(t, details.Invoices, 1)
	require.Len(t, details.Collections, 1)
	assert.Equal(t, "Acme Retainer", details.Collections[0].DealName)
	require.Len(t, details.Payouts, 1)
	assert.True(t, details.TotalPayout.Equal(money(200)))
}

func TestReporter_MonthDetailsEmptyMonth(t *testing.T) {
	ctx := context.Background()
	s := memstore.NewTxMemory()
	seedRecruiter(t, s, "r@example.com")

	reporter := &commission.Reporter{Store: s}
	details, err := reporter.MonthDetails(ctx, "r@example.com", commission.MustMonth("2025-06"))
	require.NoError(t, err)

	assert.True(t, details.Summary.TotalInvoiced.IsZero())
	assert.Empty(t, details.Invoices)
	assert.Empty(t, details.Collections)
	assert.Empty(t, details.Payouts)
	assert.True(t, details.TotalPayout.IsZero())
}

func TestReporter_PayoutsByMonthListsAllPayeesLargestFirst(t *testing.T) {
	// GIVEN: Two payees with payouts disbursed in January
	// WHEN: Listing the admin view
	// THEN: Rows are ordered by amount descending and carry payee names

	ctx := context.Background()
	s := memstore.NewTxMemory()
	jan := commission.MustMonth("2025-01")

	require.NoError(t, s.SavePayee(ctx, commission.RecruiterConfig("a@example.com", "Ann")))
	require.NoError(t, s.SavePayee(ctx, commission.RecruiterConfig("b@example.com", "Ben")))

	require.NoError(t, s.ReplacePayouts(ctx, "a@example.com", jan, []commission.Payout{
		{PayeeEmail: "a@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(100)},
	}))
	require.NoError(t, s.ReplacePayouts(ctx, "b@example.com", jan, []commission.Payout{
		{PayeeEmail: "b@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(400)},
	}))

	reporter := &commission.Reporter{Store: s}
	rows, err := reporter.PayoutsByMonth(ctx, jan)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "Ben", rows[0].PayeeName)
	assert.True(t, rows[0].Detail.Payout.Amount.Equal(money(400)))
	assert.Equal(t, "Ann", rows[1].PayeeName)
	assert.True(t, rows[1].Detail.Payout.Amount.Equal(money(100)))
}
