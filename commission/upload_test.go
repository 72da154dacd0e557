package commission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/commission"
	memstore "github.com/warp/commission-engine/commission/store"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestEngine(t *testing.T) (*commission.Engine, *memstore.TxMemory) {
	t.Helper()
	s := memstore.NewTxMemory()
	return commission.NewEngine(s, nil), s
}

func recruiterBatch(month string, invoiced, collected int64) commission.UploadBatch {
	m := commission.MustMonth(month)
	return commission.UploadBatch{
		Class: commission.ClassRecruiter,
		Invoices: []commission.InvoiceUpload{
			{DealID: "d1", DealName: "Deal One", PayeeEmail: "r@example.com", PayeeName: "Rae",
				AmountInvoiced: money(invoiced), Month: m},
		},
		Collections: []commission.CollectionUpload{
			{DealID: "d1", PayeeEmail: "r@example.com", PayeeName: "Rae",
				AmountPaid: money(collected), Month: m},
		},
	}
}

// =============================================================================
// HAPPY PATH
// =============================================================================

func TestProcessUpload_ProvisionsPayeeAndGeneratesPayouts(t *testing.T) {
	// GIVEN: An empty system
	// WHEN: Uploading a recruiter month with $10,000 invoiced and collected
	// THEN: The payee is auto-provisioned with the stock schedule and a
	//       2% base payout is written

	ctx := context.Background()
	engine, s := newTestEngine(t)

	result, err := engine.ProcessUpload(ctx, recruiterBatch("2025-01", 10000, 10000))
	require.NoError(t, err)
	assert.True(t, result.Success)

	cfg, err := s.GetPayee(ctx, "r@example.com")
	require.NoError(t, err)
	require.NotNil(t, cfg)
	assert.Equal(t, commission.ClassRecruiter, cfg.Class)
	assert.Equal(t, "Rae", cfg.Name)

	jan := commission.MustMonth("2025-01")
	payouts, err := s.PayoutsBySource(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.True(t, payouts[0].Amount.Equal(money(200)))

	summary, err := s.GetSummary(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.True(t, summary.TotalInvoiced.Equal(money(10000)))
	assert.True(t, summary.TotalCollections.Equal(money(10000)))
}

func TestProcessUpload_ReuploadConverges(t *testing.T) {
	// Re-uploading the same month replaces the raw rows and regenerates
	// the same ledger; nothing accumulates.

	ctx := context.Background()
	engine, s := newTestEngine(t)

	_, err := engine.ProcessUpload(ctx, recruiterBatch("2025-01", 10000, 10000))
	require.NoError(t, err)
	_, err = engine.ProcessUpload(ctx, recruiterBatch("2025-01", 10000, 10000))
	require.NoError(t, err)

	jan := commission.MustMonth("2025-01")
	invoices, err := s.InvoicesFor(ctx, "r@example.com", jan)
	require.NoError(t, err)
	assert.Len(t, invoices, 1)

	payouts, err := s.PayoutsBySource(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.True(t, payouts[0].Amount.Equal(money(200)))
}

func TestProcessUpload_EmptyBatchIsNoop(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	result, err := engine.ProcessUpload(ctx, commission.UploadBatch{Class: commission.ClassRecruiter})
	require.NoError(t, err)
	assert.True(t, result.Success)
}

// =============================================================================
// REJECTED BATCHES
// =============================================================================

func TestProcessUpload_MultiMonthBatchRejected(t *testing.T) {
	// GIVEN: A batch mixing January and February rows
	// WHEN: Processing it
	// THEN: The whole batch fails and nothing is committed

	ctx := context.Background()
	engine, s := newTestEngine(t)

	batch := recruiterBatch("2025-01", 10000, 10000)
	batch.Collections[0].Month = commission.MustMonth("2025-02")

	result, err := engine.ProcessUpload(ctx, batch)
	assert.ErrorIs(t, err, commission.ErrMultiMonthUpload)
	assert.False(t, result.Success)

	cfg, err := s.GetPayee(ctx, "r@example.com")
	require.NoError(t, err)
	assert.Nil(t, cfg, "nothing should be committed")
}

func TestProcessUpload_UnknownClassRejected(t *testing.T) {
	ctx := context.Background()
	engine, _ := newTestEngine(t)

	_, err := engine.ProcessUpload(ctx, commission.UploadBatch{Class: "wizard"})
	assert.ErrorIs(t, err, commission.ErrUnknownPayeeClass)
}

func TestProcessUpload_UnknownExecutiveRejected(t *testing.T) {
	// GIVEN: No configured account executives
	// WHEN: Uploading executive rows for an unconfigured payee
	// THEN: The batch fails with UnknownPayeeError; executives are never
	//       auto-provisioned

	ctx := context.Background()
	engine, s := newTestEngine(t)

	jan := commission.MustMonth("2025-01")
	batch := commission.UploadBatch{
		Class: commission.ClassAccountExecutive,
		Collections: []commission.CollectionUpload{
			{DealID: "d1", PayeeEmail: "e@example.com", PayeeName: "Eve", AmountPaid: money(5000), Month: jan},
		},
	}

	result, err := engine.ProcessUpload(ctx, batch)
	assert.False(t, result.Success)

	var unknownErr *commission.UnknownPayeeError
	require.ErrorAs(t, err, &unknownErr)
	assert.Equal(t, commission.ClassAccountExecutive, unknownErr.Class)
	assert.Equal(t, []string{"e@example.com"}, unknownErr.Emails)
	assert.True(t, commission.IsClientError(err))

	cfg, err := s.GetPayee(ctx, "e@example.com")
	require.NoError(t, err)
	assert.Nil(t, cfg)
}

func TestProcessUpload_DanglingAdjustmentFailsAndRollsBack(t *testing.T) {
	// GIVEN: A batch with a correction against a deal that was never recorded
	// WHEN: Processing it
	// THEN: The batch fails fatally and its valid rows are rolled back too

	ctx := context.Background()
	engine, s := newTestEngine(t)

	jan := commission.MustMonth("2025-01")
	batch := commission.UploadBatch{
		Class: commission.ClassRecruiter,
		Invoices: []commission.InvoiceUpload{
			{DealID: "d-new", PayeeEmail: "r@example.com", PayeeName: "Rae", AmountInvoiced: money(5000), Month: jan},
			{DealID: "d-ghost", PayeeEmail: "r@example.com", PayeeName: "Rae", AmountInvoiced: money(-1000), Month: jan},
		},
	}

	result, err := engine.ProcessUpload(ctx, batch)
	assert.False(t, result.Success)

	var dangling *commission.DanglingAdjustmentError
	require.ErrorAs(t, err, &dangling)
	assert.Equal(t, "d-ghost", dangling.DealID)

	invoices, err := s.InvoicesFor(ctx, "r@example.com", jan)
	require.NoError(t, err)
	assert.Empty(t, invoices, "valid rows of a failed batch must not persist")
}

// =============================================================================
// RETROACTIVE ADJUSTMENTS
// =============================================================================

func TestProcessUpload_AdjustmentRipplesBackAndForward(t *testing.T) {
	// GIVEN: January processed with a $10,000 invoice
	// WHEN: A March upload carries a -$3,000 correction against that deal
	// THEN: The original invoice nets to $7,000, the January summary is
	//       recomputed, and the dirty range covers January through March

	ctx := context.Background()
	engine, s := newTestEngine(t)

	_, err := engine.ProcessUpload(ctx, recruiterBatch("2025-01", 10000, 10000))
	require.NoError(t, err)

	mar := commission.MustMonth("2025-03")
	correction := commission.UploadBatch{
		Class: commission.ClassRecruiter,
		Invoices: []commission.InvoiceUpload{
			{DealID: "d1", PayeeEmail: "r@example.com", PayeeName: "Rae", AmountInvoiced: money(-3000), Month: mar},
		},
	}
	result, err := engine.ProcessUpload(ctx, correction)
	require.NoError(t, err)
	assert.True(t, result.Success)

	jan := commission.MustMonth("2025-01")
	inv, err := s.InvoiceByDeal(ctx, "r@example.com", "d1")
	require.NoError(t, err)
	require.NotNil(t, inv)
	assert.True(t, inv.AmountInvoiced.Equal(money(7000)))
	assert.Equal(t, jan, inv.Month, "correction decrements the original, not a March row")

	summary, err := s.GetSummary(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.True(t, summary.TotalInvoiced.Equal(money(7000)))

	// Every month in [Jan..Mar] has a summary after the recalculation.
	summaries, err := s.SummariesFor(ctx, "r@example.com")
	require.NoError(t, err)
	assert.Len(t, summaries, 3)

	// The collection-funded payout is untouched by the invoice correction.
	payouts, err := s.PayoutsBySource(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.Len(t, payouts, 1)
	assert.True(t, payouts[0].Amount.Equal(money(200)))
}

// =============================================================================
// CROSS-MONTH PHASE ORDERING
// =============================================================================

func TestProcessUpload_ManagerBonusRatedByLaterInvoiceMonth(t *testing.T) {
	// GIVEN: A deal invoiced in February for $150,000, collected in January
	// WHEN: The January collections arrive after the February invoices
	// THEN: The January bonus is rated by February's invoiced total, which
	//       requires aggregation of the whole range before synthesis

	ctx := context.Background()
	engine, s := newTestEngine(t)
	jan := commission.MustMonth("2025-01")
	feb := commission.MustMonth("2025-02")

	febInvoices := commission.UploadBatch{
		Class: commission.ClassRecruitmentManager,
		Invoices: []commission.InvoiceUpload{
			{DealID: "d9", PayeeEmail: "m@example.com", PayeeName: "Mo", AmountInvoiced: money(150000), Month: feb},
		},
	}
	_, err := engine.ProcessUpload(ctx, febInvoices)
	require.NoError(t, err)

	janCollections := commission.UploadBatch{
		Class: commission.ClassRecruitmentManager,
		Collections: []commission.CollectionUpload{
			{DealID: "d9", PayeeEmail: "m@example.com", PayeeName: "Mo", AmountPaid: money(10000), Month: jan},
		},
	}
	_, err = engine.ProcessUpload(ctx, janCollections)
	require.NoError(t, err)

	payouts, err := s.PayoutsBySource(ctx, "m@example.com", jan)
	require.NoError(t, err)
	require.Len(t, payouts, 2)

	var base, bonus *commission.Payout
	for i := range payouts {
		switch payouts[i].Kind {
		case commission.PayoutBase:
			base = &payouts[i]
		case commission.PayoutTierBonus:
			bonus = &payouts[i]
		}
	}
	require.NotNil(t, base)
	require.NotNil(t, bonus)

	assert.True(t, base.Amount.Equal(money(100)), "1 percent of $10,000")
	assert.Equal(t, jan, base.PayoutMonth)

	assert.True(t, bonus.Amount.Equal(money(50)), "0.5 percent tier from the $150,000 invoice month")
	assert.Equal(t, feb, bonus.PayoutMonth)
}

// =============================================================================
// PURGE
// =============================================================================

func TestPurgeFrom_DropsRawAndDerivedRows(t *testing.T) {
	// GIVEN: January and February processed
	// WHEN: Purging from February
	// THEN: January survives intact; February is gone everywhere

	ctx := context.Background()
	engine, s := newTestEngine(t)

	_, err := engine.ProcessUpload(ctx, recruiterBatch("2025-01", 10000, 10000))
	require.NoError(t, err)
	feb := commission.MustMonth("2025-02")
	batch := commission.UploadBatch{
		Class: commission.ClassRecruiter,
		Collections: []commission.CollectionUpload{
			{DealID: "d2", PayeeEmail: "r@example.com", PayeeName: "Rae", AmountPaid: money(5000), Month: feb},
		},
	}
	_, err = engine.ProcessUpload(ctx, batch)
	require.NoError(t, err)

	require.NoError(t, engine.PurgeFrom(ctx, feb))

	jan := commission.MustMonth("2025-01")
	janPayouts, err := s.PayoutsBySource(ctx, "r@example.com", jan)
	require.NoError(t, err)
	assert.Len(t, janPayouts, 1)

	febPayouts, err := s.PayoutsBySource(ctx, "r@example.com", feb)
	require.NoError(t, err)
	assert.Empty(t, febPayouts)

	febSummary, err := s.GetSummary(ctx, "r@example.com", feb)
	require.NoError(t, err)
	assert.Nil(t, febSummary)

	febCollections, err := s.CollectionsFor(ctx, "r@example.com", feb)
	require.NoError(t, err)
	assert.Empty(t, febCollections)
}
