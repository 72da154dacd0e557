package commission_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/commission"
	memstore "github.com/warp/commission-engine/commission/store"
)

func TestReconciler_ExactMatch(t *testing.T) {
	// GIVEN: Two collections and a payout equal to one of them times its rate
	// WHEN: Reconciling the month
	// THEN: The payout is linked to the exact funding collection with the
	//       invoice's deal metadata

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
		{ID: "c2", DealID: "d2", PayeeEmail: "r@example.com", AmountPaid: money(3000), Month: jan},
	}))
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(200)},
	}))

	rec := &commission.Reconciler{Store: s}
	details, err := rec.PayoutDetails(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.Len(t, details, 1)

	d := details[0]
	assert.True(t, d.Exact)
	require.NotNil(t, d.Collection)
	assert.Equal(t, "c1", d.Collection.ID)
	assert.Equal(t, "Acme Retainer", d.DealName)
	assert.Equal(t, "https://crm/d1", d.DealLink)
}

func TestReconciler_EqualPayoutsClaimDistinctCollections(t *testing.T) {
	// Two identical collections fund two identical payouts. Consuming
	// matches means each payout claims its own collection.

	ctx := context.Background()
	s := memstore.NewTxMemory()
	seedRecruiter(t, s, "r@example.com")
	jan := commission.MustMonth("2025-01")

	require.NoError(t, s.ReplaceCollections(ctx, jan, commission.ClassRecruiter, []commission.Collection{
		{ID: "c1", DealID: "d1", PayeeEmail: "r@example.com", AmountPaid: money(5000), Month: jan},
		{ID: "c2", DealID: "d2", PayeeEmail: "r@example.com", AmountPaid: money(5000), Month: jan},
	}))
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(100), Description: "first"},
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(100), Description: "second"},
	}))

	rec := &commission.Reconciler{Store: s}
	details, err := rec.PayoutDetails(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.Len(t, details, 2)

	require.NotNil(t, details[0].Collection)
	require.NotNil(t, details[1].Collection)
	assert.NotEqual(t, details[0].Collection.ID, details[1].Collection.ID)
}

func TestReconciler_FallsBackToClosestCandidate(t *testing.T) {
	// GIVEN: No collection multiplies out to the payout amount
	// WHEN: Reconciling
	// THEN: The closest candidate is linked and flagged inexact

	ctx := context.Background()
	s := memstore.NewTxMemory()
	seedRecruiter(t, s, "r@example.com")
	jan := commission.MustMonth("2025-01")

	require.NoError(t, s.ReplaceCollections(ctx, jan, commission.ClassRecruiter, []commission.Collection{
		{ID: "c1", DealID: "d1", PayeeEmail: "r@example.com", AmountPaid: money(4000), Month: jan},
		{ID: "c2", DealID: "d2", PayeeEmail: "r@example.com", AmountPaid: money(9000), Month: jan},
	}))
	// 2% of $9,500: between the two candidates, nearer to c2.
	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: jan,
			Kind: commission.PayoutBase, CommissionRate: rate(0.02), Amount: money(190)},
	}))

	rec := &commission.Reconciler{Store: s}
	details, err := rec.PayoutDetails(ctx, "r@example.com", jan)
	require.NoError(t, err)
	require.Len(t, details, 1)

	assert.False(t, details[0].Exact)
	require.NotNil(t, details[0].Collection)
	assert.Equal(t, "c2", details[0].Collection.ID)
}

func TestReconciler_NoCandidatesLeavesPayoutBare(t *testing.T) {
	// A deferred bonus disbursed this month was funded by an earlier
	// source month; with no collections in that source month the payout
	// row comes back unlinked rather than erroring.

	ctx := context.Background()
	s := memstore.NewTxMemory()
	jan := commission.MustMonth("2025-01")
	feb := commission.MustMonth("2025-02")

	require.NoError(t, s.ReplacePayouts(ctx, "r@example.com", jan, []commission.Payout{
		{PayeeEmail: "r@example.com", SourceMonth: jan, PayoutMonth: feb,
			Kind: commission.PayoutTierBonus, CommissionRate: rate(0.02), Amount: money(300)},
	}))

	rec := &commission.Reconciler{Store: s}
	details, err := rec.PayoutDetails(ctx, "r@example.com", feb)
	require.NoError(t, err)
	require.Len(t, details, 1)
	assert.Nil(t, details[0].Collection)
	assert.False(t, details[0].Exact)
}
