/*
Package commission implements the commission recalculation engine.

PURPOSE:
  Turns monthly uploads of raw per-deal invoice and collection rows into
  per-payee monthly summaries and a ledger of payout records, under four
  rate-resolution policies, with retroactive corrections that ripple
  forward through already-computed months.

KEY CONCEPTS IN THIS FILE (types.go):
  - PayeeConfig: identity, payee class, and the class-specific rate schedule
  - Invoice / Collection: the two raw facts uploaded each month
  - MonthlySummary: materialized per-(payee, month) totals, always derivable
  - Payout: one ledger row per (payee, sourceMonth, rate component)

DESIGN PRINCIPLES:
  1. Precision: amounts and rates are decimal.Decimal, never float64
  2. Re-derivability: summaries and payouts are caches over raw rows;
     reprocessing a month always yields the same ledger
  3. Closed dispatch: payee classes form a closed set, resolved by
     exhaustive switching rather than runtime flag checks

SEE ALSO:
  - resolver.go: the four rate policies
  - synthesizer.go: payout row generation (delete-then-recreate)
  - orchestrator.go: dirty-range recomputation
*/
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// PAYEE CLASS - Closed set of commission policies
// =============================================================================

// PayeeClass selects which rate policy applies to a payee. The set is
// closed; every switch over it handles all four cases.
type PayeeClass string

const (
	// ClassRecruiter: flat base rate until lifetime collections cross a
	// threshold, then an elevated base rate plus a deferred bonus on the
	// excess over the threshold in any month.
	ClassRecruiter PayeeClass = "recruiter"

	// ClassRecruitmentManager: per-collection base rate in the collection
	// month plus a tier bonus, deferred one month, whose rate depends on
	// the invoice month's invoiced total.
	ClassRecruitmentManager PayeeClass = "recruitment_manager"

	// ClassAccountExecutive: monthly tier lookup against the month's
	// collected total. No deferral.
	ClassAccountExecutive PayeeClass = "account_executive"

	// ClassAccountManager: domestic managers earn a flat rate plus a
	// deal-owner bonus; non-domestic managers follow the recruitment
	// manager policy with the same deal-owner bonus.
	ClassAccountManager PayeeClass = "account_manager"
)

// Valid reports whether c is one of the four known classes.
func (c PayeeClass) Valid() bool {
	switch c {
	case ClassRecruiter, ClassRecruitmentManager, ClassAccountExecutive, ClassAccountManager:
		return true
	}
	return false
}

// AutoProvision reports whether unknown payees of this class are created
// on the fly during an upload. Recruiter and recruitment-manager rosters
// are derived from the upload file itself; executive and account-manager
// configs carry rate schedules an admin must create first, so unknown
// payees of those classes are rejected.
func (c PayeeClass) AutoProvision() bool {
	return c == ClassRecruiter || c == ClassRecruitmentManager
}

// =============================================================================
// PAYEE CONFIG - Rate schedule, owned by the admin, read-only to the engine
// =============================================================================

// RateTier is one rung of a tier ladder: rate applies once the compared
// total reaches Threshold (inclusive).
type RateTier struct {
	Rate      decimal.Decimal
	Threshold decimal.Decimal
}

// PayeeConfig holds a payee's identity and class-specific rate schedule.
//
// Field usage by class:
//
//	recruiter:            BaseRate, Tiers[0] (elevated rate + lifetime threshold)
//	recruitment_manager:  BaseRate, Tiers (bonus ladder on invoice-month totals)
//	account_executive:    BaseRate, Tiers, TiersEnabled
//	account_manager:      Domestic, DomesticRate, OwnerBonusRate,
//	                      plus BaseRate/Tiers when not domestic
type PayeeConfig struct {
	Email string
	Name  string
	Class PayeeClass

	BaseRate     decimal.Decimal
	Tiers        []RateTier // up to three, strictly ascending when enabled
	TiersEnabled bool

	Domestic       bool
	DomesticRate   decimal.Decimal
	OwnerBonusRate decimal.Decimal
}

// Validate checks the tier-monotonicity invariant: when the ladder is
// enabled, rates and thresholds must both be strictly ascending.
func (c PayeeConfig) Validate() error {
	if !c.Class.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownPayeeClass, c.Class)
	}
	if len(c.Tiers) > 3 {
		return fmt.Errorf("%w: at most three tiers, got %d", ErrInvalidTierLadder, len(c.Tiers))
	}
	if !c.TiersEnabled {
		return nil
	}
	for i := 1; i < len(c.Tiers); i++ {
		if !c.Tiers[i].Rate.GreaterThan(c.Tiers[i-1].Rate) {
			return fmt.Errorf("%w: tier %d rate %s not above tier %d rate %s",
				ErrInvalidTierLadder, i+1, c.Tiers[i].Rate, i, c.Tiers[i-1].Rate)
		}
		if !c.Tiers[i].Threshold.GreaterThan(c.Tiers[i-1].Threshold) {
			return fmt.Errorf("%w: tier %d threshold %s not above tier %d threshold %s",
				ErrInvalidTierLadder, i+1, c.Tiers[i].Threshold, i, c.Tiers[i-1].Threshold)
		}
	}
	return nil
}

// =============================================================================
// RAW FACTS - Invoice and Collection rows
// =============================================================================

// Invoice is the billed amount for one deal in one month. AmountInvoiced
// is signed: a negative row in an upload is a correction against a prior
// positive row (see adjustment.go) and never stored as-is.
type Invoice struct {
	DealID         string // natural key, unique per payee
	PayeeEmail     string
	DealName       string
	DealLink       string
	AmountInvoiced decimal.Decimal
	Month          Month
	DealOwner      bool
}

// Collection is cash actually received for a deal in a month. A deal may
// collect across several months; each row is the unit the resolver and
// synthesizer operate on.
type Collection struct {
	ID         string // surrogate key, used by read-side reconciliation
	DealID     string
	PayeeEmail string
	AmountPaid decimal.Decimal
	Month      Month
}

// =============================================================================
// DERIVED RECORDS - Summary and Payout, exclusively owned by the engine
// =============================================================================

// MonthlySummary is the materialized invoice/collection totals for one
// (payee, month). Always overwritable; never hand-edited.
type MonthlySummary struct {
	PayeeEmail       string
	Month            Month
	TotalInvoiced    decimal.Decimal
	TotalCollections decimal.Decimal
}

// PayoutKind discriminates the rate component a payout row came from.
type PayoutKind string

const (
	PayoutBase       PayoutKind = "base"
	PayoutTierBonus  PayoutKind = "tier_bonus"
	PayoutOwnerBonus PayoutKind = "owner_bonus"
)

// Payout is one ledger row. SourceMonth is the month whose collections
// funded it; PayoutMonth is the month it is disbursed (SourceMonth+1 for
// deferred bonus components).
//
// Invariant: the full set of payout rows for a (payee, sourceMonth) is
// always deleted and regenerated together.
type Payout struct {
	PayeeEmail     string
	SourceMonth    Month
	PayoutMonth    Month
	Kind           PayoutKind
	CommissionRate decimal.Decimal
	Amount         decimal.Decimal
	Description    string // human-readable calculation trace, optional
}

// Deferred reports whether the payout is disbursed later than the month
// that funded it.
func (p Payout) Deferred() bool { return p.PayoutMonth.After(p.SourceMonth) }
