/*
resolver.go - Rate resolution, one policy per payee class

PURPOSE:
  Maps a month of collections (plus deal context and summary history)
  to a list of rate components. Each component names the kind of payout
  it produces, the rate, the amount the rate applies to, and whether
  disbursement is deferred to the following month.

POLICIES:
  recruiter:            base rate on the month's collected total; once
                        lifetime collections ever reach the threshold,
                        an elevated base rate applies, and the excess of
                        a month's collections over the threshold earns a
                        deferred bonus.
  recruitment_manager:  per-collection base rate in the same month; a
                        tier bonus on the same collection, deferred one
                        month, rated by the invoiced total of the month
                        the deal was invoiced in.
  account_executive:    single rate for the month from a tier lookup
                        against the month's collected total.
  account_manager:      domestic: flat rate per collection plus a
                        deal-owner bonus; otherwise the recruitment
                        manager policy plus the deal-owner bonus.

PURITY:
  Resolve is a pure function of its input. The "ever crossed the
  threshold" state is derived by scanning summary history rather than
  read from a stored flag, so recomputing any month is order-independent.

EDGE CASES:
  - zero or negative totals/amounts yield no component (skip, not zero rows)
  - a nil config yields no components (rate 0, not an error)
  - tier comparisons are inclusive (>= threshold)
*/
package commission

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// RATE COMPONENT - Resolver output, synthesizer input
// =============================================================================

// RateComponent is one (rate, timing) pair produced by a policy. The
// payout amount is Basis * Rate.
type RateComponent struct {
	Kind        PayoutKind
	Rate        decimal.Decimal
	Basis       decimal.Decimal
	Deferred    bool
	Description string
}

// ResolveInput carries everything a policy may need. All fields are
// plain data; Resolve performs no I/O.
type ResolveInput struct {
	Config *PayeeConfig // nil resolves to no components
	Month  Month

	// Summary is the (payee, Month) summary. History is the payee's full
	// summary list, month-ascending, including Month itself; the
	// recruiter policy scans it for the lifetime threshold crossing.
	Summary MonthlySummary
	History []MonthlySummary

	// Collections are the payee's rows for Month. Invoices maps deal ID
	// to the deal's invoice (any month) for deal-owner and invoice-month
	// context. InvoiceMonthTotals maps an invoice month to its invoiced
	// total, as materialized in that month's summary.
	Collections        []Collection
	Invoices           map[string]Invoice
	InvoiceMonthTotals map[Month]decimal.Decimal
}

// Resolve dispatches to the payee class's policy. Exhaustive over the
// closed class set; an unknown class resolves to nothing.
func Resolve(in ResolveInput) []RateComponent {
	if in.Config == nil {
		return nil
	}
	switch in.Config.Class {
	case ClassRecruiter:
		return resolveFlatThreshold(in)
	case ClassRecruitmentManager:
		return resolveCumulativeTier(in)
	case ClassAccountExecutive:
		return resolveAccountTier(in)
	case ClassAccountManager:
		return resolveDualModeManager(in)
	default:
		return nil
	}
}

// =============================================================================
// RECRUITER - Flat threshold with sticky elevation and deferred excess bonus
// =============================================================================

func resolveFlatThreshold(in ResolveInput) []RateComponent {
	cfg := in.Config
	total := in.Summary.TotalCollections
	if !total.IsPositive() {
		return nil
	}

	rate := cfg.BaseRate
	crossed := false
	if len(cfg.Tiers) > 0 {
		threshold := cfg.Tiers[0].Threshold
		crossed = lifetimeCrossed(in.History, in.Month, threshold)
		if crossed {
			rate = cfg.Tiers[0].Rate
		}
	}

	components := []RateComponent{{
		Kind:  PayoutBase,
		Rate:  rate,
		Basis: total,
	}}

	// The excess of this month's collections over the threshold earns the
	// base rate again, paid out the following month. Only once elevated.
	if crossed {
		threshold := cfg.Tiers[0].Threshold
		if total.GreaterThan(threshold) {
			excess := total.Sub(threshold)
			components = append(components, RateComponent{
				Kind:     PayoutTierBonus,
				Rate:     cfg.BaseRate,
				Basis:    excess,
				Deferred: true,
				Description: fmt.Sprintf("%s - %s = %s * %s = %s",
					formatMoney(total), formatMoney(threshold), formatMoney(excess),
					formatRate(cfg.BaseRate), formatMoney(excess.Mul(cfg.BaseRate))),
			})
		}
	}
	return components
}

// lifetimeCrossed reports whether the running total of collections ever
// reached threshold in any month up to and including asOf. The crossing
// month itself already earns the elevated rate.
func lifetimeCrossed(history []MonthlySummary, asOf Month, threshold decimal.Decimal) bool {
	cumulative := decimal.Zero
	for _, s := range history {
		if s.Month.After(asOf) {
			break
		}
		cumulative = cumulative.Add(s.TotalCollections)
		if cumulative.GreaterThanOrEqual(threshold) {
			return true
		}
	}
	return false
}

// =============================================================================
// RECRUITMENT MANAGER - Per-collection base plus deferred invoice-month tier bonus
// =============================================================================

func resolveCumulativeTier(in ResolveInput) []RateComponent {
	var components []RateComponent
	for _, c := range in.Collections {
		components = append(components, cumulativeTierComponents(in, c)...)
	}
	return components
}

// cumulativeTierComponents resolves one collection row. A collection
// whose deal has no recorded invoice earns nothing: the policy needs
// the invoice month to rate the bonus.
func cumulativeTierComponents(in ResolveInput, c Collection) []RateComponent {
	cfg := in.Config
	if !c.AmountPaid.IsPositive() {
		return nil
	}
	inv, ok := in.Invoices[c.DealID]
	if !ok {
		return nil
	}

	components := []RateComponent{{
		Kind:  PayoutBase,
		Rate:  cfg.BaseRate,
		Basis: c.AmountPaid,
	}}

	invoicedTotal := in.InvoiceMonthTotals[inv.Month]
	bonusRate := tierRate(cfg.Tiers, invoicedTotal, decimal.Zero)
	if bonusRate.IsPositive() {
		components = append(components, RateComponent{
			Kind:     PayoutTierBonus,
			Rate:     bonusRate,
			Basis:    c.AmountPaid,
			Deferred: true,
			Description: fmt.Sprintf("%s invoiced in %s: %s * %s = %s",
				formatMoney(invoicedTotal), inv.Month, formatMoney(c.AmountPaid),
				formatRate(bonusRate), formatMoney(c.AmountPaid.Mul(bonusRate))),
		})
	}
	return components
}

// =============================================================================
// ACCOUNT EXECUTIVE - Tier lookup on the month's collected total
// =============================================================================

func resolveAccountTier(in ResolveInput) []RateComponent {
	cfg := in.Config
	total := in.Summary.TotalCollections
	if !total.IsPositive() {
		return nil
	}

	rate := cfg.BaseRate
	if cfg.TiersEnabled {
		rate = tierRate(cfg.Tiers, total, cfg.BaseRate)
	}
	return []RateComponent{{
		Kind:  PayoutBase,
		Rate:  rate,
		Basis: total,
	}}
}

// tierRate returns the rate of the highest tier whose threshold the
// total has reached (inclusive), or fallback when no tier is reached.
func tierRate(tiers []RateTier, total decimal.Decimal, fallback decimal.Decimal) decimal.Decimal {
	rate := fallback
	for _, t := range tiers {
		if total.GreaterThanOrEqual(t.Threshold) {
			rate = t.Rate
		}
	}
	return rate
}

// =============================================================================
// ACCOUNT MANAGER - Domestic flat rate or cumulative-tier, plus owner bonus
// =============================================================================

func resolveDualModeManager(in ResolveInput) []RateComponent {
	cfg := in.Config
	var components []RateComponent
	for _, c := range in.Collections {
		if !c.AmountPaid.IsPositive() {
			continue
		}
		inv, hasInvoice := in.Invoices[c.DealID]

		if cfg.Domestic {
			// Flat rate on every collection, invoice or not.
			components = append(components, RateComponent{
				Kind:  PayoutBase,
				Rate:  cfg.DomesticRate,
				Basis: c.AmountPaid,
			})
		} else {
			components = append(components, cumulativeTierComponents(in, c)...)
		}

		if hasInvoice && inv.DealOwner && cfg.OwnerBonusRate.IsPositive() {
			components = append(components, RateComponent{
				Kind:  PayoutOwnerBonus,
				Rate:  cfg.OwnerBonusRate,
				Basis: c.AmountPaid,
				Description: fmt.Sprintf("deal owner bonus on %s: %s * %s = %s",
					inv.DealID, formatMoney(c.AmountPaid), formatRate(cfg.OwnerBonusRate),
					formatMoney(c.AmountPaid.Mul(cfg.OwnerBonusRate))),
			})
		}
	}
	return components
}

// =============================================================================
// FORMATTING HELPERS
// =============================================================================

func formatMoney(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

func formatRate(r decimal.Decimal) string {
	return r.Mul(decimal.NewFromInt(100)).String() + "%"
}
