/*
policies.go - Stock rate schedules

PURPOSE:
  Ready-to-use PayeeConfig values for the classes whose schedules are
  fixed by policy rather than negotiated per payee. Recruiters and
  recruitment managers are auto-provisioned from uploads with these
  defaults; executives and account managers are created by an admin
  with explicit schedules (see NewAccountExecutiveConfig).

DEFAULT SCHEDULES:
  recruiter:            2% base, 3% once lifetime collections reach
                        $30,000, deferred 2% bonus on the excess
  recruitment_manager:  1% base per collection; deferred bonus 0.25%
                        when the invoice month billed >= $100,000,
                        0.5% when >= $150,000
*/
package commission

import "github.com/shopspring/decimal"

// Default recruiter schedule.
var (
	defaultRecruiterBaseRate     = decimal.NewFromFloat(0.02)
	defaultRecruiterElevatedRate = decimal.NewFromFloat(0.03)
	defaultRecruiterThreshold    = decimal.NewFromInt(30000)
)

// Default recruitment-manager schedule.
var (
	defaultManagerBaseRate       = decimal.NewFromFloat(0.01)
	defaultManagerTier1Rate      = decimal.NewFromFloat(0.0025)
	defaultManagerTier1Threshold = decimal.NewFromInt(100000)
	defaultManagerTier2Rate      = decimal.NewFromFloat(0.005)
	defaultManagerTier2Threshold = decimal.NewFromInt(150000)
)

// RecruiterConfig returns the stock recruiter schedule.
func RecruiterConfig(email, name string) PayeeConfig {
	return PayeeConfig{
		Email:    email,
		Name:     name,
		Class:    ClassRecruiter,
		BaseRate: defaultRecruiterBaseRate,
		Tiers: []RateTier{
			{Rate: defaultRecruiterElevatedRate, Threshold: defaultRecruiterThreshold},
		},
		TiersEnabled: true,
	}
}

// RecruitmentManagerConfig returns the stock recruitment-manager schedule.
func RecruitmentManagerConfig(email, name string) PayeeConfig {
	return PayeeConfig{
		Email:    email,
		Name:     name,
		Class:    ClassRecruitmentManager,
		BaseRate: defaultManagerBaseRate,
		Tiers: []RateTier{
			{Rate: defaultManagerTier1Rate, Threshold: defaultManagerTier1Threshold},
			{Rate: defaultManagerTier2Rate, Threshold: defaultManagerTier2Threshold},
		},
		TiersEnabled: true,
	}
}

// DefaultConfig returns the stock schedule for an auto-provisioned
// class. Classes without a stock schedule get a zero-rate config, which
// resolves to no payouts until an admin fills in the schedule.
func DefaultConfig(class PayeeClass, email, name string) PayeeConfig {
	switch class {
	case ClassRecruiter:
		return RecruiterConfig(email, name)
	case ClassRecruitmentManager:
		return RecruitmentManagerConfig(email, name)
	default:
		return PayeeConfig{Email: email, Name: name, Class: class}
	}
}

// RateFromPercent converts an admin-entered percentage (e.g. 2.5) to
// the stored fractional rate (0.025).
func RateFromPercent(percent float64) decimal.Decimal {
	return decimal.NewFromFloat(percent).Div(decimal.NewFromInt(100))
}
