package commission

import (
	"fmt"
	"time"
)

// =============================================================================
// MONTH - The unit of time every record is keyed by
// =============================================================================

// Month identifies a calendar month. It is the grain at which invoices and
// collections are uploaded, summaries are materialized, and payouts are keyed.
//
// The zero value is invalid; use NewMonth or ParseMonth.
type Month struct {
	Year int
	Mon  time.Month
}

// NewMonth constructs a Month from a year and a calendar month.
func NewMonth(year int, mon time.Month) Month {
	return Month{Year: year, Mon: mon}
}

// ParseMonth parses the canonical "YYYY-MM" wire format.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return Month{Year: t.Year(), Mon: t.Month()}, nil
}

// MustMonth parses a "YYYY-MM" string and panics on failure. Test helper.
func MustMonth(s string) Month {
	m, err := ParseMonth(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Mon))
}

// IsZero reports whether the month is the invalid zero value.
func (m Month) IsZero() bool { return m.Year == 0 && m.Mon == 0 }

func (m Month) time() time.Time {
	return time.Date(m.Year, m.Mon, 1, 0, 0, 0, 0, time.UTC)
}

// Comparison
func (m Month) Before(other Month) bool { return m.time().Before(other.time()) }
func (m Month) After(other Month) bool  { return m.time().After(other.time()) }
func (m Month) Equal(other Month) bool  { return m == other }
func (m Month) BeforeOrEqual(other Month) bool {
	return m.Before(other) || m.Equal(other)
}
func (m Month) AfterOrEqual(other Month) bool {
	return m.After(other) || m.Equal(other)
}

// Arithmetic
func (m Month) AddMonths(n int) Month {
	t := m.time().AddDate(0, n, 0)
	return Month{Year: t.Year(), Mon: t.Month()}
}

// Next returns the following month. Deferred bonus payouts land here.
func (m Month) Next() Month { return m.AddMonths(1) }

// Prev returns the preceding month.
func (m Month) Prev() Month { return m.AddMonths(-1) }

// MonthsBetween returns every month from from through to, inclusive,
// ascending. Returns nil when to precedes from.
func MonthsBetween(from, to Month) []Month {
	if to.Before(from) {
		return nil
	}
	var months []Month
	for cur := from; cur.BeforeOrEqual(to); cur = cur.Next() {
		months = append(months, cur)
	}
	return months
}

// MinMonth returns the earlier of two months.
func MinMonth(a, b Month) Month {
	if a.Before(b) {
		return a
	}
	return b
}

// MaxMonth returns the later of two months.
func MaxMonth(a, b Month) Month {
	if a.After(b) {
		return a
	}
	return b
}

// MonthsOfYear returns the twelve months of a calendar year, ascending.
// Used by the read path to zero-fill yearly series.
func MonthsOfYear(year int) []Month {
	months := make([]Month, 12)
	for i := 0; i < 12; i++ {
		months[i] = Month{Year: year, Mon: time.Month(i + 1)}
	}
	return months
}
