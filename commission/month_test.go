package commission_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/commission-engine/commission"
)

func TestMonth_ParseAndFormat(t *testing.T) {
	m, err := commission.ParseMonth("2025-03")
	require.NoError(t, err)
	assert.Equal(t, 2025, m.Year)
	assert.Equal(t, time.March, m.Mon)
	assert.Equal(t, "2025-03", m.String())
}

func TestMonth_ParseRejectsGarbage(t *testing.T) {
	for _, input := range []string{"", "2025", "2025-13", "03-2025", "2025-3", "march"} {
		_, err := commission.ParseMonth(input)
		assert.ErrorIs(t, err, commission.ErrInvalidMonth, "input %q", input)
	}
}

func TestMonth_Arithmetic(t *testing.T) {
	dec := commission.MustMonth("2024-12")
	assert.Equal(t, commission.MustMonth("2025-01"), dec.Next())
	assert.Equal(t, commission.MustMonth("2024-11"), dec.Prev())
	assert.Equal(t, commission.MustMonth("2025-06"), dec.AddMonths(6))
}

func TestMonth_Comparisons(t *testing.T) {
	jan := commission.MustMonth("2025-01")
	mar := commission.MustMonth("2025-03")

	assert.True(t, jan.Before(mar))
	assert.True(t, mar.After(jan))
	assert.True(t, jan.BeforeOrEqual(jan))
	assert.True(t, mar.AfterOrEqual(mar))
	assert.Equal(t, jan, commission.MinMonth(jan, mar))
	assert.Equal(t, mar, commission.MaxMonth(jan, mar))
}

func TestMonthsBetween(t *testing.T) {
	months := commission.MonthsBetween(commission.MustMonth("2024-11"), commission.MustMonth("2025-02"))
	require.Len(t, months, 4)
	assert.Equal(t, commission.MustMonth("2024-11"), months[0])
	assert.Equal(t, commission.MustMonth("2025-02"), months[3])

	// Single month range.
	single := commission.MonthsBetween(commission.MustMonth("2025-01"), commission.MustMonth("2025-01"))
	assert.Len(t, single, 1)

	// Inverted range yields nothing.
	assert.Nil(t, commission.MonthsBetween(commission.MustMonth("2025-02"), commission.MustMonth("2025-01")))
}

func TestMonthsOfYear(t *testing.T) {
	months := commission.MonthsOfYear(2025)
	require.Len(t, months, 12)
	assert.Equal(t, commission.MustMonth("2025-01"), months[0])
	assert.Equal(t, commission.MustMonth("2025-12"), months[11])
}
