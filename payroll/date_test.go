package payroll_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/payroll-engine/payroll"
)

func TestParseDate(t *testing.T) {
	d, err := payroll.ParseDate("2025-06-10")
	require.NoError(t, err)
	assert.Equal(t, "2025-06-10", d.String())

	_, err = payroll.ParseDate("10/06/2025")
	assert.Error(t, err)
}

func TestDate_Ordering_IgnoresTimeOfDay(t *testing.T) {
	morning := payroll.DateOf(time.Date(2025, time.June, 10, 8, 0, 0, 0, time.UTC))
	evening := payroll.DateOf(time.Date(2025, time.June, 10, 23, 59, 0, 0, time.UTC))

	assert.True(t, morning.Equal(evening))
	assert.False(t, morning.Before(evening))
	assert.False(t, morning.After(evening))
}

func TestDateRange_Contains_InclusiveBounds(t *testing.T) {
	rng := payroll.NewDateRange(
		payroll.NewDate(2025, time.June, 1),
		payroll.NewDate(2025, time.June, 30),
	)

	assert.True(t, rng.Contains(payroll.NewDate(2025, time.June, 1)))
	assert.True(t, rng.Contains(payroll.NewDate(2025, time.June, 30)))
	assert.False(t, rng.Contains(payroll.NewDate(2025, time.May, 31)))
	assert.False(t, rng.Contains(payroll.NewDate(2025, time.July, 1)))
}

func TestMonthRange_CoversWholeMonth(t *testing.T) {
	rng := payroll.MonthRange(2025, time.February)

	assert.Equal(t, "2025-02-01", rng.From.String())
	assert.Equal(t, "2025-02-28", rng.To.String())
}

func TestDateRange_Validate_EndBeforeStart(t *testing.T) {
	rng := payroll.NewDateRange(
		payroll.NewDate(2025, time.June, 30),
		payroll.NewDate(2025, time.June, 1),
	)
	assert.ErrorIs(t, rng.Validate(), payroll.ErrValidation)
}
