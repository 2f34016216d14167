package vacation_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// TENURE TIERS
// =============================================================================

func TestEntitlementFor_Tiers(t *testing.T) {
	hire := vacation.Date(2020, time.January, 1)

	tests := []struct {
		year int
		want int
	}{
		{2020, 14}, // 0 completed years, 6 months reached
		{2024, 14}, // 4
		{2025, 21}, // 5
		{2029, 21}, // 9
		{2030, 28}, // 10
		{2039, 28}, // 19
		{2040, 35}, // 20
		{2060, 35},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("year_%d", tt.year), func(t *testing.T) {
			assert.Equal(t, tt.want, vacation.EntitlementFor(hire, tt.year))
		})
	}
}

func TestEntitlementFor_SixMonthRule(t *testing.T) {
	tests := []struct {
		name string
		hire time.Time
		year int
		want int
	}{
		{"hired august, same year", vacation.Date(2025, time.August, 1), 2025, 0},
		{"hired july 1, six months end jan 1", vacation.Date(2025, time.July, 1), 2025, 0},
		{"hired june 30, six months end dec 30", vacation.Date(2025, time.June, 30), 2025, 14},
		{"hired january", vacation.Date(2025, time.January, 15), 2025, 14},
		{"hired august, next year", vacation.Date(2025, time.August, 1), 2026, 14},
		{"hired after year end", vacation.Date(2026, time.March, 1), 2025, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, vacation.EntitlementFor(tt.hire, tt.year))
		})
	}
}

func TestEntitlementFor_IgnoresTimeOfDay(t *testing.T) {
	hire := time.Date(2020, time.January, 1, 23, 59, 0, 0, time.UTC)
	assert.Equal(t, 21, vacation.EntitlementFor(hire, 2025))
}

func TestEntitlementFor_Monotonic(t *testing.T) {
	hire := vacation.Date(2001, time.May, 17)
	prev := 0
	for year := 2001; year <= 2040; year++ {
		days := vacation.EntitlementFor(hire, year)
		assert.GreaterOrEqual(t, days, prev, "year %d", year)
		prev = days
	}
}

func TestCompletedYears(t *testing.T) {
	hire := vacation.Date(2015, time.December, 31)
	assert.Equal(t, 0, vacation.CompletedYears(hire, 2015))
	assert.Equal(t, 10, vacation.CompletedYears(hire, 2025))
}
