/*
entitlement.go - Annual vacation entitlement by tenure

PURPOSE:
  Computes how many days a year's bucket is created with, from the hire date
  alone. Pure function, no store access.

RULES:
  Completed years are counted at December 31 of the target year.
  Fewer than six months between hire date and year end: 0 days.
  Otherwise by completed years:

    years < 5        14 days
    5 <= years < 10  21 days
    10 <= years < 20 28 days
    years >= 20      35 days

  Hire dates after year end also give 0 (nothing elapsed).

EXAMPLE:
  EntitlementFor(Date(2020, time.January, 1), 2025) // 21
  EntitlementFor(Date(2025, time.August, 1), 2025)  // 0

SEE ALSO:
  - engine.go: EnsureBucket / OpenYear create buckets with this value
*/
package vacation

import "time"

// MinimumServiceMonths below which a hire year grants nothing.
// Pro-rating instead of zero has been discussed but is not policy.
const MinimumServiceMonths = 6

// TenureTier grants AnnualDays once completed years reach AfterYears.
type TenureTier struct {
	AfterYears int
	AnnualDays int
}

// EntitlementTiers ordered by AfterYears ascending.
var EntitlementTiers = []TenureTier{
	{AfterYears: 0, AnnualDays: 14},
	{AfterYears: 5, AnnualDays: 21},
	{AfterYears: 10, AnnualDays: 28},
	{AfterYears: 20, AnnualDays: 35},
}

// EntitlementFor returns the vacation days granted for year.
func EntitlementFor(hireDate time.Time, year int) int {
	hire := DateOf(hireDate)
	yearEnd := EndOfYear(year)

	if hire.AddDate(0, MinimumServiceMonths, 0).After(yearEnd) {
		return 0
	}

	return tierDays(CompletedYears(hire, year))
}

// CompletedYears of service as of December 31 of year.
func CompletedYears(hireDate time.Time, year int) int {
	hire := DateOf(hireDate)
	yearEnd := EndOfYear(year)

	years := yearEnd.Year() - hire.Year()

	// The anniversary is built inside year, so it can never pass Dec 31.
	// Kept so the comparison matches the rule as written.
	anniversary := Date(year, hire.Month(), hire.Day())
	if anniversary.After(yearEnd) {
		years--
	}
	return years
}

func tierDays(years int) int {
	days := 0
	for _, tier := range EntitlementTiers {
		if years >= tier.AfterYears {
			days = tier.AnnualDays
		}
	}
	return days
}
