/*
distribute.go - FIFO draw-down across yearly buckets

PURPOSE:
  When a leave request for N days is approved, the days are taken from the
  employee's buckets oldest year first:

    2023: total 14, used 14   (exhausted, skipped)
    2024: total 21, used 0    <- take min(21, N)
    2025: total 21, used 0    <- take the rest

  PlanConsumption only computes the split. It never writes, so a request
  that cannot be covered is rejected before any bucket changes.

SEE ALSO:
  - engine.go: ConsumeDays applies the plan inside one transaction
*/
package vacation

import "sort"

// PlanConsumption splits requested across buckets by ascending year.
// Buckets are validated first; an inconsistent bucket aborts the plan.
func PlanConsumption(userID UserID, year int, buckets []Bucket, requested Days) (*Consumption, error) {
	if !requested.IsPositive() {
		return nil, ErrInvalidAmount
	}

	ordered := make([]Bucket, len(buckets))
	copy(ordered, buckets)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Year < ordered[j].Year
	})

	available, err := SumAvailable(ordered)
	if err != nil {
		return nil, err
	}

	if available.LessThan(requested) {
		return nil, &InsufficientBalanceError{
			UserID:    userID,
			Year:      year,
			Available: available,
			Requested: requested,
			Shortfall: requested.Sub(available),
		}
	}

	var allocations []Allocation
	remaining := requested

	for _, b := range ordered {
		if remaining.IsZero() {
			break
		}

		free := b.Available()
		if !free.IsPositive() {
			continue
		}

		take := remaining.Min(free)
		allocations = append(allocations, Allocation{
			BucketID:   b.ID,
			Year:       b.Year,
			Days:       take,
			UsedBefore: b.UsedDays,
			UsedAfter:  b.UsedDays.Add(take),
		})
		remaining = remaining.Sub(take)
	}

	return &Consumption{
		UserID:      userID,
		Year:        year,
		Requested:   requested,
		Allocations: allocations,
		Remaining:   available.Sub(requested),
	}, nil
}

// SumAvailable adds TotalDays - UsedDays over buckets, failing on the first
// bucket that breaks the invariant.
func SumAvailable(buckets []Bucket) (Days, error) {
	total := ZeroDays()
	for _, b := range buckets {
		if err := b.Validate(); err != nil {
			return Days{}, err
		}
		total = total.Add(b.Available())
	}
	return total, nil
}
