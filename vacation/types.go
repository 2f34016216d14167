/*
Package vacation provides the vacation balance engine.

PURPOSE:
  Every employee holds one balance bucket per calendar year. A bucket records
  the days granted for that year (TotalDays) and the days already taken from
  it (UsedDays). The engine computes yearly entitlement from the hire date and
  draws approved leave from the buckets, oldest year first.

KEY CONCEPTS IN THIS FILE (types.go):
  - Days: A decimal quantity of vacation days
  - Bucket: One employee's balance for one year
  - Employee: The hire record used to compute entitlement
  - Consumption: The per-bucket breakdown of a committed draw-down

INVARIANTS:
  1. 0 <= UsedDays <= TotalDays for every live bucket
  2. At most one live bucket per (UserID, Year)
  3. Buckets are never removed, only tombstoned (DeletedAt)

USAGE:
  engine := vacation.NewEngine(store, store, logger)
  c, err := engine.ConsumeDays(ctx, "emp-42", 2025, vacation.NewDays(5))
  if errors.Is(err, vacation.ErrInsufficientBalance) {
      // reject the leave request
  }

SEE ALSO:
  - entitlement.go: Tenure tiers
  - distribute.go: FIFO draw-down plan
  - engine.go: Store-backed operations
  - store.go: Persistence interfaces
*/
package vacation

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// DAYS - Decimal quantity of vacation days
// =============================================================================

// Days is a non-integral-safe day count. Entitlements are whole days but
// administrative corrections may grant half days.
type Days struct {
	Value decimal.Decimal
}

func NewDays(n int) Days              { return Days{Value: decimal.NewFromInt(int64(n))} }
func NewDaysFromFloat(f float64) Days { return Days{Value: decimal.NewFromFloat(f)} }
func ZeroDays() Days                  { return Days{Value: decimal.Zero} }

// ParseDays parses the canonical string form written by the stores.
func ParseDays(s string) (Days, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Days{}, err
	}
	return Days{Value: d}, nil
}

func (d Days) Add(o Days) Days           { return Days{Value: d.Value.Add(o.Value)} }
func (d Days) Sub(o Days) Days           { return Days{Value: d.Value.Sub(o.Value)} }
func (d Days) IsZero() bool              { return d.Value.IsZero() }
func (d Days) IsPositive() bool          { return d.Value.IsPositive() }
func (d Days) IsNegative() bool          { return d.Value.IsNegative() }
func (d Days) GreaterThan(o Days) bool   { return d.Value.GreaterThan(o.Value) }
func (d Days) LessThan(o Days) bool      { return d.Value.LessThan(o.Value) }
func (d Days) Equal(o Days) bool         { return d.Value.Equal(o.Value) }
func (d Days) String() string            { return d.Value.String() }
func (d Days) Float64() float64          { f, _ := d.Value.Float64(); return f }
func (d Days) Min(o Days) Days {
	if d.LessThan(o) {
		return d
	}
	return o
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type UserID string
type BucketID string

// =============================================================================
// BUCKET - One employee, one calendar year
// =============================================================================

type Bucket struct {
	ID        BucketID
	UserID    UserID
	Year      int
	TotalDays Days
	UsedDays  Days

	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt *time.Time // tombstone; nil = live
}

// Available returns TotalDays - UsedDays. Callers should Validate first;
// an inconsistent bucket can report a negative or inflated value.
func (b Bucket) Available() Days {
	return b.TotalDays.Sub(b.UsedDays)
}

func (b Bucket) IsDeleted() bool {
	return b.DeletedAt != nil
}

// Validate checks 0 <= UsedDays <= TotalDays.
func (b Bucket) Validate() error {
	if b.TotalDays.IsNegative() || b.UsedDays.IsNegative() || b.UsedDays.GreaterThan(b.TotalDays) {
		return &InconsistentBucketError{Bucket: b}
	}
	return nil
}

// =============================================================================
// EMPLOYEE - Hire record
// =============================================================================

type Employee struct {
	ID        UserID
	Name      string
	Email     string
	HireDate  time.Time
	CreatedAt time.Time
}

// =============================================================================
// CONSUMPTION - Result of a committed draw-down
// =============================================================================

// Allocation is the amount taken from one bucket.
type Allocation struct {
	BucketID   BucketID
	Year       int
	Days       Days
	UsedBefore Days
	UsedAfter  Days
}

type Consumption struct {
	UserID      UserID
	Year        int
	Requested   Days
	Allocations []Allocation

	// Available across eligible buckets after the draw-down.
	Remaining Days
}

// Balance is the read view of an employee's buckets up to a year.
type Balance struct {
	UserID    UserID
	Year      int
	Buckets   []Bucket // ascending by year
	Available Days
}
