/*
engine.go - Store-backed vacation balance operations

PURPOSE:
  Wires entitlement and FIFO planning to persistence. This is what request
  handlers and the year-opening scheduler call.

OPERATIONS:
  Entitlement:   Days granted for a year from the employee's hire date
  AvailableDays: Sum of TotalDays - UsedDays over live buckets up to a year
  ConsumeDays:   FIFO draw-down, all or nothing
  CreateBucket / AdjustTotalDays / DeleteBucket: administrative corrections
  EnsureBucket / OpenYear: create the year's buckets from entitlement,
                           never reopening a year whose bucket was deleted

ATOMICITY:
  ConsumeDays reads the buckets, plans, and writes inside one WithTx. If the
  plan fails (insufficient balance, inconsistent bucket) nothing is written.
  If a write fails midway the transaction rolls back the earlier writes.
  Every write is conditional on the used-days value the plan read.

SEE ALSO:
  - distribute.go: PlanConsumption
  - scheduler.go: Runs OpenYear in the background
*/
package vacation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/warp/vacation-engine/logging"
)

// =============================================================================
// ENGINE
// =============================================================================

type Engine struct {
	Store     TxStore
	Employees EmployeeStore
	Publisher Publisher
	Log       logrus.FieldLogger
	Now       func() time.Time
}

// NewEngine creates an engine with a no-op publisher and the wall clock.
func NewEngine(store TxStore, employees EmployeeStore, log logrus.FieldLogger) *Engine {
	if log == nil {
		log = logging.Discard()
	}
	return &Engine{
		Store:     store,
		Employees: employees,
		Publisher: NopPublisher{},
		Log:       log.WithField(logging.FieldComponent, logging.ComponentEngine),
		Now:       time.Now,
	}
}

// CurrentYear uses the engine's clock.
func (e *Engine) CurrentYear() int {
	return CurrentYear(e.Now)
}

// =============================================================================
// READS
// =============================================================================

// Entitlement returns the days userID is granted for year.
func (e *Engine) Entitlement(ctx context.Context, userID UserID, year int) (int, error) {
	emp, err := e.Employees.GetEmployee(ctx, userID)
	if err != nil {
		return 0, err
	}
	return EntitlementFor(emp.HireDate, year), nil
}

// AvailableDays sums the free days of every live bucket with Year <= year.
func (e *Engine) AvailableDays(ctx context.Context, userID UserID, year int) (Days, error) {
	balance, err := e.Balance(ctx, userID, year)
	if err != nil {
		return Days{}, err
	}
	return balance.Available, nil
}

// Balance returns the buckets behind AvailableDays, oldest first.
func (e *Engine) Balance(ctx context.Context, userID UserID, year int) (*Balance, error) {
	buckets, err := e.Store.ListBuckets(ctx, userID, year)
	if err != nil {
		return nil, fmt.Errorf("list buckets: %w", err)
	}

	available, err := SumAvailable(buckets)
	if err != nil {
		e.Log.WithFields(logrus.Fields{
			logging.FieldUserID: userID,
			logging.FieldYear:   year,
		}).WithError(err).Error("inconsistent bucket")
		return nil, err
	}

	return &Balance{
		UserID:    userID,
		Year:      year,
		Buckets:   buckets,
		Available: available,
	}, nil
}

// =============================================================================
// CONSUMPTION
// =============================================================================

// ConsumeDays draws requested days from userID's buckets up to year, oldest
// first. Either every allocation is written or none is.
func (e *Engine) ConsumeDays(ctx context.Context, userID UserID, year int, requested Days) (*Consumption, error) {
	if !requested.IsPositive() {
		return nil, ErrInvalidAmount
	}

	log := e.Log.WithFields(logrus.Fields{
		logging.FieldUserID:    userID,
		logging.FieldYear:      year,
		logging.FieldDays:      requested.String(),
		logging.FieldOperation: "consume",
	})

	var result *Consumption
	err := e.Store.WithTx(ctx, func(s BucketStore) error {
		buckets, err := s.ListBuckets(ctx, userID, year)
		if err != nil {
			return fmt.Errorf("list buckets: %w", err)
		}

		plan, err := PlanConsumption(userID, year, buckets, requested)
		if err != nil {
			return err
		}

		for _, a := range plan.Allocations {
			if err := s.UpdateUsedDays(ctx, a.BucketID, a.UsedBefore, a.UsedAfter); err != nil {
				return fmt.Errorf("update bucket %s: %w", a.BucketID, err)
			}
		}

		result = plan
		return nil
	})
	if err != nil {
		if IsClientError(err) {
			log.WithError(err).Info("consumption rejected")
		} else {
			log.WithError(err).Error("consumption failed")
		}
		return nil, err
	}

	log.WithField("buckets", len(result.Allocations)).Info("days consumed")
	e.publish(ctx, result)
	return result, nil
}

func (e *Engine) publish(ctx context.Context, c *Consumption) {
	if e.Publisher == nil {
		return
	}
	event := ConsumptionEvent{
		UserID:      c.UserID,
		Year:        c.Year,
		Requested:   c.Requested,
		Allocations: c.Allocations,
		At:          e.Now().UTC(),
	}
	// The consumption is committed; a lost event must not undo it.
	if err := e.Publisher.PublishConsumption(ctx, event); err != nil {
		e.Log.WithField(logging.FieldUserID, c.UserID).WithError(err).Warn("publish consumption event")
	}
}

// =============================================================================
// ADMINISTRATIVE CORRECTIONS
// =============================================================================

// CreateBucket creates a bucket for an existing employee.
func (e *Engine) CreateBucket(ctx context.Context, userID UserID, year int, totalDays Days) (Bucket, error) {
	if totalDays.IsNegative() {
		return Bucket{}, fmt.Errorf("%w: total days %s", ErrInvalidAmount, totalDays)
	}
	if _, err := e.Employees.GetEmployee(ctx, userID); err != nil {
		return Bucket{}, err
	}
	return e.Store.CreateBucket(ctx, userID, year, totalDays)
}

// AdjustTotalDays replaces a bucket's total. The new total may not be
// negative nor drop below the days already used.
func (e *Engine) AdjustTotalDays(ctx context.Context, id BucketID, totalDays Days) (Bucket, error) {
	var updated Bucket
	err := e.Store.WithTx(ctx, func(s BucketStore) error {
		b, err := s.GetBucketByID(ctx, id)
		if err != nil {
			return err
		}
		if totalDays.IsNegative() {
			return fmt.Errorf("%w: total days %s is negative", ErrInvalidAdjustment, totalDays)
		}
		if totalDays.LessThan(b.UsedDays) {
			return fmt.Errorf("%w: total days %s below used days %s", ErrInvalidAdjustment, totalDays, b.UsedDays)
		}
		if err := s.UpdateTotalDays(ctx, id, totalDays); err != nil {
			return err
		}
		b.TotalDays = totalDays
		updated = b
		return nil
	})
	if err != nil {
		return Bucket{}, err
	}

	e.Log.WithFields(logrus.Fields{
		logging.FieldBucketID: id,
		logging.FieldDays:     totalDays.String(),
	}).Info("bucket total adjusted")
	return updated, nil
}

// DeleteBucket tombstones a bucket.
func (e *Engine) DeleteBucket(ctx context.Context, id BucketID) error {
	if err := e.Store.SoftDeleteBucket(ctx, id); err != nil {
		return err
	}
	e.Log.WithField(logging.FieldBucketID, id).Info("bucket deleted")
	return nil
}

// =============================================================================
// YEAR OPENING
// =============================================================================

// YearOpening summarizes an OpenYear run.
type YearOpening struct {
	Year       int
	Created    int
	Existing   int
	Ineligible int // entitlement 0 (under six months of service)
	Closed     int // bucket deleted by an admin; not reopened
	Failed     []UserID
}

// EnsureBucket returns userID's bucket for year, creating it from the
// entitlement if the year was never opened. It returns a nil bucket when the
// entitlement is 0, and ErrYearClosed when the year's bucket was deleted.
func (e *Engine) EnsureBucket(ctx context.Context, userID UserID, year int) (*Bucket, bool, error) {
	existing, err := e.Store.GetBucket(ctx, userID, year)
	if err == nil {
		return &existing, false, nil
	}
	if !errors.Is(err, ErrBucketNotFound) {
		return nil, false, err
	}

	deleted, err := e.Store.HasBucketHistory(ctx, userID, year)
	if err != nil {
		return nil, false, fmt.Errorf("bucket history: %w", err)
	}
	if deleted {
		return nil, false, ErrYearClosed
	}

	emp, err := e.Employees.GetEmployee(ctx, userID)
	if err != nil {
		return nil, false, err
	}

	days := EntitlementFor(emp.HireDate, year)
	if days == 0 {
		return nil, false, nil
	}

	created, err := e.Store.CreateBucket(ctx, userID, year, NewDays(days))
	if errors.Is(err, ErrBucketExists) {
		// Lost a race with another opener.
		existing, err = e.Store.GetBucket(ctx, userID, year)
		if err != nil {
			return nil, false, err
		}
		return &existing, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return &created, true, nil
}

// OpenYear ensures every employee has a bucket for year. Failures for one
// employee are recorded and the run continues.
func (e *Engine) OpenYear(ctx context.Context, year int) (*YearOpening, error) {
	employees, err := e.Employees.ListEmployees(ctx)
	if err != nil {
		return nil, fmt.Errorf("list employees: %w", err)
	}

	result := &YearOpening{Year: year}
	for _, emp := range employees {
		b, created, err := e.EnsureBucket(ctx, emp.ID, year)
		switch {
		case errors.Is(err, ErrYearClosed):
			result.Closed++
		case err != nil:
			e.Log.WithFields(logrus.Fields{
				logging.FieldUserID: emp.ID,
				logging.FieldYear:   year,
			}).WithError(err).Error("open year")
			result.Failed = append(result.Failed, emp.ID)
		case b == nil:
			result.Ineligible++
		case created:
			result.Created++
		default:
			result.Existing++
		}
	}

	e.Log.WithFields(logrus.Fields{
		logging.FieldYear: year,
		"created":         result.Created,
		"existing":        result.Existing,
		"ineligible":      result.Ineligible,
		"closed":          result.Closed,
		"failed":          len(result.Failed),
	}).Info("year opened")
	return result, nil
}
