/*
errors.go - Error types for the vacation engine

ERROR CATEGORIES:
  1. Balance errors - Insufficient balance, inconsistent buckets
  2. Validation errors - Non-positive requests, bad adjustments
  3. Store errors - Missing rows, duplicates, lost updates

USAGE:
  if errors.Is(err, vacation.ErrInsufficientBalance) {
      var ibe *vacation.InsufficientBalanceError
      errors.As(err, &ibe) // ibe.Shortfall
  }

SEE ALSO:
  - api/handlers.go: Maps these errors to HTTP status codes
*/
package vacation

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInsufficientBalance is returned when a request exceeds the days
	// available across all eligible buckets. No bucket is modified.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrInconsistentBucket is returned when a stored bucket violates
	// 0 <= used <= total.
	ErrInconsistentBucket = errors.New("inconsistent balance bucket")

	ErrBucketNotFound   = errors.New("bucket not found")
	ErrBucketExists     = errors.New("bucket already exists for user and year")
	ErrEmployeeNotFound = errors.New("employee not found")

	// ErrYearClosed is returned by EnsureBucket when the year's bucket was
	// deleted. Only an explicit CreateBucket opens it again.
	ErrYearClosed = errors.New("bucket for user and year was deleted")

	// ErrConcurrentModification is returned when a conditional update finds
	// a used-days value different from the one it read.
	ErrConcurrentModification = errors.New("concurrent modification detected")

	ErrInvalidAmount     = errors.New("invalid amount: days must be positive")
	ErrInvalidAdjustment = errors.New("invalid adjustment")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError provides details about a balance shortage.
type InsufficientBalanceError struct {
	UserID    UserID
	Year      int
	Available Days
	Requested Days
	Shortfall Days
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s up to %d: available %s, requested %s, shortfall %s",
		e.UserID, e.Year, e.Available, e.Requested, e.Shortfall)
}

func (e *InsufficientBalanceError) Unwrap() error {
	return ErrInsufficientBalance
}

// InconsistentBucketError names the bucket that broke the invariant.
type InconsistentBucketError struct {
	Bucket Bucket
}

func (e *InconsistentBucketError) Error() string {
	return fmt.Sprintf("bucket %s (%s/%d): used %s, total %s",
		e.Bucket.ID, e.Bucket.UserID, e.Bucket.Year, e.Bucket.UsedDays, e.Bucket.TotalDays)
}

func (e *InconsistentBucketError) Unwrap() error {
	return ErrInconsistentBucket
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrInvalidAdjustment) ||
		errors.Is(err, ErrBucketExists)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrBucketNotFound) ||
		errors.Is(err, ErrEmployeeNotFound)
}
