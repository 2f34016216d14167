/*
store.go - Persistence interfaces for buckets and hire records

PURPOSE:
  Defines the boundary between the engine and the database. Buckets are
  mutable rows (used/total days), so unlike an append-only ledger every write
  that depends on a previous read must run inside WithTx.

KEY INTERFACES:
  BucketStore:   Bucket reads and writes
  TxStore:       BucketStore + atomic multi-row writes
  EmployeeStore: Hire records

CONDITIONAL UPDATES:
  UpdateUsedDays takes the value the caller read. The write only applies if
  the row still holds that value; otherwise ErrConcurrentModification. Two
  approvals racing on the same bucket cannot both succeed from one snapshot.

IMPLEMENTATIONS:
  - vacation/store/memory.go: In-memory for testing/dev
  - store/sqlite/sqlite.go: SQLite

SEE ALSO:
  - engine.go: The only caller that mutates used days
*/
package vacation

import "context"

// =============================================================================
// BUCKET STORE
// =============================================================================

type BucketStore interface {
	// ListBuckets returns live buckets for userID with Year <= maxYear,
	// ascending by year.
	ListBuckets(ctx context.Context, userID UserID, maxYear int) ([]Bucket, error)

	// GetBucket returns the live bucket for (userID, year) or ErrBucketNotFound.
	GetBucket(ctx context.Context, userID UserID, year int) (Bucket, error)

	// GetBucketByID returns a live bucket or ErrBucketNotFound.
	GetBucketByID(ctx context.Context, id BucketID) (Bucket, error)

	// HasBucketHistory reports whether any row, live or tombstoned, was
	// ever created for (userID, year).
	HasBucketHistory(ctx context.Context, userID UserID, year int) (bool, error)

	// CreateBucket inserts a bucket with zero used days. Returns
	// ErrBucketExists if a live bucket already covers (userID, year).
	CreateBucket(ctx context.Context, userID UserID, year int, totalDays Days) (Bucket, error)

	// UpdateUsedDays sets used days if the row still holds expected.
	UpdateUsedDays(ctx context.Context, id BucketID, expected, newUsed Days) error

	// UpdateTotalDays is the administrative correction path.
	UpdateTotalDays(ctx context.Context, id BucketID, totalDays Days) error

	// SoftDeleteBucket tombstones a bucket. It disappears from every read.
	SoftDeleteBucket(ctx context.Context, id BucketID) error
}

// TxStore wraps BucketStore with transaction support.
// If fn returns an error nothing fn wrote is kept.
type TxStore interface {
	BucketStore

	WithTx(ctx context.Context, fn func(BucketStore) error) error
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

type EmployeeStore interface {
	SaveEmployee(ctx context.Context, emp Employee) error
	GetEmployee(ctx context.Context, id UserID) (Employee, error)
	ListEmployees(ctx context.Context) ([]Employee, error)
}
