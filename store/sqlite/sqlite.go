/*
Package sqlite provides a SQLite-backed implementation of the vacation stores.

PURPOSE:
  Implements vacation.TxStore and vacation.EmployeeStore on SQLite through
  database/sql and mattn/go-sqlite3.

KEY TABLES:
  employees:         Hire records
  vacation_balances: One live row per (user_id, year); deleted_at tombstones

INDEXES:
  - idx_vacation_balances_user_year_live: Unique live bucket per user/year
  - idx_vacation_balances_user_year:      FIFO listing (hot path)

CONCURRENCY:
  - The pool holds a single connection: SQLite has one writer anyway, and
    ":memory:" databases exist per connection.
  - Transactions start with BEGIN IMMEDIATE (_txlock=immediate), so the
    write lock is taken before the first read of a consume.
  - used_days writes are conditional (WHERE used_days = expected); a lost
    update surfaces as vacation.ErrConcurrentModification.

  Inside WithTx only the transaction handle may be used. Touching s.db there
  would wait forever for the single pooled connection.

MIGRATION:
  Schema is managed by golang-migrate from the embedded migrations/ dir and
  applied on New().

USAGE:
  store, err := sqlite.New("./data/vacation.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()

  engine := vacation.NewEngine(store, store, logger)

SEE ALSO:
  - vacation/store.go: Interface definitions
  - vacation/store/memory.go: In-memory implementation for testing
*/
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/warp/vacation-engine/vacation"
)

// Store implements all storage interfaces using SQLite.
type Store struct {
	*queries
	db *sql.DB
}

var (
	_ vacation.TxStore       = (*Store)(nil)
	_ vacation.EmployeeStore = (*Store)(nil)
)

// New creates a new SQLite store with the given database path, creating
// its parent directory if needed. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("failed to create database directory %s: %w", dir, err)
			}
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Store{
		queries: &queries{q: db, now: time.Now},
		db:      db,
	}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// =============================================================================
// TRANSACTIONAL STORE (vacation.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction.
func (s *Store) WithTx(ctx context.Context, fn func(vacation.BucketStore) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&queries{q: sqlTx, now: s.now}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// =============================================================================
// BUCKET STORE (vacation.BucketStore interface)
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// queries runs bucket statements against the pool or a transaction.
type queries struct {
	q   querier
	now func() time.Time
}

const bucketColumns = `id, user_id, year, total_days, used_days, created_at, updated_at, deleted_at`

// ListBuckets returns live buckets up to maxYear, oldest first.
func (qs *queries) ListBuckets(ctx context.Context, userID vacation.UserID, maxYear int) ([]vacation.Bucket, error) {
	rows, err := qs.q.QueryContext(ctx, `
		SELECT `+bucketColumns+`
		FROM vacation_balances
		WHERE user_id = ? AND year <= ? AND deleted_at IS NULL
		ORDER BY year ASC
	`, userID, maxYear)
	if err != nil {
		return nil, fmt.Errorf("failed to query buckets: %w", err)
	}
	defer rows.Close()

	var buckets []vacation.Bucket
	for rows.Next() {
		b, err := scanBucket(rows)
		if err != nil {
			return nil, err
		}
		buckets = append(buckets, b)
	}
	return buckets, rows.Err()
}

// GetBucket retrieves the live bucket for a user and year.
func (qs *queries) GetBucket(ctx context.Context, userID vacation.UserID, year int) (vacation.Bucket, error) {
	row := qs.q.QueryRowContext(ctx, `
		SELECT `+bucketColumns+`
		FROM vacation_balances
		WHERE user_id = ? AND year = ? AND deleted_at IS NULL
	`, userID, year)
	return scanBucketRow(row)
}

// GetBucketByID retrieves a live bucket by ID.
func (qs *queries) GetBucketByID(ctx context.Context, id vacation.BucketID) (vacation.Bucket, error) {
	row := qs.q.QueryRowContext(ctx, `
		SELECT `+bucketColumns+`
		FROM vacation_balances
		WHERE id = ? AND deleted_at IS NULL
	`, id)
	return scanBucketRow(row)
}

// HasBucketHistory reports whether a row exists for the user and year,
// including tombstoned ones.
func (qs *queries) HasBucketHistory(ctx context.Context, userID vacation.UserID, year int) (bool, error) {
	var exists bool
	err := qs.q.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM vacation_balances WHERE user_id = ? AND year = ?
		)
	`, userID, year).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to query bucket history: %w", err)
	}
	return exists, nil
}

// CreateBucket inserts a bucket with zero used days.
func (qs *queries) CreateBucket(ctx context.Context, userID vacation.UserID, year int, totalDays vacation.Days) (vacation.Bucket, error) {
	now := qs.now().UTC()
	b := vacation.Bucket{
		ID:        vacation.BucketID(uuid.NewString()),
		UserID:    userID,
		Year:      year,
		TotalDays: totalDays,
		UsedDays:  vacation.ZeroDays(),
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err := qs.q.ExecContext(ctx, `
		INSERT INTO vacation_balances (id, user_id, year, total_days, used_days, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`,
		b.ID, b.UserID, b.Year,
		b.TotalDays.String(), b.UsedDays.String(),
		formatTime(now), formatTime(now),
	)
	if err != nil {
		switch {
		case isConstraintError(err, sqlite3.ErrConstraintUnique):
			return vacation.Bucket{}, vacation.ErrBucketExists
		case isConstraintError(err, sqlite3.ErrConstraintForeignKey):
			return vacation.Bucket{}, vacation.ErrEmployeeNotFound
		}
		return vacation.Bucket{}, fmt.Errorf("failed to insert bucket: %w", err)
	}
	return b, nil
}

// UpdateUsedDays is a compare-and-swap on used_days.
func (qs *queries) UpdateUsedDays(ctx context.Context, id vacation.BucketID, expected, newUsed vacation.Days) error {
	res, err := qs.q.ExecContext(ctx, `
		UPDATE vacation_balances
		SET used_days = ?, updated_at = ?
		WHERE id = ? AND used_days = ? AND deleted_at IS NULL
	`, newUsed.String(), formatTime(qs.now()), id, expected.String())
	if err != nil {
		return fmt.Errorf("failed to update used days: %w", err)
	}
	return qs.checkUpdated(ctx, res, id, vacation.ErrConcurrentModification)
}

// UpdateTotalDays sets total_days on a live bucket.
func (qs *queries) UpdateTotalDays(ctx context.Context, id vacation.BucketID, totalDays vacation.Days) error {
	res, err := qs.q.ExecContext(ctx, `
		UPDATE vacation_balances
		SET total_days = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, totalDays.String(), formatTime(qs.now()), id)
	if err != nil {
		return fmt.Errorf("failed to update total days: %w", err)
	}
	return qs.checkUpdated(ctx, res, id, vacation.ErrBucketNotFound)
}

// SoftDeleteBucket sets deleted_at. Rows are never removed.
func (qs *queries) SoftDeleteBucket(ctx context.Context, id vacation.BucketID) error {
	now := formatTime(qs.now())
	res, err := qs.q.ExecContext(ctx, `
		UPDATE vacation_balances
		SET deleted_at = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`, now, now, id)
	if err != nil {
		return fmt.Errorf("failed to delete bucket: %w", err)
	}
	return qs.checkUpdated(ctx, res, id, vacation.ErrBucketNotFound)
}

// checkUpdated turns "0 rows affected" into ErrBucketNotFound when the live
// row is gone, or into onMiss otherwise.
func (qs *queries) checkUpdated(ctx context.Context, res sql.Result, id vacation.BucketID, onMiss error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}
	if _, err := qs.GetBucketByID(ctx, id); err != nil {
		return err
	}
	return onMiss
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBucketRow(row *sql.Row) (vacation.Bucket, error) {
	b, err := scanBucket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return vacation.Bucket{}, vacation.ErrBucketNotFound
	}
	return b, err
}

func scanBucket(row rowScanner) (vacation.Bucket, error) {
	var (
		b                    vacation.Bucket
		totalDays, usedDays  string
		createdAt, updatedAt string
		deletedAt            sql.NullString
	)

	err := row.Scan(&b.ID, &b.UserID, &b.Year, &totalDays, &usedDays, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return b, err
	}
	if err != nil {
		return b, fmt.Errorf("failed to scan bucket: %w", err)
	}

	if b.TotalDays, err = vacation.ParseDays(totalDays); err != nil {
		return b, fmt.Errorf("bucket %s: bad total_days %q: %w", b.ID, totalDays, err)
	}
	if b.UsedDays, err = vacation.ParseDays(usedDays); err != nil {
		return b, fmt.Errorf("bucket %s: bad used_days %q: %w", b.ID, usedDays, err)
	}
	b.CreatedAt = parseTime(createdAt)
	b.UpdatedAt = parseTime(updatedAt)
	if deletedAt.Valid {
		t := parseTime(deletedAt.String)
		b.DeletedAt = &t
	}
	return b, nil
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

// SaveEmployee inserts or updates an employee. The hire date is immutable
// once set, so conflicts only update name and email.
func (s *Store) SaveEmployee(ctx context.Context, emp vacation.Employee) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO employees (id, name, email, hire_date, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			email = excluded.email
	`,
		emp.ID, emp.Name, emp.Email,
		vacation.DateOf(emp.HireDate).Format(time.DateOnly),
		formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("failed to save employee: %w", err)
	}
	return nil
}

// GetEmployee retrieves an employee by ID.
func (s *Store) GetEmployee(ctx context.Context, id vacation.UserID) (vacation.Employee, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT id, name, email, hire_date, created_at FROM employees WHERE id = ?",
		id,
	)
	emp, err := scanEmployee(row)
	if errors.Is(err, sql.ErrNoRows) {
		return vacation.Employee{}, vacation.ErrEmployeeNotFound
	}
	return emp, err
}

// ListEmployees returns all employees.
func (s *Store) ListEmployees(ctx context.Context) ([]vacation.Employee, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, email, hire_date, created_at FROM employees ORDER BY name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query employees: %w", err)
	}
	defer rows.Close()

	var employees []vacation.Employee
	for rows.Next() {
		emp, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		employees = append(employees, emp)
	}
	return employees, rows.Err()
}

func scanEmployee(row rowScanner) (vacation.Employee, error) {
	var (
		emp                 vacation.Employee
		hireDate, createdAt string
	)
	err := row.Scan(&emp.ID, &emp.Name, &emp.Email, &hireDate, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return emp, err
	}
	if err != nil {
		return emp, fmt.Errorf("failed to scan employee: %w", err)
	}

	emp.HireDate, err = vacation.ParseDate(hireDate)
	if err != nil {
		return emp, fmt.Errorf("employee %s: bad hire_date %q: %w", emp.ID, hireDate, err)
	}
	emp.CreatedAt = parseTime(createdAt)
	return emp, nil
}

// Helper functions

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(time.RFC3339Nano, s)
	return t
}

func isConstraintError(err error, code sqlite3.ErrNoExtended) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == code
}
