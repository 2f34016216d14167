// Package store provides in-memory implementations of the vacation stores.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/vacation-engine/vacation"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	txMu      sync.Mutex
	buckets   map[vacation.BucketID]vacation.Bucket
	employees map[vacation.UserID]vacation.Employee
	now       func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		buckets:   make(map[vacation.BucketID]vacation.Bucket),
		employees: make(map[vacation.UserID]vacation.Employee),
		now:       time.Now,
	}
}

var (
	_ vacation.TxStore       = (*Memory)(nil)
	_ vacation.EmployeeStore = (*Memory)(nil)
)

// PutBucket stores b as-is, bypassing every check. Tests use it to seed
// buckets with chosen used days or broken invariants.
func (m *Memory) PutBucket(b vacation.Bucket) vacation.Bucket {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == "" {
		b.ID = vacation.BucketID(uuid.NewString())
	}
	m.buckets[b.ID] = b
	return b
}

// =============================================================================
// BUCKET STORE
// =============================================================================

func (m *Memory) ListBuckets(_ context.Context, userID vacation.UserID, maxYear int) ([]vacation.Bucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(userID, maxYear), nil
}

func (m *Memory) GetBucket(_ context.Context, userID vacation.UserID, year int) (vacation.Bucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(userID, year)
}

func (m *Memory) GetBucketByID(_ context.Context, id vacation.BucketID) (vacation.Bucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getByIDLocked(id)
}

func (m *Memory) HasBucketHistory(_ context.Context, userID vacation.UserID, year int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, b := range m.buckets {
		if b.UserID == userID && b.Year == year {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateBucket(_ context.Context, userID vacation.UserID, year int, totalDays vacation.Days) (vacation.Bucket, error) {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(userID, year, totalDays)
}

func (m *Memory) UpdateUsedDays(_ context.Context, id vacation.BucketID, expected, newUsed vacation.Days) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateUsedLocked(id, expected, newUsed)
}

func (m *Memory) UpdateTotalDays(_ context.Context, id vacation.BucketID, totalDays vacation.Days) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateTotalLocked(id, totalDays)
}

func (m *Memory) SoftDeleteBucket(_ context.Context, id vacation.BucketID) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.softDeleteLocked(id)
}

func (m *Memory) listLocked(userID vacation.UserID, maxYear int) []vacation.Bucket {
	var result []vacation.Bucket
	for _, b := range m.buckets {
		if b.UserID == userID && b.Year <= maxYear && !b.IsDeleted() {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Year < result[j].Year
	})
	return result
}

func (m *Memory) getLocked(userID vacation.UserID, year int) (vacation.Bucket, error) {
	for _, b := range m.buckets {
		if b.UserID == userID && b.Year == year && !b.IsDeleted() {
			return b, nil
		}
	}
	return vacation.Bucket{}, vacation.ErrBucketNotFound
}

func (m *Memory) getByIDLocked(id vacation.BucketID) (vacation.Bucket, error) {
	b, ok := m.buckets[id]
	if !ok || b.IsDeleted() {
		return vacation.Bucket{}, vacation.ErrBucketNotFound
	}
	return b, nil
}

func (m *Memory) createLocked(userID vacation.UserID, year int, totalDays vacation.Days) (vacation.Bucket, error) {
	if _, err := m.getLocked(userID, year); err == nil {
		return vacation.Bucket{}, vacation.ErrBucketExists
	}
	now := m.now().UTC()
	b := vacation.Bucket{
		ID:        vacation.BucketID(uuid.NewString()),
		UserID:    userID,
		Year:      year,
		TotalDays: totalDays,
		UsedDays:  vacation.ZeroDays(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.buckets[b.ID] = b
	return b, nil
}

func (m *Memory) updateUsedLocked(id vacation.BucketID, expected, newUsed vacation.Days) error {
	b, err := m.getByIDLocked(id)
	if err != nil {
		return err
	}
	if !b.UsedDays.Equal(expected) {
		return vacation.ErrConcurrentModification
	}
	b.UsedDays = newUsed
	b.UpdatedAt = m.now().UTC()
	m.buckets[id] = b
	return nil
}

func (m *Memory) updateTotalLocked(id vacation.BucketID, totalDays vacation.Days) error {
	b, err := m.getByIDLocked(id)
	if err != nil {
		return err
	}
	b.TotalDays = totalDays
	b.UpdatedAt = m.now().UTC()
	m.buckets[id] = b
	return nil
}

func (m *Memory) softDeleteLocked(id vacation.BucketID) error {
	b, err := m.getByIDLocked(id)
	if err != nil {
		return err
	}
	now := m.now().UTC()
	b.DeletedAt = &now
	b.UpdatedAt = now
	m.buckets[id] = b
	return nil
}

// =============================================================================
// TRANSACTIONS - Snapshot + rollback on error
// =============================================================================

// WithTx runs fn with exclusive access. If fn returns an error, the bucket
// map is restored to its state before fn ran.
func (m *Memory) WithTx(ctx context.Context, fn func(vacation.BucketStore) error) error {
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.mu.Lock()
	snapshot := make(map[vacation.BucketID]vacation.Bucket, len(m.buckets))
	for k, v := range m.buckets {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(&txView{parent: m}); err != nil {
		m.mu.Lock()
		m.buckets = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

// txView writes under mu only; the enclosing WithTx already holds txMu,
// which every bucket write outside a transaction also takes.
type txView struct {
	parent *Memory
}

func (tv *txView) ListBuckets(ctx context.Context, userID vacation.UserID, maxYear int) ([]vacation.Bucket, error) {
	return tv.parent.ListBuckets(ctx, userID, maxYear)
}

func (tv *txView) GetBucket(ctx context.Context, userID vacation.UserID, year int) (vacation.Bucket, error) {
	return tv.parent.GetBucket(ctx, userID, year)
}

func (tv *txView) GetBucketByID(ctx context.Context, id vacation.BucketID) (vacation.Bucket, error) {
	return tv.parent.GetBucketByID(ctx, id)
}

func (tv *txView) HasBucketHistory(ctx context.Context, userID vacation.UserID, year int) (bool, error) {
	return tv.parent.HasBucketHistory(ctx, userID, year)
}

func (tv *txView) CreateBucket(_ context.Context, userID vacation.UserID, year int, totalDays vacation.Days) (vacation.Bucket, error) {
	tv.parent.mu.Lock()
	defer tv.parent.mu.Unlock()
	return tv.parent.createLocked(userID, year, totalDays)
}

func (tv *txView) UpdateUsedDays(_ context.Context, id vacation.BucketID, expected, newUsed vacation.Days) error {
	tv.parent.mu.Lock()
	defer tv.parent.mu.Unlock()
	return tv.parent.updateUsedLocked(id, expected, newUsed)
}

func (tv *txView) UpdateTotalDays(_ context.Context, id vacation.BucketID, totalDays vacation.Days) error {
	tv.parent.mu.Lock()
	defer tv.parent.mu.Unlock()
	return tv.parent.updateTotalLocked(id, totalDays)
}

func (tv *txView) SoftDeleteBucket(_ context.Context, id vacation.BucketID) error {
	tv.parent.mu.Lock()
	defer tv.parent.mu.Unlock()
	return tv.parent.softDeleteLocked(id)
}

// =============================================================================
// EMPLOYEE STORE
// =============================================================================

func (m *Memory) SaveEmployee(_ context.Context, emp vacation.Employee) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.employees[emp.ID]; ok {
		emp.CreatedAt = existing.CreatedAt
	} else if emp.CreatedAt.IsZero() {
		emp.CreatedAt = m.now().UTC()
	}
	m.employees[emp.ID] = emp
	return nil
}

func (m *Memory) GetEmployee(_ context.Context, id vacation.UserID) (vacation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	emp, ok := m.employees[id]
	if !ok {
		return vacation.Employee{}, vacation.ErrEmployeeNotFound
	}
	return emp, nil
}

func (m *Memory) ListEmployees(_ context.Context) ([]vacation.Employee, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]vacation.Employee, 0, len(m.employees))
	for _, emp := range m.employees {
		result = append(result, emp)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result, nil
}
