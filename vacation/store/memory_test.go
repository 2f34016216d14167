package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/vacation-engine/vacation"
)

func TestMemory_CreateAndList(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	for _, year := range []int{2024, 2022, 2023} {
		_, err := m.CreateBucket(ctx, "emp-1", year, vacation.NewDays(14))
		require.NoError(t, err)
	}
	_, err := m.CreateBucket(ctx, "emp-2", 2022, vacation.NewDays(14))
	require.NoError(t, err)

	buckets, err := m.ListBuckets(ctx, "emp-1", 2023)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, 2022, buckets[0].Year)
	assert.Equal(t, 2023, buckets[1].Year)

	_, err = m.CreateBucket(ctx, "emp-1", 2024, vacation.NewDays(14))
	assert.ErrorIs(t, err, vacation.ErrBucketExists)
}

func TestMemory_UpdateUsedDays(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	b, err := m.CreateBucket(ctx, "emp-1", 2024, vacation.NewDays(14))
	require.NoError(t, err)

	require.NoError(t, m.UpdateUsedDays(ctx, b.ID, vacation.ZeroDays(), vacation.NewDays(3)))
	assert.ErrorIs(t, m.UpdateUsedDays(ctx, b.ID, vacation.ZeroDays(), vacation.NewDays(4)), vacation.ErrConcurrentModification)
	assert.ErrorIs(t, m.UpdateUsedDays(ctx, "missing", vacation.ZeroDays(), vacation.NewDays(4)), vacation.ErrBucketNotFound)

	got, err := m.GetBucket(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, got.UsedDays.Equal(vacation.NewDays(3)))
}

func TestMemory_SoftDelete(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	b, err := m.CreateBucket(ctx, "emp-1", 2024, vacation.NewDays(14))
	require.NoError(t, err)

	require.NoError(t, m.SoftDeleteBucket(ctx, b.ID))

	_, err = m.GetBucket(ctx, "emp-1", 2024)
	assert.ErrorIs(t, err, vacation.ErrBucketNotFound)
	assert.ErrorIs(t, m.UpdateTotalDays(ctx, b.ID, vacation.NewDays(1)), vacation.ErrBucketNotFound)

	// A tombstone does not block a new live bucket.
	_, err = m.CreateBucket(ctx, "emp-1", 2024, vacation.NewDays(21))
	assert.NoError(t, err)
}

func TestMemory_WithTxRollback(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	b, err := m.CreateBucket(ctx, "emp-1", 2024, vacation.NewDays(14))
	require.NoError(t, err)

	boom := errors.New("boom")
	err = m.WithTx(ctx, func(s vacation.BucketStore) error {
		require.NoError(t, s.UpdateUsedDays(ctx, b.ID, vacation.ZeroDays(), vacation.NewDays(5)))
		_, err := s.CreateBucket(ctx, "emp-1", 2025, vacation.NewDays(14))
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := m.GetBucketByID(ctx, b.ID)
	require.NoError(t, err)
	assert.True(t, got.UsedDays.IsZero())
	_, err = m.GetBucket(ctx, "emp-1", 2025)
	assert.ErrorIs(t, err, vacation.ErrBucketNotFound)
}

func TestMemory_WithTxCommit(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	err := m.WithTx(ctx, func(s vacation.BucketStore) error {
		b, err := s.CreateBucket(ctx, "emp-1", 2024, vacation.NewDays(14))
		if err != nil {
			return err
		}
		if err := s.UpdateTotalDays(ctx, b.ID, vacation.NewDays(15)); err != nil {
			return err
		}
		return s.UpdateUsedDays(ctx, b.ID, vacation.ZeroDays(), vacation.NewDays(1))
	})
	require.NoError(t, err)

	got, err := m.GetBucket(ctx, "emp-1", 2024)
	require.NoError(t, err)
	assert.True(t, got.Available().Equal(vacation.NewDays(14)))
}

func TestMemory_Employees(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()

	require.NoError(t, m.SaveEmployee(ctx, vacation.Employee{ID: "b", Name: "Zoe", HireDate: vacation.Date(2020, 1, 1)}))
	require.NoError(t, m.SaveEmployee(ctx, vacation.Employee{ID: "a", Name: "Ana", HireDate: vacation.Date(2021, 1, 1)}))

	first, err := m.GetEmployee(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, m.SaveEmployee(ctx, vacation.Employee{ID: "a", Name: "Ana B.", HireDate: vacation.Date(2021, 1, 1)}))
	renamed, err := m.GetEmployee(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, "Ana B.", renamed.Name)
	assert.Equal(t, first.CreatedAt, renamed.CreatedAt)

	all, err := m.ListEmployees(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana B.", all[0].Name)

	_, err = m.GetEmployee(ctx, "nobody")
	assert.ErrorIs(t, err, vacation.ErrEmployeeNotFound)
}
