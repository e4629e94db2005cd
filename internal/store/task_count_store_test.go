package store

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/semanadefe/semanadefe/internal/db"
)

func TestTaskCountStoreIncrementCreatesLazily(t *testing.T) {
	d := openTestDB(t)
	counts := NewTaskCountStore(d, db.SQLite)
	ctx := context.Background()

	all, err := counts.GetAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	n, err := counts.Increment(ctx, "orar-por-alguem", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = counts.Increment(ctx, "orar-por-alguem", 2)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	all, err = counts.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"orar-por-alguem": 3}, all)
}

func TestTaskCountStoreDecrementClampsAtZero(t *testing.T) {
	d := openTestDB(t)
	counts := NewTaskCountStore(d, db.SQLite)
	ctx := context.Background()

	n, err := counts.Increment(ctx, "task-1", -1)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = counts.Increment(ctx, "task-1", 2)
	require.NoError(t, err)

	n, err = counts.Increment(ctx, "task-1", -5)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = counts.Increment(ctx, "task-1", 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestTaskCountStoreConcurrentIncrements(t *testing.T) {
	d := openTestDB(t)
	counts := NewTaskCountStore(d, db.SQLite)
	ctx := context.Background()

	const callers = 50
	var wg sync.WaitGroup
	errs := make(chan error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := counts.Increment(ctx, "task-1", 1); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	all, err := counts.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(callers), all["task-1"])
}

func TestTaskCountStoreTwoConcurrentIncrements(t *testing.T) {
	d := openTestDB(t)
	counts := NewTaskCountStore(d, db.SQLite)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := counts.Increment(ctx, "task-1", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	all, err := counts.GetAll(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"task-1": 2}, all)
}
