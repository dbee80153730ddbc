// Package storagetest checks that a service.Storage implementation honours
// the store contract. Every backend runs the same suite from its own tests.
package storagetest

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/errx"
)

// Factory returns a new, empty store.
type Factory func(t *testing.T) service.Storage

// Run executes the whole contract suite against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("create and find", func(t *testing.T) { testCreateAndFind(t, newStore(t)) })
	t.Run("create conflict", func(t *testing.T) { testCreateConflict(t, newStore(t)) })
	t.Run("misses are not errors", func(t *testing.T) { testMisses(t, newStore(t)) })
	t.Run("list newest first", func(t *testing.T) { testListOrder(t, newStore(t)) })
	t.Run("update", func(t *testing.T) { testUpdate(t, newStore(t)) })
	t.Run("update conflict", func(t *testing.T) { testUpdateConflict(t, newStore(t)) })
	t.Run("update missing", func(t *testing.T) { testUpdateMissing(t, newStore(t)) })
	t.Run("delete finality", func(t *testing.T) { testDelete(t, newStore(t)) })
	t.Run("concurrent create", func(t *testing.T) { testConcurrentCreate(t, newStore(t)) })
}

func testCreateAndFind(t *testing.T, s service.Storage) {
	ctx := context.Background()

	created, err := s.Create(ctx, "https://example.com/a", "aB3xQ9")
	require.NoError(t, err)
	require.NotNil(t, created)
	assert.Positive(t, created.ID)
	assert.Equal(t, "aB3xQ9", created.ShortCode)
	assert.Equal(t, "https://example.com/a", created.LongURL)
	assert.False(t, created.CreatedAt.IsZero())

	byCode, err := s.FindByCode(ctx, "aB3xQ9")
	require.NoError(t, err)
	require.NotNil(t, byCode)
	assert.Equal(t, created.ID, byCode.ID)
	assert.Equal(t, created.LongURL, byCode.LongURL)
	assert.True(t, created.CreatedAt.Equal(byCode.CreatedAt))

	byID, err := s.FindByID(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "aB3xQ9", byID.ShortCode)

	exists, err := s.ExistsByCode(ctx, "aB3xQ9")
	require.NoError(t, err)
	assert.True(t, exists)
}

func testCreateConflict(t *testing.T, s service.Storage) {
	ctx := context.Background()

	first, err := s.Create(ctx, "https://example.com/1", "dup")
	require.NoError(t, err)

	_, err = s.Create(ctx, "https://example.com/2", "dup")
	require.Error(t, err)
	assert.Equal(t, errx.Conflict, errx.KindOf(err))

	stored, err := s.FindByCode(ctx, "dup")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, first.ID, stored.ID)
	assert.Equal(t, "https://example.com/1", stored.LongURL)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func testMisses(t *testing.T, s service.Storage) {
	ctx := context.Background()

	byCode, err := s.FindByCode(ctx, "zzzzzz")
	require.NoError(t, err)
	assert.Nil(t, byCode)

	byID, err := s.FindByID(ctx, 42)
	require.NoError(t, err)
	assert.Nil(t, byID)

	exists, err := s.ExistsByCode(ctx, "zzzzzz")
	require.NoError(t, err)
	assert.False(t, exists)

	all, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	deleted, err := s.Delete(ctx, 42)
	require.NoError(t, err)
	assert.False(t, deleted)
}

func testListOrder(t *testing.T, s service.Storage) {
	ctx := context.Background()

	var ids []int64
	for i := 0; i < 3; i++ {
		r, err := s.Create(ctx, fmt.Sprintf("https://example.com/%d", i), fmt.Sprintf("code%d", i))
		require.NoError(t, err)
		ids = append(ids, r.ID)
	}

	all, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []int64{ids[2], ids[1], ids[0]}, []int64{all[0].ID, all[1].ID, all[2].ID})
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].CreatedAt.After(all[i-1].CreatedAt))
	}
}

func testUpdate(t *testing.T, s service.Storage) {
	ctx := context.Background()

	r, err := s.Create(ctx, "https://example.com/old", "old123")
	require.NoError(t, err)

	updated, err := s.Update(ctx, r.ID, "new123", "https://example.com/new")
	require.NoError(t, err)
	require.NotNil(t, updated)
	assert.Equal(t, r.ID, updated.ID)
	assert.Equal(t, "new123", updated.ShortCode)
	assert.Equal(t, "https://example.com/new", updated.LongURL)
	assert.True(t, r.CreatedAt.Equal(updated.CreatedAt))

	old, err := s.FindByCode(ctx, "old123")
	require.NoError(t, err)
	assert.Nil(t, old)

	current, err := s.FindByCode(ctx, "new123")
	require.NoError(t, err)
	require.NotNil(t, current)
	assert.Equal(t, r.ID, current.ID)

	same, err := s.Update(ctx, r.ID, "new123", "https://example.com/newer")
	require.NoError(t, err)
	require.NotNil(t, same)
	assert.Equal(t, "https://example.com/newer", same.LongURL)
}

func testUpdateConflict(t *testing.T, s service.Storage) {
	ctx := context.Background()

	a, err := s.Create(ctx, "https://example.com/a", "abc123")
	require.NoError(t, err)
	b, err := s.Create(ctx, "https://example.com/b", "xyz789")
	require.NoError(t, err)

	_, err = s.Update(ctx, b.ID, "abc123", b.LongURL)
	require.Error(t, err)
	assert.Equal(t, errx.Conflict, errx.KindOf(err))

	gotA, err := s.FindByID(ctx, a.ID)
	require.NoError(t, err)
	require.NotNil(t, gotA)
	assert.Equal(t, "abc123", gotA.ShortCode)
	assert.Equal(t, "https://example.com/a", gotA.LongURL)

	gotB, err := s.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, gotB)
	assert.Equal(t, "xyz789", gotB.ShortCode)
	assert.Equal(t, "https://example.com/b", gotB.LongURL)
}

func testUpdateMissing(t *testing.T, s service.Storage) {
	updated, err := s.Update(context.Background(), 999, "abc", "https://example.com")
	require.NoError(t, err)
	assert.Nil(t, updated)
}

func testDelete(t *testing.T, s service.Storage) {
	ctx := context.Background()

	r, err := s.Create(ctx, "https://example.com/gone", "gone01")
	require.NoError(t, err)

	deleted, err := s.Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.True(t, deleted)

	again, err := s.Delete(ctx, r.ID)
	require.NoError(t, err)
	assert.False(t, again)

	got, err := s.FindByID(ctx, r.ID)
	require.NoError(t, err)
	assert.Nil(t, got)

	exists, err := s.ExistsByCode(ctx, "gone01")
	require.NoError(t, err)
	assert.False(t, exists)

	reused, err := s.Create(ctx, "https://example.com/back", "gone01")
	require.NoError(t, err)
	assert.Greater(t, reused.ID, r.ID)
}

func testConcurrentCreate(t *testing.T, s service.Storage) {
	const writers = 16
	ctx := context.Background()

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		wins      int
		conflicts int
	)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Create(ctx, fmt.Sprintf("https://example.com/%d", i), "race01")

			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				wins++
			case errx.KindOf(err) == errx.Conflict:
				conflicts++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, wins)
	assert.Equal(t, writers-1, conflicts)
}
