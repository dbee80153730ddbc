package storage_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/storage"
	"github.com/atinyakov/shortlink/internal/storage/storagetest"
)

func TestMemoryStorage_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) service.Storage {
		return storage.CreateMemoryStorage()
	})
}

func TestMemoryStorage_ReturnsCopies(t *testing.T) {
	mem := storage.CreateMemoryStorage()
	ctx := context.Background()

	created, err := mem.Create(ctx, "https://example.com", "abc123")
	require.NoError(t, err)

	created.LongURL = "https://mutated.example.com"

	found, err := mem.FindByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", found.LongURL)
}

func TestMemoryStorage_CancelledContext(t *testing.T) {
	mem := storage.CreateMemoryStorage()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mem.Create(ctx, "https://example.com", "abc123")
	assert.Equal(t, errx.Unavailable, errx.KindOf(err))

	all, err := mem.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)

	assert.Error(t, mem.PingContext(ctx))
	assert.NoError(t, mem.PingContext(context.Background()))
}
