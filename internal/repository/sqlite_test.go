package repository_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/atinyakov/shortlink/internal/app/service"
	"github.com/atinyakov/shortlink/internal/errx"
	"github.com/atinyakov/shortlink/internal/repository"
	"github.com/atinyakov/shortlink/internal/storage/storagetest"
)

func openSQLite(t *testing.T, path string) *repository.URLRepository {
	t.Helper()

	db, err := repository.InitDB(context.Background(), repository.SQLite, path, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return repository.NewURLRepository(db, repository.SQLite, zap.NewNop())
}

func TestSQLite_Contract(t *testing.T) {
	storagetest.Run(t, func(t *testing.T) service.Storage {
		return openSQLite(t, filepath.Join(t.TempDir(), "urls.db"))
	})
}

func TestSQLite_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urls.db")
	ctx := context.Background()

	db, err := repository.InitDB(ctx, repository.SQLite, path, zap.NewNop())
	require.NoError(t, err)
	first := repository.NewURLRepository(db, repository.SQLite, zap.NewNop())

	created, err := first.Create(ctx, "https://example.com/a", "aB3xQ9")
	require.NoError(t, err)
	deleted, err := first.Create(ctx, "https://example.com/b", "gone01")
	require.NoError(t, err)
	ok, err := first.Delete(ctx, deleted.ID)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, db.Close())

	second := openSQLite(t, path)

	found, err := second.FindByCode(ctx, "aB3xQ9")
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, created.ID, found.ID)
	assert.True(t, created.CreatedAt.Equal(found.CreatedAt))

	next, err := second.Create(ctx, "https://example.com/c", "new001")
	require.NoError(t, err)
	assert.Greater(t, next.ID, deleted.ID)
}

func TestSQLite_ConstraintIsAuthoritative(t *testing.T) {
	repo := openSQLite(t, filepath.Join(t.TempDir(), "urls.db"))
	ctx := context.Background()

	_, err := repo.Create(ctx, "https://example.com/a", "same01")
	require.NoError(t, err)

	_, err = repo.Create(ctx, "https://example.com/b", "same01")
	require.Error(t, err)
	assert.Equal(t, errx.Conflict, errx.KindOf(err))
	assert.ErrorIs(t, err, repository.ErrConflict)
}

func TestInitDB_UnknownDialect(t *testing.T) {
	_, err := repository.InitDB(context.Background(), repository.Dialect("mysql"), "", zap.NewNop())
	assert.Error(t, err)
}
