package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/retroloop/retroloop/internal/identity"
	"github.com/retroloop/retroloop/internal/repository"
	"github.com/retroloop/retroloop/internal/sqlite"
	"github.com/stretchr/testify/require"
)

func TestPrincipalRepository_CreateAndGet(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	repo := sqlite.NewPrincipalRepository(db)

	created := identity.Principal{ID: "p1", Name: "익명-p1", CreatedAt: time.Now()}
	require.NoError(t, repo.Create(ctx, created))

	got, err := repo.Get(ctx, "p1")
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)
	require.Equal(t, created.Name, got.Name)
}

func TestPrincipalRepository_GetUnknown(t *testing.T) {
	db := newTestDB(t)
	repo := sqlite.NewPrincipalRepository(db)

	_, err := repo.Get(context.Background(), "nope")
	require.ErrorIs(t, err, repository.ErrNotFound)
}
