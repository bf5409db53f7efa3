package users

import (
	"context"
	"testing"

	"github.com/angelmondragon/ticketbooth-backend/pkg/db/dbtest"
	"github.com/angelmondragon/ticketbooth-backend/pkg/db/models"
	"github.com/angelmondragon/ticketbooth-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/ticketbooth-backend/pkg/errors"
	"github.com/angelmondragon/ticketbooth-backend/pkg/pagination"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newRepo(t *testing.T) (*Repository, *gorm.DB) {
	t.Helper()
	conn := dbtest.Open(t, models.All()...)
	return NewRepository(conn), conn
}

func TestRepositoryCreateNormalizesEmail(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "  Alice@Example.COM ", UserName: "alice", PasswordHash: "h"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", user.Email)
	assert.Equal(t, enums.UserRoleCustomer, user.Role)

	found, err := repo.FindByEmail(ctx, "ALICE@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.ID, found.ID)
}

func TestRepositoryCreateDuplicateEmailIsConflict(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	_, err := repo.Create(ctx, CreateUserDTO{Email: "dup@example.com", UserName: "a", PasswordHash: "h"})
	require.NoError(t, err)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "DUP@example.com", UserName: "b", PasswordHash: "h"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict), "expected conflict, got %v", err)
}

func TestRepositorySoftDeletedUsersAreInvisibleAndReleaseEmail(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	user, err := repo.Create(ctx, CreateUserDTO{Email: "gone@example.com", UserName: "gone", PasswordHash: "h"})
	require.NoError(t, err)
	user.IsDeleted = true
	require.NoError(t, repo.Save(ctx, user))

	_, err = repo.FindByEmail(ctx, "gone@example.com")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
	_, err = repo.FindByID(ctx, user.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	_, err = repo.Create(ctx, CreateUserDTO{Email: "gone@example.com", UserName: "again", PasswordHash: "h"})
	assert.NoError(t, err)
}

func TestRepositoryListByRolePages(t *testing.T) {
	repo, _ := newRepo(t)
	ctx := context.Background()

	for _, email := range []string{"m1@example.com", "m2@example.com", "m3@example.com"} {
		_, err := repo.Create(ctx, CreateUserDTO{Email: email, UserName: email, PasswordHash: "h", Role: enums.UserRoleTheaterManager})
		require.NoError(t, err)
	}
	_, err := repo.Create(ctx, CreateUserDTO{Email: "c@example.com", UserName: "c", PasswordHash: "h"})
	require.NoError(t, err)

	svc, err := NewService(repo)
	require.NoError(t, err)

	first, err := svc.ListManagers(ctx, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, first.Items, 2)
	require.NotEmpty(t, first.NextCursor)

	second, err := svc.ListManagers(ctx, pagination.Params{Limit: 2, Cursor: first.NextCursor})
	require.NoError(t, err)
	require.Len(t, second.Items, 1)
	assert.Empty(t, second.NextCursor)

	seen := map[string]bool{}
	for _, u := range append(first.Items, second.Items...) {
		assert.Equal(t, enums.UserRoleTheaterManager, u.Role)
		seen[u.Email] = true
	}
	assert.Len(t, seen, 3)
}

func TestServiceListManagersRejectsBadCursor(t *testing.T) {
	repo, _ := newRepo(t)
	svc, err := NewService(repo)
	require.NoError(t, err)

	_, err = svc.ListManagers(context.Background(), pagination.Params{Cursor: "%%%"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation), "expected validation error, got %v", err)
}

func TestLocalPart(t *testing.T) {
	assert.Equal(t, "jane.doe", LocalPart(" Jane.Doe@Cinema.io "))
	assert.Equal(t, "noat", LocalPart("noat"))
}
