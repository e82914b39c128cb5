package application

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wyfcoding/ecommerce/internal/user/domain"
	"github.com/wyfcoding/ecommerce/pkg/errorsx"
)

func seedUsers(t *testing.T, repo *memoryUsers, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		u := domain.NewUser("user"+string(rune('a'+i))+"@example.com", "hashed:x", "", domain.RoleCustomer)
		require.NoError(t, repo.Create(context.Background(), u))
	}
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUsers()
	seedUsers(t, repo, 1)
	svc := NewUserService(repo)

	first, phone := "Eve", "555-0101"
	dto, err := svc.UpdateProfile(ctx, 1, UpdateProfileCommand{FirstName: &first, Phone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "Eve", dto.Profile.FirstName)
	assert.Equal(t, "555-0101", dto.Phone)

	got, err := svc.GetProfile(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Eve", got.Profile.FirstName)
	assert.Equal(t, "555-0101", got.Phone)

	_, err = svc.GetProfile(ctx, 42)
	assert.True(t, errorsx.IsKind(err, errorsx.KindNotFound))
}

func TestAdminUserManagement(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUsers()
	seedUsers(t, repo, 5)
	svc := NewUserService(repo)

	users, page, err := svc.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.EqualValues(t, 3, users[0].ID)
	assert.EqualValues(t, 5, page.TotalItems)
	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNextPage)
	assert.True(t, page.HasPreviousPage)

	admin := "admin"
	dto, err := svc.UpdateUser(ctx, 2, AdminUpdateUserCommand{Role: &admin})
	require.NoError(t, err)
	assert.Equal(t, "admin", dto.Role)

	bogus := "root"
	_, err = svc.UpdateUser(ctx, 2, AdminUpdateUserCommand{Role: &bogus})
	assert.True(t, errorsx.IsKind(err, errorsx.KindValidation))

	err = svc.DeleteUser(ctx, 2, 2)
	assert.True(t, errorsx.IsKind(err, errorsx.KindInvalidState))
	require.NoError(t, svc.DeleteUser(ctx, 2, 3))
	err = svc.DeleteUser(ctx, 2, 3)
	assert.True(t, errorsx.IsKind(err, errorsx.KindNotFound))
}

func TestDirectory(t *testing.T) {
	ctx := context.Background()
	repo := newMemoryUsers()
	seedUsers(t, repo, 2)
	admin := domain.NewUser("boss@example.com", "hashed:x", "", domain.RoleAdmin)
	admin.Profile.FirstName = "The"
	admin.Profile.LastName = "Boss"
	require.NoError(t, repo.Create(ctx, admin))

	dir := NewDirectory(repo)
	r, err := dir.Recipient(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "usera@example.com", r.Email)

	missing, err := dir.Recipient(ctx, 99)
	require.NoError(t, err)
	assert.Nil(t, missing)

	admins, err := dir.Admins(ctx)
	require.NoError(t, err)
	require.Len(t, admins, 1)
	assert.Equal(t, "The Boss", admins[0].Name)
}
