package service

import (
	"context"
	"testing"

	"smartsahuji/internal/apperr"
	"smartsahuji/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func register(t *testing.T, f *fixture, name string) *UserResponse {
	t.Helper()
	u, err := f.users.Register(context.Background(), RegisterRequest{
		Username: name,
		Email:    name + "@example.com",
		Password: "secret123",
	})
	require.NoError(t, err)
	return u
}

func TestRegisterAndLogin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := register(t, f, "asha")
	assert.Equal(t, model.RoleUser, u.Role)

	_, err := f.users.Register(ctx, RegisterRequest{Username: "asha", Email: "other@example.com", Password: "secret123"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))
	_, err = f.users.Register(ctx, RegisterRequest{Username: "other", Email: "ASHA@example.com", Password: "secret123"})
	assert.True(t, apperr.Is(err, apperr.KindConflict), "emails compare case-insensitively")
	_, err = f.users.Register(ctx, RegisterRequest{Username: "x", Email: "x@example.com", Password: "123"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))
	_, err = f.users.Register(ctx, RegisterRequest{Username: "y", Email: "y@example.com", Password: "secret123", Role: "root"})
	assert.True(t, apperr.Is(err, apperr.KindValidation))

	_, err = f.users.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "wrong"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = f.users.Login(ctx, LoginRequest{Email: "nobody@example.com", Password: "secret123"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	res, err := f.users.Login(ctx, LoginRequest{Email: "asha@example.com", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.NotEmpty(t, res.User.LastLoginAt)
}

func TestRegister_OnlyFirstAccountMayBeAdmin(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first, err := f.users.Register(ctx, RegisterRequest{Username: "owner", Email: "owner@example.com", Password: "secret123", Role: model.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, model.RoleAdmin, first.Role)

	_, err = f.users.Register(ctx, RegisterRequest{Username: "mallory", Email: "m@example.com", Password: "secret123", Role: model.RoleAdmin})
	assert.True(t, apperr.Is(err, apperr.KindForbidden))
}

func TestRefreshRotatesToken(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	register(t, f, "ravi")

	first, err := f.users.Login(ctx, LoginRequest{Email: "ravi@example.com", Password: "secret123"})
	require.NoError(t, err)

	second, err := f.users.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	_, err = f.users.Refresh(ctx, first.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "a rotated token cannot be reused")

	require.NoError(t, f.users.Logout(ctx, second.RefreshToken))
	_, err = f.users.Refresh(ctx, second.RefreshToken)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestForgotAndResetPassword(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := register(t, f, "meera")

	require.NoError(t, f.users.ForgotPassword(ctx, "nobody@example.com"))
	require.NoError(t, f.users.ForgotPassword(ctx, "meera@example.com"))

	stored, err := f.userRepo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.ResetPasswordToken)

	assert.True(t, apperr.Is(f.users.ResetPassword(ctx, "bogus", "newpass1"), apperr.KindValidation))
	require.NoError(t, f.users.ResetPassword(ctx, *stored.ResetPasswordToken, "newpass1"))
	assert.True(t, apperr.Is(f.users.ResetPassword(ctx, *stored.ResetPasswordToken, "newpass2"), apperr.KindValidation), "tokens are single use")

	_, err = f.users.Login(ctx, LoginRequest{Email: "meera@example.com", Password: "secret123"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
	_, err = f.users.Login(ctx, LoginRequest{Email: "meera@example.com", Password: "newpass1"})
	assert.NoError(t, err)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := register(t, f, "anil")
	register(t, f, "bina")

	_, err := f.users.UpdateProfile(ctx, a.ID, UpdateProfileRequest{Username: "bina"})
	assert.True(t, apperr.Is(err, apperr.KindConflict))

	updated, err := f.users.UpdateProfile(ctx, a.ID, UpdateProfileRequest{Username: "anil2", Email: "Anil2@Example.com"})
	require.NoError(t, err)
	assert.Equal(t, "anil2", updated.Username)
	assert.Equal(t, "anil2@example.com", updated.Email)

	_, err = f.users.GetProfile(ctx, uuid.New())
	assert.True(t, apperr.Is(err, apperr.KindNotFound))
}

func TestDeleteUserRemovesOwnedData(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	u := register(t, f, "kiran")
	keep := register(t, f, "lata")

	_, err := f.transactions.Record(ctx, u.ID, purchase("Chalk", "", 3, 2))
	require.NoError(t, err)
	_, err = f.transactions.Record(ctx, keep.ID, purchase("Chalk", "", 3, 2))
	require.NoError(t, err)
	_, err = f.users.Login(ctx, LoginRequest{Email: "kiran@example.com", Password: "secret123"})
	require.NoError(t, err)

	require.NoError(t, f.users.DeleteUser(ctx, u.ID))
	assert.True(t, apperr.Is(f.users.DeleteUser(ctx, u.ID), apperr.KindNotFound))

	recs, _, err := f.inventory.List(ctx, u.ID, 1, 10)
	require.NoError(t, err)
	assert.Empty(t, recs)
	assert.Zero(t, countTransactions(t, f, u.ID))
	_, total, err := f.audit.GetAuditLogs(ctx, u.ID, 1, 10)
	require.NoError(t, err)
	assert.Zero(t, total)

	recs, _, err = f.inventory.List(ctx, keep.ID, 1, 10)
	require.NoError(t, err)
	assert.Len(t, recs, 1)

	users, total, err := f.users.ListUsers(ctx, 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, "lata", users[0].Username)
}
