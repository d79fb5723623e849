package services

import (
	"context"
	"testing"
	"time"

	"github.com/dmitrijs2005/meetauth/internal/common"
	"github.com/dmitrijs2005/meetauth/internal/cryptox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReset_RequestStoresDigestOnly(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, "x@y.com", "Secret1!")

	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	e.reset.now = func() time.Time { return now }

	token, err := e.reset.Request(ctx, " X@y.com")
	require.NoError(t, err)
	assert.Len(t, token, 64)

	full, err := e.store.FindByEmailWithCredential(ctx, "x@y.com")
	require.NoError(t, err)
	require.NotNil(t, full.ResetPasswordToken)
	require.NotNil(t, full.ResetPasswordExpires)
	assert.Equal(t, cryptox.TokenDigest(token), *full.ResetPasswordToken)
	assert.NotEqual(t, token, *full.ResetPasswordToken)
	assert.True(t, now.Add(time.Hour).Equal(*full.ResetPasswordExpires))
	assert.True(t, full.HasPendingReset(now))

	_, err = e.reset.Request(ctx, "nobody@y.com")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestReset_CompleteIsSingleUse(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, "x@y.com", "Secret1!")

	token, err := e.reset.Request(ctx, "x@y.com")
	require.NoError(t, err)

	_, err = e.reset.Complete(ctx, token, "NewSecret2!")
	require.NoError(t, err)

	_, err = e.flow.Login(ctx, "x@y.com", "Secret1!")
	assert.ErrorIs(t, err, common.ErrInvalidCredentials)
	_, err = e.flow.Login(ctx, "x@y.com", "NewSecret2!")
	assert.NoError(t, err)

	full, err := e.store.FindByEmailWithCredential(ctx, "x@y.com")
	require.NoError(t, err)
	assert.Nil(t, full.ResetPasswordToken)
	assert.Nil(t, full.ResetPasswordExpires)

	_, err = e.reset.Complete(ctx, token, "Third3!")
	assert.ErrorIs(t, err, common.ErrTokenInvalid)
}

func TestReset_CompleteRejects(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, "x@y.com", "Secret1!")

	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	e.reset.now = func() time.Time { return start }
	token, err := e.reset.Request(ctx, "x@y.com")
	require.NoError(t, err)

	_, err = e.reset.Complete(ctx, "", "pw")
	assert.ErrorIs(t, err, common.ErrTokenInvalid)

	_, err = e.reset.Complete(ctx, "not-the-token", "pw")
	assert.ErrorIs(t, err, common.ErrTokenInvalid)

	_, err = e.reset.Complete(ctx, token, "")
	assert.ErrorIs(t, err, common.ErrValidation)

	e.reset.now = func() time.Time { return start.Add(time.Hour) }
	_, err = e.reset.Complete(ctx, token, "pw")
	assert.ErrorIs(t, err, common.ErrTokenInvalid, "a token is expired at its expiry instant")
}

func TestReset_NewRequestReplacesOld(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.mustCreate(t, "x@y.com", "Secret1!")

	first, err := e.reset.Request(ctx, "x@y.com")
	require.NoError(t, err)
	second, err := e.reset.Request(ctx, "x@y.com")
	require.NoError(t, err)

	_, err = e.reset.Complete(ctx, first, "pw")
	assert.ErrorIs(t, err, common.ErrTokenInvalid)
	_, err = e.reset.Complete(ctx, second, "pw")
	assert.NoError(t, err)
}

func TestChangePassword_CancelsPendingReset(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	u := e.mustCreate(t, "x@y.com", "Secret1!")

	token, err := e.reset.Request(ctx, "x@y.com")
	require.NoError(t, err)

	_, err = e.reset.ChangePassword(ctx, u.ID, "Operator9!")
	require.NoError(t, err)

	_, err = e.flow.Login(ctx, "x@y.com", "Operator9!")
	assert.NoError(t, err)
	_, err = e.reset.Complete(ctx, token, "pw")
	assert.ErrorIs(t, err, common.ErrTokenInvalid)

	_, err = e.reset.ChangePassword(ctx, "ghost", "pw")
	assert.ErrorIs(t, err, common.ErrNotFound)
	_, err = e.reset.ChangePassword(ctx, u.ID, "")
	assert.ErrorIs(t, err, common.ErrValidation)
}
