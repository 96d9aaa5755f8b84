package db

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMachineIDWriteOnce(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetMachineID(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, store.SetMachineID(ctx, "machine-a"))
	got, err := store.GetMachineID(ctx)
	require.NoError(t, err)
	assert.Equal(t, "machine-a", got)

	// Same value is a no-op, a different value is rejected.
	require.NoError(t, store.SetMachineID(ctx, "machine-a"))
	require.Error(t, store.SetMachineID(ctx, "machine-b"))
}

func TestLicenseStateRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	_, err := store.GetLicenseState(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	validatedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSealedLicense(ctx, "age-ciphertext", validatedAt))

	state, err := store.GetLicenseState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "age-ciphertext", state.SealedLicense)
	require.NotNil(t, state.LastValidation)
	assert.True(t, state.LastValidation.Equal(validatedAt))
	assert.Nil(t, state.TrialStartedAt)
}

func TestTouchLastValidation(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.ErrorIs(t, store.TouchLastValidation(ctx, time.Now()), ErrNotFound)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveSealedLicense(ctx, "sealed", first))

	second := first.Add(24 * time.Hour)
	require.NoError(t, store.TouchLastValidation(ctx, second))

	state, err := store.GetLicenseState(ctx)
	require.NoError(t, err)
	require.NotNil(t, state.LastValidation)
	assert.True(t, state.LastValidation.Equal(second))
}

func TestClearLicenseKeepsTrial(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	trialStart := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	_, err := store.EnsureTrialStart(ctx, trialStart)
	require.NoError(t, err)
	require.NoError(t, store.SaveSealedLicense(ctx, "sealed", trialStart.Add(time.Hour)))

	require.NoError(t, store.ClearLicense(ctx))

	state, err := store.GetLicenseState(ctx)
	require.NoError(t, err)
	assert.Empty(t, state.SealedLicense)
	assert.Nil(t, state.LastValidation)
	require.NotNil(t, state.TrialStartedAt)
	assert.True(t, state.TrialStartedAt.Equal(trialStart))
}

func TestEnsureTrialStartNeverMoves(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	first := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	got, err := store.EnsureTrialStart(ctx, first)
	require.NoError(t, err)
	assert.True(t, got.Equal(first))

	later := first.Add(10 * 24 * time.Hour)
	got, err = store.EnsureTrialStart(ctx, later)
	require.NoError(t, err)
	assert.True(t, got.Equal(first))
}
