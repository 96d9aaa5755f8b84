package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordAndListEvents(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordEvent(ctx, "product.start", "ledger", "started", `{"durationMs":812}`))
	require.NoError(t, store.RecordEvent(ctx, "license.activate", "", "activated professional", ""))
	require.NoError(t, store.RecordEvent(ctx, "product.stop", "ledger", "stopped", ""))

	all, err := store.ListEventsTail(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "product.start", all[0].Kind)
	assert.Equal(t, "product.stop", all[2].Kind)
	require.NotNil(t, all[0].ProductID)
	assert.Equal(t, "ledger", *all[0].ProductID)
	assert.Nil(t, all[1].ProductID)
	assert.Equal(t, `{"durationMs":812}`, all[0].JSON)

	ledger, err := store.ListEventsTail(ctx, "ledger", 10)
	require.NoError(t, err)
	require.Len(t, ledger, 2)

	after, err := store.ListEventsAfter(ctx, all[0].ID, 10)
	require.NoError(t, err)
	require.Len(t, after, 2)
	assert.Equal(t, "license.activate", after[0].Kind)
}

func TestListEventsTailLimit(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, store.RecordEvent(ctx, "product.status", "pulse", "", ""))
	}
	tail, err := store.ListEventsTail(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, tail, 2)
	assert.Less(t, tail[0].ID, tail[1].ID)

	_, err = store.ListEventsTail(ctx, "", 0)
	require.Error(t, err)
}

func TestRecordEventRequiresKind(t *testing.T) {
	store := openTestStore(t)
	require.Error(t, store.RecordEvent(context.Background(), "", "ledger", "", ""))
}
