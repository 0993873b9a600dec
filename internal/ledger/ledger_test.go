// internal/ledger/ledger_test.go
package ledger

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	l, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestAppendAssignsMonotonicSequence(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	first, err := l.RecordPurchase(ctx, "S001", "B001")
	require.NoError(t, err)
	second, err := l.RecordReturn(ctx, "S001", "B001")
	require.NoError(t, err)
	third, err := l.RecordPurchase(ctx, "S002", "B002")
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.SequenceID)
	assert.Equal(t, int64(2), second.SequenceID)
	assert.Equal(t, int64(3), third.SequenceID)

	assert.Equal(t, KindPurchase, first.Kind)
	assert.Equal(t, KindReturn, second.Kind)
	assert.False(t, first.CreatedAt.IsZero())
	assert.False(t, second.CreatedAt.Before(first.CreatedAt))
}

func TestHasOpenPurchase(t *testing.T) {
	ctx := context.Background()

	t.Run("no events", func(t *testing.T) {
		l := openTestLedger(t)
		open, err := l.HasOpenPurchase(ctx, "S001", "B001")
		require.NoError(t, err)
		assert.False(t, open)
	})

	t.Run("open after purchase", func(t *testing.T) {
		l := openTestLedger(t)
		_, err := l.RecordPurchase(ctx, "S001", "B001")
		require.NoError(t, err)

		open, err := l.HasOpenPurchase(ctx, "S001", "B001")
		require.NoError(t, err)
		assert.True(t, open)
	})

	t.Run("closed after return", func(t *testing.T) {
		l := openTestLedger(t)
		_, err := l.RecordPurchase(ctx, "S001", "B001")
		require.NoError(t, err)
		_, err = l.RecordReturn(ctx, "S001", "B001")
		require.NoError(t, err)

		open, err := l.HasOpenPurchase(ctx, "S001", "B001")
		require.NoError(t, err)
		assert.False(t, open, "a returned copy must not be returnable twice")
	})

	t.Run("reopened by a later purchase", func(t *testing.T) {
		l := openTestLedger(t)
		_, err := l.RecordPurchase(ctx, "S001", "B001")
		require.NoError(t, err)
		_, err = l.RecordReturn(ctx, "S001", "B001")
		require.NoError(t, err)
		_, err = l.RecordPurchase(ctx, "S001", "B001")
		require.NoError(t, err)

		open, err := l.HasOpenPurchase(ctx, "S001", "B001")
		require.NoError(t, err)
		assert.True(t, open)
	})

	t.Run("scoped to the pair", func(t *testing.T) {
		l := openTestLedger(t)
		_, err := l.RecordPurchase(ctx, "S001", "B001")
		require.NoError(t, err)

		open, err := l.HasOpenPurchase(ctx, "S002", "B001")
		require.NoError(t, err)
		assert.False(t, open)

		open, err = l.HasOpenPurchase(ctx, "S001", "B002")
		require.NoError(t, err)
		assert.False(t, open)
	})
}

func TestEventsForReturnsSequenceOrder(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	_, err := l.RecordPurchase(ctx, "S001", "B001")
	require.NoError(t, err)
	_, err = l.RecordPurchase(ctx, "S002", "B002")
	require.NoError(t, err)
	_, err = l.RecordReturn(ctx, "S001", "B001")
	require.NoError(t, err)

	events, err := l.EventsFor(ctx, "S001", "B001")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, KindPurchase, events[0].Kind)
	assert.Equal(t, KindReturn, events[1].Kind)
	assert.Less(t, events[0].SequenceID, events[1].SequenceID)
}

func TestEventsDurableAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ctx := context.Background()

	l, err := Open(path)
	require.NoError(t, err)
	_, err = l.RecordPurchase(ctx, "S001", "B001")
	require.NoError(t, err)
	require.NoError(t, l.Close())

	reopened, err := Open(path)
	require.NoError(t, err)
	defer reopened.Close()

	events, err := reopened.EventsFor(ctx, "S001", "B001")
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, KindPurchase, events[0].Kind)

	open, err := reopened.HasOpenPurchase(ctx, "S001", "B001")
	require.NoError(t, err)
	assert.True(t, open)
}
