package runlog

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/mazen160/go-random"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) Store {
	sqlite, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	store := NewStore(sqlite)
	require.NoError(t, store.Init(context.Background()))
	return store
}

func TestRecordAndRecent(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	term, err := random.String(12)
	require.NoError(t, err)

	base := time.Date(2026, 8, 1, 9, 0, 0, 0, time.UTC)
	for i, outcome := range []string{"saved", "not-found", "unclear"} {
		err := store.Record(ctx, Entry{
			Workflow:   "update-visitor",
			SearchTerm: term,
			Outcome:    outcome,
			Duration:   time.Second * 2,
			StartedAt:  base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	entries, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "unclear", entries[0].Outcome)
	require.Equal(t, "not-found", entries[1].Outcome)
	require.Equal(t, time.Second*2, entries[0].Duration)
	require.Equal(t, term, entries[0].SearchTerm)
	require.Equal(t, base.Add(2*time.Minute).Unix(), entries[0].StartedAt.Unix())
}

func TestRecentOnEmptyStore(t *testing.T) {
	store := newTestStore(t)

	entries, err := store.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Empty(t, entries)
}
