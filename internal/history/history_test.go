package history

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/runlet-dev/runlet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecord_FinishSuccess(t *testing.T) {
	rec := NewRecord([]string{"echo", "hi"}, "")
	out, err := runlet.Output(context.Background(), runlet.New("echo", "hi"))
	require.NoError(t, err)

	rec.Finish(out, nil, 12*time.Millisecond)

	assert.Equal(t, OutcomeSuccess, rec.Outcome)
	assert.Equal(t, "hi\n", rec.Stdout)
	assert.Equal(t, int64(12), rec.DurationMS)
	assert.NotEmpty(t, rec.ID)
}

func TestRecord_FinishChildFailure(t *testing.T) {
	rec := NewRecord([]string{"sh", "-c", "echo warn >&2; exit 3"}, "")
	_, err := runlet.Output(context.Background(), runlet.New("sh", "-c", "echo warn >&2; exit 3"))
	require.Error(t, err)

	rec.Finish(nil, err, time.Millisecond)

	assert.Equal(t, OutcomeChildFailure, rec.Outcome)
	assert.Equal(t, 3, rec.ExitCode)
	assert.Contains(t, rec.Stderr, "warn")
}

func TestRecord_FinishCommFailure(t *testing.T) {
	rec := NewRecord([]string{"no-such-program-zzz"}, "")
	err := runlet.Run(context.Background(), runlet.New("no-such-program-zzz"))
	require.Error(t, err)

	rec.Finish(nil, err, time.Millisecond)

	assert.Equal(t, OutcomeCommFailure, rec.Outcome)
	assert.Contains(t, rec.Error, "no-such-program-zzz")
	assert.Empty(t, rec.Stderr)
}

func TestRecord_Summary(t *testing.T) {
	rec := NewRecord([]string{"true"}, "")
	rec.Finish(nil, nil, time.Millisecond)
	assert.Contains(t, rec.Summary(), "ok")

	rec = NewRecord([]string{"sh", "-c", "echo w >&2"}, "")
	rec.Outcome = OutcomeChildFailure
	rec.ExitCode = 0
	rec.Stderr = "w\n"
	assert.Contains(t, rec.Summary(), "stderr output on clean exit")
}

func TestDiskStore_SaveLoad(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	rec := NewRecord([]string{"echo"}, "/work")
	rec.Finish([]byte("out\n"), nil, time.Millisecond)
	require.NoError(t, store.Save(rec))

	got, err := store.Load(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Argv, got.Argv)
	assert.Equal(t, OutcomeSuccess, got.Outcome)
	assert.Equal(t, "out\n", got.Stdout)
}

func TestDiskStore_LoadMissing(t *testing.T) {
	store := NewDiskStore(t.TempDir())
	_, err := store.Load("missing-id")
	assert.Error(t, err)
}

func TestDiskStore_List(t *testing.T) {
	store := NewDiskStore(t.TempDir())

	for i := 0; i < 5; i++ {
		rec := NewRecord([]string{"step", fmt.Sprint(i)}, "")
		rec.StartedAt = time.Date(2026, 1, 1, 0, i, 0, 0, time.UTC)
		rec.Outcome = OutcomeSuccess
		require.NoError(t, store.Save(rec))
	}

	records, err := store.List(3)
	require.NoError(t, err)
	require.Len(t, records, 3)
	// Most recent first.
	assert.Equal(t, []string{"step", "4"}, records[0].Argv)
	assert.Equal(t, []string{"step", "2"}, records[2].Argv)
}

func TestLRUStore_Eviction(t *testing.T) {
	back := NewDiskStore(t.TempDir())
	store := NewLRUStore(2, back)

	var ids []string
	for i := 0; i < 3; i++ {
		rec := NewRecord([]string{"cmd", fmt.Sprint(i)}, "")
		rec.Outcome = OutcomeSuccess
		require.NoError(t, store.Save(rec))
		ids = append(ids, rec.ID)
	}

	// The oldest entry fell out of the cache but survives on disk.
	store.mu.Lock()
	_, cached := store.items[ids[0]]
	store.mu.Unlock()
	assert.False(t, cached, "evicted record still in cache")

	got, err := store.Load(ids[0])
	require.NoError(t, err)
	assert.Equal(t, ids[0], got.ID)
}

func TestLRUStore_ListDelegates(t *testing.T) {
	back := NewDiskStore(t.TempDir())
	store := NewLRUStore(1, back)

	rec := NewRecord([]string{"one"}, "")
	rec.Outcome = OutcomeSuccess
	require.NoError(t, store.Save(rec))

	records, err := store.List(10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.ID, records[0].ID)
}
