package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)

func TestRunLifecycle(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	require.NoError(t, s.BeginRun(ctx, Run{ID: "run-1", Bench: "lab", StartedAt: t0}))

	got, err := s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusRunning, got.Status)
	assert.Nil(t, got.FinishedAt)
	assert.True(t, got.StartedAt.Equal(t0))

	records := []Record{
		{RunID: "run-1", Kind: KindResult, Group: "gpio", Test: "led_on", Passed: true, RecordedAt: t0},
		{RunID: "run-1", Kind: KindInfo, Group: "gpio", Test: "led_on", Passed: true, Detail: "note", RecordedAt: t0},
		{RunID: "run-1", Kind: KindResult, Group: "gpio", Test: "button", Detail: "boom", RecordedAt: t0},
	}
	for i, rec := range records {
		seq, err := s.WriteResult(ctx, rec)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), seq)
	}

	finished := t0.Add(3 * time.Second)
	require.NoError(t, s.FinishRun(ctx, Run{
		ID: "run-1", Status: StatusFailed, FinishedAt: &finished,
		Total: 2, Passed: 1, Failed: 1,
	}))

	got, err = s.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, StatusFailed, got.Status)
	require.NotNil(t, got.FinishedAt)
	assert.True(t, got.FinishedAt.Equal(finished))
	assert.Equal(t, [3]int{2, 1, 1}, [3]int{got.Total, got.Passed, got.Failed})

	stored, err := s.RunResults(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "led_on", stored[0].Test)
	assert.True(t, stored[0].Passed)
	assert.Equal(t, KindInfo, stored[1].Kind)
	assert.False(t, stored[1].Passed, "info records never pass")
	assert.Equal(t, "boom", stored[2].Detail)
	assert.Equal(t, int64(3), stored[2].Seq)
}

func TestWriteResult_SeqIsPerRun(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.BeginRun(ctx, Run{ID: "a", Bench: "lab", StartedAt: t0}))
	require.NoError(t, s.BeginRun(ctx, Run{ID: "b", Bench: "lab", StartedAt: t0}))

	for _, id := range []string{"a", "a", "b"} {
		_, err := s.WriteResult(ctx, Record{RunID: id, Kind: KindResult, Group: "g", Test: "t", RecordedAt: t0})
		require.NoError(t, err)
	}
	seq, err := s.WriteResult(ctx, Record{RunID: "b", Kind: KindResult, Group: "g", Test: "t", RecordedAt: t0})
	require.NoError(t, err)
	assert.Equal(t, int64(2), seq)
}

func TestWriteResult_Rejects(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	_, err := s.WriteResult(ctx, Record{RunID: "nope", Kind: KindResult, RecordedAt: t0})
	require.Error(t, err, "foreign key on run_id")

	require.NoError(t, s.BeginRun(ctx, Run{ID: "r", Bench: "lab", StartedAt: t0}))
	_, err = s.WriteResult(ctx, Record{RunID: "r", Kind: "warning", RecordedAt: t0})
	require.ErrorContains(t, err, `unknown kind "warning"`)
}

func TestBeginRun_DuplicateID(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.BeginRun(ctx, Run{ID: "r", Bench: "lab", StartedAt: t0}))
	require.Error(t, s.BeginRun(ctx, Run{ID: "r", Bench: "lab", StartedAt: t0}))
}

func TestFinishRun_Unknown(t *testing.T) {
	s := createTestStore(t)
	err := s.FinishRun(context.Background(), Run{ID: "ghost", Status: StatusPassed})
	assert.True(t, errors.Is(err, ErrRunNotFound))
}

func TestGetRun_Unknown(t *testing.T) {
	s := createTestStore(t)
	_, err := s.GetRun(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestConflicts(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)
	require.NoError(t, s.BeginRun(ctx, Run{ID: "r", Bench: "lab", StartedAt: t0}))

	require.NoError(t, s.WriteConflict(ctx, Conflict{RunID: "r", Resource: "pin 17", Owner: "fan", Existing: "led", RecordedAt: t0}))
	require.NoError(t, s.WriteConflict(ctx, Conflict{RunID: "r", Resource: "port /dev/ttyS0", Owner: "b", Existing: "a", RecordedAt: t0}))

	got, err := s.RunConflicts(ctx, "r")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "pin 17", got[0].Resource)
	assert.Equal(t, "led", got[0].Existing)
	assert.Equal(t, "port /dev/ttyS0", got[1].Resource)

	none, err := s.RunConflicts(ctx, "other")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestListRuns_NewestFirst(t *testing.T) {
	ctx := context.Background()
	s := createTestStore(t)

	// Sub-second offsets must still order correctly.
	starts := map[string]time.Time{
		"first":  t0,
		"second": t0.Add(500 * time.Millisecond),
		"third":  t0.Add(time.Second),
	}
	for _, id := range []string{"second", "third", "first"} {
		require.NoError(t, s.BeginRun(ctx, Run{ID: id, Bench: "lab", StartedAt: starts[id]}))
	}

	all, err := s.ListRuns(ctx, 0)
	require.NoError(t, err)
	ids := make([]string, len(all))
	for i, r := range all {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"third", "second", "first"}, ids)

	limited, err := s.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "third", limited[0].ID)
}

func TestListRuns_Empty(t *testing.T) {
	s := createTestStore(t)
	runs, err := s.ListRuns(context.Background(), 10)
	require.NoError(t, err)
	assert.NotNil(t, runs)
	assert.Empty(t, runs)
}
