package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T, ttl time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedis(client, ttl, nil), mr
}

func TestRedis_RecordAggregates(t *testing.T) {
	r, _ := newTestRedis(t, 0)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, Event{Intent: "greet.py", Action: ActionGenerate, Success: true, DurationMS: 100}))
	require.NoError(t, r.Record(ctx, Event{Intent: "greet.py", Action: ActionValidate, Success: false, Message: "line 1", DurationMS: 300}))
	require.NoError(t, r.Record(ctx, Event{Intent: "other.py", Action: ActionDelete, Success: true}))

	m, err := r.Snapshot(ctx, "greet.py")
	require.NoError(t, err)
	assert.Equal(t, int64(2), m.Total)
	assert.Equal(t, int64(1), m.Successes)
	assert.Equal(t, int64(1), m.Failures)
	assert.Equal(t, map[string]int64{ActionGenerate: 1, ActionValidate: 1}, m.Actions)
	assert.InDelta(t, 200.0, m.AvgDurationMS, 0.001)
	assert.Equal(t, ActionValidate, m.LastAction)
	assert.Equal(t, "line 1", m.LastMessage)
	assert.False(t, m.LastSuccess)

	recent, err := r.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "other.py", recent[0].Intent)
	assert.NotEmpty(t, recent[0].ID)
}

func TestRedis_SnapshotOfUnknownIntent(t *testing.T) {
	r, _ := newTestRedis(t, 0)

	m, err := r.Snapshot(context.Background(), "missing.py")
	require.NoError(t, err)
	assert.Zero(t, m.Total)
	assert.NotNil(t, m.Actions)
}

func TestRedis_RecentIsCapped(t *testing.T) {
	r, mr := newTestRedis(t, 0)
	ctx := context.Background()

	for i := 0; i < recentCap+20; i++ {
		require.NoError(t, r.Record(ctx, Event{Intent: "a.py", Action: ActionValidate, Success: true}))
	}
	items, err := mr.List(recentKey)
	require.NoError(t, err)
	assert.Len(t, items, recentCap)
}

func TestRedis_TTLAndForget(t *testing.T) {
	r, mr := newTestRedis(t, time.Hour)
	ctx := context.Background()

	require.NoError(t, r.Record(ctx, Event{Intent: "a.py", Action: ActionEdit, Success: true}))
	assert.Equal(t, time.Hour, mr.TTL(metricsKey("a.py")))

	require.NoError(t, r.Forget(ctx, "a.py"))
	assert.False(t, mr.Exists(metricsKey("a.py")))
}

func TestRedis_CorruptDocumentStartsOver(t *testing.T) {
	r, mr := newTestRedis(t, 0)
	require.NoError(t, mr.Set(metricsKey("a.py"), "{not json"))

	require.NoError(t, r.Record(context.Background(), Event{Intent: "a.py", Action: ActionFix, Success: true}))
	m, err := r.Snapshot(context.Background(), "a.py")
	require.NoError(t, err)
	assert.Equal(t, int64(1), m.Total)
}

func TestNop(t *testing.T) {
	var rec Recorder = Nop{}
	require.NoError(t, rec.Record(context.Background(), Event{Intent: "a.py"}))
	m, err := rec.Snapshot(context.Background(), "a.py")
	require.NoError(t, err)
	assert.Equal(t, "a.py", m.Intent)
}
