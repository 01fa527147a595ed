package relay

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

// memDurable is an in-memory DurableStore for testing the write-through path.
type memDurable struct {
	tasks map[string][]durableTask
}

type durableTask struct {
	payload   []byte
	expiresAt time.Time
}

func newMemDurable() *memDurable {
	return &memDurable{tasks: make(map[string][]durableTask)}
}

func (m *memDurable) AppendRelayTask(_ context.Context, key string, payload []byte, expiresAt time.Time) error {
	m.tasks[key] = append(m.tasks[key], durableTask{payload: payload, expiresAt: expiresAt})
	return nil
}

func (m *memDurable) DrainRelayTasks(_ context.Context, key string, now time.Time) ([][]byte, error) {
	tasks := m.tasks[key]
	delete(m.tasks, key)
	var live [][]byte
	for _, t := range tasks {
		if t.expiresAt.After(now) {
			live = append(live, t.payload)
		}
	}
	return live, nil
}

func (m *memDurable) DeleteExpiredRelayTasks(_ context.Context, now time.Time) (int, error) {
	removed := 0
	for key, tasks := range m.tasks {
		var live []durableTask
		for _, t := range tasks {
			if t.expiresAt.After(now) {
				live = append(live, t)
			} else {
				removed++
			}
		}
		m.tasks[key] = live
	}
	return removed, nil
}

func TestCache_PushPop_InMemory(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	c := New(time.Hour, clock, nil)
	ctx := context.Background()

	require.NoError(t, c.Push(ctx, "n8n:leads", []byte(`{"task":1}`)))
	require.NoError(t, c.Push(ctx, "n8n:leads", []byte(`{"task":2}`)))

	got, err := c.Pop(ctx, "n8n:leads")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, `{"task":1}`, string(got[0]))
	assert.Equal(t, `{"task":2}`, string(got[1]))

	got, err = c.Pop(ctx, "n8n:leads")
	require.NoError(t, err)
	assert.Empty(t, got, "pop drains")
}

func TestCache_TTLEviction(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	c := New(10*time.Minute, clock, nil)
	ctx := context.Background()

	require.NoError(t, c.Push(ctx, "k", []byte("old")))
	clock.Advance(11 * time.Minute)
	require.NoError(t, c.Push(ctx, "k", []byte("fresh")))

	got, err := c.Pop(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "fresh", string(got[0]))
}

func TestCache_KeysAreIsolated(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	c := New(time.Hour, clock, nil)
	ctx := context.Background()

	require.NoError(t, c.Push(ctx, "a", []byte("for-a")))
	require.NoError(t, c.Push(ctx, "b", []byte("for-b")))

	got, err := c.Pop(ctx, "a")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "for-a", string(got[0]))

	got, err = c.Pop(ctx, "b")
	require.NoError(t, err)
	require.Len(t, got, 1)
}

func TestCache_DurableWriteThrough(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	durable := newMemDurable()
	c := New(time.Hour, clock, durable)
	ctx := context.Background()

	require.NoError(t, c.Push(ctx, "k", []byte("persisted")))
	assert.Len(t, durable.tasks["k"], 1, "push writes through to the durable store")

	got, err := c.Pop(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "persisted", string(got[0]))
	assert.Empty(t, durable.tasks["k"], "pop drains the durable copy")
}

func TestCache_DurableSurvivesRestart(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	durable := newMemDurable()
	ctx := context.Background()

	first := New(time.Hour, clock, durable)
	require.NoError(t, first.Push(ctx, "k", []byte("queued-before-restart")))

	// A new cache over the same durable store stands in for a restarted
	// process with empty memory.
	second := New(time.Hour, clock, durable)
	got, err := second.Pop(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "queued-before-restart", string(got[0]))
}

func TestCache_Sweep(t *testing.T) {
	clock := &fakeClock{now: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)}
	durable := newMemDurable()
	c := New(10*time.Minute, clock, durable)
	ctx := context.Background()

	require.NoError(t, c.Push(ctx, "k", []byte("stale")))
	clock.Advance(11 * time.Minute)
	require.NoError(t, c.Push(ctx, "k", []byte("live")))

	n, err := c.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	got, err := c.Pop(ctx, "k")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "live", string(got[0]))
}
