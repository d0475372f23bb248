package cache

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/tx"
	"bakehouse/internal/domain/events"
	"bakehouse/internal/domain/reports"
)

type fakeKV struct {
	data   map[string]string
	ttl    time.Duration
	getErr error
	incrs  []string
}

func newFakeKV() *fakeKV { return &fakeKV{data: map[string]string{}} }

func (f *fakeKV) Get(_ context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeKV) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeKV) Incr(_ context.Context, key string) *redis.IntCmd {
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	f.incrs = append(f.incrs, key)
	return redis.NewIntResult(n, nil)
}

func TestRedisSummaryCache_MissThenHit(t *testing.T) {
	ctx := context.Background()
	store := newFakeKV()
	c := NewRedisSummaryCache(store, time.Minute)

	got, gen, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Zero(t, gen)

	generated := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	require.NoError(t, c.Set(ctx, gen, &reports.Summary{GeneratedAt: generated}))
	assert.Equal(t, time.Minute, store.ttl)
	assert.Contains(t, store.data, SummaryKey+":0")

	got, _, err = c.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, generated.Equal(got.GeneratedAt))
}

func TestRedisSummaryCache_SetAfterInvalidateIsNotServed(t *testing.T) {
	ctx := context.Background()
	c := NewRedisSummaryCache(newFakeKV(), 0)

	_, gen, err := c.Get(ctx)
	require.NoError(t, err)

	// A sale commits while the summary is being computed.
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, &reports.Summary{}))

	got, next, err := c.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.Equal(t, int64(1), next)
}

func TestRedisSummaryCache_CorruptPayloadIsMiss(t *testing.T) {
	store := newFakeKV()
	store.data[SummaryKey+":0"] = "{not json"

	got, _, err := NewRedisSummaryCache(store, 0).Get(context.Background())
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestRedisSummaryCache_GetError(t *testing.T) {
	store := newFakeKV()
	store.getErr = errors.New("connection refused")

	_, _, err := NewRedisSummaryCache(store, 0).Get(context.Background())
	assert.ErrorContains(t, err, "connection refused")
}

func TestMemorySummaryCache_Expires(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	c := NewMemorySummaryCache(10 * time.Second)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, 0, &reports.Summary{}))
	got, _, _ := c.Get(ctx)
	assert.NotNil(t, got)

	now = now.Add(11 * time.Second)
	got, _, _ = c.Get(ctx)
	assert.Nil(t, got)
}

func TestMemorySummaryCache_StaleGenerationDropped(t *testing.T) {
	ctx := context.Background()
	c := NewMemorySummaryCache(time.Minute)

	_, gen, _ := c.Get(ctx)
	require.NoError(t, c.Invalidate(ctx))
	require.NoError(t, c.Set(ctx, gen, &reports.Summary{}))

	got, next, _ := c.Get(ctx)
	assert.Nil(t, got)
	assert.Equal(t, gen+1, next)
}

type deferredCommitter struct {
	pending []func(ctx context.Context)
}

func (d *deferredCommitter) AfterCommit(_ context.Context, fn func(ctx context.Context)) {
	d.pending = append(d.pending, fn)
}

func TestInvalidatingPublisher_DropsCacheAfterCommit(t *testing.T) {
	ctx := context.Background()
	store := newFakeKV()
	committer := &deferredCommitter{}

	var published []string
	next := events.PublisherFunc(func(_ context.Context, e events.Event) error {
		published = append(published, e.Type)
		return nil
	})
	p := NewInvalidatingPublisher(next, committer, NewRedisSummaryCache(store, 0))

	require.NoError(t, p.Publish(ctx, events.Event{Type: events.TypeSaleRecorded}))
	assert.Equal(t, []string{events.TypeSaleRecorded}, published)
	assert.Empty(t, store.incrs, "invalidation must wait for commit")

	require.Len(t, committer.pending, 1)
	committer.pending[0](ctx)
	assert.Equal(t, []string{GenerationKey}, store.incrs)
}

func TestInvalidatingPublisher_IgnoresOtherEvents(t *testing.T) {
	store := newFakeKV()
	p := NewInvalidatingPublisher(events.Discard, tx.Passthrough{}, NewRedisSummaryCache(store, 0))

	require.NoError(t, p.Publish(context.Background(), events.Event{Type: "user.created"}))
	assert.Empty(t, store.incrs)
}

func TestInvalidatingPublisher_PublishErrorSkipsInvalidation(t *testing.T) {
	store := newFakeKV()
	boom := errors.New("outbox insert failed")
	next := events.PublisherFunc(func(context.Context, events.Event) error { return boom })
	p := NewInvalidatingPublisher(next, tx.Passthrough{}, NewRedisSummaryCache(store, 0))

	err := p.Publish(context.Background(), events.Event{Type: events.TypeWastageRecorded})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.incrs)
}
