package postgres

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/apperror"
)

func TestIdempotencyRecord_ReplayDefaults(t *testing.T) {
	r := IdempotencyRecord{Response: []byte(`{"id":"1"}`)}
	replay := r.replay()

	assert.Equal(t, http.StatusOK, replay.StatusCode)
	assert.Equal(t, "application/json; charset=utf-8", replay.ContentType)
	assert.Equal(t, []byte(`{"id":"1"}`), replay.Body)
}

func TestIdempotencyRecord_ReplayStored(t *testing.T) {
	code, ct := http.StatusCreated, "application/json"
	r := IdempotencyRecord{StatusCode: &code, ContentType: &ct}

	replay := r.replay()
	assert.Equal(t, http.StatusCreated, replay.StatusCode)
	assert.Equal(t, "application/json", replay.ContentType)
}

func TestResolveExisting(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := NewIdempotencyStore(nil, time.Hour)
	base := IdempotencyRecord{
		Key:         "k1",
		UserID:      "u1",
		Operation:   "POST /api/v1/sales",
		RequestHash: "abc",
		UpdatedAt:   now,
		ExpiresAt:   now.Add(time.Hour),
	}

	t.Run("different body is a mismatch", func(t *testing.T) {
		rec := base
		rec.Status = IdempotencyStatusSuccess
		_, err := store.resolveExisting(context.Background(), rec, "u1", "POST /api/v1/sales", "other", now)
		require.Error(t, err)
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
		assert.Equal(t, http.StatusConflict, apperror.GetHTTPStatus(err))
	})

	t.Run("completed key replays", func(t *testing.T) {
		rec := base
		rec.Status = IdempotencyStatusSuccess
		rec.Response = []byte(`{"ok":true}`)
		replay, err := store.resolveExisting(context.Background(), rec, "u1", "POST /api/v1/sales", "abc", now)
		require.NoError(t, err)
		require.NotNil(t, replay)
		assert.Equal(t, []byte(`{"ok":true}`), replay.Body)
	})

	t.Run("fresh pending key conflicts", func(t *testing.T) {
		rec := base
		rec.Status = IdempotencyStatusPending
		_, err := store.resolveExisting(context.Background(), rec, "u1", "POST /api/v1/sales", "abc", now.Add(10*time.Second))
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	})
}

// execQuerier answers Exec with a fixed affected-row count.
type execQuerier struct {
	Querier
	affected int64
	calls    []string
}

func (q *execQuerier) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	q.calls = append(q.calls, sql)
	return pgconn.NewCommandTag(fmt.Sprintf("UPDATE %d", q.affected)), nil
}

type staticSource struct{ q Querier }

func (s staticSource) GetQuerier(context.Context) Querier { return s.q }

func TestResolveExisting_ExpiredKeyIsReacquired(t *testing.T) {
	now := time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC)
	expired := IdempotencyRecord{
		Key:         "k1",
		UserID:      "u1",
		Operation:   "POST /api/v1/sales",
		Status:      IdempotencyStatusSuccess,
		RequestHash: "abc",
		Response:    []byte(`{"old":true}`),
		UpdatedAt:   now.Add(-25 * time.Hour),
		ExpiresAt:   now.Add(-time.Hour),
	}

	t.Run("reset wins", func(t *testing.T) {
		q := &execQuerier{affected: 1}
		store := &IdempotencyStore{db: staticSource{q}, ttl: time.Hour, now: func() time.Time { return now }}

		replay, err := store.resolveExisting(context.Background(), expired, "u2", "POST /api/v1/sales", "other", now)
		require.NoError(t, err)
		assert.Nil(t, replay)
		require.Len(t, q.calls, 1)
		assert.Contains(t, q.calls[0], "WHERE idempotency_key = $7 AND expires_at = $8")
	})

	t.Run("concurrent reset conflicts", func(t *testing.T) {
		q := &execQuerier{affected: 0}
		store := &IdempotencyStore{db: staticSource{q}, ttl: time.Hour, now: func() time.Time { return now }}

		replay, err := store.resolveExisting(context.Background(), expired, "u1", "POST /api/v1/sales", "abc", now)
		assert.Nil(t, replay)
		assert.True(t, apperror.HasCode(err, apperror.CodeIdempotency))
	})
}
