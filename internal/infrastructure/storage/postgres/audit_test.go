package postgres

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bakehouse/internal/core/id"
	"bakehouse/internal/domain/audit"
)

func newTestAuditService(t *testing.T) *AuditService {
	t.Helper()
	svc, err := NewAuditService(nil)
	require.NoError(t, err)
	return svc
}

func TestAuditService_CompressesLargeChanges(t *testing.T) {
	svc := newTestAuditService(t)

	big, err := json.Marshal(map[string]any{"notes": string(bytes.Repeat([]byte("flour "), 3000))})
	require.NoError(t, err)
	require.Greater(t, len(big), DefaultCompressThreshold)

	entry := AuditEntry{Changes: big}
	svc.compress(&entry)

	assert.Equal(t, CompressionZstd, entry.CompressionAlgo)
	assert.Nil(t, entry.Changes)
	assert.Less(t, len(entry.ChangesCompressed), len(big))

	require.NoError(t, svc.decompress(&entry))
	assert.JSONEq(t, string(big), string(entry.Changes))
	assert.Nil(t, entry.ChangesCompressed)
}

func TestAuditService_KeepsSmallChangesPlain(t *testing.T) {
	svc := newTestAuditService(t)

	entry := AuditEntry{Changes: json.RawMessage(`{"quantity":{"old":1,"new":2}}`)}
	svc.compress(&entry)

	assert.Equal(t, CompressionNone, entry.CompressionAlgo)
	assert.NotNil(t, entry.Changes)
	assert.Nil(t, entry.ChangesCompressed)
}

func TestAuditEntry_ToDomain(t *testing.T) {
	user, name := "u-1", "kitchen1"
	e := AuditEntry{
		ID:         id.New(),
		EntityType: "semi_finished",
		EntityID:   id.New(),
		Action:     audit.ActionProduce,
		UserID:     &user,
		Username:   &name,
	}

	got := e.toDomain()
	assert.Equal(t, "u-1", got.UserID)
	assert.Equal(t, "kitchen1", got.Username)
	assert.Equal(t, audit.ActionProduce, got.Action)

	e.UserID, e.Username = nil, nil
	assert.Empty(t, e.toDomain().UserID)
}
