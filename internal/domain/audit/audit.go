// Package audit defines the audit trail contract used by domain services.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"bakehouse/internal/core/id"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionAdjust  Action = "adjust"
	ActionProduce Action = "produce"
	ActionWaste   Action = "waste"
	ActionSell    Action = "sell"
	ActionLogin   Action = "login"
)

// Entry is one stored audit record, decompressed.
type Entry struct {
	ID         id.ID           `json:"id"`
	EntityType string          `json:"entityType"`
	EntityID   id.ID           `json:"entityId"`
	Action     Action          `json:"action"`
	UserID     string          `json:"userId,omitempty"`
	Username   string          `json:"username,omitempty"`
	Changes    json.RawMessage `json:"changes,omitempty"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Logger records changes. Implementations write within the transaction carried by ctx.
type Logger interface {
	LogChange(ctx context.Context, entityType string, entityID id.ID, action Action, changes map[string]any) error
}

// Reader returns the history of an entity, newest first.
type Reader interface {
	GetEntityHistory(ctx context.Context, entityType string, entityID id.ID, limit int) ([]Entry, error)
}

// Nop discards entries.
type Nop struct{}

func (Nop) LogChange(context.Context, string, id.ID, Action, map[string]any) error { return nil }

// Diff returns the fields that differ between two states as {field: {old, new}}.
func Diff(oldState, newState map[string]any) map[string]any {
	changes := make(map[string]any)
	for key, newVal := range newState {
		oldVal, exists := oldState[key]
		if !exists || !equalJSON(oldVal, newVal) {
			changes[key] = map[string]any{"old": oldVal, "new": newVal}
		}
	}
	for key, oldVal := range oldState {
		if _, exists := newState[key]; !exists {
			changes[key] = map[string]any{"old": oldVal, "new": nil}
		}
	}
	return changes
}

// equalJSON compares two values by their JSON encoding, so decimals and
// times compare by value.
func equalJSON(a, b any) bool {
	ja, errA := json.Marshal(a)
	jb, errB := json.Marshal(b)
	if errA != nil || errB != nil {
		return false
	}
	return string(ja) == string(jb)
}
