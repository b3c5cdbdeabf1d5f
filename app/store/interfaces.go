package store

import (
	"context"
	"encoding/json"
)

// Values is a partial view of the settings bag, JSON encoded per key.
type Values map[string]json.RawMessage

// Store is the persisted settings bag the filter engine reads its rules
// from. Set notifies subscribers with the keys whose value changed.
type Store interface {
	Get(ctx context.Context, keys ...string) (Values, error)
	Set(ctx context.Context, values Values) error
	OnChanged(fn func(changes Values)) (unsubscribe func())
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
