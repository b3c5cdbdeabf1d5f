package store

import (
	"context"
	"encoding/json"
	"sync"
)

// MemoryStore keeps settings in process memory only.
type MemoryStore struct {
	mu     sync.RWMutex
	values Values
	notifier
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(Values)}
}

func (s *MemoryStore) Get(ctx context.Context, keys ...string) (Values, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(keys) == 0 {
		return cloneValues(s.values), nil
	}

	result := make(Values, len(keys))
	for _, key := range keys {
		if value, ok := s.values[key]; ok {
			result[key] = append(json.RawMessage(nil), value...)
		}
	}
	return result, nil
}

func (s *MemoryStore) Set(ctx context.Context, values Values) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := validateValues(values); err != nil {
		return err
	}

	changes := make(Values)

	s.mu.Lock()
	for key, value := range values {
		if existing, ok := s.values[key]; ok && sameJSON(existing, value) {
			continue
		}
		stored := append(json.RawMessage(nil), value...)
		s.values[key] = stored
		changes[key] = stored
	}
	s.mu.Unlock()

	s.notify(changes)
	return nil
}

func (s *MemoryStore) OnChanged(fn func(changes Values)) func() {
	return s.subscribe(fn)
}
