package store

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

type notifier struct {
	mu   sync.Mutex
	next int
	subs map[int]func(Values)
}

func (n *notifier) subscribe(fn func(Values)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.subs == nil {
		n.subs = make(map[int]func(Values))
	}
	id := n.next
	n.next++
	n.subs[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.subs, id)
	}
}

// notify runs outside the lock so subscribers may call back into the store.
func (n *notifier) notify(changes Values) {
	if len(changes) == 0 {
		return
	}

	n.mu.Lock()
	subs := make([]func(Values), 0, len(n.subs))
	for _, fn := range n.subs {
		subs = append(subs, fn)
	}
	n.mu.Unlock()

	for _, fn := range subs {
		fn(cloneValues(changes))
	}
}

func cloneValues(values Values) Values {
	cloned := make(Values, len(values))
	for k, v := range values {
		cloned[k] = append(json.RawMessage(nil), v...)
	}
	return cloned
}

func sameJSON(a, b json.RawMessage) bool {
	var ca, cb bytes.Buffer
	if json.Compact(&ca, a) != nil || json.Compact(&cb, b) != nil {
		return bytes.Equal(a, b)
	}
	return bytes.Equal(ca.Bytes(), cb.Bytes())
}

func validateValues(values Values) error {
	for key, value := range values {
		if key == "" {
			return errors.New("empty settings key")
		}
		if !json.Valid(value) {
			return fmt.Errorf("invalid JSON value for key %s", key)
		}
	}
	return nil
}
