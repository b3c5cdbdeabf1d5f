package filter

import (
	"context"
	"sync"
	"time"
)

// Locator reports the current location of a page and how many times its
// content was replaced.
type Locator interface {
	Location() string
	Navigations() uint64
}

// Monitor polls a Locator and reports a navigation once the location or
// the navigation count has changed and the settle delay has passed. A
// further change during the settle delay replaces the pending report.
type Monitor struct {
	locator  Locator
	interval time.Duration
	settle   time.Duration
	onChange func(location string)

	mu      sync.Mutex
	last    string
	lastSeq uint64
	pending *time.Timer
}

func NewMonitor(locator Locator, interval, settle time.Duration, onChange func(string)) *Monitor {
	return &Monitor{
		locator:  locator,
		interval: interval,
		settle:   settle,
		onChange: onChange,
		last:     locator.Location(),
		lastSeq:  locator.Navigations(),
	}
}

// Run polls until ctx is done. A pending report is cancelled on return.
func (m *Monitor) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	defer m.cancelPending()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Check()
		}
	}
}

// Check compares the current location and navigation count against the
// last ones seen. A reload of the same location counts as a change. It
// reports whether a change was detected.
func (m *Monitor) Check() bool {
	location := m.locator.Location()
	seq := m.locator.Navigations()

	m.mu.Lock()
	defer m.mu.Unlock()

	if location == m.last && seq == m.lastSeq {
		return false
	}
	m.last = location
	m.lastSeq = seq

	if m.pending != nil {
		m.pending.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(m.settle, func() {
		m.mu.Lock()
		if m.pending != timer {
			m.mu.Unlock()
			return
		}
		m.pending = nil
		m.mu.Unlock()

		m.onChange(location)
	})
	m.pending = timer

	return true
}

func (m *Monitor) cancelPending() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending != nil {
		m.pending.Stop()
		m.pending = nil
	}
}
