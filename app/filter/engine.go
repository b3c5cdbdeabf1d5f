package filter

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bep/debounce"
	"github.com/lysyi3m/rec-comb/app/page"
	"github.com/lysyi3m/rec-comb/app/rules"
	"github.com/lysyi3m/rec-comb/app/store"
	"golang.org/x/net/html"
)

var ErrStopped = errors.New("filter engine is stopped")

type Options struct {
	Selectors    Selectors
	Debounce     time.Duration // quiet period before an incremental pass
	InitDelay    time.Duration // wait before the first full re-scan
	PollInterval time.Duration // location polling
	SettleDelay  time.Duration // wait after navigation before re-scanning
}

func DefaultOptions() Options {
	return Options{
		Selectors:    DefaultSelectors(),
		Debounce:     100 * time.Millisecond,
		InitDelay:    500 * time.Millisecond,
		PollInterval: time.Second,
		SettleDelay:  time.Second,
	}
}

// Engine keeps the visibility of recommended items in a live document in
// line with the current rules.
type Engine struct {
	doc       *page.Document
	store     store.Store
	publisher Publisher
	sel       *compiledSelectors
	opts      Options

	rules atomic.Pointer[rules.RuleSet]

	// mu serializes classification passes and guards marks and counters.
	mu       sync.Mutex
	marks    *marks
	counters Counters

	pendingMu sync.Mutex
	pending   []page.MutationRecord
	schedule  func(func())

	watchMu  sync.Mutex
	observer *page.Observer

	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
	stopped     atomic.Bool
}

func NewEngine(doc *page.Document, st store.Store, publisher Publisher, opts Options) (*Engine, error) {
	sel, err := opts.Selectors.compile()
	if err != nil {
		return nil, err
	}

	e := &Engine{
		doc:       doc,
		store:     st,
		publisher: publisher,
		sel:       sel,
		opts:      opts,
		marks:     newMarks(),
		schedule:  debounce.New(opts.Debounce),
	}

	initial := rules.Default()
	e.rules.Store(&initial)

	return e, nil
}

// Start attaches the incremental watcher, subscribes to rule changes and,
// after the init delay, loads the rules and runs the first full re-scan.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.attachWatcher()
	e.unsubscribe = e.store.OnChanged(e.onStoreChanged)

	e.wg.Add(2)
	go func() {
		defer e.wg.Done()

		timer := time.NewTimer(e.opts.InitDelay)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		e.LoadRules(ctx)
		e.FullRescan()
	}()

	monitor := NewMonitor(e.doc, e.opts.PollInterval, e.opts.SettleDelay, e.onNavigate)
	go func() {
		defer e.wg.Done()
		monitor.Run(ctx)
	}()

	slog.Info("Filter engine started", "location", e.doc.Location())
}

func (e *Engine) Stop() {
	if !e.stopped.CompareAndSwap(false, true) {
		return
	}

	if e.cancel != nil {
		e.cancel()
	}
	if e.unsubscribe != nil {
		e.unsubscribe()
	}

	e.watchMu.Lock()
	if e.observer != nil {
		e.observer.Disconnect()
		e.observer = nil
	}
	e.watchMu.Unlock()

	e.wg.Wait()
	slog.Info("Filter engine stopped")
}

// Rules returns the current snapshot.
func (e *Engine) Rules() rules.RuleSet {
	return *e.rules.Load()
}

// SetRules replaces the snapshot wholesale. It does not re-scan.
func (e *Engine) SetRules(rs rules.RuleSet) {
	e.rules.Store(&rs)
}

// UpdateRules merges p into the current snapshot. It does not re-scan.
func (e *Engine) UpdateRules(p rules.Partial) rules.RuleSet {
	for {
		current := e.rules.Load()
		merged := current.Merge(p)
		if e.rules.CompareAndSwap(current, &merged) {
			return merged
		}
	}
}

// LoadRules reads the recognised keys from the store. Failures are logged
// and the previous snapshot stays in effect.
func (e *Engine) LoadRules(ctx context.Context) {
	values, err := e.store.Get(ctx, rules.Keys()...)
	if err != nil {
		slog.Error("Failed to load rules, keeping current rules", "error", err)
		return
	}

	p, err := rules.Decode(values)
	if err != nil {
		slog.Warn("Ignoring malformed rule values", "error", err)
	}

	rs := e.UpdateRules(p)
	slog.Debug("Rules loaded",
		"keywords", len(rs.Keywords),
		"min_length", rs.MinLength,
		"keyword_filter", rs.KeywordFilter,
		"length_filter", rs.LengthFilter,
		"shorts_filter", rs.ShortsFilter)
}

func (e *Engine) onStoreChanged(changes store.Values) {
	if e.stopped.Load() {
		return
	}

	p, err := rules.Decode(changes)
	if err != nil {
		slog.Warn("Ignoring malformed rule change", "error", err)
	}
	if p.IsEmpty() {
		return
	}

	e.UpdateRules(p)
	e.FullRescan()
}

// Counters returns the running totals since the last full re-scan.
func (e *Engine) Counters() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.counters
}

// Decision returns the recorded decision for n, if any.
func (e *Engine) Decision(n *html.Node) (Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.marks.get(n)
}

type Stats struct {
	Location  string         `json:"location"`
	Counters  Counters       `json:"counters"`
	Decisions map[string]int `json:"decisions"`
	Rules     rules.RuleSet  `json:"rules"`
	Watching  int            `json:"watching"`
}

func (e *Engine) Stats() Stats {
	e.mu.Lock()
	stats := Stats{
		Location:  e.doc.Location(),
		Counters:  e.counters,
		Decisions: e.marks.tally(),
		Rules:     e.Rules(),
	}
	e.mu.Unlock()

	e.watchMu.Lock()
	if e.observer != nil {
		stats.Watching = len(e.observer.Targets())
	}
	e.watchMu.Unlock()

	return stats
}

// FullRescan clears every decision, resets the counters and classifies
// everything currently in the document.
func (e *Engine) FullRescan() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()

	rs := e.Rules()
	cls := newClassifier(rs)

	type found struct {
		node      *html.Node
		candidate Candidate
	}
	var candidates []found
	var shorts []*html.Node
	changes := make(map[*html.Node]bool)

	for _, n := range e.marks.nodes() {
		changes[n] = false
	}

	e.doc.Read(func(v page.View) {
		for _, n := range v.QueryAll(e.sel.candidates) {
			candidates = append(candidates, found{node: n, candidate: e.candidateAt(v, n)})
		}
		shorts = v.QueryAll(e.sel.shorts)
		for _, n := range shorts {
			if v.Hidden(n) {
				changes[n] = false
			}
		}
	})

	e.marks.clear()
	e.counters = Counters{}

	for _, c := range candidates {
		d := cls.classify(c.candidate)
		e.marks.set(c.node, d)
		changes[c.node] = d.Hidden()
		e.counters.Add(d)
	}

	if rs.ShortsFilter {
		e.hideShortsLocked(shorts, changes)
	}

	e.doc.SetVisibility(changes)

	slog.Debug("Full re-scan completed",
		"location", e.doc.Location(),
		"candidates", len(candidates),
		"keyword_hidden", e.counters.Keyword,
		"length_hidden", e.counters.Length,
		"shorts_hidden", e.counters.Shorts)

	e.publishLocked()
	return e.counters
}

// Reapply is the explicit "reapply filters" request.
func (e *Engine) Reapply() (Counters, error) {
	if e.stopped.Load() {
		return Counters{}, ErrStopped
	}
	return e.FullRescan(), nil
}

func (e *Engine) hideShortsLocked(shorts []*html.Node, changes map[*html.Node]bool) {
	for _, n := range shorts {
		if d, ok := e.marks.get(n); ok && d.Hidden() {
			continue
		}
		e.marks.set(n, HiddenAsShorts)
		changes[n] = true
		e.counters.Add(HiddenAsShorts)
	}
}

func (e *Engine) publishLocked() {
	if e.publisher != nil {
		e.publisher.Publish(e.counters)
	}
}

func (e *Engine) onNavigate(location string) {
	if e.stopped.Load() {
		return
	}

	slog.Info("Page navigation detected", "location", location)
	e.attachWatcher()
	e.FullRescan()
}
