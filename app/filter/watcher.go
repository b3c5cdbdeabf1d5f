package filter

import (
	"log/slog"

	"github.com/lysyi3m/rec-comb/app/page"
	"golang.org/x/net/html"
)

// attachWatcher (re)connects the incremental observer to the first node
// matching each watch target, falling back to the body when none match.
func (e *Engine) attachWatcher() {
	var targets []*html.Node
	e.doc.Read(func(v page.View) {
		for _, m := range e.sel.watchTargets {
			if n := v.First(m); n != nil {
				targets = append(targets, n)
			}
		}
		if len(targets) == 0 {
			if body := v.Body(); body != nil {
				targets = append(targets, body)
			}
		}
	})

	e.watchMu.Lock()
	defer e.watchMu.Unlock()

	if e.stopped.Load() {
		return
	}
	if e.observer != nil {
		e.observer.Disconnect()
	}

	e.observer = e.doc.NewObserver(e.onMutations)
	for _, n := range targets {
		e.observer.Observe(n)
	}

	slog.Debug("Watching for new content", "targets", len(targets))
}

func (e *Engine) onMutations(records []page.MutationRecord) {
	if e.stopped.Load() {
		return
	}

	e.pendingMu.Lock()
	e.pending = append(e.pending, records...)
	e.pendingMu.Unlock()

	e.schedule(func() { e.flush() })
}

// Flush processes queued mutations immediately instead of waiting for the
// quiet period.
func (e *Engine) Flush() Counters {
	return e.flush()
}

// flush runs one incremental pass over everything queued since the last
// one. Counters are additive; nothing already decided is revisited.
func (e *Engine) flush() Counters {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.pendingMu.Lock()
	records := e.pending
	e.pending = nil
	e.pendingMu.Unlock()

	if len(records) == 0 || e.stopped.Load() {
		return e.counters
	}

	for _, record := range records {
		for _, n := range record.Removed {
			e.marks.evictSubtree(n)
		}
	}

	rs := e.Rules()
	cls := newClassifier(rs)

	type found struct {
		node      *html.Node
		candidate Candidate
	}
	var candidates []found
	var shorts []*html.Node
	seen := make(map[*html.Node]struct{})

	e.doc.Read(func(v page.View) {
		for _, record := range records {
			for _, added := range record.Added {
				if !v.Attached(added) {
					continue
				}
				for _, n := range v.MatchAll(added, e.sel.candidates) {
					if _, ok := seen[n]; ok {
						continue
					}
					seen[n] = struct{}{}
					if _, marked := e.marks.get(n); marked {
						continue
					}
					candidates = append(candidates, found{node: n, candidate: e.candidateAt(v, n)})
				}
				if rs.ShortsFilter {
					shorts = append(shorts, v.MatchAll(added, e.sel.shorts)...)
				}
			}
		}
	})

	if len(candidates) == 0 && len(shorts) == 0 {
		return e.counters
	}

	changes := make(map[*html.Node]bool)
	before := e.counters

	for _, c := range candidates {
		d := cls.classify(c.candidate)
		e.marks.set(c.node, d)
		if d.Hidden() {
			changes[c.node] = true
		}
		e.counters.Add(d)
	}

	if len(shorts) > 0 {
		e.hideShortsLocked(dedupe(shorts), changes)
	}

	if len(changes) > 0 {
		e.doc.SetVisibility(changes)
	}

	slog.Debug("Incremental pass completed",
		"records", len(records),
		"candidates", len(candidates),
		"newly_hidden", e.counters.Total()-before.Total())

	if e.counters != before {
		e.publishLocked()
	}
	return e.counters
}

func dedupe(nodes []*html.Node) []*html.Node {
	seen := make(map[*html.Node]struct{}, len(nodes))
	unique := nodes[:0]
	for _, n := range nodes {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		unique = append(unique, n)
	}
	return unique
}
