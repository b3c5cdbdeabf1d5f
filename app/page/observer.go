package page

import "golang.org/x/net/html"

// Observer receives mutation records for changes anywhere below the nodes
// it observes. Callbacks run synchronously in the mutating goroutine after
// the document lock has been released.
type Observer struct {
	doc     *Document
	fn      func([]MutationRecord)
	targets []*html.Node
}

type delivery struct {
	fn      func([]MutationRecord)
	records []MutationRecord
}

func (d *Document) NewObserver(fn func([]MutationRecord)) *Observer {
	return &Observer{doc: d, fn: fn}
}

// Observe adds target (and its whole subtree) to the observed set.
func (o *Observer) Observe(target *html.Node) {
	if target == nil {
		return
	}

	d := o.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	for _, t := range o.targets {
		if t == target {
			return
		}
	}
	o.targets = append(o.targets, target)
	d.observers[o] = struct{}{}
}

// Disconnect stops all deliveries to this observer.
func (o *Observer) Disconnect() {
	d := o.doc
	d.mu.Lock()
	defer d.mu.Unlock()

	o.targets = nil
	delete(d.observers, o)
}

// Targets returns the currently observed nodes.
func (o *Observer) Targets() []*html.Node {
	d := o.doc
	d.mu.RLock()
	defer d.mu.RUnlock()

	return append([]*html.Node(nil), o.targets...)
}

func (d *Document) deliveriesLocked(record MutationRecord) []delivery {
	var deliveries []delivery
	for o := range d.observers {
		if o.coversLocked(record.Target) {
			deliveries = append(deliveries, delivery{fn: o.fn, records: []MutationRecord{record}})
		}
	}
	return deliveries
}

func (o *Observer) coversLocked(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		for _, t := range o.targets {
			if t == p {
				return true
			}
		}
	}
	return false
}

func deliver(deliveries []delivery) {
	for _, dl := range deliveries {
		if dl.fn != nil {
			dl.fn(dl.records)
		}
	}
}
