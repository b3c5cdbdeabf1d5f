package filter

import "golang.org/x/net/html"

// marks is the side table of per-node decisions. Entries live as long as
// the node stays in the tree and are dropped on removal or full re-scan.
type marks struct {
	decisions map[*html.Node]Decision
}

func newMarks() *marks {
	return &marks{decisions: make(map[*html.Node]Decision)}
}

func (m *marks) get(n *html.Node) (Decision, bool) {
	d, ok := m.decisions[n]
	return d, ok
}

func (m *marks) set(n *html.Node, d Decision) {
	m.decisions[n] = d
}

func (m *marks) nodes() []*html.Node {
	nodes := make([]*html.Node, 0, len(m.decisions))
	for n := range m.decisions {
		nodes = append(nodes, n)
	}
	return nodes
}

func (m *marks) clear() {
	m.decisions = make(map[*html.Node]Decision)
}

func (m *marks) evictSubtree(n *html.Node) {
	if len(m.decisions) == 0 {
		return
	}
	delete(m.decisions, n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		m.evictSubtree(c)
	}
}

func (m *marks) tally() map[string]int {
	tally := make(map[string]int)
	for _, d := range m.decisions {
		tally[d.String()]++
	}
	return tally
}
