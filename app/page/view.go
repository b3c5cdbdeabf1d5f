package page

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// View is a read-only handle valid for the duration of Document.Read.
type View struct {
	d *Document
}

func (v View) Location() string {
	return v.d.location
}

func (v View) Body() *html.Node {
	return findElement(v.d.root, atom.Body)
}

// QueryAll returns every element below the document root matching m, in
// document order.
func (v View) QueryAll(m goquery.Matcher) []*html.Node {
	return goquery.NewDocumentFromNode(v.d.root).FindMatcher(m).Nodes
}

func (v View) First(m goquery.Matcher) *html.Node {
	nodes := goquery.NewDocumentFromNode(v.d.root).FindMatcher(m).First().Nodes
	if len(nodes) == 0 {
		return nil
	}
	return nodes[0]
}

// MatchAll returns n itself when it matches, followed by every matching
// descendant.
func (v View) MatchAll(n *html.Node, m goquery.Matcher) []*html.Node {
	if n == nil || n.Type != html.ElementNode {
		return nil
	}
	return m.MatchAll(n)
}

func (v View) Matches(n *html.Node, m goquery.Matcher) bool {
	return n != nil && n.Type == html.ElementNode && m.Match(n)
}

// Text returns the trimmed text content of the first descendant of n
// matching m, or "" when there is none.
func (v View) Text(n *html.Node, m goquery.Matcher) string {
	if n == nil || m == nil {
		return ""
	}

	found := firstDescendant(n, m)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(goquery.NewDocumentFromNode(found).Text())
}

func (v View) Attached(n *html.Node) bool {
	return n != nil && v.d.attachedLocked(n)
}

func (v View) Hidden(n *html.Node) bool {
	_, ok := v.d.hidden[n]
	return ok
}

func firstDescendant(n *html.Node, m goquery.Matcher) *html.Node {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && m.Match(c) {
			return c
		}
		if found := firstDescendant(c, m); found != nil {
			return found
		}
	}
	return nil
}
