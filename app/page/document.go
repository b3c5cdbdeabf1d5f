package page

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	ErrDetached = errors.New("node is not attached to the document")
	ErrNoBody   = errors.New("document has no body")
)

// MutationRecord describes one structural change below Target.
type MutationRecord struct {
	Target  *html.Node
	Added   []*html.Node
	Removed []*html.Node
}

// Document is a live HTML tree. All reads go through Read or the
// convenience accessors so that mutations from other goroutines are never
// observed half-applied.
type Document struct {
	mu        sync.RWMutex
	root      *html.Node
	location  string
	hidden    map[*html.Node]savedStyle
	observers map[*Observer]struct{}
	overlay   Overlay

	// bumped by every Navigate, including reloads of the same location
	navigations uint64
}

type savedStyle struct {
	value   string
	present bool
}

func Parse(location string, r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}

	return &Document{
		root:      root,
		location:  location,
		hidden:    make(map[*html.Node]savedStyle),
		observers: make(map[*Observer]struct{}),
	}, nil
}

func ParseString(location, content string) (*Document, error) {
	return Parse(location, strings.NewReader(content))
}

// Read runs fn with a consistent view of the document. fn must not call
// back into mutating Document methods.
func (d *Document) Read(fn func(v View)) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	fn(View{d: d})
}

func (d *Document) Location() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.location
}

// SetLocation changes the current URL without touching content, the way a
// history push does in a single-page application.
func (d *Document) SetLocation(location string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.location = location
}

func (d *Document) QueryAll(m goquery.Matcher) []*html.Node {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return View{d: d}.QueryAll(m)
}

func (d *Document) IsHidden(n *html.Node) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return View{d: d}.Hidden(n)
}

// SetVisibility applies visibility overrides in one step. true hides the
// node, false restores its original style.
func (d *Document) SetVisibility(changes map[*html.Node]bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for n, hide := range changes {
		if hide {
			d.hideLocked(n)
		} else {
			d.showLocked(n)
		}
	}
}

func (d *Document) hideLocked(n *html.Node) {
	if n == nil || n.Type != html.ElementNode {
		return
	}
	if _, ok := d.hidden[n]; ok {
		return
	}

	saved := savedStyle{}
	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == "style" {
			saved = savedStyle{value: attr.Val, present: true}
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			break
		}
	}
	d.hidden[n] = saved
	n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: "display: none"})
}

func (d *Document) showLocked(n *html.Node) {
	saved, ok := d.hidden[n]
	if !ok {
		return
	}
	delete(d.hidden, n)

	for i, attr := range n.Attr {
		if attr.Namespace == "" && attr.Key == "style" {
			n.Attr = append(n.Attr[:i], n.Attr[i+1:]...)
			break
		}
	}
	if saved.present {
		n.Attr = append(n.Attr, html.Attribute{Key: "style", Val: saved.value})
	}
}

// Append parses fragment in the context of parent and appends the
// resulting nodes to it.
func (d *Document) Append(parent *html.Node, fragment string) ([]*html.Node, error) {
	d.mu.Lock()

	if !d.attachedLocked(parent) || parent.Type != html.ElementNode {
		d.mu.Unlock()
		return nil, ErrDetached
	}

	nodes, err := html.ParseFragment(strings.NewReader(fragment), parent)
	if err != nil {
		d.mu.Unlock()
		return nil, fmt.Errorf("failed to parse fragment: %w", err)
	}

	for _, n := range nodes {
		parent.AppendChild(n)
	}

	record := MutationRecord{Target: parent, Added: nodes}
	deliveries := d.deliveriesLocked(record)
	d.mu.Unlock()

	deliver(deliveries)
	return nodes, nil
}

// AppendTo appends fragment to the first node matching m, or to the body
// when nothing matches.
func (d *Document) AppendTo(m goquery.Matcher, fragment string) ([]*html.Node, error) {
	var parent *html.Node
	d.Read(func(v View) {
		if m != nil {
			parent = v.First(m)
		}
		if parent == nil {
			parent = v.Body()
		}
	})

	if parent == nil {
		return nil, ErrNoBody
	}
	return d.Append(parent, fragment)
}

func (d *Document) Remove(n *html.Node) error {
	d.mu.Lock()

	if n == nil || n.Parent == nil || !d.attachedLocked(n) || n == d.root {
		d.mu.Unlock()
		return ErrDetached
	}

	parent := n.Parent
	record := MutationRecord{Target: parent, Removed: []*html.Node{n}}
	deliveries := d.deliveriesLocked(record)
	parent.RemoveChild(n)
	d.forgetLocked(n)
	d.mu.Unlock()

	deliver(deliveries)
	return nil
}

// Navigations returns how many times Navigate has replaced the content.
func (d *Document) Navigations() uint64 {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.navigations
}

// Navigate swaps the head and body content for a newly loaded page and
// updates the location. Element identity of html, head and body survives,
// like a single-page application re-rendering its content.
func (d *Document) Navigate(location string, r io.Reader) error {
	incoming, err := html.Parse(r)
	if err != nil {
		return fmt.Errorf("failed to parse document: %w", err)
	}

	d.mu.Lock()

	var records []MutationRecord
	for _, a := range []atom.Atom{atom.Head, atom.Body} {
		current := findElement(d.root, a)
		replacement := findElement(incoming, a)
		if current == nil || replacement == nil {
			continue
		}

		record := MutationRecord{Target: current}
		for c := current.FirstChild; c != nil; {
			next := c.NextSibling
			current.RemoveChild(c)
			d.forgetLocked(c)
			record.Removed = append(record.Removed, c)
			c = next
		}
		for c := replacement.FirstChild; c != nil; {
			next := c.NextSibling
			replacement.RemoveChild(c)
			current.AppendChild(c)
			record.Added = append(record.Added, c)
			c = next
		}
		records = append(records, record)
	}
	d.location = location
	d.navigations++

	var deliveries []delivery
	for _, record := range records {
		deliveries = append(deliveries, d.deliveriesLocked(record)...)
	}
	d.mu.Unlock()

	deliver(deliveries)
	return nil
}

func (d *Document) SetOverlay(o Overlay) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.overlay = o
}

func (d *Document) Overlay() Overlay {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.overlay
}

// Render writes the document as HTML. A visible overlay is emitted as the
// last child of body without becoming part of the tree.
func (d *Document) Render(w io.Writer) error {
	d.mu.RLock()
	var buf bytes.Buffer
	err := html.Render(&buf, d.root)
	overlay := d.overlay
	d.mu.RUnlock()

	if err != nil {
		return fmt.Errorf("failed to render document: %w", err)
	}

	out := buf.Bytes()
	if overlay.Visible {
		markup := []byte(overlay.markup())
		if i := bytes.LastIndex(out, []byte("</body>")); i >= 0 {
			out = append(out[:i:i], append(markup, out[i:]...)...)
		} else {
			out = append(out, markup...)
		}
	}

	_, err = w.Write(out)
	return err
}

func (d *Document) attachedLocked(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p == d.root {
			return true
		}
	}
	return false
}

func (d *Document) forgetLocked(n *html.Node) {
	walk(n, func(c *html.Node) {
		delete(d.hidden, c)
	})
}

func findElement(n *html.Node, a atom.Atom) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == a {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findElement(c, a); found != nil {
			return found
		}
	}
	return nil
}

func walk(n *html.Node, fn func(*html.Node)) {
	fn(n)
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, fn)
	}
}
