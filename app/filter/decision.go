package filter

// Decision records whether and why a node is hidden.
type Decision int

const (
	Visible Decision = iota
	HiddenByKeyword
	HiddenByLength
	HiddenAsShorts
)

func (d Decision) Hidden() bool {
	return d != Visible
}

func (d Decision) String() string {
	switch d {
	case HiddenByKeyword:
		return "keyword"
	case HiddenByLength:
		return "length"
	case HiddenAsShorts:
		return "shorts"
	default:
		return "visible"
	}
}

// Counters tally hidden nodes since the last full re-scan.
type Counters struct {
	Keyword int `json:"keyword"`
	Length  int `json:"length"`
	Shorts  int `json:"shorts"`
}

func (c Counters) Total() int {
	return c.Keyword + c.Length + c.Shorts
}

func (c *Counters) Add(d Decision) {
	switch d {
	case HiddenByKeyword:
		c.Keyword++
	case HiddenByLength:
		c.Length++
	case HiddenAsShorts:
		c.Shorts++
	}
}

// Publisher receives counter updates, typically an on-screen indicator.
type Publisher interface {
	Publish(Counters)
}
