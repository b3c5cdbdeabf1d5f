package feed

import (
	"time"

	"github.com/lysyi3m/rec-comb/app/filter"
)

type Metadata struct {
	Title           string
	Link            string
	Description     string
	ImageURL        string
	Language        string
	FeedPublishedAt *time.Time
}

// Item is one entry of a channel feed, carrying the same fields the page
// filter reads from a recommended item.
type Item struct {
	GUID         string
	Title        string
	Link         string
	Description  string
	PublishedAt  time.Time
	Channel      string
	DurationText string // clock label or plain seconds, "" when unknown
	Categories   []string
	ThumbnailURL string

	Decision     filter.Decision
	FilterReason string
}

func (i Item) IsFiltered() bool {
	return i.Decision.Hidden()
}

// Preview is the result of classifying a channel feed with the current rules.
type Preview struct {
	URL      string
	Metadata *Metadata
	Items    []Item
	Counters filter.Counters
}

// Visible returns the items that pass the rules.
func (p *Preview) Visible() []Item {
	visible := make([]Item, 0, len(p.Items))
	for _, item := range p.Items {
		if !item.IsFiltered() {
			visible = append(visible, item)
		}
	}
	return visible
}
