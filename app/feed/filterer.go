package feed

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/lysyi3m/rec-comb/app/filter"
	"github.com/lysyi3m/rec-comb/app/rules"
)

// Filterer applies the page rules to feed items. Items linking to the
// shorts player count as shorts.
type Filterer struct{}

func NewFilterer() *Filterer {
	return &Filterer{}
}

func (f *Filterer) Run(items []Item, rs rules.RuleSet) ([]Item, filter.Counters) {
	var counters filter.Counters

	filtered := make([]Item, 0, len(items))
	for _, item := range items {
		item.Decision, item.FilterReason = f.classify(item, rs)
		counters.Add(item.Decision)
		filtered = append(filtered, item)
	}

	return filtered, counters
}

func (f *Filterer) classify(item Item, rs rules.RuleSet) (filter.Decision, string) {
	if rs.ShortsFilter && f.isShorts(item.Link) {
		return filter.HiddenAsShorts, "Hidden as shorts"
	}

	candidate := filter.NewCandidate(item.Title, item.Channel, item.DurationText)
	decision := filter.Classify(candidate, rs)

	switch decision {
	case filter.HiddenByKeyword:
		return decision, fmt.Sprintf("Hidden by keyword: matches one of %v", rs.Keywords)
	case filter.HiddenByLength:
		return decision, fmt.Sprintf("Hidden by length: %.1f min is shorter than %.1f min", candidate.Duration, rs.MinLength)
	default:
		return decision, ""
	}
}

func (f *Filterer) isShorts(link string) bool {
	u, err := url.Parse(link)
	if err != nil {
		return false
	}
	return strings.HasPrefix(u.Path, "/shorts/")
}
