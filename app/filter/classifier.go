package filter

import (
	"strings"

	"github.com/lysyi3m/rec-comb/app/page"
	"github.com/lysyi3m/rec-comb/app/rules"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
)

// Candidate is the per-pass view of one recommended item.
type Candidate struct {
	Title        string
	ChannelName  string
	DurationText string
	Duration     float64 // minutes, valid only when HasDuration
	HasDuration  bool
}

func NewCandidate(title, channelName, durationText string) Candidate {
	minutes, ok := ParseDuration(durationText)
	return Candidate{
		Title:        title,
		ChannelName:  channelName,
		DurationText: durationText,
		Duration:     minutes,
		HasDuration:  ok,
	}
}

// Classify decides a candidate against rs. Shorts are a separate node
// category and never pass through here.
func Classify(item Candidate, rs rules.RuleSet) Decision {
	return newClassifier(rs).classify(item)
}

// classifier holds the case-folded keywords of one snapshot. It is not safe
// for concurrent use.
type classifier struct {
	rules    rules.RuleSet
	caser    cases.Caser
	keywords []string
}

func newClassifier(rs rules.RuleSet) *classifier {
	c := &classifier{rules: rs, caser: cases.Fold()}
	for _, keyword := range rs.Keywords {
		c.keywords = append(c.keywords, c.caser.String(keyword))
	}
	return c
}

func (c *classifier) classify(item Candidate) Decision {
	if c.rules.KeywordFilter && len(c.keywords) > 0 {
		title := c.caser.String(item.Title)
		channel := c.caser.String(item.ChannelName)
		for _, keyword := range c.keywords {
			if strings.Contains(title, keyword) || strings.Contains(channel, keyword) {
				return HiddenByKeyword
			}
		}
	}

	if c.rules.LengthFilter && item.HasDuration && item.Duration < c.rules.MinLength {
		return HiddenByLength
	}

	return Visible
}

func (e *Engine) candidateAt(v page.View, n *html.Node) Candidate {
	return NewCandidate(
		v.Text(n, e.sel.title),
		v.Text(n, e.sel.channel),
		v.Text(n, e.sel.duration),
	)
}
