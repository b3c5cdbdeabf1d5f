package filter

import (
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/lysyi3m/rec-comb/app/rules"
)

// Selectors identify the parts of the page the engine works on. They are
// site-specific configuration, not protocol.
type Selectors struct {
	Candidates       string
	ShortsContainers string
	ShortsItems      string
	Title            string
	Channel          string
	Duration         string
	WatchTargets     []string
}

func DefaultSelectors() Selectors {
	return Selectors{
		Candidates:       "ytd-rich-item-renderer, ytd-compact-video-renderer, ytd-grid-video-renderer",
		ShortsContainers: `ytd-rich-shelf-renderer[is-shorts], ytd-reel-shelf-renderer, ytd-shorts, [aria-label*="Shorts"], [title*="Shorts"]`,
		ShortsItems:      "ytd-rich-grid-slim-media, ytd-reel-item-renderer",
		Title:            "#video-title",
		Channel:          "#channel-name, #text.ytd-channel-name",
		Duration:         "#text.ytd-thumbnail-overlay-time-status-renderer",
		WatchTargets:     []string{"ytd-watch", "ytd-browse", "ytd-app"},
	}
}

// Override returns a copy of s with every non-empty field of o applied.
func (s Selectors) Override(o rules.FileSelectors) Selectors {
	overridden := s
	overridden.WatchTargets = append([]string(nil), s.WatchTargets...)

	for _, field := range []struct {
		dst *string
		src string
	}{
		{&overridden.Candidates, o.Candidates},
		{&overridden.ShortsContainers, o.ShortsContainers},
		{&overridden.ShortsItems, o.ShortsItems},
		{&overridden.Title, o.Title},
		{&overridden.Channel, o.Channel},
		{&overridden.Duration, o.Duration},
	} {
		if strings.TrimSpace(field.src) != "" {
			*field.dst = field.src
		}
	}

	if len(o.WatchTargets) > 0 {
		overridden.WatchTargets = append([]string(nil), o.WatchTargets...)
	}

	return overridden
}

type compiledSelectors struct {
	candidates       goquery.Matcher
	shortsContainers goquery.Matcher
	shortsItems      goquery.Matcher
	shorts           goquery.Matcher
	title            goquery.Matcher
	channel          goquery.Matcher
	duration         goquery.Matcher
	watchTargets     []goquery.Matcher
}

func (s Selectors) compile() (*compiledSelectors, error) {
	compiled := &compiledSelectors{}

	for _, field := range []struct {
		name string
		src  string
		dst  *goquery.Matcher
	}{
		{"candidates", s.Candidates, &compiled.candidates},
		{"shorts containers", s.ShortsContainers, &compiled.shortsContainers},
		{"shorts items", s.ShortsItems, &compiled.shortsItems},
		{"shorts", s.ShortsContainers + ", " + s.ShortsItems, &compiled.shorts},
		{"title", s.Title, &compiled.title},
		{"channel", s.Channel, &compiled.channel},
		{"duration", s.Duration, &compiled.duration},
	} {
		sel, err := cascadia.Compile(field.src)
		if err != nil {
			return nil, fmt.Errorf("invalid %s selector %q: %w", field.name, field.src, err)
		}
		*field.dst = sel
	}

	for _, target := range s.WatchTargets {
		sel, err := cascadia.Compile(target)
		if err != nil {
			return nil, fmt.Errorf("invalid watch target selector %q: %w", target, err)
		}
		compiled.watchTargets = append(compiled.watchTargets, sel)
	}

	return compiled, nil
}
