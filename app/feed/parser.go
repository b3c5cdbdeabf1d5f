package feed

import (
	"bytes"
	"cmp"
	"fmt"
	"strings"

	"github.com/mmcdole/gofeed"
	ext "github.com/mmcdole/gofeed/extensions"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

func (p *Parser) Run(data []byte) (*Metadata, []Item, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	if feed.Image != nil {
		metadata.ImageURL = feed.Image.URL
	}

	if feed.PublishedParsed != nil {
		metadata.FeedPublishedAt = feed.PublishedParsed
	}

	channel := p.feedChannel(feed)

	items := make([]Item, 0, len(feed.Items))
	for _, item := range feed.Items {
		items = append(items, p.normalizeItem(item, channel))
	}

	return metadata, items, nil
}

func (p *Parser) normalizeItem(item *gofeed.Item, channel string) Item {
	normalized := Item{
		GUID:        cmp.Or(item.GUID, item.Link),
		Title:       strings.TrimSpace(item.Title),
		Link:        item.Link,
		Description: item.Description,
		Channel:     cmp.Or(p.itemChannel(item), channel),
		Categories:  item.Categories,
	}

	if item.PublishedParsed != nil {
		normalized.PublishedAt = *item.PublishedParsed
	}

	if item.Image != nil {
		normalized.ThumbnailURL = item.Image.URL
	}

	if item.ITunesExt != nil {
		normalized.DurationText = strings.TrimSpace(item.ITunesExt.Duration)
	}

	// Video feeds carry the length in seconds on media:content.
	if normalized.DurationText == "" {
		normalized.DurationText = mediaDuration(item.Extensions)
	}

	if normalized.Description == "" {
		normalized.Description = mediaDescription(item.Extensions)
	}

	return normalized
}

func (p *Parser) feedChannel(feed *gofeed.Feed) string {
	for _, author := range feed.Authors {
		if author != nil && strings.TrimSpace(author.Name) != "" {
			return strings.TrimSpace(author.Name)
		}
	}
	if feed.ITunesExt != nil && feed.ITunesExt.Author != "" {
		return strings.TrimSpace(feed.ITunesExt.Author)
	}
	return strings.TrimSpace(feed.Title)
}

func (p *Parser) itemChannel(item *gofeed.Item) string {
	for _, author := range item.Authors {
		if author != nil && strings.TrimSpace(author.Name) != "" {
			return strings.TrimSpace(author.Name)
		}
	}
	if item.ITunesExt != nil {
		return strings.TrimSpace(item.ITunesExt.Author)
	}
	return ""
}

func mediaDuration(extensions ext.Extensions) string {
	for _, content := range mediaElements(extensions, "content") {
		if duration := strings.TrimSpace(content.Attrs["duration"]); duration != "" {
			return duration
		}
	}
	return ""
}

func mediaDescription(extensions ext.Extensions) string {
	for _, description := range mediaElements(extensions, "description") {
		if value := strings.TrimSpace(description.Value); value != "" {
			return value
		}
	}
	return ""
}

// mediaElements collects the named media RSS elements, both top level and
// nested in media:group.
func mediaElements(extensions ext.Extensions, name string) []ext.Extension {
	media, ok := extensions["media"]
	if !ok {
		return nil
	}

	elements := append([]ext.Extension(nil), media[name]...)
	for _, group := range media["group"] {
		elements = append(elements, group.Children[name]...)
	}
	return elements
}
