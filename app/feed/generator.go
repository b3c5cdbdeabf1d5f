package feed

import (
	"bytes"
	"cmp"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"net/url"
	"time"

	"github.com/lysyi3m/rec-comb/app/cfg"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Run renders the visible items of a preview as an RSS 2.0 channel.
func (g *Generator) Run(preview *Preview) (string, error) {
	if preview == nil || preview.Metadata == nil {
		return "", errors.New("preview has no feed metadata")
	}

	var buf bytes.Buffer
	metadata := preview.Metadata
	items := preview.Visible()

	buf.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	buf.WriteString("\n")
	buf.WriteString(`<rss version="2.0" xmlns:atom="http://www.w3.org/2005/Atom">`)
	buf.WriteString("\n  <channel>\n")

	g.writeElement(&buf, "title", metadata.Title, 4)
	g.writeElement(&buf, "link", metadata.Link, 4)
	description := metadata.Description
	if description == "" {
		description = fmt.Sprintf("Filtered feed from %s", preview.URL)
	}
	g.writeElement(&buf, "description", description, 4)

	baseURL := cfg.Get().BaseUrl
	if baseURL == "" {
		baseURL = fmt.Sprintf("http://localhost:%s", cfg.Get().Port)
	}
	selfLink := fmt.Sprintf("%s/feeds/preview?url=%s", baseURL, url.QueryEscape(preview.URL))
	buf.WriteString(fmt.Sprintf("    <atom:link href=\"%s\" rel=\"self\" type=\"application/rss+xml\" />\n",
		html.EscapeString(selfLink)))

	if metadata.FeedPublishedAt != nil {
		g.writeElement(&buf, "pubDate", metadata.FeedPublishedAt.Format(time.RFC1123Z), 4)
	}

	lastBuildDate := time.Now().In(time.Local)
	if len(items) > 0 {
		lastBuildDate = cmp.Or(items[0].PublishedAt, lastBuildDate)
	}

	g.writeElement(&buf, "lastBuildDate", lastBuildDate.Format(time.RFC1123Z), 4)
	g.writeElement(&buf, "generator", fmt.Sprintf("Rec-Comb/%s", cfg.Get().Version), 4)
	if metadata.Language != "" {
		g.writeElement(&buf, "language", metadata.Language, 4)
	}

	if metadata.ImageURL != "" {
		buf.WriteString("    <image>\n")
		g.writeElement(&buf, "url", metadata.ImageURL, 6)
		g.writeElement(&buf, "title", metadata.Title, 6)
		g.writeElement(&buf, "link", metadata.Link, 6)
		buf.WriteString("    </image>\n")
	}

	for _, item := range items {
		g.writeItem(&buf, item)
	}

	buf.WriteString("  </channel>\n</rss>")

	return buf.String(), nil
}

func (g *Generator) writeItem(buf *bytes.Buffer, item Item) {
	buf.WriteString("    <item>\n")

	if item.GUID != "" {
		buf.WriteString(fmt.Sprintf("      <guid isPermaLink=\"%t\">", g.isURL(item.GUID)))
		xml.EscapeText(buf, []byte(item.GUID))
		buf.WriteString("</guid>\n")
	}

	if item.Title != "" {
		g.writeElement(buf, "title", item.Title, 6)
	}

	if item.Link != "" {
		g.writeElement(buf, "link", item.Link, 6)
	}

	g.writeElement(buf, "description", cmp.Or(item.Description, "No description available"), 6)

	if !item.PublishedAt.IsZero() {
		g.writeElement(buf, "pubDate", item.PublishedAt.Format(time.RFC1123Z), 6)
	}

	if item.Channel != "" {
		g.writeElement(buf, "author", item.Channel, 6)
	}

	for _, category := range item.Categories {
		if category != "" {
			g.writeElement(buf, "category", category, 6)
		}
	}

	buf.WriteString("    </item>\n")
}

func (g *Generator) writeElement(buf *bytes.Buffer, tag, content string, indent int) {
	if content == "" {
		return
	}

	for i := 0; i < indent; i++ {
		buf.WriteByte(' ')
	}

	buf.WriteString("<")
	buf.WriteString(tag)
	buf.WriteString(">")
	xml.EscapeText(buf, []byte(content))
	buf.WriteString("</")
	buf.WriteString(tag)
	buf.WriteString(">\n")
}

func (g *Generator) isURL(s string) bool {
	return (len(s) > 7 && s[:7] == "http://") || (len(s) > 8 && s[:8] == "https://")
}
