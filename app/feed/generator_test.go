package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/rec-comb/app/cfg"
	"github.com/lysyi3m/rec-comb/app/filter"
)

func setupTestConfig(t *testing.T) {
	t.Helper()
	if _, err := cfg.LoadArgs([]string{"--port", "8080", "--base-url", "https://rec.example.com"}); err != nil {
		t.Fatal(err)
	}
}

func testPreview() *Preview {
	feedPublished := time.Date(2023, 7, 1, 12, 0, 0, 0, time.UTC)
	return &Preview{
		URL: "https://www.youtube.com/feeds/videos.xml?channel_id=UC123",
		Metadata: &Metadata{
			Title:           "Nature Channel",
			Link:            "https://www.youtube.com/channel/UC123",
			FeedPublishedAt: &feedPublished,
		},
		Items: []Item{
			{
				GUID:        "yt:video:aaa",
				Title:       "Forest & Rivers",
				Link:        "https://www.youtube.com/watch?v=aaa",
				Description: "Long walk",
				PublishedAt: time.Date(2023, 7, 3, 10, 0, 0, 0, time.UTC),
				Channel:     "Nature Channel",
				Categories:  []string{"Nature"},
			},
			{
				GUID:     "yt:video:bbb",
				Title:    "Sponsored Ad",
				Link:     "https://www.youtube.com/watch?v=bbb",
				Decision: filter.HiddenByKeyword,
			},
		},
		Counters: filter.Counters{Keyword: 1},
	}
}

func TestGenerator_Run(t *testing.T) {
	setupTestConfig(t)

	rss, err := NewGenerator().Run(testPreview())
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	expectedElements := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<rss version="2.0"`,
		"<title>Nature Channel</title>",
		"<link>https://www.youtube.com/channel/UC123</link>",
		"Filtered feed from https://www.youtube.com/feeds/videos.xml?channel_id=UC123",
		"https://rec.example.com/feeds/preview?url=",
		"<pubDate>Sat, 01 Jul 2023 12:00:00 +0000</pubDate>",
		"Forest &amp; Rivers",
		"<guid",
		"yt:video:aaa",
	}
	for _, element := range expectedElements {
		if !strings.Contains(rss, element) {
			t.Errorf("Expected RSS to contain %q", element)
		}
	}

	if strings.Contains(rss, "Sponsored Ad") {
		t.Error("Expected hidden items to be left out of the feed")
	}
	if strings.Count(rss, "<item>") != 1 {
		t.Errorf("Expected exactly one item, got %d", strings.Count(rss, "<item>"))
	}
}

func TestGenerator_MissingMetadata(t *testing.T) {
	setupTestConfig(t)

	if _, err := NewGenerator().Run(&Preview{URL: "https://example.com"}); err == nil {
		t.Error("Expected error for a preview without metadata")
	}
	if _, err := NewGenerator().Run(nil); err == nil {
		t.Error("Expected error for a nil preview")
	}
}
