package tasks

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/rec-comb/app/feed"
	"github.com/lysyi3m/rec-comb/app/page"
)

// FetchPageTask loads a page and swaps it into the live document, which the
// filter engine then picks up as a navigation.
type FetchPageTask struct {
	Task
	URL        string
	httpClient *http.Client
	doc        *page.Document
	userAgent  string
	timeout    time.Duration
}

func NewFetchPageTask(url string, httpClient *http.Client, doc *page.Document, userAgent string, timeout time.Duration) *FetchPageTask {
	return &FetchPageTask{
		Task:       NewTask(TaskTypeFetchPage, url),
		URL:        url,
		httpClient: httpClient,
		doc:        doc,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

func (t *FetchPageTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := feed.Fetch(ctx, t.httpClient, t.URL, t.userAgent, t.timeout)
	if err != nil {
		return fmt.Errorf("failed to fetch page: %w", err)
	}

	if err := t.doc.Navigate(t.URL, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to load page: %w", err)
	}

	slog.Info("Task completed",
		"type", "FetchPage",
		"url", t.URL,
		"duration", t.GetDuration(),
		"bytes", len(data))

	return nil
}
