package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/lysyi3m/rec-comb/app/rules"
)

var ErrInvalidURL = errors.New("invalid feed URL")

// RuleSource provides the rules in effect right now.
type RuleSource interface {
	Rules() rules.RuleSet
}

type Previewer struct {
	httpClient *http.Client
	parser     *Parser
	filterer   *Filterer
	rules      RuleSource
	userAgent  string
	timeout    time.Duration
}

func NewPreviewer(httpClient *http.Client, parser *Parser, filterer *Filterer, source RuleSource, userAgent string, timeout time.Duration) *Previewer {
	return &Previewer{
		httpClient: httpClient,
		parser:     parser,
		filterer:   filterer,
		rules:      source,
		userAgent:  userAgent,
		timeout:    timeout,
	}
}

// Run fetches the feed at feedURL and classifies every item with the
// current rules.
func (p *Previewer) Run(ctx context.Context, feedURL string) (*Preview, error) {
	if err := validateURL(feedURL); err != nil {
		return nil, err
	}

	start := time.Now()

	data, err := p.fetch(ctx, feedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, items, err := p.parser.Run(data)
	if err != nil {
		return nil, err
	}

	filtered, counters := p.filterer.Run(items, p.rules.Rules())

	slog.Info("Feed preview completed",
		"url", feedURL,
		"duration", time.Since(start),
		"total", len(items),
		"hidden", counters.Total())

	return &Preview{
		URL:      feedURL,
		Metadata: metadata,
		Items:    filtered,
		Counters: counters,
	}, nil
}

func (p *Previewer) fetch(ctx context.Context, feedURL string) ([]byte, error) {
	return Fetch(ctx, p.httpClient, feedURL, p.userAgent, p.timeout)
}

// Fetch performs a GET with the configured user agent and timeout and
// returns the body of a 200 response.
func Fetch(ctx context.Context, client *http.Client, target, userAgent string, timeout time.Duration) ([]byte, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}

func validateURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("%w %q: must be an absolute http(s) URL", ErrInvalidURL, raw)
	}
	return nil
}
