package api

import (
	"context"

	"github.com/lysyi3m/rec-comb/app/feed"
	"github.com/lysyi3m/rec-comb/app/filter"
	"github.com/lysyi3m/rec-comb/app/indicator"
	"github.com/lysyi3m/rec-comb/app/page"
	"github.com/lysyi3m/rec-comb/app/panel"
	"github.com/lysyi3m/rec-comb/app/tasks"
)

type GeneratorInterface interface {
	Run(preview *feed.Preview) (string, error)
}

type PreviewerInterface interface {
	Run(ctx context.Context, feedURL string) (*feed.Preview, error)
}

type EngineInterface interface {
	HandleMessage(msg filter.Message) filter.Response
	Counters() filter.Counters
	Stats() filter.Stats
}

var (
	_ GeneratorInterface = (*feed.Generator)(nil)
	_ PreviewerInterface = (*feed.Previewer)(nil)
	_ EngineInterface    = (*filter.Engine)(nil)
)

// FetchTaskFactory builds the task that loads url into the live document.
type FetchTaskFactory func(url string) tasks.TaskInterface

type Handler struct {
	engine       EngineInterface
	doc          *page.Document
	panel        *panel.Panel
	indicator    *indicator.Indicator
	previewer    PreviewerInterface
	generator    GeneratorInterface
	scheduler    tasks.TaskSchedulerInterface
	newFetchTask FetchTaskFactory
}

type keywordRequest struct {
	Keyword string `json:"keyword"`
}

type navigateRequest struct {
	URL string `json:"url" binding:"required"`
}

type appendRequest struct {
	Target string `json:"target"`
	HTML   string `json:"html" binding:"required"`
}

type previewItem struct {
	GUID        string `json:"guid"`
	Title       string `json:"title"`
	Link        string `json:"link"`
	Channel     string `json:"channel"`
	Duration    string `json:"duration"`
	Decision    string `json:"decision"`
	Reason      string `json:"reason,omitempty"`
	PublishedAt string `json:"published_at,omitempty"`
}
