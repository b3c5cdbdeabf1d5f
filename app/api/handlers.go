package api

import (
	"bytes"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/rec-comb/app/feed"
	"github.com/lysyi3m/rec-comb/app/filter"
	"github.com/lysyi3m/rec-comb/app/indicator"
	"github.com/lysyi3m/rec-comb/app/page"
	"github.com/lysyi3m/rec-comb/app/panel"
	"github.com/lysyi3m/rec-comb/app/tasks"
)

func NewHandler(engine EngineInterface, doc *page.Document, panel *panel.Panel,
	indicator *indicator.Indicator, previewer PreviewerInterface,
	scheduler tasks.TaskSchedulerInterface, newFetchTask FetchTaskFactory) *Handler {
	return &Handler{
		engine:       engine,
		doc:          doc,
		panel:        panel,
		indicator:    indicator,
		previewer:    previewer,
		generator:    feed.NewGenerator(),
		scheduler:    scheduler,
		newFetchTask: newFetchTask,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
		"location":  h.doc.Location(),
		"counters":  h.engine.Counters(),
	})
}

func (h *Handler) GetPage(c *gin.Context) {
	var buf bytes.Buffer
	if err := h.doc.Render(&buf); err != nil {
		slog.Error("Page render error", "location", h.doc.Location(), "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	counters := h.engine.Counters()
	c.Header("X-Page-Location", h.doc.Location())
	c.Header("X-Hidden-Items", strconv.Itoa(counters.Total()))

	c.Data(http.StatusOK, "text/html; charset=utf-8", buf.Bytes())
}

func (h *Handler) GetFeedPreview(c *gin.Context) {
	preview, ok := h.runPreview(c)
	if !ok {
		return
	}

	rss, err := h.generator.Run(preview)
	if err != nil {
		slog.Error("RSS generation error", "url", preview.URL, "error", err)
		c.Status(http.StatusInternalServerError)
		return
	}

	c.Header("Content-Type", "application/xml; charset=utf-8")
	c.Header("X-Feed-Items", strconv.Itoa(len(preview.Visible())))
	c.Header("X-Feed-Hidden", strconv.Itoa(preview.Counters.Total()))

	c.String(http.StatusOK, rss)
}

func (h *Handler) APIGetRules(c *gin.Context) {
	settings, err := h.panel.Load(c.Request.Context())
	if err != nil {
		slog.Error("Failed to load settings", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to load settings."})
		return
	}

	c.JSON(http.StatusOK, settings)
}

func (h *Handler) APISaveRules(c *gin.Context) {
	var settings panel.Settings
	if err := c.ShouldBindJSON(&settings); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	status, err := h.panel.SaveSettings(c.Request.Context(), settings)
	h.respondStatus(c, status, err)
}

func (h *Handler) APIAddKeyword(c *gin.Context) {
	var req keywordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	status, err := h.panel.AddKeyword(c.Request.Context(), req.Keyword)
	h.respondStatus(c, status, err)
}

func (h *Handler) APIRemoveKeyword(c *gin.Context) {
	keyword := c.Param("keyword")
	if keyword == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing keyword parameter"})
		return
	}

	status, err := h.panel.RemoveKeyword(c.Request.Context(), keyword)
	h.respondStatus(c, status, err)
}

func (h *Handler) APIMessage(c *gin.Context) {
	var msg filter.Message
	if err := c.ShouldBindJSON(&msg); err != nil {
		c.JSON(http.StatusBadRequest, filter.Response{Success: false, Error: "invalid message"})
		return
	}

	c.JSON(http.StatusOK, h.engine.HandleMessage(msg))
}

func (h *Handler) APINavigate(c *gin.Context) {
	var req navigateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	u, err := url.Parse(req.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "URL must be an absolute http(s) URL"})
		return
	}

	task := h.newFetchTask(req.URL)
	if err := h.scheduler.EnqueueTask(task); err != nil {
		slog.Error("Error enqueueing fetch task", "url", req.URL, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error":   "Failed to enqueue fetch task",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"success": true,
		"message": "Navigation enqueued",
		"task": gin.H{
			"id":   task.GetID(),
			"type": task.GetType(),
			"url":  req.URL,
		},
	})
}

func (h *Handler) APIAppend(c *gin.Context) {
	var req appendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "details": err.Error()})
		return
	}

	var target goquery.Matcher
	if req.Target != "" {
		sel, err := cascadia.Compile(req.Target)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid target selector", "details": err.Error()})
			return
		}
		target = sel
	}

	added, err := h.doc.AppendTo(target, req.HTML)
	if err != nil {
		slog.Error("Failed to append content", "target", req.Target, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to append content", "details": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"added":   len(added),
	})
}

func (h *Handler) APIGetStats(c *gin.Context) {
	stats := h.engine.Stats()

	response := gin.H{
		"location":  stats.Location,
		"counters":  stats.Counters,
		"decisions": stats.Decisions,
		"rules":     stats.Rules,
		"watching":  stats.Watching,
	}

	if h.indicator != nil {
		state, text := h.indicator.State()
		response["indicator"] = gin.H{
			"state": state.String(),
			"text":  text,
		}
	}

	c.JSON(http.StatusOK, response)
}

func (h *Handler) APIGetPreview(c *gin.Context) {
	preview, ok := h.runPreview(c)
	if !ok {
		return
	}

	items := make([]previewItem, 0, len(preview.Items))
	for _, item := range preview.Items {
		entry := previewItem{
			GUID:     item.GUID,
			Title:    item.Title,
			Link:     item.Link,
			Channel:  item.Channel,
			Duration: item.DurationText,
			Decision: item.Decision.String(),
			Reason:   item.FilterReason,
		}
		if !item.PublishedAt.IsZero() {
			entry.PublishedAt = item.PublishedAt.Format(time.RFC3339)
		}
		items = append(items, entry)
	}

	title := ""
	if preview.Metadata != nil {
		title = preview.Metadata.Title
	}

	c.JSON(http.StatusOK, gin.H{
		"url":      preview.URL,
		"title":    title,
		"counters": preview.Counters,
		"items":    items,
		"total":    len(items),
	})
}

func (h *Handler) runPreview(c *gin.Context) (*feed.Preview, bool) {
	feedURL := c.Query("url")
	if feedURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing url parameter"})
		return nil, false
	}

	preview, err := h.previewer.Run(c.Request.Context(), feedURL)
	if err != nil {
		if errors.Is(err, feed.ErrInvalidURL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return nil, false
		}
		slog.Error("Feed preview failed", "url", feedURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to preview feed", "details": err.Error()})
		return nil, false
	}

	return preview, true
}

func (h *Handler) respondStatus(c *gin.Context, status panel.Status, err error) {
	switch {
	case err == nil:
		c.JSON(http.StatusOK, status)
	case errors.Is(err, panel.ErrEmptyKeyword), errors.Is(err, panel.ErrNegativeMinLength):
		c.JSON(http.StatusBadRequest, status)
	case errors.Is(err, panel.ErrDuplicateKeyword):
		c.JSON(http.StatusConflict, status)
	case errors.Is(err, panel.ErrApplyFailed):
		c.JSON(http.StatusBadGateway, status)
	default:
		slog.Error("Panel operation failed", "path", c.FullPath(), "error", err)
		c.JSON(http.StatusInternalServerError, status)
	}
}
