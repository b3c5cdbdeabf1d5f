package filter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/lysyi3m/rec-comb/app/page"
	"github.com/lysyi3m/rec-comb/app/rules"
	"github.com/lysyi3m/rec-comb/app/store"
	"golang.org/x/net/html"
)

type recordingPublisher struct {
	mu        sync.Mutex
	published []Counters
}

func (p *recordingPublisher) Publish(c Counters) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.published = append(p.published, c)
}

func (p *recordingPublisher) last() (Counters, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.published) == 0 {
		return Counters{}, 0
	}
	return p.published[len(p.published)-1], len(p.published)
}

func item(title, channel, duration string) string {
	return fmt.Sprintf(`<ytd-rich-item-renderer>`+
		`<a id="video-title">%s</a>`+
		`<div id="channel-name">%s</div>`+
		`<span id="text" class="ytd-thumbnail-overlay-time-status-renderer">%s</span>`+
		`</ytd-rich-item-renderer>`, title, channel, duration)
}

func pageWith(items ...string) string {
	return `<html><head><title>YouTube</title></head><body><ytd-app><div id="contents">` +
		strings.Join(items, "") +
		`</div></ytd-app></body></html>`
}

func testOptions() Options {
	opts := DefaultOptions()
	opts.Debounce = 10 * time.Millisecond
	opts.InitDelay = 10 * time.Millisecond
	opts.PollInterval = 10 * time.Millisecond
	opts.SettleDelay = 20 * time.Millisecond
	return opts
}

func newTestEngine(t *testing.T, content string, rs rules.RuleSet) (*Engine, *page.Document, *recordingPublisher) {
	t.Helper()

	doc, err := page.ParseString("https://www.youtube.com/", content)
	if err != nil {
		t.Fatal(err)
	}

	publisher := &recordingPublisher{}
	engine, err := NewEngine(doc, store.NewMemoryStore(), publisher, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	engine.SetRules(rs)

	return engine, doc, publisher
}

func ruleSet(keywords []string, minLength float64) rules.RuleSet {
	rs := rules.Default()
	rs.Keywords = keywords
	rs.MinLength = minLength
	return rs
}

func items(doc *page.Document) []*html.Node {
	return doc.QueryAll(cascadia.MustCompile("ytd-rich-item-renderer"))
}

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}

func TestClassify_KeywordTakesPrecedence(t *testing.T) {
	rs := ruleSet([]string{"AD"}, 10)

	got := Classify(NewCandidate("Great ad review", "Channel", "3:00"), rs)
	if got != HiddenByKeyword {
		t.Errorf("Expected keyword decision, got %s", got)
	}

	got = Classify(NewCandidate("Documentary", "Ad Channel", "15:00"), rs)
	if got != HiddenByKeyword {
		t.Errorf("Expected channel name to match keyword, got %s", got)
	}

	got = Classify(NewCandidate("Documentary", "Channel", "3:00"), rs)
	if got != HiddenByLength {
		t.Errorf("Expected length decision, got %s", got)
	}

	got = Classify(NewCandidate("Documentary", "Channel", "LIVE"), rs)
	if got != Visible {
		t.Errorf("Expected unknown duration to stay visible, got %s", got)
	}

	rs.KeywordFilter = false
	got = Classify(NewCandidate("Great ad review", "Channel", "3:00"), rs)
	if got != HiddenByLength {
		t.Errorf("Expected length decision with keyword filter off, got %s", got)
	}
}

func TestEngine_EndToEnd(t *testing.T) {
	engine, doc, publisher := newTestEngine(t, pageWith(
		item("Great Ad Review", "Reviews", "3:00"),
		item("Documentary", "Nature", "3:00"),
		item("Documentary", "Nature", "15:00"),
	), ruleSet([]string{"ad"}, 10))

	counters := engine.FullRescan()

	if counters != (Counters{Keyword: 1, Length: 1}) {
		t.Errorf("Unexpected counters: %+v", counters)
	}

	nodes := items(doc)
	want := []Decision{HiddenByKeyword, HiddenByLength, Visible}
	for i, n := range nodes {
		d, ok := engine.Decision(n)
		if !ok || d != want[i] {
			t.Errorf("Item %d: expected %s, got %s (marked=%v)", i, want[i], d, ok)
		}
		if doc.IsHidden(n) != want[i].Hidden() {
			t.Errorf("Item %d: expected hidden=%v", i, want[i].Hidden())
		}
	}

	if last, n := publisher.last(); n != 1 || last != counters {
		t.Errorf("Expected one publish with %+v, got %+v (%d)", counters, last, n)
	}
}

func TestEngine_FullRescanIsIdempotent(t *testing.T) {
	engine, doc, _ := newTestEngine(t, pageWith(
		item("Sponsor segment", "A", "1:00"),
		item("Short clip", "B", "0:30"),
		item("Long talk", "C", "1:00:00"),
	), ruleSet([]string{"sponsor"}, 5))

	first := engine.FullRescan()
	var hiddenFirst []bool
	for _, n := range items(doc) {
		hiddenFirst = append(hiddenFirst, doc.IsHidden(n))
	}

	second := engine.FullRescan()
	if first != second {
		t.Errorf("Expected identical counters, got %+v and %+v", first, second)
	}
	for i, n := range items(doc) {
		if doc.IsHidden(n) != hiddenFirst[i] {
			t.Errorf("Item %d changed visibility between passes", i)
		}
	}
}

func TestEngine_RuleChangeRestoresVisibility(t *testing.T) {
	engine, doc, _ := newTestEngine(t, pageWith(
		item("Sponsor segment", "A", "20:00"),
	), ruleSet([]string{"sponsor"}, 0))

	engine.FullRescan()
	n := items(doc)[0]
	if !doc.IsHidden(n) {
		t.Fatal("Expected item to be hidden by keyword")
	}

	disabled := false
	engine.UpdateRules(rules.Partial{EnableKeywordFilter: &disabled})
	counters := engine.FullRescan()

	if doc.IsHidden(n) {
		t.Error("Expected item to be visible after disabling keyword filter")
	}
	if counters.Total() != 0 {
		t.Errorf("Expected zero counters, got %+v", counters)
	}
	if d, _ := engine.Decision(n); d != Visible {
		t.Errorf("Expected visible decision, got %s", d)
	}
}

func TestEngine_ShortsPass(t *testing.T) {
	content := `<html><body><ytd-app>` +
		item("Sponsor", "A", "1:00") +
		`<ytd-reel-shelf-renderer><ytd-reel-item-renderer></ytd-reel-item-renderer></ytd-reel-shelf-renderer>` +
		`</ytd-app></body></html>`

	engine, doc, _ := newTestEngine(t, content, ruleSet([]string{"sponsor"}, 0))

	counters := engine.FullRescan()
	if counters != (Counters{Keyword: 1, Shorts: 2}) {
		t.Errorf("Unexpected counters: %+v", counters)
	}

	shelf := doc.QueryAll(cascadia.MustCompile("ytd-reel-shelf-renderer"))[0]
	if !doc.IsHidden(shelf) {
		t.Error("Expected shorts shelf to be hidden")
	}

	engine.UpdateRules(rules.Partial{EnableShortsFilter: new(bool)})
	counters = engine.FullRescan()
	if counters.Shorts != 0 {
		t.Errorf("Expected no shorts counted, got %d", counters.Shorts)
	}
	if doc.IsHidden(shelf) {
		t.Error("Expected shorts shelf to be visible after disabling the shorts filter")
	}
}

func TestEngine_IncrementalBatchesAccumulate(t *testing.T) {
	engine, doc, publisher := newTestEngine(t, pageWith(), ruleSet([]string{"ad"}, 0))
	engine.FullRescan()
	engine.attachWatcher()

	contents := doc.QueryAll(cascadia.MustCompile("#contents"))[0]

	if _, err := doc.Append(contents, item("Ad one", "A", "1:00")+item("Fine", "B", "1:00")); err != nil {
		t.Fatal(err)
	}
	if got := engine.Flush(); got.Keyword != 1 {
		t.Fatalf("Expected 1 keyword hidden after first batch, got %+v", got)
	}

	if _, err := doc.Append(contents, item("Ad two", "C", "1:00")); err != nil {
		t.Fatal(err)
	}
	if got := engine.Flush(); got.Keyword != 2 {
		t.Fatalf("Expected 2 keyword hidden after second batch, got %+v", got)
	}

	nodes := items(doc)
	if len(nodes) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(nodes))
	}
	if !doc.IsHidden(nodes[0]) || doc.IsHidden(nodes[1]) || !doc.IsHidden(nodes[2]) {
		t.Error("Unexpected visibility after incremental passes")
	}

	if last, _ := publisher.last(); last.Keyword != 2 {
		t.Errorf("Expected indicator to see 2 keyword hides, got %+v", last)
	}
}

func TestEngine_IncrementalSkipsDecidedAndEvictsRemoved(t *testing.T) {
	engine, doc, _ := newTestEngine(t, pageWith(item("Ad", "A", "1:00")), ruleSet([]string{"ad"}, 0))
	engine.FullRescan()
	engine.attachWatcher()

	contents := doc.QueryAll(cascadia.MustCompile("#contents"))[0]
	existing := items(doc)[0]

	// An unrelated addition must not re-count the existing item.
	if _, err := doc.Append(contents, `<span>noise</span>`); err != nil {
		t.Fatal(err)
	}
	if got := engine.Flush(); got.Keyword != 1 {
		t.Errorf("Expected counters unchanged, got %+v", got)
	}

	if err := doc.Remove(existing); err != nil {
		t.Fatal(err)
	}
	engine.Flush()

	if _, ok := engine.Decision(existing); ok {
		t.Error("Expected decision to be evicted for removed node")
	}
}

func TestEngine_DebouncedWatcher(t *testing.T) {
	engine, doc, publisher := newTestEngine(t, pageWith(), ruleSet([]string{"ad"}, 0))
	engine.attachWatcher()

	contents := doc.QueryAll(cascadia.MustCompile("#contents"))[0]
	for i := 0; i < 5; i++ {
		if _, err := doc.Append(contents, item(fmt.Sprintf("Ad %d", i), "A", "1:00")); err != nil {
			t.Fatal(err)
		}
	}

	waitFor(t, time.Second, func() bool {
		return engine.Counters().Keyword == 5
	})
	time.Sleep(50 * time.Millisecond)

	if _, n := publisher.last(); n != 1 {
		t.Errorf("Expected the burst to be handled by a single pass, got %d publishes", n)
	}
}

func TestEngine_IncrementalShortsBatch(t *testing.T) {
	engine, doc, _ := newTestEngine(t, pageWith(), ruleSet(nil, 0))
	engine.FullRescan()
	engine.attachWatcher()

	contents := doc.QueryAll(cascadia.MustCompile("#contents"))[0]
	shelf := `<ytd-reel-shelf-renderer><ytd-reel-item-renderer></ytd-reel-item-renderer></ytd-reel-shelf-renderer>`
	if _, err := doc.Append(contents, shelf+item("Fine", "B", "10:00")); err != nil {
		t.Fatal(err)
	}

	if got := engine.Flush(); got != (Counters{Shorts: 2}) {
		t.Errorf("Expected shelf and item hidden as shorts, got %+v", got)
	}
	if !doc.IsHidden(doc.QueryAll(cascadia.MustCompile("ytd-reel-shelf-renderer"))[0]) {
		t.Error("Expected appended shorts shelf to be hidden")
	}
	if doc.IsHidden(items(doc)[0]) {
		t.Error("Expected regular item to stay visible")
	}
}

type failingStore struct {
	*store.MemoryStore
}

func (s failingStore) Get(ctx context.Context, keys ...string) (store.Values, error) {
	return nil, errors.New("database is locked")
}

func TestEngine_LoadRulesKeepsSnapshotOnStoreFailure(t *testing.T) {
	doc, err := page.ParseString("https://www.youtube.com/", pageWith(item("Ad", "A", "1:00")))
	if err != nil {
		t.Fatal(err)
	}

	engine, err := NewEngine(doc, failingStore{store.NewMemoryStore()}, &recordingPublisher{}, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	engine.SetRules(ruleSet([]string{"ad"}, 3))

	engine.LoadRules(context.Background())

	rs := engine.Rules()
	if !rs.HasKeyword("ad") || rs.MinLength != 3 {
		t.Errorf("Expected previous rules to stay in effect, got %+v", rs)
	}
	if got := engine.FullRescan(); got.Keyword != 1 {
		t.Errorf("Expected the kept rules to apply, got %+v", got)
	}
}

func TestEngine_StartLoadsRulesAndReactsToStore(t *testing.T) {
	doc, err := page.ParseString("https://www.youtube.com/", pageWith(
		item("Sponsor talk", "A", "20:00"),
		item("Quick tip", "B", "2:00"),
	))
	if err != nil {
		t.Fatal(err)
	}

	st := store.NewMemoryStore()
	ctx := context.Background()
	if err := st.Set(ctx, store.Values{rules.KeyKeywords: json.RawMessage(`["sponsor"]`)}); err != nil {
		t.Fatal(err)
	}

	engine, err := NewEngine(doc, st, &recordingPublisher{}, testOptions())
	if err != nil {
		t.Fatal(err)
	}
	engine.Start(ctx)
	defer engine.Stop()

	waitFor(t, time.Second, func() bool {
		return engine.Counters().Keyword == 1
	})

	if err := st.Set(ctx, store.Values{rules.KeyMinLength: json.RawMessage(`5`)}); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		return engine.Counters() == Counters{Keyword: 1, Length: 1}
	})

	if rs := engine.Rules(); rs.MinLength != 5 || !rs.HasKeyword("sponsor") {
		t.Errorf("Unexpected rules after store change: %+v", rs)
	}
}

func TestEngine_NavigationTriggersRescan(t *testing.T) {
	engine, doc, _ := newTestEngine(t, pageWith(item("Ad", "A", "1:00")), ruleSet([]string{"ad"}, 0))

	// Rules come from the store on start, so seed it first.
	values, err := rules.Encode(ruleSet([]string{"ad"}, 0).Full())
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.store.Set(context.Background(), values); err != nil {
		t.Fatal(err)
	}

	engine.Start(context.Background())
	defer engine.Stop()

	waitFor(t, time.Second, func() bool {
		return engine.Counters().Keyword == 1
	})

	next := pageWith(item("Ad A", "A", "1:00"), item("Ad B", "B", "1:00"), item("Other", "C", "1:00"))
	if err := doc.Navigate("https://www.youtube.com/watch?v=abc", strings.NewReader(next)); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		return engine.Stats().Location == "https://www.youtube.com/watch?v=abc" &&
			engine.Counters().Keyword == 2
	})

	// The watcher follows the new containers.
	contents := doc.QueryAll(cascadia.MustCompile("#contents"))[0]
	if _, err := doc.Append(contents, item("Ad C", "D", "1:00")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool {
		return engine.Counters().Keyword == 3
	})
}

func TestEngine_ReloadSameLocationTriggersRescan(t *testing.T) {
	engine, doc, _ := newTestEngine(t, pageWith(item("Fine", "A", "1:00")), ruleSet([]string{"ad"}, 0))

	values, err := rules.Encode(ruleSet([]string{"ad"}, 0).Full())
	if err != nil {
		t.Fatal(err)
	}
	if err := engine.store.Set(context.Background(), values); err != nil {
		t.Fatal(err)
	}

	engine.Start(context.Background())
	defer engine.Stop()

	waitFor(t, time.Second, func() bool {
		return engine.Rules().HasKeyword("ad")
	})

	reloaded := pageWith(item("Great Ad Review", "A", "12:00"))
	if err := doc.Navigate("https://www.youtube.com/", strings.NewReader(reloaded)); err != nil {
		t.Fatal(err)
	}

	waitFor(t, time.Second, func() bool {
		return engine.Counters().Keyword == 1
	})
	if !doc.IsHidden(items(doc)[0]) {
		t.Error("Expected reloaded item to be hidden")
	}

	// The watcher must follow the replaced containers.
	contents := doc.QueryAll(cascadia.MustCompile("#contents"))[0]
	if _, err := doc.Append(contents, item("Ad again", "B", "1:00")); err != nil {
		t.Fatal(err)
	}
	waitFor(t, time.Second, func() bool {
		return engine.Counters().Keyword == 2
	})
}

func TestMonitor_ReportsReloadOfSameLocation(t *testing.T) {
	doc, err := page.ParseString("https://www.youtube.com/", pageWith())
	if err != nil {
		t.Fatal(err)
	}

	reports := make(chan string, 4)
	monitor := NewMonitor(doc, time.Hour, time.Millisecond, func(location string) {
		reports <- location
	})

	if err := doc.Navigate("https://www.youtube.com/", strings.NewReader(pageWith())); err != nil {
		t.Fatal(err)
	}
	if !monitor.Check() {
		t.Fatal("Expected a reload to be detected")
	}
	if monitor.Check() {
		t.Error("Expected no further change without another navigation")
	}

	select {
	case got := <-reports:
		if got != "https://www.youtube.com/" {
			t.Errorf("Unexpected location reported: %s", got)
		}
	case <-time.After(time.Second):
		t.Fatal("Expected a navigation report")
	}
}

func TestMonitor_SettleReplacesPending(t *testing.T) {
	doc, err := page.ParseString("https://www.youtube.com/", pageWith())
	if err != nil {
		t.Fatal(err)
	}

	var mu sync.Mutex
	var seen []string
	monitor := NewMonitor(doc, time.Hour, 30*time.Millisecond, func(location string) {
		mu.Lock()
		defer mu.Unlock()
		seen = append(seen, location)
	})

	if monitor.Check() {
		t.Error("Expected no change before navigation")
	}

	doc.SetLocation("https://www.youtube.com/a")
	if !monitor.Check() {
		t.Error("Expected change to be detected")
	}
	doc.SetLocation("https://www.youtube.com/b")
	monitor.Check()

	waitFor(t, time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 1
	})
	time.Sleep(50 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if len(seen) != 1 || seen[0] != "https://www.youtube.com/b" {
		t.Errorf("Expected a single report for the latest location, got %v", seen)
	}
}

func TestEngine_HandleMessage(t *testing.T) {
	engine, _, _ := newTestEngine(t, pageWith(item("Ad", "A", "1:00")), ruleSet([]string{"ad"}, 0))

	resp := engine.HandleMessage(Message{Action: ActionReapplyFilters})
	if !resp.Success || resp.Error != "" {
		t.Errorf("Expected success, got %+v", resp)
	}
	if resp.Counters == nil || resp.Counters.Keyword != 1 {
		t.Errorf("Expected counters in response, got %+v", resp.Counters)
	}

	resp = engine.HandleMessage(Message{Action: "selfDestruct"})
	if resp.Success || resp.Error == "" {
		t.Errorf("Expected failure for unknown action, got %+v", resp)
	}

	engine.Stop()
	resp = engine.HandleMessage(Message{Action: ActionReapplyFilters})
	if resp.Success {
		t.Error("Expected failure after stop")
	}
}

func TestNewEngine_InvalidSelector(t *testing.T) {
	doc, err := page.ParseString("https://www.youtube.com/", pageWith())
	if err != nil {
		t.Fatal(err)
	}

	opts := testOptions()
	opts.Selectors.Title = "[[["
	if _, err := NewEngine(doc, store.NewMemoryStore(), nil, opts); err == nil {
		t.Error("Expected error for invalid selector")
	}
}

func TestSelectors_Override(t *testing.T) {
	base := DefaultSelectors()
	got := base.Override(rules.FileSelectors{Title: "#title", WatchTargets: []string{"main"}})

	if got.Title != "#title" {
		t.Errorf("Expected title override, got %q", got.Title)
	}
	if got.Candidates != base.Candidates {
		t.Error("Expected empty override fields to keep defaults")
	}
	if len(got.WatchTargets) != 1 || got.WatchTargets[0] != "main" {
		t.Errorf("Unexpected watch targets %v", got.WatchTargets)
	}
	if len(base.WatchTargets) != 3 {
		t.Error("Override must not modify the receiver")
	}
}

func TestEngine_ReapplyAfterStop(t *testing.T) {
	engine, _, _ := newTestEngine(t, pageWith(item("Ad", "A", "1:00")), ruleSet([]string{"ad"}, 0))
	engine.Stop()

	if _, err := engine.Reapply(); !errors.Is(err, ErrStopped) {
		t.Errorf("Expected ErrStopped, got %v", err)
	}
	if resp := engine.HandleMessage(Message{Action: ActionReapplyFilters}); resp.Success {
		t.Error("Expected a failure payload from a stopped engine")
	}
}
