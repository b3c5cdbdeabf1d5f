package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/cascadia"
	"github.com/lysyi3m/rec-comb/app/page"
	"github.com/lysyi3m/rec-comb/app/store"
)

type countingTask struct {
	Task
	failures int32
	calls    atomic.Int32
	done     chan struct{}
}

func newCountingTask(failures int32) *countingTask {
	return &countingTask{
		Task:     NewTask(TaskTypeFetchPage, "test"),
		failures: failures,
		done:     make(chan struct{}),
	}
}

func (t *countingTask) Execute(ctx context.Context) error {
	n := t.calls.Add(1)
	if n <= t.failures {
		return errors.New("temporary failure")
	}
	close(t.done)
	return nil
}

func TestNewTask_UniqueIDs(t *testing.T) {
	a := NewTask(TaskTypeImportRules, "rules.yml")
	b := NewTask(TaskTypeImportRules, "rules.yml")

	if a.ID == "" || a.ID == b.ID {
		t.Errorf("Expected unique non-empty IDs, got %q and %q", a.ID, b.ID)
	}
	if a.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, a.MaxRetries)
	}
	if a.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	scheduler := NewScheduler(1)
	scheduler.retryBase = time.Millisecond

	task := newCountingTask(2)
	scheduler.Start(task)
	defer scheduler.Stop()

	select {
	case <-task.done:
	case <-time.After(2 * time.Second):
		t.Fatal("Task did not succeed after retries")
	}

	if got := task.calls.Load(); got != 3 {
		t.Errorf("Expected 3 executions, got %d", got)
	}
	if task.GetRetryCount() != 2 {
		t.Errorf("Expected retry count 2, got %d", task.GetRetryCount())
	}
}

func TestScheduler_EnqueueAfterStop(t *testing.T) {
	scheduler := NewScheduler(1)
	scheduler.Start()
	scheduler.Stop()

	if err := scheduler.EnqueueTask(newCountingTask(0)); err == nil {
		t.Error("Expected error when enqueueing on a stopped scheduler")
	}
}

func TestFetchPageTask(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "Rec Comb/test" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.Write([]byte(`<html><body><ytd-app><ytd-rich-item-renderer></ytd-rich-item-renderer></ytd-app></body></html>`))
	}))
	defer server.Close()

	doc, err := page.ParseString("about:blank", "<html><body></body></html>")
	if err != nil {
		t.Fatal(err)
	}

	task := NewFetchPageTask(server.URL+"/watch", server.Client(), doc, "Rec Comb/test", time.Second)
	if err := task.Execute(context.Background()); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	if doc.Location() != server.URL+"/watch" {
		t.Errorf("Expected location to follow the fetched URL, got %s", doc.Location())
	}
	if len(doc.QueryAll(cascadia.MustCompile("ytd-rich-item-renderer"))) != 1 {
		t.Error("Expected fetched content in the document")
	}
}

func TestFetchPageTask_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	doc, err := page.ParseString("about:blank", "<html><body></body></html>")
	if err != nil {
		t.Fatal(err)
	}

	task := NewFetchPageTask(server.URL, server.Client(), doc, "Rec Comb/test", time.Second)
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected error for non-200 response")
	}
	if doc.Location() != "about:blank" {
		t.Error("Expected location to be unchanged after a failed fetch")
	}
}

func TestImportRulesTask(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rules.yml")
	content := "keywords: [sponsor]\nmin_length: 8\nfilters:\n  shorts: false\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	st := store.NewMemoryStore()
	ctx := context.Background()
	if err := st.Set(ctx, store.Values{"enableLengthFilter": json.RawMessage(`false`)}); err != nil {
		t.Fatal(err)
	}

	task := NewImportRulesTask(path, st)
	if err := task.Execute(ctx); err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}

	values, err := st.Get(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if string(values["minLength"]) != "8" {
		t.Errorf("Expected minLength 8, got %s", values["minLength"])
	}
	if string(values["enableShortsFilter"]) != "false" {
		t.Errorf("Expected shorts filter false, got %s", values["enableShortsFilter"])
	}
	if string(values["enableLengthFilter"]) != "false" {
		t.Error("Expected keys absent from the file to keep their stored value")
	}
}

func TestImportRulesTask_MissingFile(t *testing.T) {
	task := NewImportRulesTask(filepath.Join(t.TempDir(), "missing.yml"), store.NewMemoryStore())
	if err := task.Execute(context.Background()); err == nil {
		t.Error("Expected error for missing rules file")
	}
}
