package rules

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/bep/debounce"
	"github.com/fsnotify/fsnotify"
)

// Watcher reports edits of a rules file. The parent directory is watched
// so that editors replacing the file by rename are picked up too. Bursts of
// events are coalesced into one report.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	onChange func(path string)
	schedule func(func())
}

func NewWatcher(path string, quiet time.Duration, onChange func(string)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve rules file path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(abs), err)
	}

	return &Watcher{
		path:     abs,
		watcher:  fsw,
		onChange: onChange,
		schedule: debounce.New(quiet),
	}, nil
}

// Run delivers change reports until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) {
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			slog.Debug("Rules file change detected", "op", event.Op.String(), "file", event.Name)
			w.schedule(func() {
				if ctx.Err() == nil {
					w.onChange(w.path)
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("Rules file watcher error", "error", err)
		}
	}
}
