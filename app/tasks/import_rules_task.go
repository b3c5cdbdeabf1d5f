package tasks

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/rec-comb/app/rules"
	"github.com/lysyi3m/rec-comb/app/store"
)

// ImportRulesTask copies the values of a rules file into the settings
// store. Keys the file leaves out keep their stored values.
type ImportRulesTask struct {
	Task
	Path  string
	store store.Store
}

func NewImportRulesTask(path string, st store.Store) *ImportRulesTask {
	return &ImportRulesTask{
		Task:  NewTask(TaskTypeImportRules, path),
		Path:  path,
		store: st,
	}
}

func (t *ImportRulesTask) Execute(ctx context.Context) error {

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	file, err := rules.LoadFile(t.Path)
	if err != nil {
		return fmt.Errorf("failed to load rules file: %w", err)
	}

	values, err := rules.Encode(file.Partial())
	if err != nil {
		return fmt.Errorf("failed to encode rules: %w", err)
	}

	if len(values) > 0 {
		if err := t.store.Set(ctx, values); err != nil {
			return fmt.Errorf("failed to store rules: %w", err)
		}
	}

	slog.Info("Task completed",
		"type", "ImportRules",
		"path", t.Path,
		"duration", t.GetDuration(),
		"keys", len(values))

	return nil
}
