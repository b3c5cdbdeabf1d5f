package panel

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lysyi3m/rec-comb/app/filter"
	"github.com/lysyi3m/rec-comb/app/rules"
	"github.com/lysyi3m/rec-comb/app/store"
)

var (
	ErrEmptyKeyword      = errors.New("please enter a keyword")
	ErrDuplicateKeyword  = errors.New("this keyword already exists")
	ErrNegativeMinLength = errors.New("minimum length must not be negative")
	ErrApplyFailed       = errors.New("failed to apply filters")
)

// Messenger delivers control messages to the page filter.
type Messenger interface {
	HandleMessage(filter.Message) filter.Response
}

type Settings struct {
	Keywords            []string `json:"keywords"`
	MinLength           float64  `json:"minLength"`
	EnableKeywordFilter bool     `json:"enableKeywordFilter"`
	EnableLengthFilter  bool     `json:"enableLengthFilter"`
	EnableShortsFilter  bool     `json:"enableShortsFilter"`
}

type Status struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

func success(format string, args ...any) Status {
	return Status{Message: fmt.Sprintf(format, args...), Kind: "success"}
}

func failure(message string) Status {
	return Status{Message: message, Kind: "error"}
}

// Panel implements the settings operations of the companion popup. Every
// successful change is followed by a reapply message.
type Panel struct {
	store     store.Store
	messenger Messenger
}

func New(st store.Store, messenger Messenger) *Panel {
	return &Panel{store: st, messenger: messenger}
}

// Load returns the stored settings with defaults for anything missing.
func (p *Panel) Load(ctx context.Context) (Settings, error) {
	rs, err := p.ruleSet(ctx)
	if err != nil {
		return Settings{}, err
	}

	return Settings{
		Keywords:            rs.Keywords,
		MinLength:           rs.MinLength,
		EnableKeywordFilter: rs.KeywordFilter,
		EnableLengthFilter:  rs.LengthFilter,
		EnableShortsFilter:  rs.ShortsFilter,
	}, nil
}

func (p *Panel) AddKeyword(ctx context.Context, keyword string) (Status, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return failure("Please enter a keyword."), ErrEmptyKeyword
	}

	rs, err := p.ruleSet(ctx)
	if err != nil {
		return failure("Failed to add keyword."), err
	}
	if rs.HasKeyword(keyword) {
		return failure("This keyword already exists!"), ErrDuplicateKeyword
	}

	keywords := append(append([]string(nil), rs.Keywords...), keyword)
	if err := p.save(ctx, rules.Partial{Keywords: &keywords}); err != nil {
		return failure("Failed to add keyword."), err
	}

	slog.Info("Keyword added", "keyword", keyword, "total", len(keywords))
	return p.reapply(success("Keyword %q added and filter applied.", keyword))
}

func (p *Panel) RemoveKeyword(ctx context.Context, keyword string) (Status, error) {
	rs, err := p.ruleSet(ctx)
	if err != nil {
		return failure("Failed to remove keyword."), err
	}

	keywords := make([]string, 0, len(rs.Keywords))
	for _, k := range rs.Keywords {
		if k != keyword {
			keywords = append(keywords, k)
		}
	}
	if err := p.save(ctx, rules.Partial{Keywords: &keywords}); err != nil {
		return failure("Failed to remove keyword."), err
	}

	slog.Info("Keyword removed", "keyword", keyword, "total", len(keywords))
	return p.reapply(success("Keyword %q removed and filter applied.", keyword))
}

// SaveSettings stores the minimum length and the filter toggles. Keywords
// in s are ignored; they are managed through AddKeyword and RemoveKeyword.
func (p *Panel) SaveSettings(ctx context.Context, s Settings) (Status, error) {
	if s.MinLength < 0 {
		return failure("Minimum length must not be negative."), ErrNegativeMinLength
	}

	err := p.save(ctx, rules.Partial{
		MinLength:           &s.MinLength,
		EnableKeywordFilter: &s.EnableKeywordFilter,
		EnableLengthFilter:  &s.EnableLengthFilter,
		EnableShortsFilter:  &s.EnableShortsFilter,
	})
	if err != nil {
		return failure("Failed to save settings."), err
	}

	slog.Info("Settings saved",
		"min_length", s.MinLength,
		"keyword_filter", s.EnableKeywordFilter,
		"length_filter", s.EnableLengthFilter,
		"shorts_filter", s.EnableShortsFilter)
	return p.reapply(success("Settings saved and filter applied."))
}

func (p *Panel) ruleSet(ctx context.Context) (rules.RuleSet, error) {
	values, err := p.store.Get(ctx, rules.Keys()...)
	if err != nil {
		return rules.RuleSet{}, fmt.Errorf("failed to load settings: %w", err)
	}

	partial, err := rules.Decode(values)
	if err != nil {
		slog.Warn("Ignoring malformed stored settings", "error", err)
	}
	return rules.Default().Merge(partial), nil
}

func (p *Panel) save(ctx context.Context, partial rules.Partial) error {
	values, err := rules.Encode(partial)
	if err != nil {
		return fmt.Errorf("failed to encode settings: %w", err)
	}
	if err := p.store.Set(ctx, values); err != nil {
		return fmt.Errorf("failed to save settings: %w", err)
	}
	return nil
}

func (p *Panel) reapply(status Status) (Status, error) {
	if p.messenger == nil {
		return status, nil
	}

	resp := p.messenger.HandleMessage(filter.Message{Action: filter.ActionReapplyFilters})
	if !resp.Success {
		slog.Error("Failed to apply filters", "error", resp.Error)
		return failure("Failed to apply filters."), fmt.Errorf("%w: %s", ErrApplyFailed, resp.Error)
	}
	return status, nil
}
