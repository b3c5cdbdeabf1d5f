package rules

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Merge returns a new RuleSet with the fields present in p applied on top
// of rs. rs itself is never modified.
func (rs RuleSet) Merge(p Partial) RuleSet {
	merged := rs
	merged.Keywords = slices.Clone(rs.Keywords)

	if p.Keywords != nil {
		merged.Keywords = cleanKeywords(*p.Keywords)
	}
	if p.MinLength != nil {
		merged.MinLength = max(*p.MinLength, 0)
	}
	if p.EnableKeywordFilter != nil {
		merged.KeywordFilter = *p.EnableKeywordFilter
	}
	if p.EnableLengthFilter != nil {
		merged.LengthFilter = *p.EnableLengthFilter
	}
	if p.EnableShortsFilter != nil {
		merged.ShortsFilter = *p.EnableShortsFilter
	}

	return merged
}

// HasKeyword reports whether keyword is already in the set, compared exactly
// as entered.
func (rs RuleSet) HasKeyword(keyword string) bool {
	return slices.Contains(rs.Keywords, keyword)
}

// IsEmpty reports whether the partial carries no values at all.
func (p Partial) IsEmpty() bool {
	return p.Keywords == nil && p.MinLength == nil && p.EnableKeywordFilter == nil &&
		p.EnableLengthFilter == nil && p.EnableShortsFilter == nil
}

// Decode extracts the recognised keys from a raw settings map. Unknown keys
// are ignored. A malformed value for a recognised key is skipped and
// reported in the returned error, the remaining keys are still decoded.
func Decode(values map[string]json.RawMessage) (Partial, error) {
	var p Partial
	var errs []error

	for key, raw := range values {
		switch key {
		case KeyKeywords:
			var keywords []string
			if err := json.Unmarshal(raw, &keywords); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				continue
			}
			if keywords == nil {
				keywords = []string{}
			}
			p.Keywords = &keywords
		case KeyMinLength:
			var minLength float64
			if err := json.Unmarshal(raw, &minLength); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				continue
			}
			if minLength < 0 {
				errs = append(errs, fmt.Errorf("invalid %s: must be non-negative, got %v", key, minLength))
				continue
			}
			p.MinLength = &minLength
		case KeyEnableKeywordFilter, KeyEnableLengthFilter, KeyEnableShortsFilter:
			var enabled bool
			if err := json.Unmarshal(raw, &enabled); err != nil {
				errs = append(errs, fmt.Errorf("invalid %s: %w", key, err))
				continue
			}
			switch key {
			case KeyEnableKeywordFilter:
				p.EnableKeywordFilter = &enabled
			case KeyEnableLengthFilter:
				p.EnableLengthFilter = &enabled
			default:
				p.EnableShortsFilter = &enabled
			}
		}
	}

	return p, errors.Join(errs...)
}

// Encode converts the present fields of p into raw store values.
func Encode(p Partial) (map[string]json.RawMessage, error) {
	values := make(map[string]json.RawMessage)

	fields := map[string]any{}
	if p.Keywords != nil {
		fields[KeyKeywords] = cleanKeywords(*p.Keywords)
	}
	if p.MinLength != nil {
		fields[KeyMinLength] = *p.MinLength
	}
	if p.EnableKeywordFilter != nil {
		fields[KeyEnableKeywordFilter] = *p.EnableKeywordFilter
	}
	if p.EnableLengthFilter != nil {
		fields[KeyEnableLengthFilter] = *p.EnableLengthFilter
	}
	if p.EnableShortsFilter != nil {
		fields[KeyEnableShortsFilter] = *p.EnableShortsFilter
	}

	for key, value := range fields {
		raw, err := json.Marshal(value)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key, err)
		}
		values[key] = raw
	}

	return values, nil
}

// Full returns a Partial carrying every field of rs.
func (rs RuleSet) Full() Partial {
	keywords := slices.Clone(rs.Keywords)
	minLength := rs.MinLength
	keywordFilter := rs.KeywordFilter
	lengthFilter := rs.LengthFilter
	shortsFilter := rs.ShortsFilter

	return Partial{
		Keywords:            &keywords,
		MinLength:           &minLength,
		EnableKeywordFilter: &keywordFilter,
		EnableLengthFilter:  &lengthFilter,
		EnableShortsFilter:  &shortsFilter,
	}
}

// A blank keyword would match every title, so it never makes it into a set.
func cleanKeywords(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if strings.TrimSpace(keyword) == "" {
			continue
		}
		cleaned = append(cleaned, keyword)
	}
	return cleaned
}
