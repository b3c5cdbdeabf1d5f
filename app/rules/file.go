package rules

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// File is the on-disk YAML form of a rule set. Every field is optional;
// absent fields leave the stored value untouched when imported.
type File struct {
	Path      string        `yaml:"-"`
	Keywords  *[]string     `yaml:"keywords"`
	MinLength *float64      `yaml:"min_length"`
	Filters   FileFilters   `yaml:"filters"`
	Selectors FileSelectors `yaml:"selectors"`
}

type FileFilters struct {
	Keyword *bool `yaml:"keyword"`
	Length  *bool `yaml:"length"`
	Shorts  *bool `yaml:"shorts"`
}

// FileSelectors overrides the document selectors used by the engine.
// Empty strings keep the built-in defaults.
type FileSelectors struct {
	Candidates       string   `yaml:"candidates"`
	ShortsContainers string   `yaml:"shorts_containers"`
	ShortsItems      string   `yaml:"shorts_items"`
	Title            string   `yaml:"title"`
	Channel          string   `yaml:"channel"`
	Duration         string   `yaml:"duration"`
	WatchTargets     []string `yaml:"watch_targets"`
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	file, err := ParseFile(data)
	if err != nil {
		return nil, fmt.Errorf("invalid rules file %s: %w", path, err)
	}
	file.Path = path

	return file, nil
}

func ParseFile(data []byte) (*File, error) {
	var file File
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := file.validate(); err != nil {
		return nil, err
	}

	return &file, nil
}

// Partial converts the file into a store update.
func (f *File) Partial() Partial {
	return Partial{
		Keywords:            f.Keywords,
		MinLength:           f.MinLength,
		EnableKeywordFilter: f.Filters.Keyword,
		EnableLengthFilter:  f.Filters.Length,
		EnableShortsFilter:  f.Filters.Shorts,
	}
}

func (f *File) validate() error {
	if f.MinLength != nil && *f.MinLength < 0 {
		return errors.New("min_length must be non-negative")
	}

	if f.Keywords != nil {
		for i, keyword := range *f.Keywords {
			if strings.TrimSpace(keyword) == "" {
				return fmt.Errorf("keyword at index %d is blank", i)
			}
		}
	}

	for i, target := range f.Selectors.WatchTargets {
		if strings.TrimSpace(target) == "" {
			return fmt.Errorf("watch target at index %d is blank", i)
		}
	}

	return nil
}
