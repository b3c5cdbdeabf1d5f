package rules

// Store keys recognised by the filter engine. Anything else in the
// settings bag belongs to somebody else and is ignored.
const (
	KeyKeywords            = "keywords"
	KeyMinLength           = "minLength"
	KeyEnableKeywordFilter = "enableKeywordFilter"
	KeyEnableLengthFilter  = "enableLengthFilter"
	KeyEnableShortsFilter  = "enableShortsFilter"
)

// Keys lists every recognised key in a stable order.
func Keys() []string {
	return []string{
		KeyKeywords,
		KeyMinLength,
		KeyEnableKeywordFilter,
		KeyEnableLengthFilter,
		KeyEnableShortsFilter,
	}
}

// RuleSet is an immutable snapshot of the user's filter rules.
// It is replaced wholesale on every update; use Merge to derive a new one.
type RuleSet struct {
	Keywords      []string `json:"keywords"`
	MinLength     float64  `json:"minLength"` // minutes
	KeywordFilter bool     `json:"enableKeywordFilter"`
	LengthFilter  bool     `json:"enableLengthFilter"`
	ShortsFilter  bool     `json:"enableShortsFilter"`
}

// Partial is a subset of rule values as delivered by the store.
// A nil field means "not present in this update".
type Partial struct {
	Keywords            *[]string
	MinLength           *float64
	EnableKeywordFilter *bool
	EnableLengthFilter  *bool
	EnableShortsFilter  *bool
}

// Default returns the rules used before anything was read from the store.
func Default() RuleSet {
	return RuleSet{
		Keywords:      []string{},
		MinLength:     0,
		KeywordFilter: true,
		LengthFilter:  true,
		ShortsFilter:  true,
	}
}
