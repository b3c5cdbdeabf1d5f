package cfg

import "time"

type Cfg struct {
	// Storage
	DBPath    string
	RulesFile string

	// Server
	Port         string
	BaseUrl      string
	APIAccessKey string

	// Page
	StartURL     string
	UserAgent    string
	FetchTimeout time.Duration
	WorkerCount  int

	// Filter timings
	Debounce     time.Duration
	InitDelay    time.Duration
	PollInterval time.Duration
	SettleDelay  time.Duration

	// Indicator
	Dwell      time.Duration
	Fade       time.Duration
	Indicators []string

	// Application metadata
	Timezone string
	Debug    bool
	Version  string
}
