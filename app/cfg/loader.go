package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Storage configuration
	DBPath    string `long:"db-path" env:"DB_PATH" default:"./data/rec-comb.db" description:"SQLite database file for settings"`
	RulesFile string `long:"rules-file" env:"RULES_FILE" description:"YAML rules file imported at startup and watched for changes (optional)"`

	// Server configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	BaseUrl      string `long:"base-url" env:"BASE_URL" description:"Public base URL for the service (e.g., https://rec.example.com)"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for the panel endpoints (optional)"`

	// Page configuration
	StartURL     string        `long:"start-url" env:"START_URL" description:"Page loaded at startup (optional)"`
	UserAgent    string        `long:"user-agent" env:"USER_AGENT" default:"Rec Comb/1.0" description:"User agent string for HTTP requests"`
	FetchTimeout time.Duration `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30s" description:"Timeout for page and feed fetches"`
	WorkerCount  int           `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers"`

	// Filter timings
	Debounce     time.Duration `long:"debounce" env:"DEBOUNCE" default:"100ms" description:"Quiet period before new content is filtered"`
	InitDelay    time.Duration `long:"init-delay" env:"INIT_DELAY" default:"500ms" description:"Delay before the first full pass"`
	PollInterval time.Duration `long:"poll-interval" env:"POLL_INTERVAL" default:"1s" description:"Location polling interval"`
	SettleDelay  time.Duration `long:"settle-delay" env:"SETTLE_DELAY" default:"1s" description:"Wait after navigation before re-filtering"`

	// Indicator configuration
	Dwell      time.Duration `long:"indicator-dwell" env:"INDICATOR_DWELL" default:"3s" description:"How long the indicator stays visible"`
	Fade       time.Duration `long:"indicator-fade" env:"INDICATOR_FADE" default:"300ms" description:"Indicator fade-out duration"`
	Indicators []string      `long:"indicator" env:"INDICATORS" env-delim:"," default:"overlay" default:"log" choice:"overlay" choice:"log" choice:"terminal" description:"Indicator displays"`

	// Application metadata
	Timezone string `long:"timezone" env:"TZ" default:"UTC" description:"Timezone for timestamps (e.g., UTC, America/New_York)"`
	Debug    bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	return LoadArgs(nil)
}

// LoadArgs parses args instead of the process arguments when args is not nil.
func LoadArgs(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	var err error
	if args == nil {
		_, err = parser.Parse()
	} else {
		_, err = parser.ParseArgs(args)
	}
	if err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		DBPath:       raw.DBPath,
		RulesFile:    raw.RulesFile,
		Port:         raw.Port,
		BaseUrl:      raw.BaseUrl,
		APIAccessKey: raw.APIAccessKey,
		StartURL:     raw.StartURL,
		UserAgent:    raw.UserAgent,
		FetchTimeout: raw.FetchTimeout,
		WorkerCount:  raw.WorkerCount,
		Debounce:     raw.Debounce,
		InitDelay:    raw.InitDelay,
		PollInterval: raw.PollInterval,
		SettleDelay:  raw.SettleDelay,
		Dwell:        raw.Dwell,
		Fade:         raw.Fade,
		Indicators:   raw.Indicators,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func validate(cfg *Cfg) error {
	if cfg.WorkerCount < 1 {
		return fmt.Errorf("worker count must be at least 1, got %d", cfg.WorkerCount)
	}

	positive := map[string]time.Duration{
		"debounce":        cfg.Debounce,
		"poll interval":   cfg.PollInterval,
		"indicator dwell": cfg.Dwell,
	}
	for name, value := range positive {
		if value <= 0 {
			return fmt.Errorf("%s must be positive, got %s", name, value)
		}
	}

	nonNegative := map[string]time.Duration{
		"init delay":     cfg.InitDelay,
		"settle delay":   cfg.SettleDelay,
		"indicator fade": cfg.Fade,
		"fetch timeout":  cfg.FetchTimeout,
	}
	for name, value := range nonNegative {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative, got %s", name, value)
		}
	}

	return nil
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
			fmt.Printf("Timezone configured: %s\n", timezone)
		}
	}
	return nil
}
