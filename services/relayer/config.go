package relayer

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Duration wraps time.Duration to support YAML unmarshalling.
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses human readable duration strings.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	if value == nil {
		return nil
	}
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("duration must be string")
	}
	if value.Value == "" {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(value.Value)
	if err != nil {
		return fmt.Errorf("parse duration %q: %w", value.Value, err)
	}
	d.Duration = parsed
	return nil
}

// Quote source kinds.
const (
	SourceStatic = "static"
	SourceHTTP   = "http"
)

// Config captures the runtime configuration of the relayer.
type Config struct {
	Interval      Duration     `yaml:"interval"`
	MaxQuoteAge   Duration     `yaml:"max_quote_age"`
	BlocksPerYear uint64       `yaml:"blocks_per_year"`
	Quote         QuoteConfig  `yaml:"quote"`
	Vault         VaultTarget  `yaml:"vault"`
	Bonds         BondsTarget  `yaml:"bonds"`
	Submissions   SubmitLimits `yaml:"submissions"`
}

// QuoteConfig selects where the APR comes from.
type QuoteConfig struct {
	Source  string   `yaml:"source"`
	URL     string   `yaml:"url"`
	APRBps  uint64   `yaml:"apr_bps"`
	Timeout Duration `yaml:"timeout"`
}

// VaultTarget enables accrual into the pooled ledger.
type VaultTarget struct {
	Enabled bool `yaml:"enabled"`
}

// BondsTarget lists the positions that receive per-position accrual.
type BondsTarget struct {
	Positions []uint64 `yaml:"positions"`
}

// SubmitLimits paces ledger submissions within a cycle.
type SubmitLimits struct {
	PerSecond float64 `yaml:"per_second"`
	Burst     int     `yaml:"burst"`
}

// LoadConfig reads configuration from the supplied path.
func LoadConfig(path string) (Config, error) {
	cfg := Config{}
	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()
	dec := yaml.NewDecoder(file)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("decode config: %w", err)
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Interval.Duration == 0 {
		cfg.Interval.Duration = time.Minute
	}
	if cfg.MaxQuoteAge.Duration == 0 {
		cfg.MaxQuoteAge.Duration = 5 * time.Minute
	}
	if cfg.BlocksPerYear == 0 {
		cfg.BlocksPerYear = 5_256_000
	}
	if cfg.Quote.Source == "" {
		cfg.Quote.Source = SourceStatic
	}
	cfg.Quote.Source = strings.ToLower(strings.TrimSpace(cfg.Quote.Source))
	if cfg.Quote.Timeout.Duration == 0 {
		cfg.Quote.Timeout.Duration = 5 * time.Second
	}
	if cfg.Submissions.PerSecond <= 0 {
		cfg.Submissions.PerSecond = 10
	}
	if cfg.Submissions.Burst <= 0 {
		cfg.Submissions.Burst = 1
	}
}

func validateConfig(cfg Config) error {
	switch cfg.Quote.Source {
	case SourceStatic:
	case SourceHTTP:
		if strings.TrimSpace(cfg.Quote.URL) == "" {
			return fmt.Errorf("quote url must be configured for the http source")
		}
	default:
		return fmt.Errorf("unknown quote source %q", cfg.Quote.Source)
	}
	if !cfg.Vault.Enabled && len(cfg.Bonds.Positions) == 0 {
		return fmt.Errorf("no accrual target configured")
	}
	if cfg.Quote.APRBps > maxAPRBps {
		return fmt.Errorf("apr_bps %d exceeds %d", cfg.Quote.APRBps, maxAPRBps)
	}
	return nil
}
