package config

import "time"

// Duration wraps time.Duration so TOML can carry strings such as "6s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Auth configures bearer-token verification on the HTTP API.
type Auth struct {
	Secret   string   `toml:"Secret"`
	Issuer   string   `toml:"Issuer"`
	Audience string   `toml:"Audience"`
	TokenTTL Duration `toml:"TokenTTL"`
}

// RateLimit bounds API requests per client address.
type RateLimit struct {
	RequestsPerSecond float64 `toml:"RequestsPerSecond"`
	Burst             int     `toml:"Burst"`
}

// EventLog selects where committed events are journaled.
type EventLog struct {
	Driver string `toml:"Driver"`
	DSN    string `toml:"DSN"`
}

// Relayer points at the reward relayer's YAML file. An empty path disables it.
type Relayer struct {
	ConfigPath string `toml:"ConfigPath"`
}

// Telemetry configures OTLP export. An empty endpoint disables it.
type Telemetry struct {
	Endpoint string `toml:"Endpoint"`
	Insecure bool   `toml:"Insecure"`
	Headers  string `toml:"Headers"`
	Traces   bool   `toml:"Traces"`
	Metrics  bool   `toml:"Metrics"`
}

// Log configures the structured logger.
type Log struct {
	Level      string `toml:"Level"`
	File       string `toml:"File"`
	MaxSizeMB  int    `toml:"MaxSizeMB"`
	MaxBackups int    `toml:"MaxBackups"`
}
