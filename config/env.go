package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// applyEnvOverrides overwrites fields whose YIELD_* variable is set and
// non-empty, so secrets can be injected at deploy time.
func applyEnvOverrides(cfg *Config) {
	setStr(&cfg.DataDir, "YIELD_DATA_DIR")
	setStr(&cfg.ListenAddress, "YIELD_LISTEN_ADDRESS")
	setStr(&cfg.MetricsAddress, "YIELD_METRICS_ADDRESS")
	setStr(&cfg.Environment, "YIELD_ENV")
	setStr(&cfg.Owner, "YIELD_OWNER")
	setStr(&cfg.OperatorKeystore, "YIELD_OPERATOR_KEYSTORE")
	setStr(&cfg.Asset, "YIELD_ASSET")
	setUint64(&cfg.MaxTerm, "YIELD_MAX_TERM")
	setDuration(&cfg.BlockInterval, "YIELD_BLOCK_INTERVAL")
	setTime(&cfg.GenesisTime, "YIELD_GENESIS_TIME")

	setStr(&cfg.Auth.Secret, "YIELD_AUTH_SECRET")
	setStr(&cfg.Auth.Issuer, "YIELD_AUTH_ISSUER")
	setStr(&cfg.Auth.Audience, "YIELD_AUTH_AUDIENCE")

	setFloat64(&cfg.RateLimit.RequestsPerSecond, "YIELD_RATELIMIT_RPS")
	setInt(&cfg.RateLimit.Burst, "YIELD_RATELIMIT_BURST")

	setStr(&cfg.EventLog.Driver, "YIELD_EVENTLOG_DRIVER")
	setStr(&cfg.EventLog.DSN, "YIELD_EVENTLOG_DSN")

	setStr(&cfg.Relayer.ConfigPath, "YIELD_RELAYER_CONFIG")

	setStr(&cfg.Telemetry.Endpoint, "YIELD_OTEL_ENDPOINT")
	setBool(&cfg.Telemetry.Insecure, "YIELD_OTEL_INSECURE")
	setStr(&cfg.Telemetry.Headers, "YIELD_OTEL_HEADERS")

	setStr(&cfg.Log.Level, "YIELD_LOG_LEVEL")
	setStr(&cfg.Log.File, "YIELD_LOG_FILE")
}

func setStr(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setTime(dst *time.Time, key string) {
	if v := os.Getenv(key); v != "" {
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			*dst = t
		}
	}
}
