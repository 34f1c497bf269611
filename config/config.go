package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"yieldsplit/crypto"
	"yieldsplit/native/bonds"
)

// PassphraseEnv names the variable holding the operator keystore passphrase.
const PassphraseEnv = "YIELD_KEYSTORE_PASSPHRASE"

// keystoreParams is the scrypt cost used when Load generates a fresh operator key.
var keystoreParams = crypto.StandardScrypt

type Config struct {
	DataDir          string            `toml:"DataDir"`
	ListenAddress    string            `toml:"ListenAddress"`
	MetricsAddress   string            `toml:"MetricsAddress"`
	Environment      string            `toml:"Environment"`
	Owner            string            `toml:"Owner"`
	OperatorKeystore string            `toml:"OperatorKeystore"`
	Asset            string            `toml:"Asset"`
	MaxTerm          uint64            `toml:"MaxTerm"`
	BlockInterval    Duration          `toml:"BlockInterval"`
	GenesisTime      time.Time         `toml:"GenesisTime"`
	Auth             Auth              `toml:"auth"`
	RateLimit        RateLimit         `toml:"ratelimit"`
	EventLog         EventLog          `toml:"eventlog"`
	Relayer          Relayer           `toml:"relayer"`
	Telemetry        Telemetry         `toml:"telemetry"`
	Log              Log               `toml:"log"`
	Allocations      map[string]string `toml:"allocations"`
}

// Defaults returns the configuration used for any field the file leaves unset.
func Defaults() Config {
	return Config{
		DataDir:        "./yield-data",
		ListenAddress:  ":8080",
		MetricsAddress: ":9100",
		Environment:    "local",
		Asset:          "STK",
		MaxTerm:        bonds.DefaultMaxTerm,
		BlockInterval:  Duration{6 * time.Second},
		Auth: Auth{
			Issuer:   "yieldd",
			Audience: "yieldsplit",
			TokenTTL: Duration{time.Hour},
		},
		RateLimit: RateLimit{RequestsPerSecond: 20, Burst: 40},
		EventLog:  EventLog{Driver: "sqlite"},
		Log:       Log{Level: "info", MaxSizeMB: 100, MaxBackups: 5},
	}
}

// Load reads the TOML file at path over Defaults, loads a .env file if one is
// present and applies YIELD_* environment overrides. A missing file is created
// together with a fresh operator keystore. The result is not validated.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return createDefault(path)
	}

	cfg := Defaults()
	meta, err := toml.DecodeFile(path, &cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s has unknown key %q", path, undecoded[0].String())
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

// EventLogDSN returns the configured DSN, defaulting sqlite to a file under
// DataDir.
func (c *Config) EventLogDSN() string {
	if dsn := strings.TrimSpace(c.EventLog.DSN); dsn != "" {
		return dsn
	}
	if strings.EqualFold(c.EventLog.Driver, "sqlite") {
		return filepath.Join(c.DataDir, "events.db")
	}
	return ""
}

// StatePath is the LevelDB directory.
func (c *Config) StatePath() string {
	return filepath.Join(c.DataDir, "state")
}

// createDefault writes a default configuration whose owner is a newly
// generated operator key.
func createDefault(path string) (*Config, error) {
	key, err := crypto.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	keystorePath := defaultKeystorePath(path)
	if err := crypto.SaveToKeystore(keystorePath, key, os.Getenv(PassphraseEnv), keystoreParams); err != nil {
		return nil, err
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}

	cfg := Defaults()
	cfg.Owner = key.PubKey().Address().String()
	cfg.OperatorKeystore = keystorePath
	cfg.Auth.Secret = hex.EncodeToString(secret)
	cfg.GenesisTime = time.Now().UTC().Truncate(time.Second)

	if err := persist(path, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	return &cfg, nil
}

func persist(path string, cfg *Config) error {
	dir := filepath.Dir(path)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC|os.O_CREATE, 0o600)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

func defaultKeystorePath(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "operator.keystore")
}
