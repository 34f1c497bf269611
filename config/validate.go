package config

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	"yieldsplit/crypto"
)

// MaxTermLimit is the longest bond term, in blocks, an operator may allow.
const MaxTermLimit = uint64(52_560_000)

var validDrivers = map[string]bool{"sqlite": true, "postgres": true, "none": true}

// Validate reports every problem found, joined into one error.
func (c *Config) Validate() error {
	var errs []string

	if strings.TrimSpace(c.DataDir) == "" {
		errs = append(errs, "DataDir must not be empty")
	}
	if strings.TrimSpace(c.Owner) == "" {
		errs = append(errs, "Owner must be set")
	} else if _, err := c.OwnerAddress(); err != nil {
		errs = append(errs, fmt.Sprintf("Owner: %v", err))
	}
	if strings.TrimSpace(c.Asset) == "" {
		errs = append(errs, "Asset must not be empty")
	}
	if c.MaxTerm == 0 || c.MaxTerm > MaxTermLimit {
		errs = append(errs, fmt.Sprintf("MaxTerm must be in [1, %d], got %d", MaxTermLimit, c.MaxTerm))
	}
	if c.BlockInterval.Duration <= 0 {
		errs = append(errs, "BlockInterval must be positive")
	}
	if c.GenesisTime.IsZero() {
		errs = append(errs, "GenesisTime must be set")
	}
	if strings.TrimSpace(c.Auth.Secret) == "" {
		errs = append(errs, "auth: Secret must be set")
	}
	if c.RateLimit.RequestsPerSecond < 0 || c.RateLimit.Burst < 0 {
		errs = append(errs, "ratelimit: values must not be negative")
	}
	driver := strings.ToLower(strings.TrimSpace(c.EventLog.Driver))
	if !validDrivers[driver] {
		errs = append(errs, fmt.Sprintf("eventlog: unknown driver %q (valid: sqlite, postgres, none)", c.EventLog.Driver))
	} else if driver == "postgres" && strings.TrimSpace(c.EventLog.DSN) == "" {
		errs = append(errs, "eventlog: DSN required for postgres")
	}
	if _, err := c.ParsedAllocations(); err != nil {
		errs = append(errs, err.Error())
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  - " + strings.Join(errs, "\n  - "))
	}
	return nil
}

// OwnerAddress decodes the bech32 owner.
func (c *Config) OwnerAddress() ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(c.Owner))
	if err != nil {
		return [20]byte{}, err
	}
	if addr.IsZero() {
		return [20]byte{}, errors.New("zero address")
	}
	return addr.Raw(), nil
}

// ParsedAllocations decodes the genesis balances of the underlying asset.
func (c *Config) ParsedAllocations() (map[[20]byte]*big.Int, error) {
	out := make(map[[20]byte]*big.Int, len(c.Allocations))
	for holder, raw := range c.Allocations {
		addr, err := crypto.DecodeAddress(strings.TrimSpace(holder))
		if err != nil {
			return nil, fmt.Errorf("allocations: %s: %w", holder, err)
		}
		amount, err := parseUintAmount(raw)
		if err != nil {
			return nil, fmt.Errorf("allocations: %s: %w", holder, err)
		}
		if existing, ok := out[addr.Raw()]; ok {
			amount.Add(amount, existing)
		}
		out[addr.Raw()] = amount
	}
	return out, nil
}

func parseUintAmount(raw string) (*big.Int, error) {
	trimmed := strings.ReplaceAll(strings.TrimSpace(raw), "_", "")
	if trimmed == "" {
		return nil, errors.New("amount required")
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", raw)
	}
	if amount.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %q", raw)
	}
	return amount, nil
}
