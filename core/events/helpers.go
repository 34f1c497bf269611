package events

import (
	"math/big"
	"strings"

	"yieldsplit/crypto"
)

func normalizeAsset(asset string) string {
	trimmed := strings.TrimSpace(asset)
	if trimmed == "" {
		return ""
	}
	return strings.ToUpper(trimmed)
}

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

// FormatAddress renders a raw identifier as a holder address string.
func FormatAddress(raw [20]byte) string {
	return crypto.AddressFromRaw(raw).String()
}

// FormatAmount renders an optional amount as a base-10 string.
func FormatAmount(v *big.Int) string { return formatAmount(v) }
