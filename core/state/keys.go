package state

import (
	"strconv"
	"strings"
)

// Logical keys. Every key is keccak256-hashed before it reaches the database.

func normalizeSymbol(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}

// BalanceKey addresses a holder balance of one token.
func BalanceKey(addr []byte, symbol string) []byte {
	key := []byte("bank/balance/" + normalizeSymbol(symbol) + "/")
	return append(key, addr...)
}

// SupplyKey addresses the outstanding supply of one token.
func SupplyKey(symbol string) []byte {
	return []byte("bank/supply/" + normalizeSymbol(symbol))
}

// AuthorityKey addresses the authorization record of a module.
func AuthorityKey(module string) []byte {
	return []byte("auth/" + strings.TrimSpace(module))
}

// PauseKey addresses the operator pause switch of a module.
func PauseKey(module string) []byte {
	return []byte("pause/" + strings.TrimSpace(module))
}

// EscrowVaultKey addresses an escrow vault record.
func EscrowVaultKey(name string) []byte {
	return []byte("escrow/vault/" + strings.TrimSpace(name))
}

// BondsPositionKey addresses one position record.
func BondsPositionKey(id uint64) []byte {
	return []byte("bonds/position/" + strconv.FormatUint(id, 10))
}

// BondsMetaKey addresses the position ledger counters.
func BondsMetaKey() []byte { return []byte("bonds/meta") }

// VaultPoolKey addresses the pool singleton.
func VaultPoolKey() []byte { return []byte("vault/pool") }

// VaultHolderKey addresses a pool holder checkpoint.
func VaultHolderKey(addr [20]byte) []byte {
	return append([]byte("vault/holder/"), addr[:]...)
}

// GenesisKey marks that configured allocations were applied.
func GenesisKey() []byte { return []byte("genesis/applied") }
