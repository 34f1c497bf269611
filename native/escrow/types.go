package escrow

import "math/big"

// Vault is the persisted record of one escrow vault. Each ledger owns exactly
// one vault; Total tracks every unit the vault currently holds on the ledger's
// behalf.
type Vault struct {
	Name    string
	Address [20]byte
	Token   string
	Ledger  [20]byte
	Bound   bool
	Total   *big.Int
}

// Clone returns a deep copy of the vault.
func (v *Vault) Clone() *Vault {
	if v == nil {
		return nil
	}
	clone := *v
	if v.Total != nil {
		clone.Total = new(big.Int).Set(v.Total)
	} else {
		clone.Total = big.NewInt(0)
	}
	return &clone
}
