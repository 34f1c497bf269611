package vault

import "math/big"

// Pool is the singleton pool record. YieldIndex is scaled by
// nativecommon.YieldPrecision and never decreases.
type Pool struct {
	Initialized    bool
	MaturityHeight uint64
	YieldIndex     *big.Int
	PTSupply       *big.Int
	YTSupply       *big.Int
	YieldSynced    *big.Int
	YieldPaid      *big.Int
}

// Clone returns a deep copy.
func (p *Pool) Clone() *Pool {
	if p == nil {
		return nil
	}
	clone := *p
	clone.YieldIndex = cloneBig(p.YieldIndex)
	clone.PTSupply = cloneBig(p.PTSupply)
	clone.YTSupply = cloneBig(p.YTSupply)
	clone.YieldSynced = cloneBig(p.YieldSynced)
	clone.YieldPaid = cloneBig(p.YieldPaid)
	return &clone
}

// Holder is the per-address accrual checkpoint.
type Holder struct {
	Address      [20]byte
	PendingYield *big.Int
	RewardDebt   *big.Int
}

// Clone returns a deep copy.
func (h *Holder) Clone() *Holder {
	if h == nil {
		return nil
	}
	clone := *h
	clone.PendingYield = cloneBig(h.PendingYield)
	clone.RewardDebt = cloneBig(h.RewardDebt)
	return &clone
}

// HolderView combines a holder checkpoint with its claim balances.
type HolderView struct {
	Address      [20]byte
	PTBalance    *big.Int
	YTBalance    *big.Int
	PendingYield *big.Int
	RewardDebt   *big.Int
	Claimable    *big.Int
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
