package vault

import (
	"math/big"

	nativecommon "yieldsplit/native/common"
)

// checkpoint settles everything ytBalance earned since the holder's last
// checkpoint into PendingYield and rebases RewardDebt on the current index.
// It must run before any change to the holder's yield-claim balance. A debt
// above the floored accrual is left in place until the index catches up.
func checkpoint(h *Holder, ytBalance, index *big.Int) error {
	accrued, err := nativecommon.Accrued(ytBalance, index)
	if err != nil {
		return err
	}
	delta := new(big.Int).Sub(accrued, h.RewardDebt)
	if delta.Sign() <= 0 {
		return nil
	}
	h.PendingYield = new(big.Int).Add(h.PendingYield, delta)
	h.RewardDebt = accrued
	return nil
}

// rebase resets RewardDebt against a new yield-claim balance so the holder
// earns nothing retroactively on the change. The baseline rounds up so the
// fractional remainder stays with the pool.
func rebase(h *Holder, ytBalance, index *big.Int) error {
	accrued, err := nativecommon.AccruedCeil(ytBalance, index)
	if err != nil {
		return err
	}
	h.RewardDebt = accrued
	return nil
}

// claimable previews PendingYield after a checkpoint without mutating h.
func claimable(h *Holder, ytBalance, index *big.Int) (*big.Int, error) {
	preview := h.Clone()
	if err := checkpoint(preview, ytBalance, index); err != nil {
		return nil, err
	}
	return preview.PendingYield, nil
}
