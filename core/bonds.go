package core

import (
	"math/big"

	"yieldsplit/native/bonds"
	nativecommon "yieldsplit/native/common"
)

// BondCreate locks amount for term blocks and returns the position id.
func (n *Node) BondCreate(caller [20]byte, amount *big.Int, term uint64) (uint64, error) {
	var id uint64
	err := n.execute(ModuleBonds, "create", caller, func(set *engineSet) error {
		var err error
		id, err = set.bonds.CreatePosition(caller, amount, term)
		return err
	})
	return id, err
}

// BondDepositYield adds reward to position id and returns its cumulative
// deposited yield.
func (n *Node) BondDepositYield(caller [20]byte, id uint64, amount *big.Int) (*big.Int, error) {
	var total *big.Int
	err := n.execute(ModuleBonds, "deposit_yield", caller, func(set *engineSet) error {
		var err error
		total, err = set.bonds.DepositYield(caller, id, amount)
		return err
	})
	return total, err
}

// BondCollectYield pays the yield-claim holder of id.
func (n *Node) BondCollectYield(caller [20]byte, id uint64) (*big.Int, error) {
	var paid *big.Int
	err := n.execute(ModuleBonds, "collect_yield", caller, func(set *engineSet) error {
		var err error
		paid, err = set.bonds.CollectYield(caller, id)
		return err
	})
	return paid, err
}

// BondRedeem pays the principal of a matured position.
func (n *Node) BondRedeem(caller [20]byte, id uint64) (*big.Int, error) {
	var paid *big.Int
	err := n.execute(ModuleBonds, "redeem", caller, func(set *engineSet) error {
		var err error
		paid, err = set.bonds.RedeemPrincipal(caller, id)
		return err
	})
	return paid, err
}

// BondCombine closes a position early for principal plus uncollected yield.
func (n *Node) BondCombine(caller [20]byte, id uint64) (*big.Int, error) {
	var paid *big.Int
	err := n.execute(ModuleBonds, "combine", caller, func(set *engineSet) error {
		var err error
		paid, err = set.bonds.Combine(caller, id)
		return err
	})
	return paid, err
}

// BondTransferClaim hands the principal or yield claim of id to another
// holder.
func (n *Node) BondTransferClaim(caller [20]byte, id uint64, claim string, to [20]byte) error {
	return n.execute(ModuleBonds, "transfer_"+claim, caller, func(set *engineSet) error {
		switch claim {
		case bonds.ClaimPrincipal:
			return set.bonds.TransferPrincipalClaim(caller, id, to)
		case bonds.ClaimYield:
			return set.bonds.TransferYieldClaim(caller, id, to)
		default:
			return errClaimKind
		}
	})
}

// BondAllow lets addr deposit yield. Owner only.
func (n *Node) BondAllow(caller, addr [20]byte) error {
	return n.execute(ModuleBonds, "allow", caller, func(set *engineSet) error {
		return set.bonds.AddAuthorized(caller, addr)
	})
}

// BondRevoke removes addr from the yield depositors. Owner only.
func (n *Node) BondRevoke(caller, addr [20]byte) error {
	return n.execute(ModuleBonds, "revoke", caller, func(set *engineSet) error {
		return set.bonds.RemoveAuthorized(caller, addr)
	})
}

// BondPosition returns position id.
func (n *Node) BondPosition(id uint64) (*bonds.Position, error) {
	var out *bonds.Position
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.bonds.Position(id)
		return err
	})
	return out, err
}

// BondAvailableYield returns what a collect on id would pay now.
func (n *Node) BondAvailableYield(id uint64) (*big.Int, error) {
	var out *big.Int
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.bonds.AvailableYield(id)
		return err
	})
	return out, err
}

// BondStats returns the position ledger counters.
func (n *Node) BondStats() (*bonds.Meta, error) {
	var out *bonds.Meta
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.bonds.Stats()
		return err
	})
	return out, err
}

// BondAuthority returns the owner and allow-set of the position ledger.
func (n *Node) BondAuthority() (*nativecommon.Authority, error) {
	var out *nativecommon.Authority
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.bonds.Authority()
		return err
	})
	return out, err
}
