package core

import (
	"math/big"

	"yieldsplit/native/vault"
)

// VaultInitialize opens the pool with its maturity height. Owner only.
func (n *Node) VaultInitialize(caller [20]byte, maturity uint64) error {
	return n.execute(ModuleVault, "initialize", caller, func(set *engineSet) error {
		return set.vault.Initialize(caller, maturity)
	})
}

// VaultDeposit locks amount and returns the caller's new YT balance.
func (n *Node) VaultDeposit(caller [20]byte, amount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.execute(ModuleVault, "deposit", caller, func(set *engineSet) error {
		var err error
		out, err = set.vault.Deposit(caller, amount)
		return err
	})
	return out, err
}

// VaultSyncYield distributes amount over YT holders and returns the new index.
func (n *Node) VaultSyncYield(caller [20]byte, amount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.execute(ModuleVault, "sync_yield", caller, func(set *engineSet) error {
		var err error
		out, err = set.vault.SyncYield(caller, amount)
		return err
	})
	return out, err
}

// VaultClaimYield pays the caller's accrued reward.
func (n *Node) VaultClaimYield(caller [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.execute(ModuleVault, "claim_yield", caller, func(set *engineSet) error {
		var err error
		out, err = set.vault.ClaimYield(caller)
		return err
	})
	return out, err
}

// VaultRedeem burns PT after maturity for principal.
func (n *Node) VaultRedeem(caller [20]byte, amount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.execute(ModuleVault, "redeem", caller, func(set *engineSet) error {
		var err error
		out, err = set.vault.RedeemPrincipal(caller, amount)
		return err
	})
	return out, err
}

// VaultCombine burns PT and YT before maturity for principal plus pending
// reward.
func (n *Node) VaultCombine(caller [20]byte, amount *big.Int) (*big.Int, error) {
	var out *big.Int
	err := n.execute(ModuleVault, "combine", caller, func(set *engineSet) error {
		var err error
		out, err = set.vault.Combine(caller, amount)
		return err
	})
	return out, err
}

// VaultTransferClaim moves PT or YT to another holder.
func (n *Node) VaultTransferClaim(caller [20]byte, claim string, to [20]byte, amount *big.Int) error {
	return n.execute(ModuleVault, "transfer_"+claim, caller, func(set *engineSet) error {
		switch claim {
		case vault.ClaimPrincipal:
			return set.vault.TransferPrincipalClaim(caller, to, amount)
		case vault.ClaimYield:
			return set.vault.TransferYieldClaim(caller, to, amount)
		default:
			return errClaimKind
		}
	})
}

// VaultPool returns the pool record.
func (n *Node) VaultPool() (*vault.Pool, error) {
	var out *vault.Pool
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.vault.Pool()
		return err
	})
	return out, err
}

// VaultHolder returns the claim balances and checkpoint of addr.
func (n *Node) VaultHolder(addr [20]byte) (*vault.HolderView, error) {
	var out *vault.HolderView
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.vault.Holder(addr)
		return err
	})
	return out, err
}

// VaultPreviewClaimable returns exactly what VaultClaimYield would pay addr.
func (n *Node) VaultPreviewClaimable(addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.vault.PreviewClaimable(addr)
		return err
	})
	return out, err
}

// VaultAudit reconciles the pool against its escrow.
func (n *Node) VaultAudit() error {
	return n.query(func(set *engineSet) error {
		return set.vault.Audit()
	})
}
