package state

import (
	"errors"

	"yieldsplit/native/bonds"
	nativecommon "yieldsplit/native/common"
	"yieldsplit/native/escrow"
	"yieldsplit/native/vault"
)

var errNilRecord = errors.New("state: nil record")

// --- authority & pauses ---

func (m *Manager) AuthorityGet(module string) (*nativecommon.Authority, bool, error) {
	auth := new(nativecommon.Authority)
	ok, err := m.KVGet(AuthorityKey(module), auth)
	if err != nil || !ok {
		return nil, false, err
	}
	return auth, true, nil
}

func (m *Manager) AuthorityPut(module string, auth *nativecommon.Authority) error {
	if auth == nil {
		return errNilRecord
	}
	return m.KVPut(AuthorityKey(module), auth)
}

// IsPaused implements nativecommon.PauseView. Read failures report unpaused.
func (m *Manager) IsPaused(module string) bool {
	var paused bool
	ok, err := m.KVGet(PauseKey(module), &paused)
	if err != nil || !ok {
		return false
	}
	return paused
}

// SetPaused flips the pause switch of module.
func (m *Manager) SetPaused(module string, paused bool) error {
	if !paused {
		return m.KVDelete(PauseKey(module))
	}
	return m.KVPut(PauseKey(module), true)
}

// --- escrow ---

func (m *Manager) EscrowVaultGet(name string) (*escrow.Vault, bool, error) {
	record := new(escrow.Vault)
	ok, err := m.KVGet(EscrowVaultKey(name), record)
	if err != nil || !ok {
		return nil, false, err
	}
	return record, true, nil
}

func (m *Manager) EscrowVaultPut(record *escrow.Vault) error {
	if record == nil {
		return errNilRecord
	}
	return m.KVPut(EscrowVaultKey(record.Name), record)
}

// --- bonds ---

func (m *Manager) BondsPositionGet(id uint64) (*bonds.Position, bool, error) {
	pos := new(bonds.Position)
	ok, err := m.KVGet(BondsPositionKey(id), pos)
	if err != nil || !ok {
		return nil, false, err
	}
	return pos, true, nil
}

func (m *Manager) BondsPositionPut(pos *bonds.Position) error {
	if pos == nil {
		return errNilRecord
	}
	return m.KVPut(BondsPositionKey(pos.ID), pos)
}

func (m *Manager) BondsMetaGet() (*bonds.Meta, bool, error) {
	meta := new(bonds.Meta)
	ok, err := m.KVGet(BondsMetaKey(), meta)
	if err != nil || !ok {
		return nil, false, err
	}
	return meta, true, nil
}

func (m *Manager) BondsMetaPut(meta *bonds.Meta) error {
	if meta == nil {
		return errNilRecord
	}
	return m.KVPut(BondsMetaKey(), meta)
}

// --- vault ---

func (m *Manager) VaultPoolGet() (*vault.Pool, bool, error) {
	pool := new(vault.Pool)
	ok, err := m.KVGet(VaultPoolKey(), pool)
	if err != nil || !ok {
		return nil, false, err
	}
	return pool, true, nil
}

func (m *Manager) VaultPoolPut(pool *vault.Pool) error {
	if pool == nil {
		return errNilRecord
	}
	return m.KVPut(VaultPoolKey(), pool)
}

func (m *Manager) VaultHolderGet(addr [20]byte) (*vault.Holder, bool, error) {
	holder := new(vault.Holder)
	ok, err := m.KVGet(VaultHolderKey(addr), holder)
	if err != nil || !ok {
		return nil, false, err
	}
	return holder, true, nil
}

func (m *Manager) VaultHolderPut(holder *vault.Holder) error {
	if holder == nil {
		return errNilRecord
	}
	return m.KVPut(VaultHolderKey(holder.Address), holder)
}

// --- genesis ---

// GenesisApplied reports whether configured allocations were already credited.
func (m *Manager) GenesisApplied() (bool, error) {
	return m.KVGet(GenesisKey(), nil)
}

// MarkGenesisApplied records that allocations were credited.
func (m *Manager) MarkGenesisApplied() error {
	return m.KVPut(GenesisKey(), true)
}
