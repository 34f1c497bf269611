// Package escrow holds the underlying asset on behalf of a single bound ledger.
// Only that ledger may move funds in or out.
package escrow

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	yerrors "yieldsplit/core/errors"
	"yieldsplit/core/events"
	"yieldsplit/core/types"
	"yieldsplit/crypto"
	nativecommon "yieldsplit/native/common"
)

const moduleName = "escrow"

var (
	errNilState   = errors.New("escrow engine: state not configured")
	errNilAssets  = errors.New("escrow engine: asset ledger not configured")
	errZeroLedger = errors.New("escrow engine: ledger address must not be zero")

	// ErrInsufficientEscrow is returned when a release exceeds the running total.
	ErrInsufficientEscrow = fmt.Errorf("%w: release exceeds escrowed total", yerrors.ErrInvalidAmount)
)

type engineState interface {
	EscrowVaultGet(name string) (*Vault, bool, error)
	EscrowVaultPut(*Vault) error
}

type assetLedger interface {
	Transfer(symbol string, from, to [20]byte, amount *big.Int) error
}

// Engine guards one named escrow vault.
type Engine struct {
	name    string
	token   string
	address [20]byte
	state   engineState
	assets  assetLedger
	emitter events.Emitter
	pauses  nativecommon.PauseView
}

// NewEngine creates the engine for the vault called name holding token. The
// vault address is derived from the name.
func NewEngine(name, token string) *Engine {
	trimmed := strings.TrimSpace(name)
	return &Engine{
		name:    trimmed,
		token:   strings.ToUpper(strings.TrimSpace(token)),
		address: crypto.ModuleAddress("escrow/" + trimmed).Raw(),
		emitter: events.NoopEmitter{},
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetAssets(assets assetLedger) { e.assets = assets }

func (e *Engine) SetPauses(p nativecommon.PauseView) { e.pauses = p }

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Name returns the vault name.
func (e *Engine) Name() string { return e.name }

// Address returns the account that custodies escrowed funds.
func (e *Engine) Address() [20]byte { return e.address }

// Token returns the symbol held by the vault.
func (e *Engine) Token() string { return e.token }

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(escrowEvent{evt: evt})
}

func (e *Engine) load() (*Vault, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	vault, ok, err := e.state.EscrowVaultGet(e.name)
	if err != nil {
		return nil, err
	}
	if !ok || vault == nil {
		return &Vault{Name: e.name, Address: e.address, Token: e.token, Total: big.NewInt(0)}, nil
	}
	if vault.Total == nil {
		vault.Total = big.NewInt(0)
	}
	return vault, nil
}

// Vault returns a copy of the persisted vault record.
func (e *Engine) Vault() (*Vault, error) {
	vault, err := e.load()
	if err != nil {
		return nil, err
	}
	return vault.Clone(), nil
}

// Total returns the running escrowed total.
func (e *Engine) Total() (*big.Int, error) {
	vault, err := e.load()
	if err != nil {
		return nil, err
	}
	return new(big.Int).Set(vault.Total), nil
}

// BindAuthorizedLedger records the only caller allowed to move funds. It can
// succeed once; later calls fail with ErrAlreadyConfigured.
func (e *Engine) BindAuthorizedLedger(ledger [20]byte) error {
	if ledger == ([20]byte{}) {
		return errZeroLedger
	}
	vault, err := e.load()
	if err != nil {
		return err
	}
	if vault.Bound {
		return yerrors.ErrAlreadyConfigured
	}
	vault.Ledger = ledger
	vault.Bound = true
	return e.state.EscrowVaultPut(vault)
}

func (e *Engine) authorize(vault *Vault, caller [20]byte) error {
	if !vault.Bound || vault.Ledger != caller {
		return yerrors.ErrUnauthorized
	}
	return nil
}

// DepositIn pulls amount from the from account into the vault and returns the
// new running total.
func (e *Engine) DepositIn(caller [20]byte, amount *big.Int, from [20]byte) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !nativecommon.Positive(amount) {
		return nil, yerrors.ErrInvalidAmount
	}
	vault, err := e.load()
	if err != nil {
		return nil, err
	}
	if err := e.authorize(vault, caller); err != nil {
		return nil, err
	}
	if e.assets == nil {
		return nil, errNilAssets
	}
	if err := e.assets.Transfer(e.token, from, e.address, amount); err != nil {
		return nil, err
	}
	vault.Total = new(big.Int).Add(vault.Total, amount)
	if err := e.state.EscrowVaultPut(vault); err != nil {
		return nil, err
	}
	e.emit(newMovementEvent(EventTypeDepositIn, vault, from, amount))
	return new(big.Int).Set(vault.Total), nil
}

// ReleaseOut pays amount from the vault to the to account and returns the new
// running total.
func (e *Engine) ReleaseOut(caller [20]byte, amount *big.Int, to [20]byte) (*big.Int, error) {
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if !nativecommon.Positive(amount) {
		return nil, yerrors.ErrInvalidAmount
	}
	vault, err := e.load()
	if err != nil {
		return nil, err
	}
	if err := e.authorize(vault, caller); err != nil {
		return nil, err
	}
	if vault.Total.Cmp(amount) < 0 {
		return nil, ErrInsufficientEscrow
	}
	if e.assets == nil {
		return nil, errNilAssets
	}
	if err := e.assets.Transfer(e.token, e.address, to, amount); err != nil {
		return nil, err
	}
	vault.Total = new(big.Int).Sub(vault.Total, amount)
	if err := e.state.EscrowVaultPut(vault); err != nil {
		return nil, err
	}
	e.emit(newMovementEvent(EventTypeReleaseOut, vault, to, amount))
	return new(big.Int).Set(vault.Total), nil
}
