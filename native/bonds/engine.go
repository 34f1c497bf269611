// Package bonds implements the per-position ledger: every lock is a standalone
// record whose principal and yield claims can be held by different owners.
package bonds

import (
	"errors"
	"math/big"

	yerrors "yieldsplit/core/errors"
	"yieldsplit/core/events"
	"yieldsplit/core/types"
	"yieldsplit/crypto"
	nativecommon "yieldsplit/native/common"
)

const moduleName = "bonds"

// DefaultMaxTerm caps lock terms at roughly one year of 6 second blocks.
const DefaultMaxTerm uint64 = 5_256_000

var (
	errNilState      = errors.New("bonds engine: state not configured")
	errNilEscrow     = errors.New("bonds engine: escrow not configured")
	errZeroRecipient = errors.New("bonds engine: recipient must not be zero")
	errSelfTransfer  = errors.New("bonds engine: recipient already holds the claim")
	errIDExhausted   = errors.New("bonds engine: position id space exhausted")
)

type engineState interface {
	BondsPositionGet(id uint64) (*Position, bool, error)
	BondsPositionPut(*Position) error
	BondsMetaGet() (*Meta, bool, error)
	BondsMetaPut(*Meta) error
	AuthorityGet(module string) (*nativecommon.Authority, bool, error)
	AuthorityPut(module string, auth *nativecommon.Authority) error
}

type escrowVault interface {
	DepositIn(caller [20]byte, amount *big.Int, from [20]byte) (*big.Int, error)
	ReleaseOut(caller [20]byte, amount *big.Int, to [20]byte) (*big.Int, error)
}

// Engine executes position ledger transitions against injected state.
type Engine struct {
	state   engineState
	escrow  escrowVault
	address [20]byte
	emitter events.Emitter
	pauses  nativecommon.PauseView
	height  uint64
	maxTerm uint64
}

// NewEngine returns an engine identified by the derived bonds module address.
func NewEngine() *Engine {
	return &Engine{
		address: crypto.ModuleAddress(moduleName).Raw(),
		emitter: events.NoopEmitter{},
		maxTerm: DefaultMaxTerm,
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetEscrow(escrow escrowVault) { e.escrow = escrow }

func (e *Engine) SetPauses(p nativecommon.PauseView) {
	if e == nil {
		return
	}
	e.pauses = p
}

func (e *Engine) SetBlockHeight(height uint64) {
	if e == nil {
		return
	}
	e.height = height
}

// SetMaxTerm overrides the longest accepted term. Zero restores the default.
func (e *Engine) SetMaxTerm(term uint64) {
	if term == 0 {
		term = DefaultMaxTerm
	}
	e.maxTerm = term
}

// SetEmitter configures the event emitter used by the engine. Passing nil resets
// the emitter to a no-op implementation.
func (e *Engine) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		e.emitter = events.NoopEmitter{}
		return
	}
	e.emitter = emitter
}

// Address is the ledger identity bound into the escrow vault.
func (e *Engine) Address() [20]byte { return e.address }

// MaxTerm returns the longest accepted term.
func (e *Engine) MaxTerm() uint64 { return e.maxTerm }

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(bondEvent{evt: evt})
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.escrow == nil {
		return errNilEscrow
	}
	return nil
}

// --- authority ---

// Configure installs the owner. It succeeds once; later calls fail with
// ErrAlreadyConfigured.
func (e *Engine) Configure(owner [20]byte) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if owner == ([20]byte{}) {
		return yerrors.ErrUnauthorized
	}
	auth, ok, err := e.state.AuthorityGet(moduleName)
	if err != nil {
		return err
	}
	if !ok || auth == nil {
		auth = nativecommon.NewAuthority(owner)
	}
	if err := auth.ConfigureOnce(); err != nil {
		return err
	}
	return e.state.AuthorityPut(moduleName, auth)
}

func (e *Engine) authority() (*nativecommon.Authority, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	auth, ok, err := e.state.AuthorityGet(moduleName)
	if err != nil {
		return nil, err
	}
	if !ok || auth == nil {
		return nativecommon.NewAuthority([20]byte{}), nil
	}
	return auth, nil
}

// Authority returns a copy of the persisted authority record.
func (e *Engine) Authority() (*nativecommon.Authority, error) {
	auth, err := e.authority()
	if err != nil {
		return nil, err
	}
	return auth.Clone(), nil
}

// AddAuthorized lets addr deposit yield. Owner only.
func (e *Engine) AddAuthorized(caller, addr [20]byte) error {
	auth, err := e.authority()
	if err != nil {
		return err
	}
	if err := auth.RequireOwner(caller); err != nil {
		return err
	}
	if !auth.Allow(addr) {
		return nil
	}
	if err := e.state.AuthorityPut(moduleName, auth); err != nil {
		return err
	}
	e.emit(authorityEvent("allow", addr))
	return nil
}

// RemoveAuthorized revokes addr. Owner only.
func (e *Engine) RemoveAuthorized(caller, addr [20]byte) error {
	auth, err := e.authority()
	if err != nil {
		return err
	}
	if err := auth.RequireOwner(caller); err != nil {
		return err
	}
	if !auth.Revoke(addr) {
		return nil
	}
	if err := e.state.AuthorityPut(moduleName, auth); err != nil {
		return err
	}
	e.emit(authorityEvent("revoke", addr))
	return nil
}

// --- state helpers ---

func (e *Engine) loadMeta() (*Meta, error) {
	meta, ok, err := e.state.BondsMetaGet()
	if err != nil {
		return nil, err
	}
	if !ok || meta == nil {
		meta = &Meta{}
	}
	meta.normalize()
	return meta, nil
}

func (e *Engine) loadPosition(id uint64) (*Position, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pos, ok, err := e.state.BondsPositionGet(id)
	if err != nil {
		return nil, err
	}
	if !ok || pos == nil {
		return nil, yerrors.ErrNotFound
	}
	pos.normalize()
	return pos, nil
}

// requireLive rejects positions in a terminal state, combine taking precedence.
func requireLive(pos *Position) error {
	if pos.Combined {
		return yerrors.ErrAlreadyCombined
	}
	if pos.PrincipalRedeemed {
		return yerrors.ErrAlreadyRedeemed
	}
	return nil
}

// --- transitions ---

// CreatePosition locks amount from caller for term blocks and assigns both
// claims to caller. Returns the new position id.
func (e *Engine) CreatePosition(caller [20]byte, amount *big.Int, term uint64) (uint64, error) {
	if err := e.ready(); err != nil {
		return 0, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return 0, err
	}
	if !nativecommon.Positive(amount) {
		return 0, yerrors.ErrInvalidAmount
	}
	if term == 0 || term > e.maxTerm {
		return 0, yerrors.ErrInvalidTerm
	}
	meta, err := e.loadMeta()
	if err != nil {
		return 0, err
	}
	if meta.NextID == ^uint64(0) {
		return 0, errIDExhausted
	}
	if _, err := e.escrow.DepositIn(e.address, amount, caller); err != nil {
		return 0, err
	}
	pos := &Position{
		ID:                meta.NextID,
		PrincipalAmount:   new(big.Int).Set(amount),
		MaturityHeight:    e.height + term,
		CreatedHeight:     e.height,
		YieldDeposited:    big.NewInt(0),
		YieldWithdrawn:    big.NewInt(0),
		PrincipalOwner:    caller,
		YieldOwner:        caller,
		HasPrincipalClaim: true,
		HasYieldClaim:     true,
	}
	if err := e.state.BondsPositionPut(pos); err != nil {
		return 0, err
	}
	meta.NextID++
	meta.Active++
	meta.TotalLocked.Add(meta.TotalLocked, amount)
	if err := e.state.BondsMetaPut(meta); err != nil {
		return 0, err
	}
	e.emit(createdEvent(pos))
	return pos.ID, nil
}

// DepositYield adds reward to a live, unmatured position. The caller must be
// the owner or in the allow-set and funds the deposit. Returns the new
// cumulative yieldDeposited.
func (e *Engine) DepositYield(caller [20]byte, id uint64, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	auth, err := e.authority()
	if err != nil {
		return nil, err
	}
	if err := auth.RequireAuthorized(caller); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	if err := requireLive(pos); err != nil {
		return nil, err
	}
	if e.height >= pos.MaturityHeight {
		return nil, yerrors.ErrAlreadyMatured
	}
	if !nativecommon.Positive(amount) {
		return nil, yerrors.ErrInvalidAmount
	}
	meta, err := e.loadMeta()
	if err != nil {
		return nil, err
	}
	if _, err := e.escrow.DepositIn(e.address, amount, caller); err != nil {
		return nil, err
	}
	pos.YieldDeposited.Add(pos.YieldDeposited, amount)
	if err := e.state.BondsPositionPut(pos); err != nil {
		return nil, err
	}
	meta.TotalYieldDeposited.Add(meta.TotalYieldDeposited, amount)
	if err := e.state.BondsMetaPut(meta); err != nil {
		return nil, err
	}
	e.emit(yieldDepositedEvent(pos, caller, amount))
	return new(big.Int).Set(pos.YieldDeposited), nil
}

// CollectYield pays the yield-claim holder everything deposited since the last
// collection. Nothing available returns zero without error.
func (e *Engine) CollectYield(caller [20]byte, id uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	if err := requireLive(pos); err != nil {
		return nil, err
	}
	if !pos.HasYieldClaim || pos.YieldOwner != caller {
		return nil, yerrors.ErrNotYieldOwner
	}
	available := pos.Available()
	if available.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	meta, err := e.loadMeta()
	if err != nil {
		return nil, err
	}
	pos.YieldWithdrawn = new(big.Int).Set(pos.YieldDeposited)
	if err := e.state.BondsPositionPut(pos); err != nil {
		return nil, err
	}
	meta.TotalYieldWithdrawn.Add(meta.TotalYieldWithdrawn, available)
	if err := e.state.BondsMetaPut(meta); err != nil {
		return nil, err
	}
	if _, err := e.escrow.ReleaseOut(e.address, available, caller); err != nil {
		return nil, err
	}
	e.emit(payoutEvent(EventTypeYieldCollected, pos, caller, available))
	return available, nil
}

// RedeemPrincipal burns the principal claim after maturity and pays the
// principal to the caller.
func (e *Engine) RedeemPrincipal(caller [20]byte, id uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	if err := requireLive(pos); err != nil {
		return nil, err
	}
	if !pos.HasPrincipalClaim || pos.PrincipalOwner != caller {
		return nil, yerrors.ErrNotPrincipalOwner
	}
	if e.height < pos.MaturityHeight {
		return nil, yerrors.ErrNotMatured
	}
	meta, err := e.loadMeta()
	if err != nil {
		return nil, err
	}
	pos.PrincipalRedeemed = true
	pos.HasPrincipalClaim = false
	pos.PrincipalOwner = [20]byte{}
	if err := e.state.BondsPositionPut(pos); err != nil {
		return nil, err
	}
	meta.TotalLocked.Sub(meta.TotalLocked, pos.PrincipalAmount)
	if meta.Active > 0 {
		meta.Active--
	}
	if err := e.state.BondsMetaPut(meta); err != nil {
		return nil, err
	}
	payout := new(big.Int).Set(pos.PrincipalAmount)
	if _, err := e.escrow.ReleaseOut(e.address, payout, caller); err != nil {
		return nil, err
	}
	e.emit(payoutEvent(EventTypeRedeemed, pos, caller, payout))
	return payout, nil
}

// Combine burns both claims before maturity and pays principal plus any
// uncollected yield in one release. Returns the payout.
func (e *Engine) Combine(caller [20]byte, id uint64) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pos, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	if err := requireLive(pos); err != nil {
		return nil, err
	}
	if e.height >= pos.MaturityHeight {
		return nil, yerrors.ErrAlreadyMatured
	}
	if !pos.HasPrincipalClaim || pos.PrincipalOwner != caller {
		return nil, yerrors.ErrNotPrincipalOwner
	}
	if !pos.HasYieldClaim || pos.YieldOwner != caller {
		return nil, yerrors.ErrNotYieldOwner
	}
	meta, err := e.loadMeta()
	if err != nil {
		return nil, err
	}
	uncollected := pos.Available()
	pos.Combined = true
	pos.YieldWithdrawn = new(big.Int).Set(pos.YieldDeposited)
	pos.HasPrincipalClaim = false
	pos.HasYieldClaim = false
	pos.PrincipalOwner = [20]byte{}
	pos.YieldOwner = [20]byte{}
	if err := e.state.BondsPositionPut(pos); err != nil {
		return nil, err
	}
	meta.TotalLocked.Sub(meta.TotalLocked, pos.PrincipalAmount)
	meta.TotalYieldWithdrawn.Add(meta.TotalYieldWithdrawn, uncollected)
	if meta.Active > 0 {
		meta.Active--
	}
	if err := e.state.BondsMetaPut(meta); err != nil {
		return nil, err
	}
	payout := new(big.Int).Add(pos.PrincipalAmount, uncollected)
	if _, err := e.escrow.ReleaseOut(e.address, payout, caller); err != nil {
		return nil, err
	}
	e.emit(combinedEvent(pos, caller, uncollected))
	return payout, nil
}

// TransferPrincipalClaim reassigns the principal claim.
func (e *Engine) TransferPrincipalClaim(caller [20]byte, id uint64, to [20]byte) error {
	return e.transferClaim(caller, id, to, ClaimPrincipal)
}

// TransferYieldClaim reassigns the yield claim. Uncollected yield moves with
// the claim.
func (e *Engine) TransferYieldClaim(caller [20]byte, id uint64, to [20]byte) error {
	return e.transferClaim(caller, id, to, ClaimYield)
}

func (e *Engine) transferClaim(caller [20]byte, id uint64, to [20]byte, claim string) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	pos, err := e.loadPosition(id)
	if err != nil {
		return err
	}
	if err := requireLive(pos); err != nil {
		return err
	}
	if claim == ClaimPrincipal {
		if !pos.HasPrincipalClaim || pos.PrincipalOwner != caller {
			return yerrors.ErrNotPrincipalOwner
		}
	} else {
		if !pos.HasYieldClaim || pos.YieldOwner != caller {
			return yerrors.ErrNotYieldOwner
		}
	}
	if to == ([20]byte{}) {
		return errZeroRecipient
	}
	if to == caller {
		return errSelfTransfer
	}
	if claim == ClaimPrincipal {
		pos.PrincipalOwner = to
	} else {
		pos.YieldOwner = to
	}
	if err := e.state.BondsPositionPut(pos); err != nil {
		return err
	}
	e.emit(claimTransferredEvent(pos, claim, caller, to))
	return nil
}

// --- queries ---

// Position returns a copy of the record with the given id.
func (e *Engine) Position(id uint64) (*Position, error) {
	pos, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	return pos.Clone(), nil
}

// AvailableYield returns what CollectYield would pay right now.
func (e *Engine) AvailableYield(id uint64) (*big.Int, error) {
	pos, err := e.loadPosition(id)
	if err != nil {
		return nil, err
	}
	if pos.Combined || pos.PrincipalRedeemed {
		return big.NewInt(0), nil
	}
	return pos.Available(), nil
}

// Stats returns the ledger-wide counters.
func (e *Engine) Stats() (*Meta, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	return e.loadMeta()
}
