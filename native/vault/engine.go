// Package vault implements the pooled ledger. Depositors receive fungible
// principal (PT) and yield (YT) claims; rewards are spread over YT holders by
// a global index so a sync costs the same regardless of holder count.
package vault

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

const moduleName = "vault"

var (
	errNilState      = errors.New("vault engine: state not configured")
	errNilEscrow     = errors.New("vault engine: escrow not configured")
	errNilClaims     = errors.New("vault engine: claim ledger not configured")
	errZeroRecipient = errors.New("vault engine: recipient must not be zero")
	errSelfTransfer  = errors.New("vault engine: sender and recipient must differ")

	// ErrAuditMismatch reports that escrowed funds no longer cover outstanding
	// principal plus unclaimed reward.
	ErrAuditMismatch = errors.New("vault engine: escrow does not match pool accounting")
)

type engineState interface {
	VaultPoolGet() (*Pool, bool, error)
	VaultPoolPut(*Pool) error
	VaultHolderGet(addr [20]byte) (*Holder, bool, error)
	VaultHolderPut(*Holder) error
	AuthorityGet(module string) (*nativecommon.Authority, bool, error)
	AuthorityPut(module string, auth *nativecommon.Authority) error
}

type claimLedger interface {
	Balance(symbol string, addr [20]byte) (*big.Int, error)
	Mint(symbol string, to [20]byte, amount *big.Int) error
	Burn(symbol string, from [20]byte, amount *big.Int) error
	Transfer(symbol string, from, to [20]byte, amount *big.Int) error
}

type escrowVault interface {
	DepositIn(caller [20]byte, amount *big.Int, from [20]byte) (*big.Int, error)
	ReleaseOut(caller [20]byte, amount *big.Int, to [20]byte) (*big.Int, error)
	Total() (*big.Int, error)
}

// Engine executes pool transitions against injected state.
type Engine struct {
	state    engineState
	claims   claimLedger
	escrow   escrowVault
	address  [20]byte
	ptSymbol string
	ytSymbol string
	emitter  events.Emitter
	pauses   nativecommon.PauseView
	height   uint64
}

// NewEngine returns a pool over asset. Claims trade as <ASSET>-PT and
// <ASSET>-YT on the claim ledger.
func NewEngine(asset string) *Engine {
	base := strings.ToUpper(strings.TrimSpace(asset))
	return &Engine{
		address:  crypto.ModuleAddress(moduleName).Raw(),
		ptSymbol: base + "-PT",
		ytSymbol: base + "-YT",
		emitter:  events.NoopEmitter{},
	}
}

func (e *Engine) SetState(state engineState) { e.state = state }

func (e *Engine) SetClaims(claims claimLedger) { e.claims = claims }

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

// PTSymbol returns the principal claim token symbol.
func (e *Engine) PTSymbol() string { return e.ptSymbol }

// YTSymbol returns the yield claim token symbol.
func (e *Engine) YTSymbol() string { return e.ytSymbol }

func (e *Engine) emit(evt *types.Event) {
	if e.emitter == nil || evt == nil {
		return
	}
	e.emitter.Emit(vaultEvent{evt: evt})
}

func (e *Engine) ready() error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if e.escrow == nil {
		return errNilEscrow
	}
	if e.claims == nil {
		return errNilClaims
	}
	return nil
}

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

func (e *Engine) requireOwner(caller [20]byte) error {
	auth, ok, err := e.state.AuthorityGet(moduleName)
	if err != nil {
		return err
	}
	if !ok {
		return yerrors.ErrUnauthorized
	}
	return auth.RequireOwner(caller)
}

func (e *Engine) loadPool() (*Pool, error) {
	if e == nil || e.state == nil {
		return nil, errNilState
	}
	pool, ok, err := e.state.VaultPoolGet()
	if err != nil {
		return nil, err
	}
	if !ok || pool == nil {
		pool = &Pool{}
	}
	return pool.Clone(), nil
}

func (e *Engine) loadInitializedPool() (*Pool, error) {
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	if !pool.Initialized {
		return nil, yerrors.ErrNotInitialized
	}
	return pool, nil
}

func (e *Engine) loadHolder(addr [20]byte) (*Holder, error) {
	holder, ok, err := e.state.VaultHolderGet(addr)
	if err != nil {
		return nil, err
	}
	if !ok || holder == nil {
		return &Holder{Address: addr, PendingYield: big.NewInt(0), RewardDebt: big.NewInt(0)}, nil
	}
	holder = holder.Clone()
	holder.Address = addr
	return holder, nil
}

func (e *Engine) balance(symbol string, addr [20]byte) (*big.Int, error) {
	bal, err := e.claims.Balance(symbol, addr)
	if err != nil {
		return nil, err
	}
	if bal == nil {
		return big.NewInt(0), nil
	}
	return bal, nil
}

// Initialize opens the pool with a fixed maturity height. Owner only, once.
func (e *Engine) Initialize(caller [20]byte, maturity uint64) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if err := e.requireOwner(caller); err != nil {
		return err
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if pool.Initialized {
		return yerrors.ErrAlreadyInitialized
	}
	if maturity == 0 || maturity <= e.height {
		return yerrors.ErrInvalidTerm
	}
	pool.Initialized = true
	pool.MaturityHeight = maturity
	if err := e.state.VaultPoolPut(pool); err != nil {
		return err
	}
	e.emit(initializedEvent(pool))
	return nil
}

// Deposit locks amount and mints the same amount of PT and YT to caller. The
// depositor's debt is rebased after minting so earlier syncs pay nothing on the
// new units. Returns the caller's new YT balance.
func (e *Engine) Deposit(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pool, err := e.loadInitializedPool()
	if err != nil {
		return nil, err
	}
	if !nativecommon.Positive(amount) {
		return nil, yerrors.ErrInvalidAmount
	}
	if e.height >= pool.MaturityHeight {
		return nil, yerrors.ErrAlreadyMatured
	}
	holder, err := e.loadHolder(caller)
	if err != nil {
		return nil, err
	}
	ytBal, err := e.balance(e.ytSymbol, caller)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(holder, ytBal, pool.YieldIndex); err != nil {
		return nil, err
	}
	if _, err := e.escrow.DepositIn(e.address, amount, caller); err != nil {
		return nil, err
	}
	if err := e.claims.Mint(e.ptSymbol, caller, amount); err != nil {
		return nil, err
	}
	if err := e.claims.Mint(e.ytSymbol, caller, amount); err != nil {
		return nil, err
	}
	pool.PTSupply = new(big.Int).Add(pool.PTSupply, amount)
	pool.YTSupply = new(big.Int).Add(pool.YTSupply, amount)
	newYT := new(big.Int).Add(ytBal, amount)
	if err := rebase(holder, newYT, pool.YieldIndex); err != nil {
		return nil, err
	}
	if err := e.state.VaultHolderPut(holder); err != nil {
		return nil, err
	}
	if err := e.state.VaultPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(holderEvent(EventTypeDeposited, caller, amount))
	return newYT, nil
}

// SyncYield pulls amount from the owner into escrow and raises the index by
// floor(amount*precision/ytSupply). Returns the new index.
func (e *Engine) SyncYield(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	if err := e.requireOwner(caller); err != nil {
		return nil, err
	}
	pool, err := e.loadInitializedPool()
	if err != nil {
		return nil, err
	}
	if !nativecommon.Positive(amount) {
		return nil, yerrors.ErrInvalidAmount
	}
	if pool.YTSupply.Sign() <= 0 {
		return nil, yerrors.ErrNoYieldSupply
	}
	delta, err := nativecommon.IndexDelta(amount, pool.YTSupply)
	if err != nil {
		return nil, err
	}
	index, err := nativecommon.CheckedAdd(pool.YieldIndex, delta)
	if err != nil {
		return nil, err
	}
	if _, err := e.escrow.DepositIn(e.address, amount, caller); err != nil {
		return nil, err
	}
	pool.YieldIndex = index
	pool.YieldSynced = new(big.Int).Add(pool.YieldSynced, amount)
	if err := e.state.VaultPoolPut(pool); err != nil {
		return nil, err
	}
	e.emit(syncedEvent(pool, amount))
	return new(big.Int).Set(index), nil
}

// ClaimYield pays out everything the caller has accrued. Nothing accrued
// returns zero without error.
func (e *Engine) ClaimYield(caller [20]byte) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pool, err := e.loadInitializedPool()
	if err != nil {
		return nil, err
	}
	holder, err := e.loadHolder(caller)
	if err != nil {
		return nil, err
	}
	ytBal, err := e.balance(e.ytSymbol, caller)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(holder, ytBal, pool.YieldIndex); err != nil {
		return nil, err
	}
	payout := holder.PendingYield
	if payout.Sign() <= 0 {
		return big.NewInt(0), nil
	}
	holder.PendingYield = big.NewInt(0)
	pool.YieldPaid = new(big.Int).Add(pool.YieldPaid, payout)
	if err := e.state.VaultHolderPut(holder); err != nil {
		return nil, err
	}
	if err := e.state.VaultPoolPut(pool); err != nil {
		return nil, err
	}
	if _, err := e.escrow.ReleaseOut(e.address, payout, caller); err != nil {
		return nil, err
	}
	e.emit(holderEvent(EventTypeClaimed, caller, payout))
	return new(big.Int).Set(payout), nil
}

// RedeemPrincipal burns amount of the caller's PT after maturity and pays the
// same amount of principal. YT balances are untouched and keep accruing.
func (e *Engine) RedeemPrincipal(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pool, err := e.loadInitializedPool()
	if err != nil {
		return nil, err
	}
	if !nativecommon.Positive(amount) {
		return nil, yerrors.ErrInvalidAmount
	}
	if e.height < pool.MaturityHeight {
		return nil, yerrors.ErrNotMatured
	}
	ptBal, err := e.balance(e.ptSymbol, caller)
	if err != nil {
		return nil, err
	}
	if ptBal.Cmp(amount) < 0 {
		return nil, yerrors.ErrInvalidAmount
	}
	if err := e.claims.Burn(e.ptSymbol, caller, amount); err != nil {
		return nil, err
	}
	pool.PTSupply = new(big.Int).Sub(pool.PTSupply, amount)
	if err := e.state.VaultPoolPut(pool); err != nil {
		return nil, err
	}
	if _, err := e.escrow.ReleaseOut(e.address, amount, caller); err != nil {
		return nil, err
	}
	e.emit(holderEvent(EventTypeRedeemed, caller, amount))
	return new(big.Int).Set(amount), nil
}

// Combine burns amount of both claims before maturity and pays amount plus all
// of the caller's pending yield. Returns the payout.
func (e *Engine) Combine(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return nil, err
	}
	pool, err := e.loadInitializedPool()
	if err != nil {
		return nil, err
	}
	if !nativecommon.Positive(amount) {
		return nil, yerrors.ErrInvalidAmount
	}
	if e.height >= pool.MaturityHeight {
		return nil, yerrors.ErrAlreadyMatured
	}
	ptBal, err := e.balance(e.ptSymbol, caller)
	if err != nil {
		return nil, err
	}
	ytBal, err := e.balance(e.ytSymbol, caller)
	if err != nil {
		return nil, err
	}
	if ptBal.Cmp(amount) < 0 || ytBal.Cmp(amount) < 0 {
		return nil, yerrors.ErrInvalidAmount
	}
	holder, err := e.loadHolder(caller)
	if err != nil {
		return nil, err
	}
	if err := checkpoint(holder, ytBal, pool.YieldIndex); err != nil {
		return nil, err
	}
	yieldOut := holder.PendingYield
	holder.PendingYield = big.NewInt(0)
	if err := e.claims.Burn(e.ptSymbol, caller, amount); err != nil {
		return nil, err
	}
	if err := e.claims.Burn(e.ytSymbol, caller, amount); err != nil {
		return nil, err
	}
	if err := rebase(holder, new(big.Int).Sub(ytBal, amount), pool.YieldIndex); err != nil {
		return nil, err
	}
	pool.PTSupply = new(big.Int).Sub(pool.PTSupply, amount)
	pool.YTSupply = new(big.Int).Sub(pool.YTSupply, amount)
	pool.YieldPaid = new(big.Int).Add(pool.YieldPaid, yieldOut)
	if err := e.state.VaultHolderPut(holder); err != nil {
		return nil, err
	}
	if err := e.state.VaultPoolPut(pool); err != nil {
		return nil, err
	}
	payout := new(big.Int).Add(amount, yieldOut)
	if _, err := e.escrow.ReleaseOut(e.address, payout, caller); err != nil {
		return nil, err
	}
	e.emit(combinedEvent(caller, amount, yieldOut))
	return payout, nil
}

func (e *Engine) validateTransfer(caller, to [20]byte, amount *big.Int) error {
	if !nativecommon.Positive(amount) {
		return yerrors.ErrInvalidAmount
	}
	if to == ([20]byte{}) {
		return errZeroRecipient
	}
	if to == caller {
		return errSelfTransfer
	}
	return nil
}

// TransferPrincipalClaim moves PT between holders with no yield side effects.
func (e *Engine) TransferPrincipalClaim(caller, to [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	if _, err := e.loadInitializedPool(); err != nil {
		return err
	}
	if err := e.validateTransfer(caller, to, amount); err != nil {
		return err
	}
	if err := e.claims.Transfer(e.ptSymbol, caller, to, amount); err != nil {
		return err
	}
	e.emit(claimTransferredEvent(ClaimPrincipal, caller, to, amount))
	return nil
}

// TransferYieldClaim moves YT between holders. Both parties are checkpointed
// before the move and rebased after it, so the sender keeps what it earned and
// the recipient earns nothing from earlier syncs.
func (e *Engine) TransferYieldClaim(caller, to [20]byte, amount *big.Int) error {
	if err := e.ready(); err != nil {
		return err
	}
	if err := nativecommon.Guard(e.pauses, moduleName); err != nil {
		return err
	}
	pool, err := e.loadInitializedPool()
	if err != nil {
		return err
	}
	if err := e.validateTransfer(caller, to, amount); err != nil {
		return err
	}
	fromBal, err := e.balance(e.ytSymbol, caller)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return yerrors.ErrInvalidAmount
	}
	toBal, err := e.balance(e.ytSymbol, to)
	if err != nil {
		return err
	}
	sender, err := e.loadHolder(caller)
	if err != nil {
		return err
	}
	recipient, err := e.loadHolder(to)
	if err != nil {
		return err
	}
	if err := checkpoint(sender, fromBal, pool.YieldIndex); err != nil {
		return err
	}
	if err := checkpoint(recipient, toBal, pool.YieldIndex); err != nil {
		return err
	}
	if err := e.claims.Transfer(e.ytSymbol, caller, to, amount); err != nil {
		return err
	}
	if err := rebase(sender, new(big.Int).Sub(fromBal, amount), pool.YieldIndex); err != nil {
		return err
	}
	if err := rebase(recipient, new(big.Int).Add(toBal, amount), pool.YieldIndex); err != nil {
		return err
	}
	if err := e.state.VaultHolderPut(sender); err != nil {
		return err
	}
	if err := e.state.VaultHolderPut(recipient); err != nil {
		return err
	}
	e.emit(claimTransferredEvent(ClaimYield, caller, to, amount))
	return nil
}

// --- queries ---

// Pool returns a copy of the pool record. An uninitialized pool is returned
// zero-valued.
func (e *Engine) Pool() (*Pool, error) {
	return e.loadPool()
}

// PreviewClaimable returns exactly what ClaimYield would pay addr right now.
func (e *Engine) PreviewClaimable(addr [20]byte) (*big.Int, error) {
	view, err := e.Holder(addr)
	if err != nil {
		return nil, err
	}
	return view.Claimable, nil
}

// Holder returns the checkpoint and claim balances of addr.
func (e *Engine) Holder(addr [20]byte) (*HolderView, error) {
	if err := e.ready(); err != nil {
		return nil, err
	}
	pool, err := e.loadPool()
	if err != nil {
		return nil, err
	}
	holder, err := e.loadHolder(addr)
	if err != nil {
		return nil, err
	}
	ptBal, err := e.balance(e.ptSymbol, addr)
	if err != nil {
		return nil, err
	}
	ytBal, err := e.balance(e.ytSymbol, addr)
	if err != nil {
		return nil, err
	}
	pending, err := claimable(holder, ytBal, pool.YieldIndex)
	if err != nil {
		return nil, err
	}
	return &HolderView{
		Address:      addr,
		PTBalance:    ptBal,
		YTBalance:    ytBal,
		PendingYield: cloneBig(holder.PendingYield),
		RewardDebt:   cloneBig(holder.RewardDebt),
		Claimable:    pending,
	}, nil
}

// Audit checks that escrow holds exactly the outstanding principal plus the
// synced-but-unpaid reward, and that payouts never exceed syncs.
func (e *Engine) Audit() error {
	if err := e.ready(); err != nil {
		return err
	}
	pool, err := e.loadPool()
	if err != nil {
		return err
	}
	if pool.YieldPaid.Cmp(pool.YieldSynced) > 0 {
		return fmt.Errorf("%w: paid %s exceeds synced %s", ErrAuditMismatch, pool.YieldPaid, pool.YieldSynced)
	}
	total, err := e.escrow.Total()
	if err != nil {
		return err
	}
	expected := new(big.Int).Add(pool.PTSupply, pool.YieldSynced)
	expected.Sub(expected, pool.YieldPaid)
	if total.Cmp(expected) != 0 {
		return fmt.Errorf("%w: escrow %s, expected %s", ErrAuditMismatch, total, expected)
	}
	return nil
}
