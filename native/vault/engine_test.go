package vault

import (
	"errors"
	"math/big"
	"math/rand"
	"testing"

	yerrors "yieldsplit/core/errors"
	"yieldsplit/core/events"
	"yieldsplit/native/bank"
	nativecommon "yieldsplit/native/common"
	"yieldsplit/native/escrow"
)

type mockState struct {
	pool     *Pool
	holders  map[[20]byte]*Holder
	auth     map[string]*nativecommon.Authority
	vaults   map[string]*escrow.Vault
	balances map[string]*big.Int
	supply   map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{
		holders:  map[[20]byte]*Holder{},
		auth:     map[string]*nativecommon.Authority{},
		vaults:   map[string]*escrow.Vault{},
		balances: map[string]*big.Int{},
		supply:   map[string]*big.Int{},
	}
}

func (m *mockState) VaultPoolGet() (*Pool, bool, error) {
	if m.pool == nil {
		return nil, false, nil
	}
	return m.pool.Clone(), true, nil
}

func (m *mockState) VaultPoolPut(p *Pool) error {
	m.pool = p.Clone()
	return nil
}

func (m *mockState) VaultHolderGet(addr [20]byte) (*Holder, bool, error) {
	h, ok := m.holders[addr]
	if !ok {
		return nil, false, nil
	}
	return h.Clone(), true, nil
}

func (m *mockState) VaultHolderPut(h *Holder) error {
	m.holders[h.Address] = h.Clone()
	return nil
}

func (m *mockState) AuthorityGet(module string) (*nativecommon.Authority, bool, error) {
	auth, ok := m.auth[module]
	if !ok {
		return nil, false, nil
	}
	return auth.Clone(), true, nil
}

func (m *mockState) AuthorityPut(module string, auth *nativecommon.Authority) error {
	m.auth[module] = auth.Clone()
	return nil
}

func (m *mockState) EscrowVaultGet(name string) (*escrow.Vault, bool, error) {
	v, ok := m.vaults[name]
	if !ok {
		return nil, false, nil
	}
	return v.Clone(), true, nil
}

func (m *mockState) EscrowVaultPut(v *escrow.Vault) error {
	m.vaults[v.Name] = v.Clone()
	return nil
}

func (m *mockState) Balance(addr []byte, symbol string) (*big.Int, error) {
	if v, ok := m.balances[string(addr)+symbol]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetBalance(addr []byte, symbol string, amount *big.Int) error {
	m.balances[string(addr)+symbol] = new(big.Int).Set(amount)
	return nil
}

func (m *mockState) TokenSupply(symbol string) (*big.Int, error) {
	if v, ok := m.supply[symbol]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetTokenSupply(symbol string, amount *big.Int) error {
	m.supply[symbol] = new(big.Int).Set(amount)
	return nil
}

const asset = "STK"

var (
	owner = [20]byte{0x0F}
	alice = [20]byte{0x01}
	bob   = [20]byte{0x02}
	carol = [20]byte{0x03}
)

type fixture struct {
	engine *Engine
	escrow *escrow.Engine
	bank   *bank.Ledger
	rec    *events.Recorder
}

func newFixture(t *testing.T, maturity uint64) *fixture {
	t.Helper()
	state := newMockState()
	ledger := bank.NewLedger()
	ledger.SetState(state)
	for _, addr := range [][20]byte{owner, alice, bob, carol} {
		if err := ledger.Mint(asset, addr, big.NewInt(1_000_000_000)); err != nil {
			t.Fatalf("mint: %v", err)
		}
	}
	vault := escrow.NewEngine(moduleName, asset)
	vault.SetState(state)
	vault.SetAssets(ledger)

	engine := NewEngine(asset)
	engine.SetState(state)
	engine.SetClaims(ledger)
	engine.SetEscrow(vault)
	engine.SetBlockHeight(10)
	rec := &events.Recorder{}
	engine.SetEmitter(rec)
	if err := vault.BindAuthorizedLedger(engine.Address()); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := engine.Configure(owner); err != nil {
		t.Fatalf("configure: %v", err)
	}
	if maturity > 0 {
		if err := engine.Initialize(owner, maturity); err != nil {
			t.Fatalf("initialize: %v", err)
		}
	}
	return &fixture{engine: engine, escrow: vault, bank: ledger, rec: rec}
}

func (f *fixture) deposit(t *testing.T, who [20]byte, amount int64) {
	t.Helper()
	if _, err := f.engine.Deposit(who, big.NewInt(amount)); err != nil {
		t.Fatalf("deposit: %v", err)
	}
}

func (f *fixture) sync(t *testing.T, amount int64) {
	t.Helper()
	if _, err := f.engine.SyncYield(owner, big.NewInt(amount)); err != nil {
		t.Fatalf("sync: %v", err)
	}
}

func (f *fixture) claim(t *testing.T, who [20]byte) int64 {
	t.Helper()
	got, err := f.engine.ClaimYield(who)
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	return got.Int64()
}

func (f *fixture) preview(t *testing.T, who [20]byte) int64 {
	t.Helper()
	got, err := f.engine.PreviewClaimable(who)
	if err != nil {
		t.Fatalf("preview: %v", err)
	}
	return got.Int64()
}

func (f *fixture) audit(t *testing.T) {
	t.Helper()
	if err := f.engine.Audit(); err != nil {
		t.Fatalf("audit: %v", err)
	}
}

func expectErr(t *testing.T, err, want error) {
	t.Helper()
	if !errors.Is(err, want) {
		t.Fatalf("expected %v, got %v", want, err)
	}
}

func TestInitialize(t *testing.T) {
	f := newFixture(t, 0)
	_, err := f.engine.Deposit(alice, big.NewInt(1))
	expectErr(t, err, yerrors.ErrNotInitialized)
	_, err = f.engine.ClaimYield(alice)
	expectErr(t, err, yerrors.ErrNotInitialized)

	expectErr(t, f.engine.Initialize(alice, 100), yerrors.ErrUnauthorized)
	expectErr(t, f.engine.Initialize(owner, 0), yerrors.ErrInvalidTerm)
	expectErr(t, f.engine.Initialize(owner, 10), yerrors.ErrInvalidTerm)
	if err := f.engine.Initialize(owner, 100); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	expectErr(t, f.engine.Initialize(owner, 200), yerrors.ErrAlreadyInitialized)
	pool, err := f.engine.Pool()
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if !pool.Initialized || pool.MaturityHeight != 100 {
		t.Fatalf("unexpected pool %+v", pool)
	}
	if len(f.rec.OfType(EventTypeInitialized)) != 1 {
		t.Fatalf("expected one initialized event")
	}
}

func TestProportionalSplit(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 100_000_000)
	f.deposit(t, bob, 300_000_000)
	f.sync(t, 4_000_000)

	if got := f.preview(t, alice); got != 1_000_000 {
		t.Fatalf("alice preview = %d", got)
	}
	if got := f.claim(t, alice); got != 1_000_000 {
		t.Fatalf("alice claim = %d", got)
	}
	if got := f.claim(t, bob); got != 3_000_000 {
		t.Fatalf("bob claim = %d", got)
	}
	if got := f.claim(t, alice); got != 0 {
		t.Fatalf("second claim = %d", got)
	}
	f.audit(t)
}

func TestNoRetroactiveYieldOnDeposit(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 100_000_000)
	f.sync(t, 5_000_000)
	f.deposit(t, bob, 100_000_000)
	if got := f.preview(t, bob); got != 0 {
		t.Fatalf("late depositor preview = %d", got)
	}
	f.sync(t, 5_000_000)
	if got := f.claim(t, alice); got != 7_500_000 {
		t.Fatalf("alice total = %d", got)
	}
	if got := f.claim(t, bob); got != 2_500_000 {
		t.Fatalf("bob total = %d", got)
	}
	f.audit(t)
}

func TestTopUpDepositKeepsEarnedYield(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 1_000)
	f.sync(t, 500)
	f.deposit(t, alice, 1_000)
	if got := f.preview(t, alice); got != 500 {
		t.Fatalf("earned yield lost on top-up: %d", got)
	}
}

func TestSyncValidation(t *testing.T) {
	f := newFixture(t, 1_000)
	_, err := f.engine.SyncYield(owner, big.NewInt(10))
	expectErr(t, err, yerrors.ErrNoYieldSupply)
	f.deposit(t, alice, 10)
	_, err = f.engine.SyncYield(alice, big.NewInt(10))
	expectErr(t, err, yerrors.ErrUnauthorized)
	_, err = f.engine.SyncYield(owner, big.NewInt(0))
	expectErr(t, err, yerrors.ErrInvalidAmount)
	index, err := f.engine.SyncYield(owner, big.NewInt(10))
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if index.Cmp(nativecommon.PrecisionBig()) != 0 {
		t.Fatalf("index = %s", index)
	}
}

func TestTruncationFavorsProtocol(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 1)
	f.deposit(t, bob, 1)
	f.deposit(t, carol, 1)
	f.sync(t, 10)
	var paid int64
	for _, who := range [][20]byte{alice, bob, carol} {
		paid += f.claim(t, who)
	}
	if paid > 10 {
		t.Fatalf("paid %d exceeds synced 10", paid)
	}
	if paid != 9 {
		t.Fatalf("expected floor shares of 3 each, got %d", paid)
	}
	f.audit(t)
}

func TestYieldClaimTransferCheckpointsBothSides(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 100)
	f.deposit(t, bob, 100)
	f.sync(t, 200)

	if err := f.engine.TransferYieldClaim(alice, bob, big.NewInt(50)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	// Both keep what they earned before the transfer.
	if got := f.preview(t, alice); got != 100 {
		t.Fatalf("alice preview = %d", got)
	}
	if got := f.preview(t, bob); got != 100 {
		t.Fatalf("bob preview = %d", got)
	}
	f.sync(t, 200)
	if got := f.claim(t, alice); got != 150 {
		t.Fatalf("alice claim = %d", got)
	}
	if got := f.claim(t, bob); got != 250 {
		t.Fatalf("bob claim = %d", got)
	}
	f.audit(t)
}

func TestYieldClaimTransferToNewcomer(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 100)
	f.sync(t, 100)
	if err := f.engine.TransferYieldClaim(alice, carol, big.NewInt(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := f.preview(t, carol); got != 0 {
		t.Fatalf("recipient earned retroactively: %d", got)
	}
	if got := f.claim(t, alice); got != 100 {
		t.Fatalf("sender lost earned yield: %d", got)
	}
}

func TestTransferValidation(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 100)
	expectErr(t, f.engine.TransferYieldClaim(alice, bob, big.NewInt(101)), yerrors.ErrInvalidAmount)
	expectErr(t, f.engine.TransferYieldClaim(alice, bob, big.NewInt(0)), yerrors.ErrInvalidAmount)
	expectErr(t, f.engine.TransferPrincipalClaim(alice, bob, big.NewInt(101)), yerrors.ErrInvalidAmount)
	if err := f.engine.TransferPrincipalClaim(alice, [20]byte{}, big.NewInt(1)); err == nil {
		t.Fatalf("expected zero recipient rejection")
	}
	if err := f.engine.TransferYieldClaim(alice, alice, big.NewInt(1)); err == nil {
		t.Fatalf("expected self transfer rejection")
	}
}

func TestPrincipalClaimTransferHasNoYieldEffect(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 100)
	f.sync(t, 100)
	if err := f.engine.TransferPrincipalClaim(alice, bob, big.NewInt(100)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if got := f.preview(t, alice); got != 100 {
		t.Fatalf("alice preview = %d", got)
	}
	if got := f.preview(t, bob); got != 0 {
		t.Fatalf("bob preview = %d", got)
	}
	view, err := f.engine.Holder(bob)
	if err != nil {
		t.Fatalf("holder: %v", err)
	}
	if view.PTBalance.Int64() != 100 || view.YTBalance.Sign() != 0 {
		t.Fatalf("unexpected view %+v", view)
	}
}

func TestCombine(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 1_000)
	before, _ := f.bank.Balance(asset, alice)
	payout, err := f.engine.Combine(alice, big.NewInt(1_000))
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if payout.Int64() != 1_000 {
		t.Fatalf("fresh combine payout = %s", payout)
	}
	after, _ := f.bank.Balance(asset, alice)
	if new(big.Int).Sub(after, before).Int64() != 1_000 {
		t.Fatalf("combine payout not received")
	}
	f.audit(t)
}

func TestCombineAfterPartialClaim(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 1_000)
	f.sync(t, 300)
	if got := f.claim(t, alice); got != 300 {
		t.Fatalf("claim = %d", got)
	}
	f.sync(t, 200)
	payout, err := f.engine.Combine(alice, big.NewInt(400))
	if err != nil {
		t.Fatalf("combine: %v", err)
	}
	if payout.Int64() != 600 {
		t.Fatalf("payout = %s, want 400 principal + 200 uncollected", payout)
	}
	if got := f.preview(t, alice); got != 0 {
		t.Fatalf("pending after combine = %d", got)
	}
	view, _ := f.engine.Holder(alice)
	if view.PTBalance.Int64() != 600 || view.YTBalance.Int64() != 600 {
		t.Fatalf("unexpected balances %+v", view)
	}
	f.sync(t, 600)
	if got := f.claim(t, alice); got != 600 {
		t.Fatalf("post-combine accrual = %d", got)
	}
	f.audit(t)
}

func TestCombineValidation(t *testing.T) {
	f := newFixture(t, 100)
	f.deposit(t, alice, 100)
	if err := f.engine.TransferYieldClaim(alice, bob, big.NewInt(1)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	_, err := f.engine.Combine(alice, big.NewInt(100))
	expectErr(t, err, yerrors.ErrInvalidAmount)
	_, err = f.engine.Combine(alice, big.NewInt(0))
	expectErr(t, err, yerrors.ErrInvalidAmount)
	f.engine.SetBlockHeight(100)
	_, err = f.engine.Combine(alice, big.NewInt(1))
	expectErr(t, err, yerrors.ErrAlreadyMatured)
	_, err = f.engine.Deposit(alice, big.NewInt(1))
	expectErr(t, err, yerrors.ErrAlreadyMatured)
}

func TestRedeemPrincipal(t *testing.T) {
	f := newFixture(t, 100)
	f.deposit(t, alice, 500)
	_, err := f.engine.RedeemPrincipal(alice, big.NewInt(500))
	expectErr(t, err, yerrors.ErrNotMatured)

	f.engine.SetBlockHeight(100)
	_, err = f.engine.RedeemPrincipal(alice, big.NewInt(501))
	expectErr(t, err, yerrors.ErrInvalidAmount)
	_, err = f.engine.RedeemPrincipal(bob, big.NewInt(1))
	expectErr(t, err, yerrors.ErrInvalidAmount)

	got, err := f.engine.RedeemPrincipal(alice, big.NewInt(200))
	if err != nil || got.Int64() != 200 {
		t.Fatalf("redeem = %v, %v", got, err)
	}
	pool, _ := f.engine.Pool()
	if pool.PTSupply.Int64() != 300 || pool.YTSupply.Int64() != 500 {
		t.Fatalf("supplies = %s/%s", pool.PTSupply, pool.YTSupply)
	}
	f.audit(t)
}

func TestOrphanedYieldClaimsKeepAccruing(t *testing.T) {
	f := newFixture(t, 100)
	f.deposit(t, alice, 500)
	f.deposit(t, bob, 500)
	f.engine.SetBlockHeight(100)
	if _, err := f.engine.RedeemPrincipal(alice, big.NewInt(500)); err != nil {
		t.Fatalf("redeem: %v", err)
	}
	f.sync(t, 1_000)
	if got := f.claim(t, alice); got != 500 {
		t.Fatalf("orphaned claim = %d", got)
	}
	if got := f.claim(t, bob); got != 500 {
		t.Fatalf("bob claim = %d", got)
	}
	f.audit(t)
}

func TestPreviewMatchesClaimAcrossHistory(t *testing.T) {
	f := newFixture(t, 1_000)
	holders := [][20]byte{alice, bob, carol}
	amounts := []int64{7_777, 1_234_567, 42}
	for i, who := range holders {
		f.deposit(t, who, amounts[i])
	}
	f.sync(t, 999_999)
	if err := f.engine.TransferYieldClaim(bob, alice, big.NewInt(34_567)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	f.sync(t, 123_457)
	if _, err := f.engine.Combine(carol, big.NewInt(40)); err != nil {
		t.Fatalf("combine: %v", err)
	}
	f.sync(t, 31)

	var paid int64
	for _, who := range holders {
		want := f.preview(t, who)
		got := f.claim(t, who)
		if got != want {
			t.Fatalf("preview %d != claim %d", want, got)
		}
		paid += got
		if again := f.claim(t, who); again != 0 {
			t.Fatalf("second claim = %d", again)
		}
	}
	pool, _ := f.engine.Pool()
	if pool.YieldPaid.Cmp(pool.YieldSynced) > 0 {
		t.Fatalf("paid %s exceeds synced %s", pool.YieldPaid, pool.YieldSynced)
	}
	f.audit(t)
}

func (f *fixture) balance(t *testing.T, symbol string, who [20]byte) int64 {
	t.Helper()
	got, err := f.bank.Balance(symbol, who)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return got.Int64()
}

func (f *fixture) checkSolvent(t *testing.T, step string) {
	t.Helper()
	pool, err := f.engine.Pool()
	if err != nil {
		t.Fatalf("pool: %v", err)
	}
	if pool.YieldPaid.Cmp(pool.YieldSynced) > 0 {
		t.Fatalf("%s: paid %s exceeds synced %s", step, pool.YieldPaid, pool.YieldSynced)
	}
	if err := f.engine.Audit(); err != nil {
		t.Fatalf("%s: audit: %v", step, err)
	}
}

func TestRebaseAtFractionalIndexKeepsRemainder(t *testing.T) {
	f := newFixture(t, 1_000)
	f.deposit(t, alice, 1)
	f.sync(t, 1)
	f.deposit(t, alice, 3)
	f.sync(t, 2)
	f.deposit(t, carol, 1)
	f.sync(t, 4)
	f.sync(t, 4)
	f.deposit(t, bob, 6)
	f.deposit(t, carol, 7)
	f.sync(t, 5)

	var paid int64
	for _, who := range [][20]byte{alice, bob, carol} {
		want := f.preview(t, who)
		got := f.claim(t, who)
		if got != want {
			t.Fatalf("preview %d != claim %d", want, got)
		}
		paid += got
	}
	if paid > 16 {
		t.Fatalf("paid %d exceeds synced 16", paid)
	}
	f.checkSolvent(t, "claims")

	// Every principal claim can still be redeemed in full.
	f.engine.SetBlockHeight(1_000)
	for _, who := range [][20]byte{alice, bob, carol} {
		pt := f.balance(t, f.engine.PTSymbol(), who)
		if _, err := f.engine.RedeemPrincipal(who, big.NewInt(pt)); err != nil {
			t.Fatalf("redeem %d: %v", pt, err)
		}
	}
	f.audit(t)
}

func TestRandomHistoryNeverOverpays(t *testing.T) {
	holders := [][20]byte{alice, bob, carol}
	for seed := int64(1); seed <= 20; seed++ {
		rng := rand.New(rand.NewSource(seed))
		f := newFixture(t, 1_000)
		for step := 0; step < 60; step++ {
			who := holders[rng.Intn(len(holders))]
			other := holders[rng.Intn(len(holders))]
			pool, err := f.engine.Pool()
			if err != nil {
				t.Fatalf("pool: %v", err)
			}
			var label string
			switch op := rng.Intn(5); {
			case op == 0 || pool.YTSupply.Sign() == 0:
				label = "deposit"
				f.deposit(t, who, 1+rng.Int63n(9))
			case op == 1:
				label = "sync"
				f.sync(t, 1+rng.Int63n(9))
			case op == 2:
				label = "claim"
				f.claim(t, who)
			case op == 3:
				label = "transfer"
				yt := f.balance(t, f.engine.YTSymbol(), who)
				if yt == 0 || other == who {
					continue
				}
				if err := f.engine.TransferYieldClaim(who, other, big.NewInt(1+rng.Int63n(yt))); err != nil {
					t.Fatalf("seed %d step %d transfer: %v", seed, step, err)
				}
			default:
				label = "combine"
				pt := f.balance(t, f.engine.PTSymbol(), who)
				yt := f.balance(t, f.engine.YTSymbol(), who)
				limit := pt
				if yt < limit {
					limit = yt
				}
				if limit == 0 {
					continue
				}
				if _, err := f.engine.Combine(who, big.NewInt(1+rng.Int63n(limit))); err != nil {
					t.Fatalf("seed %d step %d combine: %v", seed, step, err)
				}
			}
			f.checkSolvent(t, label)
		}
		for _, who := range holders {
			f.claim(t, who)
		}
		f.checkSolvent(t, "final claims")
	}
}

type pauseVault struct{}

func (pauseVault) IsPaused(module string) bool { return module == moduleName }

func TestPausedPool(t *testing.T) {
	f := newFixture(t, 100)
	f.engine.SetPauses(pauseVault{})
	_, err := f.engine.Deposit(alice, big.NewInt(1))
	expectErr(t, err, yerrors.ErrModulePaused)
}
