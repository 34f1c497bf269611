package relayer

import (
	"context"
	"errors"
	"math/big"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"yieldsplit/core"
	yerrors "yieldsplit/core/errors"
	"yieldsplit/native/bonds"
	"yieldsplit/native/vault"
	"yieldsplit/storage"
)

var owner = [20]byte{0x0F}

type fakeLedger struct {
	height    uint64
	pool      *vault.Pool
	positions map[uint64]*bonds.Position
	syncErr   error
	synced    []*big.Int
	deposits  map[uint64][]*big.Int
}

func newFakeLedger() *fakeLedger {
	return &fakeLedger{
		height: 10,
		pool: &vault.Pool{
			Initialized:    true,
			MaturityHeight: 1_000,
			YieldIndex:     big.NewInt(0),
			PTSupply:       big.NewInt(1_000_000),
			YTSupply:       big.NewInt(1_000_000),
		},
		positions: map[uint64]*bonds.Position{},
		deposits:  map[uint64][]*big.Int{},
	}
}

func (f *fakeLedger) Owner() [20]byte { return owner }
func (f *fakeLedger) Height() uint64  { return f.height }

func (f *fakeLedger) VaultPool() (*vault.Pool, error) { return f.pool, nil }

func (f *fakeLedger) VaultSyncYield(caller [20]byte, amount *big.Int) (*big.Int, error) {
	if caller != owner {
		return nil, yerrors.ErrUnauthorized
	}
	if f.syncErr != nil {
		return nil, f.syncErr
	}
	f.synced = append(f.synced, new(big.Int).Set(amount))
	return big.NewInt(0), nil
}

func (f *fakeLedger) BondPosition(id uint64) (*bonds.Position, error) {
	pos, ok := f.positions[id]
	if !ok {
		return nil, yerrors.ErrNotFound
	}
	return pos, nil
}

func (f *fakeLedger) BondDepositYield(_ [20]byte, id uint64, amount *big.Int) (*big.Int, error) {
	f.deposits[id] = append(f.deposits[id], new(big.Int).Set(amount))
	return amount, nil
}

type clock struct{ now time.Time }

func (c *clock) Now() time.Time { return c.now }

func testConfig() Config {
	return Config{
		BlocksPerYear: 100,
		MaxQuoteAge:   Duration{time.Minute},
		Vault:         VaultTarget{Enabled: true},
		Submissions:   SubmitLimits{PerSecond: 1_000, Burst: 10},
	}
}

func TestVaultAccrualUsesElapsedBlocks(t *testing.T) {
	ledger := newFakeLedger()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	source := StaticQuote{APRBps: 1_000, Now: c.Now}
	proc := NewProcessor(ledger, source, testConfig(), WithClock(c.Now))
	ctx := context.Background()

	require.NoError(t, proc.RunOnce(ctx))
	require.Empty(t, ledger.synced, "first cycle only records the baseline")

	ledger.height = 20
	require.NoError(t, proc.RunOnce(ctx))
	require.Len(t, ledger.synced, 1)
	// 1_000_000 * 1_000 * 10 / (10_000 * 100)
	require.Equal(t, "10000", ledger.synced[0].String())

	status := proc.Status()
	require.Equal(t, uint64(2), status.Cycles)
	require.Equal(t, uint64(20), status.LastHeight)
	require.Equal(t, uint64(1_000), status.LastAPRBps)
	require.Equal(t, "10000", status.VaultRewarded)
	require.NotEmpty(t, status.LastCycleID)
}

func TestVaultAccrualStopsAtMaturity(t *testing.T) {
	ledger := newFakeLedger()
	ledger.pool.MaturityHeight = 15
	proc := NewProcessor(ledger, StaticQuote{APRBps: 1_000}, testConfig())
	ctx := context.Background()

	require.NoError(t, proc.RunOnce(ctx))
	ledger.height = 50
	require.NoError(t, proc.RunOnce(ctx))
	require.Equal(t, "5000", ledger.synced[0].String())

	ledger.height = 60
	require.NoError(t, proc.RunOnce(ctx))
	require.Len(t, ledger.synced, 1)
}

func TestStaleQuoteIsRejected(t *testing.T) {
	ledger := newFakeLedger()
	c := &clock{now: time.Unix(1_700_000_000, 0)}
	stale := StaticQuote{APRBps: 500, Now: func() time.Time { return c.now.Add(-time.Hour) }}
	proc := NewProcessor(ledger, stale, testConfig(), WithClock(c.Now))

	err := proc.RunOnce(context.Background())
	require.ErrorIs(t, err, yerrors.ErrStaleData)
	status := proc.Status()
	require.Equal(t, uint64(1), status.Failures)
	require.Contains(t, status.LastError, "stale")
	require.Empty(t, ledger.synced)
}

func TestFailedSyncRetriesWholeWindow(t *testing.T) {
	ledger := newFakeLedger()
	proc := NewProcessor(ledger, StaticQuote{APRBps: 1_000}, testConfig())
	ctx := context.Background()
	require.NoError(t, proc.RunOnce(ctx))

	ledger.height = 20
	ledger.syncErr = errors.New("escrow paused")
	require.Error(t, proc.RunOnce(ctx))
	require.Empty(t, ledger.synced)

	ledger.height = 30
	ledger.syncErr = nil
	require.NoError(t, proc.RunOnce(ctx))
	require.Equal(t, "20000", ledger.synced[0].String())
	require.Empty(t, proc.Status().LastError)
}

func TestEmptyPoolOnlyMovesBaseline(t *testing.T) {
	ledger := newFakeLedger()
	ledger.pool.YTSupply = big.NewInt(0)
	proc := NewProcessor(ledger, StaticQuote{APRBps: 1_000}, testConfig())
	ctx := context.Background()
	require.NoError(t, proc.RunOnce(ctx))
	ledger.height = 40
	require.NoError(t, proc.RunOnce(ctx))
	require.Empty(t, ledger.synced)

	ledger.pool.YTSupply = big.NewInt(1_000_000)
	ledger.height = 50
	require.NoError(t, proc.RunOnce(ctx))
	require.Equal(t, "10000", ledger.synced[0].String())
}

func TestBondAccrualPerPosition(t *testing.T) {
	ledger := newFakeLedger()
	ledger.positions[1] = &bonds.Position{ID: 1, PrincipalAmount: big.NewInt(2_000_000), MaturityHeight: 40, HasPrincipalClaim: true, HasYieldClaim: true}
	ledger.positions[2] = &bonds.Position{ID: 2, PrincipalAmount: big.NewInt(2_000_000), MaturityHeight: 40, Combined: true}
	cfg := testConfig()
	cfg.Vault.Enabled = false
	cfg.Bonds.Positions = []uint64{1, 2}
	proc := NewProcessor(ledger, StaticQuote{APRBps: 1_000}, cfg)
	ctx := context.Background()

	require.NoError(t, proc.RunOnce(ctx))
	ledger.height = 15
	require.NoError(t, proc.RunOnce(ctx))
	require.Equal(t, "10000", ledger.deposits[1][0].String())
	require.Empty(t, ledger.deposits[2])

	ledger.height = 40
	require.NoError(t, proc.RunOnce(ctx))
	require.Len(t, ledger.deposits[1], 1, "no deposits once matured")
	require.Equal(t, "10000", proc.Status().BondsRewarded)
}

func TestMissingBondIsReported(t *testing.T) {
	ledger := newFakeLedger()
	cfg := testConfig()
	cfg.Bonds.Positions = []uint64{9}
	proc := NewProcessor(ledger, StaticQuote{APRBps: 1_000}, cfg)
	err := proc.RunOnce(context.Background())
	require.ErrorIs(t, err, yerrors.ErrNotFound)
}

type gatedQuote struct {
	entered chan struct{}
	release chan struct{}
}

func (g gatedQuote) Quote(ctx context.Context) (Quote, error) {
	g.entered <- struct{}{}
	select {
	case <-g.release:
	case <-ctx.Done():
		return Quote{}, ctx.Err()
	}
	return Quote{APRBps: 1_000, ObservedAt: time.Now()}, nil
}

func TestStatusDoesNotWaitForCycle(t *testing.T) {
	source := gatedQuote{entered: make(chan struct{}, 1), release: make(chan struct{})}
	proc := NewProcessor(newFakeLedger(), source, testConfig())

	done := make(chan error, 1)
	go func() { done <- proc.RunOnce(context.Background()) }()
	<-source.entered

	snapshot := make(chan Status, 1)
	go func() { snapshot <- proc.Status() }()
	select {
	case status := <-snapshot:
		require.Equal(t, uint64(0), status.Cycles)
	case <-time.After(2 * time.Second):
		t.Fatal("status blocked behind a running cycle")
	}

	close(source.release)
	require.NoError(t, <-done)
	require.Equal(t, uint64(1), proc.Status().Cycles)
}

func TestHTTPQuote(t *testing.T) {
	observed := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/apr" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"apr_bps":475,"observed_at":"2026-05-01T12:00:00Z"}`))
	}))
	defer srv.Close()

	quote, err := NewHTTPQuote(srv.URL+"/apr", time.Second).Quote(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint64(475), quote.APRBps)
	require.True(t, quote.ObservedAt.Equal(observed))

	_, err = NewHTTPQuote(srv.URL+"/missing", time.Second).Quote(context.Background())
	require.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "relayer.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
interval: 30s
quote:
  source: HTTP
  url: http://oracle.local/apr
vault:
  enabled: true
bonds:
  positions: [1, 2]
`), 0o600))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Equal(t, 30*time.Second, cfg.Interval.Duration)
	require.Equal(t, 5*time.Minute, cfg.MaxQuoteAge.Duration)
	require.Equal(t, SourceHTTP, cfg.Quote.Source)
	require.Equal(t, []uint64{1, 2}, cfg.Bonds.Positions)

	source, err := NewQuoteSource(cfg.Quote)
	require.NoError(t, err)
	require.IsType(t, &HTTPQuote{}, source)
}

func TestLoadConfigRejectsBadInput(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"unknown field": "vault:\n  enabled: true\nbogus: 1\n",
		"no target":     "quote:\n  source: static\n",
		"http no url":   "quote:\n  source: http\nvault:\n  enabled: true\n",
		"bad duration":  "interval: soon\nvault:\n  enabled: true\n",
	}
	for name, body := range cases {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
		_, err := LoadConfig(path)
		require.Error(t, err, name)
	}
}

func TestProcessorDrivesNode(t *testing.T) {
	heights := core.NewFixedHeight(10)
	node, err := core.NewNode(storage.NewMemDB(), core.Options{Asset: "STK", Owner: owner, Heights: heights})
	require.NoError(t, err)
	alice := [20]byte{0x01}
	_, err = node.ApplyAllocations(map[[20]byte]*big.Int{owner: big.NewInt(1_000_000), alice: big.NewInt(1_000_000)})
	require.NoError(t, err)
	require.NoError(t, node.VaultInitialize(owner, 1_000))
	_, err = node.VaultDeposit(alice, big.NewInt(1_000_000))
	require.NoError(t, err)

	proc := NewProcessor(node, StaticQuote{APRBps: 1_000}, testConfig())
	require.NoError(t, proc.RunOnce(context.Background()))
	heights.Advance(10)
	require.NoError(t, proc.RunOnce(context.Background()))

	claimable, err := node.VaultPreviewClaimable(alice)
	require.NoError(t, err)
	require.Equal(t, "10000", claimable.String())
	ownerBalance, err := node.Balance("STK", owner)
	require.NoError(t, err)
	require.Equal(t, "990000", ownerBalance.String())
}
