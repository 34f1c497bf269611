package state

import (
	"errors"
	"math/big"
	"testing"

	"yieldsplit/native/bonds"
	nativecommon "yieldsplit/native/common"
	"yieldsplit/native/escrow"
	"yieldsplit/native/vault"
	"yieldsplit/storage"
)

func TestKeyFormats(t *testing.T) {
	if got := string(BondsPositionKey(42)); got != "bonds/position/42" {
		t.Fatalf("unexpected position key %q", got)
	}
	if got := string(SupplyKey(" stk-pt ")); got != "bank/supply/STK-PT" {
		t.Fatalf("unexpected supply key %q", got)
	}
	addr := [20]byte{0x01, 0x02}
	want := append([]byte("vault/holder/"), addr[:]...)
	if string(VaultHolderKey(addr)) != string(want) {
		t.Fatalf("unexpected holder key %x", VaultHolderKey(addr))
	}
	if string(BalanceKey(addr[:], "stk")) != string(append([]byte("bank/balance/STK/"), addr[:]...)) {
		t.Fatalf("unexpected balance key")
	}
}

func TestAtomicCommitsOnSuccess(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	addr := []byte{0x01}

	err := mgr.Atomic(func() error {
		if err := mgr.SetBalance(addr, "STK", big.NewInt(10)); err != nil {
			return err
		}
		// Reads inside the operation see its own writes.
		bal, err := mgr.Balance(addr, "stk")
		if err != nil {
			return err
		}
		if bal.Int64() != 10 {
			t.Fatalf("read-your-writes failed: %s", bal)
		}
		if len(db.Keys()) != 0 {
			t.Fatalf("writes leaked before commit")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if len(db.Keys()) != 1 {
		t.Fatalf("expected one committed key, got %d", len(db.Keys()))
	}
	var bal *big.Int
	if err := mgr.View(func() error {
		var err error
		bal, err = mgr.Balance(addr, "STK")
		return err
	}); err != nil {
		t.Fatalf("view: %v", err)
	}
	if bal.Int64() != 10 {
		t.Fatalf("balance = %s", bal)
	}
}

func TestAtomicDiscardsOnFailure(t *testing.T) {
	db := storage.NewMemDB()
	mgr := NewManager(db)
	if err := mgr.SetTokenSupply("STK", big.NewInt(5)); err != nil {
		t.Fatalf("seed: %v", err)
	}
	boom := errors.New("boom")
	err := mgr.Atomic(func() error {
		if err := mgr.SetTokenSupply("STK", big.NewInt(9)); err != nil {
			return err
		}
		if err := mgr.SetBalance([]byte{0x02}, "STK", big.NewInt(9)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	supply, err := mgr.TokenSupply("STK")
	if err != nil {
		t.Fatalf("supply: %v", err)
	}
	if supply.Int64() != 5 {
		t.Fatalf("failed operation leaked supply %s", supply)
	}
	if len(db.Keys()) != 1 {
		t.Fatalf("failed operation leaked keys")
	}
}

func TestDeleteInsideAtomic(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())
	if err := mgr.SetPaused("vault", true); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if err := mgr.Atomic(func() error {
		if err := mgr.SetPaused("vault", false); err != nil {
			return err
		}
		if mgr.IsPaused("vault") {
			t.Fatalf("staged delete not visible")
		}
		return nil
	}); err != nil {
		t.Fatalf("atomic: %v", err)
	}
	if mgr.IsPaused("vault") {
		t.Fatalf("resume not committed")
	}
}

func TestRecordStoresRoundTrip(t *testing.T) {
	mgr := NewManager(storage.NewMemDB())

	auth := nativecommon.NewAuthority([20]byte{0x0F})
	auth.Allow([20]byte{0x03})
	if err := mgr.AuthorityPut("bonds", auth); err != nil {
		t.Fatalf("authority put: %v", err)
	}
	gotAuth, ok, err := mgr.AuthorityGet("bonds")
	if err != nil || !ok || !gotAuth.IsAuthorized([20]byte{0x03}) {
		t.Fatalf("authority get = %+v, %v, %v", gotAuth, ok, err)
	}
	if _, ok, _ := mgr.AuthorityGet("vault"); ok {
		t.Fatalf("unexpected authority for vault")
	}

	pos := &bonds.Position{
		ID:                7,
		PrincipalAmount:   big.NewInt(100),
		MaturityHeight:    50,
		YieldDeposited:    big.NewInt(3),
		YieldWithdrawn:    big.NewInt(1),
		PrincipalOwner:    [20]byte{0x01},
		YieldOwner:        [20]byte{0x02},
		HasPrincipalClaim: true,
		HasYieldClaim:     true,
	}
	if err := mgr.BondsPositionPut(pos); err != nil {
		t.Fatalf("position put: %v", err)
	}
	gotPos, ok, err := mgr.BondsPositionGet(7)
	if err != nil || !ok {
		t.Fatalf("position get: %v %v", ok, err)
	}
	if gotPos.YieldOwner != pos.YieldOwner || gotPos.Available().Int64() != 2 {
		t.Fatalf("unexpected position %+v", gotPos)
	}

	pool := &vault.Pool{Initialized: true, MaturityHeight: 9, YieldIndex: big.NewInt(1_000_000_000_000),
		PTSupply: big.NewInt(5), YTSupply: big.NewInt(6), YieldSynced: big.NewInt(7), YieldPaid: big.NewInt(0)}
	if err := mgr.VaultPoolPut(pool); err != nil {
		t.Fatalf("pool put: %v", err)
	}
	gotPool, ok, err := mgr.VaultPoolGet()
	if err != nil || !ok || gotPool.YTSupply.Int64() != 6 || !gotPool.Initialized {
		t.Fatalf("pool get = %+v, %v, %v", gotPool, ok, err)
	}

	vaultRecord := &escrow.Vault{Name: "vault", Token: "STK", Bound: true, Total: big.NewInt(11)}
	if err := mgr.EscrowVaultPut(vaultRecord); err != nil {
		t.Fatalf("vault put: %v", err)
	}
	gotVault, ok, err := mgr.EscrowVaultGet("vault")
	if err != nil || !ok || gotVault.Total.Int64() != 11 || !gotVault.Bound {
		t.Fatalf("vault get = %+v, %v, %v", gotVault, ok, err)
	}

	applied, err := mgr.GenesisApplied()
	if err != nil || applied {
		t.Fatalf("fresh state reports genesis applied")
	}
	if err := mgr.MarkGenesisApplied(); err != nil {
		t.Fatalf("mark genesis: %v", err)
	}
	if applied, _ := mgr.GenesisApplied(); !applied {
		t.Fatalf("genesis flag not persisted")
	}
}

func TestPersistsAcrossLevelDBReopen(t *testing.T) {
	path := t.TempDir()
	db, err := storage.NewLevelDB(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	mgr := NewManager(db)
	if err := mgr.Atomic(func() error {
		return mgr.BondsMetaPut(&bonds.Meta{NextID: 4, Active: 2, TotalLocked: big.NewInt(30),
			TotalYieldDeposited: big.NewInt(0), TotalYieldWithdrawn: big.NewInt(0)})
	}); err != nil {
		t.Fatalf("atomic: %v", err)
	}
	db.Close()

	reopened, err := storage.NewLevelDB(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	meta, ok, err := NewManager(reopened).BondsMetaGet()
	if err != nil || !ok {
		t.Fatalf("meta get: %v %v", ok, err)
	}
	if meta.NextID != 4 || meta.TotalLocked.Int64() != 30 {
		t.Fatalf("unexpected meta %+v", meta)
	}
}
