package bank

import (
	"errors"
	"math/big"
	"strings"
	"testing"

	yerrors "yieldsplit/core/errors"
	"yieldsplit/core/events"
)

type mockState struct {
	balances map[string]*big.Int
	supply   map[string]*big.Int
}

func newMockState() *mockState {
	return &mockState{balances: map[string]*big.Int{}, supply: map[string]*big.Int{}}
}

func balanceKey(addr []byte, symbol string) string { return string(addr) + "/" + symbol }

func (m *mockState) Balance(addr []byte, symbol string) (*big.Int, error) {
	if v, ok := m.balances[balanceKey(addr, symbol)]; ok {
		return new(big.Int).Set(v), nil
	}
	return big.NewInt(0), nil
}

func (m *mockState) SetBalance(addr []byte, symbol string, amount *big.Int) error {
	m.balances[balanceKey(addr, symbol)] = new(big.Int).Set(amount)
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

func newTestLedger() (*Ledger, *events.Recorder) {
	ledger := NewLedger()
	ledger.SetState(newMockState())
	rec := &events.Recorder{}
	ledger.SetEmitter(rec)
	return ledger, rec
}

func mustBalance(t *testing.T, l *Ledger, symbol string, addr [20]byte) int64 {
	t.Helper()
	bal, err := l.Balance(symbol, addr)
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	return bal.Int64()
}

func TestMintTransferBurn(t *testing.T) {
	ledger, rec := newTestLedger()
	alice := [20]byte{1}
	bob := [20]byte{2}

	if err := ledger.Mint("stk", alice, big.NewInt(100)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	if err := ledger.Transfer("STK", alice, bob, big.NewInt(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if err := ledger.Burn("STK", bob, big.NewInt(15)); err != nil {
		t.Fatalf("burn: %v", err)
	}
	if got := mustBalance(t, ledger, "STK", alice); got != 60 {
		t.Fatalf("alice balance = %d", got)
	}
	if got := mustBalance(t, ledger, " stk ", bob); got != 25 {
		t.Fatalf("bob balance = %d", got)
	}
	supply, err := ledger.Supply("STK")
	if err != nil || supply.Int64() != 85 {
		t.Fatalf("supply = %v, %v", supply, err)
	}
	if n := len(rec.OfType(events.TypeTokenSupply)); n != 2 {
		t.Fatalf("expected 2 supply events, got %d", n)
	}
	transfers := rec.OfType(events.TypeTransfer)
	if len(transfers) != 1 || transfers[0].Attributes["amount"] != "40" {
		t.Fatalf("unexpected transfer events: %+v", transfers)
	}
	if !strings.HasPrefix(transfers[0].Attributes["from"], "ys1") {
		t.Fatalf("unexpected address rendering %q", transfers[0].Attributes["from"])
	}
}

func TestRejectsZeroAmounts(t *testing.T) {
	ledger, rec := newTestLedger()
	alice := [20]byte{1}
	bob := [20]byte{2}
	for name, fn := range map[string]func() error{
		"transfer": func() error { return ledger.Transfer("STK", alice, bob, big.NewInt(0)) },
		"mint":     func() error { return ledger.Mint("STK", alice, nil) },
		"burn":     func() error { return ledger.Burn("STK", alice, big.NewInt(0)) },
	} {
		if err := fn(); !errors.Is(err, yerrors.ErrInvalidAmount) {
			t.Fatalf("%s: expected ErrInvalidAmount, got %v", name, err)
		}
	}
	if len(rec.Events()) != 0 {
		t.Fatalf("rejected calls must not emit")
	}
}

func TestInsufficientBalance(t *testing.T) {
	ledger, _ := newTestLedger()
	alice := [20]byte{1}
	bob := [20]byte{2}
	if err := ledger.Mint("STK", alice, big.NewInt(10)); err != nil {
		t.Fatalf("mint: %v", err)
	}
	err := ledger.Transfer("STK", alice, bob, big.NewInt(11))
	if !errors.Is(err, ErrInsufficientBalance) || !errors.Is(err, yerrors.ErrInvalidAmount) {
		t.Fatalf("expected insufficient balance, got %v", err)
	}
	if err := ledger.Burn("STK", bob, big.NewInt(1)); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected insufficient balance on burn, got %v", err)
	}
	if got := mustBalance(t, ledger, "STK", alice); got != 10 {
		t.Fatalf("failed transfer changed balance to %d", got)
	}
}

func TestSymbolRequired(t *testing.T) {
	ledger, _ := newTestLedger()
	if err := ledger.Mint("  ", [20]byte{1}, big.NewInt(1)); err == nil {
		t.Fatalf("expected empty symbol rejection")
	}
}
