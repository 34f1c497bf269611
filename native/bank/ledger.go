// Package bank implements the fungible token ledger that backs the underlying
// asset and the pool's principal and yield claims.
package bank

import (
	"errors"
	"fmt"
	"math/big"
	"strings"

	yerrors "yieldsplit/core/errors"
	"yieldsplit/core/events"
)

var (
	// ErrInsufficientBalance is returned when a debit exceeds the holder balance.
	ErrInsufficientBalance = fmt.Errorf("%w: insufficient balance", yerrors.ErrInvalidAmount)

	errNilState     = errors.New("bank: state not configured")
	errEmptySymbol  = errors.New("bank: token symbol required")
	errSelfTransfer = errors.New("bank: sender and recipient must differ")
)

type ledgerState interface {
	Balance(addr []byte, symbol string) (*big.Int, error)
	SetBalance(addr []byte, symbol string, amount *big.Int) error
	TokenSupply(symbol string) (*big.Int, error)
	SetTokenSupply(symbol string, amount *big.Int) error
}

// Ledger moves balances between holders and tracks token supply.
type Ledger struct {
	state   ledgerState
	emitter events.Emitter
}

// NewLedger returns a ledger with a no-op emitter.
func NewLedger() *Ledger {
	return &Ledger{emitter: events.NoopEmitter{}}
}

func (l *Ledger) SetState(state ledgerState) { l.state = state }

// SetEmitter configures the event sink. Nil restores the no-op emitter.
func (l *Ledger) SetEmitter(emitter events.Emitter) {
	if emitter == nil {
		l.emitter = events.NoopEmitter{}
		return
	}
	l.emitter = emitter
}

// NormalizeSymbol upper-cases and trims a token symbol.
func NormalizeSymbol(symbol string) (string, error) {
	normalized := strings.ToUpper(strings.TrimSpace(symbol))
	if normalized == "" {
		return "", errEmptySymbol
	}
	return normalized, nil
}

// Balance returns the holder balance of symbol.
func (l *Ledger) Balance(symbol string, addr [20]byte) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return l.state.Balance(addr[:], normalized)
}

// Supply returns the outstanding supply of symbol.
func (l *Ledger) Supply(symbol string) (*big.Int, error) {
	if l == nil || l.state == nil {
		return nil, errNilState
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return nil, err
	}
	return l.state.TokenSupply(normalized)
}

// Transfer moves amount of symbol from one holder to another.
func (l *Ledger) Transfer(symbol string, from, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return yerrors.ErrInvalidAmount
	}
	if from == to {
		return errSelfTransfer
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	fromBal, err := l.state.Balance(from[:], normalized)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	toBal, err := l.state.Balance(to[:], normalized)
	if err != nil {
		return err
	}
	if err := l.state.SetBalance(from[:], normalized, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	if err := l.state.SetBalance(to[:], normalized, new(big.Int).Add(toBal, amount)); err != nil {
		return err
	}
	l.emitter.Emit(events.Transfer{Asset: normalized, From: from, To: to, Amount: new(big.Int).Set(amount)})
	return nil
}

// Mint credits amount of symbol to a holder and grows the supply.
func (l *Ledger) Mint(symbol string, to [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return yerrors.ErrInvalidAmount
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	balance, err := l.state.Balance(to[:], normalized)
	if err != nil {
		return err
	}
	supply, err := l.state.TokenSupply(normalized)
	if err != nil {
		return err
	}
	total := new(big.Int).Add(supply, amount)
	if err := l.state.SetBalance(to[:], normalized, new(big.Int).Add(balance, amount)); err != nil {
		return err
	}
	if err := l.state.SetTokenSupply(normalized, total); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenSupply{Token: normalized, Total: total, Delta: new(big.Int).Set(amount), Reason: events.SupplyReasonMint})
	return nil
}

// Burn debits amount of symbol from a holder and shrinks the supply.
func (l *Ledger) Burn(symbol string, from [20]byte, amount *big.Int) error {
	if l == nil || l.state == nil {
		return errNilState
	}
	if amount == nil || amount.Sign() <= 0 {
		return yerrors.ErrInvalidAmount
	}
	normalized, err := NormalizeSymbol(symbol)
	if err != nil {
		return err
	}
	balance, err := l.state.Balance(from[:], normalized)
	if err != nil {
		return err
	}
	if balance.Cmp(amount) < 0 {
		return ErrInsufficientBalance
	}
	supply, err := l.state.TokenSupply(normalized)
	if err != nil {
		return err
	}
	if supply.Cmp(amount) < 0 {
		return fmt.Errorf("bank: %s supply below burn amount", normalized)
	}
	total := new(big.Int).Sub(supply, amount)
	if err := l.state.SetBalance(from[:], normalized, new(big.Int).Sub(balance, amount)); err != nil {
		return err
	}
	if err := l.state.SetTokenSupply(normalized, total); err != nil {
		return err
	}
	l.emitter.Emit(events.TokenSupply{Token: normalized, Total: total, Delta: new(big.Int).Neg(amount), Reason: events.SupplyReasonBurn})
	return nil
}
