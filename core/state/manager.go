package state

import (
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rlp"

	"yieldsplit/storage"
)

var errEmptyKey = errors.New("kv: key must not be empty")

// Manager reads and writes ledger state on top of a key-value database.
//
// Writes made inside Atomic are staged in a journal and reach the database as
// one batch only if the callback succeeds, so a failed operation leaves no
// trace. Atomic holds the write lock and View the read lock; Manager methods
// themselves never lock, so they must only be called from inside one of the
// two (or from single-goroutine setup code).
type Manager struct {
	db      storage.Database
	mu      sync.RWMutex
	journal *journal
}

// NewManager creates a state manager over db.
func NewManager(db storage.Database) *Manager {
	return &Manager{db: db}
}

type journal struct {
	writes  map[string][]byte
	deletes map[string]struct{}
}

func newJournal() *journal {
	return &journal{writes: map[string][]byte{}, deletes: map[string]struct{}{}}
}

func (j *journal) apply(batch storage.Batch) {
	keys := make([]string, 0, len(j.writes)+len(j.deletes))
	for k := range j.writes {
		keys = append(keys, k)
	}
	for k := range j.deletes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if value, ok := j.writes[k]; ok {
			batch.Put([]byte(k), value)
			continue
		}
		batch.Delete([]byte(k))
	}
}

// Atomic runs fn with exclusive access. Every write fn makes is committed in a
// single batch when fn returns nil and discarded otherwise. onCommit hooks run
// after a successful commit while the lock is still held, so they observe
// commits in order.
func (m *Manager) Atomic(fn func() error, onCommit ...func()) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.journal = newJournal()
	defer func() { m.journal = nil }()
	if err := fn(); err != nil {
		return err
	}
	batch := m.db.NewBatch()
	m.journal.apply(batch)
	if batch.Len() > 0 {
		if err := batch.Write(); err != nil {
			return fmt.Errorf("state: commit: %w", err)
		}
	}
	for _, hook := range onCommit {
		if hook != nil {
			hook()
		}
	}
	return nil
}

// View runs fn under the read lock. fn must not write.
func (m *Manager) View(fn func() error) error {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return fn()
}

func (m *Manager) rawGet(hashed []byte) ([]byte, error) {
	if j := m.journal; j != nil {
		if value, ok := j.writes[string(hashed)]; ok {
			return value, nil
		}
		if _, ok := j.deletes[string(hashed)]; ok {
			return nil, nil
		}
	}
	data, err := m.db.Get(hashed)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	return data, err
}

func (m *Manager) rawPut(hashed, value []byte) error {
	if j := m.journal; j != nil {
		delete(j.deletes, string(hashed))
		j.writes[string(hashed)] = append([]byte(nil), value...)
		return nil
	}
	return m.db.Put(hashed, value)
}

func (m *Manager) rawDelete(hashed []byte) error {
	if j := m.journal; j != nil {
		delete(j.writes, string(hashed))
		j.deletes[string(hashed)] = struct{}{}
		return nil
	}
	return m.db.Delete(hashed)
}

func kvKey(key []byte) []byte {
	return ethcrypto.Keccak256(key)
}

// KVPut stores the RLP encoding of value under key.
func (m *Manager) KVPut(key []byte, value interface{}) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	encoded, err := rlp.EncodeToBytes(value)
	if err != nil {
		return err
	}
	return m.rawPut(kvKey(key), encoded)
}

// KVGet retrieves the value stored under the supplied key and decodes it into
// the provided destination. The boolean return value indicates whether the key
// existed in state.
func (m *Manager) KVGet(key []byte, out interface{}) (bool, error) {
	if len(key) == 0 {
		return false, errEmptyKey
	}
	data, err := m.rawGet(kvKey(key))
	if err != nil {
		return false, err
	}
	if len(data) == 0 {
		return false, nil
	}
	if out == nil {
		return true, nil
	}
	if err := rlp.DecodeBytes(data, out); err != nil {
		return false, err
	}
	return true, nil
}

// KVDelete removes key. Missing keys are not an error.
func (m *Manager) KVDelete(key []byte) error {
	if len(key) == 0 {
		return errEmptyKey
	}
	return m.rawDelete(kvKey(key))
}

func (m *Manager) getAmount(key []byte) (*big.Int, error) {
	amount := new(big.Int)
	ok, err := m.KVGet(key, amount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return big.NewInt(0), nil
	}
	return amount, nil
}

func (m *Manager) putAmount(key []byte, amount *big.Int) error {
	if amount == nil {
		amount = big.NewInt(0)
	}
	if amount.Sign() < 0 {
		return fmt.Errorf("negative amount not allowed")
	}
	if amount.Sign() == 0 {
		return m.KVDelete(key)
	}
	return m.KVPut(key, amount)
}

// Balance returns the balance of addr in symbol; missing balances are zero.
func (m *Manager) Balance(addr []byte, symbol string) (*big.Int, error) {
	if normalizeSymbol(symbol) == "" {
		return nil, fmt.Errorf("token symbol required")
	}
	return m.getAmount(BalanceKey(addr, symbol))
}

// SetBalance overwrites the balance of addr in symbol.
func (m *Manager) SetBalance(addr []byte, symbol string, amount *big.Int) error {
	if len(addr) == 0 {
		return fmt.Errorf("address must not be empty")
	}
	if normalizeSymbol(symbol) == "" {
		return fmt.Errorf("token symbol required")
	}
	return m.putAmount(BalanceKey(addr, symbol), amount)
}

// TokenSupply returns the outstanding supply of symbol.
func (m *Manager) TokenSupply(symbol string) (*big.Int, error) {
	if normalizeSymbol(symbol) == "" {
		return nil, fmt.Errorf("token symbol required")
	}
	return m.getAmount(SupplyKey(symbol))
}

// SetTokenSupply overwrites the stored total supply for the token.
func (m *Manager) SetTokenSupply(symbol string, amount *big.Int) error {
	if normalizeSymbol(symbol) == "" {
		return fmt.Errorf("token symbol required")
	}
	return m.putAmount(SupplyKey(symbol), amount)
}
