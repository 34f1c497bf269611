// Package core wires the ledger engines to persistent state. Every mutating
// call runs as one atomic, serialized operation.
package core

import (
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"strings"
	"time"

	yerrors "yieldsplit/core/errors"
	"yieldsplit/core/events"
	"yieldsplit/core/state"
	"yieldsplit/core/types"
	"yieldsplit/native/bank"
	"yieldsplit/native/bonds"
	"yieldsplit/native/escrow"
	"yieldsplit/native/vault"
	"yieldsplit/storage"
)

// Module names used for pause switches, metrics and logs.
const (
	ModuleBank   = "bank"
	ModuleBonds  = "bonds"
	ModuleVault  = "vault"
	ModuleEscrow = "escrow"
	moduleNode   = "node"
)

// EventTypePauseChanged is emitted when an operator pauses or resumes a module.
const EventTypePauseChanged = "node.pause_changed"

var (
	errNilDB      = errors.New("core: database required")
	errZeroOwner  = errors.New("core: owner address required")
	errEmptyAsset = errors.New("core: asset symbol required")
	errClaimKind  = errors.New("core: claim must be principal or yield")
	errBadModule  = errors.New("core: unknown module")
)

// OperationObserver records the outcome of every operation.
type OperationObserver interface {
	ObserveOperation(module, op, outcome string, elapsed time.Duration)
}

type noopObserver struct{}

func (noopObserver) ObserveOperation(string, string, string, time.Duration) {}

// Options configures a Node.
type Options struct {
	Asset   string
	Owner   [20]byte
	MaxTerm uint64
	Heights HeightSource
	Emitter events.Emitter
	Logger  *slog.Logger
	Metrics OperationObserver
}

// Node owns the state manager and runs operations against freshly wired
// engines.
type Node struct {
	manager *state.Manager
	asset   string
	owner   [20]byte
	maxTerm uint64
	heights HeightSource
	emitter events.Emitter
	logger  *slog.Logger
	metrics OperationObserver
}

type engineSet struct {
	emitter     events.Emitter
	bank        *bank.Ledger
	bondsEscrow *escrow.Engine
	vaultEscrow *escrow.Engine
	bonds       *bonds.Engine
	vault       *vault.Engine
}

// NewNode opens the ledgers over db. Ownership and escrow bindings are written
// on first start and left untouched afterwards.
func NewNode(db storage.Database, opts Options) (*Node, error) {
	if db == nil {
		return nil, errNilDB
	}
	if opts.Owner == ([20]byte{}) {
		return nil, errZeroOwner
	}
	asset, err := bank.NormalizeSymbol(opts.Asset)
	if err != nil {
		return nil, errEmptyAsset
	}
	n := &Node{
		manager: state.NewManager(db),
		asset:   asset,
		owner:   opts.Owner,
		maxTerm: opts.MaxTerm,
		heights: opts.Heights,
		emitter: opts.Emitter,
		logger:  opts.Logger,
		metrics: opts.Metrics,
	}
	if n.heights == nil {
		n.heights = NewFixedHeight(0)
	}
	if n.emitter == nil {
		n.emitter = events.NoopEmitter{}
	}
	if n.logger == nil {
		n.logger = slog.Default()
	}
	if n.metrics == nil {
		n.metrics = noopObserver{}
	}
	if err := n.manager.Atomic(n.setup); err != nil {
		return nil, fmt.Errorf("core: setup: %w", err)
	}
	return n, nil
}

func ignoreConfigured(err error) error {
	if errors.Is(err, yerrors.ErrAlreadyConfigured) {
		return nil
	}
	return err
}

func (n *Node) setup() error {
	set := n.engines(n.heights.Height(), events.NoopEmitter{})
	if err := ignoreConfigured(set.bonds.Configure(n.owner)); err != nil {
		return err
	}
	if err := ignoreConfigured(set.vault.Configure(n.owner)); err != nil {
		return err
	}
	if err := ignoreConfigured(set.bondsEscrow.BindAuthorizedLedger(set.bonds.Address())); err != nil {
		return err
	}
	return ignoreConfigured(set.vaultEscrow.BindAuthorizedLedger(set.vault.Address()))
}

func (n *Node) engines(height uint64, emitter events.Emitter) *engineSet {
	ledger := bank.NewLedger()
	ledger.SetState(n.manager)
	ledger.SetEmitter(emitter)

	bondsEscrow := escrow.NewEngine(ModuleBonds, n.asset)
	bondsEscrow.SetState(n.manager)
	bondsEscrow.SetAssets(ledger)
	bondsEscrow.SetPauses(n.manager)
	bondsEscrow.SetEmitter(emitter)

	vaultEscrow := escrow.NewEngine(ModuleVault, n.asset)
	vaultEscrow.SetState(n.manager)
	vaultEscrow.SetAssets(ledger)
	vaultEscrow.SetPauses(n.manager)
	vaultEscrow.SetEmitter(emitter)

	bondsEngine := bonds.NewEngine()
	bondsEngine.SetState(n.manager)
	bondsEngine.SetEscrow(bondsEscrow)
	bondsEngine.SetPauses(n.manager)
	bondsEngine.SetBlockHeight(height)
	bondsEngine.SetMaxTerm(n.maxTerm)
	bondsEngine.SetEmitter(emitter)

	vaultEngine := vault.NewEngine(n.asset)
	vaultEngine.SetState(n.manager)
	vaultEngine.SetClaims(ledger)
	vaultEngine.SetEscrow(vaultEscrow)
	vaultEngine.SetPauses(n.manager)
	vaultEngine.SetBlockHeight(height)
	vaultEngine.SetEmitter(emitter)

	return &engineSet{
		emitter:     emitter,
		bank:        ledger,
		bondsEscrow: bondsEscrow,
		vaultEscrow: vaultEscrow,
		bonds:       bondsEngine,
		vault:       vaultEngine,
	}
}

// execute runs fn atomically. Events raised by fn reach the emitter only after
// the commit; a failed operation emits nothing.
func (n *Node) execute(module, op string, caller [20]byte, fn func(*engineSet) error) error {
	start := time.Now()
	height := n.heights.Height()
	buffer := &events.Buffer{}
	err := n.manager.Atomic(func() error {
		return fn(n.engines(height, buffer))
	}, func() {
		buffer.Flush(height, n.emitter)
	})
	kind := yerrors.Kind(err)
	outcome := "ok"
	if err != nil {
		outcome = kind
	}
	n.metrics.ObserveOperation(module, op, outcome, time.Since(start))
	if err != nil {
		buffer.Reset()
		n.logger.Warn("operation failed",
			slog.String("module", module),
			slog.String("op", op),
			slog.String("caller", events.FormatAddress(caller)),
			slog.Uint64("height", height),
			slog.String("error_kind", kind),
			slog.Any("error", err))
		return err
	}
	n.logger.Debug("operation committed",
		slog.String("module", module),
		slog.String("op", op),
		slog.String("caller", events.FormatAddress(caller)),
		slog.Uint64("height", height))
	return nil
}

func (n *Node) query(fn func(*engineSet) error) error {
	height := n.heights.Height()
	return n.manager.View(func() error {
		return fn(n.engines(height, events.NoopEmitter{}))
	})
}

// Asset returns the underlying token symbol.
func (n *Node) Asset() string { return n.asset }

// Owner returns the operator address.
func (n *Node) Owner() [20]byte { return n.owner }

// Height returns the current height.
func (n *Node) Height() uint64 { return n.heights.Height() }

// ClaimSymbols returns the pool's PT and YT token symbols.
func (n *Node) ClaimSymbols() (pt, yt string) {
	v := vault.NewEngine(n.asset)
	return v.PTSymbol(), v.YTSymbol()
}

// --- operator ---

// ApplyAllocations credits the configured genesis balances of the underlying
// asset. It runs once per database; later calls report false.
func (n *Node) ApplyAllocations(allocations map[[20]byte]*big.Int) (bool, error) {
	applied := false
	err := n.execute(ModuleBank, "allocate", n.owner, func(set *engineSet) error {
		done, err := n.manager.GenesisApplied()
		if err != nil || done {
			return err
		}
		for addr, amount := range allocations {
			if amount == nil || amount.Sign() == 0 {
				continue
			}
			if err := set.bank.Mint(n.asset, addr, amount); err != nil {
				return err
			}
		}
		applied = true
		return n.manager.MarkGenesisApplied()
	})
	return applied, err
}

func knownModule(module string) bool {
	switch module {
	case ModuleBonds, ModuleVault, ModuleEscrow:
		return true
	}
	return false
}

func (n *Node) setPaused(caller [20]byte, module string, paused bool) error {
	module = strings.ToLower(strings.TrimSpace(module))
	op := "resume"
	if paused {
		op = "pause"
	}
	return n.execute(moduleNode, op, caller, func(set *engineSet) error {
		if caller != n.owner {
			return yerrors.ErrUnauthorized
		}
		if !knownModule(module) {
			return fmt.Errorf("%w: %q", errBadModule, module)
		}
		if err := n.manager.SetPaused(module, paused); err != nil {
			return err
		}
		set.emitter.Emit(events.Raw{Payload: &types.Event{Type: EventTypePauseChanged, Attributes: map[string]string{
			"module": module,
			"paused": strconv.FormatBool(paused),
		}}})
		return nil
	})
}

// Pause stops every mutating call of module. Owner only.
func (n *Node) Pause(caller [20]byte, module string) error {
	return n.setPaused(caller, module, true)
}

// Resume re-enables module. Owner only.
func (n *Node) Resume(caller [20]byte, module string) error {
	return n.setPaused(caller, module, false)
}

// Paused reports the pause switch of module.
func (n *Node) Paused(module string) (bool, error) {
	var paused bool
	err := n.manager.View(func() error {
		paused = n.manager.IsPaused(strings.ToLower(strings.TrimSpace(module)))
		return nil
	})
	return paused, err
}

// Transfer moves the underlying asset between holders.
func (n *Node) Transfer(caller, to [20]byte, amount *big.Int) error {
	return n.execute(ModuleBank, "transfer", caller, func(set *engineSet) error {
		return set.bank.Transfer(n.asset, caller, to, amount)
	})
}

// Balance returns addr's balance of symbol.
func (n *Node) Balance(symbol string, addr [20]byte) (*big.Int, error) {
	var out *big.Int
	err := n.query(func(set *engineSet) error {
		var err error
		out, err = set.bank.Balance(symbol, addr)
		return err
	})
	return out, err
}

// EscrowVault returns the escrow record backing a ledger ("bonds" or "vault").
func (n *Node) EscrowVault(name string) (*escrow.Vault, error) {
	var out *escrow.Vault
	err := n.query(func(set *engineSet) error {
		var err error
		switch name {
		case ModuleBonds:
			out, err = set.bondsEscrow.Vault()
		case ModuleVault:
			out, err = set.vaultEscrow.Vault()
		default:
			err = fmt.Errorf("%w: %q", errBadModule, name)
		}
		return err
	})
	return out, err
}
