// Package relayer periodically converts an APR quote into reward accrual on
// the vault and bond ledgers, acting as the ledger owner.
package relayer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	yerrors "yieldsplit/core/errors"
	"yieldsplit/core/events"
	"yieldsplit/native/bonds"
	nativecommon "yieldsplit/native/common"
	"yieldsplit/native/vault"
	"yieldsplit/observability/metrics"
	yotel "yieldsplit/observability/otel"
)

const bpsDenominator = 10_000

// Targets used in metrics and status.
const (
	TargetVault = "vault"
	TargetBonds = "bonds"
)

// Ledger is the node surface the relayer drives.
type Ledger interface {
	Owner() [20]byte
	Height() uint64
	VaultPool() (*vault.Pool, error)
	VaultSyncYield(caller [20]byte, amount *big.Int) (*big.Int, error)
	BondPosition(id uint64) (*bonds.Position, error)
	BondDepositYield(caller [20]byte, id uint64, amount *big.Int) (*big.Int, error)
}

// Status summarises the relayer for operators.
type Status struct {
	LastCycleID   string    `json:"lastCycleId,omitempty"`
	LastRunAt     time.Time `json:"lastRunAt,omitempty"`
	LastHeight    uint64    `json:"lastHeight"`
	LastAPRBps    uint64    `json:"lastAprBps"`
	LastError     string    `json:"lastError,omitempty"`
	Cycles        uint64    `json:"cycles"`
	Failures      uint64    `json:"failures"`
	VaultRewarded string    `json:"vaultRewarded"`
	BondsRewarded string    `json:"bondsRewarded"`
}

// Processor runs accrual cycles. Each target remembers the height it was last
// credited to, so a failed submission is retried over the full window on the
// next cycle. The first sighting of a target only records its baseline.
type Processor struct {
	ledger  Ledger
	source  QuoteSource
	cfg     Config
	limiter *rate.Limiter
	metrics *metrics.YieldMetrics
	logger  *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time

	// runMu serialises cycles and guards the per-target cursors.
	runMu       sync.Mutex
	vaultSeen   bool
	vaultHeight uint64
	bondHeights map[uint64]uint64

	// statusMu is held only for bookkeeping so Status never waits on a cycle.
	statusMu   sync.Mutex
	status     Status
	vaultTotal *big.Int
	bondsTotal *big.Int
}

// ProcessorOption customises the processor instance.
type ProcessorOption func(*Processor)

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) { p.logger = logger }
}

// WithMetrics overrides the process-wide metrics registry.
func WithMetrics(m *metrics.YieldMetrics) ProcessorOption {
	return func(p *Processor) { p.metrics = m }
}

// WithClock sets the function used to age quotes.
func WithClock(clock func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = clock }
}

func NewProcessor(ledger Ledger, source QuoteSource, cfg Config, opts ...ProcessorOption) *Processor {
	applyDefaults(&cfg)
	p := &Processor{
		ledger:      ledger,
		source:      source,
		cfg:         cfg,
		limiter:     rate.NewLimiter(rate.Limit(cfg.Submissions.PerSecond), cfg.Submissions.Burst),
		metrics:     metrics.Yield(),
		logger:      slog.Default(),
		tracer:      yotel.Tracer(),
		now:         time.Now,
		bondHeights: make(map[uint64]uint64),
		vaultTotal:  big.NewInt(0),
		bondsTotal:  big.NewInt(0),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "relayer")
	return p
}

// Run executes a cycle every interval until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval.Duration)
	defer ticker.Stop()
	for {
		if err := p.RunOnce(ctx); err != nil && !errors.Is(err, context.Canceled) {
			p.logger.Warn("relayer cycle failed", slog.Any("error", err))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce performs one accrual cycle.
func (p *Processor) RunOnce(ctx context.Context) error {
	cycleID := uuid.NewString()
	ctx, span := p.tracer.Start(ctx, "relayer.cycle", trace.WithAttributes(attribute.String("cycle.id", cycleID)))
	defer span.End()

	p.runMu.Lock()
	defer p.runMu.Unlock()

	height := p.ledger.Height()
	err := p.cycle(ctx, height)

	p.statusMu.Lock()
	p.status.LastCycleID = cycleID
	p.status.LastRunAt = p.now().UTC()
	p.status.LastHeight = height
	p.status.Cycles++
	outcome := "ok"
	if err != nil {
		outcome = yerrors.Kind(err)
		p.status.Failures++
		p.status.LastError = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
	} else {
		p.status.LastError = ""
	}
	p.statusMu.Unlock()
	p.metrics.ObserveRelayerCycle(outcome)
	p.logger.Debug("relayer cycle finished",
		slog.String("cycle", cycleID),
		slog.Uint64("height", height),
		slog.String("outcome", outcome))
	return err
}

func (p *Processor) cycle(ctx context.Context, height uint64) error {
	quote, err := p.source.Quote(ctx)
	if err != nil {
		return err
	}
	age := p.now().Sub(quote.ObservedAt)
	p.metrics.SetQuote(quote.APRBps, age)
	if age > p.cfg.MaxQuoteAge.Duration {
		return fmt.Errorf("%w: quote is %s old", yerrors.ErrStaleData, age.Truncate(time.Second))
	}
	if quote.APRBps > maxAPRBps {
		return fmt.Errorf("%w: apr %d bps out of range", yerrors.ErrStaleData, quote.APRBps)
	}
	p.statusMu.Lock()
	p.status.LastAPRBps = quote.APRBps
	p.statusMu.Unlock()

	var errs []error
	if p.cfg.Vault.Enabled {
		if err := p.accrueVault(ctx, height, quote.APRBps); err != nil {
			errs = append(errs, fmt.Errorf("vault: %w", err))
		}
	}
	for _, id := range p.cfg.Bonds.Positions {
		if err := p.accrueBond(ctx, height, id, quote.APRBps); err != nil {
			errs = append(errs, fmt.Errorf("bond %d: %w", id, err))
		}
	}
	return errors.Join(errs...)
}

func (p *Processor) accrueVault(ctx context.Context, height, aprBps uint64) error {
	pool, err := p.ledger.VaultPool()
	if err != nil {
		return err
	}
	if !pool.Initialized {
		return nil
	}
	to := min(height, pool.MaturityHeight)
	from := p.vaultHeight
	if !p.vaultSeen || from >= to || pool.YTSupply.Sign() == 0 {
		p.vaultSeen = true
		p.vaultHeight = to
		return nil
	}
	reward, err := p.reward(pool.PTSupply, aprBps, to-from)
	if err != nil {
		return err
	}
	if reward.Sign() == 0 {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := p.ledger.VaultSyncYield(p.ledger.Owner(), reward); err != nil {
		return err
	}
	p.vaultHeight = to
	p.statusMu.Lock()
	p.vaultTotal.Add(p.vaultTotal, reward)
	p.statusMu.Unlock()
	p.metrics.AddRelayerReward(TargetVault, reward)
	if latest, err := p.ledger.VaultPool(); err == nil {
		p.metrics.SetPoolState(latest.YieldIndex, nativecommon.PrecisionBig(), latest.PTSupply, latest.YTSupply)
	}
	return nil
}

func (p *Processor) accrueBond(ctx context.Context, height, id, aprBps uint64) error {
	pos, err := p.ledger.BondPosition(id)
	if err != nil {
		return err
	}
	if pos.Status() != bonds.StatusActive {
		delete(p.bondHeights, id)
		return nil
	}
	// Deposits are rejected once the position matures.
	if pos.MaturityHeight == 0 || height >= pos.MaturityHeight {
		return nil
	}
	from, seen := p.bondHeights[id]
	if !seen {
		p.bondHeights[id] = height
		return nil
	}
	if from >= height {
		return nil
	}
	reward, err := p.reward(pos.PrincipalAmount, aprBps, height-from)
	if err != nil {
		return err
	}
	if reward.Sign() == 0 {
		return nil
	}
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}
	if _, err := p.ledger.BondDepositYield(p.ledger.Owner(), id, reward); err != nil {
		return err
	}
	p.bondHeights[id] = height
	p.statusMu.Lock()
	p.bondsTotal.Add(p.bondsTotal, reward)
	p.statusMu.Unlock()
	p.metrics.AddRelayerReward(TargetBonds, reward)
	return nil
}

// reward is principal * aprBps * blocks / (10_000 * blocksPerYear), floored.
func (p *Processor) reward(principal *big.Int, aprBps, blocks uint64) (*big.Int, error) {
	if principal == nil || principal.Sign() <= 0 || aprBps == 0 || blocks == 0 {
		return big.NewInt(0), nil
	}
	numerator := new(big.Int).Mul(new(big.Int).SetUint64(aprBps), new(big.Int).SetUint64(blocks))
	denominator := new(big.Int).Mul(big.NewInt(bpsDenominator), new(big.Int).SetUint64(p.cfg.BlocksPerYear))
	return nativecommon.MulDivFloor(principal, numerator, denominator)
}

// Status returns a snapshot of the last cycle.
func (p *Processor) Status() Status {
	p.statusMu.Lock()
	defer p.statusMu.Unlock()
	out := p.status
	out.VaultRewarded = events.FormatAmount(p.vaultTotal)
	out.BondsRewarded = events.FormatAmount(p.bondsTotal)
	return out
}
