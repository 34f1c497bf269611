package bonds

import "math/big"

// Status labels derived from a position's terminal flags.
const (
	StatusActive   = "active"
	StatusRedeemed = "redeemed"
	StatusCombined = "combined"
)

// Position is one principal lock. The record outlives redemption and combine
// so it stays auditable; the terminal flags reject further mutation.
type Position struct {
	ID                uint64
	PrincipalAmount   *big.Int
	MaturityHeight    uint64
	CreatedHeight     uint64
	PrincipalRedeemed bool
	Combined          bool
	YieldDeposited    *big.Int
	YieldWithdrawn    *big.Int
	PrincipalOwner    [20]byte
	YieldOwner        [20]byte
	HasPrincipalClaim bool
	HasYieldClaim     bool
}

// Clone returns a deep copy so callers can mutate without touching state.
func (p *Position) Clone() *Position {
	if p == nil {
		return nil
	}
	clone := *p
	clone.PrincipalAmount = cloneBig(p.PrincipalAmount)
	clone.YieldDeposited = cloneBig(p.YieldDeposited)
	clone.YieldWithdrawn = cloneBig(p.YieldWithdrawn)
	return &clone
}

// Status reports the lifecycle state.
func (p *Position) Status() string {
	switch {
	case p == nil:
		return ""
	case p.Combined:
		return StatusCombined
	case p.PrincipalRedeemed:
		return StatusRedeemed
	default:
		return StatusActive
	}
}

// Available returns yieldDeposited - yieldWithdrawn.
func (p *Position) Available() *big.Int {
	if p == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Sub(cloneBig(p.YieldDeposited), cloneBig(p.YieldWithdrawn))
}

func (p *Position) normalize() {
	p.PrincipalAmount = cloneBig(p.PrincipalAmount)
	p.YieldDeposited = cloneBig(p.YieldDeposited)
	p.YieldWithdrawn = cloneBig(p.YieldWithdrawn)
}

// Meta aggregates ledger-wide counters. NextID starts at 1 and is never reused.
type Meta struct {
	NextID              uint64
	Active              uint64
	TotalLocked         *big.Int
	TotalYieldDeposited *big.Int
	TotalYieldWithdrawn *big.Int
}

// Clone returns a deep copy.
func (m *Meta) Clone() *Meta {
	if m == nil {
		return nil
	}
	clone := *m
	clone.TotalLocked = cloneBig(m.TotalLocked)
	clone.TotalYieldDeposited = cloneBig(m.TotalYieldDeposited)
	clone.TotalYieldWithdrawn = cloneBig(m.TotalYieldWithdrawn)
	return &clone
}

func (m *Meta) normalize() {
	if m.NextID == 0 {
		m.NextID = 1
	}
	m.TotalLocked = cloneBig(m.TotalLocked)
	m.TotalYieldDeposited = cloneBig(m.TotalYieldDeposited)
	m.TotalYieldWithdrawn = cloneBig(m.TotalYieldWithdrawn)
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return big.NewInt(0)
	}
	return new(big.Int).Set(v)
}
