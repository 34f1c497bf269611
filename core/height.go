package core

import (
	"sync"
	"time"
)

// HeightSource supplies the current height used for maturity checks.
type HeightSource interface {
	Height() uint64
}

// FixedHeight is a manually advanced height. Safe for concurrent use.
type FixedHeight struct {
	mu     sync.Mutex
	height uint64
}

// NewFixedHeight starts at height.
func NewFixedHeight(height uint64) *FixedHeight {
	return &FixedHeight{height: height}
}

func (f *FixedHeight) Height() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.height
}

// Set jumps to height.
func (f *FixedHeight) Set(height uint64) {
	f.mu.Lock()
	f.height = height
	f.mu.Unlock()
}

// Advance moves forward by n blocks.
func (f *FixedHeight) Advance(n uint64) {
	f.mu.Lock()
	f.height += n
	f.mu.Unlock()
}

// ClockHeight derives the height from wall time: one block per Interval since
// Genesis. Times before genesis report height 0.
type ClockHeight struct {
	Genesis  time.Time
	Interval time.Duration
	Now      func() time.Time
}

func (c ClockHeight) Height() uint64 {
	if c.Interval <= 0 {
		return 0
	}
	now := time.Now()
	if c.Now != nil {
		now = c.Now()
	}
	elapsed := now.Sub(c.Genesis)
	if elapsed <= 0 {
		return 0
	}
	return uint64(elapsed / c.Interval)
}
