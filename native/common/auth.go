package common

import (
	"bytes"
	"sort"

	yerrors "yieldsplit/core/errors"
)

// Authority is the persisted authorization record of a module: a single owner,
// an explicit allow-set of additional authorized callers, and a configure-once
// latch for one-time wiring.
type Authority struct {
	Owner      [20]byte
	Allowed    [][20]byte
	Configured bool
}

// NewAuthority returns an unconfigured authority owned by owner.
func NewAuthority(owner [20]byte) *Authority {
	return &Authority{Owner: owner}
}

// Clone returns a deep copy.
func (a *Authority) Clone() *Authority {
	if a == nil {
		return nil
	}
	clone := *a
	clone.Allowed = append([][20]byte(nil), a.Allowed...)
	return &clone
}

// IsOwner reports whether caller is the owner.
func (a *Authority) IsOwner(caller [20]byte) bool {
	if a == nil || a.Owner == ([20]byte{}) {
		return false
	}
	return a.Owner == caller
}

// IsAuthorized reports whether caller is the owner or in the allow-set.
func (a *Authority) IsAuthorized(caller [20]byte) bool {
	if a.IsOwner(caller) {
		return true
	}
	if a == nil {
		return false
	}
	for _, allowed := range a.Allowed {
		if allowed == caller {
			return true
		}
	}
	return false
}

// RequireOwner returns ErrUnauthorized unless caller is the owner.
func (a *Authority) RequireOwner(caller [20]byte) error {
	if !a.IsOwner(caller) {
		return yerrors.ErrUnauthorized
	}
	return nil
}

// RequireAuthorized returns ErrUnauthorized unless caller passes IsAuthorized.
func (a *Authority) RequireAuthorized(caller [20]byte) error {
	if !a.IsAuthorized(caller) {
		return yerrors.ErrUnauthorized
	}
	return nil
}

// ConfigureOnce flips the latch. The second call fails with
// ErrAlreadyConfigured and leaves the record untouched.
func (a *Authority) ConfigureOnce() error {
	if a == nil {
		return yerrors.ErrUnauthorized
	}
	if a.Configured {
		return yerrors.ErrAlreadyConfigured
	}
	a.Configured = true
	return nil
}

// Allow adds addr to the allow-set. Returns false when already present.
func (a *Authority) Allow(addr [20]byte) bool {
	for _, existing := range a.Allowed {
		if existing == addr {
			return false
		}
	}
	a.Allowed = append(a.Allowed, addr)
	sort.Slice(a.Allowed, func(i, j int) bool {
		return bytes.Compare(a.Allowed[i][:], a.Allowed[j][:]) < 0
	})
	return true
}

// Revoke removes addr from the allow-set. Returns false when absent.
func (a *Authority) Revoke(addr [20]byte) bool {
	for i, existing := range a.Allowed {
		if existing == addr {
			a.Allowed = append(a.Allowed[:i], a.Allowed[i+1:]...)
			return true
		}
	}
	return false
}
