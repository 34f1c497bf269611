// Package errors declares the failure kinds shared by every ledger engine.
// Engines return these sentinels directly or wrapped; callers classify with
// errors.Is or Kind.
package errors

import stderrors "errors"

var (
	ErrUnauthorized       = stderrors.New("yield: caller not authorized")
	ErrNotFound           = stderrors.New("yield: position not found")
	ErrInvalidAmount      = stderrors.New("yield: invalid amount")
	ErrInvalidTerm        = stderrors.New("yield: invalid term")
	ErrNotMatured         = stderrors.New("yield: not matured")
	ErrAlreadyMatured     = stderrors.New("yield: already matured")
	ErrAlreadyRedeemed    = stderrors.New("yield: principal already redeemed")
	ErrAlreadyCombined    = stderrors.New("yield: position already combined")
	ErrNotPrincipalOwner  = stderrors.New("yield: caller does not hold the principal claim")
	ErrNotYieldOwner      = stderrors.New("yield: caller does not hold the yield claim")
	ErrNotInitialized     = stderrors.New("yield: pool not initialized")
	ErrAlreadyInitialized = stderrors.New("yield: pool already initialized")
	ErrNoYieldSupply      = stderrors.New("yield: no outstanding yield claims")
	ErrStaleData          = stderrors.New("yield: stale oracle data")
	ErrAlreadyConfigured  = stderrors.New("yield: already configured")
	ErrModulePaused       = stderrors.New("yield: module paused")
)

// Kind labels. Stable strings used by the RPC layer and metrics.
const (
	KindUnauthorized       = "unauthorized"
	KindNotFound           = "not_found"
	KindInvalidAmount      = "invalid_amount"
	KindInvalidTerm        = "invalid_term"
	KindNotMatured         = "not_matured"
	KindAlreadyMatured     = "already_matured"
	KindAlreadyRedeemed    = "already_redeemed"
	KindAlreadyCombined    = "already_combined"
	KindNotPrincipalOwner  = "not_principal_owner"
	KindNotYieldOwner      = "not_yield_owner"
	KindNotInitialized     = "not_initialized"
	KindAlreadyInitialized = "already_initialized"
	KindNoYieldSupply      = "no_yield_supply"
	KindStaleData          = "stale_data"
	KindAlreadyConfigured  = "already_configured"
	KindPaused             = "paused"
	KindInternal           = "internal"
	KindNone               = ""
)

var kinds = []struct {
	err  error
	kind string
}{
	{ErrUnauthorized, KindUnauthorized},
	{ErrNotFound, KindNotFound},
	{ErrInvalidAmount, KindInvalidAmount},
	{ErrInvalidTerm, KindInvalidTerm},
	{ErrNotMatured, KindNotMatured},
	{ErrAlreadyMatured, KindAlreadyMatured},
	{ErrAlreadyRedeemed, KindAlreadyRedeemed},
	{ErrAlreadyCombined, KindAlreadyCombined},
	{ErrNotPrincipalOwner, KindNotPrincipalOwner},
	{ErrNotYieldOwner, KindNotYieldOwner},
	{ErrNotInitialized, KindNotInitialized},
	{ErrAlreadyInitialized, KindAlreadyInitialized},
	{ErrNoYieldSupply, KindNoYieldSupply},
	{ErrStaleData, KindStaleData},
	{ErrAlreadyConfigured, KindAlreadyConfigured},
	{ErrModulePaused, KindPaused},
}

// Kind classifies err. Nil maps to KindNone and anything outside the taxonomy
// (storage, encoding) maps to KindInternal.
func Kind(err error) string {
	if err == nil {
		return KindNone
	}
	for _, entry := range kinds {
		if stderrors.Is(err, entry.err) {
			return entry.kind
		}
	}
	return KindInternal
}
