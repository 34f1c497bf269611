package vault

import (
	"math/big"
	"strconv"

	"yieldsplit/core/events"
	"yieldsplit/core/types"
)

const (
	EventTypeInitialized      = "vault.initialized"
	EventTypeDeposited        = "vault.deposited"
	EventTypeSynced           = "vault.synced"
	EventTypeClaimed          = "vault.claimed"
	EventTypeRedeemed         = "vault.redeemed"
	EventTypeCombined         = "vault.combined"
	EventTypeClaimTransferred = "vault.claim_transferred"
)

// Claim names carried by transfer events.
const (
	ClaimPrincipal = "principal"
	ClaimYield     = "yield"
)

type vaultEvent struct {
	evt *types.Event
}

func (e vaultEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e vaultEvent) Event() *types.Event { return e.evt }

func initializedEvent(p *Pool) *types.Event {
	return &types.Event{Type: EventTypeInitialized, Attributes: map[string]string{
		"maturity": strconv.FormatUint(p.MaturityHeight, 10),
	}}
}

func holderEvent(eventType string, holder [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: eventType, Attributes: map[string]string{
		"holder": events.FormatAddress(holder),
		"amount": events.FormatAmount(amount),
	}}
}

func syncedEvent(p *Pool, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeSynced, Attributes: map[string]string{
		"amount":    events.FormatAmount(amount),
		"index":     events.FormatAmount(p.YieldIndex),
		"yt_supply": events.FormatAmount(p.YTSupply),
	}}
}

func combinedEvent(holder [20]byte, amount, yield *big.Int) *types.Event {
	evt := holderEvent(EventTypeCombined, holder, amount)
	evt.Attributes["yield"] = events.FormatAmount(yield)
	return evt
}

func claimTransferredEvent(claim string, from, to [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: EventTypeClaimTransferred, Attributes: map[string]string{
		"claim":  claim,
		"from":   events.FormatAddress(from),
		"to":     events.FormatAddress(to),
		"amount": events.FormatAmount(amount),
	}}
}
