package bonds

import (
	"math/big"
	"strconv"

	"yieldsplit/core/events"
	"yieldsplit/core/types"
)

const (
	EventTypeCreated          = "bonds.created"
	EventTypeYieldDeposited   = "bonds.yield_deposited"
	EventTypeYieldCollected   = "bonds.yield_collected"
	EventTypeRedeemed         = "bonds.redeemed"
	EventTypeCombined         = "bonds.combined"
	EventTypeClaimTransferred = "bonds.claim_transferred"
	EventTypeAuthority        = "bonds.authority_updated"
)

// Claim names used by transfer events and the RPC layer.
const (
	ClaimPrincipal = "principal"
	ClaimYield     = "yield"
)

type bondEvent struct {
	evt *types.Event
}

func (e bondEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e bondEvent) Event() *types.Event { return e.evt }

func newEvent(eventType string, id uint64, attrs map[string]string) *types.Event {
	if attrs == nil {
		attrs = map[string]string{}
	}
	attrs["id"] = strconv.FormatUint(id, 10)
	return &types.Event{Type: eventType, Attributes: attrs}
}

func createdEvent(p *Position) *types.Event {
	return newEvent(EventTypeCreated, p.ID, map[string]string{
		"owner":    events.FormatAddress(p.PrincipalOwner),
		"amount":   events.FormatAmount(p.PrincipalAmount),
		"maturity": strconv.FormatUint(p.MaturityHeight, 10),
	})
}

func yieldDepositedEvent(p *Position, depositor [20]byte, amount *big.Int) *types.Event {
	return newEvent(EventTypeYieldDeposited, p.ID, map[string]string{
		"depositor": events.FormatAddress(depositor),
		"amount":    events.FormatAmount(amount),
		"deposited": events.FormatAmount(p.YieldDeposited),
	})
}

func payoutEvent(eventType string, p *Position, holder [20]byte, amount *big.Int) *types.Event {
	return newEvent(eventType, p.ID, map[string]string{
		"holder": events.FormatAddress(holder),
		"amount": events.FormatAmount(amount),
	})
}

func combinedEvent(p *Position, holder [20]byte, yield *big.Int) *types.Event {
	return newEvent(EventTypeCombined, p.ID, map[string]string{
		"holder":    events.FormatAddress(holder),
		"principal": events.FormatAmount(p.PrincipalAmount),
		"yield":     events.FormatAmount(yield),
	})
}

func claimTransferredEvent(p *Position, claim string, from, to [20]byte) *types.Event {
	return newEvent(EventTypeClaimTransferred, p.ID, map[string]string{
		"claim": claim,
		"from":  events.FormatAddress(from),
		"to":    events.FormatAddress(to),
	})
}

func authorityEvent(action string, addr [20]byte) *types.Event {
	return &types.Event{Type: EventTypeAuthority, Attributes: map[string]string{
		"action":  action,
		"address": events.FormatAddress(addr),
	}}
}
