package escrow

import (
	"math/big"

	"yieldsplit/core/events"
	"yieldsplit/core/types"
)

const (
	EventTypeDepositIn  = "escrow.deposit_in"
	EventTypeReleaseOut = "escrow.release_out"
)

type escrowEvent struct {
	evt *types.Event
}

func (e escrowEvent) EventType() string {
	if e.evt == nil {
		return ""
	}
	return e.evt.Type
}

func (e escrowEvent) Event() *types.Event { return e.evt }

func newMovementEvent(eventType string, v *Vault, account [20]byte, amount *big.Int) *types.Event {
	return &types.Event{
		Type: eventType,
		Attributes: map[string]string{
			"vault":   v.Name,
			"token":   v.Token,
			"ledger":  events.FormatAddress(v.Ledger),
			"account": events.FormatAddress(account),
			"amount":  events.FormatAmount(amount),
			"total":   events.FormatAmount(v.Total),
		},
	}
}
