package rpc

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"yieldsplit/core/events"
	"yieldsplit/crypto"
	"yieldsplit/native/bonds"
	nativecommon "yieldsplit/native/common"
	"yieldsplit/native/escrow"
	"yieldsplit/native/vault"
)

const maxBodyBytes = 1 << 16

type positionView struct {
	ID                uint64 `json:"id"`
	Status            string `json:"status"`
	PrincipalAmount   string `json:"principalAmount"`
	CreatedHeight     uint64 `json:"createdHeight"`
	MaturityHeight    uint64 `json:"maturityHeight"`
	YieldDeposited    string `json:"yieldDeposited"`
	YieldWithdrawn    string `json:"yieldWithdrawn"`
	AvailableYield    string `json:"availableYield"`
	PrincipalOwner    string `json:"principalOwner,omitempty"`
	YieldOwner        string `json:"yieldOwner,omitempty"`
	HasPrincipalClaim bool   `json:"hasPrincipalClaim"`
	HasYieldClaim     bool   `json:"hasYieldClaim"`
}

func newPositionView(p *bonds.Position) positionView {
	view := positionView{
		ID:                p.ID,
		Status:            p.Status(),
		PrincipalAmount:   events.FormatAmount(p.PrincipalAmount),
		CreatedHeight:     p.CreatedHeight,
		MaturityHeight:    p.MaturityHeight,
		YieldDeposited:    events.FormatAmount(p.YieldDeposited),
		YieldWithdrawn:    events.FormatAmount(p.YieldWithdrawn),
		AvailableYield:    events.FormatAmount(p.Available()),
		HasPrincipalClaim: p.HasPrincipalClaim,
		HasYieldClaim:     p.HasYieldClaim,
	}
	if p.HasPrincipalClaim {
		view.PrincipalOwner = events.FormatAddress(p.PrincipalOwner)
	}
	if p.HasYieldClaim {
		view.YieldOwner = events.FormatAddress(p.YieldOwner)
	}
	return view
}

type statsView struct {
	NextID              uint64 `json:"nextId"`
	Active              uint64 `json:"active"`
	TotalLocked         string `json:"totalLocked"`
	TotalYieldDeposited string `json:"totalYieldDeposited"`
	TotalYieldWithdrawn string `json:"totalYieldWithdrawn"`
}

func newStatsView(m *bonds.Meta) statsView {
	return statsView{
		NextID:              m.NextID,
		Active:              m.Active,
		TotalLocked:         events.FormatAmount(m.TotalLocked),
		TotalYieldDeposited: events.FormatAmount(m.TotalYieldDeposited),
		TotalYieldWithdrawn: events.FormatAmount(m.TotalYieldWithdrawn),
	}
}

type authorityView struct {
	Owner   string   `json:"owner"`
	Allowed []string `json:"allowed"`
}

func newAuthorityView(a *nativecommon.Authority) authorityView {
	view := authorityView{Owner: events.FormatAddress(a.Owner), Allowed: []string{}}
	for _, addr := range a.Allowed {
		view.Allowed = append(view.Allowed, events.FormatAddress(addr))
	}
	return view
}

type poolView struct {
	Initialized    bool   `json:"initialized"`
	MaturityHeight uint64 `json:"maturityHeight"`
	YieldIndex     string `json:"yieldIndex"`
	PTSupply       string `json:"ptSupply"`
	YTSupply       string `json:"ytSupply"`
	YieldSynced    string `json:"yieldSynced"`
	YieldPaid      string `json:"yieldPaid"`
	PTSymbol       string `json:"ptSymbol"`
	YTSymbol       string `json:"ytSymbol"`
}

func newPoolView(p *vault.Pool, pt, yt string) poolView {
	return poolView{
		Initialized:    p.Initialized,
		MaturityHeight: p.MaturityHeight,
		YieldIndex:     events.FormatAmount(p.YieldIndex),
		PTSupply:       events.FormatAmount(p.PTSupply),
		YTSupply:       events.FormatAmount(p.YTSupply),
		YieldSynced:    events.FormatAmount(p.YieldSynced),
		YieldPaid:      events.FormatAmount(p.YieldPaid),
		PTSymbol:       pt,
		YTSymbol:       yt,
	}
}

type holderView struct {
	Address      string `json:"address"`
	PTBalance    string `json:"ptBalance"`
	YTBalance    string `json:"ytBalance"`
	PendingYield string `json:"pendingYield"`
	RewardDebt   string `json:"rewardDebt"`
	Claimable    string `json:"claimable"`
}

func newHolderView(h *vault.HolderView) holderView {
	return holderView{
		Address:      events.FormatAddress(h.Address),
		PTBalance:    events.FormatAmount(h.PTBalance),
		YTBalance:    events.FormatAmount(h.YTBalance),
		PendingYield: events.FormatAmount(h.PendingYield),
		RewardDebt:   events.FormatAmount(h.RewardDebt),
		Claimable:    events.FormatAmount(h.Claimable),
	}
}

type escrowView struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Token   string `json:"token"`
	Ledger  string `json:"ledger,omitempty"`
	Total   string `json:"total"`
}

func newEscrowView(v *escrow.Vault) escrowView {
	view := escrowView{
		Name:    v.Name,
		Address: crypto.NewAddress(crypto.ModulePrefix, v.Address[:]).String(),
		Token:   v.Token,
		Total:   events.FormatAmount(v.Total),
	}
	if v.Bound {
		view.Ledger = crypto.NewAddress(crypto.ModulePrefix, v.Ledger[:]).String()
	}
	return view
}

type amountResult struct {
	Amount string `json:"amount"`
}

func amountResponse(amount *big.Int) amountResult {
	return amountResult{Amount: events.FormatAmount(amount)}
}

// --- request decoding ---

func decodeBody(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dst); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func parseAmount(raw string) (*big.Int, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: amount required", errBadRequest)
	}
	amount, ok := new(big.Int).SetString(trimmed, 10)
	if !ok {
		return nil, fmt.Errorf("%w: invalid amount %q", errBadRequest, raw)
	}
	return amount, nil
}

func parseAddress(raw string) ([20]byte, error) {
	addr, err := crypto.DecodeAddress(strings.TrimSpace(raw))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return addr.Raw(), nil
}

// parseHolderAddress parses a recipient or identity field. Module accounts
// are only reachable through their engines.
func parseHolderAddress(raw string) ([20]byte, error) {
	addr, err := crypto.DecodeHolderAddress(strings.TrimSpace(raw))
	if err != nil {
		return [20]byte{}, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return addr.Raw(), nil
}

func pathID(r *http.Request) (uint64, error) {
	id, err := strconv.ParseUint(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid position id", errBadRequest)
	}
	return id, nil
}

func pathAddress(r *http.Request) ([20]byte, error) {
	return parseAddress(chi.URLParam(r, "addr"))
}

func validClaim(claim string) (string, error) {
	switch normalized := strings.ToLower(strings.TrimSpace(claim)); normalized {
	case bonds.ClaimPrincipal, bonds.ClaimYield:
		return normalized, nil
	default:
		return "", fmt.Errorf("%w: claim must be %q or %q", errBadRequest, bonds.ClaimPrincipal, bonds.ClaimYield)
	}
}
