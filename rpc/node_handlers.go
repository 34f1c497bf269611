package rpc

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"yieldsplit/core/events"
)

var pausableModules = []string{"bonds", "vault", "escrow"}

type transferRequest struct {
	To     string `json:"to"`
	Amount string `json:"amount"`
}

type moduleRequest struct {
	Module string `json:"module"`
}

type eventView struct {
	ID         uint64            `json:"id"`
	Type       string            `json:"type"`
	Height     uint64            `json:"height"`
	Attributes map[string]string `json:"attributes"`
}

func (s *Server) handleBalances(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	pt, yt := s.ledger.ClaimSymbols()
	out := map[string]string{}
	for _, symbol := range []string{s.ledger.Asset(), pt, yt} {
		balance, err := s.ledger.Balance(symbol, addr)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		out[symbol] = events.FormatAmount(balance)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"address":  events.FormatAddress(addr),
		"balances": out,
	})
}

func (s *Server) handleEscrow(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name != "bonds" && name != "vault" {
		writeError(w, http.StatusNotFound, "not_found", "unknown escrow "+strconv.Quote(name))
		return
	}
	record, err := s.ledger.EscrowVault(name)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newEscrowView(record))
}

func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req transferRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	to, err := parseHolderAddress(req.To)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if err := s.ledger.Transfer(caller, to, amount); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse(amount))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	if s.events == nil {
		writeError(w, http.StatusNotFound, "not_found", "event log disabled")
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid limit")
			return
		}
		limit = parsed
	}
	records, err := s.events.List(r.Context(), r.URL.Query().Get("type"), limit)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	out := make([]eventView, 0, len(records))
	for _, record := range records {
		evt, err := record.Event()
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		out = append(out, eventView{ID: record.ID, Type: evt.Type, Height: evt.Height, Attributes: evt.Attributes})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"events": out})
}

func (s *Server) handleRelayerStatus(w http.ResponseWriter, _ *http.Request) {
	if s.relayer == nil {
		writeError(w, http.StatusNotFound, "not_found", "relayer disabled")
		return
	}
	writeJSON(w, http.StatusOK, s.relayer.Status())
}

func (s *Server) handlePauses(w http.ResponseWriter, _ *http.Request) {
	out := map[string]bool{}
	for _, module := range pausableModules {
		paused, err := s.ledger.Paused(module)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		out[module] = paused
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.togglePause(w, r, s.ledger.Pause)
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	s.togglePause(w, r, s.ledger.Resume)
}

func (s *Server) togglePause(w http.ResponseWriter, r *http.Request, op func(caller [20]byte, module string) error) {
	caller, _ := callerFrom(r.Context())
	var req moduleRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	module := strings.ToLower(strings.TrimSpace(req.Module))
	known := false
	for _, candidate := range pausableModules {
		known = known || candidate == module
	}
	if !known {
		writeError(w, http.StatusBadRequest, "bad_request", "unknown module "+strconv.Quote(req.Module))
		return
	}
	if err := op(caller, module); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.handlePauses(w, r)
}
