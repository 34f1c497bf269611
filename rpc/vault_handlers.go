package rpc

import (
	"math/big"
	"net/http"
)

type initializeRequest struct {
	MaturityHeight uint64 `json:"maturityHeight"`
}

type vaultTransferRequest struct {
	Claim  string `json:"claim"`
	To     string `json:"to"`
	Amount string `json:"amount"`
}

func (s *Server) handleVaultPool(w http.ResponseWriter, _ *http.Request) {
	pool, err := s.ledger.VaultPool()
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	pt, yt := s.ledger.ClaimSymbols()
	writeJSON(w, http.StatusOK, newPoolView(pool, pt, yt))
}

func (s *Server) handleVaultAudit(w http.ResponseWriter, _ *http.Request) {
	if err := s.ledger.VaultAudit(); err != nil {
		s.logger.Error("vault audit failed", "error", err)
		writeJSON(w, http.StatusOK, map[string]interface{}{"ok": false, "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true})
}

func (s *Server) handleVaultHolder(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	view, err := s.ledger.VaultHolder(addr)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newHolderView(view))
}

func (s *Server) handleVaultClaimable(w http.ResponseWriter, r *http.Request) {
	addr, err := pathAddress(r)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	amount, err := s.ledger.VaultPreviewClaimable(addr)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse(amount))
}

func (s *Server) handleVaultInitialize(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req initializeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if err := s.ledger.VaultInitialize(caller, req.MaturityHeight); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.handleVaultPool(w, r)
}

// vaultAmount handles the amount-only operations that return a result amount.
func (s *Server) vaultAmount(w http.ResponseWriter, r *http.Request, op func(caller [20]byte, amount *big.Int) (*big.Int, error)) {
	caller, _ := callerFrom(r.Context())
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	out, err := op(caller, amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse(out))
}

func (s *Server) handleVaultDeposit(w http.ResponseWriter, r *http.Request) {
	s.vaultAmount(w, r, s.ledger.VaultDeposit)
}

func (s *Server) handleVaultSync(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req amountRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	index, err := s.ledger.VaultSyncYield(caller, amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"yieldIndex": index.String()})
}

func (s *Server) handleVaultClaim(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	paid, err := s.ledger.VaultClaimYield(caller)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, amountResponse(paid))
}

func (s *Server) handleVaultRedeem(w http.ResponseWriter, r *http.Request) {
	s.vaultAmount(w, r, s.ledger.VaultRedeem)
}

func (s *Server) handleVaultCombine(w http.ResponseWriter, r *http.Request) {
	s.vaultAmount(w, r, s.ledger.VaultCombine)
}

func (s *Server) handleVaultTransfer(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req vaultTransferRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	claim, err := validClaim(req.Claim)
	if err != nil {
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
	if err := s.ledger.VaultTransferClaim(caller, claim, to, amount); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	view, err := s.ledger.VaultHolder(caller)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newHolderView(view))
}
