package rpc

import (
	"math/big"
	"net/http"
)

type createBondRequest struct {
	Amount string `json:"amount"`
	Term   uint64 `json:"term"`
}

type amountRequest struct {
	Amount string `json:"amount"`
}

type bondTransferRequest struct {
	Claim string `json:"claim"`
	To    string `json:"to"`
}

type addressRequest struct {
	Address string `json:"address"`
}

func (s *Server) handleBondStats(w http.ResponseWriter, _ *http.Request) {
	meta, err := s.ledger.BondStats()
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStatsView(meta))
}

func (s *Server) handleBondAuthority(w http.ResponseWriter, _ *http.Request) {
	auth, err := s.ledger.BondAuthority()
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuthorityView(auth))
}

func (s *Server) handleBondPosition(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	pos, err := s.ledger.BondPosition(id)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPositionView(pos))
}

func (s *Server) handleBondCreate(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	var req createBondRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	amount, err := parseAmount(req.Amount)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	id, err := s.ledger.BondCreate(caller, amount, req.Term)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	pos, err := s.ledger.BondPosition(id)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newPositionView(pos))
}

func (s *Server) handleBondDepositYield(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
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
	if _, err := s.ledger.BondDepositYield(caller, id, amount); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writePosition(w, id)
}

// bondPayout handles the id-only operations that return a paid amount.
func (s *Server) bondPayout(op func(caller [20]byte, id uint64) (*big.Int, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := callerFrom(r.Context())
		id, err := pathID(r)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		paid, err := op(caller, id)
		if err != nil {
			s.writeLedgerError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, amountResponse(paid))
	}
}

func (s *Server) handleBondCollect(w http.ResponseWriter, r *http.Request) {
	s.bondPayout(s.ledger.BondCollectYield)(w, r)
}

func (s *Server) handleBondRedeem(w http.ResponseWriter, r *http.Request) {
	s.bondPayout(s.ledger.BondRedeem)(w, r)
}

func (s *Server) handleBondCombine(w http.ResponseWriter, r *http.Request) {
	s.bondPayout(s.ledger.BondCombine)(w, r)
}

func (s *Server) handleBondTransfer(w http.ResponseWriter, r *http.Request) {
	caller, _ := callerFrom(r.Context())
	id, err := pathID(r)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	var req bondTransferRequest
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
	if err := s.ledger.BondTransferClaim(caller, id, claim, to); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.writePosition(w, id)
}

func (s *Server) handleBondAllow(w http.ResponseWriter, r *http.Request) {
	s.updateAuthority(w, r, s.ledger.BondAllow)
}

func (s *Server) handleBondRevoke(w http.ResponseWriter, r *http.Request) {
	s.updateAuthority(w, r, s.ledger.BondRevoke)
}

func (s *Server) updateAuthority(w http.ResponseWriter, r *http.Request, op func(caller, addr [20]byte) error) {
	caller, _ := callerFrom(r.Context())
	var req addressRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	addr, err := parseHolderAddress(req.Address)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	if err := op(caller, addr); err != nil {
		s.writeLedgerError(w, err)
		return
	}
	s.handleBondAuthority(w, r)
}

func (s *Server) writePosition(w http.ResponseWriter, id uint64) {
	pos, err := s.ledger.BondPosition(id)
	if err != nil {
		s.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPositionView(pos))
}
