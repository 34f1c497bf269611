package rpc

import (
	"encoding/json"
	"errors"
	"net/http"

	yerrors "yieldsplit/core/errors"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

var errBadRequest = errors.New("bad request")

// statusForKind maps a ledger error kind to an HTTP status.
func statusForKind(kind string) int {
	switch kind {
	case yerrors.KindUnauthorized, yerrors.KindNotPrincipalOwner, yerrors.KindNotYieldOwner:
		return http.StatusForbidden
	case yerrors.KindNotFound:
		return http.StatusNotFound
	case yerrors.KindInvalidAmount, yerrors.KindInvalidTerm:
		return http.StatusBadRequest
	case yerrors.KindNotMatured, yerrors.KindAlreadyMatured, yerrors.KindAlreadyRedeemed,
		yerrors.KindAlreadyCombined, yerrors.KindNotInitialized, yerrors.KindAlreadyInitialized,
		yerrors.KindNoYieldSupply, yerrors.KindAlreadyConfigured, yerrors.KindPaused:
		return http.StatusConflict
	case yerrors.KindStaleData:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

// writeLedgerError renders err using its kind. Internal failures do not echo
// their message to the client.
func (s *Server) writeLedgerError(w http.ResponseWriter, err error) {
	if errors.Is(err, errBadRequest) {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	kind := yerrors.Kind(err)
	status := statusForKind(kind)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		writeError(w, status, yerrors.KindInternal, "")
		return
	}
	writeError(w, status, kind, err.Error())
}
