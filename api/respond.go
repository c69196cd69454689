package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xraph/cashledger"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// errorCodes maps ledger errors to stable machine-readable codes, most
// specific first.
var errorCodes = []struct {
	err    error
	status int
	code   string
}{
	{cashledger.ErrCrossStoreAccess, http.StatusForbidden, "cross_store_access"},
	{cashledger.ErrInvalidAmount, http.StatusUnprocessableEntity, "invalid_amount"},
	{cashledger.ErrInvalidCurrency, http.StatusUnprocessableEntity, "invalid_currency"},
	{cashledger.ErrKindMismatch, http.StatusUnprocessableEntity, "kind_mismatch"},
	{cashledger.ErrOverpaymentRejected, http.StatusConflict, "overpayment_rejected"},
	{cashledger.ErrAlreadySettled, http.StatusConflict, "already_settled"},
	{cashledger.ErrHasPayments, http.StatusConflict, "has_payments"},
	{cashledger.ErrTransactionCanceled, http.StatusConflict, "transaction_canceled"},
	{cashledger.ErrInvalidReversal, http.StatusConflict, "invalid_reversal"},
	{cashledger.ErrRecurrenceNotActive, http.StatusConflict, "recurrence_not_active"},
	{cashledger.ErrPartyArchived, http.StatusConflict, "party_archived"},
	{cashledger.ErrAlreadyExists, http.StatusConflict, "already_exists"},
	{cashledger.ErrNotFound, http.StatusNotFound, "not_found"},
	{cashledger.ErrInvalidInput, http.StatusBadRequest, "invalid_input"},
	{cashledger.ErrStoreClosed, http.StatusServiceUnavailable, "unavailable"},
}

// respondWithLedgerError writes the response for an error returned by the
// ledger. Unknown errors are logged and hidden behind a 500.
func (s *Server) respondWithLedgerError(w http.ResponseWriter, r *http.Request, err error) {
	for _, m := range errorCodes {
		if errors.Is(err, m.err) {
			respondWithError(w, m.status, m.code, err.Error())
			return
		}
	}
	s.loggerFrom(r).Error("request failed", "path", r.URL.Path, "error", err)
	respondWithError(w, http.StatusInternalServerError, "internal", "Internal Server Error")
}

func respondWithError(w http.ResponseWriter, status int, code, message string) {
	respondWithJSON(w, status, errorBody{Error: message, Code: code})
}

func respondWithJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload) //nolint:errcheck // client went away
	}
}
