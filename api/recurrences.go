package api

import (
	"context"
	"net/http"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/recurrence"
)

func (s *Server) createRecurrence(w http.ResponseWriter, r *http.Request) {
	var req createRecurrenceRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	amount, err := parseAmount(req.Amount, req.Currency)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	rec, err := s.ledger.CreateRecurrence(r.Context(), cashledger.CreateRecurrenceInput{
		StoreID:        storeFrom(r),
		Kind:           req.Kind,
		Description:    req.Description,
		Amount:         amount,
		Frequency:      req.Frequency,
		StartDate:      req.StartDate,
		EndDate:        req.EndDate.Ptr(),
		AnchorDay:      req.AnchorDay,
		CounterpartyID: req.CounterpartyID,
		Category:       req.Category,
		CostCenter:     req.CostCenter,
		Tags:           req.Tags,
		Metadata:       req.Metadata,
		Actor:          actorFrom(r),
	})
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, rec)
}

func (s *Server) listRecurrences(w http.ResponseWriter, r *http.Request) {
	q := &query{r: r}
	opts := recurrence.ListOpts{
		Status: recurrence.Status(q.str("status")),
		Limit:  q.int("limit"),
		Offset: q.int("offset"),
	}
	if q.err != nil {
		s.respondWithLedgerError(w, r, q.err)
		return
	}

	list, err := s.ledger.ListRecurrences(r.Context(), storeFrom(r), opts)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (s *Server) getRecurrence(w http.ResponseWriter, r *http.Request) {
	s.recurrenceAction(w, r, s.ledger.GetRecurrence)
}

func (s *Server) pauseRecurrence(w http.ResponseWriter, r *http.Request) {
	s.recurrenceAction(w, r, s.ledger.PauseRecurrence)
}

func (s *Server) resumeRecurrence(w http.ResponseWriter, r *http.Request) {
	s.recurrenceAction(w, r, s.ledger.ResumeRecurrence)
}

func (s *Server) finishRecurrence(w http.ResponseWriter, r *http.Request) {
	s.recurrenceAction(w, r, s.ledger.FinishRecurrence)
}

type recurrenceFunc func(ctx context.Context, storeID string, recID id.RecurrenceID) (*recurrence.Recurrence, error)

func (s *Server) recurrenceAction(w http.ResponseWriter, r *http.Request, fn recurrenceFunc) {
	recID, err := pathID(r, id.ParseRecurrenceID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	rec, err := fn(r.Context(), storeFrom(r), recID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, rec)
}

func (s *Server) advanceRecurrence(w http.ResponseWriter, r *http.Request) {
	recID, err := pathID(r, id.ParseRecurrenceID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	var req advanceRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	res, err := s.ledger.AdvanceRecurrence(r.Context(), storeFrom(r), recID, req.AsOf)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, res)
}

// advanceDue runs one scheduler pass. Per-recurrence failures are
// reported in the summary rather than failing the request.
func (s *Server) advanceDue(w http.ResponseWriter, r *http.Request) {
	var req advanceRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	summary, err := s.ledger.AdvanceDue(r.Context(), req.AsOf)
	if err != nil {
		s.loggerFrom(r).Warn("scheduler run had failures", "failed", summary.Failed, "error", err)
	}
	respondWithJSON(w, http.StatusOK, summary)
}
