package api

import (
	"net/http"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/report"
	"github.com/xraph/cashledger/transaction"
)

func reportQuery(r *http.Request) (cashledger.ReportQuery, error) {
	q := &query{r: r}
	rq := cashledger.ReportQuery{
		Kind:    transaction.Kind(q.str("kind")),
		GroupBy: report.GroupBy(q.str("group_by")),
		DueFrom: q.date("due_from"),
		DueTo:   q.date("due_to"),
		AsOf:    q.date("as_of"),
	}
	return rq, q.err
}

func (s *Server) balances(w http.ResponseWriter, r *http.Request) {
	rq, err := reportQuery(r)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	out, err := s.ledger.Balances(r.Context(), storeFrom(r), rq)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) aging(w http.ResponseWriter, r *http.Request) {
	rq, err := reportQuery(r)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	out, err := s.ledger.Aging(r.Context(), storeFrom(r), rq)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}

func (s *Server) totals(w http.ResponseWriter, r *http.Request) {
	rq, err := reportQuery(r)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	out, err := s.ledger.Totals(r.Context(), storeFrom(r), rq)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, out)
}
