package api

import (
	"net/http"

	"github.com/xraph/cashledger"
	"github.com/xraph/cashledger/id"
	"github.com/xraph/cashledger/party"
)

func (s *Server) createParty(w http.ResponseWriter, r *http.Request) {
	var req createPartyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	p, err := s.ledger.CreateParty(r.Context(), cashledger.CreatePartyInput{
		StoreID:  storeFrom(r),
		Kind:     req.Kind,
		Name:     req.Name,
		Document: req.Document,
		Email:    req.Email,
		Phone:    req.Phone,
		Notes:    req.Notes,
		Metadata: req.Metadata,
		Actor:    actorFrom(r),
	})
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, p)
}

func (s *Server) listParties(w http.ResponseWriter, r *http.Request) {
	q := &query{r: r}
	opts := party.ListOpts{
		Kind:            party.Kind(q.str("kind")),
		Search:          q.str("q"),
		IncludeArchived: q.bool("include_archived"),
		Limit:           q.int("limit"),
		Offset:          q.int("offset"),
	}
	if q.err != nil {
		s.respondWithLedgerError(w, r, q.err)
		return
	}

	list, err := s.ledger.ListParties(r.Context(), storeFrom(r), opts)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

func (s *Server) getParty(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathID(r, id.ParsePartyID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	p, err := s.ledger.GetParty(r.Context(), storeFrom(r), partyID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) updateParty(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathID(r, id.ParsePartyID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	var req updatePartyRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}

	p, err := s.ledger.UpdateParty(r.Context(), cashledger.UpdatePartyInput{
		StoreID:  storeFrom(r),
		PartyID:  partyID,
		Kind:     req.Kind,
		Name:     req.Name,
		Document: req.Document,
		Email:    req.Email,
		Phone:    req.Phone,
		Notes:    req.Notes,
	})
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}

func (s *Server) archiveParty(w http.ResponseWriter, r *http.Request) {
	partyID, err := pathID(r, id.ParsePartyID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	p, err := s.ledger.ArchiveParty(r.Context(), storeFrom(r), partyID)
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, http.StatusOK, p)
}
