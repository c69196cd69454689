package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/patrickmn/go-cache"
)

// idempotentResponse is a cached response, or an in-flight marker while
// done is false.
type idempotentResponse struct {
	hash   string
	done   bool
	status int
	body   []byte
}

func requestHash(r *http.Request, body []byte) string {
	h := sha256.New()
	h.Write([]byte(r.Method + " " + r.URL.Path + "\n"))
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// idempotent runs fn at most once per Idempotency-Key within a store.
// Repeating a key with the same request replays the first successful
// response. Failed attempts are forgotten so the client may retry them.
// Without the header fn simply runs.
func (s *Server) idempotent(w http.ResponseWriter, r *http.Request, body []byte, fn func() (int, any, error)) {
	key := r.Header.Get(HeaderIdempotencyKey)
	if key == "" {
		s.finish(w, r, fn)
		return
	}

	cacheKey := storeFrom(r) + ":" + key
	hash := requestHash(r, body)

	if err := s.idempotency.Add(cacheKey, &idempotentResponse{hash: hash}, cache.DefaultExpiration); err != nil {
		v, ok := s.idempotency.Get(cacheKey)
		if !ok {
			respondWithError(w, http.StatusConflict, "idempotency_in_progress", "Request with this key is in progress")
			return
		}
		prev := v.(*idempotentResponse) //nolint:errcheck // only responses are stored
		switch {
		case prev.hash != hash:
			respondWithError(w, http.StatusUnprocessableEntity, "idempotency_mismatch", "Idempotency key reused with a different request")
		case !prev.done:
			respondWithError(w, http.StatusConflict, "idempotency_in_progress", "Request with this key is in progress")
		default:
			s.loggerFrom(r).Debug("replaying idempotent response", "key", key, "store_id", storeFrom(r))
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set(HeaderReplayed, "true")
			w.WriteHeader(prev.status)
			_, _ = w.Write(prev.body) //nolint:errcheck // client went away
		}
		return
	}

	status, payload, err := fn()
	if err != nil {
		s.idempotency.Delete(cacheKey)
		s.respondWithLedgerError(w, r, err)
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		s.idempotency.Delete(cacheKey)
		s.respondWithLedgerError(w, r, err)
		return
	}
	s.idempotency.SetDefault(cacheKey, &idempotentResponse{hash: hash, done: true, status: status, body: encoded})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(encoded, '\n')) //nolint:errcheck // client went away
}

func (s *Server) finish(w http.ResponseWriter, r *http.Request, fn func() (int, any, error)) {
	status, payload, err := fn()
	if err != nil {
		s.respondWithLedgerError(w, r, err)
		return
	}
	respondWithJSON(w, status, payload)
}
