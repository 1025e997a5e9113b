package server

import (
	"net/http"
	"strconv"

	"momoapi/internal/shared"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type API struct {
	Store       Repository
	Credentials shared.Credentials
	Envelope    string
	Log         *zap.SugaredLogger
	Metrics     *Metrics
}

func (a *API) ListTransactions(w http.ResponseWriter, r *http.Request) {
	records, err := a.Store.List()
	if err != nil {
		a.storeError(w, r, err)
		return
	}
	if records == nil {
		records = Collection{}
	}
	if a.Envelope == shared.EnvelopeData {
		writeJSON(w, http.StatusOK, shared.ListEnvelope{
			Data:    records,
			Count:   len(records),
			Message: "ok",
		})
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) GetTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := a.Store.Get(id)
	if err != nil {
		a.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	body, ok := a.recordBody(w, r)
	if !ok {
		return
	}
	rec, err := a.Store.Create(body)
	if err != nil {
		a.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	body, ok := a.recordBody(w, r)
	if !ok {
		return
	}
	rec, err := a.Store.Update(id, body)
	if err != nil {
		a.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := a.Store.Delete(id); err != nil {
		a.storeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared.DeleteResponse{Status: "deleted", ID: id})
}

// Preflight answers any OPTIONS request without authentication.
func (a *API) Preflight(w http.ResponseWriter, _ *http.Request) {
	setCORS(w.Header())
	w.Header().Set("Access-Control-Max-Age", "600")
	w.Header().Set("Content-Length", "0")
	w.WriteHeader(http.StatusOK)
}

func (a *API) Root(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"message":   "MoMo Transactions API is running",
		"endpoints": []string{"/transactions", "/transactions/{id}", "/health", "/metrics"},
	})
}

func (a *API) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (a *API) Favicon(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) NotFound(w http.ResponseWriter, _ *http.Request) {
	writeError(w, http.StatusNotFound, shared.CodeNotFound, "no such resource")
}

func (a *API) recordBody(w http.ResponseWriter, r *http.Request) (shared.Record, bool) {
	b, err := readBody(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, shared.CodeInvalidBody, "could not read request body")
		return nil, false
	}
	rec, err := decodeRecord(b)
	if err != nil {
		a.Log.Debugw("rejected body", "path", r.URL.Path, "err", err)
		writeError(w, http.StatusBadRequest, shared.CodeInvalidBody, "invalid json body")
		return nil, false
	}
	return rec, true
}

func (a *API) storeError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, shared.CodeNotFound, "transaction not found")
		return
	}
	a.Log.Errorw("store failure", "method", r.Method, "path", r.URL.Path, "err", err)
	writeError(w, http.StatusInternalServerError, shared.CodeServerError, "could not access transaction store")
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, shared.CodeInvalidID, "id must be an integer")
		return 0, false
	}
	return id, true
}
