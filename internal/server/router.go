package server

import (
	"net/http"

	"github.com/gorilla/mux"
)

// NewRouter wires the HTTP surface. Everything under /transactions requires
// Basic auth; OPTIONS on any path is answered before auth.
func NewRouter(a *API) http.Handler {
	r := mux.NewRouter()
	// unclean paths get the JSON 404 rather than a bare 301
	r.SkipClean(true)
	r.Use(a.instrument)

	r.Methods(http.MethodOptions).HandlerFunc(a.Preflight)

	r.HandleFunc("/", a.Root).Methods(http.MethodGet)
	r.HandleFunc("/health", a.Health).Methods(http.MethodGet)
	r.HandleFunc("/favicon.ico", a.Favicon).Methods(http.MethodGet)
	r.Handle("/metrics", a.Metrics.Handler()).Methods(http.MethodGet)

	tx := r.PathPrefix("/transactions").Subrouter()
	tx.Use(a.RequireBasicAuth)
	tx.HandleFunc("", a.ListTransactions).Methods(http.MethodGet)
	tx.HandleFunc("", a.CreateTransaction).Methods(http.MethodPost)
	tx.HandleFunc("/{id}", a.GetTransaction).Methods(http.MethodGet)
	tx.HandleFunc("/{id}", a.UpdateTransaction).Methods(http.MethodPut)
	tx.HandleFunc("/{id}", a.DeleteTransaction).Methods(http.MethodDelete)

	// a known path with the wrong method is reported like an unknown path.
	// mux skips Use middleware for these, so they are instrumented here.
	notFound := a.instrument(http.HandlerFunc(a.NotFound))
	r.NotFoundHandler = notFound
	r.MethodNotAllowedHandler = notFound

	return trimSlash(a.observe(r))
}
