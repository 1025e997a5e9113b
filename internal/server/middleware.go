package server

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"momoapi/internal/shared"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

const requestIDHeader = "X-Request-Id"

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// trimSlash lets "/transactions/" and "/transactions/1/" route like their
// slash-less forms.
func trimSlash(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if p := r.URL.Path; len(p) > 1 && strings.HasSuffix(p, "/") {
			r.URL.Path = strings.TrimRight(p, "/")
			if r.URL.Path == "" {
				r.URL.Path = "/"
			}
		}
		next.ServeHTTP(w, r)
	})
}

// observe tags the request with an id, turns panics into a JSON 500 and
// writes the access log line for /transactions requests.
func (a *API) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)

		rec := &statusRecorder{ResponseWriter: w}
		defer func() {
			if p := recover(); p != nil {
				a.Log.Errorw("handler panic", "request_id", reqID, "path", r.URL.Path, "panic", p)
				if rec.status == 0 {
					writeError(rec, http.StatusInternalServerError, shared.CodeServerError, "internal error")
				}
			}
			if strings.HasPrefix(r.URL.Path, "/transactions") {
				a.Log.Infow(accessLine(r, rec.code(), time.Now()), "request_id", reqID)
			}
		}()
		next.ServeHTTP(rec, r)
	})
}

// instrument runs inside the router so the matched route template is known.
func (a *API) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		route := "other"
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)
		a.Metrics.observeRequest(r.Method, route, rec.code(), time.Since(start))
	})
}

func accessLine(r *http.Request, code int, at time.Time) string {
	client := r.RemoteAddr
	if host, _, err := net.SplitHostPort(client); err == nil {
		client = host
	}
	if client == "" {
		client = "-"
	}
	return fmt.Sprintf(`%s - - [%s] "%s %s %s" %d -`,
		client, at.Format("02/Jan/2006 15:04:05"), r.Method, r.URL.Path, r.Proto, code)
}
