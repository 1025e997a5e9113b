package server

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
)

const maxBodyBytes = 2 << 20

var errInvalidBody = errors.New("request body must be a JSON object")

func setCORS(h http.Header) {
	h.Set("Access-Control-Allow-Origin", "*")
	h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
	h.Set("Access-Control-Allow-Headers", "Authorization, Content-Type")
}

// writeJSON is the only way handlers emit a body: UTF-8 JSON with an exact
// Content-Length and permissive CORS headers.
func writeJSON(w http.ResponseWriter, code int, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		code = http.StatusInternalServerError
		b, _ = json.Marshal(shared.ErrorResponse{Error: shared.CodeServerError, Message: "response encoding failed"})
	}
	h := w.Header()
	setCORS(h)
	h.Set("Content-Type", "application/json; charset=utf-8")
	h.Set("Content-Length", strconv.Itoa(len(b)))
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

func writeError(w http.ResponseWriter, code int, errCode, message string) {
	writeJSON(w, code, shared.ErrorResponse{Error: errCode, Message: message})
}

func readBody(r *http.Request) ([]byte, error) {
	defer r.Body.Close()
	return io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
}

// decodeRecord accepts exactly one JSON object. Numbers stay json.Number so
// amounts round-trip without float rounding.
func decodeRecord(body []byte) (shared.Record, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, errors.Wrap(errInvalidBody, "empty body")
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, errors.Wrap(errInvalidBody, err.Error())
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.Wrap(errInvalidBody, "trailing data after object")
	}
	obj, ok := v.(map[string]any)
	if !ok {
		return nil, errInvalidBody
	}
	return shared.Record(obj), nil
}
