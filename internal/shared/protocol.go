package shared

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Record is one transaction/SMS entry. Apart from "id" the fields are opaque.
type Record map[string]any

const (
	FieldID        = "id"
	FieldTimestamp = "timestamp"

	TimestampLayout = "2006-01-02 15:04:05"
)

// Error codes carried in the "error" field of every failure body.
const (
	CodeInvalidID    = "invalid_id"
	CodeInvalidBody  = "invalid_body"
	CodeNotFound     = "not_found"
	CodeUnauthorized = "unauthorized"
	CodeServerError  = "server_error"
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

// ListEnvelope wraps list results when the server runs with the "data" envelope.
type ListEnvelope struct {
	Data    []Record `json:"data"`
	Count   int      `json:"count"`
	Message string   `json:"message"`
}

type DeleteResponse struct {
	Status string `json:"status"`
	ID     int64  `json:"id"`
}

// ID returns the record's id if it coerces to a positive integer.
func (r Record) ID() (int64, bool) {
	return CoerceID(r[FieldID])
}

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// CoerceID accepts JSON integers (as json.Number or float64), integral floats
// and numeric strings.
func CoerceID(v any) (int64, bool) {
	var n int64
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			n = i
		} else if f, err := t.Float64(); err == nil && f == math.Trunc(f) && math.Abs(f) < 1<<53 {
			n = int64(f)
		} else {
			return 0, false
		}
	case float64:
		if t != math.Trunc(t) || math.Abs(t) >= 1<<53 {
			return 0, false
		}
		n = int64(t)
	case int:
		n = int64(t)
	case int64:
		n = t
	case string:
		i, err := strconv.ParseInt(strings.TrimSpace(t), 10, 64)
		if err != nil {
			return 0, false
		}
		n = i
	default:
		return 0, false
	}
	if n <= 0 {
		return 0, false
	}
	return n, true
}
