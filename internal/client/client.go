// Package client talks to a running transactions API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"momoapi/internal/shared"

	"github.com/pkg/errors"
)

// APIError is returned for any non-2xx response.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Code)
}

// IsNotFound reports whether err is a 404 from the server.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	BaseURL  string
	Username string
	Password string
	HTTP     *http.Client
}

func New(cfg *shared.ClientConfig) *Client {
	return &Client{
		BaseURL:  strings.TrimRight(cfg.ServerURL, "/"),
		Username: cfg.Username,
		Password: cfg.Password,
		HTTP:     &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second},
	}
}

// List returns every record. Both the bare array and the {data,count} envelope
// are understood.
func (c *Client) List(ctx context.Context) ([]shared.Record, error) {
	raw, err := c.do(ctx, http.MethodGet, "/transactions", nil)
	if err != nil {
		return nil, err
	}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var env shared.ListEnvelope
		if err := decode(trimmed, &env); err != nil {
			return nil, err
		}
		return env.Data, nil
	}
	var out []shared.Record
	if err := decode(trimmed, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, id int64) (shared.Record, error) {
	return c.record(ctx, http.MethodGet, id, nil)
}

func (c *Client) Create(ctx context.Context, rec shared.Record) (shared.Record, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	raw, err := c.do(ctx, http.MethodPost, "/transactions", body)
	if err != nil {
		return nil, err
	}
	var out shared.Record
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Update(ctx context.Context, id int64, rec shared.Record) (shared.Record, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return c.record(ctx, http.MethodPut, id, body)
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, "/transactions/"+strconv.FormatInt(id, 10), nil)
	return err
}

func (c *Client) record(ctx context.Context, method string, id int64, body []byte) (shared.Record, error) {
	raw, err := c.do(ctx, method, "/transactions/"+strconv.FormatInt(id, 10), body)
	if err != nil {
		return nil, err
	}
	var out shared.Record
	if err := decode(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) ([]byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return nil, err
	}
	req.SetBasicAuth(c.Username, c.Password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Code: http.StatusText(resp.StatusCode)}
		var er shared.ErrorResponse
		if json.Unmarshal(b, &er) == nil && er.Error != "" {
			apiErr.Code = er.Error
			apiErr.Message = er.Message
		}
		return nil, apiErr
	}
	return b, nil
}

func decode(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return errors.Wrap(dec.Decode(v), "decode response")
}
