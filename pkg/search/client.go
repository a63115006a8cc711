// Package search is a thin Elasticsearch REST client covering the index, alias
// and bulk administration calls needed to migrate an index behind an alias.
package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/beam-cloud/searchmigrate/pkg/types"
	"github.com/rs/zerolog/log"
)

// Config holds configuration for the Elasticsearch client
type Config struct {
	URL          string // e.g., "http://localhost:9200"
	Username     string
	Password     string
	AdminTimeout time.Duration // per administrative call
	BulkTimeout  time.Duration // per bulk write
	// ReindexTimeout bounds a synchronous _reindex call
	ReindexTimeout time.Duration
	HTTPClient     *http.Client
}

// ConfigFromApp maps the application search config onto client config
func ConfigFromApp(cfg types.SearchConfig) Config {
	return Config{
		URL:            cfg.URL,
		Username:       cfg.Username,
		Password:       cfg.Password,
		AdminTimeout:   cfg.AdminTimeout,
		BulkTimeout:    cfg.BulkTimeout,
		ReindexTimeout: cfg.ReindexTimeout,
	}
}

// Client talks to a single Elasticsearch cluster
type Client struct {
	baseURL        string
	username       string
	password       string
	adminTimeout   time.Duration
	bulkTimeout    time.Duration
	reindexTimeout time.Duration
	httpClient     *http.Client
}

// NewClient creates a new Elasticsearch client
func NewClient(cfg Config) *Client {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:9200"
	}
	if cfg.AdminTimeout == 0 {
		cfg.AdminTimeout = 30 * time.Second
	}
	if cfg.BulkTimeout == 0 {
		cfg.BulkTimeout = 60 * time.Second
	}
	if cfg.ReindexTimeout == 0 {
		cfg.ReindexTimeout = 30 * time.Minute
	}
	if cfg.HTTPClient == nil {
		// Deadlines are set per call through the request context
		cfg.HTTPClient = &http.Client{}
	}

	return &Client{
		baseURL:        strings.TrimSuffix(cfg.URL, "/"),
		username:       cfg.Username,
		password:       cfg.Password,
		adminTimeout:   cfg.AdminTimeout,
		bulkTimeout:    cfg.BulkTimeout,
		reindexTimeout: cfg.ReindexTimeout,
		httpClient:     cfg.HTTPClient,
	}
}

// Ping checks that the cluster answers
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.do(ctx, c.adminTimeout, "ping", http.MethodGet, "/", "", nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// errorBody is the error envelope Elasticsearch returns on non-2xx responses.
// "error" is an object for most failures and a plain string for some 404s.
type errorBody struct {
	Error  json.RawMessage `json:"error"`
	Status int             `json:"status"`
}

type errorDetail struct {
	Type   string `json:"type"`
	Reason string `json:"reason"`
}

// parseError builds a typed backend error from a failed response
func parseError(op string, resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))

	backendErr := &types.ErrBackend{Op: op, Status: resp.StatusCode}

	var envelope errorBody
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		backendErr.Reason = strings.TrimSpace(string(body))
		return backendErr
	}

	var detail errorDetail
	if err := json.Unmarshal(envelope.Error, &detail); err == nil {
		backendErr.Type = detail.Type
		backendErr.Reason = detail.Reason
		return backendErr
	}

	var reason string
	if err := json.Unmarshal(envelope.Error, &reason); err == nil {
		backendErr.Reason = reason
		return backendErr
	}

	backendErr.Reason = string(envelope.Error)
	return backendErr
}

// do issues a request with its own timeout. Transport failures (including the
// timeout) become ErrTransport; non-2xx responses become ErrBackend. On success
// the caller owns resp.Body.
func (c *Client) do(ctx context.Context, timeout time.Duration, op, method, path, contentType string, body []byte) (*http.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build %s request: %w", op, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if c.username != "" {
		req.SetBasicAuth(c.username, c.password)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		cancel()
		return nil, &types.ErrTransport{Op: op, Err: err}
	}

	log.Debug().
		Str("op", op).
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("duration", time.Since(start)).
		Msg("elasticsearch request")

	if resp.StatusCode >= 400 {
		defer cancel()
		defer resp.Body.Close()
		return nil, parseError(op, resp)
	}

	resp.Body = &cancelOnClose{ReadCloser: resp.Body, cancel: cancel}
	return resp, nil
}

// doJSON sends a JSON body (may be nil) and decodes the response into out (may be nil)
func (c *Client) doJSON(ctx context.Context, timeout time.Duration, op, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		var err error
		body, err = json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", op, err)
		}
	}

	resp, err := c.do(ctx, timeout, op, method, path, "application/json", body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &types.ErrTransport{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

// cancelOnClose releases the per-call context once the body is consumed
type cancelOnClose struct {
	io.ReadCloser
	cancel context.CancelFunc
}

func (c *cancelOnClose) Close() error {
	err := c.ReadCloser.Close()
	c.cancel()
	return err
}
