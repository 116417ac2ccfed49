// Package store sends SPARQL 1.1 Update requests to the semantic store
// over HTTP.
package store

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/wbverify/internal/transport"
	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

const contentType = "application/sparql-update"

// ErrEndpointEmpty is returned by NewClient without an endpoint.
var ErrEndpointEmpty = errors.New("store endpoint must not be empty")

// QueryError is a non-2xx reply to an update. It unwraps to
// types.ErrQueryRejected.
type QueryError struct {
	Status  int
	Message string
	Query   string
}

func (e *QueryError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("store rejected update: status=%d", e.Status)
	}
	return fmt.Sprintf("store rejected update: status=%d message=%s", e.Status, e.Message)
}

func (e *QueryError) Unwrap() error { return types.ErrQueryRejected }

// Options configures a Client.
type Options struct {
	Endpoint   string
	HTTPClient *http.Client  // default: client with Timeout
	Timeout    time.Duration // default: transport.DefaultTimeout
	UserAgent  string
}

// Client implements types.StoreClient against a SPARQL update endpoint.
type Client struct {
	endpoint   string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a Client.
func NewClient(opts Options) (*Client, error) {
	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint == "" {
		return nil, ErrEndpointEmpty
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "wbverify"
	}
	return &Client{
		endpoint:   endpoint,
		httpClient: transport.NewHTTPClient(opts.HTTPClient, opts.Timeout),
		userAgent:  userAgent,
	}, nil
}

// Update renders u and posts it to the endpoint. Invalid updates are never
// sent. A network failure is returned as is (classified for a down
// collaborator); a non-2xx reply is a *QueryError.
func (c *Client) Update(ctx context.Context, u sparql.Update) error {
	if err := u.Validate(); err != nil {
		return fmt.Errorf("invalid update: %w", err)
	}
	query := u.String()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBufferString(query))
	if err != nil {
		return fmt.Errorf("building store request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transport.Classify(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading store response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := transport.Truncate(strings.TrimSpace(string(body)))
		return &QueryError{Status: resp.StatusCode, Message: msg, Query: query}
	}
	return nil
}
