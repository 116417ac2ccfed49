// Package extract reads embedded file metadata from the extractor service
// over HTTP.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mesh-intelligence/wbverify/internal/transport"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// ErrEndpointEmpty is returned by NewClient without an endpoint.
var ErrEndpointEmpty = errors.New("extractor endpoint must not be empty")

// Options configures a Client.
type Options struct {
	Endpoint   string
	HTTPClient *http.Client  // default: client with Timeout
	Timeout    time.Duration // default: transport.DefaultTimeout
	UserAgent  string
}

// Client implements types.Extractor against the extractor's metadata
// endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
}

// NewClient creates a Client.
func NewClient(opts Options) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.Endpoint), "/")
	if base == "" {
		return nil, ErrEndpointEmpty
	}
	userAgent := opts.UserAgent
	if userAgent == "" {
		userAgent = "wbverify"
	}
	return &Client{
		baseURL:    base,
		httpClient: transport.NewHTTPClient(opts.HTTPClient, opts.Timeout),
		userAgent:  userAgent,
	}, nil
}

type metadataRequest struct {
	URI      string `json:"uri"`
	MimeType string `json:"mime_type"`
}

type metadataResponse struct {
	Metadata types.Metadata `json:"metadata"`
}

// GetMetadata asks the extractor for the metadata embedded in the file at
// fileURI. The response must match the metadata schema, otherwise the
// error wraps types.ErrInvalidMetadata.
func (c *Client) GetMetadata(ctx context.Context, fileURI, mimeType string) (types.Metadata, error) {
	payload, err := json.Marshal(metadataRequest{URI: fileURI, MimeType: mimeType})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/metadata", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building extractor request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transport.Classify(err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading extractor response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, transport.ResponseError("extractor", resp, body, types.ErrFileNotFound)
	case resp.StatusCode == http.StatusUnsupportedMediaType:
		return nil, transport.ResponseError("extractor", resp, body, types.ErrUnsupportedMedia)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, transport.ResponseError("extractor", resp, body, types.ErrTransportFault)
	}

	if err := validateResponse(body); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidMetadata, err)
	}
	var decoded metadataResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidMetadata, err)
	}
	if decoded.Metadata == nil {
		decoded.Metadata = types.Metadata{}
	}
	return decoded.Metadata, nil
}
