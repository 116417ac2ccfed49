// Package transport holds the HTTP plumbing shared by the store and
// extractor clients: client construction, error classification, and
// status-to-error mapping.
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// DefaultTimeout bounds a single collaborator request.
const DefaultTimeout = 20 * time.Second

// NewHTTPClient returns client if non-nil, else a client with timeout (or
// DefaultTimeout when timeout is zero).
func NewHTTPClient(client *http.Client, timeout time.Duration) *http.Client {
	if client != nil {
		return client
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{Timeout: timeout}
}

// Classify marks errors that mean the collaborator is not running at all,
// so the scenario driver can stop contacting it.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return fmt.Errorf("%w: %w", types.ErrCollaboratorDown, err)
	}
	return err
}

// StatusError is a non-2xx response from a collaborator.
type StatusError struct {
	Service string
	Status  int
	Message string
	// Sentinel is the package error the status maps to.
	Sentinel error
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: status=%d", e.Service, e.Status)
	}
	return fmt.Sprintf("%s: status=%d message=%s", e.Service, e.Status, e.Message)
}

func (e *StatusError) Unwrap() error { return e.Sentinel }

// ResponseError builds a StatusError for resp, taking the message from a
// JSON {"message": ...} body when there is one, else the raw body.
func ResponseError(service string, resp *http.Response, body []byte, sentinel error) error {
	msg := strings.TrimSpace(string(body))
	var parsed map[string]any
	if json.Unmarshal(body, &parsed) == nil {
		if m, ok := parsed["message"].(string); ok && strings.TrimSpace(m) != "" {
			msg = m
		}
	}
	return &StatusError{Service: service, Status: resp.StatusCode, Message: Truncate(msg), Sentinel: sentinel}
}

// MaxMessageLen bounds the error message kept from a response body.
const MaxMessageLen = 512

// Truncate shortens msg to at most MaxMessageLen bytes, cutting on a rune
// boundary, and marks the cut with "...".
func Truncate(msg string) string {
	if len(msg) <= MaxMessageLen {
		return msg
	}
	cut := MaxMessageLen
	for cut > 0 && !utf8.RuneStart(msg[cut]) {
		cut--
	}
	return msg[:cut] + "..."
}
