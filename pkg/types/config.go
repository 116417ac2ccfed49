package types

import (
	"errors"
	"time"
)

// Config holds everything a verification run needs to reach its
// collaborators and locate its fixtures.
type Config struct {
	Backend    string         `json:"backend" yaml:"backend"`
	BaseDir    string         `json:"base_dir" yaml:"base_dir"`
	DataDir    string         `json:"data_dir" yaml:"data_dir"`
	Store      EndpointConfig `json:"store" yaml:"store"`
	Extractor  EndpointConfig `json:"extractor" yaml:"extractor"`
	Wait       WaitConfig     `json:"wait" yaml:"wait"`
	TagCleanup string         `json:"tag_cleanup" yaml:"tag_cleanup"`
	Log        LogConfig      `json:"log" yaml:"log"`
}

// EndpointConfig locates an HTTP collaborator.
type EndpointConfig struct {
	Endpoint string        `json:"endpoint" yaml:"endpoint"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
}

// WaitConfig selects how the harness waits for writeback to complete.
type WaitConfig struct {
	Policy   string        `json:"policy" yaml:"policy"`
	Timeout  time.Duration `json:"timeout" yaml:"timeout"`
	Interval time.Duration `json:"interval" yaml:"interval"`
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Supported backend names.
const (
	BackendHTTP     = "http"
	BackendLoopback = "loopback"
)

// Supported wait policy names.
const (
	WaitFixed    = "fixed"
	WaitPoll     = "poll"
	WaitFSNotify = "fsnotify"
)

// Supported tag cleanup modes.
const (
	TagCleanupReference = "reference"
	TagCleanupFull      = "full"
)

// DefaultWaitTimeout is the ceiling the harness waits for writeback when
// nothing else is configured.
const DefaultWaitTimeout = 5 * time.Second

// Config validation errors.
var (
	ErrBackendEmpty       = errors.New("backend must not be empty")
	ErrBackendUnknown     = errors.New("unknown backend")
	ErrEndpointMissing    = errors.New("endpoint is required for the http backend")
	ErrBaseDirEmpty       = errors.New("base dir must not be empty")
	ErrWaitPolicyUnknown  = errors.New("unknown wait policy")
	ErrWaitTimeoutInvalid = errors.New("wait timeout must not be negative")
	ErrTagCleanupUnknown  = errors.New("unknown tag cleanup mode")
)

var knownBackends = map[string]bool{
	BackendHTTP:     true,
	BackendLoopback: true,
}

var knownWaitPolicies = map[string]bool{
	"":           true,
	WaitFixed:    true,
	WaitPoll:     true,
	WaitFSNotify: true,
}

var knownTagCleanups = map[string]bool{
	"":                  true,
	TagCleanupReference: true,
	TagCleanupFull:      true,
}

// Validate checks that the Config is well-formed. It returns a sentinel
// error from this package on failure.
func (c Config) Validate() error {
	if c.Backend == "" {
		return ErrBackendEmpty
	}
	if !knownBackends[c.Backend] {
		return ErrBackendUnknown
	}
	if c.BaseDir == "" {
		return ErrBaseDirEmpty
	}
	if c.Backend == BackendHTTP && (c.Store.Endpoint == "" || c.Extractor.Endpoint == "") {
		return ErrEndpointMissing
	}
	if !knownWaitPolicies[c.Wait.Policy] {
		return ErrWaitPolicyUnknown
	}
	if c.Wait.Timeout < 0 || c.Wait.Interval < 0 {
		return ErrWaitTimeoutInvalid
	}
	if !knownTagCleanups[c.TagCleanup] {
		return ErrTagCleanupUnknown
	}
	return nil
}

// WaitTimeout returns the configured ceiling, or DefaultWaitTimeout.
func (c Config) WaitTimeout() time.Duration {
	if c.Wait.Timeout == 0 {
		return DefaultWaitTimeout
	}
	return c.Wait.Timeout
}
