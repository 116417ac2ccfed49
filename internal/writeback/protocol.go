// Package writeback verifies that metadata written to the semantic store
// is propagated into the file on disk and can be read back by the
// extractor.
//
// Every check follows the same protocol: reset the property to a known
// state, write a probe value through the store, wait for the asynchronous
// writeback, re-extract the file, assert, and always clean up afterwards.
package writeback

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/wbverify/pkg/sparql"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// CleanMode selects how a failing clean is reported.
type CleanMode int

const (
	// CleanBestEffort is used before a check; failure is expected when no
	// value existed and is only logged by the protocol.
	CleanBestEffort CleanMode = iota
	// CleanStrict is used after a check; failure risks leaking state into
	// later scenarios.
	CleanStrict
)

// TagCleanup selects what the relation check retracts when it finishes.
type TagCleanup int

const (
	// TagCleanupReference retracts the relation edge and the tag's
	// rdfs:Resource type, leaving the nao:Tag type and label that the
	// insertion declared to the store's resource semantics.
	TagCleanupReference TagCleanup = iota
	// TagCleanupFull also retracts the nao:Tag type and the label.
	TagCleanupFull
)

// ParseTagCleanup maps a configuration value to a TagCleanup.
func ParseTagCleanup(s string) (TagCleanup, error) {
	switch s {
	case "", types.TagCleanupReference:
		return TagCleanupReference, nil
	case types.TagCleanupFull:
		return TagCleanupFull, nil
	default:
		return 0, fmt.Errorf("%w: %q", types.ErrTagCleanupUnknown, s)
	}
}

// Options configures a Protocol.
type Options struct {
	Store      types.StoreClient
	Extractor  types.Extractor
	Wait       WaitPolicy  // default: FixedDelay of types.DefaultWaitTimeout
	Logger     *zap.Logger // default: no-op
	TagCleanup TagCleanup
}

// Protocol runs writeback checks against one store and one extractor.
// It is not safe for concurrent use on the same file and property.
type Protocol struct {
	store      types.StoreClient
	extractor  types.Extractor
	wait       WaitPolicy
	logger     *zap.Logger
	tagCleanup TagCleanup
}

// New creates a Protocol. Store and Extractor are required.
func New(opts Options) *Protocol {
	wait := opts.Wait
	if wait == nil {
		wait = FixedDelay{Delay: types.DefaultWaitTimeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Protocol{
		store:      opts.Store,
		extractor:  opts.Extractor,
		wait:       wait,
		logger:     logger,
		tagCleanup: opts.TagCleanup,
	}
}

// Observation is what a check saw. It is returned even when the check
// fails so callers can report the extracted values and cleanup status.
type Observation struct {
	File types.TestFile
	Key  string
	Want string
	Got  []string

	// CleanupErr is set when the post-condition cleanup failed. It never
	// replaces the verification error.
	CleanupErr error
}

// Clean removes every value of property from the resource whose nie:url is
// fileURI. It touches the store only. A failure is returned as a
// *CleanupError whose sentinel depends on mode.
func (p *Protocol) Clean(ctx context.Context, property, fileURI string, mode CleanMode) error {
	prop := types.Property{Name: property}
	err := prop.Validate()
	if err == nil {
		err = p.store.Update(ctx, cleanQuery(prop.Predicate(), fileURI))
	}
	if err != nil {
		return &CleanupError{Property: property, URI: fileURI, Strict: mode == CleanStrict, Err: err}
	}
	return nil
}

// VerifyScalar writes the probe value of prop to file through the store and
// checks that the extractor reports it as the first value under prop.Key().
//
// Errors match types.ErrAssertionMismatch when the values differ and
// types.ErrTransportFault when a collaborator failed. The post-condition
// cleanup runs in every case, including after a failed assertion.
func (p *Protocol) VerifyScalar(ctx context.Context, file types.TestFile, prop types.Property) (*Observation, error) {
	if err := prop.Validate(); err != nil {
		return nil, err
	}
	obs := &Observation{File: file, Key: prop.Key(), Want: types.ProbeValue(prop.Name)}
	log := p.logger.With(zap.String("file", file.URI), zap.String("property", prop.Name))

	if err := p.Clean(ctx, prop.Name, file.URI, CleanBestEffort); err != nil {
		log.Warn("pre-condition cleanup failed", zap.Error(err))
	}
	defer func() {
		if err := p.Clean(context.WithoutCancel(ctx), prop.Name, file.URI, CleanStrict); err != nil {
			obs.CleanupErr = err
			log.Error("post-condition cleanup failed", zap.Error(err))
		}
	}()

	check := func(md types.Metadata) error {
		got, ok := md.First(obs.Key)
		if !ok || got != obs.Want {
			return &MismatchError{Key: obs.Key, Want: obs.Want, Got: md[obs.Key]}
		}
		return nil
	}

	log.Debug("writing probe value", zap.String("value", obs.Want))
	return p.run(ctx, log, obs, setQuery(prop.Predicate(), obs.Want, file.URI), check)
}

// VerifyTagRelation relates file to the test tag and checks that the tag
// label is among the values the extractor reports under types.KeyTagLabel.
// Other tags may coexist, so only membership is asserted.
func (p *Protocol) VerifyTagRelation(ctx context.Context, file types.TestFile) (*Observation, error) {
	obs := &Observation{File: file, Key: types.KeyTagLabel, Want: types.TagLabel}
	log := p.logger.With(zap.String("file", file.URI), zap.String("property", sparql.NAOHasTag.Value))

	// A relation left over from an interrupted run would make the check
	// pass without any writeback happening.
	if err := p.store.Update(ctx, untagEdgeQuery(file.URI)); err != nil {
		log.Warn("pre-condition cleanup failed", zap.Error(&CleanupError{
			Property: sparql.NAOHasTag.Value, URI: file.URI, Err: err,
		}))
	}
	defer func() {
		if err := p.cleanTag(context.WithoutCancel(ctx), file.URI); err != nil {
			obs.CleanupErr = err
			log.Error("post-condition cleanup failed", zap.Error(err))
		}
	}()

	check := func(md types.Metadata) error {
		if !md.Contains(obs.Key, obs.Want) {
			return &MismatchError{Key: obs.Key, Want: obs.Want, Got: md[obs.Key], Membership: true}
		}
		return nil
	}

	log.Debug("relating file to tag", zap.String("tag", types.TagIRI))
	return p.run(ctx, log, obs, tagQuery(file.URI), check)
}

// run performs mutate, wait, extract and assert for one check.
func (p *Protocol) run(ctx context.Context, log *zap.Logger, obs *Observation, mutation sparql.Update, check func(types.Metadata) error) (*Observation, error) {
	file := obs.File
	target := Target{
		Path: file.Path,
		Ready: func(ctx context.Context) (bool, error) {
			md, err := p.extractor.GetMetadata(ctx, file.URI, file.MediaType)
			if err != nil {
				return false, err
			}
			return check(md) == nil, nil
		},
	}

	waiter, err := p.wait.Arm(ctx, target)
	if err != nil {
		return obs, fmt.Errorf("arming wait: %w", err)
	}
	defer waiter.Close()

	if err := p.store.Update(ctx, mutation); err != nil {
		return obs, fault("update", err)
	}
	if err := waiter.Wait(ctx); err != nil {
		return obs, fmt.Errorf("waiting for writeback: %w", err)
	}

	md, err := p.extractor.GetMetadata(ctx, file.URI, file.MediaType)
	if err != nil {
		return obs, fault("extract", err)
	}
	obs.Got = md[obs.Key]

	if err := check(md); err != nil {
		log.Debug("assertion failed", zap.Strings("got", obs.Got))
		return obs, err
	}
	return obs, nil
}

// cleanTag issues the tag cleanup updates for the configured mode and
// stops at the first failure.
func (p *Protocol) cleanTag(ctx context.Context, fileURI string) error {
	for _, u := range tagCleanupQueries(p.tagCleanup) {
		if err := p.store.Update(ctx, u); err != nil {
			return &CleanupError{Property: sparql.NAOHasTag.Value, URI: fileURI, Strict: true, Err: err}
		}
	}
	return nil
}
