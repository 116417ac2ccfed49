package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/wbverify/internal/extract"
	"github.com/mesh-intelligence/wbverify/internal/loopback"
	"github.com/mesh-intelligence/wbverify/internal/paths"
	"github.com/mesh-intelligence/wbverify/internal/scenario"
	"github.com/mesh-intelligence/wbverify/internal/store"
	"github.com/mesh-intelligence/wbverify/internal/writeback"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// collaborators holds the store and extractor a run talks to.
type collaborators struct {
	store     types.StoreClient
	extractor types.Extractor
	close     func() error
}

// openCollaborators builds the collaborators for cfg.Backend. The loopback
// backend keeps its triples in stateDir and indexes files up front.
func openCollaborators(ctx context.Context, cfg types.Config, stateDir string, files []types.TestFile, logger *zap.Logger) (*collaborators, error) {
	switch cfg.Backend {
	case types.BackendHTTP:
		sc, err := store.NewClient(store.Options{Endpoint: cfg.Store.Endpoint, Timeout: cfg.Store.Timeout})
		if err != nil {
			return nil, err
		}
		ec, err := extract.NewClient(extract.Options{Endpoint: cfg.Extractor.Endpoint, Timeout: cfg.Extractor.Timeout})
		if err != nil {
			return nil, err
		}
		return &collaborators{store: sc, extractor: ec, close: func() error { return nil }}, nil

	case types.BackendLoopback:
		b, err := loopback.New(loopback.Options{DataDir: stateDir, Logger: logger.Named("loopback")})
		if err != nil {
			return nil, err
		}
		if err := b.Index(ctx, files); err != nil {
			b.Close()
			return nil, err
		}
		return &collaborators{store: b, extractor: b.Extractor(), close: b.Close}, nil

	default:
		return nil, fmt.Errorf("%w: %q", types.ErrBackendUnknown, cfg.Backend)
	}
}

// loopbackStateDir is where the loopback store lives between runs.
func loopbackStateDir() (string, error) {
	dir, err := paths.DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "loopback"), nil
}

// verify runs set against the collaborators configured in cfg.
func verify(ctx context.Context, cfg types.Config, stateDir string, set []scenario.Scenario, logger *zap.Logger) (*scenario.Report, error) {
	if err := checkFixtures(set); err != nil {
		return nil, err
	}
	wait, err := writeback.NewWaitPolicy(cfg.Wait)
	if err != nil {
		return nil, err
	}
	tagCleanup, err := writeback.ParseTagCleanup(cfg.TagCleanup)
	if err != nil {
		return nil, err
	}

	c, err := openCollaborators(ctx, cfg, stateDir, uniqueFiles(set), logger)
	if err != nil {
		return nil, fmt.Errorf("opening %s backend: %w", cfg.Backend, err)
	}

	p := writeback.New(writeback.Options{
		Store:      c.store,
		Extractor:  c.extractor,
		Wait:       wait,
		Logger:     logger.Named("writeback"),
		TagCleanup: tagCleanup,
	})
	report := scenario.NewDriver(p, logger.Named("driver")).Run(ctx, set)

	if err := c.close(); err != nil {
		logger.Warn("closing backend", zap.Error(err))
	}
	return report, nil
}

// errFixtureMissing is returned when a scenario's file was not staged.
var errFixtureMissing = errors.New("fixture missing; run \"wbverify prepare\" first")

func checkFixtures(set []scenario.Scenario) error {
	for _, f := range uniqueFiles(set) {
		if _, err := os.Stat(f.Path); err != nil {
			return fmt.Errorf("%w: %s", errFixtureMissing, f.Path)
		}
	}
	return nil
}

func uniqueFiles(set []scenario.Scenario) []types.TestFile {
	seen := make(map[string]bool)
	var out []types.TestFile
	for _, s := range set {
		if seen[s.File.URI] {
			continue
		}
		seen[s.File.URI] = true
		out = append(out, s.File)
	}
	return out
}
