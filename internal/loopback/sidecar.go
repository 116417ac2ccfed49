package loopback

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// SidecarSuffix is appended to a file's path to locate the metadata the
// loopback writer has written back for it.
const SidecarSuffix = ".xmp.json"

// SidecarPath returns the sidecar location for a file.
func SidecarPath(path string) string {
	return path + SidecarSuffix
}

// readSidecar returns the metadata stored for path, or empty metadata when
// nothing has been written back yet.
func readSidecar(path string) (types.Metadata, []byte, error) {
	raw, err := os.ReadFile(SidecarPath(path))
	if errors.Is(err, os.ErrNotExist) {
		return types.Metadata{}, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	md := types.Metadata{}
	if err := json.Unmarshal(raw, &md); err != nil {
		return nil, raw, fmt.Errorf("%w: %s: %v", types.ErrInvalidMetadata, SidecarPath(path), err)
	}
	return md, raw, nil
}

// writeSidecar replaces the sidecar of path with md by rename.
func writeSidecar(path string, data []byte) error {
	target := SidecarPath(path)
	tmp, err := os.CreateTemp(filepath.Dir(target), ".sidecar-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp sidecar: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing sidecar: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing sidecar: %w", err)
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("renaming sidecar: %w", err)
	}
	return nil
}

// touch rewrites path with its own content so that observers see a write
// on the media file itself.
func touch(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return os.WriteFile(path, raw, 0o644)
}

// Extractor reads back what the loopback writer wrote. It implements
// types.Extractor.
type Extractor struct {
	caps Capabilities
}

// NewExtractor creates an Extractor. A nil table means
// DefaultCapabilities.
func NewExtractor(caps Capabilities) *Extractor {
	if caps == nil {
		caps = DefaultCapabilities()
	}
	return &Extractor{caps: caps}
}

// GetMetadata implements types.Extractor.
func (e *Extractor) GetMetadata(ctx context.Context, fileURI, mimeType string) (types.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	path, err := types.PathFromURI(fileURI)
	if err != nil {
		return nil, err
	}
	if !e.caps.Known(mimeType) {
		return nil, fmt.Errorf("%w: %s", types.ErrUnsupportedMedia, mimeType)
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", types.ErrFileNotFound, path)
		}
		return nil, err
	}
	md, _, err := readSidecar(path)
	return md, err
}
