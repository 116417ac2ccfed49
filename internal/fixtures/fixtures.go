// Package fixtures stages the sample media files a verification run
// mutates.
package fixtures

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Fixture directories, relative to the base directory. Only the monitored
// one receives files; the unmonitored one must exist and be empty.
const (
	MonitoredDir   = "test-writeback-monitored"
	UnmonitoredDir = "test-writeback-no-monitored"
)

// ErrDataDirMissing is returned when the sample data directory does not
// exist.
var ErrDataDirMissing = errors.New("fixture data dir does not exist")

// Provisioner recreates the fixture directories under BaseDir and fills the
// monitored one from DataDir.
type Provisioner struct {
	BaseDir string
	DataDir string
	Logger  *zap.Logger
}

// Result lists what Prepare staged, as absolute paths.
type Result struct {
	Monitored   string
	Unmonitored string
	Files       []string
}

// Prepare removes and recreates both fixture directories, then copies every
// file found anywhere under DataDir into the monitored directory, flat.
// Editor backups (*~) and Makefiles are skipped.
func (p Provisioner) Prepare() (*Result, error) {
	log := p.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if info, err := os.Stat(p.DataDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrDataDirMissing, p.DataDir)
	}

	res := &Result{
		Monitored:   filepath.Join(p.BaseDir, MonitoredDir),
		Unmonitored: filepath.Join(p.BaseDir, UnmonitoredDir),
	}
	for _, dir := range []string{res.Monitored, res.Unmonitored} {
		if err := os.RemoveAll(dir); err != nil {
			return nil, fmt.Errorf("removing %s: %w", dir, err)
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}

	err := filepath.WalkDir(p.DataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || !Staged(d.Name()) {
			return nil
		}
		dst := filepath.Join(res.Monitored, d.Name())
		log.Debug("copying fixture", zap.String("from", path), zap.String("to", dst))
		if err := copyFile(path, dst); err != nil {
			return err
		}
		res.Files = append(res.Files, dst)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("staging fixtures: %w", err)
	}
	log.Info("fixtures prepared", zap.String("dir", res.Monitored), zap.Int("files", len(res.Files)))
	return res, nil
}

// Staged reports whether a data file named name is copied.
func Staged(name string) bool {
	return !strings.HasSuffix(name, "~") && !strings.HasPrefix(name, "Makefile")
}

// Synthesize creates placeholder files with the given names in the
// monitored directory under baseDir, for runs against stores that never
// parse file content.
func Synthesize(baseDir string, names []string) (*Result, error) {
	res := &Result{
		Monitored:   filepath.Join(baseDir, MonitoredDir),
		Unmonitored: filepath.Join(baseDir, UnmonitoredDir),
	}
	for _, dir := range []string{res.Monitored, res.Unmonitored} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	for _, name := range names {
		path := filepath.Join(res.Monitored, name)
		if err := os.WriteFile(path, []byte("placeholder "+name+"\n"), 0o644); err != nil {
			return nil, err
		}
		res.Files = append(res.Files, path)
	}
	return res, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	return out.Close()
}
