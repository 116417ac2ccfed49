// Package paths resolves the directories a verification run uses: the
// configuration directory, the base directory fixtures are staged under,
// the sample data directory they are copied from, and the state directory
// of the loopback store.
package paths

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
)

const appName = "wbverify"

// DefaultDataDirName is the sample data directory looked up relative to
// the working directory before falling back to the installed copy.
const DefaultDataDirName = "test-writeback-data"

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "WBVERIFY_CONFIG_DIR"
	EnvBaseDir   = "WBVERIFY_BASE_DIR"
	EnvDataDir   = "WBVERIFY_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
	getwd         func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
	getwd:         os.Getwd,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/wbverify (fallback ~/.config/wbverify)
// macOS:   ~/Library/Application Support/wbverify
// Windows: %APPDATA%/wbverify
func DefaultConfigDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".config", appName), nil
	}
	dir, err := platformDir.userConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, appName), nil
}

// DefaultStateDir returns where the loopback store keeps its triples.
//
// Linux:   $XDG_DATA_HOME/wbverify (fallback ~/.local/share/wbverify)
// Others:  same as DefaultConfigDir
func DefaultStateDir() (string, error) {
	if runtime.GOOS == "linux" {
		if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
			return filepath.Join(xdg, appName), nil
		}
		home, err := platformDir.homeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, ".local", "share", appName), nil
	}
	return DefaultConfigDir()
}

// ResolveConfigDir returns the configuration directory following the precedence
// chain: flag > WBVERIFY_CONFIG_DIR env > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveBaseDir returns the directory fixtures are staged under:
// flag > config value > WBVERIFY_BASE_DIR env > home directory.
func ResolveBaseDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvBaseDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	return platformDir.homeDir()
}

// ResolveDataDir returns the sample data directory: flag > config value >
// WBVERIFY_DATA_DIR env > ./test-writeback-data when it exists >
// <state dir>/test-writeback-data.
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, v := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if v != "" {
			return filepath.Abs(v)
		}
	}
	cwd, err := platformDir.getwd()
	if err != nil {
		return "", err
	}
	local := filepath.Join(cwd, DefaultDataDirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", err
	}
	state, err := DefaultStateDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(state, DefaultDataDirName), nil
}
