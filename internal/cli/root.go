// Package cli implements the wbverify command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/wbverify/internal/logging"
	"github.com/mesh-intelligence/wbverify/internal/paths"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

// Exit codes.
const (
	exitSuccess  = 0
	exitFailed   = 1
	exitSysError = 2
)

// exitError carries the process exit code for an error.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func sysError(format string, args ...any) error {
	return &exitError{code: exitSysError, err: fmt.Errorf(format, args...)}
}

// errRunFailed is returned by commands whose report is not OK.
var errRunFailed = &exitError{code: exitFailed, err: errors.New("verification failed")}

// rootFlags holds global flag values accessible to all subcommands.
type rootFlags struct {
	configDir string
	baseDir   string
	dataDir   string
	backend   string
	logLevel  string
	logFormat string
}

// app is the state shared by subcommands once the root has loaded the
// configuration.
type app struct {
	flags  rootFlags
	viper  *viper.Viper
	cfg    types.Config
	logger *zap.Logger
}

// NewRootCmd creates the top-level "wbverify" command with global flags
// and all subcommands registered.
func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "wbverify",
		Short: "Verify metadata writeback from the desktop store into files",
		Long: "wbverify writes probe metadata through the semantic store, waits for the\n" +
			"writeback service to embed it into the files, and checks that the\n" +
			"extractor reads the same values back.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "version" {
				return nil
			}
			return a.load()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.logger != nil {
				_ = a.logger.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.flags.configDir, "config-dir", "", "configuration directory (default: $XDG_CONFIG_HOME/wbverify)")
	pf.StringVar(&a.flags.baseDir, "base-dir", "", "directory the fixtures are staged under (default: $HOME)")
	pf.StringVar(&a.flags.dataDir, "data-dir", "", "sample data directory (default: ./test-writeback-data)")
	pf.StringVar(&a.flags.backend, "backend", "", "collaborator backend: http or loopback")
	pf.StringVar(&a.flags.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&a.flags.logFormat, "log-format", "", "log format: console or json")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newRunCmd(a))
	root.AddCommand(newListCmd(a))
	root.AddCommand(newPrepareCmd(a))
	root.AddCommand(newSelftestCmd(a))
	root.AddCommand(newConfigCmd(a))

	return root
}

// load resolves directories, reads config.yaml, applies flag overrides,
// validates the result and builds the logger.
func (a *app) load() error {
	configDir, err := paths.ResolveConfigDir(a.flags.configDir)
	if err != nil {
		return sysError("resolve config dir: %w", err)
	}
	v, err := loadConfig(configDir)
	if err != nil {
		return sysError("load config: %w", err)
	}
	cfg := configFromViper(v)

	if a.flags.backend != "" {
		cfg.Backend = a.flags.backend
	}
	if a.flags.logLevel != "" {
		cfg.Log.Level = a.flags.logLevel
	}
	if a.flags.logFormat != "" {
		cfg.Log.Format = a.flags.logFormat
	}
	if cfg.BaseDir, err = paths.ResolveBaseDir(a.flags.baseDir, cfg.BaseDir); err != nil {
		return sysError("resolve base dir: %w", err)
	}
	if cfg.DataDir, err = paths.ResolveDataDir(a.flags.dataDir, cfg.DataDir); err != nil {
		return sysError("resolve data dir: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return sysError("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return sysError("logger: %w", err)
	}

	a.viper = v
	a.cfg = cfg
	a.logger = logger.With(zap.String("backend", cfg.Backend))
	return nil
}

// Run executes the root command with args and returns the exit code.
func Run(args []string, stdout, stderr io.Writer) int {
	root := NewRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	err := root.ExecuteContext(ctx)
	if err == nil {
		return exitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee != errRunFailed {
			fmt.Fprintln(stderr, "error:", err)
		}
		return ee.code
	}
	// Flag and argument errors from cobra.
	fmt.Fprintln(stderr, "error:", err)
	return exitSysError
}

// Execute runs the root command against the process arguments and exits.
func Execute() {
	os.Exit(Run(os.Args[1:], os.Stdout, os.Stderr))
}
