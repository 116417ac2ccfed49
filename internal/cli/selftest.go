package cli

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mesh-intelligence/wbverify/internal/fixtures"
	"github.com/mesh-intelligence/wbverify/internal/scenario"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

func newSelftestCmd(a *app) *cobra.Command {
	var (
		format  string
		ceiling time.Duration
		keep    bool
	)
	cmd := &cobra.Command{
		Use:   "selftest",
		Short: "Run the default scenarios against the in-process loopback backend",
		Long: "Selftest stages placeholder fixtures in a temporary directory and runs\n" +
			"every default scenario against the loopback backend, which writes back\n" +
			"everything except PNG descriptions, keywords and tags. A healthy harness\n" +
			"reports the PNG scenarios as known failures and everything else as passed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			base, err := os.MkdirTemp("", "wbverify-selftest-*")
			if err != nil {
				return sysError("create temp dir: %w", err)
			}
			if keep {
				a.logger.Info("keeping selftest directory", zap.String("dir", base))
			} else {
				defer os.RemoveAll(base)
			}

			if _, err := fixtures.Synthesize(base, scenario.DefaultFixtureNames()); err != nil {
				return sysError("stage fixtures: %w", err)
			}

			cfg := a.cfg
			cfg.Backend = types.BackendLoopback
			cfg.BaseDir = base
			cfg.Wait = types.WaitConfig{Policy: types.WaitPoll, Timeout: ceiling, Interval: 10 * time.Millisecond}

			report, err := verify(cmd.Context(), cfg, filepath.Join(base, ".store"), scenario.DefaultSet(base), a.logger)
			if err != nil {
				return sysError("%w", err)
			}
			if err := writeReport(cmd.OutOrStdout(), report, format); err != nil {
				return sysError("write report: %w", err)
			}
			if !report.OK() {
				return errRunFailed
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", formatText, "report format: text or json")
	cmd.Flags().DurationVar(&ceiling, "ceiling", 500*time.Millisecond, "longest wait for each writeback")
	cmd.Flags().BoolVar(&keep, "keep", false, "keep the temporary fixture directory")
	return cmd
}
