package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wbverify/internal/fixtures"
	"github.com/mesh-intelligence/wbverify/internal/scenario"
)

func newPrepareCmd(a *app) *cobra.Command {
	var synthesize bool
	cmd := &cobra.Command{
		Use:   "prepare",
		Short: "Stage the sample files into the monitored directory",
		Long: "Prepare recreates test-writeback-monitored and test-writeback-no-monitored\n" +
			"under the base directory and copies the sample data into the monitored one.\n" +
			"With --synthesize, placeholder files are created instead, which is enough\n" +
			"for the loopback backend.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				res *fixtures.Result
				err error
			)
			if synthesize {
				res, err = fixtures.Synthesize(a.cfg.BaseDir, scenario.DefaultFixtureNames())
			} else {
				res, err = fixtures.Provisioner{
					BaseDir: a.cfg.BaseDir,
					DataDir: a.cfg.DataDir,
					Logger:  a.logger.Named("fixtures"),
				}.Prepare()
			}
			if err != nil {
				return sysError("prepare fixtures: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "staged %d files into %s\n", len(res.Files), res.Monitored)
			for _, f := range res.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&synthesize, "synthesize", false, "create placeholder files instead of copying sample data")
	return cmd
}
