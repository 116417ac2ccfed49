package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wbverify/internal/scenario"
)

// Report formats.
const (
	formatText = "text"
	formatJSON = "json"
)

func newRunCmd(a *app) *cobra.Command {
	var pattern, format string
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the writeback scenarios against the configured backend",
		Long: "Run writes a probe value for every selected scenario through the store,\n" +
			"waits for writeback, re-extracts the file and checks the value. Exit status\n" +
			"is 0 when every scenario passed or failed as expected, 1 otherwise.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			set, err := scenario.Filter(scenario.DefaultSet(a.cfg.BaseDir), pattern)
			if err != nil {
				return sysError("%w", err)
			}
			stateDir, err := loopbackStateDir()
			if err != nil {
				return sysError("resolve state dir: %w", err)
			}

			report, err := verify(cmd.Context(), a.cfg, stateDir, set, a.logger)
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
	cmd.Flags().StringVar(&pattern, "run", "", "only run scenarios whose ID matches this regular expression")
	cmd.Flags().StringVar(&format, "format", formatText, "report format: text or json")
	return cmd
}

func checkFormat(format string) error {
	if format != formatText && format != formatJSON {
		return sysError("unknown format %q", format)
	}
	return nil
}

func writeReport(w io.Writer, report *scenario.Report, format string) error {
	if format == formatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	_, err := fmt.Fprint(w, report.FormatText())
	return err
}
