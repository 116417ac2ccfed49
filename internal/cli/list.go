package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/wbverify/internal/scenario"
	"github.com/mesh-intelligence/wbverify/pkg/types"
)

type listedScenario struct {
	ID       string `json:"id"`
	File     string `json:"file"`
	Media    string `json:"media_type"`
	Subject  string `json:"subject"`
	Key      string `json:"key"`
	Expected string `json:"expected"`
}

func newListCmd(a *app) *cobra.Command {
	var pattern, format string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the scenarios and their expected outcomes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkFormat(format); err != nil {
				return err
			}
			set, err := scenario.Filter(scenario.DefaultSet(a.cfg.BaseDir), pattern)
			if err != nil {
				return sysError("%w", err)
			}

			rows := make([]listedScenario, 0, len(set))
			for _, s := range set {
				key := s.Property.Key()
				if s.Kind == scenario.KindTag {
					key = types.KeyTagLabel
				}
				rows = append(rows, listedScenario{
					ID:       s.ID,
					File:     s.File.Path,
					Media:    s.File.MediaType,
					Subject:  s.Subject(),
					Key:      key,
					Expected: s.Expected.String(),
				})
			}

			out := cmd.OutOrStdout()
			if format == formatJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rows)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSUBJECT\tKEY\tEXPECTED\tFILE")
			for _, r := range rows {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", r.ID, r.Subject, r.Key, r.Expected, r.File)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&pattern, "run", "", "only list scenarios whose ID matches this regular expression")
	cmd.Flags().StringVar(&format, "format", formatText, "output format: text or json")
	return cmd
}
