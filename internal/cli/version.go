package cli

import (
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paveg/mlprep/internal/version"
	"github.com/spf13/cobra"
)

func newVersionCommand() *cobra.Command {
	var deps bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			info := version.Info()
			_, _ = fmt.Fprint(cmd.OutOrStdout(), info.String())
			if !deps || len(info.Deps) == 0 {
				return
			}

			t := table.NewWriter()
			t.SetOutputMirror(cmd.OutOrStdout())
			t.SetStyle(table.StyleLight)
			t.AppendHeader(table.Row{"Module", "Version"})
			for _, m := range info.Deps {
				t.AppendRow(table.Row{m.Path, m.Version})
			}
			t.Render()
		},
	}

	cmd.Flags().BoolVar(&deps, "deps", false, "list linked modules")
	return cmd
}
