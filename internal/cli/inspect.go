package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/paveg/mlprep/internal/dataframe"
	mlio "github.com/paveg/mlprep/internal/io"
	"github.com/spf13/cobra"
)

const defaultPreviewRows = 10

func newInspectCommand(g *globals) *cobra.Command {
	var rows int

	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "Show the schema and first rows of a table",
		Example: `  mlprep inspect runs.csv
  mlprep inspect results/dataset.parquet --rows 5`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			df, err := mlio.ReadFile(args[0], nil)
			if err != nil {
				return err
			}
			defer df.Release()

			logger.Debug("read table", "path", args[0], "rows", df.Len(), "columns", df.Width())
			renderSchema(cmd.OutOrStdout(), df)
			renderPreview(cmd.OutOrStdout(), df, rows)
			return nil
		},
	}

	cmd.Flags().IntVarP(&rows, "rows", "n", defaultPreviewRows, "number of rows to preview")
	return cmd
}

func renderSchema(w io.Writer, df *dataframe.DataFrame) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Column", "Type", "Nulls"})
	for _, name := range df.Columns() {
		col, _ := df.Column(name)
		t.AppendRow(table.Row{name, col.DataType().String(), col.NullN()})
	}
	t.Render()
}

func renderPreview(w io.Writer, df *dataframe.DataFrame, rows int) {
	if df.Len() == 0 {
		_, _ = fmt.Fprintln(w, "(0 rows)")
		return
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)

	header := table.Row{""}
	for _, name := range df.Columns() {
		header = append(header, name)
	}
	t.AppendHeader(header)

	n := min(max(rows, 0), df.Len())
	for i := range n {
		row := table.Row{df.Index().Label(i)}
		for _, v := range df.Row(i) {
			if v == nil {
				v = "null"
			}
			row = append(row, v)
		}
		t.AppendRow(row)
	}
	t.Render()
	_, _ = fmt.Fprintf(w, "(%d of %d rows)\n", n, df.Len())
}
