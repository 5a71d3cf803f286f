package cli

import (
	"fmt"

	"github.com/paveg/mlprep/internal/config"
	"github.com/paveg/mlprep/internal/monitoring"
	"github.com/paveg/mlprep/internal/pipeline"
	"github.com/spf13/cobra"
)

func newRunCommand(g *globals) *cobra.Command {
	var showMetrics bool

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the preparation pipeline",
		Long: `Load the configured data file, clean it, remove validation rows,
select and standardize features, and write the results to the output
directory.

Flags override environment variables (MLPREP_*), which override the config
file.`,
		Example: `  # Use ./mlprep.yaml
  mlprep run

  # Override the input and the cleaning method
  mlprep run --data runs.csv --target yield --method imputation

  # Parquet output with the stage table
  mlprep run --format parquet --metrics`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := g.logger(cmd.ErrOrStderr())

			cfg, used, err := config.Load(g.cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			if used != "" {
				logger.Debug("using config file", "path", used)
			}

			metrics := monitoring.NewMetricsCollector(true)
			runner := pipeline.NewRunner(*cfg,
				pipeline.WithLogger(logger),
				pipeline.WithMetrics(metrics),
			)
			written, runErr := runner.Run(cmd.Context())
			if showMetrics {
				metrics.Render(cmd.OutOrStdout())
			}
			if runErr != nil {
				return runErr
			}

			for _, path := range written {
				fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.String("data", "", "input table (.csv or .parquet)")
	f.StringP("output", "o", "", "output directory (default \""+config.DefaultOutputDir+"\")")
	f.String("format", "", "output format: csv or parquet")
	f.StringP("target", "t", "", "target column")
	f.StringSlice("features", nil, "feature columns (default: every non-role column)")
	f.StringSlice("validation-columns", nil, "indicator columns marking validation rows with 1")
	f.String("grouping-column", "", "column converted to group numbers")
	f.StringP("method", "m", "", "cleaning method: remove, imputation or ppca")
	f.String("imputation-strategy", "", "mean, median or most_frequent")
	f.String("zero-variance", "", "unit_scale, nan or error")
	f.Bool("normalize", true, "standardize the features")
	f.Bool("remove-duplicates", false, "drop repeated rows")
	f.Bool("remove-constant", false, "drop constant feature columns")
	f.String("snapshot-path", "", "also write the normalized table here")
	f.Int("workers", 0, "normalization workers (0 = one per CPU)")
	f.BoolVar(&showMetrics, "metrics", false, "print the stage table")

	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"csv", "parquet"}, cobra.ShellCompDirectiveNoFileComp
	})
	_ = cmd.RegisterFlagCompletionFunc("method", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"remove", "imputation", "ppca"}, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}
