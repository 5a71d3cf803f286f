package cli

import (
	"fmt"

	"github.com/paveg/mlprep/internal/dataframe"
	"github.com/paveg/mlprep/internal/features"
	mlio "github.com/paveg/mlprep/internal/io"
	"github.com/paveg/mlprep/internal/pipeline"
	"github.com/spf13/cobra"
)

func newInvertCommand(g *globals) *cobra.Command {
	var scalerPath, outPath string

	cmd := &cobra.Command{
		Use:   "invert FILE",
		Short: "Map standardized features back to their original units",
		Long: `Apply a saved scaler in reverse to the feature columns of FILE. The
scaler's columns are inverted in order and the target column is carried
along unchanged; every other column is dropped.`,
		Example: `  mlprep invert results/heldout_holdout.csv --scaler results/scaler.yaml -o restored.csv`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())

			scaler, target, err := pipeline.LoadScaler(scalerPath)
			if err != nil {
				return err
			}
			df, err := readLabeled(args[0])
			if err != nil {
				return err
			}
			defer df.Release()

			norm := features.NewNormalizer(features.WithLogger(logger))
			restored, err := norm.InvertNormalize(df, scaler.Columns(), target, scaler)
			if err != nil {
				return err
			}
			defer restored.Release()

			if err := mlio.NewFileSink().Write(restored, outPath); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), outPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&scalerPath, "scaler", "", "scaler file written by run")
	cmd.Flags().StringVarP(&outPath, "output", "o", "", "destination (.csv or .parquet)")
	_ = cmd.MarkFlagRequired("scaler")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}

// readLabeled reads path, restoring row labels when the file carries the
// index column written by run.
func readLabeled(path string) (*dataframe.DataFrame, error) {
	df, err := mlio.ReadFile(path, nil)
	if err != nil {
		return nil, err
	}
	if !df.HasColumn(mlio.DefaultIndexColumn) {
		return df, nil
	}
	df.Release()
	return mlio.NewFileSink().ReadBack(path, nil)
}
