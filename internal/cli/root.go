// Package cli provides the mlprep command-line interface.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/paveg/mlprep/internal/version"
	"github.com/spf13/cobra"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	cfgFile string
	verbose bool
}

// logger builds the text logger written to w; debug level under --verbose.
func (g *globals) logger(w io.Writer) *slog.Logger {
	level := slog.LevelInfo
	if g.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewRootCmd creates the root command with every subcommand attached.
func NewRootCmd() *cobra.Command {
	g := &globals{}

	rootCmd := &cobra.Command{
		Use:   "mlprep",
		Short: "Prepare experiment tables for model training",
		Long: `mlprep cleans an experiment table, removes validation rows, selects
features, standardizes them and writes the prepared tables together with the
fitted scaler and the resolved configuration.`,
		Version:       version.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (default: ./mlprep.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(newRunCommand(g))
	rootCmd.AddCommand(newInspectCommand(g))
	rootCmd.AddCommand(newInvertCommand(g))
	rootCmd.AddCommand(newVersionCommand())

	return rootCmd
}

// Execute runs the root command with args and returns the error printed to
// stderr, if any.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return err
	}
	return nil
}
