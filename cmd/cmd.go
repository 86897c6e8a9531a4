package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// NewCLI wires up the root command. The original experiment script was a
// pile of compile-time constants; those live on as flags on `train`.
func NewCLI() *cobra.Command {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))

	rootCmd := &cobra.Command{
		Use:           "slplabs",
		Short:         "Sentiment and stance classification with attention-based text classifiers",
		SilenceUsage:  true,
		SilenceErrors: false,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	rootCmd.AddCommand(
		NewTrainCmd(),
		NewPredictCmd(),
	)
	return rootCmd
}
