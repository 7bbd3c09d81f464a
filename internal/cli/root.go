// Package cli provides the command-line interface for steptrace.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/steptrace/internal/cli/commands"
	"github.com/ccollicutt/steptrace/internal/logging"
	"github.com/ccollicutt/steptrace/pkg/config"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	return run(NewRootCommand())
}

func run(rootCmd *cobra.Command) int {
	commands.ExitCode = 0
	if err := rootCmd.Execute(); err != nil {
		// Print error to stderr (SilenceErrors prevents Cobra from doing this)
		_, _ = fmt.Fprintf(rootCmd.ErrOrStderr(), "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// globalOptions are flags shared by every subcommand.
type globalOptions struct {
	logLevel  string
	logFormat string
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:   "steptrace",
		Short: "Summarize deployment step outcomes from CMTrace logs",
		Long: `steptrace reads task sequence deployment logs written in the CMTrace
format and reports which steps succeeded, failed, or raised warnings.

It reports:
  - Step counts and success rate
  - Distinct error codes of failed steps
  - Total deployment duration and average step time

Reports can be exported as CSV, HTML, or Prometheus metrics, posted to
webhooks, and uploaded to S3.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := config.LoadDotEnv(); err != nil {
				return fmt.Errorf("loading .env: %w", err)
			}
			return initLogging(cmd, opts)
		},
	}

	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level (debug|info|warn|error), default from "+config.EnvLogLevel+" or warn")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (text|json)")

	rootCmd.AddCommand(commands.NewAnalyzeCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}

func initLogging(cmd *cobra.Command, opts *globalOptions) error {
	format, err := logging.ParseFormat(opts.logFormat)
	if err != nil {
		return err
	}

	level := opts.logLevel
	if level == "" {
		level = os.Getenv(config.EnvLogLevel)
	}

	logging.Init(cmd.ErrOrStderr(), format, logging.ParseLevel(level))
	return nil
}
