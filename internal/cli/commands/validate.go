package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/steptrace/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate a steptrace configuration file without running analysis.

Checks:
  - YAML syntax
  - Marker token and time zone
  - Export formats and paths
  - Webhook URLs and triggers
  - Upload bucket and endpoint`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	fmt.Fprintf(out, "\nConfiguration valid!\n")
	fmt.Fprintf(out, "  Marker:   %s\n", cfg.Marker)
	fmt.Fprintf(out, "  Timezone: %s\n", cfg.Location())
	fmt.Fprintf(out, "  Exports:  %d\n", len(cfg.Exports))
	fmt.Fprintf(out, "  Webhooks: %d\n", len(cfg.Webhooks))

	if len(cfg.Exports) > 0 {
		fmt.Fprintf(out, "\nExports:\n")
		for i, exp := range cfg.Exports {
			fmt.Fprintf(out, "  %d. [%s] %s\n", i+1, exp.Format, exp.Path)
		}
	}

	if len(cfg.Webhooks) > 0 {
		fmt.Fprintf(out, "\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			fmt.Fprintf(out, "  %d. %s (%s, timeout %s)\n", i+1, name, wh.Trigger, wh.Timeout)
		}
	}

	if cfg.Upload != nil {
		fmt.Fprintf(out, "\nUpload: s3://%s/%s (%s) formats %v\n",
			cfg.Upload.Bucket, cfg.Upload.Prefix, cfg.Upload.Region, cfg.Upload.Formats)
	}

	return nil
}
