package commands

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccollicutt/steptrace/pkg/analyzer"
	"github.com/ccollicutt/steptrace/pkg/config"
	"github.com/ccollicutt/steptrace/pkg/output"
	"github.com/ccollicutt/steptrace/pkg/parser"
	"github.com/ccollicutt/steptrace/pkg/upload"
	"github.com/ccollicutt/steptrace/pkg/webhook"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// AnalyzeOptions holds command-line options for the analyze command.
type AnalyzeOptions struct {
	ConfigPath  string
	Output      string
	Marker      string
	Since       string
	Until       string
	Kinds       []string
	Verbose     bool
	Quiet       bool
	Concurrency int

	// Export options, each a destination file
	CSVPath     string
	HTMLPath    string
	MetricsPath string

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string

	// Upload options
	UploadBucket string
	UploadPrefix string
}

// reportUploader stores a rendered report and returns its object key.
type reportUploader interface {
	Upload(ctx context.Context, report *output.Report, f output.Formatter) (string, error)
}

// newUploader is replaced in tests.
var newUploader = func(ctx context.Context, cfg *config.UploadConfig) (reportUploader, error) {
	u, err := upload.NewS3Uploader(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return u, nil
}

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	opts := &AnalyzeOptions{}

	cmd := &cobra.Command{
		Use:   "analyze <log-file>...",
		Short: "Analyze deployment traces for step outcomes",
		Long: `Analyze CMTrace-format deployment logs and report on the recorded steps.

Each step line carries an outcome (Success, Error, Warning). The report
counts outcomes, lists distinct error codes, and measures how long the
deployment ran. Arguments may be files or glob patterns (** supported).

Exit codes:
  0 - No failed steps
  1 - At least one step failed
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAnalyze(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigPath, "config", "c", "", "Configuration file (optional)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Marker, "marker", "", "Step marker token (default from config, STEP)")
	cmd.Flags().StringVar(&opts.Since, "since", "", "Ignore events before this time (timestamp or duration ago, e.g. 2h)")
	cmd.Flags().StringVar(&opts.Until, "until", "", "Ignore events after this time (timestamp or duration ago)")
	cmd.Flags().StringSliceVar(&opts.Kinds, "kind", nil, "Only include these outcomes (success|error|warning, can be repeated)")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show the full step timeline")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")
	cmd.Flags().IntVar(&opts.Concurrency, "concurrency", analyzer.DefaultConcurrency, "Number of files analyzed in parallel")

	// Export flags
	cmd.Flags().StringVar(&opts.CSVPath, "csv", "", "Write the timeline as CSV to this file")
	cmd.Flags().StringVar(&opts.HTMLPath, "html", "", "Write an HTML report to this file")
	cmd.Flags().StringVar(&opts.MetricsPath, "metrics", "", "Write Prometheus metrics to this file")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_failures", "When to fire webhook (on_failures|always|never)")

	// Upload flags
	cmd.Flags().StringVar(&opts.UploadBucket, "upload-bucket", "", "S3 bucket to upload reports to")
	cmd.Flags().StringVar(&opts.UploadPrefix, "upload-prefix", "", "Key prefix for uploaded reports")

	return cmd
}

func runAnalyze(cmd *cobra.Command, args []string, opts *AnalyzeOptions) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cfg, err := loadConfig(ctx, opts)
	if err != nil {
		return err
	}

	formatter, err := createFormatter(opts)
	if err != nil {
		return err
	}

	analyzerOpts, err := buildAnalyzerOptions(cfg, opts, time.Now())
	if err != nil {
		return err
	}

	files, err := parser.ExpandGlobs(args)
	if err != nil {
		return fmt.Errorf("expanding log files: %w", err)
	}
	if len(files) == 0 {
		return fmt.Errorf("no log files matched: %v", args)
	}

	a := analyzer.NewAnalyzer(analyzerOpts...)
	results, err := a.AnalyzeFiles(ctx, files)
	if err != nil {
		return fmt.Errorf("analysis failed: %w", err)
	}

	var uploader reportUploader
	if cfg.Upload != nil {
		u, err := newUploader(ctx, cfg.Upload)
		if err != nil {
			slog.Warn("upload disabled", "error", err)
		} else {
			uploader = u
		}
	}

	out := cmd.OutOrStdout()
	multi := len(results) > 1
	sources := make([]string, len(results))
	for i, fa := range results {
		sources[i] = fa.Source
	}
	names := exportNames(sources)
	exportFailures := 0

	for i, fa := range results {
		report := output.NewReport(fa)

		if i > 0 && formatter.Name() == "text" && !opts.Quiet {
			_, _ = io.WriteString(out, "\n")
		}
		if err := formatter.Format(ctx, report, out); err != nil {
			return fmt.Errorf("formatting output: %w", err)
		}

		exportFailures += writeExports(ctx, cfg, report, names[fa.Source], multi)

		// Webhooks and uploads are best effort
		sendWebhooks(ctx, cfg, opts, report)
		if uploader != nil {
			uploadReport(ctx, uploader, cfg.Upload, report)
		}

		if report.HasFailures() {
			ExitCode = 1
		}
	}

	if exportFailures > 0 {
		return fmt.Errorf("%d export(s) failed", exportFailures)
	}
	return nil
}

// loadConfig reads the optional config file and applies CLI overrides.
func loadConfig(ctx context.Context, opts *AnalyzeOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(ctx, opts.ConfigPath)
	} else {
		cfg, err = config.FromEnvironment()
	}
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	if opts.Marker != "" {
		cfg.Marker = opts.Marker
	}

	if _, err := config.ParseWebhookTrigger(opts.WebhookTrigger); err != nil {
		return nil, fmt.Errorf("--webhook-trigger: %w", err)
	}

	for _, exp := range []struct {
		format config.ExportFormat
		path   string
	}{
		{config.ExportFormatCSV, opts.CSVPath},
		{config.ExportFormatHTML, opts.HTMLPath},
		{config.ExportFormatMetrics, opts.MetricsPath},
	} {
		if exp.path != "" {
			cfg.Exports = append(cfg.Exports, config.ExportConfig{Format: exp.format, Path: exp.path})
		}
	}

	if opts.UploadBucket != "" {
		if cfg.Upload == nil {
			cfg.Upload = &config.UploadConfig{}
		}
		cfg.Upload.Bucket = opts.UploadBucket
	}
	if opts.UploadPrefix != "" && cfg.Upload != nil {
		cfg.Upload.Prefix = opts.UploadPrefix
	}

	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

func buildAnalyzerOptions(cfg *config.Config, opts *AnalyzeOptions, now time.Time) ([]analyzer.AnalyzerOption, error) {
	extractor := parser.NewExtractor(
		parser.WithMarker(cfg.Marker),
		parser.WithLocation(cfg.Location()),
	)

	analyzerOpts := []analyzer.AnalyzerOption{
		analyzer.WithExtractor(extractor),
		analyzer.WithConcurrency(opts.Concurrency),
	}

	since, err := parseTimeBound(opts.Since, now, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid --since %q: %w", opts.Since, err)
	}
	until, err := parseTimeBound(opts.Until, now, cfg.Location())
	if err != nil {
		return nil, fmt.Errorf("invalid --until %q: %w", opts.Until, err)
	}
	if !since.IsZero() && !until.IsZero() && until.Before(since) {
		return nil, fmt.Errorf("--until %s is before --since %s", opts.Until, opts.Since)
	}
	analyzerOpts = append(analyzerOpts, analyzer.WithTimeRange(since, until))

	if len(opts.Kinds) > 0 {
		kinds := make([]parser.Kind, 0, len(opts.Kinds))
		for _, s := range opts.Kinds {
			k, err := parser.ParseKind(s)
			if err != nil {
				return nil, fmt.Errorf("invalid --kind: %w", err)
			}
			kinds = append(kinds, k)
		}
		analyzerOpts = append(analyzerOpts, analyzer.WithKinds(kinds...))
	}

	return analyzerOpts, nil
}

// timeBoundLayouts are tried in order after durations.
var timeBoundLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimeBound accepts a duration ago ("2h") or an absolute time. Times
// without a zone are read in loc.
func parseTimeBound(s string, now time.Time, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		if d < 0 {
			return time.Time{}, fmt.Errorf("duration must be positive")
		}
		return now.Add(-d), nil
	}
	for _, layout := range timeBoundLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("expected a duration like 2h or a time like 2006-01-02 15:04:05")
}

func createFormatter(opts *AnalyzeOptions) (output.Formatter, error) {
	formatOpts := output.FormatOptions{
		Verbose: opts.Verbose,
		Quiet:   opts.Quiet,
	}

	switch opts.Output {
	case "text":
		return output.NewTextFormatter(formatOpts), nil
	case "json":
		return output.NewJSONFormatter(formatOpts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q (use text or json)", opts.Output)
	}
}

// writeExports writes every configured export and returns how many failed.
func writeExports(ctx context.Context, cfg *config.Config, report *output.Report, name string, multi bool) int {
	failures := 0
	for _, exp := range cfg.Exports {
		f, err := output.NewFormatter(exp.Format, output.FormatOptions{Verbose: true})
		if err != nil {
			slog.Error("export skipped", "format", exp.Format, "error", err)
			failures++
			continue
		}

		path := exportPath(exp.Path, name, multi)
		if err := output.WriteFile(ctx, f, report, path); err != nil {
			slog.Error("export failed", "format", exp.Format, "path", path, "error", err)
			failures++
			continue
		}
		slog.Info("exported report", "format", exp.Format, "path", path)
	}
	return failures
}

// exportNames assigns each trace file a distinct report name. The name is
// the file's base name without extension; files sharing a base name
// (machines/pc01/smsts.log, machines/pc02/smsts.log) are prefixed with
// their parent directory, and any name still taken gets a numeric suffix.
func exportNames(sources []string) map[string]string {
	stem := func(p string) string {
		return strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
	}

	stems := make(map[string]int, len(sources))
	for _, src := range sources {
		stems[stem(src)]++
	}

	names := make(map[string]string, len(sources))
	used := make(map[string]bool, len(sources))
	for _, src := range sources {
		if _, ok := names[src]; ok {
			continue
		}
		name := stem(src)
		if stems[name] > 1 {
			if dir := filepath.Base(filepath.Dir(src)); dir != "." && dir != string(filepath.Separator) {
				name = dir + "-" + name
			}
		}
		candidate := name
		for n := 2; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s-%d", name, n)
		}
		used[candidate] = true
		names[src] = candidate
	}
	return names
}

// exportPath fills the {name} placeholder with the report name. With
// several trace files and no placeholder, the name is appended before the
// extension so reports do not overwrite each other.
func exportPath(pattern, name string, multi bool) string {
	if strings.Contains(pattern, "{name}") {
		return strings.ReplaceAll(pattern, "{name}", name)
	}
	if !multi {
		return pattern
	}
	ext := filepath.Ext(pattern)
	return strings.TrimSuffix(pattern, ext) + "-" + name + ext
}

// sendWebhooks sends the report to all configured webhooks.
// Errors are logged but don't fail the analysis.
func sendWebhooks(ctx context.Context, cfg *config.Config, opts *AnalyzeOptions, report *output.Report) {
	webhooks := collectWebhooks(cfg, opts)
	if len(webhooks) == 0 {
		return
	}

	client := webhook.NewClient(webhook.WithUserAgent("steptrace/" + Version))

	for _, wh := range webhooks {
		if !shouldFireWebhook(wh.Trigger, report.HasFailures()) {
			continue
		}

		resp := client.Send(ctx, report, webhook.SendOptions{
			URL:     wh.URL,
			Token:   wh.Token,
			Timeout: wh.Timeout,
		})

		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		if resp.Success() {
			slog.Info("webhook sent", "webhook", name, "status", resp.StatusCode, "duration", resp.Duration)
		} else {
			slog.Warn("webhook failed", "webhook", name, "error", resp.Error)
		}
	}
}

// collectWebhooks merges config file webhooks with CLI webhook.
func collectWebhooks(cfg *config.Config, opts *AnalyzeOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		// validated by loadConfig
		trigger, _ := config.ParseWebhookTrigger(opts.WebhookTrigger)

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}

// shouldFireWebhook determines if a webhook should fire based on trigger and failures.
func shouldFireWebhook(trigger config.WebhookTrigger, hasFailures bool) bool {
	switch trigger {
	case config.WebhookTriggerAlways:
		return true
	case config.WebhookTriggerNever:
		return false
	default:
		return hasFailures
	}
}

// uploadReport stores each configured rendering of the report. Failures
// are logged only.
func uploadReport(ctx context.Context, u reportUploader, cfg *config.UploadConfig, report *output.Report) {
	for _, format := range cfg.Formats {
		f, err := output.NewFormatter(format, output.FormatOptions{Verbose: true})
		if err != nil {
			slog.Warn("upload skipped", "format", format, "error", err)
			continue
		}
		key, err := u.Upload(ctx, report, f)
		if err != nil {
			slog.Warn("upload failed", "format", format, "error", err)
			continue
		}
		slog.Info("uploaded report", "bucket", cfg.Bucket, "key", key)
	}
}
