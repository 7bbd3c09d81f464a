package config

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// markerPattern restricts markers to tokens that cannot collide with the
// CMTrace framing characters.
var markerPattern = regexp.MustCompile(`^[A-Za-z0-9_.:-]+$`)

// Load reads and validates a configuration file.
func Load(_ context.Context, path string) (*Config, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-provided config path is expected
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// FromEnvironment returns the default configuration with environment
// overrides applied, for runs without a config file.
func FromEnvironment() (*Config, error) {
	cfg := DefaultConfig()
	cfg.applyEnvironmentOverrides()

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}
	return cfg, nil
}

// Validate checks a configuration for errors and fills in defaults.
func Validate(cfg *Config) error {
	if cfg.Marker == "" {
		cfg.Marker = DefaultMarker
	}
	if !markerPattern.MatchString(cfg.Marker) {
		return fmt.Errorf("marker: %q must be a single token of letters, digits, or _.:-", cfg.Marker)
	}

	if cfg.Timezone == "" {
		cfg.Timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	cfg.location = loc

	for i := range cfg.Exports {
		if err := validateExport(&cfg.Exports[i]); err != nil {
			return fmt.Errorf("exports[%d]: %w", i, err)
		}
	}

	// Webhooks are optional, but validate if present
	for i := range cfg.Webhooks {
		if err := validateWebhook(&cfg.Webhooks[i]); err != nil {
			name := cfg.Webhooks[i].Name
			if name == "" {
				name = cfg.Webhooks[i].URL
			}
			return fmt.Errorf("webhooks[%d] (%s): %w", i, name, err)
		}
	}

	if cfg.Upload != nil {
		if err := validateUpload(cfg.Upload); err != nil {
			return fmt.Errorf("upload: %w", err)
		}
	}

	return nil
}

// ParseExportFormat validates a format name.
func ParseExportFormat(s string) (ExportFormat, error) {
	switch f := ExportFormat(strings.ToLower(s)); f {
	case ExportFormatText, ExportFormatJSON, ExportFormatCSV, ExportFormatHTML, ExportFormatMetrics:
		return f, nil
	default:
		return "", fmt.Errorf("invalid format %q (must be text, json, csv, html, or metrics)", s)
	}
}

// ParseWebhookTrigger validates a trigger name. Empty means on_failures.
func ParseWebhookTrigger(s string) (WebhookTrigger, error) {
	switch t := WebhookTrigger(s); t {
	case "":
		return WebhookTriggerOnFailures, nil
	case WebhookTriggerOnFailures, WebhookTriggerAlways, WebhookTriggerNever:
		return t, nil
	default:
		return "", fmt.Errorf("invalid trigger %q (must be on_failures, always, or never)", s)
	}
}

func validateExport(exp *ExportConfig) error {
	f, err := ParseExportFormat(string(exp.Format))
	if err != nil {
		return err
	}
	exp.Format = f

	if strings.TrimSpace(exp.Path) == "" {
		return errors.New("path is required")
	}
	return nil
}

func validateWebhook(wh *WebhookConfig) error {
	if wh.URL == "" {
		return errors.New("url is required")
	}

	// Validate URL format
	u, err := url.Parse(wh.URL)
	if err != nil {
		return fmt.Errorf("invalid url: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("url scheme must be http or https, got %q", u.Scheme)
	}

	if u.Host == "" {
		return errors.New("url must have a host")
	}

	// Expand environment variables in token
	wh.Token = expandEnvVar(wh.Token)

	trigger, err := ParseWebhookTrigger(string(wh.Trigger))
	if err != nil {
		return err
	}
	wh.Trigger = trigger

	if wh.Timeout <= 0 {
		wh.Timeout = DefaultWebhookTimeout
	}

	return nil
}

func validateUpload(up *UploadConfig) error {
	if strings.TrimSpace(up.Bucket) == "" {
		return errors.New("bucket is required")
	}
	up.Prefix = strings.Trim(up.Prefix, "/")

	if up.Region == "" {
		up.Region = DefaultUploadRegion
	}

	if up.Endpoint != "" {
		u, err := url.Parse(up.Endpoint)
		if err != nil || u.Host == "" {
			return fmt.Errorf("invalid endpoint %q", up.Endpoint)
		}
	}

	if len(up.Formats) == 0 {
		up.Formats = []ExportFormat{ExportFormatJSON}
	}
	for i, f := range up.Formats {
		parsed, err := ParseExportFormat(string(f))
		if err != nil {
			return fmt.Errorf("formats[%d]: %w", i, err)
		}
		up.Formats[i] = parsed
	}

	up.AccessKeyID = expandEnvVar(up.AccessKeyID)
	up.SecretAccessKey = expandEnvVar(up.SecretAccessKey)
	if (up.AccessKeyID == "") != (up.SecretAccessKey == "") {
		return errors.New("access_key_id and secret_access_key must be set together")
	}
	return nil
}

// expandEnvVar expands environment variables in the format ${VAR} or $VAR.
func expandEnvVar(s string) string {
	if s == "" {
		return s
	}

	// Handle ${VAR} format
	if strings.HasPrefix(s, "${") && strings.HasSuffix(s, "}") {
		varName := s[2 : len(s)-1]
		return os.Getenv(varName)
	}

	// Handle $VAR format (no braces)
	if strings.HasPrefix(s, "$") && !strings.HasPrefix(s, "${") {
		varName := s[1:]
		return os.Getenv(varName)
	}

	return s
}
