// Package config provides configuration loading and validation for steptrace.
package config

import (
	"time"
)

// Config is the root configuration structure loaded from YAML.
type Config struct {
	// Marker is the token that identifies step lines (default "STEP").
	Marker string `yaml:"marker"`

	// Timezone is the IANA zone the trace timestamps were written in.
	Timezone string `yaml:"timezone"`

	Exports  []ExportConfig  `yaml:"exports,omitempty"`
	Webhooks []WebhookConfig `yaml:"webhooks,omitempty"`
	Upload   *UploadConfig   `yaml:"upload,omitempty"`

	// location is the loaded Timezone (populated during validation).
	location *time.Location
}

// Location returns the loaded time zone, UTC if not yet validated.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.UTC
	}
	return c.location
}

// ExportFormat names a report renderer.
type ExportFormat string

const (
	ExportFormatText    ExportFormat = "text"
	ExportFormatJSON    ExportFormat = "json"
	ExportFormatCSV     ExportFormat = "csv"
	ExportFormatHTML    ExportFormat = "html"
	ExportFormatMetrics ExportFormat = "metrics"
)

// ExportConfig writes one report file after every analysis.
type ExportConfig struct {
	Format ExportFormat `yaml:"format"`

	// Path is the destination file. With several trace files, {name} is
	// replaced by the trace file's base name without extension.
	Path string `yaml:"path"`
}

// WebhookTrigger determines when a webhook fires.
type WebhookTrigger string

const (
	// WebhookTriggerOnFailures fires only when a step failed (default).
	WebhookTriggerOnFailures WebhookTrigger = "on_failures"
	// WebhookTriggerAlways fires after every analysis.
	WebhookTriggerAlways WebhookTrigger = "always"
	// WebhookTriggerNever disables the webhook.
	WebhookTriggerNever WebhookTrigger = "never"
)

// WebhookConfig defines a webhook endpoint for sending analysis results.
type WebhookConfig struct {
	// Name is an optional identifier for the webhook.
	Name string `yaml:"name,omitempty"`

	// URL is the webhook endpoint (required).
	URL string `yaml:"url"`

	// Token is an optional bearer token for authentication.
	Token string `yaml:"token,omitempty"`

	// Trigger determines when the webhook fires.
	// Defaults to "on_failures" if not specified.
	Trigger WebhookTrigger `yaml:"trigger,omitempty"`

	// Timeout is the HTTP request timeout.
	// Defaults to 10s if not specified.
	Timeout time.Duration `yaml:"timeout,omitempty"`
}

// UploadConfig sends exported reports to an S3-compatible bucket.
// Credentials fall back to the AWS default chain when unset.
type UploadConfig struct {
	Bucket       string `yaml:"bucket"`
	Prefix       string `yaml:"prefix,omitempty"`
	Region       string `yaml:"region,omitempty"`
	Endpoint     string `yaml:"endpoint,omitempty"`
	UsePathStyle bool   `yaml:"use_path_style,omitempty"`

	// Formats lists the renderings to upload per report (default json).
	Formats []ExportFormat `yaml:"formats,omitempty"`

	// AccessKeyID and SecretAccessKey accept ${VAR} references.
	AccessKeyID     string `yaml:"access_key_id,omitempty"`
	SecretAccessKey string `yaml:"secret_access_key,omitempty"`
}
