package config

import (
	"errors"
	"io/fs"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Default values for configuration.
const (
	DefaultMarker         = "STEP"
	DefaultTimezone       = "UTC"
	DefaultWebhookTimeout = 10 * time.Second
	DefaultUploadRegion   = "us-east-1"
)

// Environment variable names.
const (
	EnvMarker       = "STEPTRACE_MARKER"
	EnvTimezone     = "STEPTRACE_TIMEZONE"
	EnvUploadBucket = "STEPTRACE_UPLOAD_BUCKET"
	EnvUploadPrefix = "STEPTRACE_UPLOAD_PREFIX"
	EnvLogLevel     = "STEPTRACE_LOG_LEVEL"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Marker:   DefaultMarker,
		Timezone: DefaultTimezone,
	}
}

// LoadDotEnv loads KEY=value pairs from the given files (".env" if none)
// into the process environment. Missing files are ignored and variables
// already set are not overwritten.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
	}
	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to the config.
func (c *Config) applyEnvironmentOverrides() {
	if marker := os.Getenv(EnvMarker); marker != "" {
		c.Marker = marker
	}
	if tz := os.Getenv(EnvTimezone); tz != "" {
		c.Timezone = tz
	}
	if bucket := os.Getenv(EnvUploadBucket); bucket != "" {
		if c.Upload == nil {
			c.Upload = &UploadConfig{}
		}
		c.Upload.Bucket = bucket
	}
	if prefix := os.Getenv(EnvUploadPrefix); prefix != "" && c.Upload != nil {
		c.Upload.Prefix = prefix
	}
}
