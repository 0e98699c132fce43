// Package config loads SeeQL configuration. Precedence, highest to
// lowest: CLI flags, SEEQL_ environment variables, seeql.yaml,
// built-in defaults.
package config

import (
	"time"

	"github.com/seeql-labs/seeql/internal/executor"
)

// Defaults.
const (
	DefaultPort          = 8080
	DefaultDatabase      = ":memory:"
	DefaultSessionSecret = "seeql-dev-secret"
)

// Config is the resolved application configuration.
type Config struct {
	// Port is the HTTP listen port.
	Port int `koanf:"port"`

	// SessionSecret signs session cookies.
	SessionSecret string `koanf:"session_secret"`

	// Database is the SQLite path; ":memory:" for the normal
	// in-memory playground.
	Database string `koanf:"database"`

	// DatasetsDir, when set, is scanned and watched for CSV files to
	// register as datasets.
	DatasetsDir string `koanf:"datasets_dir"`

	// RowLimit caps rows returned per query.
	RowLimit int `koanf:"row_limit"`

	// QueryTimeoutSec bounds query execution, in seconds.
	QueryTimeoutSec int `koanf:"query_timeout_sec"`

	Verbose bool `koanf:"verbose"`

	// Remote explanation service. Both base URL and model must be set
	// for augmentation to be enabled; otherwise the no-op augmenter is
	// used and all output is rule-based.
	AugmentBaseURL   string `koanf:"augment_base_url"`
	AugmentModel     string `koanf:"augment_model"`
	AugmentAPIKeyEnv string `koanf:"augment_api_key_env"`
}

// QueryTimeout returns the query timeout as a duration.
func (c *Config) QueryTimeout() time.Duration {
	return time.Duration(c.QueryTimeoutSec) * time.Second
}

// AugmentEnabled reports whether a remote explanation service is
// configured.
func (c *Config) AugmentEnabled() bool {
	return c.AugmentBaseURL != "" && c.AugmentModel != ""
}

// defaults returns the built-in defaults as a flat map for koanf.
func defaults() map[string]interface{} {
	return map[string]interface{}{
		"port":                DefaultPort,
		"session_secret":      DefaultSessionSecret,
		"database":            DefaultDatabase,
		"datasets_dir":        "",
		"row_limit":           executor.DefaultRowLimit,
		"query_timeout_sec":   int(executor.DefaultTimeout / time.Second),
		"verbose":             false,
		"augment_base_url":    "",
		"augment_model":       "",
		"augment_api_key_env": "SEEQL_API_KEY",
	}
}
