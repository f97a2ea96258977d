// Package config assembles the run configuration from the environment and
// command-line flags. main builds one Config, validates it and passes the
// pieces explicitly into constructors; nothing here is global.
//
// Precedence is flag → env → default, as applied by main.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joho/godotenv"
)

// Environment variables read by FromEnv.
const (
	EnvDSN            = "CONN_DATABASE_POSTGRES_DEFAULT"
	EnvBaseURL        = "CONN_ONDERWIJSDATA_DUO_BASE_URL"
	EnvDownloadDir    = "DATA_PROCESSOR_DOWNLOAD_DIR"
	EnvMetricsBackend = "METRICS_BACKEND"
	EnvPushgatewayURL = "PUSHGATEWAY_URL"
	EnvDatadogAddr    = "DD_DOGSTATSD_ADDR"
	EnvBatchSize      = "DATA_PROCESSOR_BATCH_SIZE"
)

// Defaults.
const (
	DefaultSchema        = "dataset_onderwijs"
	DefaultResource      = "onderwijsbesturen"
	DefaultDatasetPrefix = "onderwijs"
	DefaultDownloadDir   = "/usr/local/data_processor/downloads/"
	DefaultTimeout       = 5 * time.Minute
	DefaultBatchSize     = 5000
	DefaultParallel      = 1
	DefaultMetricsJob    = "dataprocessor"
)

// Config is the full run configuration.
type Config struct {
	DSN     string // Postgres connection string
	BaseURL string // DUO open-data base URL

	Schema        string
	Resources     []string
	DatasetPrefix string

	DownloadDir  string
	RegistryPath string // empty selects the embedded registry
	Delimiter    string // CSV field delimiter, one character
	Timeout      time.Duration
	BatchSize    int
	Parallel     int
	JournalPath  string // empty disables the run journal

	Metrics Metrics
}

// Metrics selects and configures the metrics backend.
type Metrics struct {
	Backend        string // "none", "pushgateway" or "datadog"
	PushgatewayURL string
	DatadogAddr    string
	Job            string
}

// LoadDotEnv loads KEY=value files into the process environment without
// overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("config: load %s: %w", p, err)
		}
	}
	return nil
}

// FromEnv returns a Config holding defaults overlaid with the environment.
// getenv is usually os.Getenv.
func FromEnv(getenv func(string) string) Config {
	c := Config{
		DSN:           strings.TrimSpace(getenv(EnvDSN)),
		BaseURL:       strings.TrimSpace(getenv(EnvBaseURL)),
		Schema:        DefaultSchema,
		Resources:     []string{DefaultResource},
		DatasetPrefix: DefaultDatasetPrefix,
		DownloadDir:   DefaultDownloadDir,
		Delimiter:     ",",
		Timeout:       DefaultTimeout,
		BatchSize:     DefaultBatchSize,
		Parallel:      DefaultParallel,
		Metrics: Metrics{
			Backend:        getenv(EnvMetricsBackend),
			PushgatewayURL: getenv(EnvPushgatewayURL),
			DatadogAddr:    getenv(EnvDatadogAddr),
			Job:            DefaultMetricsJob,
		},
	}
	if v := getenv(EnvDownloadDir); v != "" {
		c.DownloadDir = v
	}
	if v := getenv(EnvBatchSize); v != "" {
		// A malformed value is left for ValidateConfig to report.
		if n, err := strconv.Atoi(v); err == nil {
			c.BatchSize = n
		} else {
			c.BatchSize = -1
		}
	}
	if c.Metrics.Backend == "" {
		c.Metrics.Backend = "none"
	}
	return c
}

// ParseResources splits a comma-separated list, trimming blanks.
func ParseResources(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Comma returns Delimiter as a rune; "\t" and "tab" mean a tab.
func (c Config) Comma() (rune, error) {
	switch c.Delimiter {
	case "", ",":
		return ',', nil
	case `\t`, "tab":
		return '\t', nil
	}
	if utf8.RuneCountInString(c.Delimiter) != 1 {
		return 0, fmt.Errorf("config: delimiter %q must be a single character", c.Delimiter)
	}
	r, _ := utf8.DecodeRuneInString(c.Delimiter)
	if r == '"' || r == '\r' || r == '\n' || r == utf8.RuneError {
		return 0, fmt.Errorf("config: delimiter %q is not allowed", c.Delimiter)
	}
	return r, nil
}
