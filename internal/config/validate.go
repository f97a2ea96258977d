package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"dataprocessor/internal/registry"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced but does not block.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding. Path names the setting
// ("dsn", "resources[1]", "metrics.backend").
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue is an error.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Postgres truncates identifiers longer than this.
const maxIdentLen = 63

var identRE = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateConfig checks c without mutating it. When reg is non-nil every
// resource must resolve in the DUO/RIO branch of reg.
func ValidateConfig(c Config, reg registry.Registry) []Issue {
	var issues []Issue
	add := func(sev IssueSeverity, path, format string, args ...any) {
		issues = append(issues, Issue{Severity: sev, Path: path, Message: fmt.Sprintf(format, args...)})
	}

	if c.DSN == "" {
		add(SeverityError, "dsn", "database connection string is required (set %s)", EnvDSN)
	}
	if c.BaseURL == "" {
		add(SeverityError, "base_url", "DUO base URL is required (set %s)", EnvBaseURL)
	} else if u, err := url.Parse(c.BaseURL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		add(SeverityError, "base_url", "%q is not an absolute http(s) URL", c.BaseURL)
	}

	if c.Schema == "" {
		add(SeverityError, "schema", "schema must not be empty")
	} else if !identRE.MatchString(c.Schema) {
		add(SeverityWarning, "schema", "%q is not a plain lowercase identifier; it will be quoted", c.Schema)
	}
	if c.DatasetPrefix == "" {
		add(SeverityError, "dataset", "dataset prefix must not be empty")
	}

	if len(c.Resources) == 0 {
		add(SeverityError, "resources", "at least one resource is required")
	}
	seen := make(map[string]int, len(c.Resources))
	for i, r := range c.Resources {
		path := fmt.Sprintf("resources[%d]", i)
		if j, dup := seen[r]; dup {
			add(SeverityError, path, "resource %q is listed twice (also resources[%d])", r, j)
			continue
		}
		seen[r] = i
		if reg != nil {
			if _, err := reg.Resolve(registry.SourceDUO, registry.FamilyRIO, r); err != nil {
				add(SeverityError, path, "%v (known: %s)", err,
					strings.Join(reg.Names(registry.SourceDUO, registry.FamilyRIO), ", "))
			}
		}
		if table := c.DatasetPrefix + "_" + r + "_new"; len(table) > maxIdentLen {
			add(SeverityWarning, path, "table name %q exceeds %d bytes and will be truncated by Postgres", table, maxIdentLen)
		}
	}

	if strings.TrimSpace(c.DownloadDir) == "" {
		add(SeverityError, "download_dir", "download directory must not be empty")
	}
	if _, err := c.Comma(); err != nil {
		add(SeverityError, "delimiter", "%v", err)
	}
	if c.Timeout <= 0 {
		add(SeverityError, "timeout", "timeout must be > 0")
	}
	if c.BatchSize <= 0 {
		add(SeverityError, "batch_size", "batch size must be a positive integer")
	}
	if c.Parallel < 1 {
		add(SeverityError, "parallel", "parallel must be >= 1")
	} else if len(c.Resources) > 0 && c.Parallel > len(c.Resources) {
		add(SeverityWarning, "parallel", "parallel=%d exceeds the %d resource(s) to load", c.Parallel, len(c.Resources))
	}

	switch c.Metrics.Backend {
	case "", "none":
	case "pushgateway":
		if c.Metrics.PushgatewayURL == "" {
			add(SeverityError, "metrics.pushgateway_url", "pushgateway backend needs a URL (flag or %s)", EnvPushgatewayURL)
		}
	case "datadog":
		if c.Metrics.DatadogAddr == "" {
			add(SeverityError, "metrics.datadog_addr", "datadog backend needs an address (flag or %s)", EnvDatadogAddr)
		}
	default:
		add(SeverityWarning, "metrics.backend", "unknown backend %q; metrics disabled", c.Metrics.Backend)
	}

	return issues
}
