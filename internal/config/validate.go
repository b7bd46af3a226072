package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the configuration for values the daemon cannot run with.
func (c *Config) Validate() error {
	var problems []string

	if c.Paths.MediaRoot == "" {
		problems = append(problems, "paths.media_root must be set")
	}
	if c.Paths.DataDir == "" {
		problems = append(problems, "paths.data_dir must be set")
	}
	if c.Paths.LogDir == "" {
		problems = append(problems, "paths.log_dir must be set")
	}
	if c.Paths.APIBind == "" {
		problems = append(problems, "paths.api_bind must be set")
	} else if _, _, err := net.SplitHostPort(c.Paths.APIBind); err != nil {
		problems = append(problems, fmt.Sprintf("paths.api_bind %q is not a host:port address", c.Paths.APIBind))
	}

	if c.Public.BaseURL == "" {
		problems = append(problems, "public.base_url must be set")
	} else if parsed, err := url.Parse(c.Public.BaseURL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
		problems = append(problems, fmt.Sprintf("public.base_url %q is not an absolute URL", c.Public.BaseURL))
	}

	if c.Encoder.MaxWidth <= 0 {
		problems = append(problems, "encoder.max_width must be positive")
	}
	if c.Encoder.EncodeTimeout <= 0 {
		problems = append(problems, "encoder.encode_timeout must be positive")
	}

	if c.Workflow.QueuePollInterval <= 0 {
		problems = append(problems, "workflow.queue_poll_interval must be positive")
	}
	if c.Workflow.HeartbeatInterval <= 0 {
		problems = append(problems, "workflow.heartbeat_interval must be positive")
	}
	if c.Workflow.HeartbeatTimeout <= c.Workflow.HeartbeatInterval {
		problems = append(problems, "workflow.heartbeat_timeout must exceed workflow.heartbeat_interval")
	}
	if c.Workflow.MaxConcurrentEncodes <= 0 {
		problems = append(problems, "workflow.max_concurrent_encodes must be positive")
	}

	switch c.Logging.Format {
	case "", "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("logging.format %q must be console or json", c.Logging.Format))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("logging.level %q must be debug, info, warn, or error", c.Logging.Level))
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}
