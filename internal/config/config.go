// Package config handles loading and validating unipoll configuration.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} placeholders in config values.
var envVarPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// ErrConfigFileNotFound is returned by Load when the specified config file does not exist.
var ErrConfigFileNotFound = errors.New("config file not found")

// Config is the top-level unipoll configuration.
type Config struct {
	Listen        string               `yaml:"listen"`
	DBPath        string               `yaml:"db_path"`
	LogLevel      string               `yaml:"log_level"`
	LogFormat     string               `yaml:"log_format"`
	Controllers   []ControllerConfig   `yaml:"controllers"`
	Notifications []NotificationConfig `yaml:"notifications"`
	Retention     RetentionConfig      `yaml:"retention"`
}

// ControllerConfig describes a single UniFi controller to poll.
type ControllerConfig struct {
	Name             string   `yaml:"name"`
	Host             string   `yaml:"host"`
	Site             string   `yaml:"site"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	Insecure         bool     `yaml:"insecure"`
	PollInterval     Duration `yaml:"poll_interval"`
	MaxRetries       int      `yaml:"max_retries"`
	RetryBackoffBase Duration `yaml:"retry_backoff_base"`
	RetryBackoffCap  Duration `yaml:"retry_backoff_cap"`
}

// NotificationConfig describes a notification target.
type NotificationConfig struct {
	Type    string            `yaml:"type"` // "ntfy" or "webhook"
	URL     string            `yaml:"url"`
	Topic   string            `yaml:"topic,omitempty"`   // ntfy only
	Method  string            `yaml:"method,omitempty"`  // webhook only
	Headers map[string]string `yaml:"headers,omitempty"` // webhook only
}

// RetentionConfig sets how many days of history the pruner keeps per table.
type RetentionConfig struct {
	HostDays    int `yaml:"host_days"`    // offline clients
	MetricsDays int `yaml:"metrics_days"` // metric rows
	EventsDays  int `yaml:"events_days"`  // event rows
	RunsDays    int `yaml:"runs_days"`    // collection run rows
}

// Duration wraps time.Duration with YAML string parsing support.
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalYAML() (interface{}, error) {
	return d.String(), nil
}

// Load reads configuration from a YAML file. If no path is given, it falls
// back to environment variables for single-controller setup. If a path is
// given and the file does not exist, ErrConfigFileNotFound is returned.
func Load(path string) (*Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if len(data) > 0 {
			if err := yaml.Unmarshal(expandEnvVars(data), cfg); err != nil {
				return nil, fmt.Errorf("parsing config: %w", err)
			}
		}
	}

	applyEnvOverrides(cfg)
	applyControllerDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if len(c.Controllers) == 0 {
		return fmt.Errorf("at least one controller is required")
	}
	for i, ctrl := range c.Controllers {
		if ctrl.Name == "" {
			return fmt.Errorf("controllers[%d]: name is required", i)
		}
		if ctrl.Host == "" {
			return fmt.Errorf("controllers[%d]: host is required", i)
		}
		if _, err := url.Parse(ctrl.Host); err != nil {
			return fmt.Errorf("controllers[%d]: invalid host URL: %w", i, err)
		}
		if ctrl.Username == "" {
			return fmt.Errorf("controllers[%d]: username is required", i)
		}
		if ctrl.Password == "" {
			return fmt.Errorf("controllers[%d]: password is required", i)
		}
		if ctrl.MaxRetries < 1 {
			return fmt.Errorf("controllers[%d]: max_retries must be >= 1", i)
		}
		if ctrl.RetryBackoffBase.Duration <= 0 {
			return fmt.Errorf("controllers[%d]: retry_backoff_base must be > 0", i)
		}
		if ctrl.RetryBackoffCap.Duration < ctrl.RetryBackoffBase.Duration {
			return fmt.Errorf("controllers[%d]: retry_backoff_cap must be >= retry_backoff_base", i)
		}
	}
	for i, n := range c.Notifications {
		switch n.Type {
		case "ntfy":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for ntfy", i)
			}
			if n.Topic == "" {
				return fmt.Errorf("notifications[%d]: topic is required for ntfy", i)
			}
		case "webhook":
			if n.URL == "" {
				return fmt.Errorf("notifications[%d]: url is required for webhook", i)
			}
		default:
			return fmt.Errorf("notifications[%d]: unknown type %q (expected ntfy or webhook)", i, n.Type)
		}
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.LogLevel] {
		return fmt.Errorf("log_level must be one of: debug, info, warn, error")
	}
	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.LogFormat] {
		return fmt.Errorf("log_format must be one of: text, json")
	}
	if c.Retention.HostDays < 1 || c.Retention.MetricsDays < 1 ||
		c.Retention.EventsDays < 1 || c.Retention.RunsDays < 1 {
		return fmt.Errorf("retention periods must be >= 1 day")
	}
	return nil
}

func defaults() *Config {
	return &Config{
		Listen:    ":3900",
		DBPath:    "/data/unipoll.db",
		LogLevel:  "info",
		LogFormat: "text",
		Retention: RetentionConfig{
			HostDays:    30,
			MetricsDays: 14,
			EventsDays:  30,
			RunsDays:    7,
		},
	}
}

func applyControllerDefaults(cfg *Config) {
	for i := range cfg.Controllers {
		ctrl := &cfg.Controllers[i]
		if ctrl.Site == "" {
			ctrl.Site = "default"
		}
		if ctrl.PollInterval.Duration == 0 {
			ctrl.PollInterval = Duration{60 * time.Second}
		}
		if ctrl.MaxRetries == 0 {
			ctrl.MaxRetries = 3
		}
		if ctrl.RetryBackoffBase.Duration == 0 {
			ctrl.RetryBackoffBase = Duration{2 * time.Second}
		}
		if ctrl.RetryBackoffCap.Duration == 0 {
			ctrl.RetryBackoffCap = Duration{30 * time.Second}
		}
	}
}

// expandEnvVars replaces ${VAR_NAME} placeholders in raw YAML with the
// corresponding environment variable values. Unset variables are replaced
// with an empty string, which will then fail validation with a clear error.
func expandEnvVars(data []byte) []byte {
	return envVarPattern.ReplaceAllFunc(data, func(match []byte) []byte {
		key := string(match[2 : len(match)-1]) // strip ${ and }
		return []byte(os.Getenv(key))
	})
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("UNIPOLL_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("UNIPOLL_DB_PATH"); v != "" {
		cfg.DBPath = v
	}
	if v := os.Getenv("UNIPOLL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("UNIPOLL_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	// Single-controller setup from env vars (only if no YAML controllers).
	if len(cfg.Controllers) == 0 {
		if host := os.Getenv("UNIPOLL_CONTROLLER_URL"); host != "" {
			insecure := os.Getenv("UNIPOLL_CONTROLLER_INSECURE") == "true" || os.Getenv("UNIPOLL_CONTROLLER_INSECURE") == "1"
			ctrl := ControllerConfig{
				Name:     "default",
				Host:     host,
				Site:     os.Getenv("UNIPOLL_CONTROLLER_SITE"),
				Username: os.Getenv("UNIPOLL_CONTROLLER_USER"),
				Password: os.Getenv("UNIPOLL_CONTROLLER_PASS"),
				Insecure: insecure,
			}
			cfg.Controllers = append(cfg.Controllers, ctrl)
		}
	}

	// Single ntfy target from env vars (only if no YAML notifications).
	if len(cfg.Notifications) == 0 {
		if ntfyURL := os.Getenv("UNIPOLL_NTFY_URL"); ntfyURL != "" {
			topic := os.Getenv("UNIPOLL_NTFY_TOPIC")
			if topic == "" {
				topic = "unipoll-events"
			}
			cfg.Notifications = append(cfg.Notifications, NotificationConfig{
				Type:  "ntfy",
				URL:   ntfyURL,
				Topic: topic,
			})
		}
	}

	// Retention overrides from env.
	if v := os.Getenv("UNIPOLL_HOST_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retention.HostDays = n
		}
	}
	if v := os.Getenv("UNIPOLL_METRICS_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retention.MetricsDays = n
		}
	}
	if v := os.Getenv("UNIPOLL_EVENTS_RETENTION_DAYS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retention.EventsDays = n
		}
	}
}
