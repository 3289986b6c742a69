// Package config provides YAML configuration parsing for pulseagent.
//
// This package lets the pulseagent binary run as a sidecar with a
// configuration file, as an alternative to the programmatic SDK approach.
//
// Example configuration:
//
//	check_in_interval: 60s
//	thread_dump_interval: 15m
//	scrub_pattern: ".*secret.*"
//
//	app:
//	  id: billing
//	  version: ${APP_VERSION:-dev}
//	  environment: prod
//	  extended:
//	    team: payments
//
//	senders:
//	  - type: http
//	    url: https://collector.internal
//	    timeout: 5s
//	  - type: kafka
//	    brokers: ${KAFKA_BROKERS}
//	    topic: agent-events
//	    topics:
//	      THREAD_DUMP: agent-dumps
//	  - type: redis
//	    url: redis://localhost:6379/0
//	    topic: agent-events
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/jpalmerr/pulseagent"
)

// Sender types.
const (
	SenderHTTP  = "http"
	SenderKafka = "kafka"
	SenderRedis = "redis"
)

const (
	defaultCheckInInterval  = 60 * time.Second
	defaultFailureThreshold = 10
)

// Config is the root configuration structure for pulseagent.
//
// It maps directly to the YAML configuration file structure.
// Use [Load] or [Parse] to create a Config from YAML.
type Config struct {
	// CheckInInterval is the time between periodic check-ins.
	// Defaults to 60s. Zero or negative disables the periodic check-in.
	CheckInInterval *Duration `yaml:"check_in_interval"`

	// ThreadDumpInterval is the time between periodic thread dumps.
	// Disabled unless set to a positive duration.
	ThreadDumpInterval *Duration `yaml:"thread_dump_interval"`

	// FailureThreshold is the number of consecutive delivery failures after
	// which failures are logged as warnings. Defaults to 10.
	FailureThreshold int `yaml:"failure_threshold"`

	// ScrubPattern is an extra regular expression for configuration keys
	// whose values are redacted in app-config dumps.
	ScrubPattern string `yaml:"scrub_pattern"`

	// App is the application metadata reported with every check-in.
	App AppConfig `yaml:"app"`

	// Senders are the transports every document is delivered to.
	Senders []SenderConfig `yaml:"senders"`
}

// AppConfig describes the host application.
// String values support environment variable substitution.
type AppConfig struct {
	ID             string         `yaml:"id"`
	Version        string         `yaml:"version"`
	ScmRevision    string         `yaml:"scm_revision"`
	ScmBranch      string         `yaml:"scm_branch"`
	Environment    string         `yaml:"environment"`
	SubEnvironment string         `yaml:"sub_environment"`
	BuildTime      time.Time      `yaml:"build_time"`
	DeployTime     time.Time      `yaml:"deploy_time"`
	Extended       map[string]any `yaml:"extended"`
}

// SenderConfig defines one transport. Which fields apply depends on Type.
// String values support environment variable substitution.
type SenderConfig struct {
	// Type is "http", "kafka" or "redis".
	Type string `yaml:"type"`

	// URL is the collector base URL (http) or a redis:// URL (redis).
	URL string `yaml:"url"`

	// Timeout bounds each HTTP request. Defaults to 10s.
	Timeout Duration `yaml:"timeout"`

	// Username and Password enable HTTP basic auth.
	Username string `yaml:"username"`
	Password string `yaml:"password"`

	// Headers are extra HTTP request headers.
	Headers map[string]string `yaml:"headers"`

	// HTTP2 enables HTTP/2 for TLS collectors.
	HTTP2 bool `yaml:"http2"`

	// Brokers is a comma-separated Kafka broker list.
	Brokers string `yaml:"brokers"`

	// Topic is the default topic (kafka) or channel (redis).
	Topic string `yaml:"topic"`

	// Topics overrides Topic per message type, e.g. THREAD_DUMP: agent-dumps.
	Topics map[string]string `yaml:"topics"`
}

// Duration wraps time.Duration for YAML unmarshalling.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler for Duration.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}

	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}

	*d = Duration(parsed)
	return nil
}

// Duration returns the underlying time.Duration value.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

// envVarPattern matches ${VAR} and ${VAR:-default} patterns.
// Group 1: variable name
// Group 2: the ":-default" part (if present, indicates a default was specified)
// Group 3: the default value (may be empty for ${VAR:-})
var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// expandEnvVars replaces ${VAR} and ${VAR:-default} patterns with environment values.
func expandEnvVars(s string) (string, error) {
	var firstErr error

	result := envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		if firstErr != nil {
			return match
		}

		submatches := envVarPattern.FindStringSubmatch(match)
		if len(submatches) < 2 {
			return match
		}

		varName := submatches[1]
		hasDefault := len(submatches) > 2 && submatches[2] != ""
		defaultVal := ""
		if hasDefault && len(submatches) > 3 {
			defaultVal = submatches[3]
		}

		value, exists := os.LookupEnv(varName)
		if !exists {
			if hasDefault {
				return defaultVal
			}
			firstErr = fmt.Errorf("environment variable %q is not set", varName)
			return match
		}
		return value
	})

	if firstErr != nil {
		return "", firstErr
	}
	return result, nil
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. Variables that are already set are not overridden.
func LoadEnvFile(path string) error {
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// Load reads and parses a YAML configuration file.
//
// A .env file in the same directory, if present, is loaded into the
// environment first. Environment variables in the file are expanded during
// validation. Returns an error if the file cannot be read or parsed.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	envPath := filepath.Join(filepath.Dir(path), ".env")
	if _, err := os.Stat(envPath); err == nil {
		if err := LoadEnvFile(envPath); err != nil {
			return nil, err
		}
	}

	return Parse(data)
}

// Parse parses YAML configuration data.
//
// Defaults are applied for CheckInInterval (60s), ThreadDumpInterval
// (disabled) and FailureThreshold (10).
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if cfg.CheckInInterval == nil {
		d := Duration(defaultCheckInInterval)
		cfg.CheckInInterval = &d
	}
	if cfg.ThreadDumpInterval == nil {
		d := Duration(0)
		cfg.ThreadDumpInterval = &d
	}
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = defaultFailureThreshold
	}

	if err := cfg.expandAndValidate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// expandAndValidate expands environment variables and validates the config.
func (c *Config) expandAndValidate() error {
	if c.FailureThreshold < 0 {
		return fmt.Errorf("failure_threshold must be positive, got %d", c.FailureThreshold)
	}

	if c.ScrubPattern != "" {
		if _, err := regexp.Compile(c.ScrubPattern); err != nil {
			return fmt.Errorf("scrub_pattern: %w", err)
		}
	}

	if err := c.App.expand(); err != nil {
		return err
	}

	for i := range c.Senders {
		if err := c.Senders[i].expandAndValidate(i); err != nil {
			return err
		}
	}

	if len(c.Senders) == 0 {
		return errors.New("at least one sender must be defined")
	}

	return nil
}

func (a *AppConfig) expand() error {
	fields := []struct {
		name string
		val  *string
	}{
		{"id", &a.ID},
		{"version", &a.Version},
		{"scm_revision", &a.ScmRevision},
		{"scm_branch", &a.ScmBranch},
		{"environment", &a.Environment},
		{"sub_environment", &a.SubEnvironment},
	}
	for _, f := range fields {
		expanded, err := expandEnvVars(*f.val)
		if err != nil {
			return fmt.Errorf("app: %s: %w", f.name, err)
		}
		*f.val = expanded
	}
	return nil
}

func (s *SenderConfig) expandAndValidate(i int) error {
	if s.Type == "" {
		return fmt.Errorf("senders[%d]: type is required", i)
	}
	ctx := fmt.Sprintf("senders[%d] (%s)", i, s.Type)

	for _, f := range []*string{&s.URL, &s.Username, &s.Password, &s.Brokers, &s.Topic} {
		expanded, err := expandEnvVars(*f)
		if err != nil {
			return fmt.Errorf("%s: %w", ctx, err)
		}
		*f = expanded
	}
	for k, v := range s.Headers {
		expanded, err := expandEnvVars(v)
		if err != nil {
			return fmt.Errorf("%s: headers[%s]: %w", ctx, k, err)
		}
		s.Headers[k] = expanded
	}

	switch s.Type {
	case SenderHTTP:
		if s.URL == "" {
			return fmt.Errorf("%s: url is required", ctx)
		}
		parsedURL, err := url.Parse(s.URL)
		if err != nil {
			return fmt.Errorf("%s: invalid url: %w", ctx, err)
		}
		if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
			return fmt.Errorf("%s: url scheme must be http or https, got %q", ctx, parsedURL.Scheme)
		}
		if s.Timeout.Duration() < 0 {
			return fmt.Errorf("%s: timeout cannot be negative, got %s", ctx, s.Timeout.Duration())
		}

	case SenderKafka:
		if strings.TrimSpace(strings.ReplaceAll(s.Brokers, ",", "")) == "" {
			return fmt.Errorf("%s: brokers is required", ctx)
		}
		if err := s.validateTopics(ctx); err != nil {
			return err
		}

	case SenderRedis:
		if s.URL == "" {
			return fmt.Errorf("%s: url is required", ctx)
		}
		if !strings.HasPrefix(s.URL, "redis://") && !strings.HasPrefix(s.URL, "rediss://") {
			return fmt.Errorf("%s: url scheme must be redis or rediss", ctx)
		}
		if err := s.validateTopics(ctx); err != nil {
			return err
		}

	default:
		return fmt.Errorf("senders[%d]: unknown sender type %q (expected http, kafka or redis)", i, s.Type)
	}

	return nil
}

var messageTypes = map[string]pulseagent.MessageType{
	pulseagent.MessageCheckIn.String():       pulseagent.MessageCheckIn,
	pulseagent.MessageAppEvent.String():      pulseagent.MessageAppEvent,
	pulseagent.MessageThreadDump.String():    pulseagent.MessageThreadDump,
	pulseagent.MessageAppConfigDump.String(): pulseagent.MessageAppConfigDump,
}

func (s *SenderConfig) validateTopics(ctx string) error {
	if s.Topic == "" {
		return fmt.Errorf("%s: topic is required", ctx)
	}
	for k, v := range s.Topics {
		if _, ok := messageTypes[k]; !ok {
			return fmt.Errorf("%s: topics: unknown message type %q", ctx, k)
		}
		if v == "" {
			return fmt.Errorf("%s: topics[%s]: topic cannot be empty", ctx, k)
		}
	}
	return nil
}
