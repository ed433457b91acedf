package config

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/vango-dev/livedev/internal/errors"
	"github.com/vango-dev/livedev/internal/watch"
)

const (
	// ConfigFileName is the name of the optional configuration file.
	ConfigFileName = "livedev.json"

	// DefaultPort is the default development server port.
	DefaultPort = 3000

	// DefaultHost is the default development server host.
	DefaultHost = "localhost"

	// DefaultTransport is the transport used by the injected client.
	DefaultTransport = "websocket"

	// DefaultStderrLimit is the default cap on captured stderr, in bytes.
	DefaultStderrLimit = 1 << 20

	// DefaultPollInterval is the default scan interval of the polling watcher.
	DefaultPollInterval = "250ms"

	// DefaultReconnectDelay is the default delay between client reconnects.
	DefaultReconnectDelay = "2.5s"
)

// Environment variables read by ApplyEnv.
const (
	EnvAddress = "DEV_SERVER_ADDRESS"
	EnvPort    = "DEV_SERVER_PORT"
)

// Config represents the complete livedev.json configuration.
type Config struct {
	// Host is the address to bind to.
	Host string `json:"host,omitempty"`

	// Port is the port to listen on. Zero picks a free port.
	Port int `json:"port"`

	// PushState serves the root index.html for unresolved HTML paths.
	PushState bool `json:"pushState,omitempty"`

	// Transport is "websocket" or "poll".
	Transport string `json:"transport,omitempty"`

	// StderrIsFailure treats any stderr output of a successful command as a
	// build failure.
	StderrIsFailure bool `json:"stderrIsFailure"`

	// StderrLimit caps the stderr kept for error messages, in bytes.
	StderrLimit int `json:"stderrLimit,omitempty"`

	// Poll uses the polling watcher instead of native notifications.
	Poll bool `json:"poll,omitempty"`

	// PollInterval is the scan interval of the polling watcher.
	PollInterval string `json:"pollInterval,omitempty"`

	// ReconnectDelay is how long the browser waits before reconnecting.
	ReconnectDelay string `json:"reconnectDelay,omitempty"`

	// Metrics exposes Prometheus metrics at /__livedev/metrics.
	Metrics bool `json:"metrics"`

	// Trace writes OpenTelemetry spans for builds and broadcasts to stderr.
	Trace bool `json:"trace,omitempty"`

	// Open opens the browser on start.
	Open bool `json:"open,omitempty"`

	// Ignore lists directory names skipped while watching.
	Ignore []string `json:"ignore,omitempty"`

	// Rules are the watch rules.
	Rules []RuleConfig `json:"rules,omitempty"`

	// Root is the directory being served. It is set from the command line,
	// never from the file.
	Root string `json:"-"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RuleConfig is a watch rule as written in livedev.json or on the command line.
type RuleConfig struct {
	Pattern string `json:"pattern"`
	Command string `json:"command,omitempty"`
	Silent  bool   `json:"silent,omitempty"`

	// Dir is the directory a relative pattern is resolved against and the
	// command runs in.
	Dir string `json:"-"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Host:            DefaultHost,
		Port:            DefaultPort,
		Transport:       DefaultTransport,
		StderrIsFailure: true,
		StderrLimit:     DefaultStderrLimit,
		PollInterval:    DefaultPollInterval,
		ReconnectDelay:  DefaultReconnectDelay,
		Metrics:         true,
		Root:            ".",
	}
}

// Load reads livedev.json from dir. A missing file is not an error; the
// defaults are returned instead.
func Load(dir string) (*Config, error) {
	if !Exists(dir) {
		cfg := New()
		cfg.Root = dir
		return cfg, nil
	}

	cfg, err := LoadFile(filepath.Join(dir, ConfigFileName))
	if err != nil {
		return nil, err
	}
	cfg.Root = dir
	return cfg, nil
}

// LoadFile reads configuration from the specified file path. Relative rule
// patterns are resolved against the file's directory.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E101").WithDetail(path)
		}
		return nil, errors.New("E100").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E100").
			WithDetail("Failed to parse " + path + ": " + err.Error())
	}

	cfg.configPath = path
	cfg.applyDefaults()
	for i := range cfg.Rules {
		cfg.Rules[i].Dir = cfg.Dir()
	}

	return cfg, nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Transport == "" {
		c.Transport = DefaultTransport
	}
	if c.StderrLimit == 0 {
		c.StderrLimit = DefaultStderrLimit
	}
	if c.PollInterval == "" {
		c.PollInterval = DefaultPollInterval
	}
	if c.ReconnectDelay == "" {
		c.ReconnectDelay = DefaultReconnectDelay
	}
}

// ApplyEnv overrides the listen address from the environment. getenv is
// usually os.Getenv.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if host := strings.TrimSpace(getenv(EnvAddress)); host != "" {
		c.Host = host
	}
	if raw := strings.TrimSpace(getenv(EnvPort)); raw != "" {
		port, err := strconv.Atoi(raw)
		if err != nil {
			return errors.New("E102").WithDetail(EnvPort + "=" + raw)
		}
		c.Port = port
	}
	return nil
}

// AddRule appends a rule parsed from PATTERN or PATTERN=COMMAND, resolving
// a relative pattern against dir.
func (c *Config) AddRule(spec, dir string, silent bool) error {
	rule, err := ParseRule(spec)
	if err != nil {
		return err
	}
	rule.Dir = dir
	rule.Silent = silent
	c.Rules = append(c.Rules, rule)
	return nil
}

// ParseRule parses PATTERN or PATTERN=COMMAND. The pattern ends at the first
// "=".
func ParseRule(spec string) (RuleConfig, error) {
	pattern, command, _ := strings.Cut(spec, "=")
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return RuleConfig{}, errors.New("E106").WithDetail(`"` + spec + `"`)
	}
	return RuleConfig{
		Pattern: pattern,
		Command: strings.TrimSpace(command),
	}, nil
}

// WatchRules builds the validated watch rules.
func (c *Config) WatchRules() ([]*watch.Rule, error) {
	rules := make([]*watch.Rule, 0, len(c.Rules))
	for _, rc := range c.Rules {
		if strings.TrimSpace(rc.Pattern) == "" {
			return nil, errors.New("E106").WithDetail("rule with empty pattern")
		}
		dir := rc.Dir
		if dir == "" {
			dir = c.Dir()
		}
		if dir == "" {
			dir = "."
		}
		rule, err := watch.NewRule(rc.Pattern, rc.Command, rc.Silent, dir)
		if err != nil {
			return nil, err
		}
		rules = append(rules, rule)
	}
	return rules, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("E102").
			WithDetail("Port must be between 0 and 65535, got " + strconv.Itoa(c.Port))
	}
	if c.Transport != "websocket" && c.Transport != "poll" {
		return errors.New("E103").WithDetail(`"` + c.Transport + `"`)
	}
	if c.StderrLimit <= 0 {
		return errors.New("E107").
			WithDetail("stderrLimit must be positive, got " + strconv.Itoa(c.StderrLimit))
	}
	if _, err := parseDuration("pollInterval", c.PollInterval); err != nil {
		return err
	}
	if _, err := parseDuration("reconnectDelay", c.ReconnectDelay); err != nil {
		return err
	}

	info, err := os.Stat(c.Root)
	if err != nil || !info.IsDir() {
		return errors.New("E105").WithDetail(c.Root)
	}

	if _, err := c.WatchRules(); err != nil {
		return err
	}
	return nil
}

// RootPath returns the absolute path of the served directory.
func (c *Config) RootPath() string {
	abs, err := filepath.Abs(c.Root)
	if err != nil {
		return c.Root
	}
	return abs
}

// PollIntervalDuration returns the parsed poll interval.
func (c *Config) PollIntervalDuration() time.Duration {
	d, _ := parseDuration("pollInterval", c.PollInterval)
	return d
}

// ReconnectDelayDuration returns the parsed reconnect delay.
func (c *Config) ReconnectDelayDuration() time.Duration {
	d, _ := parseDuration("reconnectDelay", c.ReconnectDelay)
	return d
}

// DevAddress returns the address string for the dev server.
func (c *Config) DevAddress() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// DevURL returns the full URL for the dev server.
func (c *Config) DevURL() string {
	return "http://" + c.DevAddress()
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	path := filepath.Join(dir, ConfigFileName)
	_, err := os.Stat(path)
	return err == nil
}

func parseDuration(field, value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.New("E104").WithDetail(field + ": " + strconv.Quote(value))
	}
	if d <= 0 {
		return 0, errors.New("E104").WithDetail(field + " must be positive")
	}
	return d, nil
}
