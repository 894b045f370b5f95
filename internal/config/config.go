package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL  = "http://localhost:5000"
	DefaultAuthPrefix = "/auth"
	envPrefix         = "TASKPROX_"
)

var ErrUnknownKey = errors.New("unknown config key")

// Config holds user preferences
type Config struct {
	ServerURL  string        `yaml:"server_url" json:"server_url"`
	AuthPrefix string        `yaml:"auth_prefix" json:"auth_prefix"` // some deployments mount auth under /api/auth
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`

	CreatorMatch      string        `yaml:"creator_match" json:"creator_match"` // email, name or email+name
	SessionCheckDelay time.Duration `yaml:"session_check_delay" json:"session_check_delay"`

	DefaultView   string `yaml:"default_view" json:"default_view"` // table, kanban or calendar
	DarkMode      bool   `yaml:"dark_mode" json:"dark_mode"`
	ConfirmDelete bool   `yaml:"confirm_delete" json:"confirm_delete"`

	// Logging configuration
	LogLevel   string `yaml:"log_level" json:"log_level"` // DEBUG, INFO, WARN, ERROR
	LogFile    string `yaml:"log_file" json:"log_file"`
	LogConsole bool   `yaml:"log_console" json:"log_console"`
}

// Dir returns the application directory. TASKPROX_HOME overrides ~/.taskprox.
func Dir() (string, error) {
	if dir := os.Getenv(envPrefix + "HOME"); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".taskprox"), nil
}

// Path returns the location of config.yaml
func Path() (string, error) {
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// DefaultConfig returns default settings
func DefaultConfig() *Config {
	logPath := ""
	if dir, err := Dir(); err == nil {
		logPath = filepath.Join(dir, "logs", "taskprox.log")
	}

	return &Config{
		ServerURL:         DefaultServerURL,
		AuthPrefix:        DefaultAuthPrefix,
		Timeout:           30 * time.Second,
		CreatorMatch:      "email+name",
		SessionCheckDelay: 300 * time.Millisecond,
		DefaultView:       "table",
		DarkMode:          false,
		ConfirmDelete:     true,
		LogLevel:          "INFO",
		LogFile:           logPath,
		LogConsole:        false,
	}
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// Load reads config.yaml over the defaults, then applies .env and
// TASKPROX_* environment overrides.
func Load() (*Config, error) {
	// a missing .env is normal
	_ = godotenv.Load()

	cfg := DefaultConfig()

	path, err := Path()
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() error {
	for _, key := range Keys() {
		value, ok := os.LookupEnv(envPrefix + strings.ToUpper(key))
		if !ok || value == "" {
			continue
		}
		if err := c.Set(key, value); err != nil {
			return fmt.Errorf("%s%s: %w", envPrefix, strings.ToUpper(key), err)
		}
	}
	return nil
}

// Save writes the config to config.yaml
func (c *Config) Save() error {
	path, err := Path()
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Keys lists the settable keys in display order
func Keys() []string {
	keys := make([]string, 0, len(accessors))
	for k := range accessors {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type accessor struct {
	get func(*Config) string
	set func(*Config, string) error
}

var accessors = map[string]accessor{
	"server_url": {
		get: func(c *Config) string { return c.ServerURL },
		set: func(c *Config, v string) error { c.ServerURL = strings.TrimRight(v, "/"); return nil },
	},
	"auth_prefix": {
		get: func(c *Config) string { return c.AuthPrefix },
		set: func(c *Config, v string) error { c.AuthPrefix = "/" + strings.Trim(v, "/"); return nil },
	},
	"timeout": {
		get: func(c *Config) string { return c.Timeout.String() },
		set: func(c *Config, v string) error { return setDuration(&c.Timeout, v) },
	},
	"creator_match": {
		get: func(c *Config) string { return c.CreatorMatch },
		set: func(c *Config, v string) error {
			return setOneOf(&c.CreatorMatch, v, "email", "name", "email+name")
		},
	},
	"session_check_delay": {
		get: func(c *Config) string { return c.SessionCheckDelay.String() },
		set: func(c *Config, v string) error { return setDuration(&c.SessionCheckDelay, v) },
	},
	"default_view": {
		get: func(c *Config) string { return c.DefaultView },
		set: func(c *Config, v string) error {
			return setOneOf(&c.DefaultView, v, "table", "kanban", "calendar")
		},
	},
	"dark_mode": {
		get: func(c *Config) string { return strconv.FormatBool(c.DarkMode) },
		set: func(c *Config, v string) error { return setBool(&c.DarkMode, v) },
	},
	"confirm_delete": {
		get: func(c *Config) string { return strconv.FormatBool(c.ConfirmDelete) },
		set: func(c *Config, v string) error { return setBool(&c.ConfirmDelete, v) },
	},
	"log_level": {
		get: func(c *Config) string { return c.LogLevel },
		set: func(c *Config, v string) error {
			return setOneOf(&c.LogLevel, strings.ToUpper(v), "DEBUG", "INFO", "WARN", "ERROR")
		},
	},
	"log_file": {
		get: func(c *Config) string { return c.LogFile },
		set: func(c *Config, v string) error { c.LogFile = v; return nil },
	},
	"log_console": {
		get: func(c *Config) string { return strconv.FormatBool(c.LogConsole) },
		set: func(c *Config, v string) error { return setBool(&c.LogConsole, v) },
	},
}

// Get returns a key's value as text
func (c *Config) Get(key string) (string, error) {
	a, ok := accessors[key]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return a.get(c), nil
}

// Set parses and assigns a key's value
func (c *Config) Set(key, value string) error {
	a, ok := accessors[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	return a.set(c, strings.TrimSpace(value))
}

func setDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid duration %q", v)
	}
	if d < 0 {
		return fmt.Errorf("duration must not be negative")
	}
	*dst = d
	return nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid boolean %q", v)
	}
	*dst = b
	return nil
}

func setOneOf(dst *string, v string, allowed ...string) error {
	for _, a := range allowed {
		if v == a {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("must be one of %s", strings.Join(allowed, ", "))
}
