package internal

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

const (
	// DefaultAPIBaseURL is the hosted backend used when nothing else is configured.
	DefaultAPIBaseURL = "https://miron22.onrender.com"
	// DefaultDateLayout is the tr-TR short date used for thread dates.
	DefaultDateLayout = "02.01.2006"

	configDirName = ".libra-session"
)

// APIConfig configures the backend REST client
type APIConfig struct {
	BaseURL string        `yaml:"base_url" env:"LIBRA_API_URL"`
	Timeout time.Duration `yaml:"timeout" env:"LIBRA_API_TIMEOUT"`
}

// AssistantConfig lists the assistant routes tried in order.
type AssistantConfig struct {
	Paths []string `yaml:"paths" env:"LIBRA_ASSISTANT_PATHS" envSeparator:","`
}

// StorageConfig selects the durable key-value backend
type StorageConfig struct {
	Driver        string `yaml:"driver" env:"LIBRA_STORAGE_DRIVER"` // sqlite | redis
	Path          string `yaml:"path" env:"LIBRA_STORAGE_PATH"`
	RedisAddr     string `yaml:"redis_addr" env:"LIBRA_REDIS_ADDR"`
	RedisPassword string `yaml:"redis_password" env:"LIBRA_REDIS_PASSWORD"`
	RedisDB       int    `yaml:"redis_db" env:"LIBRA_REDIS_DB"`
	RedisPrefix   string `yaml:"redis_prefix" env:"LIBRA_REDIS_PREFIX"`
}

// LogConfig configures log output
type LogConfig struct {
	Level  string `yaml:"level" env:"LIBRA_LOG_LEVEL"`   // error|warn|info|debug
	Format string `yaml:"format" env:"LIBRA_LOG_FORMAT"` // console|json
}

// ChatConfig configures the assistant chat threads
type ChatConfig struct {
	DateLayout string `yaml:"date_layout" env:"LIBRA_CHAT_DATE_LAYOUT"`
	Context    string `yaml:"context" env:"LIBRA_CHAT_CONTEXT"`
}

// Config is the full client configuration
type Config struct {
	API       APIConfig       `yaml:"api"`
	Assistant AssistantConfig `yaml:"assistant"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
	Chat      ChatConfig      `yaml:"chat"`
}

// DefaultConfig returns the built-in configuration rooted at homeDir.
func DefaultConfig(homeDir string) *Config {
	return &Config{
		API: APIConfig{
			BaseURL: DefaultAPIBaseURL,
			Timeout: 30 * time.Second,
		},
		Assistant: AssistantConfig{
			Paths: []string{"/assistant-chat", "/assistant/assistant-chat"},
		},
		Storage: StorageConfig{
			Driver:      "sqlite",
			Path:        filepath.Join(homeDir, configDirName, "state.db"),
			RedisPrefix: "libra:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
		Chat: ChatConfig{
			DateLayout: DefaultDateLayout,
		},
	}
}

// DefaultConfigPath returns ~/.libra-session/config.yaml
func DefaultConfigPath(homeDir string) string {
	return filepath.Join(homeDir, configDirName, "config.yaml")
}

// LoadConfig builds the configuration from defaults, the YAML file at path and
// the environment, in that order. A missing file at the default location is
// not an error; a missing file that was asked for explicitly is.
func LoadConfig(path string) (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get home directory: %w", err)
	}
	cfg := DefaultConfig(homeDir)

	explicit := path != ""
	if !explicit {
		path = DefaultConfigPath(homeDir)
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, &ConfigError{Path: path, Err: err}
		}
		LogDebug("Loaded config from %s", path)
	case errors.Is(err, os.ErrNotExist) && !explicit:
		LogDebug("No config file at %s, using defaults", path)
	default:
		return nil, &ConfigError{Path: path, Err: err}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, &ConfigError{Path: "environment", Err: err}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the fields the client cannot work without.
func (c *Config) Validate() error {
	u, err := url.Parse(c.API.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return &ConfigError{Field: "api.base_url", Err: fmt.Errorf("invalid url %q", c.API.BaseURL)}
	}
	if c.API.Timeout < 0 {
		return &ConfigError{Field: "api.timeout", Err: fmt.Errorf("must not be negative")}
	}
	if len(c.Assistant.Paths) == 0 {
		return &ConfigError{Field: "assistant.paths", Err: fmt.Errorf("at least one path is required")}
	}
	switch c.Storage.Driver {
	case "sqlite":
		if c.Storage.Path == "" {
			return &ConfigError{Field: "storage.path", Err: fmt.Errorf("required for sqlite driver")}
		}
	case "redis":
		if c.Storage.RedisAddr == "" {
			return &ConfigError{Field: "storage.redis_addr", Err: fmt.Errorf("required for redis driver")}
		}
	default:
		return &ConfigError{Field: "storage.driver", Err: fmt.Errorf("unsupported driver %q (supported: sqlite, redis)", c.Storage.Driver)}
	}
	if c.Chat.DateLayout == "" {
		c.Chat.DateLayout = DefaultDateLayout
	}
	return nil
}

// AssistantURLs joins the base URL with each configured assistant path.
func (c *Config) AssistantURLs() []string {
	base := strings.TrimRight(c.API.BaseURL, "/")
	urls := make([]string, 0, len(c.Assistant.Paths))
	for _, p := range c.Assistant.Paths {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.HasPrefix(p, "/") {
			p = "/" + p
		}
		urls = append(urls, base+p)
	}
	return urls
}
