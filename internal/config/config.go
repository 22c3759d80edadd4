package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Search engine drivers.
const (
	DriverElasticTyped = "elastic-typed"
	DriverElasticREST  = "elastic-rest"
	DriverRedis        = "redis"
	DriverMemory       = "memory"
)

// Config holds the empdex API configuration.
type Config struct {
	HTTP    HTTPConfig    `yaml:"http"`
	Search  SearchConfig  `yaml:"search"`
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// SearchConfig holds search engine connection and query settings.
type SearchConfig struct {
	Driver           string   `yaml:"driver"` // elastic-typed, elastic-rest, redis, memory (default: elastic-typed)
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	CACertPath       string   `yaml:"ca_cert_path"`
	Index            string   `yaml:"index"`
	PageSize         int      `yaml:"page_size"`
	Lookup           string   `yaml:"lookup"` // direct, search (default: direct)
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	HealthTimeoutSec int      `yaml:"health_timeout_sec"`
}

// Load reads configuration from a YAML file by environment name (local, docker, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	return Parse(data)
}

// Parse expands ${VAR} references in data, decodes it and applies defaults and validation.
func Parse(data []byte) (Config, error) {
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Search.Driver == "" {
		c.Search.Driver = DriverElasticTyped
	}
	if c.Search.Index == "" {
		c.Search.Index = "employees"
	}
	if c.Search.PageSize <= 0 {
		c.Search.PageSize = 1000
	}
	if c.Search.Lookup == "" {
		c.Search.Lookup = "direct"
	}
	if c.Search.ReadinessTimeout <= 0 {
		c.Search.ReadinessTimeout = 30
	}
	if c.Search.HealthTimeoutSec <= 0 {
		c.Search.HealthTimeoutSec = 2
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Search.Driver {
	case DriverElasticTyped, DriverElasticREST, DriverRedis:
		if len(c.Search.Addrs) == 0 {
			return fmt.Errorf("search.addrs is required for driver %q", c.Search.Driver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf(
			"search.driver must be one of %q, %q, %q, %q, got %q",
			DriverElasticTyped, DriverElasticREST, DriverRedis, DriverMemory, c.Search.Driver,
		)
	}
	switch c.Search.Lookup {
	case "direct", "search":
	default:
		return fmt.Errorf("search.lookup must be \"direct\" or \"search\", got %q", c.Search.Lookup)
	}
	return nil
}

// CACert reads the PEM bundle at search.ca_cert_path, or returns nil when unset.
func (c SearchConfig) CACert() ([]byte, error) {
	if c.CACertPath == "" {
		return nil, nil
	}
	b, err := os.ReadFile(filepath.Clean(c.CACertPath))
	if err != nil {
		return nil, fmt.Errorf("read ca cert %s: %w", c.CACertPath, err)
	}
	return b, nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
