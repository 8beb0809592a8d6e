// Package config loads the service configuration. Precedence, lowest to
// highest: built-in defaults, YAML config file, .env file, environment
// variables.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const envPrefix = "ATALAYA_"

// Config is the full service configuration.
type Config struct {
	// Monitoring backend
	BackendURL  string   `yaml:"backendUrl"`
	Token       string   `yaml:"token"`
	VerifySSL   bool     `yaml:"verifySsl"`
	Fingerprint string   `yaml:"fingerprint"`
	Subgroups   []string `yaml:"subgroups"`

	// Pipeline
	CacheTTL       time.Duration `yaml:"cacheTtl"`
	RequestTimeout time.Duration `yaml:"requestTimeout"`

	// Serving
	ListenAddr  string `yaml:"listenAddr"`
	MetricsAddr string `yaml:"metricsAddr"`

	// Logging
	LogLevel  string `yaml:"logLevel"`
	LogFormat string `yaml:"logFormat"`

	// ConfigPath is the YAML file the watcher follows; empty disables it.
	ConfigPath string `yaml:"-"`
}

// Defaults returns the built-in baseline configuration.
func Defaults() *Config {
	return &Config{
		VerifySSL:      false, // monitoring backends are frequently self-signed
		CacheTTL:       55 * time.Second,
		RequestTimeout: 15 * time.Second,
		ListenAddr:     ":8008",
		MetricsAddr:    ":9091",
		LogLevel:       "info",
		LogFormat:      "auto",
	}
}

// Load builds the configuration from all sources.
func Load() (*Config, error) {
	cfg := Defaults()

	cfg.ConfigPath = strings.TrimSpace(os.Getenv(envPrefix + "CONFIG"))
	if cfg.ConfigPath == "" {
		for _, candidate := range []string{"/etc/atalaya/atalaya.yml", "./atalaya.yml"} {
			if _, err := os.Stat(candidate); err == nil {
				cfg.ConfigPath = candidate
				break
			}
		}
	}

	if cfg.ConfigPath != "" {
		if err := cfg.loadFile(cfg.ConfigPath); err != nil {
			return nil, err
		}
	}

	// .env sits beside the binary in dev setups; missing is fine
	if err := godotenv.Load(); err == nil {
		log.Debug().Msg("Loaded .env file")
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	log.Info().Str("path", path).Msg("Loaded config file")
	return nil
}

func (c *Config) applyEnv() {
	if v := getenv("BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := getenv("TOKEN"); v != "" {
		c.Token = v
	}
	if v := getenv("VERIFY_SSL"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.VerifySSL = b
		}
	}
	if v := getenv("FINGERPRINT"); v != "" {
		c.Fingerprint = v
	}
	if v := getenv("SUBGROUPS"); v != "" {
		c.Subgroups = splitList(v)
	}
	if v := getenv("CACHE_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = d
		}
	}
	if v := getenv("REQUEST_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			c.RequestTimeout = d
		}
	}
	if v := getenv("LISTEN_ADDR"); v != "" {
		c.ListenAddr = v
	}
	if v := getenv("METRICS_ADDR"); v != "" {
		c.MetricsAddr = v
	}
	if v := getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
}

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return fmt.Errorf("backend URL is required (%sBACKEND_URL)", envPrefix)
	}
	if strings.TrimSpace(c.Token) == "" {
		return fmt.Errorf("backend API token is required (%sTOKEN)", envPrefix)
	}
	if len(c.Subgroups) == 0 {
		return fmt.Errorf("at least one subgroup is required (%sSUBGROUPS)", envPrefix)
	}
	if c.CacheTTL <= 0 {
		return fmt.Errorf("cache TTL must be positive")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request timeout must be positive")
	}
	return nil
}

func getenv(key string) string {
	return strings.TrimSpace(os.Getenv(envPrefix + key))
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
