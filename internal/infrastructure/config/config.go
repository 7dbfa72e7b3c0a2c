// Package config provides centralized configuration management.
//
// Configuration can be loaded from:
//  1. YAML file (config.yaml)
//  2. Environment variables (fallback)
//
// Example usage:
//
//	cfg := config.LoadOrEnv()
//	dbPath := cfg.Storage.DatabasePath
//	thresholds := cfg.Variance.Thresholds()
package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/eshaffer321/auditflow/internal/domain/sampling"
	"github.com/eshaffer321/auditflow/internal/domain/variance"
)

// Config represents the entire application configuration
type Config struct {
	Storage       StorageConfig       `yaml:"storage"`
	Server        ServerConfig        `yaml:"server"`
	Variance      VarianceConfig      `yaml:"variance"`
	Sampling      SamplingConfig      `yaml:"sampling"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// StorageConfig holds database configuration
type StorageConfig struct {
	DatabasePath string `yaml:"database_path"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Port           int      `yaml:"port"`
	DashboardPort  int      `yaml:"dashboard_port"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// VarianceConfig holds the default flag thresholds, in percent
type VarianceConfig struct {
	ModeratePct    float64 `yaml:"moderate_pct"`
	SignificantPct float64 `yaml:"significant_pct"`
}

// Thresholds converts the config into domain thresholds, filling zero values
// with the defaults.
func (v VarianceConfig) Thresholds() variance.Thresholds {
	t := variance.DefaultThresholds()
	if v.ModeratePct > 0 {
		t.Moderate = v.ModeratePct
	}
	if v.SignificantPct > 0 {
		t.Significant = v.SignificantPct
	}
	return t
}

// SamplingConfig holds sampling defaults
type SamplingConfig struct {
	Percentage      float64 `yaml:"percentage"`
	HighThreshold   float64 `yaml:"high_threshold"`
	MediumThreshold float64 `yaml:"medium_threshold"`

	// Seed fixes the random source. Zero means seed from the clock.
	Seed uint64 `yaml:"seed"`
}

// Params returns sampling parameters for strategy, filling zero values with
// the defaults.
func (s SamplingConfig) Params(strategy sampling.Strategy) sampling.Params {
	p := sampling.DefaultParams(strategy)
	if s.Percentage > 0 {
		p.Percentage = s.Percentage
	}
	if s.HighThreshold > 0 {
		p.HighThreshold = s.HighThreshold
	}
	if s.MediumThreshold > 0 {
		p.MediumThreshold = s.MediumThreshold
	}
	return p
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads and parses the config file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Expand environment variables (e.g., ${AUDITFLOW_DB_PATH})
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadFromEnv loads configuration from environment variables only
func LoadFromEnv() *Config {
	cfg := &Config{
		Storage: StorageConfig{
			DatabasePath: getEnv("AUDITFLOW_DB_PATH", "auditflow.db"),
		},
		Server: ServerConfig{
			Port:           getEnvInt("AUDITFLOW_PORT", 8080),
			DashboardPort:  getEnvInt("AUDITFLOW_DASHBOARD_PORT", 8081),
			AllowedOrigins: getEnvList("AUDITFLOW_ALLOWED_ORIGINS", defaultOrigins()),
		},
		Variance: VarianceConfig{
			ModeratePct:    getEnvFloat("VARIANCE_MODERATE_PCT", variance.DefaultModeratePct),
			SignificantPct: getEnvFloat("VARIANCE_SIGNIFICANT_PCT", variance.DefaultSignificantPct),
		},
		Sampling: SamplingConfig{
			Percentage:      getEnvFloat("SAMPLING_PERCENTAGE", sampling.DefaultPercentage),
			HighThreshold:   getEnvFloat("SAMPLING_HIGH_THRESHOLD", sampling.DefaultHighThreshold),
			MediumThreshold: getEnvFloat("SAMPLING_MEDIUM_THRESHOLD", sampling.DefaultMediumThreshold),
			Seed:            uint64(getEnvInt("SAMPLING_SEED", 0)),
		},
		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  getEnv("LOG_LEVEL", "info"),
				Format: getEnv("LOG_FORMAT", "text"),
			},
		},
	}
	return cfg
}

// LoadOrEnv tries to load from config.yaml, falls back to environment variables
func LoadOrEnv() *Config {
	return LoadOrEnv_WithPath("config.yaml")
}

// LoadOrEnv_WithPath tries to load from specified path, falls back to environment variables
func LoadOrEnv_WithPath(path string) *Config {
	if cfg, err := Load(path); err == nil {
		return cfg
	}
	return LoadFromEnv()
}

// applyDefaults fills settings a YAML file left out.
func (c *Config) applyDefaults() {
	if c.Storage.DatabasePath == "" {
		c.Storage.DatabasePath = "auditflow.db"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.DashboardPort == 0 {
		c.Server.DashboardPort = 8081
	}
	if len(c.Server.AllowedOrigins) == 0 {
		c.Server.AllowedOrigins = defaultOrigins()
	}
	if c.Observability.Logging.Level == "" {
		c.Observability.Logging.Level = "info"
	}
}

func defaultOrigins() []string {
	return []string{"http://localhost:3000", "http://localhost:5173"}
}

// getEnv retrieves an environment variable with a fallback default
func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

// getEnvInt retrieves an integer environment variable with a fallback default
func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var result int
		if _, err := fmt.Sscanf(val, "%d", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvFloat retrieves a float environment variable with a fallback default
func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		var result float64
		if _, err := fmt.Sscanf(val, "%g", &result); err == nil {
			return result
		}
	}
	return fallback
}

// getEnvList retrieves a comma-separated environment variable
func getEnvList(key string, fallback []string) []string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	var out []string
	for _, item := range strings.Split(val, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
