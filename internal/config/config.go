package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig describes one market data provider.
type ProviderConfig struct {
	BaseURL        string  `yaml:"base_url"`
	APIKey         string  `yaml:"api_key"`
	CallsPerMinute int     `yaml:"calls_per_minute"`
	CallsPerDay    int     `yaml:"calls_per_day"`
	RequestsPerSec float64 `yaml:"requests_per_sec"`
}

// Enabled reports whether the provider has a usable credential. The
// documented "demo" key only serves canned IBM data, so it counts as
// no credential.
func (p ProviderConfig) Enabled() bool {
	return p.APIKey != "" && p.APIKey != "demo"
}

// Config holds all application configuration.
type Config struct {
	Providers map[string]ProviderConfig `yaml:"providers"`

	Fetch struct {
		MaxAttempts          int           `yaml:"max_attempts"`
		RetryBaseDelay       time.Duration `yaml:"retry_base_delay"`
		RequestTimeout       time.Duration `yaml:"request_timeout"`
		MaxConcurrentFetches int64         `yaml:"max_concurrent_fetches"`
	} `yaml:"fetch"`

	Analysis struct {
		Days       int `yaml:"days"`
		SMAFast    int `yaml:"sma_fast"`
		SMASlow    int `yaml:"sma_slow"`
		RSIPeriod  int `yaml:"rsi_period"`
		MACDFast   int `yaml:"macd_fast"`
		MACDSlow   int `yaml:"macd_slow"`
		MACDSignal int `yaml:"macd_signal"`
		MinBars    int `yaml:"min_bars"`
	} `yaml:"analysis"`

	Database struct {
		Host     string `yaml:"host"`
		Port     string `yaml:"port"`
		User     string `yaml:"user"`
		Password string `yaml:"password"`
		Name     string `yaml:"name"`
		SSLMode  string `yaml:"ssl_mode"`
	} `yaml:"database"`

	OpenAI struct {
		APIKey string `yaml:"api_key"`
		Model  string `yaml:"model"`
	} `yaml:"openai"`
}

// Load reads config from a YAML file, then applies environment
// variable overrides and defaults. A missing file is not an error;
// the result is then driven by the environment alone.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}
	if cfg.Providers == nil {
		cfg.Providers = map[string]ProviderConfig{}
	}

	// Environment variable overrides
	av := cfg.Providers["alpha-vantage"]
	if v := os.Getenv("ALPHA_VANTAGE_API_KEY"); v != "" {
		av.APIKey = v
	}
	if v := os.Getenv("ALPHA_VANTAGE_BASE_URL"); v != "" {
		av.BaseURL = v
	}
	av.CallsPerMinute = getEnvInt("ALPHA_VANTAGE_CALLS_PER_MINUTE", av.CallsPerMinute)
	av.CallsPerDay = getEnvInt("ALPHA_VANTAGE_CALLS_PER_DAY", av.CallsPerDay)

	// Defaults for the primary provider
	if av.BaseURL == "" {
		av.BaseURL = "https://www.alphavantage.co"
	}
	if av.CallsPerMinute <= 0 {
		av.CallsPerMinute = 5
	}
	if av.CallsPerDay <= 0 {
		av.CallsPerDay = 25
	}
	if av.RequestsPerSec <= 0 {
		av.RequestsPerSec = 1
	}
	cfg.Providers["alpha-vantage"] = av

	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAI.APIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAI.Model = v
	}

	cfg.Database.Host = getEnvWithDefault("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnvWithDefault("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnvWithDefault("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnvWithDefault("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnvWithDefault("DB_NAME", cfg.Database.Name)
	cfg.Database.SSLMode = getEnvWithDefault("DB_SSLMODE", cfg.Database.SSLMode)
	if cfg.Database.Port == "" {
		cfg.Database.Port = "5432"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}

	cfg.Fetch.MaxAttempts = getEnvInt("FETCH_MAX_ATTEMPTS", cfg.Fetch.MaxAttempts)
	if cfg.Fetch.MaxAttempts <= 0 {
		cfg.Fetch.MaxAttempts = 3
	}
	if v := getEnvInt("FETCH_RETRY_BASE_DELAY_MS", 0); v > 0 {
		cfg.Fetch.RetryBaseDelay = time.Duration(v) * time.Millisecond
	}
	if cfg.Fetch.RetryBaseDelay <= 0 {
		cfg.Fetch.RetryBaseDelay = time.Second
	}
	if cfg.Fetch.RequestTimeout <= 0 {
		cfg.Fetch.RequestTimeout = 30 * time.Second
	}
	if cfg.Fetch.MaxConcurrentFetches <= 0 {
		cfg.Fetch.MaxConcurrentFetches = 4
	}

	cfg.Analysis.Days = getEnvInt("ANALYSIS_DAYS", cfg.Analysis.Days)
	if cfg.Analysis.Days <= 0 {
		cfg.Analysis.Days = 100
	}
	if cfg.Analysis.SMAFast <= 0 {
		cfg.Analysis.SMAFast = 20
	}
	if cfg.Analysis.SMASlow <= 0 {
		cfg.Analysis.SMASlow = 50
	}
	if cfg.Analysis.RSIPeriod <= 0 {
		cfg.Analysis.RSIPeriod = 14
	}
	if cfg.Analysis.MACDFast <= 0 {
		cfg.Analysis.MACDFast = 12
	}
	if cfg.Analysis.MACDSlow <= 0 {
		cfg.Analysis.MACDSlow = 26
	}
	if cfg.Analysis.MACDSignal <= 0 {
		cfg.Analysis.MACDSignal = 9
	}
	if cfg.Analysis.MinBars <= 0 {
		cfg.Analysis.MinBars = 50
	}

	return cfg, nil
}

// DatabaseConfigured reports whether enough connection detail is
// present to reach Postgres; otherwise the in-memory store is used.
func (c *Config) DatabaseConfigured() bool {
	return c.Database.Host != "" && c.Database.User != "" && c.Database.Name != ""
}

// Helper function to get string environment variables
func getEnvWithDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Helper function to get integer environment variables
func getEnvInt(key string, defaultVal int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultVal
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultVal
	}
	return value
}
