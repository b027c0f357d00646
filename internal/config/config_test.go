package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "providers.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}

	av, ok := cfg.Providers["alpha-vantage"]
	if !ok {
		t.Fatal("alpha-vantage provider not present by default")
	}
	if av.CallsPerMinute != 5 || av.CallsPerDay != 25 {
		t.Errorf("default limits = %d/min %d/day, want 5/25", av.CallsPerMinute, av.CallsPerDay)
	}
	if av.BaseURL != "https://www.alphavantage.co" {
		t.Errorf("default base URL = %q", av.BaseURL)
	}
	if av.Enabled() {
		t.Error("provider enabled without an API key")
	}

	if cfg.Fetch.MaxAttempts != 3 || cfg.Fetch.RetryBaseDelay != time.Second {
		t.Errorf("fetch defaults = %d attempts, %s base delay", cfg.Fetch.MaxAttempts, cfg.Fetch.RetryBaseDelay)
	}
	if cfg.Analysis.MinBars != 50 || cfg.Analysis.RSIPeriod != 14 {
		t.Errorf("analysis defaults = min_bars %d, rsi %d", cfg.Analysis.MinBars, cfg.Analysis.RSIPeriod)
	}
	if cfg.DatabaseConfigured() {
		t.Error("database reported configured with no connection detail")
	}
}

func TestLoadFromFile(t *testing.T) {
	path := writeConfig(t, `
providers:
  alpha-vantage:
    api_key: realkey
    calls_per_minute: 10
    calls_per_day: 100
analysis:
  days: 30
  sma_fast: 10
database:
  host: localhost
  user: app
  name: stocks
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}

	av := cfg.Providers["alpha-vantage"]
	if !av.Enabled() {
		t.Error("provider with real key reported disabled")
	}
	if av.CallsPerMinute != 10 || av.CallsPerDay != 100 {
		t.Errorf("limits = %d/%d, want 10/100", av.CallsPerMinute, av.CallsPerDay)
	}
	if cfg.Analysis.Days != 30 || cfg.Analysis.SMAFast != 10 {
		t.Errorf("analysis = days %d, sma_fast %d", cfg.Analysis.Days, cfg.Analysis.SMAFast)
	}
	// Unset fields still get defaults.
	if cfg.Analysis.SMASlow != 50 {
		t.Errorf("sma_slow = %d, want default 50", cfg.Analysis.SMASlow)
	}
	if !cfg.DatabaseConfigured() {
		t.Error("database not reported configured")
	}
	if cfg.Database.Port != "5432" || cfg.Database.SSLMode != "disable" {
		t.Errorf("database defaults = port %s, sslmode %s", cfg.Database.Port, cfg.Database.SSLMode)
	}
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, `
providers:
  alpha-vantage:
    api_key: filekey
    calls_per_minute: 10
`)
	t.Setenv("ALPHA_VANTAGE_API_KEY", "envkey")
	t.Setenv("ALPHA_VANTAGE_CALLS_PER_MINUTE", "2")
	t.Setenv("ANALYSIS_DAYS", "7")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	av := cfg.Providers["alpha-vantage"]
	if av.APIKey != "envkey" {
		t.Errorf("api key = %q, want env override", av.APIKey)
	}
	if av.CallsPerMinute != 2 {
		t.Errorf("calls per minute = %d, want env override 2", av.CallsPerMinute)
	}
	if cfg.Analysis.Days != 7 {
		t.Errorf("analysis days = %d, want env override 7", cfg.Analysis.Days)
	}
}

func TestDemoKeyDisablesProvider(t *testing.T) {
	path := writeConfig(t, `
providers:
  alpha-vantage:
    api_key: demo
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Providers["alpha-vantage"].Enabled() {
		t.Error("demo key should not enable the provider")
	}
}

func TestMalformedFileFails(t *testing.T) {
	path := writeConfig(t, "providers: [not: a: map")
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error for malformed YAML")
	}
}
