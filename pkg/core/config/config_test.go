package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func clearEndpointEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"SERVER_URL", "BLOCKS_SERVER_URL", "CURRENCY_SERVER_URL", "KRAKEN_SERVER_URL", "LOG_LEVEL", "CHAINFEED_CONFIG"} {
		t.Setenv(key, "")
	}
}

func TestDuration_UnmarshalText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected time.Duration
		wantErr  bool
	}{
		{"seconds", "2s", 2 * time.Second, false},
		{"minutes", "5m", 5 * time.Minute, false},
		{"complex", "1h30m", 90 * time.Minute, false},
		{"milliseconds", "100ms", 100 * time.Millisecond, false},
		{"invalid", "invalid", 0, true},
		{"empty", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Duration
			err := d.UnmarshalText([]byte(tt.input))

			if (err != nil) != tt.wantErr {
				t.Errorf("UnmarshalText() error = %v, wantErr %v", err, tt.wantErr)
				return
			}

			if !tt.wantErr && d.Duration != tt.expected {
				t.Errorf("UnmarshalText() = %v, want %v", d.Duration, tt.expected)
			}
		})
	}
}

func TestDuration_MarshalText(t *testing.T) {
	d := Duration{2 * time.Second}
	result, err := d.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText() error = %v", err)
	}
	if string(result) != "2s" {
		t.Errorf("MarshalText() = %v, want 2s", string(result))
	}
}

func TestConfig_applyDefaults(t *testing.T) {
	cfg := &Config{}
	cfg.applyDefaults()

	if cfg.General.Name != "chainfeed" {
		t.Errorf("General.Name = %v, want chainfeed", cfg.General.Name)
	}
	if cfg.General.LogLevel != "info" {
		t.Errorf("General.LogLevel = %v, want info", cfg.General.LogLevel)
	}
	if cfg.General.LogFormat != "json" {
		t.Errorf("General.LogFormat = %v, want json", cfg.General.LogFormat)
	}

	for _, name := range []string{ServiceBlocks, ServiceCurrency, ServiceKraken} {
		svc, ok := cfg.Service(name)
		if !ok {
			t.Fatalf("Service(%q) not found", name)
		}
		if svc.Endpoint != DefaultEndpoint {
			t.Errorf("%s.Endpoint = %v, want %v", name, svc.Endpoint, DefaultEndpoint)
		}
		if svc.RetryInterval.Duration != 2*time.Second {
			t.Errorf("%s.RetryInterval = %v, want 2s", name, svc.RetryInterval.Duration)
		}
		if svc.ConnectTimeout.Duration != 10*time.Second {
			t.Errorf("%s.ConnectTimeout = %v, want 10s", name, svc.ConnectTimeout.Duration)
		}
	}

	if cfg.Metrics.Address != ":9108" {
		t.Errorf("Metrics.Address = %v, want :9108", cfg.Metrics.Address)
	}
}

func TestConfig_Service_Unknown(t *testing.T) {
	if _, ok := Default().Service("ledger"); ok {
		t.Error("Service(ledger) should not be found")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.toml")
	if err == nil {
		t.Error("Load() expected error for non-existent file")
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	clearEndpointEnv(t)

	configPath := filepath.Join(t.TempDir(), "config.toml")
	configContent := `
[general]
name = "feed-test"
log_level = "debug"

[blocks]
endpoint = "http://10.0.0.5:3088"
retry_interval = "5s"

[kraken]
endpoint = "https://kraken.internal:443"
retry_interval = "10ms"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	cfg, err := Load(configPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.General.Name != "feed-test" {
		t.Errorf("General.Name = %v, want feed-test", cfg.General.Name)
	}
	if cfg.General.LogLevel != "debug" {
		t.Errorf("General.LogLevel = %v, want debug", cfg.General.LogLevel)
	}
	if cfg.Blocks.Endpoint != "http://10.0.0.5:3088" {
		t.Errorf("Blocks.Endpoint = %v, want http://10.0.0.5:3088", cfg.Blocks.Endpoint)
	}
	if cfg.Blocks.RetryInterval.Duration != 5*time.Second {
		t.Errorf("Blocks.RetryInterval = %v, want 5s", cfg.Blocks.RetryInterval.Duration)
	}
	if cfg.Kraken.RetryInterval.Duration != MinRetryInterval {
		t.Errorf("Kraken.RetryInterval = %v, want %v", cfg.Kraken.RetryInterval.Duration, MinRetryInterval)
	}
	if cfg.Kraken.Endpoint != "https://kraken.internal:443" {
		t.Errorf("Kraken.Endpoint = %v, want https://kraken.internal:443", cfg.Kraken.Endpoint)
	}
	if cfg.Currency.Endpoint != DefaultEndpoint {
		t.Errorf("Currency.Endpoint = %v, want %v (default)", cfg.Currency.Endpoint, DefaultEndpoint)
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	configPath := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(configPath, []byte("[blocks\nendpoint="), 0644); err != nil {
		t.Fatalf("Failed to write test config: %v", err)
	}

	if _, err := Load(configPath); err == nil {
		t.Error("Load() expected parse error")
	}
}

func TestConfig_applyEnvOverrides(t *testing.T) {
	clearEndpointEnv(t)
	t.Setenv("SERVER_URL", "http://shared:3088")
	t.Setenv("KRAKEN_SERVER_URL", "http://kraken:4000")

	cfg := Default()
	cfg.applyEnvOverrides()

	if cfg.Blocks.Endpoint != "http://shared:3088" {
		t.Errorf("Blocks.Endpoint = %v, want http://shared:3088", cfg.Blocks.Endpoint)
	}
	if cfg.Currency.Endpoint != "http://shared:3088" {
		t.Errorf("Currency.Endpoint = %v, want http://shared:3088", cfg.Currency.Endpoint)
	}
	if cfg.Kraken.Endpoint != "http://kraken:4000" {
		t.Errorf("Kraken.Endpoint = %v, want http://kraken:4000", cfg.Kraken.Endpoint)
	}
}

func TestConfig_expandEnvVars(t *testing.T) {
	t.Setenv("FEED_HOST", "feed.local")

	cfg := &Config{Blocks: ServiceConfig{Endpoint: "http://$FEED_HOST:3088"}}
	cfg.expandEnvVars()

	if cfg.Blocks.Endpoint != "http://feed.local:3088" {
		t.Errorf("Blocks.Endpoint = %v, want http://feed.local:3088", cfg.Blocks.Endpoint)
	}
}

func TestLoadFromEnv_NoConfigFound(t *testing.T) {
	clearEndpointEnv(t)
	t.Setenv("HOME", t.TempDir())
	t.Chdir(t.TempDir())

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Blocks.Endpoint != DefaultEndpoint {
		t.Errorf("Blocks.Endpoint = %v, want %v", cfg.Blocks.Endpoint, DefaultEndpoint)
	}
}

func TestLoadFromEnv_DotEnv(t *testing.T) {
	clearEndpointEnv(t)
	os.Unsetenv("CURRENCY_SERVER_URL")
	t.Setenv("HOME", t.TempDir())
	dir := t.TempDir()
	t.Chdir(dir)

	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("CURRENCY_SERVER_URL=http://fx:7000\n"), 0644); err != nil {
		t.Fatalf("Failed to write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("CURRENCY_SERVER_URL") })

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv() error = %v", err)
	}
	if cfg.Currency.Endpoint != "http://fx:7000" {
		t.Errorf("Currency.Endpoint = %v, want http://fx:7000", cfg.Currency.Endpoint)
	}
}
