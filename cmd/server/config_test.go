package main

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "absent.yaml"), discard())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg != defaultConfig() {
		t.Errorf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := writeConfig(t, `
addr: ":9000"
data_base: "https://data.example.com/co2"
fetch_timeout: 5s
fetch_retries: 1
check_interval: 30m
default_rank_limit: 25
leak_allocation: unattributed
log_level: debug
`)
	cfg, err := loadConfig(path, discard())
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Addr != ":9000" || cfg.DataBase != "https://data.example.com/co2" {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.FetchTimeout != 5*time.Second || cfg.CheckInterval != 30*time.Minute || cfg.FetchRetries != 1 {
		t.Errorf("durations = %v %v %d", cfg.FetchTimeout, cfg.CheckInterval, cfg.FetchRetries)
	}
	if cfg.DefaultRankLimit != 25 || cfg.LeakAllocation != "unattributed" {
		t.Errorf("ledger settings = %+v", cfg)
	}
	if cfg.SourcesDB != "sources.db" {
		t.Errorf("unset key lost its default: %q", cfg.SourcesDB)
	}
	if cfg.logLevel() != slog.LevelDebug {
		t.Errorf("logLevel = %v", cfg.logLevel())
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	tests := []struct {
		name, body string
	}{
		{"bad yaml", "addr: [unclosed"},
		{"bad leak policy", "leak_allocation: monthly"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig(writeConfig(t, tt.body), discard()); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLogLevel_Default(t *testing.T) {
	for _, v := range []string{"", "chatty"} {
		if got := (config{LogLevel: v}).logLevel(); got != slog.LevelInfo {
			t.Errorf("logLevel(%q) = %v, want INFO", v, got)
		}
	}
}
