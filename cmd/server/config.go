package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/hazyhaar/co2-ledger/pkg/ledger"
	"gopkg.in/yaml.v3"
)

type config struct {
	Addr             string        `yaml:"addr"`
	DataBase         string        `yaml:"data_base"`
	SourcesDB        string        `yaml:"sources_db"`
	FetchTimeout     time.Duration `yaml:"fetch_timeout"`
	FetchRetries     int           `yaml:"fetch_retries"`
	CheckInterval    time.Duration `yaml:"check_interval"`
	DefaultRankLimit int           `yaml:"default_rank_limit"`
	LeakAllocation   string        `yaml:"leak_allocation"`
	TLS              bool          `yaml:"tls"`
	TLSCert          string        `yaml:"tls_cert"`
	TLSKey           string        `yaml:"tls_key"`
	LogLevel         string        `yaml:"log_level"`
}

func defaultConfig() config {
	return config{
		Addr:             ":8421",
		DataBase:         "data",
		SourcesDB:        "sources.db",
		FetchTimeout:     30 * time.Second,
		FetchRetries:     3,
		CheckInterval:    6 * time.Hour,
		DefaultRankLimit: ledger.DefaultRankLimit,
	}
}

// loadConfig reads path over the defaults. A missing file is not an error.
func loadConfig(path string, logger *slog.Logger) (config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Info("no config file, using defaults", "path", path)
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if _, err := ledger.LeakAllocatorByName(cfg.LeakAllocation); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c config) logLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
