// Package config loads process configuration from the environment, with an
// optional YAML file override pointed at by SOLARSYNC_CONFIG.
package config

import (
	"errors"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// VendorConfig holds the cloud API connection settings.
type VendorConfig struct {
	BaseURL        string `yaml:"base_url"`
	Token          string `yaml:"token"`
	AppID          string `yaml:"app_id"`
	AppSecret      string `yaml:"app_secret"`
	Email          string `yaml:"email"`
	Password       string `yaml:"password"`
	CompanyID      string `yaml:"company_id"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// IngestConfig tunes the backfill pipeline.
type IngestConfig struct {
	ChunkDays       int     `yaml:"chunk_days"`
	ChunkDelayMs    int     `yaml:"chunk_delay_ms"`
	FailFast        bool    `yaml:"fail_fast"`
	Timezone        string  `yaml:"timezone"`
	StationID       int64   `yaml:"station_id"`
	InvestmentTotal float64 `yaml:"investment_total"`
}

// Config is the full process configuration.
type Config struct {
	DatabasePath string       `yaml:"database_path"`
	MetricsAddr  string       `yaml:"metrics_addr"`
	Vendor       VendorConfig `yaml:"vendor"`
	Ingest       IngestConfig `yaml:"ingest"`
}

// Load builds configuration from environment variables, then applies the
// YAML file named by SOLARSYNC_CONFIG when set.
func Load() (Config, error) {
	cfg := Config{
		DatabasePath: getenvDefault("SOLARSYNC_DB", "solarsync.db"),
		MetricsAddr:  os.Getenv("SOLARSYNC_METRICS_ADDR"),
		Vendor: VendorConfig{
			BaseURL:        getenvDefault("DEYECLOUD_BASE_URL", "https://eu1-developer.deyecloud.com/v1.0"),
			Token:          os.Getenv("DEYECLOUD_TOKEN"),
			AppID:          os.Getenv("DEYECLOUD_APP_ID"),
			AppSecret:      os.Getenv("DEYECLOUD_APP_SECRET"),
			Email:          os.Getenv("DEYECLOUD_EMAIL"),
			Password:       os.Getenv("DEYECLOUD_PASSWORD"),
			CompanyID:      os.Getenv("DEYECLOUD_COMPANY_ID"),
			TimeoutSeconds: getenvIntDefault("DEYECLOUD_TIMEOUT_SECONDS", 30),
		},
		Ingest: IngestConfig{
			ChunkDays:       getenvIntDefault("SOLARSYNC_CHUNK_DAYS", 30),
			ChunkDelayMs:    getenvIntDefault("SOLARSYNC_CHUNK_DELAY_MS", 1000),
			Timezone:        getenvDefault("SOLARSYNC_TZ", "Local"),
			StationID:       getenvInt64Default("SOLARSYNC_STATION_ID", 0),
			InvestmentTotal: getenvFloatDefault("SOLARSYNC_INVESTMENT", 0),
		},
	}

	if path := os.Getenv("SOLARSYNC_CONFIG"); path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	}

	if cfg.DatabasePath == "" {
		return cfg, errors.New("config: database path required")
	}
	if cfg.Vendor.BaseURL == "" {
		return cfg, errors.New("config: vendor base url required")
	}
	return cfg, nil
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

func getenvIntDefault(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvInt64Default(key string, fallback int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getenvFloatDefault(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}
