package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	NATS struct {
		Enabled bool   `yaml:"enabled"`
		URL     string `yaml:"url"`
		Prefix  string `yaml:"prefix"`
	} `yaml:"nats"`

	Game struct {
		HostOnlyStart  bool `yaml:"host_only_start"`
		AllowLateJoin  bool `yaml:"allow_late_join"`
		AdvanceGraceMs int  `yaml:"advance_grace_ms"`
	} `yaml:"game"`

	Data struct {
		Questions string `yaml:"questions"`
		Reports   string `yaml:"reports"`
	} `yaml:"data"`
}

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = "3000"
	cfg.NATS.URL = "nats://localhost:4222"
	cfg.NATS.Prefix = "arena"
	cfg.Game.AllowLateJoin = true
	cfg.Game.AdvanceGraceMs = 1500
	cfg.Data.Questions = "questions.json"
	cfg.Data.Reports = "reports.json"
	return &cfg
}

// loadConfig reads the yaml config, then applies env overrides. A missing
// file runs on defaults.
func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.NATS.URL = getEnv("NATS_URL", cfg.NATS.URL)
	cfg.NATS.Enabled = getEnvAsBool("NATS_ENABLED", cfg.NATS.Enabled)
	cfg.Data.Questions = getEnv("QUESTIONS_FILE", cfg.Data.Questions)
	cfg.Data.Reports = getEnv("REPORTS_FILE", cfg.Data.Reports)
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
