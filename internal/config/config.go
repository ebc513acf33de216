package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port      string `yaml:"port"`
		PublicURL string `yaml:"public_url"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
	} `yaml:"redis"`
	Postgres struct {
		URL string `yaml:"url"`
	} `yaml:"postgres"`
	Quiz struct {
		TTL string `yaml:"ttl"`
	} `yaml:"quiz"`
	Generator struct {
		BaseURL string `yaml:"base_url"`
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		Timeout string `yaml:"timeout"`
	} `yaml:"generator"`
	Auth struct {
		OwnerSecret string `yaml:"owner_secret"`
		OwnerTTL    string `yaml:"owner_ttl"`
	} `yaml:"auth"`
	Broker struct {
		URL   string `yaml:"url"`
		Queue string `yaml:"queue"`
	} `yaml:"broker"`
	Session struct {
		InstructorName  string `yaml:"instructor_name"`
		PointsPerAnswer int    `yaml:"points_per_answer"`
		EnforceDeadline bool   `yaml:"enforce_deadline"`
		DeadlineGrace   string `yaml:"deadline_grace"`
	} `yaml:"session"`
}

// Load reads YAML config from path. The generator API key falls back to
// OPENAI_API_KEY so secrets can stay out of the file.
func Load(path string) (Config, error) {
	cfg := Config{}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}
	if cfg.Generator.APIKey == "" {
		cfg.Generator.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.Auth.OwnerSecret == "" {
		cfg.Auth.OwnerSecret = os.Getenv("OWNER_SECRET")
	}
	return cfg, nil
}

// TTLDuration parses a duration string or returns the fallback if empty.
func TTLDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	return fallback
}
