package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port         string   `yaml:"port"`
		Mode         string   `yaml:"mode"`
		ReadTimeout  string   `yaml:"read_timeout"`
		WriteTimeout string   `yaml:"write_timeout"`
		CORSOrigins  []string `yaml:"cors_origins"`
	} `yaml:"server"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		TTL      string `yaml:"ttl"`
		// CatalogCache enables caching of the active quiz listing.
		CatalogCache bool `yaml:"catalog_cache"`
	} `yaml:"redis"`
	Postgres struct {
		URL     string `yaml:"url"`
		Timeout string `yaml:"timeout"`
	} `yaml:"postgres"`
	Auth struct {
		JWTSecret  string `yaml:"jwt_secret"`
		TokenTTL   string `yaml:"token_ttl"`
		BcryptCost int    `yaml:"bcrypt_cost"`
		// AdminPhones get the admin flag when they register.
		AdminPhones []string `yaml:"admin_phones"`
	} `yaml:"auth"`
	Scoring struct {
		GracePeriod            string `yaml:"grace_period"`
		AllowLegacySubmissions *bool  `yaml:"allow_legacy_submissions"`
	} `yaml:"scoring"`
}

// Load reads YAML config from path. A missing file is not an error; the
// environment (optionally seeded from .env) can supply everything.
func Load(path string) (Config, error) {
	_ = godotenv.Load()

	cfg := Config{}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, err
		}
	case !os.IsNotExist(err):
		return cfg, err
	}
	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Postgres.URL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("JWT_SECRET"); v != "" {
		cfg.Auth.JWTSecret = v
	}
	if v := os.Getenv("APP_MODE"); v != "" {
		cfg.Server.Mode = strings.ToLower(v)
	}
}

// LegacySubmissionsAllowed defaults to true when unset.
func (c Config) LegacySubmissionsAllowed() bool {
	if c.Scoring.AllowLegacySubmissions == nil {
		return true
	}
	return *c.Scoring.AllowLegacySubmissions
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
