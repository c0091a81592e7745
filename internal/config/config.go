package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Server struct {
		Port        string   `yaml:"port"`
		CORSOrigins []string `yaml:"cors_origins"`
		RateLimit   struct {
			Requests int    `yaml:"requests"`
			Window   string `yaml:"window"`
		} `yaml:"rate_limit"`
		TrustedProxies []string `yaml:"trusted_proxies"`
	} `yaml:"server"`
	Log struct {
		Mode string `yaml:"mode"`
	} `yaml:"log"`
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
		TTL           string `yaml:"ttl"`
		InitialStatus string `yaml:"initial_status"`
		SeedSamples   bool   `yaml:"seed_samples"`
	} `yaml:"quiz"`
	Rewards struct {
		CorrectAnswer  string `yaml:"correct_answer"`
		StreakBonus    string `yaml:"streak_bonus"`
		Participation  string `yaml:"participation"`
		StreakInterval int    `yaml:"streak_interval"`
	} `yaml:"rewards"`
	Distribution struct {
		Mode      string   `yaml:"mode"`
		Fractions []string `yaml:"fractions"`
	} `yaml:"distribution"`
	Minter struct {
		RPCURL     string `yaml:"rpc_url"`
		Contract   string `yaml:"contract"`
		PrivateKey string `yaml:"-"`
		Decimals   int32  `yaml:"decimals"`
		Timeout    string `yaml:"timeout"`
	} `yaml:"minter"`
}

// Load reads YAML config from path, then overlays secrets and endpoints from the
// environment. A .env file next to the working directory is loaded if present.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	_ = godotenv.Load()
	applyEnv(&cfg)
	return cfg, nil
}

// Default returns the built-in settings used when a key is absent from the file.
func Default() Config {
	var cfg Config
	cfg.Server.Port = "8080"
	cfg.Server.CORSOrigins = []string{"*"}
	cfg.Server.RateLimit.Requests = 60
	cfg.Server.RateLimit.Window = "1m"
	cfg.Log.Mode = "development"
	cfg.Redis.TTL = "10m"
	cfg.Quiz.TTL = "10m"
	cfg.Quiz.InitialStatus = "active"
	cfg.Rewards.CorrectAnswer = "10"
	cfg.Rewards.StreakBonus = "5"
	cfg.Rewards.Participation = "1"
	cfg.Rewards.StreakInterval = 5
	cfg.Distribution.Mode = "staged"
	cfg.Distribution.Fractions = []string{"0.5", "0.3", "0.2"}
	cfg.Minter.Decimals = 18
	cfg.Minter.Timeout = "2m"
	return cfg
}

func applyEnv(cfg *Config) {
	setFromEnv(&cfg.Postgres.URL, "POSTGRES_URL")
	setFromEnv(&cfg.Redis.Addr, "REDIS_ADDR")
	setFromEnv(&cfg.Redis.Password, "REDIS_PASSWORD")
	setFromEnv(&cfg.Minter.RPCURL, "MINTER_RPC_URL")
	setFromEnv(&cfg.Minter.Contract, "MINTER_CONTRACT")
	setFromEnv(&cfg.Minter.PrivateKey, "MINTER_PRIVATE_KEY")
	setFromEnv(&cfg.Log.Mode, "LOG_MODE")
	if v := strings.TrimSpace(os.Getenv("CORS_ORIGINS")); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
}

func setFromEnv(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
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
