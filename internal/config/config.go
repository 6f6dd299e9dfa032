package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Dispatch  DispatchConfig
	Scheduler SchedulerConfig
	Provider  ProviderConfig
}

type ServerConfig struct {
	Address string
}

type DatabaseConfig struct {
	PostgresURL string
}

type RedisConfig struct {
	Enabled  bool
	Address  string
	Password string
	DB       int
	TTL      time.Duration
}

type DispatchConfig struct {
	MaxRetries  int
	BaseDelay   time.Duration
	BatchSize   int
	SendTimeout time.Duration
	Workers     int
}

type SchedulerConfig struct {
	Interval time.Duration
}

type ProviderConfig struct {
	// Environment selects the active provider: "production" uses the real
	// carrier, anything else the no-op provider.
	Environment string
	CarrierURL  string
}

func LoadAll() (*Config, error) {
	postgresURL, err := requireEnv("POSTGRES_URL")
	if err != nil {
		return nil, err
	}

	maxRetries, err := getEnvInt("MAX_RETRIES", 5)
	if err != nil {
		return nil, err
	}
	baseDelaySec, err := getEnvInt("BASE_DELAY_SECONDS", 300)
	if err != nil {
		return nil, err
	}
	batchSize, err := getEnvInt("BATCH_SIZE", 50)
	if err != nil {
		return nil, err
	}
	sendTimeoutSec, err := getEnvInt("SEND_TIMEOUT_SECONDS", 10)
	if err != nil {
		return nil, err
	}
	workers, err := getEnvInt("DISPATCH_WORKERS", 1)
	if err != nil {
		return nil, err
	}
	intervalSec, err := getEnvInt("SCHED_INTERVAL_SECONDS", 60)
	if err != nil {
		return nil, err
	}

	redisCfg, err := loadRedisConfig()
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Server: ServerConfig{
			Address: getEnv("SERVER_ADDRESS", ":8080"),
		},
		Database: DatabaseConfig{
			PostgresURL: postgresURL,
		},
		Dispatch: DispatchConfig{
			MaxRetries:  maxRetries,
			BaseDelay:   time.Duration(baseDelaySec) * time.Second,
			BatchSize:   batchSize,
			SendTimeout: time.Duration(sendTimeoutSec) * time.Second,
			Workers:     workers,
		},
		Scheduler: SchedulerConfig{
			Interval: time.Duration(intervalSec) * time.Second,
		},
		Provider: ProviderConfig{
			Environment: getEnv("APP_ENV", "development"),
			CarrierURL:  os.Getenv("CARRIER_URL"),
		},
		Redis: redisCfg,
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadRedisConfig() (RedisConfig, error) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		return RedisConfig{Enabled: false}, nil
	}

	db, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return RedisConfig{}, err
	}
	ttlSec, err := getEnvInt("REDIS_TTL_SECONDS", 86400)
	if err != nil {
		return RedisConfig{}, err
	}

	return RedisConfig{
		Enabled:  true,
		Address:  addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
		TTL:      time.Duration(ttlSec) * time.Second,
	}, nil
}

func validate(cfg *Config) error {
	if cfg.Dispatch.MaxRetries <= 0 {
		return fmt.Errorf("MAX_RETRIES must be > 0")
	}
	if cfg.Dispatch.BaseDelay <= 0 {
		return fmt.Errorf("BASE_DELAY_SECONDS must be > 0")
	}
	if cfg.Dispatch.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be > 0")
	}
	if cfg.Dispatch.SendTimeout <= 0 {
		return fmt.Errorf("SEND_TIMEOUT_SECONDS must be > 0")
	}
	if cfg.Dispatch.Workers <= 0 {
		return fmt.Errorf("DISPATCH_WORKERS must be > 0")
	}
	if cfg.Scheduler.Interval <= 0 {
		return fmt.Errorf("SCHED_INTERVAL_SECONDS must be > 0")
	}
	if cfg.Provider.Environment == "production" && cfg.Provider.CarrierURL == "" {
		return fmt.Errorf("CARRIER_URL is required when APP_ENV=production")
	}
	return nil
}

func requireEnv(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("missing required env var: %s", key)
	}
	return val, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid int for env %s: %s", key, v)
	}
	return i, nil
}
