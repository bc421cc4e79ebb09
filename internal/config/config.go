package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Matching   MatchingConfig
	RateLimit  RateLimitConfig
	Monitoring MonitoringConfig
}

type ServerConfig struct {
	Port           int `mapstructure:"port"`
	TimeoutSeconds int `mapstructure:"timeoutSeconds"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type MatchingConfig struct {
	HorizonDays     int           `mapstructure:"horizon_days"`
	OfferTTL        time.Duration `mapstructure:"offer_ttl"`
	ScoreThreshold  float64       `mapstructure:"score_threshold"`
	CycleInterval   time.Duration `mapstructure:"cycle_interval"`
	SweepInterval   time.Duration `mapstructure:"sweep_interval"`
	EntryMaxAgeDays int           `mapstructure:"entry_max_age_days"`
	RunLockTTL      time.Duration `mapstructure:"run_lock_ttl"`
}

type RateLimitConfig struct {
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type MonitoringConfig struct {
	Namespace string `mapstructure:"namespace"`
	Subsystem string `mapstructure:"subsystem"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.timeoutSeconds", 30)
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("matching.horizon_days", 14)
	viper.SetDefault("matching.offer_ttl", 24*time.Hour)
	viper.SetDefault("matching.score_threshold", 0.7)
	viper.SetDefault("matching.cycle_interval", time.Hour)
	viper.SetDefault("matching.sweep_interval", 15*time.Minute)
	viper.SetDefault("matching.entry_max_age_days", 90)
	viper.SetDefault("matching.run_lock_ttl", 10*time.Minute)
	viper.SetDefault("ratelimit.requests_per_second", 50.0)
	viper.SetDefault("ratelimit.burst", 100)
	viper.SetDefault("monitoring.namespace", "waitlist")
	viper.SetDefault("monitoring.subsystem", "matching")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}
