package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the collection engine
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Scheduler  SchedulerConfig  `mapstructure:"scheduler"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Collection CollectionConfig `mapstructure:"collection"`
}

type ServerConfig struct {
	Port string `mapstructure:"SERVER_PORT"`
	Host string `mapstructure:"SERVER_HOST"`
	Env  string `mapstructure:"ENV"`
}

type DatabaseConfig struct {
	URL          string `mapstructure:"DATABASE_URL"`
	MaxOpenConns int    `mapstructure:"DATABASE_MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"DATABASE_MAX_IDLE_CONNS"`
}

type RedisConfig struct {
	Host     string `mapstructure:"REDIS_HOST"`
	Port     string `mapstructure:"REDIS_PORT"`
	Password string `mapstructure:"REDIS_PASSWORD"`
	DB       int    `mapstructure:"REDIS_DB"`
}

type SchedulerConfig struct {
	SweepSpec   string `mapstructure:"SCHEDULER_SWEEP_SPEC"`
	KickoffSpec string `mapstructure:"SCHEDULER_KICKOFF_SPEC"`
	Timezone    string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"LOG_LEVEL"`
	Format string `mapstructure:"LOG_FORMAT"`
}

type CollectionConfig struct {
	AgentMaxStayDays  int    `mapstructure:"AGENT_MAX_STAY_DAYS"`
	AgentCeilingB5    int    `mapstructure:"AGENT_CEILING_B5"`
	VendorStayDaysB5  int    `mapstructure:"VENDOR_STAY_DAYS_B5"`
	VendorStayDaysB61 int    `mapstructure:"VENDOR_STAY_DAYS_B61"`
	VendorStayDaysB62 int    `mapstructure:"VENDOR_STAY_DAYS_B62"`
	VendorStayDaysB63 int    `mapstructure:"VENDOR_STAY_DAYS_B63"`
	CandidateCacheTTL string `mapstructure:"CANDIDATE_CACHE_TTL"`
	QueueName         string `mapstructure:"QUEUE_NAME"`
	QueuePollTimeout  string `mapstructure:"QUEUE_POLL_TIMEOUT"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	// Sweep hourly, kick the pipeline off at 01:00 daily
	viper.SetDefault("SCHEDULER_SWEEP_SPEC", "0 0 * * * *")
	viper.SetDefault("SCHEDULER_KICKOFF_SPEC", "0 0 1 * * *")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Asia/Jakarta")
	viper.SetDefault("AGENT_MAX_STAY_DAYS", 30)
	viper.SetDefault("AGENT_CEILING_B5", 300)
	viper.SetDefault("VENDOR_STAY_DAYS_B5", 60)
	viper.SetDefault("VENDOR_STAY_DAYS_B61", 60)
	viper.SetDefault("VENDOR_STAY_DAYS_B62", 60)
	viper.SetDefault("VENDOR_STAY_DAYS_B63", 90)
	viper.SetDefault("CANDIDATE_CACHE_TTL", "4h")
	viper.SetDefault("QUEUE_NAME", "collection:tasks")
	viper.SetDefault("QUEUE_POLL_TIMEOUT", "5s")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read from .env file (optional)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./deployments")

	// Don't fail if .env file doesn't exist
	_ = viper.ReadInConfig()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("SERVER_PORT is required")
	}

	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Collection.AgentMaxStayDays <= 0 {
		return fmt.Errorf("AGENT_MAX_STAY_DAYS must be greater than 0")
	}

	if c.Collection.AgentCeilingB5 <= 0 {
		return fmt.Errorf("AGENT_CEILING_B5 must be greater than 0")
	}

	for name, days := range map[string]int{
		"VENDOR_STAY_DAYS_B5":  c.Collection.VendorStayDaysB5,
		"VENDOR_STAY_DAYS_B61": c.Collection.VendorStayDaysB61,
		"VENDOR_STAY_DAYS_B62": c.Collection.VendorStayDaysB62,
		"VENDOR_STAY_DAYS_B63": c.Collection.VendorStayDaysB63,
	} {
		if days <= 0 {
			return fmt.Errorf("%s must be greater than 0", name)
		}
	}

	if _, err := time.ParseDuration(c.Collection.CandidateCacheTTL); err != nil {
		return fmt.Errorf("CANDIDATE_CACHE_TTL must be a valid duration: %w", err)
	}

	if _, err := time.ParseDuration(c.Collection.QueuePollTimeout); err != nil {
		return fmt.Errorf("QUEUE_POLL_TIMEOUT must be a valid duration: %w", err)
	}

	return nil
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Server.Env == "development" || c.Server.Env == "dev"
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production" || c.Server.Env == "prod"
}

// GetCandidateCacheTTL returns the candidate cache TTL as duration
func (c *Config) GetCandidateCacheTTL() time.Duration {
	ttl, _ := time.ParseDuration(c.Collection.CandidateCacheTTL)
	return ttl
}

// GetQueuePollTimeout returns the queue poll timeout as duration
func (c *Config) GetQueuePollTimeout() time.Duration {
	timeout, _ := time.ParseDuration(c.Collection.QueuePollTimeout)
	return timeout
}
