package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/crednine/loan-engine/internal/domain"
)

// Config holds all configuration for the engine
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Scheduler SchedulerConfig `mapstructure:"scheduler"`
	Batch     BatchConfig     `mapstructure:"batch"`
	ECL       ECLSettings     `mapstructure:"ecl"`
}

type ServerConfig struct {
	Port         string        `mapstructure:"SERVER_PORT"`
	Host         string        `mapstructure:"SERVER_HOST"`
	Env          string        `mapstructure:"ENV"`
	ReadTimeout  time.Duration `mapstructure:"SERVER_READ_TIMEOUT"`
	WriteTimeout time.Duration `mapstructure:"SERVER_WRITE_TIMEOUT"`
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
	// Cron specs, with seconds.
	AccrualSpec      string `mapstructure:"SCHEDULER_ACCRUAL_SPEC"`
	ProvisioningSpec string `mapstructure:"SCHEDULER_PROVISIONING_SPEC"`
	Timezone         string `mapstructure:"SCHEDULER_TIMEZONE"`
}

type BatchConfig struct {
	Workers      int           `mapstructure:"BATCH_WORKERS"`
	DPDCacheTTL  time.Duration `mapstructure:"DPD_CACHE_TTL"`
	RateCacheTTL time.Duration `mapstructure:"RATE_CACHE_TTL"`
}

// ECLSettings is the reference data behind staging and provisioning.
type ECLSettings struct {
	Stage1MaxDPD       int    `mapstructure:"ECL_STAGE1_MAX_DPD"`
	Stage2MaxDPD       int    `mapstructure:"ECL_STAGE2_MAX_DPD"`
	PD12Month          string `mapstructure:"ECL_PD_12_MONTH"`
	LGD                string `mapstructure:"ECL_LGD"`
	CCF                string `mapstructure:"ECL_CCF"`
	StageOnRestructure bool   `mapstructure:"ECL_STAGE_ON_RESTRUCTURE"`
	StageOnWriteOff    bool   `mapstructure:"ECL_STAGE_ON_WRITE_OFF"`
	StageOnNPA         bool   `mapstructure:"ECL_STAGE_ON_NPA"`
}

// Load reads configuration from environment variables and files
func Load() (*Config, error) {
	// Populate the environment from a local .env file when present.
	_ = godotenv.Load()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("SERVER_READ_TIMEOUT", "15s")
	viper.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	viper.SetDefault("DATABASE_MAX_OPEN_CONNS", 25)
	viper.SetDefault("DATABASE_MAX_IDLE_CONNS", 5)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("SCHEDULER_ACCRUAL_SPEC", "0 30 0 * * *")
	viper.SetDefault("SCHEDULER_PROVISIONING_SPEC", "0 0 2 1 * *")
	viper.SetDefault("SCHEDULER_TIMEZONE", "Asia/Kolkata")
	viper.SetDefault("BATCH_WORKERS", 8)
	viper.SetDefault("DPD_CACHE_TTL", "15m")
	viper.SetDefault("RATE_CACHE_TTL", "24h")
	viper.SetDefault("ECL_STAGE1_MAX_DPD", 30)
	viper.SetDefault("ECL_STAGE2_MAX_DPD", 90)
	viper.SetDefault("ECL_PD_12_MONTH", "0.02")
	viper.SetDefault("ECL_LGD", "0.65")
	viper.SetDefault("ECL_CCF", "0.5")
	viper.SetDefault("ECL_STAGE_ON_RESTRUCTURE", true)
	viper.SetDefault("ECL_STAGE_ON_WRITE_OFF", true)
	viper.SetDefault("ECL_STAGE_ON_NPA", true)

	// Read from environment variables
	viper.AutomaticEnv()

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

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

	if c.Batch.Workers <= 0 {
		return fmt.Errorf("BATCH_WORKERS must be greater than 0")
	}

	if c.ECL.Stage1MaxDPD < 0 || c.ECL.Stage2MaxDPD <= c.ECL.Stage1MaxDPD {
		return fmt.Errorf("ECL DPD thresholds must satisfy 0 <= stage1 < stage2")
	}

	for name, value := range map[string]string{
		"ECL_PD_12_MONTH": c.ECL.PD12Month,
		"ECL_LGD":         c.ECL.LGD,
		"ECL_CCF":         c.ECL.CCF,
	} {
		if _, err := decimal.NewFromString(value); err != nil {
			return fmt.Errorf("%s must be a valid decimal: %w", name, err)
		}
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

// ECLConfig materializes the staging reference data.
func (c *Config) ECLConfig() *domain.ECLConfig {
	pd, _ := decimal.NewFromString(c.ECL.PD12Month)
	lgd, _ := decimal.NewFromString(c.ECL.LGD)
	ccf, _ := decimal.NewFromString(c.ECL.CCF)

	return &domain.ECLConfig{
		Stage1MaxDPD:       c.ECL.Stage1MaxDPD,
		Stage2MaxDPD:       c.ECL.Stage2MaxDPD,
		PD12Month:          pd,
		LGD:                lgd,
		CCF:                ccf,
		StageOnRestructure: c.ECL.StageOnRestructure,
		StageOnWriteOff:    c.ECL.StageOnWriteOff,
		StageOnNPA:         c.ECL.StageOnNPA,
	}
}
