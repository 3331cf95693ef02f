package config

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/parkwise/service-reservation/internal/application"
	"github.com/parkwise/service-reservation/internal/notify"
	"github.com/parkwise/service-reservation/internal/platform/config"
	"github.com/parkwise/service-reservation/internal/platform/logger"
)

// RazorpayConfig holds the payment provider credentials.
type RazorpayConfig struct {
	KeyID     string
	KeySecret string
}

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port        string
	AppEnv      string
	DBConfig    config.DatabaseConfig
	JWTConfig   config.JWTConfig
	KafkaConfig config.KafkaConfig
	RedisConfig config.RedisConfig
	LogFile     logger.FileConfig

	Engine        application.EngineConfig
	SweepInterval time.Duration
	// CreateRateLimit uses the limiter format, e.g. "20-M".
	CreateRateLimit string

	Razorpay     RazorpayConfig
	SMTP         notify.SMTPConfig
	OpsMailbox   string
	MigrationDir string
}

// Load reads configuration from environment variables.
func Load() (*ServiceConfig, error) {
	v, err := config.Load("RESERVATION")
	if err != nil {
		return nil, err
	}
	setDefaults(v)

	return &ServiceConfig{
		Port:        config.GetServicePort(v, "SERVICE_PORT"),
		AppEnv:      config.GetAppEnv(v),
		DBConfig:    config.LoadDatabaseConfig(v, "DB_NAME"),
		JWTConfig:   config.LoadJWTConfig(v),
		KafkaConfig: config.LoadKafkaConfig(v),
		RedisConfig: config.LoadRedisConfig(v),
		LogFile: logger.FileConfig{
			Path:       v.GetString("LOG_FILE"),
			MaxSizeMB:  v.GetInt("LOG_MAX_SIZE_MB"),
			MaxBackups: v.GetInt("LOG_MAX_BACKUPS"),
			MaxAgeDays: v.GetInt("LOG_MAX_AGE_DAYS"),
		},
		Engine:          loadEngineConfig(v),
		SweepInterval:   v.GetDuration("SWEEP_INTERVAL"),
		CreateRateLimit: v.GetString("CREATE_RATE_LIMIT"),
		Razorpay: RazorpayConfig{
			KeyID:     v.GetString("RAZORPAY_KEY_ID"),
			KeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
		},
		SMTP: notify.SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			Username: v.GetString("SMTP_USERNAME"),
			Password: v.GetString("SMTP_PASSWORD"),
			From:     v.GetString("SMTP_FROM"),
		},
		OpsMailbox:   v.GetString("OPS_EMAIL"),
		MigrationDir: v.GetString("MIGRATIONS_DIR"),
	}, nil
}

func setDefaults(v *viper.Viper) {
	d := application.DefaultEngineConfig()

	v.SetDefault("DB_NAME", "reservation_db")
	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("LOG_MAX_SIZE_MB", 100)
	v.SetDefault("LOG_MAX_BACKUPS", 5)
	v.SetDefault("LOG_MAX_AGE_DAYS", 30)

	v.SetDefault("ADMISSION_GRACE", d.AdmissionGrace)
	v.SetDefault("MAX_DURATION", d.MaxDuration)
	v.SetDefault("CHECK_IN_EARLY_WINDOW", d.CheckInEarlyWindow)
	v.SetDefault("DWELL_CEILING", d.DwellCeiling)
	v.SetDefault("NO_SHOW_GRACE", d.NoShowGrace)
	v.SetDefault("ADMISSION_LOCK_WAIT", d.LockWait)
	v.SetDefault("SWEEP_BATCH_SIZE", d.SweepBatchSize)
	v.SetDefault("PLATFORM_FEE_PERCENT", d.PlatformFeePercent.String())
	v.SetDefault("CURRENCY", d.Currency)
	v.SetDefault("SWEEP_INTERVAL", 5*time.Minute)
	v.SetDefault("CREATE_RATE_LIMIT", "20-M")

	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM", "no-reply@parkwise.app")
	v.SetDefault("MIGRATIONS_DIR", "migrations")
}

func loadEngineConfig(v *viper.Viper) application.EngineConfig {
	cfg := application.DefaultEngineConfig()
	cfg.AdmissionGrace = v.GetDuration("ADMISSION_GRACE")
	cfg.MaxDuration = v.GetDuration("MAX_DURATION")
	cfg.CheckInEarlyWindow = v.GetDuration("CHECK_IN_EARLY_WINDOW")
	cfg.DwellCeiling = v.GetDuration("DWELL_CEILING")
	cfg.NoShowGrace = v.GetDuration("NO_SHOW_GRACE")
	cfg.LockWait = v.GetDuration("ADMISSION_LOCK_WAIT")
	cfg.SweepBatchSize = v.GetInt("SWEEP_BATCH_SIZE")
	cfg.Currency = v.GetString("CURRENCY")
	if fee, err := decimal.NewFromString(v.GetString("PLATFORM_FEE_PERCENT")); err == nil {
		cfg.PlatformFeePercent = fee
	}
	return cfg
}
