package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Environment string           `mapstructure:"environment"`
	Database    DatabaseConfig   `mapstructure:"database"`
	Store       StoreConfig      `mapstructure:"store"`
	AWS         AWSConfig        `mapstructure:"aws"`
	API         APIProbeConfig   `mapstructure:"api"`
	Thresholds  Thresholds       `mapstructure:"thresholds"`
	Alerts      AlertConfig      `mapstructure:"alerts"`
	Monitoring  MonitoringConfig `mapstructure:"monitoring"`
	Features    FeatureFlags     `mapstructure:"features"`
	Log         LogConfig        `mapstructure:"log"`
	Server      ServerConfig     `mapstructure:"server"`
}

// DatabaseConfig points at the business database the probes observe.
// Driver is a closed set; anything else fails validation at startup.
type DatabaseConfig struct {
	Driver              string `mapstructure:"driver"`
	DSN                 string `mapstructure:"dsn"`
	MaxOpenConns        int    `mapstructure:"max_open_conns"`
	QueryTimeoutSeconds int    `mapstructure:"query_timeout_seconds"`
}

// StoreConfig is the local sqlite database used for alert history.
type StoreConfig struct {
	Path string `mapstructure:"path"`
}

type AWSConfig struct {
	AccessKeyID        string `mapstructure:"access_key_id"`
	SecretAccessKey    string `mapstructure:"secret_access_key"`
	Region             string `mapstructure:"region"`
	S3BucketName       string `mapstructure:"s3_bucket_name"`
	DamagePhotosPrefix string `mapstructure:"damage_photos_prefix"`
}

type APIProbeConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type Thresholds struct {
	DBQueryMs        float64 `mapstructure:"db_query_ms"`
	DBConnectionsPct float64 `mapstructure:"db_connections_pct"`
	DBLockWaitMs     float64 `mapstructure:"db_lock_wait_ms"`

	QueueStuckHours float64 `mapstructure:"queue_stuck_hours"`
	QueueDepth      float64 `mapstructure:"queue_depth"`
	PendingRepairs  float64 `mapstructure:"pending_repairs"`

	APIResponseMs     float64 `mapstructure:"api_response_ms"`
	APIErrorRatePct   float64 `mapstructure:"api_error_rate_pct"`
	APIRequestsPerMin float64 `mapstructure:"api_requests_per_min"`

	S3StorageGB float64 `mapstructure:"s3_storage_gb"`
	S3CostUSD   float64 `mapstructure:"s3_cost_usd"`
	PhotoSizeMB float64 `mapstructure:"photo_size_mb"`

	InactiveTechniciansHours float64 `mapstructure:"inactive_technicians_hours"`
	LowActivityHours         float64 `mapstructure:"low_activity_hours"`
}

type AlertConfig struct {
	Enabled         bool     `mapstructure:"enabled"`
	CooldownMinutes int      `mapstructure:"cooldown_minutes"`
	SlackWebhookURL string   `mapstructure:"slack_webhook_url"`
	SlackChannel    string   `mapstructure:"slack_channel"`
	SlackUsername   string   `mapstructure:"slack_username"`
	EmailEnabled    bool     `mapstructure:"email_enabled"`
	EmailFrom       string   `mapstructure:"email_from"`
	EmailTo         []string `mapstructure:"email_to"`
	SMTPHost        string   `mapstructure:"smtp_host"`
	SMTPPort        int      `mapstructure:"smtp_port"`
	SMTPUser        string   `mapstructure:"smtp_user"`
	SMTPPassword    string   `mapstructure:"smtp_password"`
}

type MonitoringConfig struct {
	IntervalSeconds       int `mapstructure:"interval_seconds"`
	MaxConcurrentMonitors int `mapstructure:"max_concurrent_monitors"`
}

type FeatureFlags struct {
	EnableDatabaseMonitoring bool `mapstructure:"enable_database_monitoring"`
	EnableAPIMonitoring      bool `mapstructure:"enable_api_monitoring"`
	EnableQueueMonitoring    bool `mapstructure:"enable_queue_monitoring"`
	EnableStorageMonitoring  bool `mapstructure:"enable_storage_monitoring"`
	EnableActivityMonitoring bool `mapstructure:"enable_activity_monitoring"`
	EnablePredictiveAlerts   bool `mapstructure:"enable_predictive_alerts"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	FilePath    string `mapstructure:"file_path"`
	MaxSizeMB   int    `mapstructure:"max_size_mb"`
	BackupCount int    `mapstructure:"backup_count"`
}

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	APIKey    string `mapstructure:"api_key"`
	JWTSecret string `mapstructure:"jwt_secret"`
}

// Load reads config.yaml (if present), layers environment variables on top
// and returns the resulting configuration. A missing config file is fine;
// everything has a default or an env override.
func Load() (*Config, error) {
	// .env is optional, same as the deployment scripts expect.
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/healthwatch")

	setDefaults(v)
	bindEnvAliases(v)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("database.driver", "postgres")
	v.SetDefault("database.dsn", "host=localhost port=5432 dbname=rs_systems sslmode=disable")
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.query_timeout_seconds", 30)

	v.SetDefault("store.path", "data/healthwatch.db")

	v.SetDefault("aws.region", "us-east-1")
	v.SetDefault("aws.s3_bucket_name", "rs-systems-media")
	v.SetDefault("aws.damage_photos_prefix", "damage-photos/")

	v.SetDefault("api.base_url", "http://localhost:8000")
	v.SetDefault("api.timeout_seconds", 10)

	v.SetDefault("thresholds.db_query_ms", 500)
	v.SetDefault("thresholds.db_connections_pct", 80)
	v.SetDefault("thresholds.db_lock_wait_ms", 1000)
	v.SetDefault("thresholds.queue_stuck_hours", 24)
	v.SetDefault("thresholds.queue_depth", 100)
	v.SetDefault("thresholds.pending_repairs", 50)
	v.SetDefault("thresholds.api_response_ms", 2000)
	v.SetDefault("thresholds.api_error_rate_pct", 5)
	v.SetDefault("thresholds.api_requests_per_min", 1000)
	v.SetDefault("thresholds.s3_storage_gb", 100)
	v.SetDefault("thresholds.s3_cost_usd", 500)
	v.SetDefault("thresholds.photo_size_mb", 10)
	v.SetDefault("thresholds.inactive_technicians_hours", 2)
	v.SetDefault("thresholds.low_activity_hours", 4)

	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.cooldown_minutes", 15)
	v.SetDefault("alerts.slack_channel", "#rs-systems-alerts")
	v.SetDefault("alerts.slack_username", "RS Health Monitor")
	v.SetDefault("alerts.email_enabled", false)
	v.SetDefault("alerts.email_from", "monitoring@rssystems.com")
	v.SetDefault("alerts.smtp_host", "smtp.gmail.com")
	v.SetDefault("alerts.smtp_port", 587)

	v.SetDefault("monitoring.interval_seconds", 60)
	v.SetDefault("monitoring.max_concurrent_monitors", 5)

	v.SetDefault("features.enable_database_monitoring", true)
	v.SetDefault("features.enable_api_monitoring", true)
	v.SetDefault("features.enable_queue_monitoring", true)
	v.SetDefault("features.enable_storage_monitoring", true)
	v.SetDefault("features.enable_activity_monitoring", true)
	v.SetDefault("features.enable_predictive_alerts", false)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.max_size_mb", 100)
	v.SetDefault("log.backup_count", 5)

	v.SetDefault("server.port", 8080)
}

// bindEnvAliases keeps the legacy deployment variable names working.
func bindEnvAliases(v *viper.Viper) {
	aliases := map[string]string{
		"database.dsn":                          "DATABASE_URL",
		"aws.access_key_id":                     "AWS_ACCESS_KEY_ID",
		"aws.secret_access_key":                 "AWS_SECRET_ACCESS_KEY",
		"aws.region":                            "AWS_REGION",
		"aws.s3_bucket_name":                    "S3_BUCKET_NAME",
		"thresholds.db_query_ms":                "ALERT_THRESHOLD_DB_QUERY_MS",
		"thresholds.db_connections_pct":         "ALERT_THRESHOLD_DB_CONNECTIONS_PCT",
		"thresholds.db_lock_wait_ms":            "ALERT_THRESHOLD_DB_LOCK_WAIT_MS",
		"thresholds.queue_stuck_hours":          "ALERT_THRESHOLD_QUEUE_STUCK_HOURS",
		"thresholds.queue_depth":                "ALERT_THRESHOLD_QUEUE_DEPTH",
		"thresholds.pending_repairs":            "ALERT_THRESHOLD_PENDING_REPAIRS",
		"thresholds.api_response_ms":            "ALERT_THRESHOLD_API_RESPONSE_MS",
		"thresholds.api_error_rate_pct":         "ALERT_THRESHOLD_API_ERROR_RATE_PCT",
		"thresholds.s3_storage_gb":              "ALERT_THRESHOLD_S3_STORAGE_GB",
		"thresholds.s3_cost_usd":                "ALERT_THRESHOLD_S3_COST_USD",
		"thresholds.photo_size_mb":              "ALERT_THRESHOLD_PHOTO_SIZE_MB",
		"alerts.enabled":                        "ALERT_ENABLED",
		"alerts.cooldown_minutes":               "ALERT_COOLDOWN_MINUTES",
		"alerts.slack_webhook_url":              "SLACK_WEBHOOK_URL",
		"alerts.slack_channel":                  "SLACK_CHANNEL",
		"alerts.email_enabled":                  "EMAIL_ALERT_ENABLED",
		"alerts.smtp_host":                      "EMAIL_SMTP_HOST",
		"alerts.smtp_port":                      "EMAIL_SMTP_PORT",
		"alerts.smtp_user":                      "EMAIL_SMTP_USER",
		"alerts.smtp_password":                  "EMAIL_SMTP_PASSWORD",
		"monitoring.interval_seconds":           "MONITORING_INTERVAL_SECONDS",
		"monitoring.max_concurrent_monitors":    "MAX_CONCURRENT_MONITORS",
		"features.enable_database_monitoring":   "ENABLE_DATABASE_MONITORING",
		"features.enable_api_monitoring":        "ENABLE_API_MONITORING",
		"features.enable_queue_monitoring":      "ENABLE_QUEUE_MONITORING",
		"features.enable_storage_monitoring":    "ENABLE_S3_MONITORING",
		"features.enable_activity_monitoring":   "ENABLE_ACTIVITY_MONITORING",
		"features.enable_predictive_alerts":     "ENABLE_PREDICTIVE_ALERTS",
		"server.api_key":                        "API_KEY",
	}
	for key, env := range aliases {
		_ = v.BindEnv(key, env)
	}
}

// Validate fails fast on configuration that would otherwise surface as
// confusing runtime behavior. Unknown database drivers are rejected here
// instead of silently falling back to a default.
func (c *Config) Validate() error {
	var errs []string

	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Sprintf("unknown database driver %q (want postgres or sqlite)", c.Database.Driver))
	}

	if c.Database.DSN == "" {
		errs = append(errs, "database dsn is required")
	}

	if c.Features.EnableStorageMonitoring {
		if c.AWS.AccessKeyID == "" || c.AWS.SecretAccessKey == "" {
			errs = append(errs, "AWS credentials are required when storage monitoring is enabled")
		}
	}

	if c.Alerts.Enabled && c.Alerts.SlackWebhookURL == "" && !c.Alerts.EmailEnabled {
		errs = append(errs, "alerting is enabled but no notification channel is configured")
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) IsProduction() bool { return c.Environment == "production" }
