package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	Password      PasswordConfig
	Session       SessionConfig
	Sheets        SheetsConfig
	SMTP          SMTPConfig
	Sync          SyncConfig
	AuthRateLimit AuthRateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Admin         AdminConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"YLN_APP_ENV" required:"true"`
	Port         string `envconfig:"YLN_APP_PORT" default:"8080"`
	LogLevel     string `envconfig:"YLN_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"YLN_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"YLN_DB_DSN" required:"true"`
	Driver string `envconfig:"YLN_DB_DRIVER" default:"sqlite"`

	MaxOpenConns    int           `envconfig:"YLN_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"YLN_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"YLN_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"YLN_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

func (db DBConfig) validate() error {
	switch strings.ToLower(db.Driver) {
	case DriverPostgres, DriverSQLite:
		return nil
	default:
		return fmt.Errorf("unsupported database driver %q (expected %s or %s)", db.Driver, DriverPostgres, DriverSQLite)
	}
}

type RedisConfig struct {
	URL          string        `envconfig:"YLN_REDIS_URL"`
	Address      string        `envconfig:"YLN_REDIS_ADDR"`
	Password     string        `envconfig:"YLN_REDIS_PASSWORD"`
	DB           int           `envconfig:"YLN_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"YLN_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"YLN_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"YLN_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"YLN_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"YLN_REDIS_WRITE_TIMEOUT" default:"5s"`
}

// Enabled reports whether a Redis endpoint is configured at all. Rate
// limiting is skipped when it is not.
func (r RedisConfig) Enabled() bool {
	return r.URL != "" || r.Address != ""
}

type PasswordConfig struct {
	BcryptCost int `envconfig:"YLN_BCRYPT_COST" default:"12"`
}

type SessionConfig struct {
	TTL                  time.Duration `envconfig:"YLN_SESSION_TTL" default:"168h"`
	VerificationTokenTTL time.Duration `envconfig:"YLN_VERIFICATION_TOKEN_TTL" default:"24h"`
	ResetTokenTTL        time.Duration `envconfig:"YLN_RESET_TOKEN_TTL" default:"1h"`
}

type SheetsConfig struct {
	Enabled         bool          `envconfig:"YLN_SHEETS_ENABLED" default:"false"`
	SpreadsheetID   string        `envconfig:"YLN_SHEETS_SPREADSHEET_ID"`
	CredentialsJSON string        `envconfig:"YLN_SHEETS_CREDENTIALS_JSON"`
	CredentialsPath string        `envconfig:"YLN_SHEETS_CREDENTIALS_PATH"`
	Timeout         time.Duration `envconfig:"YLN_SHEETS_TIMEOUT" default:"10s"`
}

type SMTPConfig struct {
	Host string `envconfig:"YLN_SMTP_HOST"`
	Port int    `envconfig:"YLN_SMTP_PORT" default:"587"`
	User string `envconfig:"YLN_SMTP_USER"`
	Pass string `envconfig:"YLN_SMTP_PASS"`
	From string `envconfig:"YLN_SMTP_FROM" default:"noreply@yln.local"`
	TLS  bool   `envconfig:"YLN_SMTP_TLS" default:"true"`
}

// Ready reports whether enough SMTP settings are present to send mail.
func (s SMTPConfig) Ready() bool {
	return s.Host != "" && s.User != "" && s.Pass != ""
}

type SyncConfig struct {
	BatchSize     int           `envconfig:"YLN_SYNC_BATCH_SIZE" default:"10"`
	SweepInterval time.Duration `envconfig:"YLN_SYNC_SWEEP_INTERVAL" default:"45s"`
	MaxAttempts   int           `envconfig:"YLN_SYNC_MAX_ATTEMPTS" default:"5"`
	RetryBackoff  time.Duration `envconfig:"YLN_SYNC_RETRY_BACKOFF" default:"60s"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"YLN_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"YLN_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"YLN_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"YLN_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"YLN_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"YLN_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"YLN_AUTO_MIGRATE" default:"false"`
	DrainOnBoot bool `envconfig:"YLN_DRAIN_ON_BOOT" default:"true"`
}

type AdminConfig struct {
	Email    string `envconfig:"YLN_SUPER_ADMIN_EMAIL"`
	Password string `envconfig:"YLN_SUPER_ADMIN_PASSWORD"`
}
