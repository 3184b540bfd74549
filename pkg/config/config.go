package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App      AppConfig
	DB       DBConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Checkout CheckoutConfig
	Payments PaymentsConfig
	Outbox   OutboxConfig
	Cron     CronConfig
	Email    EmailConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"HELPNET_APP_ENV" required:"true"`
	Port         string `envconfig:"HELPNET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"HELPNET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"HELPNET_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"HELPNET_DB_DSN"`
	Driver string `envconfig:"HELPNET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"HELPNET_DB_HOST"`
	LegacyPort     int    `envconfig:"HELPNET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"HELPNET_DB_USER"`
	LegacyPassword string `envconfig:"HELPNET_DB_PASSWORD"`
	LegacyName     string `envconfig:"HELPNET_DB_NAME"`
	LegacySSLMode  string `envconfig:"HELPNET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"HELPNET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"HELPNET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"HELPNET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"HELPNET_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	AutoMigrate bool `envconfig:"HELPNET_AUTO_MIGRATE" default:"false"`
}

type RedisConfig struct {
	URL          string        `envconfig:"HELPNET_REDIS_URL"`
	Address      string        `envconfig:"HELPNET_REDIS_ADDR"`
	Password     string        `envconfig:"HELPNET_REDIS_PASSWORD"`
	DB           int           `envconfig:"HELPNET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"HELPNET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"HELPNET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"HELPNET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"HELPNET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"HELPNET_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"HELPNET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"HELPNET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"HELPNET_JWT_EXPIRATION_MINUTES" default:"60"`
}

// CheckoutConfig bounds the payment window and delivery expectations.
type CheckoutConfig struct {
	PaymentWindow   time.Duration `envconfig:"HELPNET_CHECKOUT_PAYMENT_WINDOW" default:"24h"`
	DeliveryLead    time.Duration `envconfig:"HELPNET_CHECKOUT_DELIVERY_LEAD" default:"168h"`
	CatalogCacheTTL time.Duration `envconfig:"HELPNET_CATALOG_CACHE_TTL" default:"5m"`
}

// PaymentsConfig covers the gateway-facing payment surfaces.
type PaymentsConfig struct {
	WebhookSecret     string        `envconfig:"HELPNET_PAYMENTS_WEBHOOK_SECRET" required:"true"`
	WebhookRateLimit  int           `envconfig:"HELPNET_PAYMENTS_WEBHOOK_RATE_LIMIT" default:"120"`
	WebhookRateWindow time.Duration `envconfig:"HELPNET_PAYMENTS_WEBHOOK_RATE_WINDOW" default:"1m"`
	SandboxEnabled    bool          `envconfig:"HELPNET_PAYMENTS_SANDBOX_ENABLED" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"HELPNET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"HELPNET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"HELPNET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	RetentionDays  int `envconfig:"HELPNET_OUTBOX_RETENTION_DAYS" default:"30"`
}

type CronConfig struct {
	Interval time.Duration `envconfig:"HELPNET_CRON_INTERVAL" default:"5m"`
	LockTTL  time.Duration `envconfig:"HELPNET_CRON_LOCK_TTL" default:"10m"`
}

type EmailConfig struct {
	DefaultFrom  string `envconfig:"HELPNET_EMAIL_FROM" default:"no-reply@helpnet.com.br"`
	OpsInbox     string `envconfig:"HELPNET_EMAIL_OPS_INBOX" default:"ops@helpnet.com.br"`
	Enabled      bool   `envconfig:"HELPNET_EMAIL_ENABLED" default:"false"`
	SMTPHost     string `envconfig:"HELPNET_EMAIL_SMTP_HOST"`
	SMTPPort     int    `envconfig:"HELPNET_EMAIL_SMTP_PORT" default:"587"`
	SMTPUsername string `envconfig:"HELPNET_EMAIL_SMTP_USERNAME"`
	SMTPPassword string `envconfig:"HELPNET_EMAIL_SMTP_PASSWORD"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
