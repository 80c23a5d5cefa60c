package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix scopes every environment variable the platform reads.
const EnvPrefix = "shopdeck"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

type Config struct {
	App          AppConfig
	Service      ServiceConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Reference    ReferenceConfig
	Payouts      PayoutConfig
	Checkout     CheckoutConfig
	Delivery     DeliveryConfig
	FeatureFlags FeatureFlagsConfig
	PubSub       PubSubConfig
	Outbox       OutboxConfig
}

// Load reads the process environment once at startup. The result is treated as
// immutable for the lifetime of the process.
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
	Env          string `envconfig:"SHOPDECK_APP_ENV" required:"true"`
	Port         string `envconfig:"SHOPDECK_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"SHOPDECK_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"SHOPDECK_LOG_WARN_STACK" default:"false"`

	CORSOrigins []string `envconfig:"SHOPDECK_CORS_ORIGINS" default:"http://localhost:3000"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"SHOPDECK_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"SHOPDECK_DB_DSN"`
	Driver string `envconfig:"SHOPDECK_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"SHOPDECK_DB_HOST"`
	Port     int    `envconfig:"SHOPDECK_DB_PORT" default:"5432"`
	User     string `envconfig:"SHOPDECK_DB_USER"`
	Password string `envconfig:"SHOPDECK_DB_PASSWORD"`
	Name     string `envconfig:"SHOPDECK_DB_NAME"`
	SSLMode  string `envconfig:"SHOPDECK_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"SHOPDECK_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"SHOPDECK_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"SHOPDECK_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"SHOPDECK_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"SHOPDECK_REDIS_URL" required:"true"`
	Address      string        `envconfig:"SHOPDECK_REDIS_ADDR"`
	Password     string        `envconfig:"SHOPDECK_REDIS_PASSWORD"`
	DB           int           `envconfig:"SHOPDECK_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"SHOPDECK_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"SHOPDECK_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"SHOPDECK_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"SHOPDECK_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"SHOPDECK_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"SHOPDECK_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"SHOPDECK_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"SHOPDECK_JWT_EXPIRATION_MINUTES" default:"60"`
}

// ReferenceConfig drives the signed order-reference codec and its short-code
// aliases. The signing secret correlates payment notifications to drafts, so it
// must match across every deployed service kind.
type ReferenceConfig struct {
	Prefix        string        `envconfig:"SHOPDECK_REFERENCE_PREFIX" default:"SHD"`
	Version       string        `envconfig:"SHOPDECK_REFERENCE_VERSION" default:"V1"`
	SigningSecret string        `envconfig:"SHOPDECK_REFERENCE_SIGNING_SECRET" required:"true"`
	ShortCodeLen  int           `envconfig:"SHOPDECK_REFERENCE_SHORT_CODE_LEN" default:"8"`
	ShortCodeTTL  time.Duration `envconfig:"SHOPDECK_REFERENCE_SHORT_CODE_TTL" default:"24h"`
	WebhookAckTTL time.Duration `envconfig:"SHOPDECK_WEBHOOK_IDEMPOTENCY_TTL" default:"72h"`
}

type PayoutConfig struct {
	CommissionRate    string        `envconfig:"SHOPDECK_COMMISSION_RATE" default:"0.15"`
	SettlementDelay   time.Duration `envconfig:"SHOPDECK_PAYOUT_SETTLEMENT_DELAY" default:"24h"`
	ImmediatePercent  int           `envconfig:"SHOPDECK_PAYOUT_IMMEDIATE_PERCENT" default:"80"`
	RemainderHoldTime time.Duration `envconfig:"SHOPDECK_PAYOUT_REMAINDER_HOLD" default:"168h"`
}

type CheckoutConfig struct {
	DraftTTL time.Duration `envconfig:"SHOPDECK_CHECKOUT_DRAFT_TTL" default:"20m"`
}

type DeliveryConfig struct {
	DefaultFeeCents     int64 `envconfig:"SHOPDECK_DELIVERY_DEFAULT_FEE_CENTS" default:"20000"`
	ConfirmationCodeLen int   `envconfig:"SHOPDECK_DELIVERY_CONFIRMATION_CODE_LEN" default:"6"`
}

type FeatureFlagsConfig struct {
	AutoMigrate           bool `envconfig:"SHOPDECK_AUTO_MIGRATE" default:"false"`
	SplitVendorPayouts    bool `envconfig:"SHOPDECK_FEATURE_SPLIT_VENDOR_PAYOUTS" default:"true"`
	ShortCodesForPaybills bool `envconfig:"SHOPDECK_FEATURE_SHORT_CODES" default:"true"`
}

type PubSubConfig struct {
	ProjectID   string `envconfig:"SHOPDECK_GCP_PROJECT_ID"`
	EventsTopic string `envconfig:"SHOPDECK_PUBSUB_EVENTS_TOPIC" default:"shopdeck-domain-events"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"SHOPDECK_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"SHOPDECK_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"SHOPDECK_OUTBOX_MAX_ATTEMPTS" default:"10"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	for env, value := range map[string]string{
		"SHOPDECK_DB_HOST": db.Host,
		"SHOPDECK_DB_USER": db.User,
		"SHOPDECK_DB_NAME": db.Name,
	} {
		if value == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either SHOPDECK_DB_DSN or %s are required", strings.Join(missing, ", "))
	}

	userInfo := url.User(db.User)
	if db.Password != "" {
		userInfo = url.UserPassword(db.User, db.Password)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.Host, db.Port),
		Path:   db.Name,
	}
	if db.SSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.SSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
