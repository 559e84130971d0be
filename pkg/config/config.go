package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	OAuth        OAuthConfig
	Admin        AdminConfig
	MercadoPago  MercadoPagoConfig
	Webhook      WebhookConfig
	Cron         CronConfig
	Access       AccessConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if cfg.FeatureFlags.UseSQLite {
		cfg.DB.Driver = DBDriverSQLite
	} else if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	cfg.App.SiteURL = strings.TrimRight(strings.TrimSpace(cfg.App.SiteURL), "/")
	return &cfg, nil
}

type AppConfig struct {
	Env          string   `envconfig:"CLUBES_APP_ENV" required:"true"`
	Port         string   `envconfig:"CLUBES_APP_PORT" required:"true"`
	SiteURL      string   `envconfig:"CLUBES_SITE_URL" required:"true"`
	LogLevel     string   `envconfig:"CLUBES_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"CLUBES_LOG_WARN_STACK" default:"false"`
	LogFormat    string   `envconfig:"CLUBES_LOG_FORMAT" default:"json"`
	CORSOrigins  []string `envconfig:"CLUBES_CORS_ORIGINS"`
}

// ConsoleLogs reports whether logs should use the human-readable writer.
func (a AppConfig) ConsoleLogs() bool {
	return strings.EqualFold(a.LogFormat, "console")
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type DBConfig struct {
	DSN    string `envconfig:"CLUBES_DB_DSN"`
	Driver string `envconfig:"CLUBES_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"CLUBES_DB_HOST"`
	LegacyPort     int    `envconfig:"CLUBES_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"CLUBES_DB_USER"`
	LegacyPassword string `envconfig:"CLUBES_DB_PASSWORD"`
	LegacyName     string `envconfig:"CLUBES_DB_NAME"`
	LegacySSLMode  string `envconfig:"CLUBES_DB_SSLMODE" default:"disable"`

	SQLitePath string `envconfig:"CLUBES_SQLITE_PATH" default:"clubes.db"`

	MaxOpenConns    int           `envconfig:"CLUBES_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"CLUBES_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"CLUBES_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"CLUBES_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"CLUBES_DB_SLOW_QUERY" default:"500ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"CLUBES_REDIS_URL" required:"true"`
	Address      string        `envconfig:"CLUBES_REDIS_ADDR"`
	Password     string        `envconfig:"CLUBES_REDIS_PASSWORD"`
	DB           int           `envconfig:"CLUBES_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"CLUBES_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"CLUBES_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"CLUBES_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"CLUBES_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"CLUBES_REDIS_WRITE_TIMEOUT" default:"5s"`
	SlowCommand  time.Duration `envconfig:"CLUBES_REDIS_SLOW_COMMAND" default:"100ms"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"CLUBES_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"CLUBES_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"CLUBES_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"CLUBES_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type OAuthConfig struct {
	GoogleClientID     string `envconfig:"CLUBES_GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `envconfig:"CLUBES_GOOGLE_CLIENT_SECRET"`
	SessionSecret      string `envconfig:"CLUBES_OAUTH_SESSION_SECRET" required:"true"`
	// PostLoginPath is appended to the site URL after a successful callback.
	PostLoginPath string `envconfig:"CLUBES_OAUTH_POST_LOGIN_PATH" default:"/member"`
}

type AdminConfig struct {
	Emails []string `envconfig:"CLUBES_ADMIN_EMAILS"`
}

// IsAdminEmail matches the allowlist case-insensitively.
func (a AdminConfig) IsAdminEmail(email string) bool {
	email = strings.TrimSpace(email)
	if email == "" {
		return false
	}
	for _, candidate := range a.Emails {
		if strings.EqualFold(strings.TrimSpace(candidate), email) {
			return true
		}
	}
	return false
}

type MercadoPagoConfig struct {
	AccessToken    string        `envconfig:"CLUBES_MERCADOPAGO_ACCESS_TOKEN" required:"true"`
	WebhookSecret  string        `envconfig:"CLUBES_MERCADOPAGO_WEBHOOK_SECRET"`
	Sandbox        bool          `envconfig:"CLUBES_MERCADOPAGO_SANDBOX" default:"false"`
	Currency       string        `envconfig:"CLUBES_MERCADOPAGO_CURRENCY" default:"BRL"`
	RequestTimeout time.Duration `envconfig:"CLUBES_MERCADOPAGO_TIMEOUT" default:"15s"`
}

type WebhookConfig struct {
	GuardTTL       time.Duration `envconfig:"CLUBES_WEBHOOK_GUARD_TTL" default:"2m"`
	RetryBaseDelay time.Duration `envconfig:"CLUBES_WEBHOOK_RETRY_BASE_DELAY" default:"1m"`
	RetryMaxDelay  time.Duration `envconfig:"CLUBES_WEBHOOK_RETRY_MAX_DELAY" default:"6h"`
	MaxAttempts    int           `envconfig:"CLUBES_WEBHOOK_MAX_ATTEMPTS" default:"8"`
	RetryBatchSize int           `envconfig:"CLUBES_WEBHOOK_RETRY_BATCH_SIZE" default:"50"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"CLUBES_CRON_INTERVAL" default:"5m"`
	LockTTL         time.Duration `envconfig:"CLUBES_CRON_LOCK_TTL" default:"10m"`
	ExpiryBatchSize int           `envconfig:"CLUBES_CRON_EXPIRY_BATCH_SIZE" default:"200"`
	JobTimeout      time.Duration `envconfig:"CLUBES_CRON_JOB_TIMEOUT" default:"2m"`

	// WebhookRetentionDays bounds how long settled webhook events are kept.
	WebhookRetentionDays int `envconfig:"CLUBES_CRON_WEBHOOK_RETENTION_DAYS" default:"30"`
}

type AccessConfig struct {
	// CancelGrace keeps cancelled subscriptions entitled until their end date.
	CancelGrace bool `envconfig:"CLUBES_ACCESS_CANCEL_GRACE" default:"false"`
}

// RateLimitConfig throttles the OAuth entry points per client IP. A zero
// limit disables throttling.
type RateLimitConfig struct {
	AuthWindow    time.Duration `envconfig:"CLUBES_AUTH_RATE_LIMIT_WINDOW" default:"1m"`
	AuthIPLimit   int           `envconfig:"CLUBES_AUTH_RATE_LIMIT_IP" default:"30"`
	PaymentWindow time.Duration `envconfig:"CLUBES_PAYMENT_RATE_LIMIT_WINDOW" default:"1m"`
	PaymentLimit  int           `envconfig:"CLUBES_PAYMENT_RATE_LIMIT" default:"10"`

	// TrustedProxyHops is how many X-Forwarded-For entries were appended by
	// our own load balancers.
	TrustedProxyHops int `envconfig:"CLUBES_TRUSTED_PROXY_HOPS" default:"1"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"CLUBES_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"CLUBES_AUTO_MIGRATE" default:"false"`
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
