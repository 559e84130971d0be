package config

const EnvPrefix = "CLUBES"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	DBDriverPostgres = "postgres"
	DBDriverSQLite   = "sqlite"
)

// Environment variable names, shared by Load's validation and tests.
const (
	EnvAppEnv   = "CLUBES_APP_ENV"
	EnvPort     = "CLUBES_APP_PORT"
	EnvSiteURL  = "CLUBES_SITE_URL"
	EnvLogLevel = "CLUBES_LOG_LEVEL"

	EnvDBDSN  = "CLUBES_DB_DSN"
	EnvDBHost = "CLUBES_DB_HOST"
	EnvDBUser = "CLUBES_DB_USER"
	EnvDBName = "CLUBES_DB_NAME"

	EnvRedisURL = "CLUBES_REDIS_URL"

	EnvJWTSecret              = "CLUBES_JWT_SECRET"
	EnvJWTIssuer              = "CLUBES_JWT_ISSUER"
	EnvJWTExpMins             = "CLUBES_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "CLUBES_REFRESH_TOKEN_TTL_MINUTES"

	EnvGoogleClientID     = "CLUBES_GOOGLE_CLIENT_ID"
	EnvGoogleClientSecret = "CLUBES_GOOGLE_CLIENT_SECRET"
	EnvOAuthSessionSecret = "CLUBES_OAUTH_SESSION_SECRET"

	EnvAdminEmails = "CLUBES_ADMIN_EMAILS"

	EnvMercadoPagoAccessToken   = "CLUBES_MERCADOPAGO_ACCESS_TOKEN"
	EnvMercadoPagoWebhookSecret = "CLUBES_MERCADOPAGO_WEBHOOK_SECRET"
	EnvMercadoPagoSandbox       = "CLUBES_MERCADOPAGO_SANDBOX"
	EnvMercadoPagoCurrency      = "CLUBES_MERCADOPAGO_CURRENCY"

	EnvWebhookMaxAttempts = "CLUBES_WEBHOOK_MAX_ATTEMPTS"
	EnvAccessCancelGrace  = "CLUBES_ACCESS_CANCEL_GRACE"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
