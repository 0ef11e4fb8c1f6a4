package config

// EnvPrefix namespaces every environment variable the app reads.
const EnvPrefix = "LOOMLINE"

const (
	AppEnvDev  = "dev"
	AppEnvTest = "test"
	AppEnvProd = "production"
)

// Environment variable names shared between Load, tests, and deploy tooling.
const (
	EnvAppEnv   = "LOOMLINE_APP_ENV"
	EnvPort     = "LOOMLINE_APP_PORT"
	EnvLogLevel = "LOOMLINE_LOG_LEVEL"

	EnvDBDSN      = "LOOMLINE_DB_DSN"
	EnvDBHost     = "LOOMLINE_DB_HOST"
	EnvDBPort     = "LOOMLINE_DB_PORT"
	EnvDBUser     = "LOOMLINE_DB_USER"
	EnvDBPassword = "LOOMLINE_DB_PASSWORD"
	EnvDBName     = "LOOMLINE_DB_NAME"
	EnvDBSSLMode  = "LOOMLINE_DB_SSLMODE"

	EnvRedisURL = "LOOMLINE_REDIS_URL"

	EnvJWTSecret  = "LOOMLINE_JWT_SECRET"
	EnvJWTIssuer  = "LOOMLINE_JWT_ISSUER"
	EnvJWTExpMins = "LOOMLINE_JWT_EXPIRATION_MINUTES"

	EnvSessionCookieName = "LOOMLINE_SESSION_COOKIE_NAME"
	EnvSessionTTL        = "LOOMLINE_SESSION_TTL"

	EnvUploadsDriver = "LOOMLINE_UPLOADS_DRIVER"
	EnvUploadsDir    = "LOOMLINE_UPLOADS_DIR"

	EnvGCPProjectID = "LOOMLINE_GCP_PROJECT_ID"

	EnvPubSubOrdersTopic = "LOOMLINE_PUBSUB_ORDERS_TOPIC"
	EnvPubSubOrdersSub   = "LOOMLINE_PUBSUB_ORDERS_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
