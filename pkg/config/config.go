package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	Store         StoreConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	Session       SessionConfig
	AuthRateLimit AuthRateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
	Uploads       UploadsConfig
	MinIO         MinIOConfig
	Square        SquareConfig
	SMTP          SMTPConfig
	Orders        OrdersConfig
	Cron          CronConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
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
	Env          string `envconfig:"LOOMLINE_APP_ENV" required:"true"`
	Port         string `envconfig:"LOOMLINE_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"LOOMLINE_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"LOOMLINE_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"LOOMLINE_SERVICE_KIND" default:"api"`
}

// StoreConfig carries the storefront identity used in emails, QR payment
// payloads, and absolute upload URLs.
type StoreConfig struct {
	Name      string `envconfig:"LOOMLINE_STORE_NAME" default:"Loomline Fabrics"`
	PublicURL string `envconfig:"LOOMLINE_STORE_PUBLIC_URL" default:"http://localhost:3000"`
	Currency  string `envconfig:"LOOMLINE_STORE_CURRENCY" default:"USD"`
}

type DBConfig struct {
	DSN    string `envconfig:"LOOMLINE_DB_DSN"`
	Driver string `envconfig:"LOOMLINE_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"LOOMLINE_DB_HOST"`
	LegacyPort     int    `envconfig:"LOOMLINE_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"LOOMLINE_DB_USER"`
	LegacyPassword string `envconfig:"LOOMLINE_DB_PASSWORD"`
	LegacyName     string `envconfig:"LOOMLINE_DB_NAME"`
	LegacySSLMode  string `envconfig:"LOOMLINE_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"LOOMLINE_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"LOOMLINE_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"LOOMLINE_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"LOOMLINE_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"LOOMLINE_REDIS_URL" required:"true"`
	Address      string        `envconfig:"LOOMLINE_REDIS_ADDR"`
	Password     string        `envconfig:"LOOMLINE_REDIS_PASSWORD"`
	DB           int           `envconfig:"LOOMLINE_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"LOOMLINE_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"LOOMLINE_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"LOOMLINE_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"LOOMLINE_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"LOOMLINE_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret            string `envconfig:"LOOMLINE_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"LOOMLINE_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"LOOMLINE_JWT_EXPIRATION_MINUTES" default:"30"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return 30 * time.Minute
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"LOOMLINE_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"LOOMLINE_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"LOOMLINE_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"LOOMLINE_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"LOOMLINE_ARGON_KEY_LEN" default:"32"`
}

// SessionConfig controls the browser session cookie and its Redis record.
// Anonymous sessions carry the cart id; login upgrades them in place.
type SessionConfig struct {
	CookieName   string        `envconfig:"LOOMLINE_SESSION_COOKIE_NAME" default:"loomline_session"`
	TTL          time.Duration `envconfig:"LOOMLINE_SESSION_TTL" default:"168h"`
	CookieSecure bool          `envconfig:"LOOMLINE_SESSION_COOKIE_SECURE" default:"true"`
	CookieDomain string        `envconfig:"LOOMLINE_SESSION_COOKIE_DOMAIN"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"LOOMLINE_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"LOOMLINE_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"LOOMLINE_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"LOOMLINE_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"LOOMLINE_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"LOOMLINE_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// CORSConfig lists the browser origins allowed to call the API with
// credentials. Comma-separated in the environment.
type CORSConfig struct {
	AllowedOrigins []string `envconfig:"LOOMLINE_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite       bool `envconfig:"LOOMLINE_USE_SQLITE" default:"false"`
	AutoMigrate     bool `envconfig:"LOOMLINE_AUTO_MIGRATE" default:"false"`
	AnalyticsExport bool `envconfig:"LOOMLINE_ANALYTICS_EXPORT" default:"false"`
	EmailEnabled    bool `envconfig:"LOOMLINE_EMAIL_ENABLED" default:"true"`
}

type UploadsConfig struct {
	Driver      string `envconfig:"LOOMLINE_UPLOADS_DRIVER" default:"local"`
	LocalDir    string `envconfig:"LOOMLINE_UPLOADS_DIR" default:"uploads"`
	BaseURL     string `envconfig:"LOOMLINE_UPLOADS_BASE_URL" default:"/uploads"`
	MaxUploadMB int    `envconfig:"LOOMLINE_UPLOADS_MAX_MB" default:"25"`
}

// MaxUploadBytes converts the configured cap to bytes.
func (u UploadsConfig) MaxUploadBytes() int64 {
	mb := u.MaxUploadMB
	if mb <= 0 {
		mb = 25
	}
	return int64(mb) << 20
}

type MinIOConfig struct {
	Endpoint      string `envconfig:"LOOMLINE_MINIO_ENDPOINT"`
	AccessKey     string `envconfig:"LOOMLINE_MINIO_ACCESS_KEY"`
	SecretKey     string `envconfig:"LOOMLINE_MINIO_SECRET_KEY"`
	Bucket        string `envconfig:"LOOMLINE_MINIO_BUCKET" default:"loomline-media"`
	UseSSL        bool   `envconfig:"LOOMLINE_MINIO_USE_SSL" default:"true"`
	PublicBaseURL string `envconfig:"LOOMLINE_MINIO_PUBLIC_BASE_URL"`
}

type SquareConfig struct {
	AccessToken   string `envconfig:"LOOMLINE_SQUARE_ACCESS_TOKEN"`
	Env           string `envconfig:"LOOMLINE_SQUARE_ENV" default:"sandbox"`
	WebhookSecret string `envconfig:"LOOMLINE_SQUARE_WEBHOOK_SECRET"`
	LocationID    string `envconfig:"LOOMLINE_SQUARE_LOCATION_ID"`
}

// Environment returns the normalized Square environment (sandbox/production).
func (s SquareConfig) Environment() string {
	env := strings.TrimSpace(strings.ToLower(s.Env))
	if env == "" {
		return "sandbox"
	}
	return env
}

type SMTPConfig struct {
	Host     string `envconfig:"LOOMLINE_SMTP_HOST"`
	Port     int    `envconfig:"LOOMLINE_SMTP_PORT" default:"587"`
	Username string `envconfig:"LOOMLINE_SMTP_USERNAME"`
	Password string `envconfig:"LOOMLINE_SMTP_PASSWORD"`
	From     string `envconfig:"LOOMLINE_SMTP_FROM" default:"orders@loomline.example"`
}

type OrdersConfig struct {
	PendingTTL     time.Duration `envconfig:"LOOMLINE_ORDERS_PENDING_TTL" default:"30m"`
	NumberPrefix   string        `envconfig:"LOOMLINE_ORDERS_NUMBER_PREFIX" default:"LL"`
	IdempotencyTTL time.Duration `envconfig:"LOOMLINE_ORDERS_IDEMPOTENCY_TTL" default:"24h"`
}

type CronConfig struct {
	Interval        time.Duration `envconfig:"LOOMLINE_CRON_INTERVAL" default:"5m"`
	OutboxRetention time.Duration `envconfig:"LOOMLINE_CRON_OUTBOX_RETENTION" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"LOOMLINE_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"LOOMLINE_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"LOOMLINE_GCP_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	OrdersTopic        string `envconfig:"LOOMLINE_PUBSUB_ORDERS_TOPIC" default:"loomline-order-events"`
	OrdersSubscription string `envconfig:"LOOMLINE_PUBSUB_ORDERS_SUBSCRIPTION" default:"loomline-order-events-worker"`
	FactsSubscription  string `envconfig:"LOOMLINE_PUBSUB_FACTS_SUBSCRIPTION" default:"loomline-order-events-facts"`
}

type BigQueryConfig struct {
	Dataset         string `envconfig:"LOOMLINE_BIGQUERY_DATASET" default:"loomline"`
	OrderFactsTable string `envconfig:"LOOMLINE_BIGQUERY_ORDER_FACTS_TABLE" default:"order_facts"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"LOOMLINE_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"LOOMLINE_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"LOOMLINE_OUTBOX_MAX_ATTEMPTS" default:"10"`
	ProcessedTTL   time.Duration `envconfig:"LOOMLINE_OUTBOX_PROCESSED_TTL" default:"72h"`
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
