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
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	RateLimit     RateLimitConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GoogleMaps    GoogleMapsConfig
	GCP           GCPConfig
	GCS           GCSConfig
	PubSub        PubSubConfig
	BigQuery      BigQueryConfig
	Outbox        OutboxConfig
	Rewards       RewardsConfig
	Notifications NotificationsConfig
	Requests      RequestsConfig
	Cron          CronConfig
	Tracing       TracingConfig
	CORS          CORSConfig
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
	Env          string `envconfig:"PARTSMARKET_APP_ENV" required:"true"`
	Port         string `envconfig:"PARTSMARKET_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"PARTSMARKET_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"PARTSMARKET_LOG_WARN_STACK" default:"false"`
	LogFormat    string `envconfig:"PARTSMARKET_LOG_FORMAT" default:"json"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"PARTSMARKET_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"PARTSMARKET_DB_DSN"`
	Driver string `envconfig:"PARTSMARKET_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"PARTSMARKET_DB_HOST"`
	LegacyPort     int    `envconfig:"PARTSMARKET_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"PARTSMARKET_DB_USER"`
	LegacyPassword string `envconfig:"PARTSMARKET_DB_PASSWORD"`
	LegacyName     string `envconfig:"PARTSMARKET_DB_NAME"`
	LegacySSLMode  string `envconfig:"PARTSMARKET_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"PARTSMARKET_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"PARTSMARKET_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"PARTSMARKET_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"PARTSMARKET_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	SlowQueryThreshold time.Duration `envconfig:"PARTSMARKET_DB_SLOW_QUERY_THRESHOLD" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"PARTSMARKET_REDIS_URL" required:"true"`
	Address      string        `envconfig:"PARTSMARKET_REDIS_ADDR"`
	Password     string        `envconfig:"PARTSMARKET_REDIS_PASSWORD"`
	DB           int           `envconfig:"PARTSMARKET_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"PARTSMARKET_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"PARTSMARKET_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"PARTSMARKET_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"PARTSMARKET_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"PARTSMARKET_REDIS_WRITE_TIMEOUT" default:"5s"`
	KeyPrefix    string        `envconfig:"PARTSMARKET_REDIS_KEY_PREFIX" default:"pm"`
}

// JWTConfig holds the verification settings for access tokens minted by the identity service.
type JWTConfig struct {
	Secret            string `envconfig:"PARTSMARKET_JWT_SECRET" required:"true"`
	Issuer            string `envconfig:"PARTSMARKET_JWT_ISSUER" required:"true"`
	ExpirationMinutes int    `envconfig:"PARTSMARKET_JWT_EXPIRATION_MINUTES" default:"60"`
	// Leeway absorbs clock skew between the identity service and API replicas.
	Leeway time.Duration `envconfig:"PARTSMARKET_JWT_LEEWAY" default:"30s"`
}

// Expiration returns the access token lifetime.
func (j JWTConfig) Expiration() time.Duration {
	if j.ExpirationMinutes <= 0 {
		return time.Hour
	}
	return time.Duration(j.ExpirationMinutes) * time.Minute
}

// RateLimitConfig tunes the per-user token bucket applied to mutating routes.
type RateLimitConfig struct {
	Enabled      bool          `envconfig:"PARTSMARKET_RATE_LIMIT_ENABLED" default:"true"`
	RequestsPerS float64       `envconfig:"PARTSMARKET_RATE_LIMIT_RPS" default:"5"`
	Burst        int           `envconfig:"PARTSMARKET_RATE_LIMIT_BURST" default:"20"`
	IdleEviction time.Duration `envconfig:"PARTSMARKET_RATE_LIMIT_IDLE_EVICTION" default:"10m"`
}

type FeatureFlagsConfig struct {
	AutoMigrate bool `envconfig:"PARTSMARKET_AUTO_MIGRATE" default:"false"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"PARTSMARKET_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
	HTTPIdempotencyTTL   time.Duration `envconfig:"PARTSMARKET_HTTP_IDEMPOTENCY_TTL" default:"24h"`
	WorkerHeartbeat      time.Duration `envconfig:"PARTSMARKET_WORKER_HEARTBEAT" default:"1m"`
}

type GoogleMapsConfig struct {
	APIKey      string   `envconfig:"PARTSMARKET_GOOGLE_MAPS_API_KEY"`
	RegionCodes []string `envconfig:"PARTSMARKET_GOOGLE_MAPS_REGION_CODES"`
	Language    string   `envconfig:"PARTSMARKET_GOOGLE_MAPS_LANGUAGE" default:"en"`
	RPS         float64  `envconfig:"PARTSMARKET_GOOGLE_MAPS_RPS" default:"10"`
	Burst       int      `envconfig:"PARTSMARKET_GOOGLE_MAPS_BURST" default:"20"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"PARTSMARKET_GCP_PROJECT_ID" required:"true"`
	CredentialsJSON        string `envconfig:"PARTSMARKET_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"PARTSMARKET_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName        string        `envconfig:"PARTSMARKET_GCS_BUCKET_NAME" required:"true"`
	DownloadURLExpiry time.Duration `envconfig:"PARTSMARKET_GCS_DOWNLOAD_URL_EXPIRY" default:"1h"`
	MaxUploadMB       int           `envconfig:"PARTSMARKET_GCS_MAX_UPLOAD_MB" default:"25"`
	DailyUploadQuota  int64         `envconfig:"PARTSMARKET_GCS_DAILY_UPLOAD_QUOTA" default:"200"`
}

type PubSubConfig struct {
	DomainTopic           string `envconfig:"PARTSMARKET_PUBSUB_DOMAIN_TOPIC" required:"true"`
	DomainSubscription    string `envconfig:"PARTSMARKET_PUBSUB_DOMAIN_SUBSCRIPTION" required:"true"`
	NotificationPushTopic string `envconfig:"PARTSMARKET_PUBSUB_NOTIFICATION_PUSH_TOPIC"`
}

type BigQueryConfig struct {
	Dataset      string `envconfig:"PARTSMARKET_BIGQUERY_DATASET" default:"partsmarket"`
	RewardsTable string `envconfig:"PARTSMARKET_BIGQUERY_REWARDS_TABLE" default:"rewards"`
	// CreateTables provisions missing tables from the row schemas instead of failing startup.
	CreateTables bool `envconfig:"PARTSMARKET_BIGQUERY_CREATE_TABLES" default:"false"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"PARTSMARKET_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"PARTSMARKET_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"PARTSMARKET_OUTBOX_MAX_ATTEMPTS" default:"10"`
	PublishTimeout time.Duration `envconfig:"PARTSMARKET_OUTBOX_PUBLISH_TIMEOUT" default:"15s"`
}

// RewardsConfig carries the commission fallback used when an organization has no explicit rate.
type RewardsConfig struct {
	DefaultCommissionPercent string `envconfig:"PARTSMARKET_REWARD_DEFAULT_COMMISSION_PERCENT" default:"10"`
	ExportBatchSize          int    `envconfig:"PARTSMARKET_REWARD_EXPORT_BATCH_SIZE" default:"200"`
}

type NotificationsConfig struct {
	RetentionDays int `envconfig:"PARTSMARKET_NOTIFICATION_RETENTION_DAYS" default:"90"`
}

// RequestsConfig bounds how long an unanswered order request stays open.
type RequestsConfig struct {
	StaleAfterDays int `envconfig:"PARTSMARKET_REQUEST_STALE_AFTER_DAYS" default:"30"`
}

// CronConfig sets the worker tick and how often each maintenance job runs.
type CronConfig struct {
	Tick                     time.Duration `envconfig:"PARTSMARKET_CRON_TICK" default:"1m"`
	LockTTL                  time.Duration `envconfig:"PARTSMARKET_CRON_LOCK_TTL" default:"30m"`
	RequestTTLEvery          time.Duration `envconfig:"PARTSMARKET_CRON_REQUEST_TTL_EVERY" default:"15m"`
	RewardExportEvery        time.Duration `envconfig:"PARTSMARKET_CRON_REWARD_EXPORT_EVERY" default:"1h"`
	NotificationCleanupEvery time.Duration `envconfig:"PARTSMARKET_CRON_NOTIFICATION_CLEANUP_EVERY" default:"24h"`
	OutboxRetentionEvery     time.Duration `envconfig:"PARTSMARKET_CRON_OUTBOX_RETENTION_EVERY" default:"24h"`
}

type CORSConfig struct {
	AllowedOrigins []string      `envconfig:"PARTSMARKET_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000,https://partsmarket.app,https://admin.partsmarket.app"`
	MaxAge         time.Duration `envconfig:"PARTSMARKET_CORS_MAX_AGE" default:"5m"`
}

type TracingConfig struct {
	Enabled      bool    `envconfig:"PARTSMARKET_TRACING_ENABLED" default:"false"`
	OTLPEndpoint string  `envconfig:"PARTSMARKET_OTEL_EXPORTER_OTLP_ENDPOINT"`
	Insecure     bool    `envconfig:"PARTSMARKET_OTEL_EXPORTER_OTLP_INSECURE" default:"true"`
	SampleRatio  float64 `envconfig:"PARTSMARKET_OTEL_SAMPLE_RATIO" default:"1"`
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
