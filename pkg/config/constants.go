package config

const (
	EnvPrefix = "PARTSMARKET"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv = "PARTSMARKET_APP_ENV"
	EnvPort   = "PARTSMARKET_APP_PORT"

	EnvDBDSN  = "PARTSMARKET_DB_DSN"
	EnvDBHost = "PARTSMARKET_DB_HOST"
	EnvDBUser = "PARTSMARKET_DB_USER"
	EnvDBName = "PARTSMARKET_DB_NAME"

	EnvRedisURL = "PARTSMARKET_REDIS_URL"

	EnvJWTSecret = "PARTSMARKET_JWT_SECRET"
	EnvJWTIssuer = "PARTSMARKET_JWT_ISSUER"

	EnvGCPProjectID = "PARTSMARKET_GCP_PROJECT_ID"
	EnvGCSBucket    = "PARTSMARKET_GCS_BUCKET_NAME"

	EnvPubSubDomainTopic = "PARTSMARKET_PUBSUB_DOMAIN_TOPIC"
	EnvPubSubDomainSub   = "PARTSMARKET_PUBSUB_DOMAIN_SUBSCRIPTION"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
