package config

const EnvPrefix = "STOREFRONT"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	StorageDriverLocal = "local"
	StorageDriverGCS   = "gcs"

	EventBrokerNone   = "none"
	EventBrokerKafka  = "kafka"
	EventBrokerPubSub = "pubsub"
)

const (
	EnvAppEnv                 = "STOREFRONT_APP_ENV"
	EnvPort                   = "STOREFRONT_APP_PORT"
	EnvDBDSN                  = "STOREFRONT_DB_DSN"
	EnvDBHost                 = "STOREFRONT_DB_HOST"
	EnvDBUser                 = "STOREFRONT_DB_USER"
	EnvDBName                 = "STOREFRONT_DB_NAME"
	EnvRedisURL               = "STOREFRONT_REDIS_URL"
	EnvJWTSecret              = "STOREFRONT_JWT_SECRET"
	EnvStorageDriver          = "STOREFRONT_STORAGE_DRIVER"
	EnvGCPProjectID           = "STOREFRONT_GCP_PROJECT_ID"
	EnvGCSBucket              = "STOREFRONT_GCS_BUCKET_NAME"
	EnvEventsBroker           = "STOREFRONT_EVENTS_BROKER"
	EnvKafkaBrokers           = "STOREFRONT_KAFKA_BROKERS"
	EnvMessagesEncryptionKey  = "STOREFRONT_MESSAGES_ENCRYPTION_KEY"
	EnvRefreshTokenTTLMinutes = "STOREFRONT_REFRESH_TOKEN_TTL_MINUTES"

	EnvBootstrapSuperuserEmail    = "STOREFRONT_BOOTSTRAP_SUPERUSER_EMAIL"
	EnvBootstrapSuperuserPassword = "STOREFRONT_BOOTSTRAP_SUPERUSER_PASSWORD"
)

var dbPartEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
