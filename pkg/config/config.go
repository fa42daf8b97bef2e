package config

import (
	"encoding/base64"
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
	Password     PasswordConfig
	RateLimit    RateLimitConfig
	FeatureFlags FeatureFlagsConfig
	Shop         ShopConfig
	Storage      StorageConfig
	GCP          GCPConfig
	GCS          GCSConfig
	Events       EventsConfig
	PubSub       PubSubConfig
	Kafka        KafkaConfig
	Outbox       OutboxConfig
	Maintenance  MaintenanceConfig
	Email        EmailConfig
	Messages     MessagesConfig
	Bootstrap    BootstrapConfig
}

// Load reads the environment into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Storage.Driver {
	case StorageDriverLocal:
	case StorageDriverGCS:
		if strings.TrimSpace(c.GCS.BucketName) == "" {
			return fmt.Errorf("%s is required when storage driver is %s", EnvGCSBucket, StorageDriverGCS)
		}
	default:
		return fmt.Errorf("unsupported storage driver %q", c.Storage.Driver)
	}

	switch c.Events.Broker {
	case EventBrokerNone:
	case EventBrokerKafka:
		if len(c.Kafka.Brokers) == 0 {
			return fmt.Errorf("%s is required when event broker is %s", EnvKafkaBrokers, EventBrokerKafka)
		}
	case EventBrokerPubSub:
		if strings.TrimSpace(c.GCP.ProjectID) == "" {
			return fmt.Errorf("%s is required when event broker is %s", EnvGCPProjectID, EventBrokerPubSub)
		}
	default:
		return fmt.Errorf("unsupported event broker %q", c.Events.Broker)
	}

	if (strings.TrimSpace(c.Bootstrap.SuperuserEmail) == "") != (c.Bootstrap.SuperuserPassword == "") {
		return fmt.Errorf("%s and %s must be set together", EnvBootstrapSuperuserEmail, EnvBootstrapSuperuserPassword)
	}

	if _, err := c.Messages.Key(); err != nil {
		return err
	}
	if c.App.IsProd() && strings.TrimSpace(c.Messages.EncryptionKey) == "" {
		return fmt.Errorf("%s is required in production", EnvMessagesEncryptionKey)
	}
	return nil
}

type AppConfig struct {
	Env          string   `envconfig:"STOREFRONT_APP_ENV" required:"true"`
	Port         string   `envconfig:"STOREFRONT_APP_PORT" required:"true"`
	LogLevel     string   `envconfig:"STOREFRONT_LOG_LEVEL" default:"info"`
	LogWarnStack bool     `envconfig:"STOREFRONT_LOG_WARN_STACK" default:"false"`
	CORSOrigins  []string `envconfig:"STOREFRONT_CORS_ORIGINS" default:"*"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"STOREFRONT_DB_DSN"`
	Driver string `envconfig:"STOREFRONT_DB_DRIVER" default:"postgres"`

	Host     string `envconfig:"STOREFRONT_DB_HOST"`
	Port     int    `envconfig:"STOREFRONT_DB_PORT" default:"5432"`
	User     string `envconfig:"STOREFRONT_DB_USER"`
	Password string `envconfig:"STOREFRONT_DB_PASSWORD"`
	Name     string `envconfig:"STOREFRONT_DB_NAME"`
	SSLMode  string `envconfig:"STOREFRONT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"STOREFRONT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"STOREFRONT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"STOREFRONT_DB_CONN_MAX_IDLE_TIME" default:"10m"`

	// SlowQuery is the duration after which a statement is logged at warn. Zero disables it.
	SlowQuery time.Duration `envconfig:"STOREFRONT_DB_SLOW_QUERY" default:"200ms"`
}

type RedisConfig struct {
	URL          string        `envconfig:"STOREFRONT_REDIS_URL" required:"true"`
	Password     string        `envconfig:"STOREFRONT_REDIS_PASSWORD"`
	DB           int           `envconfig:"STOREFRONT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"STOREFRONT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"STOREFRONT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"STOREFRONT_REDIS_READ_TIMEOUT" default:"3s"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_REDIS_WRITE_TIMEOUT" default:"3s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"STOREFRONT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"STOREFRONT_JWT_ISSUER" default:"storefront"`
	ExpirationMinutes      int    `envconfig:"STOREFRONT_JWT_EXPIRATION_MINUTES" default:"60"`
	RefreshTokenTTLMinutes int    `envconfig:"STOREFRONT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"STOREFRONT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"STOREFRONT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"STOREFRONT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"STOREFRONT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"STOREFRONT_ARGON_KEY_LEN" default:"32"`
	MinLength        int `envconfig:"STOREFRONT_PASSWORD_MIN_LENGTH" default:"8"`
}

type RateLimitConfig struct {
	LoginWindow     time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow  time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterIPLimit int           `envconfig:"STOREFRONT_RATE_LIMIT_REGISTER_IP_LIMIT" default:"10"`
	ContactWindow   time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_CONTACT_WINDOW" default:"10m"`
	ContactIPLimit  int           `envconfig:"STOREFRONT_RATE_LIMIT_CONTACT_IP_LIMIT" default:"3"`
	APIWindow       time.Duration `envconfig:"STOREFRONT_RATE_LIMIT_API_WINDOW" default:"1m"`
	APIUserLimit    int           `envconfig:"STOREFRONT_RATE_LIMIT_API_USER_LIMIT" default:"120"`
	IdempotencyTTL  time.Duration `envconfig:"STOREFRONT_IDEMPOTENCY_TTL" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"STOREFRONT_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"STOREFRONT_AUTO_MIGRATE" default:"false"`
}

// ShopConfig names the shop in outgoing email.
type ShopConfig struct {
	Name string `envconfig:"STOREFRONT_SHOP_NAME" default:"MUX"`
}

type StorageConfig struct {
	Driver        string `envconfig:"STOREFRONT_STORAGE_DRIVER" default:"local"`
	LocalDir      string `envconfig:"STOREFRONT_STORAGE_LOCAL_DIR" default:"./uploads"`
	PublicBaseURL string `envconfig:"STOREFRONT_STORAGE_PUBLIC_BASE_URL" default:"/uploads"`
	MaxUploadMB   int    `envconfig:"STOREFRONT_MAX_UPLOAD_MB" default:"10"`
}

// MaxUploadBytes converts the configured megabyte limit into bytes.
func (s StorageConfig) MaxUploadBytes() int64 {
	if s.MaxUploadMB <= 0 {
		return 10 << 20
	}
	return int64(s.MaxUploadMB) << 20
}

type GCPConfig struct {
	ProjectID              string `envconfig:"STOREFRONT_GCP_PROJECT_ID"`
	CredentialsJSON        string `envconfig:"STOREFRONT_GCP_CREDENTIALS_JSON"`
	ApplicationCredentials string `envconfig:"STOREFRONT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type GCSConfig struct {
	BucketName    string `envconfig:"STOREFRONT_GCS_BUCKET_NAME"`
	PublicBaseURL string `envconfig:"STOREFRONT_GCS_PUBLIC_BASE_URL" default:"https://storage.googleapis.com"`
}

type EventsConfig struct {
	Broker string `envconfig:"STOREFRONT_EVENTS_BROKER" default:"none"`
	Topic  string `envconfig:"STOREFRONT_EVENTS_TOPIC" default:"storefront.orders"`
}

type PubSubConfig struct {
	OrdersTopic string `envconfig:"STOREFRONT_PUBSUB_ORDERS_TOPIC"`
}

type KafkaConfig struct {
	Brokers      []string      `envconfig:"STOREFRONT_KAFKA_BROKERS" default:"localhost:9092"`
	ClientID     string        `envconfig:"STOREFRONT_KAFKA_CLIENT_ID" default:"storefront-outbox"`
	WriteTimeout time.Duration `envconfig:"STOREFRONT_KAFKA_WRITE_TIMEOUT" default:"10s"`
}

type OutboxConfig struct {
	BatchSize      int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int `envconfig:"STOREFRONT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int `envconfig:"STOREFRONT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	// MetricsAddr exposes /metrics for the publisher when set, e.g. ":9102".
	MetricsAddr string `envconfig:"STOREFRONT_OUTBOX_METRICS_ADDR"`
}

type MaintenanceConfig struct {
	Interval            time.Duration `envconfig:"STOREFRONT_MAINTENANCE_INTERVAL" default:"24h"`
	OutboxRetentionDays int           `envconfig:"STOREFRONT_OUTBOX_RETENTION_DAYS" default:"30"`
	DeadLetterScanLimit int           `envconfig:"STOREFRONT_OUTBOX_DEAD_SCAN_LIMIT" default:"100"`
	MetricsAddr         string        `envconfig:"STOREFRONT_MAINTENANCE_METRICS_ADDR"`
}

type EmailConfig struct {
	SendgridAPIKey string `envconfig:"STOREFRONT_SENDGRID_API_KEY"`
	FromEmail      string `envconfig:"STOREFRONT_EMAIL_FROM" default:"no-reply@muxdry.com"`
	FromName       string `envconfig:"STOREFRONT_EMAIL_FROM_NAME" default:"MUX"`
	AdminEmail     string `envconfig:"STOREFRONT_ADMIN_EMAIL" default:"admin@muxdry.com"`
}

// BootstrapConfig names the first superuser. Both fields empty disables the bootstrap.
type BootstrapConfig struct {
	SuperuserEmail    string `envconfig:"STOREFRONT_BOOTSTRAP_SUPERUSER_EMAIL"`
	SuperuserPassword string `envconfig:"STOREFRONT_BOOTSTRAP_SUPERUSER_PASSWORD"`
}

// Enabled reports whether a bootstrap superuser is configured.
func (b BootstrapConfig) Enabled() bool {
	return strings.TrimSpace(b.SuperuserEmail) != "" && b.SuperuserPassword != ""
}

type MessagesConfig struct {
	EncryptionKey string `envconfig:"STOREFRONT_MESSAGES_ENCRYPTION_KEY"`
}

// Key decodes the base64 message encryption key; an empty key disables encryption.
func (m MessagesConfig) Key() ([]byte, error) {
	raw := strings.TrimSpace(m.EncryptionKey)
	if raw == "" {
		return nil, nil
	}
	key, err := base64.StdEncoding.DecodeString(raw)
	if err != nil {
		return nil, fmt.Errorf("%s must be base64: %w", EnvMessagesEncryptionKey, err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("%s must decode to 32 bytes, got %d", EnvMessagesEncryptionKey, len(key))
	}
	return key, nil
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	values := map[string]string{
		EnvDBHost: db.Host,
		EnvDBUser: db.User,
		EnvDBName: db.Name,
	}
	var missing []string
	for _, env := range dbPartEnvVars {
		if values[env] == "" {
			missing = append(missing, env)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
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
