package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Env                string `envconfig:"ENV" default:"production"`
	ServerPort         int    `envconfig:"SERVER_PORT" default:"8080"`
	RateLimitPerMinute int    `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
	AllowedOrigins     string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173"`
	LogLevel           string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat          string `envconfig:"LOG_FORMAT" default:"json"`

	Database DatabaseConfig
	Auth     AuthConfig
	Storage  StorageConfig
	MQ       MQConfig
}

type DatabaseConfig struct {
	Host     string `envconfig:"DB_HOST" default:"localhost"`
	Port     int    `envconfig:"DB_PORT" default:"5432"`
	User     string `envconfig:"DB_USER" default:"feastro"`
	Password string `envconfig:"DB_PASSWORD" default:"password"`
	DBName   string `envconfig:"DB_NAME" default:"feastro_db"`
	UseSSL   bool   `envconfig:"DB_SSL" default:"false"`

	MaxOpenConns    int           `envconfig:"DB_MAX_OPEN_CONNS" default:"25"`
	MaxIdleConns    int           `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
	ConnMaxLifetime time.Duration `envconfig:"DB_CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `envconfig:"DB_CONN_MAX_IDLE_TIME" default:"2m"`
}

// AuthConfig configures token signing and password hashing.
type AuthConfig struct {
	SecretKey        string `envconfig:"JWT_SECRET"`
	Algorithm        string `envconfig:"JWT_ALGORITHM" default:"HS256"`
	AccessTTLMinutes int    `envconfig:"ACCESS_TOKEN_EXPIRE_MINUTES" default:"30"`
	RefreshTTLDays   int    `envconfig:"REFRESH_TOKEN_EXPIRE_DAYS" default:"7"`
	BcryptCost       int    `envconfig:"BCRYPT_COST" default:"10"`
}

// AccessTTL returns the access token lifetime.
func (a AuthConfig) AccessTTL() time.Duration {
	return time.Duration(a.AccessTTLMinutes) * time.Minute
}

// RefreshTTL returns the refresh token lifetime.
func (a AuthConfig) RefreshTTL() time.Duration {
	return time.Duration(a.RefreshTTLDays) * 24 * time.Hour
}

// StorageConfig selects the object storage backend for video assets.
// Backend is one of "minio", "gcs" or "none".
type StorageConfig struct {
	Backend string `envconfig:"STORAGE_BACKEND" default:"none"`
	CDNURL  string `envconfig:"CDN_URL"`
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string `envconfig:"MINIO_ENDPOINT"`
	AccessKey string `envconfig:"MINIO_ACCESS_KEY"`
	SecretKey string `envconfig:"MINIO_SECRET_KEY"`
	Bucket    string `envconfig:"MINIO_BUCKET" default:"feastro-videos"`
	UseSSL    bool   `envconfig:"MINIO_USE_SSL" default:"false"`

	// PublicRead grants anonymous GET on videos/ so direct URLs can be played.
	PublicRead bool `envconfig:"MINIO_PUBLIC_READ" default:"true"`
}

type GCSConfig struct {
	Bucket          string `envconfig:"GCS_BUCKET" default:"feastro-videos"`
	ProjectID       string `envconfig:"GCS_PROJECT_ID"`
	CredentialsFile string `envconfig:"GCS_CREDENTIALS_FILE"`
}

// MQConfig selects the broker used for engagement events.
// Backend is one of "rabbitmq", "pubsub" or "none".
type MQConfig struct {
	Backend           string `envconfig:"MQ_BACKEND" default:"none"`
	EngagementChannel string `envconfig:"ENGAGEMENT_CHANNEL" default:"engagement-events"`
	RabbitMQ          RabbitMQConfig
	PubSub            PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `envconfig:"RABBITMQ_URL"`
	QueueDurable    bool   `envconfig:"RABBITMQ_QUEUE_DURABLE" default:"true"`
	QueueAutoDelete bool   `envconfig:"RABBITMQ_QUEUE_AUTO_DELETE" default:"false"`
	PrefetchCount   int    `envconfig:"RABBITMQ_PREFETCH" default:"10"`
}

type PubSubConfig struct {
	ProjectID          string `envconfig:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `envconfig:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `envconfig:"PUBSUB_SUBSCRIPTION_SUFFIX" default:"-sub"`
	MaxOutstanding     int    `envconfig:"PUBSUB_MAX_OUTSTANDING" default:"100"`
}

// LoadConfig reads configuration from the environment. In dev mode a local
// .env file is loaded first. A missing JWT secret is a startup error.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		_ = godotenv.Load()
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks settings that have no usable default.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Auth.SecretKey) == "" {
		return errors.New("JWT_SECRET is required")
	}
	if c.Auth.AccessTTLMinutes <= 0 {
		return errors.New("ACCESS_TOKEN_EXPIRE_MINUTES must be positive")
	}
	if c.Auth.RefreshTTLDays <= 0 {
		return errors.New("REFRESH_TOKEN_EXPIRE_DAYS must be positive")
	}
	return nil
}

// IsDev reports whether the process runs in development mode.
func (c Config) IsDev() bool {
	return c.Env == "dev"
}

// Origins splits AllowedOrigins into a list.
func (c Config) Origins() []string {
	var origins []string
	for _, origin := range strings.Split(c.AllowedOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}
