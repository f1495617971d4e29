package config

import (
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all process configuration. It is loaded once at start
// and treated as read-only for the process lifetime.
type Config struct {
	ServerPort    int    `env:"SERVER_PORT" envDefault:"8080"`
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080" validate:"url"`
	LogLevel      string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	Database DatabaseConfig
	JWT      JWTConfig
	MQ       MQConfig
	Storage  StorageConfig
}

type DatabaseConfig struct {
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     int    `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"linklytics"`
	Password string `env:"DB_PASSWORD" envDefault:"password"`
	DBName   string `env:"DB_NAME" envDefault:"linklytics_db"`
	UseSSL   bool   `env:"DB_USE_SSL" envDefault:"false"`
}

// JWTConfig carries the token signing secret and the two expiry
// horizons. The secret has no default on purpose.
type JWTConfig struct {
	Secret     string        `env:"JWT_SECRET" validate:"required"`
	AccessTTL  time.Duration `env:"JWT_ACCESS_TTL" envDefault:"15m" validate:"gt=0"`
	RefreshTTL time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h" validate:"gt=0"`
}

// MQConfig selects and configures the message-queue backend used to
// publish click events. Backend "none" disables publishing.
type MQConfig struct {
	Backend  string `env:"MQ_BACKEND" envDefault:"none" validate:"oneof=none rabbitmq pubsub"`
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string `env:"RABBITMQ_URL"`
	QueueDurable    bool   `env:"RABBITMQ_QUEUE_DURABLE" envDefault:"true"`
	QueueAutoDelete bool   `env:"RABBITMQ_QUEUE_AUTO_DELETE" envDefault:"false"`
	PrefetchCount   int    `env:"RABBITMQ_PREFETCH_COUNT" envDefault:"0"`
}

type PubSubConfig struct {
	ProjectID          string `env:"PUBSUB_PROJECT_ID"`
	CredentialsFile    string `env:"PUBSUB_CREDENTIALS_FILE"`
	SubscriptionSuffix string `env:"PUBSUB_SUBSCRIPTION_SUFFIX" envDefault:"-sub"`
}

// StorageConfig selects and configures the object-storage backend used
// for analytics exports. Backend "none" disables the export endpoint.
type StorageConfig struct {
	Backend string `env:"STORAGE_BACKEND" envDefault:"none" validate:"oneof=none minio gcs"`
	Minio   MinioConfig
	GCS     GCSConfig
}

type MinioConfig struct {
	Endpoint  string `env:"MINIO_ENDPOINT"`
	AccessKey string `env:"MINIO_ACCESS_KEY"`
	SecretKey string `env:"MINIO_SECRET_KEY"`
	Bucket    string `env:"MINIO_BUCKET"`
	UseSSL    bool   `env:"MINIO_USE_SSL" envDefault:"false"`
}

type GCSConfig struct {
	Bucket          string `env:"GCS_BUCKET"`
	ProjectID       string `env:"GCS_PROJECT_ID"`
	CredentialsFile string `env:"GCS_CREDENTIALS_FILE"`
}

// Load parses configuration from the environment. In dev mode a .env
// file is loaded first so local overrides do not need to be exported.
func Load() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}
