package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMongo    = "mongo"
	StoreMemory   = "memory"
)

// Media providers.
const (
	MediaImageKit = "imagekit"
	MediaMinio    = "minio"
	MediaS3       = "s3"
	MediaGCS      = "gcs"
)

// Message queue backends.
const (
	MQNone     = "none"
	MQRabbitMQ = "rabbitmq"
	MQPubSub   = "pubsub"
)

type Config struct {
	Env          string
	ServerPort   int
	LogLevel     string
	StoreBackend string
	BcryptCost   int
	Database     DatabaseConfig
	Mongo        MongoConfig
	Session      SessionConfig
	Media        MediaConfig
	MQ           MQConfig
	CORS         CORSConfig
}

type DatabaseConfig struct {
	// URL takes precedence over the discrete connection fields.
	URL            string
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	UseSSL         bool
	MigrationsPath string
}

type MongoConfig struct {
	URL      string
	Database string
}

type SessionConfig struct {
	Secret       string
	TTL          time.Duration
	CookieName   string
	SecureCookie bool
}

type MediaConfig struct {
	Provider  string
	UploadTTL time.Duration
	ImageKit  ImageKitConfig
	Minio     MinioConfig
	S3        S3Config
	GCS       GCSConfig
}

type ImageKitConfig struct {
	PublicKey   string
	PrivateKey  string
	URLEndpoint string
}

type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
	Bucket       string
}

type GCSConfig struct {
	Bucket          string
	ProjectID       string
	CredentialsFile string
}

type MQConfig struct {
	Backend  string
	RabbitMQ RabbitMQConfig
	PubSub   PubSubConfig
}

type RabbitMQConfig struct {
	URL             string
	PrefetchCount   int
	QueueDurable    bool
	QueueAutoDelete bool
}

type PubSubConfig struct {
	ProjectID          string
	CredentialsFile    string
	SubscriptionSuffix string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// LoadConfig resolves the configuration from the environment and validates it.
func LoadConfig() (Config, error) {
	if os.Getenv("ENV") == "dev" {
		godotenv.Load()
	}

	cfg := Config{
		Env:          getEnv("ENV", "production"),
		ServerPort:   getEnvInt("SERVER_PORT", 8080),
		LogLevel:     getEnv("LOG_LEVEL", "info"),
		StoreBackend: strings.ToLower(getEnv("STORE_BACKEND", StorePostgres)),
		BcryptCost:   getEnvInt("BCRYPT_COST", 10),
		Database: DatabaseConfig{
			URL:            strings.TrimSpace(os.Getenv("DATABASE_URL")),
			Host:           strings.TrimSpace(os.Getenv("DB_HOST")),
			Port:           getEnvInt("DB_PORT", 5432),
			User:           getEnv("DB_USER", "clipshare"),
			Password:       getEnv("DB_PASSWORD", ""),
			DBName:         getEnv("DB_NAME", "clipshare"),
			UseSSL:         getEnvBool("DB_SSL", false),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "internal/db/migrations"),
		},
		Mongo: MongoConfig{
			URL:      strings.TrimSpace(os.Getenv("MONGODB_URL")),
			Database: getEnv("MONGODB_DATABASE", "clipshare"),
		},
		Session: SessionConfig{
			Secret:       strings.TrimSpace(os.Getenv("JWT_SECRET")),
			TTL:          getEnvDuration("SESSION_TTL", 30*24*time.Hour),
			CookieName:   getEnv("SESSION_COOKIE", "clipshare_session"),
			SecureCookie: getEnvBool("SECURE_COOKIE", true),
		},
		Media: MediaConfig{
			Provider:  strings.ToLower(getEnv("MEDIA_PROVIDER", MediaImageKit)),
			UploadTTL: getEnvDuration("MEDIA_UPLOAD_TTL", 30*time.Minute),
			ImageKit: ImageKitConfig{
				PublicKey:   os.Getenv("IMAGEKIT_PUBLIC_KEY"),
				PrivateKey:  os.Getenv("IMAGEKIT_PRIVATE_KEY"),
				URLEndpoint: os.Getenv("IMAGEKIT_URL_ENDPOINT"),
			},
			Minio: MinioConfig{
				Endpoint:  os.Getenv("MINIO_ENDPOINT"),
				AccessKey: os.Getenv("MINIO_ACCESS_KEY"),
				SecretKey: os.Getenv("MINIO_SECRET_KEY"),
				Bucket:    getEnv("MINIO_BUCKET", "clipshare-media"),
				UseSSL:    getEnvBool("MINIO_USE_SSL", false),
			},
			S3: S3Config{
				Region:       getEnv("S3_REGION", "us-east-1"),
				BaseEndpoint: os.Getenv("S3_BASE_ENDPOINT"),
				AccessKey:    os.Getenv("S3_ACCESS_KEY"),
				SecretKey:    os.Getenv("S3_SECRET_KEY"),
				Bucket:       os.Getenv("S3_BUCKET"),
			},
			GCS: GCSConfig{
				Bucket:          os.Getenv("GCS_BUCKET"),
				ProjectID:       os.Getenv("GCS_PROJECT_ID"),
				CredentialsFile: os.Getenv("GCS_CREDENTIALS_FILE"),
			},
		},
		MQ: MQConfig{
			Backend: strings.ToLower(getEnv("MQ_BACKEND", MQNone)),
			RabbitMQ: RabbitMQConfig{
				URL:             os.Getenv("RABBITMQ_URL"),
				PrefetchCount:   getEnvInt("RABBITMQ_PREFETCH", 10),
				QueueDurable:    getEnvBool("RABBITMQ_QUEUE_DURABLE", true),
				QueueAutoDelete: getEnvBool("RABBITMQ_QUEUE_AUTO_DELETE", false),
			},
			PubSub: PubSubConfig{
				ProjectID:          os.Getenv("PUBSUB_PROJECT_ID"),
				CredentialsFile:    os.Getenv("PUBSUB_CREDENTIALS_FILE"),
				SubscriptionSuffix: getEnv("PUBSUB_SUBSCRIPTION_SUFFIX", "-sub"),
			},
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every missing or invalid setting at once.
func (c Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case StorePostgres:
		if c.Database.URL == "" && c.Database.Host == "" {
			errs = append(errs, errors.New("DATABASE_URL (or DB_HOST) is required"))
		}
	case StoreMongo:
		if c.Mongo.URL == "" {
			errs = append(errs, errors.New("MONGODB_URL is required"))
		}
	case StoreMemory:
		if c.Env != "dev" && c.Env != "test" {
			errs = append(errs, errors.New("memory store is only allowed when ENV is dev or test"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	if c.Session.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Session.TTL <= 0 {
		errs = append(errs, errors.New("SESSION_TTL must be positive"))
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		errs = append(errs, fmt.Errorf("BCRYPT_COST %d out of range", c.BcryptCost))
	}

	switch c.Media.Provider {
	case MediaImageKit:
		if c.Media.ImageKit.PublicKey == "" || c.Media.ImageKit.PrivateKey == "" || c.Media.ImageKit.URLEndpoint == "" {
			errs = append(errs, errors.New("IMAGEKIT_PUBLIC_KEY, IMAGEKIT_PRIVATE_KEY and IMAGEKIT_URL_ENDPOINT are required"))
		}
	case MediaMinio:
		if c.Media.Minio.Endpoint == "" || c.Media.Minio.AccessKey == "" || c.Media.Minio.SecretKey == "" {
			errs = append(errs, errors.New("MINIO_ENDPOINT, MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required"))
		}
	case MediaS3:
		if c.Media.S3.Bucket == "" || c.Media.S3.AccessKey == "" || c.Media.S3.SecretKey == "" {
			errs = append(errs, errors.New("S3_BUCKET, S3_ACCESS_KEY and S3_SECRET_KEY are required"))
		}
	case MediaGCS:
		if c.Media.GCS.Bucket == "" {
			errs = append(errs, errors.New("GCS_BUCKET is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MEDIA_PROVIDER %q", c.Media.Provider))
	}

	switch c.MQ.Backend {
	case MQNone:
	case MQRabbitMQ:
		if c.MQ.RabbitMQ.URL == "" {
			errs = append(errs, errors.New("RABBITMQ_URL is required"))
		}
	case MQPubSub:
		if c.MQ.PubSub.ProjectID == "" {
			errs = append(errs, errors.New("PUBSUB_PROJECT_ID is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown MQ_BACKEND %q", c.MQ.Backend))
	}

	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.Atoi(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := strconv.ParseBool(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if valueStr, exists := os.LookupEnv(key); exists {
		value, err := time.ParseDuration(strings.TrimSpace(valueStr))
		if err != nil {
			return defaultValue
		}
		return value
	}
	return defaultValue
}

func getEnvList(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if value := strings.TrimSpace(part); value != "" {
			values = append(values, value)
		}
	}
	return values
}
