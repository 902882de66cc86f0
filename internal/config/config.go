package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Config struct {
	Server    Server
	Postgres  Postgres
	Redis     Redis
	Auth      Auth
	Storage   Storage
	Push      Push
	Logger    LoggerMode
	Retention Retention
	Limits    Limits
	Asynq     Asynq
}

type Server struct {
	Addr        string
	Environment string
}

type Postgres struct {
	DSN      string
	MaxConns int32
	Migrate  bool
}

type Redis struct {
	URL string
}

type Auth struct {
	JWTSecret  string
	AdminToken string
}

type Storage struct {
	Dir        string
	PublicURL  string
	SigningKey string
	UploadTTL  time.Duration
}

type Push struct {
	WebhookURL string
	MaxRetries uint64
}

type LoggerMode struct {
	Level  string
	Format string
}

type Retention struct {
	ImageRetention time.Duration
	ArchiveAfter   time.Duration
	BatchSize      int
	ArchiveCron    string
	CleanupCron    string
}

type Limits struct {
	MessagesPerHour      int
	ConversationsPerHour int
	SearchesPerHour      int
}

type Asynq struct {
	Concurrency int
	Queues      string
}

var (
	ErrMissingDSN      = errors.New("config: DB_URL is required")
	ErrMissingRedisURL = errors.New("config: REDIS_URL is required")
	ErrMissingSecret   = errors.New("config: JWT_SECRET is required")
)

// Load reads .env (when present) and the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.WithError(err).Debug("no .env file loaded, using environment")
	}
	return ParseConfig(NewViper())
}

// NewViper returns a viper instance bound to the environment with defaults applied.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 8)
	v.SetDefault("DB_MIGRATE", true)
	v.SetDefault("STORAGE_DIR", "./data/uploads")
	v.SetDefault("STORAGE_PUBLIC_URL", "http://localhost:8080")
	v.SetDefault("STORAGE_UPLOAD_TTL", "15m")
	v.SetDefault("PUSH_MAX_RETRIES", 3)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("IMAGE_RETENTION", "720h")
	v.SetDefault("ARCHIVE_AFTER", "2160h")
	v.SetDefault("ARCHIVE_BATCH_SIZE", 500)
	v.SetDefault("ARCHIVE_CRON", "0 3 * * *")
	v.SetDefault("CLEANUP_CRON", "30 4 * * *")
	v.SetDefault("RATE_MESSAGES_PER_HOUR", 100)
	v.SetDefault("RATE_CONVERSATIONS_PER_HOUR", 20)
	v.SetDefault("RATE_SEARCHES_PER_HOUR", 60)
	v.SetDefault("ASYNQ_CONCURRENCY", 10)
	v.SetDefault("ASYNQ_QUEUES", "default=1,chat=2,maintenance=1")
	return v
}

func ParseConfig(v *viper.Viper) (*Config, error) {
	c := Config{
		Server: Server{
			Addr:        v.GetString("HTTP_ADDR"),
			Environment: v.GetString("APP_ENV"),
		},
		Postgres: Postgres{
			DSN:      strings.TrimSpace(v.GetString("DB_URL")),
			MaxConns: v.GetInt32("DB_MAX_CONNS"),
			Migrate:  v.GetBool("DB_MIGRATE"),
		},
		Redis: Redis{URL: strings.TrimSpace(v.GetString("REDIS_URL"))},
		Auth: Auth{
			JWTSecret:  v.GetString("JWT_SECRET"),
			AdminToken: v.GetString("ADMIN_TOKEN"),
		},
		Storage: Storage{
			Dir:        v.GetString("STORAGE_DIR"),
			PublicURL:  strings.TrimRight(v.GetString("STORAGE_PUBLIC_URL"), "/"),
			SigningKey: v.GetString("STORAGE_SIGNING_KEY"),
			UploadTTL:  v.GetDuration("STORAGE_UPLOAD_TTL"),
		},
		Push: Push{
			WebhookURL: v.GetString("PUSH_WEBHOOK_URL"),
			MaxRetries: v.GetUint64("PUSH_MAX_RETRIES"),
		},
		Logger: LoggerMode{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Retention: Retention{
			ImageRetention: v.GetDuration("IMAGE_RETENTION"),
			ArchiveAfter:   v.GetDuration("ARCHIVE_AFTER"),
			BatchSize:      v.GetInt("ARCHIVE_BATCH_SIZE"),
			ArchiveCron:    v.GetString("ARCHIVE_CRON"),
			CleanupCron:    v.GetString("CLEANUP_CRON"),
		},
		Limits: Limits{
			MessagesPerHour:      v.GetInt("RATE_MESSAGES_PER_HOUR"),
			ConversationsPerHour: v.GetInt("RATE_CONVERSATIONS_PER_HOUR"),
			SearchesPerHour:      v.GetInt("RATE_SEARCHES_PER_HOUR"),
		},
		Asynq: Asynq{
			Concurrency: v.GetInt("ASYNQ_CONCURRENCY"),
			Queues:      v.GetString("ASYNQ_QUEUES"),
		},
	}

	if c.Postgres.DSN == "" {
		return nil, ErrMissingDSN
	}
	if c.Redis.URL == "" {
		return nil, ErrMissingRedisURL
	}
	if c.Auth.JWTSecret == "" {
		return nil, ErrMissingSecret
	}
	if c.Storage.SigningKey == "" {
		c.Storage.SigningKey = c.Auth.JWTSecret
	}
	if c.Retention.BatchSize <= 0 {
		return nil, fmt.Errorf("config: ARCHIVE_BATCH_SIZE must be positive, got %d", c.Retention.BatchSize)
	}
	return &c, nil
}
