// Package config loads process configuration from the environment, with an
// optional .env file.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTPAddr  string
	JWTSecret string

	Postgres     PostgresConfig
	Redis        RedisConfig
	Kafka        KafkaConfig
	MinIO        MinIOConfig
	Scheduler    SchedulerConfig
	Notification NotificationConfig
}

type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

type RedisConfig struct {
	// Addr is empty when the in-memory cache should be used.
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

type KafkaConfig struct {
	// Brokers is empty when notifications should only be logged.
	Brokers []string
	Topic   string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

type SchedulerConfig struct {
	StatusSpec     string
	ReminderSpec   string
	TrailingWindow time.Duration
	ReminderLead   time.Duration
	ReminderWidth  time.Duration
	Concurrency    int
}

type NotificationConfig struct {
	QueueSize int
}

// Load reads .env when present and then the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return FromViper(newViper())
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("JWT_SECRET", "")

	v.SetDefault("POSTGRES_HOST", "localhost")
	v.SetDefault("POSTGRES_PORT", "5432")
	v.SetDefault("POSTGRES_USER", "postgres")
	v.SetDefault("POSTGRES_PASSWORD", "postgres")
	v.SetDefault("POSTGRES_DB", "poll")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "pollcore:cache:")

	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("KAFKA_TOPIC", "poll-notifications")

	v.SetDefault("MINIO_ENDPOINT", "localhost:9000")
	v.SetDefault("MINIO_ACCESS_KEY", "minioadmin")
	v.SetDefault("MINIO_SECRET_KEY", "minioadmin")
	v.SetDefault("MINIO_BUCKET", "poll-pictures")
	v.SetDefault("MINIO_USE_SSL", false)
	v.SetDefault("MINIO_PUBLIC_URL", "")

	v.SetDefault("SCHEDULER_STATUS_SPEC", "@every 5m")
	v.SetDefault("SCHEDULER_REMINDER_SPEC", "@every 5m")
	v.SetDefault("SCHEDULER_TRAILING_WINDOW", "6m")
	v.SetDefault("SCHEDULER_REMINDER_LEAD", "10m")
	v.SetDefault("SCHEDULER_REMINDER_WIDTH", "5m")
	v.SetDefault("SCHEDULER_CONCURRENCY", 4)

	v.SetDefault("NOTIFICATION_QUEUE_SIZE", 256)
	return v
}

// FromViper builds the configuration from an already populated viper
// instance.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		HTTPAddr:  v.GetString("HTTP_ADDR"),
		JWTSecret: v.GetString("JWT_SECRET"),
		Postgres: PostgresConfig{
			Host:     v.GetString("POSTGRES_HOST"),
			Port:     v.GetString("POSTGRES_PORT"),
			User:     v.GetString("POSTGRES_USER"),
			Password: v.GetString("POSTGRES_PASSWORD"),
			DB:       v.GetString("POSTGRES_DB"),
		},
		Redis: RedisConfig{
			Addr:      v.GetString("REDIS_ADDR"),
			Password:  v.GetString("REDIS_PASSWORD"),
			DB:        v.GetInt("REDIS_DB"),
			KeyPrefix: v.GetString("REDIS_KEY_PREFIX"),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(v.GetString("KAFKA_BROKERS")),
			Topic:   v.GetString("KAFKA_TOPIC"),
		},
		MinIO: MinIOConfig{
			Endpoint:  v.GetString("MINIO_ENDPOINT"),
			AccessKey: v.GetString("MINIO_ACCESS_KEY"),
			SecretKey: v.GetString("MINIO_SECRET_KEY"),
			Bucket:    v.GetString("MINIO_BUCKET"),
			UseSSL:    v.GetBool("MINIO_USE_SSL"),
			PublicURL: v.GetString("MINIO_PUBLIC_URL"),
		},
		Scheduler: SchedulerConfig{
			StatusSpec:     v.GetString("SCHEDULER_STATUS_SPEC"),
			ReminderSpec:   v.GetString("SCHEDULER_REMINDER_SPEC"),
			TrailingWindow: v.GetDuration("SCHEDULER_TRAILING_WINDOW"),
			ReminderLead:   v.GetDuration("SCHEDULER_REMINDER_LEAD"),
			ReminderWidth:  v.GetDuration("SCHEDULER_REMINDER_WIDTH"),
			Concurrency:    v.GetInt("SCHEDULER_CONCURRENCY"),
		},
		Notification: NotificationConfig{
			QueueSize: v.GetInt("NOTIFICATION_QUEUE_SIZE"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Scheduler.TrailingWindow <= 0 {
		return fmt.Errorf("SCHEDULER_TRAILING_WINDOW must be positive")
	}
	if c.Scheduler.ReminderWidth <= 0 {
		return fmt.Errorf("SCHEDULER_REMINDER_WIDTH must be positive")
	}
	if c.Notification.QueueSize <= 0 {
		return fmt.Errorf("NOTIFICATION_QUEUE_SIZE must be positive")
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
