package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"

	"github.com/tumbleweedd/fulfillment_pipeline/internal/queue"
	"github.com/tumbleweedd/fulfillment_pipeline/internal/services/stage"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/brokers/kafka"
	"github.com/tumbleweedd/fulfillment_pipeline/pkg/databases/postgres"
)

type StorageMode string

const (
	StorageAuto StorageMode = "auto"
	StorageMock StorageMode = "mock"
	StorageReal StorageMode = "real"
)

type Backend string

const (
	BackendMock Backend = "mock"
	BackendReal Backend = "real"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Queues    queue.Names     `yaml:"queues"`
	Workers   stage.Delays    `yaml:"workers"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	EventLog  EventLogConfig  `yaml:"event_log"`
}

type HTTPConfig struct {
	Port            int           `yaml:"port" env:"HTTP_PORT" env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout" env-default:"10s"`
	WriteTimeout    time.Duration `yaml:"write_timeout" env-default:"30s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env-default:"10s"`
}

type StorageConfig struct {
	Mode StorageMode `yaml:"mode" env:"STORAGE_MODE" env-default:"auto"`
}

type PostgresConfig struct {
	DSN     string `yaml:"dsn" env:"POSTGRES_DSN"`
	Port    string `yaml:"port" env:"POSTGRES_PORT"`
	Host    string `yaml:"host" env:"POSTGRES_HOST"`
	DbName  string `yaml:"db_name" env:"POSTGRES_DB"`
	User    string `yaml:"user" env:"POSTGRES_USER"`
	Pwd     string `yaml:"password" env:"POSTGRES_PASSWORD"`
	SslMode string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// ConnectionString prefers the explicit DSN. It is empty when nothing
// describes a database.
func (p PostgresConfig) ConnectionString() string {
	if p.DSN != "" {
		return p.DSN
	}
	if p.Host == "" {
		return ""
	}

	return fmt.Sprintf("host=%s port=%s user=%s dbname=%s password=%s sslmode=%s",
		p.Host, p.Port, p.User, p.DbName, p.Pwd, p.SslMode)
}

type KafkaConfig struct {
	Brokers       []string      `yaml:"brokers" env:"KAFKA_BROKERS" env-separator:","`
	ConsumerGroup string        `yaml:"consumer_group" env:"KAFKA_CONSUMER_GROUP" env-default:"fulfillment-pipeline"`
	ClientID      string        `yaml:"client_id" env:"KAFKA_CLIENT_ID" env-default:"fulfillment-pipeline"`
	ReceiveWait   time.Duration `yaml:"receive_wait" env:"KAFKA_RECEIVE_WAIT" env-default:"5s"`
	LockDuration  time.Duration `yaml:"lock_duration" env:"KAFKA_LOCK_DURATION" env-default:"30s"`
}

type SchedulerConfig struct {
	Enabled   bool   `yaml:"enabled" env:"SCHEDULER_ENABLED" env-default:"false"`
	Simulate  bool   `yaml:"simulate" env:"SCHEDULER_SIMULATE" env-default:"true"`
	Generator string `yaml:"generator" env-default:"*/10 * * * * *"`
	Prepare   string `yaml:"prepare" env-default:"*/3 * * * * *"`
	Ship      string `yaml:"ship" env-default:"*/3 * * * * *"`
	Invoice   string `yaml:"invoice" env-default:"*/3 * * * * *"`
}

type EventLogConfig struct {
	TimelineCacheSize int           `yaml:"timeline_cache_size" env-default:"128"`
	TimelineCacheTTL  time.Duration `yaml:"timeline_cache_ttl" env-default:"1m"`
}

// InitConfig loads .env when present, then the YAML file given by -config or
// CONFIG_PATH. Without a file the environment alone is used.
func InitConfig() Config {
	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("failed to load .env: " + err.Error())
	}

	cfg, err := Load(getConfigPath())
	if err != nil {
		panic(err.Error())
	}

	return cfg
}

func Load(path string) (Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return Config{}, fmt.Errorf("config file does not exist: %s", path)
		}
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return Config{}, fmt.Errorf("read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) Validate() error {
	switch c.Storage.Mode {
	case StorageAuto, StorageMock, StorageReal:
	default:
		return fmt.Errorf("unknown storage mode %q", c.Storage.Mode)
	}

	for _, name := range c.Queues.All() {
		if name == "" {
			return errors.New("queue names must not be empty")
		}
	}

	return nil
}

// QueueBackend is decided from the configuration alone. In auto mode the
// broker is used only when its descriptor is well formed; a forced real
// backend with a bad descriptor fails on first use instead.
func (c Config) QueueBackend() Backend {
	return selectBackend(c.Storage.Mode, c.kafkaDescriptorValid())
}

func (c Config) EventLogBackend() Backend {
	return selectBackend(c.Storage.Mode, postgres.ValidateDSN(c.Postgres.ConnectionString()) == nil)
}

func (c Config) UsingMockStorage() bool {
	return c.QueueBackend() == BackendMock || c.EventLogBackend() == BackendMock
}

func (c Config) kafkaDescriptorValid() bool {
	return kafka.ValidateBrokers(c.Kafka.Brokers) == nil && c.Kafka.ConsumerGroup != ""
}

func selectBackend(mode StorageMode, descriptorValid bool) Backend {
	switch mode {
	case StorageMock:
		return BackendMock
	case StorageReal:
		return BackendReal
	default:
		if descriptorValid {
			return BackendReal
		}
		return BackendMock
	}
}

func getConfigPath() string {
	var path string

	flag.StringVar(&path, "config", "", "path to config file")
	flag.Parse()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}

	return path
}
