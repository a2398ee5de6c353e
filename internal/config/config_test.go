package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackendSelection(t *testing.T) {
	validKafka := KafkaConfig{Brokers: []string{"kafka:9092"}, ConsumerGroup: "pipeline"}
	validPostgres := PostgresConfig{DSN: "postgres://pipeline:pipeline@db:5432/pipeline?sslmode=disable"}

	tCases := []struct {
		name        string
		cfg         Config
		wantQueue   Backend
		wantLog     Backend
		wantUseMock bool
	}{
		{
			name:        "auto without descriptors",
			cfg:         Config{Storage: StorageConfig{Mode: StorageAuto}},
			wantQueue:   BackendMock,
			wantLog:     BackendMock,
			wantUseMock: true,
		},
		{
			name:      "auto with valid descriptors",
			cfg:       Config{Storage: StorageConfig{Mode: StorageAuto}, Kafka: validKafka, Postgres: validPostgres},
			wantQueue: BackendReal,
			wantLog:   BackendReal,
		},
		{
			name: "auto with malformed broker list",
			cfg: Config{
				Storage:  StorageConfig{Mode: StorageAuto},
				Kafka:    KafkaConfig{Brokers: []string{"kafka"}, ConsumerGroup: "pipeline"},
				Postgres: validPostgres,
			},
			wantQueue:   BackendMock,
			wantLog:     BackendReal,
			wantUseMock: true,
		},
		{
			name:        "mock forced",
			cfg:         Config{Storage: StorageConfig{Mode: StorageMock}, Kafka: validKafka, Postgres: validPostgres},
			wantQueue:   BackendMock,
			wantLog:     BackendMock,
			wantUseMock: true,
		},
		{
			name:      "real forced with bad descriptors",
			cfg:       Config{Storage: StorageConfig{Mode: StorageReal}, Postgres: PostgresConfig{DSN: "mysql://x"}},
			wantQueue: BackendReal,
			wantLog:   BackendReal,
		},
		{
			name: "key value postgres descriptor",
			cfg: Config{
				Storage:  StorageConfig{Mode: StorageAuto},
				Postgres: PostgresConfig{Host: "db", Port: "5432", User: "u", DbName: "d", Pwd: "p", SslMode: "disable"},
			},
			wantQueue:   BackendMock,
			wantLog:     BackendReal,
			wantUseMock: true,
		},
	}

	for _, tCase := range tCases {
		t.Run(tCase.name, func(t *testing.T) {
			require.Equal(t, tCase.wantQueue, tCase.cfg.QueueBackend())
			require.Equal(t, tCase.wantLog, tCase.cfg.EventLogBackend())
			require.Equal(t, tCase.wantUseMock, tCase.cfg.UsingMockStorage())
		})
	}
}

func TestLoad_YAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
env: dev
http:
  port: 9090
storage:
  mode: mock
kafka:
  brokers: ["kafka:9092"]
  receive_wait: 2s
queues:
  orders: o
  prepared: p
  shipped: s
workers:
  prepare:
    min: 100ms
    max: 200ms
`), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	require.Equal(t, "dev", cfg.Env)
	require.Equal(t, 9090, cfg.HTTP.Port)
	require.Equal(t, StorageMock, cfg.Storage.Mode)
	require.Equal(t, []string{"kafka:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, 2*time.Second, cfg.Kafka.ReceiveWait)
	require.Equal(t, 30*time.Second, cfg.Kafka.LockDuration)
	require.Equal(t, []string{"o", "p", "s"}, cfg.Queues.All())
	require.Equal(t, 100*time.Millisecond, cfg.Workers.Prepare.Min)
	require.Equal(t, 200*time.Millisecond, cfg.Workers.Prepare.Max)
	require.Equal(t, 5*time.Second, cfg.Workers.Ship.Max)
}

func TestLoad_Environment(t *testing.T) {
	t.Setenv("STORAGE_MODE", "auto")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")
	t.Setenv("ORDERS_QUEUE_NAME", "incoming")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "local", cfg.Env)
	require.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "incoming", cfg.Queues.Orders)
	require.Equal(t, "prepared-orders-queue", cfg.Queues.Prepared)
	require.Equal(t, BackendReal, cfg.QueueBackend())
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)

	t.Setenv("STORAGE_MODE", "cloud")
	_, err = Load("")
	require.Error(t, err)
}
