package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"
)

const (
	storePGXPool = "pgx.pool"
	storeSQLDB   = "sql.db"
	storeSQLXDB  = "sqlx.db"
	storeSQLite  = "sqlite"
	storeMemory  = "memory"

	defaultAddr            = ":8080"
	defaultStore           = storeSQLite
	defaultSQLitePath      = "ledger.db"
	defaultKafkaTopic      = "ledger.movement-posted"
	defaultShutdownTimeout = 15 * time.Second

	serviceName    = "ledger-server"
	serviceVersion = "1.0.0"
)

var (
	ErrUnknownStore            = errors.New("unknown store")
	ErrMissingPostgresDSN      = errors.New("postgres dsn is required for this store")
	ErrReplicaRequiresPGXPool  = errors.New("a read replica is only supported with the pgx.pool store")
	ErrReplicaReadsNeedReplica = errors.New("balance replica reads need a postgres replica dsn")
	ErrMissingSQLitePath       = errors.New("sqlite path is required for the sqlite store")
	ErrMissingKafkaTopic       = errors.New("kafka topic is required when brokers are configured")
	ErrInvalidEnvironmentValue = errors.New("invalid environment value")
)

// Config holds the server configuration.
type Config struct {
	Addr               string
	Store              string
	PostgresDSN        string
	PostgresReplicaDSN string
	BalanceFromReplica bool
	SQLitePath         string
	Migrate            bool
	Seed               bool
	OTelEndpoint       string
	KafkaBrokers       []string
	KafkaTopic         string
	LogLevel           slog.Level
	ShutdownTimeout    time.Duration
}

// ObservabilityEnabled reports whether telemetry is exported via OTLP.
func (c Config) ObservabilityEnabled() bool {
	return c.OTelEndpoint != ""
}

// PublishingEnabled reports whether MovementPosted events are sent to Kafka.
func (c Config) PublishingEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// parseConfig parses the command line. Environment values become the flag defaults, so an explicit flag wins.
func parseConfig(args []string, getenv func(string) string, output io.Writer) (Config, error) {
	env := envReader{getenv: getenv}

	fs := flag.NewFlagSet(serviceName, flag.ContinueOnError)
	fs.SetOutput(output)

	var (
		addr               = fs.String("addr", env.lookupString("LEDGER_ADDR", defaultAddr), "HTTP listen address")
		store              = fs.String("store", env.lookupString("LEDGER_STORE", defaultStore), "Store: pgx.pool, sql.db, sqlx.db, sqlite or memory")
		postgresDSN        = fs.String("postgres-dsn", env.lookupString("LEDGER_POSTGRES_DSN", ""), "Postgres DSN of the primary")
		postgresReplicaDSN = fs.String("postgres-replica-dsn", env.lookupString("LEDGER_POSTGRES_REPLICA_DSN", ""), "Postgres DSN of a read replica (pgx.pool only)")
		balanceFromReplica = fs.Bool("balance-from-replica", env.lookupBool("LEDGER_BALANCE_FROM_REPLICA", false), "Serve balance queries from the read replica, which may lag behind recent posts")
		sqlitePath         = fs.String("sqlite-path", env.lookupString("LEDGER_SQLITE_PATH", defaultSQLitePath), "SQLite database file")
		migrate            = fs.Bool("migrate", env.lookupBool("LEDGER_MIGRATE", true), "Create the schema if it does not exist")
		seed               = fs.Bool("seed", env.lookupBool("LEDGER_SEED", false), "Seed the demo account registry")
		otelEndpoint       = fs.String("otel-endpoint", env.lookupString("LEDGER_OTEL_ENDPOINT", ""), "OTLP gRPC endpoint, empty disables export")
		kafkaBrokers       = fs.String("kafka-brokers", env.lookupString("LEDGER_KAFKA_BROKERS", ""), "Comma-separated Kafka brokers, empty disables publishing")
		kafkaTopic         = fs.String("kafka-topic", env.lookupString("LEDGER_KAFKA_TOPIC", defaultKafkaTopic), "Kafka topic for MovementPosted events")
		logLevel           = fs.String("log-level", env.lookupString("LEDGER_LOG_LEVEL", "info"), "Log level: debug, info, warn or error")
		shutdownTimeout    = fs.Duration("shutdown-timeout", env.lookupDuration("LEDGER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout), "Grace period for in-flight requests")
	)

	if env.err != nil {
		return Config{}, env.err
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg := Config{
		Addr:               *addr,
		Store:              strings.ToLower(strings.TrimSpace(*store)),
		PostgresDSN:        *postgresDSN,
		PostgresReplicaDSN: *postgresReplicaDSN,
		BalanceFromReplica: *balanceFromReplica,
		SQLitePath:         *sqlitePath,
		Migrate:            *migrate,
		Seed:               *seed,
		OTelEndpoint:       *otelEndpoint,
		KafkaBrokers:       splitList(*kafkaBrokers),
		KafkaTopic:         *kafkaTopic,
		ShutdownTimeout:    *shutdownTimeout,
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(*logLevel)); err != nil {
		return Config{}, fmt.Errorf("log level %q: %w", *logLevel, err)
	}

	return cfg, cfg.validate()
}

func (c Config) validate() error {
	switch c.Store {
	case storePGXPool, storeSQLDB, storeSQLXDB:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: %s", ErrMissingPostgresDSN, c.Store)
		}
	case storeSQLite:
		if c.SQLitePath == "" {
			return ErrMissingSQLitePath
		}
	case storeMemory:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownStore, c.Store)
	}

	if c.PostgresReplicaDSN != "" && c.Store != storePGXPool {
		return ErrReplicaRequiresPGXPool
	}

	if c.BalanceFromReplica && c.PostgresReplicaDSN == "" {
		return ErrReplicaReadsNeedReplica
	}

	if c.PublishingEnabled() && c.KafkaTopic == "" {
		return ErrMissingKafkaTopic
	}

	return nil
}

func splitList(value string) []string {
	var items []string

	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

// envReader reads typed environment values and keeps the first parse error.
type envReader struct {
	getenv func(string) string
	err    error
}

func (r *envReader) lookupString(key, fallback string) string {
	if value := r.getenv(key); value != "" {
		return value
	}

	return fallback
}

func (r *envReader) lookupBool(key string, fallback bool) bool {
	value := r.getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := strconv.ParseBool(value)
	if err != nil {
		r.fail(key, value, err)
		return fallback
	}

	return parsed
}

func (r *envReader) lookupDuration(key string, fallback time.Duration) time.Duration {
	value := r.getenv(key)
	if value == "" {
		return fallback
	}

	parsed, err := time.ParseDuration(value)
	if err != nil {
		r.fail(key, value, err)
		return fallback
	}

	return parsed
}

func (r *envReader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q: %w", ErrInvalidEnvironmentValue, key, value, err)
	}
}
