package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/tixledger/tixledger/internal/domain"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Ledger   LedgerConfig
}

type ServerConfig struct {
	Host string
	Port int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type PostgresConfig struct {
	User     string
	Password string
	Name     string
	Host     string
	Port     int
	SSLMode  string
}

type LedgerConfig struct {
	// Admin is the only address allowed to toggle the global pause switch.
	Admin domain.Address
	// MaxPerPurchase caps tickets per purchase transaction.
	MaxPerPurchase uint64
	// QueueSize bounds the applier's pending-transaction queue.
	QueueSize int
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverHost := os.Getenv("SERVER_HOST")
	if serverHost == "" {
		serverHost = "localhost"
	}

	serverPort, err := envInt("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	serverCfg := ServerConfig{
		Host: serverHost,
		Port: serverPort,
	}

	postgresHost := os.Getenv("POSTGRES_HOST")
	if postgresHost == "" {
		postgresHost = "localhost"
	}

	postgresPort, err := envInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresUser := os.Getenv("POSTGRES_USER")
	if postgresUser == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_USER", op)
	}

	postgresPassword := os.Getenv("POSTGRES_PASSWORD")
	if postgresPassword == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_PASSWORD", op)
	}

	postgresDB := os.Getenv("POSTGRES_DB")
	if postgresDB == "" {
		return nil, fmt.Errorf("%s: missing POSTGRES_DB", op)
	}

	postgresSSLMode := os.Getenv("POSTGRES_SSLMODE")
	if postgresSSLMode == "" {
		postgresSSLMode = "disable"
	}

	postgresCfg := PostgresConfig{
		User:     postgresUser,
		Password: postgresPassword,
		Name:     postgresDB,
		Host:     postgresHost,
		Port:     postgresPort,
		SSLMode:  postgresSSLMode,
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisCfg := RedisConfig{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	}

	adminAddr := os.Getenv("LEDGER_ADMIN_ADDRESS")
	if adminAddr == "" {
		return nil, fmt.Errorf("%s: missing LEDGER_ADMIN_ADDRESS", op)
	}

	admin, err := domain.ParseAddress(adminAddr)
	if err != nil {
		return nil, fmt.Errorf("%s: invalid LEDGER_ADMIN_ADDRESS: %w", op, err)
	}
	if admin.IsZero() {
		return nil, fmt.Errorf("%s: LEDGER_ADMIN_ADDRESS must not be the zero address", op)
	}

	maxPerPurchase, err := envInt("LEDGER_MAX_PER_PURCHASE", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	queueSize, err := envInt("LEDGER_QUEUE_SIZE", 256)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ledgerCfg := LedgerConfig{
		Admin:          admin,
		MaxPerPurchase: uint64(maxPerPurchase),
		QueueSize:      queueSize,
	}

	return &Config{
		Server:   serverCfg,
		Postgres: postgresCfg,
		Redis:    redisCfg,
		Ledger:   ledgerCfg,
	}, nil
}

func envInt(name string, def int) (int, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}

	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}

	return v, nil
}
