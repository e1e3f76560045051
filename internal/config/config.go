package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	AMQP     AMQPConfig
	Auth     AuthConfig
	Runs     RunsConfig
	Timezone string
	// RateLimitPerMin caps reservation attempts per client IP; 0 disables it.
	RateLimitPerMin int
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
	MaxConns int
	Migrate  bool
}

// DSN is the libpq connection URL of the database.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s", p.User, p.Password, p.Host, p.Port, p.Name, p.SSLMode)
}

// AMQPConfig is optional: an empty URL disables event publishing.
type AMQPConfig struct {
	URL string
}

type AuthConfig struct {
	JWTSecret string
}

type RunsConfig struct {
	WindowDays      int
	StartOffset     int
	RefreshInterval time.Duration
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	serverPort, err := intEnv("SERVER_PORT", 8080)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresPort, err := intEnv("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresMaxConns, err := intEnv("POSTGRES_MAX_CONNS", 10)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresMigrate, err := boolEnv("POSTGRES_MIGRATE", true)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	postgresCfg := PostgresConfig{
		User:     os.Getenv("POSTGRES_USER"),
		Password: os.Getenv("POSTGRES_PASSWORD"),
		Name:     os.Getenv("POSTGRES_DB"),
		Host:     stringEnv("POSTGRES_HOST", "localhost"),
		Port:     postgresPort,
		SSLMode:  stringEnv("POSTGRES_SSLMODE", "disable"),
		MaxConns: postgresMaxConns,
		Migrate:  postgresMigrate,
	}
	for name, v := range map[string]string{
		"POSTGRES_USER":     postgresCfg.User,
		"POSTGRES_PASSWORD": postgresCfg.Password,
		"POSTGRES_DB":       postgresCfg.Name,
	} {
		if v == "" {
			return nil, fmt.Errorf("%s: missing %s", op, name)
		}
	}

	redisDB, err := intEnv("REDIS_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s: missing JWT_SECRET", op)
	}

	windowDays, err := intEnv("RUN_WINDOW_DAYS", 14)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	startOffset, err := intEnv("RUN_WINDOW_OFFSET", 1)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	refresh, err := durationEnv("RUN_REFRESH_INTERVAL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rateLimit, err := intEnv("RATE_LIMIT_PER_MIN", 30)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tz := stringEnv("APP_TIMEZONE", "Africa/Lome")
	if _, err := time.LoadLocation(tz); err != nil {
		return nil, fmt.Errorf("%s: invalid APP_TIMEZONE: %w", op, err)
	}

	return &Config{
		Server: ServerConfig{
			Host: stringEnv("SERVER_HOST", "localhost"),
			Port: serverPort,
		},
		Postgres: postgresCfg,
		Redis: RedisConfig{
			Addr:     stringEnv("REDIS_ADDR", "localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		AMQP: AMQPConfig{URL: os.Getenv("AMQP_URL")},
		Auth: AuthConfig{JWTSecret: jwtSecret},
		Runs: RunsConfig{
			WindowDays:      windowDays,
			StartOffset:     startOffset,
			RefreshInterval: refresh,
		},
		Timezone:        tz,
		RateLimitPerMin: rateLimit,
	}, nil
}

func stringEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

func intEnv(name string, def int) (int, error) {
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

func boolEnv(name string, def bool) (bool, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}

func durationEnv(name string, def time.Duration) (time.Duration, error) {
	s := os.Getenv(name)
	if s == "" {
		return def, nil
	}
	v, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	return v, nil
}
