package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreDriverMySQL  = "mysql"
	StoreDriverMemory = "memory"
)

type ServerConfig struct {
	HTTPPort       string
	GRPCPort       string
	AllowedOrigins []string
}

type StoreConfig struct {
	Driver   string
	MySQLDSN string
}

type RedisConfig struct {
	Enabled bool
	Addr    string
}

type RabbitMQConfig struct {
	Enabled  bool
	URL      string
	Exchange string
}

type NotifierConfig struct {
	QueueSize int
	Workers   int
}

type AuthConfig struct {
	JWTSecret     string
	JWTIssuer     string
	TokenTTL      time.Duration
	AdminUsername string
	AdminPassword string
}

type StdoutLogConfig struct {
	Level string
	JSON  bool
}

type FluentBitConfig struct {
	Enabled bool
	Host    string
	Port    int
	Level   string
}

type AppConfig struct {
	AppName    string
	Server     ServerConfig
	Store      StoreConfig
	Redis      RedisConfig
	RabbitMQ   RabbitMQConfig
	Notifier   NotifierConfig
	Auth       AuthConfig
	SweepEvery time.Duration
	StdoutLog  StdoutLogConfig
	FluentBit  FluentBitConfig
}

// LoadConfig reads the environment, optionally seeded from a .env file.
// A missing .env file is not an error.
func LoadConfig(envPath ...string) (*AppConfig, error) {
	var err error
	if len(envPath) > 0 {
		err = godotenv.Load(envPath[0])
	} else {
		err = godotenv.Load()
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("could not load .env file (path: %v): %w", envPath, err)
	}

	cfg := &AppConfig{}

	cfg.AppName = getEnvAsString("APP_NAME", "apartment-sales")

	cfg.Server.HTTPPort = getEnvAsString("HTTP_PORT", "8080")
	cfg.Server.GRPCPort = getEnvAsString("GRPC_PORT", "9090")
	cfg.Server.AllowedOrigins = strings.Split(getEnvAsString("CORS_ALLOWED_ORIGINS", "*"), ",")

	cfg.Store.Driver = getEnvAsString("STORE_DRIVER", StoreDriverMySQL)
	switch cfg.Store.Driver {
	case StoreDriverMySQL:
		cfg.Store.MySQLDSN = os.Getenv("MYSQL_DSN")
		if cfg.Store.MySQLDSN == "" {
			return nil, fmt.Errorf("MYSQL_DSN environment variable is required when STORE_DRIVER=%s", StoreDriverMySQL)
		}
	case StoreDriverMemory:
	default:
		return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.Store.Driver)
	}

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", false)
	cfg.Redis.Addr = getEnvAsString("REDIS_ADDR", "localhost:6379")

	cfg.RabbitMQ.Enabled = getEnvAsBool("RABBITMQ_ENABLED", false)
	if cfg.RabbitMQ.Enabled {
		cfg.RabbitMQ.URL = os.Getenv("RABBITMQ_URL")
		if cfg.RabbitMQ.URL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL environment variable is required when RABBITMQ_ENABLED=true")
		}
	}
	cfg.RabbitMQ.Exchange = getEnvAsString("RABBITMQ_EXCHANGE", "apartment.events")

	cfg.Notifier.QueueSize = getEnvAsInt("NOTIFIER_QUEUE_SIZE", 1000)
	cfg.Notifier.Workers = getEnvAsInt("NOTIFIER_WORKERS", 4)

	cfg.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET environment variable is required")
	}
	cfg.Auth.JWTIssuer = getEnvAsString("JWT_ISSUER", cfg.AppName)
	cfg.Auth.TokenTTL = getEnvAsDuration("JWT_TTL", 8*time.Hour)
	cfg.Auth.AdminUsername = getEnvAsString("ADMIN_USERNAME", "admin")
	cfg.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	cfg.SweepEvery = getEnvAsDuration("RESERVATION_SWEEP_INTERVAL", time.Minute)

	cfg.StdoutLog.Level = getEnvAsString("STDOUT_LOG_LEVEL", "debug")
	cfg.StdoutLog.JSON = getEnvAsBool("LOG_JSON", false)

	cfg.FluentBit.Enabled = getEnvAsBool("FLUENTBIT_ENABLED", false)
	if cfg.FluentBit.Enabled {
		cfg.FluentBit.Host = os.Getenv("FLUENTBIT_HOST")
		if cfg.FluentBit.Host == "" {
			log.Println("WARNING: FLUENTBIT_ENABLED is true, but FLUENTBIT_HOST is not set. Disabling Fluent Bit.")
			cfg.FluentBit.Enabled = false
		}

		cfg.FluentBit.Port = getEnvAsInt("FLUENTBIT_PORT", 24224)
		cfg.FluentBit.Level = getEnvAsString("FLUENTBIT_LOG_LEVEL", "info")
	}

	return cfg, nil
}

func getEnvAsString(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists && value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt falls back to defaultValue when the variable is unset or not an int.
func getEnvAsInt(key string, defaultValue int) int {
	valueStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}

	valueInt, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as int: %v. Using default value: %d\n", key, valueStr, err, defaultValue)
		return defaultValue
	}
	return valueInt
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valBool, err := strconv.ParseBool(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as bool: %v. Using default value: %t\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valBool
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valStr, exists := os.LookupEnv(key)
	if !exists {
		return defaultValue
	}
	valDur, err := time.ParseDuration(valStr)
	if err != nil {
		log.Printf("Warning: Environment variable %s (value: %s) could not be parsed as duration: %v. Using default value: %s\n", key, valStr, err, defaultValue)
		return defaultValue
	}
	return valDur
}
