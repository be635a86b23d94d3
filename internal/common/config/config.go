package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

type Config struct {
	Database DatabaseConfig
	Store    StoreConfig
	Server   ServerConfig
	Cache    CacheConfig
	Logging  LoggingConfig
	Dataset  DatasetConfig
}

type DatabaseConfig struct {
	Host     string `validate:"required"`
	Port     string `validate:"required,numeric"`
	User     string `validate:"required"`
	Password string
	DBName   string `validate:"required"`
	SSLMode  string `validate:"oneof=disable require verify-ca verify-full"`
}

// StoreConfig selects where the network graph is read from.
type StoreConfig struct {
	Driver        string `validate:"oneof=postgres neo4j"`
	Neo4jURI      string `validate:"required_if=Driver neo4j"`
	Neo4jUser     string
	Neo4jPassword string
}

type ServerConfig struct {
	Addr            string        `validate:"required"`
	ReadTimeout     time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	ShutdownTimeout time.Duration `validate:"gt=0"`
	CORSOrigins     []string
}

// CacheConfig controls the path response cache.
type CacheConfig struct {
	Backend       string        `validate:"oneof=memory redis"`
	TTL           time.Duration `validate:"gt=0"`
	Size          int           `validate:"gt=0"`
	RedisAddr     string        `validate:"required_if=Backend redis"`
	RedisPassword string
	RedisDB       int `validate:"gte=0"`
}

type LoggingConfig struct {
	Level      string
	FilePath   string
	DiscordURL string `validate:"omitempty,url"`
}

// DatasetConfig is only used by the ingestion command.
type DatasetConfig struct {
	Dir                  string
	URL                  string `validate:"omitempty,url"`
	DownloadDir          string
	CheckInterval        time.Duration `validate:"gte=0"`
	KeepInactiveVersions int           `validate:"gte=0"`
	BaseFare             int64         `validate:"gte=0"`
	PerKmRate            int64         `validate:"gte=0"`
	InterchangeFee       int64         `validate:"gte=0"`
}

func Load() (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "metroplanner"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Store: StoreConfig{
			Driver:        getEnv("STORE_DRIVER", "postgres"),
			Neo4jURI:      getEnv("NEO4J_URI", ""),
			Neo4jUser:     getEnv("NEO4J_USER", "neo4j"),
			Neo4jPassword: getEnv("NEO4J_PASSWORD", ""),
		},
		Server: ServerConfig{
			Addr:            getEnv("HTTP_ADDR", ":8080"),
			ReadTimeout:     getDurationEnv("READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getDurationEnv("WRITE_TIMEOUT", 10*time.Second),
			ShutdownTimeout: getDurationEnv("SHUTDOWN_TIMEOUT", 15*time.Second),
			CORSOrigins:     getCSVEnv("CORS_ORIGINS", []string{"*"}),
		},
		Cache: CacheConfig{
			Backend:       getEnv("CACHE_BACKEND", "memory"),
			TTL:           getDurationEnv("CACHE_TTL", 5*time.Minute),
			Size:          getIntEnv("CACHE_SIZE", 10000),
			RedisAddr:     getEnv("REDIS_ADDR", ""),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getIntEnv("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			FilePath:   getEnv("LOG_FILE", "metroplanner.log"),
			DiscordURL: getEnv("DISCORD_WEBHOOK_URL", ""),
		},
		Dataset: DatasetConfig{
			Dir:                  getEnv("DATASET_DIR", "datasets"),
			URL:                  getEnv("DATASET_URL", ""),
			DownloadDir:          getEnv("DATASET_DOWNLOAD_DIR", os.TempDir()),
			CheckInterval:        getDurationEnv("DATASET_CHECK_INTERVAL", 0),
			KeepInactiveVersions: getIntEnv("DATASET_KEEP_INACTIVE", 1),
			BaseFare:             getInt64Env("FARE_BASE", 1000),
			PerKmRate:            getInt64Env("FARE_PER_KM", 200),
			InterchangeFee:       getInt64Env("FARE_INTERCHANGE", 500),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("validating configuration: %w", err)
	}
	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.ParseInt(value, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getCSVEnv(key string, defaultValue []string) []string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}

	var result []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			result = append(result, p)
		}
	}
	return result
}
