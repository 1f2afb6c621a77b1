package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the full application configuration
type Config struct {
	Server   ServerConfig   `json:"server"`
	Database DatabaseConfig `json:"database"`
	JWT      JWTConfig      `json:"jwt"`
	Storage  StorageConfig  `json:"storage"`
	AI       AIConfig       `json:"ai"`
	Cache    CacheConfig    `json:"cache"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Host      string `json:"host"`
	Port      int    `json:"port"`
	WebDomain string `json:"webDomain"`
	Debug     bool   `json:"debug"`
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Postgres PostgreSQLConfig `json:"postgres"`
}

// PostgreSQLConfig holds PostgreSQL-specific configuration
type PostgreSQLConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port"`
	Username        string        `json:"username"`
	Password        string        `json:"password"`
	Database        string        `json:"database"`
	SSLMode         string        `json:"sslMode"`
	MaxOpenConns    int           `json:"maxOpenConns"`
	MaxIdleConns    int           `json:"maxIdleConns"`
	ConnMaxLifetime time.Duration `json:"connMaxLifetime"`
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	PublicKey string `json:"publicKey"`
}

// StorageConfig holds object storage (S3/R2) configuration for the media pipeline
type StorageConfig struct {
	AccessKeyID      string        `json:"accessKeyId"`
	SecretAccessKey  string        `json:"secretAccessKey"`
	BucketName       string        `json:"bucketName"`
	AccountID        string        `json:"accountId"`
	Endpoint         string        `json:"endpoint"`
	Region           string        `json:"region"`
	PublicURL        string        `json:"publicUrl"`
	MaxUploadSizeMB  int           `json:"maxUploadSizeMb"`
	AllowedMimeTypes []string      `json:"allowedMimeTypes"`
	UploadURLTTL     time.Duration `json:"uploadUrlTtl"`
	DownloadURLTTL   time.Duration `json:"downloadUrlTtl"`
}

// AIConfig holds the vision model configuration for session media reviews
type AIConfig struct {
	BaseURL        string        `json:"baseUrl"`
	APIKey         string        `json:"apiKey"`
	Model          string        `json:"model"`
	MaxConcurrent  int           `json:"maxConcurrent"`
	RequestTimeout time.Duration `json:"requestTimeout"`
	Enabled        bool          `json:"enabled"`
}

// CacheConfig holds Redis session cache configuration
type CacheConfig struct {
	Enabled  bool   `json:"enabled"`
	Address  string `json:"address"`
	Password string `json:"password"`
	Database int    `json:"database"`
	PoolSize int    `json:"poolSize"`
}

// LoadFromEnv loads configuration from the environment, reading a .env file
// first when one is present. Values already set in the environment win.
func LoadFromEnv() (*Config, error) {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	var loadErr error
	for _, envPath := range envPaths {
		loadErr = godotenv.Load(envPath)
		if loadErr == nil {
			break
		}
	}

	if loadErr != nil {
		fmt.Println("INFO: .env file not found, using environment variables and defaults.")
	}

	config := &Config{
		Server: ServerConfig{
			Host:      getEnvOrDefault("HOST", "localhost"),
			Port:      getEnvAsInt("SERVER_PORT", 8080),
			WebDomain: getEnvOrDefault("WEB_DOMAIN", "http://localhost:3000"),
			Debug:     getEnvAsBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Postgres: PostgreSQLConfig{
				Host:            getEnvOrDefault("POSTGRES_HOST", "localhost"),
				Port:            getEnvAsInt("POSTGRES_PORT", 5432),
				Username:        getEnvOrDefault("POSTGRES_USERNAME", ""),
				Password:        getEnvOrDefault("POSTGRES_PASSWORD", ""),
				Database:        getEnvOrDefault("POSTGRES_DATABASE", "peakform"),
				SSLMode:         getEnvOrDefault("POSTGRES_SSL_MODE", "disable"),
				MaxOpenConns:    getEnvAsInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getEnvAsInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(getEnvAsInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
			},
		},
		JWT: JWTConfig{
			PublicKey: getEnvOrDefault("JWT_PUBLIC_KEY", ""),
		},
		Storage: StorageConfig{
			AccessKeyID:      getEnvOrDefault("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey:  getEnvOrDefault("STORAGE_SECRET_ACCESS_KEY", ""),
			BucketName:       getEnvOrDefault("STORAGE_BUCKET_NAME", ""),
			AccountID:        getEnvOrDefault("STORAGE_ACCOUNT_ID", ""),
			Endpoint:         getEnvOrDefault("STORAGE_ENDPOINT", ""),
			Region:           getEnvOrDefault("STORAGE_REGION", "auto"),
			PublicURL:        getEnvOrDefault("STORAGE_PUBLIC_URL", ""),
			MaxUploadSizeMB:  getEnvAsInt("STORAGE_MAX_UPLOAD_SIZE_MB", 50),
			AllowedMimeTypes: getEnvAsSlice("STORAGE_ALLOWED_MIME_TYPES", nil),
			UploadURLTTL:     getEnvAsDuration("STORAGE_UPLOAD_URL_TTL", 1*time.Minute),
			DownloadURLTTL:   getEnvAsDuration("STORAGE_DOWNLOAD_URL_TTL", 5*time.Minute),
		},
		AI: AIConfig{
			BaseURL:        getEnvOrDefault("AI_BASE_URL", ""),
			APIKey:         getEnvOrDefault("AI_API_KEY", ""),
			Model:          getEnvOrDefault("AI_MODEL", "gpt-4o-mini"),
			MaxConcurrent:  getEnvAsInt("AI_MAX_CONCURRENT", 2),
			RequestTimeout: getEnvAsDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
			Enabled:        getEnvAsBool("AI_ENABLED", true),
		},
		Cache: CacheConfig{
			Enabled:  getEnvAsBool("CACHE_ENABLED", false),
			Address:  getEnvOrDefault("REDIS_ADDRESS", "localhost:6379"),
			Password: getEnvOrDefault("REDIS_PASSWORD", ""),
			Database: getEnvAsInt("REDIS_DATABASE", 0),
			PoolSize: getEnvAsInt("REDIS_POOL_SIZE", 10),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// LoadFromMap loads configuration from an in-memory map.
// This is the primary helper for testing configuration logic in isolation
// without manipulating global environment variables.
func LoadFromMap(envMap map[string]string) (*Config, error) {
	get := func(key, defaultValue string) string {
		if value, exists := envMap[key]; exists {
			return value
		}
		return defaultValue
	}

	getInt := func(key string, defaultValue int) int {
		if value, exists := envMap[key]; exists {
			if intValue, err := strconv.Atoi(value); err == nil {
				return intValue
			}
		}
		return defaultValue
	}

	getBool := func(key string, defaultValue bool) bool {
		if value, exists := envMap[key]; exists {
			if boolValue, err := strconv.ParseBool(value); err == nil {
				return boolValue
			}
		}
		return defaultValue
	}

	getDuration := func(key string, defaultValue time.Duration) time.Duration {
		if value, exists := envMap[key]; exists {
			if d, err := time.ParseDuration(value); err == nil {
				return d
			}
		}
		return defaultValue
	}

	getSlice := func(key string, defaultValue []string) []string {
		if value, exists := envMap[key]; exists && value != "" {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			return parts
		}
		return defaultValue
	}

	config := &Config{
		Server: ServerConfig{
			Host:      get("HOST", "localhost"),
			Port:      getInt("SERVER_PORT", 8080),
			WebDomain: get("WEB_DOMAIN", "http://localhost:3000"),
			Debug:     getBool("DEBUG", false),
		},
		Database: DatabaseConfig{
			Postgres: PostgreSQLConfig{
				Host:            get("POSTGRES_HOST", "localhost"),
				Port:            getInt("POSTGRES_PORT", 5432),
				Username:        get("POSTGRES_USERNAME", ""),
				Password:        get("POSTGRES_PASSWORD", ""),
				Database:        get("POSTGRES_DATABASE", "peakform"),
				SSLMode:         get("POSTGRES_SSL_MODE", "disable"),
				MaxOpenConns:    getInt("POSTGRES_MAX_OPEN_CONNS", 25),
				MaxIdleConns:    getInt("POSTGRES_MAX_IDLE_CONNS", 25),
				ConnMaxLifetime: time.Duration(getInt("POSTGRES_CONN_MAX_LIFETIME", 300)) * time.Second,
			},
		},
		JWT: JWTConfig{
			PublicKey: get("JWT_PUBLIC_KEY", ""),
		},
		Storage: StorageConfig{
			AccessKeyID:      get("STORAGE_ACCESS_KEY_ID", ""),
			SecretAccessKey:  get("STORAGE_SECRET_ACCESS_KEY", ""),
			BucketName:       get("STORAGE_BUCKET_NAME", ""),
			AccountID:        get("STORAGE_ACCOUNT_ID", ""),
			Endpoint:         get("STORAGE_ENDPOINT", ""),
			Region:           get("STORAGE_REGION", "auto"),
			PublicURL:        get("STORAGE_PUBLIC_URL", ""),
			MaxUploadSizeMB:  getInt("STORAGE_MAX_UPLOAD_SIZE_MB", 50),
			AllowedMimeTypes: getSlice("STORAGE_ALLOWED_MIME_TYPES", nil),
			UploadURLTTL:     getDuration("STORAGE_UPLOAD_URL_TTL", 1*time.Minute),
			DownloadURLTTL:   getDuration("STORAGE_DOWNLOAD_URL_TTL", 5*time.Minute),
		},
		AI: AIConfig{
			BaseURL:        get("AI_BASE_URL", ""),
			APIKey:         get("AI_API_KEY", ""),
			Model:          get("AI_MODEL", "gpt-4o-mini"),
			MaxConcurrent:  getInt("AI_MAX_CONCURRENT", 2),
			RequestTimeout: getDuration("AI_REQUEST_TIMEOUT", 60*time.Second),
			Enabled:        getBool("AI_ENABLED", true),
		},
		Cache: CacheConfig{
			Enabled:  getBool("CACHE_ENABLED", false),
			Address:  get("REDIS_ADDRESS", "localhost:6379"),
			Password: get("REDIS_PASSWORD", ""),
			Database: getInt("REDIS_DATABASE", 0),
			PoolSize: getInt("REDIS_POOL_SIZE", 10),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate checks the configuration for internally inconsistent values.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Storage.MaxUploadSizeMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d MB", c.Storage.MaxUploadSizeMB)
	}
	if c.Storage.UploadURLTTL <= 0 || c.Storage.DownloadURLTTL <= 0 {
		return fmt.Errorf("signed URL TTLs must be positive")
	}
	if c.AI.Enabled && c.AI.MaxConcurrent <= 0 {
		return fmt.Errorf("invalid AI max concurrent: %d", c.AI.MaxConcurrent)
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
