package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the upload service.
// Environment variables win; a .env file is only a convenience for local runs.
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Session   SessionConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Storage   StorageConfig
	Upload    UploadConfig
}

type ServerConfig struct {
	Port        string
	Environment string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type SessionConfig struct {
	Driver string // "redis" or "memory"
	TTL    time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

type RateLimitConfig struct {
	UploadLimit  int
	UploadWindow time.Duration
}

type StorageConfig struct {
	Driver        string // "s3" or "minio"
	Region        string
	Bucket        string
	AccessKey     string
	SecretKey     string
	Endpoint      string
	UseSSL        bool
	ACL           string
	PublicBase    string
	ContentType   string
	RetryAttempts int
	Timeout       time.Duration
}

type UploadConfig struct {
	BasePath          string
	FileField         string
	SubfolderVar      string
	MaxSize           int64
	MinSize           int64
	AllowedExtensions []string
	AllowedTypes      []string
	ThumbWidth        int
	ThumbHeight       int
	SetProfileImage   bool
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			Environment: getEnv("APP_ENV", "development"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			Name:     getEnv("DB_NAME", "xupload"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Session: SessionConfig{
			Driver: getEnv("SESSION_DRIVER", "redis"),
			TTL:    getEnvAsDuration("SESSION_TTL", 24*time.Hour),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", "change-me"),
		},
		RateLimit: RateLimitConfig{
			UploadLimit:  getEnvAsInt("RATELIMIT_UPLOADS", 60),
			UploadWindow: getEnvAsDuration("RATELIMIT_UPLOAD_WINDOW", time.Minute),
		},
		Storage: StorageConfig{
			Driver:        getEnv("STORAGE_DRIVER", "s3"),
			Region:        getEnv("S3_REGION", "us-east-1"),
			Bucket:        getEnv("S3_BUCKET", "albums.matchlink.in"),
			AccessKey:     getEnv("S3_ACCESS_KEY", ""),
			SecretKey:     getEnv("S3_SECRET_KEY", ""),
			Endpoint:      getEnv("S3_ENDPOINT", ""),
			UseSSL:        getEnvAsBool("S3_USE_SSL", true),
			ACL:           getEnv("S3_ACL", "public-read-write"),
			PublicBase:    strings.TrimRight(getEnv("STORAGE_PUBLIC_BASE", "http://albums.matchlink.in"), "/"),
			ContentType:   getEnv("STORAGE_CONTENT_TYPE", "image/jpeg"),
			RetryAttempts: getEnvAsInt("STORAGE_RETRY_ATTEMPTS", 3),
			Timeout:       getEnvAsDuration("STORAGE_TIMEOUT", 30*time.Second),
		},
		Upload: UploadConfig{
			BasePath:          getEnv("UPLOAD_PATH", "./uploads"),
			FileField:         getEnv("UPLOAD_FIELD", "file"),
			SubfolderVar:      getEnv("SUBFOLDER_VAR", ""),
			MaxSize:           getEnvAsInt64("UPLOAD_MAX_SIZE", 10<<20),
			MinSize:           getEnvAsInt64("UPLOAD_MIN_SIZE", 1),
			AllowedExtensions: getEnvAsList("UPLOAD_ALLOWED_EXTENSIONS", []string{"jpg", "jpeg", "png", "gif"}),
			AllowedTypes:      getEnvAsList("UPLOAD_ALLOWED_TYPES", nil),
			ThumbWidth:        getEnvAsInt("THUMB_WIDTH", 100),
			ThumbHeight:       getEnvAsInt("THUMB_HEIGHT", 100),
			SetProfileImage:   getEnvAsBool("PROFILE_IMAGE_SIDE_EFFECT", true),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DSN returns DATABASE_URL when set, otherwise a DSN built from the DB_* parts.
func (d DatabaseConfig) DSN() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) validate() error {
	switch c.Session.Driver {
	case "redis", "memory":
	default:
		return fmt.Errorf("unsupported SESSION_DRIVER %q", c.Session.Driver)
	}
	switch c.Storage.Driver {
	case "s3", "minio":
	default:
		return fmt.Errorf("unsupported STORAGE_DRIVER %q", c.Storage.Driver)
	}
	if c.Upload.ThumbWidth <= 0 || c.Upload.ThumbHeight <= 0 {
		return fmt.Errorf("thumbnail size must be positive, got %dx%d", c.Upload.ThumbWidth, c.Upload.ThumbHeight)
	}
	if c.RateLimit.UploadLimit > 0 && c.RateLimit.UploadWindow < time.Second {
		return fmt.Errorf("RATELIMIT_UPLOAD_WINDOW must be at least 1s, got %s", c.RateLimit.UploadWindow)
	}
	if c.Storage.RetryAttempts < 1 {
		c.Storage.RetryAttempts = 1
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseInt(strValue, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseBool(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	strValue := getEnv(key, "")
	if value, err := time.ParseDuration(strValue); err == nil {
		return value
	}
	return fallback
}

// getEnvAsList splits a comma separated value, trimming blanks and lowercasing.
func getEnvAsList(key string, fallback []string) []string {
	strValue, exists := os.LookupEnv(key)
	if !exists {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(strValue, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
