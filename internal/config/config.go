package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/yukikurage/taskflow-api/internal/constants"
)

type Config struct {
	Port    string `validate:"required,numeric"`
	GinMode string `validate:"oneof=debug release test"`

	DBDriver   string `validate:"oneof=postgres mysql sqlite"`
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string `validate:"required"`

	RedisHost     string
	RedisPort     string
	RedisPassword string

	CacheBackend string        `validate:"oneof=redis memory"`
	CacheTTL     time.Duration `validate:"gt=0"`
	CacheSize    int           `validate:"gt=0"`

	SessionSecret string `validate:"required,min=16"`

	UploadDir         string `validate:"required"`
	MaxFileSize       int64  `validate:"gt=0"`
	MaxFilesPerUpload int    `validate:"gt=0"`

	OpenAIAPIKey string

	WSOriginPatterns []string

	DueSoonWindow         time.Duration `validate:"gt=0"`
	NotificationRetention time.Duration `validate:"gt=0"`
	DueSoonSchedule       string        `validate:"required"`
	PurgeSchedule         string        `validate:"required"`
}

var validate = validator.New()

// Load reads configuration from an optional .env file and the environment.
func Load() (*Config, error) {
	// A missing .env is fine; the environment still applies.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	setDefaults(v)

	cfg := &Config{
		Port:    v.GetString("PORT"),
		GinMode: v.GetString("GIN_MODE"),

		DBDriver:   v.GetString("DB_DRIVER"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetString("DB_PORT"),
		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBName:     v.GetString("DB_NAME"),

		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetString("REDIS_PORT"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),

		CacheBackend: v.GetString("CACHE_BACKEND"),
		CacheTTL:     v.GetDuration("CACHE_TTL"),
		CacheSize:    v.GetInt("CACHE_SIZE"),

		SessionSecret: v.GetString("SESSION_SECRET"),

		UploadDir:         v.GetString("UPLOAD_DIR"),
		MaxFileSize:       v.GetInt64("MAX_FILE_SIZE"),
		MaxFilesPerUpload: v.GetInt("MAX_FILES_PER_UPLOAD"),

		OpenAIAPIKey: v.GetString("OPENAI_API_KEY"),

		WSOriginPatterns: v.GetStringSlice("WS_ORIGIN_PATTERNS"),

		DueSoonWindow:         v.GetDuration("DUE_SOON_WINDOW"),
		NotificationRetention: v.GetDuration("NOTIFICATION_RETENTION"),
		DueSoonSchedule:       v.GetString("DUE_SOON_SCHEDULE"),
		PurgeSchedule:         v.GetString("PURGE_SCHEDULE"),
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8080")
	v.SetDefault("GIN_MODE", "debug")

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "password")
	v.SetDefault("DB_NAME", "taskflow")

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")

	v.SetDefault("CACHE_BACKEND", "redis")
	v.SetDefault("CACHE_TTL", constants.DefaultCacheTTL)
	v.SetDefault("CACHE_SIZE", 4096)

	v.SetDefault("SESSION_SECRET", "default-secret-key-change-me")

	v.SetDefault("UPLOAD_DIR", "./uploads")
	v.SetDefault("MAX_FILE_SIZE", constants.DefaultMaxFileSize)
	v.SetDefault("MAX_FILES_PER_UPLOAD", constants.MaxFilesPerUpload)

	v.SetDefault("OPENAI_API_KEY", "")
	v.SetDefault("WS_ORIGIN_PATTERNS", []string{})

	v.SetDefault("DUE_SOON_WINDOW", constants.DueSoonWindow)
	v.SetDefault("NOTIFICATION_RETENTION", constants.NotificationMaxAge)
	v.SetDefault("DUE_SOON_SCHEDULE", "@every 15m")
	v.SetDefault("PURGE_SCHEDULE", "@daily")
}

// RedisAddr returns host:port for the Redis server.
func (c *Config) RedisAddr() string {
	return c.RedisHost + ":" + c.RedisPort
}

// IsProduction reports whether gin runs in release mode.
func (c *Config) IsProduction() bool {
	return c.GinMode == "release"
}
