package config

import (
	"net/http"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/rs/cors"
	"github.com/rs/zerolog/log"
)

type S3Config struct {
	AccessKeyID     string `validate:"required"`
	SecretAccessKey string `validate:"required"`
	BucketName      string `validate:"required"`
	Region          string `validate:"required"`
	Endpoint        string // optional, for S3-compatible stores
}

type Config struct {
	DB_URL      string `validate:"required"`
	Port        string
	JWTSecret   string `validate:"required"`
	Environment string
	// DefaultMaxProjectBytes is the storage ceiling applied to new projects.
	DefaultMaxProjectBytes int64
	CorsConfig             cors.Options
	S3                     S3Config
}

var Envs = initConfig()

func initConfig() Config {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil {
		log.Info().Str("file", envFile).Msg("no env file found, using process environment")
	}

	return Config{
		DB_URL:                 getEnv("DB_URL", ""),
		Port:                   getEnv("PORT", "8080"),
		JWTSecret:              getEnv("JWT_SECRET", "not-so-secret-now-is-it?"),
		Environment:            getEnv("ENV", "development"),
		DefaultMaxProjectBytes: getEnvInt64("DEFAULT_MAX_PROJECT_BYTES", 100<<20),
		CorsConfig:             CorsConfig(),
		S3: S3Config{
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			BucketName:      getEnv("S3_BUCKET_NAME", ""),
			Region:          getEnv("S3_REGION", "eu-north-1"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
		},
	}
}

// Validate checks that every required setting is present. Called once from
// main before anything connects.
func Validate(cfg Config) error {
	return validator.New().Struct(cfg)
}

// Gets the env by key or fallbacks
func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		log.Warn().Str("key", key).Str("value", value).Msg("invalid integer env value, using fallback")
		return fallback
	}
	return n
}

func CorsConfig() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "https://collabforge.vercel.app"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}
}
