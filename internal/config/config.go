package config

import (
	"context"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Env        string
	Port       int
	Store      string
	DBURL      string
	DBMaxConns int
	APIPrefix  string

	JWTSecret          string
	JWTAccessTTLSecond int

	CORSAllowedOrigins []string
	MaxBodyBytes       int64

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AuthRateLimit         int
	AuthRateWindowSeconds int

	LogLevel string

	OTLPEndpoint    string
	OTelSampleRatio float64

	AdminUsername string
	AdminEmail    string
	AdminPassword string
}

// Load reads configuration from the environment, after folding in a .env
// file from the working directory when one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Env:        getEnv("APP_ENV", "dev"),
		Port:       getEnvInt("PORT", 8080),
		Store:      getEnv("STORE", StorePostgres),
		DBURL:      buildDBURL(),
		DBMaxConns: getEnvInt("DB_MAX_CONNS", 5),
		APIPrefix:  getEnv("API_PREFIX", "/api"),

		JWTSecret:          getEnv("JWT_SECRET_KEY", "jwt-secret-key"),
		JWTAccessTTLSecond: getEnvInt("JWT_ACCESS_TOKEN_EXPIRES", 3600),

		CORSAllowedOrigins: getEnvList("CORS_ALLOWED_ORIGINS"),
		MaxBodyBytes:       int64(getEnvInt("MAX_BODY_BYTES", 1<<20)),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		AuthRateLimit:         getEnvInt("AUTH_RATE_LIMIT", 20),
		AuthRateWindowSeconds: getEnvInt("AUTH_RATE_WINDOW_SECONDS", 60),

		LogLevel: getEnv("LOG_LEVEL", ""),

		OTLPEndpoint:    getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		OTelSampleRatio: getEnvFloat("OTEL_TRACES_SAMPLER_ARG", 1),

		AdminUsername: getEnv("ADMIN_USERNAME", ""),
		AdminEmail:    getEnv("ADMIN_EMAIL", ""),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
	}
}

func (c Config) JWTAccessTTL() time.Duration {
	return time.Duration(c.JWTAccessTTLSecond) * time.Second
}

func (c Config) AuthRateWindow() time.Duration {
	return time.Duration(c.AuthRateWindowSeconds) * time.Second
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "taskmanager")
	pass := getEnv("DB_PASSWORD", "taskmanager")
	name := getEnv("DB_NAME", "taskmanager")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

// WithTimeoutFrom bounds a store call while keeping the request's values
// (trace span, identity) on the context.
func WithTimeoutFrom(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, duration)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)

		if err != nil {
			slog.Warn("invalid integer in env, using default", "key", key, "value", v, "default", fallback)
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}

	num, err := strconv.ParseFloat(v, 64)
	if err != nil {
		slog.Warn("invalid float in env, using default", "key", key, "value", v, "default", fallback)
		return fallback
	}
	return num
}

func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}

	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
