// Package config は環境変数からアプリケーション設定を読み込む。
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Token
	JWTSecret            string
	TokenTTL             time.Duration
	TokenCleanupInterval time.Duration

	// Weather API
	WeatherAPIKey      string
	WeatherAPIBaseURL  string
	WeatherHTTPTimeout time.Duration

	// Cache
	RedisURL           string
	CacheSweepInterval time.Duration

	// Locale
	SupportedLocales []string
	DefaultLocale    string

	// Rate Limit（req/min）
	RateLimitGeneral int

	// Server
	ServerPort string

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string

	// Seed
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envファイルがあれば先に読み込む。既に設定済みの環境変数は上書きしない。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn(".envファイルの読み込みに失敗しました", slog.String("error", err.Error()))
	}

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.JWTSecret = os.Getenv("JWT_SECRET")
	if cfg.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.TokenTTL = getEnvDuration("TOKEN_TTL", 24*time.Hour)
	cfg.TokenCleanupInterval = getEnvDuration("TOKEN_CLEANUP_INTERVAL", time.Hour)
	cfg.WeatherAPIKey = getEnvString("WEATHERAPI_KEY", "")
	cfg.WeatherAPIBaseURL = getEnvString("WEATHERAPI_BASE_URL", "https://api.weatherapi.com/v1")
	cfg.WeatherHTTPTimeout = getEnvDuration("WEATHER_HTTP_TIMEOUT", 5*time.Second)
	cfg.RedisURL = getEnvString("REDIS_URL", "")
	cfg.CacheSweepInterval = getEnvDuration("CACHE_SWEEP_INTERVAL", 5*time.Minute)
	cfg.SupportedLocales = getEnvList("SUPPORTED_LOCALES", []string{"en", "es"})
	cfg.DefaultLocale = getEnvString("DEFAULT_LOCALE", "en")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "")
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.AdminName = getEnvString("ADMIN_NAME", "Administrator")
	cfg.AdminEmail = getEnvString("ADMIN_EMAIL", "")
	cfg.AdminPassword = getEnvString("ADMIN_PASSWORD", "")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

// getEnvDuration は0以下の値を不正値として扱い、デフォルトを返す。
func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return defaultVal
	}
	return d
}

// getEnvList はカンマ区切りの値を返す。空要素は除外し、全て空ならデフォルトを返す。
func getEnvList(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}
