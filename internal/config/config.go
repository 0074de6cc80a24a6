package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pr-poehali-dev/digital-diary-architecture/internal/calendar"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/journal"
	"github.com/pr-poehali-dev/digital-diary-architecture/internal/security"
)

// セッションストアの種類
const (
	SessionStoreMemory   = "memory"
	SessionStorePostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Gateway
	AuthGatewayURL      string
	MetricsGatewayURL   string
	GatewayTimeout      time.Duration
	GatewayAllowPrivate bool

	// Journal
	WeekStart  calendar.WeekStart
	StreakMode journal.StreakMode
	Location   *time.Location

	// Session
	SessionStore  string
	DatabaseURL   string
	SessionMaxAge int // セッションCookieの有効期間（秒）

	// Rate Limit
	RateLimitGeneral int
	RateLimitAuth    int

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数の未設定や値の誤りはまとめてエラーとして返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.AuthGatewayURL = os.Getenv("AUTH_GATEWAY_URL")
	if cfg.AuthGatewayURL == "" {
		missing = append(missing, "AUTH_GATEWAY_URL")
	}

	cfg.MetricsGatewayURL = os.Getenv("METRICS_GATEWAY_URL")
	if cfg.MetricsGatewayURL == "" {
		missing = append(missing, "METRICS_GATEWAY_URL")
	}

	cfg.SessionStore = strings.ToLower(getEnvString("SESSION_STORE", SessionStoreMemory))
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.SessionStore == SessionStorePostgres && cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.GatewayTimeout = getEnvDuration("GATEWAY_TIMEOUT", 10*time.Second)
	cfg.GatewayAllowPrivate = getEnvBool("GATEWAY_ALLOW_PRIVATE", false)
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 30*24*60*60)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

	var invalid []string

	for _, u := range []struct{ key, value string }{
		{"AUTH_GATEWAY_URL", cfg.AuthGatewayURL},
		{"METRICS_GATEWAY_URL", cfg.MetricsGatewayURL},
	} {
		if err := security.ValidateGatewayURL(u.value, cfg.GatewayAllowPrivate); err != nil {
			invalid = append(invalid, fmt.Sprintf("%s: %v", u.key, err))
		}
	}

	ws, err := calendar.ParseWeekStart(getEnvString("WEEK_START", string(calendar.WeekStartMonday)))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("WEEK_START: %v", err))
	}
	cfg.WeekStart = ws

	mode, err := journal.ParseStreakMode(getEnvString("STREAK_MODE", string(journal.StreakPlaceholder)))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("STREAK_MODE: %v", err))
	}
	cfg.StreakMode = mode

	loc, err := time.LoadLocation(getEnvString("TIMEZONE", "Local"))
	if err != nil {
		invalid = append(invalid, fmt.Sprintf("TIMEZONE: %v", err))
	}
	cfg.Location = loc

	if cfg.SessionStore != SessionStoreMemory && cfg.SessionStore != SessionStorePostgres {
		invalid = append(invalid, fmt.Sprintf("SESSION_STORE: unknown store %q", cfg.SessionStore))
	}

	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid environment variables: %v", invalid)
	}

	return cfg, nil
}

// GatewayConfig は参照ゲートウェイ（gatewayサブコマンド）の設定を保持する。
type GatewayConfig struct {
	DatabaseURL string
	JWTSecret   string
	ServerPort  string
	TokenTTL    time.Duration
}

// LoadGateway は環境変数からGatewayConfigを読み込む。
func LoadGateway() (*GatewayConfig, error) {
	cfg := &GatewayConfig{}

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

	cfg.ServerPort = getEnvString("GATEWAY_PORT", "8081")
	cfg.TokenTTL = getEnvDuration("JWT_TTL", 30*24*time.Hour)

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

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
