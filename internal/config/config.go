// Package config は環境変数からのアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionMaxAge int // セッション有効期間（秒）

	// Auth
	ProfileTimeout time.Duration // プロフィール解決1回あたりのタイムアウト
	InitDeadline   time.Duration // セッション復元全体のフォールバック期限

	// Inactivity
	InactivityTimeout time.Duration // 無操作ログアウトまでの時間
	InactivityWarning time.Duration // ログアウト前の警告リードタイム

	// Storage (S3互換オブジェクトストレージ)
	S3Endpoint  string
	S3Region    string
	S3Bucket    string
	S3AccessKey string
	S3SecretKey string

	// Rate Limit
	RateLimitGeneral int // API全般（req/min/user）
	RateLimitLogin   int // ログイン試行（req/min/IP）

	// Notification
	DeadlineReminderWindow time.Duration // 期限リマインド対象となる残り時間
	NotifyInterval         time.Duration // 通知ワーカーの実行間隔

	// Logging
	LogLevel string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvInt("SESSION_MAX_AGE", 86400)
	cfg.ProfileTimeout = getEnvDuration("PROFILE_TIMEOUT", 3*time.Second)
	cfg.InitDeadline = getEnvDuration("INIT_DEADLINE", 5*time.Second)
	cfg.InactivityTimeout = getEnvDuration("INACTIVITY_TIMEOUT", 10*time.Minute)
	cfg.InactivityWarning = getEnvDuration("INACTIVITY_WARNING", 2*time.Minute)
	cfg.S3Endpoint = getEnvString("S3_ENDPOINT", "")
	cfg.S3Region = getEnvString("S3_REGION", "us-east-1")
	cfg.S3Bucket = getEnvString("S3_BUCKET", "attachments")
	cfg.S3AccessKey = getEnvString("S3_ACCESS_KEY", "")
	cfg.S3SecretKey = getEnvString("S3_SECRET_KEY", "")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitLogin = getEnvInt("RATE_LIMIT_LOGIN", 10)
	cfg.DeadlineReminderWindow = getEnvDuration("DEADLINE_REMINDER_WINDOW", 7*24*time.Hour)
	cfg.NotifyInterval = getEnvDuration("NOTIFY_INTERVAL", time.Hour)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// 警告リードタイムがタイムアウト以上では警告が一度も発火しない
	if cfg.InactivityWarning >= cfg.InactivityTimeout {
		return nil, fmt.Errorf("INACTIVITY_WARNING (%v) must be shorter than INACTIVITY_TIMEOUT (%v)",
			cfg.InactivityWarning, cfg.InactivityTimeout)
	}

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
