package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DBUser     string
	DBPassword string
	DBHost     string // host または host:port
	DBName     string
	DBSSLMode  string

	// Session
	SecretKey     string // セッションCookieの署名鍵
	SessionMaxAge int

	// Password
	BcryptCost int

	// Contact
	EnforceOwnership bool

	// Rate Limit
	RateLimitGeneral int // req/min/account
	RateLimitAuth    int // req/min/IP（ログイン・サインアップ）

	// Worker
	SessionCleanupInterval time.Duration
	WorkerMetricsPort      string // workerの/metrics公開ポート

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string
}

// DatabaseURL は個別の接続情報からPostgreSQLの接続URLを組み立てる。
// ユーザー名とパスワードはURLエスケープされる。
func (c *Config) DatabaseURL() string {
	u := &url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.DBUser, c.DBPassword),
		Host:   c.DBHost,
		Path:   "/" + c.DBName,
	}
	if c.DBSSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(c.DBSSLMode)
	}
	return u.String()
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	required := []struct {
		key string
		dst *string
	}{
		{"DB_USER", &cfg.DBUser},
		{"DB_PASSWORD", &cfg.DBPassword},
		{"DB_URL", &cfg.DBHost},
		{"DB_NAME", &cfg.DBName},
		{"SECRET_KEY", &cfg.SecretKey},
	}
	for _, r := range required {
		*r.dst = os.Getenv(r.key)
		if *r.dst == "" {
			missing = append(missing, r.key)
		}
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.DBSSLMode = getEnvString("DB_SSLMODE", "disable")
	cfg.SessionMaxAge = getEnvPositiveInt("SESSION_MAX_AGE", 86400)
	cfg.BcryptCost = getEnvInt("BCRYPT_COST", 10)
	cfg.EnforceOwnership = getEnvBool("CONTACT_OWNERSHIP_ENFORCED", true)
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitAuth = getEnvInt("RATE_LIMIT_AUTH", 10)
	cfg.SessionCleanupInterval = getEnvPositiveDuration("SESSION_CLEANUP_INTERVAL", time.Hour)
	cfg.WorkerMetricsPort = getEnvString("WORKER_METRICS_PORT", "9090")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.BaseURL = getEnvString("BASE_URL", "http://localhost:8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")

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

// getEnvPositiveInt は0以下の値をdefaultValに置き換える。
func getEnvPositiveInt(key string, defaultVal int) int {
	if i := getEnvInt(key, defaultVal); i > 0 {
		return i
	}
	return defaultVal
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

// getEnvPositiveDuration は0以下の値をdefaultValに置き換える。
func getEnvPositiveDuration(key string, defaultVal time.Duration) time.Duration {
	if d := getEnvDuration(key, defaultVal); d > 0 {
		return d
	}
	return defaultVal
}
