package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// API
	APIBaseURL     string
	RequestTimeout time.Duration

	// Rate Limit（クライアント側の送信ペーシング）
	RateLimitPerMin int
	RateLimitBurst  int

	// Session
	SessionFile string

	// Image fetch
	ImageMaxSize int64
	ImageTimeout time.Duration

	// Stub server
	ServerPort        string
	CORSAllowedOrigin string
	ManagerEmails     []string

	// Logging
	LogLevel string
}

// DefaultAPIBaseURL はAPI_BASE_URL未設定時の接続先。
// ローカル開発サーバー（tchegl serve）のデフォルトポートと一致する。
const DefaultAPIBaseURL = "http://localhost:5000"

// Load は環境変数からConfigを読み込む。
// API_BASE_URLが不正なURLの場合、またはセッションファイルの
// 既定パスを解決できない場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.APIBaseURL = getEnvString("API_BASE_URL", DefaultAPIBaseURL)
	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("API_BASE_URL is not a valid URL: %q", cfg.APIBaseURL)
	}

	cfg.SessionFile = os.Getenv("SESSION_FILE")
	if cfg.SessionFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve home directory for session file: %w", err)
		}
		cfg.SessionFile = filepath.Join(home, ".tchegl", "session.json")
	}

	cfg.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", 10*time.Second)
	cfg.RateLimitPerMin = getEnvInt("RATE_LIMIT_PER_MIN", 120)
	cfg.RateLimitBurst = getEnvInt("RATE_LIMIT_BURST", 30)
	cfg.ImageMaxSize = getEnvInt64("IMAGE_MAX_SIZE", 5242880)
	cfg.ImageTimeout = getEnvDuration("IMAGE_TIMEOUT", 10*time.Second)
	cfg.ServerPort = getEnvString("SERVER_PORT", "5000")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")
	cfg.ManagerEmails = getEnvStrings("MANAGER_EMAILS", []string{"manager@example.com"})
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvStrings はカンマ区切りの環境変数を文字列スライスとして読み込む。
// 空要素は除外する。
func getEnvStrings(key string, defaultVal []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var out []string
	for _, s := range strings.Split(v, ",") {
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
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

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
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
