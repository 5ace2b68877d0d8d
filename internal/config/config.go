package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	ListenAddr string

	APIBaseURL    string
	APITimeoutSec int
	APIRatePerSec float64
	APIRateBurst  int

	SessionDBDriver     string
	SessionDBPath       string
	SessionDBDSN        string
	DBMaxOpenConns      int
	DBMaxIdleConns      int
	DBConnMaxLifetime   time.Duration
	SessionEncryptKey   string
	SessionExpiredDelay int

	AlertPollSec int
	AlertChime   string

	CSRFCookieName     string
	CookieSecure       bool
	TrustProxy         bool
	CORSAllowedOrigins []string

	HTTPReadTimeoutSec       int
	HTTPReadHeaderTimeoutSec int
	HTTPWriteTimeoutSec      int
	HTTPIdleTimeoutSec       int

	MigrationsDir string
}

func Load() (Config, error) {
	cfg := Config{
		ListenAddr:               env("LISTEN_ADDR", "127.0.0.1:8090"),
		APIBaseURL:               strings.TrimRight(env("API_BASE_URL", "https://messagemaster-backend.onrender.com"), "/"),
		APITimeoutSec:            envInt("API_TIMEOUT_SEC", 20),
		APIRatePerSec:            envFloat("API_RATE_PER_SEC", 10),
		APIRateBurst:             envInt("API_RATE_BURST", 20),
		SessionDBDriver:          strings.ToLower(env("SESSION_DB_DRIVER", "sqlite")),
		SessionDBPath:            env("SESSION_DB_PATH", "./data/console.db"),
		SessionDBDSN:             env("SESSION_DB_DSN", ""),
		DBMaxOpenConns:           envInt("SESSION_DB_MAX_OPEN_CONNS", 2),
		DBMaxIdleConns:           envInt("SESSION_DB_MAX_IDLE_CONNS", 1),
		DBConnMaxLifetime:        time.Duration(envInt("SESSION_DB_CONN_MAX_LIFETIME_MIN", 30)) * time.Minute,
		SessionEncryptKey:        env("SESSION_ENCRYPT_KEY", "CHANGE_ME_PRODUCTION_SESSION_KEY"),
		SessionExpiredDelay:      envInt("SESSION_EXPIRED_REDIRECT_SEC", 2),
		AlertPollSec:             envInt("ALERT_POLL_SEC", 30),
		AlertChime:               strings.ToLower(env("ALERT_CHIME", "log")),
		CSRFCookieName:           env("CSRF_COOKIE_NAME", "mm_console_csrf"),
		CookieSecure:             envBool("COOKIE_SECURE", false),
		TrustProxy:               envBool("TRUST_PROXY", false),
		CORSAllowedOrigins:       envCSV("CORS_ALLOWED_ORIGINS"),
		HTTPReadTimeoutSec:       envInt("HTTP_READ_TIMEOUT_SEC", 10),
		HTTPReadHeaderTimeoutSec: envInt("HTTP_READ_HEADER_TIMEOUT_SEC", 5),
		HTTPWriteTimeoutSec:      envInt("HTTP_WRITE_TIMEOUT_SEC", 60),
		HTTPIdleTimeoutSec:       envInt("HTTP_IDLE_TIMEOUT_SEC", 60),
		MigrationsDir:            env("MIGRATIONS_DIR", "migrations"),
	}

	u, err := url.Parse(cfg.APIBaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return Config{}, fmt.Errorf("API_BASE_URL must be an absolute http(s) URL")
	}
	if cfg.APITimeoutSec <= 0 {
		return Config{}, fmt.Errorf("API_TIMEOUT_SEC must be positive")
	}
	if cfg.APIRatePerSec <= 0 || cfg.APIRateBurst <= 0 {
		return Config{}, fmt.Errorf("API rate limit must be positive")
	}
	if cfg.AlertPollSec <= 0 {
		return Config{}, fmt.Errorf("ALERT_POLL_SEC must be positive")
	}
	if cfg.SessionExpiredDelay < 0 {
		return Config{}, fmt.Errorf("SESSION_EXPIRED_REDIRECT_SEC must not be negative")
	}
	if cfg.DBMaxOpenConns <= 0 || cfg.DBMaxIdleConns < 0 {
		return Config{}, fmt.Errorf("invalid DB pool config")
	}
	switch cfg.SessionDBDriver {
	case "sqlite":
	case "mysql", "pgx":
		if strings.TrimSpace(cfg.SessionDBDSN) == "" {
			return Config{}, fmt.Errorf("SESSION_DB_DSN is required when SESSION_DB_DRIVER=%s", cfg.SessionDBDriver)
		}
	default:
		return Config{}, fmt.Errorf("SESSION_DB_DRIVER must be one of: sqlite, mysql, pgx")
	}
	switch cfg.AlertChime {
	case "log", "bell", "none":
	default:
		return Config{}, fmt.Errorf("ALERT_CHIME must be one of: log, bell, none")
	}
	if strings.TrimSpace(cfg.SessionEncryptKey) == "" ||
		cfg.SessionEncryptKey == "CHANGE_ME_PRODUCTION_SESSION_KEY" ||
		len(cfg.SessionEncryptKey) < 24 {
		return Config{}, fmt.Errorf("SESSION_ENCRYPT_KEY must be set to a strong non-default value (>=24 chars)")
	}
	if !cfg.CookieSecure && !isLocalListen(cfg.ListenAddr) {
		return Config{}, fmt.Errorf("COOKIE_SECURE=false is allowed only for local listen addresses")
	}
	return cfg, nil
}

func (c Config) APITimeout() time.Duration {
	return time.Duration(c.APITimeoutSec) * time.Second
}

func (c Config) AlertInterval() time.Duration {
	return time.Duration(c.AlertPollSec) * time.Second
}

func env(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return d
	}
	return n
}

func envFloat(k string, d float64) float64 {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return d
	}
	return f
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return d
	}
	return b
}

func envCSV(k string) []string {
	v := strings.TrimSpace(os.Getenv(k))
	if v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLocalListen(addr string) bool {
	a := strings.ToLower(strings.TrimSpace(addr))
	return strings.Contains(a, "127.0.0.1") || strings.Contains(a, "localhost") || strings.Contains(a, "[::1]") || strings.HasPrefix(a, ":")
}
