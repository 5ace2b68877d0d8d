package config

import (
	"testing"
	"time"
)

const testKey = "this_is_a_valid_long_session_encrypt_key_123456"

func TestLoadRejectsDefaultSessionKey(t *testing.T) {
	t.Setenv("SESSION_ENCRYPT_KEY", "CHANGE_ME_PRODUCTION_SESSION_KEY")
	_, err := Load()
	if err == nil {
		t.Fatalf("expected Load to fail with default session key")
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("SESSION_ENCRYPT_KEY", testKey)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.AlertInterval() != 30*time.Second {
		t.Fatalf("expected 30s poll interval, got %s", cfg.AlertInterval())
	}
	if cfg.APITimeout() != 20*time.Second {
		t.Fatalf("expected 20s api timeout, got %s", cfg.APITimeout())
	}
	if cfg.SessionDBDriver != "sqlite" {
		t.Fatalf("expected sqlite driver, got %q", cfg.SessionDBDriver)
	}
	if cfg.SessionExpiredDelay != 2 {
		t.Fatalf("expected 2s redirect delay, got %d", cfg.SessionExpiredDelay)
	}
}

func TestLoadTrimsAPIBaseURL(t *testing.T) {
	t.Setenv("SESSION_ENCRYPT_KEY", testKey)
	t.Setenv("API_BASE_URL", "http://backend.test:5000/")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.APIBaseURL != "http://backend.test:5000" {
		t.Fatalf("expected trailing slash trimmed, got %q", cfg.APIBaseURL)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"relative api url", "API_BASE_URL", "/api"},
		{"ftp api url", "API_BASE_URL", "ftp://backend.test"},
		{"zero timeout", "API_TIMEOUT_SEC", "0"},
		{"zero poll", "ALERT_POLL_SEC", "0"},
		{"negative redirect delay", "SESSION_EXPIRED_REDIRECT_SEC", "-1"},
		{"unknown driver", "SESSION_DB_DRIVER", "oracle"},
		{"unknown chime", "ALERT_CHIME", "siren"},
		{"zero burst", "API_RATE_BURST", "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("SESSION_ENCRYPT_KEY", testKey)
			t.Setenv(tc.key, tc.val)
			if _, err := Load(); err == nil {
				t.Fatalf("expected Load to fail for %s=%q", tc.key, tc.val)
			}
		})
	}
}

func TestLoadRequiresDSNForNetworkDrivers(t *testing.T) {
	t.Setenv("SESSION_ENCRYPT_KEY", testKey)
	t.Setenv("SESSION_DB_DRIVER", "pgx")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail without SESSION_DB_DSN")
	}
	t.Setenv("SESSION_DB_DSN", "postgres://console@localhost/console")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error with dsn: %v", err)
	}
}

func TestLoadRejectsInsecureCookiesOnPublicListen(t *testing.T) {
	t.Setenv("SESSION_ENCRYPT_KEY", testKey)
	t.Setenv("LISTEN_ADDR", "0.0.0.0:8090")
	if _, err := Load(); err == nil {
		t.Fatalf("expected Load to fail for insecure cookies on public listen address")
	}
	t.Setenv("COOKIE_SECURE", "true")
	if _, err := Load(); err != nil {
		t.Fatalf("unexpected error with secure cookies: %v", err)
	}
}

func TestEnvCSV(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " http://a.test, ,http://b.test ")
	got := envCSV("CORS_ALLOWED_ORIGINS")
	if len(got) != 2 || got[0] != "http://a.test" || got[1] != "http://b.test" {
		t.Fatalf("unexpected csv parse: %#v", got)
	}
}
