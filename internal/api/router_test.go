package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"messagemaster/internal/alerts"
	"messagemaster/internal/config"
	"messagemaster/internal/gateway"
	"messagemaster/internal/models"
	"messagemaster/internal/notify"
	"messagemaster/internal/service"
	"messagemaster/internal/session"
	"messagemaster/internal/util"
)

type harness struct {
	backend *http.ServeMux
	sess    *session.Store
	console http.Handler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	sess := session.NewMemory()
	client := gateway.New(sess, gateway.Options{BaseURL: srv.URL, Timeout: 2 * time.Second})
	poller := alerts.NewPoller(client, notify.Silent{}, time.Hour)
	cfg := config.Config{CSRFCookieName: "csrf", SessionExpiredDelay: 2}
	return &harness{
		backend: mux,
		sess:    sess,
		console: NewRouter(Deps{Config: cfg, Service: service.New(client), Gateway: client, Session: sess, Alerts: poller}),
	}
}

func (h *harness) signIn(t *testing.T, id models.Identity) {
	t.Helper()
	if err := h.sess.Save(context.Background(), "cred", id); err != nil {
		t.Fatalf("save session: %v", err)
	}
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.console.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) util.APIError {
	t.Helper()
	var e util.APIError
	if err := json.NewDecoder(rec.Body).Decode(&e); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return e
}

func withCSRF(req *http.Request) *http.Request {
	req.AddCookie(&http.Cookie{Name: "csrf", Value: "tok"})
	req.Header.Set("X-CSRF-Token", "tok")
	req.Header.Set("Content-Type", "application/json")
	return req
}

var adminID = models.Identity{ID: "a1", Name: "Root", Email: "root@x.com", Role: models.RoleAdmin}

func TestHealthLive(t *testing.T) {
	h := newHarness(t)
	rec := h.do(httptest.NewRequest("GET", "/health/live", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"version"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
	var body healthResponse
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode health: %v", err)
	}
	if body.SignedIn || body.AlertsRunning || body.Build.Version == "" {
		t.Fatalf("unexpected health body %#v", body)
	}

	h.signIn(t, adminID)
	rec = h.do(httptest.NewRequest("GET", "/health/live", nil))
	if !strings.Contains(rec.Body.String(), `"signed_in":true`) {
		t.Fatalf("expected signed_in after login, got %s", rec.Body.String())
	}
}

func TestPagesRequireSession(t *testing.T) {
	h := newHarness(t)
	rec := h.do(httptest.NewRequest("GET", "/campaigns", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec.Header().Get("Refresh") != "2; url=/login" {
		t.Fatalf("unexpected refresh header %q", rec.Header().Get("Refresh"))
	}
	if e := decodeError(t, rec); e.Code != "session_expired" {
		t.Fatalf("unexpected code %q", e.Code)
	}
}

func TestHomeRedirectsByRole(t *testing.T) {
	h := newHarness(t)
	rec := h.do(httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected login redirect, got %q", rec.Header().Get("Location"))
	}
	h.signIn(t, models.Identity{ID: "s1", Email: "sub@x.com", Role: models.RoleSubReseller})
	rec = h.do(httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("Location") != "/subreseller-dashboard" {
		t.Fatalf("expected dashboard redirect, got %q", rec.Header().Get("Location"))
	}
}

func TestLoginIssuesCSRFCookie(t *testing.T) {
	h := newHarness(t)
	h.backend.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"token":"cred-9","user":{"id":"r1","name":"Res","email":"res@x.com","role":"Reseller"}}`))
	})
	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"res@x.com","password":"pw"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := h.do(req)
	if rec.Code != http.StatusOK {
		t.Fatalf("login failed %d %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Home      string `json:"home"`
		CSRFToken string `json:"csrf_token"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Home != "/reseller-dashboard" || body.CSRFToken == "" {
		t.Fatalf("unexpected login body %#v", body)
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "csrf" {
			cookie = c
		}
	}
	if cookie == nil || cookie.Value != body.CSRFToken || cookie.HttpOnly {
		t.Fatalf("expected readable csrf cookie matching the body, got %#v", cookie)
	}
	if id, ok := h.sess.Identity(); !ok || id.Email != "res@x.com" {
		t.Fatalf("expected session to be saved, got %#v", id)
	}
}

func TestLoginRejectedKeepsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	h.backend.HandleFunc("POST /api/login", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Invalid credentials"}`))
	})
	req := httptest.NewRequest("POST", "/login", strings.NewReader(`{"email":"x@x.com","password":"bad"}`))
	rec := h.do(req)
	if rec.Code != http.StatusUnauthorized || decodeError(t, rec).Code != "invalid_credentials" {
		t.Fatalf("expected invalid_credentials, got %d", rec.Code)
	}
	if _, ok := h.sess.Identity(); !ok {
		t.Fatalf("expected existing session to survive a failed login")
	}
}

func TestMutationsNeedCSRF(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	rec := h.do(httptest.NewRequest("POST", "/credits", strings.NewReader(`{}`)))
	if rec.Code != http.StatusForbidden || decodeError(t, rec).Code != "csrf_failed" {
		t.Fatalf("expected csrf failure, got %d", rec.Code)
	}
}

func TestValidationMapsTo400(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	var posted atomic.Int32
	h.backend.HandleFunc("POST /api/credits", func(w http.ResponseWriter, r *http.Request) { posted.Add(1) })
	rec := h.do(withCSRF(httptest.NewRequest("POST", "/credits", strings.NewReader(`{"to":"a@x.com","count":0,"rate":1}`))))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	e := decodeError(t, rec)
	if e.Code != "validation_failed" || e.Message != "Message quantity must be greater than 0." {
		t.Fatalf("unexpected error %#v", e)
	}
	if posted.Load() != 0 {
		t.Fatalf("expected no backend call")
	}
}

func TestRoleGuard(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, models.Identity{ID: "r1", Email: "res@x.com", Role: models.RoleReseller})
	for _, path := range []string{"/backup", "/storage", "/admin", "/credits"} {
		rec := h.do(httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, rec.Code)
		}
	}
}

func TestBackend401EndsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	h.backend.HandleFunc("GET /api/admin/storage-usage", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})
	rec := h.do(httptest.NewRequest("GET", "/storage", nil))
	if rec.Code != http.StatusUnauthorized || rec.Header().Get("Refresh") == "" {
		t.Fatalf("expected session_expired, got %d", rec.Code)
	}
	if _, ok := h.sess.Identity(); ok {
		t.Fatalf("expected session to be cleared")
	}
}

func TestRemoteErrorPassesThrough(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	h.backend.HandleFunc("GET /api/admin/storage-usage", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"message":"Storage stats unavailable"}`))
	})
	rec := h.do(httptest.NewRequest("GET", "/storage", nil))
	if rec.Code != http.StatusServiceUnavailable || decodeError(t, rec).Message != "Storage stats unavailable" {
		t.Fatalf("unexpected response %d", rec.Code)
	}
}

func TestStoragePage(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	h.backend.HandleFunc("GET /api/admin/storage-usage", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"fileStorage":{"megabytes":1.5},"databaseStorage":{"megabytes":"0.25"}}`))
	})
	rec := h.do(httptest.NewRequest("GET", "/storage", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"1.75"`) {
		t.Fatalf("unexpected storage page %d %s", rec.Code, rec.Body.String())
	}
}

func TestShellIncludesNavAndUnread(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, models.Identity{ID: "u1", Email: "una@x.com", Role: models.RoleUser})
	h.backend.HandleFunc("GET /api/whitelabel/my-branding", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"companyName":"Acme SMS"}`))
	})
	rec := h.do(httptest.NewRequest("GET", "/shell", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("shell failed %d", rec.Code)
	}
	var body struct {
		Home     string          `json:"home"`
		Branding models.Branding `json:"branding"`
		Unread   int             `json:"unread"`
		Nav      []any           `json:"nav"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&body)
	if body.Home != "/user-dashboard" || body.Branding.CompanyName != "Acme SMS" || len(body.Nav) == 0 || body.Unread != 0 {
		t.Fatalf("unexpected shell %#v", body)
	}
}

func TestShellEndsSessionOnBackend401(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	h.backend.HandleFunc("GET /api/whitelabel/my-branding", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"jwt expired"}`))
	})
	rec := h.do(httptest.NewRequest("GET", "/shell", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d %s", rec.Code, rec.Body.String())
	}
	if rec.Header().Get("Refresh") != "2; url=/login" {
		t.Fatalf("unexpected refresh header %q", rec.Header().Get("Refresh"))
	}
	if e := decodeError(t, rec); e.Code != "session_expired" {
		t.Fatalf("unexpected code %q", e.Code)
	}
	if _, ok := h.sess.Identity(); ok {
		t.Fatalf("expected session to be cleared")
	}
}

func TestShellKeepsDefaultBrandingOnRemoteError(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	h.backend.HandleFunc("GET /api/whitelabel/my-branding", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	rec := h.do(httptest.NewRequest("GET", "/shell", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"MessageMaster"`) {
		t.Fatalf("unexpected shell %d %s", rec.Code, rec.Body.String())
	}
}

func TestExpiredCredentialSendsToLogin(t *testing.T) {
	h := newHarness(t)
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	if err := h.sess.Save(context.Background(), tok, adminID); err != nil {
		t.Fatalf("save session: %v", err)
	}

	rec := h.do(httptest.NewRequest("GET", "/", nil))
	if rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected login redirect, got %q", rec.Header().Get("Location"))
	}
	rec = h.do(httptest.NewRequest("GET", "/unauthorized", nil))
	if !strings.Contains(rec.Body.String(), `"home":"/login"`) {
		t.Fatalf("expected login as home, got %s", rec.Body.String())
	}
	rec = h.do(httptest.NewRequest("GET", "/admin", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for dashboard, got %d", rec.Code)
	}
	req := httptest.NewRequest("GET", "/admin", nil)
	req.Header.Set("Accept", "text/html")
	rec = h.do(req)
	if rec.Code != http.StatusFound || rec.Header().Get("Location") != "/login" {
		t.Fatalf("expected browser redirect to login, got %d %q", rec.Code, rec.Header().Get("Location"))
	}
}

func TestLogoutClearsSession(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	rec := h.do(withCSRF(httptest.NewRequest("POST", "/logout", nil)))
	if rec.Code != http.StatusOK {
		t.Fatalf("logout failed %d", rec.Code)
	}
	if _, ok := h.sess.Identity(); ok {
		t.Fatalf("expected session to be cleared")
	}
}

func TestHistoryExportCSV(t *testing.T) {
	h := newHarness(t)
	h.signIn(t, adminID)
	h.backend.HandleFunc("GET /api/credits", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"_id":"t1","to":"a@x.com","creditType":"Normal Message - domestic","count":5,"rate":1,"total":5,"type":"Added"}]`))
	})
	h.backend.HandleFunc("GET /api/users", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	rec := h.do(httptest.NewRequest("GET", "/history/export.csv", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Header().Get("Content-Disposition"), "history.csv") {
		t.Fatalf("unexpected export %d %#v", rec.Code, rec.Header())
	}
	if !strings.HasPrefix(rec.Body.String(), "ID,Type,To") {
		t.Fatalf("unexpected csv %q", rec.Body.String())
	}
}
