package session

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"messagemaster/internal/db"
	"messagemaster/internal/models"
	"messagemaster/internal/store"
)

const testSecret = "this_is_a_valid_long_session_encrypt_key_123456"

func newSQLiteStore(t *testing.T) *store.Store {
	t.Helper()
	sqdb, err := db.OpenSQLite(filepath.Join(t.TempDir(), "console.db"), 1, 1, time.Minute)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = sqdb.Close() })
	if err := db.ApplyMigrationsDir(sqdb, filepath.Join("..", "..", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return store.New(sqdb, db.DialectSQLite)
}

func adminIdentity() models.Identity {
	return models.Identity{ID: "u1", Name: "Root", Email: "root@example.com", Role: models.RoleAdmin}
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u1",
		ExpiresAt: jwt.NewNumericDate(exp),
	}).SignedString([]byte("backend-secret"))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return tok
}

func TestSaveSurvivesReload(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	s := New(st, testSecret)
	if err := s.Save(ctx, "opaque-credential", adminIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}

	raw, ok, err := st.GetSetting(ctx, KeyToken)
	if err != nil || !ok {
		t.Fatalf("expected persisted token key, ok=%v err=%v", ok, err)
	}
	if raw == "opaque-credential" {
		t.Fatalf("expected credential to be encrypted at rest")
	}

	reloaded := New(st, testSecret)
	if err := reloaded.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	h, ok := reloaded.AuthHeader()
	if !ok || h != "Bearer opaque-credential" {
		t.Fatalf("unexpected auth header %q ok=%v", h, ok)
	}
	id, ok := reloaded.Identity()
	if !ok || id.Email != "root@example.com" || id.Role != models.RoleAdmin {
		t.Fatalf("unexpected identity %#v", id)
	}
}

func TestLoadDiscardsPartialSession(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	if err := st.UpsertSetting(ctx, KeyIdentity, `{"id":"u1","email":"a@x.com","role":"User"}`); err != nil {
		t.Fatalf("seed identity: %v", err)
	}
	s := New(st, testSecret)
	if err := s.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := s.AuthHeader(); ok {
		t.Fatalf("expected no auth header for identity without credential")
	}
	if _, ok, _ := st.GetSetting(ctx, KeyIdentity); ok {
		t.Fatalf("expected orphan identity key to be removed")
	}
}

func TestLoadDiscardsCredentialFromOtherKey(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	if err := New(st, testSecret).Save(ctx, "cred", adminIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}
	other := New(st, "a_completely_different_secret_value")
	if err := other.Load(ctx); err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, ok := other.Identity(); ok {
		t.Fatalf("expected session to be discarded when the credential cannot be decrypted")
	}
}

func TestClearRemovesBothKeys(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	s := New(st, testSecret)
	if err := s.Save(ctx, "cred", adminIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := s.AuthHeader(); ok {
		t.Fatalf("expected no auth header after clear")
	}
	kv, err := st.GetSettings(ctx, KeyToken, KeyIdentity)
	if err != nil {
		t.Fatalf("get settings: %v", err)
	}
	if len(kv) != 0 {
		t.Fatalf("expected no persisted keys, got %#v", kv)
	}
	if len(events) != 1 || events[0].Kind != EventLoggedOut || events[0].Identity.Email != "root@example.com" {
		t.Fatalf("unexpected events %#v", events)
	}
	// Clearing an empty session does not emit again.
	if err := s.Clear(ctx); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected single logout event, got %d", len(events))
	}
}

type failingPersister struct {
	memoryPersister
}

func (f *failingPersister) PutSettings(context.Context, map[string]string) error {
	return errors.New("disk full")
}

func TestSaveFailureKeepsPriorSession(t *testing.T) {
	p := &failingPersister{memoryPersister{kv: map[string]string{}}}
	ctx := context.Background()
	s := New(p, testSecret)
	s.token = "previous"
	s.identity = adminIdentity()

	err := s.Save(ctx, "next", models.Identity{ID: "u2", Email: "b@x.com", Role: models.RoleUser})
	if err == nil {
		t.Fatalf("expected save to fail")
	}
	id, ok := s.Identity()
	if !ok || id.Email != "root@example.com" {
		t.Fatalf("expected prior identity to be retained, got %#v", id)
	}
	if h, _ := s.AuthHeader(); h != "Bearer previous" {
		t.Fatalf("expected prior credential, got %q", h)
	}
}

func TestSaveRejectsEmptyCredential(t *testing.T) {
	s := NewMemory()
	if err := s.Save(context.Background(), " ", adminIdentity()); err == nil {
		t.Fatalf("expected empty credential to be rejected")
	}
	if err := s.Save(context.Background(), "cred", models.Identity{Email: "x@y.z"}); err == nil {
		t.Fatalf("expected identity without role to be rejected")
	}
}

func TestExpiredJWTCredential(t *testing.T) {
	s := NewMemory()
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	if err := s.Save(ctx, signedToken(t, now.Add(time.Hour)), adminIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if _, err := s.Credential(); err != nil {
		t.Fatalf("expected live credential, got %v", err)
	}

	now = now.Add(2 * time.Hour)
	if _, err := s.Credential(); !errors.Is(err, ErrExpired) {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
	if _, ok := s.AuthHeader(); ok {
		t.Fatalf("expected no auth header for expired credential")
	}
}

func TestActiveClearsExpiredSession(t *testing.T) {
	st := newSQLiteStore(t)
	ctx := context.Background()
	s := New(st, testSecret)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }
	if err := s.Save(ctx, signedToken(t, now.Add(time.Hour)), adminIdentity()); err != nil {
		t.Fatalf("save: %v", err)
	}
	if id, ok := s.Active(ctx); !ok || id.Email != "root@example.com" {
		t.Fatalf("expected live session, got %#v ok=%v", id, ok)
	}
	var events []Event
	s.Subscribe(func(ev Event) { events = append(events, ev) })

	now = now.Add(2 * time.Hour)
	if _, ok := s.Identity(); ok {
		t.Fatalf("expected no identity once the credential expired")
	}
	if _, ok := s.Active(ctx); ok {
		t.Fatalf("expected Active to report no session")
	}
	if kv, _ := st.GetSettings(ctx, KeyToken, KeyIdentity); len(kv) != 0 {
		t.Fatalf("expected expired session to be removed from storage, got %#v", kv)
	}
	if len(events) != 1 || events[0].Kind != EventLoggedOut {
		t.Fatalf("expected one logout event, got %#v", events)
	}
}

func TestCredentialWithoutSession(t *testing.T) {
	if _, err := NewMemory().Credential(); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestExpiresAtIgnoresOpaqueTokens(t *testing.T) {
	if _, ok := ExpiresAt("not-a-jwt"); ok {
		t.Fatalf("expected opaque token to have no expiry")
	}
}
