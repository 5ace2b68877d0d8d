package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"messagemaster/internal/models"
	"messagemaster/internal/util"
)

const (
	KeyToken    = "session.token"
	KeyIdentity = "session.identity"
)

var (
	ErrNoSession = errors.New("no session")
	ErrExpired   = errors.New("session credential expired")
)

// Persister is the durable backing for the two session keys.
type Persister interface {
	GetSettings(ctx context.Context, keys ...string) (map[string]string, error)
	PutSettings(ctx context.Context, kv map[string]string) error
	DeleteSettings(ctx context.Context, keys ...string) error
}

type EventKind string

const (
	EventLoggedIn  EventKind = "logged_in"
	EventLoggedOut EventKind = "logged_out"
)

type Event struct {
	Kind     EventKind
	Identity models.Identity
}

// Store is the process-wide session: one bearer credential plus the Identity
// it belongs to. Reads are served from memory; writes go through the Persister.
type Store struct {
	p   Persister
	key []byte
	now func() time.Time

	mu       sync.RWMutex
	token    string
	identity models.Identity

	obsMu     sync.Mutex
	observers []func(Event)
}

func New(p Persister, secret string) *Store {
	return &Store{p: p, key: util.Derive32ByteKey(secret), now: time.Now}
}

// NewMemory returns a Store that only lives as long as the process.
func NewMemory() *Store {
	return New(&memoryPersister{kv: map[string]string{}}, "memory-only-session-store")
}

// Subscribe registers fn to be called after every login and logout.
func (s *Store) Subscribe(fn func(Event)) {
	s.obsMu.Lock()
	s.observers = append(s.observers, fn)
	s.obsMu.Unlock()
}

// Load restores the persisted session. A half-written session (one key
// without the other) or an undecryptable credential is discarded.
func (s *Store) Load(ctx context.Context) error {
	kv, err := s.p.GetSettings(ctx, KeyToken, KeyIdentity)
	if err != nil {
		return fmt.Errorf("load session: %w", err)
	}
	encToken, hasToken := kv[KeyToken]
	rawIdentity, hasIdentity := kv[KeyIdentity]
	if !hasToken && !hasIdentity {
		return nil
	}
	if !hasToken || !hasIdentity {
		log.Printf("session discard reason=partial has_token=%t has_identity=%t", hasToken, hasIdentity)
		return s.p.DeleteSettings(ctx, KeyToken, KeyIdentity)
	}
	token, err := util.DecryptString(s.key, encToken)
	if err != nil {
		log.Printf("session discard reason=decrypt_failed")
		return s.p.DeleteSettings(ctx, KeyToken, KeyIdentity)
	}
	var id models.Identity
	if err := json.Unmarshal([]byte(rawIdentity), &id); err != nil || !id.Valid() {
		log.Printf("session discard reason=invalid_identity")
		return s.p.DeleteSettings(ctx, KeyToken, KeyIdentity)
	}
	s.mu.Lock()
	s.token = token
	s.identity = id
	s.mu.Unlock()
	log.Printf("session restored email=%s role=%s", id.Email, id.Role)
	return nil
}

// Save persists credential and identity together. On failure the previous
// session stays in place.
func (s *Store) Save(ctx context.Context, token string, id models.Identity) error {
	token = strings.TrimSpace(token)
	if token == "" || !id.Valid() {
		return fmt.Errorf("save session: credential and identity are required")
	}
	enc, err := util.EncryptString(s.key, token)
	if err != nil {
		return fmt.Errorf("encrypt credential: %w", err)
	}
	rawIdentity, err := json.Marshal(id)
	if err != nil {
		return err
	}
	if err := s.p.PutSettings(ctx, map[string]string{KeyToken: enc, KeyIdentity: string(rawIdentity)}); err != nil {
		return fmt.Errorf("persist session: %w", err)
	}
	s.mu.Lock()
	s.token = token
	s.identity = id
	s.mu.Unlock()
	s.emit(Event{Kind: EventLoggedIn, Identity: id})
	return nil
}

// Clear drops the session from memory at once and then from storage.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	prev := s.identity
	active := s.token != ""
	s.token = ""
	s.identity = models.Identity{}
	s.mu.Unlock()
	err := s.p.DeleteSettings(ctx, KeyToken, KeyIdentity)
	if active {
		s.emit(Event{Kind: EventLoggedOut, Identity: prev})
	}
	if err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// Identity is the signed-in viewer. A session whose JWT credential has
// expired reports no identity.
func (s *Store) Identity() (models.Identity, bool) {
	s.mu.RLock()
	token, id := s.token, s.identity
	s.mu.RUnlock()
	if token == "" || s.expired(token) {
		return models.Identity{}, false
	}
	return id, true
}

// Active is Identity for request paths: an expired session is also cleared,
// so storage and subscribers see the logout.
func (s *Store) Active(ctx context.Context) (models.Identity, bool) {
	s.mu.RLock()
	token, id := s.token, s.identity
	s.mu.RUnlock()
	if token == "" {
		return models.Identity{}, false
	}
	if !s.expired(token) {
		return id, true
	}
	log.Printf("session expired email=%s reason=credential_expired", id.Email)
	if err := s.Clear(ctx); err != nil {
		log.Printf("session clear failed error=%q", err.Error())
	}
	return models.Identity{}, false
}

func (s *Store) expired(token string) bool {
	exp, ok := ExpiresAt(token)
	return ok && !s.now().Before(exp)
}

// Credential returns the raw bearer credential. A JWT whose exp has passed
// yields ErrExpired; opaque credentials never expire here.
func (s *Store) Credential() (string, error) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token == "" {
		return "", ErrNoSession
	}
	if s.expired(token) {
		return "", ErrExpired
	}
	return token, nil
}

// AuthHeader returns the Authorization header value for the current session.
func (s *Store) AuthHeader() (string, bool) {
	token, err := s.Credential()
	if err != nil {
		return "", false
	}
	return "Bearer " + token, true
}

// ExpiresAt reads the exp claim without verifying the signature.
func ExpiresAt(token string) (time.Time, bool) {
	var claims jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return time.Time{}, false
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, false
	}
	return claims.ExpiresAt.Time, true
}

func (s *Store) emit(ev Event) {
	s.obsMu.Lock()
	obs := append([]func(Event){}, s.observers...)
	s.obsMu.Unlock()
	for _, fn := range obs {
		fn(ev)
	}
}

type memoryPersister struct {
	mu sync.Mutex
	kv map[string]string
}

func (m *memoryPersister) GetSettings(_ context.Context, keys ...string) (map[string]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]string{}
	for _, k := range keys {
		if v, ok := m.kv[k]; ok {
			out[k] = v
		}
	}
	return out, nil
}

func (m *memoryPersister) PutSettings(_ context.Context, kv map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, v := range kv {
		m.kv[k] = v
	}
	return nil
}

func (m *memoryPersister) DeleteSettings(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.kv, k)
	}
	return nil
}
