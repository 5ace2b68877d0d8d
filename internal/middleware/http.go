package middleware

import (
	"context"
	"crypto/subtle"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"messagemaster/internal/models"
	"messagemaster/internal/policy"
	"messagemaster/internal/rate"
	"messagemaster/internal/util"
)

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()
		r = r.WithContext(WithRequestID(r.Context(), rid))
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// IdentitySource is the read side of the session. Active reports no
// identity once the credential has expired.
type IdentitySource interface {
	Active(ctx context.Context) (models.Identity, bool)
}

// RequireSession admits requests only while a session is present. Browsers
// are sent to the login page; API callers get 401 with a Refresh hint so a
// client can show the expiry notice before moving on.
func RequireSession(src IdentitySource, refreshSec int) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := src.Active(r.Context())
			if !ok {
				SessionExpired(w, r, refreshSec)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// SessionExpired answers a request that arrived, or ended up, without a session.
func SessionExpired(w http.ResponseWriter, r *http.Request, refreshSec int) {
	login := policy.Path(policy.RouteLogin, "")
	if wantsHTML(r) {
		http.Redirect(w, r, login, http.StatusFound)
		return
	}
	w.Header().Set("Refresh", strconv.Itoa(refreshSec)+"; url="+login)
	util.WriteError(w, http.StatusUnauthorized, "session_expired", "Your session has expired. Please log in again.", RequestID(r.Context()))
}

// Guard lets the request through only when the viewer's role may open route.
// It must run after RequireSession.
func Guard(route policy.RouteID) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, _ := Identity(r.Context())
			if !policy.CanAccess(id.Role, route) {
				log.Printf("route denied route=%s role=%q user=%s request_id=%s", route, id.Role, id.Email, RequestID(r.Context()))
				Forbidden(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func Forbidden(w http.ResponseWriter, r *http.Request) {
	if wantsHTML(r) {
		http.Redirect(w, r, policy.Path(policy.RouteUnauthorized, ""), http.StatusFound)
		return
	}
	util.WriteError(w, http.StatusForbidden, "forbidden", "You are not allowed to open this page.", RequestID(r.Context()))
}

func wantsHTML(r *http.Request) bool {
	return r.Method == http.MethodGet && strings.Contains(r.Header.Get("Accept"), "text/html")
}

func CSRFFromCookie(cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h := r.Header.Get("X-CSRF-Token")
			c, err := r.Cookie(cookieName)
			if err != nil || c.Value == "" || h == "" {
				util.WriteError(w, http.StatusForbidden, "csrf_failed", "missing csrf token", RequestID(r.Context()))
				return
			}
			if subtle.ConstantTimeCompare([]byte(h), []byte(c.Value)) != 1 {
				util.WriteError(w, http.StatusForbidden, "csrf_failed", "invalid csrf token", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func RateLimit(l *rate.Limiter, route string, limit int, window time.Duration, trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := route + ":" + ClientIP(r, trustProxy)
			ok, retry := l.Allow(key, limit, window)
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
				util.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", RequestID(r.Context()))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(sr, r)
		rid := RequestID(r.Context())
		log.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s remote_ip=%s",
			r.Method, r.URL.Path, sr.status, time.Since(start).Milliseconds(), rid, ClientIP(r, false))
	})
}
