package api

import (
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"messagemaster/internal/auth"
	"messagemaster/internal/gateway"
	"messagemaster/internal/middleware"
	"messagemaster/internal/policy"
	"messagemaster/internal/service"
	"messagemaster/internal/util"
)

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	id, err := h.api.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, gateway.ErrInvalidCredentials) {
			log.Printf("login rejected email=%s request_id=%s", strings.ToLower(strings.TrimSpace(req.Email)), middleware.RequestID(r.Context()))
		}
		h.fail(w, r, err)
		return
	}
	csrfToken, fingerprint, err := auth.NewCSRFToken()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.setCSRFCookie(w, csrfToken)
	log.Printf("console session opened email=%s role=%s csrf=%s", id.Email, id.Role, fingerprint)
	util.WriteJSON(w, 200, map[string]any{
		"identity":   id,
		"home":       policy.DefaultRouteFor(id.Role),
		"csrf_token": csrfToken,
	})
}

func (h *Handlers) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.api.Logout(r.Context()); err != nil {
		h.fail(w, r, err)
		return
	}
	h.clearCSRFCookie(w)
	util.WriteJSON(w, 200, map[string]string{"status": "ok", "redirect": policy.Path(policy.RouteLogin, "")})
}

func (h *Handlers) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		h.fail(w, r, &service.ValidationError{Field: "email", Message: "Please enter your email address."})
		return
	}
	msg, err := h.api.ForgotPassword(r.Context(), req.Email)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteMessage(w, 200, msg)
}

func (h *Handlers) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email           string `json:"email"`
		OTP             string `json:"otp"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	switch {
	case strings.TrimSpace(req.OTP) == "":
		h.fail(w, r, &service.ValidationError{Field: "otp", Message: "Please enter the OTP sent to your email."})
		return
	case req.NewPassword == "":
		h.fail(w, r, &service.ValidationError{Field: "newPassword", Message: "New password is required."})
		return
	case req.ConfirmPassword != "" && req.ConfirmPassword != req.NewPassword:
		h.fail(w, r, &service.ValidationError{Field: "confirmPassword", Message: "Passwords do not match."})
		return
	}
	msg, err := h.api.ResetPassword(r.Context(), req.Email, req.OTP, req.NewPassword)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteMessage(w, 200, msg)
}

// Home sends a signed-in viewer to their dashboard and everyone else to login.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	target := policy.Path(policy.RouteLogin, "")
	if id, ok := h.sess.Active(r.Context()); ok {
		target = policy.DefaultRouteFor(id.Role)
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handlers) Unauthorized(w http.ResponseWriter, r *http.Request) {
	home := policy.Path(policy.RouteLogin, "")
	if id, ok := h.sess.Active(r.Context()); ok {
		home = policy.DefaultRouteFor(id.Role)
	}
	util.WriteJSON(w, http.StatusForbidden, map[string]string{
		"code":    "unauthorized",
		"message": "You do not have permission to view this page.",
		"home":    home,
	})
}

type shellResponse struct {
	service.ShellView
	Unread int `json:"unread"`
}

func (h *Handlers) Shell(w http.ResponseWriter, r *http.Request) {
	id, _ := middleware.Identity(r.Context())
	view, err := h.svc.Shell(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, 200, shellResponse{ShellView: view, Unread: h.alerts.Snapshot().Unread})
}

func (h *Handlers) Alerts(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("refresh") == "1" {
		snap, err := h.alerts.PollNow(r.Context())
		if err != nil {
			h.fail(w, r, err)
			return
		}
		util.WriteJSON(w, 200, snap)
		return
	}
	util.WriteJSON(w, 200, h.alerts.Snapshot())
}

func (h *Handlers) MarkAnnouncementSeen(w http.ResponseWriter, r *http.Request) {
	snap, err := h.alerts.MarkAnnouncementSeen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, 200, snap)
}

func (h *Handlers) MarkNotificationRead(w http.ResponseWriter, r *http.Request) {
	link, snap, err := h.alerts.MarkNotificationRead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, 200, map[string]any{"link": link, "alerts": snap})
}

func (h *Handlers) setCSRFCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CSRFCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	})
}

func (h *Handlers) clearCSRFCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     h.cfg.CSRFCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: false,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   -1,
		Expires:  time.Unix(1, 0).UTC(),
	})
}
