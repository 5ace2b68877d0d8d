package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"messagemaster/internal/alerts"
	"messagemaster/internal/config"
	"messagemaster/internal/gateway"
	"messagemaster/internal/middleware"
	"messagemaster/internal/policy"
	"messagemaster/internal/rate"
	"messagemaster/internal/service"
	"messagemaster/internal/session"
	"messagemaster/internal/util"
	"messagemaster/internal/version"
)

type Handlers struct {
	cfg     config.Config
	svc     *service.Service
	api     *gateway.Client
	sess    *session.Store
	alerts  *alerts.Poller
	limiter *rate.Limiter
}

type Deps struct {
	Config  config.Config
	Service *service.Service
	Gateway *gateway.Client
	Session *session.Store
	Alerts  *alerts.Poller
}

const (
	maxUploadFileBytes  = 25 << 20
	maxUploadTotalBytes = 60 << 20
)

func NewRouter(d Deps) http.Handler {
	h := &Handlers{
		cfg:     d.Config,
		svc:     d.Service,
		api:     d.Gateway,
		sess:    d.Session,
		alerts:  d.Alerts,
		limiter: rate.NewLimiter(),
	}
	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestIDMiddleware)
	r.Use(middleware.RequestLogger)
	r.Use(middleware.SecurityHeaders)
	if len(h.cfg.CORSAllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   h.cfg.CORSAllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Refresh", "Retry-After", "X-Request-ID"},
			AllowCredentials: true,
		}))
	}

	r.Get("/health/live", h.Health)

	r.With(middleware.RateLimit(h.limiter, "login", 10, time.Minute, h.cfg.TrustProxy)).Post("/login", h.Login)
	r.With(middleware.RateLimit(h.limiter, "forgot_password", 5, time.Minute, h.cfg.TrustProxy)).Post("/forgot-password", h.ForgotPassword)
	r.With(middleware.RateLimit(h.limiter, "reset_password", 10, time.Minute, h.cfg.TrustProxy)).Post("/reset-password", h.ResetPassword)
	r.Get("/unauthorized", h.Unauthorized)
	r.Get("/", h.Home)

	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireSession(h.sess, h.cfg.SessionExpiredDelay))
		r.Use(middleware.CSRFFromCookie(h.cfg.CSRFCookieName))

		r.Post("/logout", h.Logout)
		r.Get("/shell", h.Shell)
		r.Get("/alerts", h.Alerts)
		r.Post("/alerts/announcements/{id}/seen", h.MarkAnnouncementSeen)
		r.Post("/alerts/notifications/{id}/read", h.MarkNotificationRead)

		page := func(route policy.RouteID, fn func(chi.Router)) {
			r.Route("/"+string(route), func(r chi.Router) {
				r.Use(middleware.Guard(route))
				fn(r)
			})
		}
		page(policy.RouteAdminDashboard, func(r chi.Router) { r.Get("/", h.AdminDashboard) })
		page(policy.RouteResellerDashboard, func(r chi.Router) { r.Get("/", h.ResellerDashboard) })
		page(policy.RouteSubResellerDashboard, func(r chi.Router) { r.Get("/", h.SubResellerDashboard) })
		page(policy.RouteUserDashboard, func(r chi.Router) { r.Get("/", h.UserDashboard) })
		page(policy.RouteUsers, func(r chi.Router) {
			r.Get("/", h.Users)
			r.Post("/", h.CreateUser)
			r.Get("/credits", h.UserCredits)
			r.Put("/{id}", h.UpdateUser)
			r.Post("/{id}/toggle-status", h.ToggleUserStatus)
		})
		page(policy.RouteCredits, func(r chi.Router) {
			r.Get("/", h.Credits)
			r.Post("/", h.AddCredit)
		})
		page(policy.RouteCampaigns, func(r chi.Router) {
			r.Get("/", h.Campaigns)
			r.Post("/", h.CreateCampaign)
			r.Put("/{id}/status", h.SetCampaignStatus)
			r.Delete("/{id}", h.DeleteCampaign)
			r.Post("/{id}/report", h.UploadReport)
			r.Post("/{id}/request-cancellation", h.RequestCancellation)
			r.Post("/{id}/cancellation/approve", h.ApproveCancellation)
			r.Post("/{id}/cancellation/reject", h.RejectCancellation)
			r.Get("/{id}/recipients", h.CampaignRecipients)
			r.Get("/{id}/file", h.CampaignFile)
		})
		page(policy.RouteReports, func(r chi.Router) { r.Get("/", h.Reports) })
		page(policy.RouteHistory, func(r chi.Router) {
			r.Get("/", h.History)
			r.Get("/export.csv", h.HistoryExport)
		})
		page(policy.RouteAnalytics, func(r chi.Router) { r.Get("/", h.Analytics) })
		page(policy.RouteTickets, func(r chi.Router) {
			r.Get("/", h.Tickets)
			r.Post("/", h.CreateTicket)
			r.Post("/{id}/reply", h.ReplyTicket)
			r.Put("/{id}/status", h.SetTicketStatus)
			r.Post("/{id}/escalate", h.EscalateTicket)
			r.Put("/{id}/assign", h.AssignTicket)
			r.Get("/{id}/attachment", h.TicketAttachment)
		})
		page(policy.RouteAdminAnnouncements, func(r chi.Router) {
			r.Get("/", h.AnnouncementsAdmin)
			r.Post("/", h.CreateAnnouncement)
			r.Get("/{id}/status", h.AnnouncementStatus)
			r.Delete("/{id}", h.DeleteAnnouncement)
		})
		page(policy.RouteAnnouncementsHistory, func(r chi.Router) { r.Get("/", h.AnnouncementsHistory) })
		page(policy.RouteProfile, func(r chi.Router) {
			r.Put("/password", h.ChangePassword)
			r.Get("/{userId}", h.Profile)
		})
		page(policy.RouteWhitelabel, func(r chi.Router) {
			r.Get("/", h.Whitelabel)
			r.Post("/", h.SaveWhitelabel)
		})
		page(policy.RouteBackup, func(r chi.Router) {
			r.Get("/", h.Backup)
			r.Get("/download", h.DownloadBackup)
			r.Post("/save-to-server", h.SaveBackupToServer)
			r.Delete("/cleanup", h.CleanupData)
		})
		page(policy.RouteStorage, func(r chi.Router) { r.Get("/", h.Storage) })
	})

	return r
}

// writeErr turns a service or gateway failure into the console's error body.
type healthResponse struct {
	Status        string       `json:"status"`
	Build         version.Info `json:"build"`
	Backend       string       `json:"backend"`
	SignedIn      bool         `json:"signed_in"`
	AlertsRunning bool         `json:"alerts_running"`
}

// Health reports the build and the console's own state; it never calls the backend.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	_, signedIn := h.sess.Identity()
	util.WriteJSON(w, 200, healthResponse{
		Status:        "ok",
		Build:         version.Current(),
		Backend:       h.cfg.APIBaseURL,
		SignedIn:      signedIn,
		AlertsRunning: h.alerts.Running(),
	})
}

func writeErr(w http.ResponseWriter, r *http.Request, err error, refreshSec int) {
	rid := middleware.RequestID(r.Context())
	var (
		v      *service.ValidationError
		apiErr *gateway.APIError
		netErr *gateway.NetworkError
	)
	switch {
	case errors.As(err, &v):
		util.WriteError(w, http.StatusBadRequest, "validation_failed", v.Message, rid)
	case errors.Is(err, policy.ErrForbidden):
		middleware.Forbidden(w, r)
	case errors.Is(err, gateway.ErrSessionExpired), errors.Is(err, gateway.ErrNotAuthenticated):
		middleware.SessionExpired(w, r, refreshSec)
	case errors.Is(err, gateway.ErrInvalidCredentials):
		util.WriteError(w, http.StatusUnauthorized, "invalid_credentials", "Invalid email or password.", rid)
	case errors.Is(err, service.ErrCampaignNotFound), errors.Is(err, service.ErrTicketNotFound):
		util.WriteError(w, http.StatusNotFound, "not_found", err.Error(), rid)
	case errors.As(err, &apiErr):
		util.WriteError(w, apiErr.Status, "backend_error", apiErr.Message, rid)
	case errors.As(err, &netErr):
		util.WriteError(w, http.StatusBadGateway, "upstream_unavailable", "The MessageMaster service could not be reached. Please try again.", rid)
	default:
		log.Printf("handler error path=%s request_id=%s error=%q", r.URL.Path, rid, err.Error())
		util.WriteError(w, http.StatusInternalServerError, "internal_error", "internal error", rid)
	}
}

func (h *Handlers) fail(w http.ResponseWriter, r *http.Request, err error) {
	writeErr(w, r, err, h.cfg.SessionExpiredDelay)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid json", middleware.RequestID(r.Context()))
		return false
	}
	return true
}

func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
