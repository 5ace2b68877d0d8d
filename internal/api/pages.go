package api

import (
	"bytes"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"messagemaster/internal/campaign"
	"messagemaster/internal/ledger"
	"messagemaster/internal/middleware"
	"messagemaster/internal/models"
	"messagemaster/internal/service"
	"messagemaster/internal/util"
)

// respond writes v, or the mapped error when err is set.
func respond[T any](h *Handlers, w http.ResponseWriter, r *http.Request, v T, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, v)
}

func viewer(r *http.Request) models.Identity {
	id, _ := middleware.Identity(r.Context())
	return id
}

func dateRange(r *http.Request) (models.DateRange, error) {
	q := r.URL.Query()
	rng, err := models.ParseDateRange(q.Get("from"), q.Get("to"))
	if err != nil {
		return models.DateRange{}, &service.ValidationError{Field: "from", Message: err.Error()}
	}
	return rng, nil
}

func ledgerFilter(r *http.Request) (ledger.Filter, error) {
	rng, err := dateRange(r)
	if err != nil {
		return ledger.Filter{}, err
	}
	q := r.URL.Query()
	return ledger.Filter{
		User:       strings.TrimSpace(q.Get("user")),
		CreditType: q.Get("creditType"),
		Type:       models.TxType(q.Get("type")),
		Range:      rng,
		Search:     q.Get("search"),
	}, nil
}

func campaignFilter(r *http.Request) (campaign.Filter, error) {
	rng, err := dateRange(r)
	if err != nil {
		return campaign.Filter{}, err
	}
	q := r.URL.Query()
	return campaign.Filter{
		User:       strings.TrimSpace(q.Get("user")),
		Status:     q.Get("status"),
		CreditType: q.Get("creditType"),
		Range:      rng,
		Search:     q.Get("search"),
	}, nil
}

func (h *Handlers) AdminDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.AdminDashboard(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) ResellerDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.ResellerDashboard(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) SubResellerDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.SubResellerDashboard(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) UserDashboard(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.UserDashboard(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) Users(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.svc.Users(r.Context(), viewer(r), service.UserFilter{
		Search: q.Get("search"),
		Status: q.Get("status"),
		Role:   models.Role(q.Get("role")),
	})
	respond(h, w, r, v, err)
}

func (h *Handlers) UserCredits(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.UserCredits(r.Context(), viewer(r), r.URL.Query().Get("email"))
	respond(h, w, r, v, err)
}

func (h *Handlers) Credits(w http.ResponseWriter, r *http.Request) {
	f, err := ledgerFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.Credits(r.Context(), viewer(r), f, queryInt(r, "page"))
	respond(h, w, r, v, err)
}

func (h *Handlers) Campaigns(w http.ResponseWriter, r *http.Request) {
	f, err := campaignFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.Campaigns(r.Context(), viewer(r), f)
	respond(h, w, r, v, err)
}

func (h *Handlers) Reports(w http.ResponseWriter, r *http.Request) {
	lf, err := ledgerFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	cf, _ := campaignFilter(r)
	v, err := h.svc.Reports(r.Context(), viewer(r), service.ReportQuery{
		Credits:       lf,
		Campaigns:     cf,
		CreditsPage:   queryInt(r, "creditsPage"),
		CampaignsPage: queryInt(r, "campaignsPage"),
	})
	respond(h, w, r, v, err)
}

func (h *Handlers) History(w http.ResponseWriter, r *http.Request) {
	f, err := ledgerFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.History(r.Context(), viewer(r), f)
	respond(h, w, r, v, err)
}

func (h *Handlers) HistoryExport(w http.ResponseWriter, r *http.Request) {
	f, err := ledgerFilter(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	v, err := h.svc.History(r.Context(), viewer(r), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	b, err := service.HistoryCSV(v.Transactions)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = util.WriteAttachment(w, "history.csv", "text/csv", int64(len(b)), bytes.NewReader(b))
}

func (h *Handlers) Analytics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	v, err := h.svc.Analytics(r.Context(), viewer(r), service.AnalyticsQuery{
		From:      q.Get("from"),
		To:        q.Get("to"),
		UserEmail: q.Get("user"),
	})
	respond(h, w, r, v, err)
}

func (h *Handlers) Tickets(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Tickets(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) AnnouncementsAdmin(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.AnnouncementsAdmin(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) AnnouncementStatus(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.AnnouncementStatus(r.Context(), viewer(r), chi.URLParam(r, "id"))
	respond(h, w, r, v, err)
}

func (h *Handlers) AnnouncementsHistory(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.AnnouncementsHistory(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) Profile(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Profile(r.Context(), viewer(r), chi.URLParam(r, "userId"))
	respond(h, w, r, v, err)
}

func (h *Handlers) Whitelabel(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Whitelabel(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}

func (h *Handlers) Backup(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]any{"cleanup_types": service.CleanupTypes})
}

func (h *Handlers) Storage(w http.ResponseWriter, r *http.Request) {
	v, err := h.svc.Storage(r.Context(), viewer(r))
	respond(h, w, r, v, err)
}
