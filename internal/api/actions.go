package api

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"messagemaster/internal/gateway"
	"messagemaster/internal/middleware"
	"messagemaster/internal/models"
	"messagemaster/internal/service"
	"messagemaster/internal/util"
)

var errUploadTooLarge = errors.New("upload exceeds size limit")

// parseUpload reads a multipart form. Plain url-encoded bodies are accepted too.
func parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadTotalBytes)
	var err error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		err = r.ParseMultipartForm(8 << 20)
	} else {
		err = r.ParseForm()
	}
	if err != nil {
		util.WriteError(w, http.StatusBadRequest, "bad_request", "invalid form body", middleware.RequestID(r.Context()))
		return false
	}
	return true
}

func formFiles(r *http.Request, field string) ([]gateway.File, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	var out []gateway.File
	for _, fh := range r.MultipartForm.File[field] {
		f, err := readPart(field, fh)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

func formFile(r *http.Request, field string) (*gateway.File, error) {
	fs, err := formFiles(r, field)
	if err != nil || len(fs) == 0 {
		return nil, err
	}
	return &fs[0], nil
}

func readPart(field string, fh *multipart.FileHeader) (gateway.File, error) {
	if fh.Size > maxUploadFileBytes {
		return gateway.File{}, errUploadTooLarge
	}
	f, err := fh.Open()
	if err != nil {
		return gateway.File{}, err
	}
	defer f.Close()
	b, err := io.ReadAll(io.LimitReader(f, maxUploadFileBytes+1))
	if err != nil {
		return gateway.File{}, err
	}
	if len(b) > maxUploadFileBytes {
		return gateway.File{}, errUploadTooLarge
	}
	return gateway.File{Field: field, Name: fh.Filename, ContentType: fh.Header.Get("Content-Type"), Data: b}, nil
}

func (h *Handlers) uploadFailed(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, errUploadTooLarge) {
		util.WriteError(w, http.StatusRequestEntityTooLarge, "upload_too_large", "Each file must be 25 MB or smaller.", middleware.RequestID(r.Context()))
		return
	}
	h.fail(w, r, err)
}

func done(h *Handlers, w http.ResponseWriter, r *http.Request, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	var in gateway.NewUser
	if !decodeJSON(w, r, &in) {
		return
	}
	if err := h.svc.CreateUser(r.Context(), viewer(r), in); err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *Handlers) UpdateUser(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	logo, err := formFile(r, "companyLogo")
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	fields := url.Values(r.PostForm)
	if r.MultipartForm != nil {
		fields = url.Values(r.MultipartForm.Value)
	}
	done(h, w, r, h.svc.UpdateUser(r.Context(), viewer(r), chi.URLParam(r, "id"), fields, logo))
}

func (h *Handlers) ToggleUserStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.UserStatus `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	next, err := h.svc.ToggleUserStatus(r.Context(), viewer(r), chi.URLParam(r, "id"), req.Status)
	respond(h, w, r, map[string]models.UserStatus{"status": next}, err)
}

func (h *Handlers) AddCredit(w http.ResponseWriter, r *http.Request) {
	var in gateway.NewCredit
	if !decodeJSON(w, r, &in) {
		return
	}
	tx, err := h.svc.AddCredit(r.Context(), viewer(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, tx)
}

func (h *Handlers) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	in := service.NewCampaign{
		UserEmail:      r.FormValue("userEmail"),
		CreditType:     r.FormValue("creditType"),
		Message:        r.FormValue("message"),
		RecipientsText: r.FormValue("to"),
		CTACall:        r.FormValue("ctaCall"),
		CTACallText:    r.FormValue("ctaCallText"),
		CTAURL:         r.FormValue("ctaURL"),
		CTAURLText:     r.FormValue("ctaURLText"),
		CountryName:    r.FormValue("countryName"),
		CountryCode:    r.FormValue("countryCode"),
	}
	list, err := formFile(r, "recipientFile")
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	if list != nil {
		in.RecipientFile = list.Data
	}
	for _, field := range []string{"dp", "singleCreative", "images", "pdf", "video", "audio"} {
		fs, err := formFiles(r, field)
		if err != nil {
			h.uploadFailed(w, r, err)
			return
		}
		in.Files = append(in.Files, fs...)
	}
	preview, err := h.svc.CreateCampaign(r.Context(), viewer(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, preview)
}

func (h *Handlers) SetCampaignStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	done(h, w, r, h.svc.SetCampaignStatus(r.Context(), viewer(r), chi.URLParam(r, "id"), req.Status))
}

func (h *Handlers) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	done(h, w, r, h.svc.DeleteCampaign(r.Context(), viewer(r), chi.URLParam(r, "id"), r.URL.Query().Get("refundOption")))
}

func (h *Handlers) UploadReport(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	f, err := formFile(r, "reportFile")
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	if f == nil {
		f = &gateway.File{Field: "reportFile"}
	}
	entries, err := h.svc.UploadReport(r.Context(), viewer(r), chi.URLParam(r, "id"), *f)
	respond(h, w, r, map[string]any{"entries": len(entries), "report": entries}, err)
}

func (h *Handlers) RequestCancellation(w http.ResponseWriter, r *http.Request) {
	done(h, w, r, h.svc.RequestCancellation(r.Context(), viewer(r), chi.URLParam(r, "id")))
}

func (h *Handlers) ApproveCancellation(w http.ResponseWriter, r *http.Request) {
	done(h, w, r, h.svc.ApproveCancellation(r.Context(), viewer(r), chi.URLParam(r, "id")))
}

func (h *Handlers) RejectCancellation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	done(h, w, r, h.svc.RejectCancellation(r.Context(), viewer(r), chi.URLParam(r, "id"), req.Reason))
}

func (h *Handlers) CampaignRecipients(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	text, err := h.svc.CampaignRecipients(r.Context(), viewer(r), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	_ = util.WriteAttachment(w, "recipients-"+id+".txt", "text/plain; charset=utf-8", int64(len(text)), strings.NewReader(text))
}

func (h *Handlers) CampaignFile(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.CampaignFile(r.Context(), viewer(r), chi.URLParam(r, "id"), r.URL.Query().Get("path"))
	h.stream(w, r, d, err)
}

func (h *Handlers) stream(w http.ResponseWriter, r *http.Request, d gateway.Download, err error) {
	if err != nil {
		h.fail(w, r, err)
		return
	}
	defer d.Body.Close()
	_ = util.WriteAttachment(w, d.Filename, d.ContentType, d.Size, d.Body)
}

func (h *Handlers) CreateTicket(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	files, err := formFiles(r, "attachments")
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	err = h.svc.CreateTicket(r.Context(), viewer(r), service.NewTicket{
		Subject:            r.FormValue("subject"),
		Description:        r.FormValue("description"),
		IssueType:          r.FormValue("issueType"),
		RelatedCampaign:    r.FormValue("relatedCampaign"),
		RelatedUser:        r.FormValue("relatedUser"),
		RelatedTransaction: r.FormValue("relatedTransaction"),
		Attachments:        files,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *Handlers) ReplyTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.ReplyTicket(r.Context(), viewer(r), chi.URLParam(r, "id"), req.Message)
	respond(h, w, r, t, err)
}

func (h *Handlers) SetTicketStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.SetTicketStatus(r.Context(), viewer(r), chi.URLParam(r, "id"), req.Status)
	respond(h, w, r, t, err)
}

func (h *Handlers) EscalateTicket(w http.ResponseWriter, r *http.Request) {
	done(h, w, r, h.svc.EscalateTicket(r.Context(), viewer(r), chi.URLParam(r, "id")))
}

func (h *Handlers) AssignTicket(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignedTo string `json:"assignedTo"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	t, err := h.svc.AssignTicket(r.Context(), viewer(r), chi.URLParam(r, "id"), req.AssignedTo)
	respond(h, w, r, t, err)
}

func (h *Handlers) TicketAttachment(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.TicketAttachment(r.Context(), viewer(r), chi.URLParam(r, "id"), r.URL.Query().Get("path"))
	h.stream(w, r, d, err)
}

func (h *Handlers) CreateAnnouncement(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	image, err := formFile(r, "image")
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	var targets []string
	if raw := r.FormValue("visibilityTargets"); raw != "" {
		targets = strings.Split(raw, ",")
	}
	err = h.svc.CreateAnnouncement(r.Context(), viewer(r), service.NewAnnouncement{
		Title:      r.FormValue("title"),
		Message:    r.FormValue("message"),
		Link:       r.FormValue("link"),
		ExpiryDate: r.FormValue("expiryDate"),
		Visibility: r.FormValue("visibilityType"),
		Targets:    targets,
		Image:      image,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteJSON(w, http.StatusCreated, map[string]string{"status": "created"})
}

func (h *Handlers) DeleteAnnouncement(w http.ResponseWriter, r *http.Request) {
	done(h, w, r, h.svc.DeleteAnnouncement(r.Context(), viewer(r), chi.URLParam(r, "id")))
}

func (h *Handlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	msg, err := h.svc.ChangePassword(r.Context(), viewer(r), service.PasswordChange{
		Current: req.CurrentPassword,
		New:     req.NewPassword,
		Confirm: req.ConfirmPassword,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, msg)
}

func (h *Handlers) SaveWhitelabel(w http.ResponseWriter, r *http.Request) {
	if !parseUpload(w, r) {
		return
	}
	logo, err := formFile(r, "companyLogo")
	if err != nil {
		h.uploadFailed(w, r, err)
		return
	}
	done(h, w, r, h.svc.SaveWhitelabel(r.Context(), viewer(r), r.FormValue("companyName"), logo))
}

func (h *Handlers) DownloadBackup(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.DownloadBackup(r.Context(), viewer(r))
	h.stream(w, r, d, err)
}

func (h *Handlers) SaveBackupToServer(w http.ResponseWriter, r *http.Request) {
	msg, err := h.svc.SaveBackupToServer(r.Context(), viewer(r))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, msg)
}

func (h *Handlers) CleanupData(w http.ResponseWriter, r *http.Request) {
	var in gateway.CleanupRequest
	if !decodeJSON(w, r, &in) {
		return
	}
	msg, err := h.svc.CleanupData(r.Context(), viewer(r), in)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	util.WriteMessage(w, http.StatusOK, msg)
}
