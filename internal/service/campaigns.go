package service

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strings"

	"messagemaster/internal/campaign"
	"messagemaster/internal/gateway"
	"messagemaster/internal/ledger"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

var ErrCampaignNotFound = errors.New("campaign not found")

type CampaignRow struct {
	models.Campaign
	Recipients     int                   `json:"recipients"`
	Delivered      int                   `json:"delivered"`
	Failed         int                   `json:"failed"`
	CreatedByLabel string                `json:"created_by_label"`
	Actions        campaign.Actions      `json:"actions"`
	Attachments    []campaign.Attachment `json:"attachments"`
}

// Beneficiary is one entry in the "campaign for" picker.
type Beneficiary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	OwnNumber string `json:"ownNumber,omitempty"`
}

type CampaignsView struct {
	Campaigns     []CampaignRow `json:"campaigns"`
	Beneficiaries []Beneficiary `json:"beneficiaries"`
	CreditTypes   []string      `json:"credit_types"`
	Statuses      []string      `json:"statuses"`
	CanCreate     bool          `json:"can_create"`
}

func (s *Service) Campaigns(ctx context.Context, viewer models.Identity, f campaign.Filter) (CampaignsView, error) {
	if err := requireRoute(viewer, policy.RouteCampaigns); err != nil {
		return CampaignsView{}, err
	}
	var (
		campaigns []models.Campaign
		users     []models.User
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			campaigns, err = s.api.ListCampaigns(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
	)
	if err != nil {
		return CampaignsView{}, err
	}
	filtered := recentCampaigns(f.Apply(campaigns), 0)
	rows := make([]CampaignRow, 0, len(filtered))
	for _, c := range filtered {
		rows = append(rows, campaignRow(viewer, c))
	}
	return CampaignsView{
		Campaigns:     rows,
		Beneficiaries: beneficiaries(viewer, users),
		CreditTypes:   campaign.CreditTypes,
		Statuses:      campaign.Statuses,
		CanCreate:     policy.Can(viewer.Role, policy.ActionCreateCampaign),
	}, nil
}

func campaignRow(viewer models.Identity, c models.Campaign) CampaignRow {
	delivered, failed := campaign.DeliveryCounts(c.Report)
	return CampaignRow{
		Campaign:       c,
		Recipients:     c.RecipientCount(),
		Delivered:      delivered,
		Failed:         failed,
		CreatedByLabel: campaign.CreatedByLabel(c),
		Actions:        campaign.ActionsFor(viewer.Role, c),
		Attachments:    campaign.Attachments(c),
	}
}

// beneficiaries lists the viewer first, then every active managed account.
func beneficiaries(viewer models.Identity, users []models.User) []Beneficiary {
	out := []Beneficiary{{ID: viewer.ID, Name: viewer.Name + " (Self)", Email: viewer.Email, OwnNumber: viewer.OwnNumber}}
	for _, u := range users {
		if u.Status != models.UserActive || strings.EqualFold(u.Email, viewer.Email) {
			continue
		}
		out = append(out, Beneficiary{ID: u.ID, Name: u.Name, Email: u.Email, OwnNumber: u.OwnNumber})
	}
	return out
}

func recentCampaigns(cs []models.Campaign, n int) []models.Campaign {
	out := append([]models.Campaign(nil), cs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Uploads a campaign may carry, keyed by multipart field.
var creativeFields = map[string]bool{
	"dp": true, "singleCreative": true, "images": true, "pdf": true, "video": true, "audio": true,
}

type NewCampaign struct {
	UserEmail      string
	CreditType     string
	Message        string
	RecipientsText string
	RecipientFile  []byte
	CTACall        string
	CTACallText    string
	CTAURL         string
	CTAURLText     string
	CountryName    string
	CountryCode    string
	Files          []gateway.File
}

// CampaignPreview is what CreateCampaign computed before submitting.
type CampaignPreview struct {
	Recipients []string `json:"recipients"`
	Balance    int64    `json:"balance"`
}

// CreateCampaign validates the form, runs the advisory balance check for the
// beneficiary and posts the campaign. The balance can still be spent by
// someone else before the backend processes the request.
func (s *Service) CreateCampaign(ctx context.Context, viewer models.Identity, in NewCampaign) (CampaignPreview, error) {
	if err := policy.Require(viewer.Role, policy.ActionCreateCampaign); err != nil {
		return CampaignPreview{}, err
	}
	in.UserEmail = strings.TrimSpace(in.UserEmail)
	if err := required("userEmail", in.UserEmail, "Please select a user before submitting."); err != nil {
		return CampaignPreview{}, err
	}
	if !campaign.KnownCreditType(in.CreditType) {
		return CampaignPreview{}, invalid("creditType", "Please choose a valid message type.")
	}
	recipients := campaign.ParseRecipients(in.RecipientsText)
	if len(in.RecipientFile) > 0 {
		fromFile, err := campaign.ParseRecipientFile(in.RecipientFile)
		if errors.Is(err, campaign.ErrLegacyWorkbook) {
			return CampaignPreview{}, invalid("recipientFile", "Excel 97-2003 (.xls) files cannot be read. Please save the list as .xlsx or CSV.")
		}
		if err != nil {
			return CampaignPreview{}, invalid("recipientFile", "Could not read the file. Please ensure it's a valid CSV or Excel file.")
		}
		recipients = campaign.MergeRecipients(recipients, fromFile)
	}
	if len(recipients) == 0 {
		return CampaignPreview{}, invalid("to", "Please add at least one recipient.")
	}

	credits, err := s.api.ListCredits(ctx, gateway.UserScope{})
	if err != nil {
		return CampaignPreview{}, err
	}
	preview := CampaignPreview{Balance: ledger.Balance(credits, in.UserEmail, in.CreditType)}
	if err := ledger.CheckSufficient(credits, in.UserEmail, in.CreditType, len(recipients)); err != nil {
		return preview, invalid("to", err.Error())
	}

	final := campaign.ApplyCountryCode(recipients, in.CreditType, in.CountryCode)
	preview.Recipients = final
	fields := url.Values{}
	for k, v := range map[string]string{
		"userEmail":   in.UserEmail,
		"creditType":  in.CreditType,
		"message":     in.Message,
		"ctaCall":     in.CTACall,
		"ctaCallText": in.CTACallText,
		"ctaURL":      in.CTAURL,
		"ctaURLText":  in.CTAURLText,
		"countryName": in.CountryName,
		"countryCode": in.CountryCode,
	} {
		if strings.TrimSpace(v) != "" {
			fields.Set(k, v)
		}
	}
	fields.Set("to", strings.Join(final, ","))

	files := make([]gateway.File, 0, len(in.Files))
	for _, f := range in.Files {
		if creativeFields[f.Field] {
			files = append(files, f)
		}
	}
	err = s.api.CreateCampaign(ctx, fields, files)
	logAction(viewer, "campaign.create", in.UserEmail, err)
	return preview, err
}

// findCampaign re-reads the list so action checks use the backend's current status.
func (s *Service) findCampaign(ctx context.Context, id string) (models.Campaign, error) {
	cs, err := s.api.ListCampaigns(ctx, gateway.UserScope{})
	if err != nil {
		return models.Campaign{}, err
	}
	for _, c := range cs {
		if c.ID == id {
			return c, nil
		}
	}
	return models.Campaign{}, ErrCampaignNotFound
}

func (s *Service) campaignAction(ctx context.Context, viewer models.Identity, id string, allowed func(campaign.Actions) bool) (models.Campaign, error) {
	c, err := s.findCampaign(ctx, id)
	if err != nil {
		return models.Campaign{}, err
	}
	if !allowed(campaign.ActionsFor(viewer.Role, c)) {
		return c, policy.ErrForbidden
	}
	return c, nil
}

func (s *Service) SetCampaignStatus(ctx context.Context, viewer models.Identity, id, status string) error {
	if !campaign.KnownStatus(status) {
		return invalid("status", "Unknown campaign status.")
	}
	if _, err := s.campaignAction(ctx, viewer, id, func(a campaign.Actions) bool { return a.ChangeStatus }); err != nil {
		return err
	}
	err := s.api.SetCampaignStatus(ctx, id, status)
	logAction(viewer, "campaign.status", id, err)
	return err
}

func (s *Service) DeleteCampaign(ctx context.Context, viewer models.Identity, id, refund string) error {
	opt, err := campaign.ParseRefundOption(refund)
	if err != nil {
		return invalid("refundOption", err.Error())
	}
	if _, err := s.campaignAction(ctx, viewer, id, func(a campaign.Actions) bool { return a.Delete }); err != nil {
		return err
	}
	err = s.api.DeleteCampaign(ctx, id, string(opt))
	logAction(viewer, "campaign.delete", id, err)
	return err
}

// UploadReport checks the CSV parses before sending it and returns the parsed entries.
func (s *Service) UploadReport(ctx context.Context, viewer models.Identity, id string, file gateway.File) ([]models.ReportEntry, error) {
	if len(file.Data) == 0 {
		return nil, invalid("reportFile", "Please select a report file to upload.")
	}
	entries, err := campaign.ParseReportCSV(file.Data)
	if err != nil {
		return nil, invalid("reportFile", err.Error())
	}
	if _, err := s.campaignAction(ctx, viewer, id, func(a campaign.Actions) bool { return a.UploadReport || a.ReplaceReport }); err != nil {
		return nil, err
	}
	err = s.api.UploadReport(ctx, id, file)
	logAction(viewer, "campaign.report", id, err)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *Service) RequestCancellation(ctx context.Context, viewer models.Identity, id string) error {
	if _, err := s.campaignAction(ctx, viewer, id, func(a campaign.Actions) bool { return a.RequestCancel }); err != nil {
		return err
	}
	err := s.api.RequestCancellation(ctx, id)
	logAction(viewer, "campaign.request_cancel", id, err)
	return err
}

func (s *Service) ApproveCancellation(ctx context.Context, viewer models.Identity, id string) error {
	if _, err := s.campaignAction(ctx, viewer, id, func(a campaign.Actions) bool { return a.ApproveCancel }); err != nil {
		return err
	}
	err := s.api.HandleCancellation(ctx, id, true, "")
	logAction(viewer, "campaign.approve_cancel", id, err)
	return err
}

func (s *Service) RejectCancellation(ctx context.Context, viewer models.Identity, id, reason string) error {
	reason, err := campaign.RejectionReason(reason)
	if err != nil {
		return invalid("reason", err.Error())
	}
	if _, err := s.campaignAction(ctx, viewer, id, func(a campaign.Actions) bool { return a.RejectCancel }); err != nil {
		return err
	}
	err = s.api.HandleCancellation(ctx, id, false, reason)
	logAction(viewer, "campaign.reject_cancel", id, err)
	return err
}

// CampaignRecipients is the one-per-line recipient export.
func (s *Service) CampaignRecipients(ctx context.Context, viewer models.Identity, id string) (string, error) {
	if err := requireRoute(viewer, policy.RouteCampaigns); err != nil {
		return "", err
	}
	c, err := s.findCampaign(ctx, id)
	if err != nil {
		return "", err
	}
	return campaign.RecipientsText(c.To), nil
}

// CampaignFile streams one creative. Only paths the campaign references are fetched.
func (s *Service) CampaignFile(ctx context.Context, viewer models.Identity, id, path string) (gateway.Download, error) {
	if err := requireRoute(viewer, policy.RouteCampaigns); err != nil {
		return gateway.Download{}, err
	}
	c, err := s.findCampaign(ctx, id)
	if err != nil {
		return gateway.Download{}, err
	}
	for _, a := range campaign.Attachments(c) {
		if a.Path == path {
			d, err := s.api.Download(ctx, a.Path)
			if err != nil {
				return gateway.Download{}, err
			}
			d.Filename = a.Filename
			return d, nil
		}
	}
	return gateway.Download{}, ErrCampaignNotFound
}
