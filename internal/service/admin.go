package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"messagemaster/internal/gateway"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

// Cleanup targets offered by the data cleanup form.
var CleanupTypes = []string{"campaigns", "users", "transactions"}

type AnalyticsQuery struct {
	From      string
	To        string
	UserEmail string
}

func (q AnalyticsQuery) params() url.Values {
	p := url.Values{}
	if q.From != "" {
		p.Set("from", q.From)
	}
	if q.To != "" {
		p.Set("to", q.To)
	}
	if q.UserEmail != "" {
		p.Set("userEmail", q.UserEmail)
	}
	return p
}

type AnalyticsView struct {
	CreditsTrend  json.RawMessage `json:"credits_trend"`
	CreditTypes   json.RawMessage `json:"credit_types"`
	CampaignTypes json.RawMessage `json:"campaign_types"`
	TopUsers      json.RawMessage `json:"top_users"`
	Users         []models.User   `json:"users"`
}

// Analytics passes the four chart series through unchanged.
func (s *Service) Analytics(ctx context.Context, viewer models.Identity, q AnalyticsQuery) (AnalyticsView, error) {
	if err := requireRoute(viewer, policy.RouteAnalytics); err != nil {
		return AnalyticsView{}, err
	}
	if _, err := models.ParseDateRange(q.From, q.To); err != nil {
		return AnalyticsView{}, invalid("from", err.Error())
	}
	p := q.params()
	var v AnalyticsView
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			v.CreditsTrend, err = s.api.Analytics(ctx, gateway.SeriesCreditsTrend, p)
			return
		},
		func(ctx context.Context) (err error) {
			v.CreditTypes, err = s.api.Analytics(ctx, gateway.SeriesCreditTypes, p)
			return
		},
		func(ctx context.Context) (err error) {
			v.CampaignTypes, err = s.api.Analytics(ctx, gateway.SeriesCampaignTypes, p)
			return
		},
		func(ctx context.Context) (err error) {
			v.TopUsers, err = s.api.Analytics(ctx, gateway.SeriesTopUsers, p)
			return
		},
		func(ctx context.Context) (err error) {
			v.Users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
	)
	if err != nil {
		return AnalyticsView{}, err
	}
	return v, nil
}

func (s *Service) Whitelabel(ctx context.Context, viewer models.Identity) (models.Branding, error) {
	if err := requireRoute(viewer, policy.RouteWhitelabel); err != nil {
		return models.Branding{}, err
	}
	return s.api.WhitelabelSettings(ctx)
}

func (s *Service) SaveWhitelabel(ctx context.Context, viewer models.Identity, companyName string, logo *gateway.File) error {
	if err := policy.Require(viewer.Role, policy.ActionEditWhitelabel); err != nil {
		return err
	}
	companyName = strings.TrimSpace(companyName)
	if err := required("companyName", companyName, "Company name is required."); err != nil {
		return err
	}
	if logo != nil && len(logo.Data) == 0 {
		logo = nil
	}
	err := s.api.SaveWhitelabelSettings(ctx, companyName, logo)
	logAction(viewer, "whitelabel.save", companyName, err)
	return err
}

// DownloadBackup asks for a fresh archive and opens it. The caller closes the body.
func (s *Service) DownloadBackup(ctx context.Context, viewer models.Identity) (gateway.Download, error) {
	if err := policy.Require(viewer.Role, policy.ActionManageBackups); err != nil {
		return gateway.Download{}, err
	}
	link, err := s.api.GenerateBackup(ctx)
	if err != nil {
		return gateway.Download{}, err
	}
	if strings.TrimSpace(link) == "" {
		return gateway.Download{}, fmt.Errorf("backend returned no backup download link")
	}
	d, err := s.api.Download(ctx, link)
	logAction(viewer, "backup.download", link, err)
	return d, err
}

func (s *Service) SaveBackupToServer(ctx context.Context, viewer models.Identity) (string, error) {
	if err := policy.Require(viewer.Role, policy.ActionManageBackups); err != nil {
		return "", err
	}
	msg, err := s.api.SaveBackupToServer(ctx)
	logAction(viewer, "backup.save", "server", err)
	return msg, err
}

// CleanupData deletes one data type inside a closed date range.
func (s *Service) CleanupData(ctx context.Context, viewer models.Identity, in gateway.CleanupRequest) (string, error) {
	if err := policy.Require(viewer.Role, policy.ActionCleanupData); err != nil {
		return "", err
	}
	if strings.TrimSpace(in.FromDate) == "" || strings.TrimSpace(in.ToDate) == "" {
		return "", invalid("fromDate", "Please select both a 'from' and 'to' date for cleanup.")
	}
	if _, err := models.ParseDateRange(in.FromDate, in.ToDate); err != nil {
		return "", invalid("fromDate", err.Error())
	}
	known := false
	for _, t := range CleanupTypes {
		known = known || t == in.DataType
	}
	if !known {
		return "", invalid("dataType", "Unknown data type "+in.DataType+".")
	}
	msg, err := s.api.CleanupData(ctx, in)
	logAction(viewer, "data.cleanup", in.DataType+" "+in.FromDate+".."+in.ToDate, err)
	return msg, err
}

type StorageView struct {
	Usage   models.StorageUsage `json:"usage"`
	TotalMB string              `json:"total_mb"`
}

func (s *Service) Storage(ctx context.Context, viewer models.Identity) (StorageView, error) {
	if err := requireRoute(viewer, policy.RouteStorage); err != nil {
		return StorageView{}, err
	}
	u, err := s.api.StorageUsage(ctx)
	if err != nil {
		return StorageView{}, err
	}
	return StorageView{
		Usage:   u,
		TotalMB: fmt.Sprintf("%.2f", float64(u.FileStorage.Megabytes+u.DatabaseStorage.Megabytes)),
	}, nil
}
