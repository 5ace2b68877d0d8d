package gateway

import (
	"context"
	"net/http"
	"net/url"

	"messagemaster/internal/models"
)

func (c *Client) ListCampaigns(ctx context.Context, scope UserScope) ([]models.Campaign, error) {
	var out []models.Campaign
	return out, c.Do(ctx, Request{Path: "/api/campaigns", Query: scope.query(), Out: &out})
}

// CreateCampaign posts the campaign form; fields carries the text inputs
// (to already comma-joined) and files the creatives.
func (c *Client) CreateCampaign(ctx context.Context, fields url.Values, files []File) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/campaigns", Form: fields, Files: files})
}

func (c *Client) SetCampaignStatus(ctx context.Context, id, status string) error {
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/campaigns/status/" + url.PathEscape(id),
		JSON:   map[string]string{"status": status},
	})
}

func (c *Client) DeleteCampaign(ctx context.Context, id, refundOption string) error {
	return c.Do(ctx, Request{
		Method: http.MethodDelete,
		Path:   "/api/campaigns/" + url.PathEscape(id),
		Query:  url.Values{"refundOption": []string{refundOption}},
	})
}

func (c *Client) UploadReport(ctx context.Context, id string, report File) error {
	report.Field = "reportFile"
	if report.ContentType == "" {
		report.ContentType = "text/csv"
	}
	return c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/campaigns/" + url.PathEscape(id) + "/upload-report",
		Form:   url.Values{},
		Files:  []File{report},
	})
}

func (c *Client) RequestCancellation(ctx context.Context, id string) error {
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/campaigns/" + url.PathEscape(id) + "/request-cancellation",
		JSON:   map[string]string{},
	})
}

// HandleCancellation approves (reason ignored) or rejects a cancellation request.
func (c *Client) HandleCancellation(ctx context.Context, id string, approve bool, reason string) error {
	body := map[string]string{"action": "approve"}
	if !approve {
		body = map[string]string{"action": "reject", "reason": reason}
	}
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/campaigns/" + url.PathEscape(id) + "/handle-cancellation",
		JSON:   body,
	})
}
