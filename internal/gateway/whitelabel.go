package gateway

import (
	"context"
	"net/http"
	"net/url"

	"messagemaster/internal/models"
)

func (c *Client) WhitelabelSettings(ctx context.Context) (models.Branding, error) {
	var out models.Branding
	err := c.Do(ctx, Request{Path: "/api/whitelabel/settings", Out: &out})
	return out, err
}

func (c *Client) SaveWhitelabelSettings(ctx context.Context, companyName string, logo *File) error {
	req := Request{
		Method: http.MethodPost,
		Path:   "/api/whitelabel/settings",
		Form:   url.Values{"companyName": []string{companyName}},
	}
	if logo != nil {
		f := *logo
		f.Field = "companyLogo"
		req.Files = []File{f}
	}
	return c.Do(ctx, req)
}

// MyBranding returns the branding the shell should show for the current identity.
func (c *Client) MyBranding(ctx context.Context) (models.Branding, error) {
	var out models.Branding
	err := c.Do(ctx, Request{Path: "/api/whitelabel/my-branding", Out: &out})
	return out, err
}
