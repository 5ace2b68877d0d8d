package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"messagemaster/internal/models"
)

// ListUnseenAnnouncements returns the viewer's unseen, unexpired announcements.
func (c *Client) ListUnseenAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	var out []models.Announcement
	return out, c.Do(ctx, Request{Path: "/api/announcements", Out: &out})
}

func (c *Client) ListAllAnnouncements(ctx context.Context) ([]models.Announcement, error) {
	var out []models.Announcement
	return out, c.Do(ctx, Request{Path: "/api/announcements/all", Out: &out})
}

func (c *Client) AnnouncementHistory(ctx context.Context) ([]models.Announcement, error) {
	var out []models.Announcement
	return out, c.Do(ctx, Request{Path: "/api/announcements/history", Out: &out})
}

// AnnouncementStatus is the backend's seen/unseen breakdown; its shape is passed through.
func (c *Client) AnnouncementStatus(ctx context.Context, id string) (json.RawMessage, error) {
	var out json.RawMessage
	return out, c.Do(ctx, Request{Path: "/api/announcements/" + url.PathEscape(id) + "/status", Out: &out})
}

func (c *Client) CreateAnnouncement(ctx context.Context, fields url.Values, image *File) error {
	req := Request{Method: http.MethodPost, Path: "/api/announcements", Form: fields}
	if image != nil {
		f := *image
		f.Field = "image"
		req.Files = []File{f}
	}
	return c.Do(ctx, req)
}

func (c *Client) DeleteAnnouncement(ctx context.Context, id string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: "/api/announcements/" + url.PathEscape(id)})
}

func (c *Client) MarkAnnouncementSeen(ctx context.Context, id string) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: "/api/announcements/" + url.PathEscape(id) + "/seen", JSON: map[string]string{}})
}

func (c *Client) ListNotifications(ctx context.Context) ([]models.Notification, error) {
	var out []models.Notification
	return out, c.Do(ctx, Request{Path: "/api/notifications", Out: &out})
}

func (c *Client) MarkNotificationRead(ctx context.Context, id string) error {
	return c.Do(ctx, Request{Method: http.MethodPut, Path: "/api/notifications/" + url.PathEscape(id) + "/read", JSON: map[string]string{}})
}
