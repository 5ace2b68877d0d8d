package gateway

import (
	"context"
	"net/http"
	"net/url"

	"messagemaster/internal/models"
)

func (c *Client) ListTickets(ctx context.Context) ([]models.Ticket, error) {
	var out []models.Ticket
	return out, c.Do(ctx, Request{Path: "/api/tickets", Out: &out})
}

func (c *Client) CreateTicket(ctx context.Context, fields url.Values, attachments []File) error {
	files := make([]File, 0, len(attachments))
	for _, f := range attachments {
		f.Field = "attachments"
		files = append(files, f)
	}
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/tickets", Form: fields, Files: files})
}

func (c *Client) ReplyTicket(ctx context.Context, id, message string) (models.Ticket, error) {
	var out models.Ticket
	err := c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/tickets/" + url.PathEscape(id) + "/reply",
		JSON:   map[string]string{"message": message},
		Out:    &out,
	})
	return out, err
}

func (c *Client) SetTicketStatus(ctx context.Context, id, status string) (models.Ticket, error) {
	var out models.Ticket
	err := c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/tickets/" + url.PathEscape(id) + "/status",
		JSON:   map[string]string{"status": status},
		Out:    &out,
	})
	return out, err
}

func (c *Client) EscalateTicket(ctx context.Context, id string) error {
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/tickets/" + url.PathEscape(id) + "/escalate",
		JSON:   map[string]string{},
	})
}

func (c *Client) AssignTicket(ctx context.Context, id, assignee string) (models.Ticket, error) {
	var out models.Ticket
	err := c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/tickets/" + url.PathEscape(id) + "/assign",
		JSON:   map[string]string{"assignee": assignee},
		Out:    &out,
	})
	return out, err
}
