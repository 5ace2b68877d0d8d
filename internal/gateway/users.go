package gateway

import (
	"context"
	"net/http"
	"net/url"

	"messagemaster/internal/models"
)

// UserScope narrows list calls the way the dashboards ask for them.
type UserScope struct {
	Role  models.Role
	Email string
	// Requester filters to rows addressed to one account (the end-user dashboard).
	Requester string
	// AdminFetch asks the backend for the unscoped list (Admin only).
	AdminFetch bool
}

func (s UserScope) query() url.Values {
	q := url.Values{}
	if s.Role != "" {
		q.Set("role", string(s.Role))
	}
	if s.Email != "" {
		q.Set("email", s.Email)
	}
	if s.Requester != "" {
		q.Set("requester", s.Requester)
	}
	return q
}

func (c *Client) ListUsers(ctx context.Context, scope UserScope) ([]models.User, error) {
	var out []models.User
	req := Request{Path: "/api/users", Query: scope.query(), Out: &out}
	if scope.AdminFetch {
		req.Header = http.Header{"X-Admin-Fetch": []string{"true"}}
	}
	return out, c.Do(ctx, req)
}

func (c *Client) GetProfile(ctx context.Context, userID string) (models.User, error) {
	var out models.User
	err := c.Do(ctx, Request{Path: "/api/users/profile/" + url.PathEscape(userID), Out: &out})
	return out, err
}

type NewUser struct {
	Name               string      `json:"name"`
	Email              string      `json:"email"`
	Password           string      `json:"password,omitempty"`
	Role               models.Role `json:"role"`
	FirmName           string      `json:"firmName,omitempty"`
	Mobile             string      `json:"mobile,omitempty"`
	Address            string      `json:"address,omitempty"`
	State              string      `json:"state,omitempty"`
	City               string      `json:"city,omitempty"`
	Pincode            string      `json:"pincode,omitempty"`
	ContactPerson      string      `json:"contactPerson,omitempty"`
	ContactPersonPhone string      `json:"contactPersonPhone,omitempty"`
	OwnNumber          string      `json:"ownNumber,omitempty"`
	CreatedBy          string      `json:"createdBy,omitempty"`
	Reseller           string      `json:"reseller,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, u NewUser) error {
	return c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/users", JSON: u})
}

// UpdateUser sends the edited profile fields as multipart so a company logo can ride along.
func (c *Client) UpdateUser(ctx context.Context, id string, fields url.Values, logo *File) error {
	req := Request{Method: http.MethodPut, Path: "/api/users/update/" + url.PathEscape(id), Form: fields}
	if req.Form == nil {
		req.Form = url.Values{}
	}
	if logo != nil {
		f := *logo
		f.Field = "companyLogo"
		req.Files = []File{f}
	}
	return c.Do(ctx, req)
}

func (c *Client) SetUserStatus(ctx context.Context, id string, status models.UserStatus) error {
	return c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/users/" + url.PathEscape(id),
		JSON:   map[string]string{"status": string(status)},
	})
}
