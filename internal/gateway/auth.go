package gateway

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"

	"messagemaster/internal/models"
)

type loginResponse struct {
	Token string          `json:"token"`
	User  models.Identity `json:"user"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Login authenticates against the backend and persists credential and
// identity together. A rejected login leaves the current session untouched.
func (c *Client) Login(ctx context.Context, email, password string) (models.Identity, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return models.Identity{}, fmt.Errorf("%w: email and password are required", ErrInvalidCredentials)
	}
	var out loginResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/login",
		JSON:   map[string]string{"email": email, "password": password},
		Public: true,
		Out:    &out,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && (apiErr.Status == http.StatusUnauthorized || apiErr.Status == http.StatusBadRequest || apiErr.Status == http.StatusNotFound) {
			return models.Identity{}, fmt.Errorf("%w: %s", ErrInvalidCredentials, apiErr.Message)
		}
		return models.Identity{}, err
	}
	if strings.TrimSpace(out.Token) == "" || !out.User.Valid() {
		return models.Identity{}, fmt.Errorf("login response is missing token or user")
	}
	if err := c.sess.Save(ctx, out.Token, out.User); err != nil {
		return models.Identity{}, err
	}
	log.Printf("login ok email=%s role=%s", out.User.Email, out.User.Role)
	return out.User, nil
}

// Logout drops the local session. The backend keeps no server-side session to revoke.
func (c *Client) Logout(ctx context.Context) error {
	return c.sess.Clear(ctx)
}

func (c *Client) ForgotPassword(ctx context.Context, email string) (string, error) {
	var out messageResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/forgot-password",
		JSON:   map[string]string{"email": strings.TrimSpace(email)},
		Public: true,
		Out:    &out,
	})
	return out.Message, err
}

func (c *Client) ResetPassword(ctx context.Context, email, otp, newPassword string) (string, error) {
	var out messageResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPost,
		Path:   "/api/reset-password",
		JSON:   map[string]string{"email": strings.TrimSpace(email), "otp": strings.TrimSpace(otp), "newPassword": newPassword},
		Public: true,
		Out:    &out,
	})
	return out.Message, err
}

func (c *Client) ChangePassword(ctx context.Context, currentPassword, newPassword string) (string, error) {
	var out messageResponse
	err := c.Do(ctx, Request{
		Method: http.MethodPut,
		Path:   "/api/users/change-password",
		JSON:   map[string]string{"currentPassword": currentPassword, "newPassword": newPassword},
		Out:    &out,
	})
	return out.Message, err
}
