package service

import (
	"context"
	"errors"
	"log"
	"strings"

	"messagemaster/internal/gateway"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

type ShellView struct {
	Identity models.Identity  `json:"identity"`
	Home     string           `json:"home"`
	Nav      []policy.NavLink `json:"nav"`
	Branding models.Branding  `json:"branding"`
}

// Shell is the frame around every page: who is signed in, the menu and the
// branding of the viewer's reseller. A remote or network failure on the
// branding lookup falls back to the product name; an ended session is
// returned as an error.
func (s *Service) Shell(ctx context.Context, viewer models.Identity) (ShellView, error) {
	b, err := s.Branding(ctx, viewer)
	if err != nil {
		return ShellView{}, err
	}
	return ShellView{
		Identity: viewer,
		Home:     policy.DefaultRouteFor(viewer.Role),
		Nav:      policy.NavLinks(viewer),
		Branding: b,
	}, nil
}

func (s *Service) Branding(ctx context.Context, viewer models.Identity) (models.Branding, error) {
	b, err := s.api.MyBranding(ctx)
	if err != nil {
		var apiErr *gateway.APIError
		var netErr *gateway.NetworkError
		if !errors.As(err, &apiErr) && !errors.As(err, &netErr) {
			return models.Branding{}, err
		}
		log.Printf("branding lookup failed user=%s error=%q", viewer.Email, err.Error())
		return models.DefaultBranding(), nil
	}
	if strings.TrimSpace(b.CompanyName) == "" {
		b.CompanyName = models.DefaultBranding().CompanyName
	}
	return b, nil
}
