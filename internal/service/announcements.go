package service

import (
	"context"
	"encoding/json"
	"net/url"
	"strings"
	"time"

	"messagemaster/internal/gateway"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

// Announcement audiences.
const (
	VisibilityAll      = "all"
	VisibilityReseller = "reseller"
	VisibilitySpecific = "specific"
)

type AnnouncementsAdminView struct {
	Announcements []models.Announcement `json:"announcements"`
	Users         []models.User         `json:"users"`
	Resellers     []models.User         `json:"resellers"`
}

func (s *Service) AnnouncementsAdmin(ctx context.Context, viewer models.Identity) (AnnouncementsAdminView, error) {
	if err := requireRoute(viewer, policy.RouteAdminAnnouncements); err != nil {
		return AnnouncementsAdminView{}, err
	}
	var (
		anns  []models.Announcement
		users []models.User
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			anns, err = s.api.ListAllAnnouncements(ctx)
			return
		},
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
	)
	if err != nil {
		return AnnouncementsAdminView{}, err
	}
	return AnnouncementsAdminView{Announcements: anns, Users: users, Resellers: usersWithRole(users, models.RoleReseller)}, nil
}

// AnnouncementStatus is the backend's seen / not-seen breakdown, passed through.
func (s *Service) AnnouncementStatus(ctx context.Context, viewer models.Identity, id string) (json.RawMessage, error) {
	if err := policy.Require(viewer.Role, policy.ActionManageAnnouncements); err != nil {
		return nil, err
	}
	return s.api.AnnouncementStatus(ctx, id)
}

type NewAnnouncement struct {
	Title      string
	Message    string
	Link       string
	ExpiryDate string
	Visibility string
	Targets    []string
	Image      *gateway.File
}

func (s *Service) CreateAnnouncement(ctx context.Context, viewer models.Identity, in NewAnnouncement) error {
	if err := policy.Require(viewer.Role, policy.ActionManageAnnouncements); err != nil {
		return err
	}
	if err := required("title", in.Title, "Title is required."); err != nil {
		return err
	}
	if err := required("message", in.Message, "Message is required."); err != nil {
		return err
	}
	if in.Visibility == "" {
		in.Visibility = VisibilityAll
	}
	switch in.Visibility {
	case VisibilityAll, VisibilityReseller, VisibilitySpecific:
	default:
		return invalid("visibilityType", "Unknown audience "+in.Visibility+".")
	}
	targets := make([]string, 0, len(in.Targets))
	for _, t := range in.Targets {
		if t = strings.TrimSpace(t); t != "" {
			targets = append(targets, t)
		}
	}
	if in.Visibility != VisibilityAll && len(targets) == 0 {
		return invalid("visibilityTargets", "Please select at least one "+in.Visibility+".")
	}
	if in.ExpiryDate != "" {
		if _, err := time.Parse("2006-01-02", in.ExpiryDate); err != nil {
			return invalid("expiryDate", "Expiry date must be YYYY-MM-DD.")
		}
	}
	fields := url.Values{
		"title":          []string{in.Title},
		"message":        []string{in.Message},
		"link":           []string{in.Link},
		"expiryDate":     []string{in.ExpiryDate},
		"visibilityType": []string{in.Visibility},
	}
	if in.Visibility != VisibilityAll {
		fields.Set("visibilityTargets", strings.Join(targets, ","))
	}
	image := in.Image
	if image != nil && len(image.Data) == 0 {
		image = nil
	}
	err := s.api.CreateAnnouncement(ctx, fields, image)
	logAction(viewer, "announcement.create", in.Title, err)
	return err
}

func (s *Service) DeleteAnnouncement(ctx context.Context, viewer models.Identity, id string) error {
	if err := policy.Require(viewer.Role, policy.ActionManageAnnouncements); err != nil {
		return err
	}
	err := s.api.DeleteAnnouncement(ctx, id)
	logAction(viewer, "announcement.delete", id, err)
	return err
}

type AnnouncementHistoryRow struct {
	models.Announcement
	Seen bool `json:"seen"`
}

// AnnouncementsHistory lists every announcement addressed to the viewer and
// whether the viewer has opened each one.
func (s *Service) AnnouncementsHistory(ctx context.Context, viewer models.Identity) ([]AnnouncementHistoryRow, error) {
	if err := requireRoute(viewer, policy.RouteAnnouncementsHistory); err != nil {
		return nil, err
	}
	anns, err := s.api.AnnouncementHistory(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AnnouncementHistoryRow, 0, len(anns))
	for _, a := range anns {
		out = append(out, AnnouncementHistoryRow{Announcement: a, Seen: a.HasSeen(viewer.Email)})
	}
	return out, nil
}
