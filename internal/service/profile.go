package service

import (
	"context"

	"messagemaster/internal/campaign"
	"messagemaster/internal/gateway"
	"messagemaster/internal/ledger"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

type ProfileView struct {
	User      models.User                   `json:"user"`
	Balances  map[string]ledger.TypeBalance `json:"balances"`
	Credits   []models.CreditTransaction    `json:"credits"`
	Campaigns []models.Campaign             `json:"campaigns"`
	// Own is true when the viewer is looking at their own profile.
	Own bool `json:"own"`
}

func (s *Service) Profile(ctx context.Context, viewer models.Identity, userID string) (ProfileView, error) {
	if err := requireRoute(viewer, policy.RouteProfile); err != nil {
		return ProfileView{}, err
	}
	if err := required("userId", userID, "User ID not found in URL."); err != nil {
		return ProfileView{}, err
	}
	var (
		user      models.User
		credits   []models.CreditTransaction
		campaigns []models.Campaign
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			user, err = s.api.GetProfile(ctx, userID)
			return
		},
		func(ctx context.Context) (err error) {
			credits, err = s.api.ListCredits(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			campaigns, err = s.api.ListCampaigns(ctx, gateway.UserScope{})
			return
		},
	)
	if err != nil {
		return ProfileView{}, err
	}
	return ProfileView{
		User:      user,
		Balances:  ledger.BalancesByType(credits, user.Email),
		Credits:   ledger.Recent(ledger.ForUser(credits, user.Email), 0),
		Campaigns: recentCampaigns(campaign.Filter{User: user.Email}.Apply(campaigns), 0),
		Own:       user.ID == viewer.ID,
	}, nil
}

type PasswordChange struct {
	Current string
	New     string
	Confirm string
}

// ChangePassword checks the confirmation locally and returns the backend's message.
func (s *Service) ChangePassword(ctx context.Context, viewer models.Identity, in PasswordChange) (string, error) {
	if err := requireRoute(viewer, policy.RouteProfile); err != nil {
		return "", err
	}
	if err := required("currentPassword", in.Current, "Current password is required."); err != nil {
		return "", err
	}
	if err := required("newPassword", in.New, "New password is required."); err != nil {
		return "", err
	}
	if in.New != in.Confirm {
		return "", invalid("confirmPassword", "New passwords do not match.")
	}
	msg, err := s.api.ChangePassword(ctx, in.Current, in.New)
	logAction(viewer, "user.change_password", viewer.Email, err)
	return msg, err
}
