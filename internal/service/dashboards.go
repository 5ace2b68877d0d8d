package service

import (
	"context"
	"encoding/json"
	"net/url"

	"messagemaster/internal/campaign"
	"messagemaster/internal/gateway"
	"messagemaster/internal/ledger"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

const recentLimit = 5

type AdminDashboard struct {
	TotalUsers         int                        `json:"total_users"`
	ActiveUsers        int                        `json:"active_users"`
	BlockedUsers       int                        `json:"blocked_users"`
	OwnNumbers         int                        `json:"own_numbers"`
	TotalCreditsAdded  int64                      `json:"total_credits_added"`
	TotalCampaigns     int                        `json:"total_campaigns"`
	SubmittedCampaigns int                        `json:"submitted_campaigns"`
	CompletedCampaigns int                        `json:"completed_campaigns"`
	CreditsByType      map[string]int64           `json:"credits_by_type"`
	CampaignsByType    map[string]int             `json:"campaigns_by_type"`
	RecentCredits      []models.CreditTransaction `json:"recent_credits"`
	RecentCampaigns    []models.Campaign          `json:"recent_campaigns"`
	CreditsTrend       json.RawMessage            `json:"credits_trend"`
	TopUsers           json.RawMessage            `json:"top_users"`
}

func (s *Service) AdminDashboard(ctx context.Context, viewer models.Identity) (AdminDashboard, error) {
	if err := requireRoute(viewer, policy.RouteAdminDashboard); err != nil {
		return AdminDashboard{}, err
	}
	var (
		users     []models.User
		credits   []models.CreditTransaction
		campaigns []models.Campaign
		trend     json.RawMessage
		top       json.RawMessage
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, gateway.UserScope{})
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
		func(ctx context.Context) (err error) {
			trend, err = s.api.Analytics(ctx, gateway.SeriesCreditsTrend, nil)
			return
		},
		func(ctx context.Context) (err error) {
			top, err = s.api.Analytics(ctx, gateway.SeriesTopUsers, nil)
			return
		},
	)
	if err != nil {
		return AdminDashboard{}, err
	}

	v := AdminDashboard{
		TotalUsers:        len(users),
		TotalCreditsAdded: ledger.SumCount(credits, models.TxAdded),
		TotalCampaigns:    len(campaigns),
		CreditsByType:     ledger.NetByType(credits),
		CampaignsByType:   map[string]int{},
		RecentCredits:     ledger.Recent(credits, recentLimit),
		RecentCampaigns:   recentCampaigns(campaigns, recentLimit),
		CreditsTrend:      trend,
		TopUsers:          top,
	}
	for _, u := range users {
		if u.Status == models.UserActive {
			v.ActiveUsers++
		}
		if u.OwnNumber != "" {
			v.OwnNumbers++
		}
	}
	v.BlockedUsers = v.TotalUsers - v.ActiveUsers
	byStatus := campaign.CountByStatus(campaigns)
	v.SubmittedCampaigns = byStatus[campaign.StatusSubmitted]
	v.CompletedCampaigns = byStatus[campaign.StatusCompleted]
	for _, c := range campaigns {
		v.CampaignsByType[c.CreditType]++
	}
	return v, nil
}

type ResellerDashboard struct {
	SubResellers   []models.User   `json:"sub_resellers"`
	Users          []models.User   `json:"users"`
	Stats          json.RawMessage `json:"stats"`
	CreatableRoles []models.Role   `json:"creatable_roles"`
}

func (s *Service) ResellerDashboard(ctx context.Context, viewer models.Identity) (ResellerDashboard, error) {
	if err := requireRoute(viewer, policy.RouteResellerDashboard); err != nil {
		return ResellerDashboard{}, err
	}
	var (
		users []models.User
		stats json.RawMessage
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			stats, err = s.api.Analytics(ctx, gateway.SeriesSummary, nil)
			return
		},
	)
	if err != nil {
		return ResellerDashboard{}, err
	}
	return ResellerDashboard{
		SubResellers:   usersWithRole(users, models.RoleSubReseller),
		Users:          usersWithRole(users, models.RoleUser),
		Stats:          stats,
		CreatableRoles: policy.CreatableRoles(viewer.Role),
	}, nil
}

type SubResellerDashboard struct {
	Users            []models.User                 `json:"users"`
	AvailableCredits int64                         `json:"available_credits"`
	Balances         map[string]ledger.TypeBalance `json:"balances"`
	Campaigns        []models.Campaign             `json:"campaigns"`
	CampaignCount    int                           `json:"campaign_count"`
	CanCreateUser    bool                          `json:"can_create_user"`
}

func (s *Service) SubResellerDashboard(ctx context.Context, viewer models.Identity) (SubResellerDashboard, error) {
	if err := requireRoute(viewer, policy.RouteSubResellerDashboard); err != nil {
		return SubResellerDashboard{}, err
	}
	scope := scopeFor(viewer)
	var (
		users     []models.User
		credits   []models.CreditTransaction
		campaigns []models.Campaign
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, scope)
			return
		},
		func(ctx context.Context) (err error) {
			credits, err = s.api.ListCredits(ctx, scope)
			return
		},
		func(ctx context.Context) (err error) {
			campaigns, err = s.api.ListCampaigns(ctx, scope)
			return
		},
	)
	if err != nil {
		return SubResellerDashboard{}, err
	}
	available := ledger.Total(credits, viewer.Email)
	return SubResellerDashboard{
		Users:            usersWithRole(users, models.RoleUser),
		AvailableCredits: available,
		Balances:         ledger.BalancesByType(credits, viewer.Email),
		Campaigns:        recentCampaigns(campaigns, 0),
		CampaignCount:    len(campaigns),
		CanCreateUser:    available > 0 && policy.Can(viewer.Role, policy.ActionCreateUser),
	}, nil
}

type UserDashboardStats struct {
	Credits   json.RawMessage `json:"credits"`
	Campaigns json.RawMessage `json:"campaigns"`
	OwnNumber string          `json:"own_number"`
}

type UserDashboard struct {
	Stats           UserDashboardStats            `json:"stats"`
	Balances        map[string]ledger.TypeBalance `json:"balances"`
	CreditsTrend    json.RawMessage               `json:"credits_trend"`
	CampaignTypes   json.RawMessage               `json:"campaign_types"`
	RecentCredits   []models.CreditTransaction    `json:"recent_credits"`
	RecentCampaigns []models.Campaign             `json:"recent_campaigns"`
}

func (s *Service) UserDashboard(ctx context.Context, viewer models.Identity) (UserDashboard, error) {
	if err := requireRoute(viewer, policy.RouteUserDashboard); err != nil {
		return UserDashboard{}, err
	}
	scope := scopeFor(viewer)
	params := url.Values{"requester": []string{viewer.Email}, "role": []string{string(scope.Role)}}
	var (
		trend, types, summary json.RawMessage
		credits               []models.CreditTransaction
		campaigns             []models.Campaign
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			trend, err = s.api.Analytics(ctx, gateway.SeriesCreditsTrend, params)
			return
		},
		func(ctx context.Context) (err error) {
			types, err = s.api.Analytics(ctx, gateway.SeriesCampaignTypes, params)
			return
		},
		func(ctx context.Context) (err error) {
			credits, err = s.api.ListCredits(ctx, scope)
			return
		},
		func(ctx context.Context) (err error) {
			campaigns, err = s.api.ListCampaigns(ctx, scope)
			return
		},
		func(ctx context.Context) (err error) {
			summary, err = s.api.Analytics(ctx, gateway.SeriesSummary, params)
			return
		},
	)
	if err != nil {
		return UserDashboard{}, err
	}

	var counts struct {
		Credits   json.RawMessage `json:"credits"`
		Campaigns json.RawMessage `json:"campaigns"`
	}
	if len(summary) > 0 {
		_ = json.Unmarshal(summary, &counts)
	}
	own := viewer.OwnNumber
	if own == "" {
		own = "-"
	}
	mine := campaign.Filter{User: viewer.Email}.Apply(campaigns)
	return UserDashboard{
		Stats:           UserDashboardStats{Credits: counts.Credits, Campaigns: counts.Campaigns, OwnNumber: own},
		Balances:        ledger.BalancesByType(credits, viewer.Email),
		CreditsTrend:    trend,
		CampaignTypes:   types,
		RecentCredits:   ledger.Recent(ledger.ForUser(credits, viewer.Email), recentLimit),
		RecentCampaigns: recentCampaigns(mine, recentLimit),
	}, nil
}

func usersWithRole(users []models.User, role models.Role) []models.User {
	out := make([]models.User, 0, len(users))
	for _, u := range users {
		if u.Role == role {
			out = append(out, u)
		}
	}
	return out
}
