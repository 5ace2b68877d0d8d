package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"strconv"
	"strings"
	"time"

	"messagemaster/internal/campaign"
	"messagemaster/internal/gateway"
	"messagemaster/internal/ledger"
	"messagemaster/internal/models"
	"messagemaster/internal/policy"
)

type CreditsView struct {
	Transactions models.Page[models.CreditTransaction] `json:"transactions"`
	Users        []models.User                         `json:"users"`
	CreditTypes  []string                              `json:"credit_types"`
	CanManage    bool                                  `json:"can_manage"`
}

func (s *Service) Credits(ctx context.Context, viewer models.Identity, f ledger.Filter, page int) (CreditsView, error) {
	if err := requireRoute(viewer, policy.RouteCredits); err != nil {
		return CreditsView{}, err
	}
	var (
		users   []models.User
		credits []models.CreditTransaction
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
	)
	if err != nil {
		return CreditsView{}, err
	}
	return CreditsView{
		Transactions: models.Paginate(ledger.Recent(f.Apply(credits), 0), page, models.DefaultPageSize),
		Users:        users,
		CreditTypes:  campaign.CreditTypes,
		CanManage:    policy.Can(viewer.Role, policy.ActionManageCredits),
	}, nil
}

// AddCredit validates and records one ledger entry. Removals may omit the rate.
func (s *Service) AddCredit(ctx context.Context, viewer models.Identity, in gateway.NewCredit) (models.CreditTransaction, error) {
	if err := policy.Require(viewer.Role, policy.ActionManageCredits); err != nil {
		return models.CreditTransaction{}, err
	}
	in.To = strings.TrimSpace(in.To)
	if err := required("to", in.To, "Please select a user before submitting."); err != nil {
		return models.CreditTransaction{}, err
	}
	if in.Count <= 0 {
		return models.CreditTransaction{}, invalid("count", "Message quantity must be greater than 0.")
	}
	if in.Type == "" {
		in.Type = models.TxAdded
	}
	switch in.Type {
	case models.TxAdded:
		if in.Rate <= 0 {
			return models.CreditTransaction{}, invalid("rate", "Rate must be greater than 0 when adding credits.")
		}
	case models.TxRemoved:
		if in.Rate < 0 {
			in.Rate = 0
		}
	default:
		return models.CreditTransaction{}, invalid("type", "Transaction type must be Added or Removed.")
	}
	if in.CreditType == "" {
		in.CreditType = campaign.CreditTypes[0]
	}
	if !campaign.KnownCreditType(in.CreditType) {
		return models.CreditTransaction{}, invalid("creditType", "Please choose a valid message type.")
	}
	tx, err := s.api.CreateCredit(ctx, in)
	logAction(viewer, "credits."+strings.ToLower(string(in.Type)), in.To, err)
	return tx, err
}

type ReportSummary struct {
	TotalAdded       int64                `json:"totalAdded"`
	TotalRemoved     int64                `json:"totalRemoved"`
	TopUsers         []ledger.Consumer    `json:"topUsers"`
	TopCampaignTypes []campaign.TypeCount `json:"topCampaignTypes"`
}

type ReportsView struct {
	Summary     ReportSummary                         `json:"summary"`
	Credits     models.Page[models.CreditTransaction] `json:"credits"`
	Campaigns   models.Page[models.Campaign]          `json:"campaigns"`
	CreditTypes []string                              `json:"credit_types"`
	Users       []models.User                         `json:"users"`
}

type ReportQuery struct {
	Credits       ledger.Filter
	Campaigns     campaign.Filter
	CreditsPage   int
	CampaignsPage int
}

const topLimit = 5

// Reports summarises every credit and campaign the viewer can see. The
// summary covers the unfiltered lists; the tables honour the filters.
func (s *Service) Reports(ctx context.Context, viewer models.Identity, q ReportQuery) (ReportsView, error) {
	if err := requireRoute(viewer, policy.RouteReports); err != nil {
		return ReportsView{}, err
	}
	var (
		credits   []models.CreditTransaction
		campaigns []models.Campaign
		users     []models.User
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			credits, err = s.api.ListCredits(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			campaigns, err = s.api.ListCampaigns(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
	)
	if err != nil {
		return ReportsView{}, err
	}
	return ReportsView{
		Summary: ReportSummary{
			TotalAdded:       ledger.SumCount(credits, models.TxAdded),
			TotalRemoved:     ledger.SumCount(credits, models.TxRemoved),
			TopUsers:         ledger.TopConsumers(credits, topLimit),
			TopCampaignTypes: campaign.GroupByType(campaigns, topLimit),
		},
		Credits:     models.Paginate(ledger.Recent(q.Credits.Apply(credits), 0), q.CreditsPage, models.DefaultPageSize),
		Campaigns:   models.Paginate(recentCampaigns(q.Campaigns.Apply(campaigns), 0), q.CampaignsPage, models.DefaultPageSize),
		CreditTypes: ledger.CreditTypes(credits),
		Users:       users,
	}, nil
}

type HistorySummary struct {
	Credits int64   `json:"credits"`
	Amount  float64 `json:"amount"`
}

type HistoryView struct {
	Transactions []models.CreditTransaction `json:"transactions"`
	Summary      HistorySummary             `json:"summary"`
	Users        []models.User              `json:"users"`
	CreditTypes  []string                   `json:"credit_types"`
}

// History lists filtered transactions with the credits and amount added among them.
func (s *Service) History(ctx context.Context, viewer models.Identity, f ledger.Filter) (HistoryView, error) {
	if err := requireRoute(viewer, policy.RouteHistory); err != nil {
		return HistoryView{}, err
	}
	var (
		credits []models.CreditTransaction
		users   []models.User
	)
	err := fanOut(ctx,
		func(ctx context.Context) (err error) {
			credits, err = s.api.ListCredits(ctx, gateway.UserScope{})
			return
		},
		func(ctx context.Context) (err error) {
			users, err = s.api.ListUsers(ctx, gateway.UserScope{})
			return
		},
	)
	if err != nil {
		return HistoryView{}, err
	}
	filtered := ledger.Recent(f.Apply(credits), 0)
	return HistoryView{
		Transactions: filtered,
		Summary: HistorySummary{
			Credits: ledger.SumCount(filtered, models.TxAdded),
			Amount:  ledger.SumAmount(filtered, models.TxAdded),
		},
		Users:       users,
		CreditTypes: ledger.CreditTypes(credits),
	}, nil
}

var historyHeader = []string{"ID", "Type", "To", "Credit Type", "Count", "Rate", "Total", "Reason", "Time"}

// HistoryCSV renders transactions the way the history export lays them out.
func HistoryCSV(txs []models.CreditTransaction) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(historyHeader); err != nil {
		return nil, err
	}
	for _, tx := range txs {
		reason := tx.Reason
		if reason == "" {
			reason = "-"
		}
		err := w.Write([]string{
			tx.ID,
			string(tx.Type),
			tx.To,
			tx.CreditType,
			strconv.FormatInt(tx.Count, 10),
			strconv.FormatFloat(tx.Rate, 'f', -1, 64),
			strconv.FormatFloat(tx.Total, 'f', 2, 64),
			reason,
			tx.CreatedAt.UTC().Format(time.RFC3339),
		})
		if err != nil {
			return nil, err
		}
	}
	w.Flush()
	return buf.Bytes(), w.Error()
}
