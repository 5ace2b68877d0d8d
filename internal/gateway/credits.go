package gateway

import (
	"context"
	"net/http"

	"messagemaster/internal/models"
)

func (c *Client) ListCredits(ctx context.Context, scope UserScope) ([]models.CreditTransaction, error) {
	var out []models.CreditTransaction
	return out, c.Do(ctx, Request{Path: "/api/credits", Query: scope.query(), Out: &out})
}

type NewCredit struct {
	To         string        `json:"to"`
	CreditType string        `json:"creditType"`
	Count      int64         `json:"count"`
	Rate       float64       `json:"rate"`
	Type       models.TxType `json:"type"`
	Reason     string        `json:"reason,omitempty"`
}

func (c *Client) CreateCredit(ctx context.Context, in NewCredit) (models.CreditTransaction, error) {
	var out models.CreditTransaction
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: "/api/credits", JSON: in, Out: &out})
	return out, err
}
