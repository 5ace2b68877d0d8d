package gateway

import (
	"context"
	"encoding/json"
	"net/url"
)

type AnalyticsSeries string

const (
	SeriesSummary       AnalyticsSeries = ""
	SeriesCreditsTrend  AnalyticsSeries = "credits-trend"
	SeriesCreditTypes   AnalyticsSeries = "credit-types"
	SeriesCampaignTypes AnalyticsSeries = "campaign-types"
	SeriesTopUsers      AnalyticsSeries = "top-users"
)

// Analytics fetches one chart series. Chart shapes belong to the backend and are passed through.
func (c *Client) Analytics(ctx context.Context, series AnalyticsSeries, params url.Values) (json.RawMessage, error) {
	path := "/api/analytics"
	if series != SeriesSummary {
		path += "/" + string(series)
	}
	var out json.RawMessage
	return out, c.Do(ctx, Request{Path: path, Query: params, Out: &out})
}
