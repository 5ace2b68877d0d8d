package campaign

import (
	"sort"

	"messagemaster/internal/models"
)

// Filter narrows the campaign table. Empty fields match everything.
type Filter struct {
	User       string
	Status     string
	CreditType string
	Range      models.DateRange
	Search     string
}

func (f Filter) Match(c models.Campaign) bool {
	if f.User != "" && c.UserEmail != f.User {
		return false
	}
	if f.Status != "" && c.Status != f.Status {
		return false
	}
	if f.CreditType != "" && f.CreditType != "All" && c.CreditType != f.CreditType {
		return false
	}
	if !f.Range.Contains(c.CreatedAt) {
		return false
	}
	if f.Search != "" &&
		!models.ContainsFold(c.UserEmail, f.Search) &&
		!models.ContainsFold(c.CreditType, f.Search) &&
		!models.ContainsFold(c.Status, f.Search) {
		return false
	}
	return true
}

func (f Filter) Apply(cs []models.Campaign) []models.Campaign {
	out := make([]models.Campaign, 0, len(cs))
	for _, c := range cs {
		if f.Match(c) {
			out = append(out, c)
		}
	}
	return out
}

// TypeCount is recipients sent per credit type.
type TypeCount struct {
	CreditType string `json:"creditType"`
	Recipients int    `json:"recipients"`
}

// GroupByType totals recipients per credit type, largest first, and keeps the top n when n > 0.
func GroupByType(cs []models.Campaign, n int) []TypeCount {
	totals := map[string]int{}
	for _, c := range cs {
		totals[c.CreditType] += c.RecipientCount()
	}
	out := make([]TypeCount, 0, len(totals))
	for ct, r := range totals {
		out = append(out, TypeCount{CreditType: ct, Recipients: r})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Recipients != out[j].Recipients {
			return out[i].Recipients > out[j].Recipients
		}
		return out[i].CreditType < out[j].CreditType
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CountByStatus tallies campaigns per status for dashboard cards.
func CountByStatus(cs []models.Campaign) map[string]int {
	out := map[string]int{}
	for _, c := range cs {
		out[c.Status]++
	}
	return out
}
