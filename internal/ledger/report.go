package ledger

import (
	"sort"
	"strings"

	"messagemaster/internal/models"
)

type Consumer struct {
	Email string `json:"user"`
	Used  int64  `json:"used"`
}

// TopConsumers ranks users by removed credits, most first, ties by email.
func TopConsumers(txs []models.CreditTransaction, n int) []Consumer {
	used := map[string]int64{}
	for _, tx := range txs {
		if tx.Type == models.TxRemoved {
			used[tx.To] += tx.Count
		}
	}
	out := make([]Consumer, 0, len(used))
	for email, u := range used {
		out = append(out, Consumer{Email: email, Used: u})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Used != out[j].Used {
			return out[i].Used > out[j].Used
		}
		return out[i].Email < out[j].Email
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// Filter selects transactions for the credits, reports and history tables.
// Empty fields match everything.
type Filter struct {
	User       string
	CreditType string
	Type       models.TxType
	Range      models.DateRange
	Search     string
}

func (f Filter) Match(tx models.CreditTransaction) bool {
	if f.User != "" && tx.To != f.User {
		return false
	}
	if f.CreditType != "" && f.CreditType != "All" && tx.CreditType != f.CreditType {
		return false
	}
	if f.Type != "" && f.Type != "All" && tx.Type != f.Type {
		return false
	}
	if !f.Range.Contains(tx.CreatedAt) {
		return false
	}
	if f.Search != "" &&
		!models.ContainsFold(tx.To, f.Search) &&
		!models.ContainsFold(tx.CreditType, f.Search) &&
		!models.ContainsFold(tx.Reason, f.Search) {
		return false
	}
	return true
}

func (f Filter) Apply(txs []models.CreditTransaction) []models.CreditTransaction {
	out := make([]models.CreditTransaction, 0, len(txs))
	for _, tx := range txs {
		if f.Match(tx) {
			out = append(out, tx)
		}
	}
	return out
}

// ForUser keeps the transactions addressed to email.
func ForUser(txs []models.CreditTransaction, email string) []models.CreditTransaction {
	return Filter{User: email}.Apply(txs)
}

// Recent returns up to n transactions, newest first.
func Recent(txs []models.CreditTransaction, n int) []models.CreditTransaction {
	out := append([]models.CreditTransaction(nil), txs...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// CreditTypes lists the distinct credit types present, sorted.
func CreditTypes(txs []models.CreditTransaction) []string {
	seen := map[string]bool{}
	var out []string
	for _, tx := range txs {
		ct := strings.TrimSpace(tx.CreditType)
		if ct == "" || seen[ct] {
			continue
		}
		seen[ct] = true
		out = append(out, ct)
	}
	sort.Strings(out)
	return out
}
