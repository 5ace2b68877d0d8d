// Package ledger folds credit transactions into balances and report figures.
// Every page reads credit numbers through these functions.
package ledger

import (
	"fmt"

	"messagemaster/internal/models"
)

func signed(tx models.CreditTransaction) int64 {
	switch tx.Type {
	case models.TxAdded:
		return tx.Count
	case models.TxRemoved:
		return -tx.Count
	default:
		return 0
	}
}

// Balance is added minus removed for one (user, credit type) pair.
func Balance(txs []models.CreditTransaction, email, creditType string) int64 {
	var n int64
	for _, tx := range txs {
		if tx.To == email && tx.CreditType == creditType {
			n += signed(tx)
		}
	}
	return n
}

// Total is the user's net balance across every credit type.
func Total(txs []models.CreditTransaction, email string) int64 {
	var n int64
	for _, tx := range txs {
		if tx.To == email {
			n += signed(tx)
		}
	}
	return n
}

type TypeBalance struct {
	Added     int64 `json:"added"`
	Removed   int64 `json:"removed"`
	Remaining int64 `json:"remaining"`
}

// BalancesByType groups the user's transactions by credit type. Remaining is
// not clamped; a negative value means the backend allowed over-removal.
func BalancesByType(txs []models.CreditTransaction, email string) map[string]TypeBalance {
	out := map[string]TypeBalance{}
	for _, tx := range txs {
		if tx.To != email {
			continue
		}
		b := out[tx.CreditType]
		switch tx.Type {
		case models.TxAdded:
			b.Added += tx.Count
		case models.TxRemoved:
			b.Removed += tx.Count
		}
		b.Remaining = b.Added - b.Removed
		out[tx.CreditType] = b
	}
	return out
}

// NetByType is the all-users net balance per credit type.
func NetByType(txs []models.CreditTransaction) map[string]int64 {
	out := map[string]int64{}
	for _, tx := range txs {
		out[tx.CreditType] += signed(tx)
	}
	return out
}

func SumCount(txs []models.CreditTransaction, kind models.TxType) int64 {
	var n int64
	for _, tx := range txs {
		if tx.Type == kind {
			n += tx.Count
		}
	}
	return n
}

func SumAmount(txs []models.CreditTransaction, kind models.TxType) float64 {
	var n float64
	for _, tx := range txs {
		if tx.Type == kind {
			n += tx.Total
		}
	}
	return n
}

// InsufficientCreditsError blocks a campaign whose recipients exceed the balance.
type InsufficientCreditsError struct {
	Need int64
	Have int64
}

func (e *InsufficientCreditsError) Error() string {
	return fmt.Sprintf("Insufficient credits for this message type. You need %d, but the user only has %d.", e.Need, e.Have)
}

func HasInsufficientCredits(balance int64, recipients int) bool {
	return int64(recipients) > balance
}

// CheckSufficient is the advisory pre-submission guard. It cannot reserve
// credits: another actor may spend them before the backend sees the campaign.
func CheckSufficient(txs []models.CreditTransaction, email, creditType string, recipients int) error {
	have := Balance(txs, email, creditType)
	if HasInsufficientCredits(have, recipients) {
		return &InsufficientCreditsError{Need: int64(recipients), Have: have}
	}
	return nil
}
