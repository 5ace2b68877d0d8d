package ledger

import (
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messagemaster/internal/models"
)

const domestic = "Normal Message - domestic"

func tx(to, creditType string, kind models.TxType, count int64) models.CreditTransaction {
	return models.CreditTransaction{To: to, CreditType: creditType, Type: kind, Count: count}
}

func TestBalanceAddedMinusRemoved(t *testing.T) {
	txs := []models.CreditTransaction{
		tx("a@x.com", domestic, models.TxAdded, 100),
		tx("a@x.com", domestic, models.TxRemoved, 30),
	}
	assert.Equal(t, int64(70), Balance(txs, "a@x.com", domestic))
	assert.Equal(t, int64(0), Balance(txs, "b@x.com", domestic))
	assert.Equal(t, int64(0), Balance(txs, "a@x.com", "With DP - domestic"))
}

func TestBalanceIsOrderIndependent(t *testing.T) {
	var txs []models.CreditTransaction
	for i := 0; i < 50; i++ {
		kind := models.TxAdded
		if i%3 == 0 {
			kind = models.TxRemoved
		}
		to := "a@x.com"
		if i%4 == 0 {
			to = "b@x.com"
		}
		txs = append(txs, tx(to, domestic, kind, int64(i+1)))
	}
	want := Balance(txs, "a@x.com", domestic)
	r := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]models.CreditTransaction(nil), txs...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		require.Equal(t, want, Balance(shuffled, "a@x.com", domestic))
	}
}

func TestBalancesByTypeKeepsNegativeRemainders(t *testing.T) {
	txs := []models.CreditTransaction{
		tx("a@x.com", domestic, models.TxAdded, 10),
		tx("a@x.com", domestic, models.TxRemoved, 25),
		tx("a@x.com", "With CTA - domestic", models.TxAdded, 5),
		tx("b@x.com", domestic, models.TxAdded, 1000),
	}
	got := BalancesByType(txs, "a@x.com")
	assert.Equal(t, TypeBalance{Added: 10, Removed: 25, Remaining: -15}, got[domestic])
	assert.Equal(t, TypeBalance{Added: 5, Remaining: 5}, got["With CTA - domestic"])
	assert.Len(t, got, 2)
	assert.Equal(t, int64(-10), Total(txs, "a@x.com"))
}

func TestCheckSufficient(t *testing.T) {
	txs := []models.CreditTransaction{tx("a@x.com", domestic, models.TxAdded, 5)}
	err := CheckSufficient(txs, "a@x.com", domestic, 6)
	var short *InsufficientCreditsError
	require.ErrorAs(t, err, &short)
	assert.Equal(t, int64(6), short.Need)
	assert.Equal(t, int64(5), short.Have)
	assert.Equal(t, "Insufficient credits for this message type. You need 6, but the user only has 5.", err.Error())
	assert.NoError(t, CheckSufficient(txs, "a@x.com", domestic, 5))
	assert.True(t, HasInsufficientCredits(5, 6))
	assert.False(t, HasInsufficientCredits(5, 5))
}

func TestNetByTypeAndSums(t *testing.T) {
	txs := []models.CreditTransaction{
		{To: "a", CreditType: domestic, Type: models.TxAdded, Count: 100, Total: 50},
		{To: "b", CreditType: domestic, Type: models.TxRemoved, Count: 40},
		{To: "b", CreditType: "With DP - domestic", Type: models.TxAdded, Count: 7, Total: 3.5},
	}
	assert.Equal(t, map[string]int64{domestic: 60, "With DP - domestic": 7}, NetByType(txs))
	assert.Equal(t, int64(107), SumCount(txs, models.TxAdded))
	assert.Equal(t, int64(40), SumCount(txs, models.TxRemoved))
	assert.InDelta(t, 53.5, SumAmount(txs, models.TxAdded), 1e-9)
}

func TestTopConsumers(t *testing.T) {
	txs := []models.CreditTransaction{
		tx("a", domestic, models.TxRemoved, 10),
		tx("b", domestic, models.TxRemoved, 30),
		tx("c", domestic, models.TxRemoved, 10),
		tx("a", domestic, models.TxAdded, 999),
	}
	got := TopConsumers(txs, 2)
	assert.Equal(t, []Consumer{{Email: "b", Used: 30}, {Email: "a", Used: 10}}, got)
}

func TestFilter(t *testing.T) {
	day := func(d int) time.Time { return time.Date(2026, 5, d, 12, 0, 0, 0, time.UTC) }
	txs := []models.CreditTransaction{
		{To: "a@x.com", CreditType: domestic, Type: models.TxAdded, CreatedAt: day(1)},
		{To: "a@x.com", CreditType: domestic, Type: models.TxRemoved, Reason: "Refund reversal", CreatedAt: day(3)},
		{To: "b@x.com", CreditType: "With DP - domestic", Type: models.TxAdded, CreatedAt: day(5)},
	}
	r, err := models.ParseDateRange("2026-05-02", "2026-05-05")
	require.NoError(t, err)

	assert.Len(t, Filter{Range: r}.Apply(txs), 2)
	assert.Len(t, Filter{User: "a@x.com", Type: models.TxRemoved}.Apply(txs), 1)
	assert.Len(t, Filter{Search: "refund"}.Apply(txs), 1)
	assert.Len(t, Filter{CreditType: "All", Type: "All"}.Apply(txs), 3)
	assert.Len(t, ForUser(txs, "b@x.com"), 1)

	recent := Recent(txs, 2)
	require.Len(t, recent, 2)
	assert.Equal(t, day(5), recent[0].CreatedAt)
	assert.Equal(t, []string{domestic, "With DP - domestic"}, CreditTypes(txs))
}
