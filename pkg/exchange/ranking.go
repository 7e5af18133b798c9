package exchange

import (
	"sort"

	"github.com/shopspring/decimal"
)

// InvestorSummary is one row of the richest-investors report.
// FirstActivity/LastActivity are unix seconds and only meaningful when
// HasActivity is true.
type InvestorSummary struct {
	ID             uint32
	Owner          string
	Coins          decimal.Decimal
	ExecutedOrders int
	FirstActivity  int64
	LastActivity   int64
	HasActivity    bool
}

// RichestInvestors returns up to n wallets ordered by coin balance, highest
// first, ties broken by enrollment order. The selection is read-only and
// bounded by the population size; it never rearranges registry storage.
func (e *Exchange) RichestInvestors(n int) []InvestorSummary {
	e.mu.Lock()
	defer e.mu.Unlock()

	wallets := e.wallets.List()

	type ranked struct {
		id    uint32
		owner string
		coins decimal.Decimal
	}
	rows := make([]ranked, len(wallets))
	for i, w := range wallets {
		rows[i] = ranked{id: w.ID, owner: w.Owner, coins: e.ledger.CoinBalance(w.ID)}
	}

	k := n
	if k > len(rows) {
		k = len(rows)
	}
	if k < 0 {
		k = 0
	}

	// Stable sort keeps ties in enrollment order.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].coins.GreaterThan(rows[j].coins)
	})

	out := make([]InvestorSummary, 0, k)
	for _, row := range rows[:k] {
		s := InvestorSummary{
			ID:             row.id,
			Owner:          row.owner,
			Coins:          row.coins,
			ExecutedOrders: e.book.ExecutedCount(row.id),
		}
		if first, ok := e.ledger.FirstActivity(row.id); ok {
			last, _ := e.ledger.LastActivity(row.id)
			s.FirstActivity = first
			s.LastActivity = last
			s.HasActivity = true
		}
		out = append(out, s)
	}
	return out
}
