package profile

import (
	"sort"

	"github.com/shopspring/decimal"
)

// LeaderboardCapacity bounds the retained final-balance history.
const LeaderboardCapacity = 5

// Leaderboard keeps the most recent session final balances, insertion
// ordered. When a sixth value arrives the oldest insertion is evicted,
// regardless of value.
type Leaderboard struct {
	entries []decimal.Decimal
}

// NewLeaderboard builds a leaderboard from existing entries in insertion
// order, keeping only the newest LeaderboardCapacity of them.
func NewLeaderboard(entries []decimal.Decimal) *Leaderboard {
	l := &Leaderboard{}
	for _, e := range entries {
		l.Insert(e)
	}
	return l
}

// Insert appends a final balance, evicting the earliest-inserted entry when
// over capacity.
func (l *Leaderboard) Insert(v decimal.Decimal) {
	l.entries = append(l.entries, v)
	if len(l.entries) > LeaderboardCapacity {
		l.entries = l.entries[1:]
	}
}

// Entries returns a copy in insertion order, oldest first.
func (l *Leaderboard) Entries() []decimal.Decimal {
	out := make([]decimal.Decimal, len(l.entries))
	copy(out, l.entries)
	return out
}

// Sorted returns a copy sorted descending, the display and storage order.
// Repeated calls do not mutate the underlying insertion order.
func (l *Leaderboard) Sorted() []decimal.Decimal {
	out := l.Entries()
	sort.Slice(out, func(i, j int) bool { return out[i].GreaterThan(out[j]) })
	return out
}

// Len returns the number of retained entries.
func (l *Leaderboard) Len() int { return len(l.entries) }
