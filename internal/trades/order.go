package trades

import (
	"sort"

	"launchpad/internal/model"
)

// SortNewestFirst orders trades by block descending, then log index
// descending, in place.
func SortNewestFirst(trades []model.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		if trades[i].BlockNumber != trades[j].BlockNumber {
			return trades[i].BlockNumber > trades[j].BlockNumber
		}
		return trades[i].LogIndex > trades[j].LogIndex
	})
}

// Dedupe drops repeated trades by block:tx:logIndex, keeping the first.
func Dedupe(trades []model.Trade) []model.Trade {
	seen := make(map[string]struct{}, len(trades))
	out := trades[:0]
	for _, t := range trades {
		id := t.ID()
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, t)
	}
	return out
}
