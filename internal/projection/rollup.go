package projection

import (
	"sort"

	"github.com/aevon-lab/fsevents/internal/core/storage"
)

// rollupTriggers converts per-trigger counts into shares of total, largest first.
// Ties are ordered by trigger name.
func rollupTriggers(byTrigger map[string]int64, total int64) []TriggerShare {
	shares := make([]TriggerShare, 0, len(byTrigger))
	for trigger, n := range byTrigger {
		shares = append(shares, TriggerShare{
			Trigger: trigger,
			Flushes: n,
			Share:   average(n, total),
		})
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].Flushes != shares[j].Flushes {
			return shares[i].Flushes > shares[j].Flushes
		}
		return shares[i].Trigger < shares[j].Trigger
	})
	return shares
}

// rollupFileTotals sums file flush rows per subscription, ordered by subscription ID.
func rollupFileTotals(rows []storage.FileFlush) []SubscriptionTotal {
	bySub := make(map[int64]*SubscriptionTotal)
	for _, r := range rows {
		t, ok := bySub[r.SubscriptionID]
		if !ok {
			t = &SubscriptionTotal{SubscriptionID: r.SubscriptionID}
			bySub[r.SubscriptionID] = t
		}
		t.Flushes++
		t.Counter += r.Counter
		t.Size += r.Size
	}

	totals := make([]SubscriptionTotal, 0, len(bySub))
	for _, t := range bySub {
		totals = append(totals, *t)
	}
	sort.Slice(totals, func(i, j int) bool {
		return totals[i].SubscriptionID < totals[j].SubscriptionID
	})
	return totals
}
