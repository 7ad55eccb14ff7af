// Package finality gates transfer events on confirmation depth.
package finality

import (
	"sort"

	"github.com/vietddude/depositverifier/internal/core/domain"
)

// SafeBlock returns the highest block with at least `confirmations` blocks on top of it.
// ok is false while the chain is shorter than the required depth.
func SafeBlock(latest, confirmations uint64) (block uint64, ok bool) {
	if latest < confirmations {
		return 0, false
	}
	return latest - confirmations, true
}

// Result splits events into the ones deep enough to credit and the ones still pending.
type Result struct {
	Confirmed []*domain.TransferEvent
	Pending   int
}

// Filter keeps events with latest - block >= minConfirmations.
// Events above latest are never confirmed. Confirmed events are returned in
// chain order (block number, then log index). Pending events are only counted;
// a later run picks them up once they are deep enough.
func Filter(latest uint64, events []*domain.TransferEvent, minConfirmations uint64) Result {
	var res Result
	safe, ok := SafeBlock(latest, minConfirmations)

	for _, ev := range events {
		if ev == nil {
			continue
		}
		if !ok || ev.BlockNumber > safe {
			res.Pending++
			continue
		}
		res.Confirmed = append(res.Confirmed, ev)
	}

	sort.SliceStable(res.Confirmed, func(i, j int) bool {
		a, b := res.Confirmed[i], res.Confirmed[j]
		if a.BlockNumber != b.BlockNumber {
			return a.BlockNumber < b.BlockNumber
		}
		return a.LogIndex < b.LogIndex
	})
	return res
}
