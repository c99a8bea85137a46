// Package aggregator merges per-venue depth snapshots into one globally
// sorted book per symbol.
package aggregator

import (
	"errors"
	"sort"

	"github.com/BullionBear/aggbook/internal/bus"
	"github.com/BullionBear/aggbook/pkg/book"
	"github.com/BullionBear/aggbook/pkg/logger"
	"github.com/BullionBear/aggbook/pkg/mq"
)

type sides struct {
	bids []book.Level
	asks []book.Level
}

// Aggregator keeps the latest snapshot per (symbol, venue) pair. It is
// owned by a single goroutine; no locking is needed.
type Aggregator struct {
	snapshots map[book.Symbol]map[book.Exchange]sides
}

func New() *Aggregator {
	return &Aggregator{
		snapshots: make(map[book.Symbol]map[book.Exchange]sides),
	}
}

// OnSnapshot overwrites the venue's entry under the snapshot's symbol and
// rebuilds the merged book. The result is a pure function of the
// latest-per-venue map, so replaying the same snapshot yields an identical
// book.
func (a *Aggregator) OnSnapshot(s book.Snapshot) book.AggregatedBook {
	m, ok := a.snapshots[s.Symbol]
	if !ok {
		m = make(map[book.Exchange]sides)
		a.snapshots[s.Symbol] = m
	}
	m[s.Exchange] = sides{bids: s.Bids, asks: s.Asks}

	merged := flatten(m)
	sortBook(&merged)
	return merged
}

// flatten emits one attributed level per venue level, walking venues in
// the fixed book.Exchanges order so equal-key levels tie-break the same
// way on every run.
func flatten(m map[book.Exchange]sides) book.AggregatedBook {
	merged := book.AggregatedBook{}
	for _, ex := range book.Exchanges {
		s, ok := m[ex]
		if !ok {
			continue
		}
		for _, level := range s.bids {
			merged.Bids = append(merged.Bids, book.ExchangeLevel{Exchange: ex, Level: level})
		}
		for _, level := range s.asks {
			merged.Asks = append(merged.Asks, book.ExchangeLevel{Exchange: ex, Level: level})
		}
	}
	return merged
}

// sortBook orders bids best-first by (price desc, amount desc) and asks
// best-first by (price asc, amount desc). The sorts are stable, so exact
// ties keep the flatten order.
func sortBook(b *book.AggregatedBook) {
	sortLevels(b.Bids, book.OrderDesc, book.OrderDesc)
	sortLevels(b.Asks, book.OrderAsc, book.OrderDesc)
}

func sortLevels(levels []book.ExchangeLevel, priceOrder, amountOrder func(a, b float64) int) {
	sort.SliceStable(levels, func(i, j int) bool {
		if c := priceOrder(levels[i].Level.Price, levels[j].Level.Price); c != 0 {
			return c < 0
		}
		return amountOrder(levels[i].Level.Amount, levels[j].Level.Amount) < 0
	})
}

// Run drains the fan-in queue, deriving and publishing a summary for every
// snapshot. It returns once the queue is closed and fully drained.
func Run(in mq.MessageQueue[book.Snapshot], out *bus.Bus) {
	a := New()
	for {
		snapshot, err := in.Recv()
		if err != nil {
			if !errors.Is(err, mq.ErrClosed) {
				logger.Log.Error().Err(err).Msg("aggregator receive failed")
			}
			logger.Log.Info().Msg("aggregator stopped")
			return
		}
		merged := a.OnSnapshot(snapshot)
		out.Publish(merged.Summarize(book.TopLevels))
	}
}
