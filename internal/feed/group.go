package feed

import (
	"slices"
	"time"

	"hive/internal/model"
)

// Groups maps every bucket to its events. All six buckets are present,
// possibly with empty lists.
type Groups map[Bucket][]model.Event

// Group partitions events by Classify against a single now and sorts each
// bucket by StartsAt, ascending everywhere except Past, which is most
// recent first. Sorting is stable: events with equal StartsAt keep their
// input order.
func Group(events []model.Event, now time.Time) Groups {
	g := make(Groups, len(DisplayOrder))
	for _, b := range DisplayOrder {
		g[b] = []model.Event{}
	}

	for _, ev := range events {
		b := Classify(ev, now)
		g[b] = append(g[b], ev)
	}

	for b, list := range g {
		if b == Past {
			slices.SortStableFunc(list, func(x, y model.Event) int {
				return y.StartsAt.Compare(x.StartsAt)
			})
			continue
		}
		slices.SortStableFunc(list, func(x, y model.Event) int {
			return x.StartsAt.Compare(y.StartsAt)
		})
	}
	return g
}

// Total is the number of events across all buckets.
func (g Groups) Total() int {
	n := 0
	for _, list := range g {
		n += len(list)
	}
	return n
}

// Empty reports whether no bucket holds an event.
func (g Groups) Empty() bool {
	return g.Total() == 0
}
