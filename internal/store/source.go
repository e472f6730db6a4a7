package store

import (
	"context"

	appLog "hive/internal/log"
	"hive/internal/model"
)

// Source yields the current event collection, in no particular order.
type Source interface {
	Events(ctx context.Context) ([]model.Event, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) ([]model.Event, error)

func (f SourceFunc) Events(ctx context.Context) ([]model.Event, error) {
	return f(ctx)
}

// Merge returns a Source that concatenates primary with extras. An error
// from primary is returned as is. Extras are best effort: their errors are
// logged and their events skipped.
func Merge(primary Source, extras ...Source) Source {
	return SourceFunc(func(ctx context.Context) ([]model.Event, error) {
		events, err := primary.Events(ctx)
		if err != nil {
			return nil, err
		}
		for i, src := range extras {
			more, err := src.Events(ctx)
			if err != nil {
				appLog.Error("secondary event source failed", err, "index", i)
				continue
			}
			events = append(events, more...)
		}
		return events, nil
	})
}

// WithFallback returns primary's events, or fallback's when primary
// succeeds with an empty collection. Primary errors are not masked.
func WithFallback(primary, fallback Source) Source {
	return SourceFunc(func(ctx context.Context) ([]model.Event, error) {
		events, err := primary.Events(ctx)
		if err != nil {
			return nil, err
		}
		if len(events) > 0 {
			return events, nil
		}
		appLog.Debug("primary event source empty; serving fallback events")
		return fallback.Events(ctx)
	})
}
