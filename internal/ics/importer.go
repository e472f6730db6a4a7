package ics

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	appLog "hive/internal/log"
	"hive/internal/metrics"
	"hive/internal/model"
)

// ImporterConfig configures periodic feed import.
type ImporterConfig struct {
	Feeds    []Feed
	CacheDir string
	Timeout  time.Duration
	Location *time.Location
	// BackfillDays and HorizonDays bound the expansion window around now.
	BackfillDays int
	HorizonDays  int
	// Now defaults to time.Now.
	Now func() time.Time
}

// Importer keeps an in-memory snapshot of events imported from society ICS
// feeds. Refresh replaces the snapshot; Events reads it.
type Importer struct {
	cfg     ImporterConfig
	fetcher *Fetcher

	mu        sync.RWMutex
	byFeed    map[string][]model.Event
	updatedAt time.Time
}

// NewImporter builds an Importer. No fetch happens until Refresh.
func NewImporter(cfg ImporterConfig) *Importer {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.BackfillDays < 0 {
		cfg.BackfillDays = 0
	}
	if cfg.HorizonDays <= 0 {
		cfg.HorizonDays = 60
	}
	return &Importer{
		cfg:     cfg,
		fetcher: NewFetcher(cfg.CacheDir, cfg.Timeout),
		byFeed:  make(map[string][]model.Event),
	}
}

// Refresh fetches, parses and expands every feed. A feed that fails keeps
// its previous events; the failures are returned joined.
func (im *Importer) Refresh(ctx context.Context) error {
	now := im.cfg.Now().In(im.cfg.Location)
	expandCfg := ExpandConfig{
		Location:   im.cfg.Location,
		RangeStart: now.AddDate(0, 0, -im.cfg.BackfillDays),
		RangeEnd:   now.AddDate(0, 0, im.cfg.HorizonDays),
	}

	var errs []error
	fresh := make(map[string][]model.Event, len(im.cfg.Feeds))
	for _, feed := range im.cfg.Feeds {
		events, err := im.importFeed(ctx, feed, expandCfg)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		fresh[feed.ID] = events
	}

	im.mu.Lock()
	for id, events := range fresh {
		im.byFeed[id] = events
	}
	im.updatedAt = now
	total := 0
	for _, events := range im.byFeed {
		total += len(events)
	}
	im.mu.Unlock()

	metrics.ImportedEvents.Set(float64(total))
	appLog.Info("ics import finished", "feeds", len(im.cfg.Feeds), "failed", len(errs), "events", total)
	return errors.Join(errs...)
}

func (im *Importer) importFeed(ctx context.Context, feed Feed, cfg ExpandConfig) ([]model.Event, error) {
	res, err := im.fetcher.Fetch(ctx, feed)
	if err != nil {
		return nil, err
	}
	parsed, err := Parse(feed, res.Body)
	if err != nil {
		return nil, err
	}
	result, err := Expand(parsed, cfg)
	if err != nil {
		return nil, err
	}
	if result.Skipped > 0 {
		appLog.Warn("ics occurrences skipped", "feed", feed.ID, "count", result.Skipped)
	}
	return result.Events, nil
}

// Events returns a copy of the current snapshot in feed configuration order.
func (im *Importer) Events(context.Context) ([]model.Event, error) {
	im.mu.RLock()
	defer im.mu.RUnlock()

	var out []model.Event
	for _, feed := range im.cfg.Feeds {
		out = append(out, im.byFeed[feed.ID]...)
	}
	return slices.Clip(out), nil
}

// UpdatedAt is the reference time of the last Refresh.
func (im *Importer) UpdatedAt() time.Time {
	im.mu.RLock()
	defer im.mu.RUnlock()
	return im.updatedAt
}
