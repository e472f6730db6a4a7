package ics

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/teambition/rrule-go"

	appLog "hive/internal/log"
	"hive/internal/model"
)

const defaultMaxOccurrencesPerEvent = 500

// importNamespace scopes the name-based UUIDs of imported events.
var importNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("urn:hive:ics-import"))

// ExpandConfig bounds recurrence expansion.
type ExpandConfig struct {
	// Location is the zone occurrences are normalized into. Nil means time.Local.
	Location *time.Location

	// RangeStart and RangeEnd bound the occurrences kept.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerEvent caps a single RRULE expansion.
	MaxOccurrencesPerEvent int
}

// ExpandResult is the imported events plus the UIDs that hit the cap.
type ExpandResult struct {
	Events    []model.Event
	Truncated []string
	// Skipped counts occurrences dropped because no category could be resolved.
	Skipped int
}

// Expand turns parsed VEVENTs into concrete events within the configured
// range. It applies RRULE, EXDATE and RECURRENCE-ID overrides.
func Expand(events []ParsedEvent, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, errors.New("ics expand: range end is before range start")
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxOccurrencesPerEvent <= 0 {
		cfg.MaxOccurrencesPerEvent = defaultMaxOccurrencesPerEvent
	}

	// Group base events and overrides by UID, keeping first-seen order so
	// the output is deterministic.
	var uids []string
	baseByUID := make(map[string][]ParsedEvent)
	overridesByUID := make(map[string][]ParsedEvent)
	for _, ev := range events {
		if ev.IsOverride && ev.Recurrence != nil {
			overridesByUID[ev.UID] = append(overridesByUID[ev.UID], ev)
			continue
		}
		if _, seen := baseByUID[ev.UID]; !seen {
			uids = append(uids, ev.UID)
		}
		baseByUID[ev.UID] = append(baseByUID[ev.UID], ev)
	}

	for _, uid := range uids {
		ov := overridesByUID[uid]
		truncated := false
		for _, ev := range baseByUID[uid] {
			occ, hitCap := expandEvent(ev, ov, cfg)
			truncated = truncated || hitCap
			for _, o := range occ {
				e, ok := o.toEvent()
				if !ok {
					result.Skipped++
					continue
				}
				result.Events = append(result.Events, e)
			}
		}
		if truncated {
			result.Truncated = append(result.Truncated, uid)
			appLog.Warn("ics expand: occurrences truncated", "uid", uid, "cap", cfg.MaxOccurrencesPerEvent)
		}
	}
	return result, nil
}

// occurrence is one concrete instance of a (possibly overridden) VEVENT.
type occurrence struct {
	ev         ParsedEvent
	start, end time.Time
}

func expandEvent(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]occurrence, bool) {
	if ev.RawRRule == "" {
		return expandSingle(ev, overrides, cfg), false
	}
	return expandRecurring(ev, overrides, cfg)
}

func expandSingle(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) []occurrence {
	start, end := ev.Start, ev.End
	if o, ok := findOverride(overrides, start); ok {
		ev, start, end = o, o.Start, o.End
	}
	if !overlaps(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []occurrence{{ev: ev, start: start.In(cfg.Location), end: end.In(cfg.Location)}}
}

func expandRecurring(ev ParsedEvent, overrides []ParsedEvent, cfg ExpandConfig) ([]occurrence, bool) {
	r, err := rrule.StrToRRule(ev.RawRRule)
	if err != nil {
		appLog.Error("ics expand: bad RRULE", err, "uid", ev.UID, "rrule", ev.RawRRule)
		return nil, false
	}
	r.DTStart(ev.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range ev.ExDates {
		set.ExDate(ex.In(ev.Start.Location()))
	}

	dur := ev.End.Sub(ev.Start)
	// Widen the lower bound by the duration so occurrences still running at
	// RangeStart are included.
	lo := cfg.RangeStart.Add(-dur).In(ev.Start.Location())
	hi := cfg.RangeEnd.In(ev.Start.Location())
	starts := set.Between(lo, hi, true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerEvent {
		starts = starts[:cfg.MaxOccurrencesPerEvent]
		hitCap = true
	}

	out := make([]occurrence, 0, len(starts))
	for _, s := range starts {
		var e time.Time
		if ev.AllDay {
			day := time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			s, e = day, day.AddDate(0, 0, 1)
		} else {
			e = s.Add(dur)
		}

		base := ev
		if o, ok := findOverride(overrides, s); ok {
			base, s, e = o, o.Start, o.End
		}
		out = append(out, occurrence{ev: base, start: s.In(cfg.Location), end: e.In(cfg.Location)})
	}
	return out, hitCap
}

// findOverride returns the override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedEvent, start time.Time) (ParsedEvent, bool) {
	for _, ov := range overrides {
		if ov.Recurrence != nil && ov.Recurrence.Equal(start) {
			return ov, true
		}
	}
	return ParsedEvent{}, false
}

// toEvent converts the occurrence to a feed event. It reports false when
// neither the VEVENT CATEGORIES nor the feed default name a known category.
func (o occurrence) toEvent() (model.Event, bool) {
	cat, tags := resolveCategory(o.ev.Categories, o.ev.Feed.Category)
	if cat == "" {
		appLog.Warn("ics event without category skipped", "feed", o.ev.Feed.ID, "uid", o.ev.UID)
		return model.Event{}, false
	}

	instanceKey := o.start.UTC().Format(time.RFC3339Nano)
	name := o.ev.Feed.ID + "|" + o.ev.UID + "|" + instanceKey

	e := model.Event{
		ID:         uuid.NewSHA1(importNamespace, []byte(name)).String(),
		SocietyID:  o.ev.Feed.SocietyID,
		Title:      o.ev.Summary,
		Location:   o.ev.Location,
		Category:   cat,
		StartsAt:   o.start,
		EndsAt:     o.end,
		FoodDetail: o.ev.FoodDetail,
		Tags:       tags,
	}
	if d := strings.TrimSpace(o.ev.Description); d != "" {
		e.Description = &d
	}
	if o.ev.Feed.SocietyID != "" {
		e.Society = &model.SocietySummary{ID: o.ev.Feed.SocietyID, Name: o.ev.Feed.SocietyName}
	}
	return e, true
}

// resolveCategory picks the first CATEGORIES value that names a known
// category; the remaining values become tags.
func resolveCategory(values []string, fallback string) (model.Category, []string) {
	var cat model.Category
	var tags []string
	for _, v := range values {
		if cat == "" {
			if c, err := model.ParseCategory(strings.ToLower(v)); err == nil {
				cat = c
				continue
			}
		}
		tags = append(tags, v)
	}
	if cat == "" && fallback != "" {
		if c, err := model.ParseCategory(fallback); err == nil {
			cat = c
		}
	}
	return cat, tags
}

func overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aEnd.Before(bStart) && !bEnd.Before(aStart)
}
