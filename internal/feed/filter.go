package feed

import (
	"fmt"
	"time"

	"hive/internal/model"
)

// Shortcut is the single-choice filter bar selector.
type Shortcut string

const (
	ShortcutAll       Shortcut = "all"
	ShortcutToday     Shortcut = "today"
	ShortcutTomorrow  Shortcut = "tomorrow"
	ShortcutThisWeek  Shortcut = "this-week"
	ShortcutSocials   Shortcut = "socials"
	ShortcutWorkshops Shortcut = "workshops"
	ShortcutSports    Shortcut = "sports"
)

// Shortcuts lists the selectors in filter bar order.
var Shortcuts = []Shortcut{
	ShortcutAll, ShortcutToday, ShortcutTomorrow, ShortcutThisWeek,
	ShortcutSocials, ShortcutWorkshops, ShortcutSports,
}

// shortcutCategory maps the plural selector names to the singular
// category values they match.
var shortcutCategory = map[Shortcut]model.Category{
	ShortcutSocials:   model.CategorySocial,
	ShortcutWorkshops: model.CategoryWorkshop,
	ShortcutSports:    model.CategorySports,
}

// ParseShortcut returns the selector named s. An empty string selects all.
func ParseShortcut(s string) (Shortcut, error) {
	if s == "" {
		return ShortcutAll, nil
	}
	sc := Shortcut(s)
	for _, known := range Shortcuts {
		if sc == known {
			return sc, nil
		}
	}
	return "", fmt.Errorf("unknown filter %q", s)
}

// Predicate reports whether an event should be kept.
type Predicate func(model.Event) bool

// Predicate returns the test for sc relative to now.
func (sc Shortcut) Predicate(now time.Time) (Predicate, error) {
	switch sc {
	case ShortcutAll:
		return func(model.Event) bool { return true }, nil
	case ShortcutToday:
		return func(e model.Event) bool { return IsToday(e.StartsAt, now) }, nil
	case ShortcutTomorrow:
		return func(e model.Event) bool { return IsTomorrow(e.StartsAt, now) }, nil
	case ShortcutThisWeek:
		return func(e model.Event) bool { return IsThisWeek(e.StartsAt, now) }, nil
	}
	if cat, ok := shortcutCategory[sc]; ok {
		return func(e model.Event) bool { return e.Category == cat }, nil
	}
	return nil, fmt.Errorf("unknown filter %q", string(sc))
}

// ApplyShortcut narrows events by sc. ShortcutAll returns events unchanged.
func ApplyShortcut(events []model.Event, sc Shortcut, now time.Time) ([]model.Event, error) {
	if sc == ShortcutAll {
		return events, nil
	}
	p, err := sc.Predicate(now)
	if err != nil {
		return nil, err
	}
	return Keep(events, p), nil
}

// FilterState is the set of independent narrowing conditions. A zero field
// imposes no condition.
type FilterState struct {
	SocietyID    string
	Category     model.Category
	FreeFoodOnly bool
}

// Active reports whether any condition is set.
func (f FilterState) Active() bool {
	return f.SocietyID != "" || f.Category != "" || f.FreeFoodOnly
}

// Validate rejects a category outside the known set.
func (f FilterState) Validate() error {
	if f.Category != "" && !f.Category.Valid() {
		return fmt.Errorf("unknown event category %q", string(f.Category))
	}
	return nil
}

// Predicates returns one predicate per set field. They are independent, so
// applying them in any order yields the same result.
func (f FilterState) Predicates() ([]Predicate, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	var preds []Predicate
	if f.SocietyID != "" {
		id := f.SocietyID
		preds = append(preds, func(e model.Event) bool { return e.SocietyID == id })
	}
	if f.Category != "" {
		cat := f.Category
		preds = append(preds, func(e model.Event) bool { return e.Category == cat })
	}
	if f.FreeFoodOnly {
		preds = append(preds, model.Event.HasFreeFood)
	}
	return preds, nil
}

// Apply narrows events by every set field of f (logical AND).
func Apply(events []model.Event, f FilterState) ([]model.Event, error) {
	preds, err := f.Predicates()
	if err != nil {
		return nil, err
	}
	return Keep(events, preds...), nil
}

// Keep returns the events that satisfy every predicate, in input order.
func Keep(events []model.Event, preds ...Predicate) []model.Event {
	out := make([]model.Event, 0, len(events))
next:
	for _, e := range events {
		for _, p := range preds {
			if !p(e) {
				continue next
			}
		}
		out = append(out, e)
	}
	return out
}

// SelectIDs keeps the events whose ID is in ids, in input order. A nil ids
// slice means no selection is active and returns events unchanged.
func SelectIDs(events []model.Event, ids []string) []model.Event {
	if ids == nil {
		return events
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return Keep(events, func(e model.Event) bool {
		_, ok := want[e.ID]
		return ok
	})
}
