package feed

import (
	"time"

	"hive/internal/model"
)

// Query is everything the feed page can ask for in one request.
type Query struct {
	Shortcut Shortcut
	Filters  FilterState
	// IDs restricts the feed to an Ask Hive result set when non-nil.
	IDs []string
}

// HasActiveFilters reports whether an empty result means "filtered out"
// rather than "no events".
func (q Query) HasActiveFilters() bool {
	return (q.Shortcut != "" && q.Shortcut != ShortcutAll) || q.Filters.Active() || q.IDs != nil
}

// View is a filtered and grouped feed.
type View struct {
	Now              time.Time
	Groups           Groups
	HasActiveFilters bool
}

// Build filters events by q and groups the result, all against one now.
func Build(events []model.Event, q Query, now time.Time) (View, error) {
	sc := q.Shortcut
	if sc == "" {
		sc = ShortcutAll
	}
	narrowed, err := ApplyShortcut(events, sc, now)
	if err != nil {
		return View{}, err
	}
	narrowed, err = Apply(narrowed, q.Filters)
	if err != nil {
		return View{}, err
	}
	narrowed = SelectIDs(narrowed, q.IDs)

	return View{
		Now:              now,
		Groups:           Group(narrowed, now),
		HasActiveFilters: q.HasActiveFilters(),
	}, nil
}
