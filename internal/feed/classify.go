package feed

import (
	"time"

	"hive/internal/model"
)

// Classify returns the bucket of ev relative to now. Calendar questions
// (same day, next day, same week) are answered in now's location.
//
// Rules are checked in order and the first match wins:
//
//   - past: the event has ended (EndsAt <= now)
//   - happening-now: StartsAt <= now < EndsAt
//   - later-today: starts after now, before the end of now's day
//   - tomorrow: starts on the calendar day after now's day
//   - this-week: starts within now's ISO week (Monday to Sunday)
//   - upcoming: any other future start
//
// Start and end are not checked against each other. An inverted range is
// classified by the literal rules above.
func Classify(ev model.Event, now time.Time) Bucket {
	if !ev.EndsAt.After(now) {
		return Past
	}
	// From here on EndsAt > now.
	if !ev.StartsAt.After(now) {
		return HappeningNow
	}

	start := ev.StartsAt.In(now.Location())
	// Same calendar day as now covers the whole day, up to its last nanosecond.
	if sameDay(start, now) {
		return LaterToday
	}
	if sameDay(start, startOfDay(now).AddDate(0, 0, 1)) {
		return Tomorrow
	}
	if sameISOWeek(start, now) {
		return ThisWeek
	}
	return Upcoming
}

// IsToday reports whether t falls on now's calendar day.
func IsToday(t, now time.Time) bool {
	return sameDay(t.In(now.Location()), now)
}

// IsTomorrow reports whether t falls on the calendar day after now's day.
// This is a date comparison, not a 24 hour offset.
func IsTomorrow(t, now time.Time) bool {
	return sameDay(t.In(now.Location()), startOfDay(now).AddDate(0, 0, 1))
}

// IsThisWeek reports whether t falls in now's ISO week.
func IsThisWeek(t, now time.Time) bool {
	return sameISOWeek(t.In(now.Location()), now)
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// sameDay compares calendar dates. Both times must already share a location.
func sameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func sameISOWeek(a, b time.Time) bool {
	ay, aw := a.ISOWeek()
	by, bw := b.ISOWeek()
	return ay == by && aw == bw
}
