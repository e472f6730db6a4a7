package feed

import (
	"testing"
	"time"

	"hive/internal/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		ev   model.Event
		want Bucket
	}{
		{"ended yesterday", ev("d", "2024-06-09T09:00", "2024-06-09T10:00"), Past},
		{"in progress", ev("a", "2024-06-10T11:00", "2024-06-10T13:00"), HappeningNow},
		{"later today", ev("b", "2024-06-10T15:00", "2024-06-10T17:00"), LaterToday},
		{"just before midnight", ev("b2", "2024-06-10T23:59", "2024-06-11T01:00"), LaterToday},
		{"tomorrow morning", ev("c", "2024-06-11T09:00", "2024-06-11T10:00"), Tomorrow},
		{"tomorrow late", ev("c2", "2024-06-11T23:30", "2024-06-12T00:30"), Tomorrow},
		{"wednesday", ev("w", "2024-06-12T18:00", "2024-06-12T20:00"), ThisWeek},
		{"sunday night", ev("s", "2024-06-16T22:00", "2024-06-16T23:00"), ThisWeek},
		{"next monday", ev("n", "2024-06-17T09:00", "2024-06-17T10:00"), Upcoming},
		{"next month", ev("m", "2024-07-01T09:00", "2024-07-01T10:00"), Upcoming},
		{"started last week still running", ev("l", "2024-06-03T09:00", "2024-06-20T10:00"), HappeningNow},
	}
	for _, tt := range tests {
		if got := Classify(tt.ev, refNow); got != tt.want {
			t.Errorf("%s: Classify = %s, want %s", tt.name, got, tt.want)
		}
	}
}

func TestClassifyBoundaries(t *testing.T) {
	now := refNow

	startsNow := model.Event{StartsAt: now, EndsAt: now.Add(time.Second)}
	if got := Classify(startsNow, now); got != HappeningNow {
		t.Errorf("start == now: got %s, want happening-now", got)
	}

	endsNow := model.Event{StartsAt: now.Add(-time.Hour), EndsAt: now}
	if got := Classify(endsNow, now); got != Past {
		t.Errorf("end == now: got %s, want past", got)
	}

	lastNanosecond := model.Event{
		StartsAt: time.Date(2024, 6, 10, 23, 59, 59, 999999999, time.UTC),
		EndsAt:   time.Date(2024, 6, 11, 1, 0, 0, 0, time.UTC),
	}
	if got := Classify(lastNanosecond, now); got != LaterToday {
		t.Errorf("start at 23:59:59.999999999: got %s, want later-today", got)
	}

	endsJustAfter := model.Event{StartsAt: now.Add(-time.Hour), EndsAt: now.Add(time.Microsecond)}
	if got := Classify(endsJustAfter, now); got != HappeningNow {
		t.Errorf("end == now+1us: got %s, want happening-now", got)
	}
}

func TestClassifyDegenerateRanges(t *testing.T) {
	now := refNow

	// Zero duration at now has already ended.
	zeroNow := model.Event{StartsAt: now, EndsAt: now}
	if got := Classify(zeroNow, now); got != Past {
		t.Errorf("zero duration at now: got %s, want past", got)
	}

	// Zero duration in the future is classified by its start.
	zeroLater := model.Event{StartsAt: now.Add(2 * time.Hour), EndsAt: now.Add(2 * time.Hour)}
	if got := Classify(zeroLater, now); got != LaterToday {
		t.Errorf("zero duration later today: got %s, want later-today", got)
	}

	// Inverted range whose end is already behind now.
	invertedPast := model.Event{StartsAt: now.Add(3 * time.Hour), EndsAt: now.Add(-time.Hour)}
	if got := Classify(invertedPast, now); got != Past {
		t.Errorf("inverted, end before now: got %s, want past", got)
	}

	// Inverted range entirely in the future falls through by start.
	invertedFuture := model.Event{StartsAt: at("2024-06-11T12:00"), EndsAt: at("2024-06-10T18:00")}
	if got := Classify(invertedFuture, now); got != Tomorrow {
		t.Errorf("inverted, future: got %s, want tomorrow", got)
	}
}

func TestClassifyUsesLocalCalendar(t *testing.T) {
	bst := time.FixedZone("BST", 3600)
	// 23:30 local, 22:30 UTC.
	now := time.Date(2024, 6, 10, 23, 30, 0, 0, bst)

	// 00:30 local tomorrow is still June 10 in UTC.
	e := model.Event{
		StartsAt: time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC),
		EndsAt:   time.Date(2024, 6, 11, 1, 0, 0, 0, time.UTC),
	}
	if got := Classify(e, now); got != Tomorrow {
		t.Errorf("got %s, want tomorrow in the observer's zone", got)
	}
}

func TestTomorrowIsCalendarNotOffset(t *testing.T) {
	lateNow := time.Date(2024, 6, 10, 23, 0, 0, 0, time.UTC)
	earlyNow := time.Date(2024, 6, 10, 1, 0, 0, 0, time.UTC)

	in23h := model.Event{StartsAt: at("2024-06-11T22:00"), EndsAt: at("2024-06-11T23:00")}
	if got := Classify(in23h, lateNow); got != Tomorrow {
		t.Errorf("23h ahead on next date: got %s, want tomorrow", got)
	}
	in46h := model.Event{StartsAt: at("2024-06-11T23:00"), EndsAt: at("2024-06-11T23:30")}
	if got := Classify(in46h, earlyNow); got != Tomorrow {
		t.Errorf("46h ahead on next date: got %s, want tomorrow", got)
	}
	in25h := model.Event{StartsAt: at("2024-06-12T00:30"), EndsAt: at("2024-06-12T01:00")}
	if got := Classify(in25h, lateNow); got == Tomorrow {
		t.Error("event two dates ahead must not be tomorrow")
	}
}

func TestClassifyOnSunday(t *testing.T) {
	// Sunday: Monday is tomorrow, Tuesday is already next ISO week.
	sunday := time.Date(2024, 6, 16, 10, 0, 0, 0, time.UTC)

	monday := model.Event{StartsAt: at("2024-06-17T09:00"), EndsAt: at("2024-06-17T10:00")}
	if got := Classify(monday, sunday); got != Tomorrow {
		t.Errorf("monday from sunday: got %s, want tomorrow", got)
	}
	tuesday := model.Event{StartsAt: at("2024-06-18T09:00"), EndsAt: at("2024-06-18T10:00")}
	if got := Classify(tuesday, sunday); got != Upcoming {
		t.Errorf("tuesday from sunday: got %s, want upcoming", got)
	}
}

func TestPastTakesPrecedence(t *testing.T) {
	for h := -200; h < 0; h += 7 {
		end := refNow.Add(time.Duration(h) * time.Hour)
		for _, dur := range []time.Duration{0, time.Hour, 30 * time.Hour} {
			e := model.Event{
				StartsAt:   end.Add(-dur),
				EndsAt:     end,
				Category:   model.CategorySports,
				FoodDetail: food("cake"),
			}
			if got := Classify(e, refNow); got != Past {
				t.Fatalf("ended %dh ago (dur %v): got %s, want past", -h, dur, got)
			}
		}
	}
}
