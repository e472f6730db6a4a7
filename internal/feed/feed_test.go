package feed

import (
	"time"

	"hive/internal/model"
)

// refNow is Monday 2024-06-10 12:00 UTC.
var refNow = time.Date(2024, 6, 10, 12, 0, 0, 0, time.UTC)

func at(s string) time.Time {
	t, err := time.Parse("2006-01-02T15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func ev(id, start, end string) model.Event {
	return model.Event{
		ID:       id,
		Category: model.CategorySocial,
		StartsAt: at(start),
		EndsAt:   at(end),
	}
}

func ids(events []model.Event) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.ID
	}
	return out
}

func equalIDs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func food(s string) *string { return &s }
