package seed

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"hive/internal/feed"
)

var seedNow = time.Date(2024, 6, 10, 12, 30, 0, 0, time.UTC)

func TestDefaultDemoCoversEveryUpcomingBucket(t *testing.T) {
	events := Materialize(Default(), seedNow)
	if len(events) != 10 {
		t.Fatalf("got %d demo events, want 10", len(events))
	}
	g := feed.Group(events, seedNow)
	for _, b := range []feed.Bucket{feed.HappeningNow, feed.LaterToday, feed.Tomorrow, feed.ThisWeek} {
		if len(g[b]) == 0 {
			t.Errorf("demo set has no %s events", b)
		}
	}
	if len(g[feed.Past]) != 0 {
		t.Errorf("demo events should never start in the past, got %d", len(g[feed.Past]))
	}
}

func TestWindow(t *testing.T) {
	two, nine := 2, 9
	tests := []struct {
		name       string
		spec       Spec
		start, end string
	}{
		{"happening now", Spec{HappeningNow: true}, "06-10T11:30", "06-10T13:30"},
		{"hour offset", Spec{HourOffset: &two, DurationHours: 2}, "06-10T14:00", "06-10T16:00"},
		{"fixed hour tomorrow", Spec{DaysFromNow: 1, Hour: &nine, DurationHours: 1}, "06-11T09:00", "06-11T10:00"},
		{"default duration", Spec{DaysFromNow: 2, Hour: &nine}, "06-12T09:00", "06-12T11:00"},
	}
	for _, tt := range tests {
		s, e := tt.spec.window(seedNow)
		if got := s.Format("01-02T15:04"); got != tt.start {
			t.Errorf("%s: start = %s, want %s", tt.name, got, tt.start)
		}
		if got := e.Format("01-02T15:04"); got != tt.end {
			t.Errorf("%s: end = %s, want %s", tt.name, got, tt.end)
		}
	}
}

func TestHourOffsetRollsIntoNextDay(t *testing.T) {
	late := time.Date(2024, 6, 10, 23, 10, 0, 0, time.UTC)
	three := 3
	s, _ := Spec{HourOffset: &three}.window(late)
	if got := s.Format("01-02T15:04"); got != "06-11T02:00" {
		t.Errorf("start = %s, want 06-11T02:00", got)
	}
}

func TestParseValidation(t *testing.T) {
	tests := map[string]string{
		"missing id":       "events:\n  - category: social\n    happening_now: true\n",
		"duplicate id":     "events:\n  - id: a\n    category: social\n    happening_now: true\n  - id: a\n    category: social\n    happening_now: true\n",
		"unknown category": "events:\n  - id: a\n    category: party\n    happening_now: true\n",
		"no timing":        "events:\n  - id: a\n    category: social\n",
		"bad yaml":         "events: [",
	}
	for name, doc := range tests {
		if _, err := Parse([]byte(doc)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestSeedFromFileAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	write := func(doc string) {
		if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	write("events:\n  - id: one\n    category: social\n    happening_now: true\n")

	s, err := New(path, func() time.Time { return seedNow })
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	events, _ := s.Events(context.Background())
	if len(events) != 1 || events[0].ID != "one" {
		t.Fatalf("events = %+v", events)
	}

	write("events: [")
	if err := s.Reload(); err == nil {
		t.Error("reload of a broken file should fail")
	}
	events, _ = s.Events(context.Background())
	if len(events) != 1 {
		t.Error("failed reload should keep the previous events")
	}
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demo.yaml")
	if err := os.WriteFile(path, []byte("events:\n  - id: one\n    category: social\n    happening_now: true\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	s, err := New(path, func() time.Time { return seedNow })
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 4)
	go func() { _ = s.Watch(ctx, func(err error) { reloaded <- err }) }()

	// Give the watcher a moment to register before writing.
	time.Sleep(100 * time.Millisecond)
	doc := "events:\n  - id: one\n    category: social\n    happening_now: true\n  - id: two\n    category: sports\n    happening_now: true\n"
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not reload")
	}
	events, _ := s.Events(context.Background())
	if len(events) != 2 {
		t.Errorf("after reload got %d events, want 2", len(events))
	}
}

func TestBuiltinCannotBeWatched(t *testing.T) {
	s, err := New("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Watch(context.Background(), nil); err == nil {
		t.Error("watching the built-in set should fail")
	}
}
