package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestParseCategory(t *testing.T) {
	for _, c := range Categories {
		got, err := ParseCategory(string(c))
		if err != nil || got != c {
			t.Errorf("ParseCategory(%q) = %q, %v", c, got, err)
		}
	}
	if _, err := ParseCategory("socials"); err == nil {
		t.Error("plural shortcut name must not parse as a category")
	}
	if _, err := ParseCategory(""); err == nil {
		t.Error("empty category should be an error")
	}
}

func TestEventDecode(t *testing.T) {
	body := `{
		"id": "e1",
		"society_id": "s1",
		"title": "Poker Night",
		"description": null,
		"location": "SUSU",
		"category": "social",
		"starts_at": "2024-06-10T11:00:00+00:00",
		"ends_at": "2024-06-10T13:00:00.123456+00:00",
		"food_detail": "Pizza",
		"tags": ["pizza", "free"],
		"societies": {"id": "s1", "name": "EconSoc", "logo_url": null}
	}`

	var ev Event
	if err := json.Unmarshal([]byte(body), &ev); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if ev.Category != CategorySocial {
		t.Errorf("category = %q", ev.Category)
	}
	want := time.Date(2024, 6, 10, 11, 0, 0, 0, time.UTC)
	if !ev.StartsAt.Equal(want) {
		t.Errorf("starts_at = %v, want %v", ev.StartsAt, want)
	}
	if !ev.HasFreeFood() {
		t.Error("food_detail set, expected HasFreeFood")
	}
	if got := ev.SocietyName("Unknown"); got != "EconSoc" {
		t.Errorf("SocietyName = %q", got)
	}
}

func TestEventDecodeRejectsMalformed(t *testing.T) {
	tests := map[string]string{
		"bad timestamp": `{"id":"e1","category":"social","starts_at":"next friday","ends_at":"2024-06-10T13:00:00Z"}`,
		"bad category":  `{"id":"e1","category":"party","starts_at":"2024-06-10T11:00:00Z","ends_at":"2024-06-10T13:00:00Z"}`,
		"null category": `{"id":"e1","category":null,"starts_at":"2024-06-10T11:00:00Z","ends_at":"2024-06-10T13:00:00Z"}`,
		"no category":   `{"id":"e1","starts_at":"2024-06-10T11:00:00Z","ends_at":"2024-06-10T13:00:00Z"}`,
		"no start":      `{"id":"e1","category":"social","ends_at":"2024-06-10T13:00:00Z"}`,
		"null end":      `{"id":"e1","category":"social","starts_at":"2024-06-10T11:00:00Z","ends_at":null}`,
	}
	for name, body := range tests {
		var ev Event
		if err := json.Unmarshal([]byte(body), &ev); err == nil {
			t.Errorf("%s: expected decode error", name)
		}
	}
}

func TestBuild(t *testing.T) {
	loc := time.FixedZone("BST", 3600)
	in := EventInput{
		Title:     "  Pub Quiz ",
		Location:  "The Stags",
		Category:  "social",
		Date:      "2024-06-10",
		StartTime: "20:00",
		EndTime:   "23:30",
		Tags:      []string{"pub", " Pub ", "", "quiz"},
	}
	row, err := in.Build("s1", loc)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if row.Title != "Pub Quiz" {
		t.Errorf("title not trimmed: %q", row.Title)
	}
	wantStart := time.Date(2024, 6, 10, 20, 0, 0, 0, loc)
	wantEnd := time.Date(2024, 6, 10, 23, 30, 0, 0, loc)
	if !row.StartsAt.Equal(wantStart) || !row.EndsAt.Equal(wantEnd) {
		t.Errorf("times = %v..%v, want %v..%v", row.StartsAt, row.EndsAt, wantStart, wantEnd)
	}
	if row.Description != nil || row.FoodDetail != nil {
		t.Error("empty optional fields should be nil")
	}
	if len(row.Tags) != 2 || row.Tags[0] != "pub" || row.Tags[1] != "quiz" {
		t.Errorf("tags = %v", row.Tags)
	}
}

func TestBuildValidation(t *testing.T) {
	base := EventInput{
		Title: "t", Location: "l", Category: "workshop",
		Date: "2024-06-10", StartTime: "10:00", EndTime: "11:00",
	}
	tests := []struct {
		name   string
		mutate func(*EventInput)
	}{
		{"missing title", func(in *EventInput) { in.Title = " " }},
		{"missing location", func(in *EventInput) { in.Location = "" }},
		{"unknown category", func(in *EventInput) { in.Category = "workshops" }},
		{"missing date", func(in *EventInput) { in.Date = "" }},
		{"bad time", func(in *EventInput) { in.StartTime = "25:99" }},
		{"end equals start", func(in *EventInput) { in.EndTime = "10:00" }},
		{"end before start", func(in *EventInput) { in.StartTime, in.EndTime = "22:00", "01:00" }},
	}
	for _, tt := range tests {
		in := base
		tt.mutate(&in)
		_, err := in.Build("s1", time.UTC)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("%s: err = %v, want ErrInvalidInput", tt.name, err)
		}
	}
	if _, err := base.Build("", time.UTC); !errors.Is(err, ErrInvalidInput) {
		t.Error("missing society id should be rejected")
	}
}
