package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// EventInput is the payload of the society admin form. Dates and times are
// wall-clock values in the society's zone and are combined by Build.
type EventInput struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Location    string   `json:"location"`
	Category    string   `json:"category"`
	Date        string   `json:"date"`      // YYYY-MM-DD
	StartTime   string   `json:"startTime"` // HH:MM
	EndTime     string   `json:"endTime"`   // HH:MM
	FoodDetail  string   `json:"foodDetail"`
	Tags        []string `json:"tags"`
	Latitude    *float64 `json:"latitude"`
	Longitude   *float64 `json:"longitude"`
	ImageURL    string   `json:"imageUrl"`
}

// EventWrite is the row sent to the backend on insert or update.
type EventWrite struct {
	SocietyID   string    `json:"society_id"`
	Title       string    `json:"title"`
	Description *string   `json:"description"`
	Location    string    `json:"location"`
	Category    Category  `json:"category"`
	StartsAt    time.Time `json:"starts_at"`
	EndsAt      time.Time `json:"ends_at"`
	FoodDetail  *string   `json:"food_detail"`
	Latitude    *float64  `json:"latitude"`
	Longitude   *float64  `json:"longitude"`
	ImageURL    *string   `json:"image_url"`
	Tags        []string  `json:"tags"`
}

// ErrInvalidInput wraps every validation failure returned by Build.
var ErrInvalidInput = errors.New("invalid event input")

// Build validates the form and returns the row to persist for societyID.
//
// An end time at or before the start time is taken to mean the event runs
// past midnight, so the end moves to the following day.
func (in EventInput) Build(societyID string, loc *time.Location) (EventWrite, error) {
	if loc == nil {
		loc = time.Local
	}
	if societyID == "" {
		return EventWrite{}, fmt.Errorf("%w: society id is required", ErrInvalidInput)
	}

	title := strings.TrimSpace(in.Title)
	if title == "" {
		return EventWrite{}, fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return EventWrite{}, fmt.Errorf("%w: location is required", ErrInvalidInput)
	}
	cat, err := ParseCategory(in.Category)
	if err != nil {
		return EventWrite{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	startsAt, endsAt, err := ComposeTimes(in.Date, in.StartTime, in.EndTime, loc)
	if err != nil {
		return EventWrite{}, err
	}

	out := EventWrite{
		SocietyID:   societyID,
		Title:       title,
		Description: optionalString(in.Description),
		Location:    location,
		Category:    cat,
		StartsAt:    startsAt,
		EndsAt:      endsAt,
		FoodDetail:  optionalString(in.FoodDetail),
		Latitude:    in.Latitude,
		Longitude:   in.Longitude,
		ImageURL:    optionalString(in.ImageURL),
		Tags:        cleanTags(in.Tags),
	}
	return out, nil
}

// ComposeTimes combines a date and two wall-clock times in loc.
func ComposeTimes(date, start, end string, loc *time.Location) (time.Time, time.Time, error) {
	const layout = "2006-01-02 15:04"

	if date == "" || start == "" || end == "" {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: date, start time and end time are required", ErrInvalidInput)
	}
	startsAt, err := time.ParseInLocation(layout, date+" "+start, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: start: %v", ErrInvalidInput, err)
	}
	endsAt, err := time.ParseInLocation(layout, date+" "+end, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end: %v", ErrInvalidInput, err)
	}
	if !endsAt.After(startsAt) {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: end time must be after start time", ErrInvalidInput)
	}
	return startsAt, endsAt, nil
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// cleanTags trims tags and drops empties and case-insensitive duplicates.
func cleanTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		key := strings.ToLower(t)
		if t == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
