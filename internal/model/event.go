package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Event is a single society event as stored by the backend. It is consumed
// read-only by the feed; JSON field names match the backend columns.
//
// StartsAt/EndsAt decode from RFC 3339 timestamps. A malformed, null or
// missing timestamp fails decoding instead of producing a zero time, and so
// does a null or missing category.
type Event struct {
	ID          string   `json:"id"`
	SocietyID   string   `json:"society_id"`
	Title       string   `json:"title"`
	Description *string  `json:"description"`
	Location    string   `json:"location"`
	Category    Category `json:"category"`

	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	CreatedAt time.Time `json:"created_at,omitzero"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`

	// FoodDetail being non-nil means free food is offered.
	FoodDetail *string  `json:"food_detail"`
	Latitude   *float64 `json:"latitude"`
	Longitude  *float64 `json:"longitude"`
	ImageURL   *string  `json:"image_url"`
	Tags       []string `json:"tags"`

	// Society is the embedded society summary when the query selects it.
	Society *SocietySummary `json:"societies,omitempty"`
}

// UnmarshalJSON decodes a backend row and rejects rows the feed cannot
// classify or badge.
func (e *Event) UnmarshalJSON(data []byte) error {
	type row Event
	var r row
	if err := json.Unmarshal(data, &r); err != nil {
		return err
	}
	if !r.Category.Valid() {
		return fmt.Errorf("event %q: missing category", r.ID)
	}
	if r.StartsAt.IsZero() || r.EndsAt.IsZero() {
		return fmt.Errorf("event %q: %w", r.ID, errMissingTimes)
	}
	*e = Event(r)
	return nil
}

var errMissingTimes = errors.New("starts_at and ends_at are required")

// HasFreeFood reports whether the event advertises free food.
func (e Event) HasFreeFood() bool {
	return e.FoodDetail != nil
}

// SocietyName returns the embedded society name, or fallback when the
// event was loaded without its society.
func (e Event) SocietyName(fallback string) string {
	if e.Society == nil || e.Society.Name == "" {
		return fallback
	}
	return e.Society.Name
}

// SocietySummary is the public subset of a society embedded in events.
type SocietySummary struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	LogoURL *string `json:"logo_url"`
}

// Society is a publishing organisation. UserID is the owning account and is
// never selected by public queries.
type Society struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id,omitempty"`
	Name        string    `json:"name"`
	Description *string   `json:"description"`
	LogoURL     *string   `json:"logo_url"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
	UpdatedAt   time.Time `json:"updated_at,omitzero"`
}
