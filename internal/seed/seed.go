// Package seed serves demo events described relative to the current time.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"hive/internal/model"
)

//go:embed demo.yaml
var defaultDemo []byte

// Spec is one demo event. Exactly one timing form is used: HappeningNow,
// or DaysFromNow with either Hour or HourOffset.
type Spec struct {
	ID          string   `yaml:"id"`
	SocietyID   string   `yaml:"society_id"`
	SocietyName string   `yaml:"society_name"`
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Location    string   `yaml:"location"`
	Category    string   `yaml:"category"`
	FoodDetail  string   `yaml:"food_detail"`
	Tags        []string `yaml:"tags"`

	HappeningNow  bool    `yaml:"happening_now"`
	DaysFromNow   int     `yaml:"days_from_now"`
	Hour          *int    `yaml:"hour"`
	HourOffset    *int    `yaml:"hour_offset"`
	DurationHours float64 `yaml:"duration_hours"`
}

type file struct {
	Events []Spec `yaml:"events"`
}

// Parse decodes and validates a demo file.
func Parse(data []byte) ([]Spec, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}
	seen := make(map[string]bool, len(f.Events))
	for i, s := range f.Events {
		if s.ID == "" {
			return nil, fmt.Errorf("seed: event %d: id is required", i)
		}
		if seen[s.ID] {
			return nil, fmt.Errorf("seed: duplicate id %q", s.ID)
		}
		seen[s.ID] = true
		if _, err := model.ParseCategory(s.Category); err != nil {
			return nil, fmt.Errorf("seed: event %s: %w", s.ID, err)
		}
		if !s.HappeningNow && s.Hour == nil && s.HourOffset == nil {
			return nil, fmt.Errorf("seed: event %s: needs happening_now, hour or hour_offset", s.ID)
		}
	}
	return f.Events, nil
}

// Default returns the built-in demo events.
func Default() []Spec {
	specs, err := Parse(defaultDemo)
	if err != nil {
		panic(err)
	}
	return specs
}

// Materialize turns specs into events anchored at now, in now's location.
func Materialize(specs []Spec, now time.Time) []model.Event {
	out := make([]model.Event, 0, len(specs))
	for _, s := range specs {
		start, end := s.window(now)
		cat, _ := model.ParseCategory(s.Category)
		e := model.Event{
			ID:        s.ID,
			SocietyID: s.SocietyID,
			Title:     s.Title,
			Location:  s.Location,
			Category:  cat,
			StartsAt:  start,
			EndsAt:    end,
			CreatedAt: now,
			UpdatedAt: now,
			Tags:      s.Tags,
		}
		if s.Description != "" {
			d := s.Description
			e.Description = &d
		}
		if s.FoodDetail != "" {
			f := s.FoodDetail
			e.FoodDetail = &f
		}
		if s.SocietyID != "" {
			e.Society = &model.SocietySummary{ID: s.SocietyID, Name: s.SocietyName}
		}
		out = append(out, e)
	}
	return out
}

func (s Spec) window(now time.Time) (time.Time, time.Time) {
	if s.HappeningNow {
		return now.Add(-time.Hour), now.Add(time.Hour)
	}
	dur := time.Duration(s.DurationHours * float64(time.Hour))
	if dur <= 0 {
		dur = 2 * time.Hour
	}
	hour := now.Hour()
	if s.Hour != nil {
		hour = *s.Hour
	} else if s.HourOffset != nil {
		hour += *s.HourOffset
	}
	// time.Date normalizes hours past 23 into the following day.
	y, m, d := now.Date()
	start := time.Date(y, m, d+s.DaysFromNow, hour, 0, 0, 0, now.Location())
	return start, start.Add(dur)
}

// Seed is a Source of demo events backed by an optional YAML file.
type Seed struct {
	path string
	now  func() time.Time

	mu    sync.RWMutex
	specs []Spec
}

// New loads the demo file at path, or the built-in demo set when path is
// empty. now anchors every materialization.
func New(path string, now func() time.Time) (*Seed, error) {
	if now == nil {
		now = time.Now
	}
	s := &Seed{path: path, now: now}
	if path == "" {
		s.specs = Default()
		return s, nil
	}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the demo file. On error the previous events are kept.
func (s *Seed) Reload() error {
	if s.path == "" {
		return errors.New("seed: no file to reload")
	}
	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	specs, err := Parse(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.specs = specs
	s.mu.Unlock()
	return nil
}

// Path is the watched file, empty for the built-in set.
func (s *Seed) Path() string {
	return s.path
}

// Events materializes the current demo set against the seed clock.
func (s *Seed) Events(context.Context) ([]model.Event, error) {
	s.mu.RLock()
	specs := s.specs
	s.mu.RUnlock()
	return Materialize(specs, s.now()), nil
}
