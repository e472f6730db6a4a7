package web

import (
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	"hive/internal/feed"
	"hive/internal/metrics"
	"hive/internal/model"
	"hive/internal/store"
	"hive/internal/tags"
)

// eventDTO is an event annotated for display.
type eventDTO struct {
	model.Event
	Bucket    feed.Bucket  `json:"bucket"`
	TagStyles []tags.Style `json:"tag_styles,omitempty"`
}

func newEventDTO(e model.Event, now time.Time) eventDTO {
	return eventDTO{Event: e, Bucket: feed.Classify(e, now), TagStyles: tags.ClassifyAll(e.Tags)}
}

func newEventDTOs(events []model.Event, now time.Time) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, e := range events {
		out = append(out, newEventDTO(e, now))
	}
	return out
}

type bucketDTO struct {
	Bucket    feed.Bucket `json:"bucket"`
	Label     string      `json:"label"`
	Collapsed bool        `json:"collapsed"`
	Events    []eventDTO  `json:"events"`
}

// feedResponse is the JSON response shape for /api/feed.
type feedResponse struct {
	Buckets          []bucketDTO `json:"buckets"`
	Total            int         `json:"total"`
	HasActiveFilters bool        `json:"has_active_filters"`
	Now              time.Time   `json:"now"`
	Timezone         string      `json:"timezone"`
}

// eventsResponse is the JSON response shape for /api/events.
type eventsResponse struct {
	Events           []eventDTO `json:"events"`
	Total            int        `json:"total"`
	HasActiveFilters bool       `json:"has_active_filters"`
	Now              time.Time  `json:"now"`
}

// parseQuery reads the feed query parameters:
//   - filter:    shortcut selector (all, today, tomorrow, this-week, socials, workshops, sports)
//   - society:   society id
//   - category:  workshop, social, sports or meeting
//   - free_food: boolean
//   - ids:       comma separated Ask Hive result set; present but empty matches nothing
func parseQuery(v url.Values) (feed.Query, error) {
	var q feed.Query
	sc, err := feed.ParseShortcut(v.Get("filter"))
	if err != nil {
		return q, err
	}
	q.Shortcut = sc
	q.Filters.SocietyID = strings.TrimSpace(v.Get("society"))
	if c := v.Get("category"); c != "" {
		cat, err := model.ParseCategory(c)
		if err != nil {
			return q, err
		}
		q.Filters.Category = cat
	}
	if ff := v.Get("free_food"); ff != "" {
		b, err := strconv.ParseBool(ff)
		if err != nil {
			return q, &queryError{param: "free_food", value: ff}
		}
		q.Filters.FreeFoodOnly = b
	}
	if v.Has("ids") {
		q.IDs = []string{}
		for _, id := range strings.Split(v.Get("ids"), ",") {
			if id = strings.TrimSpace(id); id != "" {
				q.IDs = append(q.IDs, id)
			}
		}
	}
	return q, nil
}

type queryError struct {
	param, value string
}

func (e *queryError) Error() string {
	return "invalid " + e.param + " value " + strconv.Quote(e.value)
}

// view loads the merged events and builds the filtered, grouped feed for
// the request. now is read once so every bucket agrees on it.
func (s *Server) view(w http.ResponseWriter, r *http.Request) (feed.View, bool) {
	q, err := parseQuery(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return feed.View{}, false
	}
	events, err := s.deps.Events.Events(r.Context())
	if err != nil {
		writeFailure(w, err)
		return feed.View{}, false
	}
	v, err := feed.Build(events, q, s.clock.Now())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return feed.View{}, false
	}
	if !v.HasActiveFilters {
		for _, b := range feed.DisplayOrder {
			metrics.BucketEvents.WithLabelValues(string(b)).Set(float64(len(v.Groups[b])))
		}
	}
	return v, true
}

// handleFeed returns the grouped feed.
//
// GET /api/feed?filter=today&society=soc-1&category=social&free_food=1&ids=a,b
//
// Every bucket is present in display order, empty ones included, so the
// client can render headings without knowing the bucket set.
func (s *Server) handleFeed(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	resp := feedResponse{
		Buckets:          make([]bucketDTO, 0, len(feed.DisplayOrder)),
		Total:            v.Groups.Total(),
		HasActiveFilters: v.HasActiveFilters,
		Now:              v.Now,
		Timezone:         s.loc.String(),
	}
	for _, b := range feed.DisplayOrder {
		resp.Buckets = append(resp.Buckets, bucketDTO{
			Bucket:    b,
			Label:     b.Label(),
			Collapsed: b.Collapsed(),
			Events:    newEventDTOs(v.Groups[b], v.Now),
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEvents returns the same selection as /api/feed as one list ordered
// by start time.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	v, ok := s.view(w, r)
	if !ok {
		return
	}
	flat := make([]model.Event, 0, v.Groups.Total())
	for _, b := range feed.DisplayOrder {
		flat = append(flat, v.Groups[b]...)
	}
	slices.SortStableFunc(flat, func(a, b model.Event) int {
		return a.StartsAt.Compare(b.StartsAt)
	})
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:           newEventDTOs(flat, v.Now),
		Total:            len(flat),
		HasActiveFilters: v.HasActiveFilters,
		Now:              v.Now,
	})
}

// handleEvent looks an event up in the merged feed, so demo and imported
// events resolve as well as stored ones.
func (s *Server) handleEvent(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	events, err := s.deps.Events.Events(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	i := slices.IndexFunc(events, func(e model.Event) bool { return e.ID == id })
	if i < 0 {
		writeFailure(w, store.ErrNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newEventDTO(events[i], s.clock.Now()))
}

func (s *Server) handleSocieties(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	list, err := s.deps.Store.ListSocieties(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	if list == nil {
		list = []model.Society{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"societies": list})
}

// societyEventsResponse is the society dashboard: stored events newest
// first, split on whether they have finished.
type societyEventsResponse struct {
	Society  model.Society `json:"society"`
	Upcoming []eventDTO    `json:"upcoming"`
	Past     []eventDTO    `json:"past"`
	Now      time.Time     `json:"now"`
}

func (s *Server) handleSocietyEvents(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	ctx := r.Context()
	id := r.PathValue("id")

	soc, err := s.deps.Store.GetSociety(ctx, id)
	if err != nil {
		writeFailure(w, err)
		return
	}
	events, err := s.deps.Store.ListEvents(ctx, store.EventQuery{SocietyID: id, Descending: true})
	if err != nil {
		writeFailure(w, err)
		return
	}

	now := s.clock.Now()
	resp := societyEventsResponse{Society: soc, Upcoming: []eventDTO{}, Past: []eventDTO{}, Now: now}
	for _, e := range events {
		if e.EndsAt.After(now) {
			resp.Upcoming = append(resp.Upcoming, newEventDTO(e, now))
		} else {
			resp.Past = append(resp.Past, newEventDTO(e, now))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) requireStore(w http.ResponseWriter) bool {
	if s.deps.Store == nil {
		writeError(w, http.StatusServiceUnavailable, "backend store is not configured")
		return false
	}
	return true
}
