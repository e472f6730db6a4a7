package web

import (
	"net/http"

	"hive/internal/model"
)

const corsAllowHeaders = "authorization, x-client-info, apikey, content-type, x-supabase-client-platform, x-supabase-client-platform-version, x-supabase-client-runtime, x-supabase-client-runtime-version"

// cors adds the browser headers for the AI endpoints and answers preflight
// requests. A nil next serves only the preflight.
func (s *Server) cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.cfg.CORSOrigin)
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		if r.Method == http.MethodOptions || next == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type askRequest struct {
	Question string `json:"question"`
}

// handleAsk answers a free-text question about the events that have not
// finished yet.
//
// POST /api/ask {"question": "..."} => {"answer": "...", "relevant_event_ids": [...]}
func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	if s.deps.AI == nil {
		writeError(w, http.StatusServiceUnavailable, "AI assistant is not configured")
		return
	}
	var req askRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "Missing question")
		return
	}

	events, err := s.deps.Events.Events(r.Context())
	if err != nil {
		writeFailure(w, err)
		return
	}
	now := s.clock.Now()
	current := make([]model.Event, 0, len(events))
	for _, e := range events {
		if e.EndsAt.After(now) {
			current = append(current, e)
		}
	}

	ans, err := s.deps.AI.Ask(r.Context(), req.Question, current)
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ans)
}

type extractRequest struct {
	CaptionText string `json:"captionText"`
}

type extractResponse struct {
	Success bool             `json:"success"`
	Data    model.EventInput `json:"data"`
}

// handleExtract prefills the admin form from a social media caption.
//
// POST /api/extract {"captionText": "..."} => {"success": true, "data": {...}}
func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.deps.AI == nil {
		writeError(w, http.StatusServiceUnavailable, "AI assistant is not configured")
		return
	}
	var req extractRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.CaptionText == "" {
		writeError(w, http.StatusBadRequest, "Caption text is required")
		return
	}
	in, err := s.deps.AI.Extract(r.Context(), req.CaptionText, s.clock.Now())
	if err != nil {
		writeFailure(w, err)
		return
	}
	writeJSON(w, http.StatusOK, extractResponse{Success: true, Data: in})
}
