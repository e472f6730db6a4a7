package web

import (
	"net/http"

	"hive/internal/auth"
	appLog "hive/internal/log"
	"hive/internal/model"
)

// Admin routes run behind auth.Require; the admin's society owns every
// event it creates and is the only society allowed to change it.

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	admin, _ := auth.FromContext(r.Context())

	var in model.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	row, err := in.Build(admin.SocietyID, s.loc)
	if err != nil {
		writeFailure(w, err)
		return
	}
	created, err := s.deps.Store.CreateEvent(r.Context(), row)
	if err != nil {
		writeFailure(w, err)
		return
	}
	appLog.Info("event created", "id", created.ID, "society", admin.SocietyID, "user", admin.Username)
	writeJSON(w, http.StatusCreated, newEventDTO(created, s.clock.Now()))
}

func (s *Server) handleUpdateEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	admin, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if !s.ownsEvent(w, r, admin, id) {
		return
	}
	var in model.EventInput
	if !decodeJSON(w, r, &in) {
		return
	}
	row, err := in.Build(admin.SocietyID, s.loc)
	if err != nil {
		writeFailure(w, err)
		return
	}
	updated, err := s.deps.Store.UpdateEvent(r.Context(), id, row)
	if err != nil {
		writeFailure(w, err)
		return
	}
	appLog.Info("event updated", "id", id, "society", admin.SocietyID, "user", admin.Username)
	writeJSON(w, http.StatusOK, newEventDTO(updated, s.clock.Now()))
}

func (s *Server) handleDeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !s.requireStore(w) {
		return
	}
	admin, _ := auth.FromContext(r.Context())
	id := r.PathValue("id")

	if !s.ownsEvent(w, r, admin, id) {
		return
	}
	if err := s.deps.Store.DeleteEvent(r.Context(), id); err != nil {
		writeFailure(w, err)
		return
	}
	appLog.Info("event deleted", "id", id, "society", admin.SocietyID, "user", admin.Username)
	w.WriteHeader(http.StatusNoContent)
}

// ownsEvent writes 404 or 403 and returns false unless the stored event id
// belongs to the admin's society.
func (s *Server) ownsEvent(w http.ResponseWriter, r *http.Request, admin auth.Admin, id string) bool {
	existing, err := s.deps.Store.GetEvent(r.Context(), id)
	if err != nil {
		writeFailure(w, err)
		return false
	}
	if existing.SocietyID != admin.SocietyID {
		appLog.Warn("admin tried to modify another society's event", "id", id, "user", admin.Username)
		writeError(w, http.StatusForbidden, "event belongs to another society")
		return false
	}
	return true
}
