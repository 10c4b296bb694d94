package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/sweeply/pkg/model"
)

// Catalog handlers manage the static scheduling data: locations, the
// rooms inside them, and the recurring task templates.

func (s *Server) handleListLocations(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	locs, err := s.store.ListLocations(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, locs, &model.Pagination{Total: len(locs), Limit: len(locs)})
}

func (s *Server) handleCreateLocation(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var loc model.Location
	if err := json.NewDecoder(r.Body).Decode(&loc); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}
	if loc.Name == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("location name is required",
				model.FieldError{Field: "name", Message: "required"}))
		return
	}

	loc.ID = uuid.New().String()
	loc.CreatedAt = time.Now().UTC()
	if err := s.store.CreateLocation(r.Context(), &loc); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondCreated(w, reqID, &loc)
}

func (s *Server) handleListRooms(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	rooms, err := s.store.ListRooms(r.Context(), r.URL.Query().Get("location_id"))
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, rooms, &model.Pagination{Total: len(rooms), Limit: len(rooms)})
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var room model.Room
	if err := json.NewDecoder(r.Body).Decode(&room); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}
	if room.Name == "" || room.LocationID == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("room name and location_id are required"))
		return
	}

	room.ID = uuid.New().String()
	room.CreatedAt = time.Now().UTC()
	if err := s.store.CreateRoom(r.Context(), &room); err != nil {
		// Most likely a foreign key failure on location_id.
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("could not create room",
				model.FieldError{Field: "location_id", Message: "must reference an existing location"}))
		return
	}
	respondCreated(w, reqID, &room)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	tasks, err := s.store.ListTasks(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, tasks, &model.Pagination{Total: len(tasks), Limit: len(tasks)})
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var task model.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}

	var details []model.FieldError
	if task.Name == "" {
		details = append(details, model.FieldError{Field: "name", Message: "required"})
	}
	if task.RoomID == "" {
		details = append(details, model.FieldError{Field: "room_id", Message: "required"})
	}
	switch task.Period {
	case model.PeriodDaily, model.PeriodWeekly, model.PeriodMonthly:
	case "":
		task.Period = model.PeriodDaily
	default:
		details = append(details, model.FieldError{Field: "period", Message: "must be daily, weekly, or monthly"})
	}
	if len(details) > 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid task", details...))
		return
	}

	task.ID = uuid.New().String()
	task.CreatedAt = time.Now().UTC()
	if err := s.store.CreateTask(r.Context(), &task); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondCreated(w, reqID, &task)
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteTask(r.Context(), id); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondNoContent(w)
}
