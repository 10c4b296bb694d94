package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/sweeply/pkg/model"
)

func (s *Server) handleListAssignments(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	user := UserFromContext(r.Context())

	opts := model.DefaultListOptions()
	q := r.URL.Query()
	opts.Date = q.Get("date")
	opts.Status = q.Get("status")
	opts.UserID = q.Get("user_id")
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			opts.Offset = n
		}
	}

	// Cleaners only ever see their own assignments.
	if !user.IsAdmin() {
		opts.UserID = user.ID
	}

	if opts.Status != "" && !model.AssignmentStatus(opts.Status).IsValid() {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid status filter",
				model.FieldError{Field: "status", Message: "unknown status"}))
		return
	}

	assignments, total, err := s.store.ListAssignments(r.Context(), opts)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	respondList(w, reqID, assignments, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(assignments) < total,
	})
}

// loadAssignmentForUser fetches an assignment and enforces ownership:
// cleaners may only touch their own records. Returns nil after writing
// the error response.
func (s *Server) loadAssignmentForUser(w http.ResponseWriter, r *http.Request, id string) *model.Assignment {
	reqID := RequestIDFromContext(r.Context())
	user := UserFromContext(r.Context())

	a, err := s.store.GetAssignment(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return nil
	}
	if a == nil || (!user.IsAdmin() && a.UserID != user.ID) {
		// Hide other users' assignments behind the same 404.
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("assignment", id))
		return nil
	}
	return a
}

func (s *Server) handleGetAssignment(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	a := s.loadAssignmentForUser(w, r, id)
	if a == nil {
		return
	}
	respondOK(w, reqID, a)
}

// handleUpdateAssignment applies a status/time mutation. The transition
// table is enforced here so no client can push an assignment through an
// illegal path (e.g. completed back to in_progress).
func (s *Server) handleUpdateAssignment(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	a := s.loadAssignmentForUser(w, r, id)
	if a == nil {
		return
	}

	var upd model.AssignmentUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}

	if upd.Status != "" && upd.Status != a.Status {
		if !upd.Status.IsValid() {
			respondError(w, reqID, http.StatusBadRequest,
				model.NewValidationError("unknown status",
					model.FieldError{Field: "status", Message: string(upd.Status)}))
			return
		}
		if !a.Status.CanTransitionTo(upd.Status) {
			transErr := &model.InvalidTransitionError{AssignmentID: a.ID, From: a.Status, To: upd.Status}
			respondError(w, reqID, http.StatusConflict,
				&model.APIError{Code: model.ErrConflict, Message: transErr.Error()})
			return
		}
		a.Status = upd.Status
	}
	if upd.StartTime != nil {
		a.StartTime = upd.StartTime
	}
	if upd.EndTime != nil {
		a.EndTime = upd.EndTime
	}
	// Resetting to not_started drops the recorded times.
	if a.Status == model.StatusNotStarted {
		a.StartTime = nil
		a.EndTime = nil
	}
	a.UpdatedAt = time.Now().UTC()

	if err := s.store.UpdateAssignment(r.Context(), a); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("assignment updated", "assignment_id", a.ID, "status", a.Status, "request_id", reqID)
	respondOK(w, reqID, a)
}

// handleCreateAssignment schedules a task instance for a user and date.
func (s *Server) handleCreateAssignment(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		TaskID     string `json:"task_id"`
		TaskName   string `json:"task_name"`
		UserID     string `json:"user_id"`
		LocationID string `json:"location_id"`
		RoomID     string `json:"room_id"`
		Date       string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}

	var details []model.FieldError
	if req.TaskID == "" {
		details = append(details, model.FieldError{Field: "task_id", Message: "required"})
	}
	if req.UserID == "" {
		details = append(details, model.FieldError{Field: "user_id", Message: "required"})
	}
	if _, err := time.Parse("2006-01-02", req.Date); err != nil {
		details = append(details, model.FieldError{Field: "date", Message: "must be YYYY-MM-DD"})
	}
	if len(details) > 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid assignment", details...))
		return
	}

	now := time.Now().UTC()
	a := &model.Assignment{
		ID:         uuid.New().String(),
		TaskID:     req.TaskID,
		TaskName:   req.TaskName,
		UserID:     req.UserID,
		LocationID: req.LocationID,
		RoomID:     req.RoomID,
		Date:       req.Date,
		Status:     model.StatusNotStarted,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateAssignment(r.Context(), a); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondCreated(w, reqID, a)
}
