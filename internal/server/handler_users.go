package server

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/sweeply/pkg/model"
)

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, UserFromContext(r.Context()))
}

func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	users, err := s.store.ListUsers(r.Context())
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, users, &model.Pagination{
		Total: len(users),
		Limit: len(users),
	})
}

// handleCreateUser provisions an account. The account starts deactivated;
// the generated activation code is returned once so the admin can hand
// it to the new user.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Email     string         `json:"email"`
		FirstName string         `json:"first_name"`
		LastName  string         `json:"last_name"`
		Role      model.UserRole `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid email",
				model.FieldError{Field: "email", Message: "must be a valid address"}))
		return
	}
	if req.Role == "" {
		req.Role = model.RoleCleaner
	}
	if req.Role != model.RoleCleaner && req.Role != model.RoleAdmin {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid role",
				model.FieldError{Field: "role", Message: "must be cleaner or admin"}))
		return
	}

	code, err := newToken()
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	user := &model.User{
		ID:        uuid.New().String(),
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Role:      req.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateUser(r.Context(), user, "", code); err != nil {
		respondError(w, reqID, http.StatusConflict,
			&model.APIError{Code: model.ErrConflict, Message: err.Error()})
		return
	}

	s.logger.Info("user created", "user_id", user.ID, "role", user.Role, "request_id", reqID)
	respondCreated(w, reqID, map[string]any{
		"user":            user,
		"activation_code": code,
	})
}

func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	if user == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("user", id))
		return
	}
	if err := s.store.DeleteUser(r.Context(), id); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondNoContent(w)
}
