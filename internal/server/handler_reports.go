package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/me/sweeply/pkg/model"
)

// handleCreateReport records the outcome of an assignment. Reports are
// append-only; corrections are new reports.
func (s *Server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	user := UserFromContext(r.Context())

	var report model.Report
	if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid request body"))
		return
	}

	var details []model.FieldError
	if report.DailyAssignmentID == "" {
		details = append(details, model.FieldError{Field: "daily_assignment_id", Message: "required"})
	}
	if !report.Status.IsValid() || !report.Status.IsTerminal() {
		details = append(details, model.FieldError{Field: "status", Message: "must be a terminal status"})
	}
	if report.EndTime.Before(report.StartTime) {
		details = append(details, model.FieldError{Field: "end_time", Message: "must not precede start_time"})
	}
	if len(details) > 0 {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("invalid report", details...))
		return
	}

	// The assignment must exist and belong to the reporter.
	a := s.loadAssignmentForUser(w, r, report.DailyAssignmentID)
	if a == nil {
		return
	}

	report.ID = uuid.New().String()
	report.UserID = user.ID
	report.CreatedAt = time.Now().UTC()

	if err := s.store.CreateReport(r.Context(), &report); err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}

	s.logger.Info("report created",
		"report_id", report.ID,
		"assignment_id", report.DailyAssignmentID,
		"status", report.Status,
		"request_id", reqID,
	)
	respondCreated(w, reqID, &report)
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	assignmentID := r.URL.Query().Get("daily_assignment_id")
	if assignmentID != "" {
		// Ownership check rides on the assignment lookup.
		if a := s.loadAssignmentForUser(w, r, assignmentID); a == nil {
			return
		}
	}

	reports, err := s.store.ListReports(r.Context(), assignmentID)
	if err != nil {
		respondError(w, reqID, http.StatusInternalServerError,
			&model.APIError{Code: model.ErrInternal, Message: err.Error()})
		return
	}
	respondList(w, reqID, reports, &model.Pagination{
		Total: len(reports),
		Limit: len(reports),
	})
}
