// Package assignment bridges timer transitions to server mutations and
// to the local recovery draft. The timer machine emits changes; this
// handler decides what to persist where.
package assignment

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/me/sweeply/internal/timer"
	"github.com/me/sweeply/pkg/model"
)

// API is the mutation surface the handler needs from the API client.
type API interface {
	UpdateAssignment(ctx context.Context, id string, upd model.AssignmentUpdate) (*model.Assignment, error)
	CreateReport(ctx context.Context, report *model.Report) (*model.Report, error)
}

// pending holds the completion attempt awaiting its report.
type pending struct {
	assignmentID string
	start        time.Time
	end          time.Time
	elapsedMs    int64
}

// Handler orchestrates server writes driven by timer transitions.
type Handler struct {
	api     API
	drafts  *DraftStore
	logger  *slog.Logger
	refetch func(ctx context.Context)

	mu         sync.Mutex
	userID     string
	pend       *pending
	showReport bool
}

// NewHandler creates a handler for the given user. refetch re-pulls the
// assignment and report lists after a successful write; it may be nil.
func NewHandler(api API, drafts *DraftStore, userID string, refetch func(ctx context.Context), logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Handler{
		api:     api,
		drafts:  drafts,
		userID:  userID,
		refetch: refetch,
		logger:  logger.With("component", "assignment"),
	}
}

// ShowReport reports whether the report form should be shown.
func (h *Handler) ShowReport() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.showReport
}

// HandleChange reacts to a timer state change for one assignment.
//
// A completion attempt is cached locally and flags the report form; the
// status write is deferred until the user confirms the report, so an
// abandoned form never leaves a spurious completed on the server. Every
// other change is written to the server, and the server's snapshot
// becomes the new recovery draft.
//
// Network errors are logged, not retried: the cost of a missed write is
// a stale badge, recoverable by re-opening the screen.
func (h *Handler) HandleChange(ctx context.Context, assignmentID string, ch timer.Change) {
	if ch.AttemptComplete {
		if ch.Start == nil || ch.End == nil {
			h.logger.Warn("completion attempt without recorded times", "assignment", assignmentID)
			return
		}
		h.mu.Lock()
		h.pend = &pending{
			assignmentID: assignmentID,
			start:        *ch.Start,
			end:          *ch.End,
			elapsedMs:    ch.ElapsedMs,
		}
		h.showReport = true
		h.mu.Unlock()
		return
	}

	upd := model.AssignmentUpdate{Status: ch.Status}
	if ch.Start != nil {
		t := ch.Start.UTC()
		upd.StartTime = &t
	}
	if ch.End != nil {
		t := ch.End.UTC()
		upd.EndTime = &t
	}

	asg, err := h.api.UpdateAssignment(ctx, assignmentID, upd)
	if err != nil {
		h.logger.Error("update assignment", "assignment", assignmentID, "status", ch.Status, "error", err)
		return
	}

	if err := h.drafts.Save(ctx, model.TimerSnapshot{
		AssignmentID:   asg.ID,
		Status:         asg.Status,
		StartTime:      asg.StartTime,
		EndTime:        asg.EndTime,
		TotalElapsedMs: ch.ElapsedMs,
	}); err != nil {
		h.logger.Warn("save recovery draft", "error", err)
	}

	if h.refetch != nil {
		h.refetch(ctx)
	}
}

// ReportData is the user-entered part of a completion report.
type ReportData struct {
	Message    string
	MediaLinks []string
	Status     model.AssignmentStatus
}

// HandleReportSubmit confirms the pending completion: writes the final
// status, creates the report record, clears the recovery draft, and
// hides the form. Missing identifiers or start after end abort silently
// with no network call; the UI is expected to prevent those, so this is
// a defensive guard, not user-facing validation. On any network error
// the form stays open for a manual retry.
func (h *Handler) HandleReportSubmit(ctx context.Context, data ReportData) {
	h.mu.Lock()
	p := h.pend
	userID := h.userID
	h.mu.Unlock()

	if userID == "" || p == nil || p.assignmentID == "" || p.start.IsZero() || p.end.IsZero() {
		h.logger.Debug("report submit with incomplete context, ignoring")
		return
	}
	if p.start.After(p.end) {
		h.logger.Debug("report submit with start after end, ignoring")
		return
	}

	start := p.start.UTC()
	end := p.end.UTC()

	if _, err := h.api.UpdateAssignment(ctx, p.assignmentID, model.AssignmentUpdate{
		StartTime: &start,
		EndTime:   &end,
		Status:    data.Status,
	}); err != nil {
		h.logger.Error("update assignment for report", "assignment", p.assignmentID, "error", err)
		return
	}

	if _, err := h.api.CreateReport(ctx, &model.Report{
		DailyAssignmentID: p.assignmentID,
		UserID:            userID,
		Message:           data.Message,
		MediaLinks:        data.MediaLinks,
		StartTime:         start,
		EndTime:           end,
		Status:            data.Status,
	}); err != nil {
		h.logger.Error("create report", "assignment", p.assignmentID, "error", err)
		return
	}

	if err := h.drafts.Clear(ctx); err != nil {
		h.logger.Warn("clear recovery draft", "error", err)
	}

	h.mu.Lock()
	h.pend = nil
	h.showReport = false
	h.mu.Unlock()

	if h.refetch != nil {
		h.refetch(ctx)
	}
}
