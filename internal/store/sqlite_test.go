package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/me/sweeply/pkg/model"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("NewSQLiteStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

func TestUserLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{
		ID:        "u1",
		Email:     "anna@example.com",
		FirstName: "Anna",
		LastName:  "Berg",
		Role:      model.RoleCleaner,
		CreatedAt: time.Now(),
	}
	if err := s.CreateUser(ctx, u, "", "code-123"); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := s.GetUser(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got == nil || got.Email != "anna@example.com" {
		t.Fatalf("GetUser = %+v", got)
	}
	if got.Activated {
		t.Error("new user should not be activated")
	}

	// Unknown user comes back nil without error.
	missing, err := s.GetUser(ctx, "nope")
	if err != nil {
		t.Fatalf("GetUser missing: %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for missing user, got %+v", missing)
	}

	activated, err := s.ActivateUser(ctx, "code-123", "hash")
	if err != nil {
		t.Fatalf("ActivateUser: %v", err)
	}
	if activated == nil || !activated.Activated {
		t.Fatalf("ActivateUser = %+v", activated)
	}

	// Activation codes are single-use.
	again, err := s.ActivateUser(ctx, "code-123", "hash2")
	if err != nil {
		t.Fatalf("ActivateUser again: %v", err)
	}
	if again != nil {
		t.Error("reused activation code should return nil")
	}

	byEmail, hash, err := s.GetUserByEmail(ctx, "anna@example.com")
	if err != nil {
		t.Fatalf("GetUserByEmail: %v", err)
	}
	if byEmail == nil || byEmail.ID != "u1" {
		t.Fatalf("GetUserByEmail = %+v", byEmail)
	}
	if hash != "hash" {
		t.Errorf("hash = %q, want %q", hash, "hash")
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 1 {
		t.Fatalf("ListUsers returned %d users", len(users))
	}

	if err := s.DeleteUser(ctx, "u1"); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	gone, err := s.GetUser(ctx, "u1")
	if err != nil || gone != nil {
		t.Errorf("after delete: user=%+v err=%v", gone, err)
	}
}

func TestLocationsAndRooms(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	loc := &model.Location{ID: "l1", Name: "Main Office", Address: "1 High St", CreatedAt: time.Now()}
	if err := s.CreateLocation(ctx, loc); err != nil {
		t.Fatalf("CreateLocation: %v", err)
	}
	if err := s.CreateRoom(ctx, &model.Room{ID: "r1", LocationID: "l1", Name: "Kitchen", Floor: "2", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}
	if err := s.CreateRoom(ctx, &model.Room{ID: "r2", LocationID: "l1", Name: "Lobby", CreatedAt: time.Now()}); err != nil {
		t.Fatalf("CreateRoom: %v", err)
	}

	rooms, err := s.ListRooms(ctx, "l1")
	if err != nil {
		t.Fatalf("ListRooms: %v", err)
	}
	if len(rooms) != 2 {
		t.Fatalf("ListRooms returned %d rooms", len(rooms))
	}

	// Deleting a location cascades to its rooms.
	if err := s.DeleteLocation(ctx, "l1"); err != nil {
		t.Fatalf("DeleteLocation: %v", err)
	}
	rooms, err = s.ListRooms(ctx, "l1")
	if err != nil {
		t.Fatalf("ListRooms after delete: %v", err)
	}
	if len(rooms) != 0 {
		t.Errorf("rooms not cascaded: %d left", len(rooms))
	}
}

func TestTaskWeekdaysRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	task := &model.Task{
		ID:        "t1",
		Name:      "Vacuum",
		RoomID:    "r1",
		Period:    model.PeriodWeekly,
		Weekdays:  []time.Weekday{time.Monday, time.Thursday},
		CreatedAt: time.Now(),
	}
	if err := s.CreateTask(ctx, task); err != nil {
		t.Fatalf("CreateTask: %v", err)
	}

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatalf("ListTasks: %v", err)
	}
	if len(tasks) != 1 {
		t.Fatalf("ListTasks returned %d tasks", len(tasks))
	}
	got := tasks[0]
	if len(got.Weekdays) != 2 || got.Weekdays[0] != time.Monday || got.Weekdays[1] != time.Thursday {
		t.Errorf("weekdays = %v", got.Weekdays)
	}
}

func TestAssignmentLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	a := &model.Assignment{
		ID:        "a1",
		TaskID:    "t1",
		TaskName:  "Vacuum",
		UserID:    "u1",
		Date:      "2026-08-29",
		Status:    model.StatusNotStarted,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.CreateAssignment(ctx, a); err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}

	got, err := s.GetAssignment(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if got == nil || got.Status != model.StatusNotStarted {
		t.Fatalf("GetAssignment = %+v", got)
	}
	if got.StartTime != nil {
		t.Error("fresh assignment should have nil start time")
	}

	start := time.Now().UTC().Truncate(time.Millisecond)
	got.Status = model.StatusInProgress
	got.StartTime = &start
	got.UpdatedAt = time.Now()
	if err := s.UpdateAssignment(ctx, got); err != nil {
		t.Fatalf("UpdateAssignment: %v", err)
	}

	updated, err := s.GetAssignment(ctx, "a1")
	if err != nil {
		t.Fatalf("GetAssignment: %v", err)
	}
	if updated.Status != model.StatusInProgress {
		t.Errorf("status = %s", updated.Status)
	}
	if updated.StartTime == nil || !updated.StartTime.Equal(start) {
		t.Errorf("start time = %v, want %v", updated.StartTime, start)
	}
}

func TestListAssignmentsFilters(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	seed := []*model.Assignment{
		{ID: "a1", TaskID: "t1", UserID: "u1", Date: "2026-08-29", Status: model.StatusNotStarted},
		{ID: "a2", TaskID: "t2", UserID: "u1", Date: "2026-08-29", Status: model.StatusCompleted},
		{ID: "a3", TaskID: "t1", UserID: "u2", Date: "2026-08-29", Status: model.StatusNotStarted},
		{ID: "a4", TaskID: "t1", UserID: "u1", Date: "2026-08-30", Status: model.StatusNotStarted},
	}
	for _, a := range seed {
		a.CreatedAt = time.Now()
		a.UpdatedAt = time.Now()
		if err := s.CreateAssignment(ctx, a); err != nil {
			t.Fatalf("CreateAssignment %s: %v", a.ID, err)
		}
	}

	tests := []struct {
		name      string
		opts      model.ListOptions
		wantIDs   []string
		wantTotal int
	}{
		{
			name:      "by user and date",
			opts:      model.ListOptions{UserID: "u1", Date: "2026-08-29"},
			wantIDs:   []string{"a1", "a2"},
			wantTotal: 2,
		},
		{
			name:      "by status",
			opts:      model.ListOptions{Status: string(model.StatusCompleted)},
			wantIDs:   []string{"a2"},
			wantTotal: 1,
		},
		{
			name:      "pagination",
			opts:      model.ListOptions{Limit: 2, Offset: 2},
			wantIDs:   []string{"a3", "a4"},
			wantTotal: 4,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, total, err := s.ListAssignments(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListAssignments: %v", err)
			}
			if total != tt.wantTotal {
				t.Errorf("total = %d, want %d", total, tt.wantTotal)
			}
			if len(got) != len(tt.wantIDs) {
				t.Fatalf("got %d assignments, want %d", len(got), len(tt.wantIDs))
			}
			for i, id := range tt.wantIDs {
				if got[i].ID != id {
					t.Errorf("assignment[%d] = %s, want %s", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestReportsRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	r := &model.Report{
		ID:                "rep1",
		DailyAssignmentID: "a1",
		UserID:            "u1",
		Message:           "done, but the sink needs a plumber",
		MediaLinks:        []string{"https://cdn.example.com/p1.jpg"},
		StartTime:         time.Now().Add(-time.Hour).UTC(),
		EndTime:           time.Now().UTC(),
		Status:            model.StatusCompleted,
		CreatedAt:         time.Now(),
	}
	if err := s.CreateReport(ctx, r); err != nil {
		t.Fatalf("CreateReport: %v", err)
	}

	reports, err := s.ListReports(ctx, "a1")
	if err != nil {
		t.Fatalf("ListReports: %v", err)
	}
	if len(reports) != 1 {
		t.Fatalf("ListReports returned %d", len(reports))
	}
	got := reports[0]
	if got.Message != r.Message || len(got.MediaLinks) != 1 {
		t.Errorf("report = %+v", got)
	}

	other, err := s.ListReports(ctx, "other")
	if err != nil {
		t.Fatalf("ListReports other: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no reports for other assignment, got %d", len(other))
	}
}

func TestAuthTokens(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	tok := &model.AuthToken{
		Token:     "tok-1",
		UserID:    "u1",
		Kind:      model.TokenKindRefresh,
		ExpiresAt: time.Now().Add(time.Hour),
		CreatedAt: time.Now(),
	}
	if err := s.SaveToken(ctx, tok); err != nil {
		t.Fatalf("SaveToken: %v", err)
	}

	got, err := s.GetToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if got == nil || got.UserID != "u1" || got.Kind != model.TokenKindRefresh {
		t.Fatalf("GetToken = %+v", got)
	}
	if !got.IsValid() {
		t.Error("fresh token should be valid")
	}

	if err := s.RevokeToken(ctx, "tok-1"); err != nil {
		t.Fatalf("RevokeToken: %v", err)
	}
	got, err = s.GetToken(ctx, "tok-1")
	if err != nil {
		t.Fatalf("GetToken: %v", err)
	}
	if !got.Revoked {
		t.Error("token should be revoked")
	}
	if got.IsValid() {
		t.Error("revoked token should not be valid")
	}

	expired := &model.AuthToken{
		Token:     "tok-old",
		UserID:    "u1",
		Kind:      model.TokenKindAccess,
		ExpiresAt: time.Now().Add(-time.Hour),
		CreatedAt: time.Now().Add(-2 * time.Hour),
	}
	if err := s.SaveToken(ctx, expired); err != nil {
		t.Fatalf("SaveToken expired: %v", err)
	}
	n, err := s.DeleteExpiredTokens(ctx)
	if err != nil {
		t.Fatalf("DeleteExpiredTokens: %v", err)
	}
	if n != 1 {
		t.Errorf("deleted %d tokens, want 1", n)
	}

	missing, err := s.GetToken(ctx, "tok-old")
	if err != nil || missing != nil {
		t.Errorf("expired token should be gone: %+v err=%v", missing, err)
	}
}
