package timer

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/me/sweeply/pkg/model"
)

// changeRecorder collects emitted Changes.
type changeRecorder struct {
	mu      sync.Mutex
	changes []Change
}

func (r *changeRecorder) record(ch Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ch)
}

func (r *changeRecorder) last(t *testing.T) Change {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.changes) == 0 {
		t.Fatal("no change emitted")
	}
	return r.changes[len(r.changes)-1]
}

// newTestMachine returns a machine with a frozen clock and a manually
// driven ticker.
func newTestMachine(t *testing.T, now time.Time) (*Machine, *changeRecorder, chan time.Time) {
	t.Helper()
	rec := &changeRecorder{}
	m := New(rec.record, nil)
	m.now = func() time.Time { return now }

	tick := make(chan time.Time, 16)
	m.newTicker = func() (<-chan time.Time, func()) {
		return tick, func() {}
	}
	t.Cleanup(m.Close)
	return m, rec, tick
}

func TestMachine_Start(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m, rec, _ := newTestMachine(t, now)

	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if m.State() != StateInProgress {
		t.Errorf("state = %s, want in_progress", m.State())
	}
	if m.ElapsedMs() != 0 {
		t.Errorf("elapsed = %d, want 0", m.ElapsedMs())
	}

	ch := rec.last(t)
	if ch.Status != model.StatusInProgress || ch.AttemptComplete {
		t.Errorf("change = %+v", ch)
	}
	if ch.Start == nil || !ch.Start.Equal(now) {
		t.Errorf("change start = %v, want %v", ch.Start, now)
	}
	if ch.End != nil {
		t.Errorf("change end = %v, want nil", ch.End)
	}

	if err := m.Start(); !errors.Is(err, ErrAlreadyStarted) {
		t.Errorf("second Start error = %v, want ErrAlreadyStarted", err)
	}
}

func TestMachine_TickMonotonic(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m, _, _ := newTestMachine(t, now)

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		m.tick()
	}
	if got := m.ElapsedMs(); got != 5000 {
		t.Errorf("elapsed after 5 ticks = %d, want 5000", got)
	}

	if err := m.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if got := m.ElapsedMs(); got != 0 {
		t.Errorf("elapsed after cancel = %d, want exactly 0", got)
	}
	if m.State() != StateNotStarted {
		t.Errorf("state = %s, want not_started", m.State())
	}

	// Ticks after cancel must not count.
	m.tick()
	if got := m.ElapsedMs(); got != 0 {
		t.Errorf("elapsed incremented while not running: %d", got)
	}
}

func TestMachine_TickerDrivesElapsed(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m, _, tick := newTestMachine(t, now)

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}

	tick <- now
	tick <- now

	// The tick goroutine consumes asynchronously.
	deadline := time.After(time.Second)
	for m.ElapsedMs() != 2000 {
		select {
		case <-deadline:
			t.Fatalf("elapsed = %d, want 2000", m.ElapsedMs())
		default:
			time.Sleep(time.Millisecond)
		}
	}
}

func TestMachine_StartAt(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m, rec, _ := newTestMachine(t, now)

	past := now.Add(-5 * time.Second)
	if err := m.StartAt(past); err != nil {
		t.Fatalf("StartAt: %v", err)
	}
	if got := m.ElapsedMs(); got != 5000 {
		t.Errorf("elapsed = %d, want 5000 credited immediately", got)
	}
	ch := rec.last(t)
	if ch.Start == nil || !ch.Start.Equal(past) {
		t.Errorf("change start = %v, want %v", ch.Start, past)
	}
}

func TestMachine_StartAtFutureRejected(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m, rec, _ := newTestMachine(t, now)

	if err := m.StartAt(now.Add(time.Minute)); !errors.Is(err, ErrFutureStart) {
		t.Fatalf("error = %v, want ErrFutureStart", err)
	}
	// No state change, no notification.
	if m.State() != StateNotStarted || m.ElapsedMs() != 0 {
		t.Errorf("state changed on rejected future start: %s / %d", m.State(), m.ElapsedMs())
	}
	rec.mu.Lock()
	n := len(rec.changes)
	rec.mu.Unlock()
	if n != 0 {
		t.Errorf("%d changes emitted, want 0", n)
	}
}

func TestMachine_CancelRequiresRunning(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m, _, _ := newTestMachine(t, now)

	if err := m.Cancel(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("Cancel from not_started = %v, want ErrNotRunning", err)
	}
}

func TestMachine_AttemptComplete(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	m, rec, _ := newTestMachine(t, now)

	if err := m.Start(); err != nil {
		t.Fatal(err)
	}
	m.tick()
	m.tick()
	if err := m.AttemptComplete(); err != nil {
		t.Fatalf("AttemptComplete: %v", err)
	}

	ch := rec.last(t)
	if !ch.AttemptComplete {
		t.Error("change not flagged as attempt")
	}
	// Status stays in_progress until the report is accepted.
	if ch.Status != model.StatusInProgress {
		t.Errorf("change status = %s, want in_progress", ch.Status)
	}
	if ch.End == nil || !ch.End.Equal(now) {
		t.Errorf("change end = %v, want %v", ch.End, now)
	}
	if ch.ElapsedMs != 2000 {
		t.Errorf("change elapsed = %d, want 2000", ch.ElapsedMs)
	}

	// The tick must be stopped.
	m.tick()
	if m.ElapsedMs() != 2000 {
		t.Errorf("elapsed grew after completion attempt: %d", m.ElapsedMs())
	}

	if err := m.AttemptComplete(); !errors.Is(err, ErrNotRunning) {
		t.Errorf("second AttemptComplete = %v, want ErrNotRunning", err)
	}
}

func TestMachine_ConfirmAndAbandon(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)

	m, _, _ := newTestMachine(t, now)
	_ = m.Start()
	_ = m.AttemptComplete()
	m.Confirm()
	if m.State() != StateCompleted {
		t.Errorf("state after confirm = %s, want completed", m.State())
	}

	m2, _, _ := newTestMachine(t, now)
	_ = m2.Start()
	_ = m2.AttemptComplete()
	m2.Abandon()
	if m2.State() != StateNotStarted || m2.ElapsedMs() != 0 {
		t.Errorf("state after abandon = %s / %d, want fresh not_started", m2.State(), m2.ElapsedMs())
	}
}

func TestMachine_Reconcile(t *testing.T) {
	now := time.Date(2026, 8, 24, 9, 0, 0, 0, time.UTC)
	serverStart := now.Add(-90 * time.Second)
	draftStart := now.Add(-10 * time.Minute)

	tests := []struct {
		name        string
		status      model.AssignmentStatus
		serverStart *time.Time
		draft       *model.TimerSnapshot
		wantState   State
		wantElapsed int64
	}{
		{
			name:        "server in_progress resumes from server start",
			status:      model.StatusInProgress,
			serverStart: &serverStart,
			wantState:   StateInProgress,
			wantElapsed: 90_000,
		},
		{
			name:   "server not_started beats stale in_progress draft",
			status: model.StatusNotStarted,
			draft: &model.TimerSnapshot{
				Status:         model.StatusInProgress,
				StartTime:      &draftStart,
				TotalElapsedMs: 600_000,
			},
			wantState:   StateNotStarted,
			wantElapsed: 0,
		},
		{
			name:        "terminal server state is final",
			status:      model.StatusCompleted,
			serverStart: &serverStart,
			wantState:   StateCompleted,
			wantElapsed: 0,
		},
		{
			name:   "draft start fills in when server lost it",
			status: model.StatusInProgress,
			draft: &model.TimerSnapshot{
				Status:    model.StatusInProgress,
				StartTime: &draftStart,
			},
			wantState:   StateInProgress,
			wantElapsed: 600_000,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, _, _ := newTestMachine(t, now)
			m.Reconcile(tt.status, tt.serverStart, tt.draft)

			if m.State() != tt.wantState {
				t.Errorf("state = %s, want %s", m.State(), tt.wantState)
			}
			if m.ElapsedMs() != tt.wantElapsed {
				t.Errorf("elapsed = %d, want %d", m.ElapsedMs(), tt.wantElapsed)
			}
		})
	}
}
