// Package timer implements the per-assignment timer state machine:
// not started → in progress → awaiting confirmation → completed, with
// cancel returning to the start. It reconciles against server state on
// mount and against an optional locally persisted recovery snapshot.
package timer

import (
	"errors"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/me/sweeply/pkg/model"
)

// State is the machine's own state, finer-grained than the server's
// assignment status: AwaitingConfirmation is the window between the
// user pressing "complete" and the report being accepted.
type State int

const (
	StateNotStarted State = iota
	StateInProgress
	StateAwaitingConfirmation
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateNotStarted:
		return "not_started"
	case StateInProgress:
		return "in_progress"
	case StateAwaitingConfirmation:
		return "awaiting_confirmation"
	case StateCompleted:
		return "completed"
	}
	return "unknown"
}

var (
	// ErrFutureStart rejects a manual start time in the future. This one
	// is user-visible; the UI shows it as a warning.
	ErrFutureStart = errors.New("start time is in the future")
	// ErrNotRunning rejects transitions that require a running timer.
	ErrNotRunning = errors.New("timer is not running")
	// ErrAlreadyStarted rejects starting a timer twice.
	ErrAlreadyStarted = errors.New("timer already started")
)

// Change is the status-change notification emitted on transitions.
// AttemptComplete marks a request to complete, not a confirmed
// completion: the listener opens the report form instead of writing a
// completed status.
type Change struct {
	Status          model.AssignmentStatus
	ElapsedMs       int64
	Start           *time.Time
	End             *time.Time
	AttemptComplete bool
}

// tickInterval is the timer granularity. Elapsed time is whole seconds;
// each tick adds exactly this much.
const tickInterval = time.Second

// Machine is the timer state machine for one assignment. Safe for use
// from multiple goroutines; the tick runs on its own goroutine and is
// stopped on every transition out of InProgress and on Close.
type Machine struct {
	onChange func(Change)
	logger   *slog.Logger

	// now and newTicker are swappable in tests.
	now       func() time.Time
	newTicker func() (<-chan time.Time, func())

	mu        sync.Mutex
	state     State
	start     time.Time
	end       time.Time
	elapsedMs int64
	stop      chan struct{}
}

// New creates a machine in NotStarted. onChange may be nil.
func New(onChange func(Change), logger *slog.Logger) *Machine {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Machine{
		onChange: onChange,
		logger:   logger.With("component", "timer"),
		now:      time.Now,
		newTicker: func() (<-chan time.Time, func()) {
			t := time.NewTicker(tickInterval)
			return t.C, t.Stop
		},
	}
}

// State returns the current machine state.
func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// ElapsedMs returns the accumulated elapsed time in milliseconds.
func (m *Machine) ElapsedMs() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsedMs
}

// StartTime returns the recorded start time, or nil if not started.
func (m *Machine) StartTime() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.start.IsZero() {
		return nil
	}
	t := m.start
	return &t
}

// EndTime returns the recorded end time, or nil.
func (m *Machine) EndTime() *time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.end.IsZero() {
		return nil
	}
	t := m.end
	return &t
}

// Start begins the timer at the current time.
func (m *Machine) Start() error {
	return m.startAt(m.now())
}

// StartAt begins the timer at a past moment, crediting the elapsed time
// since then. A future time is rejected with ErrFutureStart and no
// state change.
func (m *Machine) StartAt(at time.Time) error {
	if at.After(m.now()) {
		return ErrFutureStart
	}
	return m.startAt(at)
}

func (m *Machine) startAt(at time.Time) error {
	m.mu.Lock()
	if m.state != StateNotStarted {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	m.state = StateInProgress
	m.start = at
	m.end = time.Time{}
	m.elapsedMs = m.now().Sub(at).Milliseconds()
	m.startTickLocked()
	ch := m.snapshotLocked(false)
	m.mu.Unlock()

	m.logger.Debug("timer started", "start", at, "elapsed_ms", ch.ElapsedMs)
	m.emit(ch)
	return nil
}

// Cancel stops the timer and resets to NotStarted. Rejected unless the
// timer is currently running.
func (m *Machine) Cancel() error {
	m.mu.Lock()
	if m.state != StateInProgress {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.stopTickLocked()
	m.state = StateNotStarted
	m.start = time.Time{}
	m.end = time.Time{}
	m.elapsedMs = 0
	ch := m.snapshotLocked(false)
	m.mu.Unlock()

	m.logger.Debug("timer cancelled")
	m.emit(ch)
	return nil
}

// AttemptComplete stops the tick, records the end time, and notifies
// the listener with AttemptComplete set so it opens the report form.
// The assignment status is deliberately not completed yet; that only
// happens once the report is accepted.
func (m *Machine) AttemptComplete() error {
	m.mu.Lock()
	if m.state != StateInProgress || m.start.IsZero() {
		m.mu.Unlock()
		return ErrNotRunning
	}
	m.stopTickLocked()
	m.state = StateAwaitingConfirmation
	m.end = m.now()
	ch := m.snapshotLocked(true)
	m.mu.Unlock()

	m.logger.Debug("completion requested", "elapsed_ms", ch.ElapsedMs)
	m.emit(ch)
	return nil
}

// Confirm finalizes the machine after the report was accepted.
func (m *Machine) Confirm() {
	m.mu.Lock()
	if m.state == StateAwaitingConfirmation {
		m.state = StateCompleted
	}
	m.mu.Unlock()
}

// Abandon discards the pending completion: the user closed the report
// form without submitting. In-memory state resets; whatever the server
// already has (typically in_progress) is untouched and will resurface
// through Reconcile on the next mount.
func (m *Machine) Abandon() {
	m.mu.Lock()
	if m.state == StateAwaitingConfirmation {
		m.state = StateNotStarted
		m.start = time.Time{}
		m.end = time.Time{}
		m.elapsedMs = 0
	}
	m.mu.Unlock()
}

// Reconcile installs the authoritative starting state on mount, merging
// two sources with fixed precedence: server state wins over the local
// recovery snapshot, which wins over a fresh default. A server-side
// in_progress with a recorded start time resumes the tick so the timer
// survives app restarts.
func (m *Machine) Reconcile(serverStatus model.AssignmentStatus, serverStart *time.Time, draft *model.TimerSnapshot) {
	m.mu.Lock()
	m.stopTickLocked()

	switch {
	case serverStatus == model.StatusInProgress:
		start := time.Time{}
		if serverStart != nil {
			start = *serverStart
		} else if draft != nil && draft.StartTime != nil {
			// Server lost the start time; the local snapshot is the
			// best remaining hint.
			start = *draft.StartTime
		}
		if start.IsZero() {
			start = m.now()
		}
		m.state = StateInProgress
		m.start = start
		m.end = time.Time{}
		m.elapsedMs = m.now().Sub(start).Milliseconds()
		if m.elapsedMs < 0 {
			m.elapsedMs = 0
		}
		m.startTickLocked()

	case serverStatus.IsTerminal():
		m.state = StateCompleted
		m.start = time.Time{}
		m.end = time.Time{}
		m.elapsedMs = 0

	default:
		// Server says not started: any stale local draft is superseded.
		m.state = StateNotStarted
		m.start = time.Time{}
		m.end = time.Time{}
		m.elapsedMs = 0
	}
	m.mu.Unlock()
}

// Close stops any running tick. The machine is not reusable afterwards
// in the sense that nothing restarts the tick except a new transition.
func (m *Machine) Close() {
	m.mu.Lock()
	m.stopTickLocked()
	m.mu.Unlock()
}

// startTickLocked launches the tick goroutine. Caller holds m.mu.
func (m *Machine) startTickLocked() {
	m.stopTickLocked()
	stop := make(chan struct{})
	m.stop = stop

	ch, cancel := m.newTicker()
	go func() {
		defer cancel()
		for {
			select {
			case <-stop:
				return
			case <-ch:
				m.tick()
			}
		}
	}()
}

// stopTickLocked stops the tick goroutine if one is running. Caller
// holds m.mu. Every transition out of InProgress goes through here so
// no tick outlives the state that started it.
func (m *Machine) stopTickLocked() {
	if m.stop != nil {
		close(m.stop)
		m.stop = nil
	}
}

// tick adds one interval to the elapsed time. Ticks that race a
// transition out of InProgress are dropped.
func (m *Machine) tick() {
	m.mu.Lock()
	if m.state == StateInProgress {
		m.elapsedMs += tickInterval.Milliseconds()
	}
	m.mu.Unlock()
}

// snapshotLocked builds the Change for the current state. Caller holds m.mu.
func (m *Machine) snapshotLocked(attempt bool) Change {
	ch := Change{
		ElapsedMs:       m.elapsedMs,
		AttemptComplete: attempt,
	}
	switch m.state {
	case StateInProgress, StateAwaitingConfirmation:
		ch.Status = model.StatusInProgress
	case StateCompleted:
		ch.Status = model.StatusCompleted
	default:
		ch.Status = model.StatusNotStarted
	}
	if !m.start.IsZero() {
		t := m.start
		ch.Start = &t
	}
	if !m.end.IsZero() {
		t := m.end
		ch.End = &t
	}
	return ch
}

func (m *Machine) emit(ch Change) {
	if m.onChange != nil {
		m.onChange(ch)
	}
}
