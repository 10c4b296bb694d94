package model

import "testing"

func TestAssignmentStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status AssignmentStatus
		want   bool
	}{
		{StatusNotStarted, false},
		{StatusInProgress, false},
		{StatusCompleted, true},
		{StatusPartiallyCompleted, true},
		{StatusNotCompleted, true},
		{StatusExpired, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			if got := tt.status.IsTerminal(); got != tt.want {
				t.Errorf("IsTerminal() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAssignmentStatus_CanTransitionTo(t *testing.T) {
	tests := []struct {
		name string
		from AssignmentStatus
		to   AssignmentStatus
		want bool
	}{
		{"start timer", StatusNotStarted, StatusInProgress, true},
		{"expire unstarted", StatusNotStarted, StatusExpired, true},
		{"cancel back", StatusInProgress, StatusNotStarted, true},
		{"complete", StatusInProgress, StatusCompleted, true},
		{"partial via report", StatusInProgress, StatusPartiallyCompleted, true},
		{"skip straight to completed", StatusNotStarted, StatusCompleted, false},
		{"terminal completed", StatusCompleted, StatusInProgress, false},
		{"terminal expired", StatusExpired, StatusInProgress, false},
		{"terminal partial", StatusPartiallyCompleted, StatusInProgress, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.want {
				t.Errorf("CanTransitionTo(%s → %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestAssignmentStatus_IsValid(t *testing.T) {
	if !StatusInProgress.IsValid() {
		t.Error("in_progress should be valid")
	}
	if AssignmentStatus("bogus").IsValid() {
		t.Error("bogus should not be valid")
	}
}

func TestTokenPair_IsComplete(t *testing.T) {
	tests := []struct {
		name string
		pair TokenPair
		want bool
	}{
		{"both set", TokenPair{AccessToken: "a", RefreshToken: "r"}, true},
		{"missing refresh", TokenPair{AccessToken: "a"}, false},
		{"missing access", TokenPair{RefreshToken: "r"}, false},
		{"empty", TokenPair{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.pair.IsComplete(); got != tt.want {
				t.Errorf("IsComplete() = %v, want %v", got, tt.want)
			}
		})
	}
}
