package core

import "testing"

func TestPhase_String(t *testing.T) {
	tests := []struct {
		phase    Phase
		expected string
	}{
		{PhaseIdleWait, "idle-wait"},
		{PhaseActing, "acting"},
		{PhaseCoolOffWait, "cool-off-wait"},
		{PhaseDone, "done"},
		{Phase(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.phase.String(); got != tt.expected {
			t.Errorf("Phase(%d).String() = %q, want %q", tt.phase, got, tt.expected)
		}
	}
}

func TestPhase_IsWait(t *testing.T) {
	for _, p := range []Phase{PhaseIdleWait, PhaseCoolOffWait} {
		if !p.IsWait() {
			t.Errorf("Phase(%s).IsWait() = false, want true", p)
		}
	}
	for _, p := range []Phase{PhaseActing, PhaseDone} {
		if p.IsWait() {
			t.Errorf("Phase(%s).IsWait() = true, want false", p)
		}
	}
}

func TestErrorCategory_String(t *testing.T) {
	tests := []struct {
		category ErrorCategory
		expected string
	}{
		{ErrCategoryNone, "none"},
		{ErrCategoryAssertion, "assertion"},
		{ErrCategoryTimeout, "timeout"},
		{ErrCategoryConnection, "connection"},
		{ErrCategoryConfig, "config"},
		{ErrorCategory(99), "unknown"},
	}

	for _, tt := range tests {
		if got := tt.category.String(); got != tt.expected {
			t.Errorf("ErrorCategory(%d).String() = %q, want %q", tt.category, got, tt.expected)
		}
	}
}
