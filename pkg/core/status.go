package core

// Phase is the stage of a single gated interaction.
type Phase int

const (
	PhaseIdleWait    Phase = iota // Waiting for the app to become idle before acting
	PhaseActing                   // Synthesizing the event
	PhaseCoolOffWait              // Waiting for animations to settle after acting
	PhaseDone                     // Control returned to the caller
)

// String returns the string representation of Phase
func (p Phase) String() string {
	switch p {
	case PhaseIdleWait:
		return "idle-wait"
	case PhaseActing:
		return "acting"
	case PhaseCoolOffWait:
		return "cool-off-wait"
	case PhaseDone:
		return "done"
	default:
		return "unknown"
	}
}

// IsWait returns true for the two polling phases.
func (p Phase) IsWait() bool {
	return p == PhaseIdleWait || p == PhaseCoolOffWait
}

// ErrorCategory classifies the type of error for better debugging and reporting
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryAssertion                       // Element not found
	ErrCategoryTimeout                         // Idle wait timed out
	ErrCategoryConnection                      // Daemon unreachable or disconnected
	ErrCategoryConfig                          // Invalid configuration or action descriptor
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryAssertion:
		return "assertion"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}
