// Package daemon connects to the on-device test execution manager.
//
// Session is the RPC boundary: everything this module needs from the daemon.
// Handle owns the one shared session per test run, establishes it lazily and
// re-establishes it after the channel breaks.
package daemon

//go:generate mockgen -source=session.go -destination=mock_session.go -package=daemon

import (
	"context"

	"github.com/devicelab-dev/maestro-ios-core/pkg/element"
)

// Session is a live channel to the daemon. Implementations must wrap errors
// caused by the channel itself breaking with core.ErrDaemonDisconnected, and
// unknown processes or handles with core.ErrElementNotFound.
type Session interface {
	// Status reports whether the daemon is ready to serve requests.
	Status(ctx context.Context) (Status, error)

	// ActiveApplications lists the applications the accessibility subsystem tracks.
	ActiveApplications(ctx context.Context) ([]Application, error)

	// ElementForProcess resolves the topmost element of a live process.
	ElementForProcess(ctx context.Context, pid int32) (element.Ref, error)

	// ElementAtPoint resolves the element under a screen coordinate.
	ElementAtPoint(ctx context.Context, x, y float64) (element.Ref, error)

	// ElementPayload reads the current attributes of a live element.
	ElementPayload(ctx context.Context, ref element.Ref) (map[string]interface{}, error)

	// IsIdle queries the busy/idle signal for a process (0 = whole system).
	IsIdle(ctx context.Context, pid int32) (bool, error)

	// DefaultParameters returns default event-synthesis parameters.
	DefaultParameters(ctx context.Context) (map[string]interface{}, error)

	// Synthesize delivers one input event.
	Synthesize(ctx context.Context, ev Event) error

	// Close releases the channel.
	Close() error
}

// Status is the daemon readiness report.
type Status struct {
	Ready     bool   `json:"ready"`
	Message   string `json:"message,omitempty"`
	SessionID string `json:"sessionId,omitempty"`
}

// Application is one running application as reported by the daemon.
type Application struct {
	PID        int32  `json:"pid"`
	BundleID   string `json:"bundleId"`
	Name       string `json:"name,omitempty"`
	Element    string `json:"element"` // Opaque handle token of the application element
	Foreground bool   `json:"foreground,omitempty"`
}

// Ref returns the application's element reference.
func (a Application) Ref() element.Ref {
	return element.Ref{PID: a.PID, Token: a.Element}
}

// Event is one input event to synthesize against a target element.
type Event struct {
	PID     int32                  `json:"pid"`
	Element string                 `json:"element,omitempty"`
	Action  string                 `json:"action"`
	Params  map[string]interface{} `json:"params,omitempty"`
}

// DialFunc establishes a new session.
type DialFunc func(ctx context.Context) (Session, error)
