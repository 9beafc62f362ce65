package interaction

import (
	"context"

	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon"
	"github.com/devicelab-dev/maestro-ios-core/pkg/element"
	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// DaemonSynthesizer delivers events through the shared daemon session.
type DaemonSynthesizer struct {
	handle *daemon.Handle
}

var _ Synthesizer = (*DaemonSynthesizer)(nil)

// NewDaemonSynthesizer creates a synthesizer over handle.
func NewDaemonSynthesizer(handle *daemon.Handle) *DaemonSynthesizer {
	return &DaemonSynthesizer{handle: handle}
}

// Synthesize sends one event. A dropped session is re-established and the
// event resent once by the handle.
func (s *DaemonSynthesizer) Synthesize(ctx context.Context, el element.Identity, action Action, params map[string]interface{}) error {
	ev := daemon.Event{
		PID:     el.ProcessIdentifier(),
		Element: el.Ref().Token,
		Action:  string(action.Kind),
		Params:  params,
	}
	logger.Debug("synthesize %s on %s", action.Describe(), el)
	return s.handle.Do(ctx, func(sess daemon.Session) error {
		return sess.Synthesize(ctx, ev)
	})
}
