package daemon

import (
	"context"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"golang.org/x/sync/singleflight"

	"github.com/devicelab-dev/maestro-ios-core/pkg/config"
	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// State is the connection state of a Handle.
type State int

const (
	StateUnconnected State = iota // No session established yet, or closed
	StateConnected                // A session is live
	StateLost                     // The last session broke; next use reconnects
)

// String returns the string representation of State
func (s State) String() string {
	switch s {
	case StateUnconnected:
		return "unconnected"
	case StateConnected:
		return "connected"
	case StateLost:
		return "lost"
	default:
		return "unknown"
	}
}

// Handle owns the single shared session. Safe for concurrent use: only one
// caller performs a (re)connect handshake while the others wait for its result.
type Handle struct {
	dial           DialFunc
	connectTimeout time.Duration
	newBackOff     func(timeout time.Duration) backoff.BackOff

	mu      sync.Mutex
	session Session
	state   State
	dials   int    // successful handshakes
	gen     uint64 // bumped by Close; a handshake started earlier is discarded

	connect singleflight.Group
}

// HandleOption configures a Handle.
type HandleOption func(*Handle)

// WithConnectTimeout bounds a single (re)connect, retries included.
func WithConnectTimeout(d time.Duration) HandleOption {
	return func(h *Handle) {
		if d > 0 {
			h.connectTimeout = d
		}
	}
}

// WithBackOff replaces the retry schedule used while dialing.
func WithBackOff(newBackOff func(timeout time.Duration) backoff.BackOff) HandleOption {
	return func(h *Handle) {
		h.newBackOff = newBackOff
	}
}

// NewHandle creates an unconnected handle. Nothing is dialed until first use.
func NewHandle(dial DialFunc, opts ...HandleOption) *Handle {
	h := &Handle{
		dial:           dial,
		connectTimeout: config.DefaultConnectTimeout,
		newBackOff:     defaultBackOff,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func defaultBackOff(timeout time.Duration) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 200 * time.Millisecond
	b.MaxInterval = 2 * time.Second
	b.MaxElapsedTime = timeout
	b.Reset()
	return b
}

// State returns the current connection state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Dials returns how many handshakes succeeded so far.
func (h *Handle) Dials() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.dials
}

// Current returns the live session, establishing one if there is none.
// A session obtained here may go stale at any time; prefer Do.
func (h *Handle) Current(ctx context.Context) (Session, error) {
	if s := h.live(); s != nil {
		return s, nil
	}

	v, err, shared := h.connect.Do("connect", func() (interface{}, error) {
		if s := h.live(); s != nil {
			return s, nil
		}

		h.mu.Lock()
		gen := h.gen
		h.mu.Unlock()

		s, err := h.establish(ctx)
		if err != nil {
			return nil, err
		}

		h.mu.Lock()
		if h.gen != gen {
			h.mu.Unlock()
			_ = s.Close()
			return nil, core.ErrDaemonDisconnected.WithMessage("handle closed during handshake")
		}
		h.session = s
		h.state = StateConnected
		h.dials++
		h.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.Debug("joined in-flight daemon handshake")
	}
	return v.(Session), nil
}

func (h *Handle) live() Session {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.state == StateConnected {
		return h.session
	}
	return nil
}

// establish dials with retries until the connect timeout. It detaches from the
// caller's cancellation because other callers may be waiting on the same result.
func (h *Handle) establish(ctx context.Context) (Session, error) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), h.connectTimeout)
	defer cancel()

	var (
		session  Session
		attempts int
	)
	op := func() error {
		attempts++
		s, err := h.dial(ctx)
		if err != nil {
			logger.Debug("daemon dial attempt %d failed: %v", attempts, err)
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		session = s
		return nil
	}

	start := time.Now()
	if err := backoff.Retry(op, backoff.WithContext(h.newBackOff(h.connectTimeout), ctx)); err != nil {
		logger.Error("daemon unreachable after %d attempts in %v: %v", attempts, time.Since(start), err)
		return nil, core.ErrDaemonUnreachable.WithCause(err).WithDetails(map[string]interface{}{
			"attempts": attempts,
			"timeout":  h.connectTimeout.String(),
		})
	}

	logger.Info("daemon session established after %d attempt(s) in %v", attempts, time.Since(start))
	return session, nil
}

// markLost drops s if it is still the current session. Later callers reconnect.
func (h *Handle) markLost(s Session, cause error) {
	h.mu.Lock()
	if h.session != s {
		h.mu.Unlock()
		return
	}
	h.session = nil
	h.state = StateLost
	h.mu.Unlock()

	logger.Warn("daemon session lost: %v", cause)
	_ = s.Close()
}

// Do runs fn against the current session. If fn fails because the channel
// broke, the session is marked lost, re-established once, and fn is retried
// once. A failed reconnect surfaces core.ErrDaemonUnreachable.
func (h *Handle) Do(ctx context.Context, fn func(Session) error) error {
	s, err := h.Current(ctx)
	if err != nil {
		return err
	}

	err = fn(s)
	if err == nil || !core.IsDisconnected(err) {
		return err
	}

	h.markLost(s, err)

	s, err = h.Current(ctx)
	if err != nil {
		return err
	}
	if err = fn(s); err != nil && core.IsDisconnected(err) {
		h.markLost(s, err)
	}
	return err
}

// Close tears the session down. The handle can be reused; it dials again on next use.
func (h *Handle) Close() error {
	h.mu.Lock()
	s := h.session
	h.session = nil
	h.state = StateUnconnected
	h.gen++
	h.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.Close()
}

var (
	sharedMu sync.Mutex
	shared   *Handle
)

// Shared returns the process-wide handle, creating it on first use with an
// HTTP dialer for the default daemon address.
func Shared() *Handle {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = NewHandle(HTTPDialer(config.DefaultDaemonURL))
	}
	return shared
}

// SetShared installs h as the process-wide handle, closing any previous one.
func SetShared(h *Handle) {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared != nil && shared != h {
		_ = shared.Close()
	}
	shared = h
}

// ResetShared closes and forgets the process-wide handle (end of session, tests).
func ResetShared() {
	SetShared(nil)
}
