// Package fake provides an in-memory test daemon for running without a real device.
package fake

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon"
	"github.com/devicelab-dev/maestro-ios-core/pkg/element"
)

// Config configures fake daemon behavior.
type Config struct {
	// Apps reported by ActiveApplications.
	Apps []daemon.Application
	// BusyPolls makes IsIdle report busy for the first N checks. -1 = always busy.
	BusyPolls int
	// Defaults returned by DefaultParameters. Nil = none.
	Defaults map[string]interface{}
	// CallDelay adds artificial latency per RPC.
	CallDelay time.Duration
}

// Daemon is the device side. It outlives the sessions dialed to it, so tests
// can break a session and watch the handle reconnect.
type Daemon struct {
	mu sync.Mutex

	cfg         Config
	payloads    map[element.Ref]map[string]interface{}
	events      []daemon.Event
	idleChecks  int
	dials       int
	failDials   int
	unreachable bool
	dropNext    int
	nextSession int
}

// New creates a fake daemon.
func New(cfg Config) *Daemon {
	return &Daemon{
		cfg:      cfg,
		payloads: make(map[element.Ref]map[string]interface{}),
	}
}

// DefaultApps is a springboard plus one foreground app.
func DefaultApps() []daemon.Application {
	return []daemon.Application{
		{PID: 58, BundleID: "com.apple.springboard", Name: "SpringBoard", Element: "ax-58"},
		{PID: 4211, BundleID: "com.example.app", Name: "Example", Element: "ax-4211", Foreground: true},
	}
}

// Dial is a daemon.DialFunc.
func (d *Daemon) Dial(ctx context.Context) (daemon.Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.unreachable {
		return nil, errors.New("connection refused")
	}
	if d.failDials > 0 {
		d.failDials--
		return nil, errors.New("handshake failed")
	}
	d.dials++
	d.nextSession++
	return &session{d: d, id: d.nextSession}, nil
}

// SetApps replaces the running applications.
func (d *Daemon) SetApps(apps ...daemon.Application) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.Apps = apps
}

// SetBusyPolls makes the next n idle checks report busy (-1 = forever).
func (d *Daemon) SetBusyPolls(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg.BusyPolls = n
	d.idleChecks = 0
}

// SetPayload sets the attributes returned for ref.
func (d *Daemon) SetPayload(ref element.Ref, payload map[string]interface{}) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payloads[ref] = payload
}

// DropNext breaks the current session on each of the next n RPCs.
func (d *Daemon) DropNext(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dropNext = n
}

// FailDials makes the next n dials fail.
func (d *Daemon) FailDials(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.failDials = n
}

// SetUnreachable makes every dial fail until reset.
func (d *Daemon) SetUnreachable(unreachable bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unreachable = unreachable
}

// Events returns every synthesized event so far.
func (d *Daemon) Events() []daemon.Event {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]daemon.Event, len(d.events))
	copy(out, d.events)
	return out
}

// Dials returns the number of successful dials.
func (d *Daemon) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

// IdleChecks returns the number of IsIdle calls since the last SetBusyPolls.
func (d *Daemon) IdleChecks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.idleChecks
}

type session struct {
	d      *Daemon
	id     int
	broken bool
}

// enter simulates latency and a broken channel. It returns with d.mu held on success.
func (s *session) enter(route string) error {
	if s.d.cfg.CallDelay > 0 {
		time.Sleep(s.d.cfg.CallDelay)
	}
	s.d.mu.Lock()
	if s.d.dropNext > 0 && !s.broken {
		s.d.dropNext--
		s.broken = true
	}
	if s.broken {
		s.d.mu.Unlock()
		return core.ErrDaemonDisconnected.WithCause(fmt.Errorf("session %d: %s: broken pipe", s.id, route))
	}
	return nil
}

func (s *session) Status(context.Context) (daemon.Status, error) {
	if err := s.enter("status"); err != nil {
		return daemon.Status{}, err
	}
	defer s.d.mu.Unlock()
	return daemon.Status{Ready: true, SessionID: fmt.Sprintf("fake-%d", s.id)}, nil
}

func (s *session) ActiveApplications(context.Context) ([]daemon.Application, error) {
	if err := s.enter("activeApps"); err != nil {
		return nil, err
	}
	defer s.d.mu.Unlock()
	out := make([]daemon.Application, len(s.d.cfg.Apps))
	copy(out, s.d.cfg.Apps)
	return out, nil
}

func (s *session) ElementForProcess(_ context.Context, pid int32) (element.Ref, error) {
	if err := s.enter("element/process"); err != nil {
		return element.Ref{}, err
	}
	defer s.d.mu.Unlock()
	for _, app := range s.d.cfg.Apps {
		if app.PID == pid {
			return app.Ref(), nil
		}
	}
	return element.Ref{}, core.ErrElementNotFound.WithDetails(map[string]interface{}{"pid": pid})
}

func (s *session) ElementAtPoint(_ context.Context, x, y float64) (element.Ref, error) {
	if err := s.enter("element/point"); err != nil {
		return element.Ref{}, err
	}
	defer s.d.mu.Unlock()
	for _, app := range s.d.cfg.Apps {
		if app.Foreground {
			return element.Ref{PID: app.PID, Token: fmt.Sprintf("%s@%.0f,%.0f", app.Element, x, y)}, nil
		}
	}
	return element.Ref{}, core.ErrElementNotFound.WithDetails(map[string]interface{}{"x": x, "y": y})
}

func (s *session) ElementPayload(_ context.Context, ref element.Ref) (map[string]interface{}, error) {
	if err := s.enter("element/payload"); err != nil {
		return nil, err
	}
	defer s.d.mu.Unlock()
	if p, ok := s.d.payloads[ref]; ok {
		return p, nil
	}
	for _, app := range s.d.cfg.Apps {
		if app.Ref() == ref {
			return map[string]interface{}{"bundleId": app.BundleID, "label": app.Name}, nil
		}
	}
	if ref == element.DeviceRef {
		return map[string]interface{}{"type": "device"}, nil
	}
	return nil, core.ErrElementNotFound
}

func (s *session) IsIdle(context.Context, int32) (bool, error) {
	if err := s.enter("isIdle"); err != nil {
		return false, err
	}
	defer s.d.mu.Unlock()
	s.d.idleChecks++
	if s.d.cfg.BusyPolls < 0 {
		return false, nil
	}
	return s.d.idleChecks > s.d.cfg.BusyPolls, nil
}

func (s *session) DefaultParameters(context.Context) (map[string]interface{}, error) {
	if err := s.enter("defaultParameters"); err != nil {
		return nil, err
	}
	defer s.d.mu.Unlock()
	if s.d.cfg.Defaults == nil {
		return nil, nil
	}
	out := make(map[string]interface{}, len(s.d.cfg.Defaults))
	for k, v := range s.d.cfg.Defaults {
		out[k] = v
	}
	return out, nil
}

func (s *session) Synthesize(_ context.Context, ev daemon.Event) error {
	if err := s.enter("synthesize"); err != nil {
		return err
	}
	defer s.d.mu.Unlock()
	s.d.events = append(s.d.events, ev)
	return nil
}

func (s *session) Close() error {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.broken = true
	return nil
}
