// Package accessibility exposes the live accessibility tree of the device
// through the shared daemon session.
package accessibility

import (
	"context"
	"sync"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon"
	"github.com/devicelab-dev/maestro-ios-core/pkg/element"
	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// SpringboardBundleID is the home screen, which is always running.
const SpringboardBundleID = "com.apple.springboard"

// payloadTimeout bounds a single live payload read.
const payloadTimeout = 5 * time.Second

// Proxy enumerates applications and resolves elements through a daemon handle.
type Proxy struct {
	handle *daemon.Handle
}

// New creates a proxy over handle.
func New(handle *daemon.Handle) *Proxy {
	return &Proxy{handle: handle}
}

var (
	sharedMu sync.Mutex
	shared   *Proxy
)

// SharedClient returns the process-wide proxy, created on first access over
// daemon.Shared().
func SharedClient() *Proxy {
	sharedMu.Lock()
	defer sharedMu.Unlock()

	if shared == nil {
		shared = New(daemon.Shared())
	}
	return shared
}

// ResetSharedClient forgets the process-wide proxy. The next SharedClient call
// binds to whatever daemon.Shared() returns then.
func ResetSharedClient() {
	sharedMu.Lock()
	defer sharedMu.Unlock()
	shared = nil
}

// Handle returns the daemon handle the proxy talks through.
func (p *Proxy) Handle() *daemon.Handle {
	return p.handle
}

// ActiveApplications returns one native identity per application the daemon
// tracks, in the daemon's order. The result is not cached.
func (p *Proxy) ActiveApplications(ctx context.Context) ([]element.Identity, error) {
	apps, err := p.applications(ctx)
	if err != nil {
		return nil, err
	}

	ids := make([]element.Identity, 0, len(apps))
	for _, app := range apps {
		ids = append(ids, p.native(app.Ref()))
	}
	return ids, nil
}

func (p *Proxy) applications(ctx context.Context) ([]daemon.Application, error) {
	var apps []daemon.Application
	err := p.handle.Do(ctx, func(s daemon.Session) error {
		var err error
		apps, err = s.ActiveApplications(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return apps, nil
}

// ForegroundApplication returns the application receiving input: the one the
// daemon flags as foreground, else the only running app besides the home
// screen, else the home screen.
func (p *Proxy) ForegroundApplication(ctx context.Context) (element.Identity, error) {
	apps, err := p.applications(ctx)
	if err != nil {
		return element.Identity{}, err
	}

	var (
		springboard *daemon.Application
		others      []daemon.Application
	)
	for i := range apps {
		if apps[i].Foreground {
			return p.native(apps[i].Ref()), nil
		}
		if apps[i].BundleID == SpringboardBundleID {
			springboard = &apps[i]
			continue
		}
		others = append(others, apps[i])
	}

	if len(others) == 1 {
		return p.native(others[0].Ref()), nil
	}
	if springboard != nil {
		return p.native(springboard.Ref()), nil
	}
	return element.Identity{}, core.ErrElementNotFound.WithMessage("no foreground application")
}

// DefaultParameters returns the daemon's default synthesis parameters. It
// never fails: any error or absence yields an empty map.
func (p *Proxy) DefaultParameters(ctx context.Context) map[string]interface{} {
	var params map[string]interface{}
	err := p.handle.Do(ctx, func(s daemon.Session) error {
		var err error
		params, err = s.DefaultParameters(ctx)
		return err
	})
	if err != nil {
		logger.Warn("default parameters unavailable: %v", err)
		return map[string]interface{}{}
	}

	out := make(map[string]interface{}, len(params))
	for k, v := range params {
		out[k] = v
	}
	return out
}

// DeviceElement returns the device-root identity.
func (p *Proxy) DeviceElement() element.Identity {
	return element.Device()
}

// ElementForProcess resolves the topmost element of a live process. Unknown
// processes fail with core.ErrElementNotFound.
func (p *Proxy) ElementForProcess(ctx context.Context, pid int32) (element.Identity, error) {
	var ref element.Ref
	err := p.handle.Do(ctx, func(s daemon.Session) error {
		var err error
		ref, err = s.ElementForProcess(ctx, pid)
		return err
	})
	if err != nil {
		return element.Identity{}, err
	}
	return p.native(ref), nil
}

// ElementAtPoint resolves the element under a screen coordinate.
func (p *Proxy) ElementAtPoint(ctx context.Context, x, y float64) (element.Identity, error) {
	var ref element.Ref
	err := p.handle.Do(ctx, func(s daemon.Session) error {
		var err error
		ref, err = s.ElementAtPoint(ctx, x, y)
		return err
	})
	if err != nil {
		return element.Identity{}, err
	}
	return p.native(ref), nil
}

// IsIdle asks the daemon whether the process owning el is idle. The device
// root and mocks without a process ask about the whole system.
func (p *Proxy) IsIdle(ctx context.Context, el element.Identity) (bool, error) {
	var idle bool
	err := p.handle.Do(ctx, func(s daemon.Session) error {
		var err error
		idle, err = s.IsIdle(ctx, el.ProcessIdentifier())
		return err
	})
	return idle, err
}

// ElementPayload implements element.PayloadSource. A failed read returns nil so
// the identity falls back to describing its ref.
func (p *Proxy) ElementPayload(ref element.Ref) interface{} {
	if ref == element.DeviceRef {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), payloadTimeout)
	defer cancel()

	var payload map[string]interface{}
	err := p.handle.Do(ctx, func(s daemon.Session) error {
		var err error
		payload, err = s.ElementPayload(ctx, ref)
		return err
	})
	if err != nil {
		logger.Debug("payload read for %d/%s failed: %v", ref.PID, ref.Token, err)
		return nil
	}
	if payload == nil {
		return nil
	}
	return payload
}

func (p *Proxy) native(ref element.Ref) element.Identity {
	return element.Native(ref, element.WithPayloadSource(p))
}
