// Package idle holds the idling policy and the poll-or-timeout wait used to
// decide when the application under test is settled enough to receive input.
//
// Both timeouts are float seconds. Zero disables the corresponding check.
// If a timeout expires the interaction proceeds anyway: idling is advisory.
package idle

import (
	"fmt"
	"math"
	"sync/atomic"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/config"
	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
)

// Defaults, in seconds.
const (
	DefaultInteractionIdleTimeout  = config.DefaultInteractionIdleTimeout
	DefaultAnimationCoolOffTimeout = config.DefaultAnimationCoolOffTimeout
)

// MaxTimeout is the largest timeout, in seconds, that fits a time.Duration.
const MaxTimeout = float64(math.MaxInt64/int64(time.Second)) - 1

// Policy stores the two independent idling timeouts. Reads and writes are
// atomic; there is no invariant spanning both fields.
type Policy struct {
	interaction atomic.Uint64 // math.Float64bits of seconds
	coolOff     atomic.Uint64
}

// NewPolicy returns a policy holding the default timeouts.
func NewPolicy() *Policy {
	p := &Policy{}
	p.interaction.Store(math.Float64bits(DefaultInteractionIdleTimeout))
	p.coolOff.Store(math.Float64bits(DefaultAnimationCoolOffTimeout))
	return p
}

var shared = NewPolicy()

// Shared returns the process-wide policy.
func Shared() *Policy {
	return shared
}

// ResetShared restores the process-wide policy to its defaults (for testing).
func ResetShared() {
	shared.interaction.Store(math.Float64bits(DefaultInteractionIdleTimeout))
	shared.coolOff.Store(math.Float64bits(DefaultAnimationCoolOffTimeout))
}

// SetInteractionIdleTimeout sets how long to wait for the app to idle before
// an interaction. If the timeout expires the interaction is attempted anyway.
func (p *Policy) SetInteractionIdleTimeout(seconds float64) error {
	if err := validate("interactionIdleTimeout", seconds); err != nil {
		return err
	}
	p.interaction.Store(math.Float64bits(seconds))
	return nil
}

// InteractionIdleTimeout returns the interaction idle timeout in seconds.
func (p *Policy) InteractionIdleTimeout() float64 {
	return math.Float64frombits(p.interaction.Load())
}

// SetAnimationCoolOffTimeout sets how long to wait for animations to settle
// after an event is synthesized or the orientation changes.
func (p *Policy) SetAnimationCoolOffTimeout(seconds float64) error {
	if err := validate("animationCoolOffTimeout", seconds); err != nil {
		return err
	}
	p.coolOff.Store(math.Float64bits(seconds))
	return nil
}

// AnimationCoolOffTimeout returns the animation cool-off timeout in seconds.
func (p *Policy) AnimationCoolOffTimeout() float64 {
	return math.Float64frombits(p.coolOff.Load())
}

// InteractionIdle returns the interaction idle timeout as a duration.
func (p *Policy) InteractionIdle() time.Duration {
	return seconds(p.InteractionIdleTimeout())
}

// CoolOff returns the animation cool-off timeout as a duration.
func (p *Policy) CoolOff() time.Duration {
	return seconds(p.AnimationCoolOffTimeout())
}

// Apply copies the timeouts set in cfg. Nothing is stored unless both are valid.
func (p *Policy) Apply(cfg config.IdleConfig) error {
	if cfg.InteractionTimeout != nil {
		if err := validate("interactionIdleTimeout", *cfg.InteractionTimeout); err != nil {
			return err
		}
	}
	if cfg.AnimationCoolOffTimeout != nil {
		if err := validate("animationCoolOffTimeout", *cfg.AnimationCoolOffTimeout); err != nil {
			return err
		}
	}

	if cfg.InteractionTimeout != nil {
		p.interaction.Store(math.Float64bits(*cfg.InteractionTimeout))
	}
	if cfg.AnimationCoolOffTimeout != nil {
		p.coolOff.Store(math.Float64bits(*cfg.AnimationCoolOffTimeout))
	}
	return nil
}

// String renders the policy for logs.
func (p *Policy) String() string {
	return fmt.Sprintf("idle=%.2fs coolOff=%.2fs", p.InteractionIdleTimeout(), p.AnimationCoolOffTimeout())
}

func validate(field string, seconds float64) error {
	if seconds < 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return core.ErrInvalidConfiguration.
			WithMessage(fmt.Sprintf("%s must be a non-negative number of seconds, got %v", field, seconds)).
			WithDetails(map[string]interface{}{"field": field, "value": seconds})
	}
	if seconds > MaxTimeout {
		return core.ErrInvalidConfiguration.
			WithMessage(fmt.Sprintf("%s must be at most %.0f seconds, got %v", field, MaxTimeout, seconds)).
			WithDetails(map[string]interface{}{"field": field, "value": seconds})
	}
	return nil
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
