// Package interaction runs synthesized input behind idle gates: wait for the
// UI to settle, act once, then wait for transition animations to finish.
package interaction

import (
	"context"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
	"github.com/devicelab-dev/maestro-ios-core/pkg/element"
	"github.com/devicelab-dev/maestro-ios-core/pkg/idle"
	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// Synthesizer delivers one input event. It is treated as a black box: the
// orchestrator calls it exactly once per action and never retries.
type Synthesizer interface {
	Synthesize(ctx context.Context, el element.Identity, action Action, params map[string]interface{}) error
}

// SynthesizerFunc adapts a function to Synthesizer.
type SynthesizerFunc func(ctx context.Context, el element.Identity, action Action, params map[string]interface{}) error

// Synthesize calls f.
func (f SynthesizerFunc) Synthesize(ctx context.Context, el element.Identity, action Action, params map[string]interface{}) error {
	return f(ctx, el, action, params)
}

// IdleChecker is the busy/idle predicate for the element's process.
type IdleChecker interface {
	IsIdle(ctx context.Context, el element.Identity) (bool, error)
}

// IdleCheckerFunc adapts a function to IdleChecker.
type IdleCheckerFunc func(ctx context.Context, el element.Identity) (bool, error)

// IsIdle calls f.
func (f IdleCheckerFunc) IsIdle(ctx context.Context, el element.Identity) (bool, error) {
	return f(ctx, el)
}

// ParamSource supplies default synthesis parameters.
type ParamSource interface {
	DefaultParameters(ctx context.Context) map[string]interface{}
}

// Accessibility is what the orchestrator needs from the accessibility proxy.
// *accessibility.Proxy satisfies it.
type Accessibility interface {
	IdleChecker
	ParamSource
}

// PhaseResult is the record of one phase of a gated action.
type PhaseResult struct {
	Phase    core.Phase
	Outcome  idle.Outcome // waits only
	Polls    int          // waits only
	Duration time.Duration
}

// Result describes a finished gated action.
type Result struct {
	Element  element.Identity
	Action   Action
	Params   map[string]interface{} // as sent to the synthesizer
	Phases   []PhaseResult
	Warnings []error // soft failures such as core.ErrIdleTimeoutExceeded
	Duration time.Duration
}

// Phase returns the record of phase p, if it ran.
func (r *Result) Phase(p core.Phase) (PhaseResult, bool) {
	for _, pr := range r.Phases {
		if pr.Phase == p {
			return pr, true
		}
	}
	return PhaseResult{}, false
}

// Orchestrator serializes wait-for-idle, act, wait-for-cool-off.
type Orchestrator struct {
	policy       *idle.Policy
	params       ParamSource
	checker      IdleChecker
	synth        Synthesizer
	clock        idle.Clock
	pollInterval time.Duration
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithClock replaces the wall clock used for waits.
func WithClock(c idle.Clock) Option {
	return func(o *Orchestrator) {
		o.clock = c
	}
}

// WithPollInterval sets the delay between idle checks.
func WithPollInterval(d time.Duration) Option {
	return func(o *Orchestrator) {
		if d > 0 {
			o.pollInterval = d
		}
	}
}

// WithIdleChecker replaces the proxy's idle predicate.
func WithIdleChecker(c IdleChecker) Option {
	return func(o *Orchestrator) {
		o.checker = c
	}
}

// New creates an orchestrator. A nil policy uses idle.Shared().
func New(policy *idle.Policy, ax Accessibility, synth Synthesizer, opts ...Option) *Orchestrator {
	if policy == nil {
		policy = idle.Shared()
	}
	o := &Orchestrator{
		policy:       policy,
		params:       ax,
		checker:      ax,
		synth:        synth,
		clock:        idle.WallClock(),
		pollInterval: idle.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Policy returns the timeout policy consulted on every action.
func (o *Orchestrator) Policy() *idle.Policy {
	return o.policy
}

// PerformGatedAction runs action against el between the two idle waits.
//
// Idle is advisory: a wait that never settles is logged and recorded as a
// warning, and the action is attempted anyway. The only errors returned are
// an invalid descriptor (before any waiting) and the synthesizer's own error
// (after which the cool-off wait is skipped).
func (o *Orchestrator) PerformGatedAction(ctx context.Context, el element.Identity, action Action, params map[string]interface{}) (*Result, error) {
	if err := action.Validate(); err != nil {
		return nil, err
	}
	if el.IsZero() {
		return nil, core.ErrInvalidAction.WithMessage("no target element")
	}

	// Timeouts are read once per call; a concurrent update applies to the next action.
	idleTimeout := o.policy.InteractionIdle()
	coolOff := o.policy.CoolOff()

	start := o.clock.Now()
	result := &Result{Element: el, Action: action}
	log := logger.WithFields(map[string]interface{}{
		"action":  action.Describe(),
		"element": el.String(),
	})

	// Fetched before the idle wait: only the event may follow a settled wait.
	result.Params = o.mergeParams(ctx, action, params)

	o.wait(ctx, result, core.PhaseIdleWait, el, idleTimeout)

	actStart := o.clock.Now()
	err := o.synth.Synthesize(ctx, el, action, result.Params)
	result.Phases = append(result.Phases, PhaseResult{Phase: core.PhaseActing, Duration: o.clock.Now().Sub(actStart)})
	if err != nil {
		log.WithError(err).Warn("synthesis failed")
		result.Phases = append(result.Phases, PhaseResult{Phase: core.PhaseDone})
		result.Duration = o.clock.Now().Sub(start)
		return result, err
	}

	o.wait(ctx, result, core.PhaseCoolOffWait, el, coolOff)

	result.Phases = append(result.Phases, PhaseResult{Phase: core.PhaseDone})
	result.Duration = o.clock.Now().Sub(start)
	log.Debugf("done in %v (%d warnings)", result.Duration, len(result.Warnings))
	return result, nil
}

func (o *Orchestrator) wait(ctx context.Context, result *Result, phase core.Phase, el element.Identity, timeout time.Duration) {
	wr := idle.Wait(ctx, idle.WaitOptions{
		Timeout:  timeout,
		Interval: o.pollInterval,
		Clock:    o.clock,
	}, func(ctx context.Context) (bool, error) {
		return o.checker.IsIdle(ctx, el)
	})

	result.Phases = append(result.Phases, PhaseResult{
		Phase:    phase,
		Outcome:  wr.Outcome,
		Polls:    wr.Polls,
		Duration: wr.Elapsed,
	})

	switch wr.Outcome {
	case idle.OutcomeTimedOut:
		logger.Warn("%s: %s not idle after %v (%d checks), proceeding", phase, el, timeout, wr.Polls)
		result.Warnings = append(result.Warnings, core.ErrIdleTimeoutExceeded.WithDetails(map[string]interface{}{
			"phase":   phase.String(),
			"timeout": timeout.String(),
			"polls":   wr.Polls,
		}))
	case idle.OutcomeCanceled:
		logger.Debug("%s: canceled after %d checks", phase, wr.Polls)
	}
}

// mergeParams layers daemon defaults, then caller overrides, then the
// action's own fields.
func (o *Orchestrator) mergeParams(ctx context.Context, action Action, caller map[string]interface{}) map[string]interface{} {
	merged := make(map[string]interface{})
	if o.params != nil {
		for k, v := range o.params.DefaultParameters(ctx) {
			merged[k] = v
		}
	}
	for k, v := range caller {
		merged[k] = v
	}
	for k, v := range action.Params() {
		merged[k] = v
	}
	return merged
}
