// Package script runs JavaScript automation scripts against the device.
// Every input a script issues goes through the idle-gated orchestrator.
package script

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dop251/goja"

	"github.com/devicelab-dev/maestro-ios-core/pkg/element"
	"github.com/devicelab-dev/maestro-ios-core/pkg/interaction"
	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

// Elements resolves script targets. *accessibility.Proxy satisfies it.
type Elements interface {
	ActiveApplications(ctx context.Context) ([]element.Identity, error)
	ElementForProcess(ctx context.Context, pid int32) (element.Identity, error)
	ElementAtPoint(ctx context.Context, x, y float64) (element.Identity, error)
	DeviceElement() element.Identity
}

// Engine wraps a goja runtime exposing the device, idle and output objects.
// A script runs on the caller's goroutine; the engine is not reentrant.
type Engine struct {
	vm       *goja.Runtime
	orch     *interaction.Orchestrator
	elements Elements
	out      io.Writer

	mu      sync.Mutex
	ctx     context.Context // of the running script
	target  element.Identity
	output  map[string]interface{}
	results []*interaction.Result
}

// Option configures an Engine.
type Option func(*Engine)

// WithOutput sends console output to w instead of discarding it.
func WithOutput(w io.Writer) Option {
	return func(e *Engine) {
		e.out = w
	}
}

// New creates an engine bound to an orchestrator and an element source.
func New(orch *interaction.Orchestrator, elements Elements, opts ...Option) *Engine {
	e := &Engine{
		vm:       goja.New(),
		orch:     orch,
		elements: elements,
		out:      io.Discard,
		ctx:      context.Background(),
		output:   make(map[string]interface{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.target = elements.DeviceElement()

	e.setupConsole()
	e.vm.Set("device", e.deviceObject())
	e.vm.Set("idle", e.idleObject())
	e.vm.Set("output", e.output)
	return e
}

func (e *Engine) setupConsole() {
	makeConsoleFunc := func(prefix string, log func(string, ...interface{})) func(goja.FunctionCall) goja.Value {
		return func(call goja.FunctionCall) goja.Value {
			parts := make([]string, len(call.Arguments))
			for i, arg := range call.Arguments {
				parts[i] = fmt.Sprint(arg.Export())
			}
			line := strings.Join(parts, " ")
			log("script: %s", line)
			if prefix != "" {
				line = prefix + " " + line
			}
			fmt.Fprintln(e.out, line)
			return goja.Undefined()
		}
	}

	console := e.vm.NewObject()
	console.Set("log", makeConsoleFunc("", logger.Info))
	console.Set("warn", makeConsoleFunc("WARN:", logger.Warn))
	console.Set("error", makeConsoleFunc("ERROR:", logger.Error))
	e.vm.Set("console", console)
}

// deviceObject exposes the gated actions plus element lookup.
func (e *Engine) deviceObject() *goja.Object {
	obj := e.vm.NewObject()

	obj.Set("tap", func(call goja.FunctionCall) goja.Value {
		return e.perform(interaction.Tap(call.Argument(0).ToFloat(), call.Argument(1).ToFloat()))
	})
	obj.Set("longPress", func(call goja.FunctionCall) goja.Value {
		return e.perform(interaction.LongPress(call.Argument(0).ToFloat(), call.Argument(1).ToFloat(), millis(call.Argument(2))))
	})
	obj.Set("swipe", func(call goja.FunctionCall) goja.Value {
		from := interaction.Point{X: call.Argument(0).ToFloat(), Y: call.Argument(1).ToFloat()}
		to := interaction.Point{X: call.Argument(2).ToFloat(), Y: call.Argument(3).ToFloat()}
		return e.perform(interaction.Swipe(from, to, millis(call.Argument(4))))
	})
	obj.Set("type", func(call goja.FunctionCall) goja.Value {
		return e.perform(interaction.TypeText(optString(call.Argument(0))))
	})
	obj.Set("rotate", func(call goja.FunctionCall) goja.Value {
		return e.perform(interaction.Rotate(optString(call.Argument(0))))
	})
	obj.Set("press", func(call goja.FunctionCall) goja.Value {
		return e.perform(interaction.PressButton(optString(call.Argument(0))))
	})

	obj.Set("apps", func(call goja.FunctionCall) goja.Value {
		apps, err := e.elements.ActiveApplications(e.ctx)
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		list := make([]interface{}, 0, len(apps))
		for _, app := range apps {
			list = append(list, map[string]interface{}{
				"pid":     app.ProcessIdentifier(),
				"element": app.Ref().Token,
				"payload": app.Payload(),
			})
		}
		return e.vm.ToValue(list)
	})

	// device.target(pid) sends later actions to the topmost element of pid;
	// device.target() or device.target(0) goes back to the device root.
	obj.Set("target", func(call goja.FunctionCall) goja.Value {
		pid := int32(call.Argument(0).ToInteger())
		if pid == 0 {
			e.target = e.elements.DeviceElement()
			return e.vm.ToValue(0)
		}
		el, err := e.elements.ElementForProcess(e.ctx, pid)
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		e.target = el
		return e.vm.ToValue(pid)
	})

	// device.elementAt(x, y) sends later actions to the element under the point.
	obj.Set("elementAt", func(call goja.FunctionCall) goja.Value {
		el, err := e.elements.ElementAtPoint(e.ctx, call.Argument(0).ToFloat(), call.Argument(1).ToFloat())
		if err != nil {
			panic(e.vm.NewGoError(err))
		}
		e.target = el
		return e.vm.ToValue(map[string]interface{}{
			"pid":     el.ProcessIdentifier(),
			"element": el.Ref().Token,
		})
	})

	return obj
}

// idleObject exposes the policy as idle.timeout and idle.coolOff (seconds).
func (e *Engine) idleObject() *goja.Object {
	policy := e.orch.Policy()
	obj := e.vm.NewObject()

	setter := func(set func(float64) error) goja.Value {
		return e.vm.ToValue(func(call goja.FunctionCall) goja.Value {
			if err := set(call.Argument(0).ToFloat()); err != nil {
				panic(e.vm.NewGoError(err))
			}
			return goja.Undefined()
		})
	}

	obj.DefineAccessorProperty("timeout", e.vm.ToValue(func() float64 {
		return policy.InteractionIdleTimeout()
	}), setter(policy.SetInteractionIdleTimeout), goja.FLAG_FALSE, goja.FLAG_TRUE)

	obj.DefineAccessorProperty("coolOff", e.vm.ToValue(func() float64 {
		return policy.AnimationCoolOffTimeout()
	}), setter(policy.SetAnimationCoolOffTimeout), goja.FLAG_FALSE, goja.FLAG_TRUE)

	return obj
}

func (e *Engine) perform(action interaction.Action) goja.Value {
	res, err := e.orch.PerformGatedAction(e.ctx, e.target, action, nil)
	if res != nil {
		e.results = append(e.results, res)
	}
	if err != nil {
		panic(e.vm.NewGoError(err))
	}
	return e.vm.ToValue(map[string]interface{}{
		"warnings": len(res.Warnings),
		"ms":       res.Duration.Milliseconds(),
	})
}

// SetVariable sets a global visible to scripts.
func (e *Engine) SetVariable(name string, value interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vm.Set(name, value)
}

// SetVariables sets multiple globals.
func (e *Engine) SetVariables(vars map[string]interface{}) {
	for k, v := range vars {
		e.SetVariable(k, v)
	}
}

// Run executes script. Cancelling ctx interrupts it, including a script stuck
// in a loop; the action in flight, if any, still completes.
func (e *Engine) Run(ctx context.Context, script string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx = ctx
	stop := context.AfterFunc(ctx, func() {
		e.vm.Interrupt(ctx.Err())
	})
	defer func() {
		stop()
		e.vm.ClearInterrupt()
		e.ctx = context.Background()
	}()

	start := time.Now()
	_, err := e.vm.RunString(script)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) && ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("script error: %w", err)
	}
	logger.Info("script finished in %v (%d actions)", time.Since(start), len(e.results))
	return nil
}

// Eval evaluates an expression and returns its exported value.
func (e *Engine) Eval(ctx context.Context, expr string) (interface{}, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.ctx = ctx
	defer func() { e.ctx = context.Background() }()

	v, err := e.vm.RunString(expr)
	if err != nil {
		return nil, fmt.Errorf("script error: %w", err)
	}
	return v.Export(), nil
}

// Output returns a copy of the values scripts stored on the output object.
func (e *Engine) Output() map[string]interface{} {
	e.mu.Lock()
	defer e.mu.Unlock()

	source := e.output
	if v := e.vm.Get("output"); v != nil && !goja.IsUndefined(v) {
		if m, ok := v.Export().(map[string]interface{}); ok {
			source = m
		}
	}

	result := make(map[string]interface{}, len(source))
	for k, v := range source {
		result[k] = v
	}
	return result
}

// Results returns the result of every action performed so far.
func (e *Engine) Results() []*interaction.Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*interaction.Result, len(e.results))
	copy(out, e.results)
	return out
}

func millis(v goja.Value) time.Duration {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return 0
	}
	return time.Duration(v.ToInteger()) * time.Millisecond
}

func optString(v goja.Value) string {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return ""
	}
	return v.String()
}
