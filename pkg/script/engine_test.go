package script

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/accessibility"
	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon"
	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon/fake"
	"github.com/devicelab-dev/maestro-ios-core/pkg/idle"
	"github.com/devicelab-dev/maestro-ios-core/pkg/interaction"
)

func newTestEngine(t *testing.T, opts ...Option) (*Engine, *fake.Daemon, *idle.Policy) {
	t.Helper()
	d := fake.New(fake.Config{Apps: fake.DefaultApps()})
	h := daemon.NewHandle(d.Dial)
	t.Cleanup(func() { _ = h.Close() })

	policy := idle.NewPolicy()
	proxy := accessibility.New(h)
	orch := interaction.New(policy, proxy, interaction.NewDaemonSynthesizer(h),
		interaction.WithClock(idle.NewManualClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))))
	return New(orch, proxy, opts...), d, policy
}

func TestRun_Actions(t *testing.T) {
	engine, d, _ := newTestEngine(t)

	err := engine.Run(context.Background(), `
		device.tap(10, 20);
		device.swipe(100, 600, 100, 200, 300);
		device.type("hello");
		device.rotate("landscapeLeft");
		device.press("home");
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	events := d.Events()
	want := []string{"tap", "swipe", "typeText", "rotate", "pressButton"}
	if len(events) != len(want) {
		t.Fatalf("got %d events, want %d", len(events), len(want))
	}
	for i, ev := range events {
		if ev.Action != want[i] {
			t.Errorf("event %d = %s, want %s", i, ev.Action, want[i])
		}
	}
	if events[0].Params["x"] != 10.0 || events[0].Params["y"] != 20.0 {
		t.Errorf("tap params = %v", events[0].Params)
	}
	if events[1].Params["duration"] != 0.3 {
		t.Errorf("swipe duration = %v, want 0.3", events[1].Params["duration"])
	}
	if len(engine.Results()) != 5 {
		t.Errorf("got %d results, want 5", len(engine.Results()))
	}
}

func TestRun_ActionResult(t *testing.T) {
	engine, _, policy := newTestEngine(t)
	if err := policy.SetInteractionIdleTimeout(0); err != nil {
		t.Fatal(err)
	}
	if err := policy.SetAnimationCoolOffTimeout(0); err != nil {
		t.Fatal(err)
	}

	if err := engine.Run(context.Background(), `output.r = device.tap(1, 1);`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r, ok := engine.Output()["r"].(map[string]interface{})
	if !ok {
		t.Fatalf("output.r = %#v", engine.Output()["r"])
	}
	if r["warnings"] != 0 {
		t.Errorf("warnings = %v, want 0", r["warnings"])
	}
}

func TestRun_Apps(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	err := engine.Run(context.Background(), `
		var apps = device.apps();
		output.count = apps.length;
		output.second = apps[1].pid;
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := engine.Output()
	if out["count"] != int64(2) {
		t.Errorf("count = %v (%T), want 2", out["count"], out["count"])
	}
	if out["second"] != int64(4211) {
		t.Errorf("second = %v (%T), want 4211", out["second"], out["second"])
	}
}

func TestRun_Target(t *testing.T) {
	engine, d, _ := newTestEngine(t)

	err := engine.Run(context.Background(), `
		device.target(4211);
		device.tap(5, 5);
		device.target();
		device.tap(6, 6);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	events := d.Events()
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	if events[0].PID != 4211 || events[0].Element != "ax-4211" {
		t.Errorf("first event target = %d/%s", events[0].PID, events[0].Element)
	}
	if events[1].PID != 0 || events[1].Element != "device" {
		t.Errorf("second event target = %d/%s", events[1].PID, events[1].Element)
	}
}

func TestRun_ElementAt(t *testing.T) {
	engine, d, _ := newTestEngine(t)

	err := engine.Run(context.Background(), `
		var el = device.elementAt(120, 480);
		output.pid = el.pid;
		device.tap(120, 480);
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Output()["pid"] != int64(4211) {
		t.Errorf("pid = %v (%T), want 4211", engine.Output()["pid"], engine.Output()["pid"])
	}
	events := d.Events()
	if len(events) != 1 || events[0].PID != 4211 || events[0].Element != "ax-4211@120,480" {
		t.Errorf("events = %+v, want one tap on the element under the point", events)
	}
}

func TestRun_TargetUnknownProcess(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	err := engine.Run(context.Background(), `device.target(999);`)
	if err == nil || !strings.Contains(err.Error(), "element not found") {
		t.Errorf("error = %v, want element not found", err)
	}
}

func TestRun_IdlePolicy(t *testing.T) {
	engine, _, policy := newTestEngine(t)

	err := engine.Run(context.Background(), `
		output.before = idle.timeout;
		idle.timeout = 0.25;
		idle.coolOff = 0;
		output.after = idle.timeout;
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := policy.InteractionIdleTimeout(); got != 0.25 {
		t.Errorf("policy idle timeout = %v, want 0.25", got)
	}
	if got := policy.AnimationCoolOffTimeout(); got != 0 {
		t.Errorf("policy cool-off = %v, want 0", got)
	}
	out := engine.Output()
	if out["before"] != int64(10) && out["before"] != 10.0 {
		t.Errorf("before = %v (%T), want 10", out["before"], out["before"])
	}
	if out["after"] != 0.25 {
		t.Errorf("after = %v, want 0.25", out["after"])
	}
}

func TestRun_NegativeTimeoutThrows(t *testing.T) {
	engine, _, policy := newTestEngine(t)

	err := engine.Run(context.Background(), `idle.timeout = -1;`)
	if err == nil || !strings.Contains(err.Error(), "interactionIdleTimeout") {
		t.Errorf("error = %v, want invalid configuration", err)
	}
	if policy.InteractionIdleTimeout() != idle.DefaultInteractionIdleTimeout {
		t.Error("a rejected value must not be stored")
	}
}

func TestRun_InvalidActionThrows(t *testing.T) {
	engine, d, _ := newTestEngine(t)

	err := engine.Run(context.Background(), `device.rotate("sideways");`)
	if err == nil || !strings.Contains(err.Error(), "unknown orientation") {
		t.Errorf("error = %v, want unknown orientation", err)
	}
	if len(d.Events()) != 0 {
		t.Error("invalid actions must not reach the daemon")
	}
}

func TestRun_ScriptCanCatch(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	err := engine.Run(context.Background(), `
		try { device.tap(); } catch (e) { output.caught = true; }
	`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if engine.Output()["caught"] != true {
		t.Error("expected the script to catch the invalid tap")
	}
}

func TestRun_SyntaxError(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	if err := engine.Run(context.Background(), `device.tap(`); err == nil {
		t.Error("expected syntax error")
	}
}

func TestRun_CancelInterruptsLoop(t *testing.T) {
	engine, _, _ := newTestEngine(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := engine.Run(ctx, `while (true) {}`)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("error = %v, want deadline exceeded", err)
	}

	if err := engine.Run(context.Background(), `output.ok = true;`); err != nil {
		t.Errorf("engine unusable after interrupt: %v", err)
	}
}

func TestConsole(t *testing.T) {
	var buf bytes.Buffer
	engine, _, _ := newTestEngine(t, WithOutput(&buf))

	if err := engine.Run(context.Background(), `console.log("hi", 2); console.warn("careful");`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := buf.String(); got != "hi 2\nWARN: careful\n" {
		t.Errorf("console output = %q", got)
	}
}

func TestSetVariables(t *testing.T) {
	engine, _, _ := newTestEngine(t)
	engine.SetVariables(map[string]interface{}{"USER": "ada", "COUNT": 3})

	got, err := engine.Eval(context.Background(), "USER + ':' + COUNT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "ada:3" {
		t.Errorf("Eval() = %v, want ada:3", got)
	}
}
