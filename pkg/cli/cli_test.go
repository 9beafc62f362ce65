package cli

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/devicelab-dev/maestro-ios-core/pkg/core"
	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon"
	"github.com/devicelab-dev/maestro-ios-core/pkg/idle"
)

// run executes the CLI with a temp log file and returns its output.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	logPath := filepath.Join(t.TempDir(), "logs", "test.log")
	full := append([]string{"maestro-ios-core", "--log-file", logPath}, args...)
	err := NewApp(&out).Run(full)
	return out.String(), err
}

func TestApps_Mock(t *testing.T) {
	out, err := run(t, "--mock", "apps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"pid: 58", "pid: 4211", "bundleId: com.example.app", "foreground: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Count(out, "foreground: true") != 1 {
		t.Errorf("expected exactly one foreground app:\n%s", out)
	}
}

func TestTimeouts_Defaults(t *testing.T) {
	out, err := run(t, "--mock", "timeouts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"interactionIdleTimeout: 10", "animationCoolOffTimeout: 2", "pollInterval: 100ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTimeouts_Flags(t *testing.T) {
	out, err := run(t, "--mock", "--idle-timeout", "0.5", "--cool-off-timeout", "0", "timeouts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "interactionIdleTimeout: 0.5") || !strings.Contains(out, "animationCoolOffTimeout: 0") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if got := idle.Shared().InteractionIdleTimeout(); got != idle.DefaultInteractionIdleTimeout {
		t.Errorf("shared policy not reset after the run: %v", got)
	}
}

func TestTimeouts_NegativeRejected(t *testing.T) {
	_, err := run(t, "--mock", "--idle-timeout=-1", "timeouts")
	if !errors.Is(err, core.ErrInvalidConfiguration) {
		t.Errorf("error = %v, want InvalidConfiguration", err)
	}
}

func TestTimeouts_ConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := "idle:\n  interactionTimeout: 0\n  animationCoolOffTimeout: 1.5\n  pollInterval: 250ms\n"
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--mock", "--config", path, "timeouts")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"interactionIdleTimeout: 0", "animationCoolOffTimeout: 1.5", "pollInterval: 250ms"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestConfigFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("idle:\n  interactionTimeout: -3\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	if _, err := run(t, "--mock", "--config", path, "timeouts"); err == nil {
		t.Error("expected error for a negative timeout in the config file")
	}
}

func TestTap_Mock(t *testing.T) {
	out, err := run(t, "--mock", "tap", "10", "20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{
		"action: tap (10, 20)",
		"element: native(device)",
		"phase: idle-wait",
		"outcome: settled",
		"phase: cool-off-wait",
		"pressDuration: 0.05",
		"x: 10",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "warnings:") {
		t.Errorf("unexpected warnings:\n%s", out)
	}
}

func TestDevices(t *testing.T) {
	orig := listDevices
	defer func() { listDevices = orig }()
	listDevices = func() ([]string, error) {
		return []string{"00008101-0000000000000010"}, nil
	}

	out, err := run(t, "devices")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"udid: 00008101-0000000000000010", "runnerUrl: http://127.0.0.1:22103"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDevices_ListFails(t *testing.T) {
	orig := listDevices
	defer func() { listDevices = orig }()
	listDevices = func() ([]string, error) {
		return nil, errors.New("usbmuxd not running")
	}

	if _, err := run(t, "devices"); err == nil || !strings.Contains(err.Error(), "usbmuxd not running") {
		t.Errorf("error = %v, want the lookup failure", err)
	}
}

func TestErrorMessage(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{core.ErrElementNotFound, "Error [assertion]: element not found"},
		{errors.New("boom"), "Error: boom"},
	}
	for _, tt := range tests {
		if got := errorMessage(tt.err); got != tt.want {
			t.Errorf("errorMessage(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestTap_LongPress(t *testing.T) {
	out, err := run(t, "--mock", "tap", "--hold", "1.5", "10", "20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "action: longPress (10, 20)") || !strings.Contains(out, "duration: 1.5") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTap_ZeroTimeoutsSkipWaits(t *testing.T) {
	out, err := run(t, "--mock", "--idle-timeout", "0", "--cool-off-timeout", "0", "tap", "1", "2")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(out, "outcome: skipped") != 2 {
		t.Errorf("expected both waits skipped:\n%s", out)
	}
}

func TestTap_ProcessTarget(t *testing.T) {
	out, err := run(t, "--mock", "tap", "--pid", "4211", "10", "20")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "element: native(pid=4211, ref=ax-4211)") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTap_UnknownProcess(t *testing.T) {
	_, err := run(t, "--mock", "tap", "--pid", "999", "10", "20")
	if !errors.Is(err, core.ErrElementNotFound) {
		t.Errorf("error = %v, want ElementNotFound", err)
	}
}

func TestTap_BadArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want string
	}{
		{"missing", []string{"tap", "10"}, "expected 2 arguments"},
		{"not a number", []string{"tap", "ten", "20"}, "X: \"ten\" is not a number"},
		{"swipe missing", []string{"swipe", "1", "2", "3"}, "expected 4 arguments"},
		{"negative hold", []string{"tap", "--hold", "-1", "1", "2"}, "--hold: -1 is not a valid number of seconds"},
		{"pid overflow", []string{"tap", "--pid", "4294967296", "1", "2"}, "--pid 4294967296 is out of range"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, append([]string{"--mock"}, tt.args...)...)
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %v, want %q", err, tt.want)
			}
		})
	}
}

func TestSwipe_Mock(t *testing.T) {
	out, err := run(t, "--mock", "swipe", "--duration", "0.5", "200", "700", "200", "200")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "action: swipe (200, 700) -> (200, 200)") || !strings.Contains(out, "toY: 200") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestType_JoinsArgs(t *testing.T) {
	out, err := run(t, "--mock", "type", "hello", "world")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "text: hello world") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestRotate(t *testing.T) {
	if _, err := run(t, "--mock", "rotate", "landscapeLeft"); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	_, err := run(t, "--mock", "rotate", "sideways")
	if !errors.Is(err, core.ErrInvalidAction) {
		t.Errorf("error = %v, want InvalidAction", err)
	}
}

func TestPress(t *testing.T) {
	out, err := run(t, "--mock", "press", "home")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out, "button: home") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestTeardownResetsSharedHandle(t *testing.T) {
	if _, err := run(t, "--mock", "apps"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer daemon.ResetShared()
	if daemon.Shared().State() != daemon.StateUnconnected {
		t.Error("expected a fresh shared handle after the run")
	}
}

func writeValue(w http.ResponseWriter, value interface{}) {
	_ = json.NewEncoder(w).Encode(map[string]interface{}{"value": value})
}

// newRunnerServer is a minimal XCTest runner.
func newRunnerServer(t *testing.T, synthesized *int) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/status":
			writeValue(w, map[string]interface{}{"ready": true, "sessionId": "xc-1"})
		case "/activeApps":
			writeValue(w, []map[string]interface{}{
				{"pid": 58, "bundleId": "com.apple.springboard", "element": "ax-58"},
				{"pid": 700, "bundleId": "com.example.http", "element": "ax-700"},
			})
		case "/element/payload":
			writeValue(w, map[string]interface{}{"label": "From HTTP"})
		case "/isIdle":
			writeValue(w, map[string]interface{}{"idle": true})
		case "/defaultParameters":
			writeValue(w, map[string]interface{}{"typingFrequency": 30})
		case "/synthesize":
			*synthesized++
			writeValue(w, nil)
		default:
			w.WriteHeader(http.StatusNotFound)
			writeValue(w, map[string]interface{}{"error": "unknown command"})
		}
	}))
	t.Cleanup(server.Close)
	return server
}

func TestApps_HTTPRunner(t *testing.T) {
	synthesized := 0
	server := newRunnerServer(t, &synthesized)

	out, err := run(t, "--daemon-url", server.URL, "apps")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"pid: 700", "label: From HTTP", "foreground: true"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestType_HTTPRunner(t *testing.T) {
	synthesized := 0
	server := newRunnerServer(t, &synthesized)

	out, err := run(t, "--daemon-url", server.URL, "type", "abc")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if synthesized != 1 {
		t.Errorf("synthesize called %d times, want 1", synthesized)
	}
	if !strings.Contains(out, "typingFrequency: 30") {
		t.Errorf("daemon defaults missing from params:\n%s", out)
	}
}

func TestParseEnvVars(t *testing.T) {
	result := parseEnvVars([]string{"USER=test", "EQ=a=b", "EMPTY=", "INVALID"})

	if result["USER"] != "test" {
		t.Errorf("expected USER=test, got %s", result["USER"])
	}
	if result["EQ"] != "a=b" {
		t.Errorf("expected EQ=a=b, got %s", result["EQ"])
	}
	if v, ok := result["EMPTY"]; !ok || v != "" {
		t.Errorf("expected EMPTY='', got %q (present=%v)", v, ok)
	}
	if _, ok := result["INVALID"]; ok {
		t.Error("entries without = should be skipped")
	}
}

func TestRun_Script(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flow.js")
	src := `
		device.tap(10, 20);
		device.type(USER);
		output.user = USER;
	`
	if err := os.WriteFile(path, []byte(src), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--mock", "run", "-e", "USER=ada", path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"action: tap (10, 20)", "text: ada", "user: ada"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRun_ScriptError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.js")
	if err := os.WriteFile(path, []byte(`device.tap(1, 1); device.rotate("sideways");`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--mock", "run", path)
	if err == nil || !strings.Contains(err.Error(), "unknown orientation") {
		t.Errorf("error = %v, want unknown orientation", err)
	}
	if !strings.Contains(out, "action: tap (1, 1)") {
		t.Errorf("actions before the failure should still be reported:\n%s", out)
	}
}

func TestRun_ScriptMissing(t *testing.T) {
	if _, err := run(t, "--mock", "run", filepath.Join(t.TempDir(), "nope.js")); err == nil {
		t.Error("expected error for a missing script")
	}
}
