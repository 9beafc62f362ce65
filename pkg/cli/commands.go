package cli

import (
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/devicelab-dev/maestro-ios-core/pkg/device"
	"github.com/devicelab-dev/maestro-ios-core/pkg/idle"
	"github.com/devicelab-dev/maestro-ios-core/pkg/interaction"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

// targetFlags select the element an action is delivered to.
var targetFlags = []cli.Flag{
	&cli.IntFlag{
		Name:  "pid",
		Usage: "Target the topmost element of this process instead of the device",
	},
}

var appsCommand = &cli.Command{
	Name:   "apps",
	Usage:  "List the applications tracked by the accessibility subsystem",
	Action: runApps,
}

var devicesCommand = &cli.Command{
	Name:   "devices",
	Usage:  "List attached iOS devices and their runner addresses",
	Action: runDevices,
}

var timeoutsCommand = &cli.Command{
	Name:   "timeouts",
	Usage:  "Print the effective idle and cool-off timeouts",
	Action: runTimeouts,
}

var tapCommand = &cli.Command{
	Name:      "tap",
	Usage:     "Tap a screen coordinate",
	ArgsUsage: "X Y",
	Flags: append([]cli.Flag{
		&cli.Float64Flag{
			Name:  "hold",
			Usage: "Seconds to hold; turns the tap into a long press",
		},
	}, targetFlags...),
	Action: runTap,
}

var swipeCommand = &cli.Command{
	Name:      "swipe",
	Usage:     "Swipe between two screen coordinates",
	ArgsUsage: "X1 Y1 X2 Y2",
	Flags: append([]cli.Flag{
		&cli.Float64Flag{
			Name:  "duration",
			Usage: "Swipe duration in seconds (default: daemon default)",
		},
	}, targetFlags...),
	Action: runSwipe,
}

var typeCommand = &cli.Command{
	Name:      "type",
	Usage:     "Type text into the focused element",
	ArgsUsage: "TEXT",
	Flags:     targetFlags,
	Action:    runType,
}

var rotateCommand = &cli.Command{
	Name:      "rotate",
	Usage:     "Rotate the device",
	ArgsUsage: "portrait|portraitUpsideDown|landscapeLeft|landscapeRight",
	Action:    runRotate,
}

var pressCommand = &cli.Command{
	Name:      "press",
	Usage:     "Press a hardware button",
	ArgsUsage: "home|volumeUp|volumeDown|lock",
	Action:    runPress,
}

type appView struct {
	PID        int32       `yaml:"pid"`
	Element    string      `yaml:"element"`
	Foreground bool        `yaml:"foreground,omitempty"`
	Payload    interface{} `yaml:"payload,omitempty"`
}

func runApps(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	apps, err := rt.proxy.ActiveApplications(c.Context)
	if err != nil {
		return err
	}
	fg, fgErr := rt.proxy.ForegroundApplication(c.Context)

	views := make([]appView, 0, len(apps))
	for _, app := range apps {
		views = append(views, appView{
			PID:        app.ProcessIdentifier(),
			Element:    app.Ref().Token,
			Foreground: fgErr == nil && app.Equal(fg),
			Payload:    app.Payload(),
		})
	}
	return writeYAML(c.App.Writer, views)
}

// listDevices is replaced in tests; the real lookup needs usbmuxd.
var listDevices = device.List

type deviceView struct {
	UDID      string `yaml:"udid"`
	RunnerURL string `yaml:"runnerUrl"`
}

func runDevices(c *cli.Context) error {
	udids, err := listDevices()
	if err != nil {
		return err
	}
	views := make([]deviceView, 0, len(udids))
	for _, udid := range udids {
		views = append(views, deviceView{UDID: udid, RunnerURL: device.RunnerURL(udid)})
	}
	return writeYAML(c.App.Writer, views)
}

func runTimeouts(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	policy := rt.orchestrator.Policy()
	return writeYAML(c.App.Writer, map[string]interface{}{
		"interactionIdleTimeout":  policy.InteractionIdleTimeout(),
		"animationCoolOffTimeout": policy.AnimationCoolOffTimeout(),
		"pollInterval":            rt.cfg.Idle.PollInterval.String(),
	})
}

func runTap(c *cli.Context) error {
	p, err := floatArgs(c, "X", "Y")
	if err != nil {
		return err
	}
	hold, err := secondsFlag(c, "hold")
	if err != nil {
		return err
	}
	if hold > 0 {
		return runAction(c, interaction.LongPress(p[0], p[1], hold))
	}
	return runAction(c, interaction.Tap(p[0], p[1]))
}

func runSwipe(c *cli.Context) error {
	p, err := floatArgs(c, "X1", "Y1", "X2", "Y2")
	if err != nil {
		return err
	}
	from := interaction.Point{X: p[0], Y: p[1]}
	to := interaction.Point{X: p[2], Y: p[3]}
	duration, err := secondsFlag(c, "duration")
	if err != nil {
		return err
	}
	return runAction(c, interaction.Swipe(from, to, duration))
}

func runType(c *cli.Context) error {
	if c.NArg() == 0 {
		return fmt.Errorf("TEXT is required")
	}
	return runAction(c, interaction.TypeText(strings.Join(c.Args().Slice(), " ")))
}

func runRotate(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one ORIENTATION")
	}
	return runAction(c, interaction.Rotate(c.Args().First()))
}

func runPress(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one BUTTON")
	}
	return runAction(c, interaction.PressButton(c.Args().First()))
}

func runAction(c *cli.Context, action interaction.Action) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}

	target := rt.proxy.DeviceElement()
	if c.IsSet("pid") {
		pid := c.Int("pid")
		if pid < 0 || pid > math.MaxInt32 {
			return fmt.Errorf("--pid %d is out of range", pid)
		}
		target, err = rt.proxy.ElementForProcess(c.Context, int32(pid))
		if err != nil {
			return err
		}
	}

	res, err := rt.orchestrator.PerformGatedAction(c.Context, target, action, nil)
	if res != nil {
		if werr := writeYAML(c.App.Writer, newResultView(res)); werr != nil && err == nil {
			err = werr
		}
	}
	return err
}

type phaseView struct {
	Phase    string `yaml:"phase"`
	Outcome  string `yaml:"outcome,omitempty"`
	Polls    int    `yaml:"polls,omitempty"`
	Duration string `yaml:"duration"`
}

type resultView struct {
	Action   string                 `yaml:"action"`
	Element  string                 `yaml:"element"`
	Params   map[string]interface{} `yaml:"params,omitempty"`
	Phases   []phaseView            `yaml:"phases"`
	Warnings []string               `yaml:"warnings,omitempty"`
	Duration string                 `yaml:"duration"`
}

func newResultView(res *interaction.Result) resultView {
	v := resultView{
		Action:   res.Action.Describe(),
		Element:  res.Element.String(),
		Params:   res.Params,
		Duration: res.Duration.String(),
	}
	for _, pr := range res.Phases {
		pv := phaseView{Phase: pr.Phase.String(), Duration: pr.Duration.String()}
		if pr.Phase.IsWait() {
			pv.Outcome = pr.Outcome.String()
			pv.Polls = pr.Polls
		}
		v.Phases = append(v.Phases, pv)
	}
	for _, w := range res.Warnings {
		v.Warnings = append(v.Warnings, w.Error())
	}
	return v
}

func floatArgs(c *cli.Context, names ...string) ([]float64, error) {
	if c.NArg() != len(names) {
		return nil, fmt.Errorf("expected %d arguments (%s), got %d", len(names), strings.Join(names, " "), c.NArg())
	}
	out := make([]float64, len(names))
	for i, name := range names {
		v, err := strconv.ParseFloat(c.Args().Get(i), 64)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a number", name, c.Args().Get(i))
		}
		out[i] = v
	}
	return out, nil
}

// secondsFlag reads a float seconds flag as a duration.
func secondsFlag(c *cli.Context, name string) (time.Duration, error) {
	v := c.Float64(name)
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) || v > idle.MaxTimeout {
		return 0, fmt.Errorf("--%s: %v is not a valid number of seconds", name, v)
	}
	return time.Duration(v * float64(time.Second)), nil
}

func writeYAML(w io.Writer, v interface{}) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}
