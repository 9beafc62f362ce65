package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/maestro-ios-core/pkg/script"
)

var runCommand = &cli.Command{
	Name:      "run",
	Usage:     "Run a JavaScript automation script",
	ArgsUsage: "SCRIPT",
	Description: `Runs a script with these globals:
  device.tap(x, y), device.longPress(x, y, ms), device.swipe(x1, y1, x2, y2, ms),
  device.type(text), device.rotate(orientation), device.press(button),
  device.apps(), device.target(pid), idle.timeout, idle.coolOff, output, console.

Examples:
  maestro-ios-core run login.js
  maestro-ios-core run login.js -e USER=test -e PASS=secret`,
	Flags: []cli.Flag{
		&cli.StringSliceFlag{
			Name:    "env",
			Aliases: []string{"e"},
			Usage:   "Script variables (KEY=VALUE)",
		},
	},
	Action: runScript,
}

type scriptView struct {
	Actions []resultView           `yaml:"actions"`
	Output  map[string]interface{} `yaml:"output,omitempty"`
}

func runScript(c *cli.Context) error {
	rt, err := runtimeFrom(c)
	if err != nil {
		return err
	}
	if c.NArg() != 1 {
		return fmt.Errorf("expected exactly one SCRIPT")
	}

	src, err := os.ReadFile(c.Args().First()) //#nosec G304 -- user-provided script
	if err != nil {
		return fmt.Errorf("failed to read script: %w", err)
	}

	engine := script.New(rt.orchestrator, rt.proxy, script.WithOutput(c.App.ErrWriter))
	for k, v := range parseEnvVars(c.StringSlice("env")) {
		engine.SetVariable(k, v)
	}

	runErr := engine.Run(c.Context, string(src))

	view := scriptView{Output: engine.Output()}
	for _, res := range engine.Results() {
		view.Actions = append(view.Actions, newResultView(res))
	}
	if err := writeYAML(c.App.Writer, view); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}

func parseEnvVars(envs []string) map[string]string {
	result := make(map[string]string)
	for _, e := range envs {
		parts := strings.SplitN(e, "=", 2)
		if len(parts) == 2 {
			result[parts[0]] = parts[1]
		}
	}
	return result
}
