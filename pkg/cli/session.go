package cli

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/maestro-ios-core/pkg/accessibility"
	"github.com/devicelab-dev/maestro-ios-core/pkg/config"
	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon"
	"github.com/devicelab-dev/maestro-ios-core/pkg/daemon/fake"
	"github.com/devicelab-dev/maestro-ios-core/pkg/device"
	"github.com/devicelab-dev/maestro-ios-core/pkg/idle"
	"github.com/devicelab-dev/maestro-ios-core/pkg/interaction"
	"github.com/devicelab-dev/maestro-ios-core/pkg/logger"
)

const (
	defaultURLHint = config.DefaultDaemonURL
	metadataKey    = "runtime"
)

// runtime is everything a command needs, built once per invocation.
type runtime struct {
	cfg          *config.Config
	handle       *daemon.Handle
	proxy        *accessibility.Proxy
	orchestrator *interaction.Orchestrator
	fake         *fake.Daemon // --mock only
}

func setup(c *cli.Context) error {
	cfg, err := loadConfig(c.String("config"))
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("udid") {
		cfg.Daemon.UDID = c.String("udid")
	}
	if c.IsSet("log-file") {
		cfg.LogFile = c.String("log-file")
	}

	if err := initLogging(cfg.LogFile, c.Bool("verbose")); err != nil {
		return err
	}

	policy := idle.Shared()
	if err := policy.Apply(cfg.Idle); err != nil {
		return err
	}
	if c.IsSet("idle-timeout") {
		if err := policy.SetInteractionIdleTimeout(c.Float64("idle-timeout")); err != nil {
			return err
		}
	}
	if c.IsSet("cool-off-timeout") {
		if err := policy.SetAnimationCoolOffTimeout(c.Float64("cool-off-timeout")); err != nil {
			return err
		}
	}
	logger.Info("idle policy: %s", policy)

	rt := &runtime{cfg: cfg}
	var dial daemon.DialFunc
	if c.Bool("mock") {
		rt.fake = fake.New(fake.Config{
			Apps:     fake.DefaultApps(),
			Defaults: map[string]interface{}{"pressDuration": 0.05},
		})
		dial = rt.fake.Dial
		logger.Info("using in-memory daemon")
	} else {
		url, err := daemonURL(c, cfg)
		if err != nil {
			return err
		}
		cfg.Daemon.URL = url
		dial = daemon.HTTPDialer(url, daemon.WithRequestTimeout(cfg.Daemon.RequestTimeout))
		logger.Info("daemon at %s", url)
	}

	rt.handle = daemon.NewHandle(dial, daemon.WithConnectTimeout(cfg.Daemon.ConnectTimeout))
	daemon.SetShared(rt.handle)
	accessibility.ResetSharedClient()
	rt.proxy = accessibility.SharedClient()
	rt.orchestrator = interaction.New(policy, rt.proxy, interaction.NewDaemonSynthesizer(rt.handle),
		interaction.WithPollInterval(cfg.Idle.PollInterval))

	c.App.Metadata[metadataKey] = rt
	return nil
}

func teardown(c *cli.Context) error {
	delete(c.App.Metadata, metadataKey)
	accessibility.ResetSharedClient()
	daemon.ResetShared()
	idle.ResetShared()
	logrus.SetOutput(os.Stderr)
	logger.Close()
	return nil
}

func runtimeFrom(c *cli.Context) (*runtime, error) {
	rt, ok := c.App.Metadata[metadataKey].(*runtime)
	if !ok {
		return nil, fmt.Errorf("session not initialized")
	}
	return rt, nil
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.Load(path)
	}
	return config.LoadFromDir(".")
}

func initLogging(path string, verbose bool) error {
	logger.SetVerbose(verbose)
	if path == "-" {
		logger.SetOutput(os.Stderr)
	} else {
		if err := config.EnsureLogDir(path); err != nil {
			return fmt.Errorf("create log directory: %w", err)
		}
		if err := logger.Init(path); err != nil {
			return err
		}
	}

	// go-ios logs through the logrus standard logger.
	logrus.SetOutput(logger.GetWriter())
	return nil
}

// daemonURL picks the runner address: --daemon-url, then a URL set in the
// config file, then the per-device port of the attached device.
func daemonURL(c *cli.Context, cfg *config.Config) (string, error) {
	if c.IsSet("daemon-url") {
		return c.String("daemon-url"), nil
	}
	if cfg.Daemon.URL != config.DefaultDaemonURL || cfg.Daemon.UDID == "" {
		return cfg.Daemon.URL, nil
	}

	dev, err := device.Resolve(cfg.Daemon.UDID)
	if err != nil {
		return "", err
	}
	return dev.RunnerURL(), nil
}
