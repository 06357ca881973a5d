package cli

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/javagui-runner/pkg/agent/mock"
	"github.com/devicelab-dev/javagui-runner/pkg/agent/rpc"
	"github.com/devicelab-dev/javagui-runner/pkg/config"
	"github.com/devicelab-dev/javagui-runner/pkg/core"
	"github.com/devicelab-dev/javagui-runner/pkg/logger"
	"github.com/devicelab-dev/javagui-runner/pkg/session"
)

// env is everything a command needs to talk to the application.
type env struct {
	cfg     *config.Config
	session *session.Session
	close   func()
}

// loadConfig resolves the config file, .env and JAVAGUI_* variables, then
// applies command-line overrides.
func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Resolve(c.String("config"), ".")
	if err != nil {
		return nil, err
	}

	if c.IsSet("host") {
		cfg.Agent.Host = c.String("host")
	}
	if c.IsSet("port") {
		cfg.Agent.Port = c.Int("port")
	}
	if c.IsSet("timeout") {
		cfg.Timeout = c.Duration("timeout")
	}
	if c.IsSet("poll-interval") {
		cfg.PollInterval = c.Duration("poll-interval")
	}
	if c.IsSet("log-file") {
		cfg.Log.File = c.String("log-file")
	}
	if c.Bool("verbose") {
		cfg.Log.Level = "debug"
	}

	if problems := cfg.Validate(); len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration:\n  %s", strings.Join(problems, "\n  "))
	}
	return cfg, nil
}

// setup loads config, starts logging and opens a session against either a
// snapshot file or the live agent. Callers must call env.close.
func setup(c *cli.Context) (*env, error) {
	cfg, err := loadConfig(c)
	if err != nil {
		return nil, err
	}

	if err := logger.Init(logger.Options{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.LogFile(),
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   cfg.Log.Compress,
		Console:    c.App.ErrWriter,
	}); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	agent, closeAgent, err := openAgent(c, cfg)
	if err != nil {
		logger.Close()
		return nil, err
	}

	s := session.New(agent, session.OptionsFromConfig(cfg))
	logger.Debug("session %s started (agent %s)", s.ID(), describeAgent(c, cfg))

	return &env{
		cfg:     cfg,
		session: s,
		close: func() {
			closeAgent()
			logger.Close()
		},
	}, nil
}

func openAgent(c *cli.Context, cfg *config.Config) (core.Agent, func(), error) {
	if name := c.String("snapshot"); name != "" {
		path, err := config.FindSnapshot(name)
		if err != nil {
			return nil, nil, err
		}
		snap, err := mock.LoadSnapshot(path)
		if err != nil {
			return nil, nil, err
		}
		return mock.New(mock.Config{}, snap), func() {}, nil
	}

	client := rpc.New(rpc.Config{
		Host:              cfg.Agent.Host,
		Port:              cfg.Agent.Port,
		ConnectTimeout:    cfg.Agent.ConnectTimeout,
		RequestTimeout:    cfg.Agent.RequestTimeout,
		RetryCount:        cfg.Agent.RetryCount,
		ReconnectDelay:    cfg.Agent.ReconnectDelay,
		RequestsPerSecond: cfg.Agent.RequestsPerSecond,
	})
	return client, func() { _ = client.Close() }, nil
}

func describeAgent(c *cli.Context, cfg *config.Config) string {
	if path := c.String("snapshot"); path != "" {
		return "snapshot " + path
	}
	return fmt.Sprintf("%s:%d", cfg.Agent.Host, cfg.Agent.Port)
}
