package main

import (
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"tracuu/internal/config"
	"tracuu/internal/logging"
	"tracuu/internal/operator"
	"tracuu/internal/pipeline"
)

type commandContext struct {
	configFlag   *string
	logLevelFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger
	loggerErr  error
}

func newCommandContext(configFlag, logLevelFlag *string) *commandContext {
	return &commandContext{
		configFlag:   configFlag,
		logLevelFlag: logLevelFlag,
	}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, _, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if c.logLevelFlag != nil && strings.TrimSpace(*c.logLevelFlag) != "" {
			cfg.Logging.Level = strings.TrimSpace(*c.logLevelFlag)
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*slog.Logger, error) {
	c.loggerOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.loggerErr = err
			return
		}
		c.logger, c.loggerErr = logging.NewFromConfig(cfg)
	})
	return c.logger, c.loggerErr
}

// newGate returns the operator gate for interactive pauses: a console
// prompt on a terminal, a denying gate when stdin cannot carry an
// acknowledgment (pipes, cron).
func (c *commandContext) newGate(logger *slog.Logger, cmd *cobra.Command) operator.Gate {
	if isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd()) {
		return operator.NewConsolePrompt(os.Stdin, cmd.OutOrStdout(), logger)
	}
	return operator.Deny()
}

// buildRunner assembles the production pipeline for a command. The
// returned cleanup persists session cookies and closes the cache.
func (c *commandContext) buildRunner(cmd *cobra.Command, opts ...pipeline.Option) (*pipeline.Runner, func(), error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, nil, err
	}
	logger, err := c.ensureLogger()
	if err != nil {
		return nil, nil, err
	}
	runner, err := pipeline.Build(cfg, logger, c.newGate(logger, cmd), opts...)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		if err := runner.Close(); err != nil {
			logger.Warn("runner close", logging.Error(err))
		}
	}
	return runner, cleanup, nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}
