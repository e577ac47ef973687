package main

import (
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/obby/inbox-sorter/config"
	"github.com/obby/inbox-sorter/internal/logging"
)

type commandContext struct {
	configFlag   string
	sourceFlag   string
	destFlag     string
	settleFlag   time.Duration
	logLevelFlag string

	configOnce sync.Once
	config     config.Config
	configErr  error
}

// ensureConfig loads the file and env, then lets explicitly set flags win.
func (c *commandContext) ensureConfig(cmd *cobra.Command) (config.Config, error) {
	c.configOnce.Do(func() {
		cfg, err := config.Load(strings.TrimSpace(c.configFlag))
		if err != nil {
			c.configErr = err
			return
		}

		flags := cmd.Flags()
		if flags.Changed("source") {
			cfg.SourceDir = c.sourceFlag
		}
		if flags.Changed("dest") {
			cfg.DestDir = c.destFlag
		}
		if flags.Changed("settle") {
			cfg.SettleMs = int(c.settleFlag / time.Millisecond)
		}
		if flags.Changed("log-level") {
			cfg.LogLevel = c.logLevelFlag
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// resolved returns the raw config alongside its validated form.
func (c *commandContext) resolved(cmd *cobra.Command) (config.Config, config.WatchConfig, error) {
	cfg, err := c.ensureConfig(cmd)
	if err != nil {
		return cfg, config.WatchConfig{}, err
	}
	wc, err := cfg.Resolve()
	return cfg, wc, err
}

func newLogger(cfg config.Config) (*zap.Logger, error) {
	return logging.New(logging.Config{
		Level:      cfg.LogLevel,
		Format:     cfg.LogFormat,
		OutputPath: cfg.LogOutput,
	})
}
