package main

import (
	"strings"
	"sync"

	"demix/internal/config"
	"demix/internal/jobs"
	"demix/internal/storage"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
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
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

// withStore opens the shared queue database for one command invocation. The
// store uses WAL mode with a busy timeout, so command-line access stays safe
// while the daemon is running.
func (c *commandContext) withStore(fn func(*config.Config, *jobs.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := jobs.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

func (c *commandContext) withGateway(fn func(*config.Config, *jobs.Store, storage.Gateway) error) error {
	return c.withStore(func(cfg *config.Config, store *jobs.Store) error {
		gateway, err := storage.New(cfg)
		if err != nil {
			return err
		}
		return fn(cfg, store, gateway)
	})
}
