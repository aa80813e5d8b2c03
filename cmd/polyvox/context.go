package main

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"polyvox/internal/config"
	"polyvox/internal/daemonctl"
	"polyvox/internal/queue"
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

func (c *commandContext) configPath() string {
	if c.configFlag == nil {
		return ""
	}
	return strings.TrimSpace(*c.configFlag)
}

// apiClient returns a client for the configured daemon address. Whether the
// daemon actually answers is up to the caller's Ping.
func (c *commandContext) apiClient() (*daemonctl.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	return daemonctl.NewClient(cfg.Paths.APIBind), nil
}

// withStore opens the queue database directly, for commands that work
// without a running daemon.
func (c *commandContext) withStore(fn func(*queue.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := queue.Open(cfg)
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(store)
}

// daemonRunning probes the daemon API once.
func (c *commandContext) daemonRunning(ctx context.Context) bool {
	client, err := c.apiClient()
	if err != nil {
		return false
	}
	return client.Ping(ctx) == nil
}

// projectDir resolves a project argument to its directory. A bare project id
// resolves under the projects root; anything with a path separator is taken
// as a directory.
func (c *commandContext) projectDir(arg string) (string, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return "", err
	}
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", fmt.Errorf("project is required")
	}
	if strings.ContainsRune(arg, filepath.Separator) || arg == "." {
		expanded, err := config.ExpandPath(arg)
		if err != nil {
			return "", err
		}
		return filepath.Abs(expanded)
	}
	return filepath.Join(cfg.Paths.ProjectsDir, arg), nil
}
