package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"

	"github.com/amonks/fileagent/agent"
	"github.com/amonks/fileagent/internal/config"
	"github.com/amonks/fileagent/internal/logging"
	"github.com/amonks/fileagent/internal/paths"
	"github.com/amonks/fileagent/workflow"
	"github.com/spf13/cobra"
)

var agentAddr string
var agentLogLevel string

func addAgentFlags(cmd *cobra.Command) {
	setFlagAliases(cmd.Flags(), agentFlagAliases)
	cmd.Flags().StringVar(&agentAddr, "addr", "", "Agent service URL, host:port, or port (default $"+config.EnvURL+", agent.url, "+agent.DefaultURL+")")
	cmd.Flags().StringVar(&agentLogLevel, "log-level", "", "Log level: debug, info, warn, error (default log.level)")
}

type envOptions struct {
	// terminal receives text logs. Nil while the TUI owns the screen.
	terminal io.Writer
	// defaultLogFile is used when log.file is unset. Nil means no file.
	defaultLogFile func() (string, error)
}

// agentEnv is the configured controller and its supporting state.
type agentEnv struct {
	workDir     string
	url         string
	downloadDir string
	logger      *slog.Logger
	controller  *workflow.Controller
	closeLog    func() error
}

func openAgentEnv(ctx context.Context, opts envOptions) (*agentEnv, error) {
	workDir, err := paths.WorkingDir()
	if err != nil {
		return nil, err
	}
	if err := config.LoadEnv(workDir); err != nil {
		return nil, err
	}
	cfg, err := config.Load(workDir)
	if err != nil {
		return nil, err
	}

	url, err := agent.ResolveURL(agentAddr, os.Getenv(config.EnvURL), cfg.Agent.URL)
	if err != nil {
		return nil, exitError{code: exitUsage, err: err}
	}
	timeout, err := cfg.AgentTimeout()
	if err != nil {
		return nil, err
	}

	level := agentLogLevel
	if level == "" {
		level = cfg.Log.Level
	}
	defaultLogFile := opts.defaultLogFile
	if defaultLogFile == nil {
		defaultLogFile = func() (string, error) { return "", nil }
	}
	logFile, err := paths.ResolveWithDefault(cfg.Log.File, defaultLogFile)
	if err != nil {
		return nil, err
	}
	logger, closeLog, err := logging.New(logging.Options{Level: level, Terminal: opts.terminal, File: logFile})
	if err != nil {
		return nil, exitError{code: exitUsage, err: err}
	}

	client := agent.NewClientWithOptions(agent.ClientOptions{URL: url})
	controller, err := workflow.New(client, workflow.Options{Context: ctx, Timeout: timeout, Logger: logger})
	if err != nil {
		return nil, errors.Join(err, closeLog())
	}
	logger.Debug("agent configured", "url", url, "timeout", timeout.String())

	return &agentEnv{
		workDir:     workDir,
		url:         url,
		downloadDir: cfg.DownloadDir(workDir),
		logger:      logger,
		controller:  controller,
		closeLog:    closeLog,
	}, nil
}

// close waits for in-flight calls and releases the log file.
func (env *agentEnv) close() error {
	env.controller.Wait()
	return env.closeLog()
}
