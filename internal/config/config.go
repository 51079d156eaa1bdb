// Package config handles loading fileagent.toml configuration files.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/amonks/fileagent/internal/paths"
	"github.com/joho/godotenv"
)

// ProjectFile is the name of the per-project config file.
const ProjectFile = "fileagent.toml"

// EnvURL overrides the configured agent URL.
const EnvURL = "FILEAGENT_URL"

// DefaultTimeout bounds each agent call when agent.timeout is unset.
const DefaultTimeout = 2 * time.Minute

// Config represents the fileagent.toml configuration file.
type Config struct {
	Agent    Agent    `toml:"agent"`
	Download Download `toml:"download"`
	Log      Log      `toml:"log"`
}

// Agent contains agent service configuration.
type Agent struct {
	// URL is the base address of the agent service.
	URL string `toml:"url"`
	// Timeout is a Go duration string. "0" disables the bound.
	Timeout string `toml:"timeout"`
}

// Download contains download configuration.
type Download struct {
	// Dir receives downloaded archives. Defaults to the working directory.
	Dir string `toml:"dir"`
}

// Log contains logging configuration.
type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

// Load loads configuration from the project directory and the global config
// file. Returns an empty config if no config files exist.
func Load(projectDir string) (*Config, error) {
	globalPath, err := paths.DefaultConfigPath()
	if err != nil {
		return nil, err
	}

	globalCfg, _, err := loadConfigFile(globalPath)
	if err != nil {
		return nil, err
	}

	projectCfg, projectMeta, err := loadConfigFile(filepath.Join(projectDir, ProjectFile))
	if err != nil {
		return nil, err
	}

	return mergeConfigs(globalCfg, projectCfg, projectMeta), nil
}

// LoadEnv reads dir/.env into the process environment. Variables that are
// already set keep their values. A missing file is not an error.
func LoadEnv(dir string) error {
	path := filepath.Join(dir, ".env")
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// AgentTimeout parses agent.timeout, defaulting to DefaultTimeout.
func (c *Config) AgentTimeout() (time.Duration, error) {
	value := strings.TrimSpace(c.Agent.Timeout)
	if value == "" {
		return DefaultTimeout, nil
	}
	if value == "0" {
		return 0, nil
	}
	timeout, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid agent.timeout %q: %w", value, err)
	}
	if timeout < 0 {
		return 0, fmt.Errorf("invalid agent.timeout %q: must not be negative", value)
	}
	return timeout, nil
}

// DownloadDir returns download.dir, or fallback when unset. A leading "~/"
// expands to the home directory.
func (c *Config) DownloadDir(fallback string) string {
	dir := strings.TrimSpace(c.Download.Dir)
	if dir == "" {
		return fallback
	}
	if rest, ok := strings.CutPrefix(dir, "~/"); ok {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, rest)
		}
	}
	return dir
}

func loadConfigFile(path string) (*Config, toml.MetaData, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return &Config{}, toml.MetaData{}, nil
	}
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("read config file %s: %w", path, err)
	}

	var cfg Config
	meta, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: %w", path, err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return nil, toml.MetaData{}, fmt.Errorf("parse config file %s: unknown key %s", path, undecoded[0])
	}

	return &cfg, meta, nil
}

func mergeConfigs(globalCfg, projectCfg *Config, projectMeta toml.MetaData) *Config {
	if globalCfg == nil {
		globalCfg = &Config{}
	}
	if projectCfg == nil {
		projectCfg = &Config{}
	}

	merged := Config{}
	merged.Agent.URL = mergeString(projectMeta.IsDefined("agent", "url"), projectCfg.Agent.URL, globalCfg.Agent.URL)
	merged.Agent.Timeout = mergeString(projectMeta.IsDefined("agent", "timeout"), projectCfg.Agent.Timeout, globalCfg.Agent.Timeout)
	merged.Download.Dir = mergeString(projectMeta.IsDefined("download", "dir"), projectCfg.Download.Dir, globalCfg.Download.Dir)
	merged.Log.Level = mergeString(projectMeta.IsDefined("log", "level"), projectCfg.Log.Level, globalCfg.Log.Level)
	merged.Log.File = mergeString(projectMeta.IsDefined("log", "file"), projectCfg.Log.File, globalCfg.Log.File)

	return &merged
}

func mergeString(projectDefined bool, projectValue, globalValue string) string {
	value := globalValue
	if projectDefined {
		value = projectValue
	}
	return strings.TrimSpace(value)
}
