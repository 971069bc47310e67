// Package config loads operator configuration: the auto-approval
// policy, the hook table, and the persistence window, plus resolution
// of the on-disk directories the supervisor uses for session metadata
// and activity logs.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ccsup/ccsup/internal/detector"
)

// Config is the root of ~/.ccsup/config.yaml.
type Config struct {
	AutoApproval      AutoApprovalConfig `yaml:"auto_approval"`
	PersistenceWindow time.Duration      `yaml:"persistence_window"`
	Hooks             []HookConfig       `yaml:"hooks"`
	Presets           []PresetOverride   `yaml:"presets"`
}

// AutoApprovalConfig is the global auto-approval policy, read-only at
// session creation time per spec §6.
type AutoApprovalConfig struct {
	Enabled bool          `yaml:"enabled"`
	Timeout time.Duration `yaml:"timeout"`
	// OracleCommand overrides the default `claude --model haiku ...`
	// invocation with an operator-supplied shell command, split with
	// shlex at call time.
	OracleCommand string `yaml:"oracle_command"`
}

// HookConfig is the YAML shape of a status-transition or periodic hook
// definition (spec §4.8, supplemented periodic scope in §4.8a).
type HookConfig struct {
	// From/To select a status-transition hook; both empty (or To ==
	// "*") means the wildcard "any transition" hook. Mutually
	// exclusive with Schedule.
	From string `yaml:"from,omitempty"`
	To   string `yaml:"to,omitempty"`
	// WorktreeCreated selects the post-worktree-creation scope.
	WorktreeCreated bool `yaml:"worktree_created,omitempty"`
	// Schedule, when set, is an RFC 5545 RRULE string selecting the
	// supplemented periodic scope instead of a state-transition scope.
	Schedule string `yaml:"schedule,omitempty"`
	Command  string `yaml:"command"`
	Enabled  bool   `yaml:"enabled"`
}

// PresetOverride lets an operator add or override a Command Preset
// from YAML, merged on top of the built-in table in presets.go.
type PresetOverride struct {
	ID             string          `yaml:"id"`
	DisplayName    string          `yaml:"display_name"`
	Command        string          `yaml:"command"`
	PrimaryArgs    []string        `yaml:"primary_args"`
	FallbackArgs   []string        `yaml:"fallback_args"`
	Detector       detector.Strategy `yaml:"detector"`
	Devcontainer   bool            `yaml:"devcontainer"`
	ExecPrefix     []string        `yaml:"exec_prefix,omitempty"`
}

// ConfigDir returns the supervisor's configuration directory
// (~/.ccsup/ by default, overridable via CCSUP_DIR for tests and
// alternate profiles).
func ConfigDir() string {
	if dir := os.Getenv("CCSUP_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".ccsup")
	}
	return filepath.Join(home, ".ccsup")
}

// Load reads the config from ~/.ccsup/config.yaml.
// If the file does not exist, it returns a zero-value Config with no error.
func Load() (*Config, error) {
	return LoadFrom(filepath.Join(ConfigDir(), "config.yaml"))
}

// LoadFrom reads the config from the given path.
// If the file does not exist, it returns a zero-value Config with no error.
func LoadFrom(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Config{}, nil
		}
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	for i, h := range c.Hooks {
		if h.Command == "" {
			return fmt.Errorf("hooks[%d]: command is required", i)
		}
		if h.Schedule != "" && (h.From != "" || h.To != "" || h.WorktreeCreated) {
			return fmt.Errorf("hooks[%d]: schedule is mutually exclusive with from/to/worktree_created", i)
		}
	}
	return nil
}
