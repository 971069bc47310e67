package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ccsup/ccsup/internal/config"
)

// NewRootCmd creates the root cobra command with all subcommands. This
// is the CLI wrapper around the Session Supervisor core: argument
// parsing, terminal attach, and session listing live here, outside
// the core's scope.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "ccsup",
		Short: "Session supervisor for interactive AI coding agents",
		Long: `ccsup spawns and supervises interactive AI coding agents (Claude Code,
Gemini, Codex, Cursor, Copilot, Cline) in pseudo-terminals, one per Git
worktree, classifies their liveness state from terminal output, fires
hooks on state transitions, and can auto-approve safe prompts through
a policy oracle.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			refreshTerminalColorHintsCache()

			switch cmd.Name() {
			case "version", "help", "completion":
				return nil
			}
			return os.MkdirAll(config.ConfigDir(), 0o755)
		},
	}

	rootCmd.AddCommand(
		newRunCmd(),
		newLsCmd(),
		newStatusCmd(),
		newHookCmd(),
		newVersionCmd(),
	)

	return rootCmd
}
