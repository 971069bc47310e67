package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccsup/ccsup/internal/config"
)

func newLsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls",
		Short: "List known sessions and their last recorded state",
		RunE: func(cmd *cobra.Command, args []string) error {
			sessions, err := config.ListSessionMetadata()
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(sessions) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No sessions.")
				return nil
			}

			out := cmd.OutOrStdout()
			for _, meta := range sessions {
				state := lastKnownState(meta.SessionID)
				branch := meta.Branch
				if branch == "" {
					branch = "-"
				}
				fmt.Fprintf(out, "%s  %-8s  %-6s  %-20s  %s\n", meta.SessionID, state, meta.PresetID, branch, meta.WorktreePath)
			}
			return nil
		},
	}
}
