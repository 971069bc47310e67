package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ccsup/ccsup/internal/config"
)

func newStatusCmd() *cobra.Command {
	var idleFlag bool
	var projectFlag string

	cmd := &cobra.Command{
		Use:   "status [session-id]",
		Short: "Show session status",
		Long: `Without flags, queries a single session by ID and prints JSON.

With --idle, checks whether all known sessions are idle and prints
"idle" or "active", for scripting (e.g. benchmark runners polling for
completion). Use --project to check only sessions under a project path.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if idleFlag {
				return runStatusIdle(cmd, projectFlag)
			}
			if len(args) == 0 {
				return fmt.Errorf("session id required (or use --idle to check all sessions)")
			}
			return runStatusSingle(cmd, args[0])
		},
	}

	cmd.Flags().BoolVar(&idleFlag, "idle", false, "Check if all sessions are idle (prints 'idle' or 'active')")
	cmd.Flags().StringVar(&projectFlag, "project", "", "Filter by project path (only with --idle)")

	return cmd
}

type statusOutput struct {
	config.SessionMetadata
	State string `json:"state"`
}

func runStatusSingle(cmd *cobra.Command, sessionID string) error {
	dir := config.SessionDir(sessionID)
	meta, err := config.ReadSessionMetadata(dir)
	if err != nil {
		return fmt.Errorf("no such session %q: %w", sessionID, err)
	}

	out := statusOutput{SessionMetadata: *meta, State: lastKnownState(sessionID)}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}

func runStatusIdle(cmd *cobra.Command, projectFilter string) error {
	sessions, err := config.ListSessionMetadata()
	if err != nil {
		return fmt.Errorf("list sessions: %w", err)
	}

	for _, meta := range sessions {
		if projectFilter != "" && meta.ProjectPath != projectFilter {
			continue
		}
		if !isIdleState(lastKnownState(meta.SessionID)) {
			fmt.Fprintln(cmd.OutOrStdout(), "active")
			return nil
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "idle")
	return nil
}
