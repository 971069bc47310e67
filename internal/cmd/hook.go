package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ccsup/ccsup/internal/activitylog"
	"github.com/ccsup/ccsup/internal/autoapprove"
	"github.com/ccsup/ccsup/internal/config"
)

// hookPayload is the JSON envelope an agent CLI's own hook mechanism
// (e.g. Claude Code's settings.json hooks) writes to stdin.
type hookPayload struct {
	HookEventName string          `json:"hook_event_name"`
	ToolName      string          `json:"tool_name"`
	ToolInput     json.RawMessage `json:"tool_input"`
	SessionID     string          `json:"session_id"`
	CWD           string          `json:"cwd"`
}

type hookResponse struct {
	HookSpecificOutput hookDecision `json:"hookSpecificOutput"`
}

type hookDecision struct {
	HookEventName string          `json:"hookEventName"`
	Decision      decisionPayload `json:"decision"`
}

type decisionPayload struct {
	Behavior string `json:"behavior"`
	Message  string `json:"message,omitempty"`
}

func newHookCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "hook",
		Short: "Handle an agent CLI hook event (internal)",
		Long: `Reads a hook JSON payload from stdin (as emitted by an agent CLI's own
hook mechanism, e.g. Claude Code's PermissionRequest hook), logs it,
and for PermissionRequest events runs it through the same policy
oracle used by auto-approval. Designed to be registered directly as
the hook command in the agent's own settings.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := io.ReadAll(cmd.InOrStdin())
			if err != nil {
				return fmt.Errorf("read stdin: %w", err)
			}

			var payload hookPayload
			if err := json.Unmarshal(data, &payload); err != nil {
				return fmt.Errorf("parse hook payload: %w", err)
			}
			if payload.HookEventName == "" {
				return fmt.Errorf("hook_event_name not found in payload")
			}

			log := hookLoggerFor(payload.SessionID)
			log.HookEvent(payload.HookEventName, payload.ToolName)

			if payload.HookEventName != "PermissionRequest" {
				fmt.Fprintln(cmd.OutOrStdout(), "{}")
				return nil
			}

			return handlePermissionRequest(cmd, log, payload)
		},
	}
	return cmd
}

func hookLoggerFor(sessionID string) *activitylog.Logger {
	dir := config.FindSessionDirByID(sessionID)
	if dir == "" {
		return activitylog.Nop()
	}
	return activitylog.New(true, filepath.Join(dir, "activity.log"), "hook", sessionID)
}

// handlePermissionRequest runs a PermissionRequest hook payload
// through the policy oracle (spec §6) and returns a decision in the
// shape the calling agent CLI expects. needsPermission == true falls
// through to the agent's own permission dialog by returning "{}",
// mirroring the "ask_user" outcome of §4.4 step 5; needsPermission ==
// false allows the tool call outright.
func handlePermissionRequest(cmd *cobra.Command, log *activitylog.Logger, payload hookPayload) error {
	switch payload.ToolName {
	case "AskUserQuestion", "ExitPlanMode":
		fmt.Fprintln(cmd.OutOrStdout(), "{}")
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	oracleCmd, err := parseOracleCommand(cfg.AutoApproval.OracleCommand)
	if err != nil {
		return fmt.Errorf("parse oracle_command: %w", err)
	}

	snapshot := fmt.Sprintf("tool: %s\ncwd: %s\ninput: %s", payload.ToolName, payload.CWD, string(payload.ToolInput))

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	start := time.Now()
	_, resultCh := autoapprove.Run(ctx, oracleCmd, snapshot, cfg.AutoApproval.Timeout)
	result := <-resultCh
	log.OracleCall(result.Verdict.NeedsPermission, result.Verdict.Reason, time.Since(start).Milliseconds(), result.Discarded)

	if result.Verdict.NeedsPermission {
		log.PermissionDecision(payload.ToolName, "ask_user", result.Verdict.Reason)
		fmt.Fprintln(cmd.OutOrStdout(), "{}")
		return nil
	}

	log.PermissionDecision(payload.ToolName, "allow", result.Verdict.Reason)
	resp := hookResponse{HookSpecificOutput: hookDecision{
		HookEventName: "PermissionRequest",
		Decision:      decisionPayload{Behavior: "allow"},
	}}
	out, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}
