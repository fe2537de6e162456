package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/firefly-engineering/adminmux/internal/audit"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log <user>",
	Short: "Display the session audit trail for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runAuditLog,
}

var auditLogJSONL bool

func init() {
	auditLogCmd.Flags().BoolVar(&auditLogJSONL, "jsonl", false, "Output events as JSON lines")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	user := args[0]
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	auditLogger := audit.NewLogger(cfg.StateDir)
	events, err := auditLogger.Events(user)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for user %s", user)
		return nil
	}

	out := cmd.OutOrStdout()
	for _, e := range events {
		if auditLogJSONL {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		subject := e.Remote
		if e.Backend != "" {
			subject = e.Backend
		}
		if e.Details != "" {
			fmt.Fprintf(out, "[%s] %-14s %s (%s)\n", ts, e.Type, subject, e.Details)
		} else {
			fmt.Fprintf(out, "[%s] %-14s %s\n", ts, e.Type, subject)
		}
	}

	return nil
}
