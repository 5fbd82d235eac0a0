package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/audit"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/config"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/render"
)

func auditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Show the operation journal",
		Long: `Every add, generate, import, restore and prune is journaled as one JSON
line in ~/.copilot/audit.log with timing, status and error kind.`,
	}

	cmd.AddCommand(
		auditListCmd(),
		auditErrorsCmd(),
		auditStatsCmd(),
	)
	return cmd
}

func readJournal(limit int) []audit.AuditEvent {
	events, err := audit.ReadJournal(config.GetPaths().AuditLog, limit)
	if err != nil {
		fatalError(err)
	}
	return events
}

func auditListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent events",
		Run: func(cmd *cobra.Command, args []string) {
			events := readJournal(limit)
			if jsonOut {
				printJSON(events)
				return
			}
			render.NewAudit(os.Stdout).Events(events)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of events (0 for all)")
	return cmd
}

func auditErrorsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "errors",
		Short: "Show recent failures",
		Run: func(cmd *cobra.Command, args []string) {
			failed := audit.Errors(readJournal(0))
			if limit > 0 && len(failed) > limit {
				failed = failed[len(failed)-limit:]
			}
			if jsonOut {
				printJSON(failed)
				return
			}
			render.NewAudit(os.Stdout).Errors(failed)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Number of errors (0 for all)")
	return cmd
}

func auditStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Summarize the journal",
		Run: func(cmd *cobra.Command, args []string) {
			stats := audit.Summarize(readJournal(0))
			if jsonOut {
				printJSON(stats)
				return
			}
			render.NewAudit(os.Stdout).Stats(stats)
		},
	}
}
