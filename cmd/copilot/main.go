// Package main provides the copilot CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/audit"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/config"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
)

var (
	version     = "0.1.0"
	pretty      = true
	jsonOut     bool
	docPath     string
	auditLogger = audit.NewLogger()
	journal     *os.File
)

func main() {
	defer logging.Recover("copilot")

	rootCmd := &cobra.Command{
		Use:   "copilot",
		Short: "Add HTTP API tools to agent documents",
		Long: `copilot edits an agent document: it compiles tool definitions typed by an
operator or proposed by an LLM into API tool, variable and link records,
snapshots the file and appends them.

Usage:
  copilot tool add              Define a tool by hand (interactive on a terminal)
  copilot tool generate "..."   Ask the LLM for a tool
  copilot tool import file.json Import generator JSON from a file or stdin
  copilot snapshot list         Show the snapshots of the document

The document is chosen with --doc or COPILOT_DOCUMENT.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			cfg := config.Env()
			logging.Configure(logging.Options{
				Level:  logging.Level(cfg.LogLevel),
				Output: os.Stderr,
				JSON:   true,
			})
			if docPath == "" {
				docPath = cfg.Document
			}
			auditLogger = openAudit()
			if err := config.LoadError(); err != nil {
				logging.New("config").Warn("config_load_failed", nil, err)
				auditLogger.LogWarning(auditLogger.Start(audit.CategorySystem, "config"), err.Error())
			}
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if journal != nil {
				journal.Close()
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&docPath, "doc", "f", "", "Agent document (default $COPILOT_DOCUMENT)")
	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "Pretty print output")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output as JSON")

	rootCmd.AddGroup(
		&cobra.Group{ID: "document", Title: "Document:"},
		&cobra.Group{ID: "history", Title: "History:"},
	)

	tool := toolCmd()
	tool.GroupID = "document"
	rootCmd.AddCommand(tool)

	agent := agentCmd()
	agent.GroupID = "document"
	rootCmd.AddCommand(agent)

	snap := snapshotCmd()
	snap.GroupID = "history"
	rootCmd.AddCommand(snap)

	aud := auditCmd()
	aud.GroupID = "history"
	rootCmd.AddCommand(aud)

	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show copilot version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("copilot version %s\n", version)
		},
	}
}
