package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func snapshotCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"snap"},
		Short:   "List, restore and prune document snapshots",
		Long: `Every saved mutation first archives the document under
~/.copilot/snapshots/<document-name>/. Restoring also archives the file it
replaces, so a restore can itself be undone.

Examples:
  copilot snapshot list
  copilot snapshot restore 01HXZ3N4V5           # by id
  copilot snapshot restore 20240501-1200         # by file name prefix
  copilot snapshot prune --keep 5`,
	}

	cmd.AddCommand(
		snapshotListCmd(),
		snapshotRestoreCmd(),
		snapshotPruneCmd(),
	)
	return cmd
}

func snapshotListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		Run: func(cmd *cobra.Command, args []string) {
			list, err := newEditor().Snapshots()
			if err != nil {
				fatalError(err)
			}
			if jsonOut {
				printJSON(list)
				return
			}
			fmt.Print(renderer().Snapshots(list))
		},
	}
}

func snapshotRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <id|file>",
		Short: "Replace the document with a snapshot",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			meta, safety, err := newEditor().Restore(args[0])
			if err != nil {
				fatalError(err)
			}
			if jsonOut {
				out := map[string]interface{}{"restored": meta}
				if safety != nil {
					out["previous"] = safety
				}
				printJSON(out)
				return
			}
			fmt.Print(renderer().Restored(meta, safety))
		},
	}
}

func snapshotPruneCmd() *cobra.Command {
	var keep int

	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete all but the newest snapshots",
		Run: func(cmd *cobra.Command, args []string) {
			removed, err := newEditor().Prune(keep)
			if err != nil {
				fatalError(err)
			}
			if jsonOut {
				printJSON(removed)
				return
			}
			fmt.Print(renderer().Pruned(removed))
		},
	}

	cmd.Flags().IntVar(&keep, "keep", -1, "Snapshots to keep (default from config, 0 keeps all)")
	return cmd
}
