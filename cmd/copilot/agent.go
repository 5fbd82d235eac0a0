package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func agentCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "agent",
		Short: "Inspect the agents of the document",
	}
	cmd.AddCommand(agentListCmd())
	return cmd
}

type agentView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Tools       int    `json:"tools"`
}

func agentListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List agents with their linked tool count",
		Run: func(cmd *cobra.Command, args []string) {
			doc := loadDoc()
			agents, err := doc.Agents()
			if err != nil {
				fatalError(err)
			}
			links, err := doc.Links()
			if err != nil {
				fatalError(err)
			}

			counts := make(map[string]int, len(agents))
			for _, l := range links {
				counts[l.AgentID]++
			}

			if jsonOut {
				views := make([]agentView, 0, len(agents))
				for _, a := range agents {
					views = append(views, agentView{ID: a.ID, Name: a.Name, Description: a.Description, Tools: counts[a.ID]})
				}
				printJSON(views)
				return
			}
			fmt.Print(renderer().Agents(agents, counts))
		},
	}
}
