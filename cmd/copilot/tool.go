package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/audit"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/config"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/document"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/editor"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/generator"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/prompt"
)

func toolCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tool",
		Short: "Add and inspect API tools",
		Long: `Add HTTP API tools to an agent and inspect the tools of the document.

Placeholders written as {name} in the URL, query values and body become
tool variables. Headers are kept literal.

Examples:
  copilot tool add --name "Get user" --url "https://api.example.com/users/{userId}"
  copilot tool add --method post --url https://api.example.com/orders --body '{"item": "{item}"}'
  copilot tool generate "look up the weather for a city"
  copilot tool import tool.json --dry-run
  copilot tool list --match "Get*"`,
	}

	cmd.AddCommand(
		toolAddCmd(),
		toolGenerateCmd(),
		toolImportCmd(),
		toolListCmd(),
		toolShowCmd(),
	)
	return cmd
}

// resultView is the --json shape of an add, generate or import.
type resultView struct {
	Tool      *domain.APITool          `json:"tool"`
	Variables []domain.Variable        `json:"variables"`
	Link      *domain.AgentAPIToolLink `json:"link,omitempty"`
	Snapshot  string                   `json:"snapshot,omitempty"`
	Dropped   []string                 `json:"dropped,omitempty"`
	Synthetic []string                 `json:"synthetic,omitempty"`
	DryRun    bool                     `json:"dryRun"`
}

func printResult(res *editor.Result) {
	if jsonOut {
		view := resultView{
			Tool:      res.Build.Tool,
			Variables: res.Build.Variables,
			Link:      res.Link,
			Dropped:   res.Build.Dropped,
			Synthetic: res.Build.Synthetic,
			DryRun:    res.DryRun,
		}
		if res.Snapshot != nil {
			view.Snapshot = res.Snapshot.Path
		}
		printJSON(view)
		return
	}

	fmt.Print(renderer().Added(res.Build, res.Agent.Name, res.DryRun))
	if res.Snapshot != nil {
		fmt.Printf("Snapshot: %s\n", res.Snapshot.Path)
	}
}

func toolAddCmd() *cobra.Command {
	var (
		in     compiler.OperatorInput
		vars   []string
		agent  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Define a tool from operator input",
		Long: `Compile a tool from flags. Missing name or URL are asked for, field by field
on a terminal and line by line from piped stdin.

Query parameters are "key=value,key=value"; headers are "key:value,key:value".
A body is only kept for post, put and patch.`,
		Run: func(cmd *cobra.Command, args []string) {
			ed := newEditor()

			descriptions, err := parseVars(vars)
			if err != nil {
				fatalError(err)
			}
			in.VariableDescriptions = descriptions

			if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.URL) == "" {
				c := prompt.NewCollector(prompt.New(os.Stdin, os.Stderr, interactive()), os.Stderr)
				if in, err = c.Collect(in); err != nil {
					exitOnError(auditLogger.Start(audit.CategoryTool, "add"), err)
				}
			}

			res, err := ed.AddTool(in, editor.Options{Agent: agent, DryRun: dryRun})
			if err != nil {
				fatalError(err)
			}
			printResult(res)
		},
	}

	cmd.Flags().StringVar(&in.Name, "name", "", "Tool name")
	cmd.Flags().StringVar(&in.Description, "description", "", "Tool description")
	cmd.Flags().StringVar(&in.URL, "url", "", "URL template, e.g. https://api.example.com/users/{userId}")
	cmd.Flags().StringVarP(&in.Method, "method", "X", "", "HTTP method: get, post, put, patch, delete (default get)")
	cmd.Flags().StringVar(&in.Query, "query", "", "Query parameters key=value,key=value")
	cmd.Flags().StringVar(&in.Headers, "headers", "", "Headers key:value,key:value")
	cmd.Flags().StringVar(&in.Body, "body", "", "Body template (post, put, patch)")
	cmd.Flags().StringVar(&in.ContentType, "content-type", "", "Body content type (default json)")
	cmd.Flags().StringArrayVar(&vars, "var", nil, "Variable description name=description (repeatable)")
	cmd.Flags().StringVar(&agent, "agent", "", "Owning agent id (default: the only agent)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check and show the tool without saving")
	return cmd
}

// parseVars splits repeated name=description flags.
func parseVars(vars []string) (map[string]string, error) {
	out := make(map[string]string, len(vars))
	for _, v := range vars {
		name, desc, ok := strings.Cut(v, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid --var %q (want name=description)", v)
		}
		out[name] = strings.TrimSpace(desc)
	}
	return out, nil
}

func toolGenerateCmd() *cobra.Command {
	var (
		agent  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "generate <request>",
		Short: "Ask the LLM for a tool",
		Long: `Describe the tool in plain words; the configured OpenAI-compatible model
proposes a definition that is normalized into the same records as
'tool add'. Set OPENAI_API_KEY, and optionally OPENAI_BASE_URL and
COPILOT_MODEL.`,
		Args: cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			cfg := config.Env()
			ed := newEditor()
			client := generator.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.Model, cfg.GeneratorTimeout)
			request := strings.Join(args, " ")
			opts := editor.Options{Agent: agent, DryRun: dryRun}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			var res *editor.Result
			run := func(ctx context.Context) error {
				var err error
				res, err = ed.GenerateTool(ctx, client, request, opts)
				return err
			}

			var err error
			if interactive() && !jsonOut {
				err = prompt.Spin(ctx, os.Stdin, os.Stderr, "Generating tool with "+client.Model(), run)
			} else {
				err = run(ctx)
			}
			if err != nil {
				fatalError(err)
			}
			printResult(res)
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "Owning agent id (default: the only agent)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check and show the tool without saving")
	return cmd
}

func toolImportCmd() *cobra.Command {
	var (
		agent  string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import <file|->",
		Short: "Import generator JSON from a file or stdin",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			ed := newEditor()

			var (
				raw []byte
				err error
			)
			if args[0] == "-" {
				raw, err = io.ReadAll(os.Stdin)
			} else {
				raw, err = os.ReadFile(args[0])
			}
			if err != nil {
				exitOnError(auditLogger.Start(audit.CategoryTool, "import"), fmt.Errorf("reading tool definition: %w", err))
			}

			res, err := ed.ImportTool(raw, editor.Options{Agent: agent, DryRun: dryRun})
			if err != nil {
				fatalError(err)
			}
			printResult(res)
		},
	}

	cmd.Flags().StringVar(&agent, "agent", "", "Owning agent id (default: the only agent)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Check and show the tool without saving")
	return cmd
}

func toolListCmd() *cobra.Command {
	var (
		match string
		agent string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the tools of the document",
		Run: func(cmd *cobra.Command, args []string) {
			doc := loadDoc()
			tools, err := filterTools(doc, match, agent)
			if err != nil {
				fatalError(err)
			}
			vars, err := doc.Variables()
			if err != nil {
				fatalError(err)
			}

			if jsonOut {
				printJSON(tools)
				return
			}
			fmt.Print(renderer().Tools(tools, vars))
		},
	}

	cmd.Flags().StringVar(&match, "match", "", "Only tools whose name matches this glob")
	cmd.Flags().StringVar(&agent, "agent", "", "Only tools linked to this agent")
	return cmd
}

// filterTools keeps tools whose name matches the glob and, when agentID is
// set, that are linked to that agent.
func filterTools(doc *document.Document, match, agentID string) ([]domain.APITool, error) {
	if match != "" && !doublestar.ValidatePattern(match) {
		return nil, fmt.Errorf("invalid --match pattern %q", match)
	}
	tools, err := doc.Tools()
	if err != nil {
		return nil, err
	}

	var linked map[string]bool
	if agentID != "" {
		links, err := doc.Links()
		if err != nil {
			return nil, err
		}
		linked = make(map[string]bool)
		for _, l := range links {
			if l.AgentID == agentID {
				linked[l.APIToolID] = true
			}
		}
	}

	out := make([]domain.APITool, 0, len(tools))
	for _, t := range tools {
		if match != "" {
			if ok, _ := doublestar.Match(match, t.Name); !ok {
				continue
			}
		}
		if linked != nil && !linked[t.ID] {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func toolShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <name|id>",
		Short: "Show one tool with its variables",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			doc := loadDoc()
			tools, err := doc.Tools()
			if err != nil {
				fatalError(err)
			}

			var found *domain.APITool
			for i := range tools {
				if tools[i].ID == args[0] || tools[i].Name == args[0] {
					found = &tools[i]
					break
				}
			}
			if found == nil {
				fatalError(fmt.Errorf("tool not found: %s", args[0]))
			}

			vars, err := doc.ToolVariables(found.ID)
			if err != nil {
				fatalError(err)
			}
			if jsonOut {
				printJSON(resultView{Tool: found, Variables: vars})
				return
			}
			fmt.Print(renderer().Tool(found, vars))
		},
	}
}
