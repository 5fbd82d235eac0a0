package render

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/snapshot"
	strutil "github.com/voiceflow-community/voiceflow-agent-copilot/internal/strings"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/template"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#5A56E0")).
			Padding(0, 1)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#888888"))
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
	width  int
}

// New creates a new renderer. Plain mode prints unstyled text.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty, width: 72}
}

// Template renders markup with each reference shown as its {name}. A
// reference missing from names is shown by id.
func Template(m domain.Markup, names map[string]string) string {
	var sb strings.Builder
	for _, seg := range m {
		if !seg.IsVariable() {
			sb.WriteString(seg.Text)
			continue
		}
		name, ok := names[seg.VariableID]
		if !ok {
			name = seg.VariableID
		}
		sb.WriteString(template.Placeholder(name))
	}
	return sb.String()
}

func variableNames(vars []domain.Variable) map[string]string {
	names := make(map[string]string, len(vars))
	for _, v := range vars {
		names[v.ID] = v.Name
	}
	return names
}

func (r *Renderer) method(m domain.HTTPMethod) string {
	s := strings.ToUpper(string(m))
	if !r.pretty {
		return s
	}
	switch m {
	case domain.MethodGet:
		return color.GreenString(s)
	case domain.MethodPost:
		return color.YellowString(s)
	case domain.MethodPut:
		return color.BlueString(s)
	case domain.MethodPatch:
		return color.MagentaString(s)
	case domain.MethodDelete:
		return color.RedString(s)
	}
	return s
}

func (r *Renderer) label(s string) string {
	if r.pretty {
		return labelStyle.Render(s)
	}
	return s
}

// Tool formats one tool with its variables.
func (r *Renderer) Tool(tool *domain.APITool, vars []domain.Variable) string {
	names := variableNames(vars)
	var lines []string

	title := tool.Name
	if r.pretty {
		title = titleStyle.Render(title)
	}
	lines = append(lines, title)
	if tool.Description != "" {
		lines = append(lines, strutil.WordWrap(tool.Description, r.width))
	}
	lines = append(lines, fmt.Sprintf("%s %s", r.method(tool.HTTPMethod), Template(tool.URL, names)))

	if len(tool.QueryParameters) > 0 {
		lines = append(lines, r.label("Query:"))
		for _, q := range tool.QueryParameters {
			lines = append(lines, fmt.Sprintf("  %s = %s", q.Key, Template(q.Value, names)))
		}
	}
	if len(tool.Headers) > 0 {
		lines = append(lines, r.label("Headers:"))
		for _, h := range tool.Headers {
			lines = append(lines, fmt.Sprintf("  %s: %s", h.Key, Template(h.Value, names)))
		}
	}
	if tool.Body != nil {
		lines = append(lines, r.label(fmt.Sprintf("Body (%s):", tool.Body.ContentType)))
		lines = append(lines, strutil.Indent(Template(tool.Body.Content, names), "  "))
	}
	if len(vars) > 0 {
		lines = append(lines, r.label("Variables:"))
		for _, v := range vars {
			line := "  " + template.Placeholder(v.Name)
			if v.Description != "" {
				line += "  " + strutil.TruncateRunes(strutil.SingleLine(v.Description), r.width-len(line)-2)
			}
			lines = append(lines, line)
		}
	}

	body := strings.Join(lines, "\n")
	if r.pretty {
		return boxStyle.Render(body) + "\n"
	}
	return body + "\n"
}

// Added reports a built tool, applied or previewed.
func (r *Renderer) Added(build *compiler.Build, agent string, dryRun bool) string {
	var sb strings.Builder

	verb := "Added"
	if dryRun {
		verb = "Would add"
	}
	msg := fmt.Sprintf("%s tool %q to agent %s", verb, build.Tool.Name, agent)
	if r.pretty {
		icon := color.GreenString("✓")
		if dryRun {
			icon = color.CyanString("~")
		}
		fmt.Fprintf(&sb, "%s %s\n", icon, msg)
	} else {
		sb.WriteString(msg + "\n")
	}

	sb.WriteString(r.Tool(build.Tool, build.Variables))

	if len(build.Dropped) > 0 {
		sb.WriteString(r.note("Dropped unreferenced variables: " + strings.Join(build.Dropped, ", ")))
	}
	if len(build.Synthetic) > 0 {
		sb.WriteString(r.note("Named unresolved references: " + strings.Join(build.Synthetic, ", ")))
	}
	return sb.String()
}

func (r *Renderer) note(msg string) string {
	if r.pretty {
		return color.YellowString("! ") + msg + "\n"
	}
	return "note: " + msg + "\n"
}

// Tools formats a tool listing.
func (r *Renderer) Tools(tools []domain.APITool, vars []domain.Variable) string {
	if len(tools) == 0 {
		return "No tools found\n"
	}
	names := variableNames(vars)

	var sb strings.Builder
	if r.pretty {
		sb.WriteString(color.CyanString("Tools (%d)\n", len(tools)))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	nameWidth := 0
	for _, t := range tools {
		if n := len(t.Name); n > nameWidth {
			nameWidth = n
		}
	}
	for _, t := range tools {
		method := fmt.Sprintf("%-6s", strings.ToUpper(string(t.HTTPMethod)))
		if r.pretty {
			method = r.method(t.HTTPMethod) + strings.Repeat(" ", 6-len(t.HTTPMethod))
		}
		fmt.Fprintf(&sb, "%s  %-*s  %s\n", method, nameWidth, t.Name, Template(t.URL, names))
	}
	return sb.String()
}

// Agents formats the agent listing with the number of tools linked to each.
func (r *Renderer) Agents(agents []domain.Agent, toolCounts map[string]int) string {
	if len(agents) == 0 {
		return "No agents found\n"
	}

	var sb strings.Builder
	if r.pretty {
		sb.WriteString(color.CyanString("Agents (%d)\n", len(agents)))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}
	for _, a := range agents {
		id := a.ID
		if r.pretty {
			id = color.HiBlackString(id)
		}
		fmt.Fprintf(&sb, "%s  %s  (%d tools)\n", id, a.Name, toolCounts[a.ID])
		if a.Description != "" && r.pretty {
			fmt.Fprintf(&sb, "    %s\n", strutil.TruncateRunes(strutil.SingleLine(a.Description), r.width))
		}
	}
	return sb.String()
}

// Snapshots formats a snapshot listing, newest first.
func (r *Renderer) Snapshots(list []snapshot.Snapshot) string {
	if len(list) == 0 {
		return "No snapshots found\n"
	}

	var sb strings.Builder
	if r.pretty {
		sb.WriteString(color.CyanString("Snapshots (%d)\n", len(list)))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}
	for _, s := range list {
		when := s.CreatedAt.Local().Format("2006-01-02 15:04:05")
		if r.pretty {
			when = color.HiBlackString(when)
		}
		fmt.Fprintf(&sb, "%s  %s  %s  %s\n", s.ID, when, FormatSize(s.Size), s.Description)
		if r.pretty {
			fmt.Fprintf(&sb, "    %s\n", s.Path)
		}
	}
	return sb.String()
}

// Pruned reports removed snapshot files.
func (r *Renderer) Pruned(removed []string) string {
	if len(removed) == 0 {
		return "Nothing to prune\n"
	}
	sorted := append([]string(nil), removed...)
	sort.Strings(sorted)
	var sb strings.Builder
	fmt.Fprintf(&sb, "Removed %d snapshots\n", len(sorted))
	for _, p := range sorted {
		fmt.Fprintf(&sb, "  %s\n", p)
	}
	return sb.String()
}

// Restored reports a restore and the snapshot that saved the replaced file.
func (r *Renderer) Restored(from *snapshot.Metadata, safety *snapshot.Snapshot) string {
	var sb strings.Builder
	msg := fmt.Sprintf("Restored snapshot %s (%s)", from.ID, from.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if r.pretty {
		fmt.Fprintf(&sb, "%s %s\n", color.GreenString("✓"), msg)
	} else {
		sb.WriteString(msg + "\n")
	}
	if safety != nil {
		fmt.Fprintf(&sb, "Previous content saved as %s\n", safety.Path)
	}
	return sb.String()
}

// FormatSize formats a byte count in human-readable form.
func FormatSize(n int64) string {
	switch {
	case n < 1024:
		return fmt.Sprintf("%dB", n)
	case n < 1024*1024:
		return fmt.Sprintf("%.1fKB", float64(n)/1024)
	default:
		return fmt.Sprintf("%.1fMB", float64(n)/(1024*1024))
	}
}

// FormatDuration formats a duration in human-readable form.
func FormatDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	if d < time.Minute {
		return fmt.Sprintf("%.1fs", d.Seconds())
	}
	return fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
}
