package render

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/audit"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/snapshot"
)

const (
	cityID = "aaaaaaaaaaaaaaaaaaaaaaaa"
	daysID = "bbbbbbbbbbbbbbbbbbbbbbbb"
)

func init() {
	color.NoColor = true
}

func weather() (*domain.APITool, []domain.Variable) {
	tool := &domain.APITool{
		ID:          "cccccccccccccccccccccccc",
		Name:        "Get forecast",
		Description: "Daily forecast for a city",
		HTTPMethod:  domain.MethodPost,
		URL:         domain.Markup{domain.Text("https://api.example.com/forecast/"), domain.Ref(cityID)},
		QueryParameters: []domain.QueryParameter{
			{ID: "q1", Key: "days", Value: domain.Markup{domain.Ref(daysID)}},
		},
		Headers: []domain.Header{
			{ID: "h1", Key: "Accept", Value: domain.Markup{domain.Text("application/json")}},
		},
		Body: &domain.Body{
			Type:        domain.BodyTypeRawInput,
			ContentType: domain.ContentTypeJSON,
			Content:     domain.Markup{domain.Text(`{"units": "metric"}`)},
		},
	}
	vars := []domain.Variable{
		{ID: cityID, Name: "city", Description: "City to look up"},
		{ID: daysID, Name: "days"},
	}
	return tool, vars
}

func TestTemplate(t *testing.T) {
	m := domain.Markup{domain.Text("/users/"), domain.Ref(cityID), domain.Text("/"), domain.Ref("unknown")}
	got := Template(m, map[string]string{cityID: "city"})
	assert.Equal(t, "/users/{city}/{unknown}", got)
	assert.Equal(t, "", Template(nil, nil))
}

func TestToolPlain(t *testing.T) {
	tool, vars := weather()
	out := New(false).Tool(tool, vars)

	assert.Contains(t, out, "Get forecast\n")
	assert.Contains(t, out, "POST https://api.example.com/forecast/{city}\n")
	assert.Contains(t, out, "  days = {days}\n")
	assert.Contains(t, out, "  Accept: application/json\n")
	assert.Contains(t, out, "Body (json):\n")
	assert.Contains(t, out, "  {city}  City to look up\n")
	assert.NotContains(t, out, "╭")
}

func TestToolPretty(t *testing.T) {
	tool, vars := weather()
	out := New(true).Tool(tool, vars)

	assert.Contains(t, out, "╭")
	assert.Contains(t, out, "Get forecast")
	assert.Contains(t, out, "{city}")
}

func TestAdded(t *testing.T) {
	tool, vars := weather()
	build := &compiler.Build{
		Tool:      tool,
		Variables: vars,
		Dropped:   []string{"units"},
		Synthetic: []string{"variable_1"},
	}

	out := New(false).Added(build, "Weather bot", false)
	assert.True(t, strings.HasPrefix(out, `Added tool "Get forecast" to agent Weather bot`))
	assert.Contains(t, out, "note: Dropped unreferenced variables: units\n")
	assert.Contains(t, out, "note: Named unresolved references: variable_1\n")

	preview := New(false).Added(&compiler.Build{Tool: tool}, "Weather bot", true)
	assert.True(t, strings.HasPrefix(preview, "Would add tool"))
	assert.NotContains(t, preview, "note:")
}

func TestTools(t *testing.T) {
	tool, vars := weather()
	other := domain.APITool{Name: "Delete", HTTPMethod: domain.MethodDelete, URL: domain.Markup{domain.Text("https://x")}}

	out := New(false).Tools([]domain.APITool{*tool, other}, vars)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "POST    Get forecast  https://api.example.com/forecast/{city}", lines[0])
	assert.Equal(t, "DELETE  Delete        https://x", lines[1])

	assert.Equal(t, "No tools found\n", New(false).Tools(nil, nil))
}

func TestAgents(t *testing.T) {
	agents := []domain.Agent{{ID: "a1", Name: "Support"}, {ID: "a2", Name: "Sales"}}
	out := New(false).Agents(agents, map[string]int{"a1": 3})
	assert.Equal(t, "a1  Support  (3 tools)\na2  Sales  (0 tools)\n", out)
	assert.Equal(t, "No agents found\n", New(true).Agents(nil, nil))
}

func TestSnapshots(t *testing.T) {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	list := []snapshot.Snapshot{{
		Path:     "/tmp/snaps/agent/x.tar.gz",
		Metadata: snapshot.Metadata{ID: "01HX", CreatedAt: created, Size: 2048, Description: "before add"},
	}}
	out := New(false).Snapshots(list)
	assert.Contains(t, out, "01HX")
	assert.Contains(t, out, "2.0KB")
	assert.Contains(t, out, "before add")
	assert.NotContains(t, out, "/tmp/snaps")

	assert.Contains(t, New(true).Snapshots(list), "/tmp/snaps/agent/x.tar.gz")
	assert.Equal(t, "No snapshots found\n", New(false).Snapshots(nil))
}

func TestPrunedAndRestored(t *testing.T) {
	r := New(false)
	assert.Equal(t, "Nothing to prune\n", r.Pruned(nil))
	assert.Equal(t, "Removed 2 snapshots\n  a\n  b\n", r.Pruned([]string{"b", "a"}))

	meta := &snapshot.Metadata{ID: "01HX", CreatedAt: time.Now()}
	out := r.Restored(meta, &snapshot.Snapshot{Path: "/tmp/safety.tar.gz"})
	assert.Contains(t, out, "Restored snapshot 01HX")
	assert.Contains(t, out, "Previous content saved as /tmp/safety.tar.gz")
	assert.NotContains(t, r.Restored(meta, nil), "Previous content")
}

func TestFormatSize(t *testing.T) {
	assert.Equal(t, "512B", FormatSize(512))
	assert.Equal(t, "1.5KB", FormatSize(1536))
	assert.Equal(t, "2.0MB", FormatSize(2*1024*1024))
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "250ms", FormatDuration(250*time.Millisecond))
	assert.Equal(t, "1.5s", FormatDuration(1500*time.Millisecond))
	assert.Equal(t, "2m5s", FormatDuration(125*time.Second))
}

func TestStatusIcon(t *testing.T) {
	assert.Equal(t, "✓", StatusIcon("success"))
	assert.Equal(t, "✗", StatusIcon("error"))
	assert.Equal(t, "~", StatusIcon("dry_run"))
	assert.Equal(t, "•", StatusIcon("other"))
	assert.Equal(t, "!", StatusIcon("warning"))
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	w := NewWriter(&buf)
	w.Header("events (%d)", 2)
	w.Println("%s/%s", "tool", "add")
	w.Item("Error: %s", "boom")
	w.Nested("%s", "detail")
	w.Section("by category")
	w.Line()
	w.Empty("none")
	assert.Equal(t, "EVENTS (2)\n\ntool/add\n  Error: boom\n    └─ detail\n\nBY CATEGORY:\n\nnone\n", buf.String())
}

func TestAuditRender(t *testing.T) {
	started := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	events := []audit.AuditEvent{
		{Category: audit.CategoryTool, Operation: "add", Status: audit.StatusSuccess, StartedAt: started, ToolName: "Get forecast", DurationMs: 12},
		{Category: audit.CategoryTool, Operation: "add", Status: audit.StatusError, StartedAt: started, ErrorMessage: "duplicate tool", ErrorKind: "duplicate_tool", Document: "agent.json"},
	}

	var buf bytes.Buffer
	a := NewAudit(&buf)
	a.Events(events)
	out := buf.String()
	assert.Contains(t, out, "AUDIT LOG (2 EVENTS)")
	assert.Contains(t, out, "✓ [")
	assert.Contains(t, out, "tool/add Get forecast (12ms)")
	assert.Contains(t, out, "└─ duplicate tool")

	buf.Reset()
	a.Errors(audit.Errors(events))
	assert.Contains(t, buf.String(), "duplicate_tool")
	assert.Contains(t, buf.String(), "Document: agent.json")

	buf.Reset()
	a.Stats(audit.Summarize(events))
	assert.Contains(t, buf.String(), "Total events:   2")
	assert.Contains(t, buf.String(), "tool/add:")
	assert.Contains(t, buf.String(), "duplicate_tool:")

	buf.Reset()
	a.Events(nil)
	assert.Equal(t, "No audit events found\n", buf.String())
}
