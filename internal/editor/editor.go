// Package editor runs one document mutation end to end: load the document,
// build the tool, check it, snapshot the file, append and save.
package editor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/audit"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/document"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/domain"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/generator"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/snapshot"
)

// MaxAttempts bounds rebuilds after an identifier collision.
const MaxAttempts = 3

// ErrSnapshotNotFound means no snapshot matches a reference.
var ErrSnapshotNotFound = errors.New("snapshot not found")

// Options controls one mutation.
type Options struct {
	// Agent is the owning agent id. Empty selects the only agent.
	Agent  string
	DryRun bool
}

// Result describes an applied or previewed mutation.
type Result struct {
	Build    *compiler.Build
	Agent    domain.Agent
	Link     *domain.AgentAPIToolLink
	Snapshot *snapshot.Snapshot
	Pruned   []string
	Attempts int
	DryRun   bool
}

// Editor mutates one document file.
type Editor struct {
	path       string
	compiler   *compiler.Compiler
	normalizer *generator.Normalizer
	mutator    *document.Mutator
	snapshots  *snapshot.Manager
	keep       int
	timeout    time.Duration
	audit      *audit.Logger
	log        *logging.Logger
}

// Option configures an Editor.
type Option func(*Editor)

// WithSnapshots snapshots the document before each save and keeps the
// newest keep snapshots.
func WithSnapshots(m *snapshot.Manager, keep int) Option {
	return func(e *Editor) {
		e.snapshots = m
		e.keep = keep
	}
}

// WithAudit records every operation in the journal.
func WithAudit(l *audit.Logger) Option {
	return func(e *Editor) {
		e.audit = l
	}
}

// WithGeneratorTimeout bounds each generator call.
func WithGeneratorTimeout(d time.Duration) Option {
	return func(e *Editor) {
		e.timeout = d
	}
}

// New creates an editor for the document at path. Identifiers for tools,
// variables and links all come from c.
func New(path string, c *compiler.Compiler, opts ...Option) *Editor {
	e := &Editor{
		path:       path,
		compiler:   c,
		normalizer: generator.NewNormalizer(c),
		mutator:    document.NewMutator(c.IDs()),
		audit:      audit.NewLogger(audit.WithDocument(path)),
		log:        logging.New("editor").WithDocument(path),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Path returns the document path.
func (e *Editor) Path() string {
	return e.path
}

// Load reads the document.
func (e *Editor) Load() (*document.Document, error) {
	return document.Load(e.path)
}

// ResolveAgent returns the agent with id, or the only agent when id is empty.
func ResolveAgent(doc *document.Document, id string) (domain.Agent, error) {
	if id != "" {
		agent, ok := doc.Agent(id)
		if !ok {
			return domain.Agent{}, fmt.Errorf("%w: %s", domain.ErrAgentNotFound, id)
		}
		return agent, nil
	}
	agents, err := doc.Agents()
	if err != nil {
		return domain.Agent{}, err
	}
	if len(agents) != 1 {
		return domain.Agent{}, fmt.Errorf("%w: document has %d agents, pass --agent", domain.ErrAgentNotFound, len(agents))
	}
	return agents[0], nil
}

// AddTool compiles operator input and merges it into the document.
func (e *Editor) AddTool(in compiler.OperatorInput, opts Options) (*Result, error) {
	event := e.audit.Start(audit.CategoryTool, "add")
	res, err := e.run(opts, func(*document.Document, domain.Agent) (buildFunc, error) {
		return func() (*compiler.Build, error) { return e.compiler.Compile(in) }, nil
	})
	e.record(event, res, opts, err)
	return res, err
}

// ImportTool normalizes generator JSON read from a file or stdin and merges
// it into the document.
func (e *Editor) ImportTool(raw []byte, opts Options) (*Result, error) {
	event := e.audit.Start(audit.CategoryTool, "import")
	res, err := e.run(opts, func(*document.Document, domain.Agent) (buildFunc, error) {
		return func() (*compiler.Build, error) { return e.normalizer.Normalize(raw) }, nil
	})
	e.record(event, res, opts, err)
	return res, err
}

// GenerateTool asks src for a tool matching description, normalizes the
// reply and merges it into the document. The generator is called once;
// collision retries re-normalize the same reply.
func (e *Editor) GenerateTool(ctx context.Context, src generator.Source, description string, opts Options) (*Result, error) {
	event := e.audit.Start(audit.CategoryTool, "generate")
	event.Set("request", description)
	ctx = logging.WithOperationID(ctx, event.EventID)
	res, err := e.run(opts, func(doc *document.Document, agent domain.Agent) (buildFunc, error) {
		raw, err := e.generate(ctx, src, doc, agent, description)
		if err != nil {
			return nil, err
		}
		return func() (*compiler.Build, error) { return e.normalizer.Normalize(raw) }, nil
	})
	e.record(event, res, opts, err)
	return res, err
}

func (e *Editor) generate(ctx context.Context, src generator.Source, doc *document.Document, agent domain.Agent, description string) ([]byte, error) {
	if strings.TrimSpace(description) == "" {
		return nil, fmt.Errorf("tool request is empty")
	}
	if e.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	req := generator.Request{Description: description, AgentName: agent.Name}
	for _, t := range doc.ToolSummaries() {
		req.ExistingTools = append(req.ExistingTools, t.Name)
	}

	start := time.Now()
	raw, err := src.Generate(ctx, req)
	if err != nil {
		return nil, err
	}
	e.log.FromContext(ctx).TimedEvent("tool_generated", start, map[string]interface{}{"bytes": len(raw)})
	return raw, nil
}

type buildFunc func() (*compiler.Build, error)

func (e *Editor) run(opts Options, prepare func(*document.Document, domain.Agent) (buildFunc, error)) (*Result, error) {
	doc, err := e.Load()
	if err != nil {
		return nil, err
	}
	agent, err := ResolveAgent(doc, opts.Agent)
	if err != nil {
		return nil, err
	}
	build, err := prepare(doc, agent)
	if err != nil {
		return nil, err
	}

	res := &Result{Agent: agent, DryRun: opts.DryRun}
	for res.Attempts = 1; ; res.Attempts++ {
		res.Build, err = build()
		if err != nil {
			return nil, err
		}
		if opts.DryRun {
			err = e.mutator.Check(doc, res.Build, agent.ID)
		} else {
			res.Link, err = e.mutator.Apply(doc, res.Build, agent.ID)
		}
		if err == nil {
			break
		}
		if !errors.Is(err, domain.ErrIDCollision) || res.Attempts == MaxAttempts {
			return nil, err
		}
		e.log.Warn("id_collision_retry", map[string]interface{}{"attempt": res.Attempts}, err)
	}
	if opts.DryRun {
		return res, nil
	}

	if e.snapshots != nil {
		res.Snapshot, err = e.snapshots.Take(e.path, "before adding "+res.Build.Tool.Name)
		if err != nil {
			return nil, err
		}
	}
	if err := doc.Save(e.path); err != nil {
		return nil, err
	}
	if e.snapshots != nil {
		res.Pruned, err = e.snapshots.Prune(e.path, e.keep)
		if err != nil {
			e.log.Warn("prune_failed", nil, err)
		}
	}
	return res, nil
}

func (e *Editor) record(event *audit.AuditEvent, res *Result, opts Options, err error) {
	event.AgentID = opts.Agent
	if res != nil {
		event.AgentID = res.Agent.ID
		event.ToolID = res.Build.Tool.ID
		event.ToolName = res.Build.Tool.Name
		event.Set("variables", len(res.Build.Variables))
		event.Set("attempts", res.Attempts)
		if len(res.Build.Dropped) > 0 {
			event.Set("dropped", res.Build.Dropped)
		}
		if len(res.Build.Synthetic) > 0 {
			event.Set("synthetic", res.Build.Synthetic)
		}
		if res.Snapshot != nil {
			event.Snapshot = res.Snapshot.ID
		}
	}

	var logErr error
	if err == nil && opts.DryRun {
		event.Complete(audit.StatusDryRun, nil)
		logErr = e.audit.Log(event)
	} else {
		logErr = e.audit.Finish(event, err)
	}
	if logErr != nil {
		e.log.Warn("audit_write_failed", nil, logErr)
	}
}

// Snapshots lists the document's snapshots, newest first.
func (e *Editor) Snapshots() ([]snapshot.Snapshot, error) {
	if e.snapshots == nil {
		return nil, nil
	}
	return e.snapshots.List(e.path)
}

// FindSnapshot resolves ref to an archive path. ref is a path to an archive,
// a snapshot id, or a prefix of an archive file name.
func (e *Editor) FindSnapshot(ref string) (string, error) {
	if info, err := os.Stat(ref); err == nil && !info.IsDir() {
		return ref, nil
	}
	list, err := e.Snapshots()
	if err != nil {
		return "", err
	}
	var matches []string
	for _, s := range list {
		if s.ID == ref {
			return s.Path, nil
		}
		if strings.HasPrefix(filepath.Base(s.Path), ref) {
			matches = append(matches, s.Path)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrSnapshotNotFound, ref)
	case 1:
		return matches[0], nil
	}
	return "", fmt.Errorf("%w: %q matches %d snapshots", ErrSnapshotNotFound, ref, len(matches))
}

// Restore replaces the document with the snapshot ref points to. It returns
// the restored metadata and the snapshot taken of the replaced file.
func (e *Editor) Restore(ref string) (*snapshot.Metadata, *snapshot.Snapshot, error) {
	if e.snapshots == nil {
		return nil, nil, fmt.Errorf("snapshots are not configured")
	}
	event := e.audit.Start(audit.CategorySnapshot, "restore")

	meta, safety, err := e.restore(ref)
	if meta != nil {
		event.Snapshot = meta.ID
	}
	if safety != nil {
		event.Set("safety_snapshot", safety.ID)
	}
	if logErr := e.audit.Finish(event, err); logErr != nil {
		e.log.Warn("audit_write_failed", nil, logErr)
	}
	return meta, safety, err
}

func (e *Editor) restore(ref string) (*snapshot.Metadata, *snapshot.Snapshot, error) {
	path, err := e.FindSnapshot(ref)
	if err != nil {
		return nil, nil, err
	}
	meta, err := snapshot.Inspect(path)
	if err != nil {
		return nil, nil, err
	}
	safety, err := e.snapshots.Restore(path, e.path)
	if err != nil {
		return meta, nil, err
	}
	return meta, safety, nil
}

// Prune deletes all but the newest keep snapshots. keep < 0 uses the
// configured count.
func (e *Editor) Prune(keep int) ([]string, error) {
	if e.snapshots == nil {
		return nil, nil
	}
	if keep < 0 {
		keep = e.keep
	}
	event := e.audit.Start(audit.CategorySnapshot, "prune")
	removed, err := e.snapshots.Prune(e.path, keep)
	event.Set("removed", len(removed))
	if logErr := e.audit.Finish(event, err); logErr != nil {
		e.log.Warn("audit_write_failed", nil, logErr)
	}
	return removed, err
}
