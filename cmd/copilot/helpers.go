package main

import (
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/term"

	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/audit"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/compiler"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/config"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/document"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/editor"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/ident"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/logging"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/render"
	"github.com/voiceflow-community/voiceflow-agent-copilot/internal/snapshot"
)

// exitOnError logs the error to audit when an event is open, prints it and
// exits.
func exitOnError(event *audit.AuditEvent, err error) {
	if event != nil {
		auditLogger.LogError(event, err)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}

// fatalError prints err and exits.
func fatalError(err error) {
	exitOnError(nil, err)
}

// openAudit appends to the journal under the copilot home. A journal that
// cannot be opened disables auditing for this run.
func openAudit() *audit.Logger {
	f, err := audit.OpenJournal(config.GetPaths().AuditLog)
	if err != nil {
		logging.New("audit").Warn("journal_unavailable", nil, err)
		return audit.NewLogger(audit.WithDocument(docPath))
	}
	journal = f
	return audit.NewLogger(audit.WithDocument(docPath), audit.WithOutput(f))
}

// requireDoc returns the document path or exits.
func requireDoc() string {
	if docPath == "" {
		fatalError(fmt.Errorf("no document: pass --doc or set COPILOT_DOCUMENT"))
	}
	return docPath
}

// loadDoc reads the document or exits.
func loadDoc() *document.Document {
	doc, err := document.Load(requireDoc())
	if err != nil {
		fatalError(err)
	}
	return doc
}

// newEditor wires an editor for the current document from config.
func newEditor() *editor.Editor {
	cfg := config.Env()
	ids := ident.ForFormat(cfg.IDFormat)
	c := compiler.New(ids, compiler.NewAssembler(ids, compiler.WithCreator(cfg.CreatorID)))
	return editor.New(requireDoc(), c,
		editor.WithSnapshots(snapshot.NewManager(config.GetPaths().Snapshots), cfg.SnapshotKeep),
		editor.WithAudit(auditLogger),
		editor.WithGeneratorTimeout(cfg.GeneratorTimeout),
	)
}

// interactive reports whether both stdin and stdout are terminals.
func interactive() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

func renderer() *render.Renderer {
	return render.New(pretty)
}

// printJSON writes v as indented JSON to stdout.
func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fatalError(err)
	}
}
