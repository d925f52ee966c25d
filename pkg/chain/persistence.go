package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/schema"
)

// contextVersion is the only version this build knows how to read.
// Bumping the on-disk format requires bumping this constant and adding
// an explicit migration path — LoadContext refuses anything else
// rather than guess at a layout it has never seen.
const contextVersion = "v1"

// persistedContext is the on-disk shape of a saved Chain: the system
// override, variables, message history, and step summaries. It omits
// the executor and session id entirely — both are supplied by the
// caller of LoadContext, since a saved file outlives any one process's
// wiring of providers and tool registries.
type persistedContext struct {
	Version   string           `json:"version"`
	SavedAt   time.Time        `json:"saved_at"`
	System    string           `json:"system,omitempty"`
	Variables map[string]any   `json:"variables,omitempty"`
	Messages  []schema.Message `json:"messages,omitempty"`
	Steps     []StepSummary    `json:"steps,omitempty"`
}

// SaveContext writes c's system override, variables, messages, and
// step summaries to path as versioned JSON. The executor and session
// id are not persisted.
func (c Chain) SaveContext(path string) error {
	doc := persistedContext{
		Version:   contextVersion,
		SavedAt:   time.Now(),
		System:    c.system,
		Variables: c.variables,
		Messages:  c.messages,
		Steps:     c.steps,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return loomerr.New(loomerr.Internal, "chain.SaveContext", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return loomerr.New(loomerr.Internal, "chain.SaveContext", err)
	}
	return nil
}

// LoadContext reads a context file saved by SaveContext and returns a
// new Chain carrying the same executor and session id as c but with
// its system override, variables, messages, and step summaries
// replaced by what was saved. Messages are restored verbatim; no tool
// call is replayed. A file written by a future, incompatible version
// is rejected rather than partially trusted.
func (c Chain) LoadContext(path string) (Chain, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Chain{}, loomerr.New(loomerr.NotFound, "chain.LoadContext", err)
	}

	var doc persistedContext
	if err := json.Unmarshal(data, &doc); err != nil {
		return Chain{}, loomerr.New(loomerr.Validation, "chain.LoadContext", err)
	}
	if doc.Version != contextVersion {
		return Chain{}, loomerr.New(loomerr.Validation, "chain.LoadContext",
			fmt.Errorf("unsupported context version %q, expected %q", doc.Version, contextVersion))
	}

	next := Chain{
		executor:  c.executor,
		sessionID: c.sessionID,
		system:    doc.System,
		variables: doc.Variables,
		messages:  doc.Messages,
		steps:     doc.Steps,
	}
	return next, nil
}
