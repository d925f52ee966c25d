package agent

import (
	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/schema"
)

// CallOptions carries per-turn overrides supplied by the caller.
type CallOptions struct {
	// Context is appended verbatim after the working-memory history and new
	// user message(s); it lets RAG (C8) inject retrieved documents.
	Context []schema.Message
}

// assemblePrompt builds the ordered message list for one Initial step,
// per §4.6: system/instruction, optional memory summary, working-memory
// history, new user message(s), then any context override.
func assemblePrompt(cfg *Config, wm memory.WorkingMemory, newMessages []schema.Message, opts CallOptions) []schema.Message {
	out := make([]schema.Message, 0, len(wm.Messages)+len(newMessages)+len(opts.Context)+1)
	if cfg.Instructions != "" {
		out = append(out, schema.NewSystem(cfg.Instructions))
	}
	out = append(out, wm.Messages...)
	out = append(out, newMessages...)
	out = append(out, opts.Context...)
	return out
}
