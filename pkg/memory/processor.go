package memory

import "github.com/loomrt/loom/pkg/schema"

// Processor transforms a message history before prompt assembly.
// Processors compose into an ordered Chain; each Chain.Apply call runs
// every processor once, in order. agent.Executor does not apply a
// Chain itself: its prompt is built from the unprocessed session
// history (§4.4). Grounded on the original Rust implementation's
// memory::processor module, reimplemented in the teacher's idiom as a
// plain function-typed interface rather than a trait object tree.
type Processor interface {
	Process(messages []schema.Message) []schema.Message
}

// ProcessorFunc adapts a function into a Processor.
type ProcessorFunc func([]schema.Message) []schema.Message

func (f ProcessorFunc) Process(messages []schema.Message) []schema.Message { return f(messages) }

// Chain applies a fixed, ordered sequence of Processors.
type Chain struct {
	processors []Processor
}

// NewChain builds a Chain from processors, applied in the given order.
func NewChain(processors ...Processor) *Chain {
	return &Chain{processors: processors}
}

// Apply runs every processor in order over messages.
func (c *Chain) Apply(messages []schema.Message) []schema.Message {
	out := messages
	for _, p := range c.processors {
		out = p.Process(out)
	}
	return out
}

// LimitByCount keeps only the last n messages.
func LimitByCount(n int) Processor {
	return ProcessorFunc(func(messages []schema.Message) []schema.Message {
		if len(messages) <= n {
			return messages
		}
		return append([]schema.Message(nil), messages[len(messages)-n:]...)
	})
}

// FilterByRole drops messages whose role is not in allowed.
func FilterByRole(allowed ...schema.Role) Processor {
	allowedSet := make(map[schema.Role]bool, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = true
	}
	return ProcessorFunc(func(messages []schema.Message) []schema.Message {
		out := make([]schema.Message, 0, len(messages))
		for _, m := range messages {
			if allowedSet[m.Role] {
				out = append(out, m)
			}
		}
		return out
	})
}

// Deduplicate drops messages whose (role, content) pair has already
// been seen earlier in the history, keeping the first occurrence.
func Deduplicate() Processor {
	return ProcessorFunc(func(messages []schema.Message) []schema.Message {
		seen := make(map[string]bool, len(messages))
		out := make([]schema.Message, 0, len(messages))
		for _, m := range messages {
			key := string(m.Role) + "\x00" + m.Content
			if seen[key] {
				continue
			}
			seen[key] = true
			out = append(out, m)
		}
		return out
	})
}
