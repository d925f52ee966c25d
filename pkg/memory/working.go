package memory

import (
	"github.com/loomrt/loom/pkg/schema"
)

// RetentionKind selects how WorkingMemory trims history once it
// exceeds its token budget (§3).
type RetentionKind string

const (
	RetentionKeepRecent   RetentionKind = "keep_recent"
	RetentionKeepImportant RetentionKind = "keep_important"
	RetentionSummarize    RetentionKind = "summarize"
)

// RetentionPolicy configures WorkingMemory eviction.
type RetentionPolicy struct {
	Kind RetentionKind
	// N is the message count for RetentionKeepRecent.
	N int
	// Summarizer produces a single summary Message for the overflow
	// portion when Kind is RetentionSummarize. It is typically itself a
	// model call (§9); model.Options.Summarization marks such a call so
	// metrics can exclude it from max_tool_calls accounting. Neither
	// this package nor the agent package sets that flag.
	Summarizer func(overflow []schema.Message) (schema.Message, error)
}

// WorkingMemory is a bounded, prompt-ready projection of session
// history (§3, §4.4).
type WorkingMemory struct {
	Messages   []schema.Message
	TokenCount int
	Policy     RetentionPolicy
}

// Build constructs a WorkingMemory view from system, optional running
// summary, and the full processed history, admitting messages from the
// most recent backward until maxTokens is reached, then applying
// Policy to the remainder (§4.4 step a/b/c).
func Build(estimator TokenEstimator, system *schema.Message, runningSummary *schema.Message, history []schema.Message, maxTokens int, policy RetentionPolicy) (WorkingMemory, error) {
	var head []schema.Message
	if system != nil {
		head = append(head, *system)
	}
	if runningSummary != nil {
		head = append(head, *runningSummary)
	}
	headTokens := estimator.CountMessages(head)

	budget := maxTokens - headTokens
	if budget < 0 {
		budget = 0
	}

	kept, overflow := admitRecent(estimator, history, budget)

	switch policy.Kind {
	case RetentionKeepImportant:
		kept = mergeImportant(kept, overflow)
		overflow = nil
	case RetentionSummarize:
		if len(overflow) > 0 && policy.Summarizer != nil {
			summary, err := policy.Summarizer(overflow)
			if err != nil {
				return WorkingMemory{}, err
			}
			head = append(head, summary)
			overflow = nil
		}
	case RetentionKeepRecent, "":
		// kept/overflow from admitRecent already implements this.
	}

	all := append(append([]schema.Message(nil), head...), kept...)
	return WorkingMemory{
		Messages:   all,
		TokenCount: estimator.CountMessages(all),
		Policy:     policy,
	}, nil
}

// admitRecent walks history from newest to oldest, keeping messages
// while the running token count stays within budget.
func admitRecent(estimator TokenEstimator, history []schema.Message, budget int) (kept, overflow []schema.Message) {
	used := 0
	cut := len(history)
	for i := len(history) - 1; i >= 0; i-- {
		cost := estimator.CountMessage(history[i])
		if used+cost > budget && used > 0 {
			cut = i + 1
			break
		}
		used += cost
		cut = i
	}
	return history[cut:], history[:cut]
}

// mergeImportant re-admits system and assistant-with-tool-calls
// messages from the overflow region, per the KeepImportant policy.
func mergeImportant(kept, overflow []schema.Message) []schema.Message {
	var important []schema.Message
	for _, m := range overflow {
		if m.Role == schema.RoleSystem {
			important = append(important, m)
			continue
		}
		if m.Role == schema.RoleAssistant {
			if _, hasCalls := m.Metadata["tool_calls"]; hasCalls {
				important = append(important, m)
			}
		}
	}
	return append(important, kept...)
}
