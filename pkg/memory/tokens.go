package memory

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/loomrt/loom/pkg/schema"
)

// TokenEstimator counts the tokens a set of messages would consume in
// a prompt. §4.4 leaves the exact method implementation-defined but
// requires it be monotonic: more text never reports fewer tokens.
type TokenEstimator interface {
	CountMessage(m schema.Message) int
	CountMessages(msgs []schema.Message) int
}

// TiktokenEstimator counts tokens with the cl100k_base BPE encoding via
// pkoukk/tiktoken-go, the estimator the teacher's token-aware history
// machinery uses. Encoding lookups are cached; callers share one
// instance process-wide via NewTiktokenEstimator's sync.Once init.
type TiktokenEstimator struct {
	enc *tiktoken.Tiktoken
}

var (
	defaultEstimator     *TiktokenEstimator
	defaultEstimatorOnce sync.Once
)

// NewTiktokenEstimator returns the shared cl100k_base estimator,
// falling back to a conservative character-count heuristic if the
// encoding can't be loaded (e.g. no network access to fetch the BPE
// ranks file) — the heuristic is still strictly monotonic.
func NewTiktokenEstimator() *TiktokenEstimator {
	defaultEstimatorOnce.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			defaultEstimator = &TiktokenEstimator{}
			return
		}
		defaultEstimator = &TiktokenEstimator{enc: enc}
	})
	return defaultEstimator
}

func (t *TiktokenEstimator) CountMessage(m schema.Message) int {
	if t.enc != nil {
		return len(t.enc.Encode(m.Content, nil, nil)) + 4 // +4 for role/name framing overhead
	}
	return heuristicTokens(m.Content) + 4
}

func (t *TiktokenEstimator) CountMessages(msgs []schema.Message) int {
	total := 0
	for _, m := range msgs {
		total += t.CountMessage(m)
	}
	return total
}

// heuristicTokens estimates ~4 characters per token, the common
// fallback ratio for English text, rounding up so the estimate never
// under-counts (preserving monotonicity even under the fallback path).
func heuristicTokens(s string) int {
	if len(s) == 0 {
		return 0
	}
	return (len(s) + 3) / 4
}
