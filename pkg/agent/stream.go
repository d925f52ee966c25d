package agent

import (
	"context"
	"iter"
	"strings"
	"time"

	"github.com/loomrt/loom/pkg/model"
	"github.com/loomrt/loom/pkg/schema"
)

// toolCallPrefixes are the literal prefixes a fenced-block or
// sentinel-line tool call can start with; the third textual pattern
// parse.go recognizes (bare NAME({json})) has no literal prefix and is
// checked separately. A streamed chunk is only safe to forward to the
// caller once the accumulated buffer can no longer become a tool call.
var toolCallPrefixes = []string{"```", "Using the tool"}

// looksLikeToolCallPrefix reports whether buf could still be the start
// of a fenced block, a sentinel-line tool call, or a bare function-call
// tool call, so RunStream knows to keep holding it back rather than
// flush prematurely.
func looksLikeToolCallPrefix(buf string) bool {
	trimmed := strings.TrimLeft(buf, " \t\n")
	if trimmed == "" {
		return false
	}
	for _, p := range toolCallPrefixes {
		if len(trimmed) <= len(p) {
			if strings.HasPrefix(p, trimmed) {
				return true
			}
		} else if strings.HasPrefix(trimmed, p) {
			return true
		}
	}
	// A bare identifier immediately followed by "(" is the function-call
	// pattern; while we're still inside the identifier we can't yet tell,
	// so hold back until a non-identifier rune or "(" appears.
	i := 0
	for i < len(trimmed) && (isIdentRune(trimmed[i])) {
		i++
	}
	return i > 0 && i == len(trimmed)
}

func isIdentRune(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// RunStream streams one model response for input, yielding assistant
// text chunks as they arrive from the provider (§4.6 "Streaming mode").
// It makes a single provider call: unlike Run it does not execute
// tools, loop, or persist messages to the session store. Tool-call
// parsing only happens on completed text: chunks are buffered, and
// speculative fragments that could be the start of a tool-call
// rendering are held back until the buffer resolves one way or the
// other, rather than flushed and then un-said. When the completed text
// parses as a tool call, the held-back text is not yielded.
func (e *Executor) RunStream(ctx context.Context, sessionID string, input string, opts CallOptions) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		start := time.Now()
		messages := []schema.Message{schema.NewUser(input)}
		if e.Config.Instructions != "" {
			messages = append([]schema.Message{schema.NewSystem(e.Config.Instructions)}, messages...)
		}

		prompt := renderTranscript(messages)
		var buf strings.Builder
		var held strings.Builder

		for chunk, err := range e.Provider.GenerateStream(ctx, prompt, model.Options{Temperature: e.Config.Temperature, MaxTokens: e.Config.MaxTokens}) {
			if err != nil {
				e.publishStepCompleted(schema.StepFinal, start)
				yield("", err)
				return
			}
			buf.WriteString(chunk)
			held.WriteString(chunk)

			if !looksLikeToolCallPrefix(held.String()) {
				flushed := held.String()
				held.Reset()
				if flushed != "" && !yield(flushed, nil) {
					e.publishStepCompleted(schema.StepFinal, start)
					return
				}
			}
		}

		// End of message: the final assembled text decides whether this
		// was prose (flush whatever remains) or a tool call (nothing more
		// to stream — callers needing tool execution should use Run).
		full := buf.String()
		if len(parseTextualToolCalls(full)) == 0 && held.Len() > 0 {
			yield(held.String(), nil)
		}
		e.publishStepCompleted(schema.StepFinal, start)
	}
}

// renderTranscript flattens a message list into the simple transcript
// format GenerateStream's prompt-only signature expects.
func renderTranscript(messages []schema.Message) string {
	var b strings.Builder
	for _, m := range messages {
		b.WriteString(string(m.Role))
		b.WriteString(": ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
