package agent

import (
	"context"
	"iter"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/model"
	"github.com/loomrt/loom/pkg/schema"
	"github.com/loomrt/loom/pkg/tool"
)

// scriptedProvider is a fake model.Provider that returns a fixed
// sequence of responses, one per call, grounded on the teacher's
// pattern of hand-rolled fakes in its llmagent flow tests rather than a
// generated mock.
type scriptedProvider struct {
	responses []string
	calls     int
}

func (p *scriptedProvider) next() string {
	if p.calls >= len(p.responses) {
		return ""
	}
	r := p.responses[p.calls]
	p.calls++
	return r
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts model.Options) (string, error) {
	return p.next(), nil
}
func (p *scriptedProvider) GenerateWithMessages(ctx context.Context, messages []schema.Message, opts model.Options) (string, error) {
	return p.next(), nil
}
func (p *scriptedProvider) GenerateStream(ctx context.Context, prompt string, opts model.Options) iter.Seq2[string, error] {
	text := p.next()
	return func(yield func(string, error) bool) {
		if !yield(text, nil) {
			return
		}
	}
}
func (p *scriptedProvider) GenerateWithFunctions(ctx context.Context, messages []schema.Message, functions []schema.ToolSchema, toolChoice string, opts model.Options) (model.FunctionResult, error) {
	return model.FunctionResult{Content: p.next()}, nil
}
func (p *scriptedProvider) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (p *scriptedProvider) SupportsFunctionCalling() bool                            { return false }
func (p *scriptedProvider) ModelID() string                                          { return "scripted-test-model" }

func testConfig() *Config {
	return &Config{
		Name:         "tester",
		Instructions: "Be helpful.",
		ToolNames:    []string{"calculator"},
		MaxToolCalls: 5,
		ToolTimeout:  time.Second,
	}
}

func newTestExecutor(t *testing.T, provider model.Provider) (*Executor, *memory.InMemoryStore, string) {
	t.Helper()
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.NewCalculatorTool()))
	store := memory.NewInMemoryStore()
	sess, err := store.CreateSession("tester", "user-1")
	require.NoError(t, err)

	exec := NewExecutor(testConfig(), provider, registry, store, nil, event.NewBus())
	return exec, store, sess.SessionID
}

func TestExecutor_PlainTextEndsInOneStep(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"The answer is 42."}}
	exec, _, sessionID := newTestExecutor(t, provider)

	result, err := exec.Generate(context.Background(), sessionID, "what is the answer?", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "The answer is 42.", result.Response)
	require.Len(t, result.Steps, 2) // Initial, Final
	assert.Equal(t, schema.StepFinal, result.Steps[1].Kind)
}

func TestExecutor_ToolCallThenFinalAnswer(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`calculator({"operation": "add", "a": 2, "b": 3})`,
		"The sum is 5.",
	}}
	exec, _, sessionID := newTestExecutor(t, provider)

	result, err := exec.Generate(context.Background(), sessionID, "what is 2+3?", CallOptions{})
	require.NoError(t, err)
	assert.Equal(t, "The sum is 5.", result.Response)
	require.Len(t, result.Steps, 3) // Initial, Tool, Final
	assert.Equal(t, schema.StepTool, result.Steps[1].Kind)
	require.Len(t, result.Steps[1].ToolResults, 1)
	assert.Equal(t, schema.StatusSuccess, result.Steps[1].ToolResults[0].Status)
}

func TestExecutor_UnknownToolProducesErrorResultAndContinues(t *testing.T) {
	provider := &scriptedProvider{responses: []string{
		`mystery({"x": 1})`,
		"Couldn't find that tool, here's what I know.",
	}}
	exec, _, sessionID := newTestExecutor(t, provider)

	result, err := exec.Generate(context.Background(), sessionID, "do the mystery thing", CallOptions{})
	require.NoError(t, err)
	require.Len(t, result.Steps, 3)
	assert.Equal(t, schema.StatusError, result.Steps[1].ToolResults[0].Status)
}

func TestExecutor_MaxToolCallsTruncates(t *testing.T) {
	cfg := testConfig()
	cfg.MaxToolCalls = 1
	provider := &scriptedProvider{responses: []string{
		`calculator({"operation": "add", "a": 1, "b": 1})`,
		`calculator({"operation": "add", "a": 2, "b": 2})`,
	}}
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.NewCalculatorTool()))
	store := memory.NewInMemoryStore()
	sess, err := store.CreateSession("tester", "")
	require.NoError(t, err)
	exec := NewExecutor(cfg, provider, registry, store, nil, event.NewBus())

	result, err := exec.Generate(context.Background(), sess.SessionID, "add a lot of numbers", CallOptions{})
	require.NoError(t, err)
	final := result.FinalStep()
	require.NotNil(t, final)
	assert.Contains(t, final.Output.Content, "max_tool_calls")
}

func TestExecutor_CancelledContextProducesFinalStep(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"irrelevant"}}
	exec, _, sessionID := newTestExecutor(t, provider)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := exec.Generate(ctx, sessionID, "hello", CallOptions{})
	require.NoError(t, err)
	final := result.FinalStep()
	require.NotNil(t, final)
	assert.Contains(t, final.Output.Content, "cancelled")
}

func TestExecutor_PublishesLifecycleEvents(t *testing.T) {
	provider := &scriptedProvider{responses: []string{"done"}}
	bus := event.NewBus()
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(tool.NewCalculatorTool()))
	store := memory.NewInMemoryStore()
	sess, err := store.CreateSession("tester", "")
	require.NoError(t, err)
	exec := NewExecutor(testConfig(), provider, registry, store, nil, bus)

	sub := bus.Subscribe(event.Filter{})
	defer sub.Unsubscribe()

	_, err = exec.Generate(context.Background(), sess.SessionID, "hi", CallOptions{})
	require.NoError(t, err)

	started := <-sub.Events()
	assert.Equal(t, event.KindAgentStarted, started.Kind)

	var sawStopped bool
	for i := 0; i < 5; i++ {
		select {
		case e := <-sub.Events():
			if e.Kind == event.KindAgentStopped {
				sawStopped = true
			}
		default:
		}
	}
	assert.True(t, sawStopped, "expected an AgentStopped event")
}

func TestExecutor_ToolTimeoutEmitsErrorRaisedOfKindTimeout(t *testing.T) {
	slow := tool.NewFunc("slow", "sleeps past its timeout", schema.ToolSchema{}, true, func(ctx tool.Context, args map[string]any) (any, error) {
		select {
		case <-time.After(200 * time.Millisecond):
			return "done", nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	})
	registry := tool.NewRegistry()
	require.NoError(t, registry.Register(slow))

	cfg := testConfig()
	cfg.ToolNames = []string{"slow"}
	cfg.ToolTimeout = 20 * time.Millisecond

	provider := &scriptedProvider{responses: []string{
		`slow({})`,
		"gave up waiting",
	}}
	store := memory.NewInMemoryStore()
	sess, err := store.CreateSession("tester", "")
	require.NoError(t, err)

	bus := event.NewBus()
	sub := bus.Subscribe(event.Filter{Kinds: map[event.Kind]bool{event.KindErrorRaised: true}})
	defer sub.Unsubscribe()

	exec := NewExecutor(cfg, provider, registry, store, nil, bus)
	result, err := exec.Generate(context.Background(), sess.SessionID, "run the slow tool", CallOptions{})
	require.NoError(t, err)
	require.Len(t, result.Steps, 3) // Initial, Tool, Final
	require.Len(t, result.Steps[1].ToolResults, 1)
	assert.Equal(t, schema.StatusError, result.Steps[1].ToolResults[0].Status)
	assert.Equal(t, string(loomerr.Timeout), result.Steps[1].ToolResults[0].ErrorKind)

	var sawTimeoutError bool
	for i := 0; i < 10; i++ {
		select {
		case e := <-sub.Events():
			if e.Kind == event.KindErrorRaised && e.Metadata["kind"] == string(loomerr.Timeout) {
				sawTimeoutError = true
			}
		default:
		}
	}
	assert.True(t, sawTimeoutError, "expected an ErrorRaised event of kind Timeout")
}

func TestLooksLikeToolCallPrefix(t *testing.T) {
	assert.True(t, looksLikeToolCallPrefix("```"))
	assert.True(t, looksLikeToolCallPrefix("Using the t"))
	assert.True(t, looksLikeToolCallPrefix("calculator"))
	assert.False(t, looksLikeToolCallPrefix("The answer"))
	assert.False(t, looksLikeToolCallPrefix(""))
}

func ensureNoPanicOnEmptyStream(t *testing.T) {
	t.Helper()
	provider := &scriptedProvider{responses: []string{""}}
	exec, _, sessionID := newTestExecutor(t, provider)
	for range exec.RunStream(context.Background(), sessionID, "x", CallOptions{}) {
	}
}

func TestExecutor_RunStreamDoesNotPanicOnEmptyChunk(t *testing.T) {
	ensureNoPanicOnEmptyStream(t)
}

