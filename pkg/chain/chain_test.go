package chain

import (
	"context"
	"iter"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomrt/loom/pkg/agent"
	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/memory"
	"github.com/loomrt/loom/pkg/model"
	"github.com/loomrt/loom/pkg/schema"
	"github.com/loomrt/loom/pkg/tool"
)

// scriptedProvider is a fake model.Provider returning a fixed sequence
// of responses, one per call, grounded on the same fake-over-mock
// pattern used by pkg/agent's own tests.
type scriptedProvider struct {
	responses []string
	calls     int
	seenSys   []string
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
	if len(messages) > 0 && messages[0].Role == schema.RoleSystem {
		p.seenSys = append(p.seenSys, messages[0].Content)
	} else {
		p.seenSys = append(p.seenSys, "")
	}
	return p.next(), nil
}
func (p *scriptedProvider) GenerateStream(ctx context.Context, prompt string, opts model.Options) iter.Seq2[string, error] {
	text := p.next()
	return func(yield func(string, error) bool) { yield(text, nil) }
}
func (p *scriptedProvider) GenerateWithFunctions(ctx context.Context, messages []schema.Message, functions []schema.ToolSchema, toolChoice string, opts model.Options) (model.FunctionResult, error) {
	return model.FunctionResult{Content: p.next()}, nil
}
func (p *scriptedProvider) Embed(ctx context.Context, text string) ([]float32, error) { return nil, nil }
func (p *scriptedProvider) SupportsFunctionCalling() bool                            { return false }
func (p *scriptedProvider) ModelID() string                                          { return "scripted-test-model" }

func newTestChain(t *testing.T, responses ...string) (Chain, *scriptedProvider) {
	t.Helper()
	provider := &scriptedProvider{responses: responses}
	registry := tool.NewRegistry()
	store := memory.NewInMemoryStore()
	sess, err := store.CreateSession("tester", "")
	require.NoError(t, err)

	cfg := &agent.Config{Name: "tester", Instructions: "default instructions", MaxToolCalls: 5, ToolTimeout: time.Second}
	exec := agent.NewExecutor(cfg, provider, registry, store, nil, event.NewBus())
	return New(exec, sess.SessionID), provider
}

func TestChain_AskReturnsResponseAndAdvancesChain(t *testing.T) {
	c, _ := newTestChain(t, "hello there")

	resp, err := c.Ask(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "hello there", resp.Content)

	messages := resp.Chain().Messages()
	require.Len(t, messages, 2)
	assert.Equal(t, schema.RoleUser, messages[0].Role)
	assert.Equal(t, "hi", messages[0].Content)
	assert.Equal(t, schema.RoleAssistant, messages[1].Role)
	assert.Equal(t, "hello there", messages[1].Content)
}

func TestChain_OriginalChainIsUnmodifiedAfterAsk(t *testing.T) {
	c, _ := newTestChain(t, "first reply")

	resp, err := c.Ask(context.Background(), "hi")
	require.NoError(t, err)

	assert.Empty(t, c.Messages())
	assert.NotEmpty(t, resp.Chain().Messages())
}

func TestChain_ThenAskContinuesConversation(t *testing.T) {
	c, _ := newTestChain(t, "first reply", "second reply")

	resp, err := c.Ask(context.Background(), "first question")
	require.NoError(t, err)

	resp2, err := resp.ThenAsk(context.Background(), "second question")
	require.NoError(t, err)

	assert.Equal(t, "second reply", resp2.Content)
	assert.Len(t, resp2.Chain().Messages(), 4)
	assert.Len(t, resp2.Chain().Steps(), 2)
}

func TestChain_SystemOverridesInstructionsForThatCallOnly(t *testing.T) {
	c, provider := newTestChain(t, "ok")

	_, err := c.System("overridden instructions").Ask(context.Background(), "hi")
	require.NoError(t, err)
	require.NotEmpty(t, provider.seenSys)
	assert.Equal(t, "overridden instructions", provider.seenSys[len(provider.seenSys)-1])
}

func TestChain_SetVariableAndGetVariable(t *testing.T) {
	c, _ := newTestChain(t)
	c2 := c.SetVariable("user_name", "Ada")

	v, ok := c2.GetVariable("user_name")
	require.True(t, ok)
	assert.Equal(t, "Ada", v)

	_, ok = c.GetVariable("user_name")
	assert.False(t, ok, "original chain must be unaffected by SetVariable")
}

func TestChain_SaveAndLoadContextRoundTrips(t *testing.T) {
	c, _ := newTestChain(t, "remembered reply")
	c = c.SetVariable("topic", "coffee")

	resp, err := c.Ask(context.Background(), "I like lattes")
	require.NoError(t, err)

	path := t.TempDir() + "/context.json"
	require.NoError(t, resp.Chain().SaveContext(path))

	fresh, _ := newTestChain(t)
	loaded, err := fresh.LoadContext(path)
	require.NoError(t, err)

	assert.Equal(t, resp.Chain().Messages(), loaded.Messages())
	assert.Equal(t, resp.Chain().Steps(), loaded.Steps())
	v, ok := loaded.GetVariable("topic")
	require.True(t, ok)
	assert.Equal(t, "coffee", v)
}

func TestChain_LoadContextRejectsUnknownVersion(t *testing.T) {
	path := t.TempDir() + "/bad.json"
	require.NoError(t, os.WriteFile(path, []byte(`{"version":"v99"}`), 0o600))

	c, _ := newTestChain(t)
	_, err := c.LoadContext(path)
	assert.Error(t, err)
}

func TestChain_LoadContextMissingFileFails(t *testing.T) {
	c, _ := newTestChain(t)
	_, err := c.LoadContext(t.TempDir() + "/missing.json")
	assert.Error(t, err)
}
