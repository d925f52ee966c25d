package main

import (
	"context"
	"fmt"

	"github.com/loomrt/loom/pkg/agent"
	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/memory"
)

// RunCmd executes a single agent turn and prints the response,
// matching the one-shot call shape of the teacher's "hector info" /
// zero-config serve path, collapsed into a single non-interactive
// command since loomctl has no long-running server.
type RunCmd struct {
	Agent    string `arg:"" help:"Agent name, as defined in the config's agents section."`
	Input    string `arg:"" help:"Input message to send the agent."`
	Provider string `help:"Model provider: anthropic or openai (auto-detected from env when omitted)."`
	APIKey   string `name:"api-key" help:"API key (defaults to the provider's standard environment variable)."`
	BaseURL  string `name:"base-url" help:"Custom API base URL."`
}

func (c *RunCmd) Run(cli *CLI) error {
	cfg, err := loadConfig(cli.Config)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	bus := event.NewBus()
	store := memory.NewInMemoryStore()

	exec, err := buildExecutor(cfg, c.Agent, providerFlags{Provider: c.Provider, APIKey: c.APIKey, BaseURL: c.BaseURL}, store, bus)
	if err != nil {
		return err
	}

	sess, err := store.CreateSession(c.Agent, "loomctl")
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	result, err := exec.Generate(context.Background(), sess.SessionID, c.Input, agent.CallOptions{})
	if err != nil {
		return fmt.Errorf("agent turn failed: %w", err)
	}

	fmt.Println(result.Response)
	fmt.Printf("\n[tokens: %d prompt, %d completion, %d total]\n",
		result.Usage.PromptTokens, result.Usage.CompletionTokens, result.Usage.TotalTokens)
	return nil
}
