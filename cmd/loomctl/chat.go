package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/loomrt/loom/pkg/chain"
	"github.com/loomrt/loom/pkg/event"
	"github.com/loomrt/loom/pkg/memory"
)

// ChatCmd starts an interactive chain-call session against one
// configured agent: every line read from stdin becomes one Ask() call
// threaded through pkg/chain, so the conversation accumulates as a
// sequence of immutable Chain values rather than mutating session
// state directly. Grounded on the teacher's "hector a2a chat"
// executeChatCommand loop (cmd/hector/commands.go), adapted from an
// A2A network client loop into a local in-process chain loop.
type ChatCmd struct {
	Agent    string `arg:"" help:"Agent name, as defined in the config's agents section."`
	Provider string `help:"Model provider: anthropic or openai (auto-detected from env when omitted)."`
	APIKey   string `name:"api-key" help:"API key (defaults to the provider's standard environment variable)."`
	BaseURL  string `name:"base-url" help:"Custom API base URL."`
	Save     string `help:"Path to save the chain context to on exit." type:"path"`
	Load     string `help:"Path to load a previously saved chain context from." type:"path"`
}

func (c *ChatCmd) Run(cli *CLI) error {
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

	cc := chain.New(exec, sess.SessionID)
	if c.Load != "" {
		loaded, err := cc.LoadContext(c.Load)
		if err != nil {
			return fmt.Errorf("failed to load chain context: %w", err)
		}
		cc = loaded
	}

	fmt.Printf("chat with %s (type /quit to exit, /save to checkpoint)\n", c.Agent)
	scanner := bufio.NewScanner(os.Stdin)
	ctx := context.Background()

	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}
		switch input {
		case "/quit", "/exit":
			return c.maybeSave(cc)
		case "/save":
			if err := c.maybeSave(cc); err != nil {
				fmt.Fprintf(os.Stderr, "save failed: %v\n", err)
			}
			continue
		}

		resp, err := cc.Ask(ctx, input)
		if err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Println(resp.Content)
		cc = resp.Chain()
	}

	return c.maybeSave(cc)
}

func (c *ChatCmd) maybeSave(cc chain.Chain) error {
	if c.Save == "" {
		return nil
	}
	return cc.SaveContext(c.Save)
}
