package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/loomrt/loom/pkg/loomerr"
	"github.com/loomrt/loom/pkg/schema"
)

// MCPServerConfig describes how to reach one MCP server.
type MCPServerConfig struct {
	Name      string
	Transport string // "stdio" or "sse"
	Command   string
	Args      []string
	Env       []string
	URL       string
}

// MCPToolset connects to an MCP server and exposes its tools through
// the Registry, discovered lazily on Connect rather than hand-declared
// — this is how the pack's MCP integrations bridge external tool
// servers into an in-process registry.
type MCPToolset struct {
	cfg   MCPServerConfig
	mu    sync.RWMutex
	inner mcpclient.MCPClient
}

// NewMCPToolset creates an unconnected toolset for cfg.
func NewMCPToolset(cfg MCPServerConfig) *MCPToolset {
	return &MCPToolset{cfg: cfg}
}

// Connect performs the transport handshake and MCP initialize call.
func (m *MCPToolset) Connect(ctx context.Context) error {
	var inner mcpclient.MCPClient
	switch m.cfg.Transport {
	case "stdio":
		cli, err := mcpclient.NewStdioMCPClient(m.cfg.Command, m.cfg.Env, m.cfg.Args...)
		if err != nil {
			return loomerr.New(loomerr.Network, "tool.MCPToolset.Connect", fmt.Errorf("start stdio server %q: %w", m.cfg.Name, err))
		}
		inner = cli
	case "sse":
		cli, err := mcpclient.NewSSEMCPClient(m.cfg.URL)
		if err != nil {
			return loomerr.New(loomerr.Network, "tool.MCPToolset.Connect", err)
		}
		if err := cli.Start(ctx); err != nil {
			return loomerr.New(loomerr.Network, "tool.MCPToolset.Connect", err)
		}
		inner = cli
	default:
		return loomerr.New(loomerr.Validation, "tool.MCPToolset.Connect", fmt.Errorf("unknown transport %q", m.cfg.Transport))
	}

	if _, err := inner.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo:      mcp.Implementation{Name: "loom", Version: "0.1.0"},
		},
	}); err != nil {
		_ = inner.Close()
		return loomerr.New(loomerr.Network, "tool.MCPToolset.Connect", fmt.Errorf("initialize %q: %w", m.cfg.Name, err))
	}

	m.mu.Lock()
	m.inner = inner
	m.mu.Unlock()
	return nil
}

// Close releases the underlying connection.
func (m *MCPToolset) Close() error {
	m.mu.RLock()
	inner := m.inner
	m.mu.RUnlock()
	if inner == nil {
		return nil
	}
	return inner.Close()
}

// Tools discovers and returns the remote tools as loom Tool values.
func (m *MCPToolset) Tools(ctx context.Context) ([]Tool, error) {
	m.mu.RLock()
	inner := m.inner
	m.mu.RUnlock()
	if inner == nil {
		return nil, loomerr.New(loomerr.Validation, "tool.MCPToolset.Tools", fmt.Errorf("toolset %q not connected", m.cfg.Name))
	}

	result, err := inner.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, loomerr.New(loomerr.Network, "tool.MCPToolset.Tools", err)
	}

	out := make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		out = append(out, &mcpTool{toolset: m, name: t.Name, description: t.Description, rawSchema: rawSchemaOf(t.InputSchema)})
	}
	return out, nil
}

func rawSchemaOf(s any) map[string]any {
	b, err := json.Marshal(s)
	if err != nil {
		return map[string]any{}
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return map[string]any{}
	}
	return out
}

type mcpTool struct {
	toolset     *MCPToolset
	name        string
	description string
	rawSchema   map[string]any
}

func (t *mcpTool) ID() string          { return t.name }
func (t *mcpTool) Description() string { return t.description }
func (t *mcpTool) Schema() schema.ToolSchema {
	return schema.ToolSchema{Raw: t.rawSchema, Format: "json-schema"}
}

// SideEffectFree is conservatively false: MCP servers are arbitrary
// external processes whose side effects loom cannot introspect.
func (t *mcpTool) SideEffectFree() bool { return false }

func (t *mcpTool) Execute(ctx Context, args map[string]any) (any, error) {
	t.toolset.mu.RLock()
	inner := t.toolset.inner
	t.toolset.mu.RUnlock()
	if inner == nil {
		return nil, loomerr.New(loomerr.Validation, "tool.mcpTool.Execute", fmt.Errorf("toolset not connected"))
	}

	req := mcp.CallToolRequest{}
	req.Params.Name = t.name
	req.Params.Arguments = args

	result, err := inner.CallTool(ctx.Context, req)
	if err != nil {
		return nil, loomerr.New(loomerr.Tool, "tool.mcpTool.Execute", err)
	}

	var parts []string
	for _, content := range result.Content {
		if tc, ok := content.(mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	text := strings.Join(parts, "\n")
	if result.IsError {
		return nil, loomerr.New(loomerr.Tool, "tool.mcpTool.Execute", fmt.Errorf("%s", text))
	}
	return text, nil
}
