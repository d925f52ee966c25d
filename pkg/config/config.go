// Package config implements the §4.11 configuration loader: two
// equivalent text syntaxes (YAML and TOML) both deserializing into the
// same descriptor tree, plus the validation rules that check a loaded
// tree before anything downstream (C7's Builder, C9's workflow.Build)
// is asked to act on it.
package config

// Config is the top-level descriptor tree every text format decodes
// into, per §4.11: `{ project?, agents, workflows, rag?, deployment? }`.
type Config struct {
	Project    *ProjectDescriptor            `yaml:"project"`
	Agents     map[string]AgentDescriptor    `yaml:"agents"`
	Workflows  map[string]WorkflowDescriptor `yaml:"workflows"`
	RAG        *RAGDescriptor                `yaml:"rag"`
	Deployment *DeploymentDescriptor         `yaml:"deployment"`
}

// ProjectDescriptor names and versions the project a Config belongs to.
type ProjectDescriptor struct {
	Name        string `yaml:"name"`
	Version     string `yaml:"version"`
	Description string `yaml:"description"`
}

// AgentDescriptor is one entry of Config.Agents: enough to build a C7
// agent.Config from once a model.Provider and tool.Registry are wired
// in by the caller.
type AgentDescriptor struct {
	Model        string   `yaml:"model"`
	Instructions string   `yaml:"instructions"`
	Tools        []string `yaml:"tools"`
	Temperature  *float64 `yaml:"temperature"`
	MaxTokens    *int     `yaml:"max_tokens"`
}

// WorkflowDescriptor is one entry of Config.Workflows: a trigger label
// plus an ordered list of agent-backed steps.
type WorkflowDescriptor struct {
	Trigger string                   `yaml:"trigger"`
	Steps   []WorkflowStepDescriptor `yaml:"steps"`
}

// WorkflowStepDescriptor names the agent a workflow step delegates to
// and an optional condition label gating it.
type WorkflowStepDescriptor struct {
	Agent     string `yaml:"agent"`
	Condition string `yaml:"condition"`
}

// RAGDescriptor configures the C8 vector store and chunking policy a
// config-driven app should wire up.
type RAGDescriptor struct {
	VectorStore string   `yaml:"vector_store"`
	Embeddings  string   `yaml:"embeddings"`
	ChunkSize   int      `yaml:"chunk_size"`
	Documents   []string `yaml:"documents"`
}

// DeploymentDescriptor is opaque deployment-target metadata the loader
// only parses and validates the shape of; it is not acted on by any
// in-scope component (§1 "enterprise... marketplace" is out of scope).
type DeploymentDescriptor struct {
	Platform string            `yaml:"platform"`
	Docker   *DockerDescriptor `yaml:"docker"`
}

// DockerDescriptor is the docker-specific sub-table of DeploymentDescriptor.
type DockerDescriptor struct {
	BaseImage string `yaml:"base_image"`
	Port      int    `yaml:"port"`
	Optimize  bool   `yaml:"optimize"`
}

// Default returns a minimal, valid Config: a placeholder project and a
// single "assistant" agent, matching the original implementation's
// YamlConfig::default() used as the baseline for config-driven app
// construction and for the config_validation example tests.
func Default() *Config {
	return &Config{
		Project: &ProjectDescriptor{Name: "my-ai-app", Version: "0.1.0"},
		Agents: map[string]AgentDescriptor{
			"assistant": {Model: "gpt-4", Instructions: "You are a helpful assistant"},
		},
	}
}

// ListAgents returns the configured agent names.
func (c *Config) ListAgents() []string {
	names := make([]string, 0, len(c.Agents))
	for name := range c.Agents {
		names = append(names, name)
	}
	return names
}

// ListWorkflows returns the configured workflow names.
func (c *Config) ListWorkflows() []string {
	names := make([]string, 0, len(c.Workflows))
	for name := range c.Workflows {
		names = append(names, name)
	}
	return names
}

// GetAgent looks up an agent descriptor by name.
func (c *Config) GetAgent(name string) (AgentDescriptor, bool) {
	d, ok := c.Agents[name]
	return d, ok
}
