package config

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
project:
  name: my-ai-app
  version: 0.1.0
  description: Example AI application

agents:
  assistant:
    model: gpt-4
    instructions: You are a helpful assistant
    tools:
      - web_search
      - calculator
    temperature: 0.7
    max_tokens: 2000

  coder:
    model: deepseek-coder
    instructions: You are an expert programmer
    temperature: 0.3

workflows:
  support:
    trigger: user_message
    steps:
      - agent: assistant
        condition: general_query
      - agent: coder
        condition: code_related

rag:
  vector_store: memory
  embeddings: openai
  chunk_size: 1000
  documents:
    - docs/
    - knowledge/

deployment:
  platform: auto
  docker:
    base_image: alpine
    port: 8080
    optimize: true
`

const sampleTOML = `
[project]
name = "my-ai-app"
version = "0.1.0"

[agents.assistant]
model = "gpt-4"
instructions = "You are a helpful assistant"
tools = ["web_search", "calculator"]
temperature = 0.7
max_tokens = 2000

[agents.coder]
model = "deepseek-coder"
instructions = "You are an expert programmer"
temperature = 0.3

[workflows.support]
trigger = "user_message"

[[workflows.support.steps]]
agent = "assistant"
condition = "general_query"

[[workflows.support.steps]]
agent = "coder"
condition = "code_related"

[rag]
vector_store = "memory"
embeddings = "openai"
chunk_size = 1000
documents = ["docs/"]
`

func TestParseAs_YAMLParsesFullDescriptorTree(t *testing.T) {
	cfg, err := ParseAs([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)

	require.NotNil(t, cfg.Project)
	assert.Equal(t, "my-ai-app", cfg.Project.Name)
	assert.Equal(t, "0.1.0", cfg.Project.Version)

	require.Len(t, cfg.Agents, 2)
	assistant, ok := cfg.GetAgent("assistant")
	require.True(t, ok)
	assert.Equal(t, "gpt-4", assistant.Model)
	require.NotNil(t, assistant.Temperature)
	assert.Equal(t, 0.7, *assistant.Temperature)
	assert.Len(t, assistant.Tools, 2)

	require.Len(t, cfg.Workflows, 1)
	support := cfg.Workflows["support"]
	assert.Equal(t, "user_message", support.Trigger)
	require.Len(t, support.Steps, 2)
	assert.Equal(t, "assistant", support.Steps[0].Agent)

	require.NotNil(t, cfg.RAG)
	assert.Equal(t, "memory", cfg.RAG.VectorStore)
	assert.Equal(t, 1000, cfg.RAG.ChunkSize)

	require.NotNil(t, cfg.Deployment)
	require.NotNil(t, cfg.Deployment.Docker)
	assert.Equal(t, 8080, cfg.Deployment.Docker.Port)
}

func TestParseAs_TOMLParsesEquivalentTree(t *testing.T) {
	cfg, err := ParseAs([]byte(sampleTOML), FormatTOML)
	require.NoError(t, err)

	require.NotNil(t, cfg.Project)
	assert.Equal(t, "my-ai-app", cfg.Project.Name)
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "deepseek-coder", cfg.Agents["coder"].Model)

	require.Len(t, cfg.Workflows, 1)
	require.Len(t, cfg.Workflows["support"].Steps, 2)
}

func TestParseAs_YAMLAndTOMLProduceEquivalentProject(t *testing.T) {
	yamlCfg, err := ParseAs([]byte(sampleYAML), FormatYAML)
	require.NoError(t, err)
	tomlCfg, err := ParseAs([]byte(sampleTOML), FormatTOML)
	require.NoError(t, err)

	assert.Equal(t, yamlCfg.Project.Name, tomlCfg.Project.Name)
	assert.Equal(t, len(yamlCfg.Agents), len(tomlCfg.Agents))
}

func TestParseAs_ExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_LOOM_MODEL", "gpt-4-turbo")
	data := []byte(`
agents:
  assistant:
    model: ${TEST_LOOM_MODEL}
    instructions: hi
`)
	cfg, err := ParseAs(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "gpt-4-turbo", cfg.Agents["assistant"].Model)
}

func TestParseAs_EnvVarDefaultAppliesWhenUnset(t *testing.T) {
	data := []byte(`
agents:
  assistant:
    model: ${DEFINITELY_UNSET_LOOM_VAR:-fallback-model}
    instructions: hi
`)
	cfg, err := ParseAs(data, FormatYAML)
	require.NoError(t, err)
	assert.Equal(t, "fallback-model", cfg.Agents["assistant"].Model)
}

func TestFormatFromExtension(t *testing.T) {
	f, ok := FormatFromExtension("yaml")
	require.True(t, ok)
	assert.Equal(t, FormatYAML, f)

	f, ok = FormatFromExtension(".yml")
	require.True(t, ok)
	assert.Equal(t, FormatYAML, f)

	f, ok = FormatFromExtension("toml")
	require.True(t, ok)
	assert.Equal(t, FormatTOML, f)

	_, ok = FormatFromExtension("txt")
	assert.False(t, ok)
}

func TestLoad_ReadsFileFromDisk(t *testing.T) {
	path := t.TempDir() + "/app.yaml"
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "my-ai-app", cfg.Project.Name)
}

func TestLoad_UnknownExtensionFails(t *testing.T) {
	path := t.TempDir() + "/app.ini"
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	report := Validate(cfg, nil)
	assert.True(t, report.IsValid())
}
