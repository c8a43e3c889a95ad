package loader_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/promptloom/promptloom/pkg/loader"
)

const sampleYAML = `
name: greeting-pipeline
context:
  name: Ada
agents:
  - name: greeter
    system_context: "You greet people."
    responses: ["Hello Ada"]
  - name: translator
    system_context: "You translate greetings."
matrix:
  - ["Greet {name}", ""]
  - ["", "Translate: {Agent_0_Step_0_response}"]
`

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFile_YAML(t *testing.T) {
	cfg, err := loader.LoadFile(writeTemp(t, "chain.yaml", sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "greeting-pipeline", cfg.Name)
	require.Len(t, cfg.Agents, 2)
	assert.Equal(t, "greeter", cfg.Agents[0].Name)
	assert.Equal(t, []string{"Hello Ada"}, cfg.Agents[0].Responses)
	assert.Equal(t, "Ada", cfg.Context["name"])
	require.Len(t, cfg.Matrix, 2)
}

func TestLoadFile_JSON(t *testing.T) {
	content := `{
		"name": "json-chain",
		"agents": [{"name": "solo"}],
		"matrix": [["hello"]]
	}`
	cfg, err := loader.LoadFile(writeTemp(t, "chain.json", content))
	require.NoError(t, err)
	assert.Equal(t, "json-chain", cfg.Name)
	require.Len(t, cfg.Agents, 1)
}

func TestLoadFile_AgentRowMismatch(t *testing.T) {
	content := `
agents:
  - name: only-one
matrix:
  - ["a"]
  - ["b"]
`
	_, err := loader.LoadFile(writeTemp(t, "bad.yaml", content))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 agents for 2 matrix rows")
}

func TestBuild_RunsChain(t *testing.T) {
	cfg, err := loader.LoadFile(writeTemp(t, "chain.yaml", sampleYAML))
	require.NoError(t, err)

	mc, agents, err := cfg.Build()
	require.NoError(t, err)
	mc.BuildDependencies()
	require.NoError(t, mc.Execute(context.Background(), false))

	// Row 0 column 0 runs the scripted response, row 1 column 1 echoes.
	require.Len(t, agents[0].Prompts(), 1)
	assert.Equal(t, "Greet Ada", agents[0].Prompts()[0])

	require.Len(t, agents[1].Prompts(), 1)
	assert.Equal(t, "Translate: Hello Ada", agents[1].Prompts()[0])

	cell, err := mc.Responses().Cell(0, 0)
	require.NoError(t, err)
	assert.True(t, cell.OK)
	assert.Equal(t, "Hello Ada", cell.Value)
}
