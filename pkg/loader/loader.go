// Package loader reads chain definition files and turns them into runnable
// matrix chains backed by scripted agents.
package loader

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/promptloom/promptloom/pkg/adapters/scripted"
	"github.com/promptloom/promptloom/pkg/chain"
	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/promptloom/promptloom/pkg/ports"
	"github.com/promptloom/promptloom/pkg/template"
)

// AgentConfig declares one agent row of a chain file.
type AgentConfig struct {
	Name          string   `json:"name" mapstructure:"name"`
	SystemContext string   `json:"system_context" mapstructure:"system_context"`
	Responses     []string `json:"responses" mapstructure:"responses"`
}

// ChainFile is the parsed form of a chain definition (YAML or JSON).
type ChainFile struct {
	Name    string         `json:"name" mapstructure:"name"`
	Agents  []AgentConfig  `json:"agents" mapstructure:"agents"`
	Matrix  [][]string     `json:"matrix" mapstructure:"matrix"`
	Context map[string]any `json:"context" mapstructure:"context"`
}

// LoadFile reads and parses a chain definition file. The extension selects
// the format; anything that is not .json is treated as YAML.
func LoadFile(path string) (*ChainFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read chain file: %w", err)
	}
	return Parse(data, strings.ToLower(filepath.Ext(path)))
}

// Parse decodes raw chain file bytes. Decoding happens in two stages: the
// format codec produces a generic map, and mapstructure maps it onto the
// typed config so both formats share one set of field names.
func Parse(data []byte, ext string) (*ChainFile, error) {
	var raw map[string]any
	if ext == ".json" {
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse chain file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &raw); err != nil {
			return nil, fmt.Errorf("failed to parse chain file: %w", err)
		}
	}

	var cfg ChainFile
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return nil, fmt.Errorf("invalid chain file structure: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (f *ChainFile) validate() error {
	if len(f.Matrix) == 0 {
		return fmt.Errorf("chain file declares no matrix rows")
	}
	if len(f.Agents) != len(f.Matrix) {
		return fmt.Errorf("chain file declares %d agents for %d matrix rows", len(f.Agents), len(f.Matrix))
	}
	for i, agent := range f.Agents {
		if agent.Name == "" {
			return fmt.Errorf("agent %d has no name", i)
		}
	}
	return nil
}

// Build assembles the matrix chain described by the file. The returned
// agents are the concrete scripted instances, in row order, so callers can
// inspect prompts and responses after a run.
func (f *ChainFile) Build(opts ...chain.MatrixOption) (*chain.MatrixChain, []*scripted.Agent, error) {
	matrix, err := domain.NewPromptMatrix(f.Matrix)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid prompt matrix: %w", err)
	}

	agents := make([]*scripted.Agent, len(f.Agents))
	rows := make([]ports.Agent, len(f.Agents))
	for i, cfg := range f.Agents {
		agents[i] = scripted.New(cfg.Name, cfg.SystemContext, scripted.Texts(cfg.Responses...)...)
		rows[i] = agents[i]
	}

	if len(f.Context) > 0 {
		opts = append([]chain.MatrixOption{chain.WithContext(template.NewContext(f.Context))}, opts...)
	}

	mc, err := chain.NewMatrixChain(matrix, rows, opts...)
	if err != nil {
		return nil, nil, err
	}
	return mc, agents, nil
}
