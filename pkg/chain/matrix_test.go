package chain_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/promptloom/promptloom/pkg/adapters/scripted"
	"github.com/promptloom/promptloom/pkg/chain"
	"github.com/promptloom/promptloom/pkg/domain"
	"github.com/promptloom/promptloom/pkg/ports"
	"github.com/promptloom/promptloom/pkg/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustMatrix(t *testing.T, rows [][]string) *domain.PromptMatrix {
	t.Helper()
	m, err := domain.NewPromptMatrix(rows)
	require.NoError(t, err)
	return m
}

func echoAgents(n int) ([]ports.Agent, []*scripted.Agent) {
	agents := make([]ports.Agent, n)
	raw := make([]*scripted.Agent, n)
	for i := range agents {
		a := scripted.New("agent", "")
		agents[i] = a
		raw[i] = a
	}
	return agents, raw
}

func TestMatrixChain_BuildDependencies_FullMatrix(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"a0", "a1", "a2"},
		{"b0", "b1", "b2"},
	})
	agents, _ := echoAgents(2)
	c, err := chain.NewMatrixChain(m, agents)
	require.NoError(t, err)

	c.BuildDependencies()
	steps := c.Steps()

	// A rows x S columns with no empty cells yields exactly A*S steps.
	require.Len(t, steps, 6)

	// Canonical ordering: all of column 0 in agent order, then column 1, ...
	want := []domain.StepRef{
		{Agent: 0, Step: 0}, {Agent: 1, Step: 0},
		{Agent: 0, Step: 1}, {Agent: 1, Step: 1},
		{Agent: 0, Step: 2}, {Agent: 1, Step: 2},
	}
	refs := make(map[string]bool)
	for k, step := range steps {
		require.NotNil(t, step.At)
		assert.Equal(t, want[k], *step.At, "step %d out of order", k)
		assert.False(t, refs[step.Ref], "duplicate ref %s", step.Ref)
		refs[step.Ref] = true
	}
}

func TestMatrixChain_BuildDependencies_SkipsEmptyCells(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"a0", "", "a2"},
		{"", "b1", "b2"},
	})
	agents, _ := echoAgents(2)
	c, err := chain.NewMatrixChain(m, agents)
	require.NoError(t, err)

	c.BuildDependencies()
	steps := c.Steps()
	require.Len(t, steps, 4)
	assert.Equal(t, "Agent_0_Step_0", steps[0].Key)
	assert.Equal(t, "Agent_1_Step_1", steps[1].Key)
	assert.Equal(t, "Agent_0_Step_2", steps[2].Key)
	assert.Equal(t, "Agent_1_Step_2", steps[3].Key)
}

// markerResolver fails any column containing "boom", otherwise defers to the
// identity ordering.
type markerResolver struct{}

func (markerResolver) ResolveColumn(column []string) ([]int, error) {
	for _, cell := range column {
		if strings.Contains(cell, "boom") {
			return nil, errors.New("unresolvable column")
		}
	}
	return ports.IdentityResolver{}.ResolveColumn(column)
}

func TestMatrixChain_BuildDependencies_ResolverFailureSkipsColumnOnly(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"a0", "boom", "a2"},
		{"b0", "b1", "b2"},
	})
	agents, _ := echoAgents(2)
	c, err := chain.NewMatrixChain(m, agents, chain.WithResolver(markerResolver{}))
	require.NoError(t, err)

	c.BuildDependencies()
	steps := c.Steps()

	// Column 1 contributes zero steps; columns 0 and 2 are unaffected.
	require.Len(t, steps, 4)
	for _, step := range steps {
		assert.NotEqual(t, 1, step.At.Step, "column 1 must be skipped")
	}
}

// reverseResolver orders agents bottom to top.
type reverseResolver struct{}

func (reverseResolver) ResolveColumn(column []string) ([]int, error) {
	order := make([]int, len(column))
	for i := range order {
		order[i] = len(column) - 1 - i
	}
	return order, nil
}

func TestMatrixChain_BuildDependencies_ResolverOrderIsHonored(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"a0"},
		{"b0"},
	})
	agents, _ := echoAgents(2)
	c, err := chain.NewMatrixChain(m, agents, chain.WithResolver(reverseResolver{}))
	require.NoError(t, err)

	c.BuildDependencies()
	steps := c.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, 1, steps[0].At.Agent)
	assert.Equal(t, 0, steps[1].At.Agent)
}

func TestMatrixChain_Execute_DispatchesResolvedPrompts(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"Hello {name}"},
		{"Hi {name}"},
	})
	tctx := template.NewContext(map[string]any{"name": "Ada"})

	a0 := scripted.New("first", "")
	a1 := scripted.New("second", "")
	c, err := chain.NewMatrixChain(m, []ports.Agent{a0, a1}, chain.WithContext(tctx))
	require.NoError(t, err)

	require.NoError(t, c.Execute(context.Background(), true))

	assert.Equal(t, []string{"Hello Ada"}, a0.Prompts())
	assert.Equal(t, []string{"Hi Ada"}, a1.Prompts())

	cell, err := c.Responses().Cell(0, 0)
	require.NoError(t, err)
	assert.True(t, cell.OK)
	assert.Equal(t, "[first] Hello Ada", cell.Value)

	assert.Equal(t, "[second] Hi Ada", tctx.GetValue("Agent_1_Step_0_response"))
}

func TestMatrixChain_Execute_CrossColumnReference(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"seed", "expand on {Agent_0_Step_0_response}"},
	})
	a := scripted.New("solo", "", scripted.Texts("first answer", "second answer")...)
	c, err := chain.NewMatrixChain(m, []ports.Agent{a})
	require.NoError(t, err)

	require.NoError(t, c.Execute(context.Background(), true))

	prompts := a.Prompts()
	require.Len(t, prompts, 2)
	assert.Equal(t, "expand on first answer", prompts[1])
}

func TestMatrixChain_ExecuteNextStep_MatchesExecute(t *testing.T) {
	rows := [][]string{
		{"p00 {name}", "p01"},
		{"p10", "p11 {name}"},
	}
	seed := map[string]any{"name": "Ada"}

	// Chain A: run all at once.
	aAgents, _ := echoAgents(2)
	all, err := chain.NewMatrixChain(mustMatrix(t, rows), aAgents,
		chain.WithContext(template.NewContext(seed)))
	require.NoError(t, err)
	require.NoError(t, all.Execute(context.Background(), true))

	// Chain B: drive step by step.
	bAgents, _ := echoAgents(2)
	stepped, err := chain.NewMatrixChain(mustMatrix(t, rows), bAgents,
		chain.WithContext(template.NewContext(seed)))
	require.NoError(t, err)
	stepped.BuildDependencies()

	for i := 0; i < stepped.StepCount(); i++ {
		done, err := stepped.ExecuteNextStep(context.Background())
		require.NoError(t, err)
		assert.Equal(t, i == stepped.StepCount()-1, done)
	}

	assert.Equal(t, all.Context().Snapshot(), stepped.Context().Snapshot())
	assert.Equal(t, all.Responses().Snapshot(), stepped.Responses().Snapshot())

	// Further calls are no-ops with a completion signal.
	done, err := stepped.ExecuteNextStep(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, domain.StatusComplete, stepped.Status())
}

func TestMatrixChain_ScopedSystemContext(t *testing.T) {
	m := mustMatrix(t, [][]string{{"prompt"}})
	a := scripted.New("styled", "You serve {name}")
	tctx := template.NewContext(map[string]any{"name": "Ada"})

	c, err := chain.NewMatrixChain(m, []ports.Agent{a}, chain.WithContext(tctx))
	require.NoError(t, err)
	require.NoError(t, c.Execute(context.Background(), true))

	// During the call the agent saw the interpolated template; afterwards the
	// original is restored.
	assert.Equal(t, []string{"You serve Ada"}, a.SeenSystemContexts())
	assert.Equal(t, "You serve {name}", a.SystemContext())
}

func TestMatrixChain_SystemContextRestoredOnFailure(t *testing.T) {
	m := mustMatrix(t, [][]string{{"prompt"}})
	a := scripted.New("flaky", "You serve {name}", scripted.Response{Err: errors.New("model down")})
	tctx := template.NewContext(map[string]any{"name": "Ada"})

	c, err := chain.NewMatrixChain(m, []ports.Agent{a}, chain.WithContext(tctx))
	require.NoError(t, err)

	err = c.Execute(context.Background(), true)
	require.Error(t, err)
	assert.Equal(t, "You serve {name}", a.SystemContext(),
		"a failing generation must not leave the agent's system context corrupted")
}

func TestMatrixChain_FailingStepIsRetriedInPlace(t *testing.T) {
	m := mustMatrix(t, [][]string{{"prompt"}})
	a := scripted.New("flaky", "",
		scripted.Response{Err: errors.New("transient")},
		scripted.Response{Text: "recovered"},
	)
	c, err := chain.NewMatrixChain(m, []ports.Agent{a})
	require.NoError(t, err)
	c.BuildDependencies()

	done, err := c.ExecuteNextStep(context.Background())
	require.Error(t, err)
	assert.False(t, done)
	assert.Equal(t, 0, c.Cursor(), "cursor must not advance past a failing step")

	done, err = c.ExecuteNextStep(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, 1, c.Cursor())

	cell, err := c.Responses().Cell(0, 0)
	require.NoError(t, err)
	assert.Equal(t, "recovered", cell.Value)
}

func TestMatrixChain_StatusLifecycle(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"a", "b"},
	})
	agents, _ := echoAgents(1)
	c, err := chain.NewMatrixChain(m, agents)
	require.NoError(t, err)

	assert.Equal(t, domain.StatusBuilt, c.Status())

	c.BuildDependencies()
	assert.Equal(t, domain.StatusBuilt, c.Status())
	assert.Equal(t, 0, c.Cursor())

	_, err = c.ExecuteNextStep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, domain.StatusRunning, c.Status())

	done, err := c.ExecuteNextStep(context.Background())
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, domain.StatusComplete, c.Status())

	// Rebuilding returns to Built with a reset cursor.
	c.BuildDependencies()
	assert.Equal(t, domain.StatusBuilt, c.Status())
	assert.Equal(t, 0, c.Cursor())
}

func TestMatrixChain_RerunOverwritesResponses(t *testing.T) {
	m := mustMatrix(t, [][]string{{"prompt"}})
	a := scripted.New("twice", "", scripted.Texts("first pass", "second pass")...)
	c, err := chain.NewMatrixChain(m, []ports.Agent{a})
	require.NoError(t, err)

	require.NoError(t, c.Execute(context.Background(), true))
	cell, _ := c.Responses().Cell(0, 0)
	assert.Equal(t, "first pass", cell.Value)

	require.NoError(t, c.Execute(context.Background(), true))
	cell, _ = c.Responses().Cell(0, 0)
	assert.Equal(t, "second pass", cell.Value)
}

func TestNewMatrixChain_AgentCountMismatch(t *testing.T) {
	m := mustMatrix(t, [][]string{
		{"a"},
		{"b"},
	})
	agents, _ := echoAgents(1)
	_, err := chain.NewMatrixChain(m, agents)
	assert.ErrorIs(t, err, domain.ErrAgentCount)
}
