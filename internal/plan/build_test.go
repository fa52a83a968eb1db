package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopforge/taskloop/internal/plan"
	"github.com/loopforge/taskloop/internal/task"
)

func mkTask(name string, deps ...string) task.Task {
	return task.Task{Name: name, Kind: task.CompositeKind, Deps: deps}
}

func TestBuildLinearChain(t *testing.T) {
	tasks := []task.Task{mkTask("a"), mkTask("b", "a"), mkTask("c", "b")}
	p, err := plan.Build(tasks, "c")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b", "c"}, p.UsedNames())
}

func TestBuildDiamondDedup(t *testing.T) {
	tasks := []task.Task{
		mkTask("a"),
		mkTask("b", "a"),
		mkTask("c", "a"),
		{Name: "d", Kind: task.CompositeKind, Deps: []string{"b", "c"}, DependsOrder: task.Parallel},
	}
	p, err := plan.Build(tasks, "d")
	require.NoError(t, err)
	assert.Len(t, p.Nodes, 4, "a must not be duplicated in the reduced node list")
}

func TestBuildDuplicateTaskName(t *testing.T) {
	tasks := []task.Task{mkTask("a"), mkTask("a")}
	_, err := plan.Build(tasks, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Duplicate task: a")
}

func TestBuildUnknownRoot(t *testing.T) {
	_, err := plan.Build(nil, "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown task: missing")
}

func TestBuildUnknownDep(t *testing.T) {
	tasks := []task.Task{mkTask("a", "ghost")}
	_, err := plan.Build(tasks, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Unknown task: ghost")
}

func TestBuildCycle(t *testing.T) {
	tasks := []task.Task{mkTask("a", "b"), mkTask("b", "a")}
	_, err := plan.Build(tasks, "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Task dependency loop detected in task:")
}

func TestHashStableAcrossInputOrder(t *testing.T) {
	t1 := []task.Task{mkTask("a"), mkTask("b", "a")}
	t2 := []task.Task{mkTask("b", "a"), mkTask("a")}
	p1, err := plan.Build(t1, "b")
	require.NoError(t, err)
	p2, err := plan.Build(t2, "b")
	require.NoError(t, err)
	assert.Equal(t, p1.Hash(), p2.Hash())
}

func TestNextIDMonotonic(t *testing.T) {
	a := plan.NextID()
	b := plan.NextID()
	assert.Less(t, a, b)
}
