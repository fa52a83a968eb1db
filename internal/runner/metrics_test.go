package runner_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopforge/taskloop/internal/provider"
	"github.com/loopforge/taskloop/internal/runner"
	"github.com/loopforge/taskloop/internal/task"
)

func TestMetricsRecordNodeLifecycle(t *testing.T) {
	m := runner.NewMetrics(nil)
	reg := provider.NewRegistry()
	instantKind(reg, "build")
	r := runner.New(reg, m, nil)

	onDone, wait := waitResult(t)
	r.Run([]task.Task{{Name: "a", Kind: "build"}}, "a", runner.RunOptions{}, onDone)
	res := wait()
	require.NoError(t, res.Err)

	families, err := m.Registry().Gather()
	require.NoError(t, err)

	found := false
	for _, f := range families {
		if f.GetName() == "taskloop_runner_nodes_finished_total" {
			found = true
		}
	}
	assert.True(t, found, "expected nodes_finished_total metric family to be registered and populated")
}
