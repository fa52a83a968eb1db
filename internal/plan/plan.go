// Package plan builds the reduced, reachable task subgraph for one root and
// exposes it to the scheduler as a flat list of Node descriptors.
//
// It is intentionally split the way the teacher's dag package splits graph
// definition from execution state: Node/Plan here are immutable once built;
// runtime state (visiting/done/running) belongs to package scheduler.
package plan

import (
	"fmt"
	"sort"

	"github.com/loopforge/taskloop/internal/task"
)

// Node is the scheduler's view of one task within a plan: the task name
// (its id), its dependency ids, and its launch order.
type Node struct {
	ID    string
	Deps  []string
	Order task.DependsOrder
}

// Plan is one reduction of a task set from a chosen root: the tasks reachable
// from root (used_tasks), laid out as Nodes, plus a monotonically increasing
// identity assigned by the runner.
type Plan struct {
	ID     int64
	Root   string
	Nodes  []Node
	byID   map[string]Node
	Tasks  map[string]task.Task // used_tasks, by name
	hashed string
}

// Node looks up a node by id.
func (p *Plan) Node(id string) (Node, bool) {
	n, ok := p.byID[id]
	return n, ok
}

// Task looks up the full task record backing a node.
func (p *Plan) Task(id string) (task.Task, bool) {
	t, ok := p.Tasks[id]
	return t, ok
}

// UsedNames returns the reduced set's task names in canonical (sorted) order.
func (p *Plan) UsedNames() []string {
	out := make([]string, 0, len(p.Tasks))
	for name := range p.Tasks {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// errNode is returned by Build for the planning-time error taxonomy named in
// spec §7 (PlanBuildError): duplicate names, unknown references, cycles.
type errNode struct {
	msg string
}

func (e *errNode) Error() string { return e.msg }

func duplicateTaskErr(name string) error {
	return &errNode{msg: fmt.Sprintf("Duplicate task: %s", name)}
}

func unknownTaskErr(name string) error {
	return &errNode{msg: fmt.Sprintf("Unknown task: %s", name)}
}

func cycleErr(name string) error {
	return &errNode{msg: fmt.Sprintf("Task dependency loop detected in task: %s", name)}
}
