package plan

import (
	"sync/atomic"

	"github.com/loopforge/taskloop/internal/task"
)

// idSeq is the process-wide monotonically increasing Plan.ID source (spec
// §3: "plan_id is a monotonically increasing integer assigned by the
// runner").
var idSeq int64

// NextID hands out the next plan identity. Exported so internal/runner can
// label a Plan at the moment it decides to start one, rather than at Build
// time (a plan may be rebuilt for validation without actually running).
func NextID() int64 {
	return atomic.AddInt64(&idSeq, 1)
}

// Build validates the task set and reduces it to the subgraph reachable from
// root, per spec §4.2 "Plan construction":
//
//  1. Build a name→task map; duplicate names fail with "Duplicate task: X".
//  2. DFS from root, tracking visiting (current path) and visited (ever
//     expanded) sets:
//     - visiting[n] on re-entry ⇒ cycle.
//     - visited[n] but not on the current path ⇒ shallow reference, do not
//       re-expand (dedup + preserves scheduler memoization).
//     - unknown name ⇒ "Unknown task: X".
//  3. The output is the reduced node list plus the used task map.
func Build(tasks []task.Task, root string) (*Plan, error) {
	byName := make(map[string]task.Task, len(tasks))
	for _, t := range tasks {
		if _, exists := byName[t.Name]; exists {
			return nil, duplicateTaskErr(t.Name)
		}
		byName[t.Name] = t
	}

	if _, ok := byName[root]; !ok {
		return nil, unknownTaskErr(root)
	}

	visiting := make(map[string]bool)
	visited := make(map[string]bool)
	var nodes []Node
	used := make(map[string]task.Task)

	var dfs func(name string) error
	dfs = func(name string) error {
		if visiting[name] {
			return cycleErr(name)
		}
		if visited[name] {
			return nil
		}
		t, ok := byName[name]
		if !ok {
			return unknownTaskErr(name)
		}

		visiting[name] = true
		for _, dep := range t.Deps {
			if err := dfs(dep); err != nil {
				return err
			}
		}
		visiting[name] = false
		visited[name] = true

		used[name] = t
		nodes = append(nodes, Node{ID: name, Deps: append([]string(nil), t.Deps...), Order: t.EffectiveDependsOrder()})
		return nil
	}

	if err := dfs(root); err != nil {
		return nil, err
	}

	p := &Plan{
		Root:  root,
		Nodes: nodes,
		byID:  make(map[string]Node, len(nodes)),
		Tasks: used,
	}
	for _, n := range nodes {
		p.byID[n.ID] = n
	}
	p.hashed = computeHash(p)
	return p, nil
}
