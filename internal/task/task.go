// Package task defines the input data model: the Task entity loaded from a
// workspace's tasks.json and immutable from that point on.
package task

import "fmt"

// DependsOrder governs how a task's Deps are launched relative to each other.
type DependsOrder string

const (
	// Sequence runs Deps left to right; the first failure short-circuits.
	Sequence DependsOrder = "sequence"
	// Parallel dispatches all Deps concurrently.
	Parallel DependsOrder = "parallel"
)

// Concurrency governs behavior when another plan already has a running
// instance of the same task name.
type Concurrency string

const (
	// Restart terminates every other plan's instance of this task name
	// before starting a fresh one in the requesting plan.
	Restart Concurrency = "restart"
	// Refuse fails the node if any other plan has this task name running.
	Refuse Concurrency = "refuse"
	// RunParallel starts immediately regardless of other plans.
	RunParallel Concurrency = "parallel"
)

// Task is an immutable, named unit of work with dependencies and a kind.
//
// A Task is opaque to the Scheduler: the scheduler only ever sees it reduced
// to a Node (see package plan). The kind-specific payload is carried as a
// free-form map so that extension-provided kinds can add fields the core
// never has to know about.
type Task struct {
	Name         string       `json:"name"`
	Kind         string       `json:"type"`
	Deps         []string     `json:"depends_on,omitempty"`
	DependsOrder DependsOrder `json:"depends_order,omitempty"`
	Concurrency  Concurrency  `json:"concurrency,omitempty"`
	SaveBuffers  bool         `json:"save_buffers,omitempty"`

	// Payload holds kind-specific fields (command, cwd, env, ...), opaque to
	// the scheduler and runner. Providers type-assert/unmarshal it themselves.
	Payload map[string]any `json:"-"`
}

// EffectiveDependsOrder returns the task's DependsOrder, defaulting to
// Sequence per spec §3.
func (t Task) EffectiveDependsOrder() DependsOrder {
	if t.DependsOrder == "" {
		return Sequence
	}
	return t.DependsOrder
}

// EffectiveConcurrency returns the task's Concurrency, defaulting to Restart
// per spec §3/§4.2.
func (t Task) EffectiveConcurrency() Concurrency {
	if t.Concurrency == "" {
		return Restart
	}
	return t.Concurrency
}

// Validate checks the fields the core cares about. Kind-specific payload
// validation is left to the provider; internal/workspace/schema checks only
// the core fields and lets any other key through.
func (t Task) Validate() error {
	if t.Name == "" {
		return fmt.Errorf("task: name is required")
	}
	if t.Kind == "" {
		return fmt.Errorf("task %q: type is required", t.Name)
	}
	switch t.DependsOrder {
	case "", Sequence, Parallel:
	default:
		return fmt.Errorf("task %q: invalid depends_order %q", t.Name, t.DependsOrder)
	}
	switch t.Concurrency {
	case "", Restart, Refuse, RunParallel:
	default:
		return fmt.Errorf("task %q: invalid concurrency %q", t.Name, t.Concurrency)
	}
	return nil
}

// CompositeKind is the built-in kind whose semantics come entirely from its
// Deps (spec §4.4 / §9 Open Questions).
const CompositeKind = "composite"
