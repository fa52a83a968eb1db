// Package scheduler implements the reentrant, cancellable DAG walker at the
// heart of taskloop (spec §4.1).
//
// It is deliberately ignorant of task kinds, workspaces, and macros: it
// drives a flat set of Node descriptors (mirroring plan.Node) to completion
// via a caller-supplied StartFunc, reporting per-node start/stop events and a
// single terminal plan outcome. Everything node-kind-specific (composite,
// build, run, vimcmd, ...) lives behind that one function boundary.
//
// Concurrency model: a mutex guards the scheduler state and is held only
// around each state change, never across a callback. Dependency resolution
// with DependsOrder Parallel dispatches synchronously on the calling
// goroutine — runNode either finishes immediately (memoized success, cycle)
// or registers a continuation and returns without blocking, so no
// goroutines are needed to "dispatch" parallel deps. The only genuinely
// asynchronous boundary is leaf execution: StartFunc may return before the
// task finishes, and the eventual onExit callback may arrive from another
// goroutine. That callback re-enters under the lock and re-checks the
// captured run id before mutating any state (spec §5 "scheduler-safe
// adapter").
package scheduler
