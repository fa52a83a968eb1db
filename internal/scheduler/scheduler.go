package scheduler

import (
	"sync"

	"github.com/google/uuid"

	"github.com/loopforge/taskloop/internal/task"
)

// continuation is invoked with the outcome of one node's start+settle. It is
// the unit the inflight map coalesces: every caller waiting on the same node
// id gets the exact same (ok, trigger, param) fanned to it.
type continuation func(ok bool, trigger, param string)

// node is the scheduler's internal view of a plan.Node: just enough to walk
// dependencies (id, deps, launch order) without knowing anything about task
// kinds.
type node struct {
	id    string
	deps  []string
	order task.DependsOrder
}

// Scheduler drives one node set to completion at a time (spec §4.1). It is
// reentrant: once a run reaches quiescence it resets to idle and Start may
// be called again.
type Scheduler struct {
	mu sync.Mutex

	nodes      map[string]node
	start      StartFunc
	onEvent    EventFunc
	onPlanExit PlanExitFunc

	active      bool
	terminating bool
	runID       uuid.UUID

	visiting       map[string]bool
	done           map[string]bool
	inflight       map[string][]continuation
	running        map[string]Control
	pendingRunning int
}

// New returns an idle Scheduler.
func New() *Scheduler {
	return &Scheduler{}
}

// IsRunning reports whether a plan is active and not draining.
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && !s.terminating
}

// IsTerminating reports whether a plan is actively draining after Terminate.
func (s *Scheduler) IsTerminating() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active && s.terminating
}

// IsTerminated reports whether the scheduler has reached idle.
func (s *Scheduler) IsTerminated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.active
}

// Start begins a run over nodes, rooted at root. All reporting happens via
// onEvent (per-node) and onPlanExit (once, terminal). If a run is already
// active, Start fails synchronously with TriggerInterrupt and does not
// disturb the active run.
func (s *Scheduler) Start(nodes []Node, root string, start StartFunc, onEvent EventFunc, onPlanExit PlanExitFunc) {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		onPlanExit(false, TriggerInterrupt, "a plan is already running")
		return
	}

	byID := make(map[string]node, len(nodes))
	for _, n := range nodes {
		byID[n.ID] = node{id: n.ID, deps: n.Deps, order: n.Order}
	}

	s.nodes = byID
	s.start = start
	s.onEvent = onEvent
	s.onPlanExit = onPlanExit
	s.active = true
	s.terminating = false
	s.runID = uuid.New()
	s.visiting = make(map[string]bool)
	s.done = make(map[string]bool)
	s.inflight = make(map[string][]continuation)
	s.running = make(map[string]Control)
	s.pendingRunning = 0
	runID := s.runID
	s.mu.Unlock()

	s.runNode(runID, root, func(ok bool, trigger, param string) {
		onPlanExit(ok, trigger, param)
	})
}

// Terminate is idempotent. It marks the run terminating, terminates every
// running leaf, and lets ordinary dependency-resolution checks (in runNode
// and startLeaf) reject anything not yet started with TriggerInterrupt. It
// does not call onPlanExit directly — the ordinary exit path closes the plan
// once the last leaf reports (spec §4.1).
func (s *Scheduler) Terminate() {
	s.mu.Lock()
	if !s.active || s.terminating {
		s.mu.Unlock()
		return
	}
	s.terminating = true
	controls := make([]Control, 0, len(s.running))
	for _, c := range s.running {
		controls = append(controls, c)
	}
	quiesce := s.checkQuiescenceLocked()
	s.mu.Unlock()

	for _, c := range controls {
		c.Terminate()
	}
	if quiesce {
		s.goIdle()
	}
}

// Node is the public node descriptor accepted by Start. It mirrors
// plan.Node so package scheduler has no import dependency on package plan.
type Node struct {
	ID    string
	Deps  []string
	Order task.DependsOrder
}

func (s *Scheduler) emit(id string, ev Event, ok bool, trigger, param string) {
	s.mu.Lock()
	onEvent := s.onEvent
	s.mu.Unlock()
	if onEvent != nil {
		onEvent(id, ev, ok, trigger, param)
	}
}

// runNode implements spec §4.1 "Algorithm — node execution".
func (s *Scheduler) runNode(runID uuid.UUID, id string, cont continuation) {
	s.mu.Lock()
	if s.terminating || runID != s.runID {
		s.mu.Unlock()
		cont(false, TriggerInterrupt, "")
		return
	}
	if s.done[id] {
		s.mu.Unlock()
		s.emit(id, EventStop, true, "", "")
		cont(true, "", "")
		return
	}
	if s.visiting[id] {
		s.mu.Unlock()
		s.emit(id, EventStop, false, TriggerCycle, id)
		cont(false, TriggerCycle, id)
		return
	}
	if conts, ok := s.inflight[id]; ok {
		s.inflight[id] = append(conts, cont)
		s.mu.Unlock()
		return
	}

	s.visiting[id] = true
	s.inflight[id] = []continuation{cont}
	n, ok := s.nodes[id]
	s.mu.Unlock()

	if !ok {
		s.failDependencyResolution(runID, id, TriggerInvalidNode, id)
		return
	}
	s.resolveDeps(runID, id, n)
}

func (s *Scheduler) resolveDeps(runID uuid.UUID, id string, n node) {
	if len(n.deps) == 0 {
		s.depsResolved(runID, id, true, "", "")
		return
	}
	if n.order == task.Parallel {
		s.resolveParallel(runID, id, n.deps)
		return
	}
	s.resolveSequence(runID, id, n.deps, 0)
}

func (s *Scheduler) resolveSequence(runID uuid.UUID, id string, deps []string, idx int) {
	if idx >= len(deps) {
		s.depsResolved(runID, id, true, "", "")
		return
	}
	dep := deps[idx]
	s.runNode(runID, dep, func(ok bool, trigger, param string) {
		if !ok {
			s.depsResolved(runID, id, false, trigger, param)
			return
		}
		s.resolveSequence(runID, id, deps, idx+1)
	})
}

// parallelJoin tracks completion of a Parallel dependency group: the first
// failure short-circuits (already-running siblings are not pre-emptively
// terminated), success requires every dep to succeed.
type parallelJoin struct {
	mu        sync.Mutex
	remaining int
	fired     bool
	trigger   string
	param     string
}

func (s *Scheduler) resolveParallel(runID uuid.UUID, id string, deps []string) {
	join := &parallelJoin{remaining: len(deps)}
	for _, dep := range deps {
		s.runNode(runID, dep, func(ok bool, trigger, param string) {
			join.mu.Lock()
			join.remaining--
			var fireOK, fireFail bool
			if !ok && !join.fired {
				join.fired = true
				join.trigger, join.param = trigger, param
				fireFail = true
			} else if ok && !join.fired && join.remaining == 0 {
				join.fired = true
				fireOK = true
			}
			join.mu.Unlock()

			switch {
			case fireFail:
				s.depsResolved(runID, id, false, trigger, param)
			case fireOK:
				s.depsResolved(runID, id, true, "", "")
			}
		})
	}
}

func (s *Scheduler) depsResolved(runID uuid.UUID, id string, ok bool, trigger, param string) {
	if !ok {
		s.failDependencyResolution(runID, id, trigger, param)
		return
	}
	s.mu.Lock()
	delete(s.visiting, id)
	s.mu.Unlock()
	s.emit(id, EventStart, true, "", "")
	s.startLeaf(runID, id)
}

// failDependencyResolution clears visiting[id] and flushes inflight[id] with
// the given outcome — used both when a dependency itself fails and when id
// is requested but unknown to the node set.
func (s *Scheduler) failDependencyResolution(runID uuid.UUID, id string, trigger, param string) {
	s.mu.Lock()
	delete(s.visiting, id)
	conts := s.inflight[id]
	delete(s.inflight, id)
	s.mu.Unlock()

	s.emit(id, EventStop, false, trigger, param)
	for _, c := range conts {
		c(false, trigger, param)
	}
	s.maybeGoIdle()
}

func (s *Scheduler) startLeaf(runID uuid.UUID, id string) {
	s.mu.Lock()
	if s.terminating || runID != s.runID {
		s.mu.Unlock()
		s.failDependencyResolution(runID, id, TriggerInterrupt, "")
		return
	}
	s.pendingRunning++
	startFn := s.start
	s.mu.Unlock()

	control, err := startFn(id, func(ok bool, reason string) {
		s.onLeafDone(runID, id, ok, reason)
	})
	if err != nil || control == nil {
		s.mu.Lock()
		s.pendingRunning--
		conts := s.inflight[id]
		delete(s.inflight, id)
		quiesce := s.checkQuiescenceLocked()
		s.mu.Unlock()

		param := id
		if err != nil {
			param = err.Error()
		}
		s.emit(id, EventStop, false, TriggerNode, param)
		for _, c := range conts {
			c(false, TriggerNode, param)
		}
		if quiesce {
			s.goIdle()
		}
		return
	}

	s.mu.Lock()
	// A provider may invoke exit synchronously before startFn returns (the
	// composite provider always does). That already ran onLeafDone for id,
	// which clears inflight[id] once it fires and may have driven the run to
	// quiescence and reset running to nil. Only record control if none of
	// that happened yet, so a synchronous completion never leaves a stale
	// running[id] entry and never assigns into a nil map.
	if runID == s.runID {
		if _, stillInflight := s.inflight[id]; stillInflight {
			s.running[id] = control
		}
	}
	s.mu.Unlock()
}

func (s *Scheduler) onLeafDone(runID uuid.UUID, id string, ok bool, reason string) {
	s.mu.Lock()
	if runID != s.runID {
		// Stale completion after cancellation/reset: discard.
		s.mu.Unlock()
		return
	}
	delete(s.running, id)
	s.pendingRunning--
	terminating := s.terminating
	if ok {
		s.done[id] = true
	}
	conts := s.inflight[id]
	delete(s.inflight, id)
	quiesce := s.checkQuiescenceLocked()
	s.mu.Unlock()

	trigger, param := "", ""
	if !ok {
		if terminating {
			trigger = TriggerInterrupt
		} else {
			trigger = TriggerNode
		}
		param = reason
	}
	s.emit(id, EventStop, ok, trigger, param)
	for _, c := range conts {
		c(ok, trigger, param)
	}
	if quiesce {
		s.goIdle()
	}
}

// checkQuiescenceLocked must be called with mu held. It reports whether the
// run has fully drained (spec §3 invariant / §4.1 "Termination quiescence").
func (s *Scheduler) checkQuiescenceLocked() bool {
	return s.pendingRunning == 0 && len(s.visiting) == 0
}

func (s *Scheduler) maybeGoIdle() {
	s.mu.Lock()
	quiesce := s.checkQuiescenceLocked()
	s.mu.Unlock()
	if quiesce {
		s.goIdle()
	}
}

func (s *Scheduler) goIdle() {
	s.mu.Lock()
	s.active = false
	s.terminating = false
	s.nodes = nil
	s.start = nil
	s.onEvent = nil
	s.onPlanExit = nil
	s.visiting = nil
	s.done = nil
	s.inflight = nil
	s.running = nil
	s.pendingRunning = 0
	s.mu.Unlock()
}
