// Package runner implements the Task Runner (spec §4.2): the policy layer
// above the Scheduler. It builds the reduced plan, drives macro expansion
// over the reduced task set, enforces cross-plan concurrency, owns the
// task-kind provider registry, and fans out lifecycle events.
package runner

import (
	"sort"
	"sync"
	"time"

	"github.com/loopforge/taskloop/internal/macro"
	"github.com/loopforge/taskloop/internal/plan"
	"github.com/loopforge/taskloop/internal/provider"
	"github.com/loopforge/taskloop/internal/scheduler"
	"github.com/loopforge/taskloop/internal/task"
)

// Result is the terminal outcome of one Run, delivered once.
type Result struct {
	PlanID  int64
	Success bool
	Err     error
}

// Runner coordinates plan construction, macro expansion, cross-plan
// concurrency and provider dispatch for any number of concurrently active
// plans — each Run call gets its own *scheduler.Scheduler, so independent
// plans genuinely run in parallel (spec §4.2 "Multiple concurrent plans").
type Runner struct {
	Providers *provider.Registry
	Metrics   *Metrics
	Sink      Sink

	concurrency *concurrencyRegistry

	mu          sync.Mutex
	activePlans map[int64]*scheduler.Scheduler
}

// New returns a Runner. providers, metrics and sink may be nil: a nil
// providers gets a fresh Registry (composite only), a nil sink becomes
// NopSink, and a nil metrics disables metrics recording.
func New(providers *provider.Registry, metrics *Metrics, sink Sink) *Runner {
	if providers == nil {
		providers = provider.NewRegistry()
	}
	if sink == nil {
		sink = NopSink{}
	}
	return &Runner{
		Providers:   providers,
		Metrics:     metrics,
		Sink:        sink,
		concurrency: newConcurrencyRegistry(),
		activePlans: make(map[int64]*scheduler.Scheduler),
	}
}

// RunOptions bundles the pieces a caller may supply beyond the task set
// itself.
type RunOptions struct {
	// MacroContext supplies the environment macro expansion runs against.
	// May be nil, in which case macros that need host capabilities fail.
	MacroContext *macro.Context
	// SaveBuffers is the host's buffer-save capability (spec §4.2
	// "save_buffers hint"). May be nil, in which case the hint is ignored.
	SaveBuffers func()
	// OnEvent is called for every node start/stop the scheduler reports.
	OnEvent func(LifecycleEvent)
}

// Run validates tasks, builds the reduced plan rooted at root, macro-expands
// it, applies the save_buffers hint, and drives it to completion. onDone is
// called exactly once with the terminal Result. Validation, plan-build and
// macro-expansion failures are delivered through onDone too, so callers have
// one completion path regardless of where the run stopped; onDone may run
// before Run returns (failures, synchronous providers) or later from a
// provider's goroutine.
func (r *Runner) Run(tasks []task.Task, root string, opts RunOptions, onDone func(Result)) {
	for _, t := range tasks {
		if err := t.Validate(); err != nil {
			onDone(Result{Err: newError(KindPlanBuild, err.Error())})
			return
		}
	}

	p, err := plan.Build(tasks, root)
	if err != nil {
		onDone(Result{Err: newError(KindPlanBuild, err.Error())})
		return
	}
	p.ID = plan.NextID()

	r.expandPlanMacros(p, opts.MacroContext, func(err error) {
		if err != nil {
			onDone(Result{PlanID: p.ID, Err: newError(KindMacroExpansion, err.Error())})
			return
		}

		if opts.SaveBuffers != nil {
			for _, t := range p.Tasks {
				if t.SaveBuffers {
					opts.SaveBuffers()
					break
				}
			}
		}

		r.runPlan(p, opts, onDone)
	})
}

// expandPlanMacros resolves every task's Payload in place (spec §4.3 "Table
// traversal" applied to the reduced task set), one task at a time via CPS:
// each task's expansion starts only after the previous one's has completed,
// so a prompt/select-pid macro in task A holds back the rest of the set until
// it is answered. k is called once every task is expanded, before execution
// starts.
func (r *Runner) expandPlanMacros(p *plan.Plan, ctx *macro.Context, k func(error)) {
	names := p.UsedNames()
	var step func(i int)
	step = func(i int) {
		if i >= len(names) {
			k(nil)
			return
		}
		name := names[i]
		t := p.Tasks[name]
		if len(t.Payload) == 0 {
			step(i + 1)
			return
		}
		macro.ResolveValue(t.Payload, ctx, nil, func(v any, err error) {
			if err != nil {
				k(err)
				return
			}
			if m, ok := v.(map[string]any); ok {
				t.Payload = m
				p.Tasks[name] = t
			}
			step(i + 1)
		})
	}
	step(0)
}

func (r *Runner) runPlan(p *plan.Plan, opts RunOptions, onDone func(Result)) {
	sched := scheduler.New()

	r.mu.Lock()
	r.activePlans[p.ID] = sched
	r.mu.Unlock()
	if r.Metrics != nil {
		r.mu.Lock()
		n := len(r.activePlans)
		r.mu.Unlock()
		r.Metrics.setPlansActive(n)
	}

	nodes := make([]scheduler.Node, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		nodes = append(nodes, scheduler.Node{ID: n.ID, Deps: n.Deps, Order: n.Order})
	}

	startFn := r.startFuncFor(p, sched)

	onEvent := func(id string, ev scheduler.Event, ok bool, trigger, param string) {
		le := LifecycleEvent{
			PlanID:  p.ID,
			NodeID:  id,
			Started: ev == scheduler.EventStart,
			Success: ok,
			Trigger: trigger,
			Param:   param,
		}
		if ev == scheduler.EventStop && !ok {
			le.Message = humanTrigger(id, trigger, param)
		}
		SafeRecord(r.Sink, le)
		if opts.OnEvent != nil {
			opts.OnEvent(le)
		}
	}

	onPlanExit := func(ok bool, trigger, param string) {
		r.mu.Lock()
		delete(r.activePlans, p.ID)
		n := len(r.activePlans)
		r.mu.Unlock()
		if r.Metrics != nil {
			r.Metrics.setPlansActive(n)
		}

		res := Result{PlanID: p.ID, Success: ok}
		if !ok {
			res.Err = newError(kindForTrigger(trigger), humanTrigger("", trigger, param))
		}
		onDone(res)
	}

	sched.Start(nodes, p.Root, startFn, onEvent, onPlanExit)
}

func kindForTrigger(trigger string) Kind {
	switch trigger {
	case "cycle":
		return KindCycle
	case "invalid_node":
		return KindInvalidNode
	case "interrupt":
		return KindInterrupt
	case "node":
		return KindNodeRun
	default:
		return KindNodeRun
	}
}

// startFuncFor builds the scheduler.StartFunc that mediates between the
// scheduler's leaf-start request and a provider, applying cross-plan
// concurrency policy first (spec §4.2).
func (r *Runner) startFuncFor(p *plan.Plan, sched *scheduler.Scheduler) scheduler.StartFunc {
	return func(id string, exit scheduler.ExitFunc) (scheduler.Control, error) {
		t, ok := p.Task(id)
		if !ok {
			return nil, newError(KindInvalidNode, "Invalid task name: "+id)
		}

		mode := t.EffectiveConcurrency()
		rec := &runningRecord{}
		r.concurrency.register(p.ID, t.Name, rec)

		if err := r.concurrency.admit(p.ID, t.Name, mode, sched.IsTerminating); err != nil {
			r.concurrency.unregister(p.ID, t.Name)
			if r.Metrics != nil {
				r.Metrics.recordConcurrencyDecision(string(mode), false)
			}
			return nil, err
		}
		if r.Metrics != nil {
			r.Metrics.recordConcurrencyDecision(string(mode), true)
		}

		prov, err := r.Providers.Lookup(t.Kind)
		if err != nil {
			r.concurrency.unregister(p.ID, t.Name)
			return nil, err
		}

		start := time.Now()
		if r.Metrics != nil {
			r.Metrics.recordStart(t.Kind)
		}

		control, err := prov.StartOneTask(t.Name, t.Payload, func(success bool, reason string) {
			if r.Metrics != nil {
				r.Metrics.recordFinish(t.Kind, success, time.Since(start).Seconds())
			}
			r.concurrency.settle(p.ID, t.Name)
			r.concurrency.unregister(p.ID, t.Name)
			exit(success, reason)
		})
		if err != nil {
			r.concurrency.unregister(p.ID, t.Name)
			return nil, newError(KindNodeStart, err.Error())
		}
		rec.control = control
		return control, nil
	}
}

// ActivePlanIDs returns the currently executing plan ids, sorted.
func (r *Runner) ActivePlanIDs() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, 0, len(r.activePlans))
	for id := range r.activePlans {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Terminate cancels a single active plan by id, if it is still running.
func (r *Runner) Terminate(planID int64) {
	r.mu.Lock()
	sched, ok := r.activePlans[planID]
	r.mu.Unlock()
	if ok {
		sched.Terminate()
	}
}
