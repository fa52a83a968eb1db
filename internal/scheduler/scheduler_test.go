package scheduler_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loopforge/taskloop/internal/scheduler"
	"github.com/loopforge/taskloop/internal/task"
)

// recorder collects (id, event) pairs in arrival order, safe for concurrent
// use from provider goroutines.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) record(id string, ev scheduler.Event, ok bool, trigger, param string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, fmt.Sprintf("%s:%s:%v", id, ev, ok))
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	copy(out, r.events)
	return out
}

// instantStart is a StartFunc that completes every node synchronously and
// successfully — useful when only the event/outcome shape matters.
func instantStart(id string, exit scheduler.ExitFunc) (scheduler.Control, error) {
	exit(true, "")
	return noopControl{}, nil
}

type noopControl struct{}

func (noopControl) Terminate() {}

func waitPlanExit(t *testing.T) (scheduler.PlanExitFunc, func() (bool, string, string)) {
	t.Helper()
	done := make(chan struct{})
	var success bool
	var trigger, param string
	return func(ok bool, tr, p string) {
			success, trigger, param = ok, tr, p
			close(done)
		}, func() (bool, string, string) {
			select {
			case <-done:
			case <-time.After(2 * time.Second):
				t.Fatal("timed out waiting for plan exit")
			}
			return success, trigger, param
		}
}

func TestLinearChain(t *testing.T) {
	s := scheduler.New()
	nodes := []scheduler.Node{
		{ID: "a"},
		{ID: "b", Deps: []string{"a"}},
		{ID: "c", Deps: []string{"b"}},
	}
	rec := &recorder{}
	onExit, wait := waitPlanExit(t)

	s.Start(nodes, "c", instantStart, rec.record, onExit)
	ok, _, _ := wait()
	require.True(t, ok)

	events := rec.snapshot()
	require.Equal(t, []string{
		"a:start:true", "a:stop:true",
		"b:start:true", "b:stop:true",
		"c:start:true", "c:stop:true",
	}, events)
	assert.True(t, s.IsTerminated())
}

func TestDiamondDedup(t *testing.T) {
	s := scheduler.New()
	nodes := []scheduler.Node{
		{ID: "a"},
		{ID: "b", Deps: []string{"a"}},
		{ID: "c", Deps: []string{"a"}},
		{ID: "d", Deps: []string{"b", "c"}, Order: task.Parallel},
	}
	var aStarts int
	var mu sync.Mutex
	start := func(id string, exit scheduler.ExitFunc) (scheduler.Control, error) {
		if id == "a" {
			mu.Lock()
			aStarts++
			mu.Unlock()
		}
		exit(true, "")
		return noopControl{}, nil
	}
	rec := &recorder{}
	onExit, wait := waitPlanExit(t)
	s.Start(nodes, "d", start, rec.record, onExit)
	ok, _, _ := wait()
	require.True(t, ok)
	assert.Equal(t, 1, aStarts, "a must start exactly once despite two dependents")
}

func TestCycleRejected(t *testing.T) {
	s := scheduler.New()
	nodes := []scheduler.Node{
		{ID: "a", Deps: []string{"b"}},
		{ID: "b", Deps: []string{"a"}},
	}
	onExit, wait := waitPlanExit(t)
	s.Start(nodes, "a", instantStart, func(string, scheduler.Event, bool, string, string) {}, onExit)
	ok, trigger, _ := wait()
	assert.False(t, ok)
	assert.Equal(t, scheduler.TriggerCycle, trigger)
}

func TestParallelFirstFailureShortCircuitsButSiblingsFinish(t *testing.T) {
	s := scheduler.New()
	nodes := []scheduler.Node{
		{ID: "ok-dep"},
		{ID: "bad-dep"},
		{ID: "root", Deps: []string{"ok-dep", "bad-dep"}, Order: task.Parallel},
	}

	siblingFinished := make(chan struct{})
	start := func(id string, exit scheduler.ExitFunc) (scheduler.Control, error) {
		switch id {
		case "bad-dep":
			exit(false, "boom")
		case "ok-dep":
			go func() {
				exit(true, "")
				close(siblingFinished)
			}()
		default:
			exit(true, "")
		}
		return noopControl{}, nil
	}

	onExit, wait := waitPlanExit(t)
	s.Start(nodes, "root", start, func(string, scheduler.Event, bool, string, string) {}, onExit)
	ok, trigger, param := wait()
	assert.False(t, ok)
	assert.Equal(t, scheduler.TriggerNode, trigger)
	assert.Equal(t, "boom", param)

	select {
	case <-siblingFinished:
	case <-time.After(2 * time.Second):
		t.Fatal("sibling dependency was not allowed to finish on its own")
	}
}

func TestCancellationMidRun(t *testing.T) {
	s := scheduler.New()
	nodes := []scheduler.Node{{ID: "long"}}

	started := make(chan scheduler.ExitFunc, 1)
	start := func(id string, exit scheduler.ExitFunc) (scheduler.Control, error) {
		started <- exit
		return terminateControl{exit: exit}, nil
	}

	onExit, wait := waitPlanExit(t)
	startCh := make(chan struct{})
	onEvent := func(id string, ev scheduler.Event, ok bool, trigger, param string) {
		if ev == scheduler.EventStart {
			close(startCh)
		}
	}
	s.Start(nodes, "long", start, onEvent, onExit)

	select {
	case <-startCh:
	case <-time.After(2 * time.Second):
		t.Fatal("node never started")
	}
	s.Terminate()

	ok, trigger, _ := wait()
	assert.False(t, ok)
	assert.Equal(t, scheduler.TriggerInterrupt, trigger)
	assert.Eventually(t, s.IsTerminated, 2*time.Second, 10*time.Millisecond)
}

type terminateControl struct {
	exit scheduler.ExitFunc
}

func (c terminateControl) Terminate() {
	c.exit(false, "terminated")
}

func TestTerminateOnIdleIsNoop(t *testing.T) {
	s := scheduler.New()
	s.Terminate()
	assert.True(t, s.IsTerminated())
}

func TestSecondStartWhileRunningIsRejected(t *testing.T) {
	s := scheduler.New()
	block := make(chan struct{})
	start := func(id string, exit scheduler.ExitFunc) (scheduler.Control, error) {
		go func() {
			<-block
			exit(true, "")
		}()
		return noopControl{}, nil
	}
	firstExit, _ := waitPlanExit(t)
	s.Start([]scheduler.Node{{ID: "x"}}, "x", start, func(string, scheduler.Event, bool, string, string) {}, firstExit)

	secondOnExit, waitSecond := waitPlanExit(t)
	s.Start([]scheduler.Node{{ID: "y"}}, "y", instantStart, func(string, scheduler.Event, bool, string, string) {}, secondOnExit)
	ok, trigger, _ := waitSecond()
	assert.False(t, ok)
	assert.Equal(t, scheduler.TriggerInterrupt, trigger)

	close(block)
}

func TestUnknownRootIsInvalidNode(t *testing.T) {
	s := scheduler.New()
	onExit, wait := waitPlanExit(t)
	s.Start(nil, "ghost", instantStart, func(string, scheduler.Event, bool, string, string) {}, onExit)
	ok, trigger, param := wait()
	assert.False(t, ok)
	assert.Equal(t, scheduler.TriggerInvalidNode, trigger)
	assert.Equal(t, "ghost", param)
}
