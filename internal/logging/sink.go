package logging

import "github.com/loopforge/taskloop/internal/runner"

// RunnerSink adapts a Logger to runner.Sink, so the runner's lifecycle
// events land in the same structured log as everything else.
type RunnerSink struct {
	log *Logger
}

// NewRunnerSink returns a Sink that logs one line per node start/stop.
func NewRunnerSink(log *Logger) *RunnerSink {
	if log == nil {
		log = defaultLogger
	}
	return &RunnerSink{log: log}
}

func (s *RunnerSink) Record(event runner.LifecycleEvent) {
	l := s.log.With("plan_id", event.PlanID, "node_id", event.NodeID)
	switch {
	case event.Started:
		l.Info("node start")
	case event.Success:
		l.Info("node stop", "success", true)
	default:
		l.Warn("node stop", "success", false, "trigger", event.Trigger, "reason", event.Message)
	}
}
