// Package provider defines the capability boundary between the runner and
// the code that actually performs a task (spec §4.4). Each task kind is
// behind exactly one operation: StartOneTask.
package provider

import "fmt"

// ExitFunc is invoked exactly once when a started task completes or fails.
// The provider may call it synchronously (vimcmd-like tasks) or
// asynchronously from another goroutine.
type ExitFunc func(success bool, reason string)

// Control is the handle returned by a successful StartOneTask. Terminate is
// idempotent and induces timely completion of the outstanding ExitFunc with
// (success=false, reason="terminated").
type Control interface {
	Terminate()
}

// Provider starts one task of a particular kind. Returning a nil Control
// signals immediate start failure; the error carries the message.
type Provider interface {
	StartOneTask(taskName string, payload map[string]any, exit ExitFunc) (Control, error)
}

// Func adapts a plain function to the Provider interface.
type Func func(taskName string, payload map[string]any, exit ExitFunc) (Control, error)

func (f Func) StartOneTask(taskName string, payload map[string]any, exit ExitFunc) (Control, error) {
	return f(taskName, payload, exit)
}

// Registry resolves a task kind to its Provider. The zero value is usable.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry returns an empty Registry with the composite kind already
// wired (spec §4.4: composite performs no work, it immediately succeeds).
func NewRegistry() *Registry {
	r := &Registry{providers: make(map[string]Provider)}
	r.Register("composite", Composite())
	return r
}

// Register installs a provider for kind, replacing any existing one.
func (r *Registry) Register(kind string, p Provider) {
	if r.providers == nil {
		r.providers = make(map[string]Provider)
	}
	r.providers[kind] = p
}

// Lookup returns the provider registered for kind, or an error matching the
// exit reason "No provider registered for task type: X" (spec §6).
func (r *Registry) Lookup(kind string) (Provider, error) {
	if r.providers != nil {
		if p, ok := r.providers[kind]; ok {
			return p, nil
		}
	}
	return nil, fmt.Errorf("No provider registered for task type: %s", kind)
}

// noopControl backs providers whose work is already finished by the time
// StartOneTask returns.
type noopControl struct{}

func (noopControl) Terminate() {}

// Composite implements the special composite kind (spec §4.4): it performs
// no work; its semantics come entirely from the scheduler executing its
// deps.
func Composite() Provider {
	return Func(func(_ string, _ map[string]any, exit ExitFunc) (Control, error) {
		exit(true, "")
		return noopControl{}, nil
	})
}
