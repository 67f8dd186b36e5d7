// Package hooks provides the post-processing hook chain for chat completions.
//
// DESIGN: Hooks run INSIDE the gateway, after the provider call and before
// the response is returned to the client:
//
//	Request → Provider → [POST-HOOKS] → Response
//
// The registry is an explicit object built once at startup and injected into
// the request handler; it is never mutated after the server starts serving,
// so Apply needs no synchronization.
//
// FAILURE POLICY: fail-open. Hooks are auxiliary enrichments; a hook that
// errors, panics, or produces output that no longer looks like a chat
// completion is logged, counted, and skipped. The next hook receives the
// last good value, so a decoration failure never blocks delivery of the
// base text answer.
package hooks

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/chartgate/chartgate/internal/api"
	"github.com/chartgate/chartgate/internal/monitoring"
)

// Hook transforms a chat completion. Implementations must treat the input
// as theirs to mutate (the registry hands each hook a private deep copy)
// and must return a completion that still satisfies api.ChatCompletion.Validate.
type Hook interface {
	// Name returns the hook identifier used in logs and metrics.
	Name() string

	// Transform returns the (possibly modified) completion.
	Transform(ctx context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error)
}

// Func adapts a plain function to the Hook interface.
type Func struct {
	name string
	fn   func(ctx context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error)
}

// NewFunc wraps fn as a named Hook.
func NewFunc(name string, fn func(ctx context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error)) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the hook name.
func (f *Func) Name() string { return f.name }

// Transform invokes the wrapped function.
func (f *Func) Transform(ctx context.Context, resp *api.ChatCompletion) (*api.ChatCompletion, error) {
	return f.fn(ctx, resp)
}

// Registry holds the ordered hook chain.
type Registry struct {
	hooks   []Hook
	metrics *monitoring.MetricsCollector
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(metrics *monitoring.MetricsCollector) *Registry {
	return &Registry{metrics: metrics}
}

// Register appends a hook to the chain. Registration order is application
// order; there is no priority and no deduplication. Registering a nil hook
// is a programmer error and panics immediately rather than at request time.
func (r *Registry) Register(h Hook) {
	if h == nil {
		panic("hooks: Register called with nil hook")
	}
	r.hooks = append(r.hooks, h)
}

// Len returns the number of registered hooks.
func (r *Registry) Len() int { return len(r.hooks) }

// Names returns the registered hook names in application order.
func (r *Registry) Names() []string {
	names := make([]string, len(r.hooks))
	for i, h := range r.hooks {
		names[i] = h.Name()
	}
	return names
}

// Apply runs every hook in registration order, feeding each hook's output
// to the next (a left fold). An empty chain returns the input unchanged.
// Per the fail-open policy, a hook that fails is skipped and the previous
// value carries forward.
func (r *Registry) Apply(ctx context.Context, resp *api.ChatCompletion) *api.ChatCompletion {
	current := resp
	for _, h := range r.hooks {
		out, err := r.runHook(ctx, h, current)
		if err != nil {
			log.Warn().Err(err).Str("hook", h.Name()).Msg("hook skipped")
			if r.metrics != nil {
				r.metrics.RecordHookFailure()
			}
			continue
		}
		current = out
	}
	return current
}

// runHook executes one hook against a private clone and validates its
// output. Panics are converted to errors so one bad hook cannot take down
// the request.
func (r *Registry) runHook(ctx context.Context, h Hook, in *api.ChatCompletion) (out *api.ChatCompletion, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			out = nil
			err = &HookError{Hook: h.Name(), Reason: "panic", Detail: rec}
		}
	}()

	out, err = h.Transform(ctx, in.Clone())
	if err != nil {
		return nil, &HookError{Hook: h.Name(), Reason: "transform failed", Err: err}
	}
	if out == nil {
		return nil, &HookError{Hook: h.Name(), Reason: "returned nil completion"}
	}
	if verr := out.Validate(); verr != nil {
		return nil, &HookError{Hook: h.Name(), Reason: "malformed output", Err: verr}
	}
	return out, nil
}
