package resolution

import "context"

// EffectRunner performs effects. *Executor is the production implementation.
type EffectRunner interface {
	Run(ctx context.Context, eff Effect) Action
}

// Runner drives the workflow synchronously: every dispatched action is reduced and
// the resulting effects are executed until none is left.
type Runner struct {
	reducer *Reducer
	effects EffectRunner
	state   State
}

// NewRunner creates a runner in the Loading stage with no reading
func NewRunner(reducer *Reducer, effects EffectRunner) *Runner {
	return &Runner{reducer: reducer, effects: effects}
}

// Dispatch applies a and returns the state once all follow-up effects resolved
func (r *Runner) Dispatch(ctx context.Context, a Action) State {
	s, eff := r.reducer.Reduce(r.state, a)
	for eff != nil {
		next := r.effects.Run(ctx, eff)
		if next == nil {
			break
		}
		s, eff = r.reducer.Reduce(s, next)
	}
	r.state = s
	return s
}

// State returns the current state
func (r *Runner) State() State {
	return r.state
}
