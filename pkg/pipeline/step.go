package pipeline

// Done is the terminal step identifier. Use it as an edge target to end a run.
const Done = "__done__"

// StepFunc is the signature of every step. Steps receive the run context and
// the current state, and return the updated state.
//
// State is passed by value; return the modified copy rather than relying on
// pointer mutation.
type StepFunc[S any] func(ctx Context, state S) (S, error)

// RouterFunc picks the next step from the state after a step completes. It
// must return a registered step ID or Done.
//
//	func afterIngest(ctx pipeline.Context, s State) string {
//	    if s.Mode == ModeIngestOnly {
//	        return pipeline.Done
//	    }
//	    return "reconcile"
//	}
type RouterFunc[S any] func(ctx Context, state S) string
