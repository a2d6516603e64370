// Package arbiter selects among candidate handlers when rule evaluation
// alone cannot decide. Implementations range from a hosted model to an
// offline keyword heuristic; the decision engine treats them uniformly and
// absorbs their failures.
package arbiter

import "context"

// Request carries everything an arbiter may consider: the workflow, the
// candidate handlers still in contention, a textual enumeration of what each
// candidate does, and a compact summary of the current state.
type Request struct {
	WorkflowID   string
	Candidates   []string
	Context      string
	StateSummary string
}

// Verdict is an arbiter's choice. Handler may name any handler, not only a
// listed candidate; callers validate it before acting on it. Rationale is
// free text for traces.
type Verdict struct {
	Handler   string
	Rationale string
}

// Arbiter picks a handler for the current turn. An error means the arbiter
// could not produce a verdict at all; callers fall back to rule order.
type Arbiter interface {
	Decide(ctx context.Context, req Request) (Verdict, error)
}
