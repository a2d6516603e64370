// Package decision implements the multi-phase routing engine that chooses
// which handler runs next on each turn of a workflow session.
package decision

import "fmt"

// TerminalHandler is the sentinel handler name that ends a session.
const TerminalHandler = "done"

// Type classifies which phase of the pipeline produced a decision.
type Type string

const (
	// TypeTerminalState: the previous response already ended the exchange.
	TypeTerminalState Type = "terminal_state"
	// TypeExplicitRouting: the inbound turn answers a recorded question and
	// returns to the handler that asked it.
	TypeExplicitRouting Type = "explicit_routing"
	// TypeLLMDecision: an arbiter chose among the rule candidates.
	TypeLLMDecision Type = "llm_decision"
	// TypeRuleMatch: trigger rules produced a single winner, or the arbiter
	// was unavailable and rule order decided.
	TypeRuleMatch Type = "rule_match"
	// TypeFallback: nothing matched; the engine reused the previous decision
	// or ended the session.
	TypeFallback Type = "fallback"
)

// MatchedRule records one handler that matched during rule evaluation.
// Condition is a human-readable rendering of the satisfied predicates and is
// only populated on traced decisions.
type MatchedRule struct {
	Handler   string
	Priority  int
	Condition string
}

// Decision is the outcome of one pipeline run.
type Decision struct {
	// Handler is the chosen next handler, or TerminalHandler to end.
	Handler string

	// Type names the pipeline phase that produced the choice.
	Type Type

	// Reason is a short human-readable explanation for logs and traces.
	Reason string

	// Iteration is the turn counter value observed when deciding.
	Iteration int

	// MatchedRules lists the rule candidates that were in contention, in
	// evaluation order (priority descending).
	MatchedRules []MatchedRule

	// ArbitrationUsed reports whether an arbiter verdict produced, or was
	// substituted into, this decision. Rationale carries the arbiter's
	// explanation when it is.
	ArbitrationUsed bool
	Rationale       string
}

// Terminal reports whether the decision ends the session.
func (d Decision) Terminal() bool {
	return d.Handler == TerminalHandler
}

func (d Decision) String() string {
	return fmt.Sprintf("%s (%s: %s)", d.Handler, d.Type, d.Reason)
}
