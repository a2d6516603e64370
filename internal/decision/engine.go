package decision

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/waypoint/internal/arbiter"
	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/logging"
	"github.com/kingrea/waypoint/internal/state"
	"github.com/kingrea/waypoint/internal/summary"
)

// ActionAnswer is the inbound action that marks the turn as a reply to a
// previously asked question.
const ActionAnswer = "answer"

// DefaultMaxIterations bounds a session when no limit is configured.
const DefaultMaxIterations = 10

// ContextSpec names the state slices summarized for the arbiter, plus an
// optional free-form summary appended after them.
type ContextSpec struct {
	Slices  []string
	Summary string
}

// ContextBuilder chooses what state the arbiter sees for a given turn. The
// default exposes the request, response, and internal slices.
type ContextBuilder func(st state.State, candidates []string) ContextSpec

// Engine runs the decision pipeline for one workflow. It holds no per-turn
// state of its own; everything it needs arrives in the state argument, so a
// single engine serves any number of concurrent sessions.
type Engine struct {
	workflowID    string
	registry      *contract.Registry
	arb           arbiter.Arbiter
	buildContext  ContextBuilder
	maxIterations int
	terminalTypes map[string]struct{}
	log           *logging.Logger
	summarizer    *summary.Summarizer
}

// Option customizes engine construction.
type Option func(*Engine)

// WithArbiter enables the arbitration phase.
func WithArbiter(a arbiter.Arbiter) Option {
	return func(e *Engine) { e.arb = a }
}

// WithMaxIterations sets the per-session turn limit. Values below one keep
// the default.
func WithMaxIterations(n int) Option {
	return func(e *Engine) {
		if n >= 1 {
			e.maxIterations = n
		}
	}
}

// WithTerminalResponseTypes replaces the response types that end a session.
func WithTerminalResponseTypes(types ...string) Option {
	return func(e *Engine) {
		e.terminalTypes = map[string]struct{}{}
		for _, t := range types {
			e.terminalTypes[t] = struct{}{}
		}
	}
}

// WithLogger attaches a logger for pipeline events.
func WithLogger(log *logging.Logger) Option {
	return func(e *Engine) { e.log = log }
}

// WithContextBuilder replaces the default choice of state exposed to the
// arbiter.
func WithContextBuilder(b ContextBuilder) Option {
	return func(e *Engine) { e.buildContext = b }
}

// New builds an engine over a populated registry.
func New(workflowID string, registry *contract.Registry, opts ...Option) *Engine {
	e := &Engine{
		workflowID:    workflowID,
		registry:      registry,
		maxIterations: DefaultMaxIterations,
		terminalTypes: map[string]struct{}{
			"answer":   {},
			"question": {},
			"final":    {},
			"error":    {},
		},
		summarizer: summary.New(),
	}
	e.buildContext = func(st state.State, candidates []string) ContextSpec {
		return ContextSpec{Slices: []string{state.SliceRequest, state.SliceResponse, state.SliceInternal}}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Decide runs the pipeline without mutating state. It is safe to call
// repeatedly against the same state.
func (e *Engine) Decide(ctx context.Context, st state.State) Decision {
	return e.decide(ctx, st, false)
}

// DecideWithTrace behaves like Decide but also renders the satisfied
// condition predicates into the matched-rule trace.
func (e *Engine) DecideWithTrace(ctx context.Context, st state.State) Decision {
	return e.decide(ctx, st, true)
}

// Run decides and produces the engine's own state update: the advanced
// iteration counter and the recorded decision, confined to the internal
// slice. The caller applies the update and dispatches the handler.
func (e *Engine) Run(ctx context.Context, st state.State) (Decision, map[string]any) {
	d := e.decide(ctx, st, false)

	counter := d.Iteration
	if counter < e.maxIterations {
		counter++
	} else {
		counter = e.maxIterations
	}

	update := map[string]any{
		state.SliceInternal: map[string]any{
			e.counterKey():    counter,
			state.KeyDecision: d.Handler,
		},
	}
	e.log.Infof("decision: workflow=%s handler=%s type=%s iteration=%d", e.workflowID, d.Handler, d.Type, counter)
	return d, update
}

func (e *Engine) decide(ctx context.Context, st state.State, trace bool) Decision {
	iteration := e.iteration(st)

	// Phase 1: iteration guard.
	if iteration >= e.maxIterations {
		return Decision{
			Handler:   TerminalHandler,
			Type:      TypeFallback,
			Reason:    fmt.Sprintf("iteration limit %d reached", e.maxIterations),
			Iteration: iteration,
		}
	}

	// Phase 2: terminal-state check.
	if rt := e.responseType(st); rt != "" {
		if _, terminal := e.terminalTypes[rt]; terminal {
			return Decision{
				Handler:   TerminalHandler,
				Type:      TypeTerminalState,
				Reason:    fmt.Sprintf("response type %q ends the exchange", rt),
				Iteration: iteration,
			}
		}
	}

	// Phase 3: explicit return-routing.
	if handler, ok := e.returnRoute(st); ok {
		return Decision{
			Handler:   handler,
			Type:      TypeExplicitRouting,
			Reason:    fmt.Sprintf("answer returns to %s, which asked the open question", handler),
			Iteration: iteration,
		}
	}

	// Phase 4: rule evaluation.
	matches := e.registry.EvaluateTriggers(e.workflowID, st)
	matched := e.matchedRules(matches, st, trace)
	if e.arb == nil {
		if len(matches) > 0 {
			return Decision{
				Handler:      matches[0].Handler,
				Type:         TypeRuleMatch,
				Reason:       fmt.Sprintf("top rule match at priority %d", matches[0].Priority),
				Iteration:    iteration,
				MatchedRules: matched,
			}
		}
		return e.fallback(st, iteration, matched)
	}

	// Phase 5: arbitration.
	if d, ok := e.arbitrate(ctx, st, matches, matched, iteration); ok {
		return d
	}

	// Phase 6: fallback chain.
	return e.fallback(st, iteration, matched)
}

// arbitrate asks the configured arbiter to choose. The second return value
// is false when the pipeline should continue to the fallback chain.
func (e *Engine) arbitrate(ctx context.Context, st state.State, matches []contract.Match, matched []MatchedRule, iteration int) (Decision, bool) {
	candidates := candidateSet(matches)
	req := arbiter.Request{
		WorkflowID:   e.workflowID,
		Candidates:   candidates,
		Context:      e.arbitrationContext(st, candidates, matched),
		StateSummary: e.stateSummary(st, candidates),
	}

	verdict, err := e.arb.Decide(ctx, req)
	if err != nil {
		e.log.Warnf("arbiter failed, falling back to rule order: %v", err)
		if len(matches) > 0 {
			return Decision{
				Handler:      matches[0].Handler,
				Type:         TypeRuleMatch,
				Reason:       "arbiter unavailable; top rule match selected",
				Iteration:    iteration,
				MatchedRules: matched,
			}, true
		}
		return Decision{}, false
	}

	if !e.knownHandler(verdict.Handler) {
		if len(matches) == 0 {
			e.log.Warnf("arbiter chose unknown handler %q and no rule candidates exist", verdict.Handler)
			return Decision{}, false
		}
		e.log.Warnf("arbiter chose unknown handler %q; substituting top rule candidate %s", verdict.Handler, matches[0].Handler)
		return Decision{
			Handler:         matches[0].Handler,
			Type:            TypeLLMDecision,
			Reason:          fmt.Sprintf("arbiter chose unknown handler %q; top rule candidate substituted", verdict.Handler),
			Iteration:       iteration,
			MatchedRules:    matched,
			ArbitrationUsed: true,
			Rationale:       verdict.Rationale,
		}, true
	}

	return Decision{
		Handler:         verdict.Handler,
		Type:            TypeLLMDecision,
		Reason:          "arbiter selected handler",
		Iteration:       iteration,
		MatchedRules:    matched,
		ArbitrationUsed: true,
		Rationale:       verdict.Rationale,
	}, true
}

func (e *Engine) fallback(st state.State, iteration int, matched []MatchedRule) Decision {
	if previous := e.previousDecision(st); previous != "" {
		return Decision{
			Handler:      previous,
			Type:         TypeFallback,
			Reason:       fmt.Sprintf("re-suggesting previous decision %s", previous),
			Iteration:    iteration,
			MatchedRules: matched,
		}
	}
	return Decision{
		Handler:      TerminalHandler,
		Type:         TypeFallback,
		Reason:       "no rule matched and no previous decision to reuse",
		Iteration:    iteration,
		MatchedRules: matched,
	}
}

func (e *Engine) iteration(st state.State) int {
	v, _ := st.Resolve(state.SliceInternal + "." + e.counterKey())
	return state.Int(v)
}

func (e *Engine) counterKey() string {
	return e.workflowID + "_iteration"
}

func (e *Engine) responseType(st state.State) string {
	v, _ := st.Resolve(state.SliceResponse + "." + state.KeyResponseType)
	return state.String(v)
}

// returnRoute detects a turn answering an open question and resolves the
// handler that asked it.
func (e *Engine) returnRoute(st state.State) (string, bool) {
	action, _ := st.Resolve(state.SliceRequest + "." + state.KeyAction)
	if state.String(action) != ActionAnswer {
		return "", false
	}
	owner, _ := st.Resolve(state.SliceInternal + "." + state.KeyQuestionOwner)
	name := state.String(owner)
	if name == "" {
		return "", false
	}
	if !e.knownHandler(name) {
		e.log.Warnf("question owner %q is not a registered handler; ignoring return route", name)
		return "", false
	}
	return name, true
}

// previousDecision returns the last recorded decision when it names a
// registered, non-terminal handler.
func (e *Engine) previousDecision(st state.State) string {
	v, _ := st.Resolve(state.SliceInternal + "." + state.KeyDecision)
	name := state.String(v)
	if name == "" || name == TerminalHandler {
		return ""
	}
	c, ok := e.registry.Contract(name)
	if !ok || c.WorkflowID != e.workflowID || c.Terminal {
		return ""
	}
	return name
}

func (e *Engine) knownHandler(name string) bool {
	if name == TerminalHandler {
		return true
	}
	c, ok := e.registry.Contract(name)
	return ok && c.WorkflowID == e.workflowID
}

// candidateSet selects the top 3 ranked matches plus any further handlers
// tied with the 3rd-ranked priority.
func candidateSet(matches []contract.Match) []string {
	if len(matches) == 0 {
		return nil
	}
	cut := len(matches)
	if cut > 3 {
		cut = 3
		threshold := matches[2].Priority
		for cut < len(matches) && matches[cut].Priority == threshold {
			cut++
		}
	}
	names := make([]string, 0, cut)
	for _, m := range matches[:cut] {
		names = append(names, m.Handler)
	}
	return names
}

func (e *Engine) matchedRules(matches []contract.Match, st state.State, trace bool) []MatchedRule {
	if len(matches) == 0 {
		return nil
	}
	rules := make([]MatchedRule, 0, len(matches))
	for _, m := range matches {
		rule := MatchedRule{Handler: m.Handler, Priority: m.Priority}
		if trace {
			var conditions []string
			for _, c := range e.registry.MatchedConditions(m.Handler, st) {
				conditions = append(conditions, c.Describe())
			}
			rule.Condition = strings.Join(conditions, " | ")
		}
		rules = append(rules, rule)
	}
	return rules
}

// arbitrationContext renders everything the arbiter sees: the candidate
// descriptions, the matched-rule reasons, and the previous suggestion.
func (e *Engine) arbitrationContext(st state.State, candidates []string, matched []MatchedRule) string {
	var b strings.Builder
	b.WriteString(e.registry.BuildContext(e.workflowID, candidates))

	if len(matched) > 0 {
		b.WriteString("\nRule matches this turn:\n")
		for _, m := range matched {
			fmt.Fprintf(&b, "- %s (priority %d)\n", m.Handler, m.Priority)
		}
	}
	if previous := e.previousDecision(st); previous != "" {
		fmt.Fprintf(&b, "\nPrevious suggestion: %s\n", previous)
	}
	return b.String()
}

func (e *Engine) stateSummary(st state.State, candidates []string) string {
	spec := e.buildContext(st, candidates)
	var lines []string
	for _, name := range spec.Slices {
		lines = append(lines, e.summarizer.Slice(name, st[name]))
	}
	if spec.Summary != "" {
		lines = append(lines, spec.Summary)
	}
	return strings.Join(lines, "\n")
}
