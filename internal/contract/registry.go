package contract

import (
	"fmt"
	"sort"
	"strings"

	"github.com/kingrea/waypoint/internal/logging"
	"github.com/kingrea/waypoint/internal/state"
)

// ErrDuplicateHandler is wrapped by Register when a name is already taken.
var ErrDuplicateHandler = fmt.Errorf("contract: handler already registered")

// Match pairs a rule-eligible handler with the priority it matched at.
type Match struct {
	Priority int
	Handler  string
}

// Registry owns the contract set for one or more workflows. It is populated
// during a startup registration phase and read-only afterwards; registration
// is not designed for concurrent mutation.
type Registry struct {
	contracts   map[string]Contract
	order       []string
	validSlices map[string]struct{}
	log         *logging.Logger
}

// RegistryOption customizes registry construction.
type RegistryOption func(*Registry)

// WithValidSlices replaces the default slice vocabulary (request, response,
// _internal) used when warning about unknown references.
func WithValidSlices(names ...string) RegistryOption {
	return func(r *Registry) {
		r.validSlices = map[string]struct{}{}
		for _, name := range names {
			r.validSlices[name] = struct{}{}
		}
	}
}

// WithLogger attaches a logger for registration warnings.
func WithLogger(log *logging.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry returns an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		contracts: map[string]Contract{},
		validSlices: map[string]struct{}{
			state.SliceRequest:  {},
			state.SliceResponse: {},
			state.SliceInternal: {},
		},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register installs a contract. A duplicate name fails and leaves the first
// registration active; unknown slice references and writes to the request
// slice are logged as warnings but do not block registration.
func (r *Registry) Register(c Contract) error {
	if err := c.Validate(); err != nil {
		return err
	}
	if _, exists := r.contracts[c.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateHandler, c.Name)
	}

	for _, name := range c.Reads {
		if !r.isValidSlice(name) {
			r.log.Warnf("contract %s reads unknown slice %q", c.Name, name)
		}
	}
	for _, name := range c.Writes {
		if !r.isValidSlice(name) {
			r.log.Warnf("contract %s writes unknown slice %q", c.Name, name)
		}
		if name == state.SliceRequest {
			r.log.Warnf("contract %s writes to the %q slice; writing the inbound request is discouraged", c.Name, state.SliceRequest)
		}
	}

	r.contracts[c.Name] = c
	r.order = append(r.order, c.Name)
	r.log.Infof("registered handler %s (workflow=%s)", c.Name, c.WorkflowID)
	return nil
}

// AddValidSlice extends the slice vocabulary, typically before registering
// contracts that declare domain slices.
func (r *Registry) AddValidSlice(name string) {
	r.validSlices[name] = struct{}{}
}

// ValidSlices returns the current slice vocabulary, sorted.
func (r *Registry) ValidSlices() []string {
	names := make([]string, 0, len(r.validSlices))
	for name := range r.validSlices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Contract looks up a contract by handler name.
func (r *Registry) Contract(name string) (Contract, bool) {
	c, ok := r.contracts[name]
	return c, ok
}

// Handlers returns all handler names in registration order.
func (r *Registry) Handlers() []string {
	return append([]string(nil), r.order...)
}

// WorkflowHandlers returns the handlers owned by a workflow, in registration
// order.
func (r *Registry) WorkflowHandlers(workflowID string) []string {
	var names []string
	for _, name := range r.order {
		if r.contracts[name].WorkflowID == workflowID {
			names = append(names, name)
		}
	}
	return names
}

// EvaluateTriggers computes, for every handler of the workflow, the maximum
// priority among its satisfied conditions. Handlers with no satisfied
// condition are excluded. Results are ordered by priority descending;
// handlers tied at the same priority keep registration order (stable sort).
func (r *Registry) EvaluateTriggers(workflowID string, st state.State) []Match {
	var matches []Match
	for _, name := range r.WorkflowHandlers(workflowID) {
		c := r.contracts[name]
		best, matched := 0, false
		for _, trigger := range c.Triggers {
			if !r.conditionHolds(trigger, st) {
				continue
			}
			if !matched || trigger.Priority > best {
				best = trigger.Priority
			}
			matched = true
		}
		if matched {
			matches = append(matches, Match{Priority: best, Handler: name})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Priority > matches[j].Priority
	})
	return matches
}

// MatchedConditions returns the satisfied conditions of one handler against
// the state, in declaration order. Used to build decision traces.
func (r *Registry) MatchedConditions(name string, st state.State) []TriggerCondition {
	c, ok := r.contracts[name]
	if !ok {
		return nil
	}
	var satisfied []TriggerCondition
	for _, trigger := range c.Triggers {
		if r.conditionHolds(trigger, st) {
			satisfied = append(satisfied, trigger)
		}
	}
	return satisfied
}

func (r *Registry) conditionHolds(trigger TriggerCondition, st state.State) bool {
	for key, want := range trigger.When {
		if !matchesExpected(r.resolve(st, key), want) {
			return false
		}
	}
	for key, forbidden := range trigger.WhenNot {
		if matchesExpected(r.resolve(st, key), forbidden) {
			return false
		}
	}
	return true
}

// matchesExpected applies the predicate comparison semantics: a boolean
// expectation matches by truthiness of the resolved value, anything else by
// exact (numeric-aware) equality. An unresolved path yields nil, which
// matches only an expectation of exactly nil.
func matchesExpected(actual, expected any) bool {
	if b, ok := expected.(bool); ok {
		return state.Truthy(actual) == b
	}
	return state.Equal(actual, expected)
}

// resolve reads a predicate key from state. Dotted keys descend from the
// named slice; bare keys are searched across all known slices in sorted
// order, so a key present in two slices resolves the same way on every run.
func (r *Registry) resolve(st state.State, key string) any {
	if strings.Contains(key, ".") {
		v, _ := st.Resolve(key)
		return v
	}
	for _, slice := range r.ValidSlices() {
		data := st.Slice(slice)
		if data == nil {
			continue
		}
		if v, ok := data[key]; ok {
			return v
		}
	}
	return nil
}

// BuildContext produces a textual enumeration of candidate handlers, their
// descriptions, and any condition hints, for consumption by the arbiter.
func (r *Registry) BuildContext(workflowID string, candidates []string) string {
	var b strings.Builder
	b.WriteString("Choose the next handler based on the current state:\n\n")

	names := candidates
	if len(names) == 0 {
		names = r.WorkflowHandlers(workflowID)
	}
	for _, name := range names {
		c, ok := r.contracts[name]
		if !ok {
			continue
		}
		if hints := c.Hints(); len(hints) > 0 {
			fmt.Fprintf(&b, "- %s: %s (%s)\n", name, c.Description, strings.Join(hints, "; "))
		} else {
			fmt.Fprintf(&b, "- %s: %s\n", name, c.Description)
		}
	}

	b.WriteString("- done: end the current session\n")
	return b.String()
}

// AnalyzeDataFlow maps each handler to the handlers it depends on: B is a
// dependency of A when B writes a slice A reads.
func (r *Registry) AnalyzeDataFlow() map[string][]string {
	deps := make(map[string][]string, len(r.order))
	for _, name := range r.order {
		c := r.contracts[name]
		reads := map[string]struct{}{}
		for _, slice := range c.Reads {
			reads[slice] = struct{}{}
		}
		var upstream []string
		for _, other := range r.order {
			if other == name {
				continue
			}
			for _, written := range r.contracts[other].Writes {
				if _, ok := reads[written]; ok {
					upstream = append(upstream, other)
					break
				}
			}
		}
		deps[name] = upstream
	}
	return deps
}

func (r *Registry) isValidSlice(name string) bool {
	_, ok := r.validSlices[name]
	return ok
}
