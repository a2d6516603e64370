// Package contract defines handler contracts, the registry that owns them,
// and the trigger-rule evaluation the decision engine routes by. Contracts
// are created once at startup and are immutable afterwards.
package contract

import (
	"fmt"
	"sort"
	"strings"
)

// TriggerCondition declares one rule under which a handler is eligible.
// All When entries must hold and no WhenNot entry may hold for the condition
// to match; a condition with neither always matches. Hint is free text shown
// only to the arbiter.
type TriggerCondition struct {
	Priority int
	When     map[string]any
	WhenNot  map[string]any
	Hint     string
}

// Describe renders the condition's predicates for traces and diagnostics.
// Keys are emitted in sorted order so the output is stable across runs.
func (c TriggerCondition) Describe() string {
	var parts []string
	for _, key := range sortedKeys(c.When) {
		parts = append(parts, fmt.Sprintf("%s == %v", key, c.When[key]))
	}
	for _, key := range sortedKeys(c.WhenNot) {
		parts = append(parts, fmt.Sprintf("%s != %v", key, c.WhenNot[key]))
	}
	if len(parts) == 0 {
		return "always"
	}
	return strings.Join(parts, " && ")
}

// Contract describes one handler's identity, data dependencies, eligibility
// rules, and terminality.
type Contract struct {
	// Name uniquely identifies the handler across the registry.
	Name        string
	Description string

	// Reads and Writes list the state slices the handler consumes and
	// produces. They should reference known slice names; unknown references
	// are reported, not rejected.
	Reads  []string
	Writes []string

	// WorkflowID names the workflow this handler belongs to.
	WorkflowID string

	// Terminal marks a handler whose completion ends the session.
	Terminal bool

	// Triggers are evaluated in order; the highest matching priority wins.
	Triggers []TriggerCondition

	// Services names dependencies the handler expects to be injected at
	// construction. Checked by the validator when a known-service set is
	// supplied.
	Services []string
}

// Validate ensures the contract is well-formed enough to register.
func (c Contract) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return fmt.Errorf("contract: name is required")
	}
	if strings.TrimSpace(c.Description) == "" {
		return fmt.Errorf("contract: description is required for %s", c.Name)
	}
	return nil
}

// Hints collects the arbiter hints from all trigger conditions, in order.
func (c Contract) Hints() []string {
	var hints []string
	for _, trigger := range c.Triggers {
		if trigger.Hint != "" {
			hints = append(hints, trigger.Hint)
		}
	}
	return hints
}

func sortedKeys(m map[string]any) []string {
	if len(m) == 0 {
		return nil
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
