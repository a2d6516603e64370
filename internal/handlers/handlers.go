// Package handlers implements the tech-support handlers the decision engine
// routes between: three knowledge-base specialists, a general FAQ handler,
// and a clarification handler that asks follow-up questions.
package handlers

import (
	"context"
	"fmt"

	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/state"
)

// SliceSupportContext is the domain slice the support handlers share:
// conversation history, the issue under investigation, and resolution flags.
const SliceSupportContext = "support_context"

// WorkflowID is the workflow all support handlers belong to.
const WorkflowID = "tech_support"

// Handler executes one turn's work for its contract. Execute receives the
// shared state read-only and returns a partial update; the session applies
// it, restricted to the slices the contract declares as writes.
type Handler interface {
	Contract() contract.Contract
	Execute(ctx context.Context, st state.State) (map[string]any, error)
}

// All returns every support handler, in registration order.
func All() []Handler {
	return []Handler{
		NewHardware(),
		NewSoftware(),
		NewNetwork(),
		NewGeneral(),
		NewClarification(),
	}
}

// Register installs every handler's contract into the registry and returns
// the handlers keyed by name for dispatch.
func Register(reg *contract.Registry) (map[string]Handler, error) {
	reg.AddValidSlice(SliceSupportContext)
	byName := map[string]Handler{}
	for _, h := range All() {
		c := h.Contract()
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("handlers: register %s: %w", c.Name, err)
		}
		byName[c.Name] = h
	}
	return byName, nil
}

// appendHistory returns the conversation history extended with this turn's
// user message and the handler's reply.
func appendHistory(st state.State, handlerName, userMessage, reply string) []any {
	history := historyOf(st)
	history = append(history,
		map[string]any{"role": "user", "content": userMessage},
		map[string]any{"role": "assistant", "content": reply, "handler": handlerName},
	)
	return history
}

// historyOf returns the conversation history so far, or nil.
func historyOf(st state.State) []any {
	v, _ := st.Resolve(SliceSupportContext + ".conversation_history")
	history, _ := v.([]any)
	return history
}

func requestMessage(st state.State) string {
	v, _ := st.Resolve(state.SliceRequest + "." + state.KeyMessage)
	return state.String(v)
}

func supportInt(st state.State, key string) int {
	v, _ := st.Resolve(SliceSupportContext + "." + key)
	return state.Int(v)
}
