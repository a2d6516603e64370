// Package session drives the turn loop for one conversation: it feeds user
// messages into the decision engine, dispatches the chosen handlers, and
// merges their writes back into the shared state.
package session

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/decision"
	"github.com/kingrea/waypoint/internal/logging"
	"github.com/kingrea/waypoint/internal/state"
)

// Handler is what the session dispatches to. The handlers package satisfies
// it; tests use stubs.
type Handler interface {
	Contract() contract.Contract
	Execute(ctx context.Context, st state.State) (map[string]any, error)
}

// TurnResult is what one user message produced.
type TurnResult struct {
	// Message is the assistant's reply text, empty when the turn ended
	// without a response.
	Message string

	// ResponseType is the response slice's type after the turn.
	ResponseType string

	// Decisions lists every engine decision taken during the turn, in order.
	Decisions []decision.Decision

	// Ended reports that the engine terminated the turn without any handler
	// producing a response, which means the conversation has nowhere to go.
	Ended bool
}

// Session is one conversation against one workflow. Not safe for concurrent
// use; each conversation owns its session.
type Session struct {
	id       string
	engine   *decision.Engine
	registry *contract.Registry
	handlers map[string]Handler
	st       state.State
	log      *logging.Logger

	awaitingAnswer bool
}

// Option customizes a session.
type Option func(*Session)

// WithLogger attaches a logger.
func WithLogger(log *logging.Logger) Option {
	return func(s *Session) { s.log = log }
}

// New starts a session with fresh state.
func New(engine *decision.Engine, registry *contract.Registry, byName map[string]Handler, opts ...Option) *Session {
	s := &Session{
		id:       uuid.NewString(),
		engine:   engine,
		registry: registry,
		handlers: byName,
		st:       state.New(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// State exposes the live state for debug display. Callers must not mutate.
func (s *Session) State() state.State { return s.st }

// Registry exposes the contract set backing this session.
func (s *Session) Registry() *contract.Registry { return s.registry }

// Reset discards the conversation state but keeps the session identity.
func (s *Session) Reset() {
	s.st = state.New()
	s.awaitingAnswer = false
}

// Turn processes one user message: it repeatedly asks the engine for a
// decision and dispatches handlers until the engine terminates the turn.
func (s *Session) Turn(ctx context.Context, message, category string) (TurnResult, error) {
	action := "message"
	if s.awaitingAnswer {
		action = "answer"
	}

	request := map[string]any{
		state.KeyAction:   action,
		state.KeyMessage:  message,
		state.KeyCategory: nil,
		"session_id":      s.id,
	}
	if category != "" {
		request[state.KeyCategory] = category
	}
	s.st[state.SliceRequest] = request
	s.st[state.SliceResponse] = map[string]any{}
	if action == "message" {
		// A fresh problem statement invalidates any category inferred from
		// an earlier clarification exchange.
		s.st.Apply(map[string]any{
			state.SliceInternal: map[string]any{"inferred_category": ""},
		})
	}

	var result TurnResult
	for {
		d, update := s.engine.Run(ctx, s.st)
		s.st.Apply(update)
		result.Decisions = append(result.Decisions, d)

		if d.Terminal() {
			break
		}

		h, ok := s.handlers[d.Handler]
		if !ok {
			return result, fmt.Errorf("session: no handler registered for %s", d.Handler)
		}
		out, err := h.Execute(ctx, s.st)
		if err != nil {
			return result, fmt.Errorf("session: handler %s: %w", d.Handler, err)
		}
		s.st.Apply(s.restrictWrites(d.Handler, out))
	}

	if v, ok := s.st.Resolve(state.SliceResponse + "." + state.KeyResponseType); ok {
		result.ResponseType = state.String(v)
	}
	if v, ok := s.st.Resolve(state.SliceResponse + ".response_message"); ok {
		result.Message = state.String(v)
	}
	result.Ended = result.ResponseType == "" && result.Message == ""
	s.awaitingAnswer = result.ResponseType == "question"
	return result, nil
}

// restrictWrites drops update slices the handler's contract does not declare
// as writes.
func (s *Session) restrictWrites(handlerName string, update map[string]any) map[string]any {
	c, ok := s.registry.Contract(handlerName)
	if !ok {
		return update
	}
	allowed := map[string]struct{}{}
	for _, name := range c.Writes {
		allowed[name] = struct{}{}
	}
	filtered := map[string]any{}
	for name, payload := range update {
		if _, ok := allowed[name]; !ok {
			s.log.Warnf("session: handler %s wrote undeclared slice %q; dropped", handlerName, name)
			continue
		}
		filtered[name] = payload
	}
	return filtered
}
