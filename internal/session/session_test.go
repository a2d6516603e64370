package session

import (
	"context"
	"testing"

	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/decision"
	"github.com/kingrea/waypoint/internal/state"
)

type stubHandler struct {
	contract contract.Contract
	update   map[string]any
	execute  func(st state.State) map[string]any
	calls    int
}

func (h *stubHandler) Contract() contract.Contract { return h.contract }

func (h *stubHandler) Execute(_ context.Context, st state.State) (map[string]any, error) {
	h.calls++
	if h.execute != nil {
		return h.execute(st), nil
	}
	return h.update, nil
}

func answerContract(name string) contract.Contract {
	return contract.Contract{
		Name:        name,
		Description: "stub " + name,
		Reads:       []string{state.SliceRequest},
		Writes:      []string{state.SliceResponse},
		WorkflowID:  "main",
		Triggers: []contract.TriggerCondition{
			{Priority: 50, When: map[string]any{"request.action": "message"}},
		},
	}
}

func answerUpdate(text string) map[string]any {
	return map[string]any{
		state.SliceResponse: map[string]any{
			state.KeyResponseType: "answer",
			"response_message":    text,
		},
	}
}

func buildSession(t *testing.T, stubs ...*stubHandler) *Session {
	t.Helper()
	reg := contract.NewRegistry()
	byName := map[string]Handler{}
	for _, h := range stubs {
		if err := reg.Register(h.contract); err != nil {
			t.Fatalf("register: %v", err)
		}
		byName[h.contract.Name] = h
	}
	eng := decision.New("main", reg)
	return New(eng, reg, byName)
}

func TestTurnDispatchesAndReturnsResponse(t *testing.T) {
	h := &stubHandler{contract: answerContract("alpha"), update: answerUpdate("here you go")}
	s := buildSession(t, h)

	result, err := s.Turn(context.Background(), "help me", "")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if h.calls != 1 {
		t.Fatalf("expected one dispatch, got %d", h.calls)
	}
	if result.Message != "here you go" || result.ResponseType != "answer" {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Ended {
		t.Fatal("answered turn must not be marked ended")
	}
	if len(result.Decisions) != 2 {
		t.Fatalf("expected dispatch + terminal decisions, got %v", result.Decisions)
	}
	if last := result.Decisions[len(result.Decisions)-1]; !last.Terminal() {
		t.Fatalf("expected trailing terminal decision, got %+v", last)
	}
}

func TestTurnEndsWhenNothingMatches(t *testing.T) {
	s := buildSession(t)

	result, err := s.Turn(context.Background(), "anyone there", "")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if !result.Ended {
		t.Fatalf("expected ended turn, got %+v", result)
	}
}

func TestQuestionSetsAnswerActionOnNextTurn(t *testing.T) {
	var seenActions []string
	asker := &stubHandler{
		contract: contract.Contract{
			Name:        "asker",
			Description: "asks a question",
			Reads:       []string{state.SliceRequest},
			Writes:      []string{state.SliceResponse, state.SliceInternal},
			WorkflowID:  "main",
			Triggers:    []contract.TriggerCondition{{Priority: 50}},
		},
	}
	asker.execute = func(st state.State) map[string]any {
		action, _ := st.Resolve(state.SliceRequest + "." + state.KeyAction)
		seenActions = append(seenActions, state.String(action))
		if state.String(action) == "answer" {
			return answerUpdate("thanks, resolved")
		}
		return map[string]any{
			state.SliceResponse: map[string]any{
				state.KeyResponseType: "question",
				"response_message":    "which device?",
			},
			state.SliceInternal: map[string]any{
				state.KeyQuestionOwner: "asker",
			},
		}
	}
	s := buildSession(t, asker)

	first, err := s.Turn(context.Background(), "something broke", "")
	if err != nil {
		t.Fatalf("turn 1: %v", err)
	}
	if first.ResponseType != "question" {
		t.Fatalf("expected question, got %+v", first)
	}

	second, err := s.Turn(context.Background(), "the printer", "")
	if err != nil {
		t.Fatalf("turn 2: %v", err)
	}
	if second.Message != "thanks, resolved" {
		t.Fatalf("unexpected second turn: %+v", second)
	}
	if len(seenActions) != 2 || seenActions[0] != "message" || seenActions[1] != "answer" {
		t.Fatalf("unexpected actions: %v", seenActions)
	}
	if d := second.Decisions[0]; d.Type != decision.TypeExplicitRouting || d.Handler != "asker" {
		t.Fatalf("expected explicit routing back to asker, got %+v", d)
	}
}

func TestUndeclaredWritesAreDropped(t *testing.T) {
	h := &stubHandler{contract: answerContract("alpha")}
	h.update = map[string]any{
		state.SliceResponse: map[string]any{
			state.KeyResponseType: "answer",
			"response_message":    "ok",
		},
		state.SliceRequest: map[string]any{state.KeyMessage: "rewritten"},
	}
	s := buildSession(t, h)

	if _, err := s.Turn(context.Background(), "original", ""); err != nil {
		t.Fatalf("turn: %v", err)
	}
	msg, _ := s.State().Resolve(state.SliceRequest + "." + state.KeyMessage)
	if state.String(msg) != "original" {
		t.Fatalf("undeclared request write leaked: %v", msg)
	}
}

func TestIterationGuardBoundsSession(t *testing.T) {
	// A handler that never produces a terminal response would loop forever
	// without the guard.
	h := &stubHandler{
		contract: contract.Contract{
			Name:        "spinner",
			Description: "never terminates",
			Reads:       []string{state.SliceRequest},
			Writes:      []string{state.SliceResponse},
			WorkflowID:  "main",
			Triggers:    []contract.TriggerCondition{{Priority: 50}},
		},
		update: map[string]any{
			state.SliceResponse: map[string]any{state.KeyResponseType: "progress"},
		},
	}
	reg := contract.NewRegistry()
	if err := reg.Register(h.contract); err != nil {
		t.Fatal(err)
	}
	eng := decision.New("main", reg, decision.WithMaxIterations(4), decision.WithTerminalResponseTypes("final"))
	s := New(eng, reg, map[string]Handler{"spinner": h})

	result, err := s.Turn(context.Background(), "spin", "")
	if err != nil {
		t.Fatalf("turn: %v", err)
	}
	if h.calls != 4 {
		t.Fatalf("expected guard to stop after 4 dispatches, got %d", h.calls)
	}
	if last := result.Decisions[len(result.Decisions)-1]; !last.Terminal() {
		t.Fatalf("expected terminal decision, got %+v", last)
	}
}

func TestResetClearsState(t *testing.T) {
	h := &stubHandler{contract: answerContract("alpha"), update: answerUpdate("done")}
	s := buildSession(t, h)
	if _, err := s.Turn(context.Background(), "hi", ""); err != nil {
		t.Fatal(err)
	}
	s.Reset()
	if v, _ := s.State().Resolve(state.SliceResponse + ".response_message"); v != nil {
		t.Fatalf("expected cleared state, got %v", v)
	}
}
