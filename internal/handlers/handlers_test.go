package handlers

import (
	"context"
	"strings"
	"testing"

	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/state"
)

func requestState(message, category string) state.State {
	st := state.New()
	st[state.SliceRequest] = map[string]any{
		state.KeyMessage:  message,
		state.KeyCategory: category,
	}
	return st
}

func responseField(t *testing.T, update map[string]any, key string) any {
	t.Helper()
	resp, ok := update[state.SliceResponse].(map[string]any)
	if !ok {
		t.Fatalf("update has no response slice: %v", update)
	}
	return resp[key]
}

func TestRegisterInstallsAllHandlers(t *testing.T) {
	reg := contract.NewRegistry()
	byName, err := Register(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	want := []string{
		"hardware_support", "software_support", "network_support",
		"general_support", "clarification",
	}
	if len(byName) != len(want) {
		t.Fatalf("expected %d handlers, got %d", len(want), len(byName))
	}
	for _, name := range want {
		if _, ok := byName[name]; !ok {
			t.Fatalf("missing handler %s", name)
		}
		if _, ok := reg.Contract(name); !ok {
			t.Fatalf("missing contract %s", name)
		}
	}
}

func TestRegisteredContractsValidate(t *testing.T) {
	reg := contract.NewRegistry()
	if _, err := Register(reg); err != nil {
		t.Fatal(err)
	}
	result := contract.NewValidator(reg).Validate()
	if !result.IsValid() {
		t.Fatalf("handler contracts must validate cleanly: %s", result)
	}
}

func TestSpecialistAnswersFromKnowledgeBase(t *testing.T) {
	update, err := NewNetwork().Execute(context.Background(), requestState("my wifi keeps dropping", "network"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := responseField(t, update, state.KeyResponseType); got != "answer" {
		t.Fatalf("expected answer, got %v", got)
	}
	msg := responseField(t, update, "response_message").(string)
	if !strings.Contains(msg, "WiFi Connection Problems") {
		t.Fatalf("expected KB title in reply: %q", msg)
	}

	support, _ := update[SliceSupportContext].(map[string]any)
	if support["current_issue"] != "wifi_connectivity" {
		t.Fatalf("expected current issue recorded, got %v", support["current_issue"])
	}
	history, _ := support["conversation_history"].([]any)
	if len(history) != 2 {
		t.Fatalf("expected user+assistant history entries, got %d", len(history))
	}
}

func TestSpecialistFallsBackWithoutMatch(t *testing.T) {
	update, err := NewHardware().Execute(context.Background(), requestState("something is off", "hardware"))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	msg := responseField(t, update, "response_message").(string)
	if !strings.Contains(msg, "more details") {
		t.Fatalf("expected fallback reply, got %q", msg)
	}
	support, _ := update[SliceSupportContext].(map[string]any)
	if support["current_issue"] != nil {
		t.Fatalf("expected no issue recorded, got %v", support["current_issue"])
	}
}

func TestSpecialistPreservesHistoryAndCount(t *testing.T) {
	st := requestState("the printer is jammed again", "hardware")
	st[SliceSupportContext] = map[string]any{
		"conversation_history": []any{
			map[string]any{"role": "user", "content": "earlier message"},
		},
		"clarifications_count": 2,
	}

	update, err := NewHardware().Execute(context.Background(), st)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	support, _ := update[SliceSupportContext].(map[string]any)
	history, _ := support["conversation_history"].([]any)
	if len(history) != 3 {
		t.Fatalf("expected history extended to 3 entries, got %d", len(history))
	}
	if support["clarifications_count"] != 2 {
		t.Fatalf("expected clarification count preserved, got %v", support["clarifications_count"])
	}
}

func TestGeneralAnswersFAQ(t *testing.T) {
	update, err := NewGeneral().Execute(context.Background(), requestState("how do I take a screenshot", ""))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	msg := responseField(t, update, "response_message").(string)
	if !strings.Contains(msg, "Taking screenshots") {
		t.Fatalf("expected FAQ answer, got %q", msg)
	}
	if _, ok := update[SliceSupportContext]; ok {
		t.Fatal("general handler must not write support context")
	}
}

func TestGeneralListsTopicsWhenUnmatched(t *testing.T) {
	update, err := NewGeneral().Execute(context.Background(), requestState("tell me about gardening", ""))
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	msg := responseField(t, update, "response_message").(string)
	if !strings.Contains(msg, "topics I can help with") {
		t.Fatalf("expected topic list, got %q", msg)
	}
}

func TestClarificationAsksAndRecordsOwnership(t *testing.T) {
	st := requestState("it's broken", "")
	update, err := NewClarification().Execute(context.Background(), st)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if got := responseField(t, update, state.KeyResponseType); got != "question" {
		t.Fatalf("expected question response, got %v", got)
	}

	internal, _ := update[state.SliceInternal].(map[string]any)
	if internal[state.KeyQuestionOwner] != "clarification" {
		t.Fatalf("expected question owner recorded, got %v", internal)
	}
	if internal["needs_clarification"] != false {
		t.Fatalf("expected needs_clarification cleared, got %v", internal)
	}

	support, _ := update[SliceSupportContext].(map[string]any)
	if support["clarifications_count"] != 1 {
		t.Fatalf("expected count incremented, got %v", support["clarifications_count"])
	}
}

func TestClarificationSelectsQuestionType(t *testing.T) {
	st := requestState("no idea", "")
	st[state.SliceInternal] = map[string]any{"clarification_type": "os_type"}

	update, err := NewClarification().Execute(context.Background(), st)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	msg := responseField(t, update, "response_message").(string)
	if !strings.Contains(msg, "operating system") {
		t.Fatalf("expected os question, got %q", msg)
	}

	st[state.SliceInternal] = map[string]any{"clarification_type": "bogus"}
	update, err = NewClarification().Execute(context.Background(), st)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	msg = responseField(t, update, "response_message").(string)
	if !strings.Contains(msg, "What kind of issue") {
		t.Fatalf("expected default question for unknown type, got %q", msg)
	}
}

func TestClarificationInterpretsAnswer(t *testing.T) {
	st := requestState("3. Network/Internet problem", "")
	st[state.SliceRequest].(map[string]any)[state.KeyAction] = "answer"
	st[state.SliceInternal] = map[string]any{state.KeyQuestionOwner: "clarification"}

	update, err := NewClarification().Execute(context.Background(), st)
	if err != nil {
		t.Fatalf("execute: %v", err)
	}
	if _, ok := update[state.SliceResponse]; ok {
		t.Fatal("answer turn must not produce a response")
	}
	internal, _ := update[state.SliceInternal].(map[string]any)
	if internal[state.KeyQuestionOwner] != "" {
		t.Fatalf("expected ownership released, got %v", internal)
	}
	if internal["inferred_category"] != "network" {
		t.Fatalf("expected network inferred, got %v", internal["inferred_category"])
	}
}

func TestInferCategory(t *testing.T) {
	cases := map[string]string{
		"1":                        "hardware",
		"2. Software/Application":  "software",
		"my printer again":         "hardware",
		"it's the wifi":            "network",
		"no idea what it could be": "",
	}
	for input, want := range cases {
		if got := inferCategory(input); got != want {
			t.Fatalf("inferCategory(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestInferredCategoryTriggersSpecialist(t *testing.T) {
	reg := contract.NewRegistry()
	if _, err := Register(reg); err != nil {
		t.Fatal(err)
	}
	st := requestState("as I said", "")
	st[state.SliceInternal] = map[string]any{"inferred_category": "network"}
	matches := reg.EvaluateTriggers(WorkflowID, st)
	if len(matches) == 0 || matches[0].Handler != "network_support" || matches[0].Priority != 90 {
		t.Fatalf("expected network_support at 90, got %v", matches)
	}
}

func TestCategoryTriggersRouteByCategory(t *testing.T) {
	reg := contract.NewRegistry()
	if _, err := Register(reg); err != nil {
		t.Fatal(err)
	}

	st := requestState("help", "software")
	matches := reg.EvaluateTriggers(WorkflowID, st)
	if len(matches) == 0 || matches[0].Handler != "software_support" || matches[0].Priority != 100 {
		t.Fatalf("expected software_support at 100, got %v", matches)
	}
}

func TestClarificationFlagOutranksCategoryHints(t *testing.T) {
	reg := contract.NewRegistry()
	if _, err := Register(reg); err != nil {
		t.Fatal(err)
	}

	st := requestState("help", "")
	st[state.SliceInternal] = map[string]any{"needs_clarification": true}
	matches := reg.EvaluateTriggers(WorkflowID, st)
	if len(matches) == 0 || matches[0].Handler != "clarification" || matches[0].Priority != 80 {
		t.Fatalf("expected clarification at 80, got %v", matches)
	}
}
