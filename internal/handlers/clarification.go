package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/state"
)

// clarificationQuestion is one canned follow-up with its answer options.
type clarificationQuestion struct {
	question string
	options  []string
}

var clarificationQuestions = map[string]clarificationQuestion{
	"device_type": {
		question: "To help you better, could you tell me what type of device you're having issues with?",
		options: []string{
			"Desktop computer",
			"Laptop",
			"Printer",
			"Monitor/Display",
			"Network equipment (router/modem)",
			"Other peripheral",
		},
	},
	"issue_type": {
		question: "What kind of issue are you experiencing?",
		options: []string{
			"Hardware/Physical problem",
			"Software/Application problem",
			"Network/Internet problem",
			"Other",
		},
	},
	"os_type": {
		question: "What operating system are you using?",
		options: []string{
			"Windows 11",
			"Windows 10",
			"macOS",
			"Linux",
			"Chrome OS",
		},
	},
	"timing": {
		question: "When did this issue start?",
		options: []string{
			"Just now",
			"After a recent update",
			"After installing something",
			"It's been happening for a while",
		},
	},
}

// Clarification asks a follow-up question when the issue is too vague to
// route. It records itself as the question owner so the next turn's answer
// routes straight back to it.
type Clarification struct{}

// NewClarification returns the clarification handler.
func NewClarification() *Clarification {
	return &Clarification{}
}

// Contract implements Handler.
func (c *Clarification) Contract() contract.Contract {
	return contract.Contract{
		Name:        "clarification",
		Description: "Asks clarifying questions when the issue is unclear",
		Reads:       []string{state.SliceRequest, SliceSupportContext, state.SliceInternal},
		Writes:      []string{state.SliceResponse, SliceSupportContext, state.SliceInternal},
		WorkflowID:  WorkflowID,
		Triggers: []contract.TriggerCondition{
			{
				Priority: 80,
				When:     map[string]any{"_internal.needs_clarification": true},
			},
			{
				Priority: 30,
				Hint:     "User question is vague or ambiguous, needs more information to help",
			},
		},
	}
}

// Execute implements Handler. On a normal turn it asks a follow-up
// question; on an answer turn it interprets the reply, releases question
// ownership, and records the inferred category for the specialists to
// trigger on.
func (c *Clarification) Execute(_ context.Context, st state.State) (map[string]any, error) {
	message := requestMessage(st)

	if action, _ := st.Resolve(state.SliceRequest + "." + state.KeyAction); state.String(action) == "answer" {
		return c.interpretAnswer(st, message), nil
	}

	kind := "issue_type"
	if v, ok := st.Resolve(state.SliceInternal + ".clarification_type"); ok {
		if s := state.String(v); s != "" {
			kind = s
		}
	}
	q, ok := clarificationQuestions[kind]
	if !ok {
		q = clarificationQuestions["issue_type"]
		kind = "issue_type"
	}

	var b strings.Builder
	for i, opt := range q.options {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, opt)
	}
	reply := q.question + "\n\n" + strings.TrimRight(b.String(), "\n")

	return map[string]any{
		state.SliceResponse: map[string]any{
			state.KeyResponseType: "question",
			"response_data": map[string]any{
				"title":              "Let me help you better",
				"question":           q.question,
				"options":            toAny(q.options),
				"clarification_type": kind,
				"category":           "clarification",
			},
			"response_message": reply,
		},
		SliceSupportContext: map[string]any{
			"conversation_history": appendHistory(st, "clarification", message, reply),
			"clarifications_count": supportInt(st, "clarifications_count") + 1,
			"resolved":             false,
		},
		state.SliceInternal: map[string]any{
			"needs_clarification":     false,
			"last_clarification_type": kind,
			state.KeyQuestionOwner:    "clarification",
		},
	}, nil
}

// interpretAnswer maps the user's reply onto a support category and hands
// routing back to the rule phase. An uninterpretable reply still releases
// ownership so the session cannot ping-pong on the same question.
func (c *Clarification) interpretAnswer(st state.State, message string) map[string]any {
	return map[string]any{
		SliceSupportContext: map[string]any{
			"conversation_history": append(historyOf(st), map[string]any{
				"role": "user", "content": message,
			}),
		},
		state.SliceInternal: map[string]any{
			state.KeyQuestionOwner: "",
			"needs_clarification":  false,
			"inferred_category":    inferCategory(message),
		},
	}
}

// inferCategory reads a category out of an option number or free text.
func inferCategory(message string) string {
	text := strings.ToLower(strings.TrimSpace(message))
	switch {
	case strings.HasPrefix(text, "1"):
		return "hardware"
	case strings.HasPrefix(text, "2"):
		return "software"
	case strings.HasPrefix(text, "3"):
		return "network"
	}
	for category, words := range categoryWords {
		for _, word := range words {
			if strings.Contains(text, word) {
				return category
			}
		}
	}
	return ""
}

var categoryWords = map[string][]string{
	"hardware": {"hardware", "physical", "printer", "monitor", "keyboard", "mouse", "device"},
	"software": {"software", "application", "program", "app", "install"},
	"network":  {"network", "internet", "wifi", "connection", "router"},
}
