package handlers

import (
	"context"
	"strings"

	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/knowledge"
	"github.com/kingrea/waypoint/internal/state"
)

// General answers FAQ-style questions and is the low-priority catch-all when
// no specialist category applies. It is terminal: a general answer ends the
// session's line of investigation.
type General struct{}

// NewGeneral returns the general-support handler.
func NewGeneral() *General {
	return &General{}
}

// Contract implements Handler.
func (g *General) Contract() contract.Contract {
	return contract.Contract{
		Name:        "general_support",
		Description: "Handles general questions and FAQ items",
		Reads:       []string{state.SliceRequest, SliceSupportContext},
		Writes:      []string{state.SliceResponse},
		WorkflowID:  WorkflowID,
		Terminal:    true,
		Triggers: []contract.TriggerCondition{
			{
				Priority: 10,
				Hint:     "General tech questions or when other categories do not match",
			},
		},
	}
}

// Execute implements Handler.
func (g *General) Execute(_ context.Context, st state.State) (map[string]any, error) {
	message := requestMessage(st)

	var data map[string]any
	var reply string
	if item, ok := knowledge.SearchFAQ(message); ok {
		data = map[string]any{
			"title":    item.Topic,
			"content":  item.Content,
			"question": item.Question,
			"category": "general",
		}
		reply = "**" + item.Topic + "**\n\n" + item.Content
	} else {
		topics := knowledge.FAQTopics()
		if len(topics) > 5 {
			topics = topics[:5]
		}
		var b strings.Builder
		for _, topic := range topics {
			b.WriteString("  - " + topic + "\n")
		}
		topicsText := strings.TrimRight(b.String(), "\n")

		data = map[string]any{
			"title": "General Support",
			"content": "I couldn't find a specific answer to your question. " +
				"Here are some common topics I can help with:\n\n" + topicsText +
				"\n\nYou can also ask about hardware, software, or network issues.",
			"category": "general",
		}
		reply = "I'm not sure how to help with that specific question. " +
			"Here are some topics I can help with:\n\n" + topicsText +
			"\n\nOr describe your tech issue and I'll try to help!"
	}

	return map[string]any{
		state.SliceResponse: map[string]any{
			state.KeyResponseType: "answer",
			"response_data":       data,
			"response_message":    reply,
		},
	}, nil
}
