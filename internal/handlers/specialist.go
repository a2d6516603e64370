package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/kingrea/waypoint/internal/contract"
	"github.com/kingrea/waypoint/internal/knowledge"
	"github.com/kingrea/waypoint/internal/state"
)

// Specialist is a category handler backed by a knowledge base. The three
// category specialists differ only in their contract and tables.
type Specialist struct {
	name         string
	description  string
	category     string
	kb           *knowledge.Base
	hint         string
	defaultSteps []string
	fallbackText string
}

// NewNetwork returns the network-issue specialist.
func NewNetwork() *Specialist {
	return &Specialist{
		name:        "network_support",
		description: "Handles network issues: WiFi, internet, connectivity, VPN, DNS",
		category:    "network",
		kb:          knowledge.Network(),
		hint: "User mentions network: wifi, internet, connection, " +
			"slow network, VPN, router, DNS, IP address",
		defaultSteps: []string{
			"1. Check if WiFi/Ethernet is connected",
			"2. Restart your router/modem",
			"3. Check cable connections",
			"4. Try accessing different websites",
		},
		fallbackText: "I can help with network issues. Could you provide more " +
			"details about the specific network problem you're experiencing?",
	}
}

// NewHardware returns the hardware-issue specialist.
func NewHardware() *Specialist {
	return &Specialist{
		name:        "hardware_support",
		description: "Handles hardware-related issues: printers, monitors, peripherals, physical components",
		category:    "hardware",
		kb:          knowledge.Hardware(),
		hint: "User mentions hardware: printer, monitor, keyboard, mouse, " +
			"USB, cable, screen, display, power, battery",
		defaultSteps: []string{
			"1. Check all physical connections",
			"2. Restart the device",
			"3. Check for driver updates",
			"4. Try the device on another computer",
		},
		fallbackText: "I can help with hardware issues. Could you provide more " +
			"details about the specific hardware and the problem you're experiencing?",
	}
}

// NewSoftware returns the software-issue specialist.
func NewSoftware() *Specialist {
	return &Specialist{
		name:        "software_support",
		description: "Handles software issues: applications, installs, updates, crashes, performance",
		category:    "software",
		kb:          knowledge.Software(),
		hint: "User mentions software: application, program, install, update, " +
			"crash, freeze, error message, slow computer",
		defaultSteps: []string{
			"1. Restart the application",
			"2. Check for application updates",
			"3. Restart the computer",
			"4. Reinstall the application if the problem persists",
		},
		fallbackText: "I can help with software issues. Could you provide more " +
			"details about the application and the problem you're experiencing?",
	}
}

// Contract implements Handler.
func (s *Specialist) Contract() contract.Contract {
	return contract.Contract{
		Name:        s.name,
		Description: s.description,
		Reads:       []string{state.SliceRequest, SliceSupportContext},
		Writes:      []string{state.SliceResponse, SliceSupportContext},
		WorkflowID:  WorkflowID,
		Triggers: []contract.TriggerCondition{
			{
				Priority: 100,
				When:     map[string]any{"request.category": s.category},
			},
			{
				Priority: 90,
				When:     map[string]any{"_internal.inferred_category": s.category},
			},
			{
				Priority: 50,
				Hint:     s.hint,
			},
		},
	}
}

// Execute implements Handler: look the message up in the knowledge base and
// answer with resolution steps, or ask for more detail when nothing matches.
func (s *Specialist) Execute(_ context.Context, st state.State) (map[string]any, error) {
	message := requestMessage(st)

	var (
		data    map[string]any
		reply   string
		issue   any
	)
	title := strings.ToUpper(s.category[:1]) + s.category[1:] + " Support"
	if entry, ok := s.kb.Search(message); ok {
		data = map[string]any{
			"title":      entry.Title,
			"steps":      toAny(entry.Steps),
			"follow_up":  entry.FollowUp,
			"category":   s.category,
			"issue_type": entry.Issue,
		}
		reply = formatEntry(entry)
		issue = entry.Issue
	} else {
		data = map[string]any{
			"title":     title,
			"steps":     toAny(s.defaultSteps),
			"follow_up": fmt.Sprintf("Can you provide more details about your %s issue?", s.category),
			"category":  s.category,
		}
		reply = s.fallbackText
	}

	return map[string]any{
		state.SliceResponse: map[string]any{
			state.KeyResponseType: "answer",
			"response_data":       data,
			"response_message":    reply,
		},
		SliceSupportContext: map[string]any{
			"conversation_history": appendHistory(st, s.name, message, reply),
			"current_issue":        issue,
			"clarifications_count": supportInt(st, "clarifications_count"),
			"resolved":             false,
		},
	}, nil
}

func formatEntry(entry knowledge.Entry) string {
	lines := []string{"**" + entry.Title + "**", "", "Try these steps:"}
	lines = append(lines, entry.Steps...)
	if entry.FollowUp != "" {
		lines = append(lines, "", entry.FollowUp)
	}
	return strings.Join(lines, "\n")
}

func toAny(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
