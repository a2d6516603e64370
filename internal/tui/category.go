package tui

import "strings"

// detectCategory guesses a support category from message keywords before the
// engine runs, so the high-priority category rules can fire without waiting
// for a clarification round. Hardware wins over network wins over software
// when keywords from several categories appear.
func detectCategory(message string) string {
	text := strings.ToLower(message)

	hardware := []string{
		"printer", "monitor", "screen", "keyboard", "mouse",
		"usb", "power", "battery", "cable", "display",
	}
	for _, kw := range hardware {
		if strings.Contains(text, kw) {
			return "hardware"
		}
	}

	network := []string{
		"wifi", "wi-fi", "internet", "network", "connection",
		"router", "vpn", "dns",
	}
	for _, kw := range network {
		if strings.Contains(text, kw) {
			return "network"
		}
	}

	software := []string{
		"crash", "error", "install", "update", "slow",
		"freeze", "virus", "malware", "browser",
	}
	for _, kw := range software {
		if strings.Contains(text, kw) {
			return "software"
		}
	}

	return ""
}
