package knowledge

// Network returns the network-issue knowledge base.
func Network() *Base {
	return NewBase("network", []Entry{
		{
			Issue:    "wifi_connectivity",
			Title:    "WiFi Connection Problems",
			Keywords: []string{"wifi", "wireless", "connection", "disconnect", "dropping"},
			Steps: []string{
				"1. Toggle WiFi off and on from the system tray",
				"2. Restart your router and wait 30 seconds",
				"3. Forget the network and reconnect with the password",
				"4. Move closer to the router to rule out signal strength",
			},
			FollowUp: "Is the problem on one device or on every device in the house?",
		},
		{
			Issue:    "slow_internet",
			Title:    "Slow Internet Speed",
			Keywords: []string{"slow", "speed", "lag", "buffering", "internet"},
			Steps: []string{
				"1. Run a speed test at speedtest.net",
				"2. Close bandwidth-heavy applications and downloads",
				"3. Connect by Ethernet cable to compare against WiFi",
				"4. Restart your modem and router",
			},
			FollowUp: "What speed does the test report compared to your plan?",
		},
		{
			Issue:    "vpn_issues",
			Title:    "VPN Connection Issues",
			Keywords: []string{"vpn", "remote", "tunnel", "corporate"},
			Steps: []string{
				"1. Disconnect and reconnect the VPN client",
				"2. Check your credentials have not expired",
				"3. Try a different VPN server location",
				"4. Temporarily disable the firewall to test for interference",
			},
			FollowUp: "Does the VPN fail to connect, or connect and then drop?",
		},
		{
			Issue:    "dns_problems",
			Title:    "DNS Resolution Problems",
			Keywords: []string{"dns", "website", "resolve", "unreachable", "browser"},
			Steps: []string{
				"1. Flush the DNS cache (ipconfig /flushdns on Windows)",
				"2. Switch DNS servers to 8.8.8.8 and 8.8.4.4",
				"3. Check whether the site is down for everyone or just you",
				"4. Restart the router to refresh DHCP-assigned DNS",
			},
			FollowUp: "Do some websites load while others do not?",
		},
	})
}

// Hardware returns the hardware-issue knowledge base.
func Hardware() *Base {
	return NewBase("hardware", []Entry{
		{
			Issue:    "printer_not_working",
			Title:    "Printer Not Working",
			Keywords: []string{"printer", "print", "printing", "paper", "toner"},
			Steps: []string{
				"1. Check the printer is powered on and shows no error lights",
				"2. Verify the USB or network cable is seated",
				"3. Clear the print queue and retry",
				"4. Reinstall or update the printer driver",
			},
			FollowUp: "Does the printer show any error message on its display?",
		},
		{
			Issue:    "monitor_display",
			Title:    "Monitor or Display Problems",
			Keywords: []string{"monitor", "screen", "display", "flicker", "resolution", "blank"},
			Steps: []string{
				"1. Check the video cable at both ends",
				"2. Try a different cable or port (HDMI/DisplayPort)",
				"3. Test the monitor on another computer",
				"4. Update the graphics driver",
			},
			FollowUp: "Is the screen completely blank, or distorted?",
		},
		{
			Issue:    "keyboard_mouse",
			Title:    "Keyboard or Mouse Not Responding",
			Keywords: []string{"keyboard", "mouse", "keys", "cursor", "typing"},
			Steps: []string{
				"1. Unplug and replug the device, or re-pair if wireless",
				"2. Replace the batteries on wireless devices",
				"3. Try a different USB port",
				"4. Test the device on another computer",
			},
			FollowUp: "Is the device wired or wireless?",
		},
		{
			Issue:    "power_battery",
			Title:    "Power and Battery Issues",
			Keywords: []string{"power", "battery", "charge", "charging", "shutdown", "boot"},
			Steps: []string{
				"1. Check the power cable and adapter for damage",
				"2. Try a different wall outlet",
				"3. Remove the battery (if removable) and run on mains power",
				"4. Hold the power button for 30 seconds to drain residual charge",
			},
			FollowUp: "Does the charging light come on when plugged in?",
		},
	})
}

// Software returns the software-issue knowledge base.
func Software() *Base {
	return NewBase("software", []Entry{
		{
			Issue:    "application_crash",
			Title:    "Application Crashes or Freezes",
			Keywords: []string{"crash", "freeze", "frozen", "hang", "responding", "application", "app"},
			Steps: []string{
				"1. Force-quit the application and relaunch it",
				"2. Install any pending application updates",
				"3. Restart the computer",
				"4. Reinstall the application if crashes persist",
			},
			FollowUp: "Does it crash at startup, or during a specific action?",
		},
		{
			Issue:    "install_update",
			Title:    "Installation or Update Failures",
			Keywords: []string{"install", "update", "upgrade", "installer", "download"},
			Steps: []string{
				"1. Check you have enough free disk space",
				"2. Run the installer as administrator",
				"3. Temporarily disable antivirus during installation",
				"4. Download the installer again in case it was corrupted",
			},
			FollowUp: "What error message does the installer show?",
		},
		{
			Issue:    "slow_performance",
			Title:    "Slow Computer Performance",
			Keywords: []string{"slow", "performance", "sluggish", "memory", "cpu"},
			Steps: []string{
				"1. Close unused applications and browser tabs",
				"2. Check Task Manager or Activity Monitor for heavy processes",
				"3. Restart the computer",
				"4. Free up disk space if the drive is nearly full",
			},
			FollowUp: "Is it slow all the time, or only with certain programs?",
		},
		{
			Issue:    "login_password",
			Title:    "Login and Password Problems",
			Keywords: []string{"login", "password", "locked", "account", "signin", "credentials"},
			Steps: []string{
				"1. Check Caps Lock and keyboard layout",
				"2. Use the password reset link on the login screen",
				"3. Wait 15 minutes if the account is temporarily locked",
				"4. Contact your administrator if reset is unavailable",
			},
			FollowUp: "Is this a local computer account, or an online service?",
		},
	})
}

// FAQItem is one general question and its answer.
type FAQItem struct {
	Question string
	Topic    string
	Keywords []string
	Content  string
}

// FAQ returns the general-support question list, in display order.
func FAQ() []FAQItem {
	return []FAQItem{
		{
			Question: "How do I back up my files?",
			Topic:    "Backing up files",
			Keywords: []string{"backup", "back", "files", "save", "copy"},
			Content: "Use an external drive or a cloud service. On Windows, enable File History; " +
				"on macOS, enable Time Machine. Automate it so backups happen without you remembering.",
		},
		{
			Question: "How often should I restart my computer?",
			Topic:    "Restarting your computer",
			Keywords: []string{"restart", "reboot", "often"},
			Content: "A restart once a week keeps updates applied and clears accumulated state. " +
				"Restart immediately when the system behaves oddly; it resolves a surprising share of issues.",
		},
		{
			Question: "How do I keep my computer secure?",
			Topic:    "Security basics",
			Keywords: []string{"security", "secure", "virus", "antivirus", "malware"},
			Content: "Keep the operating system and browser updated, use unique passwords with a " +
				"password manager, enable two-factor authentication, and do not open unexpected attachments.",
		},
		{
			Question: "Why is my storage full?",
			Topic:    "Managing disk space",
			Keywords: []string{"storage", "disk", "space", "full"},
			Content: "Downloads, video files, and old installers usually dominate. Use the built-in " +
				"storage analyzer (Storage Sense on Windows, About This Mac > Storage on macOS) to find the biggest items.",
		},
		{
			Question: "How do I take a screenshot?",
			Topic:    "Taking screenshots",
			Keywords: []string{"screenshot", "capture", "screen"},
			Content: "Windows: Win+Shift+S opens the snipping overlay. macOS: Cmd+Shift+4 selects a " +
				"region, Cmd+Shift+3 captures the whole screen.",
		},
	}
}

// SearchFAQ finds the FAQ item best matching the message, using the same
// keyword scoring as the category bases.
func SearchFAQ(message string) (FAQItem, bool) {
	tokens := tokenize(message)
	if len(tokens) == 0 {
		return FAQItem{}, false
	}
	var best FAQItem
	bestScore := 0
	for _, item := range FAQ() {
		score := entryScore(Entry{Keywords: item.Keywords}, tokens)
		if score > bestScore {
			best, bestScore = item, score
		}
	}
	if bestScore == 0 {
		return FAQItem{}, false
	}
	return best, true
}

// FAQTopics lists the topics for the "nothing matched" response.
func FAQTopics() []string {
	items := FAQ()
	topics := make([]string, 0, len(items))
	for _, item := range items {
		topics = append(topics, item.Topic)
	}
	return topics
}
