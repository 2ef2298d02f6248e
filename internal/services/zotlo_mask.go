package services

import (
	"strings"
)

// maskCardNumber replaces every digit that is followed by at least four more
// digits with '*', so only the last four digits of each digit run remain.
func maskCardNumber(number string) string {
	runes := []rune(number)
	out := make([]rune, len(runes))
	copy(out, runes)

	run := 0
	for i := len(runes) - 1; i >= 0; i-- {
		if !isDigit(runes[i]) {
			run = 0
			continue
		}
		if run >= 4 {
			out[i] = '*'
		}
		run++
	}
	return string(out)
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// maskCardPayload returns a copy of payload safe for logs and errors.
func maskCardPayload(payload map[string]any) map[string]any {
	masked := make(map[string]any, len(payload))
	for k, v := range payload {
		masked[k] = v
	}
	if cardNo, ok := masked["cardNo"].(string); ok {
		masked["cardNo"] = maskCardNumber(cardNo)
	}
	if _, ok := masked["cvv"]; ok {
		masked["cvv"] = "***"
	}
	return masked
}

// maskText masks any card-number-like digit run in free text, such as an
// error message that echoes the request.
func maskText(s string) string {
	if !strings.ContainsAny(s, "0123456789") {
		return s
	}
	return maskCardNumber(s)
}
