package mysql

import "strings"

// DefaultSlot is the slot name used when none is configured.
const DefaultSlot = "plant-disease-app-profiles"

// slotOrDefault returns DefaultSlot when the input is empty/whitespace
func slotOrDefault(s string) string {
	if strings.TrimSpace(s) == "" {
		return DefaultSlot
	}
	return strings.TrimSpace(s)
}
