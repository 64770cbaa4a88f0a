package workflow

import (
	"fmt"
	"strings"
)

type Priority string

const (
	PriorityLow    Priority = "Baja"
	PriorityMedium Priority = "Media"
	PriorityHigh   Priority = "Alta"
	PriorityUrgent Priority = "Urgente"
)

var Priorities = []Priority{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

// ParsePriority defaults an empty value to Media.
func ParsePriority(s string) (Priority, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return PriorityMedium, nil
	}
	for _, p := range Priorities {
		if strings.EqualFold(string(p), trimmed) {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority: %s", s)
}
