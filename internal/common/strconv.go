package common

import (
	"strconv"
	"strings"
)

// AtoiDefault parses s as an int, returning fallback on empty or invalid input.
func AtoiDefault(s string, fallback int) int {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return fallback
	}
	v, err := strconv.Atoi(trimmed)
	if err != nil {
		return fallback
	}
	return v
}
