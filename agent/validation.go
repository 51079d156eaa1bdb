package agent

import (
	internalstrings "github.com/amonks/fileagent/internal/strings"
)

func requiredTrimmed(value, field string) (string, error) {
	trimmed := internalstrings.TrimSpace(value)
	if trimmed == "" {
		return "", validationError("%s is required", field)
	}
	return trimmed, nil
}
