package stubagent

import (
	"strings"
)

const noResponse = "No response generated."

// apply runs a scripted instruction against ws and returns the reply.
// Only "delete <path>" and "create <path> [content]" are understood; each
// line of the prompt is one instruction.
func (ws *workspace) apply(prompt string) string {
	var replies []string
	for _, line := range strings.Split(prompt, "\n") {
		verb, rest, _ := strings.Cut(strings.TrimSpace(line), " ")
		rest = strings.TrimSpace(rest)
		switch strings.ToLower(verb) {
		case "delete", "remove", "rm":
			if rest == "" {
				continue
			}
			replies = append(replies, "Executed delete_file: "+ws.delete(rest))
		case "create", "add", "touch":
			if rest == "" {
				continue
			}
			name, content, _ := strings.Cut(rest, " ")
			replies = append(replies, "Executed create_file: "+ws.create(name, content))
		}
	}
	if len(replies) == 0 {
		return noResponse
	}
	return strings.Join(replies, "\n")
}
