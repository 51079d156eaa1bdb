package agent

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	internalstrings "github.com/amonks/fileagent/internal/strings"
)

// DefaultURL is used when no service address is configured.
const DefaultURL = "http://127.0.0.1:8000"

// ResolveURL returns the service URL from the first non-blank candidate,
// falling back to DefaultURL. Candidates are ordered by precedence.
func ResolveURL(candidates ...string) (string, error) {
	for _, candidate := range candidates {
		if internalstrings.IsBlank(candidate) {
			continue
		}
		return normalizeURL(candidate)
	}
	return DefaultURL, nil
}

func normalizeURL(addr string) (string, error) {
	trimmed := strings.TrimSpace(addr)
	if trimmed == "" {
		return "", fmt.Errorf("address is required")
	}
	if strings.HasPrefix(trimmed, "http://") || strings.HasPrefix(trimmed, "https://") {
		parsed, err := url.Parse(trimmed)
		if err != nil {
			return "", fmt.Errorf("invalid url %q: %w", trimmed, err)
		}
		if parsed.Host == "" {
			return "", fmt.Errorf("invalid url %q: missing host", trimmed)
		}
		return internalstrings.TrimTrailingSlash(trimmed), nil
	}
	if strings.Contains(trimmed, "://") {
		return "", fmt.Errorf("unsupported scheme in %q", trimmed)
	}
	if strings.Contains(trimmed, ":") {
		return "http://" + internalstrings.TrimTrailingSlash(trimmed), nil
	}
	port, err := strconv.Atoi(trimmed)
	if err != nil {
		return "", fmt.Errorf("invalid port %q", trimmed)
	}
	if port <= 0 || port > 65535 {
		return "", fmt.Errorf("port out of range: %d", port)
	}
	return fmt.Sprintf("http://127.0.0.1:%d", port), nil
}
