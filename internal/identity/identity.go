// Package identity resolves which agent a command is acting as. The store
// itself never reads the environment; only entry points use this.
package identity

import (
	"fmt"
	"os"
	"strings"
)

// EnvVar names the environment variable holding the agent id.
const EnvVar = "CONVERSATIONS_AGENT_ID"

// Fallback is the identity used when nothing else is configured.
const Fallback = "user"

// Resolve returns the first non-empty of: the explicit value, the
// environment variable, the "user" fallback.
func Resolve(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	if v := strings.TrimSpace(os.Getenv(EnvVar)); v != "" {
		return v
	}
	return Fallback
}

// Require is Resolve without the fallback: headless callers (MCP, watch)
// must not silently impersonate "user".
func Require(explicit string) (string, error) {
	if v := strings.TrimSpace(explicit); v != "" {
		return v, nil
	}
	if v := strings.TrimSpace(os.Getenv(EnvVar)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("agent identity required: set %s or pass --from", EnvVar)
}
