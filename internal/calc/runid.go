package calc

import "github.com/google/uuid"

// newRunID stamps a pipeline run with a correlation ID, the same
// uuid.New().String() call the MCP server uses to stamp a session ID
// (internal/mcp/server.go).
func newRunID() string {
	return uuid.New().String()
}

// newWarningID stamps a CriticalWarning so two otherwise-identical
// warnings (same kind, same identifier) remain distinguishable across a
// run's diagnostics.
func newWarningID() string {
	return uuid.New().String()
}
