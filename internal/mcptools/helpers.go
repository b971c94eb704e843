// Package mcptools exposes the read-only progress and activity reports as
// MCP tools.
//
// Each tool follows the same pattern:
//   - A struct with its service dependencies injected via constructor
//   - Definition() returns the mcp.Tool schema
//   - Handle() processes the request and returns a result
//
// Caller mistakes are reported as tool errors (IsError results), never as Go
// errors, so the client model can read and correct them.
package mcptools

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hyperengineering/pulse/internal/validation"
)

// numberArg returns a numeric argument in its query-string form, or "" when
// the key is missing or not a number (JSON numbers are float64).
func numberArg(req mcp.CallToolRequest, key string) string {
	v, ok := req.GetArguments()[key].(float64)
	if !ok {
		return ""
	}
	return strconv.Itoa(int(v))
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// uuidArg returns the trimmed UUID argument named key, or an error result
// when it is missing or malformed.
func uuidArg(req mcp.CallToolRequest, key string) (string, *mcp.CallToolResult) {
	v := strings.TrimSpace(req.GetString(key, ""))
	if v == "" {
		return "", mcp.NewToolResultError(fmt.Sprintf("'%s' is required", key))
	}
	if err := validation.ValidateUUID(key, v); err != nil {
		return "", mcp.NewToolResultError(fmt.Sprintf("'%s' %s", key, err.Message))
	}
	return v, nil
}

func fieldErrors(errs []validation.ValidationError) *mcp.CallToolResult {
	var b strings.Builder
	b.WriteString("invalid arguments:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "- %s: %s\n", e.Field, e.Message)
	}
	return mcp.NewToolResultError(b.String())
}

// bar renders a percentage as a ten-cell text bar.
func bar(pct int) string {
	filled := pct / 10
	if filled < 0 {
		filled = 0
	}
	if filled > 10 {
		filled = 10
	}
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", 10-filled) + "]"
}
