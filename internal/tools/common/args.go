package common

import (
	"fmt"
	"math"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
)

// StringArg returns the string argument key, or "" when absent.
func StringArg(request mcp.CallToolRequest, key string) string {
	if v, ok := request.GetArguments()[key].(string); ok {
		return v
	}
	return ""
}

// RequiredStringArg returns the non-empty string argument key.
func RequiredStringArg(request mcp.CallToolRequest, key string) (string, error) {
	v := StringArg(request, key)
	if v == "" {
		return "", fmt.Errorf("%s is required", key)
	}
	return v, nil
}

// IntArg returns the integer argument key, or def when absent. JSON numbers
// arrive as float64; numeric strings are accepted too.
func IntArg(request mcp.CallToolRequest, key string, def int) (int, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return def, nil
	}

	switch v := raw.(type) {
	case float64:
		if v != math.Trunc(v) {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return int(v), nil
	case int:
		return v, nil
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0, fmt.Errorf("%s must be a whole number", key)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be a whole number", key)
	}
}

// BoolArg returns the boolean argument key, or def when absent.
func BoolArg(request mcp.CallToolRequest, key string, def bool) bool {
	switch v := request.GetArguments()[key].(type) {
	case bool:
		return v
	case string:
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
