package crm

import "fmt"

// APIError is the error body returned by the Bitrix24 REST API
type APIError struct {
	Code        string `json:"error"`
	Description string `json:"error_description"`
}

var errorMessages = map[string]string{
	"NO_AUTH_FOUND":        "Authentication failed: invalid webhook code or user ID.",
	"insufficient_scope":   "Insufficient permissions: webhook does not have required scopes.",
	"INVALID_CREDENTIALS":  "Invalid credentials: user lacks permissions.",
	"ACCESS_DENIED":        "Access denied: REST API may not be available.",
	"QUERY_LIMIT_EXCEEDED": "Rate limit exceeded. Please try again later.",
	"expired_token":        "OAuth token expired. Please re-authorize.",
}

// MapError turns a REST error code into the message shown to administrators.
// Unknown codes produce a generic message with the HTTP status and description.
func MapError(code string, statusCode int, description string) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}
	return fmt.Sprintf("Bitrix24 error (%d): %s", statusCode, description)
}
