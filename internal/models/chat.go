package models

// Chat roles
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one provider-agnostic conversation turn
type ChatMessage struct {
	Role    string `json:"role" validate:"required,chat_role"`
	Content string `json:"content"`
}

// ConnectionTestResult is returned by every connection probe. It is not stored.
type ConnectionTestResult struct {
	Status       ConnectionStatus `json:"status"`
	Message      string           `json:"message"`
	ServerTime   *string          `json:"server_time,omitempty"`
	Scopes       []string         `json:"scopes,omitempty"`
	HasTaskScope *bool            `json:"has_task_scope,omitempty"`
	ErrorCode    string           `json:"error_code,omitempty"`
	Model        string           `json:"model,omitempty"`
}
