package models

import (
	"time"
)

// API-friendly views of the stored records. Secrets are never copied.

// CrmConnectionAPI represents a CRM connection in API responses
type CrmConnectionAPI struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Domain          string           `json:"domain"`
	WebhookUserID   int              `json:"bitrix_user_id"`
	AuthType        AuthMode         `json:"auth_type"`
	IsActive        bool             `json:"is_active"`
	LastStatus      ConnectionStatus `json:"last_status"`
	LastCheckedAt   *string          `json:"last_checked_at"`
	ServerTime      *string          `json:"server_time"`
	AvailableScopes []string         `json:"available_scopes"`
	ErrorMessage    *string          `json:"error_message"`
	OAuthConnected  bool             `json:"oauth_connected"`
	CreatedAt       string           `json:"created_at"`
	UpdatedAt       string           `json:"updated_at"`
}

// CrmStatusAPI represents the stored health of a CRM connection
type CrmStatusAPI struct {
	ID              string           `json:"id"`
	Status          ConnectionStatus `json:"status"`
	LastCheckedAt   *string          `json:"last_checked_at"`
	ServerTime      *string          `json:"server_time"`
	AvailableScopes []string         `json:"available_scopes"`
	ErrorMessage    *string          `json:"error_message"`
}

// AiConnectionAPI represents an AI connection in API responses
type AiConnectionAPI struct {
	ID            string           `json:"id"`
	Name          string           `json:"name"`
	Provider      Provider         `json:"provider"`
	ProviderLabel string           `json:"provider_label"`
	Model         string           `json:"model"`
	Priority      int              `json:"priority"`
	IsActive      bool             `json:"is_active"`
	LastStatus    ConnectionStatus `json:"last_status"`
	ErrorMessage  *string          `json:"error_message"`
	LastCheckedAt *string          `json:"last_checked_at"`
	CreatedAt     string           `json:"created_at"`
	UpdatedAt     string           `json:"updated_at"`
}

// DashboardGroup summarizes the health of one kind of connection
type DashboardGroup struct {
	Total        int         `json:"total"`
	Connected    int         `json:"connected"`
	Error        int         `json:"error"`
	Disconnected int         `json:"disconnected"`
	Connections  interface{} `json:"connections"`
}

// DashboardStatus is the payload of the dashboard status endpoint
type DashboardStatus struct {
	Bitrix DashboardGroup `json:"bitrix"`
	AI     DashboardGroup `json:"ai"`
}

// ToCrmConnectionAPI converts a stored CRM connection to its API view
func ToCrmConnectionAPI(c *CrmConnection) *CrmConnectionAPI {
	if c == nil {
		return nil
	}

	authType := c.AuthMode
	if authType == "" {
		authType = AuthModeWebhook
	}

	return &CrmConnectionAPI{
		ID:              c.ID,
		Name:            c.Name,
		Domain:          c.Domain,
		WebhookUserID:   c.WebhookUserID,
		AuthType:        authType,
		IsActive:        c.IsActive,
		LastStatus:      c.LastStatus.OrDefault(),
		LastCheckedAt:   formatTime(c.LastCheckedAt),
		ServerTime:      c.ServerTime,
		AvailableScopes: c.AvailableScopes,
		ErrorMessage:    optional(c.ErrorMessage),
		OAuthConnected:  c.OAuthConnected(),
		CreatedAt:       c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:       c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// ToCrmStatusAPI converts a stored CRM connection to its status view
func ToCrmStatusAPI(c *CrmConnection) *CrmStatusAPI {
	if c == nil {
		return nil
	}
	return &CrmStatusAPI{
		ID:              c.ID,
		Status:          c.LastStatus.OrDefault(),
		LastCheckedAt:   formatTime(c.LastCheckedAt),
		ServerTime:      c.ServerTime,
		AvailableScopes: c.AvailableScopes,
		ErrorMessage:    optional(c.ErrorMessage),
	}
}

// ToAiConnectionAPI converts a stored AI connection to its API view
func ToAiConnectionAPI(c *AiConnection) *AiConnectionAPI {
	if c == nil {
		return nil
	}
	return &AiConnectionAPI{
		ID:            c.ID,
		Name:          c.Name,
		Provider:      c.Provider,
		ProviderLabel: c.Provider.Label(),
		Model:         c.Model,
		Priority:      c.Priority,
		IsActive:      c.IsActive,
		LastStatus:    c.LastStatus.OrDefault(),
		ErrorMessage:  optional(c.ErrorMessage),
		LastCheckedAt: formatTime(c.LastCheckedAt),
		CreatedAt:     c.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:     c.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

// BuildDashboard counts connection health for both kinds of connection
func BuildDashboard(crm []*CrmConnection, ai []*AiConnection) DashboardStatus {
	var status DashboardStatus

	crmViews := make([]*CrmStatusAPI, 0, len(crm))
	for _, c := range crm {
		countStatus(&status.Bitrix, c.LastStatus)
		crmViews = append(crmViews, ToCrmStatusAPI(c))
	}
	status.Bitrix.Connections = crmViews

	aiViews := make([]*AiConnectionAPI, 0, len(ai))
	for _, c := range ai {
		countStatus(&status.AI, c.LastStatus)
		aiViews = append(aiViews, ToAiConnectionAPI(c))
	}
	status.AI.Connections = aiViews

	return status
}

func countStatus(g *DashboardGroup, s ConnectionStatus) {
	g.Total++
	switch s.OrDefault() {
	case StatusConnected:
		g.Connected++
	case StatusError:
		g.Error++
	default:
		g.Disconnected++
	}
}

func formatTime(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
