// Package models holds the connection records shared by the broker, the
// credential store and the admin API.
package models

import (
	"strings"
	"time"
)

// ConnectionStatus is the coarse health of a stored connection
type ConnectionStatus string

const (
	StatusConnected    ConnectionStatus = "connected"
	StatusDisconnected ConnectionStatus = "disconnected"
	StatusError        ConnectionStatus = "error"
)

// OrDefault returns StatusDisconnected for records that were never checked
func (s ConnectionStatus) OrDefault() ConnectionStatus {
	if s == "" {
		return StatusDisconnected
	}
	return s
}

// AuthMode selects how outbound CRM calls are authenticated
type AuthMode string

const (
	AuthModeWebhook AuthMode = "webhook"
	AuthModeOAuth   AuthMode = "oauth"
)

// Provider identifies a generative AI vendor
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

// Label returns the display name of the provider
func (p Provider) Label() string {
	switch p {
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderAnthropic:
		return "Anthropic (Claude)"
	default:
		return string(p)
	}
}

const (
	// DefaultModel is used when an AI connection is created without a model
	DefaultModel = "gpt-4o"
	// DefaultPriority is used when an AI connection is created without a priority
	DefaultPriority = 1
	// MinPriority and MaxPriority bound AiConnection.Priority
	MinPriority = 1
	MaxPriority = 100
)

// CrmConnection is one stored CRM credential set plus its last observed health.
// Secret fields never leave the broker: see CrmConnectionAPI.
type CrmConnection struct {
	ID              string
	Name            string
	Domain          string
	WebhookUserID   int
	WebhookCode     string
	AuthMode        AuthMode
	ClientID        string
	ClientSecret    string
	AccessToken     string
	RefreshToken    string
	TokenExpiresAt  *time.Time
	IsActive        bool
	LastStatus      ConnectionStatus
	LastCheckedAt   *time.Time
	ServerTime      *string
	AvailableScopes []string
	ErrorMessage    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// IsOAuth reports whether the connection authenticates with bearer tokens
func (c *CrmConnection) IsOAuth() bool {
	return c.AuthMode == AuthModeOAuth
}

// OAuthConnected reports whether an OAuth connection holds an access token
func (c *CrmConnection) OAuthConnected() bool {
	return c.IsOAuth() && c.AccessToken != ""
}

// Secrets lists the secret values held by the connection
func (c *CrmConnection) Secrets() []string {
	return []string{c.WebhookCode, c.ClientSecret, c.AccessToken, c.RefreshToken}
}

// ApplyStatus copies a persisted status update onto the in-memory record
func (c *CrmConnection) ApplyStatus(u CrmStatusUpdate) {
	checked := u.CheckedAt
	c.LastStatus = u.Status
	c.LastCheckedAt = &checked
	c.ServerTime = u.ServerTime
	c.AvailableScopes = u.Scopes
	c.ErrorMessage = u.ErrorMessage
}

// ApplyTokens copies a persisted token set onto the in-memory record
func (c *CrmConnection) ApplyTokens(t OAuthTokens) {
	expires := t.ExpiresAt
	c.AccessToken = t.AccessToken
	c.RefreshToken = t.RefreshToken
	c.TokenExpiresAt = &expires
}

// AiConnection is one stored AI provider credential plus its fallback priority
type AiConnection struct {
	ID            string
	Name          string
	Provider      Provider
	Model         string
	APIKey        string
	Priority      int
	IsActive      bool
	LastStatus    ConnectionStatus
	LastCheckedAt *time.Time
	ErrorMessage  string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ApplyStatus copies a persisted status update onto the in-memory record
func (c *AiConnection) ApplyStatus(u AiStatusUpdate) {
	checked := u.CheckedAt
	c.LastStatus = u.Status
	c.LastCheckedAt = &checked
	c.ErrorMessage = u.ErrorMessage
}

// CrmStatusUpdate is the write-back of one CRM health probe.
// A nil ServerTime or Scopes clears the stored value.
type CrmStatusUpdate struct {
	Status       ConnectionStatus
	CheckedAt    time.Time
	ServerTime   *string
	Scopes       []string
	ErrorMessage string
}

// OAuthTokens is the write-back of a successful token grant
type OAuthTokens struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// AiStatusUpdate is the write-back of one AI probe or chat attempt
type AiStatusUpdate struct {
	Status       ConnectionStatus
	CheckedAt    time.Time
	ErrorMessage string
}

// NormalizeDomain turns a stored CRM domain into an absolute base URL without
// a trailing slash. Bare hostnames get an https:// prefix.
func NormalizeDomain(domain string) string {
	domain = strings.TrimRight(strings.TrimSpace(domain), "/")
	if !strings.HasPrefix(domain, "http") {
		domain = "https://" + domain
	}
	return domain
}

// BaseURL returns the normalized domain of the connection
func (c *CrmConnection) BaseURL() string {
	return NormalizeDomain(c.Domain)
}
