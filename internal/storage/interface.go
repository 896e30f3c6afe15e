// Package storage defines the credential store for CRM and AI connections.
// Concrete adapters live in the sqlite and postgres subpackages and register
// themselves with the default Registry.
package storage

import (
	"context"

	"connection-broker/internal/models"
)

// Storage persists connection records. Secrets are encrypted at rest by the
// adapter and handed back in plaintext.
type Storage interface {
	Close() error
	Health(ctx context.Context) error

	// CRM connections
	CreateCrmConnection(ctx context.Context, conn *models.CrmConnection) error
	GetCrmConnection(ctx context.Context, id string) (*models.CrmConnection, error)
	ListCrmConnections(ctx context.Context) ([]*models.CrmConnection, error)
	// UpdateCrmConnection keeps stored secrets for fields left empty on conn
	UpdateCrmConnection(ctx context.Context, conn *models.CrmConnection) error
	DeleteCrmConnection(ctx context.Context, id string) error
	SaveCrmStatus(ctx context.Context, id string, update models.CrmStatusUpdate) error
	SaveCrmTokens(ctx context.Context, id string, tokens models.OAuthTokens) error

	// AI connections
	CreateAiConnection(ctx context.Context, conn *models.AiConnection) error
	GetAiConnection(ctx context.Context, id string) (*models.AiConnection, error)
	ListAiConnections(ctx context.Context) ([]*models.AiConnection, error)
	// ListActiveAiConnections orders by priority, then creation time, then id
	ListActiveAiConnections(ctx context.Context) ([]*models.AiConnection, error)
	UpdateAiConnection(ctx context.Context, conn *models.AiConnection) error
	DeleteAiConnection(ctx context.Context, id string) error
	SaveAiStatus(ctx context.Context, id string, update models.AiStatusUpdate) error
}

type StorageConfig interface {
	Validate() error
	GetType() string
	GetConnectionString() string
}

type StorageFactory interface {
	Create(config StorageConfig) (Storage, error)
	GetType() string
}

// GenericConfig is a simple map-based implementation of StorageConfig
type GenericConfig map[string]interface{}

func (gc GenericConfig) Validate() error {
	return nil
}

func (gc GenericConfig) GetType() string {
	if t, ok := gc["type"].(string); ok {
		return t
	}
	return "unknown"
}

func (gc GenericConfig) GetConnectionString() string {
	if cs, ok := gc["connection_string"].(string); ok {
		return cs
	}
	return ""
}

// String returns the value stored under key, or "" when absent
func (gc GenericConfig) String(key string) string {
	s, _ := gc[key].(string)
	return s
}
