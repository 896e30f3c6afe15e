package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/models"
)

const aiResource = "AI connection"

const aiColumns = `id, name, provider, model, api_key, priority, is_active,
	last_status, last_checked_at, error_message, created_at, updated_at`

// CreateAiConnection inserts conn, filling in its id, defaults and timestamps
func (s *Store) CreateAiConnection(ctx context.Context, conn *models.AiConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.Model == "" {
		conn.Model = models.DefaultModel
	}
	if conn.Priority == 0 {
		conn.Priority = models.DefaultPriority
	}
	conn.LastStatus = conn.LastStatus.OrDefault()
	now := s.now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	apiKey := conn.APIKey
	if err := s.encrypt(&apiKey); err != nil {
		return err
	}

	_, err := s.exec(ctx, `INSERT INTO ai_connections (`+aiColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID, conn.Name, string(conn.Provider), conn.Model, apiKey, conn.Priority, conn.IsActive,
		string(conn.LastStatus), nullTime(conn.LastCheckedAt), conn.ErrorMessage, now, now,
	)
	if err != nil {
		return errors.InternalError("failed to create "+aiResource, err)
	}
	return nil
}

func (s *Store) GetAiConnection(ctx context.Context, id string) (*models.AiConnection, error) {
	row := s.queryRow(ctx, `SELECT `+aiColumns+` FROM ai_connections WHERE id = ?`, id)
	conn, err := s.scanAi(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError(aiResource)
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Store) ListAiConnections(ctx context.Context) ([]*models.AiConnection, error) {
	return s.listAi(ctx, `SELECT `+aiColumns+` FROM ai_connections
		ORDER BY priority ASC, created_at ASC, id ASC`)
}

func (s *Store) ListActiveAiConnections(ctx context.Context) ([]*models.AiConnection, error) {
	return s.listAi(ctx, `SELECT `+aiColumns+` FROM ai_connections
		WHERE is_active = ?
		ORDER BY priority ASC, created_at ASC, id ASC`, true)
}

func (s *Store) listAi(ctx context.Context, query string, args ...interface{}) ([]*models.AiConnection, error) {
	rows, err := s.query(ctx, query, args...)
	if err != nil {
		return nil, errors.InternalError("failed to list AI connections", err)
	}
	defer rows.Close()

	conns := []*models.AiConnection{}
	for rows.Next() {
		conn, err := s.scanAi(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalError("failed to list AI connections", err)
	}
	return conns, nil
}

// UpdateAiConnection writes the editable fields of conn. An empty API key
// keeps the stored one.
func (s *Store) UpdateAiConnection(ctx context.Context, conn *models.AiConnection) error {
	apiKey := conn.APIKey
	if err := s.encrypt(&apiKey); err != nil {
		return err
	}
	conn.UpdatedAt = s.now()

	return s.execOne(ctx, aiResource, `UPDATE ai_connections SET
			name = ?, provider = ?, model = ?,
			api_key = COALESCE(NULLIF(?, ''), api_key),
			priority = ?, is_active = ?, updated_at = ?
		WHERE id = ?`,
		conn.Name, string(conn.Provider), conn.Model, apiKey,
		conn.Priority, conn.IsActive, conn.UpdatedAt, conn.ID,
	)
}

func (s *Store) DeleteAiConnection(ctx context.Context, id string) error {
	return s.execOne(ctx, aiResource, `DELETE FROM ai_connections WHERE id = ?`, id)
}

func (s *Store) SaveAiStatus(ctx context.Context, id string, update models.AiStatusUpdate) error {
	return s.execOne(ctx, aiResource, `UPDATE ai_connections SET
			last_status = ?, last_checked_at = ?, error_message = ?, updated_at = ?
		WHERE id = ?`,
		string(update.Status), update.CheckedAt.UTC(), update.ErrorMessage, s.now(), id,
	)
}

func (s *Store) scanAi(row scanner) (*models.AiConnection, error) {
	var (
		conn                 models.AiConnection
		provider, lastStatus string
		lastChecked          sql.NullTime
		createdAt, updatedAt time.Time
	)

	err := row.Scan(
		&conn.ID, &conn.Name, &provider, &conn.Model, &conn.APIKey, &conn.Priority, &conn.IsActive,
		&lastStatus, &lastChecked, &conn.ErrorMessage, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.InternalError("failed to read "+aiResource, err)
	}

	if err := s.decrypt(&conn.APIKey); err != nil {
		return nil, err
	}

	conn.Provider = models.Provider(provider)
	conn.LastStatus = models.ConnectionStatus(lastStatus).OrDefault()
	conn.LastCheckedAt = timePtr(lastChecked)
	conn.CreatedAt = createdAt.UTC()
	conn.UpdatedAt = updatedAt.UTC()
	return &conn, nil
}
