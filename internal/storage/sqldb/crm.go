package sqldb

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"connection-broker/internal/common/errors"
	"connection-broker/internal/models"
)

const crmResource = "CRM connection"

const crmColumns = `id, name, domain, webhook_user_id, webhook_code, auth_mode,
	client_id, client_secret, access_token, refresh_token, token_expires_at,
	is_active, last_status, last_checked_at, server_time, available_scopes,
	error_message, created_at, updated_at`

// CreateCrmConnection inserts conn, filling in its id, defaults and timestamps
func (s *Store) CreateCrmConnection(ctx context.Context, conn *models.CrmConnection) error {
	if conn.ID == "" {
		conn.ID = uuid.NewString()
	}
	if conn.AuthMode == "" {
		conn.AuthMode = models.AuthModeWebhook
	}
	conn.LastStatus = conn.LastStatus.OrDefault()
	now := s.now()
	conn.CreatedAt = now
	conn.UpdatedAt = now

	webhookCode, clientSecret := conn.WebhookCode, conn.ClientSecret
	accessToken, refreshToken := conn.AccessToken, conn.RefreshToken
	if err := s.encrypt(&webhookCode, &clientSecret, &accessToken, &refreshToken); err != nil {
		return err
	}
	scopes, err := encodeScopes(conn.AvailableScopes)
	if err != nil {
		return err
	}

	_, err = s.exec(ctx, `INSERT INTO crm_connections (`+crmColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conn.ID, conn.Name, conn.Domain, conn.WebhookUserID, webhookCode, string(conn.AuthMode),
		conn.ClientID, clientSecret, accessToken, refreshToken, nullTime(conn.TokenExpiresAt),
		conn.IsActive, string(conn.LastStatus), nullTime(conn.LastCheckedAt), nullString(conn.ServerTime), scopes,
		conn.ErrorMessage, now, now,
	)
	if err != nil {
		return errors.InternalError("failed to create "+crmResource, err)
	}
	return nil
}

func (s *Store) GetCrmConnection(ctx context.Context, id string) (*models.CrmConnection, error) {
	row := s.queryRow(ctx, `SELECT `+crmColumns+` FROM crm_connections WHERE id = ?`, id)
	conn, err := s.scanCrm(row)
	if err == sql.ErrNoRows {
		return nil, errors.NotFoundError(crmResource)
	}
	if err != nil {
		return nil, err
	}
	return conn, nil
}

func (s *Store) ListCrmConnections(ctx context.Context) ([]*models.CrmConnection, error) {
	rows, err := s.query(ctx, `SELECT `+crmColumns+` FROM crm_connections ORDER BY created_at DESC, id ASC`)
	if err != nil {
		return nil, errors.InternalError("failed to list CRM connections", err)
	}
	defer rows.Close()

	conns := []*models.CrmConnection{}
	for rows.Next() {
		conn, err := s.scanCrm(rows)
		if err != nil {
			return nil, err
		}
		conns = append(conns, conn)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.InternalError("failed to list CRM connections", err)
	}
	return conns, nil
}

// UpdateCrmConnection writes the editable fields of conn. Secrets left empty
// keep their stored value; status and token columns are not touched.
func (s *Store) UpdateCrmConnection(ctx context.Context, conn *models.CrmConnection) error {
	webhookCode, clientSecret := conn.WebhookCode, conn.ClientSecret
	if err := s.encrypt(&webhookCode, &clientSecret); err != nil {
		return err
	}
	conn.UpdatedAt = s.now()

	return s.execOne(ctx, crmResource, `UPDATE crm_connections SET
			name = ?, domain = ?, webhook_user_id = ?,
			webhook_code = COALESCE(NULLIF(?, ''), webhook_code),
			auth_mode = ?, client_id = ?,
			client_secret = COALESCE(NULLIF(?, ''), client_secret),
			is_active = ?, updated_at = ?
		WHERE id = ?`,
		conn.Name, conn.Domain, conn.WebhookUserID, webhookCode,
		string(conn.AuthMode), conn.ClientID, clientSecret,
		conn.IsActive, conn.UpdatedAt, conn.ID,
	)
}

func (s *Store) DeleteCrmConnection(ctx context.Context, id string) error {
	return s.execOne(ctx, crmResource, `DELETE FROM crm_connections WHERE id = ?`, id)
}

// SaveCrmStatus records the outcome of a health probe. Nil server time and
// scopes clear the stored values.
func (s *Store) SaveCrmStatus(ctx context.Context, id string, update models.CrmStatusUpdate) error {
	scopes, err := encodeScopes(update.Scopes)
	if err != nil {
		return err
	}
	return s.execOne(ctx, crmResource, `UPDATE crm_connections SET
			last_status = ?, last_checked_at = ?, server_time = ?,
			available_scopes = ?, error_message = ?, updated_at = ?
		WHERE id = ?`,
		string(update.Status), update.CheckedAt.UTC(), nullString(update.ServerTime),
		scopes, update.ErrorMessage, s.now(), id,
	)
}

// SaveCrmTokens stores a token grant. All three values are written together.
func (s *Store) SaveCrmTokens(ctx context.Context, id string, tokens models.OAuthTokens) error {
	accessToken, refreshToken := tokens.AccessToken, tokens.RefreshToken
	if err := s.encrypt(&accessToken, &refreshToken); err != nil {
		return err
	}
	return s.execOne(ctx, crmResource, `UPDATE crm_connections SET
			access_token = ?, refresh_token = ?, token_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		accessToken, refreshToken, tokens.ExpiresAt.UTC(), s.now(), id,
	)
}

func (s *Store) scanCrm(row scanner) (*models.CrmConnection, error) {
	var (
		conn                        models.CrmConnection
		authMode, lastStatus        string
		tokenExpiresAt, lastChecked sql.NullTime
		serverTime, scopes          sql.NullString
		createdAt, updatedAt        time.Time
	)

	err := row.Scan(
		&conn.ID, &conn.Name, &conn.Domain, &conn.WebhookUserID, &conn.WebhookCode, &authMode,
		&conn.ClientID, &conn.ClientSecret, &conn.AccessToken, &conn.RefreshToken, &tokenExpiresAt,
		&conn.IsActive, &lastStatus, &lastChecked, &serverTime, &scopes,
		&conn.ErrorMessage, &createdAt, &updatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, errors.InternalError("failed to read "+crmResource, err)
	}

	if err := s.decrypt(&conn.WebhookCode, &conn.ClientSecret, &conn.AccessToken, &conn.RefreshToken); err != nil {
		return nil, err
	}
	if conn.AvailableScopes, err = decodeScopes(scopes); err != nil {
		return nil, err
	}

	conn.AuthMode = models.AuthMode(authMode)
	conn.LastStatus = models.ConnectionStatus(lastStatus).OrDefault()
	conn.TokenExpiresAt = timePtr(tokenExpiresAt)
	conn.LastCheckedAt = timePtr(lastChecked)
	conn.ServerTime = stringPtr(serverTime)
	conn.CreatedAt = createdAt.UTC()
	conn.UpdatedAt = updatedAt.UTC()
	return &conn, nil
}
