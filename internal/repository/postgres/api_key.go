package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/dnskeeper/internal/model"
)

var _ model.APIKeyStore = (*APIKeyRepository)(nil)

type APIKeyRepository struct {
	db *Connection
}

func NewAPIKeyRepository(db *Connection) *APIKeyRepository {
	return &APIKeyRepository{
		db: db,
	}
}

func (r *APIKeyRepository) Create(ctx context.Context, key model.APIKey) (model.APIKey, error) {
	query := `
		INSERT INTO api_keys (id, user_id, record_id, prefix, secret_hash, name)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := r.db.QueryRowContext(ctx, query,
		key.ID, key.UserID, key.RecordID, key.Prefix, key.SecretHash, key.Name,
	).Scan(&key.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.APIKey{}, model.ErrConflict
		}
		return model.APIKey{}, fmt.Errorf("failed to insert api key: %w", err)
	}

	return key, nil
}

func (r *APIKeyRepository) GetByPrefix(ctx context.Context, prefix string) (model.APIKey, error) {
	query := `
		SELECT id, user_id, record_id, prefix, secret_hash, name, last_used, created_at
		FROM api_keys
		WHERE prefix = $1`

	var (
		key      model.APIKey
		lastUsed sql.NullTime
	)
	err := r.db.QueryRowContext(ctx, query, prefix).Scan(
		&key.ID, &key.UserID, &key.RecordID, &key.Prefix, &key.SecretHash, &key.Name, &lastUsed, &key.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.APIKey{}, model.ErrNotFound
		}
		return model.APIKey{}, err
	}
	if lastUsed.Valid {
		key.LastUsed = &lastUsed.Time
	}

	return key, nil
}

func (r *APIKeyRepository) GetByUserID(ctx context.Context, userID string) ([]model.APIKey, error) {
	query := `
		SELECT k.id, k.user_id, k.record_id, k.prefix, k.name, k.last_used, k.created_at, COALESCE(d.name, '')
		FROM api_keys k
		LEFT JOIN dns_records d ON d.user_id = k.user_id AND d.id = k.record_id
		WHERE k.user_id = $1
		ORDER BY k.created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		var (
			key      model.APIKey
			lastUsed sql.NullTime
		)
		err := rows.Scan(&key.ID, &key.UserID, &key.RecordID, &key.Prefix, &key.Name, &lastUsed, &key.CreatedAt, &key.RecordName)
		if err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			key.LastUsed = &lastUsed.Time
		}
		keys = append(keys, key)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return keys, nil
}

func (r *APIKeyRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	const query = `DELETE FROM api_keys WHERE user_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrNotFound
	}
	return nil
}
