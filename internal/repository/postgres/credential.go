package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/dnskeeper/internal/model"
)

var _ model.CredentialStore = (*CredentialRepository)(nil)

type CredentialRepository struct {
	db *Connection
}

func NewCredentialRepository(db *Connection) *CredentialRepository {
	return &CredentialRepository{
		db: db,
	}
}

const credentialColumns = `id, user_id, name, nonce, ciphertext, tag, created_at, updated_at`

func (r *CredentialRepository) Create(ctx context.Context, credential model.ProviderCredential) (model.ProviderCredential, error) {
	query := `
		INSERT INTO provider_credentials (id, user_id, name, nonce, ciphertext, tag)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(ctx, query,
		credential.ID, credential.UserID, credential.Name,
		credential.Nonce, credential.Ciphertext, credential.Tag,
	).Scan(&credential.CreatedAt, &credential.UpdatedAt)
	if err != nil {
		return model.ProviderCredential{}, fmt.Errorf("failed to insert credential: %w", err)
	}

	return credential, nil
}

func (r *CredentialRepository) GetByID(ctx context.Context, userID string, id uuid.UUID) (model.ProviderCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM provider_credentials WHERE user_id = $1 AND id = $2`
	return r.getOne(ctx, query, userID, id)
}

func (r *CredentialRepository) GetLatest(ctx context.Context, userID string) (model.ProviderCredential, error) {
	query := `
		SELECT ` + credentialColumns + ` FROM provider_credentials
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT 1`
	return r.getOne(ctx, query, userID)
}

func (r *CredentialRepository) GetByUserID(ctx context.Context, userID string) ([]model.ProviderCredential, error) {
	query := `SELECT ` + credentialColumns + ` FROM provider_credentials WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var credentials []model.ProviderCredential
	for rows.Next() {
		c, err := scanCredential(rows)
		if err != nil {
			return nil, err
		}
		credentials = append(credentials, c)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return credentials, nil
}

func (r *CredentialRepository) Delete(ctx context.Context, userID string, id uuid.UUID) error {
	const query = `DELETE FROM provider_credentials WHERE user_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete credential: %w", err)
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

func (r *CredentialRepository) getOne(ctx context.Context, query string, args ...any) (model.ProviderCredential, error) {
	c, err := scanCredential(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.ProviderCredential{}, model.ErrNotFound
		}
		return model.ProviderCredential{}, err
	}
	return c, nil
}

func scanCredential(row scanner) (model.ProviderCredential, error) {
	var c model.ProviderCredential
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Nonce, &c.Ciphertext, &c.Tag, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
