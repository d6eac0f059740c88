package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dtroode/dnskeeper/internal/model"
)

var _ model.RecordStore = (*RecordRepository)(nil)

type RecordRepository struct {
	db *Connection
}

func NewRecordRepository(db *Connection) *RecordRepository {
	return &RecordRepository{
		db: db,
	}
}

const recordColumns = `id, user_id, credential_id, zone_id, name, content, ttl, type, proxied, last_synced_at, created_at`

func (r *RecordRepository) Create(ctx context.Context, record model.DNSRecord) (model.DNSRecord, error) {
	query := `
		INSERT INTO dns_records (id, user_id, credential_id, zone_id, name, content, ttl, type, proxied)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING last_synced_at, created_at`

	err := r.db.QueryRowContext(ctx, query,
		record.ID, record.UserID, nullUUID(record.CredentialID), record.ZoneID,
		record.Name, record.Content, record.TTL, record.Type, record.Proxied,
	).Scan(&record.LastSyncedAt, &record.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return model.DNSRecord{}, model.ErrConflict
		}
		return model.DNSRecord{}, fmt.Errorf("failed to insert record: %w", err)
	}

	return record, nil
}

func (r *RecordRepository) GetByID(ctx context.Context, userID string, id string) (model.DNSRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM dns_records WHERE user_id = $1 AND id = $2`

	record, err := scanRecord(r.db.QueryRowContext(ctx, query, userID, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.DNSRecord{}, model.ErrNotFound
		}
		return model.DNSRecord{}, err
	}

	return record, nil
}

func (r *RecordRepository) GetByUserID(ctx context.Context, userID string) ([]model.DNSRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM dns_records WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.DNSRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *RecordRepository) Delete(ctx context.Context, userID string, id string) error {
	const query = `DELETE FROM dns_records WHERE user_id = $1 AND id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
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

func (r *RecordRepository) ApplySync(ctx context.Context, commit model.SyncCommit) error {
	return WithTx(ctx, r.db.DB, nil, func(ctx context.Context, tx DBTX) error {
		const updateRecord = `
			UPDATE dns_records SET content = $3, last_synced_at = $4
			WHERE user_id = $1 AND id = $2`

		res, err := tx.ExecContext(ctx, updateRecord, commit.UserID, commit.RecordID, commit.Content, commit.SyncedAt)
		if err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return model.ErrNotFound
		}

		const touchKey = `UPDATE api_keys SET last_used = $3 WHERE id = $1 AND user_id = $2`
		if _, err := tx.ExecContext(ctx, touchKey, commit.KeyID, commit.UserID, commit.SyncedAt); err != nil {
			return fmt.Errorf("failed to update key usage: %w", err)
		}

		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (model.DNSRecord, error) {
	var (
		record       model.DNSRecord
		credentialID uuid.NullUUID
	)
	err := row.Scan(
		&record.ID, &record.UserID, &credentialID, &record.ZoneID, &record.Name,
		&record.Content, &record.TTL, &record.Type, &record.Proxied,
		&record.LastSyncedAt, &record.CreatedAt,
	)
	if err != nil {
		return model.DNSRecord{}, err
	}
	if credentialID.Valid {
		id := credentialID.UUID
		record.CredentialID = &id
	}
	return record, nil
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
