package store

import (
	"context"
	"database/sql"
)

func (s *PostgresStore) GetIdempotencyRecord(ctx context.Context, key, userID, endpoint string) (*IdempotencyRecord, error) {
	var rec IdempotencyRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT key, user_id, endpoint, response, status_code, expires_at
		FROM idempotency_keys WHERE key = $1 AND user_id = $2 AND endpoint = $3
	`, key, userID, endpoint).Scan(&rec.Key, &rec.UserID, &rec.Endpoint, &rec.Response, &rec.StatusCode, &rec.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *PostgresStore) PutIdempotencyRecord(ctx context.Context, rec IdempotencyRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO idempotency_keys (key, user_id, endpoint, response, status_code, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (key, user_id, endpoint) DO UPDATE
		SET response = EXCLUDED.response, status_code = EXCLUDED.status_code, expires_at = EXCLUDED.expires_at
	`, rec.Key, rec.UserID, rec.Endpoint, rec.Response, rec.StatusCode, rec.ExpiresAt)
	return err
}

func (s *PostgresStore) DeleteIdempotencyRecord(ctx context.Context, key, userID, endpoint string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM idempotency_keys WHERE key = $1 AND user_id = $2 AND endpoint = $3
	`, key, userID, endpoint)
	return err
}
