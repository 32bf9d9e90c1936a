package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// APIKey is a stored collaborator credential. KeyHash is an Argon2id encoded
// hash; the plaintext key is never persisted.
type APIKey struct {
	ID         uuid.UUID
	ClientID   string
	KeyHash    string
	Role       string
	Active     bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// CreateAPIKey stores a hashed collaborator credential.
func (db *DB) CreateAPIKey(ctx context.Context, clientID, keyHash, role string) (APIKey, error) {
	if clientID == "" || keyHash == "" {
		return APIKey{}, fmt.Errorf("%w: client_id and key_hash are required", ErrValidation)
	}
	if role == "" {
		role = "collaborator"
	}

	k := APIKey{ID: uuid.New(), ClientID: clientID, KeyHash: keyHash, Role: role, Active: true}
	err := db.pool.QueryRow(ctx,
		`INSERT INTO api_keys (id, client_id, key_hash, role) VALUES ($1,$2,$3,$4)
		 RETURNING created_at`,
		k.ID, clientID, keyHash, role,
	).Scan(&k.CreatedAt)
	if err != nil {
		return APIKey{}, fmt.Errorf("storage: create api key: %w", err)
	}
	return k, nil
}

// ActiveAPIKeys returns the active credentials for a client. More than one
// can be live at a time to allow key rotation.
func (db *DB) ActiveAPIKeys(ctx context.Context, clientID string) ([]APIKey, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, client_id, key_hash, role, active, created_at, last_used_at
		 FROM api_keys WHERE client_id = $1 AND active ORDER BY created_at DESC`, clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: active api keys: %w", err)
	}
	defer rows.Close()

	var out []APIKey
	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.ClientID, &k.KeyHash, &k.Role, &k.Active, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("storage: scan api key: %w", err)
		}
		out = append(out, k)
	}
	return out, rows.Err()
}

// TouchAPIKey stamps the credential's last use.
func (db *DB) TouchAPIKey(ctx context.Context, id uuid.UUID) error {
	_, err := db.pool.Exec(ctx,
		`UPDATE api_keys SET last_used_at = now() WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("storage: touch api key: %w", err)
	}
	return nil
}

// RevokeAPIKey deactivates a credential.
func (db *DB) RevokeAPIKey(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE api_keys SET active = false WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("storage: revoke api key: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: api key %s", ErrNotFound, id)
	}
	return nil
}
