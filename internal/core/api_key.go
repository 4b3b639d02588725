package core

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"

	"github.com/evo-uds/wafmon/internal/model"
)

// APIKeyService manages API key operations against the core database.
type APIKeyService struct {
	db DB
}

// NewAPIKeyService creates a new APIKeyService.
func NewAPIKeyService(db DB) *APIKeyService {
	return &APIKeyService{db: db}
}

// Create generates a new API key, stores the hash, and returns the model
// along with the raw key string. The raw key is shown to the caller exactly
// once.
func (s *APIKeyService) Create(ctx context.Context, name string, scopes []string) (*model.APIKey, string, error) {
	rawBytes := make([]byte, 32)
	if _, err := rand.Read(rawBytes); err != nil {
		return nil, "", fmt.Errorf("generate api key: %w", err)
	}
	rawKey := "wfm_" + hex.EncodeToString(rawBytes)

	id := uuid.NewString()
	hash := sha256.Sum256([]byte(rawKey))
	keyHash := hex.EncodeToString(hash[:])
	keyPrefix := rawKey[:12]

	if scopes == nil {
		scopes = []string{"*:*"}
	}

	key := &model.APIKey{
		ID:        id,
		Name:      name,
		KeyPrefix: keyPrefix,
		Scopes:    scopes,
	}
	err := s.db.QueryRow(ctx,
		`INSERT INTO api_keys (id, name, key_hash, key_prefix, scopes, created_at)
		 VALUES ($1, $2, $3, $4, $5, now())
		 RETURNING created_at`,
		id, name, keyHash, keyPrefix, scopes,
	).Scan(&key.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("insert api key: %w", err)
	}

	return key, rawKey, nil
}

// Verify looks up a non-revoked API key by its raw value.
func (s *APIKeyService) Verify(ctx context.Context, rawKey string) (*model.APIKey, error) {
	hash := sha256.Sum256([]byte(rawKey))
	keyHash := hex.EncodeToString(hash[:])

	var k model.APIKey
	err := s.db.QueryRow(ctx,
		`SELECT id, name, key_prefix, scopes, created_at, revoked_at
		 FROM api_keys WHERE key_hash = $1 AND revoked_at IS NULL`, keyHash,
	).Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.Scopes, &k.CreatedAt, &k.RevokedAt)
	if err != nil {
		return nil, fmt.Errorf("verify api key: %w", err)
	}
	return &k, nil
}

// List returns API keys ordered by ID with cursor pagination. Revoked keys
// are included so operators can see the full history.
func (s *APIKeyService) List(ctx context.Context, limit int, cursor string) ([]model.APIKey, bool, error) {
	query := `SELECT id, name, key_prefix, scopes, created_at, revoked_at FROM api_keys`
	args := []any{}
	if cursor != "" {
		query += ` WHERE id > $1`
		args = append(args, cursor)
	}
	query += fmt.Sprintf(` ORDER BY id LIMIT $%d`, len(args)+1)
	args = append(args, limit+1)

	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, false, fmt.Errorf("list api keys: %w", err)
	}
	defer rows.Close()

	var keys []model.APIKey
	for rows.Next() {
		var k model.APIKey
		if err := rows.Scan(&k.ID, &k.Name, &k.KeyPrefix, &k.Scopes, &k.CreatedAt, &k.RevokedAt); err != nil {
			return nil, false, fmt.Errorf("scan api key: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, false, fmt.Errorf("list api keys: %w", err)
	}

	hasMore := len(keys) > limit
	if hasMore {
		keys = keys[:limit]
	}
	return keys, hasMore, nil
}

// Revoke marks an API key as revoked.
func (s *APIKeyService) Revoke(ctx context.Context, id string) error {
	_, err := s.db.Exec(ctx,
		"UPDATE api_keys SET revoked_at = now() WHERE id = $1 AND revoked_at IS NULL", id)
	if err != nil {
		return fmt.Errorf("revoke api key %s: %w", id, err)
	}
	return nil
}
