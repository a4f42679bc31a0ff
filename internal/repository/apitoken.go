package repository

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/soapboxhq/soapbox/internal/models"
)

type APITokenRepository struct {
	db *sql.DB
}

func NewAPITokenRepository(db *sql.DB) *APITokenRepository {
	return &APITokenRepository{db: db}
}

// APITokenCreateResult carries the full token, shown only once at creation.
type APITokenCreateResult struct {
	Token *models.APIToken
	Full  string
}

// Create generates a new operator token and stores its bcrypt hash.
func (r *APITokenRepository) Create(name string) (*APITokenCreateResult, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	full := "sb_" + hex.EncodeToString(raw)

	hash, err := bcrypt.GenerateFromPassword([]byte(full), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash token: %w", err)
	}

	token := &models.APIToken{
		ID:          uuid.New().String(),
		Name:        name,
		TokenHash:   string(hash),
		TokenPrefix: full[:11], // "sb_" + first 8 chars
		Active:      true,
		CreatedAt:   time.Now(),
	}

	_, err = r.db.Exec(`INSERT INTO api_tokens (id, name, token_hash, token_prefix, active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID, token.Name, token.TokenHash, token.TokenPrefix, token.Active, token.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create api token: %w", err)
	}

	return &APITokenCreateResult{Token: token, Full: full}, nil
}

// Verify checks a presented token against stored hashes. Lookup is narrowed
// by prefix before the bcrypt comparison.
func (r *APITokenRepository) Verify(presented string) (*models.APIToken, error) {
	if len(presented) < 11 {
		return nil, nil
	}

	rows, err := r.db.Query(`SELECT id, name, token_hash, token_prefix, active, last_used_at, created_at
		FROM api_tokens WHERE token_prefix = ? AND active = 1`, presented[:11])
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		t := &models.APIToken{}
		var lastUsed sql.NullTime
		if err := rows.Scan(&t.ID, &t.Name, &t.TokenHash, &t.TokenPrefix, &t.Active, &lastUsed, &t.CreatedAt); err != nil {
			return nil, err
		}
		if lastUsed.Valid {
			t.LastUsedAt = &lastUsed.Time
		}
		if bcrypt.CompareHashAndPassword([]byte(t.TokenHash), []byte(presented)) == nil {
			r.db.Exec(`UPDATE api_tokens SET last_used_at = ? WHERE id = ?`, time.Now(), t.ID)
			return t, nil
		}
	}
	return nil, rows.Err()
}

// Revoke deactivates a token
func (r *APITokenRepository) Revoke(id string) error {
	_, err := r.db.Exec(`UPDATE api_tokens SET active = 0 WHERE id = ?`, id)
	return err
}
