package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soapboxhq/soapbox/internal/models"
)

type CredentialRepository struct {
	db *sql.DB
}

func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Upsert stores a credential, replacing any existing value for the same
// (user, platform, kind).
func (r *CredentialRepository) Upsert(c *models.Credential) error {
	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	now := time.Now()
	c.UpdatedAt = now
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}

	_, err := r.db.Exec(`
		INSERT INTO credentials (id, user_id, platform, kind, value, valid, expires_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, platform, kind) DO UPDATE SET
			value = excluded.value, valid = excluded.valid,
			expires_at = excluded.expires_at, updated_at = excluded.updated_at`,
		c.ID, c.UserID, c.Platform, c.Kind, c.Value, c.Valid, c.ExpiresAt, c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert credential: %w", err)
	}
	return nil
}

const credentialColumns = `id, user_id, platform, kind, value, valid, expires_at, created_at, updated_at`

func (r *CredentialRepository) scan(row interface{ Scan(...any) error }) (*models.Credential, error) {
	c := &models.Credential{}
	var expiresAt sql.NullTime
	err := row.Scan(&c.ID, &c.UserID, &c.Platform, &c.Kind, &c.Value, &c.Valid,
		&expiresAt, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if expiresAt.Valid {
		c.ExpiresAt = &expiresAt.Time
	}
	return c, nil
}

// Get returns a credential or nil if not stored
func (r *CredentialRepository) Get(userID string, platform models.Platform, kind models.CredentialKind) (*models.Credential, error) {
	c, err := r.scan(r.db.QueryRow(`SELECT `+credentialColumns+` FROM credentials
		WHERE user_id = ? AND platform = ? AND kind = ?`, userID, platform, kind))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// ListByUser returns all credentials of a user
func (r *CredentialRepository) ListByUser(userID string) ([]*models.Credential, error) {
	rows, err := r.db.Query(`SELECT `+credentialColumns+` FROM credentials
		WHERE user_id = ? ORDER BY platform, kind`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var creds []*models.Credential
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		creds = append(creds, c)
	}
	return creds, rows.Err()
}

// SetValid flips the validity flag, e.g. after a platform auth failure
func (r *CredentialRepository) SetValid(userID string, platform models.Platform, kind models.CredentialKind, valid bool) error {
	_, err := r.db.Exec(`UPDATE credentials SET valid = ?, updated_at = ?
		WHERE user_id = ? AND platform = ? AND kind = ?`,
		valid, time.Now(), userID, platform, kind)
	return err
}

// Delete removes a stored credential
func (r *CredentialRepository) Delete(userID string, platform models.Platform, kind models.CredentialKind) error {
	_, err := r.db.Exec(`DELETE FROM credentials WHERE user_id = ? AND platform = ? AND kind = ?`,
		userID, platform, kind)
	return err
}
