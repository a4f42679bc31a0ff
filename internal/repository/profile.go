package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soapboxhq/soapbox/internal/models"
)

type ProfileRepository struct {
	db *sql.DB
}

func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create persists a company profile
func (r *ProfileRepository) Create(p *models.CompanyProfile) error {
	p.ID = uuid.New().String()
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt

	rules, _ := json.Marshal(p.Rules)

	_, err := r.db.Exec(`
		INSERT INTO company_profiles (id, user_id, name, description, voice, rules, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.UserID, p.Name, p.Description, p.Voice, string(rules), p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create company profile: %w", err)
	}
	return nil
}

// GetByID returns a company profile or nil if not found
func (r *ProfileRepository) GetByID(id string) (*models.CompanyProfile, error) {
	p := &models.CompanyProfile{}
	var description, voice, rules sql.NullString

	err := r.db.QueryRow(`SELECT id, user_id, name, description, voice, rules, created_at, updated_at
		FROM company_profiles WHERE id = ?`, id,
	).Scan(&p.ID, &p.UserID, &p.Name, &description, &voice, &rules, &p.CreatedAt, &p.UpdatedAt)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	p.Description = description.String
	p.Voice = voice.String
	if rules.Valid {
		json.Unmarshal([]byte(rules.String), &p.Rules)
	}
	return p, nil
}
