package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/soapboxhq/soapbox/internal/models"
)

type CycleRepository struct {
	db *sql.DB
}

func NewCycleRepository(db *sql.DB) *CycleRepository {
	return &CycleRepository{db: db}
}

// Create appends a completed cycle record. Records are immutable once written.
func (r *CycleRepository) Create(c *models.CycleRecord) error {
	c.ID = uuid.New().String()
	errors, _ := json.Marshal(c.Errors)

	_, err := r.db.Exec(`
		INSERT INTO cycle_records (id, campaign_id, started_at, completed_at,
			discovered, generated, posted, skipped, errors, next_execution)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.ID, c.CampaignID, c.StartedAt, c.CompletedAt,
		c.Discovered, c.Generated, c.Posted, c.Skipped, string(errors), c.NextExecution,
	)
	if err != nil {
		return fmt.Errorf("failed to create cycle record: %w", err)
	}
	return nil
}

const cycleColumns = `id, campaign_id, started_at, completed_at, discovered, generated,
	posted, skipped, errors, next_execution`

func (r *CycleRepository) scan(row interface{ Scan(...any) error }) (*models.CycleRecord, error) {
	c := &models.CycleRecord{}
	var errorsJSON sql.NullString
	var nextExec sql.NullTime

	err := row.Scan(&c.ID, &c.CampaignID, &c.StartedAt, &c.CompletedAt,
		&c.Discovered, &c.Generated, &c.Posted, &c.Skipped, &errorsJSON, &nextExec)
	if err != nil {
		return nil, err
	}
	if errorsJSON.Valid {
		json.Unmarshal([]byte(errorsJSON.String), &c.Errors)
	}
	if nextExec.Valid {
		c.NextExecution = &nextExec.Time
	}
	return c, nil
}

// ListByCampaign returns the newest cycle records for a campaign
func (r *CycleRepository) ListByCampaign(campaignID string, limit int) ([]*models.CycleRecord, error) {
	rows, err := r.db.Query(`SELECT `+cycleColumns+` FROM cycle_records
		WHERE campaign_id = ? ORDER BY started_at DESC LIMIT ?`, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []*models.CycleRecord
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, c)
	}
	return records, rows.Err()
}

// Latest returns the most recent cycle record, or nil
func (r *CycleRepository) Latest(campaignID string) (*models.CycleRecord, error) {
	c, err := r.scan(r.db.QueryRow(`SELECT `+cycleColumns+` FROM cycle_records
		WHERE campaign_id = ? ORDER BY started_at DESC LIMIT 1`, campaignID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}
