package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/soapboxhq/soapbox/internal/models"
)

type CampaignRepository struct {
	db *sql.DB
}

func NewCampaignRepository(db *sql.DB) *CampaignRepository {
	return &CampaignRepository{db: db}
}

// Create persists a new campaign in draft status
func (r *CampaignRepository) Create(c *models.Campaign) error {
	c.ID = uuid.New().String()
	if c.Status == "" {
		c.Status = models.CampaignDraft
	}
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt

	subreddits, _ := json.Marshal(c.Subreddits)
	keywords, _ := json.Marshal(c.Keywords)
	monitoring, _ := json.Marshal(c.Monitoring)
	engagement, _ := json.Marshal(c.Engagement)
	ai, _ := json.Marshal(c.AISettings)
	schedule, _ := json.Marshal(c.Schedule)

	_, err := r.db.Exec(`
		INSERT INTO campaigns (id, user_id, company_id, name, platform, subreddits, keywords,
			monitoring_rules, engagement_rules, ai_settings, schedule_settings, status,
			execution_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?)`,
		c.ID, c.UserID, c.CompanyID, c.Name, c.Platform, string(subreddits), string(keywords),
		string(monitoring), string(engagement), string(ai), string(schedule), c.Status,
		c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create campaign: %w", err)
	}
	return nil
}

const campaignColumns = `id, user_id, company_id, name, platform, subreddits, keywords,
	monitoring_rules, engagement_rules, ai_settings, schedule_settings, status,
	last_execution, next_execution, execution_count, error_message, started_at, stopped_at,
	created_at, updated_at`

func (r *CampaignRepository) scan(row interface{ Scan(...any) error }) (*models.Campaign, error) {
	c := &models.Campaign{}
	var subreddits, keywords, monitoring, engagement, ai, schedule sql.NullString
	var errorMsg sql.NullString
	var lastExec, nextExec, startedAt, stoppedAt sql.NullTime

	err := row.Scan(&c.ID, &c.UserID, &c.CompanyID, &c.Name, &c.Platform,
		&subreddits, &keywords, &monitoring, &engagement, &ai, &schedule, &c.Status,
		&lastExec, &nextExec, &c.ExecutionCount, &errorMsg, &startedAt, &stoppedAt,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if subreddits.Valid {
		json.Unmarshal([]byte(subreddits.String), &c.Subreddits)
	}
	if keywords.Valid {
		json.Unmarshal([]byte(keywords.String), &c.Keywords)
	}
	if monitoring.Valid {
		json.Unmarshal([]byte(monitoring.String), &c.Monitoring)
	}
	if engagement.Valid {
		json.Unmarshal([]byte(engagement.String), &c.Engagement)
	}
	if ai.Valid {
		json.Unmarshal([]byte(ai.String), &c.AISettings)
	}
	if schedule.Valid {
		json.Unmarshal([]byte(schedule.String), &c.Schedule)
	}
	if errorMsg.Valid {
		c.ErrorMessage = errorMsg.String
	}
	if lastExec.Valid {
		c.LastExecution = &lastExec.Time
	}
	if nextExec.Valid {
		c.NextExecution = &nextExec.Time
	}
	if startedAt.Valid {
		c.StartedAt = &startedAt.Time
	}
	if stoppedAt.Valid {
		c.StoppedAt = &stoppedAt.Time
	}

	return c, nil
}

// GetByID returns a campaign by ID, or nil if not found
func (r *CampaignRepository) GetByID(id string) (*models.Campaign, error) {
	c, err := r.scan(r.db.QueryRow(
		`SELECT `+campaignColumns+` FROM campaigns WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return c, err
}

// CampaignListFilter filters List results
type CampaignListFilter struct {
	UserID string
	Status models.CampaignStatus
	Limit  int
	Offset int
}

// List returns campaigns matching the filter, newest first
func (r *CampaignRepository) List(filter CampaignListFilter) ([]*models.Campaign, error) {
	query := `SELECT ` + campaignColumns + ` FROM campaigns WHERE 1=1`
	args := []any{}

	if filter.UserID != "" {
		query += " AND user_id = ?"
		args = append(args, filter.UserID)
	}
	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// ListDue returns active campaigns whose next execution is at or before now
func (r *CampaignRepository) ListDue(now time.Time) ([]*models.Campaign, error) {
	rows, err := r.db.Query(`SELECT `+campaignColumns+` FROM campaigns
		WHERE status = ? AND next_execution IS NOT NULL AND next_execution <= ?
		ORDER BY next_execution`, models.CampaignActive, now)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		c, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		campaigns = append(campaigns, c)
	}
	return campaigns, rows.Err()
}

// UpdateSettings replaces the mutable settings of a campaign
func (r *CampaignRepository) UpdateSettings(c *models.Campaign) error {
	subreddits, _ := json.Marshal(c.Subreddits)
	keywords, _ := json.Marshal(c.Keywords)
	monitoring, _ := json.Marshal(c.Monitoring)
	engagement, _ := json.Marshal(c.Engagement)
	ai, _ := json.Marshal(c.AISettings)
	schedule, _ := json.Marshal(c.Schedule)

	_, err := r.db.Exec(`UPDATE campaigns SET name = ?, subreddits = ?, keywords = ?,
		monitoring_rules = ?, engagement_rules = ?, ai_settings = ?, schedule_settings = ?,
		updated_at = ? WHERE id = ?`,
		c.Name, string(subreddits), string(keywords), string(monitoring), string(engagement),
		string(ai), string(schedule), time.Now(), c.ID)
	if err != nil {
		return fmt.Errorf("failed to update campaign: %w", err)
	}
	return nil
}

// UpdateStatus transitions campaign status. An empty errorMessage clears any
// previous error.
func (r *CampaignRepository) UpdateStatus(id string, status models.CampaignStatus, errorMessage string) error {
	now := time.Now()
	var res sql.Result
	var err error

	switch status {
	case models.CampaignActive:
		res, err = r.db.Exec(`UPDATE campaigns SET status = ?, error_message = ?,
			started_at = ?, stopped_at = NULL, updated_at = ? WHERE id = ?`,
			status, errorMessage, now, now, id)
	case models.CampaignStopped, models.CampaignPaused:
		res, err = r.db.Exec(`UPDATE campaigns SET status = ?, error_message = ?,
			stopped_at = ?, next_execution = NULL, updated_at = ? WHERE id = ?`,
			status, errorMessage, now, now, id)
	default:
		res, err = r.db.Exec(`UPDATE campaigns SET status = ?, error_message = ?,
			updated_at = ? WHERE id = ?`, status, errorMessage, now, id)
	}
	if err != nil {
		return fmt.Errorf("failed to update campaign status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("campaign not found: %s", id)
	}
	return nil
}

// RecordExecution updates the scheduling bookkeeping after a cycle
func (r *CampaignRepository) RecordExecution(id string, lastExecution time.Time, nextExecution *time.Time) error {
	_, err := r.db.Exec(`UPDATE campaigns SET last_execution = ?, next_execution = ?,
		execution_count = execution_count + 1, updated_at = ? WHERE id = ?`,
		lastExecution, nextExecution, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to record execution: %w", err)
	}
	return nil
}

// SetNextExecution updates only the next scheduled time
func (r *CampaignRepository) SetNextExecution(id string, next *time.Time) error {
	_, err := r.db.Exec(`UPDATE campaigns SET next_execution = ?, updated_at = ? WHERE id = ?`,
		next, time.Now(), id)
	return err
}

// CountByStatus returns campaign counts grouped by status
func (r *CampaignRepository) CountByStatus() (map[models.CampaignStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM campaigns GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.CampaignStatus]int)
	for rows.Next() {
		var status models.CampaignStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
