package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soapboxhq/soapbox/internal/models"
)

type DraftRepository struct {
	db *sql.DB
}

func NewDraftRepository(db *sql.DB) *DraftRepository {
	return &DraftRepository{db: db}
}

// ErrDuplicateDraft is returned when a draft already exists for the post.
var ErrDuplicateDraft = fmt.Errorf("draft already exists for post")

// ErrInvalidTransition is returned for a disallowed draft status change.
var ErrInvalidTransition = fmt.Errorf("invalid draft status transition")

// Create inserts a new draft in pending status. The UNIQUE constraint on
// post_id guarantees at most one draft per discovered post.
func (r *DraftRepository) Create(d *models.ResponseDraft) error {
	d.ID = uuid.New().String()
	if d.Status == "" {
		d.Status = models.DraftPending
	}
	d.CreatedAt = time.Now()
	d.UpdatedAt = d.CreatedAt

	snippets, _ := json.Marshal(d.ContextSnippets)

	_, err := r.db.Exec(`
		INSERT INTO response_drafts (id, campaign_id, post_id, text, model, confidence,
			sentiment, engagement_potential, priority, status, context_snippets,
			created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.CampaignID, d.PostID, d.Text, d.Model, d.Confidence,
		d.Sentiment, d.EngagementPotential, d.Priority, d.Status, string(snippets),
		d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicateDraft
		}
		return fmt.Errorf("failed to create draft: %w", err)
	}
	return nil
}

const draftColumns = `id, campaign_id, post_id, text, model, confidence, sentiment,
	engagement_potential, priority, status, context_snippets, platform_comment_id,
	posting_error, posted_at, created_at, updated_at`

func (r *DraftRepository) scan(row interface{ Scan(...any) error }) (*models.ResponseDraft, error) {
	d := &models.ResponseDraft{}
	var snippets, commentID, postingErr sql.NullString
	var postedAt sql.NullTime

	err := row.Scan(&d.ID, &d.CampaignID, &d.PostID, &d.Text, &d.Model, &d.Confidence,
		&d.Sentiment, &d.EngagementPotential, &d.Priority, &d.Status, &snippets,
		&commentID, &postingErr, &postedAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if snippets.Valid {
		json.Unmarshal([]byte(snippets.String), &d.ContextSnippets)
	}
	if commentID.Valid {
		d.PlatformCommentID = commentID.String
	}
	if postingErr.Valid {
		d.PostingError = postingErr.String
	}
	if postedAt.Valid {
		d.PostedAt = &postedAt.Time
	}
	return d, nil
}

// GetByID returns a draft by ID, or nil if not found
func (r *DraftRepository) GetByID(id string) (*models.ResponseDraft, error) {
	d, err := r.scan(r.db.QueryRow(`SELECT `+draftColumns+` FROM response_drafts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// GetByPostID returns the draft for a discovered post, or nil
func (r *DraftRepository) GetByPostID(postID string) (*models.ResponseDraft, error) {
	d, err := r.scan(r.db.QueryRow(`SELECT `+draftColumns+` FROM response_drafts WHERE post_id = ?`, postID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return d, err
}

// ListByStatus returns a campaign's drafts in the given status, oldest first
func (r *DraftRepository) ListByStatus(campaignID string, status models.DraftStatus, limit int) ([]*models.ResponseDraft, error) {
	rows, err := r.db.Query(`SELECT `+draftColumns+` FROM response_drafts
		WHERE campaign_id = ? AND status = ? ORDER BY created_at LIMIT ?`,
		campaignID, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []*models.ResponseDraft
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// ListRecent returns the newest drafts for a campaign regardless of status
func (r *DraftRepository) ListRecent(campaignID string, limit int) ([]*models.ResponseDraft, error) {
	rows, err := r.db.Query(`SELECT `+draftColumns+` FROM response_drafts
		WHERE campaign_id = ? ORDER BY created_at DESC LIMIT ?`, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drafts []*models.ResponseDraft
	for rows.Next() {
		d, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

// SetReview moves a pending draft to approved or rejected. Terminal drafts
// are never touched.
func (r *DraftRepository) SetReview(id string, status models.DraftStatus) error {
	if status != models.DraftApproved && status != models.DraftRejected {
		return ErrInvalidTransition
	}
	res, err := r.db.Exec(`UPDATE response_drafts SET status = ?, updated_at = ?
		WHERE id = ? AND status IN (?, ?)`,
		status, time.Now(), id, models.DraftPending, models.DraftApproved)
	if err != nil {
		return fmt.Errorf("failed to review draft: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkPosted records a successful posting outcome. The status guard makes the
// transition atomic: only an approved draft with no prior outcome can move to
// posted, so posted_at is set exactly once.
func (r *DraftRepository) MarkPosted(id, platformCommentID string, postedAt time.Time) error {
	res, err := r.db.Exec(`UPDATE response_drafts SET status = ?, platform_comment_id = ?,
		posted_at = ?, posting_error = NULL, updated_at = ?
		WHERE id = ? AND status = ? AND posted_at IS NULL`,
		models.DraftPosted, platformCommentID, postedAt, time.Now(), id, models.DraftApproved)
	if err != nil {
		return fmt.Errorf("failed to mark draft posted: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// MarkFailed records a failed posting outcome. Terminal.
func (r *DraftRepository) MarkFailed(id, postingError string) error {
	res, err := r.db.Exec(`UPDATE response_drafts SET status = ?, posting_error = ?,
		updated_at = ? WHERE id = ? AND status = ?`,
		models.DraftFailed, postingError, time.Now(), id, models.DraftApproved)
	if err != nil {
		return fmt.Errorf("failed to mark draft failed: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrInvalidTransition
	}
	return nil
}

// CountPostedSince is the rate-limit ledger: the number of posted outcomes
// for (platform, user) after the cutoff. Derived from draft rows rather than
// a separate counter so there is a single source of truth.
func (r *DraftRepository) CountPostedSince(platform models.Platform, userID string, cutoff time.Time) (int, error) {
	var n int
	err := r.db.QueryRow(`
		SELECT COUNT(*) FROM response_drafts d
		JOIN campaigns c ON c.id = d.campaign_id
		WHERE c.platform = ? AND c.user_id = ? AND d.status = ? AND d.posted_at > ?`,
		platform, userID, models.DraftPosted, cutoff).Scan(&n)
	return n, err
}

// OldestPostedSince returns the earliest posted_at for (platform, user) after
// the cutoff, or nil when none exist. Used to compute when a slot frees up.
func (r *DraftRepository) OldestPostedSince(platform models.Platform, userID string, cutoff time.Time) (*time.Time, error) {
	var oldest time.Time
	err := r.db.QueryRow(`
		SELECT d.posted_at FROM response_drafts d
		JOIN campaigns c ON c.id = d.campaign_id
		WHERE c.platform = ? AND c.user_id = ? AND d.status = ? AND d.posted_at > ?
		ORDER BY d.posted_at LIMIT 1`,
		platform, userID, models.DraftPosted, cutoff).Scan(&oldest)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &oldest, nil
}

// CountByStatus returns draft counts for a campaign grouped by status
func (r *DraftRepository) CountByStatus(campaignID string) (map[models.DraftStatus]int, error) {
	rows, err := r.db.Query(`SELECT status, COUNT(*) FROM response_drafts
		WHERE campaign_id = ? GROUP BY status`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[models.DraftStatus]int)
	for rows.Next() {
		var status models.DraftStatus
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		counts[status] = n
	}
	return counts, rows.Err()
}
