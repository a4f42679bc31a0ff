package repository

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/soapboxhq/soapbox/internal/models"
)

type PostRepository struct {
	db *sql.DB
}

func NewPostRepository(db *sql.DB) *PostRepository {
	return &PostRepository{db: db}
}

// ErrDuplicatePost is returned when (campaign_id, platform_post_id) already exists.
var ErrDuplicatePost = fmt.Errorf("post already discovered")

// Create inserts a discovered post. The UNIQUE(campaign_id, platform_post_id)
// constraint backstops the seen-ID index.
func (r *PostRepository) Create(p *models.DiscoveredPost) error {
	p.ID = uuid.New().String()
	p.DiscoveredAt = time.Now()

	_, err := r.db.Exec(`
		INSERT INTO discovered_posts (id, campaign_id, platform_post_id, subreddit, title, body,
			author, score, num_comments, permalink, matched_keyword, posted_at, discovered_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CampaignID, p.PlatformPostID, p.Subreddit, p.Title, p.Body,
		p.Author, p.Score, p.NumComments, p.Permalink, nullString(p.MatchedKeyword),
		p.PostedAt, p.DiscoveredAt,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return ErrDuplicatePost
		}
		return fmt.Errorf("failed to create discovered post: %w", err)
	}
	return nil
}

const postColumns = `id, campaign_id, platform_post_id, subreddit, title, body, author,
	score, num_comments, permalink, matched_keyword, posted_at, discovered_at`

func (r *PostRepository) scan(row interface{ Scan(...any) error }) (*models.DiscoveredPost, error) {
	p := &models.DiscoveredPost{}
	var matched sql.NullString
	err := row.Scan(&p.ID, &p.CampaignID, &p.PlatformPostID, &p.Subreddit, &p.Title, &p.Body,
		&p.Author, &p.Score, &p.NumComments, &p.Permalink, &matched, &p.PostedAt, &p.DiscoveredAt)
	if err != nil {
		return nil, err
	}
	if matched.Valid {
		p.MatchedKeyword = matched.String
	}
	return p, nil
}

// GetByID returns a post by ID, or nil if not found
func (r *PostRepository) GetByID(id string) (*models.DiscoveredPost, error) {
	p, err := r.scan(r.db.QueryRow(`SELECT `+postColumns+` FROM discovered_posts WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

// ExistingPlatformIDs returns the set of platform post IDs already discovered
// for a campaign. Loaded once per cycle so dedup does not hit the database
// per candidate.
func (r *PostRepository) ExistingPlatformIDs(campaignID string) (map[string]struct{}, error) {
	rows, err := r.db.Query(`SELECT platform_post_id FROM discovered_posts WHERE campaign_id = ?`, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make(map[string]struct{})
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids[id] = struct{}{}
	}
	return ids, rows.Err()
}

// ListWithoutDraft returns posts of a campaign that have no response draft
// yet, oldest discovery first, up to limit.
func (r *PostRepository) ListWithoutDraft(campaignID string, limit int) ([]*models.DiscoveredPost, error) {
	rows, err := r.db.Query(`
		SELECT `+prefixColumns("p", postColumns)+`
		FROM discovered_posts p
		LEFT JOIN response_drafts d ON d.post_id = p.id
		WHERE p.campaign_id = ? AND d.id IS NULL
		ORDER BY p.discovered_at
		LIMIT ?`, campaignID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []*models.DiscoveredPost
	for rows.Next() {
		p, err := r.scan(rows)
		if err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

// CountByCampaign returns the number of discovered posts for a campaign
func (r *PostRepository) CountByCampaign(campaignID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM discovered_posts WHERE campaign_id = ?`, campaignID).Scan(&n)
	return n, err
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// prefixColumns rewrites "a, b, c" as "p.a, p.b, p.c" for joined queries.
func prefixColumns(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + "." + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}
