package models

import "time"

// DraftStatus is the disposition of a generated response.
type DraftStatus string

const (
	DraftPending  DraftStatus = "pending"
	DraftApproved DraftStatus = "approved"
	DraftRejected DraftStatus = "rejected"
	DraftPosted   DraftStatus = "posted"
	DraftFailed   DraftStatus = "failed"
)

// Terminal reports whether a draft status admits no further transitions.
// posted and failed are terminal: a failed draft is never re-posted, a new
// draft must be generated and approved instead.
func (s DraftStatus) Terminal() bool {
	return s == DraftPosted || s == DraftFailed
}

// Priority buckets drafts for reviewer attention.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// ResponseDraft is an AI-generated candidate reply tied to one discovered post.
// At most one draft exists per post.
type ResponseDraft struct {
	ID                  string      `json:"id"`
	CampaignID          string      `json:"campaign_id"`
	PostID              string      `json:"post_id"`
	Text                string      `json:"text"`
	Model               string      `json:"model"`
	Confidence          float64     `json:"confidence"`           // [0,1]
	Sentiment           float64     `json:"sentiment"`            // [0,1]
	EngagementPotential float64     `json:"engagement_potential"` // [1,10]
	Priority            Priority    `json:"priority"`
	Status              DraftStatus `json:"status"`
	ContextSnippets     []string    `json:"context_snippets,omitempty"`
	PlatformCommentID   string      `json:"platform_comment_id,omitempty"`
	PostingError        string      `json:"posting_error,omitempty"`
	PostedAt            *time.Time  `json:"posted_at,omitempty"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}
