package models

import "time"

// DiscoveredPost is a platform post pulled during discovery. Append-only:
// (campaign_id, platform_post_id) is unique and rows are never mutated.
type DiscoveredPost struct {
	ID             string    `json:"id"`
	CampaignID     string    `json:"campaign_id"`
	PlatformPostID string    `json:"platform_post_id"`
	Subreddit      string    `json:"subreddit"`
	Title          string    `json:"title"`
	Body           string    `json:"body"`
	Author         string    `json:"author"`
	Score          int       `json:"score"`
	NumComments    int       `json:"num_comments"`
	Permalink      string    `json:"permalink"`
	MatchedKeyword string    `json:"matched_keyword,omitempty"`
	PostedAt       time.Time `json:"posted_at"` // platform-side creation time
	DiscoveredAt   time.Time `json:"discovered_at"`
}

// TargetLog is the per-target breakdown of one discovery pass.
type TargetLog struct {
	Target     string `json:"target"`
	Scanned    int    `json:"scanned"`
	Found      int    `json:"found"`
	Duplicates int    `json:"duplicates"`
	Error      string `json:"error,omitempty"`
}
