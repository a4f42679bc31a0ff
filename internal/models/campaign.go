package models

import "time"

// CampaignStatus is the lifecycle state of a campaign
type CampaignStatus string

const (
	CampaignDraft   CampaignStatus = "draft"
	CampaignActive  CampaignStatus = "active"
	CampaignPaused  CampaignStatus = "paused"
	CampaignStopped CampaignStatus = "stopped"
	CampaignError   CampaignStatus = "error"
)

// Platform identifies the target social platform
type Platform string

const (
	PlatformReddit   Platform = "reddit"
	PlatformLinkedIn Platform = "linkedin"
)

// Campaign is one unit of automation work: a set of targets to monitor,
// rules for engaging, and a schedule for execution cycles.
type Campaign struct {
	ID             string           `json:"id"`
	UserID         string           `json:"user_id"`
	CompanyID      string           `json:"company_id"`
	Name           string           `json:"name"`
	Platform       Platform         `json:"platform"`
	Subreddits     []string         `json:"subreddits"`
	Keywords       []string         `json:"keywords"`
	Monitoring     MonitoringRules  `json:"monitoring_rules"`
	Engagement     EngagementRules  `json:"engagement_rules"`
	AISettings     AISettings       `json:"ai_settings"`
	Schedule       ScheduleSettings `json:"schedule_settings"`
	Status         CampaignStatus   `json:"status"`
	LastExecution  *time.Time       `json:"last_execution,omitempty"`
	NextExecution  *time.Time       `json:"next_execution,omitempty"`
	ExecutionCount int              `json:"execution_count"`
	ErrorMessage   string           `json:"error_message,omitempty"`
	StartedAt      *time.Time       `json:"started_at,omitempty"`
	StoppedAt      *time.Time       `json:"stopped_at,omitempty"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// MonitoringRules controls what discovery fetches per target.
type MonitoringRules struct {
	Sort           string `json:"sort"`             // hot, new, top
	TimeFilter     string `json:"time_filter"`      // hour, day, week
	PerTargetLimit int    `json:"per_target_limit"` // max items fetched per subreddit
	MinScore       int    `json:"min_score"`
}

// EngagementRules controls how drafts get dispositioned.
type EngagementRules struct {
	AutoApprove      bool    `json:"auto_approve"`
	MinConfidence    float64 `json:"min_confidence"` // drafts below stay pending
	MaxPostsPerCycle int     `json:"max_posts_per_cycle"`
}

// AISettings selects the model and voice used for response generation.
type AISettings struct {
	Model              string  `json:"model"`
	Temperature        float64 `json:"temperature"`
	Tone               string  `json:"tone"`
	MaxContextSnippets int     `json:"max_context_snippets"`
}

// ScheduleSettings drives the cycle cadence.
type ScheduleSettings struct {
	PostsPerHour    float64 `json:"posts_per_hour"`
	ActiveHourStart int     `json:"active_hour_start"` // 0-23, inclusive
	ActiveHourEnd   int     `json:"active_hour_end"`   // 0-23, exclusive; 0/0 = always on
	Randomize       bool    `json:"randomize"`
	MinDelayMinutes int     `json:"min_delay_minutes"`
	MaxDelayMinutes int     `json:"max_delay_minutes"`
}

// CompanyProfile is the voice and factual grounding for generated replies.
type CompanyProfile struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Voice       string    `json:"voice"`
	Rules       []string  `json:"rules"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ValidStatusTransition reports whether a campaign may move between two states
// via the orchestrator's start/stop/error paths.
func ValidStatusTransition(from, to CampaignStatus) bool {
	switch to {
	case CampaignActive:
		return from == CampaignDraft || from == CampaignStopped || from == CampaignPaused || from == CampaignError
	case CampaignPaused, CampaignStopped:
		return from == CampaignActive
	case CampaignError:
		return from == CampaignActive || from == CampaignDraft
	}
	return false
}
