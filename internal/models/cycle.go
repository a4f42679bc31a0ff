package models

import "time"

// CycleRecord is one execution of the orchestrator's cycle for a campaign.
// Built in memory during the cycle and written once at completion.
type CycleRecord struct {
	ID            string     `json:"id"`
	CampaignID    string     `json:"campaign_id"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   time.Time  `json:"completed_at"`
	Discovered    int        `json:"discovered"`
	Generated     int        `json:"generated"`
	Posted        int        `json:"posted"`
	Skipped       int        `json:"skipped"`
	Errors        []string   `json:"errors,omitempty"`
	NextExecution *time.Time `json:"next_execution,omitempty"`
}
