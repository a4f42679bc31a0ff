// Package analytics computes read-only campaign aggregates for the dashboard.
package analytics

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/soapboxhq/soapbox/internal/models"
)

// DraftTotals counts a campaign's drafts by status.
type DraftTotals struct {
	Total    int `json:"total"`
	Pending  int `json:"pending"`
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Posted   int `json:"posted"`
	Failed   int `json:"failed"`
}

// DayCount is the number of posted replies on one calendar day.
type DayCount struct {
	Day    string `json:"day"` // YYYY-MM-DD
	Posted int    `json:"posted"`
}

// CycleStats aggregates a campaign's cycle history.
type CycleStats struct {
	Cycles       int     `json:"cycles"`
	Clean        int     `json:"clean"` // cycles with no errors
	SuccessRatio float64 `json:"success_ratio"`
	Discovered   int     `json:"discovered"`
	Generated    int     `json:"generated"`
	Posted       int     `json:"posted"`
	Skipped      int     `json:"skipped"`
}

// Summary is the full rollup for one campaign.
type Summary struct {
	CampaignID    string     `json:"campaign_id"`
	Drafts        DraftTotals `json:"drafts"`
	AvgConfidence float64    `json:"avg_confidence"`
	AvgSentiment  float64    `json:"avg_sentiment"`
	PostedPerDay  []DayCount `json:"posted_per_day"`
	Cycles        CycleStats `json:"cycles"`
}

// Rollup reads aggregates straight from the campaign tables.
type Rollup struct {
	db *sql.DB
}

func NewRollup(db *sql.DB) *Rollup {
	return &Rollup{db: db}
}

// CampaignSummary computes the full rollup for one campaign. days bounds the
// posted-per-day series; <= 0 means 30.
func (r *Rollup) CampaignSummary(campaignID string, days int) (*Summary, error) {
	if days <= 0 {
		days = 30
	}

	s := &Summary{CampaignID: campaignID}

	var err error
	if s.Drafts, s.AvgConfidence, s.AvgSentiment, err = r.draftTotals(campaignID); err != nil {
		return nil, err
	}
	if s.PostedPerDay, err = r.postedPerDay(campaignID, days); err != nil {
		return nil, err
	}
	if s.Cycles, err = r.cycleStats(campaignID); err != nil {
		return nil, err
	}
	return s, nil
}

func (r *Rollup) draftTotals(campaignID string) (DraftTotals, float64, float64, error) {
	var t DraftTotals
	var confidence, sentiment sql.NullFloat64

	// SUM and AVG over zero rows yield NULL, hence the COALESCE / null scans.
	err := r.db.QueryRow(`
		SELECT
			COUNT(*) as total,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) as pending,
			COALESCE(SUM(CASE WHEN status = 'approved' THEN 1 ELSE 0 END), 0) as approved,
			COALESCE(SUM(CASE WHEN status = 'rejected' THEN 1 ELSE 0 END), 0) as rejected,
			COALESCE(SUM(CASE WHEN status = 'posted' THEN 1 ELSE 0 END), 0) as posted,
			COALESCE(SUM(CASE WHEN status = 'failed' THEN 1 ELSE 0 END), 0) as failed,
			AVG(confidence),
			AVG(sentiment)
		FROM response_drafts WHERE campaign_id = ?`, campaignID,
	).Scan(&t.Total, &t.Pending, &t.Approved, &t.Rejected, &t.Posted, &t.Failed, &confidence, &sentiment)
	if err != nil {
		return t, 0, 0, fmt.Errorf("failed to aggregate drafts: %w", err)
	}
	return t, confidence.Float64, sentiment.Float64, nil
}

func (r *Rollup) postedPerDay(campaignID string, days int) ([]DayCount, error) {
	since := time.Now().AddDate(0, 0, -days)
	rows, err := r.db.Query(`
		SELECT date(posted_at), COUNT(*)
		FROM response_drafts
		WHERE campaign_id = ? AND status = ? AND posted_at >= ?
		GROUP BY date(posted_at)
		ORDER BY date(posted_at)`, campaignID, models.DraftPosted, since)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate posted per day: %w", err)
	}
	defer rows.Close()

	series := []DayCount{}
	for rows.Next() {
		var d DayCount
		if err := rows.Scan(&d.Day, &d.Posted); err != nil {
			return nil, err
		}
		series = append(series, d)
	}
	return series, rows.Err()
}

func (r *Rollup) cycleStats(campaignID string) (CycleStats, error) {
	var s CycleStats
	var clean sql.NullInt64
	var discovered, generated, posted, skipped sql.NullInt64

	err := r.db.QueryRow(`
		SELECT
			COUNT(*) as cycles,
			SUM(CASE WHEN errors IS NULL OR errors = '' OR errors = '[]' THEN 1 ELSE 0 END) as clean,
			SUM(discovered), SUM(generated), SUM(posted), SUM(skipped)
		FROM cycle_records WHERE campaign_id = ?`, campaignID,
	).Scan(&s.Cycles, &clean, &discovered, &generated, &posted, &skipped)
	if err != nil {
		return s, fmt.Errorf("failed to aggregate cycles: %w", err)
	}

	s.Clean = int(clean.Int64)
	s.Discovered = int(discovered.Int64)
	s.Generated = int(generated.Int64)
	s.Posted = int(posted.Int64)
	s.Skipped = int(skipped.Int64)
	if s.Cycles > 0 {
		s.SuccessRatio = float64(s.Clean) / float64(s.Cycles)
	}
	return s, nil
}
