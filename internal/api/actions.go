package api

import (
	"encoding/json"
	"strings"

	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/orchestrator"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

// stringList accepts both a JSON array and a comma-separated string, so older
// dashboard clients keep working.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = nil
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				*l = append(*l, part)
			}
		}
		return nil
	}
	return json.Unmarshal(data, (*[]string)(l))
}

// The action endpoint decodes its body exactly once into one of these
// variants; handlers never see the raw payload.
type (
	createCampaignAction struct {
		UserID     string                  `json:"user_id"`
		CompanyID  string                  `json:"company_id"`
		Name       string                  `json:"name"`
		Platform   models.Platform         `json:"platform"`
		Subreddits stringList              `json:"subreddits"`
		Keywords   stringList              `json:"keywords"`
		Monitoring models.MonitoringRules  `json:"monitoring_rules"`
		Engagement models.EngagementRules  `json:"engagement_rules"`
		AISettings models.AISettings       `json:"ai_settings"`
		Schedule   models.ScheduleSettings `json:"schedule_settings"`
	}

	startCampaignAction struct {
		CampaignID string `json:"campaign_id"`
	}

	stopCampaignAction struct {
		CampaignID string `json:"campaign_id"`
		Pause      bool   `json:"pause"`
	}

	executeCycleAction struct {
		CampaignID string `json:"campaign_id"`
	}

	campaignStatusAction struct {
		CampaignID string `json:"campaign_id"`
	}
)

func (a createCampaignAction) spec() orchestrator.CampaignSpec {
	return orchestrator.CampaignSpec{
		UserID:     a.UserID,
		CompanyID:  a.CompanyID,
		Name:       a.Name,
		Platform:   a.Platform,
		Subreddits: a.Subreddits,
		Keywords:   a.Keywords,
		Monitoring: a.Monitoring,
		Engagement: a.Engagement,
		AISettings: a.AISettings,
		Schedule:   a.Schedule,
	}
}

// decodeAction parses the body into the variant named by its action field.
func decodeAction(body []byte) (any, error) {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(body, &head); err != nil {
		return nil, soaperr.E(soaperr.KindValidation, "invalid request body")
	}

	var req any
	switch head.Action {
	case "create_campaign":
		req = &createCampaignAction{}
	case "start_campaign":
		req = &startCampaignAction{}
	case "stop_campaign":
		req = &stopCampaignAction{}
	case "execute_campaign_cycle":
		req = &executeCycleAction{}
	case "get_campaign_status":
		req = &campaignStatusAction{}
	case "":
		return nil, soaperr.E(soaperr.KindValidation, "action is required")
	default:
		return nil, soaperr.E(soaperr.KindValidation, "unknown action %q", head.Action)
	}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, soaperr.E(soaperr.KindValidation, "invalid %s payload", head.Action)
	}
	return req, nil
}
