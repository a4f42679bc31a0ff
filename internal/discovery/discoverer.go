// Package discovery pulls candidate posts from the platform and dedups them
// against everything the campaign has already seen.
package discovery

import (
	"context"
	"log/slog"

	"github.com/soapboxhq/soapbox/internal/models"
	"github.com/soapboxhq/soapbox/internal/reddit"
	"github.com/soapboxhq/soapbox/internal/repository"
	"github.com/soapboxhq/soapbox/internal/soaperr"
)

const defaultPerTargetLimit = 25

// Result aggregates one discovery pass.
type Result struct {
	Posts      []*models.DiscoveredPost
	TargetLogs []models.TargetLog
}

// Discoverer fetches and normalizes new posts for a campaign.
type Discoverer struct {
	posts  *repository.PostRepository
	index  *SeenIndex
	logger *slog.Logger
}

func NewDiscoverer(posts *repository.PostRepository, index *SeenIndex, logger *slog.Logger) *Discoverer {
	return &Discoverer{
		posts:  posts,
		index:  index,
		logger: logger.With("component", "discovery"),
	}
}

// Discover runs one pass over the campaign's targets. A fetch error on one
// target is recorded in its log entry and the pass continues; an auth error
// aborts the whole pass since every later call would fail the same way.
func (d *Discoverer) Discover(ctx context.Context, client reddit.Client, campaign *models.Campaign) (*Result, error) {
	seen, err := d.loadSeen(campaign.ID)
	if err != nil {
		return nil, err
	}

	perTarget := campaign.Monitoring.PerTargetLimit
	if perTarget <= 0 {
		perTarget = defaultPerTargetLimit
	}

	result := &Result{}
	for _, subreddit := range campaign.Subreddits {
		log := models.TargetLog{Target: subreddit}

		links, err := d.fetchTarget(ctx, client, campaign, subreddit, perTarget)
		if err != nil {
			if soaperr.IsKind(err, soaperr.KindAuth) {
				return nil, err
			}
			log.Error = err.Error()
			result.TargetLogs = append(result.TargetLogs, log)
			d.logger.Warn("target fetch failed",
				"campaign_id", campaign.ID, "target", subreddit, "error", err)
			continue
		}

		var accepted []string
		for _, item := range links {
			log.Scanned++
			if _, dup := seen[item.link.Name]; dup {
				log.Duplicates++
				continue
			}
			if item.link.Score < campaign.Monitoring.MinScore {
				continue
			}

			post := normalize(campaign.ID, item)
			if err := d.posts.Create(post); err != nil {
				if err == repository.ErrDuplicatePost {
					log.Duplicates++
					continue
				}
				log.Error = err.Error()
				continue
			}

			seen[item.link.Name] = struct{}{}
			accepted = append(accepted, item.link.Name)
			result.Posts = append(result.Posts, post)
			log.Found++
		}

		if err := d.index.Mark(campaign.ID, accepted); err != nil {
			d.logger.Warn("seen index update failed",
				"campaign_id", campaign.ID, "error", err)
		}
		result.TargetLogs = append(result.TargetLogs, log)
	}

	return result, nil
}

// loadSeen merges the bbolt index with the ids already persisted in sqlite.
// Loaded once per pass; per-item checks are map hits.
func (d *Discoverer) loadSeen(campaignID string) (map[string]struct{}, error) {
	seen, err := d.index.Load(campaignID)
	if err != nil {
		return nil, err
	}
	existing, err := d.posts.ExistingPlatformIDs(campaignID)
	if err != nil {
		return nil, err
	}
	for id := range existing {
		seen[id] = struct{}{}
	}
	return seen, nil
}

// candidate pairs a fetched link with the keyword that surfaced it, if any.
type candidate struct {
	link    *reddit.Link
	keyword string
}

// fetchTarget issues one search per keyword, splitting the target budget
// across keywords, or a plain sort listing when no keywords are configured.
func (d *Discoverer) fetchTarget(ctx context.Context, client reddit.Client, campaign *models.Campaign, subreddit string, perTarget int) ([]candidate, error) {
	if len(campaign.Keywords) == 0 {
		links, err := client.ListSubreddit(ctx, subreddit, campaign.Monitoring.Sort, perTarget)
		if err != nil {
			return nil, err
		}
		items := make([]candidate, len(links))
		for i, l := range links {
			items[i] = candidate{link: l}
		}
		return items, nil
	}

	perKeyword := perTarget / len(campaign.Keywords)
	if perKeyword < 1 {
		perKeyword = 1
	}

	var items []candidate
	for _, keyword := range campaign.Keywords {
		links, err := client.SearchSubreddit(ctx, subreddit, keyword, reddit.SearchOptions{
			Sort:       "relevance",
			TimeFilter: campaign.Monitoring.TimeFilter,
			Limit:      perKeyword,
		})
		if err != nil {
			return nil, err
		}
		for _, l := range links {
			items = append(items, candidate{link: l, keyword: keyword})
		}
	}
	return items, nil
}

func normalize(campaignID string, item candidate) *models.DiscoveredPost {
	return &models.DiscoveredPost{
		CampaignID:     campaignID,
		PlatformPostID: item.link.Name,
		Subreddit:      item.link.Subreddit,
		Title:          item.link.Title,
		Body:           item.link.Selftext,
		Author:         item.link.Author,
		Score:          item.link.Score,
		NumComments:    item.link.NumComments,
		Permalink:      item.link.Permalink,
		MatchedKeyword: item.keyword,
		PostedAt:       item.link.Created(),
	}
}
