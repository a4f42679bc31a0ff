package generate

import (
	"fmt"
	"strings"

	"github.com/soapboxhq/soapbox/internal/contextstore"
	"github.com/soapboxhq/soapbox/internal/models"
)

// BuildPrompt assembles the model prompt. Assembly is deterministic: the same
// post, profile, and snippets always produce the same prompt.
func BuildPrompt(post *models.DiscoveredPost, campaign *models.Campaign, company *models.CompanyProfile, snippets []contextstore.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "You write replies on %s on behalf of %s.\n", campaign.Platform, company.Name)
	if company.Description != "" {
		fmt.Fprintf(&b, "About the company: %s\n", company.Description)
	}
	if company.Voice != "" {
		fmt.Fprintf(&b, "Voice: %s\n", company.Voice)
	}
	if campaign.AISettings.Tone != "" {
		fmt.Fprintf(&b, "Tone: %s\n", campaign.AISettings.Tone)
	}

	if len(company.Rules) > 0 {
		b.WriteString("\nRules:\n")
		for _, rule := range company.Rules {
			fmt.Fprintf(&b, "- %s\n", rule)
		}
	}

	if len(snippets) > 0 {
		b.WriteString("\nRelevant company context:\n")
		for _, sn := range snippets {
			fmt.Fprintf(&b, "- %s\n", sn.Text)
		}
	}

	fmt.Fprintf(&b, "\nPost in r/%s by %s:\nTitle: %s\n", post.Subreddit, post.Author, post.Title)
	if post.Body != "" {
		fmt.Fprintf(&b, "Body: %s\n", post.Body)
	}

	b.WriteString("\nWrite a helpful reply to this post. Be genuine and conversational. " +
		"Mention the company's product only where it actually answers the author's need. " +
		"Do not use markdown headers. Reply with the comment text only.\n")

	return b.String()
}
