package generate

import (
	"strings"

	"github.com/soapboxhq/soapbox/internal/models"
)

// Scores are the heuristic estimates attached to a draft.
type Scores struct {
	Sentiment           float64 // [0,1], 0.5 is neutral
	EngagementPotential float64 // [1,10]
}

// Scorer estimates sentiment and engagement potential for a discovered post.
// The heuristic implementation is the default; swap in a model-backed scorer
// without touching the generator.
type Scorer interface {
	Score(title, body string) Scores
}

// HeuristicScorer scores with a small lexicon and surface features. Simple and
// explainable, no model call.
type HeuristicScorer struct{}

var positiveWords = []string{
	"love", "great", "awesome", "excellent", "helpful", "recommend", "best",
	"amazing", "good", "thanks", "works", "solved", "easy", "perfect",
}

var negativeWords = []string{
	"hate", "terrible", "awful", "broken", "worst", "useless", "frustrat",
	"annoying", "bad", "fail", "bug", "problem", "issue", "stuck",
}

func (HeuristicScorer) Score(title, body string) Scores {
	text := strings.ToLower(title + " " + body)

	pos, neg := 0, 0
	for _, w := range positiveWords {
		pos += strings.Count(text, w)
	}
	for _, w := range negativeWords {
		neg += strings.Count(text, w)
	}
	sentiment := clamp(0.5+0.1*float64(pos-neg), 0, 1)

	// Questions and substantial text signal a thread worth replying to.
	engagement := 3.0
	engagement += float64(strings.Count(text, "?")) * 2
	if len(strings.Fields(body)) > 50 {
		engagement += 2
	}
	if strings.Count(text, "!") > 0 {
		engagement++
	}
	engagement = clamp(engagement, 1, 10)

	return Scores{Sentiment: sentiment, EngagementPotential: engagement}
}

// PriorityFor buckets a draft by its scores for reviewer attention.
func PriorityFor(engagement, sentiment float64) models.Priority {
	switch {
	case engagement >= 7 && sentiment >= 0.5:
		return models.PriorityHigh
	case engagement >= 4 && sentiment >= 0.3:
		return models.PriorityMedium
	default:
		return models.PriorityLow
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
