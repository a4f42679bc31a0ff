// Package contextstore retrieves company knowledge snippets by token overlap.
// Scoring stays deliberately explainable: no embeddings, just case-insensitive
// term containment normalized by candidate length.
package contextstore

import (
	"context"
	"sort"
	"strings"

	"github.com/soapboxhq/soapbox/internal/repository"
)

// Result is one scored snippet.
type Result struct {
	Text           string  `json:"text"`
	SourceType     string  `json:"source_type"`
	RelevanceScore float64 `json:"relevance_score"`
}

// Searcher ranks stored snippets against a free-text query.
type Searcher interface {
	Search(ctx context.Context, companyID, query string, maxResults int) ([]Result, error)
}

// Store is the sqlite-backed Searcher.
type Store struct {
	snippets *repository.SnippetRepository
}

func NewStore(snippets *repository.SnippetRepository) *Store {
	return &Store{snippets: snippets}
}

// Search returns up to maxResults snippets sorted by descending relevance.
// Snippets scoring zero are dropped.
func (s *Store) Search(ctx context.Context, companyID, query string, maxResults int) ([]Result, error) {
	if maxResults <= 0 {
		return nil, nil
	}

	snippets, err := s.snippets.ListByCompany(companyID)
	if err != nil {
		return nil, err
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, nil
	}

	results := make([]Result, 0, len(snippets))
	for _, sn := range snippets {
		score := relevance(terms, sn.Text)
		if score <= 0 {
			continue
		}
		results = append(results, Result{
			Text:           sn.Text,
			SourceType:     sn.SourceType,
			RelevanceScore: score,
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].RelevanceScore > results[j].RelevanceScore
	})
	if len(results) > maxResults {
		results = results[:maxResults]
	}
	return results, nil
}

// relevance counts query terms contained in the candidate, normalized by the
// candidate's own token count so short focused facts outrank rambling text.
func relevance(terms []string, candidate string) float64 {
	lower := strings.ToLower(candidate)
	hits := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			hits++
		}
	}
	if hits == 0 {
		return 0
	}

	length := len(strings.Fields(candidate))
	if length == 0 {
		return 0
	}
	return float64(hits) / float64(length)
}

func tokenize(query string) []string {
	fields := strings.Fields(strings.ToLower(query))
	terms := make([]string, 0, len(fields))
	seen := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		f = strings.Trim(f, ".,!?:;\"'()[]")
		if len(f) < 3 {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		terms = append(terms, f)
	}
	return terms
}
