package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/dsadash/dsadash/internal/schema"
	"github.com/dsadash/dsadash/internal/shape"
)

// Explanations used when the model cannot help.
const (
	SearchUnavailable = "Unable to process search query. Please try rephrasing your search."
	SearchNoMatch     = "No questions found matching your search criteria. Try different keywords like 'arrays', 'strings', 'trees', 'graphs', etc."
)

// SearchResult is the model's pick for a free-text query over the list.
type SearchResult struct {
	// SuggestedQuestion is nil when nothing matched.
	SuggestedQuestion  *string  `json:"suggestedQuestion"`
	Explanation        string   `json:"explanation"`
	AlternativeMatches []string `json:"alternativeMatches"`
}

var searchShape = shape.Object{
	{Name: "suggestedQuestion", Kind: shape.String, Nullable: true},
	{Name: "explanation", Kind: shape.String},
	{Name: "alternativeMatches", Kind: shape.StringList},
}

// Search asks the model which of questions best matches query. Suggestions
// naming questions that are not in the list are dropped.
func (e *Extractor) Search(ctx context.Context, query string, questions []schema.Question) SearchResult {
	unavailable := SearchResult{Explanation: SearchUnavailable, AlternativeMatches: []string{}}

	if len(questions) == 0 {
		return SearchResult{Explanation: SearchNoMatch, AlternativeMatches: []string{}}
	}

	raw, err := e.generate(ctx, searchPrompt(query, questions))
	if err != nil {
		e.logger.Printf("Search for %q failed: %v", query, err)
		return unavailable
	}

	m, ok := decodeFirst(raw)
	if !ok {
		return unavailable
	}

	known := make(map[string]bool, len(questions))
	for _, q := range questions {
		known[q.Name] = true
	}

	fields, _ := searchShape.Conform(m)
	res := SearchResult{
		Explanation:        shape.Str(fields, "explanation", SearchNoMatch),
		AlternativeMatches: []string{},
	}
	if name := shape.Str(fields, "suggestedQuestion", ""); known[name] {
		res.SuggestedQuestion = &name
	}
	for _, alt := range shape.Strs(fields, "alternativeMatches") {
		if known[alt] && (res.SuggestedQuestion == nil || alt != *res.SuggestedQuestion) {
			res.AlternativeMatches = append(res.AlternativeMatches, alt)
		}
	}
	return res
}

func searchPrompt(query string, questions []schema.Question) string {
	var b strings.Builder
	b.WriteString("You help users find DSA questions in their practice list.\n\n")
	fmt.Fprintf(&b, "Search query: %q\n\nAvailable questions:\n", query)
	for i, q := range questions {
		fmt.Fprintf(&b, "%d. %s (Topic: %s, Platform: %s)\n", i+1, q.Name, q.Topic, q.Platform)
	}
	fmt.Fprintf(&b, `
Match on topic or algorithm, difficulty, platform and name similarity.
Respond with ONLY a JSON object:
{
  "suggestedQuestion": "exact name of the best match, or null",
  "explanation": "why it matches",
  "alternativeMatches": ["other exact names"]
}
When nothing matches use null, an empty list, and the explanation %q.`, SearchNoMatch)
	return b.String()
}
