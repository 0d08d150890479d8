package search

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/storage"
)

// Engine scores cached cards directly, without an index. It serves as the
// fallback when the Bleve index cannot be opened.
type Engine struct {
	store *storage.Store
}

func NewEngine(store *storage.Store) *Engine {
	return &Engine{store: store}
}

// Search scores every cached card against the query and returns the best
// matches, highest score first.
func (e *Engine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return []*Result{}, nil
	}

	cards, err := e.store.GetCards("", 0)
	if err != nil {
		return nil, err
	}

	var results []*Result
	for _, c := range cards {
		if result := e.scoreCard(c, terms); result != nil {
			results = append(results, result)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

func (e *Engine) scoreCard(c *card.Card, terms []string) *Result {
	var totalScore float64

	totalScore += e.scoreField(c.Title, terms, 4.0)
	totalScore += e.scoreField(c.Author, terms, 2.0)
	totalScore += e.scoreField(strings.Join(c.Tags, " "), terms, 2.0)
	totalScore += e.scoreField(c.Content, terms, 1.0)

	if totalScore == 0 {
		return nil
	}

	return &Result{
		Card:    c,
		Score:   totalScore,
		Snippet: findBestSnippet(c.Content, terms, 200),
	}
}

// scoreField calculates relevance score for a field
func (e *Engine) scoreField(text string, terms []string, weight float64) float64 {
	if text == "" {
		return 0
	}

	lower := strings.ToLower(text)
	words := tokenize(text)

	var score float64
	matchedTerms := 0

	for _, term := range terms {
		termLower := strings.ToLower(term)

		if strings.Contains(lower, termLower) {
			score += 2.0
			matchedTerms++
		}

		for _, word := range words {
			if word == termLower {
				score += 1.5
				matchedTerms++
			} else if strings.HasPrefix(word, termLower) || strings.HasSuffix(word, termLower) {
				score += 1.0
				matchedTerms++
			} else if strings.Contains(word, termLower) {
				score += 0.5
				matchedTerms++
			}
		}
	}

	if len(terms) > 1 && matchedTerms > 1 {
		score *= 1.0 + float64(matchedTerms)/float64(len(terms))
	}

	if len(words) > 0 {
		tf := float64(matchedTerms) / float64(len(words))
		score *= 1.0 + math.Log(1.0+tf)
	}

	return score * weight
}

// findBestSnippet finds the most relevant text window containing search terms.
func findBestSnippet(text string, terms []string, maxLength int) string {
	if text == "" {
		return ""
	}

	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}

	windowSize := maxLength / 8
	if windowSize > len(words) {
		return truncate(text, maxLength)
	}

	bestScore := 0.0
	bestStart := 0
	for i := 0; i <= len(words)-windowSize; i++ {
		windowText := strings.ToLower(strings.Join(words[i:i+windowSize], " "))
		score := 0.0
		for _, term := range terms {
			if strings.Contains(windowText, strings.ToLower(term)) {
				score += 1.0
			}
		}
		if score > bestScore {
			bestScore = score
			bestStart = i
		}
	}

	snippet := strings.Join(words[bestStart:bestStart+windowSize], " ")
	return truncate(snippet, maxLength)
}

// tokenize breaks text into searchable terms
func tokenize(text string) []string {
	var terms []string
	current := strings.Builder{}

	for _, r := range text {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			current.WriteRune(unicode.ToLower(r))
		} else if current.Len() > 0 {
			if term := current.String(); len(term) > 1 {
				terms = append(terms, term)
			}
			current.Reset()
		}
	}

	if current.Len() > 1 {
		terms = append(terms, current.String())
	}

	return terms
}

// truncate limits text length with ellipsis
func truncate(text string, maxLen int) string {
	if len(text) <= maxLen {
		return text
	}
	return text[:maxLen-1] + "…"
}
