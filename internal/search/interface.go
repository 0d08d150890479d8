package search

import "github.com/jmherbst/verifeed/internal/card"

// Result is one archive search hit.
type Result struct {
	Card    *card.Card
	Score   float64
	Snippet string
}

// Searcher defines the minimal search API used by the TUI.
type Searcher interface {
	Search(query string, limit int) ([]*Result, error)
}

// UpdateListener can be implemented by search engines that maintain
// an external index and want to be notified when cards are cached.
type UpdateListener interface {
	OnCardsCached(cards []*card.Card)
}

// DeleteListener can be implemented to get notified when a card is removed
// from the cache.
type DeleteListener interface {
	OnCardDeleted(cardID string)
}

// DebugStatser provides lightweight stats for visibility/debugging.
type DebugStatser interface {
	DocCount() (int, error)
}
