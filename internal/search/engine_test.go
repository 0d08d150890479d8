package search

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/storage"
)

func seedStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	base := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	cards := []*card.Card{
		{
			ID: "c1", Title: "Climate summit reaches historic agreement",
			Content: "World leaders agreed on emission targets at the climate summit.",
			Author:  "reuters", Verdict: card.VerdictReal, Confidence: 0.9,
			Tags:      []string{"climate", "politics"},
			CreatedAt: card.Timestamp{Time: base},
		},
		{
			ID: "c2", Title: "Miracle cure discovered in backyard",
			Content: "A local man claims his herb garden cures every known disease.",
			Author:  "anonymous", Verdict: card.VerdictFake, Confidence: 0.95,
			Tags:      []string{"health"},
			CreatedAt: card.Timestamp{Time: base.Add(time.Hour)},
		},
		{
			ID: "c3", Title: "Stock markets close higher",
			Content: "Markets rallied after the climate agreement announcement.",
			Author:  "bloomberg", Verdict: card.VerdictReal, Confidence: 0.8,
			CreatedAt: card.Timestamp{Time: base.Add(2 * time.Hour)},
		},
	}
	if err := store.SaveCards(cards); err != nil {
		t.Fatalf("failed to seed cards: %v", err)
	}
	return store
}

func TestEngineSearch(t *testing.T) {
	engine := NewEngine(seedStore(t))

	results, err := engine.Search("climate", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
	// Title match outranks content-only match.
	if results[0].Card.ID != "c1" {
		t.Errorf("expected c1 first, got %s", results[0].Card.ID)
	}
	if results[1].Card.ID != "c3" {
		t.Errorf("expected c3 second, got %s", results[1].Card.ID)
	}
}

func TestEngineSearchShortQuery(t *testing.T) {
	engine := NewEngine(seedStore(t))

	results, err := engine.Search("a", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results for single-char query, got %d", len(results))
	}
}

func TestEngineSearchNoMatch(t *testing.T) {
	engine := NewEngine(seedStore(t))

	results, err := engine.Search("spaceship", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected no results, got %d", len(results))
	}
}

func TestEngineSearchAuthor(t *testing.T) {
	engine := NewEngine(seedStore(t))

	results, err := engine.Search("bloomberg", 10)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 || results[0].Card.ID != "c3" {
		t.Fatalf("expected only c3, got %d results", len(results))
	}
}

func TestEngineSearchLimit(t *testing.T) {
	engine := NewEngine(seedStore(t))

	results, err := engine.Search("climate", 1)
	if err != nil {
		t.Fatalf("search failed: %v", err)
	}
	if len(results) != 1 {
		t.Errorf("expected limit of 1 to apply, got %d", len(results))
	}
}

func TestFindBestSnippet(t *testing.T) {
	text := "filler filler filler filler filler the climate agreement was reached today filler filler"
	snippet := findBestSnippet(text, []string{"climate"}, 80)
	if snippet == "" {
		t.Fatal("expected a snippet")
	}
	if !strings.Contains(snippet, "climate") {
		t.Errorf("expected snippet to contain the term, got %q", snippet)
	}
}

func TestTokenize(t *testing.T) {
	terms := tokenize("Breaking: Climate-Summit 2025!")
	want := []string{"breaking", "climate", "summit", "2025"}
	if len(terms) != len(want) {
		t.Fatalf("expected %d terms, got %v", len(want), terms)
	}
	for i, term := range want {
		if terms[i] != term {
			t.Errorf("expected term %d to be %q, got %q", i, term, terms[i])
		}
	}
}
