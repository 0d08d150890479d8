package feed

import (
	"sort"
	"strings"

	"github.com/jmherbst/verifeed/internal/card"
)

// SortKey names the orderings the feed supports.
type SortKey string

const (
	SortByTime       SortKey = "time"
	SortByConfidence SortKey = "confidence"
	SortByAuthor     SortKey = "author"
)

// ParseSortKey normalizes a sort key string, falling back to time order.
func ParseSortKey(s string) SortKey {
	switch SortKey(strings.ToLower(strings.TrimSpace(s))) {
	case SortByConfidence:
		return SortByConfidence
	case SortByAuthor:
		return SortByAuthor
	default:
		return SortByTime
	}
}

// Store owns the canonical item set for one feed view and derives the
// filtered, searched, sorted subset from it. Items stay in arrival order;
// display order is computed on demand and never mutates the backing slice.
type Store struct {
	items  []*card.Card
	ids    map[string]struct{}
	filter card.Verdict // empty means no filter
	sortBy SortKey
	search string
}

func NewStore() *Store {
	return &Store{
		ids:    make(map[string]struct{}),
		sortBy: SortByTime,
	}
}

// MergePage appends incoming items preserving arrival order. Items whose
// id is already present are dropped silently; the server may resend
// overlapping pages. Returns the number of items actually added.
func (s *Store) MergePage(cards []*card.Card) int {
	added := 0
	for _, c := range cards {
		if c == nil || c.ID == "" {
			continue
		}
		if _, exists := s.ids[c.ID]; exists {
			continue
		}
		s.ids[c.ID] = struct{}{}
		s.items = append(s.items, c)
		added++
	}
	return added
}

// AddLocalItem front-inserts an item produced locally (a fresh submission
// result) without waiting for it to appear in any fetched page.
func (s *Store) AddLocalItem(c *card.Card) bool {
	if c == nil || c.ID == "" {
		return false
	}
	if _, exists := s.ids[c.ID]; exists {
		return false
	}
	s.ids[c.ID] = struct{}{}
	s.items = append([]*card.Card{c}, s.items...)
	return true
}

// Reset clears all items for a fresh first page. Filter, sort and search
// state survive a reset; they belong to the view, not to the data.
func (s *Store) Reset() {
	s.items = nil
	s.ids = make(map[string]struct{})
}

func (s *Store) ApplyFilter(v card.Verdict) { s.filter = v }
func (s *Store) ApplySort(k SortKey)        { s.sortBy = k }
func (s *Store) ApplySearch(term string)    { s.search = term }

func (s *Store) Filter() card.Verdict { return s.filter }
func (s *Store) Sort() SortKey        { return s.sortBy }
func (s *Store) Search() string       { return s.search }

func (s *Store) Len() int { return len(s.items) }

func (s *Store) Get(id string) (*card.Card, bool) {
	if _, exists := s.ids[id]; !exists {
		return nil, false
	}
	for _, c := range s.items {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// All returns the items in arrival order. Callers must not mutate the
// returned slice.
func (s *Store) All() []*card.Card { return s.items }

// Visible derives the current view: filter, then search, then sort. The
// result depends only on the store's current state, never on a previous
// derivation.
func (s *Store) Visible() []*card.Card {
	visible := make([]*card.Card, 0, len(s.items))
	for _, c := range s.items {
		if s.filter != "" && c.Verdict != s.filter {
			continue
		}
		if !c.Matches(s.search) {
			continue
		}
		visible = append(visible, c)
	}

	switch s.sortBy {
	case SortByConfidence:
		sort.SliceStable(visible, func(i, j int) bool {
			if visible[i].Confidence != visible[j].Confidence {
				return visible[i].Confidence > visible[j].Confidence
			}
			return visible[i].CreatedAt.After(visible[j].CreatedAt.Time)
		})
	case SortByAuthor:
		sort.SliceStable(visible, func(i, j int) bool {
			ai := strings.ToLower(visible[i].Author)
			aj := strings.ToLower(visible[j].Author)
			// Missing authors sort last
			if ai == "" {
				return false
			}
			if aj == "" {
				return true
			}
			return ai < aj
		})
	default: // SortByTime, newest first
		sort.SliceStable(visible, func(i, j int) bool {
			return visible[i].CreatedAt.After(visible[j].CreatedAt.Time)
		})
	}

	return visible
}
