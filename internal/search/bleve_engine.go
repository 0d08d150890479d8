package search

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	bleveQuery "github.com/blevesearch/bleve/v2/search/query"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/storage"
)

type bleveEngine struct {
	store *storage.Store
	idx   bleve.Index
}

// NewBleveEngine creates or opens a Bleve index at indexPath and indexes the
// currently cached cards.
func NewBleveEngine(store *storage.Store, indexPath string) (Searcher, error) {
	var idx bleve.Index
	var err error

	if mkErr := os.MkdirAll(filepath.Dir(indexPath), 0o755); mkErr != nil {
		// Open/Create below will still error and be returned
		_ = mkErr
	}

	idx, err = bleve.Open(indexPath)
	if err != nil {
		idx, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, err
		}
	}

	be := &bleveEngine{store: store, idx: idx}
	if err := be.reindexAll(); err != nil {
		return nil, err
	}
	return be, nil
}

func buildIndexMapping() mapping.IndexMapping {
	im := bleve.NewIndexMapping()
	im.DefaultAnalyzer = standard.Name

	dm := bleve.NewDocumentMapping()

	title := bleve.NewTextFieldMapping()
	title.Analyzer = standard.Name
	title.Store = true
	title.IncludeTermVectors = true

	content := bleve.NewTextFieldMapping()
	content.Analyzer = standard.Name
	content.Store = false

	author := bleve.NewTextFieldMapping()
	author.Analyzer = standard.Name
	author.Store = true

	tags := bleve.NewTextFieldMapping()
	tags.Analyzer = standard.Name
	tags.Store = true

	// Verdict is matched exactly, never tokenized.
	verdict := bleve.NewTextFieldMapping()
	verdict.Analyzer = keyword.Name
	verdict.Store = true

	dm.AddFieldMappingsAt("title", title)
	dm.AddFieldMappingsAt("content", content)
	dm.AddFieldMappingsAt("author", author)
	dm.AddFieldMappingsAt("tags", tags)
	dm.AddFieldMappingsAt("verdict", verdict)

	im.DefaultMapping = dm
	return im
}

func cardDoc(c *card.Card) map[string]any {
	return map[string]any{
		"title":   c.Title,
		"content": c.Content,
		"author":  c.Author,
		"tags":    strings.Join(c.Tags, " "),
		"verdict": string(c.Verdict),
	}
}

func (b *bleveEngine) reindexAll() error {
	cards, err := b.store.GetCards("", 0)
	if err != nil {
		return err
	}

	batch := b.idx.NewBatch()
	for _, c := range cards {
		_ = batch.Index(c.ID, cardDoc(c))
	}
	return b.idx.Batch(batch)
}

func (b *bleveEngine) Search(query string, limit int) ([]*Result, error) {
	if len(strings.TrimSpace(query)) < 2 {
		return []*Result{}, nil
	}

	// OR of per-term matches across fields with boosts, title weighted
	// highest just like the feed view's local search.
	tokens := tokenize(query)
	var qs []bleveQuery.Query
	for _, tok := range tokens {
		qt := bleve.NewMatchQuery(tok)
		qt.SetField("title")
		qt.SetBoost(4.0)
		qs = append(qs, qt)
		qtp := bleve.NewPrefixQuery(strings.ToLower(tok))
		qtp.SetField("title")
		qtp.SetBoost(3.5)
		qs = append(qs, qtp)

		qa := bleve.NewMatchQuery(tok)
		qa.SetField("author")
		qa.SetBoost(2.0)
		qs = append(qs, qa)

		qg := bleve.NewMatchQuery(tok)
		qg.SetField("tags")
		qg.SetBoost(2.0)
		qs = append(qs, qg)

		qc := bleve.NewMatchQuery(tok)
		qc.SetField("content")
		qc.SetBoost(1.0)
		qs = append(qs, qc)
		qcp := bleve.NewPrefixQuery(strings.ToLower(tok))
		qcp.SetField("content")
		qcp.SetBoost(0.8)
		qs = append(qs, qcp)
	}
	if len(qs) == 0 {
		return []*Result{}, nil
	}

	q := bleve.NewDisjunctionQuery(qs...)
	srch := bleve.NewSearchRequestOptions(q, limit, 0, false)
	srch.Fields = []string{"title", "author", "verdict"}
	res, err := b.idx.Search(srch)
	if err != nil {
		return nil, err
	}

	out := make([]*Result, 0, len(res.Hits))
	for _, h := range res.Hits {
		r := &Result{Score: h.Score}
		if full, err := b.store.GetCard(h.ID); err == nil {
			r.Card = full
		} else {
			c := &card.Card{ID: h.ID}
			if t, ok := h.Fields["title"].(string); ok {
				c.Title = t
			}
			if a, ok := h.Fields["author"].(string); ok {
				c.Author = a
			}
			if v, ok := h.Fields["verdict"].(string); ok {
				c.Verdict = card.Verdict(v)
			}
			r.Card = c
		}
		r.Snippet = findBestSnippet(r.Card.Content, tokens, 200)
		out = append(out, r)
	}
	return out, nil
}

// OnCardsCached indexes the given cards.
func (b *bleveEngine) OnCardsCached(cards []*card.Card) {
	batch := b.idx.NewBatch()
	for _, c := range cards {
		_ = batch.Index(c.ID, cardDoc(c))
	}
	_ = b.idx.Batch(batch)
}

// OnCardDeleted removes one card from the index.
func (b *bleveEngine) OnCardDeleted(cardID string) {
	_ = b.idx.Delete(cardID)
}

// DocCount reports total documents in the index.
func (b *bleveEngine) DocCount() (int, error) {
	q := bleve.NewMatchAllQuery()
	req := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := b.idx.Search(req)
	if err != nil {
		return 0, err
	}
	return int(res.Total), nil
}
