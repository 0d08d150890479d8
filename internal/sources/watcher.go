package sources

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/debuglog"
	"github.com/jmherbst/verifeed/internal/storage"
)

const acceptHeader = "application/rss+xml, application/atom+xml, application/xml, text/xml"

// Too-short entries carry no signal worth classifying.
const minTextLength = 10

// Classifier turns raw article text into a classified card. Satisfied by
// the API client.
type Classifier interface {
	PredictText(ctx context.Context, text string) (*card.Card, error)
}

// Watcher polls subscribed news feeds and submits new entries to the
// classifier, caching the resulting cards.
type Watcher struct {
	parser     *gofeed.Parser
	store      *storage.Store
	classifier Classifier
	client     *http.Client
	userAgent  string
	resolvers  *ResolverSet
}

func NewWatcher(store *storage.Store, classifier Classifier, userAgent string, timeout time.Duration) *Watcher {
	return &Watcher{
		parser:     gofeed.NewParser(),
		store:      store,
		classifier: classifier,
		client:     &http.Client{Timeout: timeout},
		userAgent:  userAgent,
		resolvers:  DefaultResolvers(),
	}
}

// AddSource resolves the URL to its feed endpoint, fetches it once to
// validate it and saves it as a watched source.
func (w *Watcher) AddSource(ctx context.Context, rawURL string) (*storage.Source, error) {
	hint := w.resolvers.Resolve(rawURL)

	parsed, err := w.fetchFeed(ctx, hint.FeedURL)
	if err != nil {
		return nil, err
	}

	title := parsed.Title
	if hint.Title != "" {
		title = hint.Title
	}

	src := &storage.Source{
		ID:          sourceID(hint.FeedURL),
		URL:         hint.FeedURL,
		Title:       title,
		Description: parsed.Description,
		AddedAt:     time.Now(),
	}
	if err := w.store.SaveSource(src); err != nil {
		return nil, fmt.Errorf("saving source: %w", err)
	}
	return src, nil
}

// CheckSource fetches one source and classifies entries newer than the last
// check. Returned cards are already cached.
func (w *Watcher) CheckSource(ctx context.Context, src *storage.Source) ([]*card.Card, error) {
	parsed, err := w.fetchFeed(ctx, src.URL)
	if err != nil {
		src.LastError = err.Error()
		_ = w.store.SaveSource(src)
		return nil, err
	}

	since := src.LastChecked
	var cards []*card.Card
	for _, item := range parsed.Items {
		if item.PublishedParsed != nil && !since.IsZero() && !item.PublishedParsed.After(since) {
			continue
		}

		text := entryText(item)
		if len(text) < minTextLength {
			debuglog.Debugf("sources: skipping short entry %q from %s", item.Title, src.URL)
			continue
		}

		c, err := w.classifier.PredictText(ctx, text)
		if err != nil {
			debuglog.Errorf("sources: classifying %q: %v", item.Title, err)
			continue
		}
		c.Source = src.Title
		cards = append(cards, c)
	}

	src.LastChecked = time.Now()
	src.LastError = ""
	if err := w.store.SaveSource(src); err != nil {
		return cards, fmt.Errorf("saving source: %w", err)
	}
	if len(cards) > 0 {
		if err := w.store.SaveCards(cards); err != nil {
			return cards, fmt.Errorf("caching cards: %w", err)
		}
	}
	return cards, nil
}

// CheckAll runs CheckSource over every watched source. Per-source failures
// are logged and do not abort the sweep.
func (w *Watcher) CheckAll(ctx context.Context) ([]*card.Card, error) {
	sources, err := w.store.GetAllSources()
	if err != nil {
		return nil, fmt.Errorf("listing sources: %w", err)
	}

	var all []*card.Card
	for _, src := range sources {
		cards, err := w.CheckSource(ctx, src)
		if err != nil {
			debuglog.Errorf("sources: checking %s: %v", src.URL, err)
			continue
		}
		all = append(all, cards...)
	}
	return all, nil
}

func (w *Watcher) fetchFeed(ctx context.Context, feedURL string) (*gofeed.Feed, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("HTTP error: %d", resp.StatusCode)
	}

	parsed, err := w.parser.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parsing feed: %w", err)
	}
	return parsed, nil
}

// entryText builds the classifier input from a feed item, preferring full
// content over the description.
func entryText(item *gofeed.Item) string {
	body := item.Content
	if body == "" {
		body = item.Description
	}

	text := item.Title
	if body != "" {
		text += ". " + body
	}
	return strings.TrimSpace(stripHTML(text))
}

var tagRegex = regexp.MustCompile(`<[^>]*>`)

func stripHTML(s string) string {
	s = tagRegex.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

func sourceID(feedURL string) string {
	sum := sha1.Sum([]byte(feedURL))
	return hex.EncodeToString(sum[:8])
}
