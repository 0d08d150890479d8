package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/feed"
	"github.com/jmherbst/verifeed/internal/lazy"
	"github.com/jmherbst/verifeed/internal/layout"
	"github.com/jmherbst/verifeed/internal/search"
)

// fetchPage runs the page request handed out by the controller. The request
// travels with the response so Complete can detect staleness.
func (a *App) fetchPage(req feed.Request) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		defer cancel()

		res, err := a.client.Fetch(ctx, req, a.config.Feed.PageLimit)
		return pageFetchedMsg{req: req, res: res, err: err}
	}
}

func (a *App) submitText(text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		defer cancel()

		c, err := a.client.PredictText(ctx, text)
		return cardSubmittedMsg{card: c, err: err}
	}
}

func (a *App) analyzeURL(rawURL string) tea.Cmd {
	return func() tea.Msg {
		normalized, err := a.validator.ValidateAndNormalize(rawURL)
		if err != nil {
			return cardSubmittedMsg{err: err}
		}

		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		defer cancel()

		c, err := a.client.AnalyzeURL(ctx, normalized)
		return cardSubmittedMsg{card: c, err: err}
	}
}

func (a *App) loadStats() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		defer cancel()

		stats, err := a.client.FetchStats(ctx)
		return statsLoadedMsg{stats: stats, err: err}
	}
}

// cacheCards persists fetched cards offline and feeds the archive index.
func (a *App) cacheCards(cards []*card.Card) tea.Cmd {
	if a.store == nil || len(cards) == 0 {
		return nil
	}
	return func() tea.Msg {
		if err := retryOperation(func() error { return a.store.SaveCards(cards) }); err != nil {
			return errorMsg{err: wrapErr("caching cards", err)}
		}
		if listener, ok := a.searcher.(search.UpdateListener); ok {
			listener.OnCardsCached(cards)
		}
		return a.loadEngagement(cards)()
	}
}

func (a *App) loadEngagement(cards []*card.Card) tea.Cmd {
	if a.store == nil || len(cards) == 0 {
		return nil
	}
	return func() tea.Msg {
		flags := make(map[string]engagementFlags, len(cards))
		for _, c := range cards {
			liked, bookmarked, err := a.store.Engagement(c.ID)
			if err != nil {
				continue
			}
			if liked || bookmarked {
				flags[c.ID] = engagementFlags{liked: liked, bookmarked: bookmarked}
			}
		}
		return engagementLoadedMsg{flags: flags}
	}
}

func (a *App) toggleEngagement(cardID, action string) tea.Cmd {
	if a.store == nil {
		return nil
	}
	return func() tea.Msg {
		var active bool
		err := retryOperation(func() error {
			var toggleErr error
			active, toggleErr = a.store.ToggleEngagement(cardID, action)
			return toggleErr
		})
		return engagementToggledMsg{id: cardID, action: action, active: active, err: err}
	}
}

func (a *App) performArchiveSearch(query string) tea.Cmd {
	return func() tea.Msg {
		if a.searcher == nil {
			return archiveResultsMsg{}
		}
		results, err := a.searcher.Search(query, 20)
		if err != nil {
			return errorMsg{err: wrapErr("archive search", err)}
		}

		items := make([]archiveResultItem, 0, len(results))
		for _, r := range results {
			items = append(items, archiveResultItem{result: r})
		}
		return archiveResultsMsg{results: items}
	}
}

// loadBookmarks reads the locally bookmarked cards from the cache.
func (a *App) loadBookmarks() tea.Cmd {
	if a.store == nil {
		return nil
	}
	return func() tea.Msg {
		cards, err := a.store.Bookmarked()
		return bookmarksLoadedMsg{cards: cards, err: err}
	}
}

// deleteFromArchive drops a card from the cache and the search index.
func (a *App) deleteFromArchive(id string) tea.Cmd {
	if a.store == nil {
		return nil
	}
	return func() tea.Msg {
		if err := retryOperation(func() error { return a.store.DeleteCard(id) }); err != nil {
			return errorMsg{err: wrapErr("removing card", err)}
		}
		if listener, ok := a.searcher.(search.DeleteListener); ok {
			listener.OnCardDeleted(id)
		}
		return cardDeletedMsg{id: id}
	}
}

// renderDetail fetches the card's untruncated body and renders it as
// markdown through glamour. List pages carry a shortened excerpt; only
// the detail endpoint returns the full text. When the fetch fails the
// excerpt renders instead.
func (a *App) renderDetail(c *card.Card) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), a.config.Server.HTTPTimeout)
		full, err := a.client.GetCard(ctx, c.ID)
		cancel()
		if err != nil || full == nil {
			full = c
		}

		var content strings.Builder
		content.WriteString(fmt.Sprintf("# %s\n\n", full.Title))
		content.WriteString(fmt.Sprintf("**%s** • %s confidence\n\n", full.Verdict, confidencePercent(full.Confidence)))
		if full.Author != "" {
			content.WriteString(fmt.Sprintf("*by %s", full.Author))
			if !full.CreatedAt.IsZero() {
				content.WriteString(" • " + full.CreatedAt.Format(time.RFC1123))
			}
			content.WriteString("*\n\n")
		}

		var facts []string
		if full.Source != "" {
			facts = append(facts, "source: "+full.Source)
		}
		if full.Category != "" {
			facts = append(facts, "category: "+full.Category)
		}
		if full.WordCount > 0 {
			facts = append(facts, fmt.Sprintf("%d words", full.WordCount))
		}
		if len(full.Tags) > 0 {
			facts = append(facts, "tags: "+strings.Join(full.Tags, ", "))
		}
		if len(facts) > 0 {
			content.WriteString("`" + strings.Join(facts, "` `") + "`\n\n")
		}

		if full.ImageURL != "" {
			content.WriteString(fmt.Sprintf("[Image](%s)\n\n", full.ImageURL))
		}

		content.WriteString("---\n\n")
		content.WriteString(full.Content)

		r, err := a.getRenderer()
		if err != nil {
			return detailRenderedMsg{id: c.ID, card: full, content: "Error initializing renderer: " + err.Error()}
		}

		rendered, err := r.Render(content.String())
		if err != nil {
			return detailRenderedMsg{id: c.ID, card: full, content: fmt.Sprintf("# Error\n\nFailed to render card: %s", err.Error())}
		}
		return detailRenderedMsg{id: c.ID, card: full, content: rendered}
	}
}

// waitForLazyUpdate blocks on the loader's update channel and re-arms
// itself after every message.
func waitForLazyUpdate(ch chan lazy.Update) tea.Cmd {
	return func() tea.Msg {
		return lazyUpdateMsg{update: <-ch}
	}
}

// waitForLayout blocks on the layout engine's change channel.
func waitForLayout(ch chan layout.Layout) tea.Cmd {
	return func() tea.Msg {
		return layoutChangedMsg{layout: <-ch}
	}
}

// retryOperation retries a database operation up to 3 times with
// exponential backoff.
func retryOperation(operation func() error) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var lastErr error
	for i := 0; i < maxRetries; i++ {
		if err := operation(); err != nil {
			lastErr = err
			if i < maxRetries-1 {
				delay := baseDelay * time.Duration(1<<i)
				time.Sleep(delay)
				continue
			}
		} else {
			return nil
		}
	}
	return lastErr
}
