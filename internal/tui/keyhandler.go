package tui

import (
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/config"
	"github.com/jmherbst/verifeed/internal/feed"
)

// KeyHandler routes key presses based on the active view.
type KeyHandler struct {
	app  *App
	keys config.KeyConfig
}

func NewKeyHandler(app *App, cfg *config.Config) *KeyHandler {
	return &KeyHandler{app: app, keys: cfg.Keys}
}

func (h *KeyHandler) HandleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app

	if msg.String() == "ctrl+c" {
		return a, tea.Quit
	}

	switch a.view {
	case ViewFeed:
		return h.handleFeedKeys(msg)
	case ViewDetail:
		return h.handleDetailKeys(msg)
	case ViewSubmitText:
		return h.handleSubmitTextKeys(msg)
	case ViewSubmitURL:
		return h.handleSubmitURLKeys(msg)
	case ViewSearch:
		return h.handleSearchKeys(msg)
	case ViewArchive:
		return h.handleArchiveKeys(msg)
	case ViewStats:
		return h.handleStatsKeys(msg)
	}

	return a, nil
}

func (h *KeyHandler) handleFeedKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app
	cols := a.grid().Columns
	if cols < 1 {
		cols = 1
	}

	switch msg.String() {
	case h.keys.Quit:
		return a, tea.Quit

	case h.keys.Back:
		if a.err != nil {
			a.err = nil
			a.controller.ClearError()
			return a, nil
		}
		if a.bookmarkedOnly {
			h.leaveBookmarks()
			return a, nil
		}
		if a.controller.Store().Search() != "" {
			a.controller.Store().ApplySearch("")
			return a, a.beginFirstPage()
		}
		return a, nil

	case "up", "k":
		return a, a.moveCursor(-cols)
	case "down", "j":
		return a, a.moveCursor(cols)
	case "left", "h":
		return a, a.moveCursor(-1)
	case "right":
		return a, a.moveCursor(1)
	case "l":
		// "l" is vim-right unless it is bound to like
		if h.keys.Like == "l" {
			return h.toggleSelected(card.ActionLike)
		}
		return a, a.moveCursor(1)
	case "pgup":
		return a, a.moveCursor(-cols * a.visibleRows())
	case "pgdown":
		return a, a.moveCursor(cols * a.visibleRows())
	case "home", "g":
		return a, a.moveCursor(-len(a.visible))
	case "end", "G":
		return a, a.moveCursor(len(a.visible))

	case "enter":
		return h.openDetail(a.selectedCard())

	case h.keys.Submit:
		a.previousView = a.view
		a.view = ViewSubmitText
		a.textArea.Reset()
		a.textArea.Focus()
		return a, nil

	case "u":
		a.previousView = a.view
		a.view = ViewSubmitURL
		a.urlInput.Reset()
		a.urlInput.Focus()
		return a, nil

	case h.keys.Refresh:
		a.setStatus(MsgRefreshing, StatusInfo)
		return a, a.beginFirstPage()

	case h.keys.CycleFilter:
		h.cycleFilter()
		return a, a.beginFirstPage()

	case h.keys.CycleSort:
		h.cycleSort()
		return a, a.beginFirstPage()

	case h.keys.Search:
		a.previousView = a.view
		a.view = ViewSearch
		a.searchInput.SetValue(a.controller.Store().Search())
		a.searchInput.CursorEnd()
		a.searchInput.Focus()
		return a, nil

	case h.keys.ArchiveSearch:
		a.previousView = a.view
		a.view = ViewArchive
		a.archiveInput.Focus()
		a.archiveList.ResetSelected()
		return a, nil

	case h.keys.Stats:
		a.previousView = a.view
		a.view = ViewStats
		a.stats = nil
		return a, a.loadStats()

	case h.keys.Like:
		return h.toggleSelected(card.ActionLike)

	case h.keys.Bookmark:
		return h.toggleSelected(card.ActionBookmark)

	case "B":
		if a.bookmarkedOnly {
			h.leaveBookmarks()
			return a, nil
		}
		if a.store == nil {
			a.setStatus("Bookmarks need the local cache", StatusWarn)
			return a, nil
		}
		return a, a.loadBookmarks()

	case h.keys.LoadMedia:
		if c := a.selectedCard(); c != nil && c.ImageURL != "" {
			a.loader.RetryManually(c.ID)
		}
		return a, nil

	case "o":
		return a, a.openExternal(a.selectedCard())

	case "c":
		a.constrained = !a.constrained
		a.loader.SetConstrained(a.constrained)
		if a.constrained {
			a.setStatus(MsgConstrainedOn, StatusWarn)
		} else {
			a.setStatus(MsgConstrainedOff, StatusInfo)
		}
		return a, nil
	}

	return a, nil
}

// leaveBookmarks restores the live feed the controller already holds.
func (h *KeyHandler) leaveBookmarks() {
	a := h.app
	a.bookmarkedOnly = false
	a.cursor = 0
	a.rowOffset = 0
	a.syncPlan()
}

func (h *KeyHandler) openDetail(c *card.Card) (tea.Model, tea.Cmd) {
	a := h.app
	if c == nil {
		return a, nil
	}
	a.previousView = a.view
	a.view = ViewDetail
	a.detail = c
	a.detailLoading = true
	a.viewport.Width = a.width
	a.viewport.Height = a.height - 3
	return a, a.renderDetail(c)
}

func (h *KeyHandler) toggleSelected(action string) (tea.Model, tea.Cmd) {
	a := h.app
	c := a.selectedCard()
	if a.view == ViewDetail {
		c = a.detail
	}
	if c == nil {
		return a, nil
	}
	return a, a.toggleEngagement(c.ID, action)
}

// cycleFilter rotates all -> REAL -> FAKE -> all.
func (h *KeyHandler) cycleFilter() {
	store := h.app.controller.Store()
	switch store.Filter() {
	case "":
		store.ApplyFilter(card.VerdictReal)
	case card.VerdictReal:
		store.ApplyFilter(card.VerdictFake)
	default:
		store.ApplyFilter("")
	}
}

// cycleSort rotates time -> confidence -> author.
func (h *KeyHandler) cycleSort() {
	store := h.app.controller.Store()
	switch store.Sort() {
	case feed.SortByTime:
		store.ApplySort(feed.SortByConfidence)
	case feed.SortByConfidence:
		store.ApplySort(feed.SortByAuthor)
	default:
		store.ApplySort(feed.SortByTime)
	}
}

func (h *KeyHandler) handleDetailKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app

	switch msg.String() {
	case h.keys.Quit:
		return a, tea.Quit
	case h.keys.Back, "backspace":
		return h.navigateBack()
	case h.keys.Like:
		return h.toggleSelected(card.ActionLike)
	case h.keys.Bookmark:
		return h.toggleSelected(card.ActionBookmark)
	case "o":
		return a, a.openExternal(a.detail)
	}

	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (h *KeyHandler) handleSubmitTextKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app

	switch msg.String() {
	case h.keys.Back:
		a.textArea.Blur()
		return h.navigateBack()
	case "ctrl+s":
		text := strings.TrimSpace(a.textArea.Value())
		if len(text) < 10 {
			a.setStatus("Need at least 10 characters", StatusWarn)
			return a, nil
		}
		a.textArea.Blur()
		a.setStatus(MsgAnalyzing, StatusInfo)
		return a, a.submitText(text)
	}

	var cmd tea.Cmd
	a.textArea, cmd = a.textArea.Update(msg)
	return a, cmd
}

func (h *KeyHandler) handleSubmitURLKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app

	switch msg.String() {
	case h.keys.Back:
		a.urlInput.Blur()
		return h.navigateBack()
	case "enter":
		rawURL := strings.TrimSpace(a.urlInput.Value())
		if rawURL == "" {
			return a, nil
		}
		a.urlInput.Blur()
		a.setStatus(MsgAnalyzing, StatusInfo)
		return a, a.analyzeURL(rawURL)
	}

	var cmd tea.Cmd
	a.urlInput, cmd = a.urlInput.Update(msg)
	return a, cmd
}

func (h *KeyHandler) handleSearchKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app

	switch msg.String() {
	case h.keys.Back:
		a.searchInput.Blur()
		return h.navigateBack()
	case "enter":
		query := strings.TrimSpace(a.searchInput.Value())
		a.searchInput.Blur()
		a.controller.Store().ApplySearch(query)
		a.view = ViewFeed
		if query != "" {
			a.setStatus(MsgFetching, StatusInfo)
		}
		return a, a.beginFirstPage()
	}

	var cmd tea.Cmd
	a.searchInput, cmd = a.searchInput.Update(msg)
	return a, cmd
}

func (h *KeyHandler) handleArchiveKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app

	switch msg.String() {
	case h.keys.Back:
		a.archiveInput.Blur()
		a.archiveInput.Reset()
		a.archiveList.SetItems(nil)
		return h.navigateBack()

	case "tab":
		if a.archiveInput.Focused() {
			a.archiveInput.Blur()
		} else {
			a.archiveInput.Focus()
		}
		return a, nil

	case "down":
		if a.archiveInput.Focused() && len(a.archiveList.Items()) > 0 {
			a.archiveInput.Blur()
			return a, nil
		}

	case "enter":
		if !a.archiveInput.Focused() {
			if item, ok := a.archiveList.SelectedItem().(archiveResultItem); ok {
				return h.openDetail(item.result.Card)
			}
			return a, nil
		}
		if len(a.archiveList.Items()) > 0 {
			a.archiveInput.Blur()
		}
		return a, nil

	case "x":
		// With the input focused "x" is just a typed character
		if !a.archiveInput.Focused() {
			if item, ok := a.archiveList.SelectedItem().(archiveResultItem); ok {
				return a, a.deleteFromArchive(item.result.Card.ID)
			}
			return a, nil
		}
	}

	if a.archiveInput.Focused() {
		var cmd tea.Cmd
		a.archiveInput, cmd = a.archiveInput.Update(msg)
		cmds := []tea.Cmd{cmd}

		query := strings.TrimSpace(a.archiveInput.Value())
		if len(query) >= 2 {
			cmds = append(cmds, a.performArchiveSearch(query))
		} else {
			a.archiveList.SetItems(nil)
		}
		return a, tea.Batch(cmds...)
	}

	var cmd tea.Cmd
	a.archiveList, cmd = a.archiveList.Update(msg)
	return a, cmd
}

func (h *KeyHandler) handleStatsKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	a := h.app

	switch msg.String() {
	case h.keys.Quit:
		return a, tea.Quit
	case h.keys.Back, "backspace":
		return h.navigateBack()
	}
	return a, nil
}

func (h *KeyHandler) navigateBack() (tea.Model, tea.Cmd) {
	a := h.app
	a.err = nil

	switch a.view {
	case ViewDetail:
		a.detail = nil
		a.view = a.previousView
		if a.view == ViewDetail {
			a.view = ViewFeed
		}
	default:
		a.view = ViewFeed
	}
	a.previousView = ViewFeed
	return a, nil
}

// GetHelpForCurrentView returns the status-bar shortcut hints.
func (h *KeyHandler) GetHelpForCurrentView() []string {
	k := h.keys
	switch h.app.view {
	case ViewFeed:
		return []string{
			"↑↓←→: move",
			"enter: open",
			k.Submit + ": text",
			"u: url",
			k.Search + ": search",
			k.ArchiveSearch + ": archive",
			"B: bookmarks",
			k.CycleFilter + ": filter",
			k.CycleSort + ": sort",
			k.Stats + ": stats",
			k.Quit + ": quit",
		}
	case ViewDetail:
		return []string{
			"↑↓: scroll",
			k.Like + ": like",
			k.Bookmark + ": bookmark",
			"o: open media",
			k.Back + ": back",
		}
	case ViewSubmitText:
		return []string{"ctrl+s: analyze", k.Back + ": cancel"}
	case ViewSubmitURL:
		return []string{"enter: analyze", k.Back + ": cancel"}
	case ViewSearch:
		return []string{"enter: search", k.Back + ": cancel"}
	case ViewArchive:
		return nil
	case ViewStats:
		return []string{k.Back + ": back"}
	}
	return nil
}
