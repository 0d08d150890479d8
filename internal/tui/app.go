package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"github.com/jmherbst/verifeed/internal/api"
	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/config"
	"github.com/jmherbst/verifeed/internal/feed"
	"github.com/jmherbst/verifeed/internal/lazy"
	"github.com/jmherbst/verifeed/internal/layout"
	"github.com/jmherbst/verifeed/internal/media"
	"github.com/jmherbst/verifeed/internal/search"
	"github.com/jmherbst/verifeed/internal/storage"
	"github.com/jmherbst/verifeed/internal/validation"
)

type engagementFlags struct {
	liked      bool
	bookmarked bool
}

type App struct {
	config    *config.Config
	client    *api.Client
	store     *storage.Store
	searcher  search.Searcher
	validator *validation.ArticleURLValidator

	controller   *feed.Controller
	loader       *lazy.Loader
	detector     *lazy.Detector
	opener       *media.Opener
	layoutEngine *layout.Engine
	keyHandler   *KeyHandler

	lazyCh   chan lazy.Update
	layoutCh chan layout.Layout

	visible        []*card.Card
	cursor         int
	rowOffset      int
	engagement     map[string]engagementFlags
	bookmarkedOnly bool

	archiveList  list.Model
	archiveInput textinput.Model
	searchInput  textinput.Model
	urlInput     textinput.Model
	textArea     textarea.Model
	viewport     viewport.Model
	spinner      spinner.Model

	view          View
	previousView  View
	width         int
	height        int
	err           error
	status        string
	statusKind    StatusKind
	stats         *api.Stats
	detail        *card.Card
	detailLoading bool
	constrained   bool

	glamourRenderer *glamour.TermRenderer
	rendererWidth   int
}

// NewApp wires the feed controller, lazy media loader and layout engine
// into one bubbletea model. store and searcher may be nil; caching and
// archive search degrade gracefully without them.
func NewApp(client *api.Client, store *storage.Store, searcher search.Searcher, cfg *config.Config) *App {
	ApplyTheme(cfg.UI.Colors)

	lazyCh := make(chan lazy.Update, 64)
	layoutCh := make(chan layout.Layout, 8)

	fetcher := lazy.NewHTTPFetcher(cfg.Lazy.HTTPTimeout, cfg.Server.UserAgent)
	loader := lazy.NewLoader(fetcher, lazy.Options{
		MaxRetries:  cfg.Lazy.MaxRetries,
		RetryDelay:  cfg.Lazy.RetryDelay,
		Eager:       cfg.Lazy.Eager,
		Constrained: cfg.Lazy.Constrained,
	}, func(u lazy.Update) {
		// Loader state is authoritative; a dropped wakeup only delays a
		// redraw until the next message.
		select {
		case lazyCh <- u:
		default:
		}
	})

	breakpoints := make([]layout.Breakpoint, len(cfg.Layout.Breakpoints))
	for i, bp := range cfg.Layout.Breakpoints {
		breakpoints[i] = layout.Breakpoint{MinWidth: bp.MinWidth, Columns: bp.Columns}
	}
	engine := layout.NewEngine(layout.Config{
		Breakpoints:  breakpoints,
		MinCardWidth: cfg.Layout.MinCardWidth,
		Gap:          cfg.Layout.Gap,
		Debounce:     cfg.Layout.ResizeDebounce,
	}, func(l layout.Layout) {
		select {
		case layoutCh <- l:
		default:
		}
	})

	detector, _ := lazy.NewDetector()

	archiveList := list.New([]list.Item{}, list.NewDefaultDelegate(), 0, 0)
	archiveList.Title = "› archive"
	archiveList.SetShowStatusBar(false)
	archiveList.SetFilteringEnabled(false)
	archiveList.SetShowHelp(false)

	archiveInput := textinput.New()
	archiveInput.Placeholder = "Search cached cards..."

	searchInput := textinput.New()
	searchInput.Placeholder = "Search the feed..."

	urlInput := textinput.New()
	urlInput.Placeholder = "https://example.org/article"

	ta := textarea.New()
	ta.Placeholder = "Paste news text to analyze (at least 10 characters)..."
	ta.CharLimit = 10000

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(AccentColor)

	controller := feed.NewController(feed.NewStore())
	controller.Store().ApplySort(feed.ParseSortKey(cfg.Feed.DefaultSort))

	app := &App{
		config:       cfg,
		client:       client,
		store:        store,
		searcher:     searcher,
		validator:    validation.NewPermissiveArticleURLValidator(),
		controller:   controller,
		loader:       loader,
		detector:     detector,
		opener:       media.NewOpener(),
		layoutEngine: engine,
		lazyCh:       lazyCh,
		layoutCh:     layoutCh,
		engagement:   map[string]engagementFlags{},
		archiveList:  archiveList,
		archiveInput: archiveInput,
		searchInput:  searchInput,
		urlInput:     urlInput,
		textArea:     ta,
		viewport:     viewport.New(0, 0),
		spinner:      sp,
		view:         ViewFeed,
		previousView: ViewFeed,
		constrained:  cfg.Lazy.Constrained,
	}
	app.keyHandler = NewKeyHandler(app, cfg)
	return app
}

func (a *App) getRenderer() (*glamour.TermRenderer, error) {
	wordWrapWidth := (a.width * 9) / 10
	if wordWrapWidth > 120 {
		wordWrapWidth = 120
	}
	if wordWrapWidth < 40 {
		wordWrapWidth = 40
	}
	if a.width < 50 {
		wordWrapWidth = a.width - 4
		if wordWrapWidth < 20 {
			wordWrapWidth = 20
		}
	}

	if a.glamourRenderer == nil || abs(a.rendererWidth-wordWrapWidth) > 10 {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(wordWrapWidth),
		)
		if err != nil {
			return nil, err
		}
		a.glamourRenderer = r
		a.rendererWidth = wordWrapWidth
	}

	return a.glamourRenderer, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.beginFirstPage(),
		waitForLazyUpdate(a.lazyCh),
		waitForLayout(a.layoutCh),
		a.spinner.Tick,
		tea.EnterAltScreen,
	)
}

// beginFirstPage resets the view and kicks off a page-1 fetch. A refetch
// always leaves the local bookmarks view.
func (a *App) beginFirstPage() tea.Cmd {
	a.bookmarkedOnly = false
	req := a.controller.BeginFirstPage()
	a.cursor = 0
	a.rowOffset = 0
	a.syncPlan()
	return a.fetchPage(req)
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.layoutEngine.Resize(msg.Width)

		a.viewport.Width = msg.Width
		a.viewport.Height = msg.Height - 3

		listHeight := msg.Height - 10
		if listHeight < 5 {
			listHeight = 5
		}
		a.archiveList.SetSize(msg.Width, listHeight)

		inputWidth := msg.Width - 8
		if inputWidth < 20 {
			inputWidth = msg.Width - 4
		}
		a.archiveInput.Width = inputWidth
		a.searchInput.Width = inputWidth
		a.urlInput.Width = inputWidth
		a.textArea.SetWidth(inputWidth)
		a.textArea.SetHeight(8)

		a.updateWindow()

	case tea.FocusMsg:
		a.loader.SetDocumentVisible(true)

	case tea.BlurMsg:
		a.loader.SetDocumentVisible(false)

	case tea.KeyMsg:
		return a.keyHandler.HandleKey(msg)

	case spinner.TickMsg:
		if a.controller.State() == feed.StateFetching || a.detailLoading {
			var cmd tea.Cmd
			a.spinner, cmd = a.spinner.Update(msg)
			cmds = append(cmds, cmd)
		} else {
			cmds = append(cmds, a.spinner.Tick)
		}

	case pageFetchedMsg:
		switch a.controller.Complete(msg.req, msg.res, msg.err) {
		case feed.OutcomeApplied:
			a.syncPlan()
			if !a.controller.HasMore() && len(a.visible) > 0 {
				a.setStatus(MsgEndOfFeed, StatusInfo)
			} else {
				a.setStatus(MsgPageLoaded(len(msg.res.Cards), len(a.visible)), StatusInfo)
			}
			if cmd := a.cacheCards(msg.res.Cards); cmd != nil {
				cmds = append(cmds, cmd)
			}
		case feed.OutcomeFailed:
			a.err = a.controller.Err()
		case feed.OutcomeStale:
			// superseded by a newer request, nothing to do
		}

	case cardSubmittedMsg:
		if msg.err != nil {
			a.err = wrapErr("analyzing", msg.err)
		} else {
			a.controller.AddLocalItem(msg.card)
			a.syncPlan()
			a.cursor = 0
			a.rowOffset = 0
			a.updateWindow()
			a.view = ViewFeed
			a.setStatus(MsgCardAdded(string(msg.card.Verdict)), StatusSuccess)
			if cmd := a.cacheCards([]*card.Card{msg.card}); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case engagementLoadedMsg:
		for id, flags := range msg.flags {
			a.engagement[id] = flags
		}

	case engagementToggledMsg:
		if msg.err != nil {
			a.err = wrapErr("saving engagement", msg.err)
		} else {
			flags := a.engagement[msg.id]
			switch msg.action {
			case card.ActionLike:
				flags.liked = msg.active
			case card.ActionBookmark:
				flags.bookmarked = msg.active
			}
			a.engagement[msg.id] = flags
		}

	case statsLoadedMsg:
		if msg.err != nil {
			a.err = wrapErr("loading stats", msg.err)
		} else {
			a.stats = msg.stats
		}

	case archiveResultsMsg:
		if a.view == ViewArchive {
			items := make([]list.Item, len(msg.results))
			for i, r := range msg.results {
				items[i] = r
			}
			a.archiveList.SetItems(items)
			if len(msg.results) == 0 {
				a.setStatus(MsgNoResults, StatusInfo)
			} else {
				a.setStatus(MsgResultsCount(len(msg.results)), StatusInfo)
			}
		}

	case detailRenderedMsg:
		if a.view == ViewDetail && a.detail != nil && a.detail.ID == msg.id {
			if msg.card != nil {
				a.detail = msg.card
			}
			a.viewport.SetContent(msg.content)
			a.viewport.GotoTop()
			a.detailLoading = false
		}

	case bookmarksLoadedMsg:
		if msg.err != nil {
			a.err = wrapErr("loading bookmarks", msg.err)
		} else {
			a.bookmarkedOnly = true
			a.visible = msg.cards
			a.cursor = 0
			a.rowOffset = 0
			a.updateWindow()
			if len(msg.cards) == 0 {
				a.setStatus(MsgNoBookmarks, StatusInfo)
			} else {
				a.setStatus(MsgBookmarksCount(len(msg.cards)), StatusInfo)
			}
			if cmd := a.loadEngagement(msg.cards); cmd != nil {
				cmds = append(cmds, cmd)
			}
		}

	case cardDeletedMsg:
		if a.view == ViewArchive {
			items := a.archiveList.Items()
			kept := make([]list.Item, 0, len(items))
			for _, it := range items {
				if r, ok := it.(archiveResultItem); ok && r.result.Card.ID == msg.id {
					continue
				}
				kept = append(kept, it)
			}
			a.archiveList.SetItems(kept)
			a.setStatus(MsgRemovedFromArchive, StatusInfo)
		}

	case lazyUpdateMsg:
		// The update already mutated loader state; receiving it here just
		// forces a redraw of the media lines.
		cmds = append(cmds, waitForLazyUpdate(a.lazyCh))

	case layoutChangedMsg:
		a.updateWindow()
		cmds = append(cmds, waitForLayout(a.layoutCh))

	case errorMsg:
		a.err = msg.err
	}

	switch a.view {
	case ViewDetail:
		switch msg.(type) {
		case tea.KeyMsg, tea.WindowSizeMsg, tea.MouseMsg:
			var cmd tea.Cmd
			a.viewport, cmd = a.viewport.Update(msg)
			cmds = append(cmds, cmd)
		}
	case ViewArchive:
		var cmd tea.Cmd
		a.archiveList, cmd = a.archiveList.Update(msg)
		cmds = append(cmds, cmd)
	}

	return a, tea.Batch(cmds...)
}

func (a *App) setStatus(msg string, kind StatusKind) {
	a.status = msg
	a.statusKind = kind
	a.err = nil
}

// grid returns the applied layout, deriving one synchronously before the
// first resize flush lands.
func (a *App) grid() layout.Layout {
	l := a.layoutEngine.Current()
	if l.Columns == 0 {
		width := a.width
		if width <= 0 {
			width = 80
		}
		l = a.layoutEngine.Compute(width)
	}
	return l
}

// syncPlan re-derives the visible set, diffs it against the previous one
// and keeps the lazy loader's observation set in step.
func (a *App) syncPlan() {
	// The bookmarks view shows cached cards outside the controller's
	// item set; a settling fetch must not clobber it.
	if a.bookmarkedOnly {
		return
	}
	plan := a.controller.Plan()

	for _, id := range plan.Removed {
		a.loader.Unobserve(id)
	}

	newCards := plan.Appended
	if plan.Full {
		newCards = plan.Visible
	}
	cols := a.grid().Columns
	for _, c := range newCards {
		a.observeCard(c, indexOf(plan.Visible, c.ID) < cols)
	}

	a.visible = plan.Visible
	if a.cursor >= len(a.visible) {
		a.cursor = len(a.visible) - 1
	}
	if a.cursor < 0 {
		a.cursor = 0
	}
	a.updateWindow()
}

func indexOf(cards []*card.Card, id string) int {
	for i, c := range cards {
		if c.ID == id {
			return i
		}
	}
	return -1
}

func (a *App) observeCard(c *card.Card, highPriority bool) {
	if c.ImageURL == "" {
		return
	}
	kind := lazy.KindImage
	if a.detector != nil {
		kind = a.detector.DetectKind(c.ImageURL)
	}
	a.loader.Observe(c.ID, lazy.Resource{
		URL:          c.ImageURL,
		Kind:         kind,
		HighPriority: highPriority,
	})
}

// visibleRows is how many grid rows fit between header and status bar.
func (a *App) visibleRows() int {
	boxHeight := a.config.UI.Card.BoxHeight
	if boxHeight < 5 {
		boxHeight = 5
	}
	rows := (a.height - 5) / boxHeight
	if rows < 1 {
		rows = 1
	}
	return rows
}

// updateWindow scrolls the grid window around the cursor and tells the
// loader which cards are on screen.
func (a *App) updateWindow() {
	cols := a.grid().Columns
	if cols < 1 {
		cols = 1
	}
	rows := a.visibleRows()

	cursorRow := a.cursor / cols
	if cursorRow < a.rowOffset {
		a.rowOffset = cursorRow
	}
	if cursorRow >= a.rowOffset+rows {
		a.rowOffset = cursorRow - rows + 1
	}
	if a.rowOffset < 0 {
		a.rowOffset = 0
	}

	first := a.rowOffset * cols
	last := (a.rowOffset + rows) * cols
	for i, c := range a.visible {
		if c.ImageURL == "" {
			continue
		}
		if i >= first && i < last {
			a.loader.EnterViewport(c.ID)
		} else {
			a.loader.LeaveViewport(c.ID)
		}
	}
}

// moveCursor moves the selection and fires the infinite-scroll sentinel
// when the cursor lands near the end of the loaded items.
func (a *App) moveCursor(delta int) tea.Cmd {
	if len(a.visible) == 0 {
		return nil
	}
	a.cursor += delta
	if a.cursor < 0 {
		a.cursor = 0
	}
	if a.cursor >= len(a.visible) {
		a.cursor = len(a.visible) - 1
	}
	a.updateWindow()

	if !a.bookmarkedOnly && a.controller.NearEnd(a.cursor, len(a.visible), a.config.Feed.SentinelThreshold) {
		if req, ok := a.controller.BeginNextPage(); ok {
			a.setStatus(MsgFetching, StatusInfo)
			return a.fetchPage(req)
		}
	}
	return nil
}

// openExternal hands the card's media, or its source URL when it has no
// media, to the platform opener.
func (a *App) openExternal(c *card.Card) tea.Cmd {
	if c == nil {
		return nil
	}

	target := c.ImageURL
	kind := lazy.KindImage
	if target != "" && a.detector != nil {
		kind = a.detector.DetectKind(target)
	}
	if target == "" && strings.HasPrefix(c.Source, "http") {
		target = c.Source
		kind = lazy.KindIframe
	}
	if target == "" {
		return nil
	}

	return func() tea.Msg {
		if err := a.opener.Open(target, kind); err != nil {
			return errorMsg{err: wrapErr("opening media", err)}
		}
		return nil
	}
}

func (a *App) selectedCard() *card.Card {
	if a.cursor < 0 || a.cursor >= len(a.visible) {
		return nil
	}
	return a.visible[a.cursor]
}

func (a *App) View() string {
	var content string

	switch a.view {
	case ViewFeed:
		content = a.renderFeed()

	case ViewDetail:
		if a.detailLoading {
			content = renderCentered(a.width, a.height-3,
				a.spinner.View()+" "+renderMuted("Loading card…"))
		} else {
			content = a.viewport.View()
		}

	case ViewSubmitText:
		content = renderCentered(a.width, a.height-3,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render("› analyze text"),
				"",
				a.textArea.View(),
				"",
				renderHelp("ctrl+s: analyze • esc: cancel"),
			),
		)

	case ViewSubmitURL:
		content = renderCentered(a.width, a.height-3,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render("› analyze url"),
				"",
				renderInputFrame(a.urlInput.View(), a.urlInput.Focused(), a.urlInput.Width),
				"",
				renderHelp("Press Enter to analyze, Esc to cancel"),
			),
		)

	case ViewSearch:
		subtitle := "Matches title, text and author on the server"
		content = renderCentered(a.width, a.height-3,
			lipgloss.JoinVertical(
				lipgloss.Center,
				TitleStyle.Render("› search feed"),
				"",
				renderInputFrame(a.searchInput.View(), a.searchInput.Focused(), a.searchInput.Width),
				renderMuted(subtitle),
				"",
				renderHelp("Enter: search • Esc: cancel"),
			),
		)

	case ViewArchive:
		content = a.renderArchive()

	case ViewStats:
		content = a.renderStats()
	}

	statusBar := a.renderStatusBar()
	if statusBar != "" {
		separatorWidth := a.width - 2
		if separatorWidth < 0 {
			separatorWidth = 0
		}
		separator := SeparatorStyle.Render("─" + strings.Repeat("─", separatorWidth))
		return lipgloss.JoinVertical(lipgloss.Top, content, separator, statusBar)
	}
	return content
}

func (a *App) renderFeed() string {
	if len(a.visible) == 0 {
		if a.controller.State() == feed.StateFetching {
			return renderCentered(a.width, a.height-3, GetWelcomeMessage())
		}
		msg := "No cards"
		if a.bookmarkedOnly {
			msg = MsgNoBookmarks
		} else if a.controller.Store().Search() != "" || a.controller.Store().Filter() != "" {
			msg = "No cards match the current view"
		}
		return renderCentered(a.width, a.height-3, renderMuted(msg))
	}

	grid := a.grid()
	cols := grid.Columns
	if cols < 1 {
		cols = 1
	}

	header := a.feedHeader()

	rows := a.visibleRows()
	first := a.rowOffset * cols
	last := first + rows*cols
	if last > len(a.visible) {
		last = len(a.visible)
	}

	gap := strings.Repeat(" ", a.config.Layout.Gap)
	var renderedRows []string
	for i := first; i < last; i += cols {
		end := i + cols
		if end > len(a.visible) {
			end = len(a.visible)
		}

		var cells []string
		for j := i; j < end; j++ {
			c := a.visible[j]
			flags := a.engagement[c.ID]
			cells = append(cells, renderCardBox(c, cardBoxInput{
				Width:      grid.CardWidth,
				Selected:   j == a.cursor,
				MediaLine:  a.mediaLine(c),
				Liked:      flags.liked,
				Bookmarked: flags.bookmarked,
			}, a.config.UI.Card))
		}
		renderedRows = append(renderedRows, joinCells(cells, gap))
	}

	return lipgloss.JoinVertical(lipgloss.Top,
		append([]string{header}, renderedRows...)...)
}

func joinCells(cells []string, gap string) string {
	if len(cells) == 0 {
		return ""
	}
	out := cells[0]
	for _, cell := range cells[1:] {
		out = lipgloss.JoinHorizontal(lipgloss.Top, out, gap, cell)
	}
	return out
}

func (a *App) feedHeader() string {
	store := a.controller.Store()

	parts := []string{fmt.Sprintf("%d cards", len(a.visible))}
	if a.bookmarkedOnly {
		parts = append(parts, "bookmarks")
	}
	if f := store.Filter(); f != "" {
		parts = append(parts, "filter: "+string(f))
	}
	parts = append(parts, "sort: "+string(store.Sort()))
	if s := store.Search(); s != "" {
		parts = append(parts, fmt.Sprintf("search: %q", s))
	}
	if a.constrained {
		parts = append(parts, "data saver")
	}

	state := ""
	if a.controller.State() == feed.StateFetching {
		state = " " + a.spinner.View()
	}

	return renderHeader(CompactLogo+state, strings.Join(parts, " • "), a.width)
}

// mediaLine reports the lazy-load state of a card's media as one short
// line inside the card box.
func (a *App) mediaLine(c *card.Card) string {
	if c.ImageURL == "" {
		return ""
	}

	if a.loader.AwaitingManualLoad(c.ID) {
		return StatusWarnStyle.Render("▨ m: load media")
	}

	state, ok := a.loader.State(c.ID)
	if !ok {
		return ""
	}
	switch state {
	case lazy.StateLoading:
		return renderMuted(a.spinner.View() + " loading media")
	case lazy.StateLoaded:
		return StatusSuccessStyle.Render("▣ " + truncateMiddle(c.ImageURL, 30))
	case lazy.StateFailed:
		return StatusErrorStyle.Render("✗ media failed (m: retry)")
	default:
		return renderMuted("▨ media queued")
	}
}

func (a *App) renderArchive() string {
	header := HeaderStyle.Render("› archive search")
	sub := renderMuted("Offline search over cached cards")
	if ds, ok := a.searcher.(search.DebugStatser); ok {
		if n, err := ds.DocCount(); err == nil {
			sub = renderMuted(fmt.Sprintf("Offline search over %d cached cards", n))
		}
	}

	input := renderInputFrame(a.archiveInput.View(), a.archiveInput.Focused(), a.archiveInput.Width)

	helpText := "Type to search • Tab/↓: results • Esc: back"
	if !a.archiveInput.Focused() {
		if len(a.archiveList.Items()) > 0 {
			helpText = "↑↓: navigate • Enter: open • x: remove • Tab: search box • Esc: back"
		} else {
			helpText = "No results • Tab: search box • Esc: back"
		}
	}

	content := lipgloss.JoinVertical(
		lipgloss.Top,
		header,
		sub,
		"",
		input,
		renderMuted(helpText),
		"",
		a.archiveList.View(),
	)

	return EmptyStyle.
		Width(a.width).
		Height(a.height - 3).
		MaxHeight(a.height - 3).
		Render(content)
}

func (a *App) renderStats() string {
	if a.stats == nil {
		return renderCentered(a.width, a.height-3,
			a.spinner.View()+" "+renderMuted(MsgLoadingStats))
	}

	var b strings.Builder
	b.WriteString(HeaderStyle.Render("› stats") + "\n\n")
	b.WriteString(fmt.Sprintf("Total predictions: %d\n\n", a.stats.TotalPredictions))

	for _, verdict := range []string{"REAL", "FAKE"} {
		vs, ok := a.stats.ByVerdict[verdict]
		if !ok {
			continue
		}
		b.WriteString(VerdictBadge(verdict))
		b.WriteString(fmt.Sprintf("  %d cards • avg %s • min %s • max %s\n",
			vs.Count,
			confidencePercent(vs.AvgConfidence),
			confidencePercent(vs.MinConfidence),
			confidencePercent(vs.MaxConfidence)))
	}

	if len(a.stats.TimeBased) > 0 {
		b.WriteString("\n" + HeaderStyle.Render("Activity") + "\n")
		for _, window := range []string{"last_24h", "last_7d", "last_30d"} {
			if n, ok := a.stats.TimeBased[window]; ok {
				b.WriteString(fmt.Sprintf("  %s: %d\n", strings.ReplaceAll(window, "_", " "), n))
			}
		}
	}

	if len(a.stats.TopTags) > 0 {
		b.WriteString("\n" + HeaderStyle.Render("Top tags") + "\n")
		for i, tag := range a.stats.TopTags {
			if i >= 10 {
				break
			}
			b.WriteString(fmt.Sprintf("  %s (%d)\n", tag.Tag, tag.Count))
		}
	}

	b.WriteString("\n" + renderHelp("esc: back"))

	return EmptyStyle.
		Width(a.width).
		Height(a.height - 3).
		Padding(0, 2).
		Render(b.String())
}

func (a *App) renderStatusBar() string {
	if a.err != nil {
		return StatusBarStyle.Width(a.width).Render(
			ErrorMessageStyle.Render(fmt.Sprintf("✗ %v", a.err)) +
				renderMuted("  esc: dismiss"))
	}

	left := ""
	if a.status != "" {
		style := StatusInfoStyle
		switch a.statusKind {
		case StatusSuccess:
			style = StatusSuccessStyle
		case StatusWarn:
			style = StatusWarnStyle
		case StatusError:
			style = StatusErrorStyle
		}
		left = style.Render(a.status) + "  "
	}

	commands := a.keyHandler.GetHelpForCurrentView()
	if left == "" && len(commands) == 0 {
		return ""
	}
	return StatusBarStyle.Width(a.width).Render(left + strings.Join(commands, " • "))
}

type archiveResultItem struct {
	result *search.Result
}

func (i archiveResultItem) Title() string {
	badge := "✓"
	if i.result.Card.Verdict == card.VerdictFake {
		badge = "✗"
	}
	return badge + " " + i.result.Card.Title
}

func (i archiveResultItem) Description() string {
	desc := i.result.Snippet
	if desc == "" {
		desc = truncateEnd(i.result.Card.Content, 50)
	}
	author := i.result.Card.Author
	if author != "" {
		desc += " • " + author
	}
	return renderMuted(truncateEnd(desc, 80))
}

func (i archiveResultItem) FilterValue() string {
	return i.result.Card.Title + " " + i.result.Card.Content
}

type pageFetchedMsg struct {
	req feed.Request
	res feed.PageResult
	err error
}

type cardSubmittedMsg struct {
	card *card.Card
	err  error
}

type archiveResultsMsg struct {
	results []archiveResultItem
}

type statsLoadedMsg struct {
	stats *api.Stats
	err   error
}

type detailRenderedMsg struct {
	id      string
	card    *card.Card
	content string
}

type bookmarksLoadedMsg struct {
	cards []*card.Card
	err   error
}

type cardDeletedMsg struct {
	id string
}

type engagementLoadedMsg struct {
	flags map[string]engagementFlags
}

type engagementToggledMsg struct {
	id     string
	action string
	active bool
	err    error
}

type lazyUpdateMsg struct {
	update lazy.Update
}

type layoutChangedMsg struct {
	layout layout.Layout
}

type errorMsg struct {
	err error
}
