package tui

import (
	"path/filepath"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jmherbst/verifeed/internal/api"
	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/config"
	"github.com/jmherbst/verifeed/internal/feed"
	"github.com/jmherbst/verifeed/internal/search"
	"github.com/jmherbst/verifeed/internal/storage"
)

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		return tea.KeyMsg{Type: tea.KeyTab}
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	case "ctrl+s":
		return tea.KeyMsg{Type: tea.KeyCtrlS}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func press(app *App, key string) (*App, tea.Cmd) {
	model, cmd := app.Update(keyMsg(key))
	return model.(*App), cmd
}

func typeText(app *App, text string) *App {
	for _, r := range text {
		model, _ := app.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
		app = model.(*App)
	}
	return app
}

// newCachedApp builds an app backed by a real on-disk cache with the
// given cards already saved.
func newCachedApp(t *testing.T, cards []*card.Card) (*App, *storage.Store) {
	t.Helper()
	st, err := storage.NewStore(filepath.Join(t.TempDir(), "cache.db"))
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	if err := st.SaveCards(cards); err != nil {
		t.Fatalf("caching cards: %v", err)
	}

	cfg := config.TestConfig()
	app := NewApp(api.NewClient(cfg), st, search.NewEngine(st), cfg)
	model, _ := app.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return model.(*App), st
}

func cardIDs(cards []*card.Card) []string {
	ids := make([]string, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	return ids
}

func TestBookmarksKeyShowsBookmarkedOnly(t *testing.T) {
	cards := makeCards("p1", 4)
	app, st := newCachedApp(t, cards)
	applyPage(t, app, cards, false)

	if _, err := st.ToggleEngagement("p1-2", card.ActionBookmark); err != nil {
		t.Fatalf("bookmarking: %v", err)
	}

	app, cmd := press(app, "B")
	if cmd == nil {
		t.Fatal("expected a bookmarks load command")
	}
	model, _ := app.Update(cmd())
	app = model.(*App)

	if !app.bookmarkedOnly {
		t.Fatal("expected the bookmarks view to be active")
	}
	if len(app.visible) != 1 || app.visible[0].ID != "p1-2" {
		t.Fatalf("visible = %v, want just p1-2", cardIDs(app.visible))
	}

	// Toggling again restores the live feed
	app, _ = press(app, "B")
	if app.bookmarkedOnly {
		t.Fatal("expected the bookmarks view to be off")
	}
	if len(app.visible) != 4 {
		t.Fatalf("visible = %d cards, want 4", len(app.visible))
	}
}

func TestBookmarksViewSurvivesSettlingFetch(t *testing.T) {
	cards := makeCards("p1", 3)
	app, st := newCachedApp(t, cards)
	applyPage(t, app, cards, false)

	if _, err := st.ToggleEngagement("p1-1", card.ActionBookmark); err != nil {
		t.Fatalf("bookmarking: %v", err)
	}
	app, cmd := press(app, "B")
	model, _ := app.Update(cmd())
	app = model.(*App)

	// A late page application must not clobber the bookmarks view
	app.syncPlan()
	if len(app.visible) != 1 {
		t.Fatalf("visible = %d cards, want 1", len(app.visible))
	}
}

func TestBookmarksKeyWithoutStoreWarns(t *testing.T) {
	app := newTestApp(t)
	applyPage(t, app, makeCards("p1", 2), false)

	app, cmd := press(app, "B")
	if cmd != nil {
		t.Fatal("expected no command without a cache")
	}
	if app.statusKind != StatusWarn {
		t.Fatalf("statusKind = %v, want warn", app.statusKind)
	}
}

func TestArchiveDeleteRemovesCachedCard(t *testing.T) {
	cards := makeCards("p1", 2)
	app, st := newCachedApp(t, cards)

	app.view = ViewArchive
	model, _ := app.Update(archiveResultsMsg{results: []archiveResultItem{
		{result: &search.Result{Card: cards[0]}},
		{result: &search.Result{Card: cards[1]}},
	}})
	app = model.(*App)

	app, cmd := press(app, "x")
	if cmd == nil {
		t.Fatal("expected a delete command")
	}
	msg := cmd()
	if _, ok := msg.(cardDeletedMsg); !ok {
		t.Fatalf("unexpected message %T", msg)
	}
	if _, err := st.GetCard("p1-0"); err == nil {
		t.Fatal("expected p1-0 to be gone from the cache")
	}

	model, _ = app.Update(msg)
	app = model.(*App)
	if got := len(app.archiveList.Items()); got != 1 {
		t.Fatalf("archive items = %d, want 1", got)
	}
	if app.status != MsgRemovedFromArchive {
		t.Fatalf("status = %q, want %q", app.status, MsgRemovedFromArchive)
	}
}

func TestQuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c"} {
		app := newTestApp(t)
		_, cmd := press(app, key)
		if cmd == nil {
			t.Fatalf("key %q produced no command", key)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Fatalf("key %q did not quit", key)
		}
	}
}

func TestSubmitTextViewTransition(t *testing.T) {
	app := newTestApp(t)

	app, _ = press(app, "n")
	if app.view != ViewSubmitText {
		t.Fatalf("view = %v, want ViewSubmitText", app.view)
	}
	if !app.textArea.Focused() {
		t.Fatal("textarea should be focused")
	}

	app, _ = press(app, "esc")
	if app.view != ViewFeed {
		t.Fatalf("view after esc = %v, want ViewFeed", app.view)
	}
}

func TestSubmitTextRequiresMinimumLength(t *testing.T) {
	app := newTestApp(t)
	app, _ = press(app, "n")
	app = typeText(app, "short")

	app, cmd := press(app, "ctrl+s")
	if cmd != nil {
		t.Fatal("short text should not be submitted")
	}
	if app.view != ViewSubmitText {
		t.Fatalf("view = %v, want ViewSubmitText", app.view)
	}
	if app.statusKind != StatusWarn {
		t.Fatalf("statusKind = %v, want warn", app.statusKind)
	}
}

func TestSubmitTextAnalyze(t *testing.T) {
	app := newTestApp(t)
	app, _ = press(app, "n")
	app = typeText(app, "this is a long enough piece of text to analyze")

	app, cmd := press(app, "ctrl+s")
	if cmd == nil {
		t.Fatal("expected an analyze command")
	}
	if app.status != MsgAnalyzing {
		t.Fatalf("status = %q, want %q", app.status, MsgAnalyzing)
	}
}

func TestSubmitURLViewTransition(t *testing.T) {
	app := newTestApp(t)

	app, _ = press(app, "u")
	if app.view != ViewSubmitURL {
		t.Fatalf("view = %v, want ViewSubmitURL", app.view)
	}

	app = typeText(app, "https://example.org/story")
	app, cmd := press(app, "enter")
	if cmd == nil {
		t.Fatal("expected an analyze command")
	}
	if app.urlInput.Focused() {
		t.Fatal("input should be blurred while analyzing")
	}
}

func TestSearchSubmitAppliesQueryAndRefetches(t *testing.T) {
	app := newTestApp(t)

	app, _ = press(app, "/")
	if app.view != ViewSearch {
		t.Fatalf("view = %v, want ViewSearch", app.view)
	}

	app = typeText(app, "climate")
	app, cmd := press(app, "enter")

	if app.view != ViewFeed {
		t.Fatalf("view = %v, want ViewFeed", app.view)
	}
	if got := app.controller.Store().Search(); got != "climate" {
		t.Fatalf("search = %q, want climate", got)
	}
	if cmd == nil {
		t.Fatal("expected a refetch command")
	}
	if app.controller.State() != feed.StateFetching {
		t.Fatalf("state = %v, want fetching", app.controller.State())
	}
}

func TestEscClearsActiveSearch(t *testing.T) {
	app := newTestApp(t)
	app.controller.Store().ApplySearch("climate")

	app, cmd := press(app, "esc")
	if got := app.controller.Store().Search(); got != "" {
		t.Fatalf("search = %q, want empty", got)
	}
	if cmd == nil {
		t.Fatal("clearing the search should refetch")
	}
}

func TestCycleFilter(t *testing.T) {
	app := newTestApp(t)
	store := app.controller.Store()

	app, cmd := press(app, "f")
	if store.Filter() != card.VerdictReal {
		t.Fatalf("filter = %q, want REAL", store.Filter())
	}
	if cmd == nil {
		t.Fatal("filter change should refetch")
	}

	app, _ = press(app, "f")
	if store.Filter() != card.VerdictFake {
		t.Fatalf("filter = %q, want FAKE", store.Filter())
	}

	app, _ = press(app, "f")
	if store.Filter() != "" {
		t.Fatalf("filter = %q, want empty", store.Filter())
	}
}

func TestCycleSort(t *testing.T) {
	app := newTestApp(t)
	store := app.controller.Store()

	app, _ = press(app, "s")
	if store.Sort() != feed.SortByConfidence {
		t.Fatalf("sort = %q, want confidence", store.Sort())
	}

	app, _ = press(app, "s")
	if store.Sort() != feed.SortByAuthor {
		t.Fatalf("sort = %q, want author", store.Sort())
	}

	app, _ = press(app, "s")
	if store.Sort() != feed.SortByTime {
		t.Fatalf("sort = %q, want time", store.Sort())
	}
}

func TestCursorKeysMoveSelection(t *testing.T) {
	app := newTestApp(t)
	applyPage(t, app, makeCards("p1", 9), false)

	app, _ = press(app, "right")
	if app.cursor != 1 {
		t.Fatalf("cursor after right = %d, want 1", app.cursor)
	}

	cols := app.grid().Columns
	app, _ = press(app, "down")
	if app.cursor != 1+cols {
		t.Fatalf("cursor after down = %d, want %d", app.cursor, 1+cols)
	}

	app, _ = press(app, "up")
	if app.cursor != 1 {
		t.Fatalf("cursor after up = %d, want 1", app.cursor)
	}

	app, _ = press(app, "left")
	if app.cursor != 0 {
		t.Fatalf("cursor after left = %d, want 0", app.cursor)
	}
}

func TestEnterOpensDetail(t *testing.T) {
	app := newTestApp(t)
	applyPage(t, app, makeCards("p1", 3), false)

	app, cmd := press(app, "enter")
	if app.view != ViewDetail {
		t.Fatalf("view = %v, want ViewDetail", app.view)
	}
	if app.detail == nil || app.detail.ID != "p1-0" {
		t.Fatal("detail should hold the selected card")
	}
	if !app.detailLoading {
		t.Fatal("detail should be loading until rendered")
	}
	if cmd == nil {
		t.Fatal("expected a render command")
	}

	app, _ = press(app, "esc")
	if app.view != ViewFeed {
		t.Fatalf("view after esc = %v, want ViewFeed", app.view)
	}
	if app.detail != nil {
		t.Fatal("detail should be cleared on back")
	}
}

func TestEnterOnEmptyFeedDoesNothing(t *testing.T) {
	app := newTestApp(t)

	app, cmd := press(app, "enter")
	if app.view != ViewFeed || cmd != nil {
		t.Fatal("empty feed should ignore enter")
	}
}

func TestStatsViewTransition(t *testing.T) {
	app := newTestApp(t)

	app, cmd := press(app, "t")
	if app.view != ViewStats {
		t.Fatalf("view = %v, want ViewStats", app.view)
	}
	if cmd == nil {
		t.Fatal("expected a stats load command")
	}

	app, _ = press(app, "esc")
	if app.view != ViewFeed {
		t.Fatalf("view after esc = %v, want ViewFeed", app.view)
	}
}

func TestArchiveViewTransitionAndBack(t *testing.T) {
	app := newTestApp(t)

	app, _ = press(app, "a")
	if app.view != ViewArchive {
		t.Fatalf("view = %v, want ViewArchive", app.view)
	}
	if !app.archiveInput.Focused() {
		t.Fatal("archive input should be focused")
	}

	app, _ = press(app, "tab")
	if app.archiveInput.Focused() {
		t.Fatal("tab should move focus to the result list")
	}

	app, _ = press(app, "esc")
	if app.view != ViewFeed {
		t.Fatalf("view after esc = %v, want ViewFeed", app.view)
	}
}

func TestDataSaverToggle(t *testing.T) {
	app := newTestApp(t)

	app, _ = press(app, "c")
	if !app.constrained {
		t.Fatal("expected data saver on")
	}
	if app.status != MsgConstrainedOn {
		t.Fatalf("status = %q, want %q", app.status, MsgConstrainedOn)
	}

	app, _ = press(app, "c")
	if app.constrained {
		t.Fatal("expected data saver off")
	}
}

func TestLikeWithoutStoreIsNoop(t *testing.T) {
	app := newTestApp(t)
	applyPage(t, app, makeCards("p1", 1), false)

	_, cmd := press(app, "l")
	if cmd != nil {
		t.Fatal("like without a store should be a no-op")
	}
}

func TestHelpVariesByView(t *testing.T) {
	app := newTestApp(t)

	feedHelp := app.keyHandler.GetHelpForCurrentView()
	if len(feedHelp) == 0 {
		t.Fatal("feed view should advertise shortcuts")
	}

	app.view = ViewSubmitText
	textHelp := app.keyHandler.GetHelpForCurrentView()
	if len(textHelp) == 0 || textHelp[0] == feedHelp[0] {
		t.Fatal("submit view help should differ from feed help")
	}
}
