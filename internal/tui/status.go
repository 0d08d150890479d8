package tui

import "fmt"

// Canonical short status messages used across the app.
const (
	MsgFetching       = "Fetching cards…"
	MsgAnalyzing      = "Analyzing…"
	MsgRefreshing     = "Refreshing…"
	MsgLoadingStats   = "Loading stats…"
	MsgNoResults      = "No results"
	MsgNoBookmarks    = "No bookmarks yet"
	MsgEndOfFeed      = "End of feed"

	MsgRemovedFromArchive = "Removed from archive"
	MsgConstrainedOn  = "Data saver on: media loads on demand (m)"
	MsgConstrainedOff = "Data saver off"
)

func MsgCardAdded(verdict string) string {
	return fmt.Sprintf("Analyzed: %s", verdict)
}

func MsgPageLoaded(added, total int) string {
	return fmt.Sprintf("%d new cards • %d total", added, total)
}

func MsgResultsCount(n int) string {
	if n == 1 {
		return "1 result"
	}
	return fmt.Sprintf("%d results", n)
}

func MsgBookmarksCount(n int) string {
	if n == 1 {
		return "1 bookmark"
	}
	return fmt.Sprintf("%d bookmarks", n)
}
