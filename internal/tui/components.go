package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmherbst/verifeed/internal/card"
	"github.com/jmherbst/verifeed/internal/config"
)

// renderHeader returns a consistently styled header with an optional muted
// subtitle.
func renderHeader(title, subtitle string, width int) string {
	title = truncateEnd(title, width-2)
	subtitle = truncateEnd(subtitle, width-2)
	rows := []string{HeaderStyle.Render(title)}
	if subtitle != "" {
		rows = append(rows, renderMuted(subtitle))
	}
	return lipgloss.JoinVertical(lipgloss.Top, rows...)
}

// renderInputFrame draws a rounded bordered container around a rendered
// input view.
func renderInputFrame(inputView string, focused bool, contentWidth int) string {
	borderColor := MutedColor
	if focused {
		borderColor = AccentColor
	}
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(borderColor).
		Padding(0, 1).
		Width(contentWidth + 4).
		Render(inputView)
}

// renderCentered centers the provided content within the given box.
func renderCentered(width, height int, content string) string {
	return lipgloss.NewStyle().
		Width(width).
		Height(height).
		Align(lipgloss.Center, lipgloss.Center).
		Render(content)
}

func renderMuted(text string) string {
	return lipgloss.NewStyle().Foreground(MutedColor).Render(text)
}

func renderHelp(text string) string {
	return HelpStyle.Render(text)
}

// cardBoxInput bundles everything a card cell render needs beyond the card
// itself.
type cardBoxInput struct {
	Width      int
	Selected   bool
	MediaLine  string
	Liked      bool
	Bookmarked bool
}

// renderCardBox renders one card as a fixed-height grid cell.
func renderCardBox(c *card.Card, in cardBoxInput, cardCfg config.CardConfig) string {
	inner := in.Width - 4 // border and padding
	if inner < 8 {
		inner = 8
	}

	titleLimit := cardCfg.MaxTitleLength
	if titleLimit <= 0 || titleLimit > inner {
		titleLimit = inner
	}
	title := lipgloss.NewStyle().
		Foreground(TextColor).
		Bold(true).
		Render(truncateEnd(c.Title, titleLimit))

	badge := VerdictBadge(string(c.Verdict)) +
		renderMuted(" "+confidencePercent(c.Confidence))

	byline := c.Author
	if !c.CreatedAt.IsZero() {
		byline += " • " + c.CreatedAt.Format("Jan 2, 15:04")
	}
	byline = renderMuted(truncateEnd(byline, inner))

	excerptLimit := cardCfg.MaxExcerptLength
	if excerptLimit <= 0 {
		excerptLimit = inner
	}
	excerpt := truncateEnd(strings.Join(strings.Fields(c.Content), " "), min(excerptLimit, inner))
	excerpt = lipgloss.NewStyle().Foreground(TextColor).Faint(true).Render(excerpt)

	var marks []string
	if in.Liked {
		marks = append(marks, "♥")
	}
	if in.Bookmarked {
		marks = append(marks, "⚑")
	}
	footer := badge
	if len(marks) > 0 {
		footer += "  " + lipgloss.NewStyle().Foreground(PrimaryColor).Render(strings.Join(marks, " "))
	}

	// MediaLine arrives already styled; it is kept short at the source.
	rows := []string{title, byline}
	if in.MediaLine != "" {
		rows = append(rows, in.MediaLine)
	}
	rows = append(rows, excerpt, footer)

	body := lipgloss.JoinVertical(lipgloss.Top, rows...)

	style := CardBorderStyle
	if in.Selected {
		style = SelectedCardBorderStyle
	}

	height := cardCfg.BoxHeight
	if height < 5 {
		height = 5
	}
	return style.
		Width(in.Width - 2).
		Height(height - 2).
		MaxHeight(height).
		Render(body)
}
