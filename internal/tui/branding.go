package tui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/jmherbst/verifeed/internal/config"
)

const AppName = "verifeed"

// ASCII art logo lines for verifeed - canonical definition
var LogoLines = []string{
	"▄   ▄ ▄▄▄▄ ▄▄▄▄  ▄ ▄▄▄▄▄▄ ▄▄▄▄▄▄ ▄▄▄▄▄▄  ",
	"█   █ █    █   █ █ █      █      █    ██ ",
	"█▄ ▄█ █▀▀▀ █▄▄▄▀ █ █▀▀▀▀  █▀▀▀▀  █    ██ ",
	" █▄█  █▄▄▄ █   █ █ █      █▄▄▄▄▄ █▄▄▄▄██ ",
}

const CompactLogo = `verifeed ›`

// Banner gradient colors
var BannerColors = []lipgloss.Color{
	lipgloss.Color("#7C8CF8"),
	lipgloss.Color("#4ECDC4"),
	lipgloss.Color("#10B981"),
	lipgloss.Color("#EF4444"),
	lipgloss.Color("#7C8CF8"),
}

// Brand colors. The REAL/FAKE pair mirrors the verdict badges the card
// service uses on the web.
var (
	PrimaryColor   = lipgloss.Color("#7C8CF8")
	SecondaryColor = lipgloss.Color("#4ECDC4")
	AccentColor    = lipgloss.Color("#95E1D3")

	SurfaceColor = lipgloss.Color("#16213E")
	TextColor    = lipgloss.Color("#EAEAEA")
	MutedColor   = lipgloss.Color("#94A3B8")

	ErrorColor   = lipgloss.Color("#F87171")
	SuccessColor = lipgloss.Color("#10B981")

	RealColor = lipgloss.Color("#10B981")
	FakeColor = lipgloss.Color("#EF4444")
)

// ApplyTheme overrides the brand colors with configured ones.
func ApplyTheme(colors config.UIColors) {
	set := func(dst *lipgloss.Color, v string) {
		if v != "" {
			*dst = lipgloss.Color(v)
		}
	}
	set(&PrimaryColor, colors.Primary)
	set(&SecondaryColor, colors.Secondary)
	set(&AccentColor, colors.Accent)
	set(&SurfaceColor, colors.Surface)
	set(&TextColor, colors.Text)
	set(&MutedColor, colors.Muted)
	set(&ErrorColor, colors.Error)
	set(&RealColor, colors.Real)
	set(&FakeColor, colors.Fake)
	rebuildStyles()
}

// Styled components
var (
	LogoStyle lipgloss.Style

	TitleStyle  lipgloss.Style
	HeaderStyle lipgloss.Style

	StatusBarStyle lipgloss.Style

	HelpStyle lipgloss.Style
	TimeStyle lipgloss.Style

	RealBadgeStyle lipgloss.Style
	FakeBadgeStyle lipgloss.Style

	ErrorMessageStyle lipgloss.Style
	SeparatorStyle    lipgloss.Style

	StatusInfoStyle    lipgloss.Style
	StatusSuccessStyle lipgloss.Style
	StatusWarnStyle    lipgloss.Style
	StatusErrorStyle   lipgloss.Style

	CardBorderStyle         lipgloss.Style
	SelectedCardBorderStyle lipgloss.Style

	EmptyStyle = lipgloss.NewStyle()
)

func rebuildStyles() {
	LogoStyle = lipgloss.NewStyle().Foreground(PrimaryColor).Bold(true)

	TitleStyle = lipgloss.NewStyle().
		Foreground(TextColor).
		Background(SurfaceColor).
		Bold(true).
		Padding(0, 2)

	HeaderStyle = lipgloss.NewStyle().Foreground(SecondaryColor).Bold(true)

	StatusBarStyle = lipgloss.NewStyle().Foreground(MutedColor).Padding(0, 1)

	HelpStyle = lipgloss.NewStyle().Foreground(MutedColor).Italic(true)
	TimeStyle = lipgloss.NewStyle().Foreground(MutedColor).Faint(true)

	RealBadgeStyle = lipgloss.NewStyle().Foreground(RealColor).Bold(true)
	FakeBadgeStyle = lipgloss.NewStyle().Foreground(FakeColor).Bold(true)

	ErrorMessageStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)
	SeparatorStyle = lipgloss.NewStyle().Foreground(MutedColor)

	StatusInfoStyle = lipgloss.NewStyle().Foreground(MutedColor)
	StatusSuccessStyle = lipgloss.NewStyle().Foreground(SuccessColor)
	StatusWarnStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFE66D"))
	StatusErrorStyle = lipgloss.NewStyle().Foreground(ErrorColor).Bold(true)

	CardBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(MutedColor).
		Padding(0, 1)

	SelectedCardBorderStyle = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(AccentColor).
		Padding(0, 1)
}

func init() {
	rebuildStyles()
}

// VerdictBadge renders a colored REAL/FAKE label.
func VerdictBadge(verdict string) string {
	switch verdict {
	case "REAL":
		return RealBadgeStyle.Render("✓ REAL")
	case "FAKE":
		return FakeBadgeStyle.Render("✗ FAKE")
	default:
		return StatusInfoStyle.Render(verdict)
	}
}

func GetWelcomeMessage() string {
	return GetCompactBanner("Fetching cards… press n to analyze your own text")
}

func GetCompactBanner(message string) string {
	var coloredLines []string
	for _, line := range LogoLines {
		coloredLines = append(coloredLines, LogoStyle.Render(line))
	}

	logo := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)

	return lipgloss.JoinVertical(
		lipgloss.Center,
		logo,
		"",
		HelpStyle.Render(message),
	)
}

func ShowBanner(version string) {
	lines := make([]string, len(LogoLines)+1)
	copy(lines, LogoLines)
	lines[len(LogoLines)] = ""

	versionTag := version
	if versionTag != "" && versionTag != "dev" {
		if versionTag[0] != 'v' && versionTag[0] != 'V' {
			versionTag = "v" + versionTag
		}
		lines = append(lines, fmt.Sprintf("    Fake News Feed Client %s", versionTag))
	} else {
		lines = append(lines, "    Fake News Feed Client")
	}

	var coloredLines []string
	for i, line := range lines {
		if line == "" {
			coloredLines = append(coloredLines, line)
			continue
		}

		colorIdx := i % len(BannerColors)
		style := lipgloss.NewStyle().
			Foreground(BannerColors[colorIdx]).
			Bold(i < len(LogoLines))

		coloredLines = append(coloredLines, style.Render(line))
	}

	borderStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(SecondaryColor).
		Padding(1, 3).
		MarginTop(1)

	banner := lipgloss.JoinVertical(lipgloss.Center, coloredLines...)
	output := borderStyle.Render(banner)

	fmt.Println(lipgloss.NewStyle().
		Width(70).
		Align(lipgloss.Center).
		Render(output))
}
