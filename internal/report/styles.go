package report

import "github.com/charmbracelet/lipgloss"

var (
	// Colors
	colorGreen  = lipgloss.Color("#22c55e")
	colorRed    = lipgloss.Color("#ef4444")
	colorYellow = lipgloss.Color("#eab308")
	colorBlue   = lipgloss.Color("#3b82f6")
	colorDim    = lipgloss.Color("#6b7280")
	colorWhite  = lipgloss.Color("#f9fafb")
)

type styles struct {
	title   lipgloss.Style
	section lipgloss.Style
	key     lipgloss.Style
	ok      lipgloss.Style
	warn    lipgloss.Style
	failed  lipgloss.Style
	dim     lipgloss.Style
	box     lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		plain := lipgloss.NewStyle()
		return styles{
			title: plain, section: plain, key: plain, ok: plain,
			warn: plain, failed: plain, dim: plain, box: plain,
		}
	}
	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorWhite),
		section: lipgloss.NewStyle().
			Bold(true).
			Foreground(colorBlue).
			MarginTop(1),
		key: lipgloss.NewStyle().
			Foreground(colorDim),
		ok: lipgloss.NewStyle().
			Foreground(colorGreen),
		warn: lipgloss.NewStyle().
			Foreground(colorYellow),
		failed: lipgloss.NewStyle().
			Foreground(colorRed),
		dim: lipgloss.NewStyle().
			Foreground(colorDim),
		box: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(colorBlue).
			Padding(0, 1),
	}
}

const (
	checkMark = "[OK]"
	crossMark = "[!!]"
	warnMark  = "[??]"
)
