package theme

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/review"
)

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorBlue   = lipgloss.AdaptiveColor{Dark: "#5B9BD5", Light: "#2B6CB0"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// LineStyles styles the columns of one message line.
type LineStyles struct {
	Base        lipgloss.Style
	Date        lipgloss.Style
	From        lipgloss.Style
	Subject     lipgloss.Style
	SubjectSeen lipgloss.Style
	Flag        lipgloss.Style
}

// SubjectFor picks the subject style for the seen state.
func (l LineStyles) SubjectFor(seen bool) lipgloss.Style {
	if seen {
		return l.SubjectSeen
	}
	return l.Subject
}

// Styles is the full set of styles used by the display.
type Styles struct {
	// Header is used for the title bar.
	Header lipgloss.Style

	// StatusBar is used for the bottom status bar.
	StatusBar lipgloss.Style

	// Panel wraps overlays such as the help view.
	Panel lipgloss.Style

	// Help is used for keyboard shortcut hints.
	Help lipgloss.Style

	Account lipgloss.Style
	Info    lipgloss.Style
	Error   lipgloss.Style

	lines [4]LineStyles
}

// Line returns the styles for a line class.
func (s Styles) Line(class review.LineClass) LineStyles {
	return s.lines[class]
}

// NewStyles builds the display styles from a palette. With color off
// only text attributes are used, so focus and marks stay visible.
func NewStyles(p model.Palette, color bool) Styles {
	if !color {
		return monochrome()
	}

	s := Styles{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorWhite).
			Background(ColorBlue).
			Padding(0, 1),
		StatusBar: lipgloss.NewStyle().
			Foreground(ColorWhite).
			Background(ColorSubtle).
			Padding(0, 1),
		Panel: lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder),
		Help: lipgloss.NewStyle().
			Foreground(ColorGray).
			Italic(true),
		Account: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(p.Account)),
		Info:    lipgloss.NewStyle(),
		Error:   lipgloss.NewStyle().Foreground(ColorRed),
	}

	normal := LineStyles{
		Base:        lipgloss.NewStyle(),
		Date:        lipgloss.NewStyle().Foreground(lipgloss.Color(p.Date)),
		From:        lipgloss.NewStyle().Foreground(lipgloss.Color(p.From)),
		Subject:     lipgloss.NewStyle().Foreground(lipgloss.Color(p.Subject)),
		SubjectSeen: lipgloss.NewStyle().Foreground(lipgloss.Color(p.SubjectSeen)),
		Flag:        lipgloss.NewStyle().Foreground(lipgloss.Color(p.Flag)),
	}

	marked := normal.foreground(lipgloss.Color(p.Marked))

	s.lines[review.ClassNormal] = normal
	s.lines[review.ClassFocused] = normal.background(lipgloss.Color(p.FocusBg))
	s.lines[review.ClassMarked] = marked
	s.lines[review.ClassFocusedMarked] = marked.background(lipgloss.Color(p.FocusBg))
	return s
}

func monochrome() Styles {
	plain := lipgloss.NewStyle()
	normal := LineStyles{
		Base: plain, Date: plain, From: plain,
		Subject: plain.Bold(true), SubjectSeen: plain, Flag: plain,
	}
	marked := normal.apply(func(st lipgloss.Style) lipgloss.Style { return st.Strikethrough(true) })

	s := Styles{
		Header:    plain.Bold(true).Reverse(true).Padding(0, 1),
		StatusBar: plain.Reverse(true).Padding(0, 1),
		Panel:     plain.Padding(1, 2).Border(lipgloss.NormalBorder()),
		Help:      plain,
		Account:   plain.Bold(true),
		Info:      plain,
		Error:     plain,
	}
	reverse := func(st lipgloss.Style) lipgloss.Style { return st.Reverse(true) }

	s.lines[review.ClassNormal] = normal
	s.lines[review.ClassFocused] = normal.apply(reverse)
	s.lines[review.ClassMarked] = marked
	s.lines[review.ClassFocusedMarked] = marked.apply(reverse)
	return s
}

func (l LineStyles) apply(f func(lipgloss.Style) lipgloss.Style) LineStyles {
	return LineStyles{
		Base:        f(l.Base),
		Date:        f(l.Date),
		From:        f(l.From),
		Subject:     f(l.Subject),
		SubjectSeen: f(l.SubjectSeen),
		Flag:        f(l.Flag),
	}
}

func (l LineStyles) foreground(c lipgloss.TerminalColor) LineStyles {
	return l.apply(func(st lipgloss.Style) lipgloss.Style { return st.Foreground(c) })
}

func (l LineStyles) background(c lipgloss.TerminalColor) LineStyles {
	return l.apply(func(st lipgloss.Style) lipgloss.Style { return st.Background(c) })
}
