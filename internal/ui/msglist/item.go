package msglist

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-runewidth"

	"github.com/nhle/fetchheaders/internal/review"
	"github.com/nhle/fetchheaders/internal/theme"
)

type segment struct {
	text  string
	style lipgloss.Style
}

// renderSegments styles each segment, cutting the line at width cells and
// padding it with fill so a background covers the whole row.
func renderSegments(segs []segment, width int, fill lipgloss.Style) string {
	var b strings.Builder
	used := 0
	for _, s := range segs {
		if width > 0 && used >= width {
			break
		}
		text := s.text
		if width > 0 {
			text = runewidth.Truncate(text, width-used, "")
		}
		if text == "" {
			continue
		}
		used += runewidth.StringWidth(text)
		b.WriteString(s.style.Render(text))
	}
	if width > used {
		b.WriteString(fill.Render(strings.Repeat(" ", width-used)))
	}
	return b.String()
}

// renderMessage draws one message line in its current style.
func renderMessage(state *review.State, i int, styles theme.Styles, width int) string {
	line := state.Line(i)
	st := state.Style(i)
	ls := styles.Line(st.Class)
	lead, trail := line.Prefix()

	segs := []segment{
		{line.Serial, ls.Base},
		{lead, ls.Base},
	}
	if line.Flag != "" {
		segs = append(segs, segment{line.Flag, ls.Flag}, segment{trail, ls.Base})
	}
	segs = append(segs,
		segment{line.Date, ls.Date},
		segment{line.From, ls.From},
		segment{line.Subject, ls.SubjectFor(st.Seen)},
	)
	return renderSegments(segs, width, ls.Base)
}

// renderSection draws an account header line.
func renderSection(sec review.Section, styles theme.Styles, width int) string {
	info := styles.Info
	if sec.Failed {
		info = styles.Error
	}
	return renderSegments([]segment{
		{sec.Title(), styles.Account},
		{sec.Info(), info},
	}, width, lipgloss.NewStyle())
}
