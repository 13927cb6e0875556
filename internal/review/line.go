package review

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/nhle/fetchheaders/internal/model"
)

// Column widths of a message line.
const (
	DateWidth    = 17
	DateColumn   = 21
	FromWidth    = 30
	FromColumn   = 34
	SubjectWidth = 120
	AccountWidth = 13
)

// LineClass selects one of the four line color schemes.
type LineClass int

const (
	ClassNormal LineClass = iota
	ClassFocused
	ClassMarked
	ClassFocusedMarked
)

func (c LineClass) String() string {
	switch c {
	case ClassFocused:
		return "focused"
	case ClassMarked:
		return "marked"
	case ClassFocusedMarked:
		return "focused-marked"
	default:
		return "normal"
	}
}

// LineStyle is the style selection for one message line. Seen picks the
// subject color within the class.
type LineStyle struct {
	Class LineClass
	Seen  bool
}

// StyleFor returns the style of a line from its focus, mark and seen state.
func StyleFor(focused, marked, seen bool) LineStyle {
	class := ClassNormal
	switch {
	case focused && marked:
		class = ClassFocusedMarked
	case marked:
		class = ClassMarked
	case focused:
		class = ClassFocused
	}
	return LineStyle{Class: class, Seen: seen}
}

// Line holds the display columns of one message, already padded.
type Line struct {
	Serial string

	// Flag is the three-character flag cell; empty when flags are hidden.
	Flag string

	Date    string
	From    string
	Subject string
}

// Prefix returns the text between the serial and the date column.
func (l Line) Prefix() (lead, trail string) {
	if l.Flag == "" {
		return ".  ", ""
	}
	return " [", "]   "
}

// String renders the line without styling.
func (l Line) String() string {
	lead, trail := l.Prefix()
	return l.Serial + lead + l.Flag + trail + l.Date + l.From + l.Subject
}

// FlagCell returns the flag indicator: N for unseen, D for marked.
func FlagCell(seen, marked bool) string {
	switch {
	case seen && marked:
		return " D "
	case seen:
		return "   "
	case marked:
		return " ND"
	default:
		return " N "
	}
}

// FormatLine lays out a message record into its columns.
func FormatLine(m *model.MessageRecord, showFlags bool) Line {
	width := m.SerialWidth
	if width < 1 {
		width = model.SerialWidth(m.Serial)
	}

	l := Line{
		Serial:  fmt.Sprintf("%*s", width, strconv.Itoa(m.Serial)),
		Date:    column(m.Date, DateWidth, DateColumn),
		From:    column(m.From, FromWidth, FromColumn),
		Subject: runewidth.Truncate(sanitize(m.Subject), SubjectWidth, ""),
	}
	if showFlags {
		l.Flag = FlagCell(m.Seen, m.Marked)
	}
	return l
}

// column truncates s to width cells and pads it to span cells.
func column(s string, width, span int) string {
	return runewidth.FillRight(runewidth.Truncate(sanitize(s), width, ""), span)
}

// sanitize flattens folded header values onto one line.
func sanitize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Title returns the account label, e.g. " Work:".
func (s Section) Title() string {
	return runewidth.FillRight(" "+s.Account+":", AccountWidth)
}

// Info returns the counts or error text shown after the account label.
func (s Section) Info() string {
	switch {
	case s.Failed:
		reason := "unknown"
		if s.Err != nil {
			reason = s.Err.Error()
		}
		return "( error: " + reason + " )"
	case s.Counts != nil:
		return fmt.Sprintf("( total: %d | unseen: %d )", s.Counts.Total, s.Counts.Unseen)
	default:
		return ""
	}
}

// Header renders the account label and info without styling.
func (s Section) Header() string {
	return strings.TrimRight(s.Title()+s.Info(), " ")
}
