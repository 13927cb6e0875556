package msglist

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/fetchheaders/internal/keys"
	"github.com/nhle/fetchheaders/internal/review"
	"github.com/nhle/fetchheaders/internal/theme"
)

// DoneMsg is sent when the user commits or aborts the review.
type DoneMsg struct {
	Outcome   review.Outcome
	Deletions map[string][]string
}

// Model is the scrollable message list of the review screen.
type Model struct {
	state    *review.State
	keys     *keys.KeyMap
	styles   theme.Styles
	viewport viewport.Model

	// rows holds every rendered display row; rowOf maps a message index
	// to its row.
	rows  []string
	rowOf []int

	width  int
	height int
}

// New creates a message list over state.
func New(state *review.State, k *keys.KeyMap, styles theme.Styles, width, height int) Model {
	m := Model{
		state:    state,
		keys:     k,
		styles:   styles,
		viewport: viewport.New(width, height),
		width:    width,
		height:   height,
	}
	m.rebuild()
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles key input for the review.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.state.Phase() == review.Terminated {
		return m, nil
	}

	switch {
	case key.Matches(keyMsg, m.keys.Down):
		prev, cur := m.state.FocusDown()
		m.redraw(prev, cur)
		m.scrollTo(cur)

	case key.Matches(keyMsg, m.keys.Up):
		prev, cur := m.state.FocusUp()
		m.redraw(prev, cur)
		m.scrollTo(cur)

	case key.Matches(keyMsg, m.keys.Toggle):
		m.redraw(m.state.ToggleMark())

	case key.Matches(keyMsg, m.keys.Mark):
		m.redraw(m.state.Mark())

	case key.Matches(keyMsg, m.keys.Unmark):
		m.redraw(m.state.Unmark())

	case key.Matches(keyMsg, m.keys.Commit):
		deletions := m.state.Commit()
		return m, done(review.OutcomeCommit, deletions)

	case key.Matches(keyMsg, m.keys.Abort), key.Matches(keyMsg, m.keys.Quit):
		m.state.Abort()
		return m, done(review.OutcomeAbort, nil)
	}

	return m, nil
}

func done(outcome review.Outcome, deletions map[string][]string) tea.Cmd {
	return func() tea.Msg {
		return DoneMsg{Outcome: outcome, Deletions: deletions}
	}
}

// View renders the visible part of the list.
func (m Model) View() string {
	if m.state.Total() == 0 && len(m.state.Sections()) == 0 {
		return m.styles.Help.Render("  No accounts polled.")
	}
	return m.viewport.View()
}

// Status returns a short summary for the status bar.
func (m Model) Status() string {
	total := m.state.Total()
	if total == 0 {
		return "no messages"
	}
	var b strings.Builder
	b.WriteString(strconv.Itoa(m.state.Focus()+1) + "/" + strconv.Itoa(total))
	if marked := m.state.Marked(); marked > 0 {
		b.WriteString("  " + strconv.Itoa(marked) + " marked")
	}
	return b.String()
}

// SetSize updates the list dimensions and re-renders every row.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height
	m.rebuild()
	if f := m.state.Focus(); f != review.NoFocus {
		m.scrollTo(f)
	}
}

// rebuild renders all rows: per account a header, a blank line, the
// messages and two trailing blank lines.
func (m *Model) rebuild() {
	m.rows = m.rows[:0]
	m.rowOf = make([]int, m.state.Total())

	for _, sec := range m.state.Sections() {
		m.rows = append(m.rows, renderSection(sec, m.styles, m.width), "")
		for i := sec.Start; i < sec.End; i++ {
			m.rowOf[i] = len(m.rows)
			m.rows = append(m.rows, renderMessage(m.state, i, m.styles, m.width))
		}
		m.rows = append(m.rows, "", "")
	}
	m.viewport.SetContent(strings.Join(m.rows, "\n"))
}

// redraw re-renders only the rows of the given message indices.
func (m *Model) redraw(indices ...int) {
	changed := false
	for _, i := range indices {
		if i < 0 || i >= len(m.rowOf) {
			continue
		}
		m.rows[m.rowOf[i]] = renderMessage(m.state, i, m.styles, m.width)
		changed = true
	}
	if changed {
		offset := m.viewport.YOffset
		m.viewport.SetContent(strings.Join(m.rows, "\n"))
		m.viewport.SetYOffset(offset)
	}
}

// scrollTo keeps message i visible. Scrolling up onto the first message
// of an account also reveals the account header above it.
func (m *Model) scrollTo(i int) {
	if i < 0 || i >= len(m.rowOf) {
		return
	}
	row := m.rowOf[i]
	top := m.viewport.YOffset
	h := m.viewport.Height

	switch {
	case row < top:
		m.viewport.SetYOffset(max(row-2, 0))
	case h > 0 && row >= top+h:
		m.viewport.SetYOffset(row - h + 1)
	}
	if row < 3 {
		m.viewport.GotoTop()
	}
}

// Row returns the rendered display row of message i.
func (m Model) Row(i int) string {
	return m.rows[m.rowOf[i]]
}

// Offset returns the viewport's scroll offset.
func (m Model) Offset() int {
	return m.viewport.YOffset
}
