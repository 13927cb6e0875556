package help

import (
	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/fetchheaders/internal/keys"
	"github.com/nhle/fetchheaders/internal/theme"
)

// Model is the help overlay view.
type Model struct {
	keys   *keys.KeyMap
	help   help.Model
	styles theme.Styles
	width  int
	height int
}

// New creates a new help view model.
func New(keys *keys.KeyMap, styles theme.Styles, width, height int) Model {
	h := help.New()
	h.Width = width
	return Model{
		keys:   keys,
		help:   h,
		styles: styles,
		width:  width,
		height: height,
	}
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages for the help view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	return m, nil
}

// View renders the help overlay.
func (m Model) View() string {
	title := lipgloss.NewStyle().
		Bold(true).
		MarginBottom(1).
		Render("Keyboard Shortcuts")

	m.help.Width = max(m.width-4, 0)
	m.help.ShowAll = true
	helpText := m.help.View(m.keys)

	legend := m.styles.Help.Render(
		"Flags: N unseen, D marked for deletion. Marked messages are copied to Trash on quit.",
	)

	content := lipgloss.JoinVertical(lipgloss.Left, title, helpText, "", legend)

	return m.styles.Panel.
		Width(max(m.width-4, 0)).
		Height(max(m.height-4, 0)).
		Render(content)
}

// ShortView renders the one-line key hints.
func (m Model) ShortView() string {
	m.help.ShowAll = false
	return m.help.View(m.keys)
}

// SetSize updates the help view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.help.Width = max(width-4, 0)
}
