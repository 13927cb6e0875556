package app

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/fetchheaders/internal/keys"
	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/review"
	appsync "github.com/nhle/fetchheaders/internal/sync"
	"github.com/nhle/fetchheaders/internal/theme"
	"github.com/nhle/fetchheaders/internal/ui"
	helpview "github.com/nhle/fetchheaders/internal/ui/help"
	"github.com/nhle/fetchheaders/internal/ui/msglist"
)

const title = "FetchHeaders"

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLoading ViewState = iota
	ViewReview
	ViewHelp
)

// Model is the root Bubble Tea model: it shows progress while accounts
// are polled, then hands the results to the review list.
type Model struct {
	ctx          context.Context
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	styles       theme.Styles
	keys         *keys.KeyMap
	global       model.GlobalSettings
	poller       *appsync.Poller
	spinner      spinner.Model
	list         msglist.Model
	helpView     helpview.Model
	state        *review.State
	results      []model.AccountResult
	ready        bool
	aborted      bool
}

// New creates the root model. Polling starts when the program runs Init.
func New(ctx context.Context, global model.GlobalSettings, poller *appsync.Poller) Model {
	styles := theme.NewStyles(global.Palette, global.Color)
	k := keys.DefaultKeyMap()

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.Account

	return Model{
		ctx:         ctx,
		currentView: ViewLoading,
		layout:      ui.NewLayout(80, 24, styles),
		styles:      styles,
		keys:        k,
		global:      global,
		poller:      poller,
		spinner:     sp,
		helpView:    helpview.New(k, styles, 80, 24),
	}
}

// Init starts the spinner and the poll.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.poller.Start(m.ctx),
	)
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height, m.styles)
		m.ready = true
		m.helpView.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		if m.state != nil {
			m.list.SetSize(m.layout.ContentWidth(), m.layout.ContentHeight())
		}
		return m, nil

	case spinner.TickMsg:
		if m.currentView != ViewLoading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case appsync.PollResultMsg:
		m.results = msg.Results
		m.state = review.New(msg.Results, review.Options{ShowFlags: m.global.ShowFlags})
		m.list = msglist.New(
			m.state, m.keys, m.styles,
			m.layout.ContentWidth(), m.layout.ContentHeight(),
		)
		m.currentView = ViewReview
		return m, nil

	case msglist.DoneMsg:
		return m, tea.Quit

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m.updateActiveView(msg)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.currentView {
	case ViewLoading:
		// Nothing is on screen yet; leaving now skips the review entirely.
		if key.Matches(msg, m.keys.Quit) || key.Matches(msg, m.keys.Abort) {
			m.aborted = true
			return m, tea.Quit
		}
		return m, nil

	case ViewHelp:
		if key.Matches(msg, m.keys.Quit) {
			break
		}
		if key.Matches(msg, m.keys.Help) || msg.Type == tea.KeyEsc {
			m.currentView = m.previousView
		}
		return m, nil

	case ViewReview:
		if key.Matches(msg, m.keys.Help) {
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewReview:
		m.list, cmd = m.list.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return m.spinner.View() + " Polling..."
	}

	header := m.layout.RenderHeader(title, m.headerStatus())
	content := m.renderContent()
	statusBar := m.layout.RenderStatusBar(m.statusText())

	return m.layout.RenderWithFrame(header, content, statusBar)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLoading:
		return m.renderProgress()
	case ViewReview:
		return m.list.View()
	case ViewHelp:
		return m.helpView.View()
	default:
		return ""
	}
}

// renderProgress lists each account with its poll state.
func (m Model) renderProgress() string {
	var b strings.Builder
	for _, st := range m.poller.GetStatuses() {
		var mark string
		switch st.State {
		case appsync.PollRunning:
			mark = m.spinner.View()
		case appsync.PollDone:
			mark = "✓"
		case appsync.PollError:
			mark = m.styles.Error.Render("✗")
		default:
			mark = "·"
		}
		line := fmt.Sprintf(" %s %s", mark, m.styles.Account.Render(st.Account))
		if st.State == appsync.PollDone || st.State == appsync.PollError {
			line += m.styles.Help.Render(fmt.Sprintf("  %s", st.Duration.Round(time.Millisecond)))
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

// headerStatus returns the right-hand side of the header bar.
func (m Model) headerStatus() string {
	if m.currentView == ViewLoading {
		done := 0
		statuses := m.poller.GetStatuses()
		for _, s := range statuses {
			if s.State == appsync.PollDone || s.State == appsync.PollError {
				done++
			}
		}
		return fmt.Sprintf("polling %d/%d", done, len(statuses))
	}
	return m.helpView.ShortView()
}

// statusText returns the status bar contents.
func (m Model) statusText() string {
	switch m.currentView {
	case ViewLoading:
		return "ctrl+c abort"
	case ViewHelp:
		return "? close help | esc back"
	default:
		status := m.list.Status()
		if failed := m.failedAccounts(); failed != "" {
			status += " | unreachable: " + failed
		}
		return status
	}
}

func (m Model) failedAccounts() string {
	var names []string
	for _, r := range m.results {
		if r.Failed {
			names = append(names, r.Account)
		}
	}
	return strings.Join(names, ", ")
}

// Outcome reports how the review ended and the deletions to perform.
// A review that never started counts as aborted.
func (m Model) Outcome() (review.Outcome, map[string][]string) {
	if m.aborted || m.state == nil {
		return review.OutcomeAbort, nil
	}
	return m.state.Outcome(), m.state.Deletions()
}
