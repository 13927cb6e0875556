package app

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/review"
	"github.com/nhle/fetchheaders/internal/session"
	appsync "github.com/nhle/fetchheaders/internal/sync"
	"github.com/nhle/fetchheaders/internal/testutil"
	"github.com/nhle/fetchheaders/internal/ui/msglist"
)

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func results() []model.AccountResult {
	return []model.AccountResult{
		{
			Account: "Work",
			Counts:  &model.Counts{Total: 2, Unseen: 2},
			Messages: []model.MessageRecord{
				{UID: "5", Account: "Work", From: "Alice", Subject: "hello", Serial: 1, SerialWidth: 2},
				{UID: "4", Account: "Work", From: "Bob", Subject: "lunch", Serial: 2, SerialWidth: 2},
			},
		},
		{Account: "Home", Failed: true, Err: errors.New("dial tcp: connection refused")},
	}
}

func newTestModel(t *testing.T) Model {
	t.Helper()

	accounts := []model.AccountConfig{{Name: "Work"}, {Name: "Home"}}
	poller := appsync.NewPoller(accounts, nil, 1, zap.NewNop())
	global := model.GlobalSettings{MaxThreads: 1, Palette: model.DefaultPalette()}

	var m tea.Model = New(context.Background(), global, poller)
	m, _ = m.Update(tea.WindowSizeMsg{Width: 120, Height: 20})
	return m.(Model)
}

func update(t *testing.T, m Model, msgs ...tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	var (
		next tea.Model = m
		cmd  tea.Cmd
	)
	for _, msg := range msgs {
		next, cmd = next.Update(msg)
	}
	return next.(Model), cmd
}

func TestModel_LoadingView(t *testing.T) {
	m := newTestModel(t)

	view := m.View()
	assert.Contains(t, view, "FetchHeaders")
	assert.Contains(t, view, "polling 0/2")
	assert.Contains(t, view, "Work")
	assert.Contains(t, view, "Home")
}

func TestModel_AbortWhileLoading(t *testing.T) {
	m := newTestModel(t)

	m, cmd := update(t, m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())

	outcome, deletions := m.Outcome()
	assert.Equal(t, review.OutcomeAbort, outcome)
	assert.Nil(t, deletions)
}

func TestModel_ReviewAndCommit(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, appsync.PollResultMsg{Results: results()})
	assert.Equal(t, ViewReview, m.currentView)

	view := m.View()
	assert.Contains(t, view, " Work:       ( total: 2 | unseen: 2 )")
	assert.Contains(t, view, "( error: dial tcp: connection refused )")
	assert.Contains(t, view, "unreachable: Home")

	m, cmd := update(t, m, runes("j"), runes("d"), runes("q"))
	require.NotNil(t, cmd)
	done, ok := cmd().(msglist.DoneMsg)
	require.True(t, ok)

	m, cmd = update(t, m, done)
	assert.Equal(t, tea.Quit(), cmd())

	outcome, deletions := m.Outcome()
	assert.Equal(t, review.OutcomeCommit, outcome)
	assert.Equal(t, map[string][]string{"Work": {"4"}}, deletions)
}

func TestModel_HelpOverlay(t *testing.T) {
	m := newTestModel(t)
	m, _ = update(t, m, appsync.PollResultMsg{Results: results()})

	m, _ = update(t, m, runes("?"))
	assert.Equal(t, ViewHelp, m.currentView)
	assert.Contains(t, m.View(), "Keyboard Shortcuts")

	// review keys do nothing while help is open
	m, _ = update(t, m, runes("d"))
	assert.Zero(t, m.state.Marked())

	m, _ = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, ViewReview, m.currentView)
	assert.Equal(t, review.Browsing, m.state.Phase())

	m, _ = update(t, m, runes("?"), runes("?"))
	assert.Equal(t, ViewReview, m.currentView)
}

func TestRunner_Finish(t *testing.T) {
	srv := testutil.NewIMAPServer(t,
		testutil.Message{From: "a@example.com", Subject: "one", Date: "Mon, 02 Jan 2006 15:04:05 +0000"},
		testutil.Message{From: "b@example.com", Subject: "two", Date: "Mon, 02 Jan 2006 15:04:05 +0000"},
	)
	acct := srv.Account("Work")
	acct.HardDelete = true

	var out bytes.Buffer
	r := &Runner{
		Config: &model.AppConfig{Global: model.GlobalSettings{MaxThreads: 2}, Accounts: []model.AccountConfig{acct}},
		Open:   session.NewIMAPFactory(nil),
		Log:    zap.NewNop(),
		Out:    &out,
	}

	require.NoError(t, r.Finish(context.Background(), review.OutcomeCommit, map[string][]string{"Work": {"1"}}))
	assert.Equal(t, "Work: moved 1 message(s) to Trash\n", out.String())
	assert.Equal(t, 1, srv.Count(t, "INBOX"))

	out.Reset()
	require.NoError(t, r.Finish(context.Background(), review.OutcomeAbort, nil))
	assert.Contains(t, out.String(), "Aborted")
	assert.Equal(t, 1, srv.Count(t, "INBOX"))
}

func TestPrintDeletionSummary(t *testing.T) {
	var out bytes.Buffer
	PrintDeletionSummary(&out, []appsync.DeletionResult{
		{Account: "Work", Count: 2},
		{Account: "Home", Count: 1, Err: errors.New("auth error")},
	}, []model.AccountConfig{{Name: "Work", Trash: "Bin"}, {Name: "Home"}})

	assert.Equal(t,
		"Work: copied 2 message(s) to Bin\nHome: failed to delete 1 message(s): auth error\n",
		out.String())
}

func TestWritePlain(t *testing.T) {
	var out bytes.Buffer
	WritePlain(&out, results(), true)

	lines := strings.Split(out.String(), "\n")
	require.GreaterOrEqual(t, len(lines), 6)
	assert.Equal(t, " Work:       ( total: 2 | unseen: 2 )", lines[0])
	assert.Equal(t, "", lines[1])
	assert.True(t, strings.HasPrefix(lines[2], " 1 [ N ]   "))
	assert.True(t, strings.HasSuffix(lines[2], "hello"))
	assert.True(t, strings.HasPrefix(lines[3], " 2 [ N ]   "))
	assert.Contains(t, out.String(), " Home:       ( error: dial tcp: connection refused )")
}

func TestRunner_Plain(t *testing.T) {
	srv := testutil.NewIMAPServer(t,
		testutil.Message{From: `"Ann" <ann@example.com>`, Subject: "status report", Date: "Mon, 02 Jan 2006 15:04:05 +0000"},
	)

	var out bytes.Buffer
	r := &Runner{
		Config: &model.AppConfig{Global: model.GlobalSettings{MaxThreads: 1}, Accounts: []model.AccountConfig{srv.Account("Work")}},
		Open:   session.NewIMAPFactory(nil),
		Log:    zap.NewNop(),
		Out:    &out,
	}
	require.NoError(t, r.Plain(context.Background()))

	assert.Contains(t, out.String(), " Work:       ( total: 1 | unseen: 1 )")
	assert.Contains(t, out.String(), "Ann")
	assert.Contains(t, out.String(), "status report")
	assert.Equal(t, 1, srv.Count(t, "INBOX"))
}
