package sync

import (
	"context"
	"net"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/session"
	"github.com/nhle/fetchheaders/internal/testutil"
)

func seedMessages() []testutil.Message {
	return []testutil.Message{
		{From: `"Alice" <alice@example.com>`, Subject: "first", Date: "Mon, 02 Jan 2006 15:04:05 -0700", Seen: true},
		{From: "bob@example.com", Subject: "=?UTF-8?B?w6ljaGVj?=", Date: "Tue, 03 Jan 2006 10:00:00 +0000"},
		{From: "Carol <carol@example.com>", Subject: "third", Date: "not a date"},
	}
}

func imapFactory() session.Factory {
	return session.NewIMAPFactory(nil)
}

func TestPollAccount_UnseenNewestFirst(t *testing.T) {
	srv := testutil.NewIMAPServer(t, seedMessages()...)
	acct := srv.Account("Work")

	res := PollAccount(context.Background(), acct, imapFactory(), zap.NewNop())
	require.False(t, res.Failed, "%v", res.Err)

	require.NotNil(t, res.Counts)
	assert.Equal(t, model.Counts{Total: 3, Unseen: 2}, *res.Counts)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "3", res.Messages[0].UID)
	assert.Equal(t, "Carol", res.Messages[0].From)
	assert.Equal(t, "", res.Messages[0].Date)
	assert.Equal(t, 1, res.Messages[0].Serial)

	assert.Equal(t, "2", res.Messages[1].UID)
	assert.Equal(t, "bob@example.com", res.Messages[1].From)
	assert.Equal(t, "échec", res.Messages[1].Subject)
	assert.Equal(t, 2, res.Messages[1].Serial)

	for _, m := range res.Messages {
		assert.Equal(t, "Work", m.Account)
		assert.False(t, m.Seen)
		assert.False(t, m.Marked)
		assert.Equal(t, 2, m.SerialWidth)
	}
}

func TestPollAccount_AllOldestFirst(t *testing.T) {
	srv := testutil.NewIMAPServer(t, seedMessages()...)
	acct := srv.Account("Work")
	acct.ShowUnseenOnly = false
	acct.NewestFirst = false

	res := PollAccount(context.Background(), acct, imapFactory(), zap.NewNop())
	require.False(t, res.Failed, "%v", res.Err)
	require.Len(t, res.Messages, 3)

	assert.Equal(t, []string{"1", "2", "3"}, []string{res.Messages[0].UID, res.Messages[1].UID, res.Messages[2].UID})
	assert.True(t, res.Messages[0].Seen)
	assert.Equal(t, "Alice", res.Messages[0].From)
	assert.NotEmpty(t, res.Messages[0].Date)
	assert.False(t, res.Messages[1].Seen)
	assert.False(t, res.Messages[2].Seen)
}

func TestPollAccount_EmptyMailbox(t *testing.T) {
	srv := testutil.NewIMAPServer(t)

	res := PollAccount(context.Background(), srv.Account("Empty"), imapFactory(), zap.NewNop())
	assert.False(t, res.Failed)
	assert.NoError(t, res.Err)
	assert.Empty(t, res.Messages)
	require.NotNil(t, res.Counts)
	assert.Equal(t, model.Counts{}, *res.Counts)
}

func TestPollAccount_OnlyCounts(t *testing.T) {
	srv := testutil.NewIMAPServer(t, seedMessages()...)
	acct := srv.Account("Work")
	acct.ShowOnlyCounts = true

	res := PollAccount(context.Background(), acct, imapFactory(), zap.NewNop())
	require.False(t, res.Failed)
	assert.Empty(t, res.Messages)
	assert.Equal(t, 3, res.Counts.Total)
}

func TestPollAccount_BadPassword(t *testing.T) {
	srv := testutil.NewIMAPServer(t)
	acct := srv.Account("Work")
	acct.Password = "nope"

	res := PollAccount(context.Background(), acct, imapFactory(), zap.NewNop())
	assert.True(t, res.Failed)
	assert.True(t, session.IsAuthError(res.Err))
	assert.Nil(t, res.Counts)
	assert.Empty(t, res.Messages)
}

func TestPollAccount_FailureAtEachStep(t *testing.T) {
	for _, step := range []string{"connect", "login", "select", "status", "search", "fetch", "flags"} {
		t.Run(step, func(t *testing.T) {
			f := &fakeSession{failOn: step, ids: []string{"1", "2"}}
			acct := model.AccountConfig{Name: "A", ShowCounts: true}

			res := PollAccount(context.Background(), acct, fakeFactory(f), nil)
			assert.True(t, res.Failed)
			assert.ErrorIs(t, res.Err, errFake)
			assert.Empty(t, res.Messages)

			if step == "connect" {
				assert.NotContains(t, f.calls, "logout")
			} else {
				assert.Equal(t, "logout", f.calls[len(f.calls)-1])
			}
		})
	}
}

func TestPollAccount_SkipsMessageWithoutHeaders(t *testing.T) {
	f := &fakeSession{ids: []string{"1", "2", "3"}, noHeaders: map[string]bool{"2": true}}
	acct := model.AccountConfig{Name: "A", ShowCounts: true, ShowUnseenOnly: true}

	res := PollAccount(context.Background(), acct, fakeFactory(f), zap.NewNop())
	require.False(t, res.Failed, "%v", res.Err)

	require.Len(t, res.Messages, 2)
	assert.Equal(t, "1", res.Messages[0].UID)
	assert.Equal(t, "s1", res.Messages[0].Subject)
	assert.Equal(t, 1, res.Messages[0].Serial)
	assert.Equal(t, "3", res.Messages[1].UID)
	assert.Equal(t, "s3", res.Messages[1].Subject)
	assert.Equal(t, 2, res.Messages[1].Serial)
	assert.Equal(t, "logout", f.calls[len(f.calls)-1])
}

func TestPollAccount_LogoutFailureIgnored(t *testing.T) {
	f := &fakeSession{failOn: "logout", ids: []string{"7"}}
	acct := model.AccountConfig{Name: "A", ShowUnseenOnly: true}

	res := PollAccount(context.Background(), acct, fakeFactory(f), zap.NewNop())
	assert.False(t, res.Failed)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "x", res.Messages[0].From)
	assert.Equal(t, "s7", res.Messages[0].Subject)
}

func closedPort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	_, portStr, _ := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, ln.Close())
	port, _ := strconv.Atoi(portStr)
	return port
}

func TestPoller_Run_PartialFailure(t *testing.T) {
	srv := testutil.NewIMAPServer(t, seedMessages()...)

	broken := srv.Account("B")
	broken.Host = "127.0.0.1"
	broken.Port = closedPort(t)

	accounts := []model.AccountConfig{srv.Account("A"), broken, srv.Account("C")}
	p := NewPoller(accounts, imapFactory(), 2, zap.NewNop())

	results := p.Run(context.Background())
	require.Len(t, results, 3)

	assert.Equal(t, "A", results[0].Account)
	assert.False(t, results[0].Failed)
	assert.Len(t, results[0].Messages, 2)

	assert.Equal(t, "B", results[1].Account)
	assert.True(t, results[1].Failed)
	assert.True(t, session.IsConnectionError(results[1].Err))

	assert.Equal(t, "C", results[2].Account)
	assert.False(t, results[2].Failed)
	assert.Len(t, results[2].Messages, 2)

	statuses := p.GetStatuses()
	require.Len(t, statuses, 3)
	assert.Equal(t, PollDone, statuses[0].State)
	assert.Equal(t, PollError, statuses[1].State)
	assert.Error(t, statuses[1].Error)
	assert.Equal(t, PollDone, statuses[2].State)
}

func TestPoller_Start(t *testing.T) {
	srv := testutil.NewIMAPServer(t, seedMessages()...)
	p := NewPoller([]model.AccountConfig{srv.Account("A")}, imapFactory(), 5, zap.NewNop())

	assert.Equal(t, PollPending, p.GetStatuses()[0].State)

	msg := p.Start(context.Background())()
	res, ok := msg.(PollResultMsg)
	require.True(t, ok)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "A", res.Results[0].Account)
}
