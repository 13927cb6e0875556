package testutil

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-imap/v2/imapserver"
	"github.com/emersion/go-imap/v2/imapserver/imapmemserver"

	"github.com/nhle/fetchheaders/internal/model"
)

const (
	Username = "test-user"
	Password = "test-password"
)

// Message is a message seeded into a test mailbox.
type Message struct {
	From    string
	Subject string
	Date    string
	Seen    bool
}

// Raw renders the message as an RFC 5322 byte slice.
func (m Message) Raw() []byte {
	return []byte(fmt.Sprintf(
		"From: %s\r\nTo: %s@example.com\r\nSubject: %s\r\nDate: %s\r\n"+
			"Content-Type: text/plain; charset=utf-8\r\n\r\nbody\r\n",
		m.From, Username, m.Subject, m.Date,
	))
}

// IMAPServer is an in-memory IMAP server listening on localhost.
type IMAPServer struct {
	Host string
	Port int
}

// NewIMAPServer starts an in-memory IMAP server with INBOX and Trash
// folders and the given messages appended to INBOX in order. It is shut
// down automatically when the test completes.
func NewIMAPServer(t *testing.T, msgs ...Message) *IMAPServer {
	t.Helper()

	memServer := imapmemserver.New()
	user := imapmemserver.NewUser(Username, Password)
	for _, name := range []string{"INBOX", "Trash"} {
		if err := user.Create(name, nil); err != nil {
			t.Fatalf("creating mailbox %s: %v", name, err)
		}
	}
	memServer.AddUser(user)

	server := imapserver.New(&imapserver.Options{
		NewSession: func(*imapserver.Conn) (imapserver.Session, *imapserver.GreetingData, error) {
			return memServer.NewSession(), nil, nil
		},
		InsecureAuth: true,
		Caps: imap.CapSet{
			imap.CapIMAP4rev1: {},
			imap.CapIMAP4rev2: {},
		},
	})

	ln, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		t.Fatalf("listening: %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- server.Serve(ln)
	}()

	t.Cleanup(func() {
		if err := server.Close(); err != nil {
			t.Logf("closing imap server: %v", err)
		}
		if err := <-done; err != nil && !errors.Is(err, net.ErrClosed) {
			t.Logf("serving imap: %v", err)
		}
	})

	host, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		t.Fatalf("splitting listener address: %v", err)
	}
	port, _ := strconv.Atoi(portStr)

	s := &IMAPServer{Host: host, Port: port}
	for _, m := range msgs {
		s.Append(t, "INBOX", m)
	}
	return s
}

// Account returns an account configuration pointing at the server.
func (s *IMAPServer) Account(name string) model.AccountConfig {
	return model.AccountConfig{
		Name:           name,
		Host:           s.Host,
		Port:           s.Port,
		Security:       model.SecurityNone,
		Username:       Username,
		Password:       Password,
		Folder:         "INBOX",
		Trash:          "Trash",
		ShowCounts:     true,
		ShowUnseenOnly: true,
		NewestFirst:    true,
		Timeout:        10 * time.Second,
	}
}

// Client opens an authenticated client for inspecting server state.
func (s *IMAPServer) Client(t *testing.T) *imapclient.Client {
	t.Helper()

	client, err := imapclient.DialInsecure(net.JoinHostPort(s.Host, strconv.Itoa(s.Port)), nil)
	if err != nil {
		t.Fatalf("dialing test server: %v", err)
	}
	if err := client.Login(Username, Password).Wait(); err != nil {
		t.Fatalf("logging in to test server: %v", err)
	}
	t.Cleanup(func() {
		_ = client.Logout().Wait()
		_ = client.Close()
	})
	return client
}

// Append adds a message to folder.
func (s *IMAPServer) Append(t *testing.T, folder string, m Message) {
	t.Helper()

	client := s.Client(t)

	raw := m.Raw()
	var opts *imap.AppendOptions
	if m.Seen {
		opts = &imap.AppendOptions{Flags: []imap.Flag{imap.FlagSeen}}
	}
	appendCmd := client.Append(folder, int64(len(raw)), opts)
	if _, err := appendCmd.Write(raw); err != nil {
		t.Fatalf("writing message: %v", err)
	}
	if err := appendCmd.Close(); err != nil {
		t.Fatalf("closing append: %v", err)
	}
	if _, err := appendCmd.Wait(); err != nil {
		t.Fatalf("appending message: %v", err)
	}
}

// Count returns the number of messages in folder.
func (s *IMAPServer) Count(t *testing.T, folder string) int {
	t.Helper()

	client := s.Client(t)
	data, err := client.Status(folder, &imap.StatusOptions{NumMessages: true}).Wait()
	if err != nil {
		t.Fatalf("status %s: %v", folder, err)
	}
	if data.NumMessages == nil {
		return 0
	}
	return int(*data.NumMessages)
}
