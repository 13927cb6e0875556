package session

import (
	"bufio"
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"strconv"
	"strings"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"
	"github.com/emersion/go-message/textproto"

	"github.com/nhle/fetchheaders/internal/model"
)

// IMAPSession implements Session on top of go-imap v2. All message
// identifiers are UIDs in decimal form.
type IMAPSession struct {
	client   *imapclient.Client
	addr     string
	username string

	// TLSConfig overrides the TLS settings used for tls and starttls.
	TLSConfig *tls.Config
}

// NewIMAPSession returns an unconnected IMAP session.
func NewIMAPSession() *IMAPSession {
	return &IMAPSession{}
}

// NewIMAPFactory returns a Factory producing IMAP sessions.
func NewIMAPFactory(tlsConfig *tls.Config) Factory {
	return func() Session {
		return &IMAPSession{TLSConfig: tlsConfig}
	}
}

// Connect dials the server. The context deadline, when set, bounds both
// the dial and every subsequent command on the connection.
func (s *IMAPSession) Connect(
	ctx context.Context, host string, port int, sec model.Security,
) error {
	s.addr = net.JoinHostPort(host, strconv.Itoa(port))

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", s.addr)
	if err != nil {
		return &ConnectionError{Addr: s.addr, Err: err}
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			_ = conn.Close()
			return &ConnectionError{Addr: s.addr, Err: err}
		}
	}

	tlsConfig := s.tlsConfig(host)

	switch sec {
	case model.SecurityNone:
		s.client = imapclient.New(conn, nil)
	case model.SecurityStartTLS:
		client, err := imapclient.NewStartTLS(conn, &imapclient.Options{TLSConfig: tlsConfig})
		if err != nil {
			_ = conn.Close()
			return &ConnectionError{Addr: s.addr, Err: err}
		}
		s.client = client
	default:
		s.client = imapclient.New(tls.Client(conn, tlsConfig), nil)
	}

	if err := s.client.WaitGreeting(); err != nil {
		_ = s.client.Close()
		s.client = nil
		return &ConnectionError{Addr: s.addr, Err: err}
	}
	return nil
}

func (s *IMAPSession) tlsConfig(host string) *tls.Config {
	if s.TLSConfig != nil {
		return s.TLSConfig.Clone()
	}
	return &tls.Config{ServerName: host}
}

// Login authenticates with the given credentials.
func (s *IMAPSession) Login(user, pass string) error {
	if s.client == nil {
		return ErrNotConnected
	}
	s.username = user
	if err := s.client.Login(user, pass).Wait(); err != nil {
		return &AuthError{Username: user, Err: err}
	}
	return nil
}

// SelectFolder opens a mailbox, read-only when requested.
func (s *IMAPSession) SelectFolder(name string, readOnly bool) error {
	if s.client == nil {
		return ErrNotConnected
	}
	opts := &imap.SelectOptions{ReadOnly: readOnly}
	if _, err := s.client.Select(name, opts).Wait(); err != nil {
		return &ProtocolError{Op: fmt.Sprintf("selecting %s", name), Err: err}
	}
	return nil
}

// Status returns the total and unseen counts of folder.
func (s *IMAPSession) Status(folder string) (int, int, error) {
	if s.client == nil {
		return 0, 0, ErrNotConnected
	}
	data, err := s.client.Status(folder, &imap.StatusOptions{
		NumMessages: true,
		NumUnseen:   true,
	}).Wait()
	if err != nil {
		return 0, 0, &ProtocolError{Op: fmt.Sprintf("status of %s", folder), Err: err}
	}

	var total, unseen int
	if data.NumMessages != nil {
		total = int(*data.NumMessages)
	}
	if data.NumUnseen != nil {
		unseen = int(*data.NumUnseen)
	}
	return total, unseen, nil
}

// SearchIdentifiers runs a UID SEARCH for the criterion.
func (s *IMAPSession) SearchIdentifiers(c Criterion) ([]string, error) {
	if s.client == nil {
		return nil, ErrNotConnected
	}

	criteria := &imap.SearchCriteria{}
	if c == CriterionUnseen {
		criteria.NotFlag = []imap.Flag{imap.FlagSeen}
	}

	data, err := s.client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, &ProtocolError{Op: "searching " + c.String(), Err: err}
	}

	uids := data.AllUIDs()
	ids := make([]string, 0, len(uids))
	for _, uid := range uids {
		ids = append(ids, strconv.FormatUint(uint64(uid), 10))
	}
	return ids, nil
}

// FetchHeaderFields fetches BODY.PEEK[HEADER.FIELDS (...)] for ids in a
// single command. Field names in the result are lower-cased.
func (s *IMAPSession) FetchHeaderFields(
	ids, fields []string,
) (map[string]map[string]string, error) {
	if s.client == nil {
		return nil, ErrNotConnected
	}
	out := make(map[string]map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	uidSet, err := parseUIDSet(ids)
	if err != nil {
		return nil, err
	}

	section := &imap.FetchItemBodySection{
		Specifier:    imap.PartSpecifierHeader,
		HeaderFields: fields,
		Peek:         true,
	}
	fetchCmd := s.client.Fetch(uidSet, &imap.FetchOptions{
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{section},
	})
	defer fetchCmd.Close()

	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			return nil, &ProtocolError{Op: "fetching headers", Err: err}
		}

		out[strconv.FormatUint(uint64(buf.UID), 10)] = headerValues(buf.FindBodySection(section), fields)
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &ProtocolError{Op: "fetching headers", Err: err}
	}
	return out, nil
}

// headerValues reads the raw header block. Missing fields map to "", and
// a malformed block yields all fields empty so the message is still listed.
func headerValues(raw []byte, fields []string) map[string]string {
	values := make(map[string]string, len(fields))
	for _, f := range fields {
		values[strings.ToLower(f)] = ""
	}
	if len(raw) == 0 {
		return values
	}

	// A header block without its terminating blank line still parses.
	if !bytes.HasSuffix(raw, []byte("\r\n\r\n")) && !bytes.HasSuffix(raw, []byte("\n\n")) {
		raw = append(raw, "\r\n"...)
	}

	hdr, err := textproto.ReadHeader(bufio.NewReader(bytes.NewReader(raw)))
	if err != nil {
		return values
	}
	for _, f := range fields {
		values[strings.ToLower(f)] = hdr.Get(f)
	}
	return values
}

// FetchFlags fetches FLAGS for ids in a single command.
func (s *IMAPSession) FetchFlags(ids []string) (map[string]string, error) {
	if s.client == nil {
		return nil, ErrNotConnected
	}
	out := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	uidSet, err := parseUIDSet(ids)
	if err != nil {
		return nil, err
	}

	fetchCmd := s.client.Fetch(uidSet, &imap.FetchOptions{UID: true, Flags: true})
	defer fetchCmd.Close()

	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			return nil, &ProtocolError{Op: "fetching flags", Err: err}
		}

		flags := make([]string, 0, len(buf.Flags))
		for _, f := range buf.Flags {
			flags = append(flags, string(f))
		}
		out[strconv.FormatUint(uint64(buf.UID), 10)] = strings.Join(flags, " ")
	}

	if err := fetchCmd.Close(); err != nil {
		return nil, &ProtocolError{Op: "fetching flags", Err: err}
	}
	return out, nil
}

// Copy copies the messages to folder.
func (s *IMAPSession) Copy(ids []string, folder string) error {
	if s.client == nil {
		return ErrNotConnected
	}
	uidSet, err := parseUIDSet(ids)
	if err != nil {
		return err
	}
	if _, err := s.client.Copy(uidSet, folder).Wait(); err != nil {
		return &ProtocolError{Op: fmt.Sprintf("copying to %s", folder), Err: err}
	}
	return nil
}

// MarkDeleted adds the \Deleted flag to the messages.
func (s *IMAPSession) MarkDeleted(ids []string) error {
	if s.client == nil {
		return ErrNotConnected
	}
	uidSet, err := parseUIDSet(ids)
	if err != nil {
		return err
	}
	storeCmd := s.client.Store(uidSet, &imap.StoreFlags{
		Op:     imap.StoreFlagsAdd,
		Silent: true,
		Flags:  []imap.Flag{imap.FlagDeleted},
	}, nil)
	if err := storeCmd.Close(); err != nil {
		return &ProtocolError{Op: "flagging deleted", Err: err}
	}
	return nil
}

// Expunge permanently removes \Deleted messages from the selected folder.
func (s *IMAPSession) Expunge() error {
	if s.client == nil {
		return ErrNotConnected
	}
	if err := s.client.Expunge().Close(); err != nil {
		return &ProtocolError{Op: "expunging", Err: err}
	}
	return nil
}

// Logout ends the session and closes the connection.
func (s *IMAPSession) Logout() error {
	if s.client == nil {
		return nil
	}
	client := s.client
	s.client = nil

	err := client.Logout().Wait()
	_ = client.Close()
	if err != nil {
		return &ConnectionError{Addr: s.addr, Err: err}
	}
	return nil
}

func parseUIDSet(ids []string) (imap.UIDSet, error) {
	uids := make([]imap.UID, 0, len(ids))
	for _, id := range ids {
		n, err := strconv.ParseUint(id, 10, 32)
		if err != nil || n == 0 {
			return nil, &ProtocolError{Op: "parsing uid", Err: fmt.Errorf("invalid uid %q", id)}
		}
		uids = append(uids, imap.UID(n))
	}
	return imap.UIDSetNum(uids...), nil
}
