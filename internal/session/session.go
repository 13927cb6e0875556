// Package session defines the mail session contract used by the pollers
// and deletion workers, along with its IMAP implementation.
package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/nhle/fetchheaders/internal/model"
)

// Criterion selects which messages SearchIdentifiers returns.
type Criterion int

const (
	CriterionAll Criterion = iota
	CriterionUnseen
)

func (c Criterion) String() string {
	switch c {
	case CriterionUnseen:
		return "unseen"
	default:
		return "all"
	}
}

// Session is a single stateful connection to one mailbox server.
// A Session is owned by exactly one job and is never shared.
type Session interface {
	Connect(ctx context.Context, host string, port int, sec model.Security) error
	Login(user, pass string) error
	SelectFolder(name string, readOnly bool) error

	// Status returns the total and unseen message counts of folder.
	Status(folder string) (total, unseen int, err error)

	// SearchIdentifiers returns matching UIDs in server order. No match
	// is an empty slice, not an error.
	SearchIdentifiers(c Criterion) ([]string, error)

	// FetchHeaderFields returns, per UID, the requested header fields
	// keyed by lower-cased field name. Values are raw (undecoded).
	FetchHeaderFields(ids, fields []string) (map[string]map[string]string, error)

	// FetchFlags returns, per UID, the message flags joined by spaces.
	FetchFlags(ids []string) (map[string]string, error)

	Copy(ids []string, folder string) error
	MarkDeleted(ids []string) error
	Expunge() error
	Logout() error
}

// Factory opens a fresh, unconnected Session.
type Factory func() Session

// ConnectionError indicates the server could not be reached or the
// connection dropped.
type ConnectionError struct {
	Addr string
	Err  error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connection error (%s): %v", e.Addr, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// AuthError indicates that the server rejected the credentials.
type AuthError struct {
	Username string
	Err      error
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("auth error (%s): %v", e.Username, e.Err)
}

func (e *AuthError) Unwrap() error { return e.Err }

// ProtocolError indicates that a command was rejected or its response
// was malformed.
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error { return e.Err }

// IsConnectionError reports whether err (or any error in its chain) is a ConnectionError.
func IsConnectionError(err error) bool {
	var connErr *ConnectionError
	return errors.As(err, &connErr)
}

// IsAuthError reports whether err (or any error in its chain) is an AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// IsProtocolError reports whether err (or any error in its chain) is a ProtocolError.
func IsProtocolError(err error) bool {
	var protoErr *ProtocolError
	return errors.As(err, &protoErr)
}

// ErrNotConnected is returned by operations invoked before Connect.
var ErrNotConnected = errors.New("session not connected")
