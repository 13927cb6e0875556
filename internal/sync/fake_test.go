package sync

import (
	"context"
	"errors"

	"github.com/nhle/fetchheaders/internal/model"
	"github.com/nhle/fetchheaders/internal/session"
)

// fakeSession records calls and fails the operation named in failOn.
type fakeSession struct {
	failOn string
	ids    []string
	calls  []string

	// noHeaders lists ids the header fetch leaves out.
	noHeaders map[string]bool
}

var errFake = errors.New("boom")

func (f *fakeSession) step(name string) error {
	f.calls = append(f.calls, name)
	if f.failOn == name {
		switch name {
		case "connect":
			return &session.ConnectionError{Addr: "fake", Err: errFake}
		case "login":
			return &session.AuthError{Username: "fake", Err: errFake}
		default:
			return &session.ProtocolError{Op: name, Err: errFake}
		}
	}
	return nil
}

func (f *fakeSession) Connect(context.Context, string, int, model.Security) error {
	return f.step("connect")
}

func (f *fakeSession) Login(string, string) error { return f.step("login") }

func (f *fakeSession) SelectFolder(string, bool) error { return f.step("select") }

func (f *fakeSession) Status(string) (int, int, error) {
	return len(f.ids), len(f.ids), f.step("status")
}

func (f *fakeSession) SearchIdentifiers(session.Criterion) ([]string, error) {
	return f.ids, f.step("search")
}

func (f *fakeSession) FetchHeaderFields(ids, _ []string) (map[string]map[string]string, error) {
	out := make(map[string]map[string]string, len(ids))
	for _, id := range ids {
		if f.noHeaders[id] {
			continue
		}
		out[id] = map[string]string{"from": "x <x@example.com>", "subject": "s" + id, "date": ""}
	}
	return out, f.step("fetch")
}

func (f *fakeSession) FetchFlags(ids []string) (map[string]string, error) {
	return map[string]string{}, f.step("flags")
}

func (f *fakeSession) Copy([]string, string) error { return f.step("copy") }

func (f *fakeSession) MarkDeleted([]string) error { return f.step("store") }

func (f *fakeSession) Expunge() error { return f.step("expunge") }

func (f *fakeSession) Logout() error { return f.step("logout") }

func fakeFactory(f *fakeSession) session.Factory {
	return func() session.Session { return f }
}
