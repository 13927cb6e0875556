package credential

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/fetchheaders/internal/model"
)

type mapStore struct {
	items map[string]string
	err   error
}

func (m mapStore) Get(key string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	v, ok := m.items[key]
	if !ok {
		return "", fmt.Errorf("getting credential %q: %w", key, ErrNotFound)
	}
	return v, nil
}

func (m mapStore) Set(key, value string) error { m.items[key] = value; return nil }

func (m mapStore) Delete(key string) error { delete(m.items, key); return nil }

func TestFillPasswords(t *testing.T) {
	accounts := []model.AccountConfig{
		{Name: "Work", Password: "inline"},
		{Name: "Home"},
		{Name: "Other"},
	}
	store := mapStore{items: map[string]string{
		"imap-Work": "ignored",
		"imap-Home": "from-keyring",
	}}

	require.NoError(t, FillPasswords(accounts, store))
	assert.Equal(t, "inline", accounts[0].Password)
	assert.Equal(t, "from-keyring", accounts[1].Password)
	assert.Equal(t, "", accounts[2].Password)
}

func TestFillPasswords_StoreError(t *testing.T) {
	accounts := []model.AccountConfig{{Name: "Home"}}
	err := FillPasswords(accounts, mapStore{err: errors.New("locked")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Home")
}

func TestAccountKey(t *testing.T) {
	assert.Equal(t, "imap-Gmail", AccountKey("Gmail"))
}
