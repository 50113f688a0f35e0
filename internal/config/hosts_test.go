package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const hostsJSON = `{"hosts":[
	{"alias":"local","host":"127.0.0.1","port":9000},
	{"alias":"Prod","host":"chat.example.com","port":9443},
	{"alias":"LOCAL","host":"10.0.0.1","port":9001}
]}`

func TestFindByAlias(t *testing.T) {
	h, err := ParseHosts([]byte(hostsJSON))
	require.NoError(t, err)

	e, ok := h.FindByAlias("prod")
	require.True(t, ok)
	assert.Equal(t, "chat.example.com", e.Host)
	assert.Equal(t, "chat.example.com:9443", e.Addr())

	e, ok = h.FindByAlias("Local")
	require.True(t, ok)
	assert.Equal(t, "127.0.0.1", e.Host, "first match wins")

	_, ok = h.FindByAlias("staging")
	assert.False(t, ok)
}

func TestParseHostsRejects(t *testing.T) {
	for _, in := range []string{
		`{"hosts":`,
		`{"hosts":[{"alias":"","host":"h","port":1}]}`,
		`{"hosts":[{"alias":"a","host":" ","port":1}]}`,
		`{"hosts":[{"alias":"a","host":"h","port":0}]}`,
		`{"hosts":[{"alias":"a","host":"h","port":70000}]}`,
	} {
		_, err := ParseHosts([]byte(in))
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrInvalid), in)
	}
}

func TestLoadHosts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "hosts.json")
	require.NoError(t, os.WriteFile(path, []byte(hostsJSON), 0o644))
	h, err := LoadHosts(path)
	require.NoError(t, err)
	assert.Len(t, h.Hosts, 3)
}
