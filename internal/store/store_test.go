package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/assurance/internal/testutil/testlog"
)

func TestMemoryStore(t *testing.T) {
	testlog.Start(t)
	m := NewMemoryStore()
	_, ok := m.Get("clientid")
	assert.False(t, ok)
	require.NoError(t, m.Set("clientid", "abc"))
	v, ok := m.Get("clientid")
	assert.True(t, ok)
	assert.Equal(t, "abc", v)
	require.NoError(t, m.Delete("clientid"))
	_, ok = m.Get("clientid")
	assert.False(t, ok)
	assert.ErrorIs(t, m.Set("", "x"), ErrEmptyKey)
}

func TestFileStoreRoundTrip(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "nested", "state.toml")
	fs, err := OpenFile(path)
	require.NoError(t, err)
	assert.Empty(t, fs.Keys())

	require.NoError(t, fs.Set("clientid", "3f1c"))
	require.NoError(t, fs.Set("connectedurl", "wss://connect.griffon.adobe.com/client/v1?sessionId=a&token=b"))
	require.NoError(t, fs.Set("sessionid", "s-1"))
	require.NoError(t, fs.Delete("sessionid"))

	reopened, err := OpenFile(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"clientid", "connectedurl"}, reopened.Keys())
	v, ok := reopened.Get("connectedurl")
	require.True(t, ok)
	assert.Equal(t, "wss://connect.griffon.adobe.com/client/v1?sessionId=a&token=b", v)

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "state.toml")
	require.NoError(t, os.WriteFile(path, []byte("clientid = [unterminated"), 0o600))
	_, err := OpenFile(path)
	assert.Error(t, err)
}
