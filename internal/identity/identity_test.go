package identity

import (
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danmuck/assurance/internal/store"
	"github.com/danmuck/assurance/internal/testutil/testlog"
)

func TestGetOrCreateIsStable(t *testing.T) {
	testlog.Start(t)
	p := NewProvider(store.NewMemoryStore())
	first, err := p.GetOrCreate()
	require.NoError(t, err)
	_, err = uuid.Parse(first)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id, err := p.GetOrCreate()
			assert.NoError(t, err)
			assert.Equal(t, first, id)
		}()
	}
	wg.Wait()
}

func TestGetOrCreateSurvivesRestart(t *testing.T) {
	testlog.Start(t)
	path := filepath.Join(t.TempDir(), "state.toml")
	fs, err := store.OpenFile(path)
	require.NoError(t, err)
	id, err := NewProvider(fs).GetOrCreate()
	require.NoError(t, err)

	reopened, err := store.OpenFile(path)
	require.NoError(t, err)
	again, err := NewProvider(reopened).GetOrCreate()
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

type failingStore struct{ store.Store }

func (failingStore) Get(string) (string, bool) { return "", false }
func (failingStore) Set(string, string) error  { return errors.New("disk full") }

func TestGetOrCreateReportsPersistFailure(t *testing.T) {
	testlog.Start(t)
	_, err := NewProvider(failingStore{}).GetOrCreate()
	assert.ErrorContains(t, err, "disk full")
}
