package checkpoint

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestWalkKey(t *testing.T) {
	assert.Equal(t, "walk:stat:/usr", WalkKey("/usr"))
}

func TestStore_GetMissing(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), Filename))

	value, found, err := s.Get(WalkKey("/usr"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, value)
}

func TestStore_PutAndGet(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), Filename))

	require.NoError(t, s.Put(WalkKey("/usr"), WalkedValue))

	value, found, err := s.Get(WalkKey("/usr"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, WalkedValue, value)
}

func TestStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", Filename)

	s, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(WalkKey("/opt"), WalkedValue))
	require.NoError(t, s.Close())

	reopened := openStore(t, path)
	_, found, err := reopened.Get(WalkKey("/opt"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, path, reopened.Path())
}

func TestStore_KeysAndDeletePrefix(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), Filename))

	require.NoError(t, s.Put(WalkKey("/usr"), WalkedValue))
	require.NoError(t, s.Put(WalkKey("/opt"), WalkedValue))
	require.NoError(t, s.Put(WalkKey("/home/user"), WalkedValue))
	require.NoError(t, s.Put("version", "0.3.0"))

	keys, err := s.Keys(WalkKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, []string{"walk:stat:/home/user", "walk:stat:/opt", "walk:stat:/usr"}, keys)

	deleted, err := s.DeletePrefix(WalkKeyPrefix)
	require.NoError(t, err)
	assert.Equal(t, 3, deleted)

	keys, err = s.Keys(WalkKeyPrefix)
	require.NoError(t, err)
	assert.Empty(t, keys)

	// Keys outside the namespace are untouched.
	value, found, err := s.Get("version")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "0.3.0", value)
}

func TestStore_DeletePrefixEmpty(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), Filename))

	deleted, err := s.DeletePrefix(WalkKeyPrefix)
	require.NoError(t, err)
	assert.Zero(t, deleted)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := openStore(t, filepath.Join(t.TempDir(), Filename))

	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := WalkKey(fmt.Sprintf("/root%d", i))
			if err := s.Put(key, WalkedValue); err != nil {
				t.Errorf("Put failed: %v", err)
				return
			}
			if _, found, err := s.Get(key); err != nil || !found {
				t.Errorf("Get(%s) found=%v err=%v", key, found, err)
			}
		}(i)
	}
	wg.Wait()

	keys, err := s.Keys(WalkKeyPrefix)
	require.NoError(t, err)
	assert.Len(t, keys, 8)
}

func TestStore_ClosedStoreFails(t *testing.T) {
	s, err := Open(filepath.Join(t.TempDir(), Filename))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, _, err = s.Get(WalkKey("/usr"))
	require.Error(t, err)
	require.Error(t, s.Put(WalkKey("/usr"), WalkedValue))
}
