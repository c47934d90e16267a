package exclusion

import (
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func skipOnWindows(t *testing.T) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("unix path fixtures")
	}
}

func TestValidatePrefix(t *testing.T) {
	skipOnWindows(t)

	tests := []struct {
		name    string
		in      string
		want    string
		wantErr error
	}{
		{name: "absolute", in: "/tmp", want: "/tmp"},
		{name: "trailing separator", in: "/var/cache/", want: "/var/cache"},
		{name: "whitespace", in: "  /opt  ", want: "/opt"},
		{name: "root", in: "/", wantErr: ErrRootExcluded},
		{name: "root with dots", in: "/tmp/..", wantErr: ErrRootExcluded},
		{name: "relative", in: "tmp", wantErr: ErrNotAbsolute},
		{name: "empty", in: "", wantErr: ErrEmpty},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ValidatePrefix(tt.in)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_Matches(t *testing.T) {
	skipOnWindows(t)

	p, err := NewPolicy(nil, "/tmp", "/home/user/.cache")
	require.NoError(t, err)

	assert.True(t, p.Matches("/tmp"))
	assert.True(t, p.Matches("/tmp/a.txt"))
	assert.True(t, p.Matches("/home/user/.cache/thumbs"))
	assert.False(t, p.Matches("/home/user/b.txt"))
	assert.False(t, p.Matches("/"))
}

func TestNewPolicy_RejectsRoot(t *testing.T) {
	skipOnWindows(t)

	_, err := NewPolicy(nil, "/tmp", "/")
	require.ErrorIs(t, err, ErrRootExcluded)
}

func TestNewPolicy_DeduplicatesPrefixes(t *testing.T) {
	skipOnWindows(t)

	p, err := NewPolicy(nil, "/tmp", "/tmp/", "/opt")
	require.NoError(t, err)
	assert.Equal(t, []string{"/tmp", "/opt"}, p.List())
}

func TestPolicy_AddAndRemove(t *testing.T) {
	skipOnWindows(t)

	p, err := NewPolicy(nil)
	require.NoError(t, err)

	added, err := p.Add("/srv/data/")
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", added)
	assert.True(t, p.Matches("/srv/data/x"))

	_, err = p.Add("/srv/data")
	require.ErrorIs(t, err, ErrDuplicate)

	_, err = p.Add("/")
	require.ErrorIs(t, err, ErrRootExcluded)

	removed, err := p.Remove("/srv/data")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, p.Matches("/srv/data/x"))

	removed, err = p.Remove("/srv/data")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestPolicy_ListReturnsCopy(t *testing.T) {
	skipOnWindows(t)

	p, err := NewPolicy(nil, "/tmp")
	require.NoError(t, err)

	list := p.List()
	list[0] = "/mutated"
	assert.Equal(t, []string{"/tmp"}, p.List())
}

func TestPolicy_PersistsMutations(t *testing.T) {
	skipOnWindows(t)

	file := NewFile(filepath.Join(t.TempDir(), SettingsFilename))
	p, err := NewPolicy(file)
	require.NoError(t, err)

	_, err = p.Add("/tmp")
	require.NoError(t, err)
	_, err = p.Add("/var/log")
	require.NoError(t, err)
	_, err = p.Remove("/tmp")
	require.NoError(t, err)

	loaded, err := file.Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"/var/log"}, loaded)
}

func TestPolicy_AddRollsBackWhenPersistFails(t *testing.T) {
	skipOnWindows(t)

	// A directory where the settings file should be makes the rename fail.
	dir := t.TempDir()
	settingsPath := filepath.Join(dir, SettingsFilename)
	require.NoError(t, mkdir(settingsPath))

	p, err := NewPolicy(NewFile(settingsPath))
	require.NoError(t, err)

	_, err = p.Add("/tmp")
	require.Error(t, err)
	assert.Empty(t, p.List())
	assert.False(t, p.Matches("/tmp/a"))
}

func TestPolicy_ConcurrentReadsDuringMutation(t *testing.T) {
	skipOnWindows(t)

	p, err := NewPolicy(nil, "/base")
	require.NoError(t, err)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for range 4 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				// The base prefix is never removed, so it must always match.
				if !p.Matches("/base/file") {
					t.Error("base prefix lost during concurrent mutation")
					return
				}
				for _, prefix := range p.List() {
					if prefix == "" {
						t.Error("observed empty prefix")
						return
					}
				}
			}
		}()
	}

	for i := range 200 {
		path := filepath.Join("/extra", string(rune('a'+i%26)))
		_, _ = p.Add(path)
		_, _ = p.Remove(path)
	}
	close(stop)
	wg.Wait()
}

func TestAny(t *testing.T) {
	skipOnWindows(t)

	p, err := NewPolicy(nil, "/tmp")
	require.NoError(t, err)
	patterns, err := NewPatterns([]string{"**/node_modules"})
	require.NoError(t, err)

	var nilPatterns *Patterns
	m := Any(p, patterns, nilPatterns, nil)

	assert.True(t, m.Matches("/tmp/x"))
	assert.True(t, m.Matches("/home/user/app/node_modules"))
	assert.False(t, m.Matches("/home/user/app/src"))
}

// blockingSave returns a save hook that signals entry and then waits for release.
func blockingSave(entered chan<- struct{}, release <-chan struct{}, save func([]string) error) func([]string) error {
	return func(prefixes []string) error {
		entered <- struct{}{}
		<-release
		if save == nil {
			return nil
		}
		return save(prefixes)
	}
}

func TestPolicy_MatchesDoesNotWaitForPersist(t *testing.T) {
	skipOnWindows(t)

	p, err := NewPolicy(nil, "/base")
	require.NoError(t, err)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	p.save = blockingSave(entered, release, nil)

	added := make(chan error, 1)
	go func() {
		_, err := p.Add("/extra")
		added <- err
	}()
	<-entered

	matched := make(chan bool, 1)
	go func() { matched <- p.Matches("/base/file") }()
	select {
	case ok := <-matched:
		assert.True(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("Matches blocked while the settings file was being written")
	}
	assert.False(t, p.Matches("/extra/file"), "the new prefix is visible only after it is persisted")

	close(release)
	require.NoError(t, <-added)
	assert.True(t, p.Matches("/extra/file"))
}

func TestPolicy_Reload(t *testing.T) {
	skipOnWindows(t)

	file := NewFile(filepath.Join(t.TempDir(), SettingsFilename))
	p, err := NewPolicy(file, "/tmp")
	require.NoError(t, err)
	_, err = p.Add("/srv")
	require.NoError(t, err)

	changed, err := p.Reload(file)
	require.NoError(t, err)
	assert.False(t, changed, "the file holds what Add persisted")

	require.NoError(t, os.WriteFile(file.Path(), []byte("exclude_paths = [\"/opt\"]\n"), 0644))
	changed, err = p.Reload(file)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, []string{"/opt"}, p.List())
}

func TestPolicy_ReloadWaitsForInFlightAdd(t *testing.T) {
	skipOnWindows(t)

	file := NewFile(filepath.Join(t.TempDir(), SettingsFilename))
	require.NoError(t, file.Save([]string{"/tmp"}))
	p, err := NewPolicy(file, "/tmp")
	require.NoError(t, err)

	entered := make(chan struct{}, 1)
	release := make(chan struct{})
	p.save = blockingSave(entered, release, file.Save)

	added := make(chan error, 1)
	go func() {
		_, err := p.Add("/srv")
		added <- err
	}()
	<-entered

	reloaded := make(chan error, 1)
	go func() {
		_, err := p.Reload(file)
		reloaded <- err
	}()
	select {
	case <-reloaded:
		t.Fatal("Reload ran while an Add was being persisted")
	case <-time.After(100 * time.Millisecond):
	}

	close(release)
	require.NoError(t, <-added)
	require.NoError(t, <-reloaded)
	assert.Equal(t, []string{"/tmp", "/srv"}, p.List())
}
