//go:build windows

package walk

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/shirou/gopsutil/v4/disk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHostPlatform_RootsSkipsUnreadyVolume(t *testing.T) {
	volume := t.TempDir()
	for _, name := range []string{"Program Files", "Users", "Windows"} {
		require.NoError(t, os.Mkdir(filepath.Join(volume, name), 0755))
	}
	missing := filepath.Join(t.TempDir(), "no-media")

	p := &hostPlatform{
		partitions: func(all bool) ([]disk.PartitionStat, error) {
			assert.False(t, all)
			return []disk.PartitionStat{
				{Mountpoint: missing, Fstype: "UDF"},
				{Mountpoint: volume, Fstype: "NTFS"},
			}, nil
		},
		logger: slog.Default(),
	}

	home := filepath.Join(volume, "Users", "alice")
	plan, err := p.Roots(home)
	require.NoError(t, err)

	assert.Equal(t, []string{
		filepath.Join(volume, "Program Files"),
		filepath.Join(volume, "Users"),
		filepath.Join(volume, "Windows"),
	}, plan.Roots)
	assert.Equal(t, []string{home}, plan.Skip)
}

func TestHostPlatform_PartitionError(t *testing.T) {
	p := &hostPlatform{
		partitions: func(bool) ([]disk.PartitionStat, error) {
			return nil, errors.New("access denied")
		},
		logger: slog.Default(),
	}

	_, err := p.Roots(`C:\Users\alice`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to list volumes")
}

func TestHostPlatform_HomeSkips(t *testing.T) {
	skips := HostPlatform(nil).HomeSkips(`C:\Users\alice`)
	assert.Contains(t, skips, `C:\Users\alice\Library\Calendars`)
}
