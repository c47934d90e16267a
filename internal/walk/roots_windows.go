//go:build windows

package walk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sha1n/mcp-orange-server/internal/pathutil"
	"github.com/shirou/gopsutil/v4/disk"
)

type hostPlatform struct {
	partitions func(all bool) ([]disk.PartitionStat, error)
	logger     *slog.Logger
}

// HostPlatform returns the Platform of the running system: the top-level
// entries of every mounted volume.
func HostPlatform(logger *slog.Logger) Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &hostPlatform{partitions: disk.Partitions, logger: logger}
}

func (p *hostPlatform) HomeSkips(home string) []string {
	return defaultHomeSkips(home)
}

func (p *hostPlatform) Roots(home string) (RootPlan, error) {
	parts, err := p.partitions(false)
	if err != nil {
		return RootPlan{}, fmt.Errorf("failed to list volumes: %w", err)
	}

	var roots []string
	for _, part := range parts {
		volume := pathutil.Normalize(part.Mountpoint)
		entries, err := os.ReadDir(volume)
		if err != nil {
			// Removable drives without media report as partitions but cannot be read.
			p.logger.Debug("Skipping volume that is not ready", "volume", volume, "error", err)
			continue
		}
		for _, e := range entries {
			roots = append(roots, filepath.Join(volume, e.Name()))
		}
	}

	return RootPlan{Roots: roots, Skip: []string{home}}, nil
}
