//go:build !windows

package walk

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sha1n/mcp-orange-server/internal/pathutil"
	"github.com/shirou/gopsutil/v4/disk"
)

// pseudoFilesystems are kernel and virtual filesystems whose entries are not
// user files. tmpfs is deliberately absent: /tmp and /run/user hold real files.
var pseudoFilesystems = map[string]bool{
	"proc":        true,
	"sysfs":       true,
	"devtmpfs":    true,
	"devpts":      true,
	"cgroup":      true,
	"cgroup2":     true,
	"pstore":      true,
	"securityfs":  true,
	"debugfs":     true,
	"tracefs":     true,
	"configfs":    true,
	"bpf":         true,
	"nsfs":        true,
	"autofs":      true,
	"fusectl":     true,
	"mqueue":      true,
	"hugetlbfs":   true,
	"binfmt_misc": true,
	"devfs":       true,
}

type hostPlatform struct {
	root       string
	partitions func(all bool) ([]disk.PartitionStat, error)
	logger     *slog.Logger
}

// HostPlatform returns the Platform of the running system: every child of "/".
func HostPlatform(logger *slog.Logger) Platform {
	if logger == nil {
		logger = slog.Default()
	}
	return &hostPlatform{root: "/", partitions: disk.Partitions, logger: logger}
}

func (p *hostPlatform) HomeSkips(home string) []string {
	return defaultHomeSkips(home)
}

func (p *hostPlatform) Roots(home string) (RootPlan, error) {
	entries, err := os.ReadDir(p.root)
	if err != nil {
		return RootPlan{}, fmt.Errorf("failed to list %s: %w", p.root, err)
	}

	roots := make([]string, 0, len(entries))
	for _, e := range entries {
		roots = append(roots, filepath.Join(p.root, e.Name()))
	}

	skip := []string{
		home,
		filepath.Join(p.root, "proc"),
		filepath.Join(p.root, "System", "Volumes", "Data", "Users", pathutil.UserName(home)),
	}
	skip = append(skip, p.pseudoMounts()...)

	return RootPlan{Roots: roots, Skip: skip}, nil
}

// pseudoMounts returns mountpoints of virtual filesystems. A failure to list
// partitions is not fatal: the static skip list still applies.
func (p *hostPlatform) pseudoMounts() []string {
	parts, err := p.partitions(true)
	if err != nil {
		p.logger.Warn("Failed to list mounted filesystems", "error", err)
		return nil
	}

	var mounts []string
	for _, part := range parts {
		if pseudoFilesystems[part.Fstype] && !pathutil.IsRoot(part.Mountpoint) {
			mounts = append(mounts, pathutil.Normalize(part.Mountpoint))
		}
	}
	return mounts
}
