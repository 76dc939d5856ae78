package storage

import (
	"os"
	"path/filepath"
)

// DiskUsage reports the on-disk size of named storage components
// (question database, snapshot artifact, full-text index, ...).
type DiskUsage struct {
	Components map[string]int64 `json:"components"`
	TotalBytes int64            `json:"totalBytes"`
}

// MeasureDiskUsage sums the size of each named path. A path may be a file or a
// directory (recursively summed); SQLite WAL and shared-memory siblings of a file
// are counted with it. Missing paths contribute 0.
func MeasureDiskUsage(paths map[string]string) (*DiskUsage, error) {
	usage := &DiskUsage{Components: make(map[string]int64, len(paths))}
	for name, p := range paths {
		if p == "" {
			continue
		}
		n, err := DiskUsageBytes(p, p+"-wal", p+"-shm")
		if err != nil {
			return nil, err
		}
		usage.Components[name] = n
		usage.TotalBytes += n
	}
	return usage, nil
}

// DiskUsageBytes returns the total size in bytes of the given paths.
// Missing paths are skipped; errors during walk are returned.
func DiskUsageBytes(paths ...string) (int64, error) {
	var total int64
	for _, p := range paths {
		if p == "" {
			continue
		}
		info, err := os.Stat(p)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return 0, err
		}
		if !info.IsDir() {
			total += info.Size()
			continue
		}
		err = filepath.WalkDir(p, func(_ string, d os.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return nil
			}
			fi, err := d.Info()
			if err != nil {
				return err
			}
			total += fi.Size()
			return nil
		})
		if err != nil {
			return 0, err
		}
	}
	return total, nil
}
