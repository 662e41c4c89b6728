// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package fsutil

import (
	"bufio"
	"os"
	"slices"
	"strings"

	"github.com/ManuGH/plutosync/internal/log"
	"golang.org/x/sys/unix"
)

// Storage path defaults.
const (
	DefaultStorageRoot = "/tmp"
	MinStorageFree     = 500 * 1000 * 1000
	minAbsoluteFree    = 100 * 1000 * 1000
)

// DefaultStorageCandidates are the receiver mount points probed in order.
var DefaultStorageCandidates = []string{"/media/hdd", "/media/usb", "/media/cf", "/media/mmc"}

// StorageFinder picks a writable mount with enough free space.
type StorageFinder struct {
	MountsFile string                            // defaults to /proc/mounts
	FreeBytes  func(path string) (uint64, error) // defaults to statfs
}

// FindStoragePath returns the first candidate that is a mount point with
// more than minFree (and at least 100 MB) available, else def.
func (f StorageFinder) FindStoragePath(minFree uint64, def string, candidates ...string) string {
	logger := log.WithComponent("storage")

	mountsFile := f.MountsFile
	if mountsFile == "" {
		mountsFile = "/proc/mounts"
	}
	free := f.FreeBytes
	if free == nil {
		free = statfsFree
	}

	mounts, err := readMountPoints(mountsFile)
	if err != nil {
		logger.Warn().Err(err).Str(log.FieldEvent, "storage.mounts_unreadable").Msg("using default storage path")
		return def
	}

	for _, c := range candidates {
		if !slices.Contains(mounts, c) {
			continue
		}
		n, err := free(c)
		if err != nil {
			logger.Warn().Err(err).Str(log.FieldPath, c).Str(log.FieldEvent, "storage.statfs_failed").Msg("cannot read filesystem status")
			continue
		}
		if n > minFree && n > minAbsoluteFree {
			logger.Info().Str(log.FieldPath, c).Uint64("free", n).Str(log.FieldEvent, "storage.selected").Msg("storage mount selected")
			return c
		}
		logger.Info().Str(log.FieldPath, c).Uint64("free", n).Str(log.FieldEvent, "storage.insufficient").Msg("storage mount has insufficient free space")
	}
	return def
}

// FindStoragePath probes the default candidates on the local system.
func FindStoragePath(minFree uint64, def string) string {
	return StorageFinder{}.FindStoragePath(minFree, def, DefaultStorageCandidates...)
}

func readMountPoints(path string) ([]string, error) {
	f, err := os.Open(path) // #nosec G304 -- fixed system file or test fixture
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var out []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) >= 2 {
			out = append(out, fields[1])
		}
	}
	return out, sc.Err()
}

func statfsFree(path string) (uint64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return st.Bavail * uint64(st.Bsize), nil
}
