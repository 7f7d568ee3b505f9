package storage

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// FreeBytes returns the bytes available to unprivileged users on the
// filesystem holding path.
func FreeBytes(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}
	return availableBytes(&st), nil
}

// availableBytes counts free blocks in fragment units; Bsize on Linux is the
// preferred I/O size and may differ.
func availableBytes(st *unix.Statfs_t) int64 {
	frsize := int64(st.Frsize)
	if frsize <= 0 {
		frsize = int64(st.Bsize)
	}
	return int64(st.Bavail) * frsize
}
