//go:build !(linux || darwin || freebsd)

package storage

import (
	"errors"
	"runtime"
)

// FreeBytes is not supported on this platform; pass WithMeasure instead.
func FreeBytes(path string) (int64, error) {
	return 0, errors.New("free space measurement not supported on " + runtime.GOOS)
}
