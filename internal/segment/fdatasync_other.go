//go:build !linux

package segment

import "os"

// datasync falls back to a full fsync on platforms where fdatasync is not available.
func datasync(file *os.File) error {
	return file.Sync()
}
