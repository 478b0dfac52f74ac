//go:build linux

package segment

import (
	"os"

	"golang.org/x/sys/unix"
)

// datasync flushes the file data to stable storage without forcing a full metadata update. fdatasync still flushes
// the file size when an append has grown the file, so syncing the data is sufficient for the durability guarantee of
// an append.
func datasync(file *os.File) error {
	return unix.Fdatasync(int(file.Fd()))
}
