//go:build windows

package data

import (
	"os"

	"golang.org/x/sys/windows"

	"homologador/internal/core"
)

// Windows surfaces directory permission problems on CreateFile, so the
// pre-check is a no-op here.
func checkDirWritable(dir string) error {
	return nil
}

func lockExclusive(f *os.File) error {
	ol := new(windows.Overlapped)
	err := windows.LockFileEx(
		windows.Handle(f.Fd()),
		windows.LOCKFILE_EXCLUSIVE_LOCK|windows.LOCKFILE_FAIL_IMMEDIATELY,
		0, 1, 0, ol,
	)
	if err == windows.ERROR_LOCK_VIOLATION {
		return core.ErrDatabaseBusy
	}
	return err
}

func unlockFile(f *os.File) error {
	ol := new(windows.Overlapped)
	return windows.UnlockFileEx(windows.Handle(f.Fd()), 0, 1, 0, ol)
}
