package fsys

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/henderiw/logger/log"
)

// EnsureDir creates the directory joined from elems when it is missing.
// An existing path that is not a directory is an error.
func EnsureDir(ctx context.Context, elems ...string) error {
	log := log.FromContext(ctx)
	dir := filepath.Join(elems...)
	fi, err := os.Stat(dir)
	switch {
	case err == nil && fi.IsDir():
		return nil
	case err == nil:
		return fmt.Errorf("expecting directory: %s", dir)
	case !os.IsNotExist(err):
		return err
	}
	log.Debug("create dir", "path", dir)
	return os.MkdirAll(dir, 0755)
}

// FileExists is true when path exists and is not a directory.
func FileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && !fi.IsDir()
}

// ForFile returns a disk FS rooted at the directory holding path together
// with the name of the file in that FS.
func ForFile(path string) (FS, string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, "", err
	}
	return NewDiskFS(filepath.Dir(abs)), filepath.Base(abs), nil
}
