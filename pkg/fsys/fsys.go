package fsys

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"testing/fstest"
)

// FS is the file system abstraction used by the stack file, the values file,
// the state record and the directory output sink. Paths are slash separated
// and relative to the root of the FS.
type FS interface {
	// Readfile returns the content of a given file
	ReadFile(path string) ([]byte, error)

	// WriteFile writes the data to a file at the given path,
	// it overwrites existing content and creates missing directories
	WriteFile(path string, data []byte, perm fs.FileMode) error

	// Walk walks the file system with the given WalkDirFunc.
	Walk(path string, walkFn fs.WalkDirFunc) error

	// Exists is true if the path exists in the file system.
	Exists(path string) bool

	// Glob returns the list of matching files, see fs.Glob
	Glob(pattern string) ([]string, error)

	MkdirAll(path string) error

	Remove(path string) error
}

// NewMemFS returns an in memory FS backed by files. The root path is only
// informational.
func NewMemFS(rootPath string, files fstest.MapFS) FS {
	if files == nil {
		files = fstest.MapFS{}
	}
	return &memFS{rootPath: rootPath, files: files}
}

// NewDiskFS returns an FS rooted at the directory root.
func NewDiskFS(root string) FS {
	return &diskFS{root: root, FS: os.DirFS(root)}
}

// readonly operations shared by both implementations
type readFS struct {
	fs.FS
}

func (r readFS) ReadFile(p string) ([]byte, error) { return fs.ReadFile(r.FS, p) }

func (r readFS) Walk(p string, walkFn fs.WalkDirFunc) error { return fs.WalkDir(r.FS, p, walkFn) }

func (r readFS) Glob(pattern string) ([]string, error) { return fs.Glob(r.FS, pattern) }

func (r readFS) Exists(p string) bool {
	_, err := fs.Stat(r.FS, p)
	return err == nil
}

type diskFS struct {
	root string
	fs.FS
}

func (r *diskFS) ro() readFS { return readFS{FS: r.FS} }

func (r *diskFS) ReadFile(p string) ([]byte, error)          { return r.ro().ReadFile(p) }
func (r *diskFS) Walk(p string, walkFn fs.WalkDirFunc) error { return r.ro().Walk(p, walkFn) }
func (r *diskFS) Glob(pattern string) ([]string, error)      { return r.ro().Glob(pattern) }
func (r *diskFS) Exists(p string) bool                       { return r.ro().Exists(p) }

func (r *diskFS) abs(p string) string {
	return filepath.Join(r.root, filepath.FromSlash(p))
}

func (r *diskFS) WriteFile(p string, data []byte, perm fs.FileMode) error {
	if dir := path.Dir(p); dir != "." {
		if err := r.MkdirAll(dir); err != nil {
			return err
		}
	}
	return os.WriteFile(r.abs(p), data, perm)
}

func (r *diskFS) MkdirAll(p string) error {
	return os.MkdirAll(r.abs(p), 0755)
}

func (r *diskFS) Remove(p string) error {
	return os.Remove(r.abs(p))
}

type memFS struct {
	rootPath string
	files    fstest.MapFS
}

func (r *memFS) ro() readFS { return readFS{FS: r.files} }

func (r *memFS) ReadFile(p string) ([]byte, error)          { return r.ro().ReadFile(p) }
func (r *memFS) Walk(p string, walkFn fs.WalkDirFunc) error { return r.ro().Walk(p, walkFn) }
func (r *memFS) Glob(pattern string) ([]string, error)      { return r.ro().Glob(pattern) }
func (r *memFS) Exists(p string) bool                       { return r.ro().Exists(p) }

func (r *memFS) WriteFile(p string, data []byte, perm fs.FileMode) error {
	r.files[p] = &fstest.MapFile{Data: data, Mode: perm}
	return nil
}

// MkdirAll is a noop, directories are implicit in a map fs.
func (r *memFS) MkdirAll(p string) error { return nil }

func (r *memFS) Remove(p string) error {
	if _, ok := r.files[p]; !ok {
		return &fs.PathError{Op: "remove", Path: p, Err: fs.ErrNotExist}
	}
	delete(r.files, p)
	return nil
}
