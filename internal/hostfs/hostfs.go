package hostfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"shuttle-go/internal/shuttle"
)

// OSHostFS is the real filesystem implementation of shuttle.HostFS.
// It performs actual filesystem operations using the os package.
type OSHostFS struct{}

// NewOSHostFS creates a host filesystem adapter over the real filesystem.
func NewOSHostFS() *OSHostFS {
	return &OSHostFS{}
}

// Exists reports whether a path exists at all.
func (h *OSHostFS) Exists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return true, nil
}

// IsDir reports whether the path exists and is a directory.
func (h *OSHostFS) IsDir(path string) (bool, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.IsDir(), nil
}

// Size returns the size of the file at path.
func (h *OSHostFS) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// MkdirAll creates a directory and any missing parents.
func (h *OSHostFS) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}
	return nil
}

// Dir returns a folder handle over an existing directory.
func (h *OSHostFS) Dir(path string) (shuttle.FolderHandle, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("not a directory: %s", path)
	}
	return &hostFolder{path: path}, nil
}

// Open opens a file for reading.
func (h *OSHostFS) Open(path string) (io.ReadCloser, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("cannot open directory as file: %s", path)
	}
	return os.Open(path)
}

// Create creates or truncates a file for writing.
func (h *OSHostFS) Create(path string) (io.WriteCloser, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}
	return f, nil
}

// Move moves a file. A plain rename is tried first; when it fails (typically
// crossing a filesystem boundary) the file is copied and the source removed.
func (h *OSHostFS) Move(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	if err := h.CopyFile(src, dst); err != nil {
		return fmt.Errorf("moving %s: %w", src, err)
	}
	if err := os.Remove(src); err != nil {
		return fmt.Errorf("removing %s after copy: %w", src, err)
	}
	return nil
}

// CopyFile copies a single regular file. The data is written to a temp file
// in the destination directory and renamed into place, so a partial copy
// never becomes visible under dst.
func (h *OSHostFS) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()

	dir := filepath.Dir(dst)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := io.Copy(tmpFile, in); err != nil {
		tmpFile.Close()
		return fmt.Errorf("copying %s: %w", src, err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := os.Rename(tmpPath, dst); err != nil {
		return fmt.Errorf("renaming temp file to %s: %w", dst, err)
	}

	success = true
	return nil
}

// Remove deletes a file. A path that no longer exists is not an error.
func (h *OSHostFS) Remove(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// hostFolder is a FolderHandle over a host directory.
type hostFolder struct {
	path string
}

func (f *hostFolder) Name() string   { return filepath.Base(f.path) }
func (f *hostFolder) IsFolder() bool { return true }
func (f *hostFolder) Size() int64    { return 0 }
func (f *hostFolder) Path() string   { return f.path }

// ResolveChild looks up a direct child by name. Missing children are
// (nil, nil).
func (f *hostFolder) ResolveChild(name string) (shuttle.ItemHandle, error) {
	full := filepath.Join(f.path, name)
	info, err := os.Stat(full)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat %s: %w", full, err)
	}
	if info.IsDir() {
		return &hostFolder{path: full}, nil
	}
	return &hostItem{name: name, size: info.Size()}, nil
}

// Children enumerates the directory. Irregular entries (sockets, devices)
// are skipped.
func (f *hostFolder) Children() ([]shuttle.ItemHandle, error) {
	entries, err := os.ReadDir(f.path)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", f.path, err)
	}

	items := make([]shuttle.ItemHandle, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			items = append(items, &hostFolder{path: filepath.Join(f.path, entry.Name())})
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		items = append(items, &hostItem{name: entry.Name(), size: info.Size()})
	}
	return items, nil
}

// hostItem is an ItemHandle for a regular file.
type hostItem struct {
	name string
	size int64
}

func (i *hostItem) Name() string   { return i.name }
func (i *hostItem) IsFolder() bool { return false }
func (i *hostItem) Size() int64    { return i.size }

// Compile-time checks against the shuttle interfaces
var (
	_ shuttle.HostFS       = (*OSHostFS)(nil)
	_ shuttle.FolderHandle = (*hostFolder)(nil)
	_ shuttle.ItemHandle   = (*hostItem)(nil)
)
