package store

import (
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"sort"

	"shuttle-go/internal/shuttle"
)

// DirStore is a DeviceStore over a device mounted as a host directory, such
// as a gvfs MTP mount or a USB drive. Store paths are relative to the mount
// point and always slash-separated:
//
//	<mount>/
//	  Internal storage/
//	    Download/
//	      photo.jpg    -> store path "Internal storage/Download/photo.jpg"
type DirStore struct {
	name string
	root string
}

// NewDirStore creates a store over the given mount point. The mount point
// must exist and be a directory, otherwise the device counts as detached.
func NewDirStore(name, root string) (*DirStore, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("device mount not accessible: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("device mount is not a directory: %s", root)
	}
	return &DirStore{name: name, root: root}, nil
}

// Name identifies the store in configs and logs.
func (s *DirStore) Name() string { return s.name }

// abs maps a store path onto the host filesystem.
func (s *DirStore) abs(storePath string) string {
	return filepath.Join(s.root, filepath.FromSlash(storePath))
}

// TopFolders returns the names of the directories directly under the mount.
func (s *DirStore) TopFolders() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("reading device mount: %w", err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// Root returns the handle the top-level folders hang off.
func (s *DirStore) Root() (shuttle.FolderHandle, error) {
	return &dirFolder{store: s, path: ""}, nil
}

// CreateFolder creates a named subfolder under parent.
func (s *DirStore) CreateFolder(parent shuttle.FolderHandle, name string) (shuttle.FolderHandle, error) {
	ph, err := s.ownHandle(parent)
	if err != nil {
		return nil, err
	}

	storePath := path.Join(ph.path, name)
	if err := os.Mkdir(s.abs(storePath), 0755); err != nil && !os.IsExist(err) {
		return nil, fmt.Errorf("creating device folder %s: %w", storePath, err)
	}
	return &dirFolder{store: s, path: storePath}, nil
}

// Open opens the named file in folder for reading.
func (s *DirStore) Open(folder shuttle.FolderHandle, name string) (io.ReadCloser, error) {
	fh, err := s.ownHandle(folder)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(s.abs(path.Join(fh.path, name)))
	if err != nil {
		return nil, fmt.Errorf("opening device file: %w", err)
	}
	return f, nil
}

// Put streams r into a new file in folder using an atomic write (temp file
// plus rename), verifying the byte count.
func (s *DirStore) Put(folder shuttle.FolderHandle, name string, r io.Reader, size int64) error {
	fh, err := s.ownHandle(folder)
	if err != nil {
		return err
	}

	destPath := s.abs(path.Join(fh.path, name))
	if _, err := os.Stat(destPath); err == nil {
		return fmt.Errorf("file already exists: %s", path.Join(fh.path, name))
	}

	dir := filepath.Dir(destPath)
	tmpFile, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	written, err := io.Copy(tmpFile, r)
	if err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if written != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, written)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

// Remove deletes the file at the given store path. A path that no longer
// exists is not an error.
func (s *DirStore) Remove(storePath string) error {
	if err := os.Remove(s.abs(storePath)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing device file %s: %w", storePath, err)
	}
	return nil
}

// ownHandle verifies a handle was produced by this store.
func (s *DirStore) ownHandle(h shuttle.FolderHandle) (*dirFolder, error) {
	fh, ok := h.(*dirFolder)
	if !ok || fh.store != s {
		return nil, fmt.Errorf("folder handle does not belong to store %q", s.name)
	}
	return fh, nil
}

// dirFolder is a FolderHandle over a folder inside the mount.
type dirFolder struct {
	store *DirStore
	path  string // store path, "" for the root
}

func (f *dirFolder) Name() string {
	if f.path == "" {
		return f.store.name
	}
	return path.Base(f.path)
}

func (f *dirFolder) IsFolder() bool { return true }
func (f *dirFolder) Size() int64    { return 0 }
func (f *dirFolder) Path() string   { return f.path }

func (f *dirFolder) ResolveChild(name string) (shuttle.ItemHandle, error) {
	childPath := path.Join(f.path, name)
	info, err := os.Stat(f.store.abs(childPath))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("stat device path %s: %w", childPath, err)
	}
	if info.IsDir() {
		return &dirFolder{store: f.store, path: childPath}, nil
	}
	return &dirItem{name: name, size: info.Size()}, nil
}

func (f *dirFolder) Children() ([]shuttle.ItemHandle, error) {
	entries, err := os.ReadDir(f.store.abs(f.path))
	if err != nil {
		return nil, fmt.Errorf("reading device folder %s: %w", f.path, err)
	}

	items := make([]shuttle.ItemHandle, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			items = append(items, &dirFolder{store: f.store, path: path.Join(f.path, entry.Name())})
			continue
		}
		if !entry.Type().IsRegular() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat %s: %w", entry.Name(), err)
		}
		items = append(items, &dirItem{name: entry.Name(), size: info.Size()})
	}
	return items, nil
}

// dirItem is an ItemHandle for a file inside the mount.
type dirItem struct {
	name string
	size int64
}

func (i *dirItem) Name() string   { return i.name }
func (i *dirItem) IsFolder() bool { return false }
func (i *dirItem) Size() int64    { return i.size }

// Compile-time checks against the shuttle interfaces
var (
	_ shuttle.DeviceStore  = (*DirStore)(nil)
	_ shuttle.FolderHandle = (*dirFolder)(nil)
	_ shuttle.ItemHandle   = (*dirItem)(nil)
)
