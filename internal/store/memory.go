package store

import (
	"bytes"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"
	"sync"

	"shuttle-go/internal/shuttle"
)

// MemoryStore is an in-memory implementation of the DeviceStore interface.
// It keeps a whole folder tree in memory, which makes it useful for testing
// and as a stand-in device. This implementation is safe for concurrent use.
type MemoryStore struct {
	name   string
	mu     sync.RWMutex
	root   *memFolder
	locked map[string]bool
}

type memFolder struct {
	folders map[string]*memFolder
	files   map[string][]byte
}

func newMemFolder() *memFolder {
	return &memFolder{
		folders: make(map[string]*memFolder),
		files:   make(map[string][]byte),
	}
}

// NewMemoryStore creates a new in-memory store with the given name.
func NewMemoryStore(name string) *MemoryStore {
	return &MemoryStore{
		name:   name,
		root:   newMemFolder(),
		locked: make(map[string]bool),
	}
}

// Name identifies the store in configs and logs.
func (s *MemoryStore) Name() string { return s.name }

// AddFolder creates the folder at the given slash path, including parents.
// Intended for seeding stores in tests.
func (s *MemoryStore) AddFolder(p string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensureFolder(p)
}

// AddFile writes a file at the given slash path, creating parent folders.
// Intended for seeding stores in tests.
func (s *MemoryStore) AddFile(p string, content []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	dir, name := path.Split(p)
	node := s.ensureFolder(strings.TrimSuffix(dir, "/"))
	node.files[name] = content
}

// SetLocked marks a file as held open, so Remove fails until it is released.
// Intended for exercising cleanup retry behavior in tests.
func (s *MemoryStore) SetLocked(p string, locked bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if locked {
		s.locked[p] = true
	} else {
		delete(s.locked, p)
	}
}

// ensureFolder walks to the folder at p, creating missing levels.
// Caller must hold the write lock.
func (s *MemoryStore) ensureFolder(p string) *memFolder {
	node := s.root
	if p == "" || p == "." {
		return node
	}
	for _, seg := range strings.Split(p, "/") {
		child, ok := node.folders[seg]
		if !ok {
			child = newMemFolder()
			node.folders[seg] = child
		}
		node = child
	}
	return node
}

// lookup returns the folder node at p, or nil. Caller must hold a lock.
func (s *MemoryStore) lookup(p string) *memFolder {
	node := s.root
	if p == "" {
		return node
	}
	for _, seg := range strings.Split(p, "/") {
		child, ok := node.folders[seg]
		if !ok {
			return nil
		}
		node = child
	}
	return node
}

// TopFolders returns the names of the store's top-level folders.
func (s *MemoryStore) TopFolders() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.root.folders))
	for name := range s.root.folders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Root returns the handle the top-level folders hang off.
func (s *MemoryStore) Root() (shuttle.FolderHandle, error) {
	return &memFolderHandle{store: s, path: ""}, nil
}

// CreateFolder creates a named subfolder under parent. Creating a folder
// that already exists returns its handle.
func (s *MemoryStore) CreateFolder(parent shuttle.FolderHandle, name string) (shuttle.FolderHandle, error) {
	ph, err := s.ownHandle(parent)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.lookup(ph.path)
	if node == nil {
		return nil, fmt.Errorf("folder not found: %s", ph.path)
	}
	if _, exists := node.files[name]; exists {
		return nil, fmt.Errorf("a file named %q already exists in %q", name, ph.path)
	}
	if _, exists := node.folders[name]; !exists {
		node.folders[name] = newMemFolder()
	}
	return &memFolderHandle{store: s, path: path.Join(ph.path, name)}, nil
}

// Open opens the named file in folder for reading.
func (s *MemoryStore) Open(folder shuttle.FolderHandle, name string) (io.ReadCloser, error) {
	fh, err := s.ownHandle(folder)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	node := s.lookup(fh.path)
	if node == nil {
		return nil, fmt.Errorf("folder not found: %s", fh.path)
	}
	data, ok := node.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path.Join(fh.path, name))
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// Put stores a new file in folder. Existing names are never overwritten.
func (s *MemoryStore) Put(folder shuttle.FolderHandle, name string, r io.Reader, size int64) error {
	fh, err := s.ownHandle(folder)
	if err != nil {
		return err
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return fmt.Errorf("failed to read content: %w", err)
	}
	if int64(len(data)) != size {
		return fmt.Errorf("size mismatch: expected %d bytes, got %d", size, len(data))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	node := s.lookup(fh.path)
	if node == nil {
		return fmt.Errorf("folder not found: %s", fh.path)
	}
	if _, exists := node.files[name]; exists {
		return fmt.Errorf("file already exists: %s", path.Join(fh.path, name))
	}
	if _, exists := node.folders[name]; exists {
		return fmt.Errorf("a folder named %q already exists in %q", name, fh.path)
	}
	node.files[name] = data
	return nil
}

// Remove deletes the file at the given store path. A path that no longer
// exists is not an error; a locked file fails until released.
func (s *MemoryStore) Remove(p string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.locked[p] {
		return fmt.Errorf("file is busy: %s", p)
	}

	dir, name := path.Split(p)
	node := s.lookup(strings.TrimSuffix(dir, "/"))
	if node == nil {
		return nil
	}
	delete(node.files, name)
	return nil
}

// ownHandle verifies a handle was produced by this store.
func (s *MemoryStore) ownHandle(h shuttle.FolderHandle) (*memFolderHandle, error) {
	fh, ok := h.(*memFolderHandle)
	if !ok || fh.store != s {
		return nil, fmt.Errorf("folder handle does not belong to store %q", s.name)
	}
	return fh, nil
}

// memFolderHandle is a FolderHandle over a memory store folder.
type memFolderHandle struct {
	store *MemoryStore
	path  string // "" for the root
}

func (h *memFolderHandle) Name() string {
	if h.path == "" {
		return h.store.name
	}
	return path.Base(h.path)
}

func (h *memFolderHandle) IsFolder() bool { return true }
func (h *memFolderHandle) Size() int64    { return 0 }
func (h *memFolderHandle) Path() string   { return h.path }

func (h *memFolderHandle) ResolveChild(name string) (shuttle.ItemHandle, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	node := h.store.lookup(h.path)
	if node == nil {
		return nil, fmt.Errorf("folder not found: %s", h.path)
	}
	if _, ok := node.folders[name]; ok {
		return &memFolderHandle{store: h.store, path: path.Join(h.path, name)}, nil
	}
	if data, ok := node.files[name]; ok {
		return &memItem{name: name, size: int64(len(data))}, nil
	}
	return nil, nil
}

func (h *memFolderHandle) Children() ([]shuttle.ItemHandle, error) {
	h.store.mu.RLock()
	defer h.store.mu.RUnlock()

	node := h.store.lookup(h.path)
	if node == nil {
		return nil, fmt.Errorf("folder not found: %s", h.path)
	}

	items := make([]shuttle.ItemHandle, 0, len(node.folders)+len(node.files))
	for name := range node.folders {
		items = append(items, &memFolderHandle{store: h.store, path: path.Join(h.path, name)})
	}
	for name, data := range node.files {
		items = append(items, &memItem{name: name, size: int64(len(data))})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })
	return items, nil
}

// memItem is an ItemHandle for an in-memory file.
type memItem struct {
	name string
	size int64
}

func (i *memItem) Name() string   { return i.name }
func (i *memItem) IsFolder() bool { return false }
func (i *memItem) Size() int64    { return i.size }

// Compile-time checks against the shuttle interfaces
var (
	_ shuttle.DeviceStore  = (*MemoryStore)(nil)
	_ shuttle.FolderHandle = (*memFolderHandle)(nil)
	_ shuttle.ItemHandle   = (*memItem)(nil)
)
