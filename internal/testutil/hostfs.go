package testutil

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"shuttle-go/internal/shuttle"
)

// MockFile represents one entry in the mock host filesystem.
type MockFile struct {
	Content     []byte
	IsDirectory bool
}

// MockHostFS is an in-memory host filesystem for testing. The cleanup worker
// removes files from another goroutine, so all access is mutex-guarded.
// "." and "/" always exist as directories.
type MockHostFS struct {
	mu         sync.Mutex
	files      map[string]*MockFile
	locked     map[string]bool
	failCopy   map[string]bool
	failCreate map[string]bool
}

// NewMockHostFS creates an empty mock filesystem.
func NewMockHostFS() *MockHostFS {
	return &MockHostFS{
		files:      make(map[string]*MockFile),
		locked:     make(map[string]bool),
		failCopy:   make(map[string]bool),
		failCreate: make(map[string]bool),
	}
}

// AddFile adds a file, creating parent directories as needed.
func (m *MockHostFS) AddFile(path string, content []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.addParents(path)
	m.files[path] = &MockFile{Content: append([]byte(nil), content...)}
}

// AddDir adds a directory, creating parents as needed.
func (m *MockHostFS) AddDir(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	m.addParents(path)
	m.files[path] = &MockFile{IsDirectory: true}
}

// SetLocked marks a file as busy; Remove fails for it until unlocked.
func (m *MockHostFS) SetLocked(path string, locked bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.locked[filepath.Clean(path)] = locked
}

// FailCopy makes CopyFile and Move fail for the given source path.
func (m *MockHostFS) FailCopy(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCopy[filepath.Clean(path)] = true
}

// FailCreate makes Create fail for the given path.
func (m *MockHostFS) FailCreate(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failCreate[filepath.Clean(path)] = true
}

// ReadFile returns a file's content and whether it exists.
func (m *MockHostFS) ReadFile(path string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok || f.IsDirectory {
		return nil, false
	}
	return append([]byte(nil), f.Content...), true
}

// addParents inserts directory entries for every ancestor of path.
// Caller must hold the mutex.
func (m *MockHostFS) addParents(path string) {
	for dir := filepath.Dir(path); dir != "." && dir != "/" && dir != path; dir = filepath.Dir(dir) {
		if _, ok := m.files[dir]; !ok {
			m.files[dir] = &MockFile{IsDirectory: true}
		}
		path = dir
	}
}

// isRoot reports whether path is one of the implicit directories.
func isRoot(path string) bool {
	return path == "." || path == "/"
}

func (m *MockHostFS) Exists(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if isRoot(path) {
		return true, nil
	}
	_, ok := m.files[path]
	return ok, nil
}

func (m *MockHostFS) IsDir(path string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if isRoot(path) {
		return true, nil
	}
	f, ok := m.files[path]
	return ok && f.IsDirectory, nil
}

func (m *MockHostFS) Size(path string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.files[filepath.Clean(path)]
	if !ok || f.IsDirectory {
		return 0, fmt.Errorf("file not found: %s", path)
	}
	return int64(len(f.Content)), nil
}

func (m *MockHostFS) MkdirAll(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if isRoot(path) {
		return nil
	}
	if f, ok := m.files[path]; ok && !f.IsDirectory {
		return fmt.Errorf("not a directory: %s", path)
	}
	m.addParents(path)
	m.files[path] = &MockFile{IsDirectory: true}
	return nil
}

func (m *MockHostFS) Dir(path string) (shuttle.FolderHandle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if !isRoot(path) {
		f, ok := m.files[path]
		if !ok {
			return nil, fmt.Errorf("directory not found: %s", path)
		}
		if !f.IsDirectory {
			return nil, fmt.Errorf("not a directory: %s", path)
		}
	}
	return &mockFolder{fs: m, path: path}, nil
}

func (m *MockHostFS) Open(path string) (io.ReadCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	f, ok := m.files[path]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", path)
	}
	if f.IsDirectory {
		return nil, fmt.Errorf("cannot open directory: %s", path)
	}
	return io.NopCloser(bytes.NewReader(append([]byte(nil), f.Content...))), nil
}

func (m *MockHostFS) Create(path string) (io.WriteCloser, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if m.failCreate[path] {
		return nil, fmt.Errorf("create failed: %s", path)
	}
	return &mockWriter{fs: m, path: path}, nil
}

func (m *MockHostFS) Move(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	if m.failCopy[src] {
		return fmt.Errorf("move failed: %s", src)
	}
	f, ok := m.files[src]
	if !ok || f.IsDirectory {
		return fmt.Errorf("file not found: %s", src)
	}
	m.addParents(dst)
	m.files[dst] = f
	delete(m.files, src)
	return nil
}

func (m *MockHostFS) CopyFile(src, dst string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	src, dst = filepath.Clean(src), filepath.Clean(dst)
	if m.failCopy[src] {
		return fmt.Errorf("copy failed: %s", src)
	}
	f, ok := m.files[src]
	if !ok || f.IsDirectory {
		return fmt.Errorf("file not found: %s", src)
	}
	m.addParents(dst)
	m.files[dst] = &MockFile{Content: append([]byte(nil), f.Content...)}
	return nil
}

func (m *MockHostFS) Remove(path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	path = filepath.Clean(path)
	if m.locked[path] {
		return fmt.Errorf("file is busy: %s", path)
	}
	delete(m.files, path)
	return nil
}

// mockWriter buffers writes and commits the file on Close.
type mockWriter struct {
	fs     *MockHostFS
	path   string
	buf    bytes.Buffer
	closed bool
}

func (w *mockWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }

func (w *mockWriter) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()
	w.fs.addParents(w.path)
	w.fs.files[w.path] = &MockFile{Content: append([]byte(nil), w.buf.Bytes()...)}
	return nil
}

// mockFolder is a FolderHandle over a mock directory.
type mockFolder struct {
	fs   *MockHostFS
	path string
}

func (f *mockFolder) Name() string   { return filepath.Base(f.path) }
func (f *mockFolder) IsFolder() bool { return true }
func (f *mockFolder) Size() int64    { return 0 }
func (f *mockFolder) Path() string   { return f.path }

func (f *mockFolder) ResolveChild(name string) (shuttle.ItemHandle, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()
	child := filepath.Join(f.path, name)
	entry, ok := f.fs.files[child]
	if !ok {
		return nil, nil
	}
	if entry.IsDirectory {
		return &mockFolder{fs: f.fs, path: child}, nil
	}
	return &mockItem{name: name, size: int64(len(entry.Content))}, nil
}

func (f *mockFolder) Children() ([]shuttle.ItemHandle, error) {
	f.fs.mu.Lock()
	defer f.fs.mu.Unlock()

	var items []shuttle.ItemHandle
	for p, entry := range f.fs.files {
		if filepath.Dir(p) != f.path || strings.HasSuffix(p, string(filepath.Separator)) {
			continue
		}
		if p == f.path {
			continue
		}
		if entry.IsDirectory {
			items = append(items, &mockFolder{fs: f.fs, path: p})
		} else {
			items = append(items, &mockItem{name: filepath.Base(p), size: int64(len(entry.Content))})
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name() < items[j].Name() })
	return items, nil
}

// mockItem is an ItemHandle for a mock file.
type mockItem struct {
	name string
	size int64
}

func (i *mockItem) Name() string   { return i.name }
func (i *mockItem) IsFolder() bool { return false }
func (i *mockItem) Size() int64    { return i.size }

// Compile-time checks against the shuttle interfaces
var (
	_ shuttle.HostFS       = (*MockHostFS)(nil)
	_ shuttle.FolderHandle = (*mockFolder)(nil)
	_ shuttle.ItemHandle   = (*mockItem)(nil)
)
