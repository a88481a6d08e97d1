package shuttle

import "io"

// DeviceStore is an attached external store with its own folder hierarchy,
// addressed by slash-separated paths below a flat set of top-level folders.
// Typical backends are an MTP-style mount or an object store; enumeration is
// assumed slow and item access is stream-oriented.
//
// Deleting while another process holds the file open may fail transiently;
// callers retry through the CleanupCoordinator rather than blocking.
type DeviceStore interface {
	// Name identifies the store in configs and logs.
	Name() string

	// TopFolders returns the names of the store's top-level folders.
	TopFolders() ([]string, error)

	// Root returns the handle the top-level folders hang off.
	Root() (FolderHandle, error)

	// CreateFolder creates a named subfolder under parent and returns its
	// handle. The parent handle must have been produced by this store.
	CreateFolder(parent FolderHandle, name string) (FolderHandle, error)

	// Open opens the named file in folder for reading.
	Open(folder FolderHandle, name string) (io.ReadCloser, error)

	// Put streams r into a new file with the given name in folder.
	// Existing files are never overwritten; callers allocate a free name
	// first.
	Put(folder FolderHandle, name string, r io.Reader, size int64) error

	// Remove deletes the file at the given store path. Removing a path
	// that no longer exists is not an error.
	Remove(path string) error
}
