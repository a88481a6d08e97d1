package shuttle

import "io"

// HostFS abstracts the host filesystem operations the engine needs, so the
// resolution and staging logic is testable without touching disk.
type HostFS interface {
	// Exists reports whether a path exists at all.
	Exists(path string) (bool, error)

	// IsDir reports whether the path exists and is a directory.
	// A missing path is (false, nil), not an error.
	IsDir(path string) (bool, error)

	// Size returns the size of the file at path.
	Size(path string) (int64, error)

	// MkdirAll creates a directory and any missing parents.
	MkdirAll(path string) error

	// Dir returns a folder handle over an existing directory.
	Dir(path string) (FolderHandle, error)

	// Open opens a file for reading.
	Open(path string) (io.ReadCloser, error)

	// Create creates or truncates a file for writing.
	Create(path string) (io.WriteCloser, error)

	// Move moves a file, falling back to copy-and-delete when a plain
	// rename cannot cross the boundary between filesystems.
	Move(src, dst string) error

	// CopyFile copies a single regular file. The destination is written
	// atomically; a partial copy never becomes visible under dst.
	CopyFile(src, dst string) error

	// Remove deletes a file. Removing a path that no longer exists is not
	// an error; a file held open elsewhere may fail transiently.
	Remove(path string) error
}
