package shuttle

// ItemHandle describes a single entry inside a folder, on either side of a
// transfer. Handles are cheap descriptors; they hold no open resources.
type ItemHandle interface {
	Name() string
	IsFolder() bool
	Size() int64
}

// FolderHandle is an ItemHandle that can be descended into. Implementations
// exist per backend (host directory, device folder) and are produced by the
// backend that owns them; handles from one backend must not be passed to
// another.
type FolderHandle interface {
	ItemHandle

	// Path returns the folder's full path in its backend's conventions.
	Path() string

	// ResolveChild looks up a direct child by exact name. It returns
	// (nil, nil) when no such child exists. When the child is itself a
	// folder, the returned ItemHandle also implements FolderHandle.
	ResolveChild(name string) (ItemHandle, error)

	// Children enumerates the folder's direct entries.
	Children() ([]ItemHandle, error)
}
