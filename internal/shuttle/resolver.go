package shuttle

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ResolvedSource is the canonical form of a raw source path: the directory
// to enumerate and the file pattern to apply to its entries. Exactly one of
// IsDirectoryMatch and IsFileMatch is set.
type ResolvedSource struct {
	// Directory is the classified directory containing the items to
	// transfer.
	Directory Location

	// Folder is the handle for Directory, usable for enumeration without
	// re-walking the path.
	Folder FolderHandle

	// FilePattern selects items inside Directory. It is "*" when the raw
	// path named the directory itself.
	FilePattern string

	// IsDirectoryMatch is set when the raw path resolved to a directory.
	IsDirectoryMatch bool

	// IsFileMatch is set when the final segment of the raw path is a file
	// name or wildcard pattern inside Directory.
	IsFileMatch bool
}

// Resolver turns raw user paths into ResolvedSources. Device paths are
// walked segment by segment against the store's folder hierarchy; host paths
// are probed against the host filesystem.
type Resolver struct {
	classifier *Classifier
	hostfs     HostFS
	device     DeviceStore
}

// NewResolver creates a Resolver. device may be nil when no device store is
// attached; the classifier must have been built for the same store.
func NewResolver(classifier *Classifier, hostfs HostFS, device DeviceStore) *Resolver {
	return &Resolver{
		classifier: classifier,
		hostfs:     hostfs,
		device:     device,
	}
}

// Resolve validates and canonicalizes a raw source path.
//
// A bare "*" is shorthand for the working directory. A trailing separator
// forces the path to resolve as a directory. patterns is only consulted for
// conflict detection: explicit patterns combined with a path that already
// names a concrete file are an error.
func (r *Resolver) Resolve(rawPath string, patterns []string, skipAmbiguityCheck bool) (*ResolvedSource, error) {
	trimmed := strings.TrimSpace(rawPath)
	if trimmed == "" {
		return nil, fmt.Errorf("source path is empty: %w", ErrInvalidArgument)
	}
	if trimmed == "*" {
		trimmed = "."
	}

	loc, err := r.classifier.Classify(trimmed, skipAmbiguityCheck)
	if err != nil {
		return nil, fmt.Errorf("classifying %q: %w", trimmed, err)
	}
	if loc.Kind == KindAmbiguous {
		return nil, fmt.Errorf("%q matches both a device folder and a host directory: %w", trimmed, ErrAmbiguousPath)
	}

	explicit := hasExplicitPatterns(patterns)
	if loc.Kind == KindDevice {
		return r.resolveDevice(trimmed, explicit)
	}
	return r.resolveHost(trimmed, explicit)
}

// resolveDevice walks a device path one segment at a time via ResolveChild.
func (r *Resolver) resolveDevice(p string, explicit bool) (*ResolvedSource, error) {
	if strings.Contains(p, `\`) {
		return nil, fmt.Errorf("device path %q contains a backslash: %w", p, ErrInvalidPathSeparator)
	}

	trailing := strings.HasSuffix(p, "/")
	p = path.Clean(strings.TrimRight(p, "/"))
	segments := strings.Split(p, "/")
	last := len(segments) - 1

	// Wildcards may only appear in the final segment, and a trailing
	// separator makes even the final segment a directory.
	for i, seg := range segments {
		if i == last && !trailing {
			continue
		}
		if containsWildcard(seg) {
			return nil, fmt.Errorf("segment %q of %q: %w", seg, p, ErrWildcardInDirectory)
		}
	}

	folder, err := r.device.Root()
	if err != nil {
		return nil, fmt.Errorf("resolving device root: %w", err)
	}

	for i, seg := range segments {
		item, err := folder.ResolveChild(seg)
		if err != nil {
			return nil, fmt.Errorf("resolving %q on device: %w", p, err)
		}
		isLast := i == last

		if item == nil {
			if !isLast || trailing {
				return nil, fmt.Errorf("device folder %q: %w", path.Join(folder.Path(), seg), ErrNotFound)
			}
			// Unresolved final segment: a wildcard pattern or the
			// name of a file to match inside the parent folder.
			return deviceFileMatch(folder, seg), nil
		}

		sub, ok := item.(FolderHandle)
		if !ok {
			if !isLast || trailing {
				return nil, fmt.Errorf("%q is a file, not a folder: %w", path.Join(folder.Path(), seg), ErrNotFound)
			}
			if explicit {
				return nil, fmt.Errorf("%q already names a file: %w", p, ErrPatternConflict)
			}
			return deviceFileMatch(folder, seg), nil
		}
		folder = sub
	}

	// Every segment resolved as a folder.
	return &ResolvedSource{
		Directory:        Location{Kind: KindDevice, Path: folder.Path()},
		Folder:           folder,
		FilePattern:      "*",
		IsDirectoryMatch: true,
	}, nil
}

func deviceFileMatch(folder FolderHandle, pattern string) *ResolvedSource {
	return &ResolvedSource{
		Directory:   Location{Kind: KindDevice, Path: folder.Path()},
		Folder:      folder,
		FilePattern: pattern,
		IsFileMatch: true,
	}
}

// resolveHost probes a host path directly: an existing directory matches
// whole, anything else splits into (parent directory, leaf pattern).
func (r *Resolver) resolveHost(p string, explicit bool) (*ResolvedSource, error) {
	trailing := strings.HasSuffix(p, "/") || strings.HasSuffix(p, string(os.PathSeparator))
	clean := filepath.Clean(p)

	isDir, err := r.hostfs.IsDir(clean)
	if err != nil {
		return nil, fmt.Errorf("checking directory %q: %w", clean, err)
	}
	if isDir {
		folder, err := r.hostfs.Dir(clean)
		if err != nil {
			return nil, fmt.Errorf("opening directory %q: %w", clean, err)
		}
		return &ResolvedSource{
			Directory:        Location{Kind: KindHost, Path: clean},
			Folder:           folder,
			FilePattern:      "*",
			IsDirectoryMatch: true,
		}, nil
	}

	exists, err := r.hostfs.Exists(clean)
	if err != nil {
		return nil, fmt.Errorf("checking path %q: %w", clean, err)
	}
	if exists {
		if trailing {
			return nil, fmt.Errorf("%q is a file, not a directory: %w", clean, ErrNotFound)
		}
		if explicit {
			return nil, fmt.Errorf("%q already names a file: %w", clean, ErrPatternConflict)
		}
		return r.hostFileMatch(clean)
	}

	if trailing {
		return nil, fmt.Errorf("directory %q: %w", clean, ErrNotFound)
	}

	parent := filepath.Dir(clean)
	if containsWildcard(parent) {
		return nil, fmt.Errorf("directory part %q of %q: %w", parent, clean, ErrWildcardInDirectory)
	}
	parentIsDir, err := r.hostfs.IsDir(parent)
	if err != nil {
		return nil, fmt.Errorf("checking directory %q: %w", parent, err)
	}
	if !parentIsDir {
		return nil, fmt.Errorf("directory %q: %w", parent, ErrNotFound)
	}
	return r.hostFileMatch(clean)
}

// hostFileMatch builds a file-match result for a host path whose final
// segment is the pattern. The parent directory must exist.
func (r *Resolver) hostFileMatch(clean string) (*ResolvedSource, error) {
	parent := filepath.Dir(clean)
	folder, err := r.hostfs.Dir(parent)
	if err != nil {
		return nil, fmt.Errorf("opening directory %q: %w", parent, err)
	}
	return &ResolvedSource{
		Directory:   Location{Kind: KindHost, Path: parent},
		Folder:      folder,
		FilePattern: filepath.Base(clean),
		IsFileMatch: true,
	}, nil
}

// hasExplicitPatterns reports whether the caller supplied real patterns.
// nil, empty, blank entries, and a lone "*" all mean "everything" and are
// not explicit.
func hasExplicitPatterns(patterns []string) bool {
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p != "" && p != "*" {
			return true
		}
	}
	return false
}
