package shuttle

import (
	"fmt"
	"strings"
)

// Classifier decides whether a raw path addresses the host filesystem or an
// attached device store. The device's top-level folder names are fetched once
// at construction, so classifying the same path always yields the same
// answer within a run.
type Classifier struct {
	hostfs     HostFS
	topFolders []string // nil when no device is attached
}

// NewClassifier builds a Classifier for the attached device store.
// device may be nil, in which case every path classifies as host.
func NewClassifier(hostfs HostFS, device DeviceStore) (*Classifier, error) {
	c := &Classifier{hostfs: hostfs}
	if device != nil {
		top, err := device.TopFolders()
		if err != nil {
			return nil, fmt.Errorf("listing device top-level folders: %w", err)
		}
		c.topFolders = top
	}
	return c, nil
}

// Classify determines which side the path addresses.
//
// Paths with a root indicator (leading separator, a drive letter, or a
// leading ".") are always host paths. A relative path whose first segment
// equals a device top-level folder name is a device path; the comparison is
// case-sensitive because device folder namespaces are. When that same
// segment also exists as a directory under the host working directory the
// path is ambiguous and the caller must choose, unless skipAmbiguityCheck is
// set, in which case the device wins.
func (c *Classifier) Classify(path string, skipAmbiguityCheck bool) (Location, error) {
	if len(c.topFolders) == 0 {
		return Location{Kind: KindHost, Path: path}, nil
	}
	if hasRootIndicator(path) {
		return Location{Kind: KindHost, Path: path}, nil
	}

	// The first segment ends at the first slash or backslash. Backslash
	// joined device paths still classify as device; resolution rejects
	// the separator itself.
	first := path
	if i := strings.IndexAny(path, `/\`); i >= 0 {
		first = path[:i]
	}

	onDevice := false
	for _, name := range c.topFolders {
		if name == first {
			onDevice = true
			break
		}
	}
	if !onDevice {
		return Location{Kind: KindHost, Path: path}, nil
	}

	if !skipAmbiguityCheck {
		onHost, err := c.hostSubdirExists(first)
		if err != nil {
			return Location{}, fmt.Errorf("probing working directory for %q: %w", first, err)
		}
		if onHost {
			return Location{Kind: KindAmbiguous, Path: path}, nil
		}
	}

	return Location{Kind: KindDevice, Path: path}, nil
}

// hostSubdirExists reports whether the working directory contains a
// subdirectory with the given name. Host filesystems may fold case, so the
// comparison is case-insensitive.
func (c *Classifier) hostSubdirExists(name string) (bool, error) {
	cwd, err := c.hostfs.Dir(".")
	if err != nil {
		return false, err
	}
	entries, err := cwd.Children()
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsFolder() && strings.EqualFold(e.Name(), name) {
			return true, nil
		}
	}
	return false, nil
}

// hasRootIndicator reports whether the path is anchored on the host side:
// an absolute path, an explicit relative prefix, or a drive letter.
func hasRootIndicator(path string) bool {
	if strings.HasPrefix(path, "/") || strings.HasPrefix(path, ".") {
		return true
	}
	if len(path) >= 2 && path[1] == ':' && isASCIILetter(path[0]) {
		return true
	}
	return false
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
