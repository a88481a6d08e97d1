package shuttle

import (
	"path"
	"path/filepath"
)

// LocationKind identifies which side of a transfer a path belongs to.
type LocationKind int

const (
	// KindHost is a path on the host filesystem.
	KindHost LocationKind = iota
	// KindDevice is a path inside an attached device store.
	KindDevice
	// KindAmbiguous is a relative path that matches both a device top-level
	// folder and a directory under the host working directory. Callers must
	// resolve the ambiguity before the path can be used.
	KindAmbiguous
)

func (k LocationKind) String() string {
	switch k {
	case KindHost:
		return "host"
	case KindDevice:
		return "device"
	case KindAmbiguous:
		return "ambiguous"
	default:
		return "unknown"
	}
}

// Location is a classified path. Host paths use the host separator
// conventions; device paths are always slash-separated. Neither carries a
// trailing separator once resolved.
type Location struct {
	Kind LocationKind
	Path string
}

// Child returns the location of a named entry directly under l.
func (l Location) Child(name string) Location {
	if l.Kind == KindDevice {
		return Location{Kind: KindDevice, Path: path.Join(l.Path, name)}
	}
	return Location{Kind: l.Kind, Path: filepath.Join(l.Path, name)}
}

func (l Location) String() string {
	return l.Kind.String() + ":" + l.Path
}
