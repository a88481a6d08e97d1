package shuttle_test

import (
	"errors"
	"testing"

	"shuttle-go/internal/shuttle"
	"shuttle-go/internal/store"
	"shuttle-go/internal/testutil"
)

func newResolver(t *testing.T, mockfs *testutil.MockHostFS, device shuttle.DeviceStore) *shuttle.Resolver {
	t.Helper()
	classifier, err := shuttle.NewClassifier(mockfs, device)
	if err != nil {
		t.Fatalf("NewClassifier() error = %v", err)
	}
	return shuttle.NewResolver(classifier, mockfs, device)
}

// seededDevice returns a device store with a small folder tree:
//
//	Internal storage/
//	  notes.txt
//	  Download/
//	    photo.jpg
func seededDevice(t *testing.T) *store.MemoryStore {
	t.Helper()
	device := store.NewMemoryStore("phone")
	device.AddFolder("Internal storage/Download")
	device.AddFile("Internal storage/Download/photo.jpg", []byte("img"))
	device.AddFile("Internal storage/notes.txt", []byte("n"))
	return device
}

func TestResolveValidation(t *testing.T) {
	t.Parallel()

	t.Run("empty path fails", func(t *testing.T) {
		t.Parallel()
		r := newResolver(t, testutil.NewMockHostFS(), nil)
		for _, p := range []string{"", "   "} {
			_, err := r.Resolve(p, nil, false)
			if !errors.Is(err, shuttle.ErrInvalidArgument) {
				t.Errorf("Resolve(%q) error = %v, want ErrInvalidArgument", p, err)
			}
		}
	})

	t.Run("bare star means the working directory", func(t *testing.T) {
		t.Parallel()
		mockfs := testutil.NewMockHostFS()
		mockfs.AddFile("readme.txt", []byte("r"))
		r := newResolver(t, mockfs, nil)
		src, err := r.Resolve("*", nil, false)
		if err != nil {
			t.Fatalf("Resolve(*) error = %v", err)
		}
		if !src.IsDirectoryMatch {
			t.Errorf("IsDirectoryMatch = false, want true")
		}
		if src.Directory.Kind != shuttle.KindHost || src.Directory.Path != "." {
			t.Errorf("Directory = %v, want host:.", src.Directory)
		}
		if src.FilePattern != "*" {
			t.Errorf("FilePattern = %q, want %q", src.FilePattern, "*")
		}
	})

	t.Run("ambiguous path fails", func(t *testing.T) {
		t.Parallel()
		mockfs := testutil.NewMockHostFS()
		mockfs.AddDir("Internal storage")
		r := newResolver(t, mockfs, seededDevice(t))
		_, err := r.Resolve("Internal storage/Download", nil, false)
		if !errors.Is(err, shuttle.ErrAmbiguousPath) {
			t.Errorf("Resolve() error = %v, want ErrAmbiguousPath", err)
		}
	})

	t.Run("skip flag resolves an ambiguous path on the device", func(t *testing.T) {
		t.Parallel()
		mockfs := testutil.NewMockHostFS()
		mockfs.AddDir("Internal storage")
		r := newResolver(t, mockfs, seededDevice(t))
		src, err := r.Resolve("Internal storage/Download", nil, true)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if src.Directory.Kind != shuttle.KindDevice {
			t.Errorf("kind = %v, want %v", src.Directory.Kind, shuttle.KindDevice)
		}
	})
}

func TestResolveDevice(t *testing.T) {
	t.Parallel()

	resolve := func(t *testing.T, raw string, patterns []string) (*shuttle.ResolvedSource, error) {
		t.Helper()
		r := newResolver(t, testutil.NewMockHostFS(), seededDevice(t))
		return r.Resolve(raw, patterns, false)
	}

	t.Run("file path splits into parent and name", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "Internal storage/Download/photo.jpg", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsFileMatch {
			t.Errorf("IsFileMatch = false, want true")
		}
		if src.Directory.Kind != shuttle.KindDevice || src.Directory.Path != "Internal storage/Download" {
			t.Errorf("Directory = %v, want device:Internal storage/Download", src.Directory)
		}
		if src.FilePattern != "photo.jpg" {
			t.Errorf("FilePattern = %q, want %q", src.FilePattern, "photo.jpg")
		}
	})

	t.Run("folder path resolves as a directory", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "Internal storage/Download", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsDirectoryMatch {
			t.Errorf("IsDirectoryMatch = false, want true")
		}
		if src.Directory.Path != "Internal storage/Download" {
			t.Errorf("Directory.Path = %q, want %q", src.Directory.Path, "Internal storage/Download")
		}
		if src.FilePattern != "*" {
			t.Errorf("FilePattern = %q, want %q", src.FilePattern, "*")
		}
		if src.Folder == nil {
			t.Fatalf("Folder = nil, want a handle")
		}
	})

	t.Run("trailing separator keeps a folder a directory", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "Internal storage/Download/", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsDirectoryMatch {
			t.Errorf("IsDirectoryMatch = false, want true")
		}
	})

	t.Run("trailing separator on a file fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "Internal storage/Download/photo.jpg/", nil)
		if !errors.Is(err, shuttle.ErrNotFound) {
			t.Errorf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("wildcard leaf becomes the file pattern", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "Internal storage/Download/*.jpg", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsFileMatch {
			t.Errorf("IsFileMatch = false, want true")
		}
		if src.FilePattern != "*.jpg" {
			t.Errorf("FilePattern = %q, want %q", src.FilePattern, "*.jpg")
		}
	})

	t.Run("missing leaf becomes the file pattern", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "Internal storage/Download/missing.png", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsFileMatch || src.FilePattern != "missing.png" {
			t.Errorf("got (%v, %q), want file match on %q", src.IsFileMatch, src.FilePattern, "missing.png")
		}
	})

	t.Run("wildcard before the final segment fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "Internal storage/Down*/photo.jpg", nil)
		if !errors.Is(err, shuttle.ErrWildcardInDirectory) {
			t.Errorf("Resolve() error = %v, want ErrWildcardInDirectory", err)
		}
	})

	t.Run("wildcard with trailing separator fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "Internal storage/*/", nil)
		if !errors.Is(err, shuttle.ErrWildcardInDirectory) {
			t.Errorf("Resolve() error = %v, want ErrWildcardInDirectory", err)
		}
	})

	t.Run("missing middle folder fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "Internal storage/Nope/photo.jpg", nil)
		if !errors.Is(err, shuttle.ErrNotFound) {
			t.Errorf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("file in the middle fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "Internal storage/notes.txt/photo.jpg", nil)
		if !errors.Is(err, shuttle.ErrNotFound) {
			t.Errorf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("backslash fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, `Internal storage/Download\photo.jpg`, nil)
		if !errors.Is(err, shuttle.ErrInvalidPathSeparator) {
			t.Errorf("Resolve() error = %v, want ErrInvalidPathSeparator", err)
		}
	})

	t.Run("backslash as the only separator fails", func(t *testing.T) {
		t.Parallel()
		// Without a forward slash the whole path would otherwise read as
		// one host segment and never hit the separator check.
		src, err := resolve(t, `Internal storage\Download`, nil)
		if !errors.Is(err, shuttle.ErrInvalidPathSeparator) {
			t.Errorf("Resolve() = (%+v, %v), want ErrInvalidPathSeparator", src, err)
		}
	})

	t.Run("explicit patterns conflict with a concrete file", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "Internal storage/Download/photo.jpg", []string{"*.pdf"})
		if !errors.Is(err, shuttle.ErrPatternConflict) {
			t.Errorf("Resolve() error = %v, want ErrPatternConflict", err)
		}
	})

	t.Run("star and blank patterns do not conflict", func(t *testing.T) {
		t.Parallel()
		for _, patterns := range [][]string{{"*"}, {""}, {" ", "*"}} {
			src, err := resolve(t, "Internal storage/Download/photo.jpg", patterns)
			if err != nil {
				t.Fatalf("Resolve(patterns %v) error = %v", patterns, err)
			}
			if !src.IsFileMatch {
				t.Errorf("IsFileMatch = false, want true (patterns %v)", patterns)
			}
		}
	})
}

func TestResolveHost(t *testing.T) {
	t.Parallel()

	resolve := func(t *testing.T, raw string, patterns []string) (*shuttle.ResolvedSource, error) {
		t.Helper()
		mockfs := testutil.NewMockHostFS()
		mockfs.AddDir("/data/in")
		mockfs.AddFile("/data/in/a.txt", []byte("aa"))
		r := newResolver(t, mockfs, nil)
		return r.Resolve(raw, patterns, false)
	}

	t.Run("directory resolves whole", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "/data/in", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsDirectoryMatch {
			t.Errorf("IsDirectoryMatch = false, want true")
		}
		if src.Directory.Kind != shuttle.KindHost || src.Directory.Path != "/data/in" {
			t.Errorf("Directory = %v, want host:/data/in", src.Directory)
		}
		if src.FilePattern != "*" {
			t.Errorf("FilePattern = %q, want %q", src.FilePattern, "*")
		}
	})

	t.Run("directory with trailing separator resolves whole", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "/data/in/", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsDirectoryMatch || src.Directory.Path != "/data/in" {
			t.Errorf("got (%v, %q), want directory match on /data/in", src.IsDirectoryMatch, src.Directory.Path)
		}
	})

	t.Run("file splits into parent and name", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "/data/in/a.txt", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsFileMatch {
			t.Errorf("IsFileMatch = false, want true")
		}
		if src.Directory.Path != "/data/in" {
			t.Errorf("Directory.Path = %q, want %q", src.Directory.Path, "/data/in")
		}
		if src.FilePattern != "a.txt" {
			t.Errorf("FilePattern = %q, want %q", src.FilePattern, "a.txt")
		}
	})

	t.Run("wildcard leaf becomes the file pattern", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "/data/in/*.txt", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsFileMatch || src.FilePattern != "*.txt" {
			t.Errorf("got (%v, %q), want file match on %q", src.IsFileMatch, src.FilePattern, "*.txt")
		}
	})

	t.Run("missing leaf under an existing parent is a pattern", func(t *testing.T) {
		t.Parallel()
		src, err := resolve(t, "/data/in/missing.txt", nil)
		if err != nil {
			t.Fatalf("Resolve() error = %v", err)
		}
		if !src.IsFileMatch || src.FilePattern != "missing.txt" {
			t.Errorf("got (%v, %q), want file match on %q", src.IsFileMatch, src.FilePattern, "missing.txt")
		}
	})

	t.Run("missing parent fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "/data/nope/x.txt", nil)
		if !errors.Is(err, shuttle.ErrNotFound) {
			t.Errorf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("trailing separator on a file fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "/data/in/a.txt/", nil)
		if !errors.Is(err, shuttle.ErrNotFound) {
			t.Errorf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("trailing separator on a missing directory fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "/data/nope/", nil)
		if !errors.Is(err, shuttle.ErrNotFound) {
			t.Errorf("Resolve() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("wildcard in the directory part fails", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "/data/*/a.txt", nil)
		if !errors.Is(err, shuttle.ErrWildcardInDirectory) {
			t.Errorf("Resolve() error = %v, want ErrWildcardInDirectory", err)
		}
	})

	t.Run("explicit patterns conflict with a concrete file", func(t *testing.T) {
		t.Parallel()
		_, err := resolve(t, "/data/in/a.txt", []string{"*.pdf"})
		if !errors.Is(err, shuttle.ErrPatternConflict) {
			t.Errorf("Resolve() error = %v, want ErrPatternConflict", err)
		}
	})
}
