package store

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"shuttle-go/internal/shuttle"
)

// newMount lays out a device mount on disk:
//
//	Internal storage/
//	  notes.txt
//	  Download/
//	    photo.jpg
//	loose.txt          (files directly under the mount are not top folders)
func newMount(t *testing.T) string {
	t.Helper()
	mount := t.TempDir()
	if err := os.MkdirAll(filepath.Join(mount, "Internal storage", "Download"), 0755); err != nil {
		t.Fatalf("creating mount layout: %v", err)
	}
	for path, content := range map[string]string{
		"Internal storage/notes.txt":          "some notes",
		"Internal storage/Download/photo.jpg": "jpegbytes",
		"loose.txt":                           "loose",
	} {
		if err := os.WriteFile(filepath.Join(mount, filepath.FromSlash(path)), []byte(content), 0644); err != nil {
			t.Fatalf("writing %s: %v", path, err)
		}
	}
	return mount
}

func dirStoreFolder(t *testing.T, ds *DirStore, p string) shuttle.FolderHandle {
	t.Helper()
	root, err := ds.Root()
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	var folder shuttle.FolderHandle = root
	for _, seg := range strings.Split(p, "/") {
		item, err := folder.ResolveChild(seg)
		if err != nil {
			t.Fatalf("ResolveChild(%q) error = %v", seg, err)
		}
		sub, ok := item.(shuttle.FolderHandle)
		if !ok {
			t.Fatalf("%q did not resolve to a folder", seg)
		}
		folder = sub
	}
	return folder
}

func TestNewDirStore(t *testing.T) {
	t.Parallel()

	t.Run("rejects a missing mount point", func(t *testing.T) {
		t.Parallel()
		if _, err := NewDirStore("phone", filepath.Join(t.TempDir(), "nope")); err == nil {
			t.Errorf("NewDirStore() succeeded on a missing mount, want error")
		}
	})

	t.Run("rejects a file as mount point", func(t *testing.T) {
		t.Parallel()
		f := filepath.Join(t.TempDir(), "file")
		if err := os.WriteFile(f, []byte("x"), 0644); err != nil {
			t.Fatalf("writing file: %v", err)
		}
		if _, err := NewDirStore("phone", f); err == nil {
			t.Errorf("NewDirStore() succeeded on a file, want error")
		}
	})
}

func TestDirStoreTopFolders(t *testing.T) {
	t.Parallel()
	ds, err := NewDirStore("phone", newMount(t))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	got, err := ds.TopFolders()
	if err != nil {
		t.Fatalf("TopFolders() error = %v", err)
	}
	if len(got) != 1 || got[0] != "Internal storage" {
		t.Errorf("TopFolders() = %v, want [Internal storage]", got)
	}
}

func TestDirStoreResolveAndChildren(t *testing.T) {
	t.Parallel()
	ds, err := NewDirStore("phone", newMount(t))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	download := dirStoreFolder(t, ds, "Internal storage/Download")
	if download.Path() != "Internal storage/Download" {
		t.Errorf("Path() = %q, want %q", download.Path(), "Internal storage/Download")
	}

	item, err := download.ResolveChild("photo.jpg")
	if err != nil {
		t.Fatalf("ResolveChild(photo.jpg) error = %v", err)
	}
	if item == nil || item.IsFolder() || item.Size() != int64(len("jpegbytes")) {
		t.Errorf("photo.jpg = %v, want a %d byte file", item, len("jpegbytes"))
	}

	missing, err := download.ResolveChild("absent.jpg")
	if err != nil {
		t.Fatalf("ResolveChild(absent.jpg) error = %v", err)
	}
	if missing != nil {
		t.Errorf("ResolveChild(absent.jpg) = %v, want nil", missing)
	}

	children, err := dirStoreFolder(t, ds, "Internal storage").Children()
	if err != nil {
		t.Fatalf("Children() error = %v", err)
	}
	if len(children) != 2 {
		t.Fatalf("Children() = %d items, want 2", len(children))
	}
}

func TestDirStorePut(t *testing.T) {
	t.Parallel()
	ds, err := NewDirStore("phone", newMount(t))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	folder := dirStoreFolder(t, ds, "Internal storage/Download")

	t.Run("writes and reads back", func(t *testing.T) {
		if err := ds.Put(folder, "new.txt", strings.NewReader("payload"), 7); err != nil {
			t.Fatalf("Put() error = %v", err)
		}
		rc, err := ds.Open(folder, "new.txt")
		if err != nil {
			t.Fatalf("Open() error = %v", err)
		}
		defer rc.Close()
		data, err := io.ReadAll(rc)
		if err != nil {
			t.Fatalf("reading new.txt: %v", err)
		}
		if string(data) != "payload" {
			t.Errorf("content = %q, want %q", data, "payload")
		}
	})

	t.Run("never overwrites", func(t *testing.T) {
		if err := ds.Put(folder, "photo.jpg", strings.NewReader("x"), 1); err == nil {
			t.Errorf("Put() over an existing file succeeded, want error")
		}
	})

	t.Run("size mismatch leaves no partial file", func(t *testing.T) {
		if err := ds.Put(folder, "short.txt", strings.NewReader("ab"), 10); err == nil {
			t.Fatalf("Put() with a short reader succeeded, want error")
		}
		item, err := folder.ResolveChild("short.txt")
		if err != nil {
			t.Fatalf("ResolveChild() error = %v", err)
		}
		if item != nil {
			t.Errorf("partial file became visible after a failed Put")
		}
	})
}

func TestDirStoreCreateFolderAndRemove(t *testing.T) {
	t.Parallel()
	ds, err := NewDirStore("phone", newMount(t))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}

	parent := dirStoreFolder(t, ds, "Internal storage")
	created, err := ds.CreateFolder(parent, "Backup")
	if err != nil {
		t.Fatalf("CreateFolder() error = %v", err)
	}
	if created.Path() != "Internal storage/Backup" {
		t.Errorf("Path() = %q, want %q", created.Path(), "Internal storage/Backup")
	}
	// Existing folders are fine.
	if _, err := ds.CreateFolder(parent, "Backup"); err != nil {
		t.Errorf("CreateFolder() on existing error = %v", err)
	}

	if err := ds.Remove("Internal storage/notes.txt"); err != nil {
		t.Fatalf("Remove() error = %v", err)
	}
	if err := ds.Remove("Internal storage/notes.txt"); err != nil {
		t.Errorf("Remove() of a missing file error = %v, want nil", err)
	}
}

func TestDirStoreRejectsForeignHandles(t *testing.T) {
	t.Parallel()
	ds, err := NewDirStore("phone", newMount(t))
	if err != nil {
		t.Fatalf("NewDirStore() error = %v", err)
	}
	ms := NewMemoryStore("other")
	ms.AddFolder("Internal storage")

	foreign := memStoreFolder(t, ms, "Internal storage")
	if _, err := ds.Open(foreign, "notes.txt"); err == nil {
		t.Errorf("Open() with a foreign handle succeeded, want error")
	}
}
