package shuttle_test

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"time"

	"shuttle-go/internal/shuttle"
	"shuttle-go/internal/store"
	"shuttle-go/internal/testutil"
)

// routingRemover deletes host records from the mock filesystem and device
// records from the memory store, mirroring the wiring used by the service.
type routingRemover struct {
	mockfs *testutil.MockHostFS
	device *store.MemoryStore
}

func (r *routingRemover) Remove(loc shuttle.Location) error {
	if loc.Kind == shuttle.KindDevice {
		return r.device.Remove(loc.Path)
	}
	return r.mockfs.Remove(loc.Path)
}

type stagerEnv struct {
	mockfs  *testutil.MockHostFS
	device  *store.MemoryStore
	cleanup *shuttle.CleanupCoordinator
	stager  *shuttle.Stager
}

// newStagerEnv builds a stager over /src, /dst, and /stage on the mock host
// filesystem and an "Internal storage" folder on a memory device store.
func newStagerEnv(t *testing.T, enc shuttle.Encryptor) *stagerEnv {
	t.Helper()
	mockfs := testutil.NewMockHostFS()
	mockfs.AddDir("/src")
	mockfs.AddDir("/dst")
	mockfs.AddDir("/stage")

	device := store.NewMemoryStore("phone")
	device.AddFolder("Internal storage")

	cleanup := shuttle.NewCleanupCoordinator(
		&routingRemover{mockfs: mockfs, device: device},
		shuttle.NewNopLogger(), testutil.FixedClock(), time.Millisecond, time.Minute)
	cleanup.Start()

	return &stagerEnv{
		mockfs:  mockfs,
		device:  device,
		cleanup: cleanup,
		stager:  shuttle.NewStager(mockfs, device, enc, cleanup, shuttle.NewNopLogger(), "/stage"),
	}
}

// finish closes the coordinator and returns its stats.
func (e *stagerEnv) finish() shuttle.CleanupStats {
	e.cleanup.Close()
	return e.cleanup.Wait()
}

func hostDir(t *testing.T, mockfs *testutil.MockHostFS, p string) shuttle.FolderHandle {
	t.Helper()
	folder, err := mockfs.Dir(p)
	if err != nil {
		t.Fatalf("Dir(%q) error = %v", p, err)
	}
	return folder
}

// deviceFolder walks a slash path down from the store root.
func deviceFolder(t *testing.T, ms *store.MemoryStore, p string) shuttle.FolderHandle {
	t.Helper()
	root, err := ms.Root()
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
			t.Fatalf("%q is not a folder on the device", seg)
		}
		folder = sub
	}
	return folder
}

func readDeviceFile(t *testing.T, ms *store.MemoryStore, folder shuttle.FolderHandle, name string) []byte {
	t.Helper()
	rc, err := ms.Open(folder, name)
	if err != nil {
		t.Fatalf("Open(%q) error = %v", name, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("reading %q: %v", name, err)
	}
	return data
}

func hostItem(path string, size int64) shuttle.TransferItem {
	name := path[strings.LastIndexByte(path, '/')+1:]
	return shuttle.TransferItem{
		Name:   name,
		Source: shuttle.Location{Kind: shuttle.KindHost, Path: path},
		Size:   size,
	}
}

// decrypted runs sealed content back through the encryptor's unlock path.
func decrypted(t *testing.T, enc shuttle.Encryptor, sealed []byte) string {
	t.Helper()
	ctx, err := enc.Unlock("")
	if err != nil {
		t.Fatalf("Unlock() error = %v", err)
	}
	var plain bytes.Buffer
	if err := ctx.Decrypt(bytes.NewReader(sealed), &plain); err != nil {
		t.Fatalf("Decrypt() error = %v", err)
	}
	return plain.String()
}

func TestStagerHostToHost(t *testing.T) {
	t.Parallel()

	t.Run("copy keeps the source", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.mockfs.AddFile("/src/a.txt", []byte("hello"))

		err := env.stager.Transfer(hostItem("/src/a.txt", 5), hostDir(t, env.mockfs, "/src"),
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindHost, Path: "/dst"}, Folder: hostDir(t, env.mockfs, "/dst")},
			shuttle.ModeCopy, false)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		if got, ok := env.mockfs.ReadFile("/dst/a.txt"); !ok || string(got) != "hello" {
			t.Errorf("/dst/a.txt = (%q, %v), want (hello, true)", got, ok)
		}
		if _, ok := env.mockfs.ReadFile("/src/a.txt"); !ok {
			t.Errorf("source was deleted on a copy")
		}
		if stats := env.finish(); stats.Deleted != 0 {
			t.Errorf("stats.Deleted = %d, want 0 (direct path stages nothing)", stats.Deleted)
		}
	})

	t.Run("move removes the source", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.mockfs.AddFile("/src/a.txt", []byte("hello"))

		err := env.stager.Transfer(hostItem("/src/a.txt", 5), hostDir(t, env.mockfs, "/src"),
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindHost, Path: "/dst"}, Folder: hostDir(t, env.mockfs, "/dst")},
			shuttle.ModeMove, false)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		if got, ok := env.mockfs.ReadFile("/dst/a.txt"); !ok || string(got) != "hello" {
			t.Errorf("/dst/a.txt = (%q, %v), want (hello, true)", got, ok)
		}
		if _, ok := env.mockfs.ReadFile("/src/a.txt"); ok {
			t.Errorf("source still exists after a move")
		}
		env.finish()
	})

	t.Run("collision picks a numbered name", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.mockfs.AddFile("/src/a.txt", []byte("hello"))
		env.mockfs.AddFile("/dst/a.txt", []byte("old"))

		err := env.stager.Transfer(hostItem("/src/a.txt", 5), hostDir(t, env.mockfs, "/src"),
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindHost, Path: "/dst"}, Folder: hostDir(t, env.mockfs, "/dst")},
			shuttle.ModeCopy, false)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		if got, ok := env.mockfs.ReadFile("/dst/a (1).txt"); !ok || string(got) != "hello" {
			t.Errorf("/dst/a (1).txt = (%q, %v), want (hello, true)", got, ok)
		}
		if got, _ := env.mockfs.ReadFile("/dst/a.txt"); string(got) != "old" {
			t.Errorf("existing destination file was overwritten: %q", got)
		}
		env.finish()
	})
}

func TestStagerDeviceTransfers(t *testing.T) {
	t.Parallel()

	t.Run("host to device stages and cleans up", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.mockfs.AddFile("/src/a.txt", []byte("hello"))
		folder := deviceFolder(t, env.device, "Internal storage")

		err := env.stager.Transfer(hostItem("/src/a.txt", 5), hostDir(t, env.mockfs, "/src"),
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindDevice, Path: "Internal storage"}, Folder: folder},
			shuttle.ModeCopy, false)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		if got := readDeviceFile(t, env.device, folder, "a.txt"); string(got) != "hello" {
			t.Errorf("device a.txt = %q, want %q", got, "hello")
		}
		if _, ok := env.mockfs.ReadFile("/src/a.txt"); !ok {
			t.Errorf("source was deleted on a copy")
		}
		stats := env.finish()
		if stats.Deleted != 1 {
			t.Errorf("stats.Deleted = %d, want 1 (the staged copy)", stats.Deleted)
		}
		if _, ok := env.mockfs.ReadFile("/stage/a.txt"); ok {
			t.Errorf("staged copy still present after cleanup")
		}
	})

	t.Run("device to host move cleans the source", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.device.AddFile("Internal storage/b.txt", []byte("data"))
		folder := deviceFolder(t, env.device, "Internal storage")

		item := shuttle.TransferItem{
			Name:   "b.txt",
			Source: shuttle.Location{Kind: shuttle.KindDevice, Path: "Internal storage/b.txt"},
			Size:   4,
		}
		err := env.stager.Transfer(item, folder,
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindHost, Path: "/dst"}, Folder: hostDir(t, env.mockfs, "/dst")},
			shuttle.ModeMove, false)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		if got, ok := env.mockfs.ReadFile("/dst/b.txt"); !ok || string(got) != "data" {
			t.Errorf("/dst/b.txt = (%q, %v), want (data, true)", got, ok)
		}
		stats := env.finish()
		if stats.Deleted != 2 {
			t.Errorf("stats.Deleted = %d, want 2 (staged copy and device source)", stats.Deleted)
		}
		if item, err := folder.ResolveChild("b.txt"); err != nil || item != nil {
			t.Errorf("device source still present after move cleanup")
		}
	})

	t.Run("device to device goes through staging", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.device.AddFile("Internal storage/c.txt", []byte("cc"))
		env.device.AddFolder("Internal storage/Backup")
		src := deviceFolder(t, env.device, "Internal storage")
		dst := deviceFolder(t, env.device, "Internal storage/Backup")

		item := shuttle.TransferItem{
			Name:   "c.txt",
			Source: shuttle.Location{Kind: shuttle.KindDevice, Path: "Internal storage/c.txt"},
			Size:   2,
		}
		err := env.stager.Transfer(item, src,
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindDevice, Path: "Internal storage/Backup"}, Folder: dst},
			shuttle.ModeCopy, false)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		if got := readDeviceFile(t, env.device, dst, "c.txt"); string(got) != "cc" {
			t.Errorf("Backup/c.txt = %q, want %q", got, "cc")
		}
		if stats := env.finish(); stats.Deleted != 1 {
			t.Errorf("stats.Deleted = %d, want 1", stats.Deleted)
		}
	})

	t.Run("destination collision renames the staged copy too", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.mockfs.AddFile("/src/a.txt", []byte("new"))
		env.device.AddFile("Internal storage/a.txt", []byte("taken"))
		folder := deviceFolder(t, env.device, "Internal storage")

		err := env.stager.Transfer(hostItem("/src/a.txt", 3), hostDir(t, env.mockfs, "/src"),
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindDevice, Path: "Internal storage"}, Folder: folder},
			shuttle.ModeCopy, false)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		if got := readDeviceFile(t, env.device, folder, "a (1).txt"); string(got) != "new" {
			t.Errorf("device a (1).txt = %q, want %q", got, "new")
		}
		if got := readDeviceFile(t, env.device, folder, "a.txt"); string(got) != "taken" {
			t.Errorf("device a.txt = %q, want %q", got, "taken")
		}
		stats := env.finish()
		if stats.Deleted != 1 {
			t.Errorf("stats.Deleted = %d, want 1", stats.Deleted)
		}
		if _, ok := env.mockfs.ReadFile("/stage/a (1).txt"); ok {
			t.Errorf("renamed staged copy still present after cleanup")
		}
	})

	t.Run("encrypt transforms content and appends the suffix", func(t *testing.T) {
		t.Parallel()
		enc := testutil.NewStubEncryptor()
		env := newStagerEnv(t, enc)
		env.mockfs.AddFile("/src/a.txt", []byte("hello"))
		folder := deviceFolder(t, env.device, "Internal storage")

		err := env.stager.Transfer(hostItem("/src/a.txt", 5), hostDir(t, env.mockfs, "/src"),
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindDevice, Path: "Internal storage"}, Folder: folder},
			shuttle.ModeCopy, true)
		if err != nil {
			t.Fatalf("Transfer() error = %v", err)
		}

		sealed := readDeviceFile(t, env.device, folder, "a.txt"+shuttle.EncryptedSuffix)
		if string(sealed) == "hello" {
			t.Errorf("device copy holds the plaintext")
		}
		if got := decrypted(t, enc, sealed); got != "hello" {
			t.Errorf("decrypted device copy = %q, want %q", got, "hello")
		}
		env.finish()
	})

	t.Run("create failure leaves nothing staged", func(t *testing.T) {
		t.Parallel()
		env := newStagerEnv(t, nil)
		env.mockfs.AddFile("/src/a.txt", []byte("hello"))
		env.mockfs.FailCreate("/stage/a.txt")
		folder := deviceFolder(t, env.device, "Internal storage")

		err := env.stager.Transfer(hostItem("/src/a.txt", 5), hostDir(t, env.mockfs, "/src"),
			shuttle.Endpoint{Location: shuttle.Location{Kind: shuttle.KindDevice, Path: "Internal storage"}, Folder: folder},
			shuttle.ModeCopy, false)
		if err == nil {
			t.Fatalf("Transfer() error = nil, want failure")
		}

		if _, ok := env.mockfs.ReadFile("/stage/a.txt"); ok {
			t.Errorf("staged copy present after failed create")
		}
		if item, err := folder.ResolveChild("a.txt"); err != nil || item != nil {
			t.Errorf("file was delivered despite the staging failure")
		}
		if stats := env.finish(); stats.Deleted != 0 {
			t.Errorf("stats.Deleted = %d, want 0", stats.Deleted)
		}
	})
}
