package shuttle

import (
	"fmt"
	"io"
	"path/filepath"
)

// TransferMode selects between copying and moving.
type TransferMode int

const (
	ModeCopy TransferMode = iota
	ModeMove
)

func (m TransferMode) String() string {
	if m == ModeMove {
		return "move"
	}
	return "copy"
}

// EncryptedSuffix is appended to destination names when content is
// encrypted in transit.
const EncryptedSuffix = ".age"

// TransferItem is one file selected for transfer.
type TransferItem struct {
	Name     string
	Source   Location
	IsFolder bool
	Size     int64
}

// Endpoint pairs a resolved directory location with its folder handle.
type Endpoint struct {
	Location Location
	Folder   FolderHandle
}

// Stager moves or copies a single item from a source folder to a destination
// folder. Host-to-host transfers take the native path. As soon as either
// side is a device store the item is staged through the host temp directory:
// copy in, allocate a collision-free destination name, copy out, and hand
// the leftovers to the cleanup coordinator. Sources are never deleted
// synchronously on a staged move; the destination store may still be holding
// the just-written bytes.
type Stager struct {
	hostfs     HostFS
	device     DeviceStore
	encryptor  Encryptor
	cleanup    *CleanupCoordinator
	logger     Logger
	stagingDir string
}

// NewStager creates a Stager writing staged copies under stagingDir.
// device and encryptor may be nil when the run involves neither.
func NewStager(hostfs HostFS, device DeviceStore, encryptor Encryptor, cleanup *CleanupCoordinator, logger Logger, stagingDir string) *Stager {
	return &Stager{
		hostfs:     hostfs,
		device:     device,
		encryptor:  encryptor,
		cleanup:    cleanup,
		logger:     logger,
		stagingDir: stagingDir,
	}
}

// Transfer moves or copies one item into the destination. srcFolder is the
// handle of the folder the item lives in. Failures are per-item; the caller
// decides whether to continue the batch.
func (s *Stager) Transfer(item TransferItem, srcFolder FolderHandle, dst Endpoint, mode TransferMode, encrypt bool) error {
	if item.Source.Kind == KindHost && dst.Location.Kind == KindHost && !encrypt {
		return s.transferDirect(item, dst, mode)
	}
	return s.transferStaged(item, srcFolder, dst, mode, encrypt)
}

// transferDirect is the host-to-host fast path: allocate a free name and let
// the filesystem do the work.
func (s *Stager) transferDirect(item TransferItem, dst Endpoint, mode TransferMode) error {
	destName, err := AllocateUniqueName(dst.Folder, item.Name)
	if err != nil {
		return fmt.Errorf("allocating destination name: %w", err)
	}
	destPath := filepath.Join(dst.Location.Path, destName)

	if mode == ModeMove {
		if err := s.hostfs.Move(item.Source.Path, destPath); err != nil {
			return fmt.Errorf("moving to %q: %w", destPath, err)
		}
	} else {
		if err := s.hostfs.CopyFile(item.Source.Path, destPath); err != nil {
			return fmt.Errorf("copying to %q: %w", destPath, err)
		}
	}

	s.logger.Debug("transferred directly", "name", item.Name, "dest", destPath, "mode", mode.String())
	return nil
}

func (s *Stager) transferStaged(item TransferItem, srcFolder FolderHandle, dst Endpoint, mode TransferMode, encrypt bool) error {
	wantName := item.Name
	if encrypt {
		wantName += EncryptedSuffix
	}

	stagedName, err := s.stage(item, srcFolder, wantName, encrypt)
	if err != nil {
		return err
	}
	stagedPath := filepath.Join(s.stagingDir, stagedName)

	destName, err := AllocateUniqueName(dst.Folder, wantName)
	if err != nil {
		return fmt.Errorf("allocating destination name: %w", err)
	}

	// Carry the destination name on the staged copy too, so what is left
	// in the staging directory is recognizable. Skipped when a pending
	// record already occupies that name.
	if destName != stagedName {
		renamed := filepath.Join(s.stagingDir, destName)
		occupied, err := s.hostfs.Exists(renamed)
		if err != nil {
			return fmt.Errorf("checking staged name %q: %w", destName, err)
		}
		if !occupied {
			if err := s.hostfs.Move(stagedPath, renamed); err != nil {
				return fmt.Errorf("renaming staged copy: %w", err)
			}
			stagedPath = renamed
		}
	}

	if err := s.deliver(stagedPath, destName, dst); err != nil {
		return err
	}

	s.cleanup.Enqueue(Location{Kind: KindHost, Path: stagedPath})
	if mode == ModeMove {
		s.cleanup.Enqueue(item.Source)
	}

	s.logger.Debug("transferred via staging", "name", item.Name, "dest", destName, "mode", mode.String(), "encrypted", encrypt)
	return nil
}

// stage copies the item into the staging directory, encrypting in transit
// when requested. Returns the name the copy went under: wantName, or a
// numbered variant when an earlier record with the same name is still
// awaiting deletion.
func (s *Stager) stage(item TransferItem, srcFolder FolderHandle, wantName string, encrypt bool) (string, error) {
	stagingFolder, err := s.hostfs.Dir(s.stagingDir)
	if err != nil {
		return "", fmt.Errorf("opening staging directory: %w", err)
	}
	stagedName, err := AllocateUniqueName(stagingFolder, wantName)
	if err != nil {
		return "", fmt.Errorf("allocating staged name: %w", err)
	}

	r, err := s.openSource(item, srcFolder)
	if err != nil {
		return "", fmt.Errorf("opening source %q: %w", item.Source.Path, err)
	}
	defer r.Close()

	stagedPath := filepath.Join(s.stagingDir, stagedName)
	w, err := s.hostfs.Create(stagedPath)
	if err != nil {
		return "", fmt.Errorf("creating staged copy: %w", err)
	}

	var copyErr error
	if encrypt {
		copyErr = s.encryptor.Encrypt(r, w)
	} else {
		_, copyErr = io.Copy(w, r)
	}
	closeErr := w.Close()

	if copyErr != nil {
		s.hostfs.Remove(stagedPath)
		return "", fmt.Errorf("staging %q: %w", item.Name, copyErr)
	}
	if closeErr != nil {
		s.hostfs.Remove(stagedPath)
		return "", fmt.Errorf("closing staged copy: %w", closeErr)
	}

	return stagedName, nil
}

func (s *Stager) openSource(item TransferItem, srcFolder FolderHandle) (io.ReadCloser, error) {
	if item.Source.Kind == KindDevice {
		return s.device.Open(srcFolder, item.Name)
	}
	return s.hostfs.Open(item.Source.Path)
}

// deliver writes the staged copy to its final destination.
func (s *Stager) deliver(stagedPath, destName string, dst Endpoint) error {
	if dst.Location.Kind == KindDevice {
		size, err := s.hostfs.Size(stagedPath)
		if err != nil {
			return fmt.Errorf("sizing staged copy: %w", err)
		}
		f, err := s.hostfs.Open(stagedPath)
		if err != nil {
			return fmt.Errorf("opening staged copy: %w", err)
		}
		defer f.Close()

		if err := s.device.Put(dst.Folder, destName, f, size); err != nil {
			return fmt.Errorf("writing %q to device: %w", destName, err)
		}
		return nil
	}

	destPath := filepath.Join(dst.Location.Path, destName)
	if err := s.hostfs.CopyFile(stagedPath, destPath); err != nil {
		return fmt.Errorf("copying staged file to %q: %w", destPath, err)
	}
	return nil
}
