package app

import (
	"fmt"
	"os"
	"time"

	"shuttle-go/internal/config"
	"shuttle-go/internal/encryption"
	"shuttle-go/internal/hostfs"
	"shuttle-go/internal/journal"
	"shuttle-go/internal/shuttle"
	"shuttle-go/internal/store"
)

// TransferApp is the application layer between the CLI and TransferService.
// It constructs all dependencies from config, picks the device to talk to,
// and manages the journal, staging directory and log file lifecycles on Close.
type TransferApp struct {
	cfg        *config.Config
	registry   *store.Registry
	device     shuttle.DeviceStore
	journal    shuttle.Journal
	encryptor  shuttle.Encryptor
	service    *shuttle.TransferService
	stagingDir string
	logFile    *os.File
}

// NewTransferApp creates a fully wired TransferApp from the given config.
// deviceName selects a configured device; when empty the first attached
// device is used, and when none attaches transfers run host-only. The
// caller must call Close when done.
func NewTransferApp(cfg *config.Config, deviceName string) (*TransferApp, error) {
	runID := time.Now().UTC().Format("20060102T150405Z")
	logger, logFile, err := newLogger(cfg.LogDir, runID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	registry := store.NewRegistry(cfg.Devices)

	var device shuttle.DeviceStore
	if deviceName != "" {
		device, err = registry.Open(deviceName)
		if err != nil {
			logFile.Close()
			return nil, fmt.Errorf("opening device: %w", err)
		}
	} else {
		device, err = registry.First()
		if err != nil {
			// Configured devices that fail to attach degrade to host-only
			// operation, the same as having no device plugged in.
			logger.Warn("no device attached", "error", err)
			device = nil
		}
	}

	jnl, err := journal.NewJournalFromConfig(cfg.Journal)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("creating journal: %w", err)
	}

	enc, err := encryption.NewEncryptorFromConfig(cfg.Encryption)
	if err != nil {
		jnl.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating encryptor: %w", err)
	}

	stagingDir, err := NewStagingDir(cfg.Staging.TempRoot)
	if err != nil {
		jnl.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating staging directory: %w", err)
	}

	svc, err := shuttle.NewTransferService(
		hostfs.NewOSHostFS(), device, jnl, enc, &slogAdapter{l: logger}, shuttle.RealClock{},
		stagingDir, cfg.Cleanup.RetryInterval.Duration, cfg.Cleanup.LockTimeout.Duration)
	if err != nil {
		jnl.Close()
		logFile.Close()
		return nil, fmt.Errorf("creating transfer service: %w", err)
	}

	return &TransferApp{
		cfg:        cfg,
		registry:   registry,
		device:     device,
		journal:    jnl,
		encryptor:  enc,
		service:    svc,
		stagingDir: stagingDir,
		logFile:    logFile,
	}, nil
}

// Copy resolves the source, matches files and copies them to the destination.
func (a *TransferApp) Copy(source, destination string, patterns []string, skipAmbiguityCheck, encrypt bool) (*shuttle.TransferSummary, error) {
	return a.service.Run(shuttle.TransferRequest{
		Source:             source,
		Destination:        destination,
		Patterns:           patterns,
		Mode:               shuttle.ModeCopy,
		SkipAmbiguityCheck: skipAmbiguityCheck,
		Encrypt:            encrypt,
	})
}

// Move is Copy followed by removal of the matched source files.
func (a *TransferApp) Move(source, destination string, patterns []string, skipAmbiguityCheck, encrypt bool) (*shuttle.TransferSummary, error) {
	return a.service.Run(shuttle.TransferRequest{
		Source:             source,
		Destination:        destination,
		Patterns:           patterns,
		Mode:               shuttle.ModeMove,
		SkipAmbiguityCheck: skipAmbiguityCheck,
		Encrypt:            encrypt,
	})
}

// Resolve splits a raw source path into a directory and file pattern without
// transferring anything.
func (a *TransferApp) Resolve(rawPath string, patterns []string, skipAmbiguityCheck bool) (*shuttle.ResolvedSource, error) {
	return a.service.Resolve(rawPath, patterns, skipAmbiguityCheck)
}

// History returns the most recent transfer runs.
func (a *TransferApp) History(limit int) ([]*shuttle.Run, error) {
	return a.service.History(limit)
}

// RunItems returns the per-file records of a single run.
func (a *TransferApp) RunItems(runID int64) ([]*shuttle.RunItem, error) {
	return a.journal.RunItems(runID)
}

// SetupKeys generates the encryption key pair protected by the passphrase.
func (a *TransferApp) SetupKeys(passphrase string) error {
	return a.encryptor.Setup(passphrase)
}

// Unlock opens the private key with the passphrase for reading encrypted
// files back off a device.
func (a *TransferApp) Unlock(passphrase string) (shuttle.DecryptionContext, error) {
	return a.encryptor.Unlock(passphrase)
}

// DeviceName returns the name of the attached device, or "" when running
// host-only.
func (a *TransferApp) DeviceName() string {
	if a.device == nil {
		return ""
	}
	return a.device.Name()
}

// Close wipes the staging directory and closes the journal and log file.
func (a *TransferApp) Close() error {
	var firstErr error

	if a.stagingDir != "" {
		if err := os.RemoveAll(a.stagingDir); err != nil {
			firstErr = fmt.Errorf("wiping staging directory: %w", err)
		}
	}

	if err := a.journal.Close(); err != nil {
		if firstErr == nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}

	if a.logFile != nil {
		a.logFile.Close()
	}

	return firstErr
}

// DeviceStatuses probes every configured device without opening the journal
// or staging.
func DeviceStatuses(cfg *config.Config) []store.DeviceStatus {
	return store.NewRegistry(cfg.Devices).Status()
}
