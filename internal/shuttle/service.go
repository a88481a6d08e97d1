package shuttle

import (
	"fmt"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RunStatus is the overall outcome of a transfer run.
type RunStatus string

const (
	// StatusSuccess: every matched file transferred and cleaned up.
	StatusSuccess RunStatus = "success"
	// StatusWarning: the run completed but matched nothing, or some items
	// failed or timed out during cleanup.
	StatusWarning RunStatus = "warning"
	// StatusFailure: resolution failed before any file moved.
	StatusFailure RunStatus = "failure"
)

// TransferRequest describes one transfer run.
type TransferRequest struct {
	Source             string
	Destination        string
	Patterns           []string
	Mode               TransferMode
	SkipAmbiguityCheck bool
	Encrypt            bool
}

// TransferSummary is what a completed run reports.
type TransferSummary struct {
	RunID          int64
	Status         RunStatus
	Matched        int
	Transferred    int
	Failed         int
	SkippedFolders int
	Cleanup        CleanupStats
}

// TransferService is the orchestration layer that coordinates resolution,
// matching, staging, and cleanup for whole transfer runs.
type TransferService struct {
	hostfs     HostFS
	device     DeviceStore
	classifier *Classifier
	resolver   *Resolver
	journal    Journal
	encryptor  Encryptor
	logger     Logger
	clock      Clock

	stagingDir    string
	retryInterval time.Duration
	lockTimeout   time.Duration
}

// NewTransferService creates a TransferService with the provided
// dependencies. device and encryptor may be nil; journal must not be.
// Construction fetches the device's top-level folders once for
// classification.
func NewTransferService(hostfs HostFS, device DeviceStore, journal Journal, encryptor Encryptor, logger Logger, clock Clock, stagingDir string, retryInterval, lockTimeout time.Duration) (*TransferService, error) {
	classifier, err := NewClassifier(hostfs, device)
	if err != nil {
		return nil, fmt.Errorf("creating classifier: %w", err)
	}
	return &TransferService{
		hostfs:        hostfs,
		device:        device,
		classifier:    classifier,
		resolver:      NewResolver(classifier, hostfs, device),
		journal:       journal,
		encryptor:     encryptor,
		logger:        logger,
		clock:         clock,
		stagingDir:    stagingDir,
		retryInterval: retryInterval,
		lockTimeout:   lockTimeout,
	}, nil
}

// Resolve canonicalizes a raw source path without running a transfer.
func (s *TransferService) Resolve(rawPath string, patterns []string, skipAmbiguityCheck bool) (*ResolvedSource, error) {
	return s.resolver.Resolve(rawPath, patterns, skipAmbiguityCheck)
}

// Run executes a whole transfer: resolve both sides, enumerate and match the
// source, transfer each item, then wait for cleanup to finish. A resolution
// failure aborts the run and is returned as the error; per-item failures are
// logged, counted, and never abort the batch.
func (s *TransferService) Run(req TransferRequest) (*TransferSummary, error) {
	run, err := s.journal.CreateRun(req.Mode.String(), req.Source, req.Destination, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("recording run: %w", err)
	}

	summary, err := s.execute(run.ID, req)
	if err != nil {
		if ferr := s.journal.FinishRun(run.ID, string(StatusFailure), 0, 0, 0, s.clock.Now()); ferr != nil {
			s.logger.Error("finishing run record", "run", run.ID, "error", ferr)
		}
		return nil, err
	}

	summary.RunID = run.ID
	if err := s.journal.FinishRun(run.ID, string(summary.Status),
		int64(summary.Transferred), int64(summary.Failed), int64(summary.Cleanup.TimedOut),
		s.clock.Now()); err != nil {
		s.logger.Error("finishing run record", "run", run.ID, "error", err)
	}
	return summary, nil
}

// History returns the most recent transfer runs.
func (s *TransferService) History(limit int) ([]*Run, error) {
	return s.journal.RecentRuns(limit)
}

func (s *TransferService) execute(runID int64, req TransferRequest) (*TransferSummary, error) {
	src, err := s.resolver.Resolve(req.Source, req.Patterns, req.SkipAmbiguityCheck)
	if err != nil {
		return nil, fmt.Errorf("resolving source: %w", err)
	}

	dst, err := s.prepareDestination(req.Destination, req.SkipAmbiguityCheck)
	if err != nil {
		return nil, fmt.Errorf("preparing destination: %w", err)
	}

	if req.Encrypt {
		if dst.Location.Kind != KindDevice {
			return nil, fmt.Errorf("encryption requires a device destination: %w", ErrInvalidArgument)
		}
		if s.encryptor == nil || !s.encryptor.IsConfigured() {
			return nil, fmt.Errorf("encryption requested but no keys are configured: %w", ErrInvalidArgument)
		}
	}

	patterns := effectivePatterns(src, req.Patterns)
	matcher, err := CompilePatterns(patterns)
	if err != nil {
		return nil, err
	}

	entries, err := src.Folder.Children()
	if err != nil {
		return nil, fmt.Errorf("listing %q: %w", src.Directory.Path, err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	s.logger.Info("transfer starting",
		"mode", req.Mode.String(),
		"source", src.Directory.String(),
		"patterns", strings.Join(patterns, ","),
		"dest", dst.Location.String())

	remover := &locationRemover{hostfs: s.hostfs, device: s.device}
	coordinator := NewCleanupCoordinator(remover, s.logger, s.clock, s.retryInterval, s.lockTimeout)
	coordinator.Start()
	stager := NewStager(s.hostfs, s.device, s.encryptor, coordinator, s.logger, s.stagingDir)

	summary := &TransferSummary{}
	for _, entry := range entries {
		if !matcher.IsMatch(entry.Name()) {
			continue
		}
		if entry.IsFolder() {
			summary.SkippedFolders++
			s.logger.Debug("skipping folder", "name", entry.Name())
			continue
		}
		summary.Matched++

		item := TransferItem{
			Name:   entry.Name(),
			Source: src.Directory.Child(entry.Name()),
			Size:   entry.Size(),
		}
		if err := stager.Transfer(item, src.Folder, dst, req.Mode, req.Encrypt); err != nil {
			terr := &TransferError{Name: item.Name, Err: err}
			s.logger.Warn("item failed", "name", item.Name, "error", err)
			summary.Failed++
			s.recordItem(runID, item, dst, "failed", terr.Error())
			continue
		}
		summary.Transferred++
		s.recordItem(runID, item, dst, "transferred", "")
		s.logger.Info("item transferred", "name", item.Name)
	}

	coordinator.Close()
	summary.Cleanup = coordinator.Wait()

	switch {
	case summary.Matched == 0:
		summary.Status = StatusWarning
		s.logger.Warn("no files matched", "source", src.Directory.String(), "patterns", strings.Join(patterns, ","))
	case summary.Failed > 0 || summary.Cleanup.TimedOut > 0:
		summary.Status = StatusWarning
	default:
		summary.Status = StatusSuccess
	}

	s.logger.Info("transfer finished",
		"status", string(summary.Status),
		"transferred", summary.Transferred,
		"failed", summary.Failed,
		"deleted", summary.Cleanup.Deleted,
		"timed_out", summary.Cleanup.TimedOut)
	return summary, nil
}

// recordItem journals one item outcome. Journal trouble is logged, never
// fatal to the batch.
func (s *TransferService) recordItem(runID int64, item TransferItem, dst Endpoint, status, errMsg string) {
	err := s.journal.AddItem(&RunItem{
		RunID:       runID,
		Name:        item.Name,
		Source:      item.Source.String(),
		Destination: dst.Location.String(),
		Size:        item.Size,
		Status:      status,
		Error:       errMsg,
		CreatedAt:   s.clock.Now(),
	})
	if err != nil {
		s.logger.Error("recording item", "name", item.Name, "error", err)
	}
}

// prepareDestination classifies the destination, creates any missing
// folders, and returns an endpoint ready for writes. Destinations are always
// directories; wildcards are not allowed anywhere in them.
func (s *TransferService) prepareDestination(rawPath string, skipAmbiguityCheck bool) (Endpoint, error) {
	trimmed := strings.TrimSpace(rawPath)
	if trimmed == "" {
		return Endpoint{}, fmt.Errorf("destination path is empty: %w", ErrInvalidArgument)
	}

	loc, err := s.classifier.Classify(trimmed, skipAmbiguityCheck)
	if err != nil {
		return Endpoint{}, fmt.Errorf("classifying %q: %w", trimmed, err)
	}
	if loc.Kind == KindAmbiguous {
		return Endpoint{}, fmt.Errorf("%q matches both a device folder and a host directory: %w", trimmed, ErrAmbiguousPath)
	}

	if loc.Kind == KindDevice {
		return s.prepareDeviceDestination(trimmed)
	}
	return s.prepareHostDestination(trimmed)
}

func (s *TransferService) prepareDeviceDestination(p string) (Endpoint, error) {
	if strings.Contains(p, `\`) {
		return Endpoint{}, fmt.Errorf("device path %q contains a backslash: %w", p, ErrInvalidPathSeparator)
	}
	if containsWildcard(p) {
		return Endpoint{}, fmt.Errorf("destination %q: %w", p, ErrWildcardInDirectory)
	}

	p = path.Clean(strings.TrimRight(p, "/"))
	folder, err := s.device.Root()
	if err != nil {
		return Endpoint{}, fmt.Errorf("resolving device root: %w", err)
	}

	for _, seg := range strings.Split(p, "/") {
		item, err := folder.ResolveChild(seg)
		if err != nil {
			return Endpoint{}, fmt.Errorf("resolving destination %q: %w", p, err)
		}
		if item == nil {
			created, err := s.device.CreateFolder(folder, seg)
			if err != nil {
				return Endpoint{}, fmt.Errorf("creating device folder %q: %w", seg, err)
			}
			s.logger.Debug("created device folder", "path", created.Path())
			folder = created
			continue
		}
		sub, ok := item.(FolderHandle)
		if !ok {
			return Endpoint{}, fmt.Errorf("destination %q is a file: %w", path.Join(folder.Path(), seg), ErrInvalidArgument)
		}
		folder = sub
	}

	return Endpoint{Location: Location{Kind: KindDevice, Path: folder.Path()}, Folder: folder}, nil
}

func (s *TransferService) prepareHostDestination(p string) (Endpoint, error) {
	if containsWildcard(p) {
		return Endpoint{}, fmt.Errorf("destination %q: %w", p, ErrWildcardInDirectory)
	}
	clean := filepath.Clean(p)

	isDir, err := s.hostfs.IsDir(clean)
	if err != nil {
		return Endpoint{}, fmt.Errorf("checking destination %q: %w", clean, err)
	}
	if !isDir {
		exists, err := s.hostfs.Exists(clean)
		if err != nil {
			return Endpoint{}, fmt.Errorf("checking destination %q: %w", clean, err)
		}
		if exists {
			return Endpoint{}, fmt.Errorf("destination %q is a file: %w", clean, ErrInvalidArgument)
		}
		if err := s.hostfs.MkdirAll(clean); err != nil {
			return Endpoint{}, fmt.Errorf("creating destination %q: %w", clean, err)
		}
		s.logger.Debug("created destination directory", "path", clean)
	}

	folder, err := s.hostfs.Dir(clean)
	if err != nil {
		return Endpoint{}, fmt.Errorf("opening destination %q: %w", clean, err)
	}
	return Endpoint{Location: Location{Kind: KindHost, Path: clean}, Folder: folder}, nil
}

// effectivePatterns picks what the matcher is built from: a concrete file
// pattern from resolution wins, then the caller's explicit patterns, then
// match-all.
func effectivePatterns(src *ResolvedSource, requested []string) []string {
	if src.FilePattern != "*" {
		return []string{src.FilePattern}
	}
	if hasExplicitPatterns(requested) {
		return requested
	}
	return []string{"*"}
}

// locationRemover routes deletions to the side that owns the file.
type locationRemover struct {
	hostfs HostFS
	device DeviceStore
}

var _ Remover = (*locationRemover)(nil)

func (r *locationRemover) Remove(loc Location) error {
	if loc.Kind == KindDevice {
		return r.device.Remove(loc.Path)
	}
	return r.hostfs.Remove(loc.Path)
}
