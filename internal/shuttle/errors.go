package shuttle

import "errors"

// Resolution failures. These abort a transfer run before any file moves;
// callers match them with errors.Is.
var (
	// ErrInvalidArgument is returned for empty or blank inputs.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrAmbiguousPath is returned when a relative path matches both a
	// device top-level folder and a host directory, and the caller did not
	// say which side it meant.
	ErrAmbiguousPath = errors.New("ambiguous path")

	// ErrNotFound is returned when a path segment does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrWildcardInDirectory is returned when a wildcard appears in a
	// directory segment. Wildcards are only valid in the final segment of
	// a source path.
	ErrWildcardInDirectory = errors.New("wildcard in directory segment")

	// ErrPatternConflict is returned when explicit file patterns are
	// combined with a source path that already names a concrete file.
	ErrPatternConflict = errors.New("pattern conflicts with file path")

	// ErrInvalidPathSeparator is returned when a device path contains a
	// backslash. Device paths are always slash-separated.
	ErrInvalidPathSeparator = errors.New("invalid path separator")
)

// ErrNameSpaceExhausted is returned by unique-name allocation when every
// numbered variant of a name is already taken.
var ErrNameSpaceExhausted = errors.New("name space exhausted")

// TransferError wraps a failure while transferring a single item. The batch
// loop logs it, counts it, and moves on to the next item.
type TransferError struct {
	Name string
	Err  error
}

func (e *TransferError) Error() string {
	return "transferring " + e.Name + ": " + e.Err.Error()
}

func (e *TransferError) Unwrap() error { return e.Err }
