package converter

import (
	"fmt"

	"gitlab.com/tozd/go/errors"
)

// Sentinel errors. Each typed error below matches exactly one of them with errors.Is.
var (
	ErrDirectoryNotFound = errors.Base("directory not found")
	ErrUnsupportedFormat = errors.Base("unsupported format")
	ErrConversionFailed  = errors.Base("conversion failed")
	ErrDeletionFailed    = errors.Base("deletion failed")
	// ErrTargetExists is the cause of a ConversionError when overwriting is disabled.
	ErrTargetExists = errors.Base("target file already exists")
)

// DirectoryError reports a root path that is missing or not a directory.
type DirectoryError struct {
	Path string
	Err  error
}

func (e *DirectoryError) Error() string {
	return fmt.Sprintf("Directory not found: %s", e.Path)
}

func (e *DirectoryError) Unwrap() error { return e.Err }

func (e *DirectoryError) Is(target error) bool { return target == ErrDirectoryNotFound }

// FormatRole tells which side of a conversion a format check was made for.
type FormatRole string

const (
	RoleSource FormatRole = "source"
	RoleTarget FormatRole = "target"
)

// FormatError reports an extension that the codec cannot read (source) or write (target).
type FormatError struct {
	Role      FormatRole
	Extension string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("Unsupported %s format: %s", e.Role, e.Extension)
}

func (e *FormatError) Is(target error) bool { return target == ErrUnsupportedFormat }

// ConversionError reports the file that aborted a conversion run and why.
type ConversionError struct {
	Path string
	Err  error
}

func (e *ConversionError) Error() string {
	return fmt.Sprintf("Failed to convert %s: %v", e.Path, e.Err)
}

func (e *ConversionError) Unwrap() error { return e.Err }

func (e *ConversionError) Is(target error) bool { return target == ErrConversionFailed }

// DeletionError reports the file that aborted a deletion pass and why.
type DeletionError struct {
	Path string
	Err  error
}

func (e *DeletionError) Error() string {
	return fmt.Sprintf("Failed to delete %s: %v", e.Path, e.Err)
}

func (e *DeletionError) Unwrap() error { return e.Err }

func (e *DeletionError) Is(target error) bool { return target == ErrDeletionFailed }
