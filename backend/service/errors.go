package service

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSubjectNotFound       = errors.New("subject not found")
	ErrUnknownKind           = errors.New("unknown document kind")
	ErrIncompleteSubjectData = errors.New("incomplete subject data")
	ErrExternalService       = errors.New("external generation service error")
	ErrGenerationUnavailable = errors.New("document generation unavailable")
	ErrTemplateMissing       = errors.New("backup template missing")
	ErrConversionUnavailable = errors.New("no working conversion engine")
	ErrConversionFailed      = errors.New("document conversion failed")
	ErrNotGenerated          = errors.New("document has not been generated")
	ErrFileMissing           = errors.New("document file missing")
	ErrEmailDelivery         = errors.New("email delivery failed")
	ErrPersistence           = errors.New("persisting document state failed")
	ErrInvalidChecksum       = errors.New("invalid callback checksum")
	ErrInvalidCallback       = errors.New("invalid callback content")

	// ErrFileNotFound is returned by file stores for absent names
	ErrFileNotFound = errors.New("file not found")
	// ErrNotFound is returned by the locator when no matching file exists
	ErrNotFound = errors.New("document not found")
)

// IncompleteSubjectError names the identity fields a document kind needs but the subject lacks
type IncompleteSubjectError struct {
	Fields []string
}

func (e *IncompleteSubjectError) Error() string {
	return fmt.Sprintf("%s: missing %s", ErrIncompleteSubjectData, strings.Join(e.Fields, ", "))
}

func (e *IncompleteSubjectError) Unwrap() error {
	return ErrIncompleteSubjectData
}

func persistenceError(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}
