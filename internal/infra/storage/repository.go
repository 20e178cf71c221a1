package storage

import (
	"context"
	"errors"

	"github.com/vietddude/bridge/internal/core/domain"
)

var (
	// ErrSubmissionNotFound is returned when no record matches the key
	ErrSubmissionNotFound = errors.New("submission not found")
)

// SubmissionRepository journals Submission Records accepted by a submitter.
type SubmissionRepository interface {
	// Save inserts a record or replaces the one with the same key
	Save(ctx context.Context, rec *domain.SubmissionRecord) error

	// UpdateStatus moves a record to a new status, keeping the error message
	UpdateStatus(
		ctx context.Context,
		key string,
		status domain.SubmissionStatus,
		errMsg string,
	) error

	// GetByKey retrieves a record by tx hash or signature
	GetByKey(ctx context.Context, key string) (*domain.SubmissionRecord, error)

	// ListRecent returns up to limit records, newest first
	ListRecent(ctx context.Context, limit int) ([]*domain.SubmissionRecord, error)
}
