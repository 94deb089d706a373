package types

import (
	"time"

	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/samber/lo"
)

// LockboxImportStatus tracks an uploaded lockbox file through the import
type LockboxImportStatus string

const (
	LockboxImportStatusImported LockboxImportStatus = "IMPORTED"
	LockboxImportStatusRejected LockboxImportStatus = "REJECTED"
)

func (s LockboxImportStatus) String() string {
	return string(s)
}

func (s LockboxImportStatus) Validate() error {
	allowed := []LockboxImportStatus{
		LockboxImportStatusImported,
		LockboxImportStatusRejected,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewErrorf("invalid lockbox import status %q", s).
			WithHint("Invalid lockbox import status").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LockboxFileSource names where a lockbox file was read from
type LockboxFileSource string

const (
	LockboxFileSourceUpload LockboxFileSource = "UPLOAD"
	LockboxFileSourceLocal  LockboxFileSource = "LOCAL"
	LockboxFileSourceS3     LockboxFileSource = "S3"
)

func (s LockboxFileSource) Validate() error {
	allowed := []LockboxFileSource{
		LockboxFileSourceUpload,
		LockboxFileSourceLocal,
		LockboxFileSourceS3,
	}
	if !lo.Contains(allowed, s) {
		return ierr.NewErrorf("invalid lockbox file source %q", s).
			WithHint("Invalid lockbox file source").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// LockboxBatchFilter filters persisted lockbox batches
type LockboxBatchFilter struct {
	*QueryFilter
	ImportID        string     `json:"import_id,omitempty" form:"import_id"`
	BatchID         string     `json:"batch_id,omitempty" form:"batch_id"`
	EnteredAfter    *time.Time `json:"entered_after,omitempty" form:"entered_after" time_format:"2006-01-02"`
	EnteredBefore   *time.Time `json:"entered_before,omitempty" form:"entered_before" time_format:"2006-01-02"`
	OnlyOutstanding bool       `json:"only_outstanding,omitempty" form:"only_outstanding"`
}

// NewLockboxBatchFilter returns a filter with default pagination
func NewLockboxBatchFilter() *LockboxBatchFilter {
	return &LockboxBatchFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *LockboxBatchFilter) Validate() error {
	if f.QueryFilter == nil {
		f.QueryFilter = NewDefaultQueryFilter()
	}
	if err := f.QueryFilter.Validate(); err != nil {
		return err
	}
	if f.EnteredAfter != nil && f.EnteredBefore != nil && f.EnteredBefore.Before(*f.EnteredAfter) {
		return ierr.NewError("entered_before must not be before entered_after").
			WithHint("Invalid date range").
			Mark(ierr.ErrValidation)
	}
	return nil
}
