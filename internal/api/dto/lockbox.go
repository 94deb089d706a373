package dto

import (
	"context"
	"time"

	"github.com/flexprice/lockbox/internal/domain/lockbox"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/lockboxfile"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/flexprice/lockbox/internal/validator"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// ParseFileRequest carries one raw lockbox file
type ParseFileRequest struct {
	FileName string `json:"file_name" validate:"required,max=255"`
	Content  []byte `json:"-"`
}

// Validate checks the request; maxSize of zero disables the size limit
func (r *ParseFileRequest) Validate(maxSize int64) error {
	if err := validator.ValidateRequest(r); err != nil {
		return err
	}
	if len(r.Content) == 0 {
		return ierr.NewError("lockbox file is empty").
			WithHint("The uploaded lockbox file is empty").
			WithReportableDetails(map[string]any{"file_name": r.FileName}).
			Mark(ierr.ErrValidation)
	}
	if maxSize > 0 && int64(len(r.Content)) > maxSize {
		return ierr.NewErrorf("lockbox file is %d bytes, the limit is %d", len(r.Content), maxSize).
			WithHintf("Lockbox files may not be larger than %d bytes", maxSize).
			WithReportableDetails(map[string]any{
				"file_name": r.FileName,
				"size":      len(r.Content),
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ImportFileRequest is a file to parse and store
type ImportFileRequest struct {
	ParseFileRequest
	Source types.LockboxFileSource `json:"source"`
}

func (r *ImportFileRequest) Validate(maxSize int64) error {
	if err := r.ParseFileRequest.Validate(maxSize); err != nil {
		return err
	}
	return r.Source.Validate()
}

// ToImport builds the import record for a parsed file
func (r *ImportFileRequest) ToImport(ctx context.Context, fileHash string, status types.LockboxImportStatus) *lockbox.Import {
	return &lockbox.Import{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LOCKBOX_IMPORT),
		Reference:    types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_LOCKBOX_IMPORT),
		FileName:     r.FileName,
		FileHash:     fileHash,
		Source:       r.Source,
		ImportStatus: status,
		TotalAmount:  decimal.Zero,
		BaseModel:    types.GetDefaultBaseModel(ctx),
	}
}

// RoutingConflictResponse reports an account number seen with two routing numbers
type RoutingConflictResponse struct {
	AccountNumber   string `json:"account_number"`
	RoutingNumber   string `json:"routing_number"`
	PreviousRouting string `json:"previous_routing_number"`
	Line            int    `json:"line"`
}

// LockboxFileSummary describes a parsed file
type LockboxFileSummary struct {
	FileName         string                     `json:"file_name"`
	FileHash         string                     `json:"file_hash"`
	FileCreatedAt    *time.Time                 `json:"file_created_at,omitempty"`
	LineCount        int                        `json:"line_count"`
	SkippedLines     []int                      `json:"skipped_lines,omitempty"`
	BatchCount       int                        `json:"batch_count"`
	ItemCount        int                        `json:"item_count"`
	DetailCount      int                        `json:"detail_count"`
	TotalAmount      decimal.Decimal            `json:"total_amount"`
	AccountRouting   map[string]string          `json:"account_routing"`
	RoutingConflicts []*RoutingConflictResponse `json:"routing_conflicts,omitempty"`
}

// NewLockboxFileSummary summarizes a parse result
func NewLockboxFileSummary(fileName string, res *lockboxfile.Result) LockboxFileSummary {
	summary := LockboxFileSummary{
		FileName:       fileName,
		FileHash:       res.ContentHash,
		LineCount:      res.LineCount,
		SkippedLines:   res.SkippedLines,
		BatchCount:     len(res.Batches),
		ItemCount:      len(res.Items),
		DetailCount:    len(res.Details),
		TotalAmount:    res.TotalAmount(),
		AccountRouting: res.AccountRouting,
		RoutingConflicts: lo.Map(res.RoutingConflicts, func(c lockboxfile.RoutingConflict, _ int) *RoutingConflictResponse {
			return &RoutingConflictResponse{
				AccountNumber:   c.AccountNumber,
				RoutingNumber:   c.RoutingNumber,
				PreviousRouting: c.PreviousRouting,
				Line:            c.Line,
			}
		}),
	}
	if res.File != nil && res.File.Header != nil {
		summary.FileCreatedAt = lo.ToPtr(res.File.Header.Created)
	}
	return summary
}

// ParseFileResponse is the dry run view of a file: its summary and the
// batches it would create, keyed by file-local ids
type ParseFileResponse struct {
	LockboxFileSummary
	Batches []*LockboxBatchResponse `json:"batches"`
}

func NewParseFileResponse(fileName string, res *lockboxfile.Result) *ParseFileResponse {
	batches := make([]*lockbox.Batch, 0, len(res.Batches))
	for _, b := range res.Batches {
		c := *b
		batches = append(batches, &c)
	}
	items := make([]*lockbox.BatchItem, 0, len(res.Items))
	for _, item := range res.Items {
		c := *item
		items = append(items, &c)
	}
	lockbox.AttachChildren(batches, items, res.Details)

	return &ParseFileResponse{
		LockboxFileSummary: NewLockboxFileSummary(fileName, res),
		Batches:            NewLockboxBatchResponses(batches),
	}
}

// LockboxImportResponse represents an import in responses
type LockboxImportResponse struct {
	*lockbox.Import
}

// ImportFileResponse is the outcome of a stored import
type ImportFileResponse struct {
	Import           *LockboxImportResponse     `json:"import"`
	SkippedLines     []int                      `json:"skipped_lines,omitempty"`
	RoutingConflicts []*RoutingConflictResponse `json:"routing_conflicts,omitempty"`
	Batches          []*LockboxBatchResponse    `json:"batches"`
}

// ImportFileResult is the per-file outcome of a multi-file import
type ImportFileResult struct {
	FileName string              `json:"file_name"`
	Result   *ImportFileResponse `json:"result,omitempty"`
	Error    string              `json:"error,omitempty"`
	Hint     string              `json:"hint,omitempty"`
	err      error
}

// NewImportFileResult wraps the outcome of one import
func NewImportFileResult(fileName string, resp *ImportFileResponse, err error) *ImportFileResult {
	r := &ImportFileResult{FileName: fileName, Result: resp, err: err}
	if err != nil {
		r.Error = err.Error()
		r.Hint = ierr.DisplayMessage(err)
	}
	return r
}

// Err is the import error, nil on success
func (r *ImportFileResult) Err() error {
	return r.err
}

// ImportFilesResponse lists every file's outcome in request order
type ImportFilesResponse struct {
	Items    []*ImportFileResult `json:"items"`
	Imported int                 `json:"imported"`
	Failed   int                 `json:"failed"`
}

// LockboxBatchResponse represents a batch in responses
type LockboxBatchResponse struct {
	*lockbox.Batch
}

func NewLockboxBatchResponses(batches []*lockbox.Batch) []*LockboxBatchResponse {
	return lo.Map(batches, func(b *lockbox.Batch, _ int) *LockboxBatchResponse {
		return &LockboxBatchResponse{Batch: b}
	})
}

// ListLockboxBatchesResponse represents the response for listing batches
type ListLockboxBatchesResponse struct {
	Items      []*LockboxBatchResponse  `json:"items"`
	Pagination types.PaginationResponse `json:"pagination"`
}

// ApplyPaymentRequest applies part of a batch to receivables
type ApplyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (r *ApplyPaymentRequest) Validate() error {
	if !r.Amount.IsPositive() {
		return ierr.NewError("amount must be positive").
			WithHint("Payment amount must be greater than zero").
			Mark(ierr.ErrValidation)
	}
	if !r.Amount.Equal(r.Amount.Round(2)) {
		return ierr.NewErrorf("amount %s has more than two decimal places", r.Amount).
			WithHint("Payment amount must be in whole cents").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// ImportS3FileRequest imports a file stored in S3
type ImportS3FileRequest struct {
	URI string `json:"uri" validate:"required,startswith=s3://"`
}

func (r *ImportS3FileRequest) Validate() error {
	return validator.ValidateRequest(r)
}
