package lockbox

import (
	"context"

	"github.com/flexprice/lockbox/internal/types"
	"github.com/shopspring/decimal"
)

// Repository defines the interface for lockbox persistence
type Repository interface {
	// Import operations
	CreateImport(ctx context.Context, imp *Import) error
	GetImport(ctx context.Context, id string) (*Import, error)
	// GetImportedByHash returns the successful import of a file with this
	// content hash, or a not found error
	GetImportedByHash(ctx context.Context, fileHash string) (*Import, error)

	// Batch operations
	CreateBatches(ctx context.Context, batches []*Batch, items []*BatchItem, details []*BatchItemDetail) error
	// GetBatch returns the batch with its items and details attached
	GetBatch(ctx context.Context, id string) (*Batch, error)
	ListBatches(ctx context.Context, filter *types.LockboxBatchFilter) ([]*Batch, error)
	CountBatches(ctx context.Context, filter *types.LockboxBatchFilter) (int, error)
	// DecrementOutstanding lowers the outstanding amount of a batch by amount.
	// It fails with a validation error when the batch has less outstanding.
	DecrementOutstanding(ctx context.Context, id string, amount decimal.Decimal) (*Batch, error)
}
