package testutil

import (
	"context"
	"sync"

	"github.com/flexprice/lockbox/internal/domain/lockbox"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
)

// InMemoryLockboxStore implements lockbox.Repository
type InMemoryLockboxStore struct {
	imports *InMemoryStore[*lockbox.Import]
	batches *InMemoryStore[*lockbox.Batch]

	// writeMu serializes the check-then-write paths
	writeMu sync.Mutex

	mu      sync.Mutex
	items   []*lockbox.BatchItem
	details []*lockbox.BatchItemDetail
}

func NewInMemoryLockboxStore() *InMemoryLockboxStore {
	return &InMemoryLockboxStore{
		imports: NewInMemoryStore[*lockbox.Import](),
		batches: NewInMemoryStore[*lockbox.Batch](),
	}
}

func copyImport(imp *lockbox.Import) *lockbox.Import {
	c := *imp
	if imp.FileCreatedAt != nil {
		c.FileCreatedAt = lo.ToPtr(*imp.FileCreatedAt)
	}
	if imp.ErrorSummary != nil {
		c.ErrorSummary = lo.ToPtr(*imp.ErrorSummary)
	}
	return &c
}

func copyBatch(b *lockbox.Batch) *lockbox.Batch {
	c := *b
	c.Items = nil
	return &c
}

func (s *InMemoryLockboxStore) CreateImport(ctx context.Context, imp *lockbox.Import) error {
	if imp == nil {
		return ierr.NewError("import cannot be nil").
			WithHint("Import cannot be nil").
			Mark(ierr.ErrValidation)
	}
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if imp.ImportStatus == types.LockboxImportStatusImported {
		if _, err := s.GetImportedByHash(ctx, imp.FileHash); err == nil {
			return ierr.NewError("lockbox file already imported").
				WithHint("This lockbox file was already imported").
				WithReportableDetails(map[string]any{"file_hash": imp.FileHash}).
				Mark(ierr.ErrAlreadyExists)
		}
	}
	return s.imports.Create(ctx, imp.ID, copyImport(imp))
}

func (s *InMemoryLockboxStore) GetImport(ctx context.Context, id string) (*lockbox.Import, error) {
	imp, err := s.imports.Get(ctx, id)
	if err != nil || imp.TenantID != types.GetTenantID(ctx) {
		return nil, ierr.NewError("lockbox import not found").
			WithHint("Lockbox import not found").
			WithReportableDetails(map[string]any{"import_id": id}).
			Mark(ierr.ErrNotFound)
	}
	return copyImport(imp), nil
}

func (s *InMemoryLockboxStore) GetImportedByHash(ctx context.Context, fileHash string) (*lockbox.Import, error) {
	found, _ := s.imports.List(ctx, nil, func(ctx context.Context, imp *lockbox.Import, _ interface{}) bool {
		return imp.FileHash == fileHash &&
			imp.TenantID == types.GetTenantID(ctx) &&
			imp.ImportStatus == types.LockboxImportStatusImported
	}, nil)
	if len(found) == 0 {
		return nil, ierr.NewError("no import for this file").
			WithHint("No import for this file").
			WithReportableDetails(map[string]any{"file_hash": fileHash}).
			Mark(ierr.ErrNotFound)
	}
	return copyImport(found[0]), nil
}

// ListImports returns every stored import, used by tests to inspect rejections
func (s *InMemoryLockboxStore) ListImports(ctx context.Context) []*lockbox.Import {
	found, _ := s.imports.List(ctx, nil, nil, func(a, b *lockbox.Import) bool {
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return lo.Map(found, func(imp *lockbox.Import, _ int) *lockbox.Import { return copyImport(imp) })
}

func (s *InMemoryLockboxStore) CreateBatches(ctx context.Context, batches []*lockbox.Batch, items []*lockbox.BatchItem, details []*lockbox.BatchItemDetail) error {
	for _, b := range batches {
		if err := s.batches.Create(ctx, b.ID, copyBatch(b)); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, item := range items {
		c := *item
		c.Details = nil
		s.items = append(s.items, &c)
	}
	for _, d := range details {
		c := *d
		s.details = append(s.details, &c)
	}
	return nil
}

func (s *InMemoryLockboxStore) GetBatch(ctx context.Context, id string) (*lockbox.Batch, error) {
	b, err := s.batches.Get(ctx, id)
	if err != nil || b.TenantID != types.GetTenantID(ctx) || b.Status != types.StatusPublished {
		return nil, ierr.NewError("lockbox batch not found").
			WithHint("Lockbox batch not found").
			WithReportableDetails(map[string]any{"batch_id": id}).
			Mark(ierr.ErrNotFound)
	}
	batch := copyBatch(b)

	s.mu.Lock()
	items := lo.FilterMap(s.items, func(item *lockbox.BatchItem, _ int) (*lockbox.BatchItem, bool) {
		c := *item
		return &c, item.BatchID == id
	})
	details := lo.FilterMap(s.details, func(d *lockbox.BatchItemDetail, _ int) (*lockbox.BatchItemDetail, bool) {
		c := *d
		return &c, d.BatchID == id
	})
	s.mu.Unlock()

	lockbox.AttachChildren([]*lockbox.Batch{batch}, items, details)
	return batch, nil
}

func (s *InMemoryLockboxStore) ListBatches(ctx context.Context, filter *types.LockboxBatchFilter) ([]*lockbox.Batch, error) {
	filter = normalizeBatchFilter(filter)
	sortFn := lockboxBatchSortDesc
	if filter.GetOrder() == types.OrderAsc {
		sortFn = func(a, b *lockbox.Batch) bool { return lockboxBatchSortDesc(b, a) }
	}

	batches, err := s.batches.List(ctx, filter, lockboxBatchFilterFn, sortFn)
	if err != nil {
		return nil, err
	}
	return lo.Map(batches, func(b *lockbox.Batch, _ int) *lockbox.Batch { return copyBatch(b) }), nil
}

func (s *InMemoryLockboxStore) CountBatches(ctx context.Context, filter *types.LockboxBatchFilter) (int, error) {
	return s.batches.Count(ctx, normalizeBatchFilter(filter), lockboxBatchFilterFn)
}

func (s *InMemoryLockboxStore) DecrementOutstanding(ctx context.Context, id string, amount decimal.Decimal) (*lockbox.Batch, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	b, err := s.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	if b.OutstandingAmount.LessThan(amount) {
		return nil, ierr.NewErrorf("amount %s exceeds the outstanding amount %s of batch %s",
			amount.StringFixed(2), b.OutstandingAmount.StringFixed(2), id).
			WithHint("Payment amount exceeds the outstanding amount of the batch").
			Mark(ierr.ErrValidation)
	}

	b.Items = nil
	b.OutstandingAmount = b.OutstandingAmount.Sub(amount)
	b.Touch(ctx)
	if err := s.batches.Update(ctx, id, copyBatch(b)); err != nil {
		return nil, err
	}
	return b, nil
}

// Clear removes everything from the store
func (s *InMemoryLockboxStore) Clear() {
	s.imports.Clear()
	s.batches.Clear()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = nil
	s.details = nil
}

func normalizeBatchFilter(filter *types.LockboxBatchFilter) *types.LockboxBatchFilter {
	if filter == nil {
		return types.NewLockboxBatchFilter()
	}
	if filter.QueryFilter == nil {
		f := *filter
		f.QueryFilter = types.NewDefaultQueryFilter()
		return &f
	}
	return filter
}

func lockboxBatchFilterFn(ctx context.Context, b *lockbox.Batch, filter interface{}) bool {
	f, ok := filter.(*types.LockboxBatchFilter)
	if !ok {
		return true
	}
	if b.TenantID != types.GetTenantID(ctx) || b.Status != f.GetStatus() {
		return false
	}
	if f.ImportID != "" && b.ImportID != f.ImportID {
		return false
	}
	if f.BatchID != "" && b.BatchID != f.BatchID {
		return false
	}
	if f.EnteredAfter != nil && b.EnteredAt.Before(*f.EnteredAfter) {
		return false
	}
	if f.EnteredBefore != nil && b.EnteredAt.After(*f.EnteredBefore) {
		return false
	}
	if f.OnlyOutstanding && !b.OutstandingAmount.IsPositive() {
		return false
	}
	return true
}

func lockboxBatchSortDesc(a, b *lockbox.Batch) bool {
	if !a.EnteredAt.Equal(b.EnteredAt) {
		return a.EnteredAt.After(b.EnteredAt)
	}
	return a.ID > b.ID
}
