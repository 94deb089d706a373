package service

import (
	"context"
	"sort"
	"strings"

	"github.com/flexprice/lockbox/internal/api/dto"
	"github.com/flexprice/lockbox/internal/cache"
	"github.com/flexprice/lockbox/internal/domain/lockbox"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/lockboxfile"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"
)

// LockboxService parses lockbox files and manages the batches they create
type LockboxService interface {
	// ParseFile parses and validates a file without storing anything
	ParseFile(ctx context.Context, req *dto.ParseFileRequest) (*dto.ParseFileResponse, error)
	// ImportFile parses a file and stores its batches in one transaction
	ImportFile(ctx context.Context, req *dto.ImportFileRequest) (*dto.ImportFileResponse, error)
	// ImportFiles imports files concurrently. Every file gets a result, in request order.
	ImportFiles(ctx context.Context, reqs []*dto.ImportFileRequest) *dto.ImportFilesResponse

	GetBatch(ctx context.Context, id string) (*dto.LockboxBatchResponse, error)
	ListBatches(ctx context.Context, filter *types.LockboxBatchFilter) (*dto.ListLockboxBatchesResponse, error)
	// ApplyPayment lowers the outstanding amount of a batch
	ApplyPayment(ctx context.Context, batchID string, req *dto.ApplyPaymentRequest) (*dto.LockboxBatchResponse, error)
}

type lockboxService struct {
	ServiceParams
}

func NewLockboxService(params ServiceParams) LockboxService {
	return &lockboxService{ServiceParams: params}
}

func (s *lockboxService) parseOptions() []lockboxfile.Option {
	var opts []lockboxfile.Option
	if s.Config.Lockbox.StrictRecordTypes {
		opts = append(opts, lockboxfile.WithStrictRecordTypes())
	}
	return opts
}

func (s *lockboxService) ParseFile(ctx context.Context, req *dto.ParseFileRequest) (*dto.ParseFileResponse, error) {
	if err := req.Validate(s.Config.Lockbox.MaxFileSizeBytes); err != nil {
		return nil, err
	}

	res, err := lockboxfile.Parse(req.Content, s.parseOptions()...)
	if err != nil {
		s.Logger.Infow("lockbox file failed validation",
			"file_name", req.FileName,
			"error", err,
		)
		return nil, err
	}
	return dto.NewParseFileResponse(req.FileName, res), nil
}

func (s *lockboxService) ImportFile(ctx context.Context, req *dto.ImportFileRequest) (*dto.ImportFileResponse, error) {
	if err := req.Validate(s.Config.Lockbox.MaxFileSizeBytes); err != nil {
		return nil, err
	}
	fileHash := lockboxfile.ContentHash(req.Content)

	res, err := lockboxfile.Parse(req.Content, s.parseOptions()...)
	if err != nil {
		s.recordRejection(ctx, req, fileHash, err)
		return nil, err
	}

	existing, err := s.LockboxRepo.GetImportedByHash(ctx, fileHash)
	if err == nil {
		return nil, ierr.NewErrorf("lockbox file already imported as %s", existing.Reference).
			WithHintf("This lockbox file was already imported as %s", existing.Reference).
			WithReportableDetails(map[string]any{
				"import_id": existing.ID,
				"file_hash": fileHash,
			}).
			Mark(ierr.ErrAlreadyExists)
	}
	if !ierr.IsNotFound(err) {
		return nil, err
	}

	if s.Config.Lockbox.RejectRoutingConflicts && len(res.RoutingConflicts) > 0 {
		c := res.RoutingConflicts[0]
		err := ierr.NewErrorf("line %d: account %s has routing number %s, previously %s",
			c.Line, c.AccountNumber, c.RoutingNumber, c.PreviousRouting).
			WithHintf("Account %s appears with more than one routing number", c.AccountNumber).
			WithReportableDetails(map[string]any{
				"conflicts": len(res.RoutingConflicts),
			}).
			Mark(ierr.ErrValidation)
		s.recordRejection(ctx, req, fileHash, err)
		return nil, err
	}

	if err := s.validatePaymentMethods(ctx, res.AccountRouting); err != nil {
		if ierr.IsValidation(err) {
			s.recordRejection(ctx, req, fileHash, err)
		}
		return nil, err
	}

	imp := req.ToImport(ctx, fileHash, types.LockboxImportStatusImported)
	if res.File.Header != nil {
		imp.FileCreatedAt = lo.ToPtr(res.File.Header.Created)
	}
	imp.BatchCount = len(res.Batches)
	imp.ItemCount = len(res.Items)
	imp.DetailCount = len(res.Details)
	imp.TotalAmount = res.TotalAmount()

	batches, items, details, err := assignKeys(ctx, imp, res)
	if err != nil {
		return nil, err
	}

	err = s.DB.WithTx(ctx, func(ctx context.Context) error {
		if err := s.LockboxRepo.CreateImport(ctx, imp); err != nil {
			return err
		}
		return s.LockboxRepo.CreateBatches(ctx, batches, items, details)
	})
	if err != nil {
		s.reportDatabaseError(ctx, err)
		return nil, err
	}

	s.Logger.Infow("imported lockbox file",
		"import_id", imp.ID,
		"reference", imp.Reference,
		"file_name", imp.FileName,
		"batches", imp.BatchCount,
		"items", imp.ItemCount,
		"total_amount", imp.TotalAmount.StringFixed(2),
	)

	lockbox.AttachChildren(batches, items, details)
	summary := dto.NewLockboxFileSummary(req.FileName, res)
	return &dto.ImportFileResponse{
		Import:           &dto.LockboxImportResponse{Import: imp},
		SkippedLines:     res.SkippedLines,
		RoutingConflicts: summary.RoutingConflicts,
		Batches:          dto.NewLockboxBatchResponses(batches),
	}, nil
}

// assignKeys copies the parsed rows and replaces file-local batch ids with
// stored ones
func assignKeys(ctx context.Context, imp *lockbox.Import, res *lockboxfile.Result) ([]*lockbox.Batch, []*lockbox.BatchItem, []*lockbox.BatchItemDetail, error) {
	ids := make(map[string]string, len(res.Batches))

	batches := make([]*lockbox.Batch, 0, len(res.Batches))
	for _, b := range res.Batches {
		c := *b
		c.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_LOCKBOX_BATCH)
		c.ImportID = imp.ID
		c.BaseModel = types.GetDefaultBaseModel(ctx)
		if err := c.Validate(); err != nil {
			return nil, nil, nil, err
		}
		ids[b.ID] = c.ID
		batches = append(batches, &c)
	}

	items := make([]*lockbox.BatchItem, 0, len(res.Items))
	for _, item := range res.Items {
		c := *item
		c.BatchID = ids[item.BatchID]
		items = append(items, &c)
	}

	details := make([]*lockbox.BatchItemDetail, 0, len(res.Details))
	for _, d := range res.Details {
		c := *d
		c.BatchID = ids[d.BatchID]
		details = append(details, &c)
	}
	return batches, items, details, nil
}

// validatePaymentMethods checks that every account and routing pair of the
// file belongs to a stored payment method. Found pairs are cached.
func (s *lockboxService) validatePaymentMethods(ctx context.Context, accountRouting map[string]string) error {
	accounts := lo.Keys(accountRouting)
	sort.Strings(accounts)

	var missing []string
	for _, account := range accounts {
		routing := accountRouting[account]
		key := cache.PaymentMethodKey(types.GetTenantID(ctx), account, routing)
		if _, ok := s.Cache.Get(ctx, key); ok {
			continue
		}

		method, err := s.PaymentMethodRepo.FindByAccount(ctx, account, routing)
		if err != nil {
			if ierr.IsNotFound(err) {
				missing = append(missing, account+"/"+routing)
				continue
			}
			return err
		}
		s.Cache.Set(ctx, key, method.ID, 0)
	}

	if len(missing) > 0 {
		return ierr.NewErrorf("no payment method for account %s", strings.Join(missing, ", ")).
			WithHint("Checks in this file were drawn on accounts with no registered payment method").
			WithReportableDetails(map[string]any{
				"accounts": missing,
			}).
			Mark(ierr.ErrValidation)
	}
	return nil
}

// recordRejection stores a REJECTED import for a file that failed. A failure
// to store it is logged and does not change the error returned to the caller.
func (s *lockboxService) recordRejection(ctx context.Context, req *dto.ImportFileRequest, fileHash string, cause error) {
	imp := req.ToImport(ctx, fileHash, types.LockboxImportStatusRejected)
	imp.ErrorSummary = lo.ToPtr(cause.Error())

	if err := s.LockboxRepo.CreateImport(ctx, imp); err != nil {
		s.Logger.Warnw("failed to record rejected lockbox import",
			"file_name", req.FileName,
			"error", err,
		)
		s.reportDatabaseError(ctx, err)
		return
	}
	s.Logger.Infow("rejected lockbox file",
		"import_id", imp.ID,
		"file_name", req.FileName,
		"error", cause,
	)
}

// reportDatabaseError sends storage failures to Sentry. Validation and
// lookup errors are the caller's problem and are not reported.
func (s *lockboxService) reportDatabaseError(ctx context.Context, err error) {
	if ierr.IsDatabase(err) {
		s.Sentry.CaptureExceptionWithContext(ctx, err)
	}
}

func (s *lockboxService) ImportFiles(ctx context.Context, reqs []*dto.ImportFileRequest) *dto.ImportFilesResponse {
	concurrency := s.Config.Lockbox.ImportConcurrency
	if concurrency <= 0 {
		concurrency = 1
	}

	results := make([]*dto.ImportFileResult, len(reqs))
	p := pool.New().WithMaxGoroutines(concurrency)
	for i, req := range reqs {
		p.Go(func() {
			resp, err := s.ImportFile(ctx, req)
			results[i] = dto.NewImportFileResult(req.FileName, resp, err)
		})
	}
	p.Wait()

	out := &dto.ImportFilesResponse{Items: results}
	for _, r := range results {
		if r.Err() != nil {
			out.Failed++
		} else {
			out.Imported++
		}
	}
	return out
}

func (s *lockboxService) GetBatch(ctx context.Context, id string) (*dto.LockboxBatchResponse, error) {
	if id == "" {
		return nil, ierr.NewError("batch_id is required").
			WithHint("Batch ID is required").
			Mark(ierr.ErrValidation)
	}

	batch, err := s.LockboxRepo.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return &dto.LockboxBatchResponse{Batch: batch}, nil
}

func (s *lockboxService) ListBatches(ctx context.Context, filter *types.LockboxBatchFilter) (*dto.ListLockboxBatchesResponse, error) {
	if filter == nil {
		filter = types.NewLockboxBatchFilter()
	}
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	batches, err := s.LockboxRepo.ListBatches(ctx, filter)
	if err != nil {
		return nil, err
	}
	count, err := s.LockboxRepo.CountBatches(ctx, filter)
	if err != nil {
		return nil, err
	}

	return &dto.ListLockboxBatchesResponse{
		Items:      dto.NewLockboxBatchResponses(batches),
		Pagination: types.NewPaginationResponse(count, filter.QueryFilter),
	}, nil
}

func (s *lockboxService) ApplyPayment(ctx context.Context, batchID string, req *dto.ApplyPaymentRequest) (*dto.LockboxBatchResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var batch *lockbox.Batch
	err := s.DB.WithTx(ctx, func(ctx context.Context) error {
		var err error
		batch, err = s.LockboxRepo.DecrementOutstanding(ctx, batchID, req.Amount)
		return err
	})
	if err != nil {
		s.reportDatabaseError(ctx, err)
		return nil, err
	}

	s.Logger.Infow("applied lockbox payment",
		"batch_id", batchID,
		"amount", req.Amount.StringFixed(2),
		"outstanding_amount", batch.OutstandingAmount.StringFixed(2),
	)
	return &dto.LockboxBatchResponse{Batch: batch}, nil
}
