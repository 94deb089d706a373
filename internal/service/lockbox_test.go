package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/flexprice/lockbox/internal/api/dto"
	"github.com/flexprice/lockbox/internal/cache"
	"github.com/flexprice/lockbox/internal/domain/lockbox"
	"github.com/flexprice/lockbox/internal/domain/payment"
	ierr "github.com/flexprice/lockbox/internal/errors"
	sentryService "github.com/flexprice/lockbox/internal/sentry"
	"github.com/flexprice/lockbox/internal/testutil"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/getsentry/sentry-go"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

const (
	routingA = "0210000021"
	routingB = "0260009593"
)

type LockboxServiceSuite struct {
	testutil.BaseServiceTestSuite
	service LockboxService
}

func TestLockboxService(t *testing.T) {
	suite.Run(t, new(LockboxServiceSuite))
}

func (s *LockboxServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.setupService()
}

func (s *LockboxServiceSuite) setupService() {
	stores := s.GetStores()
	s.service = NewLockboxService(ServiceParams{
		Logger:            s.GetLogger(),
		Config:            s.GetConfig(),
		DB:                s.GetDB(),
		Cache:             cache.NewInMemoryCache(time.Minute),
		LockboxRepo:       stores.LockboxRepo,
		PaymentMethodRepo: stores.PaymentMethodRepo,
	})
}

func (s *LockboxServiceSuite) lockboxStore() *testutil.InMemoryLockboxStore {
	return s.GetStores().LockboxRepo.(*testutil.InMemoryLockboxStore)
}

func (s *LockboxServiceSuite) paymentMethodStore() *testutil.InMemoryPaymentMethodStore {
	return s.GetStores().PaymentMethodRepo.(*testutil.InMemoryPaymentMethodStore)
}

func (s *LockboxServiceSuite) createPaymentMethod(account, routing string) {
	err := s.GetStores().PaymentMethodRepo.Create(s.GetContext(), &payment.Method{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
		CustomerID:    "cust_" + account,
		AccountNumber: account,
		RoutingNumber: routing,
		BaseModel:     types.GetDefaultBaseModel(s.GetContext()),
	})
	s.Require().NoError(err)
}

func importRequest(name string, content []byte) *dto.ImportFileRequest {
	return &dto.ImportFileRequest{
		ParseFileRequest: dto.ParseFileRequest{FileName: name, Content: content},
		Source:           types.LockboxFileSourceUpload,
	}
}

// twoBatchFile holds $150.25 in batch 001 and $10.00 in batch 002
func twoBatchFile(created string) []byte {
	return testutil.BuildLockboxFile(created,
		[]testutil.LockboxCheck{
			{Account: "111", Routing: routingA, Cents: 10000, Invoice: "INV1"},
			{Account: "222", Routing: routingA, Cents: 5025, Invoice: "INV2"},
		},
		[]testutil.LockboxCheck{
			{Account: "111", Routing: routingA, Cents: 1000, Invoice: "INV3"},
		},
	)
}

func (s *LockboxServiceSuite) importTwoBatchFile() *dto.ImportFileResponse {
	s.createPaymentMethod("111", routingA)
	s.createPaymentMethod("222", routingA)
	resp, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", twoBatchFile("2410191230")))
	s.Require().NoError(err)
	return resp
}

func (s *LockboxServiceSuite) TestImportFile() {
	resp := s.importTwoBatchFile()

	imp := resp.Import
	s.Equal(types.LockboxImportStatusImported, imp.ImportStatus)
	s.True(strings.HasPrefix(imp.ID, types.UUID_PREFIX_LOCKBOX_IMPORT+"_"))
	s.True(strings.HasPrefix(imp.Reference, types.SHORT_ID_PREFIX_LOCKBOX_IMPORT))
	s.Equal(2, imp.BatchCount)
	s.Equal(3, imp.ItemCount)
	s.Equal(3, imp.DetailCount)
	s.True(decimal.RequireFromString("160.25").Equal(imp.TotalAmount))
	s.Require().NotNil(imp.FileCreatedAt)
	s.Equal(time.Date(2024, time.October, 19, 12, 30, 0, 0, time.UTC), *imp.FileCreatedAt)
	s.Nil(imp.ErrorSummary)

	s.Require().Len(resp.Batches, 2)
	first := resp.Batches[0]
	s.True(strings.HasPrefix(first.ID, types.UUID_PREFIX_LOCKBOX_BATCH+"_"))
	s.Equal(imp.ID, first.ImportID)
	s.Equal("001", first.BatchID)
	s.True(decimal.RequireFromString("150.25").Equal(first.Amount))
	s.True(first.Amount.Equal(first.OutstandingAmount))
	s.Equal(types.DefaultTenantID, first.TenantID)
	s.NotEqual(first.ID, resp.Batches[1].ID)

	s.Require().Len(first.Items, 2)
	for _, item := range first.Items {
		s.Equal(first.ID, item.BatchID)
		s.Require().Len(item.Details, 1)
		s.Equal(first.ID, item.Details[0].BatchID)
		s.Equal(item.ItemSeqID, item.Details[0].ItemSeqID)
	}
	s.Equal("222", first.Items[1].AccountNumber)

	stored, err := s.service.GetBatch(s.GetContext(), first.ID)
	s.Require().NoError(err)
	s.Equal(first.BatchID, stored.BatchID)
	s.Require().Len(stored.Items, 2)
	s.Equal("INV2", stored.Items[1].Details[0].InvoiceNumber)

	imports := s.lockboxStore().ListImports(s.GetContext())
	s.Require().Len(imports, 1)
	s.Equal(imp.ID, imports[0].ID)
}

func (s *LockboxServiceSuite) TestImportFile_Duplicate() {
	s.importTwoBatchFile()

	_, err := s.service.ImportFile(s.GetContext(), importRequest("again.txt", twoBatchFile("2410191230")))
	s.Require().Error(err)
	s.True(ierr.IsAlreadyExists(err))

	s.Len(s.lockboxStore().ListImports(s.GetContext()), 1)
	count, err := s.GetStores().LockboxRepo.CountBatches(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *LockboxServiceSuite) TestImportFile_SameFileOtherTenant() {
	s.importTwoBatchFile()

	ctx := types.SetTenantID(context.Background(), "tenant_other")
	ctx = types.SetUserID(ctx, types.DefaultUserID)
	for _, account := range []string{"111", "222"} {
		s.Require().NoError(s.GetStores().PaymentMethodRepo.Create(ctx, &payment.Method{
			ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
			AccountNumber: account,
			RoutingNumber: routingA,
			BaseModel:     types.GetDefaultBaseModel(ctx),
		}))
	}

	_, err := s.service.ImportFile(ctx, importRequest("lockbox.txt", twoBatchFile("2410191230")))
	s.NoError(err)
}

func (s *LockboxServiceSuite) TestImportFile_RecordsRejection() {
	s.createPaymentMethod("111", routingA)
	content := testutil.JoinLockboxLines(
		testutil.LockboxHeaderLine("2410191230"),
		testutil.LockboxServiceHeaderLine(),
		testutil.LockboxDetailHeaderLine("001"),
		testutil.LockboxDetailLine("001", "001", "111", routingA, "00000001", 10000),
		testutil.LockboxBatchTotalLine("001", 1, 9900),
		testutil.LockboxServiceTotalLine(1, 10000),
		testutil.LockboxTrailerLine(6),
	)

	_, err := s.service.ImportFile(s.GetContext(), importRequest("bad.txt", content))
	s.Require().Error(err)
	s.True(ierr.IsReconciliation(err))

	imports := s.lockboxStore().ListImports(s.GetContext())
	s.Require().Len(imports, 1)
	rejected := imports[0]
	s.Equal(types.LockboxImportStatusRejected, rejected.ImportStatus)
	s.Equal("bad.txt", rejected.FileName)
	s.Require().NotNil(rejected.ErrorSummary)
	s.Equal(err.Error(), *rejected.ErrorSummary)
	s.Zero(rejected.BatchCount)

	count, err := s.GetStores().LockboxRepo.CountBatches(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *LockboxServiceSuite) TestImportFile_RejectedFileCanBeRetried() {
	content := twoBatchFile("2410191230")

	_, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", content))
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))

	s.createPaymentMethod("111", routingA)
	s.createPaymentMethod("222", routingA)
	resp, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", content))
	s.Require().NoError(err)
	s.Equal(types.LockboxImportStatusImported, resp.Import.ImportStatus)

	imports := s.lockboxStore().ListImports(s.GetContext())
	s.Require().Len(imports, 2)
	statuses := lo.Map(imports, func(imp *lockbox.Import, _ int) types.LockboxImportStatus { return imp.ImportStatus })
	s.ElementsMatch([]types.LockboxImportStatus{
		types.LockboxImportStatusRejected,
		types.LockboxImportStatusImported,
	}, statuses)
}

func (s *LockboxServiceSuite) TestImportFile_MissingPaymentMethod() {
	s.createPaymentMethod("111", routingA)

	_, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", twoBatchFile("2410191230")))
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
	s.Contains(err.Error(), "222/"+routingA)
	s.NotContains(err.Error(), "111/")

	imports := s.lockboxStore().ListImports(s.GetContext())
	s.Require().Len(imports, 1)
	s.Equal(types.LockboxImportStatusRejected, imports[0].ImportStatus)
}

func (s *LockboxServiceSuite) TestImportFile_CachesPaymentMethods() {
	s.importTwoBatchFile()
	s.Equal(2, s.paymentMethodStore().Lookups())

	_, err := s.service.ImportFile(s.GetContext(), importRequest("next.txt", twoBatchFile("2410191231")))
	s.Require().NoError(err)
	s.Equal(2, s.paymentMethodStore().Lookups())
}

func (s *LockboxServiceSuite) TestImportFile_RoutingConflicts() {
	content := testutil.BuildLockboxFile("2410191230", []testutil.LockboxCheck{
		{Account: "111", Routing: routingA, Cents: 10000, Invoice: "INV1"},
		{Account: "111", Routing: routingB, Cents: 2000, Invoice: "INV2"},
	})
	s.createPaymentMethod("111", routingB)

	s.Run("last routing number wins", func() {
		resp, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", content))
		s.Require().NoError(err)
		s.Require().Len(resp.RoutingConflicts, 1)
		conflict := resp.RoutingConflicts[0]
		s.Equal("111", conflict.AccountNumber)
		s.Equal(routingB, conflict.RoutingNumber)
		s.Equal(routingA, conflict.PreviousRouting)
		s.Equal(6, conflict.Line)
	})

	s.Run("rejected when configured", func() {
		s.GetConfig().Lockbox.RejectRoutingConflicts = true
		other := testutil.BuildLockboxFile("2410191231", []testutil.LockboxCheck{
			{Account: "111", Routing: routingA, Cents: 10000, Invoice: "INV1"},
			{Account: "111", Routing: routingB, Cents: 2000, Invoice: "INV2"},
		})

		_, err := s.service.ImportFile(s.GetContext(), importRequest("other.txt", other))
		s.Require().Error(err)
		s.True(ierr.IsValidation(err))
		s.Equal("line 6: account 111 has routing number "+routingB+", previously "+routingA, err.Error())
	})
}

func (s *LockboxServiceSuite) TestImportFile_InvalidRequest() {
	tests := []struct {
		name string
		req  *dto.ImportFileRequest
	}{
		{
			name: "missing file name",
			req:  importRequest("", twoBatchFile("2410191230")),
		},
		{
			name: "empty content",
			req:  importRequest("lockbox.txt", nil),
		},
		{
			name: "unknown source",
			req: &dto.ImportFileRequest{
				ParseFileRequest: dto.ParseFileRequest{FileName: "lockbox.txt", Content: []byte("x")},
				Source:           types.LockboxFileSource("FTP"),
			},
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.ImportFile(s.GetContext(), tt.req)
			s.Require().Error(err)
			s.True(ierr.IsValidation(err))
		})
	}
	s.Empty(s.lockboxStore().ListImports(s.GetContext()))
}

func (s *LockboxServiceSuite) TestImportFile_TooLarge() {
	s.GetConfig().Lockbox.MaxFileSizeBytes = 100

	_, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", twoBatchFile("2410191230")))
	s.Require().Error(err)
	s.True(ierr.IsValidation(err))
}

func (s *LockboxServiceSuite) TestImportFile_UnknownRecordTypes() {
	content := testutil.JoinLockboxLines(
		testutil.LockboxHeaderLine("2410191230"),
		testutil.LockboxServiceHeaderLine(),
		testutil.PadLockboxLine("3SOMETHING ELSE"),
		testutil.LockboxDetailHeaderLine("001"),
		testutil.LockboxDetailLine("001", "001", "111", routingA, "00000001", 10000),
		testutil.LockboxBatchTotalLine("001", 1, 10000),
		testutil.LockboxServiceTotalLine(1, 10000),
		testutil.LockboxTrailerLine(7),
	)
	s.createPaymentMethod("111", routingA)

	s.Run("skipped by default", func() {
		resp, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", content))
		s.Require().NoError(err)
		s.Equal([]int{3}, resp.SkippedLines)
	})

	s.Run("rejected in strict mode", func() {
		s.lockboxStore().Clear()
		s.GetConfig().Lockbox.StrictRecordTypes = true

		_, err := s.service.ImportFile(s.GetContext(), importRequest("lockbox.txt", content))
		s.Require().Error(err)
		s.True(ierr.IsStructure(err))
	})
}

func (s *LockboxServiceSuite) TestImportFiles() {
	s.createPaymentMethod("111", routingA)
	s.createPaymentMethod("222", routingA)
	s.GetConfig().Lockbox.ImportConcurrency = 2

	reqs := []*dto.ImportFileRequest{
		importRequest("a.txt", twoBatchFile("2410191230")),
		importRequest("empty.txt", nil),
		importRequest("b.txt", twoBatchFile("2410191231")),
		importRequest("a-copy.txt", twoBatchFile("2410191230")),
	}

	resp := s.service.ImportFiles(s.GetContext(), reqs)
	s.Require().Len(resp.Items, len(reqs))
	for i, req := range reqs {
		s.Equal(req.FileName, resp.Items[i].FileName)
	}

	s.NoError(resp.Items[0].Err())
	s.NotNil(resp.Items[0].Result)
	s.Error(resp.Items[1].Err())
	s.NotEmpty(resp.Items[1].Error)
	s.NotEmpty(resp.Items[1].Hint)
	s.NoError(resp.Items[2].Err())

	// a.txt and its copy race; exactly one of them wins
	s.NotEqual(resp.Items[0].Err() == nil, resp.Items[3].Err() == nil)
	s.Equal(2, resp.Imported)
	s.Equal(2, resp.Failed)
}

func (s *LockboxServiceSuite) TestParseFile() {
	resp, err := s.service.ParseFile(s.GetContext(), &dto.ParseFileRequest{
		FileName: "lockbox.txt",
		Content:  twoBatchFile("2410191230"),
	})
	s.Require().NoError(err)

	s.Equal(2, resp.BatchCount)
	s.Equal(3, resp.ItemCount)
	s.Equal(3, resp.DetailCount)
	s.Equal(map[string]string{"111": routingA, "222": routingA}, resp.AccountRouting)
	s.Len(resp.FileHash, 64)
	s.Require().Len(resp.Batches, 2)
	s.Equal("00001", resp.Batches[0].ID)
	s.Len(resp.Batches[0].Items, 2)

	s.Empty(s.lockboxStore().ListImports(s.GetContext()))
	s.Zero(s.paymentMethodStore().Lookups())
}

func (s *LockboxServiceSuite) TestGetBatch() {
	resp := s.importTwoBatchFile()
	id := resp.Batches[1].ID

	s.Run("found", func() {
		batch, err := s.service.GetBatch(s.GetContext(), id)
		s.Require().NoError(err)
		s.Equal("002", batch.BatchID)
		s.Len(batch.Items, 1)
	})

	s.Run("empty id", func() {
		_, err := s.service.GetBatch(s.GetContext(), "")
		s.True(ierr.IsValidation(err))
	})

	s.Run("unknown id", func() {
		_, err := s.service.GetBatch(s.GetContext(), "lbx_batch_missing")
		s.True(ierr.IsNotFound(err))
	})

	s.Run("other tenant", func() {
		ctx := types.SetTenantID(s.GetContext(), "tenant_other")
		_, err := s.service.GetBatch(ctx, id)
		s.True(ierr.IsNotFound(err))
	})
}

func (s *LockboxServiceSuite) TestListBatches() {
	resp := s.importTwoBatchFile()

	list, err := s.service.ListBatches(s.GetContext(), nil)
	s.Require().NoError(err)
	s.Len(list.Items, 2)
	s.Equal(2, list.Pagination.Total)

	filter := types.NewLockboxBatchFilter()
	filter.BatchID = "002"
	list, err = s.service.ListBatches(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(list.Items, 1)
	s.Equal(resp.Batches[1].ID, list.Items[0].ID)

	filter = types.NewLockboxBatchFilter()
	filter.Limit = lo.ToPtr(1)
	list, err = s.service.ListBatches(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Len(list.Items, 1)
	s.Equal(2, list.Pagination.Total)
	s.Equal(1, list.Pagination.Limit)
	s.True(list.Pagination.HasMore)

	_, err = s.service.ApplyPayment(s.GetContext(), resp.Batches[1].ID, &dto.ApplyPaymentRequest{
		Amount: decimal.RequireFromString("10.00"),
	})
	s.Require().NoError(err)

	filter = types.NewLockboxBatchFilter()
	filter.OnlyOutstanding = true
	list, err = s.service.ListBatches(s.GetContext(), filter)
	s.Require().NoError(err)
	s.Require().Len(list.Items, 1)
	s.Equal(resp.Batches[0].ID, list.Items[0].ID)

	filter = types.NewLockboxBatchFilter()
	filter.EnteredAfter = lo.ToPtr(time.Date(2024, time.October, 20, 0, 0, 0, 0, time.UTC))
	filter.EnteredBefore = lo.ToPtr(time.Date(2024, time.October, 19, 0, 0, 0, 0, time.UTC))
	_, err = s.service.ListBatches(s.GetContext(), filter)
	s.True(ierr.IsValidation(err))
}

func (s *LockboxServiceSuite) TestApplyPayment() {
	resp := s.importTwoBatchFile()
	id := resp.Batches[0].ID

	batch, err := s.service.ApplyPayment(s.GetContext(), id, &dto.ApplyPaymentRequest{
		Amount: decimal.RequireFromString("40.25"),
	})
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("110.00").Equal(batch.OutstandingAmount))
	s.True(decimal.RequireFromString("150.25").Equal(batch.Amount))

	tests := []struct {
		name   string
		id     string
		amount string
		check  func(error) bool
	}{
		{name: "more than outstanding", id: id, amount: "110.01", check: ierr.IsValidation},
		{name: "zero", id: id, amount: "0", check: ierr.IsValidation},
		{name: "negative", id: id, amount: "-1.00", check: ierr.IsValidation},
		{name: "fraction of a cent", id: id, amount: "1.005", check: ierr.IsValidation},
		{name: "unknown batch", id: "lbx_batch_missing", amount: "1.00", check: ierr.IsNotFound},
	}
	for _, tt := range tests {
		s.Run(tt.name, func() {
			_, err := s.service.ApplyPayment(s.GetContext(), tt.id, &dto.ApplyPaymentRequest{
				Amount: decimal.RequireFromString(tt.amount),
			})
			s.Require().Error(err)
			s.True(tt.check(err))
		})
	}

	stored, err := s.service.GetBatch(s.GetContext(), id)
	s.Require().NoError(err)
	s.True(decimal.RequireFromString("110.00").Equal(stored.OutstandingAmount))

	batch, err = s.service.ApplyPayment(s.GetContext(), id, &dto.ApplyPaymentRequest{
		Amount: decimal.RequireFromString("110.00"),
	})
	s.Require().NoError(err)
	s.True(batch.OutstandingAmount.IsZero())
}

// failingTx fails every transaction with err
type failingTx struct{ err error }

func (f failingTx) WithTx(context.Context, func(context.Context) error) error { return f.err }

func (s *LockboxServiceSuite) TestImportFile_ReportsDatabaseErrors() {
	cfg := *s.GetConfig()
	cfg.Sentry.Enabled = true

	var reported []*sentry.Event
	client, err := sentry.NewClient(sentry.ClientOptions{
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			reported = append(reported, event)
			return nil
		},
	})
	s.Require().NoError(err)
	ctx := sentry.SetHubOnContext(s.GetContext(), sentry.NewHub(client, sentry.NewScope()))

	stores := s.GetStores()
	newService := func(txErr error) LockboxService {
		return NewLockboxService(ServiceParams{
			Logger:            s.GetLogger(),
			Config:            &cfg,
			DB:                failingTx{err: txErr},
			Sentry:            sentryService.NewSentryService(&cfg, s.GetLogger()),
			Cache:             cache.NewInMemoryCache(time.Minute),
			LockboxRepo:       stores.LockboxRepo,
			PaymentMethodRepo: stores.PaymentMethodRepo,
		})
	}
	s.createPaymentMethod("111", routingA)
	s.createPaymentMethod("222", routingA)

	dbErr := ierr.NewError("connection refused").Mark(ierr.ErrDatabase)
	_, err = newService(dbErr).ImportFile(ctx, importRequest("lockbox.txt", twoBatchFile("2410191230")))
	s.Require().Error(err)
	s.True(ierr.IsDatabase(err))
	s.Len(reported, 1)

	conflict := ierr.NewError("batch changed").Mark(ierr.ErrValidation)
	_, err = newService(conflict).ImportFile(ctx, importRequest("lockbox.txt", twoBatchFile("2410191231")))
	s.Require().Error(err)
	s.Len(reported, 1, "only storage failures are reported")
}
