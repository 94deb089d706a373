package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/flexprice/lockbox/internal/domain/lockbox"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/logger"
	"github.com/flexprice/lockbox/internal/postgres"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/shopspring/decimal"
)

const (
	importColumns = `id, tenant_id, reference, file_name, file_hash, source, import_status,
		file_created_at, batch_count, item_count, detail_count, total_amount, error_summary,
		status, created_at, updated_at, created_by, updated_by`

	batchColumns = `id, tenant_id, import_id, batch_id, lockbox_number, entered_at, batch_count,
		amount, outstanding_amount, file_hash, status, created_at, updated_at, created_by, updated_by`

	itemColumns = `batch_id, item_seq_id, payment_date, check_number, check_amount,
		routing_number, account_number`

	detailColumns = `batch_id, item_seq_id, detail_seq_id, invoice_number, invoice_amount, customer_id`
)

type lockboxRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

func NewLockboxRepository(db *postgres.DB, logger *logger.Logger) lockbox.Repository {
	return &lockboxRepository{db: db, logger: logger}
}

func (r *lockboxRepository) CreateImport(ctx context.Context, imp *lockbox.Import) error {
	r.logger.Debugw("creating lockbox import",
		"import_id", imp.ID,
		"file_name", imp.FileName,
		"import_status", imp.ImportStatus,
	)

	query := fmt.Sprintf(`INSERT INTO lockbox_imports (%s) VALUES (%s)`, importColumns, namedValues(importColumns))
	if _, err := r.db.GetQuerier(ctx).NamedExecContext(ctx, query, imp); err != nil {
		if isUniqueViolation(err) {
			return ierr.WithError(err).
				WithHint("This lockbox file was already imported").
				WithReportableDetails(map[string]any{
					"file_hash": imp.FileHash,
				}).
				Mark(ierr.ErrAlreadyExists)
		}
		return ierr.WithError(err).
			WithHint("Failed to create lockbox import").
			WithReportableDetails(map[string]any{
				"import_id": imp.ID,
			}).
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *lockboxRepository) GetImport(ctx context.Context, id string) (*lockbox.Import, error) {
	var imp lockbox.Import
	query := fmt.Sprintf(`SELECT %s FROM lockbox_imports WHERE id = $1 AND tenant_id = $2`, importColumns)

	if err := r.db.GetQuerier(ctx).GetContext(ctx, &imp, query, id, types.GetTenantID(ctx)); err != nil {
		return nil, notFoundOr(err, "Lockbox import not found", map[string]any{"import_id": id})
	}
	return &imp, nil
}

func (r *lockboxRepository) GetImportedByHash(ctx context.Context, fileHash string) (*lockbox.Import, error) {
	var imp lockbox.Import
	query := fmt.Sprintf(`SELECT %s FROM lockbox_imports
		WHERE file_hash = $1 AND tenant_id = $2 AND import_status = $3`, importColumns)

	err := r.db.GetQuerier(ctx).GetContext(ctx, &imp, query,
		fileHash, types.GetTenantID(ctx), types.LockboxImportStatusImported)
	if err != nil {
		return nil, notFoundOr(err, "No import for this file", map[string]any{"file_hash": fileHash})
	}
	return &imp, nil
}

func (r *lockboxRepository) CreateBatches(ctx context.Context, batches []*lockbox.Batch, items []*lockbox.BatchItem, details []*lockbox.BatchItemDetail) error {
	r.logger.Debugw("creating lockbox batches",
		"batch_count", len(batches),
		"item_count", len(items),
		"detail_count", len(details),
	)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		q := r.db.GetQuerier(ctx)

		inserts := []struct {
			table   string
			columns string
			rows    any
			count   int
		}{
			{"lockbox_batches", batchColumns, batches, len(batches)},
			{"lockbox_batch_items", itemColumns, items, len(items)},
			{"lockbox_batch_item_details", detailColumns, details, len(details)},
		}

		for _, ins := range inserts {
			if ins.count == 0 {
				continue
			}
			query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES (%s)`, ins.table, ins.columns, namedValues(ins.columns))
			if _, err := q.NamedExecContext(ctx, query, ins.rows); err != nil {
				return ierr.WithError(err).
					WithHintf("Failed to store lockbox %s", strings.TrimPrefix(ins.table, "lockbox_")).
					WithReportableDetails(map[string]any{
						"table": ins.table,
						"rows":  ins.count,
					}).
					Mark(ierr.ErrDatabase)
			}
		}
		return nil
	})
}

func (r *lockboxRepository) GetBatch(ctx context.Context, id string) (*lockbox.Batch, error) {
	q := r.db.GetQuerier(ctx)

	var batch lockbox.Batch
	query := fmt.Sprintf(`SELECT %s FROM lockbox_batches WHERE id = $1 AND tenant_id = $2 AND status = $3`, batchColumns)
	if err := q.GetContext(ctx, &batch, query, id, types.GetTenantID(ctx), types.StatusPublished); err != nil {
		return nil, notFoundOr(err, "Lockbox batch not found", map[string]any{"batch_id": id})
	}

	var items []*lockbox.BatchItem
	query = fmt.Sprintf(`SELECT %s FROM lockbox_batch_items WHERE batch_id = $1 ORDER BY item_seq_id`, itemColumns)
	if err := q.SelectContext(ctx, &items, query, id); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load lockbox batch items").
			WithReportableDetails(map[string]any{"batch_id": id}).
			Mark(ierr.ErrDatabase)
	}

	var details []*lockbox.BatchItemDetail
	query = fmt.Sprintf(`SELECT %s FROM lockbox_batch_item_details WHERE batch_id = $1
		ORDER BY item_seq_id, detail_seq_id`, detailColumns)
	if err := q.SelectContext(ctx, &details, query, id); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to load lockbox batch details").
			WithReportableDetails(map[string]any{"batch_id": id}).
			Mark(ierr.ErrDatabase)
	}

	lockbox.AttachChildren([]*lockbox.Batch{&batch}, items, details)
	return &batch, nil
}

func (r *lockboxRepository) ListBatches(ctx context.Context, filter *types.LockboxBatchFilter) ([]*lockbox.Batch, error) {
	filter = withDefaults(filter)
	where, args := batchConditions(ctx, filter)

	order := "DESC"
	if filter.GetOrder() == types.OrderAsc {
		order = "ASC"
	}
	args = append(args, filter.GetLimit(), filter.GetOffset())
	query := fmt.Sprintf(`SELECT %s FROM lockbox_batches WHERE %s
		ORDER BY entered_at %s, id %s LIMIT $%d OFFSET $%d`,
		batchColumns, where, order, order, len(args)-1, len(args))

	var batches []*lockbox.Batch
	if err := r.db.GetQuerier(ctx).SelectContext(ctx, &batches, query, args...); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to list lockbox batches").
			WithReportableDetails(map[string]any{"filter": filter}).
			Mark(ierr.ErrDatabase)
	}
	return batches, nil
}

func (r *lockboxRepository) CountBatches(ctx context.Context, filter *types.LockboxBatchFilter) (int, error) {
	filter = withDefaults(filter)
	where, args := batchConditions(ctx, filter)

	var count int
	query := fmt.Sprintf(`SELECT COUNT(*) FROM lockbox_batches WHERE %s`, where)
	if err := r.db.GetQuerier(ctx).GetContext(ctx, &count, query, args...); err != nil {
		return 0, ierr.WithError(err).
			WithHint("Failed to count lockbox batches").
			WithReportableDetails(map[string]any{"filter": filter}).
			Mark(ierr.ErrDatabase)
	}
	return count, nil
}

func (r *lockboxRepository) DecrementOutstanding(ctx context.Context, id string, amount decimal.Decimal) (*lockbox.Batch, error) {
	r.logger.Debugw("applying payment to lockbox batch", "batch_id", id, "amount", amount)

	q := r.db.GetQuerier(ctx)

	// the guard in the WHERE clause keeps concurrent applications from
	// driving the balance below zero
	var batch lockbox.Batch
	query := fmt.Sprintf(`UPDATE lockbox_batches
		SET outstanding_amount = outstanding_amount - $1, updated_at = NOW(), updated_by = $2
		WHERE id = $3 AND tenant_id = $4 AND status = $5 AND outstanding_amount >= $1
		RETURNING %s`, batchColumns)
	err := q.GetContext(ctx, &batch, query,
		amount, types.GetUserID(ctx), id, types.GetTenantID(ctx), types.StatusPublished)
	if err == nil {
		return &batch, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, ierr.WithError(err).
			WithHint("Failed to apply payment to lockbox batch").
			WithReportableDetails(map[string]any{"batch_id": id}).
			Mark(ierr.ErrDatabase)
	}

	// nothing updated: the batch is missing or has too little outstanding
	current, err := r.GetBatch(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, ierr.NewErrorf("amount %s exceeds the outstanding amount %s of batch %s",
		amount.StringFixed(2), current.OutstandingAmount.StringFixed(2), id).
		WithHint("Payment amount exceeds the outstanding amount of the batch").
		WithReportableDetails(map[string]any{
			"batch_id":    id,
			"amount":      amount.StringFixed(2),
			"outstanding": current.OutstandingAmount.StringFixed(2),
		}).
		Mark(ierr.ErrValidation)
}

func withDefaults(filter *types.LockboxBatchFilter) *types.LockboxBatchFilter {
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

func batchConditions(ctx context.Context, filter *types.LockboxBatchFilter) (string, []any) {
	conds := []string{"tenant_id = $1", "status = $2"}
	args := []any{types.GetTenantID(ctx), filter.GetStatus()}

	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.ImportID != "" {
		add("import_id = $%d", filter.ImportID)
	}
	if filter.BatchID != "" {
		add("batch_id = $%d", filter.BatchID)
	}
	if filter.EnteredAfter != nil {
		add("entered_at >= $%d", *filter.EnteredAfter)
	}
	if filter.EnteredBefore != nil {
		add("entered_at <= $%d", *filter.EnteredBefore)
	}
	if filter.OnlyOutstanding {
		conds = append(conds, "outstanding_amount > 0")
	}
	return strings.Join(conds, " AND "), args
}
