package lockboxfile

import (
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/shopspring/decimal"
)

// validate re-checks the cross-record invariants of an assembled file.
// Invoice applications are not reconciled against their check amount here.
func validate(f *File) error {
	batchLines := make(map[string]int, len(f.Batches))
	grandTotal := decimal.Zero

	for _, batch := range f.Batches {
		h := batch.Header
		if first, ok := batchLines[h.BatchNumber]; ok {
			return uniquenessError(h.Line, "duplicate batch number %s, first used on line %d", map[string]any{
				"batch_number": h.BatchNumber,
			}, h.BatchNumber, first)
		}
		batchLines[h.BatchNumber] = h.Number

		if err := validateBatchItems(batch); err != nil {
			return err
		}

		checkTotal := batch.CheckTotal()
		if !checkTotal.Equal(batch.Total.Amount) {
			return ierr.NewErrorf("line %d: batch %s total amount %s does not match the sum of its checks %s",
				batch.Total.Number, h.BatchNumber, formatAmount(batch.Total.Amount), formatAmount(checkTotal)).
				WithHintf("Batch %s does not balance", h.BatchNumber).
				WithReportableDetails(map[string]any{
					"line":         batch.Total.Number,
					"content":      batch.Total.Raw,
					"batch_number": h.BatchNumber,
					"declared":     batch.Total.Amount.StringFixed(2),
					"computed":     checkTotal.StringFixed(2),
				}).
				Mark(ierr.ErrReconciliation)
		}
		grandTotal = grandTotal.Add(checkTotal)
	}

	if !grandTotal.Equal(f.ServiceTotal.Amount) {
		return ierr.NewErrorf("line %d: service total amount %s does not match the sum of all batches %s",
			f.ServiceTotal.Number, formatAmount(f.ServiceTotal.Amount), formatAmount(grandTotal)).
			WithHint("The lockbox file does not balance").
			WithReportableDetails(map[string]any{
				"line":     f.ServiceTotal.Number,
				"content":  f.ServiceTotal.Raw,
				"declared": f.ServiceTotal.Amount.StringFixed(2),
				"computed": grandTotal.StringFixed(2),
			}).
			Mark(ierr.ErrReconciliation)
	}
	return nil
}

func validateBatchItems(batch *Batch) error {
	itemLines := make(map[string]int, len(batch.Items))
	for _, item := range batch.Items {
		check := item.Check
		if first, ok := itemLines[check.ItemNumber]; ok {
			return uniquenessError(check.Line, "duplicate item number %s in batch %s, first used on line %d", map[string]any{
				"batch_number": check.BatchNumber,
				"item_number":  check.ItemNumber,
			}, check.ItemNumber, check.BatchNumber, first)
		}
		itemLines[check.ItemNumber] = check.Number

		sequenceLines := make(map[string]int, len(item.Applications))
		for _, app := range item.Applications {
			if first, ok := sequenceLines[app.Sequence]; ok {
				return uniquenessError(app.Line, "duplicate application sequence %s for item %s in batch %s, first used on line %d", map[string]any{
					"batch_number": check.BatchNumber,
					"item_number":  check.ItemNumber,
					"sequence":     app.Sequence,
				}, app.Sequence, check.ItemNumber, check.BatchNumber, first)
			}
			sequenceLines[app.Sequence] = app.Number
		}
	}
	return nil
}

func uniquenessError(ln Line, format string, details map[string]any, args ...any) error {
	details["line"] = ln.Number
	details["content"] = ln.Raw
	return ierr.NewErrorf("line %d: "+format, append([]any{ln.Number}, args...)...).
		WithHintf("Duplicate identifier on line %d", ln.Number).
		WithReportableDetails(details).
		Mark(ierr.ErrUniqueness)
}

func formatAmount(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
