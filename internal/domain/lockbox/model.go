package lockbox

import (
	"time"

	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/flexprice/lockbox/internal/types"
	"github.com/shopspring/decimal"
)

// Import is one uploaded lockbox file
type Import struct {
	// Unique identifier for this import
	ID string `db:"id" json:"id"`
	// Reference is a short human readable handle, ex LBX-XYZ12A8Q
	Reference string                  `db:"reference" json:"reference"`
	FileName  string                  `db:"file_name" json:"file_name"`
	FileHash  string                  `db:"file_hash" json:"file_hash"`
	Source    types.LockboxFileSource `db:"source" json:"source"`
	// ImportStatus is IMPORTED when the file was parsed and stored, REJECTED otherwise
	ImportStatus types.LockboxImportStatus `db:"import_status" json:"import_status"`
	// FileCreatedAt is the creation stamp of the file header, when it could be read
	FileCreatedAt *time.Time      `db:"file_created_at" json:"file_created_at,omitempty"`
	BatchCount    int             `db:"batch_count" json:"batch_count"`
	ItemCount     int             `db:"item_count" json:"item_count"`
	DetailCount   int             `db:"detail_count" json:"detail_count"`
	TotalAmount   decimal.Decimal `db:"total_amount" json:"total_amount"`
	ErrorSummary  *string         `db:"error_summary" json:"error_summary,omitempty"`
	types.BaseModel
}

// Batch is a group of checks deposited together
type Batch struct {
	ID       string `db:"id" json:"id"`
	ImportID string `db:"import_id" json:"import_id"`
	// BatchID is the batch number printed in the file
	BatchID       string    `db:"batch_id" json:"batch_id"`
	LockboxNumber string    `db:"lockbox_number" json:"lockbox_number"`
	EnteredAt     time.Time `db:"entered_at" json:"entered_at"`
	// Count and Amount are the totals declared by the batch total record
	Count  int             `db:"batch_count" json:"batch_count"`
	Amount decimal.Decimal `db:"amount" json:"amount"`
	// OutstandingAmount starts at Amount and goes down as payments are applied
	OutstandingAmount decimal.Decimal `db:"outstanding_amount" json:"outstanding_amount"`
	FileHash          string          `db:"file_hash" json:"file_hash"`

	Items []*BatchItem `db:"-" json:"items,omitempty"`
	types.BaseModel
}

// BatchItem is one check of a batch
type BatchItem struct {
	BatchID       string          `db:"batch_id" json:"batch_id"`
	ItemSeqID     string          `db:"item_seq_id" json:"item_seq_id"`
	PaymentDate   time.Time       `db:"payment_date" json:"payment_date"`
	CheckNumber   string          `db:"check_number" json:"check_number"`
	CheckAmount   decimal.Decimal `db:"check_amount" json:"check_amount"`
	RoutingNumber string          `db:"routing_number" json:"routing_number"`
	AccountNumber string          `db:"account_number" json:"account_number"`

	Details []*BatchItemDetail `db:"-" json:"details,omitempty"`
}

// BatchItemDetail applies part of a check to an invoice
type BatchItemDetail struct {
	BatchID       string          `db:"batch_id" json:"batch_id"`
	ItemSeqID     string          `db:"item_seq_id" json:"item_seq_id"`
	DetailSeqID   string          `db:"detail_seq_id" json:"detail_seq_id"`
	InvoiceNumber string          `db:"invoice_number" json:"invoice_number"`
	InvoiceAmount decimal.Decimal `db:"invoice_amount" json:"invoice_amount"`
	CustomerID    string          `db:"customer_id" json:"customer_id"`
}

// Validate validates the batch before it is stored
func (b *Batch) Validate() error {
	if b.ID == "" {
		return ierr.NewError("batch id is required").
			WithHint("Batch id is required").
			Mark(ierr.ErrValidation)
	}
	if b.BatchID == "" {
		return ierr.NewError("batch number is required").
			WithHint("Batch number is required").
			Mark(ierr.ErrValidation)
	}
	if b.Amount.IsNegative() {
		return ierr.NewError("batch amount must not be negative").
			WithHint("Batch amount is invalid").
			Mark(ierr.ErrValidation)
	}
	if b.OutstandingAmount.IsNegative() || b.OutstandingAmount.GreaterThan(b.Amount) {
		return ierr.NewErrorf("outstanding amount %s must be between 0 and %s", b.OutstandingAmount, b.Amount).
			WithHint("Outstanding amount is invalid").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// AttachChildren nests items and details under their batches, preserving order
func AttachChildren(batches []*Batch, items []*BatchItem, details []*BatchItemDetail) {
	byBatch := make(map[string]*Batch, len(batches))
	for _, b := range batches {
		b.Items = nil
		byBatch[b.ID] = b
	}
	type itemKey struct{ batchID, seqID string }
	byItem := make(map[itemKey]*BatchItem, len(items))
	for _, item := range items {
		item.Details = nil
		byItem[itemKey{item.BatchID, item.ItemSeqID}] = item
		if b, ok := byBatch[item.BatchID]; ok {
			b.Items = append(b.Items, item)
		}
	}
	for _, d := range details {
		if item, ok := byItem[itemKey{d.BatchID, d.ItemSeqID}]; ok {
			item.Details = append(item.Details, d)
		}
	}
}
