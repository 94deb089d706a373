package lockboxfile

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/flexprice/lockbox/internal/domain/lockbox"
)

// RoutingConflict records an account number seen with a second routing number
type RoutingConflict struct {
	AccountNumber   string
	RoutingNumber   string
	PreviousRouting string
	Line            int
}

// projection is the flat, persistence shaped view of a validated file
type projection struct {
	batches        []*lockbox.Batch
	items          []*lockbox.BatchItem
	details        []*lockbox.BatchItemDetail
	accountRouting map[string]string
	conflicts      []RoutingConflict
}

// project flattens f in file order. Batch ids are file-local sequence
// numbers; callers assign real keys before storing them.
func project(f *File, fileHash string) *projection {
	p := &projection{accountRouting: make(map[string]string)}

	for i, batch := range f.Batches {
		localID := LocalBatchID(i)
		p.batches = append(p.batches, &lockbox.Batch{
			ID:                localID,
			BatchID:           batch.Header.BatchNumber,
			LockboxNumber:     batch.Header.LockboxNumber,
			EnteredAt:         batch.Header.Date,
			Count:             batch.Total.Count,
			Amount:            batch.Total.Amount,
			OutstandingAmount: batch.Total.Amount,
			FileHash:          fileHash,
		})

		for _, item := range batch.Items {
			check := item.Check
			p.items = append(p.items, &lockbox.BatchItem{
				BatchID:       localID,
				ItemSeqID:     check.ItemNumber,
				PaymentDate:   check.Date,
				CheckNumber:   check.CheckNumber,
				CheckAmount:   check.Amount,
				RoutingNumber: check.RoutingNumber,
				AccountNumber: check.AccountNumber,
			})
			p.trackRouting(check)

			for _, app := range item.Applications {
				p.details = append(p.details, &lockbox.BatchItemDetail{
					BatchID:       localID,
					ItemSeqID:     check.ItemNumber,
					DetailSeqID:   app.Sequence,
					InvoiceNumber: app.InvoiceNumber,
					InvoiceAmount: app.InvoiceAmount,
					CustomerID:    app.CustomerID,
				})
			}
		}
	}
	return p
}

// trackRouting keeps the last routing number seen for an account
func (p *projection) trackRouting(check *DetailLine) {
	if prev, ok := p.accountRouting[check.AccountNumber]; ok && prev != check.RoutingNumber {
		p.conflicts = append(p.conflicts, RoutingConflict{
			AccountNumber:   check.AccountNumber,
			RoutingNumber:   check.RoutingNumber,
			PreviousRouting: prev,
			Line:            check.Number,
		})
	}
	p.accountRouting[check.AccountNumber] = check.RoutingNumber
}

// LocalBatchID is the file-local id of the i-th batch (0-based)
func LocalBatchID(i int) string {
	return fmt.Sprintf("%05d", i+1)
}

// ContentHash is the hex encoded SHA-256 of a raw lockbox file
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
