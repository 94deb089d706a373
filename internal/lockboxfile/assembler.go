package lockboxfile

import (
	"fmt"

	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/shopspring/decimal"
)

// File is the assembled record hierarchy of one lockbox file
type File struct {
	Header *HeaderLine
	// ServiceHeader is nil when the file goes straight to its first batch
	ServiceHeader *ServiceHeaderLine
	Batches       []*Batch
	ServiceTotal  *ServiceTotalLine
	Trailer       *DestinationTrailerLine
}

// Batch is a closed batch. It is never modified after the batch total line
// is read.
type Batch struct {
	Header *DetailHeaderLine
	Items  []BatchItem
	Total  *BatchTotalLine
}

// BatchItem is one check with the invoice applications that follow it
type BatchItem struct {
	Check        *DetailLine
	Applications []*OverflowLine
}

// CheckTotal sums the amounts of every check in the batch
func (b *Batch) CheckTotal() decimal.Decimal {
	total := decimal.Zero
	for _, item := range b.Items {
		total = total.Add(item.Check.Amount)
	}
	return total
}

type state int

const (
	stateStart state = iota
	// stateIdle covers both "waiting for the service header" and "between
	// batches"; the service header is only accepted before the first batch.
	stateIdle
	stateInBatch
	stateAfterServiceTotal
	stateClosed
)

func (s state) String() string {
	switch s {
	case stateStart:
		return "start"
	case stateIdle:
		return "idle"
	case stateInBatch:
		return "in batch"
	case stateAfterServiceTotal:
		return "after service total"
	case stateClosed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// batchBuilder is the single owner of the batch being read
type batchBuilder struct {
	header *DetailHeaderLine
	items  []BatchItem
}

func (b *batchBuilder) lastItem() *BatchItem {
	if len(b.items) == 0 {
		return nil
	}
	return &b.items[len(b.items)-1]
}

func (b *batchBuilder) finalize(total *BatchTotalLine) *Batch {
	batch := &Batch{Header: b.header, Items: b.items, Total: total}
	b.header, b.items = nil, nil
	return batch
}

// assembler drives the record state machine over a stream of records
type assembler struct {
	state state
	file  File
	open  *batchBuilder
	// batch number to the line that opened it
	batchLines map[string]int
}

func newAssembler() *assembler {
	return &assembler{
		state:      stateStart,
		batchLines: make(map[string]int),
	}
}

// apply performs the transition for one record or rejects it
func (a *assembler) apply(rec Record) error {
	switch a.state {
	case stateStart:
		if h, ok := rec.(*HeaderLine); ok {
			a.file.Header = h
			a.state = stateIdle
			return nil
		}
		return structureError(rec, "expected a header record as the first line, got a %s record", rec.Type())

	case stateIdle:
		switch r := rec.(type) {
		case *HeaderLine:
			return structureError(rec, "unexpected header record: the file header was already read on line %d", a.file.Header.Number)
		case *ServiceHeaderLine:
			if a.file.ServiceHeader != nil || len(a.file.Batches) > 0 {
				return structureError(rec, "unexpected service header record")
			}
			a.file.ServiceHeader = r
			return nil
		case *DetailHeaderLine:
			return a.openBatch(r)
		case *DetailLine, *OverflowLine, *BatchTotalLine:
			return structureError(rec, "%s record with no batch in progress", rec.Type())
		case *ServiceTotalLine:
			a.file.ServiceTotal = r
			a.state = stateAfterServiceTotal
			return nil
		case *DestinationTrailerLine:
			return structureError(rec, "destination trailer record before the service total record")
		}

	case stateInBatch:
		switch r := rec.(type) {
		case *HeaderLine, *ServiceHeaderLine:
			return structureError(rec, "unexpected %s record inside batch %s", rec.Type(), a.open.header.BatchNumber)
		case *DetailHeaderLine:
			return structureError(rec, "batch %s opened while batch %s is still in progress", r.BatchNumber, a.open.header.BatchNumber)
		case *DetailLine:
			if r.BatchNumber != a.open.header.BatchNumber {
				return structureError(rec, "detail record for batch %s inside batch %s", r.BatchNumber, a.open.header.BatchNumber)
			}
			a.open.items = append(a.open.items, BatchItem{Check: r})
			return nil
		case *OverflowLine:
			item := a.open.lastItem()
			if item == nil {
				return structureError(rec, "overflow record with no check in batch %s", a.open.header.BatchNumber)
			}
			item.Applications = append(item.Applications, r)
			return nil
		case *BatchTotalLine:
			if r.BatchNumber != a.open.header.BatchNumber {
				return structureError(rec, "batch total record for batch %s while batch %s is in progress", r.BatchNumber, a.open.header.BatchNumber)
			}
			a.file.Batches = append(a.file.Batches, a.open.finalize(r))
			a.open = nil
			a.state = stateIdle
			return nil
		case *ServiceTotalLine, *DestinationTrailerLine:
			return structureError(rec, "%s record while batch %s is still in progress", rec.Type(), a.open.header.BatchNumber)
		}

	case stateAfterServiceTotal:
		switch r := rec.(type) {
		case *DestinationTrailerLine:
			a.file.Trailer = r
			a.state = stateClosed
			return nil
		case *ServiceTotalLine:
			return structureError(rec, "duplicate service total record, first read on line %d", a.file.ServiceTotal.Number)
		default:
			return structureError(rec, "unexpected %s record after the service total record", rec.Type())
		}

	case stateClosed:
		return structureError(rec, "unexpected %s record after the destination trailer", rec.Type())
	}

	return structureError(rec, "unexpected %s record in state %s", rec.Type(), a.state)
}

func (a *assembler) openBatch(h *DetailHeaderLine) error {
	if first, ok := a.batchLines[h.BatchNumber]; ok {
		return ierr.NewErrorf("line %d: duplicate batch number %s, first used on line %d", h.Number, h.BatchNumber, first).
			WithHintf("Batch number %s appears more than once", h.BatchNumber).
			WithReportableDetails(map[string]any{
				"line":         h.Number,
				"content":      h.Raw,
				"batch_number": h.BatchNumber,
				"first_line":   first,
			}).
			Mark(ierr.ErrUniqueness)
	}
	a.batchLines[h.BatchNumber] = h.Number
	a.open = &batchBuilder{header: h}
	a.state = stateInBatch
	return nil
}

// finish checks that the input ended in the closed state
func (a *assembler) finish(lastLine int) (*File, error) {
	var msg string
	switch a.state {
	case stateClosed:
		return &a.file, nil
	case stateStart:
		msg = "missing header record"
	case stateIdle:
		msg = "missing service total record"
	case stateInBatch:
		msg = fmt.Sprintf("batch %s was never closed by a batch total record", a.open.header.BatchNumber)
	case stateAfterServiceTotal:
		msg = "missing destination trailer record"
	}
	return nil, ierr.NewErrorf("unexpected end of file after line %d: %s", lastLine, msg).
		WithHint("The lockbox file is incomplete").
		WithReportableDetails(map[string]any{
			"line":  lastLine,
			"state": a.state.String(),
		}).
		Mark(ierr.ErrStructure)
}

func structureError(rec Record, format string, args ...any) error {
	msg := fmt.Sprintf(format, args...)
	return ierr.NewErrorf("line %d: %s", rec.LineNumber(), msg).
		WithHintf("Invalid record order on line %d", rec.LineNumber()).
		WithReportableDetails(map[string]any{
			"line":        rec.LineNumber(),
			"content":     rec.RawLine(),
			"record_type": rec.Type().String(),
		}).
		Mark(ierr.ErrStructure)
}
