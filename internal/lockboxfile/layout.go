package lockboxfile

import (
	"time"

	"github.com/shopspring/decimal"
)

// LineWidth is the fixed width of every lockbox line
const LineWidth = 80

// column is one fixed-width field of a record layout. Offsets count
// characters, are 0-based and end exclusive.
type column[R any] struct {
	name       string
	start, end int
	apply      func(d *fieldDecoder, rec *R, raw string) error
}

func textColumn[R any](name string, start, end int, set func(*R, string)) column[R] {
	return column[R]{name: name, start: start, end: end, apply: func(d *fieldDecoder, rec *R, raw string) error {
		set(rec, d.text(raw))
		return nil
	}}
}

// numberColumn is a text column whose leading zeros are not significant
func numberColumn[R any](name string, start, end int, set func(*R, string)) column[R] {
	return column[R]{name: name, start: start, end: end, apply: func(d *fieldDecoder, rec *R, raw string) error {
		set(rec, d.strippedText(raw))
		return nil
	}}
}

func dateColumn[R any](name string, start, end int, set func(*R, time.Time)) column[R] {
	return column[R]{name: name, start: start, end: end, apply: func(d *fieldDecoder, rec *R, raw string) error {
		v, err := d.date(name, raw)
		if err != nil {
			return err
		}
		set(rec, v)
		return nil
	}}
}

func dateTimeColumn[R any](name string, start, end int, set func(*R, time.Time)) column[R] {
	return column[R]{name: name, start: start, end: end, apply: func(d *fieldDecoder, rec *R, raw string) error {
		v, err := d.dateTime(name, raw)
		if err != nil {
			return err
		}
		set(rec, v)
		return nil
	}}
}

func amountColumn[R any](name string, start, end int, set func(*R, decimal.Decimal)) column[R] {
	return column[R]{name: name, start: start, end: end, apply: func(d *fieldDecoder, rec *R, raw string) error {
		v, err := d.amount(name, raw)
		if err != nil {
			return err
		}
		set(rec, v)
		return nil
	}}
}

func countColumn[R any](name string, start, end int, set func(*R, int)) column[R] {
	return column[R]{name: name, start: start, end: end, apply: func(d *fieldDecoder, rec *R, raw string) error {
		v, err := d.count(name, raw)
		if err != nil {
			return err
		}
		set(rec, v)
		return nil
	}}
}

var headerColumns = []column[HeaderLine]{
	textColumn("priority code", 1, 3, func(r *HeaderLine, v string) { r.PriorityCode = v }),
	textColumn("routing number", 3, 13, func(r *HeaderLine, v string) { r.RoutingNumber = v }),
	textColumn("company name", 13, 36, func(r *HeaderLine, v string) { r.CompanyName = v }),
	dateTimeColumn("created", 36, 46, func(r *HeaderLine, v time.Time) { r.Created = v }),
}

var serviceHeaderColumns = []column[ServiceHeaderLine]{
	textColumn("company name", 1, 24, func(r *ServiceHeaderLine, v string) { r.CompanyName = v }),
	textColumn("routing number", 24, 34, func(r *ServiceHeaderLine, v string) { r.RoutingNumber = v }),
}

var detailHeaderColumns = []column[DetailHeaderLine]{
	textColumn("batch number", 1, 4, func(r *DetailHeaderLine, v string) { r.BatchNumber = v }),
	textColumn("item number", 4, 7, func(r *DetailHeaderLine, v string) { r.ItemNumber = v }),
	textColumn("lockbox number", 7, 14, func(r *DetailHeaderLine, v string) { r.LockboxNumber = v }),
	dateColumn("date", 14, 20, func(r *DetailHeaderLine, v time.Time) { r.Date = v }),
	textColumn("company name", 20, 43, func(r *DetailHeaderLine, v string) { r.CompanyName = v }),
	textColumn("routing number", 43, 53, func(r *DetailHeaderLine, v string) { r.RoutingNumber = v }),
}

var detailColumns = []column[DetailLine]{
	textColumn("batch number", 1, 4, func(r *DetailLine, v string) { r.BatchNumber = v }),
	textColumn("item number", 4, 7, func(r *DetailLine, v string) { r.ItemNumber = v }),
	textColumn("lockbox number", 7, 14, func(r *DetailLine, v string) { r.LockboxNumber = v }),
	dateColumn("date", 14, 20, func(r *DetailLine, v time.Time) { r.Date = v }),
	textColumn("destination account", 20, 35, func(r *DetailLine, v string) { r.AccountNumber = v }),
	textColumn("routing number", 35, 45, func(r *DetailLine, v string) { r.RoutingNumber = v }),
	numberColumn("check number", 45, 53, func(r *DetailLine, v string) { r.CheckNumber = v }),
	amountColumn("amount", 53, 63, func(r *DetailLine, v decimal.Decimal) { r.Amount = v }),
}

var overflowColumns = []column[OverflowLine]{
	textColumn("batch number", 1, 4, func(r *OverflowLine, v string) { r.BatchNumber = v }),
	textColumn("item number", 4, 7, func(r *OverflowLine, v string) { r.ItemNumber = v }),
	textColumn("type code", 7, 8, func(r *OverflowLine, v string) { r.TypeCode = v }),
	textColumn("sequence", 8, 10, func(r *OverflowLine, v string) { r.Sequence = v }),
	numberColumn("invoice number", 10, 25, func(r *OverflowLine, v string) { r.InvoiceNumber = v }),
	amountColumn("invoice amount", 25, 35, func(r *OverflowLine, v decimal.Decimal) { r.InvoiceAmount = v }),
	numberColumn("customer id", 35, 50, func(r *OverflowLine, v string) { r.CustomerID = v }),
}

var batchTotalColumns = []column[BatchTotalLine]{
	textColumn("batch number", 1, 4, func(r *BatchTotalLine, v string) { r.BatchNumber = v }),
	textColumn("item number", 4, 7, func(r *BatchTotalLine, v string) { r.ItemNumber = v }),
	textColumn("lockbox number", 7, 14, func(r *BatchTotalLine, v string) { r.LockboxNumber = v }),
	dateColumn("date", 14, 20, func(r *BatchTotalLine, v time.Time) { r.Date = v }),
	countColumn("count", 20, 24, func(r *BatchTotalLine, v int) { r.Count = v }),
	amountColumn("amount", 24, 34, func(r *BatchTotalLine, v decimal.Decimal) { r.Amount = v }),
}

var serviceTotalColumns = []column[ServiceTotalLine]{
	textColumn("lockbox number", 1, 8, func(r *ServiceTotalLine, v string) { r.LockboxNumber = v }),
	dateColumn("date", 8, 14, func(r *ServiceTotalLine, v time.Time) { r.Date = v }),
	countColumn("count", 14, 18, func(r *ServiceTotalLine, v int) { r.Count = v }),
	amountColumn("amount", 18, 28, func(r *ServiceTotalLine, v decimal.Decimal) { r.Amount = v }),
}

var destinationTrailerColumns = []column[DestinationTrailerLine]{
	countColumn("record count", 1, 7, func(r *DestinationTrailerLine, v int) { r.RecordCount = v }),
}

type decodeFunc func(d *fieldDecoder) (Record, error)

// decodeWith turns a column table into a decoder for one record type
func decodeWith[R any, P interface {
	*R
	Record
	setLine(Line)
}](columns []column[R]) decodeFunc {
	return func(d *fieldDecoder) (Record, error) {
		var rec R
		for _, c := range columns {
			if err := c.apply(d, &rec, d.field(c.start, c.end)); err != nil {
				return nil, err
			}
		}
		p := P(&rec)
		p.setLine(d.line)
		return p, nil
	}
}

var decoders = map[RecordType]decodeFunc{
	RecordTypeHeader:             decodeWith[HeaderLine, *HeaderLine](headerColumns),
	RecordTypeServiceHeader:      decodeWith[ServiceHeaderLine, *ServiceHeaderLine](serviceHeaderColumns),
	RecordTypeDetailHeader:       decodeWith[DetailHeaderLine, *DetailHeaderLine](detailHeaderColumns),
	RecordTypeDetail:             decodeWith[DetailLine, *DetailLine](detailColumns),
	RecordTypeOverflow:           decodeWith[OverflowLine, *OverflowLine](overflowColumns),
	RecordTypeBatchTotal:         decodeWith[BatchTotalLine, *BatchTotalLine](batchTotalColumns),
	RecordTypeServiceTotal:       decodeWith[ServiceTotalLine, *ServiceTotalLine](serviceTotalColumns),
	RecordTypeDestinationTrailer: decodeWith[DestinationTrailerLine, *DestinationTrailerLine](destinationTrailerColumns),
}
