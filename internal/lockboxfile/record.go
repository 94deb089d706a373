package lockboxfile

import (
	"time"

	"github.com/shopspring/decimal"
)

// RecordType is the first character of a lockbox line
type RecordType byte

const (
	RecordTypeHeader             RecordType = '1'
	RecordTypeServiceHeader      RecordType = '2'
	RecordTypeOverflow           RecordType = '4'
	RecordTypeDetailHeader       RecordType = '5'
	RecordTypeDetail             RecordType = '6'
	RecordTypeBatchTotal         RecordType = '7'
	RecordTypeServiceTotal       RecordType = '8'
	RecordTypeDestinationTrailer RecordType = '9'
)

func (t RecordType) String() string {
	switch t {
	case RecordTypeHeader:
		return "header"
	case RecordTypeServiceHeader:
		return "service header"
	case RecordTypeOverflow:
		return "overflow"
	case RecordTypeDetailHeader:
		return "detail header"
	case RecordTypeDetail:
		return "detail"
	case RecordTypeBatchTotal:
		return "batch total"
	case RecordTypeServiceTotal:
		return "service total"
	case RecordTypeDestinationTrailer:
		return "destination trailer"
	default:
		return "unknown (" + string(rune(t)) + ")"
	}
}

// Record is one decoded lockbox line. The set of implementations is closed:
// every record type above has exactly one struct in this file.
type Record interface {
	Type() RecordType
	LineNumber() int
	RawLine() string
	record()
}

// Line locates a record in the source file
type Line struct {
	// Number is 1-based
	Number int
	Raw    string
}

func (l Line) LineNumber() int { return l.Number }
func (l Line) RawLine() string { return l.Raw }
func (l Line) record()         {}

func (l *Line) setLine(ln Line) { *l = ln }

// HeaderLine opens the file
type HeaderLine struct {
	Line
	PriorityCode  string
	RoutingNumber string
	CompanyName   string
	Created       time.Time
}

// ServiceHeaderLine names the depositing company
type ServiceHeaderLine struct {
	Line
	CompanyName   string
	RoutingNumber string
}

// DetailHeaderLine opens a batch
type DetailHeaderLine struct {
	Line
	BatchNumber   string
	ItemNumber    string
	LockboxNumber string
	Date          time.Time
	CompanyName   string
	RoutingNumber string
}

// DetailLine is one check inside the open batch
type DetailLine struct {
	Line
	BatchNumber   string
	ItemNumber    string
	LockboxNumber string
	Date          time.Time
	// AccountNumber is the destination deposit account the check is drawn on
	AccountNumber string
	RoutingNumber string
	CheckNumber   string
	Amount        decimal.Decimal
}

// OverflowLine applies part of the preceding check to an invoice
type OverflowLine struct {
	Line
	BatchNumber   string
	ItemNumber    string
	TypeCode      string
	Sequence      string
	InvoiceNumber string
	InvoiceAmount decimal.Decimal
	CustomerID    string
}

// BatchTotalLine closes a batch with its declared totals
type BatchTotalLine struct {
	Line
	BatchNumber   string
	ItemNumber    string
	LockboxNumber string
	Date          time.Time
	Count         int
	Amount        decimal.Decimal
}

// ServiceTotalLine carries the declared totals of the whole file
type ServiceTotalLine struct {
	Line
	LockboxNumber string
	Date          time.Time
	Count         int
	Amount        decimal.Decimal
}

// DestinationTrailerLine ends the file
type DestinationTrailerLine struct {
	Line
	RecordCount int
}

func (*HeaderLine) Type() RecordType             { return RecordTypeHeader }
func (*ServiceHeaderLine) Type() RecordType      { return RecordTypeServiceHeader }
func (*DetailHeaderLine) Type() RecordType       { return RecordTypeDetailHeader }
func (*DetailLine) Type() RecordType             { return RecordTypeDetail }
func (*OverflowLine) Type() RecordType           { return RecordTypeOverflow }
func (*BatchTotalLine) Type() RecordType         { return RecordTypeBatchTotal }
func (*ServiceTotalLine) Type() RecordType       { return RecordTypeServiceTotal }
func (*DestinationTrailerLine) Type() RecordType { return RecordTypeDestinationTrailer }
