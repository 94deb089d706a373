// Package lockboxfile parses bank lockbox remittance files.
//
// A lockbox file is a sequence of 80 character lines. The first character of
// each line names its record type:
//
//	1 header, 2 service header,
//	5 detail header (opens a batch), 6 detail (a check),
//	4 overflow (an invoice application of the preceding check),
//	7 batch total (closes a batch), 8 service total, 9 destination trailer
//
// Parse decodes every line, assembles batches with a state machine, checks
// uniqueness and totals, and projects the result into flat lockbox entities.
// Any failure rejects the whole file.
package lockboxfile

import (
	"strings"
	"time"

	"github.com/flexprice/lockbox/internal/domain/lockbox"
	ierr "github.com/flexprice/lockbox/internal/errors"
	"github.com/shopspring/decimal"
)

type options struct {
	strictRecordTypes bool
	now               func() time.Time
}

// Option configures a single Parse call
type Option func(*options)

// WithStrictRecordTypes rejects lines whose record type code is unknown.
// By default such lines are skipped and reported in Result.SkippedLines.
func WithStrictRecordTypes() Option {
	return func(o *options) {
		o.strictRecordTypes = true
	}
}

// WithClock sets the clock that anchors two-digit year resolution
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		o.now = now
	}
}

// Result is the outcome of a successful parse. It must be treated as read-only.
type Result struct {
	File *File

	Batches []*lockbox.Batch
	Items   []*lockbox.BatchItem
	Details []*lockbox.BatchItemDetail

	// AccountRouting maps each check account number to the last routing
	// number it was seen with
	AccountRouting   map[string]string
	RoutingConflicts []RoutingConflict

	ContentHash string
	// SkippedLines holds the 1-based numbers of lines with an unknown record type
	SkippedLines []int
	LineCount    int
}

// TotalAmount is the sum of every batch amount
func (r *Result) TotalAmount() decimal.Decimal {
	total := decimal.Zero
	for _, b := range r.Batches {
		total = total.Add(b.Amount)
	}
	return total
}

// Parse parses and validates one lockbox file
func Parse(content []byte, opts ...Option) (*Result, error) {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	now := o.now()

	lines := splitLines(string(content))
	asm := newAssembler()
	var skipped []int

	for i, raw := range lines {
		ln := Line{Number: i + 1, Raw: raw}
		rec, known, err := decodeLine(ln, now)
		if err != nil {
			return nil, err
		}
		if !known {
			if o.strictRecordTypes {
				return nil, ierr.NewErrorf("line %d: unknown record type %q", ln.Number, string([]rune(raw)[0])).
					WithHintf("Unknown record type on line %d", ln.Number).
					WithReportableDetails(map[string]any{
						"line":    ln.Number,
						"content": raw,
					}).
					Mark(ierr.ErrStructure)
			}
			skipped = append(skipped, ln.Number)
			continue
		}
		if err := asm.apply(rec); err != nil {
			return nil, err
		}
	}

	file, err := asm.finish(len(lines))
	if err != nil {
		return nil, err
	}
	if err := validate(file); err != nil {
		return nil, err
	}

	hash := ContentHash(content)
	p := project(file, hash)

	return &Result{
		File:             file,
		Batches:          p.batches,
		Items:            p.items,
		Details:          p.details,
		AccountRouting:   p.accountRouting,
		RoutingConflicts: p.conflicts,
		ContentHash:      hash,
		SkippedLines:     skipped,
		LineCount:        len(lines),
	}, nil
}

// splitLines drops carriage returns and splits on line feeds. The empty
// element after a final line feed is not a line.
func splitLines(content string) []string {
	content = strings.ReplaceAll(content, "\r", "")
	if content == "" {
		return nil
	}
	lines := strings.Split(content, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
